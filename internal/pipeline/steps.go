package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jonboulle/clockwork"

	"github.com/nregsmp/nregsreport/internal/model"
	"github.com/nregsmp/nregsreport/internal/prompt"
	"github.com/nregsmp/nregsreport/internal/stats"
)

// Fetcher retrieves the statistics of a report.
// *dashboard.Fetcher implements it.
type Fetcher interface {
	Fetch(ctx context.Context, req model.ReportRequest) ([]model.SectionData, error)
	FetchScorecardRows(ctx context.Context, req model.ReportRequest) model.ScorecardRows
	FetchPanchayatRows(ctx context.Context, req model.ReportRequest, block string) [][]model.Row
}

// Composer renders section prompts. *prompt.Composer implements it.
type Composer interface {
	Compose(data model.SectionData) (string, error)
}

// Generator produces section results from prompts.
// *llm.Generator implements it.
type Generator interface {
	Generate(ctx context.Context, prompts []model.SectionPrompt) []model.SectionResult
	Provider() string
	Model() string
}

// FetchStep retrieves the statistics of every section.
// Sections without data are marked on the document; a run where no
// section has data fails with model.ErrNoDataAvailable.
type FetchStep struct {
	fetcher Fetcher
	logger  *slog.Logger
}

// NewFetchStep creates a fetch step.
func NewFetchStep(fetcher Fetcher, logger *slog.Logger) *FetchStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &FetchStep{fetcher: fetcher, logger: logger}
}

// Name returns the step name.
func (s *FetchStep) Name() string {
	return "fetch"
}

// Do executes the fetch step.
func (s *FetchStep) Do(ctx context.Context, run *Run) error {
	data, err := s.fetcher.Fetch(ctx, run.Request)
	if err != nil {
		return fmt.Errorf("failed to fetch dashboard data: %w", err)
	}
	run.Data = data

	for _, d := range data {
		if !d.Available() {
			run.Document.MarkNoData(d.Section, d.Err)
			s.logger.Warn("section has no data",
				"section", d.Section.String(),
				"error", d.Err,
			)
		}
	}
	return nil
}

// ScorecardStep computes the district's overall standing from the
// fetched state-level rows and the scorecard-only endpoints.
// A scorecard that cannot be computed is left out of the report.
type ScorecardStep struct {
	fetcher    Fetcher
	panchayats bool
	logger     *slog.Logger
}

// NewScorecardStep creates a scorecard step. When panchayats is true the
// best and worst panchayats of every block are fetched as well.
func NewScorecardStep(fetcher Fetcher, panchayats bool, logger *slog.Logger) *ScorecardStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &ScorecardStep{fetcher: fetcher, panchayats: panchayats, logger: logger}
}

// Name returns the step name.
func (s *ScorecardStep) Name() string {
	return "scorecard"
}

// Do executes the scorecard step.
func (s *ScorecardStep) Do(ctx context.Context, run *Run) error {
	extra := s.fetcher.FetchScorecardRows(ctx, run.Request)
	if err := ctx.Err(); err != nil {
		return err
	}

	card := stats.BuildScorecard(run.Request.District.Name, run.Data, extra)
	run.Document.Scorecard = card
	if card == nil {
		s.logger.Warn("scorecard not available", "district", run.Request.District.Name)
		return nil
	}
	for _, name := range card.ExcludedBlocks {
		s.logger.Info("block left out of scorecard as an outlier", "block", name)
	}

	if s.panchayats {
		for i := range card.Blocks {
			block := &card.Blocks[i]
			sets := s.fetcher.FetchPanchayatRows(ctx, run.Request, block.Name)
			if err := ctx.Err(); err != nil {
				return err
			}
			block.TopPanchayats, block.BottomPanchayats = stats.PanchayatLeaderboard(run.Request.District.Name, block.Name, sets)
		}
	}

	s.logger.Info("scorecard computed",
		"district", run.Request.District.Name,
		"marks", card.Marks,
		"grade", card.Grade,
		"rank", card.Rank,
		"blocks", len(card.Blocks),
	)
	return nil
}

// ComposeStep renders the prompt of every available section and
// optionally archives the prompts.
type ComposeStep struct {
	composer   Composer
	archiveDir string
	logger     *slog.Logger
}

// NewComposeStep creates a compose step. When archiveDir is not empty
// every prompt is also written there.
func NewComposeStep(composer Composer, archiveDir string, logger *slog.Logger) *ComposeStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &ComposeStep{composer: composer, archiveDir: archiveDir, logger: logger}
}

// Name returns the step name.
func (s *ComposeStep) Name() string {
	return "compose"
}

// Do executes the compose step.
func (s *ComposeStep) Do(_ context.Context, run *Run) error {
	run.Prompts = run.Prompts[:0]

	for _, d := range run.Data {
		if !d.Available() {
			continue
		}

		text, err := s.composer.Compose(d)
		if err != nil {
			if errors.Is(err, prompt.ErrUnavailable) {
				run.Document.MarkNoData(d.Section, err)
			} else {
				run.Document.MarkFailed(d.Section, &model.GenerationError{Section: d.Section, Err: err})
			}
			s.logger.Warn("prompt not composed", "section", d.Section.String(), "error", err)
			continue
		}

		p := model.SectionPrompt{Section: d.Section, Text: text}
		run.Prompts = append(run.Prompts, p)

		if s.archiveDir == "" {
			continue
		}
		path, err := prompt.Archive(s.archiveDir, run.Request, p)
		if err != nil {
			s.logger.Warn("failed to archive prompt", "section", d.Section.String(), "error", err)
			continue
		}
		s.logger.Debug("prompt archived", "section", d.Section.String(), "path", path)
	}
	return nil
}

// GenerateStep asks the model for the analysis of every composed prompt
// and stores the results on the document.
type GenerateStep struct {
	generator Generator
	clock     clockwork.Clock
	logger    *slog.Logger
}

// NewGenerateStep creates a generate step. The clock stamps the
// document's generation time.
func NewGenerateStep(generator Generator, clock clockwork.Clock, logger *slog.Logger) *GenerateStep {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &GenerateStep{generator: generator, clock: clock, logger: logger}
}

// Name returns the step name.
func (s *GenerateStep) Name() string {
	return "generate"
}

// Do executes the generate step.
func (s *GenerateStep) Do(ctx context.Context, run *Run) error {
	doc := run.Document
	doc.Provider = s.generator.Provider()
	doc.Model = s.generator.Model()

	for _, r := range s.generator.Generate(ctx, run.Prompts) {
		doc.SetResult(r)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	doc.GeneratedAt = s.clock.Now()

	usage := doc.TotalUsage()
	s.logger.Info("report generated",
		"district", doc.District.Name,
		"sections_ok", doc.CountByStatus(model.StatusOK),
		"sections_no_data", doc.CountByStatus(model.StatusNoData),
		"sections_failed", doc.CountByStatus(model.StatusGenerationFailed),
		"input_tokens", usage.InputTokens,
		"output_tokens", usage.OutputTokens,
	)
	return nil
}

// DefaultPipelineOption configures the default report pipeline.
type DefaultPipelineOption func(*defaultPipelineConfig)

type defaultPipelineConfig struct {
	promptDir  string
	clock      clockwork.Clock
	logger     *slog.Logger
	scorecard  bool
	panchayats bool
}

// WithPromptDir archives every composed prompt into dir.
func WithPromptDir(dir string) DefaultPipelineOption {
	return func(c *defaultPipelineConfig) {
		c.promptDir = dir
	}
}

// WithClock sets the clock that stamps the generation time.
func WithClock(clock clockwork.Clock) DefaultPipelineOption {
	return func(c *defaultPipelineConfig) {
		c.clock = clock
	}
}

// WithStepLogger sets the logger of every step.
func WithStepLogger(logger *slog.Logger) DefaultPipelineOption {
	return func(c *defaultPipelineConfig) {
		c.logger = logger
	}
}

// WithScorecard enables or disables the scorecard step.
func WithScorecard(enabled bool) DefaultPipelineOption {
	return func(c *defaultPipelineConfig) {
		c.scorecard = enabled
	}
}

// WithPanchayatDetail adds the best and worst panchayats of every block
// to the scorecard.
func WithPanchayatDetail(enabled bool) DefaultPipelineOption {
	return func(c *defaultPipelineConfig) {
		c.panchayats = enabled
	}
}

// DefaultPipeline creates the report pipeline:
// fetch, scorecard, compose and generate.
func DefaultPipeline(fetcher Fetcher, composer Composer, generator Generator, pipelineOpts []Option, configOpts ...DefaultPipelineOption) *Pipeline {
	cfg := &defaultPipelineConfig{scorecard: true}
	for _, opt := range configOpts {
		opt(cfg)
	}

	p := New(pipelineOpts...)
	p.AddStep(NewFetchStep(fetcher, cfg.logger))
	if cfg.scorecard {
		p.AddStep(NewScorecardStep(fetcher, cfg.panchayats, cfg.logger))
	}
	p.AddSteps(
		NewComposeStep(composer, cfg.promptDir, cfg.logger),
		NewGenerateStep(generator, cfg.clock, cfg.logger),
	)
	return p
}

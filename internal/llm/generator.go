package llm

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/nregsmp/nregsreport/internal/model"
	"github.com/nregsmp/nregsreport/internal/observability"
	"github.com/nregsmp/nregsreport/internal/retry"
)

// Generator turns section prompts into section results, one completion
// request at a time.
type Generator struct {
	completer Completer
	policy    retry.Policy
	timeout   time.Duration
	maxTokens map[model.Section]int
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// GeneratorOption configures a Generator.
type GeneratorOption func(*Generator)

// WithRetryPolicy sets the retry policy for transient provider failures.
func WithRetryPolicy(p retry.Policy) GeneratorOption {
	return func(g *Generator) {
		g.policy = p
	}
}

// WithTimeout bounds each completion attempt.
func WithTimeout(d time.Duration) GeneratorOption {
	return func(g *Generator) {
		g.timeout = d
	}
}

// WithSectionMaxTokens overrides the completion token limit of one section.
func WithSectionMaxTokens(section model.Section, n int) GeneratorOption {
	return func(g *Generator) {
		if n > 0 {
			g.maxTokens[section] = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) GeneratorOption {
	return func(g *Generator) {
		g.logger = logger
	}
}

// WithMetrics sets the metrics completions are recorded in.
func WithMetrics(m *observability.Metrics) GeneratorOption {
	return func(g *Generator) {
		g.metrics = m
	}
}

// NewGenerator creates a generator over completer.
func NewGenerator(completer Completer, opts ...GeneratorOption) *Generator {
	g := &Generator{
		completer: completer,
		policy:    retry.NewPolicy(0),
		maxTokens: make(map[model.Section]int),
	}

	for _, opt := range opts {
		opt(g)
	}

	if g.logger == nil {
		g.logger = slog.Default()
	}

	return g
}

// Generate produces one result per prompt, in the order given.
// A failing section is recorded as StatusGenerationFailed and the next
// one is still attempted.
func (g *Generator) Generate(ctx context.Context, prompts []model.SectionPrompt) []model.SectionResult {
	results := make([]model.SectionResult, 0, len(prompts))
	for _, p := range prompts {
		results = append(results, g.GenerateSection(ctx, p))
	}
	return results
}

// GenerateSection produces the result of a single section.
func (g *Generator) GenerateSection(ctx context.Context, p model.SectionPrompt) model.SectionResult {
	failed := func(err error) model.SectionResult {
		genErr := &model.GenerationError{Section: p.Section, Err: err}
		g.logger.Warn("section generation failed",
			"section", p.Section.String(),
			"provider", g.completer.Provider(),
			"error", err,
		)
		return model.SectionResult{Section: p.Section, Status: model.StatusGenerationFailed, Error: genErr.Error()}
	}

	if err := ctx.Err(); err != nil {
		return failed(err)
	}

	var completion Completion
	op := func() error {
		c, err := g.complete(ctx, p)
		if err != nil {
			return classify(ctx, err)
		}
		completion = c
		return nil
	}
	notify := func(err error, next time.Duration) {
		g.metrics.ObserveRetry("llm")
		g.logger.Warn("completion failed, retrying",
			"section", p.Section.String(),
			"retry_in", next,
			"error", err,
		)
	}

	if err := retry.Do(ctx, g.policy, op, notify); err != nil {
		return failed(err)
	}

	analysis := ExtractAnalysis(completion.Text)
	if analysis.Text == "" {
		return failed(ErrEmptyCompletion)
	}

	g.logger.Info("section generated",
		"section", p.Section.String(),
		"input_tokens", completion.Usage.InputTokens,
		"output_tokens", completion.Usage.OutputTokens,
		"total_tokens", completion.Usage.Total(),
	)

	return model.SectionResult{
		Section:  p.Section,
		Status:   model.StatusOK,
		Analysis: analysis,
		Usage:    completion.Usage,
	}
}

// complete performs one completion attempt under the per-attempt timeout.
func (g *Generator) complete(ctx context.Context, p model.SectionPrompt) (Completion, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	start := time.Now()
	c, err := g.completer.Complete(ctx, p.Text, WithMaxTokens(g.maxTokens[p.Section]))

	outcome := observability.OutcomeSuccess
	switch {
	case err != nil:
		outcome = observability.OutcomeError
	case c.Text == "":
		outcome = observability.OutcomeEmpty
	}
	g.metrics.ObserveCompletion(g.completer.Provider(), outcome, c.Usage, time.Since(start))

	return c, err
}

// classify marks errors that a retry cannot fix as permanent.
// Network errors and per-attempt timeouts stay retryable.
func classify(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return retry.Permanent(err)
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && !apiErr.Temporary() {
		return retry.Permanent(err)
	}
	if errors.Is(err, ErrMissingAPIKey) {
		return retry.Permanent(err)
	}
	return err
}

// Provider returns the provider name of the underlying completer.
func (g *Generator) Provider() string {
	return g.completer.Provider()
}

// Model returns the model name of the underlying completer.
func (g *Generator) Model() string {
	return g.completer.Model()
}

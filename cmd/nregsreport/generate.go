package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nregsmp/nregsreport/internal/config"
	"github.com/nregsmp/nregsreport/internal/dashboard"
	"github.com/nregsmp/nregsreport/internal/database"
	"github.com/nregsmp/nregsreport/internal/district"
	"github.com/nregsmp/nregsreport/internal/llm"
	applog "github.com/nregsmp/nregsreport/internal/log"
	"github.com/nregsmp/nregsreport/internal/model"
	"github.com/nregsmp/nregsreport/internal/observability"
	"github.com/nregsmp/nregsreport/internal/pipeline"
	"github.com/nregsmp/nregsreport/internal/prompt"
	"github.com/nregsmp/nregsreport/internal/report"
	"github.com/nregsmp/nregsreport/internal/retry"
)

// newGenerateCmd creates the generate command.
func newGenerateCmd(env environment) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate DATE DISTRICT",
		Short: "Generate the report of a district for a date",
		Long: `Generate the narrative performance report of one district.

DATE is the data date in YYYY-MM-DD form and must not be in the future.
DISTRICT is one of the 52 districts of Madhya Pradesh, e.g. SIDHI or
"AGAR MALWA" (see 'nregsreport districts').

The API key of the LLM provider is read from ANTHROPIC_API_KEY
(anthropic) or GEMINI_API_KEY (gemini). Ollama needs no key.

Exit codes: 0 success, 1 runtime failure, 2 invalid input,
3 configuration error.

Examples:
  # Markdown report in ./output
  nregsreport generate 2025-03-19 SIDHI

  # JSON report at an explicit path using Gemini
  nregsreport generate 2025-03-19 "AGAR MALWA" -p gemini -f json -o reports/agar.json

  # Keep a copy of every prompt sent to the model
  nregsreport generate 2025-03-19 REWA --save-prompts prompts/`,
		Args: validateGenerateArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerateCmd(cmd, args, env)
		},
	}

	cmd.Flags().StringP("config", "c", "",
		"Config file path (default: .nregsreport or ~/.config/nregsreport/config.yaml)")
	cmd.Flags().StringP("output", "o", config.DefaultOutputDir,
		"Output directory or file path")
	cmd.Flags().StringP("format", "f", config.DefaultFormat,
		"Output format: markdown, json or text")
	cmd.Flags().StringP("provider", "p", config.DefaultProvider,
		"LLM provider: anthropic, gemini or ollama")
	cmd.Flags().StringP("model", "M", "",
		"LLM model name (default: the provider's default model)")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout of each dashboard request")
	cmd.Flags().Duration("llm-timeout", config.DefaultLLMTimeout,
		"Timeout of each LLM request")
	cmd.Flags().IntP("retries", "r", config.DefaultRetries,
		"Retries after a transient network or provider failure")
	cmd.Flags().String("base-url", config.DefaultBaseURL,
		"Base URL of the NREGS dashboard")
	cmd.Flags().String("save-prompts", "",
		"Directory that receives a copy of every composed prompt")
	cmd.Flags().String("prepared-by", "",
		"Name printed in the report footer")
	cmd.Flags().Bool("no-history", false,
		"Do not record the report in the history database")
	cmd.Flags().String("history-dir", config.XDGDataDir(),
		"Directory of the history database")
	cmd.Flags().String("metrics-file", "",
		"Write run metrics in Prometheus text format to this file")
	cmd.Flags().Bool("panchayats", false,
		"Add the best and worst panchayats of every block to the scorecard")
	cmd.Flags().String("log-format", config.DefaultLogFormat,
		"Log format on stderr: text or json")

	return cmd
}

// validateGenerateArgs requires exactly DATE and DISTRICT.
func validateGenerateArgs(_ *cobra.Command, args []string) error {
	if len(args) != 2 {
		return &model.ValidationError{
			Field: "arguments",
			Value: fmt.Sprint(args),
			Err:   fmt.Errorf("expected DATE and DISTRICT, got %d argument(s)", len(args)),
		}
	}
	return nil
}

// runGenerateCmd executes the generate command.
// Input is validated before configuration is loaded and before any
// network activity.
func runGenerateCmd(cmd *cobra.Command, args []string, env environment) error {
	date, err := model.ParseReportDate(args[0], env.clock.Now())
	if err != nil {
		return err
	}
	d, err := district.Lookup(args[1])
	if err != nil {
		return err
	}
	req := model.NewReportRequest(date, d)

	cfg, err := buildConfig(cmd, env.getenv)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := newLogger(cmd.ErrOrStderr(), cfg)
	if unknown := cfg.File.UnknownSections(); len(unknown) > 0 {
		logger.Warn("ignoring unknown sections in config file", "sections", unknown)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return generate(ctx, cmd, cfg, req, env, logger)
}

// buildConfig creates a Config from defaults, the config file, the
// environment and the command line flags, in increasing precedence.
func buildConfig(cmd *cobra.Command, getenv func(string) string) (*config.Config, error) {
	cfg := config.NewConfig()
	cfg.Verbose = getVerboseFlag(cmd)

	var err error
	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	if configFile := config.FindConfigFile(cfg.ConfigFilePath); configFile != "" {
		file, err := config.LoadConfigFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to load config file %s: %v", config.ErrConfig, configFile, err)
		}
		cfg.ApplyFile(file)
	} else if cfg.ConfigFilePath != "" {
		return nil, fmt.Errorf("%w: %s: %v", config.ErrConfig, cfg.ConfigFilePath, config.ErrConfigNotFound)
	}

	cfg.ApplyEnv(getenv)

	if err := applyFlags(cmd, cfg, getenv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyFlags overrides cfg with the flags set on the command line.
func applyFlags(cmd *cobra.Command, cfg *config.Config, getenv func(string) string) error {
	flags := cmd.Flags()
	var err error

	if flags.Changed("provider") {
		if cfg.Provider, err = flags.GetString("provider"); err != nil {
			return err
		}
		// Re-read the API key for the provider chosen on the command line.
		cfg.ApplyEnv(func(key string) string {
			if key == config.EnvProvider {
				return ""
			}
			return getenv(key)
		})
	}
	if flags.Changed("model") {
		if cfg.Model, err = flags.GetString("model"); err != nil {
			return err
		}
	}
	if flags.Changed("output") {
		if cfg.Output, err = flags.GetString("output"); err != nil {
			return err
		}
	}
	if flags.Changed("format") {
		value, err := flags.GetString("format")
		if err != nil {
			return err
		}
		format, err := report.ParseFormat(value)
		if err != nil {
			return &model.ValidationError{Field: "format", Value: value, Err: err}
		}
		cfg.Format = string(format)
	}
	if flags.Changed("timeout") {
		if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
			return err
		}
	}
	if flags.Changed("llm-timeout") {
		if cfg.LLMTimeout, err = flags.GetDuration("llm-timeout"); err != nil {
			return err
		}
	}
	if flags.Changed("retries") {
		if cfg.Retries, err = flags.GetInt("retries"); err != nil {
			return err
		}
	}
	if flags.Changed("base-url") {
		if cfg.BaseURL, err = flags.GetString("base-url"); err != nil {
			return err
		}
	}
	if flags.Changed("save-prompts") {
		if cfg.PromptDir, err = flags.GetString("save-prompts"); err != nil {
			return err
		}
	}
	if flags.Changed("prepared-by") {
		if cfg.PreparedBy, err = flags.GetString("prepared-by"); err != nil {
			return err
		}
	}

	noHistory, err := flags.GetBool("no-history")
	if err != nil {
		return err
	}
	cfg.SaveToDB = !noHistory

	if cfg.DBDir, err = flags.GetString("history-dir"); err != nil {
		return err
	}
	if cfg.MetricsFile, err = flags.GetString("metrics-file"); err != nil {
		return err
	}
	if flags.Changed("panchayats") {
		if cfg.PanchayatDetail, err = flags.GetBool("panchayats"); err != nil {
			return err
		}
	}
	if flags.Changed("log-format") {
		value, err := flags.GetString("log-format")
		if err != nil {
			return err
		}
		switch value = strings.ToLower(value); value {
		case config.LogFormatText, config.LogFormatJSON:
			cfg.LogFormat = value
		default:
			return &model.ValidationError{Field: "log-format", Value: value, Err: config.ErrUnknownLogFormat}
		}
	}

	return nil
}

// newLogger creates the run logger in the configured format.
func newLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	if cfg.LogFormat == config.LogFormatJSON {
		return applog.NewSecureJSONLogger(w, cfg.Verbose)
	}
	return applog.NewSecureLogger(w, cfg.Verbose)
}

// generate runs the report pipeline and writes its outputs.
func generate(ctx context.Context, cmd *cobra.Command, cfg *config.Config, req model.ReportRequest, env environment, logger *slog.Logger) error {
	start := env.clock.Now()
	metrics := observability.NewMetrics()
	policy := retry.NewPolicy(cfg.Retries)

	logger.Info("starting report",
		"district", req.District.Name,
		"date", req.DateString(),
		"provider", cfg.Provider,
		"model", cfg.ResolveModel(),
	)

	client := dashboard.NewClient(cfg.BaseURL, cfg.Timeout,
		dashboard.WithUserAgent(cfg.UserAgent),
		dashboard.WithMaxBodySize(cfg.MaxBodySize),
		dashboard.WithRetryPolicy(policy),
		dashboard.WithLogger(logger),
		dashboard.WithMetrics(metrics),
	)

	var skipped []model.Section
	var composerOpts []prompt.Option
	generatorOpts := []llm.GeneratorOption{
		llm.WithRetryPolicy(policy),
		llm.WithTimeout(cfg.LLMTimeout),
		llm.WithLogger(logger),
		llm.WithMetrics(metrics),
	}
	for _, s := range model.Sections() {
		sc := cfg.File.SectionConfig(s)
		if sc.Skip {
			skipped = append(skipped, s)
		}
		if sc.Instructions != "" {
			composerOpts = append(composerOpts, prompt.WithInstructions(s, sc.Instructions))
		}
		generatorOpts = append(generatorOpts, llm.WithSectionMaxTokens(s, sc.MaxTokens))
	}

	fetcher := dashboard.NewFetcher(client,
		dashboard.WithFetcherLogger(logger),
		dashboard.WithSkippedSections(skipped...),
	)

	composer, err := prompt.NewComposer(composerOpts...)
	if err != nil {
		return fmt.Errorf("failed to create prompt composer: %w", err)
	}

	completer, err := llm.New(ctx, cfg)
	if err != nil {
		if errors.Is(err, llm.ErrMissingAPIKey) {
			return fmt.Errorf("%w: %v", config.ErrConfig, err)
		}
		return fmt.Errorf("failed to create %s client: %w", cfg.Provider, err)
	}
	generator := llm.NewGenerator(completer, generatorOpts...)

	p := pipeline.DefaultPipeline(fetcher, composer, generator,
		[]pipeline.Option{pipeline.WithLogger(logger)},
		pipeline.WithPromptDir(cfg.PromptDir),
		pipeline.WithClock(env.clock),
		pipeline.WithStepLogger(logger),
		pipeline.WithPanchayatDetail(cfg.PanchayatDetail),
	)

	run := pipeline.NewRun(req)
	if err := p.Execute(ctx, run); err != nil {
		return err
	}

	doc := run.Document
	doc.PreparedBy = cfg.PreparedBy

	path, err := report.WriteFile(doc, cfg.Output, report.Format(cfg.Format))
	if err != nil {
		return err
	}

	if cfg.SaveToDB {
		saveHistory(ctx, cfg.DBDir, doc, run.Data, logger)
	}

	metrics.ObserveDocument(doc, env.clock.Since(start), env.clock.Now())
	if cfg.MetricsFile != "" {
		if err := metrics.WriteTextfile(cfg.MetricsFile); err != nil {
			logger.Warn("failed to write metrics file", "path", cfg.MetricsFile, "error", err)
		}
	}

	printSummary(cmd, doc, path)
	return nil
}

// saveHistory records the report in the history database.
// A failure here does not fail the run; the report file is already written.
func saveHistory(ctx context.Context, dir string, doc *model.ReportDocument, data []model.SectionData, logger *slog.Logger) {
	db, err := database.Open(dir, database.DefaultOptions())
	if err != nil {
		logger.Warn("failed to open history database", "dir", dir, "error", err)
		return
	}
	defer db.Close()

	id, err := db.SaveReport(ctx, doc, data)
	if err != nil {
		logger.Warn("failed to save report history", "error", err)
		return
	}
	logger.Debug("report saved to history", "id", id, "path", db.Path())
}

// printSummary prints where the report went and how its sections fared.
func printSummary(cmd *cobra.Command, doc *model.ReportDocument, path string) {
	w := cmd.OutOrStdout()
	usage := doc.TotalUsage()

	fmt.Fprintf(w, "Report written to %s\n", path)
	fmt.Fprintf(w, "Sections: %d generated, %d without data, %d failed\n",
		doc.CountByStatus(model.StatusOK),
		doc.CountByStatus(model.StatusNoData),
		doc.CountByStatus(model.StatusGenerationFailed),
	)
	fmt.Fprintf(w, "Tokens: %d in, %d out\n", usage.InputTokens, usage.OutputTokens)
	if sc := doc.Scorecard; sc != nil {
		fmt.Fprintf(w, "Scorecard: %.2f / %.0f marks, rank %d of %d\n", sc.Marks, sc.MaxMarks, sc.Rank, sc.TotalDistricts)
	}
}

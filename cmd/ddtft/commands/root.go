// Package commands implements the ddtft command line tool.
package commands

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"ddtft/internal/cache/noop"
	"ddtft/internal/config"
	"ddtft/internal/observability"
	"ddtft/internal/pipeline"
	"ddtft/internal/port"
	"ddtft/internal/service"
	pdfsource "ddtft/internal/textsource/pdf"
	"ddtft/internal/validator"
)

type rootOptions struct {
	profile     string
	timeout     time.Duration
	concurrency int
	logLevel    string
}

type app struct {
	cfg    *config.Config
	log    zerolog.Logger
	svc    service.ExtractionService
	source port.TextSource
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "ddtft",
		Short: "Field extraction for Italian delivery notes, invoices and credit notes",
		Long: `ddtft extracts header fields, addresses, line items and totals from the text
of DDT delivery notes, FT invoices and NC credit notes. PDF files are read
directly; any other file is treated as pre-extracted text.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&opts.profile, "profile", "", "grammar profile YAML (overrides DDTFT_EXTRACTION_PROFILE_PATH)")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 0, "per-document time budget (0 keeps the configured value)")
	root.PersistentFlags().IntVar(&opts.concurrency, "concurrency", 0, "parallel documents in batch mode (0 keeps the configured value)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level written to stderr")

	root.AddCommand(newExtractCmd(opts), newBatchCmd(opts), newTokenCmd())
	return root
}

// newApp wires an in-memory extraction service: nothing is persisted,
// archived or cached.
func newApp(opts *rootOptions) (*app, error) {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if opts.profile != "" {
		cfg.Extraction.ProfilePath = opts.profile
	}
	if opts.timeout > 0 {
		cfg.Extraction.Timeout = opts.timeout
	}
	if opts.concurrency > 0 {
		cfg.Batch.Concurrency = opts.concurrency
	}

	log := observability.NewLogger(observability.LogConfig{
		Level:       opts.logLevel,
		Format:      "console",
		Output:      os.Stderr,
		ServiceName: "ddtft",
	})

	engineOpts, err := cfg.EngineOptions()
	if err != nil {
		return nil, err
	}
	engineOpts.Logger = log

	source := pdfsource.NewSource(pdfsource.DefaultOptions(), log)
	svc := service.NewExtractionService(service.ExtractionDeps{
		Engine: pipeline.New(engineOpts),
		Validator: validator.NewEngine(
			validator.NewDefaultRegistry(validator.RuleOptions{ToleranceRatio: decimal.NewFromFloat(cfg.Extraction.ToleranceRatio)}),
			log,
		),
		Cache:      noop.NewResultCache(),
		TextSource: source,
		Logger:     log,
	}, service.ExtractionServiceConfig{
		Timeout:   cfg.Extraction.Timeout,
		SheetName: cfg.Export.SheetName,
	})

	return &app{cfg: cfg, log: log, svc: svc, source: source}, nil
}

// Package pipeline orchestrates one extraction run: document-type detection,
// per-field strategy chains, address reconstruction, line items and totals.
// An Engine holds no mutable state and may be shared across goroutines.
package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"ddtft/internal/domain"
	"ddtft/internal/grammar"
	"ddtft/internal/layout"
	"ddtft/internal/lineitem"
	"ddtft/internal/locator"
	"ddtft/internal/totals"
)

// Options configures an Engine.
type Options struct {
	Logger    zerolog.Logger
	Profile   *grammar.Profile
	Layout    layout.Options
	LineItems lineitem.Options
	Totals    totals.Options
	// Timeout is the per-document budget applied by ExtractBatch. Zero disables it.
	Timeout time.Duration
	// Concurrency bounds ExtractBatch. Zero or less means 1.
	Concurrency int
}

// DefaultOptions returns the built-in profile and thresholds with a no-op logger.
func DefaultOptions() Options {
	return Options{
		Logger:      zerolog.Nop(),
		Profile:     grammar.DefaultProfile(),
		Layout:      layout.DefaultOptions(),
		LineItems:   lineitem.DefaultOptions(),
		Totals:      totals.DefaultOptions(),
		Timeout:     10 * time.Second,
		Concurrency: 4,
	}
}

// Engine extracts Documents from raw text.
type Engine struct {
	opts    Options
	log     zerolog.Logger
	profile *grammar.Profile
	locator *locator.Locator
	items   *lineitem.Parser
	totals  *totals.Reconciler
}

// New creates an Engine. A zero Layout selects layout.DefaultOptions.
func New(opts Options) *Engine {
	if opts.Profile == nil {
		opts.Profile = grammar.DefaultProfile()
	}
	if opts.Layout == (layout.Options{}) {
		opts.Layout = layout.DefaultOptions()
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	rec := layout.New(opts.Layout)
	return &Engine{
		opts:    opts,
		log:     opts.Logger,
		profile: opts.Profile,
		locator: locator.New(opts.Profile, rec),
		items:   lineitem.New(opts.Profile, opts.LineItems),
		totals:  totals.New(opts.Profile, opts.Totals),
	}
}

// Input is one document to extract. Hints, when present, run parallel to the
// lines of Text.
type Input struct {
	Text     string
	Hints    [][]layout.Fragment
	FileName string
}

// Extract runs the pipeline without a deadline.
func (e *Engine) Extract(text string, hints [][]layout.Fragment, fileName string) (*domain.Document, []domain.Diagnostic, error) {
	return e.ExtractContext(context.Background(), Input{Text: text, Hints: hints, FileName: fileName})
}

// ExtractContext runs the pipeline. The context is checked between stages; an
// expired or cancelled context aborts with ErrExtractionTimeout and no
// partial document. Recoverable problems are returned as diagnostics.
func (e *Engine) ExtractContext(ctx context.Context, in Input) (*domain.Document, []domain.Diagnostic, error) {
	started := time.Now()
	if strings.TrimSpace(in.Text) == "" {
		return nil, nil, NewExtractionError(domain.ErrEmptyInput, "input", nil)
	}
	if err := checkContext(ctx, "detect"); err != nil {
		return nil, nil, err
	}

	lines := splitLines(in.Text)
	det, err := DetectType(lines, in.FileName)
	if err != nil {
		e.log.Debug().Err(err).Str("file", in.FileName).Msg("pipeline.Engine: type detection failed")
		return nil, nil, err
	}

	log := e.log.With().Str("file", in.FileName).Str("document_type", string(det.Type)).Logger()
	r := &run{
		e:        e,
		log:      log,
		text:     strings.Join(lines, "\n"),
		lines:    lines,
		hints:    in.Hints,
		fileName: in.FileName,
		doc: &domain.Document{
			Type:       det.Type,
			Provenance: map[string]domain.FieldProvenance{},
		},
	}
	r.doc.Provenance[FieldDocumentType] = detectionProvenance(det)

	stages := []struct {
		name string
		fn   func()
	}{
		{"header", r.header},
		{"addresses", r.addresses},
		{"line_items", r.lineItems},
		{"totals", r.reconcile},
	}
	for _, st := range stages {
		if err := checkContext(ctx, st.name); err != nil {
			log.Debug().Err(err).Str("stage", st.name).Msg("pipeline.Engine: aborted")
			return nil, nil, err
		}
		t0 := time.Now()
		st.fn()
		log.Debug().Str("stage", st.name).Dur("elapsed", time.Since(t0)).Msg("pipeline.Engine: stage done")
	}

	for _, d := range r.diags {
		log.Debug().
			Str("kind", string(d.Kind)).
			Str("field", d.Field).
			Str("strategy", d.Strategy).
			Msg(d.Message)
	}
	log.Debug().
		Int("line_items", len(r.doc.LineItems)).
		Int("diagnostics", len(r.diags)).
		Int("overrides", len(r.doc.Overrides)).
		Dur("elapsed", time.Since(started)).
		Msg("pipeline.Engine: extraction complete")

	return r.doc, r.diags, nil
}

func detectionProvenance(det Detection) domain.FieldProvenance {
	name := "detect.text_evidence"
	conf := 0.9
	if det.TieBrokenByFileName {
		name = "detect.file_name_tiebreak"
		conf = 0.6
	}
	return domain.FieldProvenance{Strategy: name, Confidence: conf, AgreedBy: det.Evidence}
}

func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.Split(strings.ReplaceAll(text, "\r", "\n"), "\n")
}

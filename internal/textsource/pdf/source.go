// Package pdf turns PDF pages into text lines with per-word X positions.
package pdf

import (
	"context"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/rs/zerolog"

	"ddtft/internal/layout"
	"ddtft/internal/port"
)

// Options tunes line assembly.
type Options struct {
	// YTolerance groups glyphs whose baselines differ by less than this into one row.
	YTolerance float64
	// WordGapRatio is the gap, as a fraction of font size, that starts a new word.
	WordGapRatio float64
}

// DefaultOptions returns a 2pt row tolerance and a 0.2 em word gap.
func DefaultOptions() Options {
	return Options{YTolerance: 2.0, WordGapRatio: 0.2}
}

type source struct {
	opts Options
	log  zerolog.Logger
}

// NewSource creates a PDF TextSource.
func NewSource(opts Options, log zerolog.Logger) port.TextSource {
	def := DefaultOptions()
	if opts.YTolerance <= 0 {
		opts.YTolerance = def.YTolerance
	}
	if opts.WordGapRatio <= 0 {
		opts.WordGapRatio = def.WordGapRatio
	}
	return &source{opts: opts, log: log}
}

func (s *source) ExtractText(ctx context.Context, r io.ReaderAt, size int64) (out *port.SourceText, err error) {
	// The PDF reader panics on some malformed inputs.
	defer func() {
		if rec := recover(); rec != nil {
			out, err = nil, fmt.Errorf("pdf.ExtractText: malformed document: %v", rec)
		}
	}()

	reader, err := pdf.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("pdf.ExtractText: %w", err)
	}

	out = &port.SourceText{}
	var lines []string
	for i := 1; i <= reader.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageLines, hints := BuildLines(page.Content().Text, s.opts)
		lines = append(lines, pageLines...)
		out.Hints = append(out.Hints, hints...)
		s.log.Debug().Int("page", i).Int("lines", len(pageLines)).Msg("pdf.ExtractText: page assembled")
	}
	out.Text = strings.Join(lines, "\n")
	return out, nil
}

type glyph struct {
	x, w, size float64
	s          string
}

type row struct {
	y      float64
	glyphs []glyph
}

// BuildLines groups glyphs into rows top to bottom, then into words left to
// right. It returns one text line and one fragment list per row.
func BuildLines(texts []pdf.Text, opts Options) ([]string, [][]layout.Fragment) {
	var rows []row
	for _, t := range texts {
		if t.S == "" {
			continue
		}
		g := glyph{x: t.X, w: t.W, size: t.FontSize, s: t.S}
		placed := false
		for i := range rows {
			if math.Abs(rows[i].y-t.Y) < opts.YTolerance {
				rows[i].glyphs = append(rows[i].glyphs, g)
				placed = true
				break
			}
		}
		if !placed {
			rows = append(rows, row{y: t.Y, glyphs: []glyph{g}})
		}
	}

	// PDF Y grows upwards.
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].y > rows[j].y })

	lines := make([]string, 0, len(rows))
	hints := make([][]layout.Fragment, 0, len(rows))
	for _, r := range rows {
		frags := words(r.glyphs, opts.WordGapRatio)
		if len(frags) == 0 {
			continue
		}
		parts := make([]string, len(frags))
		for i, f := range frags {
			parts[i] = f.Text
		}
		lines = append(lines, strings.Join(parts, " "))
		hints = append(hints, frags)
	}
	return lines, hints
}

func words(glyphs []glyph, gapRatio float64) []layout.Fragment {
	sort.SliceStable(glyphs, func(i, j int) bool { return glyphs[i].x < glyphs[j].x })

	var out []layout.Fragment
	var cur strings.Builder
	var start, end float64
	flush := func() {
		if text := strings.TrimSpace(cur.String()); text != "" {
			out = append(out, layout.Fragment{X: start, Text: text})
		}
		cur.Reset()
	}

	for _, g := range glyphs {
		if strings.TrimSpace(g.s) == "" {
			flush()
			continue
		}
		gap := g.x - end
		if cur.Len() > 0 && gap > math.Max(g.size*gapRatio, 0.5) {
			flush()
		}
		if cur.Len() == 0 {
			start = g.x
		}
		cur.WriteString(g.s)
		end = g.x + g.w
	}
	flush()
	return out
}

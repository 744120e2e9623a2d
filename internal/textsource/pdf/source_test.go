package pdf_test

import (
	"bytes"
	"context"
	"testing"

	ledongthuc "github.com/ledongthuc/pdf"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ddtft/internal/layout"
	"ddtft/internal/textsource/pdf"
)

// word lays out s as 6pt-wide glyphs starting at x.
func word(s string, x, y float64) []ledongthuc.Text {
	out := make([]ledongthuc.Text, 0, len(s))
	for i, r := range s {
		out = append(out, ledongthuc.Text{S: string(r), X: x + float64(i)*6, Y: y, W: 6, FontSize: 10})
	}
	return out
}

func concat(parts ...[]ledongthuc.Text) []ledongthuc.Text {
	var out []ledongthuc.Text
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func TestBuildLines(t *testing.T) {
	texts := concat(
		// second row first in stream order
		word("12038", 300, 700.5),
		word("CUNEO", 40, 701),
		word("DONAC", 40, 720),
		word("DONAC", 300, 719),
	)

	lines, hints := pdf.BuildLines(texts, pdf.DefaultOptions())
	require.Len(t, lines, 2)
	assert.Equal(t, "DONAC DONAC", lines[0])
	assert.Equal(t, "CUNEO 12038", lines[1])

	require.Len(t, hints, 2)
	assert.Equal(t, []layout.Fragment{{X: 40, Text: "CUNEO"}, {X: 300, Text: "12038"}}, hints[1])
}

func TestBuildLines_SpaceGlyphSplitsWords(t *testing.T) {
	texts := concat(
		word("VIA", 40, 500),
		[]ledongthuc.Text{{S: " ", X: 58, Y: 500, W: 3, FontSize: 10}},
		word("ROMA", 61, 500),
	)
	lines, hints := pdf.BuildLines(texts, pdf.DefaultOptions())
	require.Len(t, lines, 1)
	assert.Equal(t, "VIA ROMA", lines[0])
	assert.Equal(t, 61.0, hints[0][1].X)
}

func TestBuildLines_Empty(t *testing.T) {
	lines, hints := pdf.BuildLines(nil, pdf.DefaultOptions())
	assert.Empty(t, lines)
	assert.Empty(t, hints)
}

func TestExtractText_NotAPDF(t *testing.T) {
	src := pdf.NewSource(pdf.Options{}, zerolog.Nop())
	data := []byte("DOCUMENTO DI TRASPORTO")
	_, err := src.ExtractText(context.Background(), bytes.NewReader(data), int64(len(data)))
	assert.Error(t, err)
}

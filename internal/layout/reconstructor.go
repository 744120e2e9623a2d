// Package layout reconstructs two side-by-side columns that the text
// extractor flattened into a single line.
package layout

import (
	"fmt"
	"regexp"
	"strings"

	"ddtft/internal/domain"
)

// Fragment is a piece of a line with its horizontal position on the page.
type Fragment struct {
	X    float64 `json:"x"`
	Text string  `json:"text"`
}

// Method names the strategy that produced a split.
type Method string

const (
	MethodPosition        Method = "position"
	MethodDuplicate       Method = "duplicate_text"
	MethodRepeatedKeyword Method = "repeated_keyword"
	MethodRepeatedCAP     Method = "repeated_cap"
	MethodSeparator       Method = "separator"
	MethodWideGap         Method = "wide_gap"
)

// Split is a line divided into its left and right column.
type Split struct {
	Left   string `json:"left"`
	Right  string `json:"right"`
	Method Method `json:"method"`
}

// Options configures the reconstructor.
type Options struct {
	// ColumnBoundary is the X coordinate separating the columns. Zero selects
	// the boundary automatically at the widest gap between fragments.
	ColumnBoundary float64
	// MinColumnGap is the smallest fragment gap accepted as a column boundary
	// when ColumnBoundary is zero.
	MinColumnGap float64
	// Separator is a literal column separator. Empty disables the strategy.
	Separator string
	// MinGapSpaces is the shortest run of spaces treated as a column gap.
	MinGapSpaces int
}

// DefaultOptions returns the options used for the issuer's print layout.
func DefaultOptions() Options {
	return Options{
		ColumnBoundary: 265,
		MinColumnGap:   100,
		Separator:      "|",
		MinGapSpaces:   3,
	}
}

// outcome of a single strategy: a split, nothing, or an ambiguity note.
type outcome struct {
	split     *Split
	ambiguous string
}

type strategy func(r *Reconstructor, line string, hints []Fragment) outcome

// Reconstructor splits dual-column lines. It is immutable after New and safe
// for concurrent use.
type Reconstructor struct {
	opts       Options
	gapRe      *regexp.Regexp
	strategies []strategy
}

// New creates a Reconstructor. Non-positive numeric options fall back to the defaults.
func New(opts Options) *Reconstructor {
	def := DefaultOptions()
	if opts.MinColumnGap <= 0 {
		opts.MinColumnGap = def.MinColumnGap
	}
	if opts.MinGapSpaces <= 0 {
		opts.MinGapSpaces = def.MinGapSpaces
	}
	return &Reconstructor{
		opts:  opts,
		gapRe: regexp.MustCompile(fmt.Sprintf(` {%d,}`, opts.MinGapSpaces)),
		strategies: []strategy{
			(*Reconstructor).splitByPosition,
			(*Reconstructor).splitByDuplicate,
			(*Reconstructor).splitByRepeatedKeyword,
			(*Reconstructor).splitByRepeatedCAP,
			(*Reconstructor).splitBySeparator,
			(*Reconstructor).splitByWideGap,
		},
	}
}

// Split tries each strategy in priority order and returns the first split with
// two non-empty segments. It returns (nil, nil) for a single-column line and
// (nil, err) wrapping domain.ErrLayoutAmbiguous when a strategy found
// competing split points and no later strategy resolved the line. Callers must
// treat both cases as single-column.
func (r *Reconstructor) Split(line string, hints []Fragment) (*Split, error) {
	var ambiguity []string
	for _, s := range r.strategies {
		out := s(r, line, hints)
		if out.split != nil {
			return out.split, nil
		}
		if out.ambiguous != "" {
			ambiguity = append(ambiguity, out.ambiguous)
		}
	}
	if len(ambiguity) > 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrLayoutAmbiguous, strings.Join(ambiguity, "; "))
	}
	return nil, nil
}

// normalize collapses whitespace runs so that segments are canonical.
func normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func newSplit(left, right string, m Method) *Split {
	left, right = normalize(left), normalize(right)
	if left == "" || right == "" {
		return nil
	}
	return &Split{Left: left, Right: right, Method: m}
}

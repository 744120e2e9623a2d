package layout

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"ddtft/internal/grammar"
)

var tokenRe = regexp.MustCompile(`\S+`)

func (r *Reconstructor) splitByPosition(_ string, hints []Fragment) outcome {
	if len(hints) < 2 {
		return outcome{}
	}
	frags := make([]Fragment, len(hints))
	copy(frags, hints)
	sort.SliceStable(frags, func(i, j int) bool { return frags[i].X < frags[j].X })

	boundary := r.opts.ColumnBoundary
	if boundary <= 0 {
		widest, at := 0.0, -1
		for i := 1; i < len(frags); i++ {
			if gap := frags[i].X - frags[i-1].X; gap > widest {
				widest, at = gap, i
			}
		}
		if at < 0 || widest < r.opts.MinColumnGap {
			return outcome{}
		}
		boundary = frags[at].X
	}

	var left, right []string
	for _, f := range frags {
		if f.X < boundary {
			left = append(left, f.Text)
		} else {
			right = append(right, f.Text)
		}
	}
	return outcome{split: newSplit(strings.Join(left, " "), strings.Join(right, " "), MethodPosition)}
}

func (r *Reconstructor) splitByDuplicate(line string, _ []Fragment) outcome {
	fields := strings.Fields(line)
	n := len(fields)
	if n < 2 || n%2 != 0 {
		return outcome{}
	}
	for i := 0; i < n/2; i++ {
		if fields[i] != fields[n/2+i] {
			return outcome{}
		}
	}
	half := strings.Join(fields[:n/2], " ")
	return outcome{split: newSplit(half, half, MethodDuplicate)}
}

func (r *Reconstructor) splitByRepeatedKeyword(line string, _ []Fragment) outcome {
	locs := tokenRe.FindAllStringIndex(line, -1)
	last := map[string]int{}
	count := map[string]int{}
	for _, loc := range locs {
		tok := strings.ToUpper(line[loc[0]:loc[1]])
		if !grammar.IsStreetKeyword(tok) {
			continue
		}
		tok = strings.TrimSuffix(tok, ",")
		count[tok]++
		last[tok] = loc[0]
	}

	at := -1
	for kw, c := range count {
		if c >= 2 && last[kw] > at {
			at = last[kw]
		}
	}
	if at <= 0 {
		return outcome{}
	}
	return outcome{split: newSplit(line[:at], line[at:], MethodRepeatedKeyword)}
}

func (r *Reconstructor) splitByRepeatedCAP(line string, _ []Fragment) outcome {
	locs := tokenRe.FindAllStringIndex(line, -1)
	var caps []int
	for _, loc := range locs {
		if grammar.IsCAPToken(strings.TrimSuffix(line[loc[0]:loc[1]], ",")) {
			caps = append(caps, loc[0])
		}
	}
	if len(caps) < 2 {
		return outcome{}
	}
	at := caps[len(caps)-1]
	return outcome{split: newSplit(line[:at], line[at:], MethodRepeatedCAP)}
}

func (r *Reconstructor) splitBySeparator(line string, _ []Fragment) outcome {
	sep := r.opts.Separator
	if sep == "" {
		return outcome{}
	}
	switch strings.Count(line, sep) {
	case 0:
		return outcome{}
	case 1:
		left, right, _ := strings.Cut(line, sep)
		return outcome{split: newSplit(left, right, MethodSeparator)}
	default:
		return outcome{ambiguous: fmt.Sprintf("separator %q occurs %d times", sep, strings.Count(line, sep))}
	}
}

func (r *Reconstructor) splitByWideGap(line string, _ []Fragment) outcome {
	line = strings.TrimSpace(strings.ReplaceAll(line, "\t", strings.Repeat(" ", r.opts.MinGapSpaces)))
	runs := r.gapRe.FindAllStringIndex(line, -1)
	if len(runs) == 0 {
		return outcome{}
	}

	widest, at, ties := 0, -1, 0
	for i, run := range runs {
		w := run[1] - run[0]
		switch {
		case w > widest:
			widest, at, ties = w, i, 1
		case w == widest:
			ties++
		}
	}
	if ties > 1 {
		return outcome{ambiguous: fmt.Sprintf("%d gaps of %d spaces", ties, widest)}
	}
	run := runs[at]
	return outcome{split: newSplit(line[:run[0]], line[run[1]:], MethodWideGap)}
}

package port

import (
	"context"
	"io"

	"ddtft/internal/layout"
)

// SourceText is extractor output: the text lines plus, per line, the
// positioned fragments the line was assembled from.
type SourceText struct {
	Text  string
	Hints [][]layout.Fragment
}

// TextSource turns a binary document into text.
type TextSource interface {
	ExtractText(ctx context.Context, r io.ReaderAt, size int64) (*SourceText, error)
}

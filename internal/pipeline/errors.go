package pipeline

import (
	"context"
	"fmt"

	"ddtft/internal/domain"
)

// ExtractionError is a fatal failure of a single document. Kind is one of the
// domain sentinels (unsupported format, timeout, empty input) so callers can
// match it with errors.Is; Err carries the underlying cause when there is one.
type ExtractionError struct {
	Kind     error
	Stage    string
	Field    string
	Strategy string
	Err      error
}

func (e *ExtractionError) Error() string {
	msg := fmt.Sprintf("extraction failed at %s: %v", e.Stage, e.Kind)
	if e.Field != "" {
		msg += " (field " + e.Field + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ExtractionError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// NewExtractionError creates an ExtractionError for the given stage.
func NewExtractionError(kind error, stage string, err error) *ExtractionError {
	return &ExtractionError{Kind: kind, Stage: stage, Err: err}
}

// checkContext converts a cancelled or expired context into an
// ExtractionTimeout error.
func checkContext(ctx context.Context, stage string) error {
	if err := ctx.Err(); err != nil {
		return NewExtractionError(domain.ErrExtractionTimeout, stage, err)
	}
	return nil
}

package validator

import (
	"context"

	"ddtft/internal/domain"
)

// Result is the outcome of one rule against one field path.
type Result struct {
	Passed        bool
	FieldPath     string
	ExpectedValue string
	ActualValue   string
	Message       string
}

// Validator is the interface for a single built-in validation rule.
type Validator interface {
	Validate(ctx context.Context, doc *domain.Document) []Result
	RuleKey() string
	RuleName() string
	Severity() domain.ValidationSeverity
}

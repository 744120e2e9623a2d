package validator

import (
	"context"

	"github.com/rs/zerolog"

	"ddtft/internal/domain"
)

// ResultEntry is a single validation result as stored alongside an extraction.
type ResultEntry struct {
	RuleKey       string                    `json:"rule_key"`
	RuleName      string                    `json:"rule_name"`
	Severity      domain.ValidationSeverity `json:"severity"`
	Passed        bool                      `json:"passed"`
	FieldPath     string                    `json:"field_path"`
	ExpectedValue string                    `json:"expected_value,omitempty"`
	ActualValue   string                    `json:"actual_value,omitempty"`
	Message       string                    `json:"message"`
}

// Summary holds aggregate counts of validation results.
type Summary struct {
	Total    int `json:"total"`
	Passed   int `json:"passed"`
	Errors   int `json:"errors"`
	Warnings int `json:"warnings"`
}

// Report is the validation outcome for one document.
type Report struct {
	Status        domain.ValidationStatus `json:"status"`
	Summary       Summary                 `json:"summary"`
	Results       []ResultEntry           `json:"results"`
	FieldStatuses map[string]*FieldStatus `json:"field_statuses"`
}

// Engine runs the registered rules over finished documents.
type Engine struct {
	registry *Registry
	log      zerolog.Logger
}

// NewEngine creates a new validation engine.
func NewEngine(registry *Registry, log zerolog.Logger) *Engine {
	return &Engine{registry: registry, log: log}
}

// ValidateDocument runs every registered rule against doc. The report never
// alters the document or its diagnostics.
func (e *Engine) ValidateDocument(ctx context.Context, doc *domain.Document) *Report {
	results := make([]ResultEntry, 0)
	hasError := false
	hasWarning := false

	for _, v := range e.registry.All() {
		for _, vr := range v.Validate(ctx, doc) {
			results = append(results, ResultEntry{
				RuleKey:       v.RuleKey(),
				RuleName:      v.RuleName(),
				Severity:      v.Severity(),
				Passed:        vr.Passed,
				FieldPath:     vr.FieldPath,
				ExpectedValue: vr.ExpectedValue,
				ActualValue:   vr.ActualValue,
				Message:       vr.Message,
			})
			if !vr.Passed {
				if v.Severity() == domain.ValidationSeverityError {
					hasError = true
				} else {
					hasWarning = true
				}
			}
		}
	}

	var status domain.ValidationStatus
	switch {
	case hasError:
		status = domain.ValidationStatusInvalid
	case hasWarning:
		status = domain.ValidationStatusWarning
	default:
		status = domain.ValidationStatusValid
	}

	report := &Report{
		Status:        status,
		Summary:       summarize(results),
		Results:       results,
		FieldStatuses: ComputeFieldStatuses(results, confidenceMap(doc)),
	}
	e.log.Debug().
		Str("type", string(doc.Type)).
		Str("number", doc.Number).
		Str("status", string(status)).
		Int("results", len(results)).
		Msg("validator.Engine: document validated")
	return report
}

func summarize(results []ResultEntry) Summary {
	s := Summary{Total: len(results)}
	for _, r := range results {
		switch {
		case r.Passed:
			s.Passed++
		case r.Severity == domain.ValidationSeverityError:
			s.Errors++
		default:
			s.Warnings++
		}
	}
	return s
}

// confidenceMap flattens the header provenance and address confidences into
// field path → confidence.
func confidenceMap(doc *domain.Document) map[string]float64 {
	out := make(map[string]float64, len(doc.Provenance)+2)
	for field, p := range doc.Provenance {
		out[field] = p.Confidence
	}
	if doc.DeliveryAddress != nil {
		out["delivery_address"] = doc.DeliveryAddress.Confidence
	}
	if doc.BillingAddress != nil {
		out["billing_address"] = doc.BillingAddress.Confidence
	}
	return out
}

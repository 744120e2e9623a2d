package validator

import (
	"ddtft/internal/domain"
)

// unsureConfidence is the confidence at or below which an unvalidated field is flagged.
const unsureConfidence = 0.5

// FieldStatus represents the computed validation state for a single field path.
type FieldStatus struct {
	Status   domain.FieldValidationStatus `json:"status"`
	Messages []string                     `json:"messages"`
}

// ComputeFieldStatuses derives per-field validation statuses from results and confidence scores.
// confidenceMap maps field paths (e.g. "vat_id") to confidence values.
func ComputeFieldStatuses(results []ResultEntry, confidenceMap map[string]float64) map[string]*FieldStatus {
	statuses := make(map[string]*FieldStatus)

	for _, r := range results {
		fs, ok := statuses[r.FieldPath]
		if !ok {
			fs = &FieldStatus{Status: domain.FieldStatusValid, Messages: []string{}}
			statuses[r.FieldPath] = fs
		}
		if r.Passed {
			continue
		}
		if r.Severity == domain.ValidationSeverityError {
			fs.Status = domain.FieldStatusInvalid
		} else if fs.Status != domain.FieldStatusInvalid {
			fs.Status = domain.FieldStatusUnsure
		}
		fs.Messages = append(fs.Messages, r.Message)
	}

	// Fields without rule results take their status from confidence alone.
	for fieldPath, confidence := range confidenceMap {
		if _, exists := statuses[fieldPath]; exists {
			continue
		}
		status := domain.FieldStatusValid
		if confidence <= unsureConfidence {
			status = domain.FieldStatusUnsure
		}
		statuses[fieldPath] = &FieldStatus{Status: status, Messages: []string{}}
	}

	return statuses
}

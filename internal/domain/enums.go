package domain

// DocumentType identifies which of the three supported trade documents a text belongs to.
type DocumentType string

const (
	DocumentTypeDDT DocumentType = "DDT" // delivery note (documento di trasporto)
	DocumentTypeFT  DocumentType = "FT"  // invoice
	DocumentTypeNC  DocumentType = "NC"  // credit note
)

// ValidDocumentTypes is the set of document types the engine can extract.
var ValidDocumentTypes = map[DocumentType]bool{
	DocumentTypeDDT: true,
	DocumentTypeFT:  true,
	DocumentTypeNC:  true,
}

// Provenance records how a totals field obtained its final value.
type Provenance string

const (
	ProvenanceExtractedVerbatim Provenance = "extracted-verbatim"
	ProvenanceRecomputed        Provenance = "recomputed"
	ProvenanceUnresolved        Provenance = "unresolved"
)

// DiagnosticKind is the recoverable part of the error taxonomy. Fatal kinds
// (unsupported format, timeout) surface as errors instead.
type DiagnosticKind string

const (
	DiagnosticLayoutAmbiguous    DiagnosticKind = "LayoutAmbiguous"
	DiagnosticPatternNotFound    DiagnosticKind = "PatternNotFound"
	DiagnosticValidationMismatch DiagnosticKind = "ValidationMismatch"
)

// AddressMethod names the locator strategy that produced an address block.
type AddressMethod string

const (
	AddressMethodHeaderConfirmed AddressMethod = "header_columns_confirmed"
	AddressMethodHeaderColumns   AddressMethod = "header_columns"
	AddressMethodDualColumn      AddressMethod = "dual_column"
	AddressMethodMarker          AddressMethod = "marker"
	// AddressMethodBillingFallback reuses a single-column billing block as the
	// delivery address when no distinct delivery block exists.
	AddressMethodBillingFallback AddressMethod = "billing_fallback"
)

// AddressConfidence is the base confidence assigned to each address method.
var AddressConfidence = map[AddressMethod]float64{
	AddressMethodHeaderConfirmed: 0.95,
	AddressMethodHeaderColumns:   0.90,
	AddressMethodDualColumn:      0.85,
	AddressMethodMarker:          0.80,
	AddressMethodBillingFallback: 0.50,
}

// ValidationStatus is the aggregate outcome of the document validation rules.
type ValidationStatus string

const (
	ValidationStatusValid   ValidationStatus = "valid"
	ValidationStatusWarning ValidationStatus = "warning"
	ValidationStatusInvalid ValidationStatus = "invalid"
)

// ExportFormat is a supported export encoding.
type ExportFormat string

const (
	ExportFormatCSV  ExportFormat = "csv"
	ExportFormatXLSX ExportFormat = "xlsx"
)

// ValidExportFormats is the set of accepted export formats.
var ValidExportFormats = map[ExportFormat]bool{
	ExportFormatCSV:  true,
	ExportFormatXLSX: true,
}

// ValidationSeverity is how much a failed validation rule weighs on the status.
type ValidationSeverity string

const (
	ValidationSeverityError   ValidationSeverity = "error"
	ValidationSeverityWarning ValidationSeverity = "warning"
)

// FieldValidationStatus is the per-field verdict shown next to an extracted value.
type FieldValidationStatus string

const (
	FieldStatusValid   FieldValidationStatus = "valid"
	FieldStatusInvalid FieldValidationStatus = "invalid"
	FieldStatusUnsure  FieldValidationStatus = "unsure"
)

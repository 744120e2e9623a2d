package handler

import (
	"ddtft/internal/layout"
)

// Swagger type definitions for API documentation.
// These types are used by swag to generate OpenAPI documentation.

// --- Request Types ---

// ExtractRequest is the body of POST /extractions.
type ExtractRequest struct {
	Text     string `json:"text" binding:"required" example:"DOCUMENTO DI TRASPORTO\n4521  19/05/25  1  20322"`
	FileName string `json:"file_name" example:"DDV_4521_19052025.pdf"`
	// Hints run parallel to the lines of Text.
	Hints [][]layout.Fragment `json:"hints,omitempty"`
}

// BatchRequest is the body of POST /extractions/batch.
type BatchRequest struct {
	Documents []ExtractRequest `json:"documents" binding:"required,min=1"`
}

// --- Response Types ---

// BatchItem is one entry of a batch response, in request order.
type BatchItem struct {
	Index    int         `json:"index" example:"0"`
	FileName string      `json:"file_name" example:"DDV_4521_19052025.pdf"`
	Result   interface{} `json:"result,omitempty"`
	Error    *APIError   `json:"error,omitempty"`
}

// BatchResponse summarises a batch run.
type BatchResponse struct {
	Items     []BatchItem `json:"items"`
	Succeeded int         `json:"succeeded" example:"9"`
	Failed    int         `json:"failed" example:"1"`
}

// SourceURLResponse carries a presigned download link.
type SourceURLResponse struct {
	URL string `json:"url" example:"https://bucket.s3.eu-south-1.amazonaws.com/sources/2025/05/..."`
}

// Response wraps a successful response.
type Response struct {
	Success bool        `json:"success" example:"true"`
	Data    interface{} `json:"data,omitempty"`
	Meta    *PagMeta    `json:"meta,omitempty"`
}

// ErrorResponseBody wraps an error response.
type ErrorResponseBody struct {
	Success bool      `json:"success" example:"false"`
	Error   *APIError `json:"error"`
}

// Package docs registers the OpenAPI description of the HTTP API with swag.
// Regenerate with: swag init -g cmd/server/main.go
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/extractions": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["extractions"],
                "summary": "List extractions",
                "parameters": [
                    {"type": "integer", "default": 0, "description": "Offset for pagination", "name": "offset", "in": "query"},
                    {"type": "integer", "default": 20, "description": "Limit for pagination (max 100)", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "List of extractions", "schema": {"$ref": "#/definitions/handler.Response"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handler.ErrorResponseBody"}}
                }
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["extractions"],
                "summary": "Extract a document from text",
                "parameters": [
                    {"description": "Document text", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.ExtractRequest"}}
                ],
                "responses": {
                    "200": {"description": "Previously extracted", "schema": {"$ref": "#/definitions/handler.Response"}},
                    "201": {"description": "Extracted", "schema": {"$ref": "#/definitions/handler.Response"}},
                    "400": {"description": "Invalid request or empty text", "schema": {"$ref": "#/definitions/handler.ErrorResponseBody"}},
                    "422": {"description": "Document type cannot be determined", "schema": {"$ref": "#/definitions/handler.ErrorResponseBody"}},
                    "504": {"description": "Extraction timed out", "schema": {"$ref": "#/definitions/handler.ErrorResponseBody"}}
                }
            }
        },
        "/extractions/upload": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["extractions"],
                "summary": "Extract an uploaded document",
                "parameters": [
                    {"type": "file", "description": "PDF or TXT document", "name": "file", "in": "formData", "required": true}
                ],
                "responses": {
                    "201": {"description": "Extracted", "schema": {"$ref": "#/definitions/handler.Response"}},
                    "400": {"description": "Missing file or unsupported type", "schema": {"$ref": "#/definitions/handler.ErrorResponseBody"}},
                    "413": {"description": "File too large", "schema": {"$ref": "#/definitions/handler.ErrorResponseBody"}}
                }
            }
        },
        "/extractions/batch": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["extractions"],
                "summary": "Extract a batch of documents",
                "parameters": [
                    {"description": "Documents", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.BatchRequest"}}
                ],
                "responses": {
                    "200": {"description": "Per-document outcomes in request order", "schema": {"$ref": "#/definitions/handler.Response"}},
                    "400": {"description": "Invalid request", "schema": {"$ref": "#/definitions/handler.ErrorResponseBody"}}
                }
            }
        },
        "/extractions/export": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["text/csv", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"],
                "tags": ["extractions"],
                "summary": "Export extractions as a spreadsheet",
                "parameters": [
                    {"type": "string", "default": "csv", "description": "csv or xlsx", "name": "format", "in": "query"},
                    {"type": "string", "description": "Comma separated extraction IDs", "name": "ids", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "Spreadsheet", "schema": {"type": "file"}},
                    "400": {"description": "Invalid format or ID", "schema": {"$ref": "#/definitions/handler.ErrorResponseBody"}}
                }
            }
        },
        "/extractions/{id}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["extractions"],
                "summary": "Get extraction by ID",
                "parameters": [
                    {"type": "string", "description": "Extraction ID (UUID)", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "Extraction", "schema": {"$ref": "#/definitions/handler.Response"}},
                    "404": {"description": "Extraction not found", "schema": {"$ref": "#/definitions/handler.ErrorResponseBody"}}
                }
            }
        },
        "/extractions/{id}/source": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["extractions"],
                "summary": "Get a download link for the archived source",
                "parameters": [
                    {"type": "string", "description": "Extraction ID (UUID)", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "Presigned URL", "schema": {"$ref": "#/definitions/handler.Response"}},
                    "404": {"description": "Extraction not found or source not archived", "schema": {"$ref": "#/definitions/handler.ErrorResponseBody"}}
                }
            }
        },
        "/extractions/{id}/reextract": {
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Stores the outcome as a new extraction that shares the archived source",
                "produces": ["application/json"],
                "tags": ["extractions"],
                "summary": "Re-run extraction on the archived source",
                "parameters": [
                    {"type": "string", "description": "Extraction ID (UUID)", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "201": {"description": "New extraction", "schema": {"$ref": "#/definitions/handler.Response"}},
                    "400": {"description": "Invalid ID", "schema": {"$ref": "#/definitions/handler.ErrorResponseBody"}},
                    "404": {"description": "Extraction not found or source not archived", "schema": {"$ref": "#/definitions/handler.ErrorResponseBody"}},
                    "422": {"description": "Document could not be extracted", "schema": {"$ref": "#/definitions/handler.ErrorResponseBody"}}
                }
            }
        }
    },
    "definitions": {
        "handler.APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"}
            }
        },
        "handler.ErrorResponseBody": {
            "type": "object",
            "properties": {
                "error": {"$ref": "#/definitions/handler.APIError"},
                "success": {"type": "boolean", "example": false}
            }
        },
        "handler.PagMeta": {
            "type": "object",
            "properties": {
                "limit": {"type": "integer"},
                "offset": {"type": "integer"},
                "total": {"type": "integer"}
            }
        },
        "handler.Response": {
            "type": "object",
            "properties": {
                "data": {},
                "meta": {"$ref": "#/definitions/handler.PagMeta"},
                "success": {"type": "boolean", "example": true}
            }
        },
        "handler.ExtractRequest": {
            "type": "object",
            "required": ["text"],
            "properties": {
                "file_name": {"type": "string", "example": "DDV_4521_19052025.pdf"},
                "hints": {"type": "array", "items": {"type": "array", "items": {"type": "object"}}},
                "text": {"type": "string"}
            }
        },
        "handler.BatchRequest": {
            "type": "object",
            "required": ["documents"],
            "properties": {
                "documents": {"type": "array", "items": {"$ref": "#/definitions/handler.ExtractRequest"}}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "DDT/FT Extraction API",
	Description:      "Field extraction for Italian delivery notes, invoices and credit notes.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}

package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "School Fee Ledger API",
        "description": "Payment ledger, filtering and collection summaries for school fee administration",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Ledger", "description": "Per-student payment matrices and edits"},
        {"name": "Summary", "description": "Class buckets and collection summaries"},
        {"name": "Reports", "description": "Printable PDF reports"}
    ],
    "paths": {
        "/health": {
            "get": {
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "Ready"}
                }
            }
        },
        "/years/{yearId}/ledger": {
            "get": {
                "tags": ["Ledger"],
                "summary": "Filtered payment roster with buckets and summary",
                "parameters": [
                    {"name": "yearId", "in": "path", "type": "string", "required": true},
                    {"name": "category", "in": "query", "type": "string", "enum": ["new", "left", "transfer", "registered", "notRegistered", "total"]},
                    {"name": "unpaidMonth", "in": "query", "type": "string", "description": "Calendar month 1-12 or insurance"},
                    {"name": "search", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/years/{yearId}/ledger/refresh": {
            "post": {
                "tags": ["Ledger"],
                "summary": "Reload the roster from the record store",
                "parameters": [
                    {"name": "yearId", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "502": {"description": "Record store unavailable"}
                }
            }
        },
        "/years/{yearId}/ledger/students/{id}": {
            "get": {
                "tags": ["Ledger"],
                "summary": "Payment matrix for one student",
                "parameters": [
                    {"name": "yearId", "in": "path", "type": "string", "required": true},
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Student not found"}
                }
            }
        },
        "/years/{yearId}/ledger/students/{id}/payments": {
            "post": {
                "tags": ["Ledger"],
                "summary": "Edit one agreed or paid amount",
                "parameters": [
                    {"name": "yearId", "in": "path", "type": "string", "required": true},
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/EditPaymentRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Amount rejected by validation"},
                    "409": {"description": "Another edit for this cell is pending"},
                    "502": {"description": "Remote write failed, edit rolled back"}
                }
            }
        },
        "/years/{yearId}/summary": {
            "get": {
                "tags": ["Summary"],
                "summary": "Collection summary for the active selection",
                "parameters": [
                    {"name": "yearId", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/years/{yearId}/summary/classes": {
            "get": {
                "tags": ["Summary"],
                "summary": "Per-class collection buckets",
                "parameters": [
                    {"name": "yearId", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/years/{yearId}/summary/classes/{id}": {
            "get": {
                "tags": ["Summary"],
                "summary": "Collection summary for one class",
                "parameters": [
                    {"name": "yearId", "in": "path", "type": "string", "required": true},
                    {"name": "id", "in": "path", "type": "string", "required": true, "description": "Class ID, or no-class for unassigned students"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/years/{yearId}/reports/monthly-payments": {
            "get": {
                "tags": ["Reports"],
                "summary": "Monthly payments report as PDF",
                "produces": ["application/pdf"],
                "parameters": [
                    {"name": "yearId", "in": "path", "type": "string", "required": true},
                    {"name": "month", "in": "query", "type": "integer", "required": true, "description": "Calendar month (9-12, 1-6)"}
                ],
                "responses": {
                    "200": {"description": "PDF document"}
                }
            }
        },
        "/years/{yearId}/reports/classes": {
            "get": {
                "tags": ["Reports"],
                "summary": "Per-class collection report as PDF",
                "produces": ["application/pdf"],
                "parameters": [
                    {"name": "yearId", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "PDF document"}
                }
            }
        }
    },
    "definitions": {
        "EditPaymentRequest": {
            "type": "object",
            "properties": {
                "feeType": {"type": "string", "enum": ["tuition", "transport", "insurance", "registration"]},
                "field": {"type": "string", "enum": ["paid", "agreed"]},
                "month": {"type": "integer", "minimum": 1, "maximum": 12},
                "amount": {"type": "string", "description": "Blank or malformed values are treated as zero"}
            },
            "required": ["feeType", "field"]
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}

package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "LMS Stats API",
        "description": "Score rollups and page-view activity counters for the learning platform",
        "version": "0.1.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Rollups", "description": "Assignment score distribution rollups"},
        {"name": "Activity", "description": "Course page-view counters"}
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
        "/api/v1/assignments/{assignmentId}/rollup": {
            "get": {
                "tags": ["Rollups"],
                "summary": "Merged assignment-level rollup across sections",
                "parameters": [
                    {"name": "assignmentId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Assignment rollup", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "No rollups recorded"}
                }
            }
        },
        "/api/v1/assignments/{assignmentId}/sections/{sectionId}/rollup": {
            "get": {
                "tags": ["Rollups"],
                "summary": "One section's persisted rollup",
                "parameters": [
                    {"name": "assignmentId", "in": "path", "required": true, "type": "string"},
                    {"name": "sectionId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Section rollup", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Rollup not found"}
                }
            }
        },
        "/api/v1/assignments/{assignmentId}/rollup/recompute": {
            "post": {
                "tags": ["Rollups"],
                "summary": "Queue a rollup rebuild",
                "parameters": [
                    {"name": "assignmentId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "202": {"description": "Recompute queued"}
                }
            }
        },
        "/api/v1/courses/{courseId}/activity": {
            "get": {
                "tags": ["Activity"],
                "summary": "Read activity counter bins",
                "parameters": [
                    {"name": "courseId", "in": "path", "required": true, "type": "string"},
                    {"name": "category", "in": "query", "type": "string"},
                    {"name": "date_from", "in": "query", "type": "string"},
                    {"name": "date_to", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Counter bins", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Activity"],
                "summary": "Record one page view",
                "parameters": [
                    {"name": "courseId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "202": {"description": "Increment accepted"},
                    "400": {"description": "Invalid payload"}
                }
            }
        }
    },
    "definitions": {
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

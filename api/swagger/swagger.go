package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "JEXAM API",
        "description": "Classroom management backend: classes, live broadcast sessions, videos, exams, forum and reports",
        "version": "0.1.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Authentication", "description": "Accounts and tokens"},
        {"name": "Classes", "description": "Class management"},
        {"name": "Enrollments", "description": "Class membership"},
        {"name": "Live", "description": "Live broadcast sessions"},
        {"name": "Videos", "description": "Lecture recordings"},
        {"name": "Exams", "description": "Multiple-choice exams"},
        {"name": "Forum", "description": "Class discussion board"},
        {"name": "Analytics", "description": "Class student reports"},
        {"name": "Reports", "description": "Report exports"}
    ],
    "paths": {
        "/auth/register": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Register an account",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RegisterRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Email already registered"}
                }
            }
        },
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate user",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/auth/refresh": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Refresh access token",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/auth/logout": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Logout current session",
                "responses": {
                    "204": {"description": "Logged out"}
                }
            }
        },
        "/auth/me": {
            "get": {
                "tags": ["Authentication"],
                "summary": "Current user profile",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/classes": {
            "get": {
                "tags": ["Classes"],
                "summary": "List visible classes",
                "parameters": [
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Classes"],
                "summary": "Create class",
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/classes/{id}": {
            "get": {
                "tags": ["Classes"],
                "summary": "Class detail",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            }
        },
        "/classes/{id}/roster": {
            "get": {
                "tags": ["Enrollments"],
                "summary": "Class roster (owner only)",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/enrollments": {
            "get": {
                "tags": ["Enrollments"],
                "summary": "My enrollments",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/enrollments/join": {
            "post": {
                "tags": ["Enrollments"],
                "summary": "Join a class by code",
                "responses": {
                    "201": {"description": "Joined", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Already enrolled"}
                }
            }
        },
        "/classes/{id}/live": {
            "get": {
                "tags": ["Live"],
                "summary": "Current session state",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/classes/{id}/live/start": {
            "post": {
                "tags": ["Live"],
                "summary": "Start broadcasting",
                "responses": {
                    "200": {"description": "Session record"}
                }
            }
        },
        "/classes/{id}/live/end": {
            "post": {
                "tags": ["Live"],
                "summary": "Stop broadcasting",
                "responses": {
                    "204": {"description": "Ended"}
                }
            }
        },
        "/classes/{id}/live/mode": {
            "put": {
                "tags": ["Live"],
                "summary": "Switch broadcast mode",
                "responses": {
                    "204": {"description": "Mode set"}
                }
            }
        },
        "/classes/{id}/live/hand": {
            "post": {
                "tags": ["Live"],
                "summary": "Raise hand",
                "responses": {
                    "204": {"description": "Raised"}
                }
            },
            "delete": {
                "tags": ["Live"],
                "summary": "Lower hand",
                "responses": {
                    "204": {"description": "Lowered"}
                }
            }
        },
        "/classes/{id}/live/speakers/{studentId}": {
            "post": {
                "tags": ["Live"],
                "summary": "Admit speaker",
                "responses": {
                    "204": {"description": "Admitted"}
                }
            },
            "delete": {
                "tags": ["Live"],
                "summary": "Mute speaker",
                "responses": {
                    "204": {"description": "Muted"}
                }
            }
        },
        "/classes/{id}/live/events": {
            "get": {
                "tags": ["Live"],
                "summary": "Session event stream (SSE)",
                "produces": ["text/event-stream"],
                "responses": {
                    "200": {"description": "Event stream"}
                }
            }
        },
        "/classes/{id}/videos": {
            "get": {
                "tags": ["Videos"],
                "summary": "List class videos",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Videos"],
                "summary": "Upload a lecture video",
                "consumes": ["multipart/form-data"],
                "responses": {
                    "201": {"description": "Uploaded"}
                }
            }
        },
        "/classes/{id}/exams": {
            "get": {
                "tags": ["Exams"],
                "summary": "List class exams",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Exams"],
                "summary": "Create an exam with questions",
                "responses": {
                    "201": {"description": "Created"}
                }
            }
        },
        "/exams/{examId}": {
            "get": {
                "tags": ["Exams"],
                "summary": "Exam with ordered questions",
                "parameters": [
                    {"name": "examId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/classes/{id}/posts": {
            "get": {
                "tags": ["Forum"],
                "summary": "List forum posts",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Forum"],
                "summary": "Post a message",
                "responses": {
                    "201": {"description": "Posted"}
                }
            }
        },
        "/classes/{id}/report": {
            "get": {
                "tags": ["Analytics"],
                "summary": "Class student report",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/classes/{id}/report/export": {
            "post": {
                "tags": ["Reports"],
                "summary": "Queue a CSV/PDF export",
                "responses": {
                    "202": {"description": "Queued"}
                }
            }
        },
        "/reports/{jobId}": {
            "get": {
                "tags": ["Reports"],
                "summary": "Report job status",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/reports/{jobId}/download": {
            "get": {
                "tags": ["Reports"],
                "summary": "Download a finished report",
                "parameters": [
                    {"name": "jobId", "in": "path", "required": true, "type": "string"},
                    {"name": "token", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "File"}
                }
            }
        }
    },
    "definitions": {
        "RegisterRequest": {
            "type": "object",
            "required": ["email", "password", "full_name", "role"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"},
                "full_name": {"type": "string"},
                "role": {"type": "string", "enum": ["ADMIN", "TEACHER", "STUDENT"]},
                "credential_code": {"type": "string"}
            }
        },
        "LoginRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
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

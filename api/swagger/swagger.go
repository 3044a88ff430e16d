package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "SMA Timetable API",
        "description": "Timetable editing, generation, conflict detection and export",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "security": [{"BearerAuth": []}],
    "tags": [
        {"name": "Timetables", "description": "Timetable store and slot editing"},
        {"name": "Generation", "description": "Automatic timetable generation"},
        {"name": "Views", "description": "Projected grids and exports"},
        {"name": "Calendar", "description": "School week and periods"}
    ],
    "paths": {
        "/timetables": {
            "get": {
                "tags": ["Timetables"],
                "summary": "List timetables",
                "parameters": [
                    {"name": "academicYear", "in": "query", "type": "string"},
                    {"name": "term", "in": "query", "type": "string"},
                    {"name": "type", "in": "query", "type": "string", "enum": ["TEACHING", "EXAM"]},
                    {"name": "status", "in": "query", "type": "string", "enum": ["DRAFT", "ACTIVE", "ARCHIVED"]},
                    {"name": "page", "in": "query", "type": "integer", "minimum": 1},
                    {"name": "pageSize", "in": "query", "type": "integer", "minimum": 1, "maximum": 100}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Timetables"],
                "summary": "Create draft timetable",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateTimetableRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid payload", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetables/{id}": {
            "get": {
                "tags": ["Timetables"],
                "summary": "Get timetable",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Timetables"],
                "summary": "Delete draft timetable",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "Deleted"},
                    "409": {"description": "Not a draft", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetables/{id}/slots": {
            "post": {
                "tags": ["Timetables"],
                "summary": "Add slot",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AddSlotRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Slot conflict", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Timetables"],
                "summary": "Replace all slots",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ReplaceSlotsRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Version mismatch or conflict", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetables/{id}/slots/{slotId}": {
            "patch": {
                "tags": ["Timetables"],
                "summary": "Move slot",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "slotId", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/MoveSlotRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Slot conflict", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Timetables"],
                "summary": "Remove slot",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "slotId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetables/{id}/status": {
            "post": {
                "tags": ["Timetables"],
                "summary": "Change timetable status",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SetStatusRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Activation blocked", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetables/{id}/conflicts": {
            "get": {
                "tags": ["Timetables"],
                "summary": "Detect conflicts",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetables/{id}/conflicts/{conflictId}/resolve": {
            "post": {
                "tags": ["Timetables"],
                "summary": "Mark conflict resolved",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "conflictId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetables/generate": {
            "post": {
                "tags": ["Generation"],
                "summary": "Generate timetable synchronously",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/GenerateTimetableRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/generation-jobs": {
            "get": {
                "tags": ["Generation"],
                "summary": "List generation jobs",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Generation"],
                "summary": "Submit generation job",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/GenerateTimetableRequest"}}
                ],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/generation-jobs/{id}": {
            "get": {
                "tags": ["Generation"],
                "summary": "Generation job status",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Generation"],
                "summary": "Cancel generation job",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetables/{id}/views/{mode}": {
            "get": {
                "tags": ["Views"],
                "summary": "Project timetable",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "mode", "in": "path", "required": true, "type": "string", "enum": ["class", "teacher", "subject", "admin"]},
                    {"name": "selectedId", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetables/{id}/export": {
            "get": {
                "tags": ["Views"],
                "summary": "Render export",
                "produces": ["text/plain", "text/csv", "application/pdf"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "mode", "in": "query", "type": "string"},
                    {"name": "selectedId", "in": "query", "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["text", "csv", "pdf"]},
                    {"name": "orientation", "in": "query", "type": "string", "enum": ["portrait", "landscape"]},
                    {"name": "pageSize", "in": "query", "type": "string", "enum": ["A4", "Letter", "Legal"]},
                    {"name": "stats", "in": "query", "type": "boolean"}
                ],
                "responses": {
                    "200": {"description": "Rendered document"},
                    "304": {"description": "Not modified"}
                }
            }
        },
        "/timetables/{id}/exports": {
            "post": {
                "tags": ["Views"],
                "summary": "Store export and return signed link",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "mode", "in": "query", "type": "string"},
                    {"name": "selectedId", "in": "query", "type": "string"},
                    {"name": "format", "in": "query", "type": "string"}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/exports/{token}": {
            "get": {
                "tags": ["Views"],
                "summary": "Download stored export",
                "security": [],
                "parameters": [
                    {"name": "token", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "File"},
                    "403": {"description": "Invalid or expired link", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/calendar": {
            "get": {
                "tags": ["Calendar"],
                "summary": "School week",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/calendar/days/{day}/periods/{periodId}": {
            "put": {
                "tags": ["Calendar"],
                "summary": "Create or edit period",
                "parameters": [
                    {"name": "day", "in": "path", "required": true, "type": "string"},
                    {"name": "periodId", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpsertPeriodRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Period in use", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/metrics/summary": {
            "get": {
                "tags": ["Timetables"],
                "summary": "Metrics snapshot",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "CreateTimetableRequest": {
            "type": "object",
            "required": ["name", "academicYear", "term"],
            "properties": {
                "name": {"type": "string"},
                "academicYear": {"type": "string"},
                "term": {"type": "string"},
                "type": {"type": "string", "enum": ["TEACHING", "EXAM"]},
                "rules": {
                    "type": "object",
                    "properties": {
                        "maxPeriodsPerDayPerTeacher": {"type": "integer"},
                        "subjectTolerance": {"type": "integer"}
                    }
                }
            }
        },
        "AddSlotRequest": {
            "type": "object",
            "required": ["classId", "subjectId", "teacherId", "day", "periodId"],
            "properties": {
                "classId": {"type": "string"},
                "subjectId": {"type": "string"},
                "teacherId": {"type": "string"},
                "day": {"type": "string", "enum": ["MONDAY", "TUESDAY", "WEDNESDAY", "THURSDAY", "FRIDAY", "SATURDAY"]},
                "periodId": {"type": "string"},
                "roomId": {"type": "string"},
                "isExam": {"type": "boolean"},
                "isDoublePeriod": {"type": "boolean"},
                "examType": {"type": "string"}
            }
        },
        "MoveSlotRequest": {
            "type": "object",
            "required": ["day", "periodId"],
            "properties": {
                "day": {"type": "string"},
                "periodId": {"type": "string"},
                "roomId": {"type": "string"}
            }
        },
        "ReplaceSlotsRequest": {
            "type": "object",
            "required": ["expectedVersion"],
            "properties": {
                "expectedVersion": {"type": "integer"},
                "slots": {"type": "array", "items": {"type": "object"}}
            }
        },
        "SetStatusRequest": {
            "type": "object",
            "required": ["status"],
            "properties": {
                "status": {"type": "string", "enum": ["DRAFT", "ACTIVE", "ARCHIVED"]},
                "supersede": {"type": "boolean"}
            }
        },
        "GenerateTimetableRequest": {
            "type": "object",
            "properties": {
                "timetableId": {"type": "string"},
                "name": {"type": "string"},
                "academicYear": {"type": "string"},
                "term": {"type": "string"},
                "settings": {
                    "type": "object",
                    "properties": {
                        "timetableType": {"type": "string", "enum": ["TEACHING", "EXAM"]},
                        "optimizeFor": {"type": "string", "enum": ["BALANCED_WORKLOAD", "TEACHER_PREFERENCES", "SUBJECT_DISTRIBUTION", "MINIMIZE_CONFLICTS"]},
                        "maxPeriodsPerDayPerTeacher": {"type": "integer"},
                        "preferMorningForDifficult": {"type": "boolean"},
                        "allowBackToBackDifficult": {"type": "boolean"},
                        "includeSaturday": {"type": "boolean"},
                        "teacherUnavailability": {"type": "array", "items": {"type": "object"}},
                        "subjectPreferences": {"type": "array", "items": {"type": "object"}},
                        "classAvoidedSlots": {"type": "array", "items": {"type": "object"}},
                        "exam": {"type": "object"}
                    }
                }
            }
        },
        "UpsertPeriodRequest": {
            "type": "object",
            "required": ["name", "startTime", "endTime"],
            "properties": {
                "name": {"type": "string"},
                "startTime": {"type": "string", "example": "07:00"},
                "endTime": {"type": "string", "example": "07:45"},
                "kind": {"type": "string", "enum": ["TEACHING", "BREAK", "LUNCH", "ASSEMBLY", "STUDY"]}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "pageSize": {"type": "integer"},
                "totalCount": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"},
                "details": {"type": "object"}
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

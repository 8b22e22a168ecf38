package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Coaching Notes Engine API",
        "description": "Access-control, consent, audit and bulk-mutation engine for coaching notes",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Notes", "description": "Note CRUD, sharing, privacy and lifecycle"},
        {"name": "Search", "description": "Access-filtered, scored note search"},
        {"name": "SavedSearches", "description": "Persisted, replayable search definitions"},
        {"name": "Consent", "description": "Append-only consent ledger"},
        {"name": "Audit", "description": "Append-only audit trail"},
        {"name": "Bulk", "description": "Partial-failure-tolerant bulk mutations"},
        {"name": "DataSubjectRequests", "description": "GDPR-style request workflow"},
        {"name": "Exports", "description": "Note export bundles with skip lists"},
        {"name": "Tags", "description": "Tag vocabulary and usage"},
        {"name": "Retention", "description": "Retention pass trigger"}
    ],
    "paths": {
        "/notes": {
            "post": {
                "tags": ["Notes"],
                "summary": "Create note",
                "responses": {"201": {"description": "Created"}}
            }
        },
        "/notes/{id}": {
            "get": {
                "tags": ["Notes"],
                "summary": "Get note (access-checked, audited)",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "reason", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "403": {"description": "Denied with reason code"}
                }
            },
            "patch": {
                "tags": ["Notes"],
                "summary": "Update note content",
                "responses": {"200": {"description": "OK"}, "409": {"description": "Concurrent modification"}}
            },
            "delete": {
                "tags": ["Notes"],
                "summary": "Delete note",
                "responses": {"204": {"description": "Deleted"}}
            }
        },
        "/notes/{id}/share": {
            "post": {
                "tags": ["Notes"],
                "summary": "Share note with users",
                "responses": {"200": {"description": "OK"}, "403": {"description": "sharing_disabled"}}
            }
        },
        "/notes/{id}/unshare": {
            "post": {
                "tags": ["Notes"],
                "summary": "Revoke note shares",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/notes/{id}/privacy": {
            "put": {
                "tags": ["Notes"],
                "summary": "Change privacy settings",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/notes/{id}/archive": {
            "post": {
                "tags": ["Notes"],
                "summary": "Archive note",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/notes/{id}/restore": {
            "post": {
                "tags": ["Notes"],
                "summary": "Restore archived note",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/notes/{id}/category": {
            "put": {
                "tags": ["Notes"],
                "summary": "Assign category",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/search": {
            "post": {
                "tags": ["Search"],
                "summary": "Search notes",
                "responses": {"200": {"description": "Scored, access-filtered results"}}
            }
        },
        "/saved-searches": {
            "post": {"tags": ["SavedSearches"], "summary": "Save a named search", "responses": {"201": {"description": "Created"}}},
            "get": {"tags": ["SavedSearches"], "summary": "List saved searches", "responses": {"200": {"description": "OK"}}}
        },
        "/saved-searches/{id}": {
            "get": {"tags": ["SavedSearches"], "summary": "Get saved search", "responses": {"200": {"description": "OK"}}},
            "put": {"tags": ["SavedSearches"], "summary": "Update saved search", "responses": {"200": {"description": "OK"}}},
            "delete": {"tags": ["SavedSearches"], "summary": "Delete saved search", "responses": {"204": {"description": "Deleted"}}}
        },
        "/saved-searches/{id}/run": {
            "post": {"tags": ["SavedSearches"], "summary": "Execute saved search", "responses": {"200": {"description": "OK"}}}
        },
        "/consents": {
            "post": {"tags": ["Consent"], "summary": "Record consent", "responses": {"201": {"description": "Appended"}}}
        },
        "/consents/withdraw": {
            "post": {"tags": ["Consent"], "summary": "Withdraw consent", "responses": {"201": {"description": "Appended"}, "409": {"description": "No active grant"}}}
        },
        "/consents/{subjectId}/status": {
            "get": {"tags": ["Consent"], "summary": "Current consent status", "responses": {"200": {"description": "granted | denied | unknown"}}}
        },
        "/consents/{subjectId}/history": {
            "get": {"tags": ["Consent"], "summary": "Consent history", "responses": {"200": {"description": "OK"}}}
        },
        "/audit": {
            "get": {"tags": ["Audit"], "summary": "Query audit trail", "responses": {"200": {"description": "OK"}}}
        },
        "/bulk": {
            "post": {"tags": ["Bulk"], "summary": "Submit bulk mutation", "responses": {"202": {"description": "Accepted"}}}
        },
        "/bulk/{id}": {
            "get": {"tags": ["Bulk"], "summary": "Bulk operation report", "responses": {"200": {"description": "OK"}}}
        },
        "/requests": {
            "post": {"tags": ["DataSubjectRequests"], "summary": "Submit request", "responses": {"201": {"description": "Created"}}},
            "get": {"tags": ["DataSubjectRequests"], "summary": "List requests", "responses": {"200": {"description": "OK"}}}
        },
        "/requests/{id}": {
            "get": {"tags": ["DataSubjectRequests"], "summary": "Get request", "responses": {"200": {"description": "OK"}}}
        },
        "/requests/{id}/status": {
            "put": {"tags": ["DataSubjectRequests"], "summary": "Advance workflow", "responses": {"200": {"description": "OK"}, "409": {"description": "Illegal transition"}}}
        },
        "/exports": {
            "post": {"tags": ["Exports"], "summary": "Export notes", "responses": {"200": {"description": "Download URL plus skip list"}}}
        },
        "/exports/download": {
            "get": {"tags": ["Exports"], "summary": "Download export bundle", "responses": {"200": {"description": "File"}}}
        },
        "/tags": {
            "get": {"tags": ["Tags"], "summary": "Tag vocabulary", "responses": {"200": {"description": "OK"}}}
        },
        "/retention/run": {
            "post": {"tags": ["Retention"], "summary": "Run retention pass", "responses": {"200": {"description": "Pass report"}}}
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
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "pageSize": {"type": "integer"},
                "totalCount": {"type": "integer"},
                "totalPages": {"type": "integer"}
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

// Package swagger registers the OpenAPI document served at /docs.
package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "title": "{{.Title}}",
        "description": "{{escape .Description}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    },
    "paths": {
        "/auth/register": {
            "post": {
                "tags": ["auth"],
                "summary": "Register a new administrative user",
                "responses": {"201": {"description": "Created"}, "400": {"description": "Bad Request"}}
            }
        },
        "/auth/login": {
            "post": {
                "tags": ["auth"],
                "summary": "Authenticate and receive a JWT",
                "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized"}}
            }
        },
        "/auth/profile": {
            "get": {
                "tags": ["auth"],
                "security": [{"BearerAuth": []}],
                "summary": "Current user profile",
                "responses": {"200": {"description": "OK"}}
            },
            "put": {
                "tags": ["auth"],
                "security": [{"BearerAuth": []}],
                "summary": "Update username or email",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/auth/change-password": {
            "put": {
                "tags": ["auth"],
                "security": [{"BearerAuth": []}],
                "summary": "Rotate the caller's password",
                "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized"}}
            }
        },
        "/students": {
            "get": {
                "tags": ["students"],
                "security": [{"BearerAuth": []}],
                "summary": "List students with filtering and pagination",
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "tags": ["students"],
                "security": [{"BearerAuth": []}],
                "summary": "Create a student",
                "responses": {"201": {"description": "Created"}, "400": {"description": "Bad Request"}}
            }
        },
        "/students/{id}": {
            "get": {
                "tags": ["students"],
                "security": [{"BearerAuth": []}],
                "summary": "Get a student with populated courses",
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}
            },
            "put": {
                "tags": ["students"],
                "security": [{"BearerAuth": []}],
                "summary": "Update a student",
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}
            },
            "delete": {
                "tags": ["students"],
                "security": [{"BearerAuth": []}],
                "summary": "Soft-delete a student and clean up course rosters",
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}
            }
        },
        "/students/{id}/enroll": {
            "post": {
                "tags": ["students"],
                "security": [{"BearerAuth": []}],
                "summary": "Enroll a student in a course given in the body",
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}, "404": {"description": "Not Found"}}
            }
        },
        "/students/{id}/unenroll": {
            "post": {
                "tags": ["students"],
                "security": [{"BearerAuth": []}],
                "summary": "Unenroll a student from a course given in the body",
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}, "404": {"description": "Not Found"}}
            }
        },
        "/students/{id}/enroll/{courseId}": {
            "post": {
                "tags": ["students"],
                "security": [{"BearerAuth": []}],
                "summary": "Enroll a student in a course",
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}, "404": {"description": "Not Found"}}
            },
            "delete": {
                "tags": ["students"],
                "security": [{"BearerAuth": []}],
                "summary": "Unenroll a student from a course",
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}, "404": {"description": "Not Found"}}
            }
        },
        "/students/department/{department}": {
            "get": {
                "tags": ["students"],
                "security": [{"BearerAuth": []}],
                "summary": "List students of one department",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/courses": {
            "get": {
                "tags": ["courses"],
                "security": [{"BearerAuth": []}],
                "summary": "List courses with filtering and pagination",
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "tags": ["courses"],
                "security": [{"BearerAuth": []}],
                "summary": "Create a course",
                "responses": {"201": {"description": "Created"}, "400": {"description": "Bad Request"}}
            }
        },
        "/courses/stats": {
            "get": {
                "tags": ["courses"],
                "security": [{"BearerAuth": []}],
                "summary": "Aggregated course statistics per department",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/courses/{id}": {
            "get": {
                "tags": ["courses"],
                "security": [{"BearerAuth": []}],
                "summary": "Get a course with its populated roster",
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}
            },
            "put": {
                "tags": ["courses"],
                "security": [{"BearerAuth": []}],
                "summary": "Update a course",
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}
            },
            "delete": {
                "tags": ["courses"],
                "security": [{"BearerAuth": []}],
                "summary": "Soft-delete a course and clean up student lists",
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}
            }
        },
        "/courses/{id}/roster/export": {
            "get": {
                "tags": ["courses"],
                "security": [{"BearerAuth": []}],
                "summary": "Export the roster as CSV or PDF",
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}
            }
        },
        "/courses/department/{department}": {
            "get": {
                "tags": ["courses"],
                "security": [{"BearerAuth": []}],
                "summary": "List courses of one department",
                "responses": {"200": {"description": "OK"}}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api",
	Schemes:          []string{},
	Title:            "Campus API",
	Description:      "Student, course and enrollment management service.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}

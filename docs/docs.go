// Package docs registers the OpenAPI document served under /swagger.
// Regenerate with: swag init -g cmd/main.go
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
        "/health": {
            "get": {"tags": ["system"], "summary": "Health check", "produces": ["application/json"],
                "responses": {"200": {"description": "OK", "schema": {"type": "object"}}}}
        },
        "/api/state": {
            "get": {"tags": ["dashboard"], "summary": "Get dashboard state", "produces": ["application/json"],
                "responses": {"200": {"description": "OK", "schema": {"type": "object"}}}}
        },
        "/api/reading/refresh": {
            "post": {"security": [{"BearerAuth": []}], "tags": ["dashboard"], "summary": "Refresh the sensor reading",
                "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized"}, "502": {"description": "Bad Gateway"}}}
        },
        "/api/detection/{key}/toggle": {
            "post": {"security": [{"BearerAuth": []}], "tags": ["dashboard"], "summary": "Toggle a detection flag",
                "parameters": [{"enum": ["faces", "objects"], "type": "string", "name": "key", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}, "409": {"description": "Conflict"}, "502": {"description": "Bad Gateway"}}}
        },
        "/api/stream/toggle": {
            "post": {"security": [{"BearerAuth": []}], "tags": ["dashboard"], "summary": "Play or pause the camera stream",
                "responses": {"200": {"description": "OK"}}}
        },
        "/api/access-logs": {
            "delete": {"security": [{"BearerAuth": []}], "tags": ["access-logs"], "summary": "Delete every access log entry",
                "responses": {"200": {"description": "OK"}, "502": {"description": "Bad Gateway"}}}
        },
        "/api/access-logs/refresh": {
            "post": {"security": [{"BearerAuth": []}], "tags": ["access-logs"], "summary": "Refresh the access log",
                "responses": {"200": {"description": "OK"}, "502": {"description": "Bad Gateway"}}}
        },
        "/api/access-logs/{id}": {
            "delete": {"security": [{"BearerAuth": []}], "tags": ["access-logs"], "summary": "Delete one access log entry",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "502": {"description": "Bad Gateway"}}}
        },
        "/api/access-logs/{id}/expand": {
            "post": {"tags": ["access-logs"], "summary": "Expand or collapse an access log entry",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}}}
        },
        "/api/readings": {
            "get": {"tags": ["logs"], "summary": "List reading history",
                "parameters": [
                    {"type": "string", "name": "from", "in": "query"},
                    {"type": "string", "name": "to", "in": "query"},
                    {"type": "integer", "name": "limit", "in": "query"}
                ],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}, "503": {"description": "Service Unavailable"}}}
        },
        "/api/activity": {
            "get": {"tags": ["logs"], "summary": "List activity",
                "parameters": [
                    {"type": "string", "name": "from", "in": "query"},
                    {"type": "string", "name": "to", "in": "query"},
                    {"type": "string", "name": "type", "in": "query"}
                ],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}, "503": {"description": "Service Unavailable"}}}
        },
        "/auth/sign-up": {
            "post": {"tags": ["auth"], "summary": "Register an operator", "consumes": ["application/json"],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}, "409": {"description": "Conflict"}, "503": {"description": "Service Unavailable"}}}
        },
        "/auth/sign-in": {
            "post": {"tags": ["auth"], "summary": "Issue a bearer token for the mutating API", "consumes": ["application/json"],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}, "401": {"description": "Unauthorized"}}}
        }
    },
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Pi Monitor API",
	Description:      "Dashboard daemon for a Raspberry Pi DHT22 sensor and camera backend.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}

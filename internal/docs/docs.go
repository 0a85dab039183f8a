// Package docs registers the OpenAPI description served under /swagger.
// Regenerate with: swag init -g cmd/api/main.go -o internal/docs
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
        "/categories": {
            "get": {"tags": ["categories"], "summary": "List asset categories", "produces": ["application/json"], "responses": {"200": {"description": "Paginated categories"}}},
            "post": {"tags": ["categories"], "summary": "Create an asset category", "consumes": ["application/json"], "produces": ["application/json"], "responses": {"201": {"description": "Category created"}, "400": {"description": "Invalid input"}}}
        },
        "/categories/{id}": {
            "get": {"tags": ["categories"], "summary": "Get an asset category", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "Category"}, "404": {"description": "Category not found"}}},
            "delete": {"tags": ["categories"], "summary": "Delete an asset category", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "Category deleted"}, "409": {"description": "Category in use"}}}
        },
        "/ledgers": {
            "get": {"tags": ["ledgers"], "summary": "List ledgers", "produces": ["application/json"], "responses": {"200": {"description": "Paginated ledgers"}}},
            "post": {"tags": ["ledgers"], "summary": "Create a ledger", "consumes": ["application/json"], "produces": ["application/json"], "responses": {"201": {"description": "Ledger created"}, "400": {"description": "Invalid input"}, "404": {"description": "Category not found"}}}
        },
        "/ledgers/{id}": {
            "get": {"tags": ["ledgers"], "summary": "Get a ledger", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "Ledger"}, "404": {"description": "Ledger not found"}}},
            "delete": {"tags": ["ledgers"], "summary": "Delete a ledger", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "Ledger deleted"}, "409": {"description": "Ledger linked by transfers"}}}
        },
        "/ledgers/{id}/summary": {
            "get": {"tags": ["ledgers"], "summary": "Get a ledger summary", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "Summary"}, "404": {"description": "Ledger not found"}}}
        },
        "/ledgers/{id}/chart": {
            "get": {"tags": ["ledgers"], "summary": "Chart a ledger over a date range", "produces": ["application/json", "image/png"], "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}, {"type": "string", "name": "start", "in": "query"}, {"type": "string", "name": "end", "in": "query"}, {"type": "string", "name": "format", "in": "query", "enum": ["json", "png"]}], "responses": {"200": {"description": "Chart points or PNG"}, "400": {"description": "Invalid range"}}}
        },
        "/ledgers/{id}/transactions": {
            "get": {"tags": ["ledgers", "transactions"], "summary": "List ledger transactions", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}, {"type": "string", "name": "from_date", "in": "query"}, {"type": "string", "name": "to_date", "in": "query"}, {"type": "string", "name": "type", "in": "query"}], "responses": {"200": {"description": "Paginated transactions"}}}
        },
        "/ledgers/{id}/snapshots": {
            "get": {"tags": ["snapshots"], "summary": "List snapshots", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "Paginated snapshots"}}}
        },
        "/ledgers/{id}/snapshots/latest": {
            "get": {"tags": ["snapshots"], "summary": "Get the latest snapshot", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "Snapshot"}, "404": {"description": "No snapshot"}}}
        },
        "/ledgers/{id}/snapshots/chart": {
            "get": {"tags": ["snapshots"], "summary": "Stored snapshots in a date range", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}, {"type": "string", "name": "start", "in": "query"}, {"type": "string", "name": "end", "in": "query"}], "responses": {"200": {"description": "Snapshots"}}}
        },
        "/ledgers/{id}/snapshots/generate": {
            "post": {"tags": ["snapshots"], "summary": "Generate a snapshot", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}, {"type": "string", "name": "as_of", "in": "query"}], "responses": {"201": {"description": "Snapshot"}}}
        },
        "/transactions": {
            "post": {"tags": ["transactions"], "summary": "Create a transaction", "consumes": ["application/json"], "produces": ["application/json"], "responses": {"201": {"description": "Transaction created"}, "400": {"description": "Invalid input or transfer target"}, "409": {"description": "Transfer failed"}}}
        },
        "/transactions/{id}": {
            "get": {"tags": ["transactions"], "summary": "Get a transaction", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "Transaction"}, "404": {"description": "Transaction not found"}}},
            "put": {"tags": ["transactions"], "summary": "Update a transaction", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "Transaction updated"}, "400": {"description": "Invalid input"}, "409": {"description": "Transaction in use"}}},
            "delete": {"tags": ["transactions"], "summary": "Delete a transaction", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "Transaction deleted"}, "409": {"description": "Transaction in use"}}}
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Ledgerbook API",
	Description:      "Ledgerbook tracks personal money ledgers and values them over time.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}

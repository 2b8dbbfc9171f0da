package api

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/health": {"get": {"tags": ["health"], "summary": "Health check endpoint", "produces": ["application/json"], "responses": {"200": {"description": "OK"}}}},
        "/info": {"get": {"tags": ["info"], "summary": "Instance identification and capabilities", "produces": ["application/json"], "responses": {"200": {"description": "OK"}}}},
        "/layout": {"get": {"tags": ["parameters"], "summary": "Parameter layout table", "produces": ["application/json"], "responses": {"200": {"description": "OK"}}}},
        "/parameters": {"get": {"tags": ["parameters"], "summary": "All parameters of the active program", "produces": ["application/json"], "responses": {"200": {"description": "OK"}}}},
        "/parameters/{index}": {
            "get": {"tags": ["parameters"], "summary": "One parameter by flat host index", "produces": ["application/json"],
                "parameters": [{"type": "integer", "name": "index", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}},
            "put": {"tags": ["parameters"], "summary": "Write a parameter as host automation", "consumes": ["application/json"], "produces": ["application/json"],
                "parameters": [{"type": "integer", "name": "index", "in": "path", "required": true},
                    {"name": "body", "in": "body", "required": true, "schema": {"type": "object", "properties": {"value": {"type": "number"}}}}],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}, "404": {"description": "Not Found"}}}
        },
        "/program": {"get": {"tags": ["programs"], "summary": "Active program", "produces": ["application/json"], "responses": {"200": {"description": "OK"}}}},
        "/program/{number}": {"put": {"tags": ["programs"], "summary": "Select a program, optionally renaming it", "produces": ["application/json"],
            "parameters": [{"type": "integer", "name": "number", "in": "path", "required": true}],
            "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}},
        "/programs": {"get": {"tags": ["programs"], "summary": "Names of every program slot", "produces": ["application/json"], "responses": {"200": {"description": "OK"}}}},
        "/replay": {"post": {"tags": ["replay"], "summary": "Replay a MIDI file through a fresh engine", "consumes": ["multipart/form-data"], "produces": ["application/octet-stream"],
            "parameters": [{"type": "file", "name": "file", "in": "formData", "required": true}],
            "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}}}}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "meeblipcc API",
	Description:      "Parameter and program control of a Meeblip CC engine",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}

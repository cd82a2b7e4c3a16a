// Package apidocs registers the OpenAPI document served under /swagger.
// Regenerate with `swag init -g cmd/detectd/docs.go -o internal/apidocs`.
package apidocs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "license": {"name": "MIT", "url": "https://opensource.org/licenses/MIT"},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["system"],
                "summary": "Liveness probe",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.HealthResponse"}}
                }
            }
        },
        "/labels": {
            "get": {
                "produces": ["application/json"],
                "tags": ["inference"],
                "summary": "Class vocabulary of the loaded detector",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.LabelsResponse"}}
                }
            }
        },
        "/infer": {
            "post": {
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["inference"],
                "summary": "Detect objects in an uploaded image",
                "parameters": [
                    {"type": "file", "description": "image (JPEG, PNG, GIF, BMP, TIFF, WebP)", "name": "file", "in": "formData", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.InferResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "413": {"description": "Request Entity Too Large", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "types.Detection": {
            "type": "object",
            "properties": {
                "label": {"type": "string", "example": "person"},
                "confidence": {"type": "number", "example": 0.92},
                "bbox": {"type": "array", "items": {"type": "number"}, "example": [100, 50, 300, 400]}
            }
        },
        "types.InferResponse": {
            "type": "object",
            "properties": {
                "detections": {"type": "array", "items": {"$ref": "#/definitions/types.Detection"}}
            }
        },
        "types.HealthResponse": {
            "type": "object",
            "properties": {"status": {"type": "string", "example": "ok"}}
        },
        "types.LabelsResponse": {
            "type": "object",
            "properties": {"labels": {"type": "array", "items": {"type": "string"}}}
        },
        "types.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string"},
                "code": {"type": "integer"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{"http"},
	Title:            "detectd API",
	Description:      "HTTP API for object detection on uploaded images.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}

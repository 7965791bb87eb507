// Package docs registers the OpenAPI document of the product image upload API
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
        "/api/v1/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Health"],
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.APIResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/dto.APIResponse"}}
                }
            }
        },
        "/api/v1/products/{product_id}/images": {
            "post": {
                "description": "Submit exactly the configured number of data-URI images for a product. All images are stored or none.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Product Images"],
                "summary": "Upload custom product images",
                "parameters": [
                    {"type": "integer", "description": "Product ID", "name": "product_id", "in": "path", "required": true},
                    {"description": "Images as data URIs", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/dto.UploadProductImagesRequest"}}
                ],
                "responses": {
                    "201": {"description": "Images stored and product added to cart", "schema": {"$ref": "#/definitions/dto.APIResponse"}},
                    "400": {"description": "Invalid request or image count", "schema": {"$ref": "#/definitions/dto.APIResponse"}},
                    "404": {"description": "Product not found", "schema": {"$ref": "#/definitions/dto.APIResponse"}},
                    "422": {"description": "An image failed validation", "schema": {"$ref": "#/definitions/dto.APIResponse"}},
                    "429": {"description": "Guest submitted too quickly", "schema": {"$ref": "#/definitions/dto.APIResponse"}},
                    "500": {"description": "Internal server error", "schema": {"$ref": "#/definitions/dto.APIResponse"}}
                }
            }
        },
        "/api/v1/products/{product_id}/upload-config": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Product Images"],
                "summary": "Get product upload configuration",
                "parameters": [
                    {"type": "integer", "description": "Product ID", "name": "product_id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.APIResponse"}},
                    "400": {"description": "Invalid product or not configured", "schema": {"$ref": "#/definitions/dto.APIResponse"}},
                    "404": {"description": "Product not found", "schema": {"$ref": "#/definitions/dto.APIResponse"}}
                }
            }
        },
        "/uploads/{filename}": {
            "get": {
                "produces": ["image/jpeg", "image/png", "image/gif", "image/webp"],
                "tags": ["Uploads"],
                "summary": "Get uploaded image",
                "parameters": [
                    {"type": "string", "description": "Generated file name", "name": "filename", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "Image bytes", "schema": {"type": "string"}},
                    "400": {"description": "Invalid file name", "schema": {"$ref": "#/definitions/dto.APIResponse"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/dto.APIResponse"}}
                }
            }
        },
        "/uploads/{filename}/preview": {
            "get": {
                "produces": ["image/jpeg"],
                "tags": ["Uploads"],
                "summary": "Preview uploaded image",
                "parameters": [
                    {"type": "string", "description": "Generated file name", "name": "filename", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "Thumbnail image", "schema": {"type": "string"}},
                    "400": {"description": "Invalid file name", "schema": {"$ref": "#/definitions/dto.APIResponse"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/dto.APIResponse"}},
                    "422": {"description": "Image is too large to preview", "schema": {"$ref": "#/definitions/dto.APIResponse"}},
                    "500": {"description": "Internal server error", "schema": {"$ref": "#/definitions/dto.APIResponse"}}
                }
            }
        },
        "/api/v1/admin/upload-logs": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Admin Uploads"],
                "summary": "List upload logs",
                "parameters": [
                    {"type": "integer", "description": "Maximum entries (1-1000)", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.APIResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/dto.APIResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/dto.APIResponse"}}
                }
            },
            "delete": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Admin Uploads"],
                "summary": "Clear upload logs",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.APIResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/dto.APIResponse"}}
                }
            }
        },
        "/api/v1/admin/upload-logs/export": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"],
                "tags": ["Admin Uploads"],
                "summary": "Export upload logs",
                "responses": {
                    "200": {"description": "Excel file", "schema": {"type": "string"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/dto.APIResponse"}}
                }
            }
        },
        "/api/v1/admin/uploads/info": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Admin Uploads"],
                "summary": "Upload directory info",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.APIResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/dto.APIResponse"}}
                }
            }
        },
        "/api/v1/admin/products/{product_id}/upload-policy/refresh": {
            "post": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Admin Uploads"],
                "summary": "Refresh product upload policy",
                "parameters": [
                    {"type": "integer", "description": "Product ID", "name": "product_id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.APIResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/dto.APIResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/dto.APIResponse"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/dto.APIResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/dto.APIResponse"}}
                }
            }
        }
    },
    "definitions": {
        "dto.APIResponse": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "message": {"type": "string"},
                "data": {},
                "error": {}
            }
        },
        "dto.UploadProductImagesRequest": {
            "type": "object",
            "required": ["images"],
            "properties": {
                "images": {"type": "array", "maxItems": 50, "minItems": 1, "items": {"type": "string"}}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "description": "Type \"Bearer\" followed by a space and the access token.",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Product Image Upload API",
	Description:      "Custom product image upload: validated, audited image batches attached to cart items.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}

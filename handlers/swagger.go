package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger registers minimal Swagger/OpenAPI endpoints for the recital API.
// - GET /swagger/index.html  -> a small HTML page that loads the OpenAPI JSON
// - GET /swagger/doc.json    -> machine-readable OpenAPI JSON
func RegisterSwagger(rg *gin.Engine) {
	rg.GET("/swagger/index.html", func(c *gin.Context) {
		c.Header("Content-Type", "text/html; charset=utf-8")
		c.String(http.StatusOK, swaggerHTML)
	})

	rg.GET("/swagger/doc.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(swaggerJSON))
	})
}

const swaggerHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>recital API - Swagger</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@4/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@4/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: '/swagger/doc.json',
        dom_id: '#swagger-ui',
      })
    </script>
  </body>
</html>`

const swaggerJSON = `{
  "openapi": "3.0.0",
  "info": { "title": "recital", "version": "v0.1.0" },
  "paths": {
    "/api/v1/stories": {
      "get": { "summary": "List stories, newest first", "responses": { "200": { "description": "items" } } },
      "post": {
        "summary": "Share a story",
        "requestBody": { "content": { "application/json": { "schema": {"type":"object","required":["title","content"],"properties":{"title":{"type":"string"},"content":{"type":"string"},"imageUrl":{"type":"string"}}}}}},
        "responses": { "201": { "description": "created" }, "400": { "description": "validation failed" }, "503": { "description": "identity not ready" } }
      }
    },
    "/api/v1/stories/{id}": {
      "get": { "summary": "Get a story", "responses": { "200": { "description": "story" }, "404": { "description": "not found" } } }
    },
    "/api/v1/stories/{id}/comments": {
      "get": { "summary": "List comments of a story, oldest first", "responses": { "200": { "description": "items" } } },
      "post": {
        "summary": "Comment on a story",
        "requestBody": { "content": { "application/json": { "schema": {"type":"object","required":["commentText","commenterName"],"properties":{"commentText":{"type":"string"},"commenterName":{"type":"string"}}}}}},
        "responses": { "201": { "description": "created" }, "400": { "description": "validation failed" } }
      }
    },
    "/api/v1/stories/images": {
      "post": {
        "summary": "Upload a story image",
        "requestBody": { "content": { "multipart/form-data": { "schema": {"type":"object","properties":{"image":{"type":"string","format":"binary"}}}}}},
        "responses": { "201": { "description": "key and imageUrl" }, "413": { "description": "too large" }, "415": { "description": "unsupported type" }, "503": { "description": "storage not configured" } }
      }
    },
    "/api/v1/comments/{id}": {
      "get": { "summary": "Get a comment", "responses": { "200": { "description": "comment" }, "404": { "description": "not found" } } }
    },
    "/api/v1/feedback": {
      "get": { "summary": "List feedback, newest first", "responses": { "200": { "description": "items" } } },
      "post": {
        "summary": "Leave feedback",
        "requestBody": { "content": { "application/json": { "schema": {"type":"object","required":["name","message"],"properties":{"name":{"type":"string"},"email":{"type":"string"},"message":{"type":"string"}}}}}},
        "responses": { "201": { "description": "created" }, "400": { "description": "validation failed" } }
      }
    },
    "/api/v1/feedback/{id}": {
      "get": { "summary": "Get a feedback entry", "responses": { "200": { "description": "feedback" }, "404": { "description": "not found" } } }
    },
    "/api/v1/live/{collection}": {
      "get": { "summary": "Websocket stream of full snapshots (stories, comments, feedback); comments accept storyId", "responses": { "101": { "description": "switching protocols" } } }
    },
    "/api/v1/session": {
      "get": { "summary": "Process identity and author check", "responses": { "200": { "description": "identity" }, "503": { "description": "not ready" } } }
    },
    "/api/v1/session/visitor": {
      "post": { "summary": "Issue a visitor token", "responses": { "201": { "description": "token" }, "503": { "description": "tokens disabled" } } }
    },
    "/api/v1/session/revoke": {
      "post": { "summary": "Revoke the presented bearer token", "responses": { "204": { "description": "revoked" }, "401": { "description": "unauthorized" } } }
    }
  }
}`

// Package docs holds the OpenAPI document served under /swagger.
// Regenerate with: swag init -g cmd/api/main.go --parseDependency --parseInternal --dir ./ --output ./cmd/api/docs
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "license": {
            "name": "Apache 2.0",
            "url": "http://www.apache.org/licenses/LICENSE-2.0.html"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Health"],
                "summary": "Health check",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/api.StatusMessage"}}}
            }
        },
        "/search": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Knowledge base"],
                "summary": "Semantic search",
                "parameters": [{"description": "Query and optional k", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/api.SearchRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.SearchResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/api.JobResponse"}}
                }
            }
        },
        "/stats": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Knowledge base"],
                "summary": "Index statistics",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/commonModels.Stats"}}}
            }
        },
        "/sources": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Knowledge base"],
                "summary": "List indexed sources",
                "parameters": [
                    {"type": "integer", "description": "Offset", "name": "offset", "in": "query"},
                    {"type": "integer", "description": "Page size, at most 100", "name": "limit", "in": "query"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/commonModels.SourcePage"}}}
            },
            "delete": {
                "produces": ["application/json"],
                "tags": ["Knowledge base"],
                "summary": "Remove a source and its chunks",
                "parameters": [{"type": "string", "description": "Source id", "name": "id", "in": "query", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.DeleteSourceResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/api.JobResponse"}}
                }
            }
        },
        "/sources/chunks": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Knowledge base"],
                "summary": "Chunks of one source",
                "parameters": [
                    {"type": "string", "description": "Source id (URL or file name)", "name": "id", "in": "query", "required": true},
                    {"type": "integer", "description": "Offset", "name": "offset", "in": "query"},
                    {"type": "integer", "description": "Page size, at most 100", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/commonModels.ChunkPage"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/api.JobResponse"}}
                }
            }
        },
        "/chat": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Messaging"],
                "summary": "Ask the assistant",
                "parameters": [{"description": "Message, previous turns and optional model", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/api.ChatRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/orchestrator.Response"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/api.JobResponse"}},
                    "503": {"description": "Model unavailable, see error.hint", "schema": {"$ref": "#/definitions/api.JobResponse"}}
                }
            }
        },
        "/chat/stream": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["text/event-stream"],
                "tags": ["Messaging"],
                "summary": "Ask the assistant, streamed",
                "parameters": [{"description": "Message, previous turns and optional model", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/api.ChatRequest"}}],
                "responses": {
                    "200": {"description": "metadata, chunk, done or error events", "schema": {"$ref": "#/definitions/orchestrator.Event"}},
                    "503": {"description": "Model unavailable, see error.hint", "schema": {"$ref": "#/definitions/api.JobResponse"}}
                }
            }
        },
        "/chat/models": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Messaging"],
                "summary": "Models served by the generation provider",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/api.ModelsResponse"}}}
            }
        },
        "/ingest/upload": {
            "post": {
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["Ingestion"],
                "summary": "Upload a document for ingestion",
                "parameters": [
                    {"type": "file", "description": "The file to upload", "name": "document", "in": "formData", "required": true},
                    {"type": "string", "description": "Name to index the document under", "name": "document_name", "in": "formData"},
                    {"type": "boolean", "description": "Queue a background job instead of waiting", "name": "async", "in": "formData"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/commonModels.IngestReport"}},
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/api.InitJobResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/api.JobResponse"}}
                }
            }
        },
        "/ingest/text": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Ingestion"],
                "summary": "Index pasted text",
                "parameters": [{"description": "Source id, optional title and text", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/api.IngestTextRequest"}}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/commonModels.IngestReport"}}}
            }
        },
        "/ingest/crawl": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Ingestion"],
                "summary": "Crawl and index web pages",
                "parameters": [{"description": "Seed URLs, exclude patterns, concurrency", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/api.CrawlRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/commonModels.IngestReport"}},
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/api.InitJobResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/api.JobResponse"}}
                }
            }
        },
        "/status/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Job Status"],
                "summary": "Get job status",
                "parameters": [{"type": "string", "description": "Job ID", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.JobResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/api.JobResponse"}}
                }
            }
        },
        "/admin/repair": {
            "post": {
                "produces": ["application/json"],
                "tags": ["Admin"],
                "summary": "Drop and recreate the vector collection",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/api.StatusMessage"}}}
            }
        },
        "/admin/contacts": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Admin"],
                "summary": "Contact requests captured by the assistant",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/api.ContactsResponse"}}}
            }
        }
    },
    "definitions": {
        "api.StatusMessage": {"type": "object", "properties": {"status": {"type": "string", "example": "ok"}, "message": {"type": "string"}}},
        "api.SearchRequest": {"type": "object", "required": ["query"], "properties": {"query": {"type": "string", "example": "admission requirements"}, "k": {"type": "integer", "example": 4}}},
        "api.SearchResponse": {"type": "object", "properties": {"query": {"type": "string"}, "results": {"type": "array", "items": {"$ref": "#/definitions/retrieval.Passage"}}}},
        "api.ChatRequest": {"type": "object", "required": ["message"], "properties": {"message": {"type": "string"}, "model": {"type": "string"}, "history": {"type": "array", "items": {"$ref": "#/definitions/commonModels.ConversationTurn"}}}},
        "api.IngestTextRequest": {"type": "object", "required": ["source_id", "text"], "properties": {"source_id": {"type": "string", "example": "faq-admissions"}, "title": {"type": "string"}, "text": {"type": "string"}}},
        "api.CrawlRequest": {"type": "object", "required": ["seed_urls"], "properties": {"seed_urls": {"type": "array", "items": {"type": "string"}}, "exclude_patterns": {"type": "array", "items": {"type": "string"}}, "max_concurrent": {"type": "integer"}, "skip_existing": {"type": "boolean"}, "async": {"type": "boolean"}}},
        "api.InitJobResponse": {"type": "object", "properties": {"id": {"type": "string"}, "status_url": {"type": "string"}}},
        "api.DeleteSourceResponse": {"type": "object", "properties": {"source_id": {"type": "string"}, "chunks_deleted": {"type": "integer"}}},
        "api.ModelsResponse": {"type": "object", "properties": {"models": {"type": "array", "items": {"type": "string"}}}},
        "api.ContactsResponse": {"type": "object", "properties": {"total": {"type": "integer"}, "contacts": {"type": "array", "items": {"$ref": "#/definitions/commonModels.Contact"}}}},
        "api.JobOutgoingError": {"type": "object", "properties": {"code": {"type": "integer", "example": 400}, "message": {"type": "string", "example": "Job not found"}, "can_retry": {"type": "boolean", "example": false}, "hint": {"type": "string", "example": "Run: ollama pull mistral"}}},
        "api.Result": {"type": "object", "properties": {"status": {"type": "string"}, "current_step": {"type": "string"}, "report": {"$ref": "#/definitions/commonModels.IngestReport"}}},
        "api.JobResponse": {"type": "object", "properties": {"id": {"type": "string", "example": "job_cz109"}, "job_type": {"type": "string", "example": "Crawl"}, "result": {"$ref": "#/definitions/api.Result"}, "error": {"$ref": "#/definitions/api.JobOutgoingError"}, "start_time": {"type": "string"}, "end_time": {"type": "string"}}},
        "commonModels.ConversationTurn": {"type": "object", "properties": {"role": {"type": "string", "enum": ["user", "assistant"]}, "text": {"type": "string"}}},
        "commonModels.Image": {"type": "object", "properties": {"url": {"type": "string"}, "alt": {"type": "string"}, "context": {"type": "string"}, "position": {"type": "integer"}}},
        "commonModels.Stats": {"type": "object", "properties": {"document_count": {"type": "integer"}, "source_count": {"type": "integer"}, "status": {"type": "string", "enum": ["active", "empty", "corrupted"]}, "collection": {"type": "string"}}},
        "commonModels.Source": {"type": "object", "properties": {"source_id": {"type": "string"}, "title": {"type": "string"}, "chunk_count": {"type": "integer"}, "file_type": {"type": "string"}, "origin": {"type": "string"}}},
        "commonModels.SourcePage": {"type": "object", "properties": {"sources": {"type": "array", "items": {"$ref": "#/definitions/commonModels.Source"}}, "total": {"type": "integer"}, "has_more": {"type": "boolean"}}},
        "commonModels.Chunk": {"type": "object", "properties": {"chunk_id": {"type": "string"}, "source_id": {"type": "string"}, "chunk_index": {"type": "integer"}, "total_chunks": {"type": "integer"}, "content": {"type": "string"}, "start": {"type": "integer"}, "end": {"type": "integer"}, "title": {"type": "string"}, "file_type": {"type": "string"}, "origin": {"type": "string"}, "ingested_at": {"type": "string"}, "seq": {"type": "integer"}, "images": {"type": "array", "items": {"$ref": "#/definitions/commonModels.Image"}}}},
        "commonModels.ChunkPage": {"type": "object", "properties": {"chunks": {"type": "array", "items": {"$ref": "#/definitions/commonModels.Chunk"}}, "total_chunks": {"type": "integer"}, "has_more": {"type": "boolean"}}},
        "commonModels.ItemFailure": {"type": "object", "properties": {"item": {"type": "string"}, "stage": {"type": "string"}, "message": {"type": "string"}}},
        "commonModels.IngestReport": {"type": "object", "properties": {"pages_indexed": {"type": "integer"}, "chunks_indexed": {"type": "integer"}, "failures": {"type": "array", "items": {"$ref": "#/definitions/commonModels.ItemFailure"}}, "skipped": {"type": "array", "items": {"type": "string"}}}},
        "commonModels.Contact": {"type": "object", "properties": {"name": {"type": "string"}, "email": {"type": "string"}, "phone": {"type": "string"}, "interest": {"type": "string"}, "message": {"type": "string"}, "timestamp": {"type": "string"}}},
        "commonModels.NewsItem": {"type": "object", "properties": {"title": {"type": "string"}, "summary": {"type": "string"}, "link": {"type": "string"}, "score": {"type": "number"}}},
        "retrieval.Passage": {"type": "object", "properties": {"content": {"type": "string"}, "score": {"type": "number"}, "source": {"type": "string"}, "title": {"type": "string"}, "chunk_index": {"type": "integer"}, "images": {"type": "array", "items": {"$ref": "#/definitions/commonModels.Image"}}}},
        "orchestrator.Metadata": {"type": "object", "properties": {"capabilities": {"type": "array", "items": {"type": "string"}}, "reason": {"type": "string"}, "model": {"type": "string"}, "provider": {"type": "string"}, "sources": {"type": "array", "items": {"$ref": "#/definitions/retrieval.Passage"}}, "news": {"type": "array", "items": {"$ref": "#/definitions/commonModels.NewsItem"}}, "contact": {"$ref": "#/definitions/commonModels.Contact"}, "unavailable": {"type": "array", "items": {"type": "string"}}}},
        "orchestrator.Response": {"type": "object", "properties": {"answer": {"type": "string"}, "capabilities": {"type": "array", "items": {"type": "string"}}, "reason": {"type": "string"}, "model": {"type": "string"}, "provider": {"type": "string"}, "sources": {"type": "array", "items": {"$ref": "#/definitions/retrieval.Passage"}}, "news": {"type": "array", "items": {"$ref": "#/definitions/commonModels.NewsItem"}}, "contact": {"$ref": "#/definitions/commonModels.Contact"}, "unavailable": {"type": "array", "items": {"type": "string"}}}},
        "orchestrator.Event": {"type": "object", "properties": {"type": {"type": "string", "enum": ["metadata", "chunk", "done", "error"]}, "content": {"type": "string"}, "data": {"$ref": "#/definitions/orchestrator.Metadata"}, "error": {"type": "string"}}}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:3000",
	BasePath:         "/",
	Schemes:          []string{"http", "https"},
	Title:            "CampusRAG API",
	Description:      "Knowledge base and assistant for the ESILV engineering school: crawl, ingest, search and chat.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}

package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/akolanti/CampusRAG/internal/api"
	"github.com/akolanti/CampusRAG/internal/rag"
	"github.com/akolanti/CampusRAG/internal/rag/orchestrator"
	"github.com/akolanti/CampusRAG/pkg/logger_i"
)

var ragInstance *RagHandler

type RagHandler struct {
	service rag.Service
}

// InitRagHandler sets the knowledge base served by the query and ingestion handlers.
func InitRagHandler(service rag.Service) {
	ragInstance = &RagHandler{service: service}
}

func toOrchestratorRequest(req api.ChatRequest) orchestrator.Request {
	return orchestrator.Request{Message: req.Message, History: req.History, Model: strings.TrimSpace(req.Model)}
}

// SearchHandler godoc
// @Summary      Semantic search
// @Description  Returns the k passages closest to the query, best first.
// @Tags         Knowledge base
// @Accept       json
// @Produce      json
// @Param        request  body      api.SearchRequest  true  "Query and optional k"
// @Success      200      {object}  api.SearchResponse
// @Failure      400      {object}  api.JobResponse
// @Router       /search [post]
func SearchHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	var requestData api.SearchRequest
	if err := decodeBody(r, &requestData); err != nil || strings.TrimSpace(requestData.Query) == "" {
		WriteErrorResponse(w, http.StatusBadRequest, "", "query is required")
		return
	}
	passages, err := ragInstance.service.Search(r.Context(), requestData.Query, requestData.K)
	if err != nil {
		writeServiceError(w, r, "", err)
		return
	}
	writeJsonResponse(w, http.StatusOK, api.SearchResponse{Query: requestData.Query, Results: passages})
}

// StatsHandler godoc
// @Summary      Index statistics
// @Tags         Knowledge base
// @Produce      json
// @Success      200  {object}  commonModels.Stats
// @Router       /stats [get]
func StatsHandler(w http.ResponseWriter, r *http.Request) {
	stats, err := ragInstance.service.Stats(r.Context())
	if err != nil {
		writeServiceError(w, r, "", err)
		return
	}
	writeJsonResponse(w, http.StatusOK, stats)
}

// ListSourcesHandler godoc
// @Summary      List indexed sources
// @Tags         Knowledge base
// @Produce      json
// @Param        offset  query     int  false  "Offset"
// @Param        limit   query     int  false  "Page size, at most 100"
// @Success      200     {object}  commonModels.SourcePage
// @Failure      400     {object}  api.JobResponse
// @Router       /sources [get]
func ListSourcesHandler(w http.ResponseWriter, r *http.Request) {
	offset, limit, err := pageParams(r)
	if err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "", err.Error())
		return
	}
	page, err := ragInstance.service.ListSources(r.Context(), offset, limit)
	if err != nil {
		writeServiceError(w, r, "", err)
		return
	}
	writeJsonResponse(w, http.StatusOK, page)
}

// GetSourceHandler godoc
// @Summary      Chunks of one source
// @Tags         Knowledge base
// @Produce      json
// @Param        id      query     string  true   "Source id (URL or file name)"
// @Param        offset  query     int     false  "Offset"
// @Param        limit   query     int     false  "Page size, at most 100"
// @Success      200     {object}  commonModels.ChunkPage
// @Failure      404     {object}  api.JobResponse
// @Router       /sources/chunks [get]
func GetSourceHandler(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		WriteErrorResponse(w, http.StatusBadRequest, "", "id is required")
		return
	}
	offset, limit, err := pageParams(r)
	if err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, id, err.Error())
		return
	}
	page, err := ragInstance.service.GetSource(r.Context(), id, offset, limit)
	if err != nil {
		writeServiceError(w, r, id, err)
		return
	}
	writeJsonResponse(w, http.StatusOK, page)
}

// DeleteSourceHandler godoc
// @Summary      Remove a source and its chunks
// @Tags         Knowledge base
// @Produce      json
// @Param        id  query     string  true  "Source id"
// @Success      200 {object}  api.DeleteSourceResponse
// @Failure      404 {object}  api.JobResponse
// @Router       /sources [delete]
func DeleteSourceHandler(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		WriteErrorResponse(w, http.StatusBadRequest, "", "id is required")
		return
	}
	removed, err := ragInstance.service.DeleteSource(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, id, err)
		return
	}
	writeJsonResponse(w, http.StatusOK, api.DeleteSourceResponse{SourceID: id, ChunksDeleted: removed})
}

// ChatHandler godoc
// @Summary      Ask the assistant
// @Description  Routes the message to documentation search, school news and contact capture, then answers with the language model.
// @Tags         Messaging
// @Accept       json
// @Produce      json
// @Param        request  body      api.ChatRequest        true  "Message, previous turns and optional model"
// @Success      200      {object}  orchestrator.Response
// @Failure      400      {object}  api.JobResponse
// @Failure      503      {object}  api.JobResponse  "Model unavailable, see error.hint"
// @Router       /chat [post]
func ChatHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	var requestData api.ChatRequest
	if err := decodeBody(r, &requestData); err != nil || strings.TrimSpace(requestData.Message) == "" {
		WriteErrorResponse(w, http.StatusBadRequest, "", "message is required")
		return
	}
	resp, err := ragInstance.service.Chat(r.Context(), toOrchestratorRequest(requestData))
	if err != nil {
		writeServiceError(w, r, "", err)
		return
	}
	writeJsonResponse(w, http.StatusOK, resp)
}

// ChatStreamHandler godoc
// @Summary      Ask the assistant, streamed
// @Description  Server-sent events: one metadata event, chunk events, then done or error. Each event is a JSON object on a data line.
// @Tags         Messaging
// @Accept       json
// @Produce      text/event-stream
// @Param        request  body      api.ChatRequest  true  "Message, previous turns and optional model"
// @Success      200      {object}  orchestrator.Event
// @Failure      400      {object}  api.JobResponse
// @Failure      503      {object}  api.JobResponse  "Model unavailable, see error.hint"
// @Router       /chat/stream [post]
func ChatStreamHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	var requestData api.ChatRequest
	if err := decodeBody(r, &requestData); err != nil || strings.TrimSpace(requestData.Message) == "" {
		WriteErrorResponse(w, http.StatusBadRequest, "", "message is required")
		return
	}
	events, err := ragInstance.service.ChatStream(r.Context(), toOrchestratorRequest(requestData))
	if err != nil {
		writeServiceError(w, r, "", err)
		return
	}

	log := logger_i.FromContext(r.Context(), "RequestHandler")
	rc := http.NewResponseController(w)
	// the server write timeout would cut long answers
	_ = rc.SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	// returning cancels the request context, which stops the producer
	for event := range events {
		data, err := json.Marshal(event)
		if err != nil {
			log.Error("Could not encode event", "err", err)
			return
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			log.Warn("Client went away", "err", err)
			return
		}
		if err := rc.Flush(); err != nil {
			log.Warn("Flush failed", "err", err)
			return
		}
	}
}

// ModelsHandler godoc
// @Summary      Models served by the generation provider
// @Tags         Messaging
// @Produce      json
// @Success      200  {object}  api.ModelsResponse
// @Failure      503  {object}  api.JobResponse
// @Router       /chat/models [get]
func ModelsHandler(w http.ResponseWriter, r *http.Request) {
	models, err := ragInstance.service.Models(r.Context())
	if err != nil {
		writeServiceError(w, r, "", err)
		return
	}
	if models == nil {
		models = []string{}
	}
	writeJsonResponse(w, http.StatusOK, api.ModelsResponse{Models: models})
}

// RepairHandler godoc
// @Summary      Drop and recreate the vector collection
// @Description  Every document must be ingested again afterwards.
// @Tags         Admin
// @Produce      json
// @Success      200  {object}  api.StatusMessage
// @Router       /admin/repair [post]
func RepairHandler(w http.ResponseWriter, r *http.Request) {
	if err := ragInstance.service.RepairIndex(r.Context()); err != nil {
		writeServiceError(w, r, "", err)
		return
	}
	writeJsonResponse(w, http.StatusOK, api.StatusMessage{Status: "ok", Message: "Index recreated, ingest the documents again"})
}

// ContactsHandler godoc
// @Summary      Contact requests captured by the assistant
// @Tags         Admin
// @Produce      json
// @Success      200  {object}  api.ContactsResponse
// @Router       /admin/contacts [get]
func ContactsHandler(w http.ResponseWriter, r *http.Request) {
	contacts, err := ragInstance.service.Contacts(r.Context())
	if err != nil {
		writeServiceError(w, r, "", err)
		return
	}
	writeJsonResponse(w, http.StatusOK, api.ContactsResponse{Contacts: contacts, Total: len(contacts)})
}

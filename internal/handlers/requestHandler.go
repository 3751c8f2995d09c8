package handlers

import (
	"net/http"
	"os"
	"strings"

	"github.com/akolanti/CampusRAG/internal/adapter"
	"github.com/akolanti/CampusRAG/internal/adapter/utils"
	"github.com/akolanti/CampusRAG/internal/api"
	"github.com/akolanti/CampusRAG/internal/config"
	"github.com/akolanti/CampusRAG/internal/domain/jobModel"
	"github.com/akolanti/CampusRAG/pkg/logger_i"
)

// GetHandler godoc
// @Summary      Health check
// @Tags         Health
// @Produce      json
// @Success      200  {object}  api.StatusMessage
// @Router       /health [get]
func GetHandler(w http.ResponseWriter, r *http.Request) {
	writeJsonResponse(w, http.StatusOK, api.StatusMessage{Status: "ok"})
}

// GetStatusHandler godoc
// @Summary      Get job status
// @Description  Retrieves the current status of a background crawl or upload job, with its ingestion report once finished.
// @Tags         Job Status
// @Produce      json
// @Param        id   path      string  true  "Job ID"
// @Success      200  {object}  api.JobResponse   "Successful retrieval of job status"
// @Failure      404  {object}  api.JobResponse   "Job not found (returns Error object within JobResponse)"
// @Router       /status/{id} [get]
func GetStatusHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	idString := utils.GetChiURLParam(r, "id")
	result, isFound := validateId(idString, logger_i.TraceID(r.Context()))

	logRH.Debug("Get Status Request", "URL path", r.URL.Path)
	if !isFound {
		WriteErrorResponse(w, http.StatusNotFound, idString, "Job not found")
		return
	}

	writeJsonResponse(w, http.StatusOK, adapter.ToAPIResponse(result))
}

// PostIngestUploadHandler handles the uploading of documents for ingestion.
// @Summary      Upload a document for ingestion
// @Description  Receives a PDF, DOCX, TXT or MD file via multipart/form-data. The document is indexed under its name. With async=true a job is queued and its id returned.
// @Tags         Ingestion
// @Accept       multipart/form-data
// @Produce      json
// @Param        document       formData  file    true   "The file to upload"
// @Param        document_name  formData  string  false  "Name to index the document under, defaults to the file name"
// @Param        async          formData  bool    false  "Queue a background job instead of waiting"
// @Success      200  {object}  commonModels.IngestReport "Ingestion report"
// @Success      202  {object}  api.InitJobResponse "Accepted - returns job id"
// @Failure      400  {object}  api.JobResponse "Bad Request - Missing fields, file too large or unsupported"
// @Failure      500  {object}  api.JobResponse "Internal Server Error - Storage or Write Error"
// @Router       /ingest/upload [post]
func PostIngestUploadHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, config.MaxUploadSize)
	if err := r.ParseMultipartForm(config.MaxUploadSize); err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "", "File too large or bad request")
		return
	}

	fileReader, fileMetadata, err := r.FormFile("document")
	if err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "", "Could not retrieve file")
		return
	}
	defer fileReader.Close()

	docName := strings.TrimSpace(r.FormValue("document_name"))
	if docName == "" {
		docName = fileMetadata.Filename
	}

	tempFilePath, err := saveUpload(fileReader, docName)
	if err != nil {
		logger_i.FromContext(r.Context(), "RequestHandler").Error("Could not store upload", "err", err)
		WriteErrorResponse(w, http.StatusInternalServerError, docName, "Storage error")
		return
	}

	if isTrue(r.FormValue("async")) {
		queueJob(w, r, newJobData{jobType: jobModel.JobTypeUpload, uploadName: docName, uploadPath: tempFilePath})
		return
	}

	defer func() { _ = os.Remove(tempFilePath) }()
	report, err := ragInstance.service.IngestUpload(r.Context(), tempFilePath, docName)
	if err != nil {
		writeServiceError(w, r, docName, err)
		return
	}
	writeJsonResponse(w, http.StatusOK, report)
}

// PostIngestTextHandler godoc
// @Summary      Index pasted text
// @Tags         Ingestion
// @Accept       json
// @Produce      json
// @Param        request  body      api.IngestTextRequest  true  "Source id, optional title and text"
// @Success      200      {object}  commonModels.IngestReport
// @Failure      400      {object}  api.JobResponse
// @Router       /ingest/text [post]
func PostIngestTextHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	var requestData api.IngestTextRequest
	if err := decodeBody(r, &requestData); err != nil || strings.TrimSpace(requestData.SourceID) == "" || strings.TrimSpace(requestData.Text) == "" {
		WriteErrorResponse(w, http.StatusBadRequest, requestData.SourceID, "source_id and text are required")
		return
	}
	report, err := ragInstance.service.IngestText(r.Context(), requestData.SourceID, requestData.Title, requestData.Text)
	if err != nil {
		writeServiceError(w, r, requestData.SourceID, err)
		return
	}
	writeJsonResponse(w, http.StatusOK, report)
}

// PostIngestCrawlHandler godoc
// @Summary      Crawl and index web pages
// @Description  Fetches every seed URL not matching an exclude pattern and indexes the extracted text. With async=true a job is queued and its id returned.
// @Tags         Ingestion
// @Accept       json
// @Produce      json
// @Param        request  body      api.CrawlRequest  true  "Seed URLs, exclude patterns, concurrency"
// @Success      200      {object}  commonModels.IngestReport
// @Success      202      {object}  api.InitJobResponse
// @Failure      400      {object}  api.JobResponse
// @Router       /ingest/crawl [post]
func PostIngestCrawlHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	var requestData api.CrawlRequest
	if err := decodeBody(r, &requestData); err != nil || len(requestData.SeedURLs) == 0 {
		WriteErrorResponse(w, http.StatusBadRequest, "", "seed_urls is required")
		return
	}

	if requestData.Async {
		crawl := requestData.CrawlRequest
		queueJob(w, r, newJobData{jobType: jobModel.JobTypeCrawl, crawl: &crawl})
		return
	}

	report, err := ragInstance.service.IngestCrawl(r.Context(), requestData.CrawlRequest)
	if err != nil {
		writeServiceError(w, r, "", err)
		return
	}
	writeJsonResponse(w, http.StatusOK, report)
}

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/akolanti/CampusRAG/internal/adapter"
	"github.com/akolanti/CampusRAG/internal/adapter/utils"
	"github.com/akolanti/CampusRAG/internal/config"
	"github.com/akolanti/CampusRAG/internal/domain/jobModel"
	"github.com/akolanti/CampusRAG/pkg/logger_i"
)

var logRH = logger_i.NewLogger("RequestHandler")

var errBadPageParam = errors.New("offset and limit must be integers")

func writeJsonResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Log the error but can't send a clean status code now
		logRH.Error("Error encoding response", "err", err)
	}
}

func validateId(id string, traceId string) (result jobModel.Job, isFound bool) {
	if id == "" {
		logRH.Warn("Empty Job ID", "traceId", traceId)
		return jobModel.Job{}, false
	}
	return GetJobStatus(id, traceId)
}

func validateContext(ctx context.Context) bool {
	if err := ctx.Err(); err != nil {
		logger_i.FromContext(ctx, "RequestHandler").Warn("context error", "err", err)
		return false
	}
	return true
}

func WriteErrorResponse(w http.ResponseWriter, httpCode int, id string, error string) {
	writeJsonResponse(w, httpCode, adapter.BadRequest(id, error, httpCode))
}

// writeServiceError logs the real cause and answers with the public envelope.
func writeServiceError(w http.ResponseWriter, r *http.Request, id string, err error) {
	code, resp := adapter.FromError(id, err)
	log := logger_i.FromContext(r.Context(), "RequestHandler")
	if code >= http.StatusInternalServerError {
		log.Error("Request failed", "path", r.URL.Path, "code", code, "err", err)
	} else {
		log.Warn("Request rejected", "path", r.URL.Path, "code", code, "err", err)
	}
	writeJsonResponse(w, code, resp)
}

func decodeBody(r *http.Request, target any) error {
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			logRH.Error("Couldn't close the request body", "err", err)
		}
	}(r.Body)
	return json.NewDecoder(r.Body).Decode(target)
}

// pageParams reads offset and limit from the query string, both optional.
func pageParams(r *http.Request) (int, int, error) {
	offset, limit := 0, config.DefaultPageLimit
	if raw := r.URL.Query().Get("offset"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return 0, 0, errBadPageParam
		}
		offset = v
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return 0, 0, errBadPageParam
		}
		limit = v
	}
	return offset, limit, nil
}

func isTrue(raw string) bool {
	v, err := strconv.ParseBool(raw)
	return err == nil && v
}

func getTargetDirectory() (string, string) {
	root, err := os.Getwd()
	if err != nil {
		return "", "Storage Error"
	}

	targetDir := filepath.Join(root, config.TemporaryDataDir)
	if err := os.MkdirAll(targetDir, 0750); err != nil {
		return "", "Storage Error"
	}
	return targetDir, ""
}

// saveUpload copies the multipart file into the temporary directory under a unique name.
func saveUpload(src io.Reader, filename string) (string, error) {
	targetDir, errString := getTargetDirectory()
	if errString != "" {
		return "", errors.New(errString)
	}
	tempFilePath := filepath.Join(targetDir, fmt.Sprintf("%s-%s", utils.GetNewUUID(), filepath.Base(filename)))
	destinationFileWriter, err := os.Create(tempFilePath)
	if err != nil {
		return "", err
	}
	defer destinationFileWriter.Close()

	if _, err := io.Copy(destinationFileWriter, src); err != nil {
		_ = os.Remove(tempFilePath)
		return "", err
	}
	return tempFilePath, nil
}

func queueJob(w http.ResponseWriter, r *http.Request, data newJobData) {
	data.id = utils.GetNewUUID()
	data.traceId = logger_i.TraceID(r.Context())
	if !CreateNewJob(data) {
		WriteErrorResponse(w, http.StatusServiceUnavailable, "", "Background jobs are not available")
		return
	}
	writeJsonResponse(w, http.StatusAccepted, adapter.ToInitJobResponse(data.id))
}

package adapter

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/akolanti/CampusRAG/internal/api"
	"github.com/akolanti/CampusRAG/internal/domain/jobModel"
	"github.com/akolanti/CampusRAG/internal/domain/ragErrors"
)

func ToInitJobResponse(id string) api.InitJobResponse {
	return api.InitJobResponse{
		Id:        id,
		StatusURL: fmt.Sprintf("status/%s", id),
	}
}

func ToAPIResponse(job jobModel.Job) api.JobResponse {

	var errorPtr *api.JobOutgoingError
	if job.Error.Message != "" || job.Error.Code != 0 {
		errorPtr = &api.JobOutgoingError{
			Code:    job.Error.Code,
			Message: job.Error.Message,
			Retry:   job.Error.Retry,
		}
	}

	return api.JobResponse{
		Id:        job.Id,
		JobType:   string(job.JobType),
		StartTime: job.CreatedTime,
		EndTime:   job.EndTime,
		Error:     errorPtr,
		Result: api.Result{
			Status:      string(job.Status),
			CurrentStep: string(job.CurrentStep),
			Report:      job.JobPayload.Report,
		},
	}
}

func BadRequest(id string, error string, code int) api.JobResponse {
	return api.JobResponse{
		Id:        id,
		StartTime: time.Time{},
		EndTime:   time.Time{},
		Result: api.Result{
			Status: string(api.JobStatusError),
		},
		Error: &api.JobOutgoingError{
			Code:    code,
			Message: error,
			Retry:   false,
		},
	}
}

// FromError turns a service error into a status code and a message safe to show.
// Raw internal error text is never returned.
func FromError(id string, err error) (int, api.JobResponse) {
	if unavailable, ok := ragErrors.AsModelUnavailable(err); ok {
		resp := BadRequest(id, "The language model is unavailable", http.StatusServiceUnavailable)
		resp.Error.Hint = unavailable.Hint
		resp.Error.Retry = true
		return http.StatusServiceUnavailable, resp
	}

	var code int
	var message string
	retry := false
	switch {
	case errors.Is(err, ragErrors.ErrEmptyQuery):
		code, message = http.StatusBadRequest, "The query must not be empty"
	case errors.Is(err, ragErrors.ErrNoSeeds):
		code, message = http.StatusBadRequest, ragErrors.ErrNoSeeds.Error()
	case errors.Is(err, ragErrors.ErrUnsupportedFile):
		code, message = http.StatusBadRequest, "Unsupported file type, use PDF, DOCX, TXT or MD"
	case errors.Is(err, ragErrors.ErrSourceNotFound):
		code, message = http.StatusNotFound, "Source not found"
	case ragErrors.IsIndexCorruption(err):
		resp := BadRequest(id, "The vector index is corrupted", http.StatusServiceUnavailable)
		resp.Error.Hint = "POST /admin/repair then ingest the documents again"
		return http.StatusServiceUnavailable, resp
	case errors.Is(err, context.DeadlineExceeded):
		code, message, retry = http.StatusGatewayTimeout, "The request took too long, please try again", true
	default:
		code, message, retry = http.StatusInternalServerError, "Internal Server Error", true
	}
	resp := BadRequest(id, message, code)
	resp.Error.Retry = retry
	return code, resp
}

package rag

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/akolanti/CampusRAG/internal/domain/jobModel"
	"github.com/akolanti/CampusRAG/internal/domain/ragErrors"
	"github.com/akolanti/CampusRAG/pkg/logger_i"
)

func returnOutput(job jobModel.Job) jobModel.Job {
	job.CurrentStep = jobModel.Complete
	job.Status = jobModel.JobStatusComplete
	return job
}

func logOutput(job jobModel.Job, status jobModel.InternalStatus, log *logger_i.Logger) jobModel.Job {
	job.CurrentStep = status
	log.Debug("ProcessJob", "Current Status", job.CurrentStep)
	return job
}

func (s *service) jobError(job jobModel.Job, err error, message string) jobModel.Job {
	s.logger.Error(message, "JobId", job.Id, "error", err)

	code, text, retry := describeJobError(err)
	job.Error = jobModel.JobError{Code: code, Message: text, Retry: retry}
	job.Status = jobModel.JobStatusError
	job.CurrentStep = jobModel.Error
	return job
}

// describeJobError maps an ingestion error to what the job status endpoint shows.
func describeJobError(err error) (int, string, bool) {
	switch {
	case ragErrors.IsIndexCorruption(err):
		return http.StatusServiceUnavailable, ragErrors.ErrIndexCorruption.Error(), false
	case errors.Is(err, ragErrors.ErrUnsupportedFile), errors.Is(err, ragErrors.ErrNoSeeds):
		return http.StatusBadRequest, err.Error(), false
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "job timed out", true
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, "job cancelled", true
	}
	if unavailable, ok := ragErrors.AsModelUnavailable(err); ok {
		return http.StatusServiceUnavailable, unavailable.Hint, true
	}
	return http.StatusInternalServerError, "Internal Server Error", true
}

func errUnknownJobType(t jobModel.JobType) error {
	return fmt.Errorf("unknown job type %q", t)
}

// removeUpload deletes the temporary copy of an uploaded file once it has been processed.
func removeUpload(path string, log *logger_i.Logger) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn("Could not remove upload", "path", path, "error", err)
	}
}

package handlers

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/akolanti/CampusRAG/internal/config"
	"github.com/akolanti/CampusRAG/internal/domain/commonModels"
	"github.com/akolanti/CampusRAG/internal/domain/jobModel"
	"github.com/akolanti/CampusRAG/internal/job"
	"github.com/akolanti/CampusRAG/internal/metrics"
	"github.com/akolanti/CampusRAG/pkg/logger_i"
)

var (
	handlerInstance *JobHandler //private singleton
	once            sync.Once
	logJH           = logger_i.NewLogger("JobHandler")
)

type JobHandler struct {
	service *job.Service
}

// newJobData is what a request hands over to the queue.
type newJobData struct {
	id         string
	traceId    string
	jobType    jobModel.JobType
	crawl      *commonModels.CrawlRequest
	uploadName string
	uploadPath string
}

func InitJobHandler(jobService *job.Service) {
	once.Do(func() {
		handlerInstance = &JobHandler{service: jobService}
		logJH.Info("Starting job handler")
	})
}

// CreateNewJob persists the queued job then hands it to the worker pool.
func CreateNewJob(newJob newJobData) bool {
	if handlerInstance == nil {
		return false
	}
	logJH.Info("To create new job", "traceId", newJob.traceId, "JobId", newJob.id, "JobType", newJob.jobType)
	handlerInstance.pushToJobChannel(newJob)
	return true
}

func GetJobStatus(id string, traceId string) (result jobModel.Job, isFound bool) {
	ctxC := logger_i.WithTraceID(context.Background(), traceId)
	if handlerInstance != nil {
		return handlerInstance.service.JobStore.GetJob(ctxC, id)
	}
	return result, false
}

// private methods
func (h *JobHandler) pushToJobChannel(newJob newJobData) {

	_job := jobModel.Job{
		Id:          newJob.id,
		TraceId:     newJob.traceId,
		JobType:     newJob.jobType,
		CreatedTime: time.Now(),
		Status:      jobModel.JobStatusQueued,
	}

	switch newJob.jobType {
	case jobModel.JobTypeCrawl:
		_job.CurrentStep = jobModel.CrawlInit
		_job.JobPayload.Crawl = newJob.crawl
	case jobModel.JobTypeUpload:
		_job.CurrentStep = jobModel.IngestInit
		_job.JobPayload.UploadName = newJob.uploadName
		_job.JobPayload.UploadPath = newJob.uploadPath
	}

	// the status endpoint must find the job before a worker picks it up
	ctx := logger_i.WithTraceID(context.Background(), newJob.traceId)
	if err := h.service.JobStore.SaveJob(ctx, _job); err != nil {
		logJH.Error("Could not persist queued job", "JobId", _job.Id, "err", err)
	}

	metrics.IncrementJobsInQueue()

	h.service.JobChannel <- _job //this is a blocking send to prevent the system from being overwhelmed
	logJH.Debug("Created new job", "JobId", _job.Id)

	// a new worker every RequestsPerNewWorkerCount jobs, and one per crawl since
	// crawls hold a worker for minutes; idle workers retire on their own
	accurateCount := atomic.AddInt64(&h.service.RequestCount, 1)
	if accurateCount%config.RequestsPerNewWorkerCount == 0 || _job.JobType == jobModel.JobTypeCrawl {
		metrics.StartDispatcherSignalCount()
		logJH.Debug("Dispatcher signal", "requests", accurateCount)
		select {
		case h.service.DispatcherChannel <- true:
		default:
			// a signal is already pending
		}
	}
}

package worker

import (
	"context"
	"sync/atomic"
	"time"

	jobmodel "github.com/akolanti/CampusRAG/internal/domain/jobModel"
	"github.com/akolanti/CampusRAG/internal/metrics"
	"github.com/akolanti/CampusRAG/pkg/logger_i"
)

func executeJob(job jobmodel.Job) {
	start := time.Now()
	defer func() {
		metrics.CaptureJobMetrics(string(job.Status), time.Since(start))
	}()
	ctx, cancel := context.WithTimeout(logger_i.WithTraceID(context.Background(), job.TraceId), jobTimeout)
	defer cancel()
	log := logger_i.FromContext(ctx, "WorkerPool")
	log.Debug("Processing job", "JobId", job.Id, "JobType", job.JobType)

	job.Status = jobmodel.JobStatusRunning
	saveJobState(ctx, job)

	job = _processor.ProcessJob(ctx, job)

	job.EndTime = time.Now()
	if job.Status != jobmodel.JobStatusError {
		job.Status = jobmodel.JobStatusComplete
	}
	// the processing ctx may have expired, the final state must still be written
	saveCtx, saveCancel := context.WithTimeout(logger_i.WithTraceID(context.Background(), job.TraceId), 5*time.Second)
	defer saveCancel()
	saveJobState(saveCtx, job)
	log.Info("Job finished", "JobId", job.Id, "status", job.Status, "elapsed", time.Since(start))
}

func removeWorker(reason string) {
	atomic.AddInt64(&currentWorkerCount, -1)
	releaseWorker(reason)
}

// releaseWorker expects the worker count to be decremented already.
func releaseWorker(reason string) {
	workerWaitGroup.Done()
	metrics.DecrementActiveWorkerCount()
	logger.Info("Removed worker", "reason", reason, "workerCount", atomic.LoadInt64(&currentWorkerCount))
}

func saveJobState(ctx context.Context, job jobmodel.Job) {
	if err := _jobService.JobStore.SaveJob(ctx, job); err != nil {
		logger_i.FromContext(ctx, "WorkerPool").Error("Failed to update job state", "JobId", job.Id, "err", err)
	}
}

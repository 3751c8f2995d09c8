package jobModel

import (
	"context"
	"time"

	"github.com/akolanti/CampusRAG/internal/domain/commonModels"
)

type JobStatus string
type InternalStatus string

type JobType string

const (
	JobStatusQueued   JobStatus = "QUEUED"
	JobStatusRunning  JobStatus = "RUNNING"
	JobStatusComplete JobStatus = "COMPLETE"
	JobStatusError    JobStatus = "Error"

	CrawlInit     InternalStatus = "CrawlInit"
	CrawlFetching InternalStatus = "CrawlFetching"
	IngestInit    InternalStatus = "IngestInit"
	Extracting    InternalStatus = "Extracting"
	Error         InternalStatus = "Error"

	Complete InternalStatus = "Complete"

	JobTypeCrawl  JobType = "Crawl"
	JobTypeUpload JobType = "Upload"
)

type Job struct {
	Id          string         `json:"id"`
	TraceId     string         `json:"trace_id"`
	JobType     JobType        `json:"job_type"`
	JobPayload  JobPayload     `json:"job_payload"`
	Error       JobError       `json:"error,omitempty"`
	CreatedTime time.Time      `json:"created_time"`
	EndTime     time.Time      `json:"end_time,omitempty"`
	Status      JobStatus      `json:"status"`
	CurrentStep InternalStatus `json:"current_step"`
}

type JobError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Retry   bool   `json:"retry"`
}

type JobPayload struct {
	Crawl *commonModels.CrawlRequest `json:"crawl,omitempty"`

	UploadName string `json:"upload_name,omitempty"`
	UploadPath string `json:"upload_path,omitempty"`

	Report *commonModels.IngestReport `json:"report,omitempty"`
}

type JobStore interface {
	GetJob(ctx context.Context, jobId string) (Job, bool)
	SaveJob(ctx context.Context, job Job) error
	DeleteJob(ctx context.Context, jobID string)
}

package store

import (
	"context"
	"testing"
	"time"

	"github.com/akolanti/CampusRAG/internal/domain/jobModel"
)

func TestInMemoryJobStore_Expiry(t *testing.T) {
	clock := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	s := InitInMemoryJobStore()
	s.ttl = time.Hour
	s.now = func() time.Time { return clock }
	ctx := context.Background()

	_ = s.SaveJob(ctx, jobModel.Job{Id: "old", Status: jobModel.JobStatusComplete})
	clock = clock.Add(40 * time.Minute)
	_ = s.SaveJob(ctx, jobModel.Job{Id: "recent", Status: jobModel.JobStatusQueued})

	clock = clock.Add(30 * time.Minute)
	if _, found := s.GetJob(ctx, "old"); found {
		t.Error("job older than the ttl must not be returned")
	}
	if job, found := s.GetJob(ctx, "recent"); !found || job.Status != jobModel.JobStatusQueued {
		t.Errorf("recent job = %+v, found %v", job, found)
	}

	_ = s.SaveJob(ctx, jobModel.Job{Id: "trigger"})
	if _, kept := s.jobMap["old"]; kept {
		t.Error("expired jobs are dropped on save")
	}
}

package store

import (
	"context"
	"sync"
	"time"

	"github.com/akolanti/CampusRAG/internal/config"
	"github.com/akolanti/CampusRAG/internal/domain/jobModel"
	"github.com/akolanti/CampusRAG/pkg/logger_i"
)

var inMemLogger = logger_i.NewLogger("InMem JobStore")

type storedJob struct {
	job     jobModel.Job
	savedAt time.Time
}

// InMemoryJobStore stands in for redis when it is offline. Jobs expire after the
// same TTL as their redis keys.
type InMemoryJobStore struct {
	jobMutex *sync.RWMutex
	jobMap   map[string]storedJob
	ttl      time.Duration
	now      func() time.Time
}

func InitInMemoryJobStore() *InMemoryJobStore {
	return &InMemoryJobStore{
		jobMutex: new(sync.RWMutex),
		jobMap:   make(map[string]storedJob),
		ttl:      config.RedisJobStoreTTL,
		now:      time.Now,
	}
}

func (store *InMemoryJobStore) SaveJob(ctx context.Context, job jobModel.Job) error {
	store.jobMutex.Lock()
	defer store.jobMutex.Unlock()

	now := store.now()
	for id, stored := range store.jobMap {
		if now.Sub(stored.savedAt) > store.ttl {
			delete(store.jobMap, id)
		}
	}
	store.jobMap[job.Id] = storedJob{job: job, savedAt: now}
	inMemLogger.Debug("Saved job to store", "jobId", job.Id, "status", job.Status)
	return nil
}

func (store *InMemoryJobStore) GetJob(ctx context.Context, jobId string) (jobModel.Job, bool) {
	store.jobMutex.RLock()
	defer store.jobMutex.RUnlock()
	stored, found := store.jobMap[jobId]
	if !found || store.now().Sub(stored.savedAt) > store.ttl {
		return jobModel.Job{}, false
	}
	return stored.job, true
}

func (store *InMemoryJobStore) DeleteJob(ctx context.Context, jobID string) {
	store.jobMutex.Lock()
	defer store.jobMutex.Unlock()
	delete(store.jobMap, jobID)
}

package store

import (
	"context"
	"encoding/json"

	"github.com/akolanti/CampusRAG/internal/config"
	"github.com/akolanti/CampusRAG/internal/data/redisStore"
	"github.com/akolanti/CampusRAG/internal/domain/jobModel"
	"github.com/akolanti/CampusRAG/pkg/logger_i"
)

const jobKeyPrefix = "job:"

type RedisJobStore struct {
	store *redisStore.Store
}

// GetRedisJobStore returns nil when redis is offline so the caller can fall back to memory.
func GetRedisJobStore(ctx context.Context) *RedisJobStore {
	s := redisStore.GetRedisStore(ctx, config.RedisJobStore)
	if s == nil {
		return nil
	}
	return &RedisJobStore{store: s}
}

func (s *RedisJobStore) SaveJob(ctx context.Context, job jobModel.Job) error {
	log := logger_i.FromContext(ctx, "JobStore").With("jobId", job.Id)
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}

	err = s.store.Set(ctx, jobKeyPrefix+job.Id, data, config.RedisJobStoreTTL)
	if err == nil {
		log.Debug("Saved job to Redis", "status", job.Status)
	}
	return err
}

func (s *RedisJobStore) GetJob(ctx context.Context, jobId string) (jobModel.Job, bool) {
	var job jobModel.Job
	log := logger_i.FromContext(ctx, "JobStore").With("jobId", jobId)

	val, err := s.store.Get(ctx, jobKeyPrefix+jobId)
	if s.store.IsNil(err) {
		return job, false
	} else if err != nil {
		log.Error("Failed to read job", "error", err)
		return job, false
	}

	if err = json.Unmarshal([]byte(val), &job); err != nil {
		log.Error("Stored job is not valid json", "error", err)
		return job, false
	}
	return job, true
}

func (s *RedisJobStore) DeleteJob(ctx context.Context, jobID string) {
	log := logger_i.FromContext(ctx, "JobStore").With("jobId", jobID)
	if err := s.store.Del(ctx, jobKeyPrefix+jobID); err != nil {
		log.Error("Error deleting job from Redis", "error", err)
		return
	}
	log.Debug("Job deleted from Redis")
}

func TestJobStore(store *redisStore.Store) *RedisJobStore {
	return &RedisJobStore{store: store}
}

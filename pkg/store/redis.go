package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	pferrors "github.com/otherjamesbrown/meeting-insights/pkg/errors"
	"github.com/otherjamesbrown/meeting-insights/pkg/pipeline"
)

const jobKeyPrefix = "meeting_insights:job:"

// StatusCache mirrors job snapshots into Redis so status polling works from
// any process, not just the one running the pipeline.
type StatusCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStatusCache wraps a Redis client. Entries expire after ttl; zero means
// 24 hours.
func NewStatusCache(client *redis.Client, ttl time.Duration) *StatusCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &StatusCache{client: client, ttl: ttl}
}

// SetJob stores a job snapshot.
func (c *StatusCache) SetJob(ctx context.Context, job *pipeline.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode job: %w", err)
	}
	if err := c.client.Set(ctx, jobKeyPrefix+job.MeetingID, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache job: %w", err)
	}
	return nil
}

// GetJob fetches a job snapshot.
func (c *StatusCache) GetJob(ctx context.Context, meetingID string) (*pipeline.Job, error) {
	data, err := c.client.Get(ctx, jobKeyPrefix+meetingID).Bytes()
	if err == redis.Nil {
		return nil, fmt.Errorf("meeting %s: %w", meetingID, pferrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("fetch job: %w", err)
	}

	var job pipeline.Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("decode job: %w", err)
	}
	return &job, nil
}

// DeleteJob removes a job snapshot.
func (c *StatusCache) DeleteJob(ctx context.Context, meetingID string) error {
	return c.client.Del(ctx, jobKeyPrefix+meetingID).Err()
}

package jobqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/contentswap/contentswap/internal/pkg/cache"
	"github.com/contentswap/contentswap/internal/pkg/faceswap"
)

const (
	SwapJobKeyPrefix = "swap:"
	// SwapJobTTL keeps finished swaps queryable for a day before Redis
	// drops them. Results live in object storage, not here.
	SwapJobTTL = 24 * time.Hour
)

// ErrSwapJobNotFound is returned when a swap id is unknown or expired.
var ErrSwapJobNotFound = errors.New("swap job not found")

// SwapJob is the client-visible state of one face swap run. It lives only
// in Redis; the durable usage accounting happens in the database.
type SwapJob struct {
	ID           string          `json:"id"`
	UserID       uint            `json:"user_id"`
	Quality      string          `json:"quality"`
	Model        string          `json:"model"`
	PredictionID string          `json:"prediction_id"`
	Status       faceswap.Status `json:"status"`
	OutputURL    string          `json:"output_url,omitempty"`
	ErrorMsg     string          `json:"error,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty"`
}

// MarkTerminal records the final state of a run.
func (s *SwapJob) MarkTerminal(status faceswap.Status, outputURL, errorMsg string) {
	now := time.Now()
	s.Status = status
	s.OutputURL = outputURL
	s.ErrorMsg = errorMsg
	s.UpdatedAt = now
	s.CompletedAt = &now
}

// SwapStore persists swap jobs in Redis.
type SwapStore struct {
	client *redis.Client
}

func NewSwapStore() *SwapStore {
	return &SwapStore{client: cache.GetClient()}
}

func swapJobKey(id string) string {
	return SwapJobKeyPrefix + id
}

func (s *SwapStore) Save(ctx context.Context, job *SwapJob) error {
	job.UpdatedAt = time.Now()
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal swap job: %w", err)
	}
	if err := s.client.Set(ctx, swapJobKey(job.ID), data, SwapJobTTL).Err(); err != nil {
		return fmt.Errorf("failed to store swap job %s: %w", job.ID, err)
	}
	return nil
}

func (s *SwapStore) Get(ctx context.Context, id string) (*SwapJob, error) {
	data, err := s.client.Get(ctx, swapJobKey(id)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrSwapJobNotFound
		}
		return nil, err
	}

	var job SwapJob
	if err := json.Unmarshal([]byte(data), &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal swap job %s: %w", id, err)
	}
	return &job, nil
}

package jobqueue

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/contentswap/contentswap/internal/pkg/faceswap"
	metrics "github.com/contentswap/contentswap/internal/pkg/metrics/counter"
)

const (
	// MaxPollAttempts caps how often a single swap is polled before the
	// upstream run is canceled. Combined with the poll delays this bounds
	// a swap to roughly five minutes.
	MaxPollAttempts = 60
)

// Poller is the part of the inference client the queue needs.
type Poller interface {
	GetPrediction(ctx context.Context, id string) (*faceswap.Prediction, error)
	CancelPrediction(ctx context.Context, id string) error
}

// pollDelay spaces out polls. Fresh runs are checked quickly, long running
// ones back off to a steady interval.
func pollDelay(attempt int) time.Duration {
	switch {
	case attempt < 5:
		return 2 * time.Second
	case attempt < 15:
		return 3 * time.Second
	default:
		return 5 * time.Second
	}
}

// processSwapPollJob checks one inference run and either finalizes the swap
// or schedules the next poll.
func (q *Queue) processSwapPollJob(ctx context.Context, job *Job) error {
	payload, err := SwapPollJobPayloadFromMap(job.Payload)
	if err != nil {
		return fmt.Errorf("invalid swap poll payload: %w", err)
	}

	swap, err := q.swaps.Get(ctx, payload.SwapID)
	if err != nil {
		// Swap record expired or gone; nothing left to poll for.
		if err == ErrSwapJobNotFound {
			log.Warnf("[JobQueue] Swap %s vanished, dropping poll job", payload.SwapID)
			return nil
		}
		return err
	}

	pred, err := q.poller.GetPrediction(ctx, payload.PredictionID)
	if err != nil {
		return fmt.Errorf("poll prediction %s: %w", payload.PredictionID, err)
	}

	status := pred.Status()
	if status.Terminal() {
		errMsg := pred.Error
		if status == faceswap.StatusFailed && errMsg == "" {
			errMsg = "inference failed"
		}
		swap.MarkTerminal(status, pred.OutputURL(), errMsg)
		if err := q.swaps.Save(ctx, swap); err != nil {
			return err
		}
		if merr := metrics.AddSwapResult(swap.Model, string(status)); merr != nil {
			log.Errorf("[JobQueue] Failed to count swap result: %v", merr)
		}
		log.Infof("[JobQueue] Swap %s finished with status %s", swap.ID, status)
		return nil
	}

	attempt := payload.Attempt + 1
	if attempt >= MaxPollAttempts {
		log.Warnf("[JobQueue] Swap %s exceeded %d polls, canceling upstream run", swap.ID, MaxPollAttempts)
		if cerr := q.poller.CancelPrediction(ctx, payload.PredictionID); cerr != nil {
			log.Errorf("[JobQueue] Failed to cancel prediction %s: %v", payload.PredictionID, cerr)
		}
		swap.MarkTerminal(faceswap.StatusFailed, "", "timed out waiting for result")
		if err := q.swaps.Save(ctx, swap); err != nil {
			return err
		}
		if merr := metrics.AddSwapResult(swap.Model, string(faceswap.StatusFailed)); merr != nil {
			log.Errorf("[JobQueue] Failed to count swap result: %v", merr)
		}
		return nil
	}

	// Surface intermediate progress to status queries.
	if swap.Status != status {
		swap.Status = status
		if err := q.swaps.Save(ctx, swap); err != nil {
			return err
		}
	}

	q.schedulePoll(ctx, job, SwapPollJobPayload{
		SwapID:       payload.SwapID,
		PredictionID: payload.PredictionID,
		Attempt:      attempt,
	})
	return ErrRequeue
}

// schedulePoll rewrites the job payload and pushes the job back onto the
// queue after the backoff delay.
func (q *Queue) schedulePoll(ctx context.Context, job *Job, payload SwapPollJobPayload) {
	job.Status = JobStatusPending
	job.Payload = payload.ToMap()
	job.UpdatedAt = time.Now()
	q.updateJob(ctx, job)
	q.removeFromProcessing(ctx, job.ID)

	time.AfterFunc(pollDelay(payload.Attempt), func() {
		if err := q.client.LPush(context.Background(), JobQueueKey, job.ID).Err(); err != nil {
			log.Errorf("[JobQueue] Failed to reschedule poll for job %s: %v", job.ID, err)
		}
	})
}

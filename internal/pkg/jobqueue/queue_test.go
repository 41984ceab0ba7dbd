package jobqueue

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/contentswap/contentswap/internal/pkg/cache"
	"github.com/contentswap/contentswap/internal/pkg/faceswap"
)

func setupTestRedis(t *testing.T) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache.SetClient(client)
	t.Cleanup(func() { _ = client.Close() })
}

type fakePoller struct {
	prediction *Prediction
	err        error
	canceled   []string
}

// Prediction aliases the inference client's type for brevity in tests.
type Prediction = faceswap.Prediction

func (f *fakePoller) GetPrediction(ctx context.Context, id string) (*faceswap.Prediction, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.prediction, nil
}

func (f *fakePoller) CancelPrediction(ctx context.Context, id string) error {
	f.canceled = append(f.canceled, id)
	return nil
}

func newTestSwap() *SwapJob {
	return &SwapJob{
		ID:           uuid.New().String(),
		UserID:       7,
		Quality:      faceswap.QualityStandard,
		Model:        "codeplugtech/face-swap",
		PredictionID: "pred_abc",
		Status:       faceswap.StatusQueued,
	}
}

func TestSwapStoreRoundTrip(t *testing.T) {
	setupTestRedis(t)
	store := NewSwapStore()
	ctx := context.Background()

	swap := newTestSwap()
	if err := store.Save(ctx, swap); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := store.Get(ctx, swap.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.UserID != 7 || got.PredictionID != "pred_abc" {
		t.Fatalf("stored swap = %+v", got)
	}
	if got.Status != faceswap.StatusQueued {
		t.Fatalf("status = %q", got.Status)
	}
}

func TestSwapStoreNotFound(t *testing.T) {
	setupTestRedis(t)
	store := NewSwapStore()

	if _, err := store.Get(context.Background(), "missing"); err != ErrSwapJobNotFound {
		t.Fatalf("expected ErrSwapJobNotFound, got %v", err)
	}
}

func TestEnqueueSwapPoll(t *testing.T) {
	setupTestRedis(t)
	q := NewQueue(1, &fakePoller{})
	ctx := context.Background()

	swap := newTestSwap()
	job, err := q.EnqueueSwapPoll(ctx, swap)
	if err != nil {
		t.Fatalf("EnqueueSwapPoll: %v", err)
	}
	if job.Type != JobTypeSwapPoll {
		t.Fatalf("job type = %q", job.Type)
	}

	size, err := q.GetQueueSize(ctx)
	if err != nil {
		t.Fatalf("GetQueueSize: %v", err)
	}
	if size != 1 {
		t.Fatalf("queue size = %d, want 1", size)
	}

	stored, err := q.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if stored.Payload["swap_id"] != swap.ID {
		t.Fatalf("payload swap_id = %v", stored.Payload["swap_id"])
	}
}

func TestProcessSwapPollJobSucceeded(t *testing.T) {
	setupTestRedis(t)
	poller := &fakePoller{prediction: &faceswap.Prediction{
		ID:        "pred_abc",
		RawStatus: "succeeded",
		Output:    []byte(`"https://replicate.delivery/out.jpg"`),
	}}
	q := NewQueue(1, poller)
	ctx := context.Background()

	swap := newTestSwap()
	if err := q.swaps.Save(ctx, swap); err != nil {
		t.Fatalf("Save: %v", err)
	}

	job := &Job{
		ID:      uuid.New().String(),
		Type:    JobTypeSwapPoll,
		Payload: SwapPollJobPayload{SwapID: swap.ID, PredictionID: "pred_abc"}.ToMap(),
	}
	if err := q.processSwapPollJob(ctx, job); err != nil {
		t.Fatalf("processSwapPollJob: %v", err)
	}

	got, err := q.swaps.Get(ctx, swap.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != faceswap.StatusSucceeded {
		t.Fatalf("status = %q, want succeeded", got.Status)
	}
	if got.OutputURL != "https://replicate.delivery/out.jpg" {
		t.Fatalf("output url = %q", got.OutputURL)
	}
	if got.CompletedAt == nil {
		t.Fatal("completed_at not set")
	}
}

func TestProcessSwapPollJobStillRunningReschedules(t *testing.T) {
	setupTestRedis(t)
	poller := &fakePoller{prediction: &faceswap.Prediction{ID: "pred_abc", RawStatus: "processing"}}
	q := NewQueue(1, poller)
	ctx := context.Background()

	swap := newTestSwap()
	if err := q.swaps.Save(ctx, swap); err != nil {
		t.Fatalf("Save: %v", err)
	}

	job := &Job{
		ID:      uuid.New().String(),
		Type:    JobTypeSwapPoll,
		Payload: SwapPollJobPayload{SwapID: swap.ID, PredictionID: "pred_abc"}.ToMap(),
	}
	if err := q.processSwapPollJob(ctx, job); err != ErrRequeue {
		t.Fatalf("expected ErrRequeue, got %v", err)
	}

	got, err := q.swaps.Get(ctx, swap.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != faceswap.StatusRunning {
		t.Fatalf("status = %q, want running", got.Status)
	}

	payload, err := SwapPollJobPayloadFromMap(job.Payload)
	if err != nil {
		t.Fatalf("payload: %v", err)
	}
	if payload.Attempt != 1 {
		t.Fatalf("attempt = %d, want 1", payload.Attempt)
	}
}

func TestProcessSwapPollJobTimesOut(t *testing.T) {
	setupTestRedis(t)
	poller := &fakePoller{prediction: &faceswap.Prediction{ID: "pred_abc", RawStatus: "processing"}}
	q := NewQueue(1, poller)
	ctx := context.Background()

	swap := newTestSwap()
	if err := q.swaps.Save(ctx, swap); err != nil {
		t.Fatalf("Save: %v", err)
	}

	job := &Job{
		ID:   uuid.New().String(),
		Type: JobTypeSwapPoll,
		Payload: SwapPollJobPayload{
			SwapID:       swap.ID,
			PredictionID: "pred_abc",
			Attempt:      MaxPollAttempts - 1,
		}.ToMap(),
	}
	if err := q.processSwapPollJob(ctx, job); err != nil {
		t.Fatalf("processSwapPollJob: %v", err)
	}

	if len(poller.canceled) != 1 || poller.canceled[0] != "pred_abc" {
		t.Fatalf("canceled = %v, want [pred_abc]", poller.canceled)
	}

	got, err := q.swaps.Get(ctx, swap.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != faceswap.StatusFailed {
		t.Fatalf("status = %q, want failed", got.Status)
	}
	if got.ErrorMsg == "" {
		t.Fatal("expected a timeout error message")
	}
}

func TestProcessSwapPollJobUpstreamError(t *testing.T) {
	setupTestRedis(t)
	poller := &fakePoller{err: errors.New("connection refused")}
	q := NewQueue(1, poller)
	ctx := context.Background()

	swap := newTestSwap()
	if err := q.swaps.Save(ctx, swap); err != nil {
		t.Fatalf("Save: %v", err)
	}

	job := &Job{
		ID:      uuid.New().String(),
		Type:    JobTypeSwapPoll,
		Payload: SwapPollJobPayload{SwapID: swap.ID, PredictionID: "pred_abc"}.ToMap(),
	}
	if err := q.processSwapPollJob(ctx, job); err == nil {
		t.Fatal("expected upstream error to surface")
	}
}

package controllers

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/contentswap/contentswap/app/models"
	"github.com/contentswap/contentswap/app/repository"
	"github.com/contentswap/contentswap/internal/pkg/faceswap"
	"github.com/contentswap/contentswap/internal/pkg/imageprep"
	"github.com/contentswap/contentswap/internal/pkg/jobqueue"
	"github.com/contentswap/contentswap/internal/pkg/objectstore"
	"github.com/contentswap/contentswap/internal/pkg/quota"
	"github.com/contentswap/contentswap/internal/pkg/usercontext"
)

func swapTracker() *quota.Tracker {
	repos := repository.GetGlobalRepositories()
	return quota.NewTracker(repos.Subscription, repos.Usage)
}

// HandleCreateSwap accepts two images, reserves one quota slot and
// starts an inference run. The slot is returned if anything fails
// before the run is queued.
func HandleCreateSwap(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	userID := userCtx.UserID

	quality := c.FormValue("quality")
	model, err := faceswap.ModelForQuality(quality)
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_quality", err.Error())
	}
	if quality == "" {
		quality = faceswap.QualityStandard
	}

	sourceData, err := readImageFile(c, "source")
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_source", err.Error())
	}
	targetData, err := readImageFile(c, "target")
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_target", err.Error())
	}

	tracker := swapTracker()
	decision, err := tracker.Reserve(userID, models.UsageTypeFaceSwap)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_error", "could not check usage")
	}
	if !decision.CanUse {
		status := fiber.StatusTooManyRequests
		code := "quota_exceeded"
		switch {
		case decision.Plan == quota.PlanNone:
			status = fiber.StatusForbidden
			code = "no_subscription"
		case decision.CurrentUsage < decision.Limit:
			// Paid plan without an active subscription
			status = fiber.StatusForbidden
			code = "subscription_inactive"
		}
		return c.Status(status).JSON(fiber.Map{
			"error":   code,
			"message": "face swap not available on your current plan",
			"usage":   decision,
		})
	}

	// Past this point a failed step must give the slot back
	releaseSlot := func() {
		if err := tracker.Release(userID, models.UsageTypeFaceSwap); err != nil {
			log.Printf("[Swap] failed to release quota slot for user %d: %v", userID, err)
		}
	}

	sourceImg, err := imageprep.Prepare(sourceData)
	if err != nil {
		releaseSlot()
		return jsonError(c, fiber.StatusBadRequest, "invalid_source", err.Error())
	}
	targetImg, err := imageprep.Prepare(targetData)
	if err != nil {
		releaseSlot()
		return jsonError(c, fiber.StatusBadRequest, "invalid_target", err.Error())
	}

	swapID := uuid.New().String()
	ctx, cancel := context.WithTimeout(c.Context(), 60*time.Second)
	defer cancel()

	sourceURL, err := uploadSwapInput(ctx, swapID, "source", sourceImg)
	if err != nil {
		releaseSlot()
		log.Printf("[Swap] source upload failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "upload_failed", "could not store source image")
	}
	targetURL, err := uploadSwapInput(ctx, swapID, "target", targetImg)
	if err != nil {
		releaseSlot()
		log.Printf("[Swap] target upload failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "upload_failed", "could not store target image")
	}

	prediction, err := faceswap.NewClientFromEnv().CreatePrediction(ctx, quality, sourceURL, targetURL)
	if err != nil {
		releaseSlot()
		log.Printf("[Swap] prediction create failed: %v", err)
		return jsonError(c, fiber.StatusBadGateway, "inference_failed", "could not start face swap")
	}

	now := time.Now()
	swap := &jobqueue.SwapJob{
		ID:           swapID,
		UserID:       userID,
		Quality:      quality,
		Model:        model.Ref,
		PredictionID: prediction.ID,
		Status:       prediction.Status(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if _, err := jobqueue.GetManager().GetQueue().EnqueueSwapPoll(ctx, swap); err != nil {
		releaseSlot()
		log.Printf("[Swap] enqueue failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_error", "could not queue face swap")
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"id":         swap.ID,
		"status":     string(swap.Status),
		"quality":    swap.Quality,
		"created_at": swap.CreatedAt.Format(time.RFC3339),
		"usage":      decision,
	})
}

// HandleGetSwap returns the state of one swap run owned by the caller
func HandleGetSwap(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	swapID := c.Params("id")
	if swapID == "" {
		return jsonError(c, fiber.StatusBadRequest, "invalid_id", "swap id is required")
	}

	swap, err := jobqueue.NewSwapStore().Get(c.Context(), swapID)
	if err == jobqueue.ErrSwapJobNotFound {
		return jsonError(c, fiber.StatusNotFound, "not_found", "swap not found")
	}
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_error", "could not load swap")
	}
	if swap.UserID != userCtx.UserID {
		// Do not leak existence of other users' runs
		return jsonError(c, fiber.StatusNotFound, "not_found", "swap not found")
	}

	resp := fiber.Map{
		"id":         swap.ID,
		"status":     string(swap.Status),
		"quality":    swap.Quality,
		"created_at": swap.CreatedAt.Format(time.RFC3339),
		"updated_at": swap.UpdatedAt.Format(time.RFC3339),
	}
	if swap.OutputURL != "" {
		resp["output_url"] = swap.OutputURL
	}
	if swap.ErrorMsg != "" {
		resp["error"] = swap.ErrorMsg
	}
	if swap.CompletedAt != nil {
		resp["completed_at"] = swap.CompletedAt.Format(time.RFC3339)
	}
	return c.JSON(resp)
}

func readImageFile(c *fiber.Ctx, field string) ([]byte, error) {
	fileHeader, err := c.FormFile(field)
	if err != nil {
		// accept the camelCase field names some clients send
		fileHeader, err = c.FormFile(field + "Image")
	}
	if err != nil {
		return nil, fmt.Errorf("missing %s image", field)
	}
	if fileHeader.Size > imageprep.MaxUploadBytes {
		return nil, imageprep.ErrTooLarge
	}
	f, err := fileHeader.Open()
	if err != nil {
		return nil, fmt.Errorf("could not open %s image", field)
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, imageprep.MaxUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("could not read %s image", field)
	}
	if int64(len(data)) > imageprep.MaxUploadBytes {
		return nil, imageprep.ErrTooLarge
	}
	return data, nil
}

// uploadSwapInput stores one prepared image and returns a presigned
// URL the inference provider can fetch it from.
func uploadSwapInput(ctx context.Context, swapID, role string, img *imageprep.Prepared) (string, error) {
	store, err := objectstore.GetClient()
	if err != nil {
		return "", err
	}
	now := time.Now()
	key := store.Config().SwapInputKey(swapID, role, img.Ext, now.Year(), int(now.Month()))
	if err := store.PutImage(ctx, key, img.ContentType, img.Data); err != nil {
		return "", err
	}
	return store.PresignGet(ctx, key)
}

package faceswap

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/contentswap/contentswap/internal/pkg/env"
)

const defaultReplicateAPIBaseURL = "https://api.replicate.com/v1"

// Status is the provider-independent job state exposed to clients.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusCanceled  Status = "canceled"
)

// Terminal reports whether the status can no longer change.
func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed || s == StatusCanceled
}

// NormalizeStatus maps Replicate's prediction states onto the exposed ones.
// Replicate reports "starting" before a machine is assigned and "processing"
// while the model runs.
func NormalizeStatus(raw string) Status {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "starting":
		return StatusQueued
	case "processing":
		return StatusRunning
	case "succeeded":
		return StatusSucceeded
	case "failed":
		return StatusFailed
	case "canceled":
		return StatusCanceled
	default:
		return StatusQueued
	}
}

// Quality selects which hosted model runs the swap.
const (
	QualityStandard = "standard"
	QualityHigh     = "high"
)

// Model describes one hosted face swap model and how its input is shaped.
type Model struct {
	// Ref is the owner/name path of the model on Replicate.
	Ref string
	// SwapKey and TargetKey name the image inputs. The models disagree on
	// the target field name, so it stays per model.
	SwapKey   string
	TargetKey string
}

var modelsByQuality = map[string]Model{
	QualityStandard: {
		Ref:       "codeplugtech/face-swap",
		SwapKey:   "swap_image",
		TargetKey: "input_image",
	},
	QualityHigh: {
		Ref:       "easel/advanced-face-swap",
		SwapKey:   "swap_image",
		TargetKey: "target_image",
	},
}

// ModelForQuality resolves a requested quality tier to a hosted model.
func ModelForQuality(quality string) (Model, error) {
	q := strings.ToLower(strings.TrimSpace(quality))
	if q == "" {
		q = QualityStandard
	}
	m, ok := modelsByQuality[q]
	if !ok {
		return Model{}, fmt.Errorf("unknown quality %q", quality)
	}
	return m, nil
}

// Prediction is the state of one inference run on Replicate.
type Prediction struct {
	ID        string          `json:"id"`
	Model     string          `json:"model"`
	RawStatus string          `json:"status"`
	Output    json.RawMessage `json:"output"`
	Error     string          `json:"error"`
}

// Status returns the normalized state.
func (p *Prediction) Status() Status {
	return NormalizeStatus(p.RawStatus)
}

// OutputURL extracts the result image URL. Replicate models return either a
// single URL string or a list of them.
func (p *Prediction) OutputURL() string {
	if len(p.Output) == 0 {
		return ""
	}
	var single string
	if err := json.Unmarshal(p.Output, &single); err == nil {
		return single
	}
	var list []string
	if err := json.Unmarshal(p.Output, &list); err == nil && len(list) > 0 {
		return list[0]
	}
	return ""
}

// Client talks to the Replicate predictions API.
type Client struct {
	APIToken   string
	APIBaseURL string

	HTTPClient *http.Client
}

func NewClientFromEnv() *Client {
	return &Client{
		APIToken:   strings.TrimSpace(env.GetEnv("REPLICATE_API_TOKEN", "")),
		APIBaseURL: strings.TrimSpace(env.GetEnv("REPLICATE_API_BASE_URL", defaultReplicateAPIBaseURL)),
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *Client) do(ctx context.Context, method, path string, payload interface{}) (int, []byte, error) {
	if strings.TrimSpace(c.APIToken) == "" {
		return 0, nil, errors.New("REPLICATE_API_TOKEN is not configured")
	}

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, err
		}
		body = bytes.NewReader(raw)
	}

	url := strings.TrimRight(c.APIBaseURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.APIToken)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	out, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	return resp.StatusCode, out, nil
}

// CreatePrediction starts a swap run. swapURL is the face source image and
// targetURL the image the face is placed into; both must be reachable by
// Replicate, so presigned object storage links are used.
func (c *Client) CreatePrediction(ctx context.Context, quality, swapURL, targetURL string) (*Prediction, error) {
	if strings.TrimSpace(swapURL) == "" || strings.TrimSpace(targetURL) == "" {
		return nil, errors.New("both source and target image URLs are required")
	}

	model, err := ModelForQuality(quality)
	if err != nil {
		return nil, err
	}

	payload := map[string]interface{}{
		"input": map[string]string{
			model.SwapKey:   swapURL,
			model.TargetKey: targetURL,
		},
	}

	status, body, err := c.do(ctx, http.MethodPost, "/models/"+model.Ref+"/predictions", payload)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, fmt.Errorf("replicate create prediction failed: status=%d body=%s", status, string(body))
	}

	var pred Prediction
	if err := json.Unmarshal(body, &pred); err != nil {
		return nil, err
	}
	if strings.TrimSpace(pred.ID) == "" {
		return nil, errors.New("replicate returned a prediction without id")
	}
	return &pred, nil
}

// GetPrediction fetches the current state of a run.
func (c *Client) GetPrediction(ctx context.Context, id string) (*Prediction, error) {
	if strings.TrimSpace(id) == "" {
		return nil, errors.New("prediction id is required")
	}

	status, body, err := c.do(ctx, http.MethodGet, "/predictions/"+id, nil)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, fmt.Errorf("replicate get prediction failed: status=%d body=%s", status, string(body))
	}

	var pred Prediction
	if err := json.Unmarshal(body, &pred); err != nil {
		return nil, err
	}
	return &pred, nil
}

// CancelPrediction asks Replicate to stop a run. Cancelling an already
// finished run is not an error.
func (c *Client) CancelPrediction(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return errors.New("prediction id is required")
	}

	status, body, err := c.do(ctx, http.MethodPost, "/predictions/"+id+"/cancel", nil)
	if err != nil {
		return err
	}
	if (status < 200 || status >= 300) && status != http.StatusNotFound {
		return fmt.Errorf("replicate cancel prediction failed: status=%d body=%s", status, string(body))
	}
	return nil
}

package faceswap

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNormalizeStatus(t *testing.T) {
	tests := []struct {
		in   string
		want Status
	}{
		{in: "starting", want: StatusQueued},
		{in: "processing", want: StatusRunning},
		{in: "succeeded", want: StatusSucceeded},
		{in: "failed", want: StatusFailed},
		{in: "canceled", want: StatusCanceled},
		{in: "Processing", want: StatusRunning},
		{in: "", want: StatusQueued},
		{in: "unknown_state", want: StatusQueued},
	}

	for _, tt := range tests {
		if got := NormalizeStatus(tt.in); got != tt.want {
			t.Fatalf("NormalizeStatus(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestStatusTerminal(t *testing.T) {
	for _, s := range []Status{StatusSucceeded, StatusFailed, StatusCanceled} {
		if !s.Terminal() {
			t.Fatalf("expected %q to be terminal", s)
		}
	}
	for _, s := range []Status{StatusQueued, StatusRunning} {
		if s.Terminal() {
			t.Fatalf("expected %q to not be terminal", s)
		}
	}
}

func TestModelForQuality(t *testing.T) {
	m, err := ModelForQuality("high")
	if err != nil {
		t.Fatalf("ModelForQuality(high): %v", err)
	}
	if m.Ref != "easel/advanced-face-swap" {
		t.Fatalf("high quality model = %q", m.Ref)
	}

	m, err = ModelForQuality("")
	if err != nil {
		t.Fatalf("ModelForQuality(empty): %v", err)
	}
	if m.Ref != "codeplugtech/face-swap" {
		t.Fatalf("default model = %q", m.Ref)
	}

	if _, err := ModelForQuality("ultra"); err == nil {
		t.Fatal("expected unknown quality to error")
	}
}

func TestPredictionOutputURL(t *testing.T) {
	p := &Prediction{Output: json.RawMessage(`"https://replicate.delivery/out.jpg"`)}
	if got := p.OutputURL(); got != "https://replicate.delivery/out.jpg" {
		t.Fatalf("string output = %q", got)
	}

	p = &Prediction{Output: json.RawMessage(`["https://replicate.delivery/a.jpg","https://replicate.delivery/b.jpg"]`)}
	if got := p.OutputURL(); got != "https://replicate.delivery/a.jpg" {
		t.Fatalf("list output = %q", got)
	}

	p = &Prediction{}
	if got := p.OutputURL(); got != "" {
		t.Fatalf("empty output = %q", got)
	}
}

func TestCreatePrediction(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody map[string]map[string]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"pred_abc","model":"codeplugtech/face-swap","status":"starting"}`))
	}))
	defer srv.Close()

	c := &Client{APIToken: "r8_test", APIBaseURL: srv.URL, HTTPClient: srv.Client()}
	pred, err := c.CreatePrediction(context.Background(), QualityStandard,
		"https://img.example.com/face.jpg", "https://img.example.com/scene.jpg")
	if err != nil {
		t.Fatalf("CreatePrediction: %v", err)
	}

	if gotPath != "/models/codeplugtech/face-swap/predictions" {
		t.Fatalf("request path = %q", gotPath)
	}
	if gotAuth != "Bearer r8_test" {
		t.Fatalf("authorization header = %q", gotAuth)
	}
	if gotBody["input"]["swap_image"] != "https://img.example.com/face.jpg" {
		t.Fatalf("swap_image input = %q", gotBody["input"]["swap_image"])
	}
	if gotBody["input"]["input_image"] != "https://img.example.com/scene.jpg" {
		t.Fatalf("input_image input = %q", gotBody["input"]["input_image"])
	}
	if pred.ID != "pred_abc" {
		t.Fatalf("prediction id = %q", pred.ID)
	}
	if pred.Status() != StatusQueued {
		t.Fatalf("status = %q, want queued", pred.Status())
	}
}

func TestCreatePredictionRequiresToken(t *testing.T) {
	c := &Client{APIBaseURL: "http://127.0.0.1:0", HTTPClient: http.DefaultClient}
	if _, err := c.CreatePrediction(context.Background(), QualityStandard, "a", "b"); err == nil {
		t.Fatal("expected missing token to error")
	}
}

func TestGetPrediction(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/predictions/pred_abc" {
			t.Errorf("request path = %q", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"id":"pred_abc","status":"succeeded","output":"https://replicate.delivery/out.jpg"}`))
	}))
	defer srv.Close()

	c := &Client{APIToken: "r8_test", APIBaseURL: srv.URL, HTTPClient: srv.Client()}
	pred, err := c.GetPrediction(context.Background(), "pred_abc")
	if err != nil {
		t.Fatalf("GetPrediction: %v", err)
	}
	if pred.Status() != StatusSucceeded {
		t.Fatalf("status = %q", pred.Status())
	}
	if pred.OutputURL() != "https://replicate.delivery/out.jpg" {
		t.Fatalf("output url = %q", pred.OutputURL())
	}
}

func TestGetPredictionUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"detail":"boom"}`))
	}))
	defer srv.Close()

	c := &Client{APIToken: "r8_test", APIBaseURL: srv.URL, HTTPClient: srv.Client()}
	if _, err := c.GetPrediction(context.Background(), "pred_abc"); err == nil {
		t.Fatal("expected upstream 500 to error")
	}
}

func TestCancelPrediction(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(`{"id":"pred_abc","status":"canceled"}`))
	}))
	defer srv.Close()

	c := &Client{APIToken: "r8_test", APIBaseURL: srv.URL, HTTPClient: srv.Client()}
	if err := c.CancelPrediction(context.Background(), "pred_abc"); err != nil {
		t.Fatalf("CancelPrediction: %v", err)
	}
	if gotPath != "/predictions/pred_abc/cancel" {
		t.Fatalf("request path = %q", gotPath)
	}
}

func TestCancelPredictionGoneIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := &Client{APIToken: "r8_test", APIBaseURL: srv.URL, HTTPClient: srv.Client()}
	if err := c.CancelPrediction(context.Background(), "pred_abc"); err != nil {
		t.Fatalf("CancelPrediction on 404: %v", err)
	}
}

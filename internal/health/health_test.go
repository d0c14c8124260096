package health_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tattn/voicevox-client/internal/health"
)

func TestHealthz_AlwaysOK(t *testing.T) {
	t.Parallel()
	h := health.New()
	rec := httptest.NewRecorder()
	h.Healthz(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestReadyz_AllPass(t *testing.T) {
	t.Parallel()
	h := health.New(
		health.CheckFunc("engine", func(context.Context) error { return nil }),
		health.ModelChecker(func() int { return 1 }),
	)
	rec := httptest.NewRecorder()
	h.Readyz(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Status != "ok" {
		t.Errorf("status = %q, want ok", body.Status)
	}
	if body.Checks["voice-models"] != "ok" {
		t.Errorf("voice-models check = %q, want ok", body.Checks["voice-models"])
	}
}

func TestReadyz_FailingChecker(t *testing.T) {
	t.Parallel()
	h := health.New(
		health.CheckFunc("engine", func(context.Context) error { return errors.New("engine down") }),
	)
	rec := httptest.NewRecorder()
	h.Readyz(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func TestModelChecker_NoModels(t *testing.T) {
	t.Parallel()
	c := health.ModelChecker(func() int { return 0 })
	if err := c.Check(context.Background()); err == nil {
		t.Fatal("expected error when no models are loaded")
	}
}

package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"detectd/internal/imagecodec"
	"detectd/pkg/types"
)

// Service that blocks until the context is done; used to exercise timeout path.
type blockService struct{}

func (b *blockService) Ready() bool      { return true }
func (b *blockService) Labels() []string { return nil }
func (b *blockService) RunInference(ctx context.Context, _ *imagecodec.Image) ([]types.Detection, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestInferLogsWithZerologInfo(t *testing.T) {
	// Install a zerolog logger to exercise the zlog != nil branches
	SetLogger(zerolog.New(io.Discard))
	defer func() { zlog = nil }()

	h := NewMux(&mockService{})
	req := uploadRequest(t, "file", jpegBytes(t, 8, 8))
	req.URL.RawQuery = "log=debug"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with debug logging, got %d", rec.Code)
	}
}

func TestCORSHeaders(t *testing.T) {
	SetCORSOptions(true, []string{"*"}, nil, nil)
	defer SetCORSOptions(false, nil, nil, nil)

	h := NewMux(&mockService{ready: true})
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got == "" {
		t.Fatalf("expected CORS header Access-Control-Allow-Origin to be set, got empty")
	}
}

func TestCORSDisabledByDefault(t *testing.T) {
	h := NewMux(&mockService{})
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("unexpected CORS header %q", got)
	}
}

func TestInferTimeoutReturns500(t *testing.T) {
	defer SetInferTimeout(0)
	SetInferTimeout(50 * time.Millisecond)

	h := NewMux(&blockService{})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, uploadRequest(t, "file", jpegBytes(t, 8, 8)))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 on timeout, got %d", rec.Code)
	}
}

func TestInferShutdownCancelsWork(t *testing.T) {
	base, cancel := context.WithCancel(context.Background())
	SetBaseContext(base)
	defer SetBaseContext(nil)

	h := NewMux(&blockService{})
	rec := httptest.NewRecorder()
	req := uploadRequest(t, "file", jpegBytes(t, 8, 8))
	done := make(chan struct{})
	go func() {
		h.ServeHTTP(rec, req)
		close(done)
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handler did not return after base context cancel")
	}
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 on shutdown, got %d", rec.Code)
	}
	var er types.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &er); err != nil || er.Error == "" || er.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected JSON error body, got %q", rec.Body.String())
	}
	if strings.Contains(rec.Body.String(), "detections") {
		t.Fatalf("error body must not carry detections: %q", rec.Body.String())
	}
}

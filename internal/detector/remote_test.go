package detector

import (
	"context"
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"detectd/pkg/types"
)

func newTestRemote(t *testing.T, h http.HandlerFunc) Detector {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	d, err := New("remote", Options{RemoteURL: srv.URL + "/infer", Labels: []string{"person", "car"}})
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func TestRemoteInferForwardsPNG(t *testing.T) {
	d := newTestRemote(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/infer", r.URL.Path)
		f, _, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			return
		}
		defer f.Close()
		img, err := png.Decode(f)
		if !assert.NoError(t, err) {
			return
		}
		assert.Equal(t, 64, img.Bounds().Dx())
		assert.Equal(t, 48, img.Bounds().Dy())
		_ = json.NewEncoder(w).Encode(types.InferResponse{Detections: []types.Detection{
			{Label: "car", Confidence: 0.8, BBox: [4]float64{1, 2, 30, 40}},
		}})
	})
	dets, err := d.Infer(context.Background(), solidImage(64, 48, 10, 20, 30))
	require.NoError(t, err)
	require.Len(t, dets, 1)
	assert.Equal(t, "car", dets[0].Label)
	assert.Equal(t, [4]float64{1, 2, 30, 40}, dets[0].BBox)
}

func TestRemoteEmptyDetections(t *testing.T) {
	d := newTestRemote(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"detections":null}`))
	})
	dets, err := d.Infer(context.Background(), solidImage(8, 8, 0, 0, 0))
	require.NoError(t, err)
	assert.NotNil(t, dets)
	assert.Empty(t, dets)
}

func TestRemoteFailures(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"server error": func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "model crashed", http.StatusInternalServerError)
		},
		"bad json": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"detections":`))
		},
		"unknown label": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"detections":[{"label":"dog","confidence":0.5,"bbox":[1,1,2,2]}]}`))
		},
		"bbox outside image": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"detections":[{"label":"car","confidence":0.5,"bbox":[1,1,20,2]}]}`))
		},
	}
	for name, h := range cases {
		t.Run(name, func(t *testing.T) {
			d := newTestRemote(t, h)
			_, err := d.Infer(context.Background(), solidImage(8, 8, 0, 0, 0))
			require.Error(t, err)
			assert.True(t, IsModelInference(err), "got %v", err)
		})
	}
}

func TestRemoteContextCancel(t *testing.T) {
	d := newTestRemote(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := d.Infer(ctx, solidImage(8, 8, 0, 0, 0))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRemoteCheckHealth(t *testing.T) {
	var healthy atomic.Bool
	healthy.Store(true)
	d := newTestRemote(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" && healthy.Load() {
			_, _ = w.Write([]byte(`{"status":"ok"}`))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	hc, ok := d.(HealthChecker)
	require.True(t, ok)
	assert.NoError(t, hc.CheckHealth(context.Background()))
	healthy.Store(false)
	assert.True(t, IsDependencyUnavailable(hc.CheckHealth(context.Background())))
}

func TestRemoteRequiresURL(t *testing.T) {
	_, err := New("remote", Options{})
	assert.Error(t, err)
	_, err = New("remote", Options{RemoteURL: "ftp://example"})
	assert.Error(t, err)
}

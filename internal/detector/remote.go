package detector

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"detectd/internal/imagecodec"
	"detectd/pkg/types"
)

const backendRemote = "remote"

func init() { Register(backendRemote, newRemote) }

// remoteDetector forwards images to another server exposing POST /infer and
// GET /health with the same wire contract as this service.
type remoteDetector struct {
	base   string
	labels []string
	client *http.Client
	log    zerolog.Logger
}

func newRemote(opts Options) (Detector, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.RemoteURL), "/")
	base = strings.TrimSuffix(base, "/infer")
	if base == "" {
		return nil, fmt.Errorf("remote backend: remote_url is empty")
	}
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		return nil, fmt.Errorf("remote backend: remote_url %q must be http(s)", opts.RemoteURL)
	}
	return &remoteDetector{
		base:   base,
		labels: append([]string(nil), opts.Labels...),
		client: &http.Client{Timeout: opts.RemoteTimeout},
		log:    opts.Logger.With().Str("backend", backendRemote).Str("remote", base).Logger(),
	}, nil
}

func (r *remoteDetector) Infer(ctx context.Context, img *imagecodec.Image) ([]types.Detection, error) {
	if img == nil {
		return nil, inferenceError(backendRemote, errors.New("nil image"))
	}
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", "image.png")
	if err != nil {
		return nil, inferenceError(backendRemote, fmt.Errorf("create form file: %w", err))
	}
	if err := png.Encode(part, img.ToNRGBA()); err != nil {
		return nil, inferenceError(backendRemote, fmt.Errorf("encode png: %w", err))
	}
	if err := writer.Close(); err != nil {
		return nil, inferenceError(backendRemote, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.base+"/infer", body)
	if err != nil {
		return nil, inferenceError(backendRemote, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	resp, err := r.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, inferenceError(backendRemote, fmt.Errorf("send request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, inferenceError(backendRemote, fmt.Errorf("remote status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet))))
	}
	var result types.InferResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, inferenceError(backendRemote, fmt.Errorf("decode response: %w", err))
	}
	if err := Validate(result.Detections, img.Width, img.Height, r.labels); err != nil {
		return nil, inferenceError(backendRemote, err)
	}
	if result.Detections == nil {
		result.Detections = []types.Detection{}
	}
	r.log.Debug().Int("detections", len(result.Detections)).Msg("remote inference done")
	return result.Detections, nil
}

// CheckHealth probes GET /health on the remote server.
func (r *remoteDetector) CheckHealth(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.base+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return ErrDependencyUnavailable("remote detector unreachable: " + err.Error())
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return ErrDependencyUnavailable(fmt.Sprintf("remote detector unhealthy: %d", resp.StatusCode))
	}
	return nil
}

func (r *remoteDetector) Labels() []string { return r.labels }

func (r *remoteDetector) Close() error {
	r.client.CloseIdleConnections()
	return nil
}

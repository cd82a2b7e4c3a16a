package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"detectd/internal/imagecodec"
	"detectd/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	RunInference(ctx context.Context, img *imagecodec.Image) ([]types.Detection, error)
	Ready() bool
	Labels() []string
}

// uploadField is the multipart form field carrying the image.
const uploadField = "file"

func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	// Compression for JSON endpoints
	r.Use(middleware.Compress(5))
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: corsAllowedMethods,
			AllowedHeaders: corsAllowedHeaders,
			MaxAge:         300,
		}))
	}

	// @Summary      Liveness probe
	// @Tags         system
	// @Produce      json
	// @Success      200 {object} types.HealthResponse
	// @Router       /health [get]
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, types.HealthResponse{Status: "ok"})
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("no detector"))
	})

	// @Summary      Class vocabulary of the loaded detector
	// @Tags         inference
	// @Produce      json
	// @Success      200 {object} types.LabelsResponse
	// @Router       /labels [get]
	r.Get("/labels", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, types.LabelsResponse{Labels: svc.Labels()})
	})

	// @Summary      Detect objects in an uploaded image
	// @Tags         inference
	// @Accept       multipart/form-data
	// @Produce      json
	// @Param        file formData file true "image (JPEG, PNG, GIF, BMP, TIFF, WebP)"
	// @Success      200 {object} types.InferResponse
	// @Failure      400 {object} types.ErrorResponse
	// @Failure      413 {object} types.ErrorResponse
	// @Failure      500 {object} types.ErrorResponse
	// @Failure      503 {object} types.ErrorResponse
	// @Router       /infer [post]
	r.Post("/infer", inferHandler(svc))

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)
	return r
}

func inferHandler(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		log := requestLogger(r)

		data, status, err := readUpload(w, r)
		if err != nil {
			log.Info().Int("status", status).Err(err).Msg("infer rejected")
			writeJSONError(w, status, err.Error())
			return
		}
		img, err := imagecodec.DecodeBytes(data)
		if err != nil {
			observeInference(0, err)
			log.Info().Int("status", http.StatusBadRequest).Int("bytes", len(data)).Err(err).Msg("infer rejected")
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Info().Int("width", img.Width).Int("height", img.Height).Msg("infer start")

		// Join server base context with request context so shutdown cancels work too.
		ctx, cancel := joinContexts(serverBaseCtx, r.Context())
		defer cancel()
		if inferTimeout > 0 {
			var cancelT context.CancelFunc
			ctx, cancelT = context.WithTimeout(ctx, inferTimeout)
			defer cancelT()
		}

		dets, err := svc.RunInference(ctx, img)
		if err != nil {
			// Client is gone: nobody to answer.
			if r.Context().Err() != nil {
				log.Debug().Err(err).Dur("dur", time.Since(start)).Msg("infer canceled")
				return
			}
			if serverBaseCtx.Err() != nil {
				log.Info().Err(err).Dur("dur", time.Since(start)).Msg("infer aborted by shutdown")
				writeJSONError(w, http.StatusServiceUnavailable, "server shutting down")
				return
			}
			observeInference(0, err)
			code := statusForError(err)
			writeJSONError(w, code, err.Error())
			ev := log.Info()
			if code >= http.StatusInternalServerError {
				ev = log.Error()
			}
			ev.Int("status", code).Dur("dur", time.Since(start)).Err(err).Msg("infer end")
			return
		}
		if dets == nil {
			dets = []types.Detection{}
		}
		observeInference(len(dets), nil)
		writeJSON(w, http.StatusOK, types.InferResponse{Detections: dets})
		log.Info().Int("status", http.StatusOK).Int("detections", len(dets)).Dur("dur", time.Since(start)).Msg("infer end")
	}
}

// readUpload reads the uploaded file fully, bounded by maxBodyBytes. On
// failure it returns the status the client should see.
func readUpload(w http.ResponseWriter, r *http.Request) ([]byte, int, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		if isTooLarge(err) {
			return nil, http.StatusRequestEntityTooLarge, errors.New("upload exceeds size limit")
		}
		return nil, http.StatusBadRequest, errors.New("expected multipart/form-data with a \"file\" field")
	}
	defer r.MultipartForm.RemoveAll()

	f, _, err := r.FormFile(uploadField)
	if err != nil {
		return nil, http.StatusBadRequest, errors.New("missing multipart field \"file\"")
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		if isTooLarge(err) {
			return nil, http.StatusRequestEntityTooLarge, errors.New("upload exceeds size limit")
		}
		return nil, http.StatusBadRequest, errors.New("failed to read upload")
	}
	return data, http.StatusOK, nil
}

func isTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe) || errors.Is(err, multipart.ErrMessageTooLarge) ||
		strings.Contains(err.Error(), "request body too large")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

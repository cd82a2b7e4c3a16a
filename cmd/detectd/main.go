package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"detectd/internal/config"
	"detectd/internal/detector"
	"detectd/internal/httpapi"
	"detectd/internal/imagecodec"
	"detectd/internal/inference"
	"detectd/internal/labels"
	"detectd/internal/logging"
	"detectd/internal/registry"
)

func main() {
	flags := newFlags(os.Stderr)
	if err := flags.parse(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		os.Exit(2)
	}
	cfg, err := loadConfig(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "detectd: %v\n", err)
		os.Exit(2)
	}

	logging.Init(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	log := logging.For("main")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	det, err := buildDetector(ctx, cfg, logging.For("detector"))
	if err != nil {
		log.Error().Err(err).Str("backend", cfg.Backend).Msg("failed to initialize detector")
		os.Exit(1)
	}
	svc := inference.New(detector.Gate(det, cfg.MaxConcurrentInference))

	httpapi.SetLogger(logging.For("http"))
	httpapi.SetRequestLogLevel(cfg.LogLevel)
	httpapi.SetMaxBodyBytes(cfg.MaxUploadBytes)
	imagecodec.SetMaxPixels(cfg.MaxImagePixels)
	httpapi.SetInferTimeout(cfg.InferTimeout.Std())
	httpapi.SetCORSOptions(cfg.CORSEnabled, cfg.CORSOrigins, nil, nil)
	// in-flight inferences are cancelled as soon as shutdown starts
	httpapi.SetBaseContext(ctx)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           httpapi.NewMux(svc),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("backend", cfg.Backend).Str("decoder", imagecodec.Backend).Int("labels", len(svc.Labels())).Msg("detectd listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	case err := <-errc:
		if err != nil {
			log.Error().Err(err).Msg("server error")
			_ = svc.Close()
			os.Exit(1)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("graceful shutdown error")
	}
	if err := svc.Close(); err != nil {
		log.Warn().Err(err).Msg("detector close error")
	}
}

// loadConfig resolves defaults, config file and environment, then applies the
// flags the user set explicitly.
func loadConfig(f *cliFlags) (config.Config, error) {
	cfg, err := config.Resolve(f.configPath)
	if err != nil {
		return cfg, err
	}
	if err := f.apply(&cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// buildDetector constructs the configured backend. A backend that can probe its
// dependency is checked once; failure there is only logged.
func buildDetector(ctx context.Context, cfg config.Config, log zerolog.Logger) (detector.Detector, error) {
	names, err := labels.Load(cfg.LabelsPath)
	if err != nil {
		return nil, err
	}
	modelPath := cfg.ModelPath
	if cfg.Backend == "yolo" {
		if modelPath, err = registry.ResolveModel(cfg.ModelPath); err != nil {
			return nil, err
		}
	}
	det, err := detector.New(cfg.Backend, detector.Options{
		ModelPath:      modelPath,
		Labels:         names,
		ConfThreshold:  cfg.ConfThreshold,
		IoUThreshold:   cfg.IoUThreshold,
		InputSize:      cfg.InputSize,
		Sessions:       cfg.Sessions,
		OnnxRuntimeLib: cfg.OnnxRuntimeLib,
		RemoteURL:      cfg.RemoteURL,
		RemoteTimeout:  cfg.RemoteTimeout.Std(),
		FixturePath:    cfg.StaticFixture,
		Logger:         log,
	})
	if err != nil {
		return nil, err
	}
	if hc, ok := det.(detector.HealthChecker); ok {
		cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := hc.CheckHealth(cctx); err != nil {
			log.Warn().Err(err).Msg("detector dependency not reachable yet")
		}
	}
	log.Info().Str("backend", cfg.Backend).Str("model", modelPath).Int("labels", len(det.Labels())).Msg("detector ready")
	return det, nil
}

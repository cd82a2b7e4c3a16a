package httpapi

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"detectd/internal/logging"
)

// zlog is an optional structured logger. If unset, the process logger from
// the logging package is used.
var zlog *zerolog.Logger

// SetLogger installs a structured logger used by the HTTP layer.
func SetLogger(l zerolog.Logger) { zlog = &l }

func baseLogger() zerolog.Logger {
	if zlog != nil {
		return *zlog
	}
	return logging.For("http")
}

// defaultLogLevel is the request log level when a request does not ask for one.
var defaultLogLevel = zerolog.InfoLevel

// SetRequestLogLevel sets the default per-request log level ("off", "error",
// "info", "debug", ...).
func SetRequestLogLevel(s string) {
	defaultLogLevel = logging.ParseLevel(s)
}

// requestLogLevel honours ?log=<level> and the X-Log-Level header.
func requestLogLevel(r *http.Request) zerolog.Level {
	if v := r.URL.Query().Get("log"); v != "" {
		if v == "1" {
			return zerolog.DebugLevel
		}
		return logging.ParseLevel(v)
	}
	if v := strings.TrimSpace(r.Header.Get("X-Log-Level")); v != "" {
		return logging.ParseLevel(v)
	}
	return defaultLogLevel
}

// requestLogger returns a logger at the request's level tagged with the
// request id assigned by chi.
func requestLogger(r *http.Request) zerolog.Logger {
	l := baseLogger().Level(requestLogLevel(r))
	if rid := middleware.GetReqID(r.Context()); rid != "" {
		l = l.With().Str("request_id", rid).Logger()
	}
	return l
}

package httpapi

import (
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
)

func TestRequestLogLevel_Overrides(t *testing.T) {
	// query param ?log=debug
	r := httptest.NewRequest("GET", "/x?log=debug", nil)
	if got := requestLogLevel(r); got != zerolog.DebugLevel {
		t.Fatalf("query override failed: %v", got)
	}
	// legacy query param ?log=1
	r = httptest.NewRequest("GET", "/x?log=1", nil)
	if got := requestLogLevel(r); got != zerolog.DebugLevel {
		t.Fatalf("legacy query override failed: %v", got)
	}
	// header X-Log-Level
	r = httptest.NewRequest("GET", "/x", nil)
	r.Header.Set("X-Log-Level", "error")
	if got := requestLogLevel(r); got != zerolog.ErrorLevel {
		t.Fatalf("header override failed: %v", got)
	}
	// off disables
	r = httptest.NewRequest("GET", "/x?log=off", nil)
	if got := requestLogLevel(r); got != zerolog.Disabled {
		t.Fatalf("off override failed: %v", got)
	}
}

func TestSetRequestLogLevel(t *testing.T) {
	defer SetRequestLogLevel("info")
	SetRequestLogLevel("warn")
	if got := requestLogLevel(httptest.NewRequest("GET", "/x", nil)); got != zerolog.WarnLevel {
		t.Fatalf("default level=%v", got)
	}
}

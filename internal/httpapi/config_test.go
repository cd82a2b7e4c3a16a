package httpapi

import (
	"testing"
	"time"
)

func TestSetMaxBodyBytes_DefaultWhenNonPositive(t *testing.T) {
	SetMaxBodyBytes(-1)
	if maxBodyBytes != 32<<20 {
		t.Fatalf("expected default 32MiB, got %d", maxBodyBytes)
	}
	SetMaxBodyBytes(1234)
	if maxBodyBytes != 1234 {
		t.Fatalf("expected 1234, got %d", maxBodyBytes)
	}
	SetMaxBodyBytes(0)
	if maxBodyBytes != 32<<20 {
		t.Fatalf("expected default 32MiB on zero, got %d", maxBodyBytes)
	}
}

func TestSetInferTimeout_NormalizesNegativeToZero(t *testing.T) {
	defer SetInferTimeout(0)
	SetInferTimeout(-5 * time.Second)
	if inferTimeout != 0 {
		t.Fatalf("expected 0, got %v", inferTimeout)
	}
	SetInferTimeout(3 * time.Second)
	if inferTimeout != 3*time.Second {
		t.Fatalf("expected 3s, got %v", inferTimeout)
	}
}

func TestSetCORSOptions_Defaults(t *testing.T) {
	defer SetCORSOptions(false, nil, nil, nil)
	SetCORSOptions(true, []string{"https://a.example"}, nil, nil)
	if !corsEnabled || len(corsAllowedMethods) == 0 || len(corsAllowedHeaders) == 0 {
		t.Fatalf("unexpected cors config: %v %v %v", corsEnabled, corsAllowedMethods, corsAllowedHeaders)
	}
}

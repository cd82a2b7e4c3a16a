package detector

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"detectd/internal/imagecodec"
	"detectd/pkg/types"
)

// Detector runs object detection on a decoded RGB image.
type Detector interface {
	// Infer returns detections in backend emission order. An empty, non-nil
	// slice means nothing was found. Backend failures are ModelInferenceError.
	Infer(ctx context.Context, img *imagecodec.Image) ([]types.Detection, error)
	// Labels returns the class vocabulary, indexed by class id.
	Labels() []string
	// Close releases model resources.
	Close() error
}

// HealthChecker is implemented by backends that can probe a dependency.
type HealthChecker interface {
	CheckHealth(ctx context.Context) error
}

// Options carries everything a backend factory may need. Fields irrelevant to a
// backend are ignored by it.
type Options struct {
	ModelPath      string
	Labels         []string
	ConfThreshold  float64
	IoUThreshold   float64
	InputSize      int
	MaxDetections  int
	Sessions       int
	OnnxRuntimeLib string
	RemoteURL      string
	RemoteTimeout  time.Duration
	FixturePath    string
	Logger         zerolog.Logger
}

// Defaults applied when the corresponding Options fields are unset.
const (
	defaultConfThreshold = 0.25
	defaultIoUThreshold  = 0.45
	defaultInputSize     = 640
	defaultMaxDetections = 300
	defaultSessions      = 1
	defaultRemoteTimeout = 30 * time.Second
)

func (o Options) withDefaults() Options {
	if o.ConfThreshold <= 0 {
		o.ConfThreshold = defaultConfThreshold
	}
	if o.IoUThreshold <= 0 {
		o.IoUThreshold = defaultIoUThreshold
	}
	if o.InputSize <= 0 {
		o.InputSize = defaultInputSize
	}
	if o.MaxDetections <= 0 {
		o.MaxDetections = defaultMaxDetections
	}
	if o.Sessions <= 0 {
		o.Sessions = defaultSessions
	}
	if o.RemoteTimeout <= 0 {
		o.RemoteTimeout = defaultRemoteTimeout
	}
	return o
}

// Factory builds a Detector from Options.
type Factory func(Options) (Detector, error)

var (
	regMu     sync.RWMutex
	factories = map[string]Factory{}
)

// Register makes a backend available under name. Registering a name twice panics.
func Register(name string, f Factory) {
	regMu.Lock()
	defer regMu.Unlock()
	if _, dup := factories[name]; dup {
		panic("detector: duplicate backend " + name)
	}
	factories[name] = f
}

// Backends lists registered backend names in sorted order.
func Backends() []string {
	regMu.RLock()
	defer regMu.RUnlock()
	out := make([]string, 0, len(factories))
	for n := range factories {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// New builds the named backend.
func New(backend string, opts Options) (Detector, error) {
	regMu.RLock()
	f, ok := factories[backend]
	regMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown detector backend %q (available: %v)", backend, Backends())
	}
	return f(opts.withDefaults())
}

package detector

import "errors"

// ModelInferenceError reports that a backend could not process an input. It is
// never retried by this package.
type ModelInferenceError struct {
	Backend string
	Err     error
}

func (e *ModelInferenceError) Error() string {
	return "model inference failed (" + e.Backend + "): " + e.Err.Error()
}

func (e *ModelInferenceError) Unwrap() error { return e.Err }

func inferenceError(backend string, err error) error {
	return &ModelInferenceError{Backend: backend, Err: err}
}

// IsModelInference reports whether err is (or wraps) a ModelInferenceError.
func IsModelInference(err error) bool {
	var me *ModelInferenceError
	return errors.As(err, &me)
}

// dependencyUnavailableError signals a missing runtime dependency (e.g. ONNX
// Runtime not compiled in) so the HTTP layer can answer 503 instead of 500.
type dependencyUnavailableError struct{ msg string }

func (e dependencyUnavailableError) Error() string { return e.msg }

// ErrDependencyUnavailable constructs a dependencyUnavailableError.
func ErrDependencyUnavailable(msg string) error { return dependencyUnavailableError{msg: msg} }

// IsDependencyUnavailable reports whether err indicates a missing/failed runtime dependency.
func IsDependencyUnavailable(err error) bool {
	var de dependencyUnavailableError
	return errors.As(err, &de)
}

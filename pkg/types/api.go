package types

// InferResponse is returned by POST /infer.
type InferResponse struct {
	// Detections in backend emission order. Never null.
	Detections []Detection `json:"detections"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	// example: ok
	Status string `json:"status" example:"ok"`
}

// LabelsResponse is returned by GET /labels.
type LabelsResponse struct {
	// Label vocabulary of the loaded detector, indexed by class id.
	Labels []string `json:"labels"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: could not decode image
	Error string `json:"error" example:"could not decode image"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}

package types

// Detection is one recognized object instance.
type Detection struct {
	// Class label from the backend vocabulary.
	// example: person
	Label string `json:"label" yaml:"label" example:"person"`
	// Confidence score in [0,1].
	// example: 0.92
	Confidence float64 `json:"confidence" yaml:"confidence" example:"0.92"`
	// Bounding box [x1, y1, x2, y2] in absolute pixels, top-left origin.
	// example: [100,50,300,400]
	BBox [4]float64 `json:"bbox" yaml:"bbox"`
}

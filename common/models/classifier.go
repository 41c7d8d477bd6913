package models

// Classification labels returned by the classification API
const (
	LabelOriginal = "Original"
	LabelFake     = "Fake"
)

// Probabilities holds the per-label probabilities of a classification
type Probabilities struct {
	Original float64 `json:"Original"`
	Fake     float64 `json:"Fake"`
}

// ClassificationResponse represents the response to a classification request
type ClassificationResponse struct {
	RequestID            string        `json:"request_id"`
	Label                string        `json:"label"`
	Confidence           float64       `json:"confidence"`
	Probabilities        Probabilities `json:"probabilities"`
	HeatmapAvailable     bool          `json:"heatmap_available"`
	Explanations         []string      `json:"explanations"`
	LowConfidenceWarning bool          `json:"low_confidence_warning"`
	ProcessingTimeMS     float64       `json:"processing_time_ms"`
}

// UploadedFile represents an image selected for classification
type UploadedFile struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
	Data        []byte `json:"data"`
}

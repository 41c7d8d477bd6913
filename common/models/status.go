package models

// HealthResponse represents the health of the classification service
type HealthResponse struct {
	Status            string `json:"status"`
	ModelLoaded       bool   `json:"model_loaded"`
	DatabaseConnected bool   `json:"database_connected"`
	RedisAvailable    bool   `json:"redis_available"`
	Version           string `json:"version"`
}

// CategoryDistribution counts classifications per label
type CategoryDistribution struct {
	Original int `json:"original"`
	Fake     int `json:"fake"`
}

// StatsResponse represents aggregate statistics of the classification service
type StatsResponse struct {
	TotalClassifications int                  `json:"total_classifications"`
	AccuracyEstimate     *float64             `json:"accuracy_estimate"`
	AverageConfidence    float64              `json:"average_confidence"`
	CategoryDistribution CategoryDistribution `json:"category_distribution"`
	FeedbackCount        int                  `json:"feedback_count"`
}

package models

// FeedbackRequest represents a user's correction signal for a classification
type FeedbackRequest struct {
	RequestID string `json:"request_id" binding:"required"`
	IsCorrect bool   `json:"is_correct"`
	UserLabel string `json:"user_label,omitempty"`
	Comments  string `json:"comments,omitempty"`
}

// FeedbackResponse represents the response to a feedback submission
type FeedbackResponse struct {
	Message          string `json:"message"`
	FeedbackID       string `json:"feedback_id"`
	FlaggedForReview bool   `json:"flagged_for_review"`
}

// Package stub is a local stand-in for the classification API. It answers
// the same four endpoints with deterministic mock data so the web front can
// be run and tested without the model service.
package stub

import (
	"crypto/sha256"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"authentiscan/common/models"
	"authentiscan/common/validator"
)

// Version reported by the health endpoint
const Version = "1.0.0-stub"

// lowConfidenceThreshold mirrors the model service's 60% cut-off
const lowConfidenceThreshold = 0.6

var originalReasons = []string{
	"Logo proportions match the reference design",
	"Stitching pattern is even and consistent",
	"Label typography matches authentic samples",
	"Material texture is consistent with genuine products",
}

var fakeReasons = []string{
	"Logo placement deviates from the reference design",
	"Irregular stitching detected along the seams",
	"Label font differs from authentic samples",
	"Color saturation is inconsistent with genuine products",
}

// Server holds the stub's in-memory bookkeeping
type Server struct {
	maxBytes int64

	mu              sync.Mutex
	results         map[string]string
	totalConfidence float64
	originalCount   int
	fakeCount       int
	feedbackCount   int
	correctCount    int
}

// New creates a stub accepting uploads up to maxSizeMB
func New(maxSizeMB int) *Server {
	return &Server{
		maxBytes: validator.New(maxSizeMB).MaxBytes(),
		results:  make(map[string]string),
	}
}

// Register mounts the API routes on the router
func (s *Server) Register(router gin.IRouter) {
	api := router.Group("/api/v1")
	{
		api.POST("/classify", s.handleClassify)
		api.POST("/feedback", s.handleFeedback)
		api.GET("/health", s.handleHealth)
		api.GET("/stats", s.handleStats)
	}
}

func detail(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"detail": msg})
}

// handleClassify processes image classification requests
func (s *Server) handleClassify(c *gin.Context) {
	start := time.Now()

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		detail(c, http.StatusBadRequest, "No file provided")
		return
	}
	defer file.Close()

	if header.Size > s.maxBytes {
		detail(c, http.StatusRequestEntityTooLarge, fmt.Sprintf("File size exceeds %dMB limit", s.maxBytes/(1024*1024)))
		return
	}

	contentType := header.Header.Get("Content-Type")
	if !validator.IsAllowedType(contentType) {
		detail(c, http.StatusBadRequest, fmt.Sprintf("Unsupported file format: %s", contentType))
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		detail(c, http.StatusBadRequest, "Failed to read file")
		return
	}
	if len(data) == 0 {
		detail(c, http.StatusBadRequest, "File is empty")
		return
	}

	resp := classify(data)
	resp.RequestID = uuid.NewString()
	resp.ProcessingTimeMS = float64(time.Since(start).Microseconds()) / 1000

	s.mu.Lock()
	s.results[resp.RequestID] = resp.Label
	s.totalConfidence += resp.Confidence
	if resp.Label == models.LabelOriginal {
		s.originalCount++
	} else {
		s.fakeCount++
	}
	s.mu.Unlock()

	c.JSON(http.StatusOK, resp)
}

// classify derives a stable mock verdict from the image bytes
func classify(data []byte) models.ClassificationResponse {
	sum := sha256.Sum256(data)
	fake := 0.05 + 0.9*float64(sum[0])/255

	resp := models.ClassificationResponse{
		Probabilities:    models.Probabilities{Original: 1 - fake, Fake: fake},
		HeatmapAvailable: false,
	}

	reasons := originalReasons
	resp.Label = models.LabelOriginal
	resp.Confidence = 1 - fake
	if fake > 0.5 {
		reasons = fakeReasons
		resp.Label = models.LabelFake
		resp.Confidence = fake
	}
	resp.LowConfidenceWarning = resp.Confidence < lowConfidenceThreshold

	start := int(sum[1]) % len(reasons)
	for i := 0; i < 3; i++ {
		resp.Explanations = append(resp.Explanations, reasons[(start+i)%len(reasons)])
	}
	return resp
}

// handleFeedback records a user's correction
func (s *Server) handleFeedback(c *gin.Context) {
	var req models.FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		detail(c, http.StatusUnprocessableEntity, "Invalid feedback payload")
		return
	}
	if !validator.IsValidRequestID(req.RequestID) {
		detail(c, http.StatusUnprocessableEntity, "Invalid request ID format")
		return
	}

	s.mu.Lock()
	_, known := s.results[req.RequestID]
	if known {
		s.feedbackCount++
		if req.IsCorrect {
			s.correctCount++
		}
	}
	s.mu.Unlock()

	if !known {
		detail(c, http.StatusNotFound, "Classification not found")
		return
	}

	c.JSON(http.StatusOK, models.FeedbackResponse{
		Message:          "Thank you for your feedback",
		FeedbackID:       uuid.NewString(),
		FlaggedForReview: !req.IsCorrect,
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, models.HealthResponse{
		Status:      "healthy",
		ModelLoaded: true,
		Version:     Version,
	})
}

func (s *Server) handleStats(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := s.originalCount + s.fakeCount
	stats := models.StatsResponse{
		TotalClassifications: total,
		CategoryDistribution: models.CategoryDistribution{Original: s.originalCount, Fake: s.fakeCount},
		FeedbackCount:        s.feedbackCount,
	}
	if total > 0 {
		stats.AverageConfidence = s.totalConfidence / float64(total)
	}
	if s.feedbackCount > 0 {
		accuracy := float64(s.correctCount) / float64(s.feedbackCount)
		stats.AccuracyEstimate = &accuracy
	}
	c.JSON(http.StatusOK, stats)
}

// Package web renders the upload and results views of the authenticity
// checker and drives the classification API on the browser's behalf.
package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"authentiscan/common/apiclient"
	"authentiscan/common/handoff"
	"authentiscan/common/models"
	"authentiscan/common/validator"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Classifier is the subset of the API client the views depend on
type Classifier interface {
	ClassifyImage(ctx context.Context, file models.UploadedFile) (*models.ClassificationResponse, error)
	SubmitFeedback(ctx context.Context, feedback models.FeedbackRequest) (*models.FeedbackResponse, error)
	CheckHealth(ctx context.Context) (*models.HealthResponse, error)
	GetStats(ctx context.Context) (*models.StatsResponse, error)
}

// Options configures a Server
type Options struct {
	Client    Classifier
	Validator *validator.Validator
	Store     handoff.Store
	Logger    *zap.Logger
	// SessionTTL is the session cookie lifetime; defaults to handoff.DefaultTTL
	SessionTTL time.Duration
	// LockTTL bounds a stuck in-flight guard; defaults to the client timeout plus a margin
	LockTTL time.Duration
}

// Server holds the view handlers and their dependencies
type Server struct {
	client     Classifier
	validator  *validator.Validator
	store      handoff.Store
	logger     *zap.Logger
	templates  *template.Template
	sessionTTL time.Duration
	lockTTL    time.Duration
}

// NewServer validates opts and parses the embedded templates
func NewServer(opts Options) (*Server, error) {
	if opts.Client == nil {
		return nil, errors.New("web: client is required")
	}
	if opts.Store == nil {
		return nil, errors.New("web: store is required")
	}
	if opts.Validator == nil {
		opts.Validator = validator.New(validator.DefaultMaxSizeMB)
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = handoff.DefaultTTL
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = apiclient.DefaultTimeout + 5*time.Second
	}

	tmpl, err := parseTemplates()
	if err != nil {
		return nil, err
	}

	return &Server{
		client:     opts.Client,
		validator:  opts.Validator,
		store:      opts.Store,
		logger:     opts.Logger,
		templates:  tmpl,
		sessionTTL: opts.SessionTTL,
		lockTTL:    opts.LockTTL,
	}, nil
}

func parseTemplates() (*template.Template, error) {
	funcs := template.FuncMap{
		"percent": FormatPercent,
		"bytes":   FormatBytes,
		"lower":   strings.ToLower,
	}
	tmpl, err := template.New("").Funcs(funcs).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return tmpl, nil
}

// Register mounts the views on the router.
// JSON routes are mounted separately with RegisterAPI.
func (s *Server) Register(router *gin.Engine) {
	router.SetHTMLTemplate(s.templates)

	static, _ := fs.Sub(staticFS, "static")
	router.StaticFS("/static", http.FS(static))

	views := router.Group("/", sessionMiddleware(s.sessionTTL))
	{
		views.GET("/", s.handleHome)
		views.POST("/upload", s.handleUpload)
		views.POST("/remove", s.handleRemove)
		views.POST("/classify", s.handleClassify)
		views.GET("/preview", s.handlePreview)

		views.GET("/results", s.handleResults)
		views.GET("/results/image", s.handleResultImage)
		views.POST("/results/feedback", s.handleFeedback)
		views.POST("/new", s.handleNew)

		views.GET("/status", s.handleStatus)
	}
}

// renderError shows a generic failure page for infrastructure errors
func (s *Server) renderError(c *gin.Context, err error, msg string) {
	s.logger.Error(msg, zap.String("path", c.Request.URL.Path), zap.Error(err))
	_ = c.Error(err)
	c.HTML(http.StatusInternalServerError, "error.html", gin.H{
		"Message": "Something went wrong on our side. Please try again.",
	})
}

// clientGone reports whether the browser request ended while an API call was
// running; results of such calls are discarded.
func clientGone(c *gin.Context) bool {
	return c.Request.Context().Err() != nil
}

// detached returns a context for outbound calls that survives the browser
// navigating away, so sent requests always run to completion or timeout.
func detached(c *gin.Context) context.Context {
	return context.WithoutCancel(c.Request.Context())
}

// errorStatus picks the HTTP status used to render an API failure
func errorStatus(apiErr *models.APIError) int {
	if apiErr.Status >= 400 && apiErr.Status <= 599 {
		return apiErr.Status
	}
	return http.StatusBadGateway
}

// serveImage writes stored image bytes without caching
func serveImage(c *gin.Context, contentType string, data []byte) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Cache-Control", "no-store")
	c.Header("X-Content-Type-Options", "nosniff")
	c.Data(http.StatusOK, contentType, data)
}

// Package apiclient is a thin HTTP client for the product authenticity
// classification API. Every operation performs exactly one request and
// reports failures as *models.APIError.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"go.uber.org/zap"

	"authentiscan/common/models"
	"authentiscan/common/validator"
)

// DefaultTimeout bounds every request made by the client
const DefaultTimeout = 30 * time.Second

const (
	apiPrefix    = "/api/v1"
	maxBodyBytes = 4 << 20
)

// Client calls the classification API
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the logger used for request diagnostics
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New creates a client for the API rooted at baseURL (e.g. http://localhost:8000)
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API root the client talks to
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ClassifyImage uploads an image as the single multipart field "file"
func (c *Client) ClassifyImage(ctx context.Context, file models.UploadedFile) (*models.ClassificationResponse, error) {
	body, contentType, err := multipartBody(file)
	if err != nil {
		return nil, unexpected(fmt.Errorf("build multipart body: %w", err))
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/classify", body)
	if err != nil {
		return nil, unexpected(err)
	}
	req.Header.Set("Content-Type", contentType)

	var out models.ClassificationResponse
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SubmitFeedback sends a user's correction for a classification
func (c *Client) SubmitFeedback(ctx context.Context, feedback models.FeedbackRequest) (*models.FeedbackResponse, error) {
	payload, err := json.Marshal(feedback)
	if err != nil {
		return nil, unexpected(fmt.Errorf("encode feedback: %w", err))
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/feedback", bytes.NewReader(payload))
	if err != nil {
		return nil, unexpected(err)
	}
	req.Header.Set("Content-Type", "application/json")

	var out models.FeedbackResponse
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CheckHealth fetches the health of the classification service
func (c *Client) CheckHealth(ctx context.Context) (*models.HealthResponse, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/health", nil)
	if err != nil {
		return nil, unexpected(err)
	}

	var out models.HealthResponse
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetStats fetches aggregate classification statistics
func (c *Client) GetStats(ctx context.Context) (*models.StatsResponse, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/stats", nil)
	if err != nil {
		return nil, unexpected(err)
	}

	var out models.StatsResponse
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) newRequest(ctx context.Context, method, endpoint string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+apiPrefix+endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// do sends req and decodes a 2xx JSON body into out
func (c *Client) do(req *http.Request, out any) error {
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("classification api unreachable",
			zap.String("method", req.Method),
			zap.String("url", req.URL.String()),
			zap.Error(err))
		return networkError()
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		c.logger.Warn("reading classification api response failed",
			zap.String("url", req.URL.String()),
			zap.Error(err))
		return networkError()
	}

	c.logger.Debug("classification api call",
		zap.String("method", req.Method),
		zap.String("path", req.URL.Path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &models.APIError{
			Detail: detailMessage(body),
			Status: resp.StatusCode,
		}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		c.logger.Error("undecodable classification api response",
			zap.String("path", req.URL.Path),
			zap.Error(err))
		return unexpected(fmt.Errorf("decode response: %w", err))
	}
	return nil
}

// multipartBody encodes file as the single part "file", keeping its declared content type
func multipartBody(file models.UploadedFile) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	contentType := file.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="file"; filename="%s"`, validator.SanitizeFilename(file.Name)))
	h.Set("Content-Type", contentType)

	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(file.Data); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

package web

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"authentiscan/common/apiclient"
	"authentiscan/common/handoff"
	"authentiscan/common/models"
	"authentiscan/common/stub"
	"authentiscan/common/validator"
)

var jpegBytes = []byte("\xff\xd8\xff\xe0 fake jpeg payload")

func TestUploadRejectsInvalidType(t *testing.T) {
	b := setupBrowser(t, 10)

	w := b.upload("manual.pdf", "application/pdf", []byte("%PDF-1.4"))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), `id="validation-error"`)
	assert.Contains(t, w.Body.String(), validator.MsgInvalidType)
	assert.NotContains(t, w.Body.String(), `id="preview-image"`)

	assert.Equal(t, 0, b.fake.classifyCount())
	assert.Equal(t, http.StatusNotFound, b.get("/preview").Code)
}

func TestUploadRejectsOversizeFile(t *testing.T) {
	b := setupBrowser(t, 1)

	data := bytes.Repeat([]byte{0xff}, 1024*1024+1)
	w := b.upload("huge.jpg", "image/jpeg", data)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "File size exceeds the 1MB limit.")
	assert.Equal(t, 0, b.fake.classifyCount())
}

func TestUploadRejectsEmptyFile(t *testing.T) {
	b := setupBrowser(t, 10)

	w := b.upload("empty.png", "image/png", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), msgEmptyFile)
}

func TestUploadRequiresFile(t *testing.T) {
	b := setupBrowser(t, 10)

	req := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader(""))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := b.send(req)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), msgNoFile)
}

func TestUploadShowsPreview(t *testing.T) {
	b := setupBrowser(t, 10)

	w := b.upload("../bag photo!.jpg", "image/jpeg", jpegBytes)
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))

	home := b.get("/")
	assert.Equal(t, http.StatusOK, home.Code)
	body := home.Body.String()
	assert.Contains(t, body, `id="preview-image"`)
	assert.Contains(t, body, "bag photo.jpg")
	assert.Contains(t, body, `id="classify-button"`)
	assert.NotContains(t, body, `id="validation-error"`)

	preview := b.get("/preview")
	assert.Equal(t, http.StatusOK, preview.Code)
	assert.Equal(t, "image/jpeg", preview.Header().Get("Content-Type"))
	assert.Equal(t, "no-store", preview.Header().Get("Cache-Control"))
	assert.Equal(t, jpegBytes, preview.Body.Bytes())
}

func TestUploadReplacesSelection(t *testing.T) {
	b := setupBrowser(t, 10)

	require.Equal(t, http.StatusSeeOther, b.upload("first.jpg", "image/jpeg", jpegBytes).Code)
	require.Equal(t, http.StatusSeeOther, b.upload("second.png", "image/png", []byte("png bytes")).Code)

	preview := b.get("/preview")
	assert.Equal(t, "image/png", preview.Header().Get("Content-Type"))
	assert.Equal(t, "png bytes", preview.Body.String())

	// An invalid replacement keeps the current selection
	w := b.upload("notes.txt", "text/plain", []byte("hello"))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "second.png")
	assert.Equal(t, "png bytes", b.get("/preview").Body.String())
}

func TestRemoveClearsSelection(t *testing.T) {
	b := setupBrowser(t, 10)
	require.Equal(t, http.StatusSeeOther, b.upload("bag.jpg", "image/jpeg", jpegBytes).Code)

	w := b.postForm("/remove", nil)
	assert.Equal(t, http.StatusSeeOther, w.Code)

	assert.Equal(t, http.StatusNotFound, b.get("/preview").Code)
	assert.NotContains(t, b.get("/").Body.String(), `id="preview-image"`)
}

func TestClassifyWithoutSelection(t *testing.T) {
	b := setupBrowser(t, 10)

	w := b.postForm("/classify", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), msgNothingToCheck)
	assert.Equal(t, 0, b.fake.classifyCount())
}

func TestClassifySuccessHandsOffResult(t *testing.T) {
	b := setupBrowser(t, 10)
	require.Equal(t, http.StatusSeeOther, b.upload("bag.jpg", "image/jpeg", jpegBytes).Code)

	w := b.postForm("/classify", nil)
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/results", w.Header().Get("Location"))

	require.Equal(t, 1, b.fake.classifyCount())
	sent := b.fake.classifyCalls[0]
	assert.Equal(t, "bag.jpg", sent.Name)
	assert.Equal(t, "image/jpeg", sent.ContentType)
	assert.Equal(t, jpegBytes, sent.Data)

	results := b.get("/results")
	assert.Equal(t, http.StatusOK, results.Code)
	body := results.Body.String()
	assert.Contains(t, body, `class="badge badge-success"`)
	assert.Contains(t, body, "92%")
	assert.Contains(t, body, "Stitching is even")
	assert.NotContains(t, body, `id="low-confidence-banner"`)
	assert.Contains(t, body, `id="feedback-form"`)

	image := b.get("/results/image")
	assert.Equal(t, http.StatusOK, image.Code)
	assert.Equal(t, jpegBytes, image.Body.Bytes())

	// The selection was consumed by the hand-off
	assert.Equal(t, http.StatusNotFound, b.get("/preview").Code)
}

func TestClassifyLowConfidenceBanner(t *testing.T) {
	b := setupBrowser(t, 10)
	b.fake.classify = func(context.Context, models.UploadedFile) (*models.ClassificationResponse, error) {
		r := originalResult(0.55)
		r.Label = models.LabelFake
		r.LowConfidenceWarning = true
		return r, nil
	}
	require.Equal(t, http.StatusSeeOther, b.upload("bag.jpg", "image/jpeg", jpegBytes).Code)
	require.Equal(t, http.StatusSeeOther, b.postForm("/classify", nil).Code)

	body := b.get("/results").Body.String()
	assert.Contains(t, body, `class="badge badge-alert"`)
	assert.Contains(t, body, `id="low-confidence-banner"`)
	assert.Contains(t, body, "gauge-alert")
}

func TestClassifyFailureShowsErrorAndAllowsRetry(t *testing.T) {
	b := setupBrowser(t, 10)
	b.fake.classify = func(context.Context, models.UploadedFile) (*models.ClassificationResponse, error) {
		return nil, &models.APIError{Status: http.StatusBadRequest, Detail: "Image is too blurry"}
	}
	require.Equal(t, http.StatusSeeOther, b.upload("bag.jpg", "image/jpeg", jpegBytes).Code)

	w := b.postForm("/classify", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `id="api-error"`)
	assert.Contains(t, body, `data-status="400"`)
	assert.Contains(t, body, "Image is too blurry")
	assert.Contains(t, body, `id="preview-image"`)

	// The error survives a reload
	assert.Contains(t, b.get("/").Body.String(), "Image is too blurry")

	b.fake.classify = nil
	retry := b.postForm("/classify", nil)
	assert.Equal(t, http.StatusSeeOther, retry.Code)
	assert.Equal(t, 2, b.fake.classifyCount())
}

func TestClassifyUnreachableServiceThenRetry(t *testing.T) {
	b := setupBrowser(t, 10)

	dead := httptest.NewServer(http.NotFoundHandler())
	dead.Close()
	unreachable := apiclient.New(dead.URL)

	gin.SetMode(gin.TestMode)
	live := gin.New()
	stub.New(10).Register(live)
	liveSrv := httptest.NewServer(live)
	t.Cleanup(liveSrv.Close)
	reachable := apiclient.New(liveSrv.URL)

	b.fake.classify = unreachable.ClassifyImage
	require.Equal(t, http.StatusSeeOther, b.upload("bag.jpg", "image/jpeg", jpegBytes).Code)

	w := b.postForm("/classify", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `data-status="503"`)
	assert.Contains(t, w.Body.String(), apiclient.MsgNetwork)

	b.fake.classify = reachable.ClassifyImage
	retry := b.postForm("/classify", nil)
	assert.Equal(t, http.StatusSeeOther, retry.Code)
	assert.Equal(t, http.StatusOK, b.get("/results").Code)
	assert.Contains(t, b.get("/results").Body.String(), `id="feedback-form"`)
}

func TestClassifyRefusedWhileInFlight(t *testing.T) {
	b := setupBrowser(t, 10)
	require.Equal(t, http.StatusSeeOther, b.upload("bag.jpg", "image/jpeg", jpegBytes).Code)

	sid := b.sessionID()
	ok, err := b.store.Acquire(context.Background(), sid, handoff.LockClassify, handoff.DefaultTTL)
	require.NoError(t, err)
	require.True(t, ok)

	home := b.get("/").Body.String()
	assert.Contains(t, home, "Analyzing")
	assert.Contains(t, home, "disabled")

	w := b.postForm("/classify", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), msgBusy)
	assert.Equal(t, 0, b.fake.classifyCount())

	assert.Equal(t, http.StatusConflict, b.upload("other.jpg", "image/jpeg", jpegBytes).Code)
	assert.Equal(t, http.StatusConflict, b.postForm("/remove", nil).Code)

	require.NoError(t, b.store.Release(context.Background(), sid, handoff.LockClassify))
	assert.Equal(t, http.StatusSeeOther, b.postForm("/classify", nil).Code)
}

func TestClassifyDiscardsResultWhenBrowserLeaves(t *testing.T) {
	b := setupBrowser(t, 10)
	require.Equal(t, http.StatusSeeOther, b.upload("bag.jpg", "image/jpeg", jpegBytes).Code)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var outboundErr error
	b.fake.classify = func(callCtx context.Context, _ models.UploadedFile) (*models.ClassificationResponse, error) {
		cancel()
		outboundErr = callCtx.Err()
		return originalResult(0.92), nil
	}

	req := httptest.NewRequest(http.MethodPost, "/classify", nil).WithContext(ctx)
	b.send(req)

	assert.NoError(t, outboundErr, "outbound call must not see the browser cancellation")
	assert.Equal(t, 1, b.fake.classifyCount())

	assert.Contains(t, b.get("/results").Body.String(), "No result to display")

	// The selection is kept and can be classified again
	assert.Equal(t, http.StatusOK, b.get("/preview").Code)
	locked, err := b.store.Locked(context.Background(), b.sessionID(), handoff.LockClassify)
	require.NoError(t, err)
	assert.False(t, locked)

	b.fake.classify = nil
	assert.Equal(t, http.StatusSeeOther, b.postForm("/classify", nil).Code)
}

func TestStaleClassifyingFlowRecovers(t *testing.T) {
	b := setupBrowser(t, 10)
	require.Equal(t, http.StatusSeeOther, b.upload("bag.jpg", "image/jpeg", jpegBytes).Code)

	// A flow left Classifying without a lock
	sid := b.sessionID()
	require.NoError(t, handoff.PutJSON(context.Background(), b.store, sid, handoff.KeyFlow, uploadFlow{State: StateClassifying}))

	assert.Equal(t, http.StatusSeeOther, b.postForm("/classify", nil).Code)
}

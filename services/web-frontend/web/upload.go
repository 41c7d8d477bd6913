package web

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"authentiscan/common/apiclient"
	"authentiscan/common/handoff"
	"authentiscan/common/models"
	"authentiscan/common/validator"
)

// multipartOverhead is allowed on top of the file size limit for form framing
const multipartOverhead = 1 << 20

const (
	msgNoFile         = "Please choose an image to upload."
	msgEmptyFile      = "The selected file is empty."
	msgBusy           = "A classification is already in progress. Please wait for it to finish."
	msgNothingToCheck = "Please select an image before starting the analysis."
)

// homeView is the data rendered by home.html
type homeView struct {
	State           UploadState
	Upload          *uploadSummary
	ValidationError string
	Error           string
	ErrorStatus     int
	MaxSizeMB       int
	Accept          string
}

type uploadSummary struct {
	Name        string
	Size        string
	ContentType string
}

// loadUploadState reads the session's flow and selected file.
// A held classify lock always shows as Classifying.
func (s *Server) loadUploadState(c *gin.Context) (uploadFlow, *models.UploadedFile, error) {
	ctx := c.Request.Context()
	sid := sessionID(c)

	flow := uploadFlow{State: StateEmpty}
	if _, err := handoff.GetJSON(ctx, s.store, sid, handoff.KeyFlow, &flow); err != nil {
		return flow, nil, err
	}

	var upload models.UploadedFile
	found, err := handoff.GetJSON(ctx, s.store, sid, handoff.KeyUpload, &upload)
	if err != nil {
		return flow, nil, err
	}
	if !found {
		// The selection expired or was consumed
		if flow.State.HasSelection() {
			flow = uploadFlow{State: StateEmpty}
		}
		return flow, nil, nil
	}
	if !flow.State.HasSelection() {
		flow = uploadFlow{State: StateSelected}
	}

	busy, err := s.store.Locked(ctx, sid, handoff.LockClassify)
	if err != nil {
		return flow, nil, err
	}
	switch {
	case busy:
		flow.State = StateClassifying
	case flow.State == StateClassifying:
		// The lock expired without the request settling
		flow = uploadFlow{State: StateSelected}
	}
	return flow, &upload, nil
}

func (s *Server) saveFlow(c *gin.Context, flow uploadFlow) error {
	return handoff.PutJSON(c.Request.Context(), s.store, sessionID(c), handoff.KeyFlow, flow)
}

func (s *Server) homeView(flow uploadFlow, upload *models.UploadedFile) homeView {
	view := homeView{
		State:       flow.State,
		Error:       flow.Error,
		ErrorStatus: flow.ErrorStatus,
		MaxSizeMB:   s.validator.MaxSizeMB(),
		Accept:      strings.Join(validator.AllowedTypes, ","),
	}
	if upload != nil {
		view.Upload = &uploadSummary{
			Name:        upload.Name,
			Size:        FormatBytes(upload.Size),
			ContentType: upload.ContentType,
		}
	}
	return view
}

func (s *Server) renderHome(c *gin.Context, status int, view homeView) {
	c.HTML(status, "home.html", view)
}

// handleHome renders the upload view
func (s *Server) handleHome(c *gin.Context) {
	flow, upload, err := s.loadUploadState(c)
	if err != nil {
		s.renderError(c, err, "load upload state failed")
		return
	}
	s.renderHome(c, http.StatusOK, s.homeView(flow, upload))
}

// handleUpload validates and stores the selected file (POST /upload)
func (s *Server) handleUpload(c *gin.Context) {
	flow, current, err := s.loadUploadState(c)
	if err != nil {
		s.renderError(c, err, "load upload state failed")
		return
	}

	rejectWith := func(status int, msg string) {
		view := s.homeView(flow, current)
		view.Error, view.ErrorStatus = "", 0
		view.ValidationError = msg
		s.renderHome(c, status, view)
	}

	if flow.State == StateClassifying {
		rejectWith(http.StatusConflict, msgBusy)
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.validator.MaxBytes()+multipartOverhead)
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			res := s.validator.Validate(validator.FileInfo{Size: s.validator.MaxBytes() + 1})
			rejectWith(http.StatusUnprocessableEntity, res.Error)
			return
		}
		rejectWith(http.StatusUnprocessableEntity, msgNoFile)
		return
	}
	defer file.Close()

	info := validator.FileInfo{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
	}
	if res := s.validator.Validate(info); !res.Valid {
		s.logger.Info("upload rejected",
			zap.String("content_type", info.ContentType),
			zap.Int64("size", info.Size),
			zap.String("reason", res.Error))
		rejectWith(http.StatusUnprocessableEntity, res.Error)
		return
	}
	if info.Size == 0 {
		rejectWith(http.StatusUnprocessableEntity, msgEmptyFile)
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		s.renderError(c, err, "read upload failed")
		return
	}

	if err := flow.apply(EventSelect); err != nil {
		s.renderError(c, err, "upload flow transition failed")
		return
	}

	// Replacing the entry releases the previous preview
	upload := models.UploadedFile{
		Name:        validator.SanitizeFilename(info.Name),
		ContentType: info.ContentType,
		Size:        int64(len(data)),
		Data:        data,
	}
	ctx := c.Request.Context()
	if err := handoff.PutJSON(ctx, s.store, sessionID(c), handoff.KeyUpload, upload); err != nil {
		s.renderError(c, err, "store upload failed")
		return
	}
	if err := s.saveFlow(c, flow); err != nil {
		s.renderError(c, err, "save upload flow failed")
		return
	}

	c.Redirect(http.StatusSeeOther, "/")
}

// handleRemove drops the selected file (POST /remove)
func (s *Server) handleRemove(c *gin.Context) {
	flow, upload, err := s.loadUploadState(c)
	if err != nil {
		s.renderError(c, err, "load upload state failed")
		return
	}
	if flow.State == StateClassifying {
		view := s.homeView(flow, upload)
		view.ValidationError = msgBusy
		s.renderHome(c, http.StatusConflict, view)
		return
	}
	if err := flow.apply(EventRemove); err != nil {
		// Nothing selected
		c.Redirect(http.StatusSeeOther, "/")
		return
	}

	if err := s.store.Delete(c.Request.Context(), sessionID(c), handoff.KeyUpload); err != nil {
		s.renderError(c, err, "delete upload failed")
		return
	}
	if err := s.saveFlow(c, flow); err != nil {
		s.renderError(c, err, "save upload flow failed")
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}

// handlePreview serves the selected image (GET /preview)
func (s *Server) handlePreview(c *gin.Context) {
	var upload models.UploadedFile
	found, err := handoff.GetJSON(c.Request.Context(), s.store, sessionID(c), handoff.KeyUpload, &upload)
	if err != nil {
		s.renderError(c, err, "load upload failed")
		return
	}
	if !found {
		c.Status(http.StatusNotFound)
		return
	}
	serveImage(c, upload.ContentType, upload.Data)
}

// handleClassify sends the selected image to the classification API (POST /classify)
func (s *Server) handleClassify(c *gin.Context) {
	ctx := c.Request.Context()
	sid := sessionID(c)

	flow, upload, err := s.loadUploadState(c)
	if err != nil {
		s.renderError(c, err, "load upload state failed")
		return
	}
	if upload == nil {
		view := s.homeView(flow, nil)
		view.ValidationError = msgNothingToCheck
		s.renderHome(c, http.StatusBadRequest, view)
		return
	}

	acquired, err := s.store.Acquire(ctx, sid, handoff.LockClassify, s.lockTTL)
	if err != nil {
		s.renderError(c, err, "acquire classify lock failed")
		return
	}
	if !acquired {
		view := s.homeView(uploadFlow{State: StateClassifying}, upload)
		view.ValidationError = msgBusy
		s.renderHome(c, http.StatusConflict, view)
		return
	}
	defer func() {
		if err := s.store.Release(detached(c), sid, handoff.LockClassify); err != nil {
			s.logger.Warn("release classify lock failed", zap.Error(err))
		}
	}()

	if err := flow.apply(EventConfirm); err != nil {
		s.renderError(c, err, "upload flow transition failed")
		return
	}
	if err := s.saveFlow(c, flow); err != nil {
		s.renderError(c, err, "save upload flow failed")
		return
	}

	result, err := s.client.ClassifyImage(detached(c), *upload)

	if clientGone(c) {
		s.logger.Info("browser left before classification finished, discarding result",
			zap.Bool("failed", err != nil))
		s.settleAbandoned(c)
		return
	}

	if err != nil {
		apiErr := apiclient.AsAPIError(err)
		s.logger.Warn("classification failed",
			zap.Int("status", apiErr.Status),
			zap.String("detail", apiErr.Detail),
			zap.Error(err))

		_ = flow.apply(EventFail)
		flow.Error = apiErr.Detail
		flow.ErrorStatus = apiErr.Status
		if err := s.saveFlow(c, flow); err != nil {
			s.renderError(c, err, "save upload flow failed")
			return
		}
		view := s.homeView(flow, upload)
		view.State = StateError
		s.renderHome(c, errorStatus(apiErr), view)
		return
	}

	if err := s.stashResult(c, result, upload); err != nil {
		s.renderError(c, err, "stash classification failed")
		return
	}
	_ = flow.apply(EventSucceed)
	if err := s.saveFlow(c, flow); err != nil {
		s.renderError(c, err, "save upload flow failed")
		return
	}

	s.logger.Info("classification complete",
		zap.String("request_id", result.RequestID),
		zap.String("label", result.Label),
		zap.Float64("confidence", result.Confidence))
	c.Redirect(http.StatusSeeOther, "/results")
}

// stashResult writes the hand-off entries read by the results view
func (s *Server) stashResult(c *gin.Context, result *models.ClassificationResponse, upload *models.UploadedFile) error {
	ctx := detached(c)
	sid := sessionID(c)

	if err := s.store.Delete(ctx, sid, handoff.KeyFeedback); err != nil {
		return err
	}
	if err := handoff.PutJSON(ctx, s.store, sid, handoff.KeyResult, result); err != nil {
		return err
	}
	image := storedImage{ContentType: upload.ContentType, Data: upload.Data}
	if err := handoff.PutJSON(ctx, s.store, sid, handoff.KeyImage, image); err != nil {
		return err
	}
	return s.store.Delete(ctx, sid, handoff.KeyUpload)
}

// settleAbandoned returns an abandoned classification to Selected so it can be retried
func (s *Server) settleAbandoned(c *gin.Context) {
	flow := uploadFlow{State: StateSelected}
	if err := handoff.PutJSON(detached(c), s.store, sessionID(c), handoff.KeyFlow, flow); err != nil {
		s.logger.Warn("reset abandoned upload flow failed", zap.Error(err))
	}
}

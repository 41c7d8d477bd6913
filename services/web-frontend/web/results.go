package web

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"authentiscan/common/apiclient"
	"authentiscan/common/handoff"
	"authentiscan/common/models"
	"authentiscan/common/validator"
)

const (
	msgNoAnswer        = "Please tell us whether the result was correct."
	msgFeedbackPending = "Your feedback is already being submitted."
	msgFeedbackDone    = "Feedback has already been submitted for this result."
	msgBadRequestID    = "This result cannot receive feedback."
)

// Feedback answers of the three-state widget
const (
	AnswerNone      = ""
	AnswerCorrect   = "correct"
	AnswerIncorrect = "incorrect"
)

// storedImage is the hand-off entry for the classified image
type storedImage struct {
	ContentType string `json:"content_type"`
	Data        []byte `json:"data"`
}

// feedbackForm is the state of the feedback widget
type feedbackForm struct {
	Answer      string
	UserLabel   string
	Comments    string
	Error       string
	ErrorStatus int
	Pending     bool
	MaxComment  int
}

// resultsView is the data rendered by results.html
type resultsView struct {
	Empty    bool
	Result   ResultView
	Feedback *models.FeedbackResponse
	Form     feedbackForm
	Notice   string
}

// loadResults reads the stashed result and any acknowledged feedback.
// ok is false when nothing was handed off.
func (s *Server) loadResults(c *gin.Context) (result models.ClassificationResponse, view resultsView, ok bool, err error) {
	ctx := c.Request.Context()
	sid := sessionID(c)

	found, err := handoff.GetJSON(ctx, s.store, sid, handoff.KeyResult, &result)
	if err != nil || !found {
		return result, resultsView{Empty: true}, false, err
	}

	view = resultsView{
		Result: NewResultView(result),
		Form:   feedbackForm{MaxComment: validator.MaxCommentLength},
	}

	var fb models.FeedbackResponse
	submitted, err := handoff.GetJSON(ctx, s.store, sid, handoff.KeyFeedback, &fb)
	if err != nil {
		return result, view, true, err
	}
	if submitted {
		view.Feedback = &fb
	}

	pending, err := s.store.Locked(ctx, sid, handoff.LockFeedback)
	if err != nil {
		return result, view, true, err
	}
	view.Form.Pending = pending
	return result, view, true, nil
}

func (s *Server) renderResults(c *gin.Context, status int, view resultsView) {
	c.HTML(status, "results.html", view)
}

// handleResults renders the results view (GET /results)
func (s *Server) handleResults(c *gin.Context) {
	_, view, _, err := s.loadResults(c)
	if err != nil {
		s.renderError(c, err, "load results failed")
		return
	}
	s.renderResults(c, http.StatusOK, view)
}

// handleResultImage serves the classified image (GET /results/image)
func (s *Server) handleResultImage(c *gin.Context) {
	var image storedImage
	found, err := handoff.GetJSON(c.Request.Context(), s.store, sessionID(c), handoff.KeyImage, &image)
	if err != nil {
		s.renderError(c, err, "load result image failed")
		return
	}
	if !found {
		c.Status(http.StatusNotFound)
		return
	}
	serveImage(c, image.ContentType, image.Data)
}

// handleFeedback submits the feedback form once (POST /results/feedback)
func (s *Server) handleFeedback(c *gin.Context) {
	sid := sessionID(c)

	result, view, ok, err := s.loadResults(c)
	if err != nil {
		s.renderError(c, err, "load results failed")
		return
	}
	if !ok {
		c.Redirect(http.StatusSeeOther, "/results")
		return
	}
	if view.Feedback != nil {
		view.Notice = msgFeedbackDone
		s.renderResults(c, http.StatusConflict, view)
		return
	}

	form := &view.Form
	form.Answer = c.PostForm("answer")
	form.UserLabel = c.PostForm("user_label")
	form.Comments = validator.SanitizeComment(c.PostForm("comments"))

	var isCorrect bool
	switch form.Answer {
	case AnswerCorrect:
		isCorrect = true
	case AnswerIncorrect:
		isCorrect = false
	default:
		form.Answer = AnswerNone
		form.Error = msgNoAnswer
		s.renderResults(c, http.StatusUnprocessableEntity, view)
		return
	}
	if form.UserLabel != models.LabelOriginal && form.UserLabel != models.LabelFake {
		form.UserLabel = ""
	}
	if !validator.IsValidRequestID(result.RequestID) {
		form.Error = msgBadRequestID
		s.renderResults(c, http.StatusBadRequest, view)
		return
	}

	ctx := c.Request.Context()
	acquired, err := s.store.Acquire(ctx, sid, handoff.LockFeedback, s.lockTTL)
	if err != nil {
		s.renderError(c, err, "acquire feedback lock failed")
		return
	}
	if !acquired {
		form.Pending = true
		form.Error = msgFeedbackPending
		s.renderResults(c, http.StatusConflict, view)
		return
	}
	defer func() {
		if err := s.store.Release(detached(c), sid, handoff.LockFeedback); err != nil {
			s.logger.Warn("release feedback lock failed", zap.Error(err))
		}
	}()

	req := models.FeedbackRequest{
		RequestID: result.RequestID,
		IsCorrect: isCorrect,
		UserLabel: form.UserLabel,
		Comments:  form.Comments,
	}
	resp, err := s.client.SubmitFeedback(detached(c), req)

	if clientGone(c) {
		s.logger.Info("browser left before feedback finished, discarding response",
			zap.String("request_id", result.RequestID),
			zap.Bool("failed", err != nil))
		return
	}

	if err != nil {
		apiErr := apiclient.AsAPIError(err)
		s.logger.Warn("feedback submission failed",
			zap.String("request_id", result.RequestID),
			zap.Int("status", apiErr.Status),
			zap.Error(err))
		form.Error = apiErr.Detail
		form.ErrorStatus = apiErr.Status
		s.renderResults(c, errorStatus(apiErr), view)
		return
	}

	if err := handoff.PutJSON(ctx, s.store, sid, handoff.KeyFeedback, resp); err != nil {
		s.renderError(c, err, "store feedback acknowledgment failed")
		return
	}

	s.logger.Info("feedback submitted",
		zap.String("request_id", result.RequestID),
		zap.String("feedback_id", resp.FeedbackID),
		zap.Bool("flagged_for_review", resp.FlaggedForReview),
		zap.String("is_correct", strconv.FormatBool(isCorrect)))
	c.Redirect(http.StatusSeeOther, "/results")
}

// handleNew clears the hand-off buffer and returns to the upload view (POST /new)
func (s *Server) handleNew(c *gin.Context) {
	ctx := c.Request.Context()
	sid := sessionID(c)

	if err := handoff.ClearResults(ctx, s.store, sid); err != nil {
		s.renderError(c, err, "clear results failed")
		return
	}
	if err := s.store.Delete(ctx, sid, handoff.KeyUpload, handoff.KeyFlow); err != nil {
		s.renderError(c, err, "clear upload failed")
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}

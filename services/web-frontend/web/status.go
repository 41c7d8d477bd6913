package web

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"authentiscan/common/apiclient"
	"authentiscan/common/models"
)

// statusView is the data rendered by status.html
type statusView struct {
	Health      *models.HealthResponse
	HealthError *models.APIError
	Stats       *models.StatsResponse
	StatsError  *models.APIError
	Accuracy    string
	AvgConf     string
	APIBaseURL  string
}

// fetchStatus reads health and stats concurrently. A failure of one does not
// cancel the other.
func (s *Server) fetchStatus(ctx context.Context) statusView {
	var view statusView
	var g errgroup.Group

	g.Go(func() error {
		health, err := s.client.CheckHealth(ctx)
		if err != nil {
			view.HealthError = apiclient.AsAPIError(err)
			return nil
		}
		view.Health = health
		return nil
	})
	g.Go(func() error {
		stats, err := s.client.GetStats(ctx)
		if err != nil {
			view.StatsError = apiclient.AsAPIError(err)
			return nil
		}
		view.Stats = stats
		return nil
	})
	_ = g.Wait()

	if view.Stats != nil {
		view.AvgConf = FormatPercent(view.Stats.AverageConfidence)
		view.Accuracy = "n/a"
		if view.Stats.AccuracyEstimate != nil {
			view.Accuracy = FormatPercent(*view.Stats.AccuracyEstimate)
		}
	}
	return view
}

// handleStatus renders the service status page (GET /status)
func (s *Server) handleStatus(c *gin.Context) {
	view := s.fetchStatus(detached(c))
	if view.HealthError != nil {
		s.logger.Warn("health check failed", zap.Int("status", view.HealthError.Status), zap.String("detail", view.HealthError.Detail))
	}
	if view.StatsError != nil {
		s.logger.Warn("stats fetch failed", zap.Int("status", view.StatsError.Status), zap.String("detail", view.StatsError.Detail))
	}
	if base, ok := s.client.(interface{ BaseURL() string }); ok {
		view.APIBaseURL = base.BaseURL()
	}
	c.HTML(http.StatusOK, "status.html", view)
}

// RegisterAPI mounts the JSON passthrough routes on an /api/v1 group
func (s *Server) RegisterAPI(group gin.IRoutes) {
	group.GET("/health", s.handleAPIHealth)
	group.GET("/stats", s.handleAPIStats)
}

// handleAPIHealth godoc
// @Summary      Classification service health
// @Description  Reports whether the classification service and its model are available
// @Tags         status
// @Produce      json
// @Success      200  {object}  models.HealthResponse
// @Failure      500  {object}  models.ErrorResponse
// @Failure      503  {object}  models.ErrorResponse
// @Router       /health [get]
func (s *Server) handleAPIHealth(c *gin.Context) {
	health, err := s.client.CheckHealth(detached(c))
	if err != nil {
		s.abortWithAPIError(c, "health check failed", err)
		return
	}
	c.JSON(http.StatusOK, health)
}

// handleAPIStats godoc
// @Summary      Classification statistics
// @Description  Aggregate counts, confidence and accuracy of the classification service
// @Tags         status
// @Produce      json
// @Success      200  {object}  models.StatsResponse
// @Failure      500  {object}  models.ErrorResponse
// @Failure      503  {object}  models.ErrorResponse
// @Router       /stats [get]
func (s *Server) handleAPIStats(c *gin.Context) {
	stats, err := s.client.GetStats(detached(c))
	if err != nil {
		s.abortWithAPIError(c, "stats fetch failed", err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) abortWithAPIError(c *gin.Context, msg string, err error) {
	apiErr := apiclient.AsAPIError(err)
	s.logger.Warn(msg, zap.Int("status", apiErr.Status), zap.Error(err))
	status := errorStatus(apiErr)
	c.AbortWithStatusJSON(status, models.ErrorResponse{
		Status:  status,
		Message: msg,
		Error:   apiErr.Detail,
	})
}

package http_api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/core-coin/rota/internal/models"
	"github.com/core-coin/rota/internal/scheduler"
	"github.com/core-coin/rota/internal/wheel"
)

// WheelUpdateRequest represents the JSON body replacing a wheel's table
type WheelUpdateRequest struct {
	FallbackID string              `json:"fallback_id" binding:"required"`
	Entries    []models.PrizeEntry `json:"entries" binding:"required,min=1"`
}

// SimulateRequest represents the JSON body of an operator test run
type SimulateRequest struct {
	Draws int `json:"draws" binding:"required"`
}

// HotOfferRequest toggles the hot offer flag of a channel
type HotOfferRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

// spin is a handler for the /spin endpoint. The reward multiplier is never
// taken from the request; it follows the stored state of channel_id.
func (s *HTTPServer) spin(c *gin.Context) {
	variant := c.Query("variant")
	if variant == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "variant is required"})
		return
	}
	var channelID int64
	if raw := c.Query("channel_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid channel id: " + raw})
			return
		}
		channelID = id
	}

	result, err := s.rota.Spin(c.Request.Context(), variant, channelID)
	switch {
	case errors.Is(err, wheel.ErrUnknownVariant):
		c.JSON(http.StatusNotFound, gin.H{"error": "wheel not found"})
	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "channel not found"})
	case err != nil:
		s.logger.Errorw("Spin failed", "variant", variant, "channel_id", channelID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "spin failed"})
	default:
		c.JSON(http.StatusOK, result)
	}
}

func (s *HTTPServer) getWheel(c *gin.Context) {
	setting, ok := s.rota.GetWheel(c.Param("variant"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "wheel not found"})
		return
	}
	c.JSON(http.StatusOK, setting)
}

func (s *HTTPServer) updateWheel(c *gin.Context) {
	var req WheelUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.logger.Debugw("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid request body: " + err.Error(),
		})
		return
	}

	setting := &models.WheelSetting{
		Variant:    c.Param("variant"),
		FallbackID: req.FallbackID,
		Entries:    req.Entries,
	}
	if err := s.rota.UpdateWheel(c.Request.Context(), setting); err != nil {
		var verr *wheel.ValidationError
		if errors.As(err, &verr) {
			c.JSON(http.StatusBadRequest, gin.H{
				"success":  false,
				"error":    verr.Error(),
				"entry_id": verr.EntryID,
			})
			return
		}
		s.logger.Errorw("Failed to update wheel", "variant", setting.Variant, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Failed to update wheel",
		})
		return
	}

	updated, _ := s.rota.GetWheel(setting.Variant)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"wheel":   updated,
	})
}

func (s *HTTPServer) simulate(c *gin.Context) {
	var req SimulateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	dist, err := s.rota.Simulate(c.Param("variant"), req.Draws)
	switch {
	case errors.Is(err, wheel.ErrInvalidDraws):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, wheel.ErrUnknownVariant):
		c.JSON(http.StatusNotFound, gin.H{"error": "wheel not found"})
	case err != nil:
		s.logger.Errorw("Simulation failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "simulation failed"})
	default:
		c.JSON(http.StatusOK, dist)
	}
}

func (s *HTTPServer) jobs(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"jobs": s.rota.JobStatus()})
}

func (s *HTTPServer) runJob(c *gin.Context) {
	name := c.Param("name")
	started, err := s.rota.RunJob(name)
	switch {
	case errors.Is(err, scheduler.ErrUnknownJob):
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
	case errors.Is(err, scheduler.ErrStopped):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "job is stopped"})
	case err != nil:
		s.logger.Errorw("Failed to trigger job", "job", name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to trigger job"})
	case !started:
		c.JSON(http.StatusConflict, gin.H{"started": false, "error": "job is already running"})
	default:
		s.logger.Infow("Job triggered by operator", "job", name)
		c.JSON(http.StatusAccepted, gin.H{"started": true})
	}
}

func (s *HTTPServer) channelID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid channel id"})
		return 0, false
	}
	return id, true
}

func (s *HTTPServer) channelResult(c *gin.Context, id int64, err error) {
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "channel not found"})
			return
		}
		s.logger.Errorw("Channel operation failed", "channel_id", id, "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "channel operation failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *HTTPServer) activateChannel(c *gin.Context) {
	id, ok := s.channelID(c)
	if !ok {
		return
	}
	s.channelResult(c, id, s.rota.ActivateChannel(c.Request.Context(), id))
}

func (s *HTTPServer) deactivateChannel(c *gin.Context) {
	id, ok := s.channelID(c)
	if !ok {
		return
	}
	s.channelResult(c, id, s.rota.DeactivateChannel(c.Request.Context(), id))
}

func (s *HTTPServer) setHotOffer(c *gin.Context) {
	id, ok := s.channelID(c)
	if !ok {
		return
	}
	var req HotOfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}
	s.channelResult(c, id, s.rota.SetHotOffer(c.Request.Context(), id, *req.Enabled))
}

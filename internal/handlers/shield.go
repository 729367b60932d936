package handlers

import (
	"errors"
	"net/http"

	"asthma_shield/internal/models"
	"asthma_shield/internal/service"

	"github.com/gin-gonic/gin"
)

// Common response/status constants to avoid magic strings and typos.
const (
	statusOK = "ok"

	errInvalidBodyPref = "invalid body: "
	errDustKickerBusy  = "dust kicker already running"
	errDustKickerStart = "failed to start dust kicker"
)

// Centralized error logging and response.
func (h *Handler) logAndJSONError(c *gin.Context, httpCode int, userMsg, logKey string, err error, kv ...interface{}) {
	if h.log != nil && err != nil {
		fields := append([]interface{}{"err", err}, kv...)
		h.log.Errorw(logKey, fields...)
	}
	c.JSON(httpCode, gin.H{"error": userMsg})
}

// bindJSON binds the body into dst and writes a 400 on failure.
// It returns false if the request was already answered.
func (h *Handler) bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		if h.log != nil {
			h.log.Infow("bad_request_body", "path", c.FullPath(), "err", err)
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return false
	}
	return true
}

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": statusOK,
	})
}

// @Summary      Get shield status
// @Description  Environment snapshot, actuator state, sequences and collaborator status
// @Tags         shield
// @Produce      json
// @Success      200  {object}  models.Status
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/shield/status [get]
// @Security     BearerAuth
func (h *Handler) getStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.services.Shield.Status(c.Request.Context()))
}

// @Summary      Ingest state
// @Description  Merges a partial environment update and runs one evaluation pass
// @Tags         shield
// @Accept       json
// @Produce      json
// @Param        body  body   models.StateUpdate  true  "Partial state"
// @Success      200   {object}  service.EvaluationResult
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Router       /api/v1/shield/state [post]
// @Security     BearerAuth
func (h *Handler) updateState(c *gin.Context) {
	var req models.StateUpdate
	if !h.bindJSON(c, &req) {
		return
	}
	res, err := h.services.Shield.UpdateState(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, service.ErrEmptyUpdate) || errors.Is(err, service.ErrInvalidState) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logAndJSONError(c, http.StatusInternalServerError, "failed to update state", "shield_update_state_failed", err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// @Summary      Evaluate
// @Description  Runs one evaluation pass on the stored snapshot
// @Tags         shield
// @Produce      json
// @Success      200  {object}  service.EvaluationResult
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/shield/evaluate [post]
// @Security     BearerAuth
func (h *Handler) evaluate(c *gin.Context) {
	c.JSON(http.StatusOK, h.services.Shield.Evaluate(c.Request.Context()))
}

// @Summary      Trigger dust kicker
// @Description  Starts the dust kicker sequence in the background
// @Tags         shield
// @Produce      json
// @Success      202  {object}  map[string]bool
// @Failure      401  {object}  map[string]string
// @Failure      409  {object}  map[string]interface{}
// @Failure      503  {object}  map[string]interface{}
// @Router       /api/v1/shield/dust-kicker [post]
// @Security     BearerAuth
func (h *Handler) triggerDustKicker(c *gin.Context) {
	err := h.services.Shield.TriggerDustKicker(c.Request.Context())
	switch {
	case err == nil:
		c.JSON(http.StatusAccepted, gin.H{"accepted": true})
	case errors.Is(err, service.ErrSequenceActive):
		c.JSON(http.StatusConflict, gin.H{"accepted": false, "error": errDustKickerBusy})
	default:
		if h.log != nil {
			h.log.Errorw("dust_kicker_start_failed", "err", err)
		}
		c.JSON(http.StatusServiceUnavailable, gin.H{"accepted": false, "error": errDustKickerStart})
	}
}

package handlers

import (
	"errors"
	"net/http"

	"asthma_shield/internal/device"
	"asthma_shield/internal/models"
	"asthma_shield/internal/service"

	"github.com/gin-gonic/gin"
)

const errActuatorCommand = "actuator command failed"

type speedRequest struct {
	Speed *int `json:"speed" binding:"required"`
}

type ledRequest struct {
	Brightness *int `json:"brightness" binding:"required"`
}

type fanRequest struct {
	Mode string `json:"mode" binding:"required"`
}

type relayRequest struct {
	On *bool `json:"on" binding:"required"`
}

// respondCommand maps a coordinator error to a status code and, on success,
// echoes the last commanded actuator state.
func (h *Handler) respondCommand(c *gin.Context, actuator string, err error) {
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{
			"status":    statusOK,
			"actuators": h.services.Actuators.State(),
		})
	case errors.Is(err, service.ErrInvalidTarget):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, device.ErrNotConfigured):
		h.logAndJSONError(c, http.StatusServiceUnavailable, actuator+" not configured", "actuator_not_configured", err, "actuator", actuator)
	case errors.Is(err, device.ErrCommandRejected), errors.Is(err, device.ErrDeviceUnavailable):
		h.logAndJSONError(c, http.StatusBadGateway, errActuatorCommand, "actuator_command_failed", err, "actuator", actuator)
	default:
		h.logAndJSONError(c, http.StatusInternalServerError, errActuatorCommand, "actuator_command_failed", err, "actuator", actuator)
	}
}

// @Summary      Set purifier speed
// @Tags         actuators
// @Accept       json
// @Produce      json
// @Param        body  body   speedRequest  true  "Speed 0..3"
// @Success      200   {object}  map[string]interface{}  "status, actuators"
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      502   {object}  map[string]string
// @Router       /api/v1/actuators/purifier/speed [post]
// @Security     BearerAuth
func (h *Handler) setPurifierSpeed(c *gin.Context) {
	var req speedRequest
	if !h.bindJSON(c, &req) {
		return
	}
	err := h.services.Actuators.SetPurifierSpeed(c.Request.Context(), *req.Speed)
	h.respondCommand(c, service.ActuatorPurifierSpeed, err)
}

// @Summary      Set purifier LED brightness
// @Tags         actuators
// @Accept       json
// @Produce      json
// @Param        body  body   ledRequest  true  "Brightness 0..100"
// @Success      200   {object}  map[string]interface{}  "status, actuators"
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      502   {object}  map[string]string
// @Router       /api/v1/actuators/purifier/led [post]
// @Security     BearerAuth
func (h *Handler) setPurifierLED(c *gin.Context) {
	var req ledRequest
	if !h.bindJSON(c, &req) {
		return
	}
	err := h.services.Actuators.SetPurifierLED(c.Request.Context(), *req.Brightness)
	h.respondCommand(c, service.ActuatorPurifierLED, err)
}

// @Summary      Set thermostat fan mode
// @Tags         actuators
// @Accept       json
// @Produce      json
// @Param        body  body   fanRequest  true  "Mode: auto | on"
// @Success      200   {object}  map[string]interface{}  "status, actuators"
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      502   {object}  map[string]string
// @Router       /api/v1/actuators/thermostat/fan [post]
// @Security     BearerAuth
func (h *Handler) setFanMode(c *gin.Context) {
	var req fanRequest
	if !h.bindJSON(c, &req) {
		return
	}
	mode, ok := models.ParseFanMode(req.Mode)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "mode must be auto or on"})
		return
	}
	err := h.services.Actuators.SetFanMode(c.Request.Context(), mode)
	h.respondCommand(c, service.ActuatorThermostatFan, err)
}

// @Summary      Switch dehumidifier relay
// @Tags         actuators
// @Accept       json
// @Produce      json
// @Param        body  body   relayRequest  true  "Relay state"
// @Success      200   {object}  map[string]interface{}  "status, actuators"
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      502   {object}  map[string]string
// @Failure      503   {object}  map[string]string
// @Router       /api/v1/actuators/relay [post]
// @Security     BearerAuth
func (h *Handler) setRelay(c *gin.Context) {
	var req relayRequest
	if !h.bindJSON(c, &req) {
		return
	}
	err := h.services.Actuators.SetDehumidifier(c.Request.Context(), *req.On)
	h.respondCommand(c, service.ActuatorDehumidifier, err)
}

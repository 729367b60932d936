package handlers

import (
	"errors"
	"net/http"

	"asthma_shield/internal/service"

	"github.com/gin-gonic/gin"
)

// Credentials is the sign-up and sign-in payload.
type Credentials struct {
	Username string `json:"username" binding:"required" example:"operator"`
	Password string `json:"password" binding:"required" example:"correct horse"`
}

// @Summary      Sign up
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body   Credentials  true  "Credentials"
// @Success      201   {object}  map[string]int
// @Failure      400   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /auth/sign-up [post]
func (h *Handler) signUp(c *gin.Context) {
	var in Credentials
	if !h.bindJSON(c, &in) {
		return
	}

	id, err := h.services.SignUp(c.Request.Context(), in.Username, in.Password)
	switch {
	case err == nil:
		c.JSON(http.StatusCreated, gin.H{"id": id})
	case errors.Is(err, service.ErrInvalidCredentialsFormat):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrUserExists):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		h.logAndJSONError(c, http.StatusInternalServerError, "failed to sign up", "auth_sign_up_failed", err, "username", in.Username)
	}
}

// @Summary      Sign in
// @Description  Returns a bearer token for the /api/v1 endpoints and /ws
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body   Credentials  true  "Credentials"
// @Success      200   {object}  map[string]string
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /auth/sign-in [post]
func (h *Handler) signIn(c *gin.Context) {
	var in Credentials
	if !h.bindJSON(c, &in) {
		return
	}

	token, err := h.services.GenerateToken(c.Request.Context(), in.Username, in.Password)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"token": token})
	case errors.Is(err, service.ErrInvalidCredentials):
		if h.log != nil {
			h.log.Infow("auth_sign_in_rejected", "username", in.Username)
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
	default:
		h.logAndJSONError(c, http.StatusInternalServerError, "failed to sign in", "auth_sign_in_failed", err, "username", in.Username)
	}
}

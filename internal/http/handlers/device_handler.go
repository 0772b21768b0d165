// Device-token HTTP handlers.
//
// This file exposes REST endpoints for push-token registration:
//   - POST   /devices          (register or re-home a token)
//   - DELETE /devices/{token}  (unregister a token)
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/fitstack/go-fitness-backend/internal/domain"
	"github.com/fitstack/go-fitness-backend/internal/services"
)

// DeviceService defines the device-token operations consumed by HTTP
// handlers.
type DeviceService interface {
	// Register stores or re-homes a push token for the user.
	Register(ctx context.Context, userID, token, platform string) (*domain.DeviceToken, error)
	// Unregister removes a token owned by the user.
	Unregister(ctx context.Context, userID, token string) error
}

// RegisterDeviceRequest is the JSON payload for registering a push token.
type RegisterDeviceRequest struct {
	// Token is the platform push token.
	Token string `json:"token" binding:"required" example:"ExponentPushToken[abc123]"`
	// Platform is "ios" or "android".
	Platform string `json:"platform" binding:"required" example:"ios"`
}

// RegisterDevice godoc
// @ID          registerDevice
// @Summary     Register a device push token
// @Description Stores a push token for the current user. A token already registered to another user is re-homed.
// @Tags        Devices
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       body       body    handlers.RegisterDeviceRequest  true  "Token payload"
//
// @Success     201  {object}  domain.DeviceToken
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /devices [post]
func (h *Handlers) RegisterDevice(c *gin.Context) {
	var req RegisterDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	tok, err := h.devSvc.Register(c.Request.Context(), userID(c), req.Token, req.Platform)
	if err != nil {
		if errors.Is(err, services.ErrInvalidDevice) {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusCreated, tok)
}

// UnregisterDevice godoc
// @ID          unregisterDevice
// @Summary     Unregister a device push token
// @Description Removes a push token owned by the current user.
// @Tags        Devices
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       token      path    string  true  "Push token"
//
// @Success     204  {string}  string  "No Content"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Token not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /devices/{token} [delete]
func (h *Handlers) UnregisterDevice(c *gin.Context) {
	token := strings.TrimSpace(c.Param("token"))
	if token == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "token required")
		return
	}

	if err := h.devSvc.Unregister(c.Request.Context(), userID(c), token); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "token not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	noContent(c)
}

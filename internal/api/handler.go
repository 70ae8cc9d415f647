package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"solar-monitor-backend/config"
	"solar-monitor-backend/internal/geocode"
	"solar-monitor-backend/internal/notification"
	"solar-monitor-backend/internal/store"
	"solar-monitor-backend/internal/weather"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store   store.Store
	weather weather.Client
	geocode geocode.Client
	pool    *notification.WorkerPool
	cfg     *config.Config
}

// NewHandler creates a new API handler.
func NewHandler(s store.Store, w weather.Client, g geocode.Client, pool *notification.WorkerPool, cfg *config.Config) *Handler {
	return &Handler{
		store:   s,
		weather: w,
		geocode: g,
		pool:    pool,
		cfg:     cfg,
	}
}

// respond writes the standard {status, message, ...} envelope.
func respond(c *gin.Context, code int, status bool, message string, extra gin.H) {
	payload := gin.H{"status": status, "message": message}
	for k, v := range extra {
		payload[k] = v
	}
	c.JSON(code, payload)
}

func ok(c *gin.Context, message string, extra gin.H) {
	respond(c, http.StatusOK, true, message, extra)
}

func badRequest(c *gin.Context, message string) {
	respond(c, http.StatusBadRequest, false, message, nil)
}

// fail maps a store error to an HTTP status. Unexpected errors are
// logged with context and surfaced as an opaque 500.
func fail(c *gin.Context, err error, logContext string) {
	var code int
	switch {
	case errors.Is(err, store.ErrUserExists),
		errors.Is(err, store.ErrAlreadyLinked),
		errors.Is(err, store.ErrDuplicateRequest):
		code = http.StatusConflict
	case errors.Is(err, store.ErrPendingUserNotFound),
		errors.Is(err, store.ErrUserNotFound),
		errors.Is(err, store.ErrPhoneNotRegistered),
		errors.Is(err, store.ErrRequestNotFound),
		errors.Is(err, store.ErrDeviceNotFound),
		errors.Is(err, store.ErrNotLinked),
		errors.Is(err, store.ErrCannotRemoveAdmin),
		errors.Is(err, store.ErrTargetNotLinked):
		code = http.StatusNotFound
	case errors.Is(err, store.ErrNotAuthorized):
		code = http.StatusForbidden
	case errors.Is(err, store.ErrInvalidCredentials):
		code = http.StatusUnauthorized
	case errors.Is(err, store.ErrOtpNotFound),
		errors.Is(err, store.ErrOtpExpired),
		errors.Is(err, store.ErrInvalidOtp):
		code = http.StatusBadRequest
	case errors.Is(err, store.ErrOtpDispatchFailed):
		code = http.StatusBadGateway
	default:
		log.Printf("%s: %v", logContext, err)
		respond(c, http.StatusInternalServerError, false, "Unable to process request right now", nil)
		return
	}
	respond(c, code, false, domainMessage(err), nil)
}

// domainMessage peels wrapping off a sentinel so clients see the stable
// message, not the wrapped detail.
func domainMessage(err error) string {
	for _, sentinel := range []error{
		store.ErrUserExists, store.ErrAlreadyLinked, store.ErrDuplicateRequest,
		store.ErrPendingUserNotFound, store.ErrUserNotFound, store.ErrPhoneNotRegistered,
		store.ErrRequestNotFound, store.ErrDeviceNotFound, store.ErrNotLinked,
		store.ErrCannotRemoveAdmin, store.ErrTargetNotLinked, store.ErrNotAuthorized,
		store.ErrInvalidCredentials, store.ErrOtpNotFound, store.ErrOtpExpired,
		store.ErrInvalidOtp, store.ErrOtpDispatchFailed,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return err.Error()
}

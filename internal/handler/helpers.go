package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/dailypen/internal/middleware"
	"github.com/xxxsen/dailypen/internal/pkg/errcode"
	appErr "github.com/xxxsen/dailypen/internal/pkg/errors"
	"github.com/xxxsen/dailypen/internal/pkg/response"
)

func getUserID(c *gin.Context) string {
	return c.GetString(middleware.ContextUserIDKey)
}

func badRequest(c *gin.Context, message string) {
	response.Error(c, http.StatusBadRequest, errcode.ErrInvalid, message)
}

func handleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	if kind, ok := appErr.AuthKind(err); ok {
		handleAuthError(c, kind, err)
		return
	}
	switch {
	case errors.Is(err, appErr.ErrUnauthorized):
		response.Error(c, http.StatusUnauthorized, errcode.ErrUnauthorized, "unauthorized")
	case errors.Is(err, appErr.ErrForbidden):
		response.Error(c, http.StatusForbidden, errcode.ErrForbidden, "forbidden")
	case errors.Is(err, appErr.ErrNotFound):
		response.Error(c, http.StatusNotFound, errcode.ErrNotFound, "not found")
	case errors.Is(err, appErr.ErrInvalid):
		response.Error(c, http.StatusBadRequest, errcode.ErrInvalid, "invalid request")
	case errors.Is(err, appErr.ErrConflict):
		response.Error(c, http.StatusConflict, errcode.ErrConflict, "conflict")
	case errors.Is(err, appErr.ErrTooMany):
		response.Error(c, http.StatusTooManyRequests, errcode.ErrTooMany, "too many requests")
	default:
		logutil.GetLogger(c.Request.Context()).Error("request failed",
			zap.String("request_id", c.GetString(middleware.ContextRequestIDKey)),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("user_id", getUserID(c)),
			zap.Error(err),
		)
		response.Error(c, http.StatusInternalServerError, errcode.ErrInternal, "internal error")
	}
}

func handleAuthError(c *gin.Context, kind appErr.Kind, err error) {
	switch kind {
	case appErr.KindInvalidCredentials:
		response.Error(c, http.StatusUnauthorized, errcode.ErrInvalidCredentials, "invalid credentials")
	case appErr.KindInvalidRequest:
		response.Error(c, http.StatusBadRequest, errcode.ErrInvalid, "user id and otp are required")
	case appErr.KindUserNotFound:
		response.Error(c, http.StatusBadRequest, errcode.ErrUserNotFound, "user not found")
	case appErr.KindOtpExpired:
		response.Error(c, http.StatusBadRequest, errcode.ErrOtpExpired, "otp expired")
	case appErr.KindInvalidOtp:
		response.Error(c, http.StatusBadRequest, errcode.ErrInvalidOtp, "invalid otp")
	case appErr.KindNotificationFailed:
		logutil.GetLogger(c.Request.Context()).Error("otp notification failed",
			zap.String("request_id", c.GetString(middleware.ContextRequestIDKey)),
			zap.Error(err),
		)
		response.Error(c, http.StatusBadGateway, errcode.ErrNotificationFailed, "failed to send otp email")
	default:
		response.Error(c, http.StatusInternalServerError, errcode.ErrInternal, "internal error")
	}
}

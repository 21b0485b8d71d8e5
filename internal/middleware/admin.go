package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/dailypen/internal/model"
	"github.com/xxxsen/dailypen/internal/pkg/errcode"
	appErr "github.com/xxxsen/dailypen/internal/pkg/errors"
	"github.com/xxxsen/dailypen/internal/pkg/response"
)

type RoleLookup interface {
	Role(ctx context.Context, userID string) (string, error)
}

// AdminOnly must run after JWTAuth. It checks the stored role, not a token claim.
func AdminOnly(roles RoleLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString(ContextUserIDKey)
		role, err := roles.Role(c.Request.Context(), userID)
		switch {
		case appErr.IsNotFound(err):
			response.Error(c, http.StatusUnauthorized, errcode.ErrUnauthorized, "unauthorized")
			c.Abort()
			return
		case err != nil:
			logutil.GetLogger(c.Request.Context()).Error("load role failed",
				zap.String("user_id", userID),
				zap.Error(err),
			)
			response.Error(c, http.StatusInternalServerError, errcode.ErrInternal, "internal error")
			c.Abort()
			return
		case role != model.RoleAdmin:
			response.Error(c, http.StatusForbidden, errcode.ErrForbidden, "admin access required")
			c.Abort()
			return
		}
		c.Next()
	}
}

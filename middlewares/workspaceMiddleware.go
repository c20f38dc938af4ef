package middlewares

import (
	"net/http"
	"strconv"

	"bitbucket.org/mmdatafocus/reconcile_backend/utils"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// WorkspaceMiddleware copies the caller's workspace scope and identity from
// headers into the request context. Authentication itself happens upstream;
// this service only consumes the resolved identity.
func WorkspaceMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		workspaceId := c.Request.Header.Get("X-Workspace-Id")
		if workspaceId == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "X-Workspace-Id header is required"})
			c.Abort()
			return
		}

		ctx := utils.SetWorkspaceIdInContext(c.Request.Context(), workspaceId)

		if userIdHeader := c.Request.Header.Get("X-User-Id"); userIdHeader != "" {
			if userId, err := strconv.Atoi(userIdHeader); err == nil {
				ctx = utils.SetUserIdInContext(ctx, userId)
			}
		}

		correlationId := c.Request.Header.Get("X-Correlation-Id")
		if correlationId == "" {
			correlationId = uuid.NewString()
		}
		ctx = utils.SetCorrelationIdInContext(ctx, correlationId)
		c.Header("X-Correlation-Id", correlationId)

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"example.com/freightlink/services/marketplace/internal/model"
	"example.com/freightlink/services/marketplace/internal/service"
)

const (
	headerActorID   = "X-Actor-ID"
	headerActorRole = "X-Actor-Role"
	headerRequestID = "X-Request-ID"

	contextActorKey = "actor"
)

// RequestLogger logs each HTTP request with a generated request id
func RequestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := uuid.New().String()
		c.Writer.Header().Set(headerRequestID, requestID)
		c.Set("request_id", requestID)

		c.Next()

		logger.WithFields(logrus.Fields{
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"status":      c.Writer.Status(),
			"duration":    time.Since(start).String(),
			"request_id":  requestID,
			"remote_addr": c.ClientIP(),
		}).Info("HTTP request")
	}
}

// RequireActor extracts the acting user from the gateway-injected headers.
// Identity itself is established upstream; this service only needs who and
// what role.
func RequireActor() gin.HandlerFunc {
	return func(c *gin.Context) {
		actorID := c.GetHeader(headerActorID)
		role := model.RoleFromString(c.GetHeader(headerActorRole))

		if actorID == "" || role == "" {
			c.AbortWithStatusJSON(ErrUnauthorized.StatusCode, ErrorResponse{
				Message: "Actor headers missing",
				Code:    ErrUnauthorized.Code,
			})
			return
		}

		c.Set(contextActorKey, service.Actor{ID: actorID, Role: role})
		c.Next()
	}
}

func actorFrom(c *gin.Context) service.Actor {
	v, _ := c.Get(contextActorKey)
	actor, _ := v.(service.Actor)
	return actor
}

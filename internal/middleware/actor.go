package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"freight/internal/domain"
)

// Request headers carrying the caller identity.
const (
	HeaderOrganizationID = "X-Organization-ID"
	HeaderUserID         = "X-User-ID"
	HeaderUserRole       = "X-User-Role"
)

const actorKey = "actor"

// ActorMiddleware reads the caller identity from request headers and stores it
// on the context. Missing headers yield an unauthenticated actor; the services
// reject it.
func ActorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(actorKey, domain.Actor{
			OrganizationID: strings.TrimSpace(c.GetHeader(HeaderOrganizationID)),
			UserID:         strings.TrimSpace(c.GetHeader(HeaderUserID)),
			Role:           domain.Role(strings.ToUpper(strings.TrimSpace(c.GetHeader(HeaderUserRole)))),
		})
		c.Next()
	}
}

// ActorFrom returns the actor stored by ActorMiddleware.
func ActorFrom(c *gin.Context) domain.Actor {
	if v, ok := c.Get(actorKey); ok {
		if actor, ok := v.(domain.Actor); ok {
			return actor
		}
	}
	return domain.Actor{}
}

package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
)

// NewRelicActorMiddleware tags the New Relic transaction started by nrgin with
// the caller's organization and role. It must run after ActorMiddleware.
func NewRelicActorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		txn := nrgin.Transaction(c)
		if txn == nil {
			c.Next()
			return
		}

		actor := ActorFrom(c)
		if actor.OrganizationID != "" {
			txn.AddAttribute("organizationId", actor.OrganizationID)
		}
		if actor.Role != "" {
			txn.AddAttribute("userRole", string(actor.Role))
		}

		c.Next()

		// Record error if present.
		for _, err := range c.Errors {
			txn.NoticeError(err.Err)
		}
	}
}

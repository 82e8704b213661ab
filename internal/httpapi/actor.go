package httpapi

import (
	"loyalty-connector/pkg/errutil"
	"loyalty-connector/services/identity"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	HeaderHostUserID = "X-Host-User-ID"
	actorKey         = "actor"
)

// currentActor loads the host user named by the trusted proxy header. Requests without the
// header, or naming an unknown user, act as guests.
func (h *Handler) currentActor() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader(HeaderHostUserID)
		if userID == "" {
			c.Set(actorKey, identity.Actor{})
			c.Next()
			return
		}

		user, err := h.users.Get(c.Request.Context(), userID)
		switch {
		case errutil.IsNotFound(err):
			zap.L().Warn("unknown host user, continuing as guest", zap.String("user_id", userID))
			c.Set(actorKey, identity.Actor{})
		case err != nil:
			_ = c.Error(err)
			c.Abort()
			return
		default:
			c.Set(actorKey, identity.ActorFromUser(user))
		}

		c.Next()
	}
}

func actorFrom(c *gin.Context) identity.Actor {
	if v, ok := c.Get(actorKey); ok {
		if actor, ok := v.(identity.Actor); ok {
			return actor
		}
	}
	return identity.Actor{}
}

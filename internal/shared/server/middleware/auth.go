package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"docinsight-backend/internal/shared/server/respond"
)

const (
	userIDKey   = "userId"
	userNameKey = "userName"
	isGuestKey  = "isGuest"

	// HeaderUserID carries the principal resolved by the upstream gateway.
	HeaderUserID   = "X-User-Id"
	HeaderUserName = "X-User-Name"
	HeaderGuestID  = "X-Guest-Id"

	maxPrincipalLen = 128
)

// Auth resolves the request principal from gateway or guest headers and
// stores it in the gin context. Requests without identity get 401.
func Auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusNoContent)
			return
		}

		if userID := strings.TrimSpace(c.GetHeader(HeaderUserID)); userID != "" {
			if !validPrincipal(userID) || strings.HasPrefix(userID, "guest:") {
				respond.Error(c, http.StatusUnauthorized, "unauthorized", "invalid identity", nil)
				return
			}
			c.Set(userIDKey, userID)
			if name := strings.TrimSpace(c.GetHeader(HeaderUserName)); name != "" {
				c.Set(userNameKey, name)
			}
			c.Set(isGuestKey, false)
			c.Next()
			return
		}

		guestID := strings.TrimSpace(c.GetHeader(HeaderGuestID))
		if guestID == "" {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "Missing identity", nil)
			return
		}
		if !validPrincipal(guestID) {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "invalid identity", nil)
			return
		}

		c.Set(userIDKey, "guest:"+guestID)
		c.Set(isGuestKey, true)
		c.Next()
	}
}

func validPrincipal(id string) bool {
	if len(id) > maxPrincipalLen {
		return false
	}
	for _, r := range id {
		if r < 0x21 || r == 0x7f {
			return false
		}
	}
	return true
}

// UserIDFromContext fetches the user ID set by the auth middleware.
func UserIDFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(userIDKey)
	if id, ok := val.(string); ok {
		return id
	}
	return ""
}

// UserNameFromContext fetches the display name forwarded by the gateway.
func UserNameFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(userNameKey)
	if name, ok := val.(string); ok {
		return name
	}
	return ""
}

// IsGuest reports whether the principal came from the guest header.
func IsGuest(c *gin.Context) bool {
	if c == nil {
		return false
	}
	return c.GetBool(isGuestKey)
}

package web

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	sessionCookieName = "authentiscan_session"
	sessionContextKey = "session_id"
)

// sessionMiddleware assigns every browser a random session id cookie.
// The id only keys hand-off entries; it carries no authority.
func sessionMiddleware(maxAge time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := c.Cookie(sessionCookieName)
		if err != nil || !validSessionID(id) {
			id = uuid.NewString()
		}
		// Refresh the expiry on every request
		http.SetCookie(c.Writer, &http.Cookie{
			Name:     sessionCookieName,
			Value:    id,
			Path:     "/",
			MaxAge:   int(maxAge.Seconds()),
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
		c.Set(sessionContextKey, id)
		c.Next()
	}
}

func validSessionID(id string) bool {
	if len(id) != 36 {
		return false
	}
	_, err := uuid.Parse(id)
	return err == nil
}

func sessionID(c *gin.Context) string {
	return c.GetString(sessionContextKey)
}

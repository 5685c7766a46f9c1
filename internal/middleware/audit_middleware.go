package middleware

import (
	"log"
	"strconv"

	"github.com/gin-gonic/gin"
)

// AuditAdminAction journalise les actions d'administration réussies
func AuditAdminAction(action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		status := c.Writer.Status()
		if status < 200 || status >= 300 {
			return
		}

		actor := "anonyme"
		if p, ok := PrincipalFrom(c); ok {
			actor = p.Email
			if actor == "" {
				actor = "user:" + strconv.FormatUint(uint64(p.UserID), 10)
			}
		}
		log.Printf("📝 Audit %s: %s %s par %s (ip %s)", action, c.Request.Method, c.Request.URL.Path, actor, c.ClientIP())
	}
}

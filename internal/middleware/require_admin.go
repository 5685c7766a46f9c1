package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RequireAdmin vérifie que le Principal a le rôle "admin"
func RequireAdmin(c *gin.Context) {
	p, ok := PrincipalFrom(c)
	if !ok || !p.IsAdmin() {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"success": false,
			"message": "Accès réservé aux administrateurs",
		})
		return
	}
	c.Next()
}

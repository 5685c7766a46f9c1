package middleware

import (
	"errors"
	"log"
	"net/http"

	"bookstore_back_end/internal/auth"

	"github.com/gin-gonic/gin"
)

const principalKey = "principal"

// AuthRequired résout le Principal depuis le header Authorization et le place dans le contexte Gin
func AuthRequired(resolver auth.Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := resolver.Resolve(c.Request, 0)
		if err != nil {
			if !errors.Is(err, auth.ErrUnauthenticated) {
				log.Printf("❌ Résolution principal: %v", err)
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Token manquant ou invalide",
			})
			return
		}
		c.Set(principalKey, p)
		c.Next()
	}
}

// PrincipalFrom retourne le Principal posé par AuthRequired
func PrincipalFrom(c *gin.Context) (auth.Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return auth.Principal{}, false
	}
	p, ok := v.(auth.Principal)
	return p, ok
}

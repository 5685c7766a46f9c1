package middleware

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"bookstore_back_end/internal/cache"

	"github.com/gin-gonic/gin"
)

const (
	CheckoutMaxRequests = 10
	CartMaxRequests     = 20
	APIMaxRequests      = 100
	LoginMaxAttempts    = 5

	RateLimitWindow = 1 * time.Minute
	LoginCooldown   = 15 * time.Minute
)

// LoginRateLimit bloque un email après LoginMaxAttempts échecs pendant LoginCooldown
func LoginRateLimit(c *cache.Cache) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		email := peekEmail(ctx)
		if !c.Enabled() || email == "" {
			ctx.Next()
			return
		}

		key := "login_attempts:" + strings.ToLower(email)
		attempts, err := c.GetRateLimit(ctx.Request.Context(), key)
		if err != nil {
			log.Printf("⚠️ Rate limit login indisponible: %v", err)
		}
		if attempts >= LoginMaxAttempts {
			ctx.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success":     false,
				"message":     fmt.Sprintf("Trop de tentatives échouées. Réessayez dans %d minutes", int(LoginCooldown.Minutes())),
				"retry_after": int(LoginCooldown.Seconds()),
			})
			return
		}

		ctx.Next()

		switch ctx.Writer.Status() {
		case http.StatusUnauthorized:
			if _, err := c.IncrementRateLimit(ctx.Request.Context(), key, LoginCooldown); err != nil {
				log.Printf("⚠️ Incrément tentatives login: %v", err)
			}
		case http.StatusOK:
			// Login réussi, réinitialiser les tentatives
			_ = c.Delete(ctx.Request.Context(), key)
		}
	}
}

// CheckoutRateLimit limite les checkouts par utilisateur (userId du body, IP à défaut)
func CheckoutRateLimit(c *cache.Cache, max int) gin.HandlerFunc {
	if max <= 0 {
		max = CheckoutMaxRequests
	}
	return limit(c, max, "Trop de tentatives de commande. Réessayez dans 1 minute", func(ctx *gin.Context) string {
		if id := peekUserID(ctx); id > 0 {
			return "checkout_requests:user:" + strconv.FormatInt(id, 10)
		}
		return "checkout_requests:ip:" + ctx.ClientIP()
	})
}

// CartRateLimit limite les modifications du panier (anti-spam)
func CartRateLimit(c *cache.Cache) gin.HandlerFunc {
	return limit(c, CartMaxRequests, "Trop de modifications du panier. Ralentissez un peu", func(ctx *gin.Context) string {
		if id := peekUserID(ctx); id > 0 {
			return "cart_requests:user:" + strconv.FormatInt(id, 10)
		}
		return "cart_requests:ip:" + ctx.ClientIP()
	})
}

// APIRateLimit limite le nombre de requêtes par IP (général)
func APIRateLimit(c *cache.Cache) gin.HandlerFunc {
	return limit(c, APIMaxRequests, "Trop de requêtes. Réessayez dans 1 minute", func(ctx *gin.Context) string {
		return "api_requests:" + ctx.ClientIP()
	})
}

func limit(c *cache.Cache, max int, message string, keyFn func(*gin.Context) string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		// Sans Redis on laisse passer
		if !c.Enabled() {
			ctx.Next()
			return
		}

		count, err := c.IncrementRateLimit(ctx.Request.Context(), keyFn(ctx), RateLimitWindow)
		if err != nil {
			log.Printf("⚠️ Rate limit indisponible: %v", err)
			ctx.Next()
			return
		}

		ctx.Header("X-RateLimit-Limit", strconv.Itoa(max))
		if count > int64(max) {
			ctx.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success":     false,
				"message":     message,
				"retry_after": int(RateLimitWindow.Seconds()),
			})
			return
		}
		ctx.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", int64(max)-count))
		ctx.Next()
	}
}

// peekEmail lit email dans le body JSON sans le consommer
func peekEmail(c *gin.Context) string {
	var input struct {
		Email string `json:"email"`
	}
	if !peekBody(c, &input) {
		return ""
	}
	return strings.TrimSpace(input.Email)
}

// peekUserID lit userId dans la query ou le body JSON sans consommer le body
func peekUserID(c *gin.Context) int64 {
	if raw := c.Query("userId"); raw != "" {
		id, _ := strconv.ParseInt(raw, 10, 64)
		return id
	}
	var input struct {
		UserID int64 `json:"userId"`
	}
	if !peekBody(c, &input) {
		return 0
	}
	return input.UserID
}

func peekBody(c *gin.Context, dest interface{}) bool {
	if c.Request.Body == nil {
		return false
	}
	bodyBytes, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return false
	}
	// Remettre le body pour les handlers suivants
	c.Request.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
	return json.Unmarshal(bodyBytes, dest) == nil
}

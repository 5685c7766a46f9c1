package user

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"bookstore_back_end/internal/cache"
	"bookstore_back_end/internal/handlers"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	wsPingInterval = 30 * time.Second
	wsWriteTimeout = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// Autoriser toutes les origines (à ajuster en production)
		return true
	},
}

// OrderWebSocket pousse en temps réel les changements de statut des commandes de l'utilisateur
func (h *Handler) OrderWebSocket(c *gin.Context) {
	principal, err := h.resolver.Resolve(c.Request, handlers.QueryUserID(c))
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	if !h.cache.Enabled() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "message": "Notifications temps réel indisponibles"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("❌ Erreur upgrade WebSocket: %v", err)
		return
	}
	defer conn.Close()

	ctx := c.Request.Context()
	pubsub := h.cache.Subscribe(ctx, cache.OrdersChannel(principal.UserID))
	defer pubsub.Close()
	ch := pubsub.Channel()

	// Détecte la fermeture côté client
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := conn.WriteJSON(gin.H{
		"type":    "connected",
		"message": "Suivi des commandes activé",
	}); err != nil {
		return
	}

	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(gin.H{
				"type":  "order_updated",
				"event": json.RawMessage(msg.Payload),
			}); err != nil {
				log.Printf("❌ Erreur envoi WebSocket: %v", err)
				return
			}
		case <-ticker.C:
			// Ping pour garder la connexion active
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout)); err != nil {
				return
			}
		}
	}
}

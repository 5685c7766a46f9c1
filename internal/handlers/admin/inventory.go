package admin

import (
	"net/http"
	"strconv"

	"bookstore_back_end/internal/handlers"
	"bookstore_back_end/internal/models"
	"bookstore_back_end/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/gocql/gocql"
)

func (h *Handler) ledgerAvailable(c *gin.Context) bool {
	if h.ledger == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "message": "Journal des stocks indisponible"})
		return false
	}
	return true
}

// StockMovements : GET /api/admin/inventory/movements?bookId=&limit=
func (h *Handler) StockMovements(c *gin.Context) {
	if !h.ledgerAvailable(c) {
		return
	}
	bookID, _ := strconv.ParseUint(c.Query("bookId"), 10, 64)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	movements, err := h.ledger.Movements(c.Request.Context(), uint(bookID), limit)
	if err != nil {
		handlers.RespondError(c, services.Infra("lecture des mouvements", err))
		return
	}
	if movements == nil {
		movements = []models.StockMovement{}
	}
	handlers.RespondOK(c, http.StatusOK, "Mouvements de stock récupérés", gin.H{
		"movements": movements,
		"count":     len(movements),
	})
}

func (h *Handler) StockAlerts(c *gin.Context) {
	if !h.ledgerAvailable(c) {
		return
	}
	alerts, err := h.ledger.OpenAlerts(c.Request.Context())
	if err != nil {
		handlers.RespondError(c, services.Infra("lecture des alertes", err))
		return
	}
	if alerts == nil {
		alerts = []models.StockAlert{}
	}
	handlers.RespondOK(c, http.StatusOK, "Alertes de stock récupérées", gin.H{
		"alerts": alerts,
		"count":  len(alerts),
	})
}

func (h *Handler) ResolveStockAlert(c *gin.Context) {
	if !h.ledgerAvailable(c) {
		return
	}
	id, err := gocql.ParseUUID(c.Param("id"))
	if err != nil {
		handlers.RespondError(c, &services.ValidationError{Field: "id", Message: "UUID invalide"})
		return
	}
	if err := h.ledger.ResolveAlert(c.Request.Context(), id); err != nil {
		handlers.RespondError(c, services.Infra("résolution alerte", err))
		return
	}
	handlers.RespondOK(c, http.StatusOK, "Alerte résolue", nil)
}

package product

import (
	"net/http"

	"bookstore_back_end/internal/handlers"
	promotionsvc "bookstore_back_end/internal/services/promotion"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	promotions *promotionsvc.Service
}

func NewHandler(promotions *promotionsvc.Service) *Handler {
	return &Handler{promotions: promotions}
}

// ActivePromotions : promotions actives dont la période contient l'instant présent
func (h *Handler) ActivePromotions(c *gin.Context) {
	active, err := h.promotions.Active(c.Request.Context())
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	if active == nil {
		active = []promotionsvc.Active{}
	}
	handlers.RespondOK(c, http.StatusOK, "Promotions actives récupérées", active)
}

// BookPrice : prix d'un livre après la meilleure remise applicable
func (h *Handler) BookPrice(c *gin.Context) {
	bookID, err := handlers.ParseID(c, "id")
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	price, err := h.promotions.PriceFor(c.Request.Context(), bookID)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	handlers.RespondOK(c, http.StatusOK, "Prix récupéré", price)
}

package admin

import (
	"net/http"

	"bookstore_back_end/internal/handlers"

	"github.com/gin-gonic/gin"
)

type promotionItemRequest struct {
	BookID           uint     `json:"bookId" binding:"required"`
	SpecificDiscount *float64 `json:"specificDiscount"`
}

// AddPromotionItem rattache un livre à une promotion ; un doublon renvoie 409
func (h *Handler) AddPromotionItem(c *gin.Context) {
	promotionID, err := handlers.ParseID(c, "id")
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	var req promotionItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handlers.RespondError(c, handlers.BindError(err))
		return
	}

	item, err := h.promotions.AddItem(c.Request.Context(), promotionID, req.BookID, req.SpecificDiscount)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	handlers.RespondOK(c, http.StatusCreated, "Livre ajouté à la promotion", item)
}

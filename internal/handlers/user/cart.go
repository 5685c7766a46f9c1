package user

import (
	"net/http"

	"bookstore_back_end/internal/auth"
	"bookstore_back_end/internal/cache"
	"bookstore_back_end/internal/handlers"
	cartsvc "bookstore_back_end/internal/services/cart"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	carts    *cartsvc.Service
	resolver auth.Resolver
	cache    *cache.Cache
}

func NewHandler(carts *cartsvc.Service, resolver auth.Resolver, c *cache.Cache) *Handler {
	return &Handler{carts: carts, resolver: resolver, cache: c}
}

// GetCart retourne le panier avec les livres et le total
func (h *Handler) GetCart(c *gin.Context) {
	principal, err := h.resolver.Resolve(c.Request, handlers.QueryUserID(c))
	if err != nil {
		handlers.RespondError(c, err)
		return
	}

	view, err := h.carts.Get(c.Request.Context(), principal)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	handlers.RespondOK(c, http.StatusOK, "Panier récupéré", view)
}

type addRequest struct {
	UserID   int64 `json:"userId"`
	BookID   uint  `json:"bookId" binding:"required"`
	Quantity int   `json:"quantity" binding:"required,gt=0"`
}

// AddToCart ajoute un livre ; la quantité s'additionne si la ligne existe déjà
func (h *Handler) AddToCart(c *gin.Context) {
	var req addRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handlers.RespondError(c, handlers.BindError(err))
		return
	}
	principal, err := h.resolver.Resolve(c.Request, req.UserID)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}

	item, err := h.carts.Add(c.Request.Context(), principal, req.BookID, req.Quantity)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	handlers.RespondOK(c, http.StatusOK, "Livre ajouté au panier", item)
}

type updateRequest struct {
	UserID     int64 `json:"userId"`
	CartItemID uint  `json:"cartItemId" binding:"required"`
	Quantity   int   `json:"quantity"`
}

func (h *Handler) UpdateCartItem(c *gin.Context) {
	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handlers.RespondError(c, handlers.BindError(err))
		return
	}
	principal, err := h.resolver.Resolve(c.Request, req.UserID)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}

	item, err := h.carts.Update(c.Request.Context(), principal, req.CartItemID, req.Quantity)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	handlers.RespondOK(c, http.StatusOK, "Panier mis à jour", item)
}

func (h *Handler) RemoveCartItem(c *gin.Context) {
	itemID, err := handlers.ParseID(c, "id")
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	principal, err := h.resolver.Resolve(c.Request, handlers.QueryUserID(c))
	if err != nil {
		handlers.RespondError(c, err)
		return
	}

	if err := h.carts.Remove(c.Request.Context(), principal, itemID); err != nil {
		handlers.RespondError(c, err)
		return
	}
	handlers.RespondOK(c, http.StatusOK, "Livre retiré du panier", nil)
}

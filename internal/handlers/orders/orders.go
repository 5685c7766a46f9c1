package orders

import (
	"log"
	"net/http"

	"bookstore_back_end/internal/auth"
	"bookstore_back_end/internal/cache"
	"bookstore_back_end/internal/handlers"
	"bookstore_back_end/internal/services"
	ordersvc "bookstore_back_end/internal/services/order"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	orders   *ordersvc.Service
	resolver auth.Resolver
	cache    *cache.Cache
}

func NewHandler(orders *ordersvc.Service, resolver auth.Resolver, c *cache.Cache) *Handler {
	return &Handler{orders: orders, resolver: resolver, cache: c}
}

type checkoutRequest struct {
	UserID        int64  `json:"userId"`
	PaymentMethod string `json:"paymentMethod" binding:"required"`
}

// Checkout transforme le panier de l'utilisateur en commande
func (h *Handler) Checkout(c *gin.Context) {
	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handlers.RespondError(c, handlers.BindError(err))
		return
	}

	principal, err := h.resolver.Resolve(c.Request, req.UserID)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}

	// Un seul checkout à la fois par utilisateur (double clic, onglets multiples)
	ctx := c.Request.Context()
	lockKey := cache.CheckoutLockKey(principal.UserID)
	acquired, err := h.cache.Acquire(ctx, lockKey, cache.CheckoutLockTTL)
	if err != nil {
		log.Printf("⚠️ Verrou checkout indisponible pour user %d: %v", principal.UserID, err)
	} else if !acquired {
		handlers.RespondError(c, &services.ConflictError{
			Code:    services.ConflictBusy,
			Message: "Une commande est déjà en cours de création",
		})
		return
	} else {
		defer h.cache.Release(ctx, lockKey)
	}

	result, err := h.orders.Checkout(ctx, principal, req.PaymentMethod)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}

	handlers.RespondOK(c, http.StatusOK, "Commande créée avec succès", result)
}

type confirmRequest struct {
	PaymentID     uint    `json:"paymentId" binding:"required"`
	IsSuccess     *bool   `json:"isSuccess" binding:"required"`
	TransactionID *string `json:"transactionId"`
}

// ConfirmPayment enregistre le résultat d'un paiement (retour banque ou livreur)
func (h *Handler) ConfirmPayment(c *gin.Context) {
	var req confirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handlers.RespondError(c, handlers.BindError(err))
		return
	}

	result, err := h.orders.ConfirmPayment(c.Request.Context(), ordersvc.ConfirmInput{
		PaymentID:     req.PaymentID,
		IsSuccess:     *req.IsSuccess,
		TransactionID: req.TransactionID,
	})
	if err != nil {
		handlers.RespondError(c, err)
		return
	}

	message := "Paiement confirmé"
	if !*req.IsSuccess {
		message = "Paiement échoué, commande annulée"
	}
	handlers.RespondOK(c, http.StatusOK, message, result)
}

type statusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateStatus : changement de statut côté administration
func (h *Handler) UpdateStatus(c *gin.Context) {
	orderID, err := handlers.ParseID(c, "id")
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handlers.RespondError(c, handlers.BindError(err))
		return
	}

	result, err := h.orders.UpdateOrderStatus(c.Request.Context(), orderID, req.Status)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	handlers.RespondOK(c, http.StatusOK, "Statut de la commande mis à jour", result)
}

// Cancel : annulation par le client, seulement avant confirmation
func (h *Handler) Cancel(c *gin.Context) {
	orderID, err := handlers.ParseID(c, "id")
	if err != nil {
		handlers.RespondError(c, err)
		return
	}

	result, err := h.orders.CancelOrder(c.Request.Context(), orderID)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	handlers.RespondOK(c, http.StatusOK, "Commande annulée", result)
}

func (h *Handler) Get(c *gin.Context) {
	orderID, err := handlers.ParseID(c, "id")
	if err != nil {
		handlers.RespondError(c, err)
		return
	}

	view, err := h.orders.GetOrder(c.Request.Context(), orderID)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	handlers.RespondOK(c, http.StatusOK, "Commande récupérée", view)
}

// ByUser liste les commandes d'un utilisateur, les plus récentes d'abord
func (h *Handler) ByUser(c *gin.Context) {
	userID, err := handlers.ParseID(c, "userId")
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	principal, err := h.resolver.Resolve(c.Request, int64(userID))
	if err != nil {
		handlers.RespondError(c, err)
		return
	}

	list, err := h.orders.UserOrders(c.Request.Context(), principal)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	handlers.RespondOK(c, http.StatusOK, "Commandes récupérées", list)
}

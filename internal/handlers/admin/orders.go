package admin

import (
	"context"
	"net/http"
	"strconv"

	"bookstore_back_end/internal/handlers"
	"bookstore_back_end/internal/models"
	"bookstore_back_end/internal/repository"
	ordersvc "bookstore_back_end/internal/services/order"
	promotionsvc "bookstore_back_end/internal/services/promotion"

	"github.com/gin-gonic/gin"
	"github.com/gocql/gocql"
)

// Ledger : journal des mouvements de stock, nil si ScyllaDB n'est pas configuré
type Ledger interface {
	Movements(ctx context.Context, bookID uint, limit int) ([]models.StockMovement, error)
	OpenAlerts(ctx context.Context) ([]models.StockAlert, error)
	ResolveAlert(ctx context.Context, id gocql.UUID) error
}

type Handler struct {
	orders     *ordersvc.Service
	promotions *promotionsvc.Service
	ledger     Ledger
}

func NewHandler(orders *ordersvc.Service, promotions *promotionsvc.Service, ledger Ledger) *Handler {
	return &Handler{orders: orders, promotions: promotions, ledger: ledger}
}

// ListOrders : GET /api/admin/orders?page=&pageSize=
func (h *Handler) ListOrders(c *gin.Context) {
	paged, err := h.orders.AdminOrders(c.Request.Context(), handlers.PageFromQuery(c))
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	handlers.RespondOK(c, http.StatusOK, "Commandes récupérées", paged)
}

// ListPayments : GET /api/admin/payments?page=&pageSize=&status=&paymentMethod=
func (h *Handler) ListPayments(c *gin.Context) {
	filter := repository.PaymentFilter{
		Status: c.Query("status"),
		Method: c.Query("paymentMethod"),
	}
	paged, err := h.orders.AdminPayments(c.Request.Context(), filter, handlers.PageFromQuery(c))
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	handlers.RespondOK(c, http.StatusOK, "Paiements récupérés", paged)
}

func (h *Handler) Stats(c *gin.Context) {
	top, _ := strconv.Atoi(c.DefaultQuery("top", "5"))
	stats, err := h.orders.Stats(c.Request.Context(), top)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	handlers.RespondOK(c, http.StatusOK, "Statistiques récupérées", stats)
}

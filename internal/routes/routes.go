package routes

import (
	"bookstore_back_end/internal/cache"
	"bookstore_back_end/internal/handlers/admin"
	"bookstore_back_end/internal/handlers/orders"
	"bookstore_back_end/internal/handlers/product"
	"bookstore_back_end/internal/handlers/user"
	"bookstore_back_end/internal/middleware"

	"github.com/gin-gonic/gin"
)

type Deps struct {
	Orders   *orders.Handler
	Users    *user.Handler
	Auth     *user.AuthHandler
	Products *product.Handler
	Admin    *admin.Handler
	Cache    *cache.Cache

	CheckoutRateLimit int
	// AdminAuth protège /api/admin et le changement de statut ; vide en mode legacy
	AdminAuth []gin.HandlerFunc
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	api := r.Group("/api", middleware.APIRateLimit(d.Cache))

	api.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Comptes
	authGroup := api.Group("/auth")
	authGroup.POST("/register", d.Auth.Register)
	authGroup.POST("/login", middleware.LoginRateLimit(d.Cache), d.Auth.Login)

	// Panier
	cart := api.Group("/cart", middleware.CartRateLimit(d.Cache))
	cart.GET("", d.Users.GetCart)
	cart.POST("/add", d.Users.AddToCart)
	cart.PUT("/update", d.Users.UpdateCartItem)
	cart.DELETE("/remove/:id", d.Users.RemoveCartItem)

	// Commandes
	ordersGroup := api.Group("/orders")
	ordersGroup.POST("/checkout", middleware.CheckoutRateLimit(d.Cache, d.CheckoutRateLimit), d.Orders.Checkout)
	ordersGroup.POST("/confirm-payment", d.Orders.ConfirmPayment)
	ordersGroup.GET("/user/:userId", d.Orders.ByUser)
	ordersGroup.GET("/:id", d.Orders.Get)
	ordersGroup.DELETE("/:id", d.Orders.Cancel)
	statusChain := append(append([]gin.HandlerFunc{}, d.AdminAuth...),
		middleware.AuditAdminAction("order_status"), d.Orders.UpdateStatus)
	ordersGroup.PUT("/:id/status", statusChain...)

	// Promotions
	api.GET("/promotions/active", d.Products.ActivePromotions)
	api.GET("/promotions/books/:id/price", d.Products.BookPrice)

	// Temps réel
	api.GET("/ws/orders", d.Users.OrderWebSocket)

	// Administration
	adminGroup := api.Group("/admin", d.AdminAuth...)
	adminGroup.GET("/orders", d.Admin.ListOrders)
	adminGroup.GET("/payments", d.Admin.ListPayments)
	adminGroup.GET("/stats", d.Admin.Stats)
	adminGroup.POST("/promotions/:id/items", middleware.AuditAdminAction("promotion_item"), d.Admin.AddPromotionItem)
	adminGroup.GET("/inventory/movements", d.Admin.StockMovements)
	adminGroup.GET("/inventory/alerts", d.Admin.StockAlerts)
	adminGroup.PUT("/inventory/alerts/:id/resolve", middleware.AuditAdminAction("stock_alert"), d.Admin.ResolveStockAlert)
}

package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bookstore_back_end/internal/auth"
	"bookstore_back_end/internal/cache"
	"bookstore_back_end/internal/config"
	"bookstore_back_end/internal/database"
	"bookstore_back_end/internal/events"
	"bookstore_back_end/internal/handlers"
	"bookstore_back_end/internal/handlers/admin"
	"bookstore_back_end/internal/handlers/orders"
	"bookstore_back_end/internal/handlers/product"
	"bookstore_back_end/internal/handlers/user"
	"bookstore_back_end/internal/ledger"
	"bookstore_back_end/internal/mailer"
	"bookstore_back_end/internal/middleware"
	"bookstore_back_end/internal/payment"
	"bookstore_back_end/internal/repository"
	"bookstore_back_end/internal/routes"
	accountsvc "bookstore_back_end/internal/services/account"
	cartsvc "bookstore_back_end/internal/services/cart"
	ordersvc "bookstore_back_end/internal/services/order"
	promotionsvc "bookstore_back_end/internal/services/promotion"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func main() {
	cfg := config.Load()

	conns, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("❌ Échec initialisation des bases de données: %v", err)
	}
	defer conns.Close()

	var store repository.Store
	if cfg.StoreDriver == config.StoreDriverMemory {
		mem := repository.NewMemoryStore()
		seedDemo(mem)
		store = mem
		log.Println("⚠️ STORE_DRIVER=memory : données de démonstration, rien n'est persisté")
	} else {
		store = repository.NewGormStore(conns.Postgres)
	}

	appCache := cache.New(conns.Redis)

	dispatcher := events.NewDispatcher(cfg.AsyncEvents, events.NewRedisSink(appCache))
	var stockLedger admin.Ledger
	if conns.Scylla != nil {
		l := ledger.NewScyllaLedger(conns.Scylla, cfg.LowStockThreshold)
		dispatcher.Add(l)
		stockLedger = l
	}
	if conns.Elastic != nil {
		dispatcher.Add(events.NewElasticStockSink(conns.Elastic, cfg.Elastic.BookIndex))
	}
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := events.ConnectKafka(cfg.Kafka.Brokers, 5, 2*time.Second)
		if err != nil {
			log.Printf("⚠️ Kafka indisponible, événements non publiés: %v", err)
		} else {
			sink := events.NewKafkaSink(producer, cfg.Kafka.TopicPrefix)
			defer sink.Close()
			dispatcher.Add(sink)
		}
	}
	if cfg.SMTP.Host != "" {
		dispatcher.Add(events.NewMailSink(mailer.NewSMTPMailer(mailer.Config{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
			ShopURL:  cfg.SMTP.ShopURL,
		})))
	} else {
		log.Println("⚠️ SMTP_HOST absent, aucun mail de suivi envoyé")
	}

	account := payment.BankAccount{
		Holder:   cfg.Bank.Holder,
		Number:   cfg.Bank.Number,
		BIC:      cfg.Bank.BIC,
		Bank:     cfg.Bank.Bank,
		Currency: cfg.Bank.Currency,
	}
	qr := payment.NewQRGenerator(account, nil)
	if conns.Minio != nil {
		qr.Store = conns.Minio
	}

	orderService := ordersvc.NewService(store, qr, dispatcher).WithCartCache(appCache)
	cartService := cartsvc.NewService(store, appCache)
	promotionService := promotionsvc.NewService(store, appCache)
	accountService := accountsvc.NewService(store, cfg.JWTSecret)

	var resolver auth.Resolver = auth.LegacyResolver{}
	var adminAuth []gin.HandlerFunc
	if cfg.AuthMode == config.AuthModeJWT {
		if cfg.JWTSecret == "" {
			log.Fatal("❌ AUTH_MODE=jwt mais JWT_SECRET est vide")
		}
		resolver = auth.NewJWTResolver(cfg.JWTSecret)
		adminAuth = []gin.HandlerFunc{middleware.AuthRequired(resolver), middleware.RequireAdmin}
		log.Println("🔐 Authentification JWT activée")
	} else {
		log.Println("⚠️ AUTH_MODE=legacy : userId accepté tel quel, routes admin non protégées")
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
		handlers.ExposeErrorDetail = false
	}

	r := gin.Default()
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	routes.RegisterRoutes(r, routes.Deps{
		Orders:            orders.NewHandler(orderService, resolver, appCache),
		Users:             user.NewHandler(cartService, resolver, appCache),
		Auth:              user.NewAuthHandler(accountService),
		Products:          product.NewHandler(promotionService),
		Admin:             admin.NewHandler(orderService, promotionService, stockLedger),
		Cache:             appCache,
		CheckoutRateLimit: cfg.CheckoutRateLimit,
		AdminAuth:         adminAuth,
	})

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}
	go func() {
		log.Println("🚀 Serveur Bookstore lancé sur le port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("❌ Erreur serveur: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("🛑 Arrêt du serveur...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGracePeriod)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("❌ Arrêt forcé: %v", err)
	}
	// Laisser partir les derniers événements
	dispatcher.Wait()
	log.Println("✅ Serveur arrêté")
}

package order

import (
	"context"
	"errors"
	"log"
	"time"

	"bookstore_back_end/internal/auth"
	"bookstore_back_end/internal/events"
	"bookstore_back_end/internal/models"
	"bookstore_back_end/internal/payment"
	"bookstore_back_end/internal/repository"
	"bookstore_back_end/internal/services"
)

type CheckoutResult struct {
	OrderID       uint                 `json:"orderId"`
	PaymentID     uint                 `json:"paymentId"`
	TotalPrice    float64              `json:"totalPrice"`
	Status        models.OrderStatus   `json:"status"`
	PaymentMethod models.PaymentMethod `json:"paymentMethod"`
	PaymentStatus models.PaymentStatus `json:"paymentStatus"`
	QRCodeURL     *string              `json:"qrCodeUrl"`
	CreatedAt     time.Time            `json:"createdAt"`
}

// Checkout convertit le panier du principal en commande + paiement.
// COD engage le stock immédiatement ; Banking attend la confirmation du virement.
func (s *Service) Checkout(ctx context.Context, principal auth.Principal, rawMethod string) (*CheckoutResult, error) {
	var (
		order     models.Order
		pay       models.Payment
		movements []models.StockMovement
		email     string
	)

	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		user, err := tx.FindUser(principal.UserID)
		if err != nil {
			return notFound("utilisateur", principal.UserID, err)
		}
		email = user.Email

		// Verrou panier avant tout : un second checkout concurrent relit un panier vide
		cart, err := tx.LockCartByUser(user.ID)
		if errors.Is(err, repository.ErrNotFound) {
			return services.ErrEmptyCart
		}
		if err != nil {
			return err
		}
		items, err := tx.CartItems(cart.ID)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return services.ErrEmptyCart
		}

		ids := make([]uint, 0, len(items))
		for _, it := range items {
			ids = append(ids, it.BookID)
		}
		books, err := tx.LockBooks(ids)
		if err != nil {
			return err
		}

		// Contrôle du stock et gel des prix au tarif courant
		details := make([]models.OrderDetail, 0, len(items))
		for _, it := range items {
			book, ok := books[it.BookID]
			if !ok {
				return &services.NotFoundError{Entity: "livre", ID: it.BookID}
			}
			if book.Quantity < it.Quantity {
				return &services.InsufficientStockError{BookID: book.ID, Title: book.Title, Available: book.Quantity}
			}
			details = append(details, models.OrderDetail{
				BookID:   book.ID,
				Quantity: it.Quantity,
				Price:    models.RoundMoney(book.Price),
			})
		}
		total := models.DetailsTotal(details)

		method, err := models.ParsePaymentMethod(rawMethod)
		if err != nil {
			return &services.ValidationError{Field: "paymentMethod", Message: "Moyen de paiement invalide (COD ou Banking)"}
		}

		now := s.now()
		order = models.Order{
			UserID:     user.ID,
			TotalPrice: total,
			Status:     models.OrderStatusPending,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := tx.CreateOrder(&order, details); err != nil {
			return err
		}

		pay = models.Payment{
			OrderID:   order.ID,
			UserID:    user.ID,
			Amount:    total,
			Method:    method,
			Status:    models.PaymentStatusPending,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := tx.CreatePayment(&pay); err != nil {
			return err
		}

		switch method {
		case models.PaymentMethodCOD:
			if err := order.TransitionTo(models.OrderStatusConfirmed); err != nil {
				return err
			}
			movements, err = takeStock(tx, books, details, order.ID, "checkout COD")
			if err != nil {
				return err
			}
			order.StockCommitted = true
		case models.PaymentMethodBanking:
			if err := order.TransitionTo(models.OrderStatusAwaitingPayment); err != nil {
				return err
			}
		}

		if err := tx.SaveOrder(&order); err != nil {
			return err
		}
		// Vidé dans les deux cas : évite de soumettre deux fois le même panier
		return tx.DeleteCartItems(cart.ID)
	})
	if err != nil {
		return nil, services.Infra("checkout", err)
	}

	s.invalidateCart(ctx, order.UserID)

	result := &CheckoutResult{
		OrderID:       order.ID,
		PaymentID:     pay.ID,
		TotalPrice:    order.TotalPrice,
		Status:        order.Status,
		PaymentMethod: pay.Method,
		PaymentStatus: pay.Status,
		CreatedAt:     order.CreatedAt,
	}

	if pay.Method == models.PaymentMethodBanking && s.qr != nil {
		url, err := s.qr.Generate(ctx, payment.Reference{OrderID: order.ID, Amount: order.TotalPrice})
		if err != nil {
			log.Printf("❌ Génération du QR échouée pour la commande %d: %v", order.ID, err)
		} else {
			result.QRCodeURL = &url
		}
	}

	e := events.New(events.OrderCreated, order)
	e.PaymentID = pay.ID
	e.PaymentStatus = pay.Status
	e.PaymentMethod = pay.Method
	e.Email = email
	e.Movements = movements
	s.publish(ctx, e)

	log.Printf("✅ Commande %d créée (%s, %.2f) pour l'utilisateur %d", order.ID, pay.Method, order.TotalPrice, order.UserID)
	return result, nil
}

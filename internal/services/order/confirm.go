package order

import (
	"context"
	"log"

	"bookstore_back_end/internal/events"
	"bookstore_back_end/internal/models"
	"bookstore_back_end/internal/repository"
	"bookstore_back_end/internal/services"

	"github.com/google/uuid"
)

type ConfirmInput struct {
	PaymentID     uint
	IsSuccess     bool
	TransactionID *string
}

type ConfirmResult struct {
	OrderID       uint                 `json:"orderId"`
	PaymentID     uint                 `json:"paymentId"`
	PaymentStatus models.PaymentStatus `json:"paymentStatus"`
	OrderStatus   models.OrderStatus   `json:"orderStatus"`
}

// ConfirmPayment passe un paiement en attente à Completed ou Failed.
// Un succès engage le stock s'il ne l'a pas déjà été (Banking) ; un échec annule la commande.
func (s *Service) ConfirmPayment(ctx context.Context, in ConfirmInput) (*ConfirmResult, error) {
	var (
		order     *models.Order
		pay       *models.Payment
		movements []models.StockMovement
		email     string
	)

	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		// Verrous dans l'ordre commande -> paiement, comme l'annulation
		found, err := tx.FindPayment(in.PaymentID)
		if err != nil {
			return notFound("paiement", in.PaymentID, err)
		}
		if order, err = tx.LockOrder(found.OrderID); err != nil {
			return notFound("commande", found.OrderID, err)
		}
		if pay, err = tx.LockPayment(in.PaymentID); err != nil {
			return notFound("paiement", in.PaymentID, err)
		}

		if pay.Status == models.PaymentStatusCompleted {
			return &services.ConflictError{Code: services.ConflictAlreadyConfirmed, Message: "Ce paiement a déjà été confirmé"}
		}
		if pay.Status == models.PaymentStatusFailed {
			return &services.ConflictError{Code: services.ConflictAlreadyFailed, Message: "Ce paiement a déjà échoué, la commande est annulée"}
		}

		next := models.PaymentStatusFailed
		if in.IsSuccess {
			next = models.PaymentStatusCompleted
		}
		if err := pay.TransitionTo(next); err != nil {
			return transitionConflict(err)
		}

		if in.IsSuccess {
			movements, err = s.applySuccess(tx, order)
		} else {
			movements, err = s.applyFailure(tx, order)
		}
		if err != nil {
			return err
		}

		now := s.now()
		if in.TransactionID != nil && *in.TransactionID != "" {
			pay.TransactionID = in.TransactionID
		} else if in.IsSuccess && pay.TransactionID == nil {
			ref := "TXN-" + uuid.NewString()
			pay.TransactionID = &ref
		}
		pay.UpdatedAt = now
		order.UpdatedAt = now

		if err := tx.SavePayment(pay); err != nil {
			return err
		}
		if err := tx.SaveOrder(order); err != nil {
			return err
		}
		email = userEmail(tx, order.UserID)
		return nil
	})
	if err != nil {
		return nil, services.Infra("confirm-payment", err)
	}

	kind := events.PaymentFailed
	if in.IsSuccess {
		kind = events.PaymentConfirmed
	}
	e := events.New(kind, *order)
	e.PaymentID = pay.ID
	e.PaymentStatus = pay.Status
	e.PaymentMethod = pay.Method
	e.Email = email
	e.Movements = movements
	s.publish(ctx, e)

	log.Printf("✅ Paiement %d → %s (commande %d → %s)", pay.ID, pay.Status, order.ID, order.Status)
	return &ConfirmResult{
		OrderID:       order.ID,
		PaymentID:     pay.ID,
		PaymentStatus: pay.Status,
		OrderStatus:   order.Status,
	}, nil
}

func (s *Service) applySuccess(tx repository.Tx, order *models.Order) ([]models.StockMovement, error) {
	var movements []models.StockMovement

	switch order.Status {
	case models.OrderStatusPending, models.OrderStatusAwaitingPayment:
		if err := order.TransitionTo(models.OrderStatusConfirmed); err != nil {
			return nil, transitionConflict(err)
		}
	case models.OrderStatusConfirmed, models.OrderStatusShipping, models.OrderStatusDelivered:
		// COD encaissé : la commande garde son statut
	default:
		return nil, &services.ConflictError{
			Code:    services.ConflictInvalidTransition,
			Message: "Impossible de confirmer le paiement d'une commande " + string(order.Status),
		}
	}

	// Le stock n'est engagé qu'une fois par commande
	if !order.StockCommitted {
		details, err := tx.OrderDetails(order.ID)
		if err != nil {
			return nil, err
		}
		books, err := tx.LockBooks(bookIDs(details))
		if err != nil {
			return nil, err
		}
		if movements, err = takeStock(tx, books, details, order.ID, "paiement confirmé"); err != nil {
			return nil, err
		}
		order.StockCommitted = true
	}
	return movements, nil
}

func (s *Service) applyFailure(tx repository.Tx, order *models.Order) ([]models.StockMovement, error) {
	var movements []models.StockMovement
	if order.StockCommitted {
		details, err := tx.OrderDetails(order.ID)
		if err != nil {
			return nil, err
		}
		if movements, err = restock(tx, details, order.ID, "paiement échoué"); err != nil {
			return nil, err
		}
		order.StockCommitted = false
	}
	if order.Status != models.OrderStatusCancelled {
		if err := order.TransitionTo(models.OrderStatusCancelled); err != nil {
			return nil, transitionConflict(err)
		}
	}
	return movements, nil
}

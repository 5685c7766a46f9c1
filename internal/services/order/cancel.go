package order

import (
	"context"
	"log"

	"bookstore_back_end/internal/events"
	"bookstore_back_end/internal/models"
	"bookstore_back_end/internal/repository"
	"bookstore_back_end/internal/services"
)

type StatusResult struct {
	OrderID        uint               `json:"orderId"`
	PreviousStatus models.OrderStatus `json:"previousStatus"`
	Status         models.OrderStatus `json:"status"`
}

// CancelOrder : annulation côté client, seulement avant toute décision de paiement
func (s *Service) CancelOrder(ctx context.Context, orderID uint) (*StatusResult, error) {
	var (
		order     *models.Order
		previous  models.OrderStatus
		movements []models.StockMovement
		email     string
	)
	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		var err error
		if order, err = tx.LockOrder(orderID); err != nil {
			return notFound("commande", orderID, err)
		}
		previous = order.Status
		if movements, err = s.cancelInTx(tx, order, false); err != nil {
			return err
		}
		email = userEmail(tx, order.UserID)
		return nil
	})
	if err != nil {
		return nil, services.Infra("cancel-order", err)
	}

	e := events.New(events.OrderCancelled, *order)
	e.Email = email
	e.Movements = movements
	s.publish(ctx, e)

	log.Printf("✅ Commande %d annulée (%s → %s)", order.ID, previous, order.Status)
	return &StatusResult{OrderID: order.ID, PreviousStatus: previous, Status: order.Status}, nil
}

// cancelInTx annule la commande et tous ses paiements, en remettant le stock engagé.
// allowConfirmed ouvre l'annulation aux commandes déjà confirmées (action admin).
func (s *Service) cancelInTx(tx repository.Tx, order *models.Order, allowConfirmed bool) ([]models.StockMovement, error) {
	if !order.Status.Cancellable() && !(allowConfirmed && order.Status.CanTransitionTo(models.OrderStatusCancelled)) {
		return nil, &services.ConflictError{
			Code:    services.ConflictNotCancellable,
			Message: "Impossible d'annuler une commande au statut " + string(order.Status),
		}
	}

	payments, err := tx.PaymentsByOrder(order.ID)
	if err != nil {
		return nil, err
	}
	for _, p := range payments {
		if p.Status == models.PaymentStatusCompleted {
			return nil, &services.ConflictError{
				Code:    services.ConflictNotCancellable,
				Message: "Paiement déjà encaissé : utiliser le statut refunded",
			}
		}
	}

	var movements []models.StockMovement
	if order.StockCommitted {
		details, err := tx.OrderDetails(order.ID)
		if err != nil {
			return nil, err
		}
		if movements, err = restock(tx, details, order.ID, "commande annulée"); err != nil {
			return nil, err
		}
		order.StockCommitted = false
	}

	if err := order.TransitionTo(models.OrderStatusCancelled); err != nil {
		return nil, transitionConflict(err)
	}
	now := s.now()
	order.UpdatedAt = now
	if err := tx.SaveOrder(order); err != nil {
		return nil, err
	}

	for i := range payments {
		p := &payments[i]
		if p.Status == models.PaymentStatusCancelled {
			continue
		}
		if err := p.TransitionTo(models.PaymentStatusCancelled); err != nil {
			return nil, transitionConflict(err)
		}
		p.UpdatedAt = now
		if err := tx.SavePayment(p); err != nil {
			return nil, err
		}
	}
	return movements, nil
}

// UpdateOrderStatus : changement de statut par un administrateur.
// Seuls les statuts de la liste blanche sont acceptés ; la table de transitions fait foi.
func (s *Service) UpdateOrderStatus(ctx context.Context, orderID uint, rawStatus string) (*StatusResult, error) {
	next, err := models.ParseOrderStatus(rawStatus)
	if err != nil {
		return nil, &services.ValidationError{Field: "status", Message: "Statut invalide: " + rawStatus}
	}

	var (
		order     *models.Order
		previous  models.OrderStatus
		movements []models.StockMovement
		email     string
	)
	err = s.store.WithinTx(ctx, func(tx repository.Tx) error {
		var err error
		if order, err = tx.LockOrder(orderID); err != nil {
			return notFound("commande", orderID, err)
		}
		previous = order.Status
		if previous == next {
			return nil
		}

		switch next {
		case models.OrderStatusCancelled:
			movements, err = s.cancelInTx(tx, order, true)
		case models.OrderStatusConfirmed:
			err = &services.ConflictError{
				Code:    services.ConflictInvalidTransition,
				Message: "La confirmation passe par la confirmation du paiement",
			}
		case models.OrderStatusRefunded:
			movements, err = s.refundInTx(tx, order)
		case models.OrderStatusDelivered:
			err = s.deliverInTx(tx, order)
		default:
			if err = order.TransitionTo(next); err != nil {
				err = transitionConflict(err)
			} else {
				order.UpdatedAt = s.now()
				err = tx.SaveOrder(order)
			}
		}
		if err != nil {
			return err
		}
		email = userEmail(tx, order.UserID)
		return nil
	})
	if err != nil {
		return nil, services.Infra("update-order-status", err)
	}

	if previous != order.Status {
		kind := events.OrderStatusChanged
		if order.Status == models.OrderStatusCancelled {
			kind = events.OrderCancelled
		}
		e := events.New(kind, *order)
		e.Email = email
		e.Movements = movements
		s.publish(ctx, e)
		log.Printf("✅ Statut commande %d: %s → %s", order.ID, previous, order.Status)
	}
	return &StatusResult{OrderID: order.ID, PreviousStatus: previous, Status: order.Status}, nil
}

// deliverInTx : à la livraison, un COD en attente est considéré encaissé
func (s *Service) deliverInTx(tx repository.Tx, order *models.Order) error {
	if err := order.TransitionTo(models.OrderStatusDelivered); err != nil {
		return transitionConflict(err)
	}
	now := s.now()
	order.UpdatedAt = now
	if err := tx.SaveOrder(order); err != nil {
		return err
	}
	payments, err := tx.PaymentsByOrder(order.ID)
	if err != nil {
		return err
	}
	for i := range payments {
		p := &payments[i]
		if p.Method != models.PaymentMethodCOD || p.Status != models.PaymentStatusPending {
			continue
		}
		p.Status = models.PaymentStatusCompleted
		p.UpdatedAt = now
		if err := tx.SavePayment(p); err != nil {
			return err
		}
	}
	return nil
}

// refundInTx exige un paiement encaissé ; une commande non expédiée retourne en stock
func (s *Service) refundInTx(tx repository.Tx, order *models.Order) ([]models.StockMovement, error) {
	payments, err := tx.PaymentsByOrder(order.ID)
	if err != nil {
		return nil, err
	}
	paid := false
	for _, p := range payments {
		if p.Status == models.PaymentStatusCompleted {
			paid = true
			break
		}
	}
	if !paid {
		return nil, &services.ConflictError{
			Code:    services.ConflictInvalidTransition,
			Message: "Aucun paiement encaissé à rembourser",
		}
	}

	wasConfirmed := order.Status == models.OrderStatusConfirmed
	if err := order.TransitionTo(models.OrderStatusRefunded); err != nil {
		return nil, transitionConflict(err)
	}

	var movements []models.StockMovement
	if wasConfirmed && order.StockCommitted {
		details, err := tx.OrderDetails(order.ID)
		if err != nil {
			return nil, err
		}
		if movements, err = restock(tx, details, order.ID, "commande remboursée"); err != nil {
			return nil, err
		}
		order.StockCommitted = false
	}
	order.UpdatedAt = s.now()
	return movements, tx.SaveOrder(order)
}

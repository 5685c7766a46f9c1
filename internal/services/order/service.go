package order

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"bookstore_back_end/internal/cache"
	"bookstore_back_end/internal/events"
	"bookstore_back_end/internal/models"
	"bookstore_back_end/internal/payment"
	"bookstore_back_end/internal/repository"
	"bookstore_back_end/internal/services"
)

// QRGenerator produit l'URL du QR de virement d'une commande Banking
type QRGenerator interface {
	Generate(ctx context.Context, ref payment.Reference) (string, error)
}

// Publisher reçoit les événements une fois la transaction validée
type Publisher interface {
	Publish(ctx context.Context, e events.Event)
}

// CartCache : vue du panier mise en cache, à purger dès que le panier est vidé
type CartCache interface {
	Delete(ctx context.Context, keys ...string) error
}

// Service orchestre checkout, confirmation de paiement et annulation.
// Chaque opération tient dans une seule transaction du Store.
type Service struct {
	store  repository.Store
	qr     QRGenerator
	events Publisher
	carts  CartCache
	now    func() time.Time
}

func NewService(store repository.Store, qr QRGenerator, publisher Publisher) *Service {
	return &Service{store: store, qr: qr, events: publisher, now: time.Now}
}

// WithCartCache purge la vue panier en cache juste après un checkout validé
func (s *Service) WithCartCache(c CartCache) *Service {
	s.carts = c
	return s
}

func (s *Service) invalidateCart(ctx context.Context, userID uint) {
	if s.carts == nil {
		return
	}
	if err := s.carts.Delete(ctx, cache.CartKey(userID)); err != nil {
		log.Printf("⚠️ Invalidation du panier %d échouée: %v", userID, err)
	}
}

func (s *Service) publish(ctx context.Context, e events.Event) {
	if s.events != nil {
		s.events.Publish(ctx, e)
	}
}

func notFound(entity string, id any, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return &services.NotFoundError{Entity: entity, ID: id}
	}
	return err
}

// transitionConflict convertit un refus de la table de transitions en ConflictError
func transitionConflict(err error) error {
	var te *models.TransitionError
	if errors.As(err, &te) {
		return &services.ConflictError{Code: services.ConflictInvalidTransition, Message: te.Error()}
	}
	return err
}

func bookIDs(details []models.OrderDetail) []uint {
	ids := make([]uint, 0, len(details))
	for _, d := range details {
		ids = append(ids, d.BookID)
	}
	return ids
}

// takeStock décrémente le stock de chaque ligne ; le stock ne descend jamais sous zéro
func takeStock(tx repository.Tx, books map[uint]*models.Book, details []models.OrderDetail, orderID uint, reason string) ([]models.StockMovement, error) {
	movements := make([]models.StockMovement, 0, len(details))
	for _, d := range details {
		book, ok := books[d.BookID]
		if !ok {
			return nil, &services.NotFoundError{Entity: "livre", ID: d.BookID}
		}
		if book.Quantity < d.Quantity {
			return nil, &services.InsufficientStockError{BookID: book.ID, Title: book.Title, Available: book.Quantity}
		}
		prev := book.Quantity
		book.Quantity -= d.Quantity
		if err := tx.UpdateBookQuantity(book.ID, book.Quantity); err != nil {
			return nil, err
		}
		movements = append(movements, models.StockMovement{
			BookID:    book.ID,
			Title:     book.Title,
			Type:      models.MovementSale,
			Quantity:  d.Quantity,
			PrevStock: prev,
			NewStock:  book.Quantity,
			OrderID:   orderID,
			Reason:    reason,
		})
	}
	return movements, nil
}

// restock remet en stock les quantités d'une commande dont le stock avait été engagé
func restock(tx repository.Tx, details []models.OrderDetail, orderID uint, reason string) ([]models.StockMovement, error) {
	books, err := tx.LockBooks(bookIDs(details))
	if err != nil {
		return nil, err
	}
	movements := make([]models.StockMovement, 0, len(details))
	for _, d := range details {
		book, ok := books[d.BookID]
		if !ok {
			return nil, fmt.Errorf("livre %d introuvable pour la remise en stock", d.BookID)
		}
		prev := book.Quantity
		book.Quantity += d.Quantity
		if err := tx.UpdateBookQuantity(book.ID, book.Quantity); err != nil {
			return nil, err
		}
		movements = append(movements, models.StockMovement{
			BookID:    book.ID,
			Title:     book.Title,
			Type:      models.MovementRestock,
			Quantity:  d.Quantity,
			PrevStock: prev,
			NewStock:  book.Quantity,
			OrderID:   orderID,
			Reason:    reason,
		})
	}
	return movements, nil
}

// userEmail : le mail est optionnel pour les notifications
func userEmail(tx repository.Tx, userID uint) string {
	user, err := tx.FindUser(userID)
	if err != nil {
		return ""
	}
	return user.Email
}

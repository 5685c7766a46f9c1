package repository

import (
	"context"
	"errors"
	"time"

	"bookstore_back_end/internal/models"
)

var (
	ErrNotFound  = errors.New("enregistrement introuvable")
	ErrDuplicate = errors.New("enregistrement déjà existant")
)

// Page décrit une pagination 1-indexée
type Page struct {
	Number int
	Size   int
}

func (p Page) Normalize() Page {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Size < 1 || p.Size > 100 {
		p.Size = 20
	}
	return p
}

func (p Page) Offset() int {
	return (p.Number - 1) * p.Size
}

// PaymentFilter : filtres optionnels, comparés sans tenir compte de la casse
type PaymentFilter struct {
	Status string
	Method string
}

// Tx regroupe les opérations disponibles dans une unité de travail.
// Toutes les écritures faites via un Tx sont validées ou annulées ensemble.
type Tx interface {
	FindUser(id uint) (*models.User, error)
	// FindUserByEmail compare l'email sans tenir compte de la casse
	FindUserByEmail(email string) (*models.User, error)
	CreateUser(user *models.User) error

	FindBooks(ids []uint) (map[uint]models.Book, error)
	// LockBooks verrouille les livres par id croissant et les retourne indexés par id
	LockBooks(ids []uint) (map[uint]*models.Book, error)
	UpdateBookQuantity(id uint, quantity int) error

	FindCartByUser(userID uint) (*models.Cart, error)
	// LockCartByUser verrouille le panier ; les lignes lues ensuite sont celles validées
	LockCartByUser(userID uint) (*models.Cart, error)
	CreateCart(cart *models.Cart) error
	CartItems(cartID uint) ([]models.CartItem, error)
	FindCartItem(cartID, bookID uint) (*models.CartItem, error)
	FindCartItemByID(id uint) (*models.CartItem, error)
	SaveCartItem(item *models.CartItem) error
	DeleteCartItem(id uint) error
	DeleteCartItems(cartID uint) error

	CreateOrder(order *models.Order, details []models.OrderDetail) error
	FindOrder(id uint) (*models.Order, error)
	LockOrder(id uint) (*models.Order, error)
	SaveOrder(order *models.Order) error
	OrderDetails(orderIDs ...uint) ([]models.OrderDetail, error)
	OrdersByUser(userID uint) ([]models.Order, error)
	ListOrders(page Page) ([]models.Order, int64, error)

	CreatePayment(payment *models.Payment) error
	FindPayment(id uint) (*models.Payment, error)
	LockPayment(id uint) (*models.Payment, error)
	SavePayment(payment *models.Payment) error
	PaymentsByOrder(orderIDs ...uint) ([]models.Payment, error)
	ListPayments(filter PaymentFilter, page Page) ([]models.Payment, int64, error)

	ActivePromotions(at time.Time) ([]models.Promotion, error)
	FindPromotion(id uint) (*models.Promotion, error)
	PromotionItems(promotionIDs ...uint) ([]models.PromotionItem, error)
	CreatePromotionItem(item *models.PromotionItem) error

	OrderStats(top int) (*models.OrderStats, error)
}

// Store ouvre des unités de travail. WithinTx valide si fn retourne nil, annule sinon.
type Store interface {
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
	View(ctx context.Context, fn func(tx Tx) error) error
}

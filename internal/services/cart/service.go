package cart

import (
	"context"
	"errors"
	"log"
	"time"

	"bookstore_back_end/internal/auth"
	"bookstore_back_end/internal/cache"
	"bookstore_back_end/internal/models"
	"bookstore_back_end/internal/repository"
	"bookstore_back_end/internal/services"
)

// Cache : lecture du panier en cache Redis, invalidé à chaque modification
type Cache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) error
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

type BookSummary struct {
	BookID   uint    `json:"bookId"`
	Title    string  `json:"title"`
	Price    float64 `json:"price"`
	ImageURL string  `json:"imageUrl,omitempty"`
	Stock    int     `json:"stock"`
}

type Line struct {
	ID       uint         `json:"id"`
	BookID   uint         `json:"bookId"`
	Quantity int          `json:"quantity"`
	Book     *BookSummary `json:"book"`
}

type View struct {
	CartID     uint      `json:"cartId"`
	UserID     uint      `json:"userId"`
	CreatedAt  time.Time `json:"createdAt"`
	Items      []Line    `json:"cartItems"`
	TotalPrice float64   `json:"totalPrice"`
}

type Service struct {
	store repository.Store
	cache Cache
}

func NewService(store repository.Store, c Cache) *Service {
	return &Service{store: store, cache: c}
}

func (s *Service) invalidate(ctx context.Context, userID uint) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, cache.CartKey(userID)); err != nil {
		log.Printf("⚠️ Invalidation cache panier %d: %v", userID, err)
	}
}

// Get retourne le panier du principal ; NotFound s'il n'a jamais été créé
func (s *Service) Get(ctx context.Context, principal auth.Principal) (*View, error) {
	if s.cache != nil {
		var cached View
		if err := s.cache.GetJSON(ctx, cache.CartKey(principal.UserID), &cached); err == nil {
			return &cached, nil
		}
	}

	var view View
	err := s.store.View(ctx, func(tx repository.Tx) error {
		c, err := tx.FindCartByUser(principal.UserID)
		if errors.Is(err, repository.ErrNotFound) {
			return &services.NotFoundError{Entity: "panier", ID: principal.UserID}
		}
		if err != nil {
			return err
		}
		items, err := tx.CartItems(c.ID)
		if err != nil {
			return err
		}
		ids := make([]uint, 0, len(items))
		for _, it := range items {
			ids = append(ids, it.BookID)
		}
		books, err := tx.FindBooks(ids)
		if err != nil {
			return err
		}

		view = View{CartID: c.ID, UserID: c.UserID, CreatedAt: c.CreatedAt, Items: make([]Line, 0, len(items))}
		for _, it := range items {
			line := Line{ID: it.ID, BookID: it.BookID, Quantity: it.Quantity}
			if b, ok := books[it.BookID]; ok {
				line.Book = &BookSummary{BookID: b.ID, Title: b.Title, Price: b.Price, ImageURL: b.ImageURL, Stock: b.Quantity}
				view.TotalPrice += b.Price * float64(it.Quantity)
			}
			view.Items = append(view.Items, line)
		}
		view.TotalPrice = models.RoundMoney(view.TotalPrice)
		return nil
	})
	if err != nil {
		return nil, services.Infra("get-cart", err)
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, cache.CartKey(principal.UserID), view, cache.CartCacheTTL); err != nil {
			log.Printf("⚠️ Mise en cache panier %d: %v", principal.UserID, err)
		}
	}
	return &view, nil
}

// Add ajoute un livre ; la quantité s'additionne si le livre est déjà dans le panier
func (s *Service) Add(ctx context.Context, principal auth.Principal, bookID uint, quantity int) (*models.CartItem, error) {
	if quantity <= 0 {
		return nil, &services.ValidationError{Field: "quantity", Message: "La quantité doit être supérieure à 0"}
	}

	var item *models.CartItem
	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		books, err := tx.FindBooks([]uint{bookID})
		if err != nil {
			return err
		}
		book, ok := books[bookID]
		if !ok {
			return &services.NotFoundError{Entity: "livre", ID: bookID}
		}

		c, err := tx.FindCartByUser(principal.UserID)
		if errors.Is(err, repository.ErrNotFound) {
			c = &models.Cart{UserID: principal.UserID, CreatedAt: time.Now()}
			err = tx.CreateCart(c)
		}
		if err != nil {
			return err
		}

		item, err = tx.FindCartItem(c.ID, bookID)
		if errors.Is(err, repository.ErrNotFound) {
			item = &models.CartItem{CartID: c.ID, BookID: bookID}
		} else if err != nil {
			return err
		}

		if book.Quantity < item.Quantity+quantity {
			return &services.InsufficientStockError{BookID: book.ID, Title: book.Title, Available: book.Quantity}
		}
		item.Quantity += quantity
		return tx.SaveCartItem(item)
	})
	if err != nil {
		return nil, services.Infra("add-to-cart", err)
	}
	s.invalidate(ctx, principal.UserID)
	return item, nil
}

// Update remplace la quantité d'une ligne du panier du principal
func (s *Service) Update(ctx context.Context, principal auth.Principal, itemID uint, quantity int) (*models.CartItem, error) {
	var item *models.CartItem
	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		var err error
		if item, err = s.ownedItem(tx, principal, itemID); err != nil {
			return err
		}
		if quantity <= 0 {
			return &services.ValidationError{Field: "quantity", Message: "La quantité doit être supérieure à 0"}
		}
		books, err := tx.FindBooks([]uint{item.BookID})
		if err != nil {
			return err
		}
		if book, ok := books[item.BookID]; ok && book.Quantity < quantity {
			return &services.InsufficientStockError{BookID: book.ID, Title: book.Title, Available: book.Quantity}
		}
		item.Quantity = quantity
		return tx.SaveCartItem(item)
	})
	if err != nil {
		return nil, services.Infra("update-cart", err)
	}
	s.invalidate(ctx, principal.UserID)
	return item, nil
}

func (s *Service) Remove(ctx context.Context, principal auth.Principal, itemID uint) error {
	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		if _, err := s.ownedItem(tx, principal, itemID); err != nil {
			return err
		}
		return tx.DeleteCartItem(itemID)
	})
	if err != nil {
		return services.Infra("remove-from-cart", err)
	}
	s.invalidate(ctx, principal.UserID)
	return nil
}

// ownedItem : une ligne d'un autre panier est traitée comme introuvable
func (s *Service) ownedItem(tx repository.Tx, principal auth.Principal, itemID uint) (*models.CartItem, error) {
	item, err := tx.FindCartItemByID(itemID)
	if err != nil {
		return nil, notFoundItem(itemID, err)
	}
	c, err := tx.FindCartByUser(principal.UserID)
	if err != nil {
		return nil, notFoundItem(itemID, err)
	}
	if item.CartID != c.ID {
		return nil, &services.NotFoundError{Entity: "ligne de panier", ID: itemID}
	}
	return item, nil
}

func notFoundItem(id uint, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return &services.NotFoundError{Entity: "ligne de panier", ID: id}
	}
	return err
}

package promotion

import (
	"context"
	"errors"
	"log"
	"time"

	"bookstore_back_end/internal/cache"
	"bookstore_back_end/internal/models"
	"bookstore_back_end/internal/repository"
	"bookstore_back_end/internal/services"
)

type Cache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) error
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// Active : une promotion en cours et les livres qu'elle cible (vide = tout le catalogue)
type Active struct {
	models.Promotion
	Items []models.PromotionItem `json:"items"`
}

type BookPrice struct {
	BookID          uint    `json:"bookId"`
	Price           float64 `json:"price"`
	DiscountedPrice float64 `json:"discountedPrice"`
	PromotionID     *uint   `json:"promotionId"`
}

type Service struct {
	store repository.Store
	cache Cache
	now   func() time.Time
}

func NewService(store repository.Store, c Cache) *Service {
	return &Service{store: store, cache: c, now: time.Now}
}

// Active liste les promotions actives maintenant, servies depuis Redis si possible
func (s *Service) Active(ctx context.Context) ([]Active, error) {
	if s.cache != nil {
		var cached []Active
		if err := s.cache.GetJSON(ctx, cache.ActivePromotionsKey, &cached); err == nil {
			return cached, nil
		}
	}

	var out []Active
	err := s.store.View(ctx, func(tx repository.Tx) error {
		var err error
		out, err = loadActive(tx, s.now())
		return err
	})
	if err != nil {
		return nil, services.Infra("active-promotions", err)
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, cache.ActivePromotionsKey, out, cache.PromotionsCacheTTL); err != nil {
			log.Printf("⚠️ Mise en cache promotions: %v", err)
		}
	}
	return out, nil
}

func loadActive(tx repository.Tx, at time.Time) ([]Active, error) {
	promos, err := tx.ActivePromotions(at)
	if err != nil {
		return nil, err
	}
	out := make([]Active, 0, len(promos))
	if len(promos) == 0 {
		return out, nil
	}
	ids := make([]uint, 0, len(promos))
	for _, p := range promos {
		ids = append(ids, p.ID)
	}
	items, err := tx.PromotionItems(ids...)
	if err != nil {
		return nil, err
	}
	byPromo := map[uint][]models.PromotionItem{}
	for _, it := range items {
		byPromo[it.PromotionID] = append(byPromo[it.PromotionID], it)
	}
	for _, p := range promos {
		scoped := byPromo[p.ID]
		if scoped == nil {
			scoped = []models.PromotionItem{}
		}
		out = append(out, Active{Promotion: p, Items: scoped})
	}
	return out, nil
}

// PriceFor retourne le meilleur prix remisé d'un livre parmi les promotions actives
func (s *Service) PriceFor(ctx context.Context, bookID uint) (*BookPrice, error) {
	var out *BookPrice
	err := s.store.View(ctx, func(tx repository.Tx) error {
		books, err := tx.FindBooks([]uint{bookID})
		if err != nil {
			return err
		}
		book, ok := books[bookID]
		if !ok {
			return &services.NotFoundError{Entity: "livre", ID: bookID}
		}
		active, err := loadActive(tx, s.now())
		if err != nil {
			return err
		}
		out = bestPrice(book, active)
		return nil
	})
	if err != nil {
		return nil, services.Infra("book-price", err)
	}
	return out, nil
}

func bestPrice(book models.Book, active []Active) *BookPrice {
	out := &BookPrice{BookID: book.ID, Price: book.Price, DiscountedPrice: book.Price}
	for _, a := range active {
		item, applies := models.PromotionItem{}, len(a.Items) == 0
		for _, it := range a.Items {
			if it.BookID == book.ID {
				item, applies = it, true
				break
			}
		}
		if !applies {
			continue
		}
		if price := a.DiscountedPrice(book.Price, item); price < out.DiscountedPrice {
			id := a.ID
			out.DiscountedPrice = price
			out.PromotionID = &id
		}
	}
	return out
}

// AddItem rattache un livre à une promotion ; un doublon est un conflit
func (s *Service) AddItem(ctx context.Context, promotionID, bookID uint, specificDiscount *float64) (*models.PromotionItem, error) {
	if specificDiscount != nil && *specificDiscount < 0 {
		return nil, &services.ValidationError{Field: "specificDiscount", Message: "La remise ne peut pas être négative"}
	}

	item := &models.PromotionItem{PromotionID: promotionID, BookID: bookID, SpecificDiscount: specificDiscount}
	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		if _, err := tx.FindPromotion(promotionID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return &services.NotFoundError{Entity: "promotion", ID: promotionID}
			}
			return err
		}
		books, err := tx.FindBooks([]uint{bookID})
		if err != nil {
			return err
		}
		if _, ok := books[bookID]; !ok {
			return &services.NotFoundError{Entity: "livre", ID: bookID}
		}
		err = tx.CreatePromotionItem(item)
		if errors.Is(err, repository.ErrDuplicate) {
			return &services.ConflictError{Code: services.ConflictDuplicate, Message: "Ce livre fait déjà partie de la promotion"}
		}
		return err
	})
	if err != nil {
		return nil, services.Infra("add-promotion-item", err)
	}

	if s.cache != nil {
		if err := s.cache.Delete(ctx, cache.ActivePromotionsKey); err != nil {
			log.Printf("⚠️ Invalidation cache promotions: %v", err)
		}
	}
	return item, nil
}

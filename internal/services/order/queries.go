package order

import (
	"context"

	"bookstore_back_end/internal/auth"
	"bookstore_back_end/internal/models"
	"bookstore_back_end/internal/repository"
	"bookstore_back_end/internal/services"
)

type OrderLine struct {
	BookID   uint    `json:"bookId"`
	Title    string  `json:"title"`
	ImageURL string  `json:"imageUrl,omitempty"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
	Subtotal float64 `json:"subtotal"`
}

type OrderView struct {
	models.Order
	Items    []OrderLine      `json:"items"`
	Payments []models.Payment `json:"payments"`
}

type OrderSummary struct {
	models.Order
	ItemCount     int             `json:"itemCount"`
	TotalItems    int             `json:"totalItems"`
	LatestPayment *models.Payment `json:"latestPayment"`
}

// GetOrder charge la commande, puis ses lignes, puis les livres référencés
func (s *Service) GetOrder(ctx context.Context, orderID uint) (*OrderView, error) {
	var view OrderView
	err := s.store.View(ctx, func(tx repository.Tx) error {
		order, err := tx.FindOrder(orderID)
		if err != nil {
			return notFound("commande", orderID, err)
		}
		details, err := tx.OrderDetails(order.ID)
		if err != nil {
			return err
		}
		books, err := tx.FindBooks(bookIDs(details))
		if err != nil {
			return err
		}
		payments, err := tx.PaymentsByOrder(order.ID)
		if err != nil {
			return err
		}

		view.Order = *order
		view.Items = make([]OrderLine, 0, len(details))
		for _, d := range details {
			book := books[d.BookID]
			view.Items = append(view.Items, OrderLine{
				BookID:   d.BookID,
				Title:    book.Title,
				ImageURL: book.ImageURL,
				Quantity: d.Quantity,
				Price:    d.Price,
				Subtotal: d.Subtotal(),
			})
		}
		view.Payments = payments
		if view.Payments == nil {
			view.Payments = []models.Payment{}
		}
		return nil
	})
	if err != nil {
		return nil, services.Infra("get-order", err)
	}
	return &view, nil
}

// UserOrders : commandes du principal, les plus récentes d'abord
func (s *Service) UserOrders(ctx context.Context, principal auth.Principal) ([]OrderSummary, error) {
	var out []OrderSummary
	err := s.store.View(ctx, func(tx repository.Tx) error {
		orders, err := tx.OrdersByUser(principal.UserID)
		if err != nil {
			return err
		}
		out, err = summarize(tx, orders)
		return err
	})
	if err != nil {
		return nil, services.Infra("user-orders", err)
	}
	return out, nil
}

func (s *Service) AdminOrders(ctx context.Context, page repository.Page) (services.Paged[OrderSummary], error) {
	page = page.Normalize()
	var (
		out   []OrderSummary
		total int64
	)
	err := s.store.View(ctx, func(tx repository.Tx) error {
		orders, n, err := tx.ListOrders(page)
		if err != nil {
			return err
		}
		total = n
		out, err = summarize(tx, orders)
		return err
	})
	if err != nil {
		return services.Paged[OrderSummary]{}, services.Infra("admin-orders", err)
	}
	return services.NewPaged(out, page.Number, page.Size, total), nil
}

func (s *Service) AdminPayments(ctx context.Context, filter repository.PaymentFilter, page repository.Page) (services.Paged[models.Payment], error) {
	page = page.Normalize()
	if filter.Status != "" {
		if _, err := models.ParsePaymentStatus(filter.Status); err != nil {
			return services.Paged[models.Payment]{}, &services.ValidationError{Field: "status", Message: err.Error()}
		}
	}
	if filter.Method != "" {
		if _, err := models.ParsePaymentMethod(filter.Method); err != nil {
			return services.Paged[models.Payment]{}, &services.ValidationError{Field: "paymentMethod", Message: err.Error()}
		}
	}

	var (
		payments []models.Payment
		total    int64
	)
	err := s.store.View(ctx, func(tx repository.Tx) error {
		var err error
		payments, total, err = tx.ListPayments(filter, page)
		return err
	})
	if err != nil {
		return services.Paged[models.Payment]{}, services.Infra("admin-payments", err)
	}
	return services.NewPaged(payments, page.Number, page.Size, total), nil
}

func (s *Service) Stats(ctx context.Context, top int) (*models.OrderStats, error) {
	if top <= 0 {
		top = 5
	}
	var stats *models.OrderStats
	err := s.store.View(ctx, func(tx repository.Tx) error {
		var err error
		stats, err = tx.OrderStats(top)
		return err
	})
	if err != nil {
		return nil, services.Infra("order-stats", err)
	}
	if stats.TopSellers == nil {
		stats.TopSellers = []models.BookSales{}
	}
	return stats, nil
}

func summarize(tx repository.Tx, orders []models.Order) ([]OrderSummary, error) {
	out := make([]OrderSummary, 0, len(orders))
	if len(orders) == 0 {
		return out, nil
	}
	ids := make([]uint, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
	}
	details, err := tx.OrderDetails(ids...)
	if err != nil {
		return nil, err
	}
	payments, err := tx.PaymentsByOrder(ids...)
	if err != nil {
		return nil, err
	}

	lines := map[uint][]models.OrderDetail{}
	for _, d := range details {
		lines[d.OrderID] = append(lines[d.OrderID], d)
	}
	latest := map[uint]models.Payment{}
	for _, p := range payments {
		cur, ok := latest[p.OrderID]
		if !ok || p.CreatedAt.After(cur.CreatedAt) || (p.CreatedAt.Equal(cur.CreatedAt) && p.ID > cur.ID) {
			latest[p.OrderID] = p
		}
	}

	for _, o := range orders {
		sum := OrderSummary{Order: o, ItemCount: len(lines[o.ID])}
		for _, d := range lines[o.ID] {
			sum.TotalItems += d.Quantity
		}
		if p, ok := latest[o.ID]; ok {
			p := p
			sum.LatestPayment = &p
		}
		out = append(out, sum)
	}
	return out, nil
}

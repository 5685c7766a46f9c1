package models

import (
	"time"

	"github.com/gocql/gocql"
)

const (
	MovementSale    = "sale"
	MovementRestock = "restock"

	AlertLowStock   = "low_stock"
	AlertOutOfStock = "out_of_stock"

	// DefaultLowStockThreshold : à ce niveau ou en dessous, une alerte est enregistrée
	DefaultLowStockThreshold = 10
)

type StockMovement struct {
	ID        gocql.UUID `json:"id"`
	BookID    uint       `json:"book_id"`
	Title     string     `json:"title"`
	Type      string     `json:"type"` // "sale", "restock"
	Quantity  int        `json:"quantity"`
	PrevStock int        `json:"prev_stock"`
	NewStock  int        `json:"new_stock"`
	OrderID   uint       `json:"order_id"`
	Reason    string     `json:"reason"`
	CreatedAt time.Time  `json:"created_at"`
}

type StockAlert struct {
	ID             gocql.UUID `json:"id"`
	BookID         uint       `json:"book_id"`
	Title          string     `json:"title"`
	CurrentStock   int        `json:"current_stock"`
	ThresholdStock int        `json:"threshold_stock"`
	AlertType      string     `json:"alert_type"` // "low_stock", "out_of_stock"
	IsResolved     bool       `json:"is_resolved"`
	CreatedAt      time.Time  `json:"created_at"`
}

// AlertTypeFor retourne le type d'alerte pour un niveau de stock, ou "" si aucun
func AlertTypeFor(stock, threshold int) string {
	switch {
	case stock <= 0:
		return AlertOutOfStock
	case stock <= threshold:
		return AlertLowStock
	default:
		return ""
	}
}

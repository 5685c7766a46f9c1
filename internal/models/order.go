package models

import (
	"math"
	"time"
)

type Order struct {
	ID             uint        `gorm:"primaryKey" json:"orderId"`
	UserID         uint        `gorm:"index;not null" json:"userId"`
	TotalPrice     float64     `gorm:"type:decimal(12,2);not null" json:"totalPrice"`
	Status         OrderStatus `gorm:"type:varchar(30);not null;default:'pending'" json:"status"`
	StockCommitted bool        `gorm:"not null;default:false" json:"stockCommitted"`
	CreatedAt      time.Time   `json:"createdAt"`
	UpdatedAt      time.Time   `json:"updatedAt"`
}

// OrderDetail fige le prix unitaire au moment de la commande ; jamais modifié ensuite
type OrderDetail struct {
	ID       uint    `gorm:"primaryKey" json:"orderDetailId"`
	OrderID  uint    `gorm:"index;not null" json:"orderId"`
	BookID   uint    `gorm:"index;not null" json:"bookId"`
	Quantity int     `gorm:"not null" json:"quantity"`
	Price    float64 `gorm:"type:decimal(12,2);not null" json:"price"`
}

// TransitionTo applique la table de transitions des commandes
func (o *Order) TransitionTo(next OrderStatus) error {
	if !o.Status.CanTransitionTo(next) {
		return &TransitionError{Entity: "commande", From: string(o.Status), To: string(next)}
	}
	o.Status = next
	return nil
}

func (d OrderDetail) Subtotal() float64 {
	return RoundMoney(d.Price * float64(d.Quantity))
}

// DetailsTotal additionne les sous-totaux des lignes
func DetailsTotal(details []OrderDetail) float64 {
	var total float64
	for _, d := range details {
		total += d.Subtotal()
	}
	return RoundMoney(total)
}

// RoundMoney arrondit au centime
func RoundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}

type OrderStats struct {
	TotalOrders  int64            `json:"totalOrders"`
	TotalRevenue float64          `json:"totalRevenue"`
	ByStatus     map[string]int64 `json:"byStatus"`
	TopSellers   []BookSales      `json:"topSellers"`
}

type BookSales struct {
	BookID    uint    `json:"bookId"`
	Title     string  `json:"title"`
	TotalSold int64   `json:"totalSold"`
	Revenue   float64 `json:"revenue"`
}

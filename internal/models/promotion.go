package models

import "time"

const (
	PromotionTypePercentage = "percentage"
	PromotionTypeFixed      = "fixed"
)

type Promotion struct {
	ID            uint      `gorm:"primaryKey" json:"promotionId"`
	Name          string    `gorm:"size:150;not null" json:"name"`
	Type          string    `gorm:"size:20;not null" json:"type"` // "percentage" ou "fixed"
	DiscountValue float64   `gorm:"type:decimal(12,2);not null" json:"discountValue"`
	StartDate     time.Time `json:"startDate"`
	EndDate       time.Time `json:"endDate"`
	IsActive      bool      `gorm:"not null;default:true" json:"isActive"`
}

type PromotionItem struct {
	ID               uint     `gorm:"primaryKey" json:"id"`
	PromotionID      uint     `gorm:"uniqueIndex:idx_promotion_book;not null" json:"promotionId"`
	BookID           uint     `gorm:"uniqueIndex:idx_promotion_book;not null" json:"bookId"`
	SpecificDiscount *float64 `gorm:"type:decimal(12,2)" json:"specificDiscount,omitempty"`
}

// ActiveAt : promotion activée et dans sa fenêtre de dates
func (p Promotion) ActiveAt(t time.Time) bool {
	return p.IsActive && !t.Before(p.StartDate) && !t.After(p.EndDate)
}

// DiscountedPrice applique la remise (spécifique à l'item si présente) sans descendre sous zéro
func (p Promotion) DiscountedPrice(price float64, item PromotionItem) float64 {
	value := p.DiscountValue
	if item.SpecificDiscount != nil {
		value = *item.SpecificDiscount
	}
	var out float64
	switch p.Type {
	case PromotionTypePercentage:
		out = price * (1 - value/100)
	default:
		out = price - value
	}
	if out < 0 {
		out = 0
	}
	return RoundMoney(out)
}

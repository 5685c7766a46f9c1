package models

import "time"

// Cart : un panier par utilisateur, créé au premier ajout
type Cart struct {
	ID        uint      `gorm:"primaryKey" json:"cartId"`
	UserID    uint      `gorm:"uniqueIndex;not null" json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
}

type CartItem struct {
	ID       uint `gorm:"primaryKey" json:"id"`
	CartID   uint `gorm:"index;not null" json:"cartId"`
	BookID   uint `gorm:"index;not null" json:"bookId"`
	Quantity int  `gorm:"not null" json:"quantity"`
}

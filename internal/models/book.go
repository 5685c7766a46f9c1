package models

import "time"

type Book struct {
	ID          uint      `gorm:"primaryKey" json:"bookId"`
	Title       string    `gorm:"size:255;not null" json:"title"`
	Price       float64   `gorm:"type:decimal(12,2);not null" json:"price"`
	Quantity    int       `gorm:"not null;default:0" json:"quantity"` // stock disponible
	CategoryID  *uint     `gorm:"index" json:"categoryId,omitempty"`
	AuthorID    *uint     `gorm:"index" json:"authorId,omitempty"`
	PublisherID *uint     `gorm:"index" json:"publisherId,omitempty"`
	Description string    `gorm:"type:text" json:"description,omitempty"`
	ImageURL    string    `gorm:"size:500" json:"imageUrl,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

package models

import "time"

type User struct {
	ID        uint      `gorm:"primaryKey" json:"userId"`
	FullName  string    `gorm:"size:150;not null" json:"fullName"`
	Email     string    `gorm:"size:150;uniqueIndex;not null" json:"email"`
	Password  string    `gorm:"size:255" json:"-"`
	Phone     string    `gorm:"size:30" json:"phone,omitempty"`
	Role      string    `gorm:"size:20;not null;default:'Customer'" json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

type Contact struct {
	ID        uint      `gorm:"primaryKey" json:"contactId"`
	UserID    *uint     `gorm:"index" json:"userId,omitempty"`
	Name      string    `gorm:"size:150" json:"name"`
	Email     string    `gorm:"size:150" json:"email"`
	Message   string    `gorm:"type:text" json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

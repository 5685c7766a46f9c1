package models

import "time"

type Payment struct {
	ID            uint          `gorm:"primaryKey" json:"paymentId"`
	OrderID       uint          `gorm:"index;not null" json:"orderId"`
	UserID        uint          `gorm:"index;not null" json:"userId"`
	Amount        float64       `gorm:"type:decimal(12,2);not null" json:"amount"`
	Method        PaymentMethod `gorm:"column:payment_method;type:varchar(50);not null" json:"paymentMethod"`
	TransactionID *string       `gorm:"size:100" json:"transactionId"`
	Status        PaymentStatus `gorm:"column:payment_status;type:varchar(30);not null;default:'Pending'" json:"paymentStatus"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

func (p *Payment) TransitionTo(next PaymentStatus) error {
	if !p.Status.CanTransitionTo(next) {
		return &TransitionError{Entity: "paiement", From: string(p.Status), To: string(next)}
	}
	p.Status = next
	return nil
}

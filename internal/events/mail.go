package events

import (
	"context"
	"log"
)

// Mailer : envoi du mail de suivi de commande
type Mailer interface {
	SendOrderStatus(ctx context.Context, to string, e Event) error
}

type MailSink struct {
	mailer Mailer
}

func NewMailSink(m Mailer) *MailSink {
	return &MailSink{mailer: m}
}

func (m *MailSink) Name() string { return "mail" }

func (m *MailSink) Handle(ctx context.Context, e Event) error {
	if e.Email == "" {
		return nil
	}
	if err := m.mailer.SendOrderStatus(ctx, e.Email, e); err != nil {
		return err
	}
	log.Printf("📧 Email de statut envoyé: %s → %s", e.OrderStatus, e.Email)
	return nil
}

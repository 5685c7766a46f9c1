package mailer

import (
	"context"
	"fmt"
	"log"

	"bookstore_back_end/internal/events"

	"github.com/wneessen/go-mail"
)

type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	ShopURL  string
}

// SMTPMailer envoie les mails de suivi de commande via SMTP (TLS obligatoire)
type SMTPMailer struct {
	cfg Config
}

func NewSMTPMailer(cfg Config) *SMTPMailer {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if cfg.From == "" {
		cfg.From = "noreply@bookstore.local"
	}
	return &SMTPMailer{cfg: cfg}
}

// BuildMessage prépare le mail sans l'envoyer
func (m *SMTPMailer) BuildMessage(to string, e events.Event) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(m.cfg.From); err != nil {
		return nil, err
	}
	if err := msg.To(to); err != nil {
		return nil, err
	}
	msg.Subject(StatusSubject(e.OrderStatus))
	msg.SetBodyString(mail.TypeTextHTML, StatusHTML(e, m.cfg.ShopURL))
	return msg, nil
}

func (m *SMTPMailer) SendOrderStatus(ctx context.Context, to string, e events.Event) error {
	msg, err := m.BuildMessage(to, e)
	if err != nil {
		return err
	}

	client, err := mail.NewClient(m.cfg.Host,
		mail.WithPort(m.cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthLogin),
		mail.WithUsername(m.cfg.Username),
		mail.WithPassword(m.cfg.Password),
		mail.WithTLSPolicy(mail.TLSMandatory),
	)
	if err != nil {
		return fmt.Errorf("client SMTP: %w", err)
	}

	log.Println("📤 Envoi de l'e-mail à", to)
	return client.DialAndSendWithContext(ctx, msg)
}

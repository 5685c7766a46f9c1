package mailer

import (
	"testing"

	"bookstore_back_end/internal/events"
	"bookstore_back_end/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"
)

func TestBuildMessage(t *testing.T) {
	m := NewSMTPMailer(Config{Host: "smtp.local", ShopURL: "https://shop.local"})
	e := events.Event{Type: events.OrderCreated, OrderID: 42, OrderStatus: models.OrderStatusConfirmed, TotalPrice: 200000}

	msg, err := m.BuildMessage("client@example.com", e)
	require.NoError(t, err)
	assert.Equal(t, []string{StatusSubject(models.OrderStatusConfirmed)}, msg.GetGenHeader(mail.HeaderSubject))

	_, err = m.BuildMessage("pas-un-email", e)
	assert.Error(t, err)
}

func TestStatusHTML(t *testing.T) {
	body := StatusHTML(events.Event{OrderID: 7, OrderStatus: models.OrderStatusShipping, TotalPrice: 12.5}, "https://shop.local")
	assert.Contains(t, body, "#7")
	assert.Contains(t, body, "12.50")
	assert.Contains(t, body, "https://shop.local/orders/7")
	assert.Contains(t, body, "expédiée")

	assert.Contains(t, StatusSubject(models.OrderStatusCancelled), "annulée")
	assert.Contains(t, StatusSubject("inconnu"), "Mise à jour")
}

package events

import (
	"context"
	"log"
	"sync"
	"time"

	"bookstore_back_end/internal/models"

	"github.com/google/uuid"
)

type Type string

const (
	OrderCreated       Type = "order.created"
	PaymentConfirmed   Type = "payment.confirmed"
	PaymentFailed      Type = "payment.failed"
	OrderCancelled     Type = "order.cancelled"
	OrderStatusChanged Type = "order.status_changed"
)

// Event décrit un changement validé (après commit) sur une commande
type Event struct {
	ID            string                 `json:"id"`
	Type          Type                   `json:"type"`
	OrderID       uint                   `json:"orderId"`
	UserID        uint                   `json:"userId"`
	PaymentID     uint                   `json:"paymentId,omitempty"`
	Email         string                 `json:"-"`
	OrderStatus   models.OrderStatus     `json:"orderStatus"`
	PaymentStatus models.PaymentStatus   `json:"paymentStatus,omitempty"`
	PaymentMethod models.PaymentMethod   `json:"paymentMethod,omitempty"`
	TotalPrice    float64                `json:"totalPrice"`
	Movements     []models.StockMovement `json:"movements,omitempty"`
	OccurredAt    time.Time              `json:"occurredAt"`
}

func New(t Type, order models.Order) Event {
	return Event{
		ID:          uuid.NewString(),
		Type:        t,
		OrderID:     order.ID,
		UserID:      order.UserID,
		OrderStatus: order.Status,
		TotalPrice:  order.TotalPrice,
		OccurredAt:  time.Now(),
	}
}

// Sink reçoit les événements : Kafka, Redis, Elasticsearch, ledger, mail...
type Sink interface {
	Name() string
	Handle(ctx context.Context, e Event) error
}

// Dispatcher diffuse chaque événement à tous les sinks. Une erreur de sink est
// loggée et n'interrompt ni les autres sinks ni la requête.
type Dispatcher struct {
	sinks   []Sink
	async   bool
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewDispatcher(async bool, sinks ...Sink) *Dispatcher {
	return &Dispatcher{sinks: sinks, async: async, timeout: 10 * time.Second}
}

func (d *Dispatcher) Add(s Sink) {
	d.sinks = append(d.sinks, s)
}

func (d *Dispatcher) Publish(ctx context.Context, e Event) {
	if d == nil || len(d.sinks) == 0 {
		return
	}
	if !d.async {
		d.dispatch(ctx, e)
		return
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		// La requête HTTP peut être terminée avant la fin des envois
		bg, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()
		d.dispatch(bg, e)
	}()
}

func (d *Dispatcher) dispatch(ctx context.Context, e Event) {
	for _, s := range d.sinks {
		if err := s.Handle(ctx, e); err != nil {
			log.Printf("⚠️ Sink %s: échec pour %s (commande %d): %v", s.Name(), e.Type, e.OrderID, err)
		}
	}
}

// Wait attend la fin des envois asynchrones (arrêt du serveur, tests)
func (d *Dispatcher) Wait() {
	if d == nil {
		return
	}
	d.wg.Wait()
}

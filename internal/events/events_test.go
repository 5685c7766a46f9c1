package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"bookstore_back_end/internal/models"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu     sync.Mutex
	name   string
	err    error
	events []Event
}

func (r *recordingSink) Name() string { return r.name }

func (r *recordingSink) Handle(_ context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return r.err
}

func TestDispatcherContinuesAfterSinkError(t *testing.T) {
	failing := &recordingSink{name: "failing", err: errors.New("down")}
	ok := &recordingSink{name: "ok"}
	d := NewDispatcher(true, failing, ok)

	order := models.Order{ID: 3, UserID: 9, Status: models.OrderStatusConfirmed, TotalPrice: 20}
	d.Publish(context.Background(), New(OrderCreated, order))
	d.Publish(context.Background(), New(OrderCancelled, order))
	d.Wait()

	assert.Len(t, failing.events, 2)
	require.Len(t, ok.events, 2)
	assert.NotEmpty(t, ok.events[0].ID)
	assert.EqualValues(t, 9, ok.events[0].UserID)
}

func TestNilDispatcherIsSafe(t *testing.T) {
	var d *Dispatcher
	d.Publish(context.Background(), Event{})
	d.Wait()
}

func TestKafkaSinkPublishesOnTypedTopic(t *testing.T) {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	producer := mocks.NewSyncProducer(t, config)
	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var e Event
		if err := json.Unmarshal(val, &e); err != nil {
			return err
		}
		if e.OrderID != 12 || e.Type != PaymentConfirmed {
			return errors.New("événement inattendu")
		}
		return nil
	})

	sink := NewKafkaSink(producer, "bookstore.")
	assert.Equal(t, "bookstore.payment.confirmed", sink.Topic(PaymentConfirmed))

	e := New(PaymentConfirmed, models.Order{ID: 12, UserID: 1, Status: models.OrderStatusConfirmed})
	require.NoError(t, sink.Handle(context.Background(), e))
	require.NoError(t, sink.Close())
}

func TestKafkaSinkReturnsSendError(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	sink := NewKafkaSink(producer, "")
	err := sink.Handle(context.Background(), New(OrderCreated, models.Order{ID: 1}))
	assert.ErrorIs(t, err, sarama.ErrOutOfBrokers)
	require.NoError(t, sink.Close())
}

type fakeMailer struct {
	sent []string
}

func (f *fakeMailer) SendOrderStatus(_ context.Context, to string, _ Event) error {
	f.sent = append(f.sent, to)
	return nil
}

func TestMailSinkSkipsUnknownRecipient(t *testing.T) {
	m := &fakeMailer{}
	sink := NewMailSink(m)
	require.NoError(t, sink.Handle(context.Background(), Event{Type: OrderCreated}))
	require.NoError(t, sink.Handle(context.Background(), Event{Type: OrderCreated, Email: "a@b.c"}))
	assert.Equal(t, []string{"a@b.c"}, m.sent)
}

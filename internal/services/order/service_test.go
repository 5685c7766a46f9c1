package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"bookstore_back_end/internal/auth"
	"bookstore_back_end/internal/cache"
	"bookstore_back_end/internal/events"
	"bookstore_back_end/internal/models"
	"bookstore_back_end/internal/payment"
	"bookstore_back_end/internal/repository"
	"bookstore_back_end/internal/services"
	cartsvc "bookstore_back_end/internal/services/cart"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeQR struct{}

func (fakeQR) Generate(_ context.Context, ref payment.Reference) (string, error) {
	return fmt.Sprintf("https://qr.local/%s?amount=%.2f", ref.TransferContent(), ref.Amount), nil
}

type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) Publish(_ context.Context, e events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) last() events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[len(r.events)-1]
}

type fixture struct {
	store *repository.MemoryStore
	svc   *Service
	rec   *recorder
	user  models.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := repository.NewMemoryStore()
	rec := &recorder{}
	svc := NewService(store, fakeQR{}, rec)
	svc.now = func() time.Time { return time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC) }
	user := store.PutUser(models.User{FullName: "Tran Thi B", Email: "b@example.com", Role: "Customer"})
	return &fixture{store: store, svc: svc, rec: rec, user: user}
}

func (f *fixture) principal() auth.Principal {
	return auth.Principal{UserID: f.user.ID, Source: auth.SourceLegacy}
}

func (f *fixture) addToCart(t *testing.T, book models.Book, qty int) {
	t.Helper()
	require.NoError(t, f.store.WithinTx(context.Background(), func(tx repository.Tx) error {
		cart, err := tx.FindCartByUser(f.user.ID)
		if err == repository.ErrNotFound {
			cart = &models.Cart{UserID: f.user.ID}
			if err := tx.CreateCart(cart); err != nil {
				return err
			}
		} else if err != nil {
			return err
		}
		return tx.SaveCartItem(&models.CartItem{CartID: cart.ID, BookID: book.ID, Quantity: qty})
	}))
}

func (f *fixture) cartSize(t *testing.T) int {
	t.Helper()
	n := 0
	require.NoError(t, f.store.View(context.Background(), func(tx repository.Tx) error {
		cart, err := tx.FindCartByUser(f.user.ID)
		if err == repository.ErrNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		items, err := tx.CartItems(cart.ID)
		n = len(items)
		return err
	}))
	return n
}

func (f *fixture) stock(t *testing.T, id uint) int {
	t.Helper()
	b, ok := f.store.Book(id)
	require.True(t, ok)
	return b.Quantity
}

func (f *fixture) order(t *testing.T, id uint) (models.Order, []models.Payment) {
	t.Helper()
	var (
		o        *models.Order
		payments []models.Payment
	)
	require.NoError(t, f.store.View(context.Background(), func(tx repository.Tx) error {
		var err error
		if o, err = tx.FindOrder(id); err != nil {
			return err
		}
		payments, err = tx.PaymentsByOrder(id)
		return err
	}))
	return *o, payments
}

func (f *fixture) orderCount(t *testing.T) int64 {
	t.Helper()
	var total int64
	require.NoError(t, f.store.View(context.Background(), func(tx repository.Tx) error {
		var err error
		_, total, err = tx.ListOrders(repository.Page{})
		return err
	}))
	return total
}

func TestCheckoutCOD(t *testing.T) {
	f := newFixture(t)
	book := f.store.PutBook(models.Book{Title: "Novel X", Price: 100000, Quantity: 5})
	f.addToCart(t, book, 2)

	res, err := f.svc.Checkout(context.Background(), f.principal(), "cod")
	require.NoError(t, err)

	assert.Equal(t, models.OrderStatusConfirmed, res.Status)
	assert.Equal(t, models.PaymentStatusPending, res.PaymentStatus)
	assert.Equal(t, models.PaymentMethodCOD, res.PaymentMethod)
	assert.Equal(t, 200000.0, res.TotalPrice)
	assert.Nil(t, res.QRCodeURL)
	assert.Equal(t, 3, f.stock(t, book.ID))
	assert.Zero(t, f.cartSize(t))

	o, payments := f.order(t, res.OrderID)
	assert.True(t, o.StockCommitted)
	require.Len(t, payments, 1)
	assert.Equal(t, 200000.0, payments[0].Amount)

	e := f.rec.last()
	assert.Equal(t, events.OrderCreated, e.Type)
	assert.Equal(t, "b@example.com", e.Email)
	require.Len(t, e.Movements, 1)
	assert.Equal(t, 5, e.Movements[0].PrevStock)
	assert.Equal(t, 3, e.Movements[0].NewStock)
}

func TestCheckoutBanking(t *testing.T) {
	f := newFixture(t)
	book := f.store.PutBook(models.Book{Title: "Novel X", Price: 100000, Quantity: 5})
	f.addToCart(t, book, 2)

	res, err := f.svc.Checkout(context.Background(), f.principal(), "Banking")
	require.NoError(t, err)

	assert.Equal(t, models.OrderStatusAwaitingPayment, res.Status)
	assert.Equal(t, models.PaymentStatusPending, res.PaymentStatus)
	require.NotNil(t, res.QRCodeURL)
	assert.Contains(t, *res.QRCodeURL, fmt.Sprintf("BOOK%d", res.OrderID))
	assert.Equal(t, 5, f.stock(t, book.ID))
	assert.Zero(t, f.cartSize(t))

	o, _ := f.order(t, res.OrderID)
	assert.False(t, o.StockCommitted)
	assert.Empty(t, f.rec.last().Movements)
}

func TestCheckoutInsufficientStockRollsBack(t *testing.T) {
	f := newFixture(t)
	ok := f.store.PutBook(models.Book{Title: "Common Z", Price: 10, Quantity: 10})
	rare := f.store.PutBook(models.Book{Title: "Rare Y", Price: 50, Quantity: 1})
	f.addToCart(t, ok, 1)
	f.addToCart(t, rare, 2)

	_, err := f.svc.Checkout(context.Background(), f.principal(), "COD")
	var stockErr *services.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "Rare Y", stockErr.Title)
	assert.Equal(t, 1, stockErr.Available)

	assert.Zero(t, f.orderCount(t))
	assert.Equal(t, 2, f.cartSize(t))
	assert.Equal(t, 10, f.stock(t, ok.ID))
	assert.Equal(t, 1, f.stock(t, rare.ID))
	assert.Empty(t, f.rec.events)
}

func TestCheckoutRejections(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Checkout(context.Background(), f.principal(), "COD")
	assert.ErrorIs(t, err, services.ErrEmptyCart)

	_, err = f.svc.Checkout(context.Background(), auth.Principal{UserID: 999}, "COD")
	var nf *services.NotFoundError
	assert.ErrorAs(t, err, &nf)

	book := f.store.PutBook(models.Book{Title: "Dune", Price: 12, Quantity: 4})
	f.addToCart(t, book, 1)
	_, err = f.svc.Checkout(context.Background(), f.principal(), "Crypto")
	var ve *services.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "paymentMethod", ve.Field)
	assert.Zero(t, f.orderCount(t))
	assert.Equal(t, 1, f.cartSize(t))
	assert.Equal(t, 4, f.stock(t, book.ID))
}

func TestCheckoutTotalEqualsDetails(t *testing.T) {
	f := newFixture(t)
	a := f.store.PutBook(models.Book{Title: "A", Price: 10.99, Quantity: 10})
	b := f.store.PutBook(models.Book{Title: "B", Price: 5.5, Quantity: 10})
	c := f.store.PutBook(models.Book{Title: "C", Price: 0.1, Quantity: 10})
	f.addToCart(t, a, 3)
	f.addToCart(t, b, 2)
	f.addToCart(t, c, 7)

	res, err := f.svc.Checkout(context.Background(), f.principal(), "Banking")
	require.NoError(t, err)

	view, err := f.svc.GetOrder(context.Background(), res.OrderID)
	require.NoError(t, err)
	var sum float64
	for _, line := range view.Items {
		sum += line.Subtotal
	}
	assert.Equal(t, models.RoundMoney(sum), res.TotalPrice)
	assert.Equal(t, 44.67, res.TotalPrice)

	// Le prix figé ne suit pas le catalogue
	f.store.PutBook(models.Book{ID: a.ID, Title: "A", Price: 99, Quantity: 10})
	view, err = f.svc.GetOrder(context.Background(), res.OrderID)
	require.NoError(t, err)
	assert.Equal(t, 10.99, view.Items[0].Price)
}

func TestConfirmPaymentBankingIsIdempotent(t *testing.T) {
	f := newFixture(t)
	book := f.store.PutBook(models.Book{Title: "Novel X", Price: 100000, Quantity: 5})
	f.addToCart(t, book, 2)
	res, err := f.svc.Checkout(context.Background(), f.principal(), "Banking")
	require.NoError(t, err)

	txn := "VCB-123"
	conf, err := f.svc.ConfirmPayment(context.Background(), ConfirmInput{PaymentID: res.PaymentID, IsSuccess: true, TransactionID: &txn})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCompleted, conf.PaymentStatus)
	assert.Equal(t, models.OrderStatusConfirmed, conf.OrderStatus)
	assert.Equal(t, 3, f.stock(t, book.ID))

	_, err = f.svc.ConfirmPayment(context.Background(), ConfirmInput{PaymentID: res.PaymentID, IsSuccess: true})
	var ce *services.ConflictError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, services.ConflictAlreadyConfirmed, ce.Code)
	assert.Equal(t, 3, f.stock(t, book.ID))

	o, payments := f.order(t, res.OrderID)
	assert.True(t, o.StockCommitted)
	require.NotNil(t, payments[0].TransactionID)
	assert.Equal(t, "VCB-123", *payments[0].TransactionID)
	assert.Equal(t, events.PaymentConfirmed, f.rec.last().Type)
}

func TestConfirmPaymentGeneratesTransactionReference(t *testing.T) {
	f := newFixture(t)
	book := f.store.PutBook(models.Book{Title: "Dune", Price: 12, Quantity: 5})
	f.addToCart(t, book, 1)
	res, err := f.svc.Checkout(context.Background(), f.principal(), "Banking")
	require.NoError(t, err)

	_, err = f.svc.ConfirmPayment(context.Background(), ConfirmInput{PaymentID: res.PaymentID, IsSuccess: true})
	require.NoError(t, err)
	_, payments := f.order(t, res.OrderID)
	require.NotNil(t, payments[0].TransactionID)
	assert.Contains(t, *payments[0].TransactionID, "TXN-")
}

func TestConfirmPaymentFailureCancelsBanking(t *testing.T) {
	f := newFixture(t)
	book := f.store.PutBook(models.Book{Title: "Dune", Price: 12, Quantity: 5})
	f.addToCart(t, book, 2)
	res, err := f.svc.Checkout(context.Background(), f.principal(), "Banking")
	require.NoError(t, err)

	conf, err := f.svc.ConfirmPayment(context.Background(), ConfirmInput{PaymentID: res.PaymentID, IsSuccess: false})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusFailed, conf.PaymentStatus)
	assert.Equal(t, models.OrderStatusCancelled, conf.OrderStatus)
	assert.Equal(t, 5, f.stock(t, book.ID))

	// Un paiement échoué ne peut plus être confirmé, ni échouer une seconde fois
	for _, success := range []bool{true, false} {
		n := len(f.rec.events)
		_, err = f.svc.ConfirmPayment(context.Background(), ConfirmInput{PaymentID: res.PaymentID, IsSuccess: success})
		var ce *services.ConflictError
		require.ErrorAs(t, err, &ce)
		assert.Equal(t, services.ConflictAlreadyFailed, ce.Code)
		assert.Len(t, f.rec.events, n)
	}
	assert.Equal(t, 5, f.stock(t, book.ID))
	o, _ := f.order(t, res.OrderID)
	assert.Equal(t, models.OrderStatusCancelled, o.Status)
}

func TestConfirmCODNeverDecrementsTwice(t *testing.T) {
	f := newFixture(t)
	book := f.store.PutBook(models.Book{Title: "Dune", Price: 12, Quantity: 5})
	f.addToCart(t, book, 2)
	res, err := f.svc.Checkout(context.Background(), f.principal(), "COD")
	require.NoError(t, err)
	require.Equal(t, 3, f.stock(t, book.ID))

	conf, err := f.svc.ConfirmPayment(context.Background(), ConfirmInput{PaymentID: res.PaymentID, IsSuccess: true})
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusConfirmed, conf.OrderStatus)
	assert.Equal(t, models.PaymentStatusCompleted, conf.PaymentStatus)
	assert.Equal(t, 3, f.stock(t, book.ID))
}

func TestConfirmCODFailureRestocks(t *testing.T) {
	f := newFixture(t)
	book := f.store.PutBook(models.Book{Title: "Dune", Price: 12, Quantity: 5})
	f.addToCart(t, book, 2)
	res, err := f.svc.Checkout(context.Background(), f.principal(), "COD")
	require.NoError(t, err)

	conf, err := f.svc.ConfirmPayment(context.Background(), ConfirmInput{PaymentID: res.PaymentID, IsSuccess: false})
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, conf.OrderStatus)
	assert.Equal(t, 5, f.stock(t, book.ID))

	o, _ := f.order(t, res.OrderID)
	assert.False(t, o.StockCommitted)
	require.Len(t, f.rec.last().Movements, 1)
	assert.Equal(t, models.MovementRestock, f.rec.last().Movements[0].Type)
}

func TestConfirmPaymentLateOversellAborts(t *testing.T) {
	f := newFixture(t)
	book := f.store.PutBook(models.Book{Title: "Rare Y", Price: 40, Quantity: 3})

	f.addToCart(t, book, 2)
	first, err := f.svc.Checkout(context.Background(), f.principal(), "Banking")
	require.NoError(t, err)
	f.addToCart(t, book, 2)
	second, err := f.svc.Checkout(context.Background(), f.principal(), "Banking")
	require.NoError(t, err)

	_, err = f.svc.ConfirmPayment(context.Background(), ConfirmInput{PaymentID: first.PaymentID, IsSuccess: true})
	require.NoError(t, err)
	assert.Equal(t, 1, f.stock(t, book.ID))

	_, err = f.svc.ConfirmPayment(context.Background(), ConfirmInput{PaymentID: second.PaymentID, IsSuccess: true})
	var stockErr *services.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "Rare Y", stockErr.Title)

	assert.Equal(t, 1, f.stock(t, book.ID))
	o, payments := f.order(t, second.OrderID)
	assert.Equal(t, models.OrderStatusAwaitingPayment, o.Status)
	assert.Equal(t, models.PaymentStatusPending, payments[0].Status)
}

func TestConfirmUnknownPayment(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.ConfirmPayment(context.Background(), ConfirmInput{PaymentID: 404, IsSuccess: true})
	var nf *services.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "paiement", nf.Entity)
}

func TestCancelOrder(t *testing.T) {
	f := newFixture(t)
	book := f.store.PutBook(models.Book{Title: "Dune", Price: 12, Quantity: 5})
	f.addToCart(t, book, 2)
	res, err := f.svc.Checkout(context.Background(), f.principal(), "Banking")
	require.NoError(t, err)

	out, err := f.svc.CancelOrder(context.Background(), res.OrderID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusAwaitingPayment, out.PreviousStatus)
	assert.Equal(t, models.OrderStatusCancelled, out.Status)

	o, payments := f.order(t, res.OrderID)
	assert.Equal(t, models.OrderStatusCancelled, o.Status)
	for _, p := range payments {
		assert.Equal(t, models.PaymentStatusCancelled, p.Status)
	}
	assert.Equal(t, 5, f.stock(t, book.ID))
	assert.Equal(t, events.OrderCancelled, f.rec.last().Type)

	_, err = f.svc.CancelOrder(context.Background(), res.OrderID)
	var ce *services.ConflictError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, services.ConflictNotCancellable, ce.Code)
}

func TestCustomerCannotCancelConfirmedOrder(t *testing.T) {
	f := newFixture(t)
	book := f.store.PutBook(models.Book{Title: "Dune", Price: 12, Quantity: 5})
	f.addToCart(t, book, 2)
	res, err := f.svc.Checkout(context.Background(), f.principal(), "COD")
	require.NoError(t, err)

	_, err = f.svc.CancelOrder(context.Background(), res.OrderID)
	var ce *services.ConflictError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, services.ConflictNotCancellable, ce.Code)
	assert.Equal(t, 3, f.stock(t, book.ID))

	_, err = f.svc.CancelOrder(context.Background(), 12345)
	var nf *services.NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestAdminCancelsConfirmedOrderWithRestock(t *testing.T) {
	f := newFixture(t)
	book := f.store.PutBook(models.Book{Title: "Dune", Price: 12, Quantity: 5})
	f.addToCart(t, book, 2)
	res, err := f.svc.Checkout(context.Background(), f.principal(), "COD")
	require.NoError(t, err)

	out, err := f.svc.UpdateOrderStatus(context.Background(), res.OrderID, "CANCELLED")
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, out.Status)
	assert.Equal(t, 5, f.stock(t, book.ID))

	_, payments := f.order(t, res.OrderID)
	assert.Equal(t, models.PaymentStatusCancelled, payments[0].Status)
}

func TestAdminCannotCancelPaidOrder(t *testing.T) {
	f := newFixture(t)
	book := f.store.PutBook(models.Book{Title: "Dune", Price: 12, Quantity: 5})
	f.addToCart(t, book, 1)
	res, err := f.svc.Checkout(context.Background(), f.principal(), "Banking")
	require.NoError(t, err)
	_, err = f.svc.ConfirmPayment(context.Background(), ConfirmInput{PaymentID: res.PaymentID, IsSuccess: true})
	require.NoError(t, err)

	_, err = f.svc.UpdateOrderStatus(context.Background(), res.OrderID, "cancelled")
	var ce *services.ConflictError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, services.ConflictNotCancellable, ce.Code)
	assert.Equal(t, 4, f.stock(t, book.ID))

	out, err := f.svc.UpdateOrderStatus(context.Background(), res.OrderID, "refunded")
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusRefunded, out.Status)
	assert.Equal(t, 5, f.stock(t, book.ID), "commande non expédiée : retour en stock")
}

func TestAdminStatusLifecycle(t *testing.T) {
	f := newFixture(t)
	book := f.store.PutBook(models.Book{Title: "Dune", Price: 12, Quantity: 5})
	f.addToCart(t, book, 1)
	res, err := f.svc.Checkout(context.Background(), f.principal(), "COD")
	require.NoError(t, err)

	_, err = f.svc.UpdateOrderStatus(context.Background(), res.OrderID, "lost")
	var ve *services.ValidationError
	require.ErrorAs(t, err, &ve)

	_, err = f.svc.UpdateOrderStatus(context.Background(), res.OrderID, "delivered")
	var ce *services.ConflictError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, services.ConflictInvalidTransition, ce.Code)

	out, err := f.svc.UpdateOrderStatus(context.Background(), res.OrderID, "shipping")
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusShipping, out.Status)
	assert.Equal(t, events.OrderStatusChanged, f.rec.last().Type)

	// Même statut : aucun changement, aucun événement
	n := len(f.rec.events)
	_, err = f.svc.UpdateOrderStatus(context.Background(), res.OrderID, "Shipping")
	require.NoError(t, err)
	assert.Len(t, f.rec.events, n)

	out, err = f.svc.UpdateOrderStatus(context.Background(), res.OrderID, "delivered")
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusDelivered, out.Status)
	_, payments := f.order(t, res.OrderID)
	assert.Equal(t, models.PaymentStatusCompleted, payments[0].Status, "COD encaissé à la livraison")

	_, err = f.svc.UpdateOrderStatus(context.Background(), res.OrderID, "refunded")
	require.NoError(t, err)
	assert.Equal(t, 4, f.stock(t, book.ID), "un remboursement après livraison ne remet pas en stock")
}

func TestAdminCannotConfirmAwaitingPayment(t *testing.T) {
	f := newFixture(t)
	book := f.store.PutBook(models.Book{Title: "Dune", Price: 12, Quantity: 5})
	f.addToCart(t, book, 1)
	res, err := f.svc.Checkout(context.Background(), f.principal(), "Banking")
	require.NoError(t, err)

	for _, status := range []string{"confirmed", "shipping", "refunded"} {
		_, err = f.svc.UpdateOrderStatus(context.Background(), res.OrderID, status)
		var ce *services.ConflictError
		require.ErrorAs(t, err, &ce, status)
	}
	assert.Equal(t, 5, f.stock(t, book.ID))
}

func TestReadProjections(t *testing.T) {
	f := newFixture(t)
	a := f.store.PutBook(models.Book{Title: "A", Price: 10, Quantity: 20})
	b := f.store.PutBook(models.Book{Title: "B", Price: 20, Quantity: 20})

	f.addToCart(t, a, 2)
	f.addToCart(t, b, 1)
	first, err := f.svc.Checkout(context.Background(), f.principal(), "COD")
	require.NoError(t, err)
	f.addToCart(t, a, 5)
	second, err := f.svc.Checkout(context.Background(), f.principal(), "Banking")
	require.NoError(t, err)
	_, err = f.svc.CancelOrder(context.Background(), second.OrderID)
	require.NoError(t, err)

	orders, err := f.svc.UserOrders(context.Background(), f.principal())
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, second.OrderID, orders[0].ID, "les plus récentes d'abord")
	assert.Equal(t, 2, orders[1].ItemCount)
	assert.Equal(t, 3, orders[1].TotalItems)
	require.NotNil(t, orders[0].LatestPayment)
	assert.Equal(t, models.PaymentStatusCancelled, orders[0].LatestPayment.Status)

	page, err := f.svc.AdminOrders(context.Background(), repository.Page{Number: 1, Size: 1})
	require.NoError(t, err)
	assert.EqualValues(t, 2, page.TotalCount)
	assert.Equal(t, 2, page.TotalPages)
	assert.Len(t, page.Items, 1)

	payments, err := f.svc.AdminPayments(context.Background(), repository.PaymentFilter{Method: "cod"}, repository.Page{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, payments.TotalCount)
	_, err = f.svc.AdminPayments(context.Background(), repository.PaymentFilter{Status: "lost"}, repository.Page{})
	var ve *services.ValidationError
	assert.ErrorAs(t, err, &ve)

	stats, err := f.svc.Stats(context.Background(), 5)
	require.NoError(t, err)
	assert.EqualValues(t, 2, stats.TotalOrders)
	assert.EqualValues(t, 1, stats.ByStatus["confirmed"])
	assert.EqualValues(t, 1, stats.ByStatus["cancelled"])
	require.Len(t, stats.TopSellers, 2)
	assert.Equal(t, a.ID, stats.TopSellers[0].BookID)
	assert.EqualValues(t, 2, stats.TopSellers[0].TotalSold)

	_, err = f.svc.GetOrder(context.Background(), 9999)
	var nf *services.NotFoundError
	assert.ErrorAs(t, err, &nf)
	assert.Equal(t, 40.0, first.TotalPrice)
}

// callLog enregistre l'ordre des appels au dépôt pendant une transaction
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, name)
}

func (l *callLog) index(name string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, c := range l.calls {
		if c == name {
			return i
		}
	}
	return -1
}

type tracingTx struct {
	repository.Tx
	log *callLog
}

func (t tracingTx) FindCartByUser(userID uint) (*models.Cart, error) {
	t.log.add("FindCartByUser")
	return t.Tx.FindCartByUser(userID)
}

func (t tracingTx) LockCartByUser(userID uint) (*models.Cart, error) {
	t.log.add("LockCartByUser")
	return t.Tx.LockCartByUser(userID)
}

func (t tracingTx) CartItems(cartID uint) ([]models.CartItem, error) {
	t.log.add("CartItems")
	return t.Tx.CartItems(cartID)
}

func (t tracingTx) LockBooks(ids []uint) (map[uint]*models.Book, error) {
	t.log.add("LockBooks")
	return t.Tx.LockBooks(ids)
}

type tracingStore struct {
	repository.Store
	log *callLog
}

func (s tracingStore) WithinTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	return s.Store.WithinTx(ctx, func(tx repository.Tx) error {
		return fn(tracingTx{Tx: tx, log: s.log})
	})
}

func TestCheckoutLocksCartBeforeReadingItems(t *testing.T) {
	f := newFixture(t)
	book := f.store.PutBook(models.Book{Title: "Dune", Price: 12, Quantity: 5})
	f.addToCart(t, book, 2)

	calls := &callLog{}
	svc := NewService(tracingStore{Store: f.store, log: calls}, fakeQR{}, f.rec)
	_, err := svc.Checkout(context.Background(), f.principal(), "COD")
	require.NoError(t, err)

	assert.Equal(t, -1, calls.index("FindCartByUser"), "le panier est lu sous verrou")
	lock, items, books := calls.index("LockCartByUser"), calls.index("CartItems"), calls.index("LockBooks")
	require.GreaterOrEqual(t, lock, 0)
	assert.Less(t, lock, items, "lignes relues après le verrou panier")
	assert.Less(t, items, books)
}

func TestConcurrentCheckoutsOfSameCart(t *testing.T) {
	f := newFixture(t)
	book := f.store.PutBook(models.Book{Title: "Dune", Price: 12, Quantity: 10})
	f.addToCart(t, book, 2)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Checkout(context.Background(), f.principal(), "COD")
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
		}()
	}
	wg.Wait()

	ok, empty := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, services.ErrEmptyCart):
			empty++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, empty)
	assert.EqualValues(t, 1, f.orderCount(t))
	assert.Equal(t, 8, f.stock(t, book.ID))
}

// mapCache : cache JSON en mémoire, mêmes sémantiques que le wrapper Redis
type mapCache struct {
	mu      sync.Mutex
	entries map[string][]byte
}

func newMapCache() *mapCache { return &mapCache{entries: map[string][]byte{}} }

func (c *mapCache) SetJSON(_ context.Context, key string, value interface{}, _ time.Duration) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = b
	return nil
}

func (c *mapCache) GetJSON(_ context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	b, ok := c.entries[key]
	c.mu.Unlock()
	if !ok {
		return errors.New("cache miss")
	}
	return json.Unmarshal(b, dest)
}

func (c *mapCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.entries, k)
	}
	return nil
}

func TestCheckoutInvalidatesCachedCart(t *testing.T) {
	f := newFixture(t)
	book := f.store.PutBook(models.Book{Title: "Dune", Price: 12, Quantity: 5})
	views := newMapCache()
	carts := cartsvc.NewService(f.store, views)
	f.svc.WithCartCache(views)

	_, err := carts.Add(context.Background(), f.principal(), book.ID, 2)
	require.NoError(t, err)
	before, err := carts.Get(context.Background(), f.principal())
	require.NoError(t, err)
	require.Len(t, before.Items, 1)

	_, err = f.svc.Checkout(context.Background(), f.principal(), "COD")
	require.NoError(t, err)

	// Aucun événement asynchrone n'est attendu : la purge suit le commit
	var stale cartsvc.View
	assert.Error(t, views.GetJSON(context.Background(), cache.CartKey(f.user.ID), &stale))
	after, err := carts.Get(context.Background(), f.principal())
	require.NoError(t, err)
	assert.Empty(t, after.Items)
	assert.Zero(t, after.TotalPrice)
}

func TestStatsRevenueExcludesRefunds(t *testing.T) {
	f := newFixture(t)
	book := f.store.PutBook(models.Book{Title: "Dune", Price: 12, Quantity: 10})

	f.addToCart(t, book, 2)
	refunded, err := f.svc.Checkout(context.Background(), f.principal(), "Banking")
	require.NoError(t, err)
	_, err = f.svc.ConfirmPayment(context.Background(), ConfirmInput{PaymentID: refunded.PaymentID, IsSuccess: true})
	require.NoError(t, err)
	_, err = f.svc.UpdateOrderStatus(context.Background(), refunded.OrderID, "refunded")
	require.NoError(t, err)

	f.addToCart(t, book, 1)
	kept, err := f.svc.Checkout(context.Background(), f.principal(), "COD")
	require.NoError(t, err)

	f.addToCart(t, book, 3)
	cancelled, err := f.svc.Checkout(context.Background(), f.principal(), "Banking")
	require.NoError(t, err)
	_, err = f.svc.CancelOrder(context.Background(), cancelled.OrderID)
	require.NoError(t, err)

	stats, err := f.svc.Stats(context.Background(), 5)
	require.NoError(t, err)
	assert.EqualValues(t, 3, stats.TotalOrders)
	assert.EqualValues(t, 1, stats.ByStatus["refunded"])
	assert.EqualValues(t, 1, stats.ByStatus["confirmed"])
	assert.EqualValues(t, 1, stats.ByStatus["cancelled"])
	assert.InDelta(t, kept.TotalPrice, stats.TotalRevenue, 0.001, "seules les commandes acquises comptent")
}

package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"bookstore_back_end/internal/models"
)

// MemoryStore garde tout en mémoire. Chaque WithinTx travaille sur une copie
// de l'état, remplacée seulement si fn réussit ; les transactions sont sérialisées.
type MemoryStore struct {
	mu    sync.RWMutex
	state *memState
}

type memState struct {
	seq        uint
	users      map[uint]models.User
	books      map[uint]models.Book
	carts      map[uint]models.Cart
	cartItems  map[uint]models.CartItem
	orders     map[uint]models.Order
	details    map[uint]models.OrderDetail
	payments   map[uint]models.Payment
	promotions map[uint]models.Promotion
	promoItems map[uint]models.PromotionItem
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: &memState{
		users:      map[uint]models.User{},
		books:      map[uint]models.Book{},
		carts:      map[uint]models.Cart{},
		cartItems:  map[uint]models.CartItem{},
		orders:     map[uint]models.Order{},
		details:    map[uint]models.OrderDetail{},
		payments:   map[uint]models.Payment{},
		promotions: map[uint]models.Promotion{},
		promoItems: map[uint]models.PromotionItem{},
	}}
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s *memState) clone() *memState {
	return &memState{
		seq:        s.seq,
		users:      cloneMap(s.users),
		books:      cloneMap(s.books),
		carts:      cloneMap(s.carts),
		cartItems:  cloneMap(s.cartItems),
		orders:     cloneMap(s.orders),
		details:    cloneMap(s.details),
		payments:   cloneMap(s.payments),
		promotions: cloneMap(s.promotions),
		promoItems: cloneMap(s.promoItems),
	}
}

func (s *memState) next() uint {
	s.seq++
	return s.seq
}

// claim garde un id imposé, ou en attribue un ; la séquence ne repasse jamais dessous
func (s *memState) claim(id uint) uint {
	if id == 0 {
		return s.next()
	}
	if id > s.seq {
		s.seq = id
	}
	return id
}

func (s *MemoryStore) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.state.clone()
	if err := fn(&memTx{s: work}); err != nil {
		return err
	}
	s.state = work
	return nil
}

func (s *MemoryStore) View(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(&memTx{s: s.state.clone()})
}

// Helpers d'amorçage (tests, mode démo)

func (s *MemoryStore) PutUser(u models.User) models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u.ID = s.state.claim(u.ID)
	s.state.users[u.ID] = u
	return u
}

func (s *MemoryStore) PutBook(b models.Book) models.Book {
	s.mu.Lock()
	defer s.mu.Unlock()
	b.ID = s.state.claim(b.ID)
	s.state.books[b.ID] = b
	return b
}

func (s *MemoryStore) PutPromotion(p models.Promotion) models.Promotion {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = s.state.claim(p.ID)
	s.state.promotions[p.ID] = p
	return p
}

// Book retourne l'état validé d'un livre
func (s *MemoryStore) Book(id uint) (models.Book, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.state.books[id]
	return b, ok
}

type memTx struct {
	s *memState
}

func (t *memTx) FindUser(id uint) (*models.User, error) {
	u, ok := t.s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (t *memTx) FindUserByEmail(email string) (*models.User, error) {
	for _, u := range t.s.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (t *memTx) CreateUser(user *models.User) error {
	if _, err := t.FindUserByEmail(user.Email); err == nil {
		return ErrDuplicate
	}
	user.ID = t.s.next()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	t.s.users[user.ID] = *user
	return nil
}

func (t *memTx) FindBooks(ids []uint) (map[uint]models.Book, error) {
	out := make(map[uint]models.Book, len(ids))
	for _, id := range ids {
		if b, ok := t.s.books[id]; ok {
			out[id] = b
		}
	}
	return out, nil
}

func (t *memTx) LockBooks(ids []uint) (map[uint]*models.Book, error) {
	out := make(map[uint]*models.Book, len(ids))
	for _, id := range ids {
		if b, ok := t.s.books[id]; ok {
			book := b
			out[id] = &book
		}
	}
	return out, nil
}

func (t *memTx) UpdateBookQuantity(id uint, quantity int) error {
	b, ok := t.s.books[id]
	if !ok {
		return ErrNotFound
	}
	b.Quantity = quantity
	t.s.books[id] = b
	return nil
}

func (t *memTx) FindCartByUser(userID uint) (*models.Cart, error) {
	for _, c := range t.s.carts {
		if c.UserID == userID {
			cart := c
			return &cart, nil
		}
	}
	return nil, ErrNotFound
}

// LockCartByUser : les transactions mémoire sont déjà sérialisées
func (t *memTx) LockCartByUser(userID uint) (*models.Cart, error) {
	return t.FindCartByUser(userID)
}

func (t *memTx) CreateCart(cart *models.Cart) error {
	if _, err := t.FindCartByUser(cart.UserID); err == nil {
		return ErrDuplicate
	}
	cart.ID = t.s.next()
	if cart.CreatedAt.IsZero() {
		cart.CreatedAt = time.Now()
	}
	t.s.carts[cart.ID] = *cart
	return nil
}

func (t *memTx) CartItems(cartID uint) ([]models.CartItem, error) {
	var items []models.CartItem
	for _, it := range t.s.cartItems {
		if it.CartID == cartID {
			items = append(items, it)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, nil
}

func (t *memTx) FindCartItem(cartID, bookID uint) (*models.CartItem, error) {
	for _, it := range t.s.cartItems {
		if it.CartID == cartID && it.BookID == bookID {
			item := it
			return &item, nil
		}
	}
	return nil, ErrNotFound
}

func (t *memTx) FindCartItemByID(id uint) (*models.CartItem, error) {
	it, ok := t.s.cartItems[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &it, nil
}

func (t *memTx) SaveCartItem(item *models.CartItem) error {
	if item.ID == 0 {
		item.ID = t.s.next()
	}
	t.s.cartItems[item.ID] = *item
	return nil
}

func (t *memTx) DeleteCartItem(id uint) error {
	if _, ok := t.s.cartItems[id]; !ok {
		return ErrNotFound
	}
	delete(t.s.cartItems, id)
	return nil
}

func (t *memTx) DeleteCartItems(cartID uint) error {
	for id, it := range t.s.cartItems {
		if it.CartID == cartID {
			delete(t.s.cartItems, id)
		}
	}
	return nil
}

func (t *memTx) CreateOrder(order *models.Order, details []models.OrderDetail) error {
	order.ID = t.s.next()
	now := time.Now()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	if order.UpdatedAt.IsZero() {
		order.UpdatedAt = order.CreatedAt
	}
	t.s.orders[order.ID] = *order
	for i := range details {
		details[i].ID = t.s.next()
		details[i].OrderID = order.ID
		t.s.details[details[i].ID] = details[i]
	}
	return nil
}

func (t *memTx) FindOrder(id uint) (*models.Order, error) {
	o, ok := t.s.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &o, nil
}

func (t *memTx) LockOrder(id uint) (*models.Order, error) {
	return t.FindOrder(id)
}

func (t *memTx) SaveOrder(order *models.Order) error {
	if _, ok := t.s.orders[order.ID]; !ok {
		return ErrNotFound
	}
	t.s.orders[order.ID] = *order
	return nil
}

func idSet(ids []uint) map[uint]bool {
	set := make(map[uint]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

func (t *memTx) OrderDetails(orderIDs ...uint) ([]models.OrderDetail, error) {
	want := idSet(orderIDs)
	var out []models.OrderDetail
	for _, d := range t.s.details {
		if want[d.OrderID] {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func newestFirst(orders []models.Order) {
	sort.Slice(orders, func(i, j int) bool {
		if orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].ID > orders[j].ID
		}
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
}

func (t *memTx) OrdersByUser(userID uint) ([]models.Order, error) {
	var out []models.Order
	for _, o := range t.s.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	newestFirst(out)
	return out, nil
}

func paginate[T any](all []T, page Page) []T {
	page = page.Normalize()
	start := page.Offset()
	if start >= len(all) {
		return []T{}
	}
	end := start + page.Size
	if end > len(all) {
		end = len(all)
	}
	return all[start:end]
}

func (t *memTx) ListOrders(page Page) ([]models.Order, int64, error) {
	all := make([]models.Order, 0, len(t.s.orders))
	for _, o := range t.s.orders {
		all = append(all, o)
	}
	newestFirst(all)
	return paginate(all, page), int64(len(all)), nil
}

func (t *memTx) CreatePayment(payment *models.Payment) error {
	payment.ID = t.s.next()
	if payment.CreatedAt.IsZero() {
		payment.CreatedAt = time.Now()
	}
	if payment.UpdatedAt.IsZero() {
		payment.UpdatedAt = payment.CreatedAt
	}
	t.s.payments[payment.ID] = *payment
	return nil
}

func (t *memTx) FindPayment(id uint) (*models.Payment, error) {
	p, ok := t.s.payments[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (t *memTx) LockPayment(id uint) (*models.Payment, error) {
	return t.FindPayment(id)
}

func (t *memTx) SavePayment(payment *models.Payment) error {
	if _, ok := t.s.payments[payment.ID]; !ok {
		return ErrNotFound
	}
	t.s.payments[payment.ID] = *payment
	return nil
}

func (t *memTx) PaymentsByOrder(orderIDs ...uint) ([]models.Payment, error) {
	want := idSet(orderIDs)
	var out []models.Payment
	for _, p := range t.s.payments {
		if want[p.OrderID] {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *memTx) ListPayments(filter PaymentFilter, page Page) ([]models.Payment, int64, error) {
	var all []models.Payment
	for _, p := range t.s.payments {
		if filter.Status != "" && !strings.EqualFold(string(p.Status), filter.Status) {
			continue
		}
		if filter.Method != "" && !strings.EqualFold(string(p.Method), filter.Method) {
			continue
		}
		all = append(all, p)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	return paginate(all, page), int64(len(all)), nil
}

func (t *memTx) ActivePromotions(at time.Time) ([]models.Promotion, error) {
	var out []models.Promotion
	for _, p := range t.s.promotions {
		if p.ActiveAt(at) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *memTx) FindPromotion(id uint) (*models.Promotion, error) {
	p, ok := t.s.promotions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (t *memTx) PromotionItems(promotionIDs ...uint) ([]models.PromotionItem, error) {
	want := idSet(promotionIDs)
	var out []models.PromotionItem
	for _, it := range t.s.promoItems {
		if want[it.PromotionID] {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *memTx) CreatePromotionItem(item *models.PromotionItem) error {
	for _, it := range t.s.promoItems {
		if it.PromotionID == item.PromotionID && it.BookID == item.BookID {
			return ErrDuplicate
		}
	}
	item.ID = t.s.next()
	t.s.promoItems[item.ID] = *item
	return nil
}

func (t *memTx) OrderStats(top int) (*models.OrderStats, error) {
	stats := &models.OrderStats{ByStatus: map[string]int64{}}
	excluded := map[uint]bool{}
	for _, o := range t.s.orders {
		stats.ByStatus[string(o.Status)]++
		stats.TotalOrders++
		if o.Status.CountsAsRevenue() {
			stats.TotalRevenue += o.TotalPrice
		}
		if o.Status == models.OrderStatusCancelled || o.Status == models.OrderStatusRefunded {
			excluded[o.ID] = true
		}
	}
	stats.TotalRevenue = models.RoundMoney(stats.TotalRevenue)

	sales := map[uint]*models.BookSales{}
	for _, d := range t.s.details {
		if excluded[d.OrderID] {
			continue
		}
		s, ok := sales[d.BookID]
		if !ok {
			s = &models.BookSales{BookID: d.BookID, Title: t.s.books[d.BookID].Title}
			sales[d.BookID] = s
		}
		s.TotalSold += int64(d.Quantity)
		s.Revenue = models.RoundMoney(s.Revenue + d.Subtotal())
	}
	for _, s := range sales {
		stats.TopSellers = append(stats.TopSellers, *s)
	}
	sort.Slice(stats.TopSellers, func(i, j int) bool {
		if stats.TopSellers[i].TotalSold == stats.TopSellers[j].TotalSold {
			return stats.TopSellers[i].BookID < stats.TopSellers[j].BookID
		}
		return stats.TopSellers[i].TotalSold > stats.TopSellers[j].TotalSold
	})
	if top > 0 && len(stats.TopSellers) > top {
		stats.TopSellers = stats.TopSellers[:top]
	}
	return stats, nil
}

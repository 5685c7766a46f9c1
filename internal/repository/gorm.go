package repository

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"bookstore_back_end/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore : implémentation PostgreSQL via GORM
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTx{db: tx})
	})
}

func (s *GormStore) View(ctx context.Context, fn func(tx Tx) error) error {
	return fn(&gormTx{db: s.db.WithContext(ctx)})
}

type gormTx struct {
	db *gorm.DB
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	default:
		return err
	}
}

func (t *gormTx) locked() *gorm.DB {
	return t.db.Clauses(clause.Locking{Strength: "UPDATE"})
}

func (t *gormTx) FindUser(id uint) (*models.User, error) {
	var user models.User
	if err := t.db.First(&user, id).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (t *gormTx) FindUserByEmail(email string) (*models.User, error) {
	var user models.User
	if err := t.db.Where("LOWER(email) = LOWER(?)", email).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (t *gormTx) CreateUser(user *models.User) error {
	return translate(t.db.Create(user).Error)
}

func (t *gormTx) FindBooks(ids []uint) (map[uint]models.Book, error) {
	out := make(map[uint]models.Book, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var books []models.Book
	if err := t.db.Where("id IN ?", ids).Find(&books).Error; err != nil {
		return nil, err
	}
	for _, b := range books {
		out[b.ID] = b
	}
	return out, nil
}

func (t *gormTx) LockBooks(ids []uint) (map[uint]*models.Book, error) {
	sorted := append([]uint(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	out := make(map[uint]*models.Book, len(sorted))
	if len(sorted) == 0 {
		return out, nil
	}
	// ORDER BY id : deux transactions concurrentes prennent les verrous dans le même ordre
	var books []models.Book
	if err := t.locked().Where("id IN ?", sorted).Order("id ASC").Find(&books).Error; err != nil {
		return nil, err
	}
	for i := range books {
		out[books[i].ID] = &books[i]
	}
	return out, nil
}

func (t *gormTx) UpdateBookQuantity(id uint, quantity int) error {
	res := t.db.Model(&models.Book{}).Where("id = ?", id).Update("quantity", quantity)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *gormTx) FindCartByUser(userID uint) (*models.Cart, error) {
	var cart models.Cart
	if err := t.db.Where("user_id = ?", userID).First(&cart).Error; err != nil {
		return nil, translate(err)
	}
	return &cart, nil
}

func (t *gormTx) LockCartByUser(userID uint) (*models.Cart, error) {
	var cart models.Cart
	if err := t.locked().Where("user_id = ?", userID).First(&cart).Error; err != nil {
		return nil, translate(err)
	}
	return &cart, nil
}

func (t *gormTx) CreateCart(cart *models.Cart) error {
	return translate(t.db.Create(cart).Error)
}

func (t *gormTx) CartItems(cartID uint) ([]models.CartItem, error) {
	var items []models.CartItem
	err := t.db.Where("cart_id = ?", cartID).Order("id ASC").Find(&items).Error
	return items, err
}

func (t *gormTx) FindCartItem(cartID, bookID uint) (*models.CartItem, error) {
	var item models.CartItem
	if err := t.db.Where("cart_id = ? AND book_id = ?", cartID, bookID).First(&item).Error; err != nil {
		return nil, translate(err)
	}
	return &item, nil
}

func (t *gormTx) FindCartItemByID(id uint) (*models.CartItem, error) {
	var item models.CartItem
	if err := t.db.First(&item, id).Error; err != nil {
		return nil, translate(err)
	}
	return &item, nil
}

func (t *gormTx) SaveCartItem(item *models.CartItem) error {
	return t.db.Save(item).Error
}

func (t *gormTx) DeleteCartItem(id uint) error {
	res := t.db.Delete(&models.CartItem{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *gormTx) DeleteCartItems(cartID uint) error {
	return t.db.Where("cart_id = ?", cartID).Delete(&models.CartItem{}).Error
}

func (t *gormTx) CreateOrder(order *models.Order, details []models.OrderDetail) error {
	if err := t.db.Create(order).Error; err != nil {
		return err
	}
	if len(details) == 0 {
		return nil
	}
	for i := range details {
		details[i].OrderID = order.ID
	}
	return t.db.Create(&details).Error
}

func (t *gormTx) FindOrder(id uint) (*models.Order, error) {
	var order models.Order
	if err := t.db.First(&order, id).Error; err != nil {
		return nil, translate(err)
	}
	return &order, nil
}

func (t *gormTx) LockOrder(id uint) (*models.Order, error) {
	var order models.Order
	if err := t.locked().First(&order, id).Error; err != nil {
		return nil, translate(err)
	}
	return &order, nil
}

func (t *gormTx) SaveOrder(order *models.Order) error {
	return t.db.Save(order).Error
}

func (t *gormTx) OrderDetails(orderIDs ...uint) ([]models.OrderDetail, error) {
	var details []models.OrderDetail
	if len(orderIDs) == 0 {
		return details, nil
	}
	err := t.db.Where("order_id IN ?", orderIDs).Order("id ASC").Find(&details).Error
	return details, err
}

func (t *gormTx) OrdersByUser(userID uint) ([]models.Order, error) {
	var orders []models.Order
	err := t.db.Where("user_id = ?", userID).Order("created_at DESC, id DESC").Find(&orders).Error
	return orders, err
}

func (t *gormTx) ListOrders(page Page) ([]models.Order, int64, error) {
	page = page.Normalize()
	var total int64
	if err := t.db.Model(&models.Order{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var orders []models.Order
	err := t.db.Order("created_at DESC, id DESC").Offset(page.Offset()).Limit(page.Size).Find(&orders).Error
	return orders, total, err
}

func (t *gormTx) CreatePayment(payment *models.Payment) error {
	return t.db.Create(payment).Error
}

func (t *gormTx) FindPayment(id uint) (*models.Payment, error) {
	var payment models.Payment
	if err := t.db.First(&payment, id).Error; err != nil {
		return nil, translate(err)
	}
	return &payment, nil
}

func (t *gormTx) LockPayment(id uint) (*models.Payment, error) {
	var payment models.Payment
	if err := t.locked().First(&payment, id).Error; err != nil {
		return nil, translate(err)
	}
	return &payment, nil
}

func (t *gormTx) SavePayment(payment *models.Payment) error {
	return t.db.Save(payment).Error
}

func (t *gormTx) PaymentsByOrder(orderIDs ...uint) ([]models.Payment, error) {
	var payments []models.Payment
	if len(orderIDs) == 0 {
		return payments, nil
	}
	err := t.db.Where("order_id IN ?", orderIDs).Order("created_at ASC, id ASC").Find(&payments).Error
	return payments, err
}

func (t *gormTx) ListPayments(filter PaymentFilter, page Page) ([]models.Payment, int64, error) {
	page = page.Normalize()
	q := t.db.Model(&models.Payment{})
	if filter.Status != "" {
		q = q.Where("LOWER(payment_status) = ?", strings.ToLower(filter.Status))
	}
	if filter.Method != "" {
		q = q.Where("LOWER(payment_method) = ?", strings.ToLower(filter.Method))
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var payments []models.Payment
	err := q.Order("created_at DESC, id DESC").Offset(page.Offset()).Limit(page.Size).Find(&payments).Error
	return payments, total, err
}

func (t *gormTx) ActivePromotions(at time.Time) ([]models.Promotion, error) {
	var promos []models.Promotion
	err := t.db.Where("is_active = ? AND start_date <= ? AND end_date >= ?", true, at, at).
		Order("id ASC").Find(&promos).Error
	return promos, err
}

func (t *gormTx) FindPromotion(id uint) (*models.Promotion, error) {
	var promo models.Promotion
	if err := t.db.First(&promo, id).Error; err != nil {
		return nil, translate(err)
	}
	return &promo, nil
}

func (t *gormTx) PromotionItems(promotionIDs ...uint) ([]models.PromotionItem, error) {
	var items []models.PromotionItem
	if len(promotionIDs) == 0 {
		return items, nil
	}
	err := t.db.Where("promotion_id IN ?", promotionIDs).Order("id ASC").Find(&items).Error
	return items, err
}

func (t *gormTx) CreatePromotionItem(item *models.PromotionItem) error {
	return translate(t.db.Create(item).Error)
}

func (t *gormTx) OrderStats(top int) (*models.OrderStats, error) {
	stats := &models.OrderStats{ByStatus: map[string]int64{}}

	var rows []struct {
		Status string
		Count  int64
	}
	if err := t.db.Model(&models.Order{}).Select("status, COUNT(*) AS count").Group("status").Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, r := range rows {
		stats.ByStatus[r.Status] = r.Count
		stats.TotalOrders += r.Count
	}

	if err := t.db.Model(&models.Order{}).
		Where("status IN ?", models.RevenueStatuses()).
		Select("COALESCE(SUM(total_price), 0)").Scan(&stats.TotalRevenue).Error; err != nil {
		return nil, err
	}

	err := t.db.Table("order_details AS d").
		Select("d.book_id, b.title, SUM(d.quantity) AS total_sold, SUM(d.quantity * d.price) AS revenue").
		Joins("JOIN orders o ON o.id = d.order_id").
		Joins("JOIN books b ON b.id = d.book_id").
		Where("o.status NOT IN ?", []models.OrderStatus{models.OrderStatusCancelled, models.OrderStatusRefunded}).
		Group("d.book_id, b.title").
		Order("total_sold DESC").
		Limit(top).
		Scan(&stats.TopSellers).Error
	if err != nil {
		return nil, err
	}
	stats.TotalRevenue = models.RoundMoney(stats.TotalRevenue)
	return stats, nil
}

package ledger

import (
	"context"
	"fmt"
	"log"
	"time"

	"bookstore_back_end/internal/events"
	"bookstore_back_end/internal/models"

	"github.com/gocql/gocql"
)

// Tables attendues dans le keyspace (voir scripts/scylladb_init.cql)
const (
	insertMovementQuery = `INSERT INTO stock_movements (
			id, book_id, title, type, quantity, prev_stock, new_stock, order_id, reason, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	openAlertQuery   = `SELECT id FROM stock_alerts WHERE book_id = ? AND is_resolved = false LIMIT 1 ALLOW FILTERING`
	insertAlertQuery = `INSERT INTO stock_alerts (
			id, book_id, title, current_stock, threshold_stock, alert_type, is_resolved, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	movementsByBookQuery = `SELECT id, book_id, title, type, quantity, prev_stock, new_stock, order_id, reason, created_at
			FROM stock_movements WHERE book_id = ? LIMIT ? ALLOW FILTERING`
	movementsQuery = `SELECT id, book_id, title, type, quantity, prev_stock, new_stock, order_id, reason, created_at
			FROM stock_movements LIMIT ?`
	openAlertsQuery = `SELECT id, book_id, title, current_stock, threshold_stock, alert_type, is_resolved, created_at
			FROM stock_alerts WHERE is_resolved = false ALLOW FILTERING`
	resolveAlertQuery = `UPDATE stock_alerts SET is_resolved = true, resolved_at = ? WHERE id = ?`
)

// ScyllaLedger historise les mouvements de stock validés et lève les alertes de stock bas
type ScyllaLedger struct {
	session   *gocql.Session
	threshold int
}

func NewScyllaLedger(session *gocql.Session, threshold int) *ScyllaLedger {
	if threshold <= 0 {
		threshold = models.DefaultLowStockThreshold
	}
	return &ScyllaLedger{session: session, threshold: threshold}
}

func (l *ScyllaLedger) Name() string { return "scylla-ledger" }

// Handle est appelé par le dispatcher pour chaque événement portant des mouvements
func (l *ScyllaLedger) Handle(ctx context.Context, e events.Event) error {
	for _, m := range e.Movements {
		if err := l.Record(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

func (l *ScyllaLedger) Record(ctx context.Context, m models.StockMovement) error {
	m = stamp(m, time.Now())
	if err := l.session.Query(insertMovementQuery,
		m.ID, int64(m.BookID), m.Title, m.Type, m.Quantity,
		m.PrevStock, m.NewStock, int64(m.OrderID), m.Reason, m.CreatedAt,
	).WithContext(ctx).Exec(); err != nil {
		return fmt.Errorf("enregistrement mouvement stock: %w", err)
	}

	alert := AlertFor(m, l.threshold)
	if alert == nil {
		return nil
	}
	// Une seule alerte ouverte par livre
	var existing gocql.UUID
	if err := l.session.Query(openAlertQuery, int64(m.BookID)).WithContext(ctx).Scan(&existing); err == nil {
		return nil
	}
	if err := l.session.Query(insertAlertQuery,
		alert.ID, int64(alert.BookID), alert.Title, alert.CurrentStock,
		alert.ThresholdStock, alert.AlertType, false, alert.CreatedAt,
	).WithContext(ctx).Exec(); err != nil {
		return fmt.Errorf("création alerte stock: %w", err)
	}
	log.Printf("⚠️ Alerte stock %s: %s (%d restants)", alert.AlertType, alert.Title, alert.CurrentStock)
	return nil
}

// Movements retourne les derniers mouvements, éventuellement filtrés par livre
func (l *ScyllaLedger) Movements(ctx context.Context, bookID uint, limit int) ([]models.StockMovement, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	var q *gocql.Query
	if bookID > 0 {
		q = l.session.Query(movementsByBookQuery, int64(bookID), limit)
	} else {
		q = l.session.Query(movementsQuery, limit)
	}
	iter := q.WithContext(ctx).Iter()

	var (
		out            []models.StockMovement
		m              models.StockMovement
		bookIDs, order int64
	)
	for iter.Scan(&m.ID, &bookIDs, &m.Title, &m.Type, &m.Quantity, &m.PrevStock, &m.NewStock, &order, &m.Reason, &m.CreatedAt) {
		m.BookID = uint(bookIDs)
		m.OrderID = uint(order)
		out = append(out, m)
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}
	return out, nil
}

func (l *ScyllaLedger) OpenAlerts(ctx context.Context) ([]models.StockAlert, error) {
	iter := l.session.Query(openAlertsQuery).WithContext(ctx).Iter()
	var (
		out    []models.StockAlert
		a      models.StockAlert
		bookID int64
	)
	for iter.Scan(&a.ID, &bookID, &a.Title, &a.CurrentStock, &a.ThresholdStock, &a.AlertType, &a.IsResolved, &a.CreatedAt) {
		a.BookID = uint(bookID)
		out = append(out, a)
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}
	return out, nil
}

func (l *ScyllaLedger) ResolveAlert(ctx context.Context, id gocql.UUID) error {
	return l.session.Query(resolveAlertQuery, time.Now(), id).WithContext(ctx).Exec()
}

func stamp(m models.StockMovement, now time.Time) models.StockMovement {
	if m.ID == (gocql.UUID{}) {
		m.ID = gocql.TimeUUID()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	return m
}

// AlertFor retourne l'alerte à lever après un mouvement, nil si le stock reste suffisant.
// Un réassort n'ouvre jamais d'alerte.
func AlertFor(m models.StockMovement, threshold int) *models.StockAlert {
	if m.Type != models.MovementSale {
		return nil
	}
	kind := models.AlertTypeFor(m.NewStock, threshold)
	if kind == "" {
		return nil
	}
	return &models.StockAlert{
		ID:             gocql.TimeUUID(),
		BookID:         m.BookID,
		Title:          m.Title,
		CurrentStock:   m.NewStock,
		ThresholdStock: threshold,
		AlertType:      kind,
		CreatedAt:      m.CreatedAt,
	}
}

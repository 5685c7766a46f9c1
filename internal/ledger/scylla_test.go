package ledger

import (
	"testing"
	"time"

	"bookstore_back_end/internal/models"

	"github.com/gocql/gocql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlertFor(t *testing.T) {
	sale := models.StockMovement{BookID: 1, Title: "Dune", Type: models.MovementSale, PrevStock: 12, NewStock: 8}

	alert := AlertFor(sale, 10)
	require.NotNil(t, alert)
	assert.Equal(t, models.AlertLowStock, alert.AlertType)
	assert.Equal(t, 8, alert.CurrentStock)
	assert.Equal(t, 10, alert.ThresholdStock)

	sale.NewStock = 0
	assert.Equal(t, models.AlertOutOfStock, AlertFor(sale, 10).AlertType)

	sale.NewStock = 11
	assert.Nil(t, AlertFor(sale, 10))

	restock := models.StockMovement{Type: models.MovementRestock, NewStock: 2}
	assert.Nil(t, AlertFor(restock, 10))
}

func TestStampKeepsExistingValues(t *testing.T) {
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	m := stamp(models.StockMovement{}, now)
	assert.NotEqual(t, gocql.UUID{}, m.ID)
	assert.Equal(t, now, m.CreatedAt)

	id := gocql.TimeUUID()
	earlier := now.Add(-time.Hour)
	m = stamp(models.StockMovement{ID: id, CreatedAt: earlier}, now)
	assert.Equal(t, id, m.ID)
	assert.Equal(t, earlier, m.CreatedAt)
}

func TestNewScyllaLedgerDefaultsThreshold(t *testing.T) {
	l := NewScyllaLedger(nil, 0)
	assert.Equal(t, models.DefaultLowStockThreshold, l.threshold)
}

package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/soundforms/atelier-backend/pkg/db/models"
	"github.com/soundforms/atelier-backend/pkg/enums"
	"github.com/soundforms/atelier-backend/pkg/pagination"
)

func setupOrdersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	orders := `
CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  order_number TEXT NOT NULL UNIQUE,
  external_ref TEXT,
  customer_name TEXT NOT NULL DEFAULT '',
  customer_email TEXT,
  shipping_address TEXT,
  country TEXT,
  status TEXT NOT NULL DEFAULT 'ordered',
  notes TEXT,
  tracking_number TEXT,
  total_amount TEXT NOT NULL DEFAULT '0',
  currency TEXT NOT NULL DEFAULT 'EUR',
  created_at DATETIME,
  updated_at DATETIME
);`
	items := `
CREATE TABLE IF NOT EXISTS order_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  order_number TEXT NOT NULL,
  serial_number TEXT NOT NULL UNIQUE,
  external_line_item_id TEXT,
  position INTEGER NOT NULL DEFAULT 0,
  type TEXT NOT NULL DEFAULT 'UNKNOWN',
  tuning TEXT NOT NULL DEFAULT '',
  frequency TEXT,
  color TEXT,
  specs TEXT,
  status TEXT NOT NULL DEFAULT 'ordered',
  archived INTEGER NOT NULL DEFAULT 0,
  archive_reason TEXT,
  unit_price TEXT NOT NULL DEFAULT '0',
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(orders).Error)
	require.NoError(t, db.Exec(items).Error)
	return db
}

func seedOrder(t *testing.T, db *gorm.DB, number string, status enums.OrderStatus, createdAt time.Time) *models.Order {
	t.Helper()
	order := &models.Order{
		ID:           uuid.New(),
		OrderNumber:  number,
		CustomerName: "Mara Voss",
		Status:       status,
		CreatedAt:    createdAt,
		UpdatedAt:    createdAt,
	}
	require.NoError(t, db.Create(order).Error)
	return order
}

func seedItem(t *testing.T, db *gorm.DB, order *models.Order, position int, status enums.ItemStatus) *models.OrderItem {
	t.Helper()
	item := &models.OrderItem{
		ID:           uuid.New(),
		OrderID:      order.ID,
		OrderNumber:  order.OrderNumber,
		SerialNumber: order.OrderNumber + "-" + string(rune('1'+position)),
		Position:     position,
		Type:         enums.InstrumentTypeInnato,
		Tuning:       "A4",
		Status:       status,
	}
	require.NoError(t, db.Create(item).Error)
	return item
}

func TestRepositoryFindByNumberNormalizesPrefix(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	seedOrder(t, db, "SW-2001", enums.OrderStatusOrdered, time.Now())

	found, err := repo.FindByNumber(context.Background(), "2001")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "SW-2001", found.OrderNumber)

	missing, err := repo.FindByNumber(context.Background(), "SW-9999")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestRepositoryListFiltersAndPaginates(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 4; i++ {
		number := "SW-200" + string(rune('1'+i))
		status := enums.OrderStatusOrdered
		if i == 3 {
			status = enums.OrderStatusBuilding
		}
		seedOrder(t, db, number, status, base.Add(time.Duration(i)*time.Minute))
	}

	building := enums.OrderStatusBuilding
	rows, err := repo.List(context.Background(), pagination.Params{Limit: 10}, ListFilters{Status: &building})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "SW-2004", rows[0].OrderNumber)

	rows, err = repo.List(context.Background(), pagination.Params{Limit: 2}, ListFilters{})
	require.NoError(t, err)
	require.Len(t, rows, 3, "list returns one extra row for cursor detection")
	assert.Equal(t, "SW-2004", rows[0].OrderNumber, "newest first")

	rows, err = repo.List(context.Background(), pagination.Params{Limit: 10}, ListFilters{Query: "sw-2002"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "SW-2002", rows[0].OrderNumber)
}

func TestRepositoryItemLifecycle(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	order := seedOrder(t, db, "SW-2001", enums.OrderStatusOrdered, time.Now())
	seedItem(t, db, order, 0, enums.ItemStatusOrdered)
	second := seedItem(t, db, order, 1, enums.ItemStatusBuilding)

	items, err := repo.FindItemsByOrder(context.Background(), order.ID)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, 0, items[0].Position)

	bySerial, err := repo.FindItemBySerial(context.Background(), second.SerialNumber)
	require.NoError(t, err)
	require.NotNil(t, bySerial)
	assert.Equal(t, second.ID, bySerial.ID)

	second.Archived = true
	require.NoError(t, repo.UpdateItem(context.Background(), second))

	visible, err := repo.ListItems(context.Background(), ItemFilters{})
	require.NoError(t, err)
	require.Len(t, visible, 1, "archived items drop out of the worksheet list")

	all, err := repo.ListItems(context.Background(), ItemFilters{IncludeArchived: true})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	require.NoError(t, repo.DeleteItemsByOrder(context.Background(), order.ID))
	items, err = repo.FindItemsByOrder(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestRepositoryDeleteOrder(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	order := seedOrder(t, db, "SW-2001", enums.OrderStatusOrdered, time.Now())

	require.NoError(t, repo.Delete(context.Background(), order.ID))
	found, err := repo.FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Nil(t, found)
}

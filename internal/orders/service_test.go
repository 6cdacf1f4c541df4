package orders

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/soundforms/atelier-backend/internal/registry"
	"github.com/soundforms/atelier-backend/pkg/db/models"
	"github.com/soundforms/atelier-backend/pkg/enums"
	pkgerrors "github.com/soundforms/atelier-backend/pkg/errors"
	"github.com/soundforms/atelier-backend/pkg/logger"
	"github.com/soundforms/atelier-backend/pkg/outbox"
	"github.com/soundforms/atelier-backend/pkg/pagination"
	"github.com/soundforms/atelier-backend/pkg/serial"
)

type memRepo struct {
	orders map[uuid.UUID]*models.Order
	items  map[uuid.UUID]*models.OrderItem
}

func newMemRepo() *memRepo {
	return &memRepo{
		orders: make(map[uuid.UUID]*models.Order),
		items:  make(map[uuid.UUID]*models.OrderItem),
	}
}

func (m *memRepo) WithTx(*gorm.DB) Repository { return m }

func (m *memRepo) FindByNumber(_ context.Context, orderNumber string) (*models.Order, error) {
	number := serial.Display(orderNumber)
	for _, order := range m.orders {
		if order.OrderNumber == number {
			copied := *order
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *memRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Order, error) {
	order, ok := m.orders[id]
	if !ok {
		return nil, nil
	}
	copied := *order
	return &copied, nil
}

func (m *memRepo) List(_ context.Context, _ pagination.Params, _ ListFilters) ([]models.Order, error) {
	out := make([]models.Order, 0, len(m.orders))
	for _, order := range m.orders {
		out = append(out, *order)
	}
	return out, nil
}

func (m *memRepo) Create(_ context.Context, order *models.Order) (*models.Order, error) {
	copied := *order
	copied.ID = uuid.New()
	m.orders[copied.ID] = &copied
	out := copied
	return &out, nil
}

func (m *memRepo) Update(_ context.Context, order *models.Order) error {
	copied := *order
	m.orders[copied.ID] = &copied
	return nil
}

func (m *memRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.orders, id)
	return nil
}

func (m *memRepo) FindItem(_ context.Context, id uuid.UUID) (*models.OrderItem, error) {
	item, ok := m.items[id]
	if !ok {
		return nil, nil
	}
	copied := *item
	return &copied, nil
}

func (m *memRepo) FindItemBySerial(_ context.Context, serialNumber string) (*models.OrderItem, error) {
	display := serial.Display(serialNumber)
	for _, item := range m.items {
		if item.SerialNumber == display {
			copied := *item
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *memRepo) FindItemsByOrder(_ context.Context, orderID uuid.UUID) ([]models.OrderItem, error) {
	var out []models.OrderItem
	for _, item := range m.items {
		if item.OrderID == orderID {
			out = append(out, *item)
		}
	}
	return out, nil
}

func (m *memRepo) ListItems(_ context.Context, filters ItemFilters) ([]models.OrderItem, error) {
	var out []models.OrderItem
	for _, item := range m.items {
		if !filters.IncludeArchived && item.Archived {
			continue
		}
		out = append(out, *item)
	}
	return out, nil
}

func (m *memRepo) CreateItem(_ context.Context, item *models.OrderItem) (*models.OrderItem, error) {
	copied := *item
	copied.ID = uuid.New()
	m.items[copied.ID] = &copied
	out := copied
	return &out, nil
}

func (m *memRepo) UpdateItem(_ context.Context, item *models.OrderItem) error {
	copied := *item
	m.items[copied.ID] = &copied
	return nil
}

func (m *memRepo) DeleteItem(_ context.Context, id uuid.UUID) error {
	delete(m.items, id)
	return nil
}

func (m *memRepo) DeleteItemsByOrder(_ context.Context, orderID uuid.UUID) error {
	for id, item := range m.items {
		if item.OrderID == orderID {
			delete(m.items, id)
		}
	}
	return nil
}

type stubTx struct{}

func (stubTx) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type recordingOutbox struct {
	events []outbox.DomainEvent
}

func (r *recordingOutbox) Emit(_ context.Context, _ *gorm.DB, event outbox.DomainEvent) error {
	r.events = append(r.events, event)
	return nil
}

func (r *recordingOutbox) typesSeen() []enums.OutboxEventType {
	out := make([]enums.OutboxEventType, 0, len(r.events))
	for _, event := range r.events {
		out = append(out, event.EventType)
	}
	return out
}

func newOrderService(t *testing.T) (Service, *memRepo, *recordingOutbox, registry.Service) {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	reg, err := registry.NewService(registry.NewMemStore(), logg)
	require.NoError(t, err)
	repo := newMemRepo()
	events := &recordingOutbox{}
	svc, err := NewService(repo, stubTx{}, events, reg, logg)
	require.NoError(t, err)
	return svc, repo, events, reg
}

func TestCreateOrderAssignsPositionalSerials(t *testing.T) {
	svc, _, _, _ := newOrderService(t)

	detail, err := svc.CreateOrder(context.Background(), CreateOrderInput{
		OrderNumber:  "3001",
		CustomerName: "Jonas Reh",
		Items: []CreateItemInput{
			{Type: enums.InstrumentTypeInnato, Tuning: "Am4"},
			{Type: enums.InstrumentTypeDrone, Tuning: "D3"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "SW-3001", detail.Order.OrderNumber)
	require.Len(t, detail.Items, 2)
	assert.Equal(t, "SW-3001-1", detail.Items[0].SerialNumber)
	assert.Equal(t, "SW-3001-2", detail.Items[1].SerialNumber)
	assert.Equal(t, "A4", detail.Items[0].Tuning)

	_, err = svc.CreateOrder(context.Background(), CreateOrderInput{
		OrderNumber:  "SW-3001",
		CustomerName: "Jonas Reh",
		Items:        []CreateItemInput{{Type: enums.InstrumentTypeInnato}},
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.As(err).Code())
}

func TestUpdateItemStatusBuildingFreezesIdentity(t *testing.T) {
	svc, repo, events, reg := newOrderService(t)

	order, err := repo.Create(context.Background(), &models.Order{OrderNumber: "SW-1542"})
	require.NoError(t, err)
	lineItemID := "li-1542-b"
	freq := enums.TuningFrequency432
	item, err := repo.CreateItem(context.Background(), &models.OrderItem{
		OrderID:            order.ID,
		OrderNumber:        "SW-1542",
		SerialNumber:       "SW-1542-2",
		ExternalLineItemID: &lineItemID,
		Type:               enums.InstrumentTypeInnato,
		Tuning:             "D4",
		Frequency:          &freq,
	})
	require.NoError(t, err)

	updated, err := svc.UpdateItemStatus(context.Background(), item.ID, enums.ItemStatusBuilding)
	require.NoError(t, err)
	assert.Equal(t, enums.ItemStatusBuilding, updated.Status)

	record, err := reg.Resolve(context.Background(), "SW-1542-2")
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, enums.InstrumentTypeInnato, record.Type)
	assert.Equal(t, "D4", record.Tuning)

	binding, err := reg.BindingFor(context.Background(), lineItemID)
	require.NoError(t, err)
	require.NotNil(t, binding)
	assert.Equal(t, "1542-2", binding.Serial)

	assert.Contains(t, events.typesSeen(), enums.EventSerialFrozen)
	assert.Contains(t, events.typesSeen(), enums.EventItemStateChanged)
}

func TestUpdateItemStatusBindConflictReportedNotRaised(t *testing.T) {
	svc, repo, events, reg := newOrderService(t)

	// The line item already belongs to a unit from an earlier life of this
	// order. The write-once table keeps that row; the freeze still succeeds.
	lineItemID := "li-1542-a"
	_, err := reg.Bind(context.Background(), lineItemID, "SW-9990-1")
	require.NoError(t, err)

	order, err := repo.Create(context.Background(), &models.Order{OrderNumber: "SW-1542"})
	require.NoError(t, err)
	item, err := repo.CreateItem(context.Background(), &models.OrderItem{
		OrderID:            order.ID,
		OrderNumber:        "SW-1542",
		SerialNumber:       "SW-1542-1",
		ExternalLineItemID: &lineItemID,
		Type:               enums.InstrumentTypeNatey,
		Tuning:             "E4",
	})
	require.NoError(t, err)

	updated, err := svc.UpdateItemStatus(context.Background(), item.ID, enums.ItemStatusBuilding)
	require.NoError(t, err)
	assert.Equal(t, enums.ItemStatusBuilding, updated.Status)

	binding, err := reg.BindingFor(context.Background(), lineItemID)
	require.NoError(t, err)
	require.NotNil(t, binding)
	assert.Equal(t, "9990-1", binding.Serial, "existing binding survives")

	assert.Contains(t, events.typesSeen(), enums.EventBindingConflict)
}

func TestUpdateItemStatusRefreezeEmitsNoSecondFrozenEvent(t *testing.T) {
	svc, repo, events, _ := newOrderService(t)

	order, err := repo.Create(context.Background(), &models.Order{OrderNumber: "SW-1542"})
	require.NoError(t, err)
	item, err := repo.CreateItem(context.Background(), &models.OrderItem{
		OrderID: order.ID, OrderNumber: "SW-1542", SerialNumber: "SW-1542-1",
		Type: enums.InstrumentTypeNatey, Tuning: "E4",
	})
	require.NoError(t, err)

	_, err = svc.UpdateItemStatus(context.Background(), item.ID, enums.ItemStatusBuilding)
	require.NoError(t, err)
	_, err = svc.UpdateItemStatus(context.Background(), item.ID, enums.ItemStatusOrdered)
	require.NoError(t, err)
	_, err = svc.UpdateItemStatus(context.Background(), item.ID, enums.ItemStatusBuilding)
	require.NoError(t, err)

	frozen := 0
	for _, eventType := range events.typesSeen() {
		if eventType == enums.EventSerialFrozen {
			frozen++
		}
	}
	assert.Equal(t, 1, frozen, "only the first freeze counts")
}

func TestItemReadsShowFrozenIdentity(t *testing.T) {
	svc, repo, _, reg := newOrderService(t)

	order, err := repo.Create(context.Background(), &models.Order{OrderNumber: "SW-1542"})
	require.NoError(t, err)
	item, err := repo.CreateItem(context.Background(), &models.OrderItem{
		OrderID:      order.ID,
		OrderNumber:  "SW-1542",
		SerialNumber: "SW-1542-1",
		Type:         enums.InstrumentTypeNatey,
		Tuning:       "E4",
	})
	require.NoError(t, err)

	freq := enums.TuningFrequency432
	color := "terracotta"
	_, created, err := reg.Freeze(context.Background(), registry.FreezeInput{
		Serial:    "SW-1542-1",
		Type:      enums.InstrumentTypeInnato,
		Tuning:    "Dm4",
		Frequency: &freq,
		Color:     &color,
	})
	require.NoError(t, err)
	require.True(t, created)

	got, err := svc.GetItem(context.Background(), item.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.InstrumentTypeInnato, got.Type)
	assert.Equal(t, "D4", got.Tuning)
	require.NotNil(t, got.Frequency)
	assert.Equal(t, enums.TuningFrequency432, *got.Frequency)
	require.NotNil(t, got.Color)
	assert.Equal(t, "terracotta", *got.Color)

	listed, err := svc.ListItems(context.Background(), ItemFilters{})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, enums.InstrumentTypeInnato, listed[0].Type)

	detail, err := svc.GetOrder(context.Background(), "SW-1542")
	require.NoError(t, err)
	require.Len(t, detail.Items, 1)
	assert.Equal(t, enums.InstrumentTypeInnato, detail.Items[0].Type)

	// The stored row keeps what was written; only the views change.
	stored, err := repo.FindItem(context.Background(), item.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.InstrumentTypeNatey, stored.Type)
	assert.Equal(t, "E4", stored.Tuning)
}

func TestUpdateItemStatusSameStatusIsNoop(t *testing.T) {
	svc, repo, events, _ := newOrderService(t)

	order, err := repo.Create(context.Background(), &models.Order{OrderNumber: "SW-2001"})
	require.NoError(t, err)
	item, err := repo.CreateItem(context.Background(), &models.OrderItem{
		OrderID: order.ID, OrderNumber: "SW-2001", SerialNumber: "SW-2001-1",
		Status: enums.ItemStatusOrdered,
	})
	require.NoError(t, err)

	_, err = svc.UpdateItemStatus(context.Background(), item.ID, enums.ItemStatusOrdered)
	require.NoError(t, err)
	assert.Empty(t, events.events)
}

func TestUpdateOrderStatusEmitsStateChange(t *testing.T) {
	svc, repo, events, _ := newOrderService(t)

	_, err := repo.Create(context.Background(), &models.Order{OrderNumber: "SW-2001", Status: enums.OrderStatusOrdered})
	require.NoError(t, err)

	updated, err := svc.UpdateOrderStatus(context.Background(), "SW-2001", enums.OrderStatusShipping)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusShipping, updated.Status)
	require.Len(t, events.events, 1)
	assert.Equal(t, enums.EventOrderStateChanged, events.events[0].EventType)

	_, err = svc.UpdateOrderStatus(context.Background(), "SW-2001", enums.OrderStatusShipping)
	require.NoError(t, err)
	assert.Len(t, events.events, 1, "repeat of the same status emits nothing")
}

func TestUpdateItemSettingsCanonicalizesTuning(t *testing.T) {
	svc, repo, _, _ := newOrderService(t)

	order, err := repo.Create(context.Background(), &models.Order{OrderNumber: "SW-2001"})
	require.NoError(t, err)
	item, err := repo.CreateItem(context.Background(), &models.OrderItem{
		OrderID: order.ID, OrderNumber: "SW-2001", SerialNumber: "SW-2001-1",
	})
	require.NoError(t, err)

	raw := "Gm3"
	updated, err := svc.UpdateItemSettings(context.Background(), item.ID, UpdateItemSettingsInput{Tuning: &raw})
	require.NoError(t, err)
	assert.Equal(t, "G3", updated.Tuning)

	bad := enums.TuningFrequency("415")
	_, err = svc.UpdateItemSettings(context.Background(), item.ID, UpdateItemSettingsInput{Frequency: &bad})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestArchiveItemIsIdempotent(t *testing.T) {
	svc, repo, _, _ := newOrderService(t)

	order, err := repo.Create(context.Background(), &models.Order{OrderNumber: "SW-2001"})
	require.NoError(t, err)
	item, err := repo.CreateItem(context.Background(), &models.OrderItem{
		OrderID: order.ID, OrderNumber: "SW-2001", SerialNumber: "SW-2001-1",
	})
	require.NoError(t, err)

	archived, err := svc.ArchiveItem(context.Background(), item.ID, "customer canceled unit")
	require.NoError(t, err)
	assert.True(t, archived.Archived)
	require.NotNil(t, archived.ArchiveReason)

	again, err := svc.ArchiveItem(context.Background(), item.ID, "different reason")
	require.NoError(t, err)
	assert.Equal(t, *archived.ArchiveReason, *again.ArchiveReason, "second archive keeps the original reason")
}

func TestDeleteOrderRemovesItemsAndAnnounces(t *testing.T) {
	svc, repo, events, _ := newOrderService(t)

	order, err := repo.Create(context.Background(), &models.Order{OrderNumber: "SW-2001"})
	require.NoError(t, err)
	_, err = repo.CreateItem(context.Background(), &models.OrderItem{
		OrderID: order.ID, OrderNumber: "SW-2001", SerialNumber: "SW-2001-1",
	})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteOrder(context.Background(), "SW-2001"))

	assert.Empty(t, repo.orders)
	assert.Empty(t, repo.items)
	require.Len(t, events.events, 1)
	assert.Equal(t, enums.EventOrderDeleted, events.events[0].EventType)
}

func TestGetOrderNotFound(t *testing.T) {
	svc, _, _, _ := newOrderService(t)

	_, err := svc.GetOrder(context.Background(), "SW-9999")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/soundforms/atelier-backend/pkg/enums"
)

// OrderReconciledEvent reports the outcome of one reconciliation pass.
type OrderReconciledEvent struct {
	OrderID     uuid.UUID        `json:"order_id"`
	OrderNumber string           `json:"order_number"`
	Action      enums.SyncAction `json:"action"`
	ItemCount   int              `json:"item_count"`
	ActiveCount int              `json:"active_count"`
	Partial     bool             `json:"partial"`
}

// OrderDeletedEvent is emitted when an order vanished upstream and was removed.
type OrderDeletedEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	DeletedAt   time.Time `json:"deleted_at"`
}

// OrderStateChangedEvent reports a status flag transition on an order.
type OrderStateChangedEvent struct {
	OrderID     uuid.UUID         `json:"order_id"`
	OrderNumber string            `json:"order_number"`
	From        enums.OrderStatus `json:"from"`
	To          enums.OrderStatus `json:"to"`
}

// ItemStateChangedEvent reports a status flag transition on one item.
type ItemStateChangedEvent struct {
	ItemID       uuid.UUID        `json:"item_id"`
	OrderNumber  string           `json:"order_number"`
	SerialNumber string           `json:"serial_number"`
	From         enums.ItemStatus `json:"from"`
	To           enums.ItemStatus `json:"to"`
}

// SerialFrozenEvent signals a new append-only registry row.
type SerialFrozenEvent struct {
	RecordID uuid.UUID            `json:"record_id"`
	Serial   string               `json:"serial"`
	Type     enums.InstrumentType `json:"type"`
	Tuning   string               `json:"tuning"`
	FrozenAt time.Time            `json:"frozen_at"`
}

// BindingConflictEvent reports a rejected write-once binding attempt.
type BindingConflictEvent struct {
	LineItemID     string `json:"line_item_id"`
	ExistingSerial string `json:"existing_serial"`
	RejectedSerial string `json:"rejected_serial"`
}

// TrackingRefreshedEvent reports tracking data pulled from the upstream feed.
type TrackingRefreshedEvent struct {
	OrderID        uuid.UUID `json:"order_id"`
	OrderNumber    string    `json:"order_number"`
	TrackingNumber string    `json:"tracking_number"`
}

package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/soundforms/atelier-backend/pkg/enums"
)

// Order is a production order. OrderNumber is the stable human-readable key
// ("SW-2001") and is immutable after creation; it is also the join key used to
// re-derive the corresponding upstream order during reconciliation.
type Order struct {
	ID              uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber     string            `gorm:"column:order_number;not null;uniqueIndex:ux_orders_order_number"`
	ExternalRef     *string           `gorm:"column:external_ref"`
	CustomerName    string            `gorm:"column:customer_name;not null;default:''"`
	CustomerEmail   *string           `gorm:"column:customer_email"`
	ShippingAddress *string           `gorm:"column:shipping_address"`
	Country         *string           `gorm:"column:country"`
	Status          enums.OrderStatus `gorm:"column:status;type:order_status;not null;default:'ordered'"`
	Notes           *string           `gorm:"column:notes"`
	TrackingNumber  *string           `gorm:"column:tracking_number"`
	TotalAmount     decimal.Decimal   `gorm:"column:total_amount;type:numeric(12,2);not null;default:0"`
	Currency        string            `gorm:"column:currency;not null;default:'EUR'"`
	Items           []OrderItem       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

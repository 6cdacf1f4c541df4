package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/soundforms/atelier-backend/pkg/enums"
	"github.com/soundforms/atelier-backend/pkg/types"
)

// OrderItem is one physical unit under production. The serial number is
// assigned positionally at creation ({orderNumber}-{position+1}) and is unique
// within its order; the item row itself may be deleted and recreated during
// clean-slate reconciliation, but the serial's identity survives in the registry.
type OrderItem struct {
	ID                 uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID            uuid.UUID             `gorm:"column:order_id;type:uuid;not null;index"`
	OrderNumber        string                `gorm:"column:order_number;not null"`
	SerialNumber       string                `gorm:"column:serial_number;not null;uniqueIndex:ux_order_items_serial"`
	ExternalLineItemID *string               `gorm:"column:external_line_item_id"`
	Position           int                   `gorm:"column:position;not null;default:0"`
	Type               enums.InstrumentType  `gorm:"column:type;not null;default:'UNKNOWN'"`
	Tuning             string                `gorm:"column:tuning;not null;default:''"`
	Frequency          *enums.TuningFrequency `gorm:"column:frequency"`
	Color              *string               `gorm:"column:color"`
	Specs              types.JSONMap         `gorm:"column:specs;type:jsonb;serializer:json"`
	Status             enums.ItemStatus      `gorm:"column:status;type:item_status;not null;default:'ordered'"`
	Archived           bool                  `gorm:"column:archived;not null;default:false"`
	ArchiveReason      *string               `gorm:"column:archive_reason"`
	UnitPrice          decimal.Decimal       `gorm:"column:unit_price;type:numeric(12,2);not null;default:0"`
	CreatedAt          time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/soundforms/atelier-backend/pkg/enums"
)

// SerialNumberRecord is the append-only identity registry row. Serial is stored
// without the order prefix. Once written the row is never updated or deleted;
// it overrides whatever the order item or upstream feed later reports.
type SerialNumberRecord struct {
	ID        uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Serial    string                 `gorm:"column:serial;not null;uniqueIndex:ux_serial_number_records_serial"`
	Type      enums.InstrumentType   `gorm:"column:type;not null"`
	Tuning    string                 `gorm:"column:tuning;not null"`
	Frequency *enums.TuningFrequency `gorm:"column:frequency"`
	Color     *string                `gorm:"column:color"`
	Note      *string                `gorm:"column:note"`
	FrozenAt  time.Time              `gorm:"column:frozen_at;not null"`
	CreatedAt time.Time              `gorm:"column:created_at;autoCreateTime"`
}

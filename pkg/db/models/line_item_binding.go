package models

import (
	"time"

	"github.com/google/uuid"
)

// LineItemBinding pins an upstream line-item identifier to a serial number.
// Write-once: a second write for the same line item with a different serial is
// a conflict and must never replace the original row.
type LineItemBinding struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	LineItemID string    `gorm:"column:line_item_id;not null;uniqueIndex:ux_line_item_bindings_line_item"`
	Serial     string    `gorm:"column:serial;not null"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
}

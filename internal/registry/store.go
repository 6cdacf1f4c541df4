package registry

import (
	"context"

	"github.com/soundforms/atelier-backend/pkg/db/models"
	"github.com/soundforms/atelier-backend/pkg/pagination"
)

// ListParams filters the registry listing.
type ListParams struct {
	Pagination pagination.Params
	Type       string
	Search     string
}

// Store persists serial number records and line-item bindings. Both tables are
// append-only: inserts race under a unique index and the loser must observe
// the winner's row, never overwrite it.
type Store interface {
	// GetRecord returns the record for a normalized serial, or nil.
	GetRecord(ctx context.Context, serial string) (*models.SerialNumberRecord, error)
	// InsertRecord attempts a first-writer-wins insert. When the serial is
	// already frozen it reports created=false and returns the existing row.
	InsertRecord(ctx context.Context, record *models.SerialNumberRecord) (bool, *models.SerialNumberRecord, error)
	// ListRecords pages through the registry, newest first.
	ListRecords(ctx context.Context, params ListParams) ([]models.SerialNumberRecord, error)

	// GetBinding returns the binding for an upstream line-item ID, or nil.
	GetBinding(ctx context.Context, lineItemID string) (*models.LineItemBinding, error)
	// InsertBinding attempts a write-once insert. When the line item is
	// already bound it reports created=false and returns the existing row.
	InsertBinding(ctx context.Context, binding *models.LineItemBinding) (bool, *models.LineItemBinding, error)
	// BindingsForSerial lists every binding that points at the serial.
	BindingsForSerial(ctx context.Context, serial string) ([]models.LineItemBinding, error)
}

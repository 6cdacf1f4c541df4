package registry

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/soundforms/atelier-backend/pkg/db/models"
	"github.com/soundforms/atelier-backend/pkg/enums"
	pkgerrors "github.com/soundforms/atelier-backend/pkg/errors"
	"github.com/soundforms/atelier-backend/pkg/logger"
	"github.com/soundforms/atelier-backend/pkg/pagination"
	"github.com/soundforms/atelier-backend/pkg/serial"
	"github.com/soundforms/atelier-backend/pkg/tuning"
)

// FreezeInput carries the instrument data to pin against a serial number.
type FreezeInput struct {
	Serial    string
	Type      enums.InstrumentType
	Tuning    string
	Frequency *enums.TuningFrequency
	Color     *string
	Note      *string
}

// BindOutcome reports what happened to a binding write.
type BindOutcome struct {
	Binding  *models.LineItemBinding
	Created  bool
	Conflict bool
}

// ListResult pages registry records.
type ListResult struct {
	Records    []models.SerialNumberRecord
	NextCursor string
}

// Service is the identity registry: append-only serial records with
// first-writer-wins freezes, plus write-once line-item bindings.
type Service interface {
	Freeze(ctx context.Context, input FreezeInput) (*models.SerialNumberRecord, bool, error)
	Resolve(ctx context.Context, serialNumber string) (*models.SerialNumberRecord, error)
	Bind(ctx context.Context, lineItemID, serialNumber string) (*BindOutcome, error)
	BindingFor(ctx context.Context, lineItemID string) (*models.LineItemBinding, error)
	List(ctx context.Context, params ListParams) (*ListResult, error)
}

type service struct {
	store Store
	logg  *logger.Logger
	now   func() time.Time
}

// NewService builds the registry service backed by the provided store.
func NewService(store Store, logg *logger.Logger) (Service, error) {
	if store == nil {
		return nil, fmt.Errorf("registry store required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{store: store, logg: logg, now: time.Now}, nil
}

// Freeze records the serial's instrument data if no record exists yet. A lost
// race or an earlier freeze returns the existing record untouched; callers
// can tell from the created flag whether this invocation won.
func (s *service) Freeze(ctx context.Context, input FreezeInput) (*models.SerialNumberRecord, bool, error) {
	normalized := serial.Normalize(input.Serial)
	if normalized == "" {
		return nil, false, pkgerrors.New(pkgerrors.CodeValidation, "serial number is required")
	}
	if input.Frequency != nil && !input.Frequency.IsValid() {
		return nil, false, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid tuning frequency %q", *input.Frequency))
	}
	if !input.Type.IsValid() {
		input.Type = enums.InstrumentTypeUnknown
	}

	canonical, _ := tuning.Canonical(input.Tuning)
	record := &models.SerialNumberRecord{
		Serial:    normalized,
		Type:      input.Type,
		Tuning:    canonical,
		Frequency: input.Frequency,
		Color:     input.Color,
		Note:      input.Note,
		FrozenAt:  s.now().UTC(),
	}

	created, winner, err := s.store.InsertRecord(ctx, record)
	if err != nil {
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "freezing serial record")
	}
	ctx = s.logg.WithSerial(ctx, normalized)
	if created {
		s.logg.Info(ctx, "serial frozen")
	}
	return winner, created, nil
}

// Resolve returns the frozen record for a serial, or nil when the serial was
// never frozen. Prefixed and bare serial forms resolve identically.
func (s *service) Resolve(ctx context.Context, serialNumber string) (*models.SerialNumberRecord, error) {
	normalized := serial.Normalize(serialNumber)
	if normalized == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "serial number is required")
	}
	record, err := s.store.GetRecord(ctx, normalized)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "resolving serial record")
	}
	return record, nil
}

// Bind pins an upstream line item to a serial. A repeat write with the same
// serial is an idempotent no-op; a different serial is a conflict that is
// reported but never applied.
func (s *service) Bind(ctx context.Context, lineItemID, serialNumber string) (*BindOutcome, error) {
	trimmedID := strings.TrimSpace(lineItemID)
	if trimmedID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "line item id is required")
	}
	normalized := serial.Normalize(serialNumber)
	if normalized == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "serial number is required")
	}

	binding := &models.LineItemBinding{
		LineItemID: trimmedID,
		Serial:     normalized,
	}
	created, winner, err := s.store.InsertBinding(ctx, binding)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "binding line item")
	}
	if created {
		return &BindOutcome{Binding: winner, Created: true}, nil
	}
	if winner != nil && winner.Serial == normalized {
		return &BindOutcome{Binding: winner}, nil
	}

	fields := map[string]any{
		"line_item_id":    trimmedID,
		"existing_serial": winner.Serial,
		"rejected_serial": normalized,
	}
	s.logg.Warn(s.logg.WithFields(ctx, fields), "line item binding conflict rejected")
	return &BindOutcome{Binding: winner, Conflict: true}, nil
}

func (s *service) BindingFor(ctx context.Context, lineItemID string) (*models.LineItemBinding, error) {
	trimmedID := strings.TrimSpace(lineItemID)
	if trimmedID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "line item id is required")
	}
	binding, err := s.store.GetBinding(ctx, trimmedID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading line item binding")
	}
	return binding, nil
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	rows, err := s.store.ListRecords(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing serial records")
	}

	limit := pagination.NormalizeLimit(params.Pagination.Limit)
	result := &ListResult{Records: rows}
	if len(rows) > limit {
		result.Records = rows[:limit]
		last := result.Records[len(result.Records)-1]
		result.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}
	return result, nil
}

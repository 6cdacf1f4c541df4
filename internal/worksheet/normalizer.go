// Package worksheet builds the production worksheet view: the deduplicated,
// registry-corrected list of units the builders actually work from.
package worksheet

import (
	"context"
	"fmt"
	"strings"

	"github.com/soundforms/atelier-backend/pkg/db/models"
	"github.com/soundforms/atelier-backend/pkg/enums"
	"github.com/soundforms/atelier-backend/pkg/logger"
	"github.com/soundforms/atelier-backend/pkg/serial"
)

// Row is one worksheet line. Frequency is duplicated under the legacy
// tuningFrequency key because older worksheet clients still read that name.
type Row struct {
	SerialNumber string               `json:"serialNumber"`
	OrderRef     int64                `json:"orderRef"`
	OrderNumber  string               `json:"orderNumber"`
	Position     int                  `json:"position"`
	Type         enums.InstrumentType `json:"type"`
	Tuning       string               `json:"tuning"`
	Display      string               `json:"display"`
	Frequency    string               `json:"frequency"`
	LegacyFreq   string               `json:"tuningFrequency"`
	Color        *string              `json:"color,omitempty"`
	Status       enums.ItemStatus     `json:"status"`
	Frozen       bool                 `json:"frozen"`
}

// recordResolver is the slice of the registry the normalizer needs.
type recordResolver interface {
	Resolve(ctx context.Context, serialNumber string) (*models.SerialNumberRecord, error)
}

// Normalizer turns raw item rows into worksheet rows.
type Normalizer struct {
	reg  recordResolver
	logg *logger.Logger
}

// NewNormalizer builds a worksheet normalizer.
func NewNormalizer(reg recordResolver, logg *logger.Logger) (*Normalizer, error) {
	if reg == nil {
		return nil, fmt.Errorf("registry resolver required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Normalizer{reg: reg, logg: logg}, nil
}

// NormalizeList deduplicates items by serial, keeps first-seen order, and
// overlays frozen registry data. Reconciliation can briefly leave two rows
// for the same serial (replace is not atomic across item inserts); the
// worksheet must never show the unit twice.
func (n *Normalizer) NormalizeList(ctx context.Context, items []models.OrderItem) ([]Row, error) {
	seen := make(map[string]struct{}, len(items))
	rows := make([]Row, 0, len(items))
	for _, item := range items {
		key := serial.Normalize(item.SerialNumber)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		row, err := n.buildRow(ctx, item)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (n *Normalizer) buildRow(ctx context.Context, item models.OrderItem) (Row, error) {
	row := Row{
		SerialNumber: serial.Display(item.SerialNumber),
		OrderNumber:  serial.Display(item.OrderNumber),
		Position:     item.Position,
		Type:         item.Type,
		Tuning:       item.Tuning,
		Color:        item.Color,
		Status:       item.Status,
	}
	if item.Frequency != nil {
		row.Frequency = item.Frequency.String()
	}

	// Callers feed order numbers in whatever form they were stored; the
	// worksheet keys rows on the canonical numeric reference.
	if ref, err := serial.OrderRef(item.OrderNumber); err == nil {
		row.OrderRef = ref
	} else {
		n.logg.Warn(n.logg.WithOrderNumber(ctx, item.OrderNumber), "worksheet row has non-numeric order reference")
	}

	record, err := n.reg.Resolve(ctx, item.SerialNumber)
	if err != nil {
		return Row{}, err
	}
	if record != nil {
		row.Type = record.Type
		row.Tuning = record.Tuning
		if record.Frequency != nil {
			row.Frequency = record.Frequency.String()
		}
		if record.Color != nil {
			row.Color = record.Color
		}
		row.Frozen = true
	}

	row.Display = displayName(row.Type, row.Tuning)
	row.LegacyFreq = row.Frequency
	return row, nil
}

// displayName renders the "{type} {tuning}" label builders read off the board.
func displayName(instrumentType enums.InstrumentType, tuningKey string) string {
	parts := make([]string, 0, 2)
	if instrumentType != "" && instrumentType != enums.InstrumentTypeUnknown {
		parts = append(parts, instrumentType.String())
	}
	if tuningKey != "" {
		parts = append(parts, tuningKey)
	}
	return strings.Join(parts, " ")
}

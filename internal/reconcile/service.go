package reconcile

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/soundforms/atelier-backend/internal/upstream"
	"github.com/soundforms/atelier-backend/pkg/db/models"
	"github.com/soundforms/atelier-backend/pkg/enums"
	pkgerrors "github.com/soundforms/atelier-backend/pkg/errors"
	"github.com/soundforms/atelier-backend/pkg/logger"
	"github.com/soundforms/atelier-backend/pkg/metrics"
	"github.com/soundforms/atelier-backend/pkg/serial"
	"github.com/soundforms/atelier-backend/pkg/tuning"
	"github.com/soundforms/atelier-backend/pkg/types"
)

const (
	defaultBatchSize  = 50
	defaultBatchPause = 2 * time.Second

	// partialNote is appended (once) to an order's notes when the upstream
	// platform reports a mix of shipped and unshipped units.
	partialNote = "Upstream reports partial fulfillment."
)

// Result reports what one reconciliation pass did.
type Result struct {
	Action             enums.SyncAction
	Order              *models.Order
	ActiveItemCount    int
	PartiallyFulfilled bool
}

// BatchResult aggregates per-order outcomes of a batch run.
type BatchResult struct {
	Results map[string]*Result
	Errors  map[string]error
}

// ordersStore is the slice of the order repository the engine needs.
type ordersStore interface {
	FindByNumber(ctx context.Context, orderNumber string) (*models.Order, error)
	Create(ctx context.Context, order *models.Order) (*models.Order, error)
	Update(ctx context.Context, order *models.Order) error
	Delete(ctx context.Context, id uuid.UUID) error
	CreateItem(ctx context.Context, item *models.OrderItem) (*models.OrderItem, error)
	DeleteItemsByOrder(ctx context.Context, orderID uuid.UUID) error
}

// identityRegistry is the slice of the registry service the engine needs:
// frozen records override inbound data. Bindings are written elsewhere, at
// the freeze point, never during a sync pass.
type identityRegistry interface {
	Resolve(ctx context.Context, serialNumber string) (*models.SerialNumberRecord, error)
}

// Service is the reconciliation engine. The upstream platform is the source
// of truth for what exists; the local registry is the source of truth for
// what each serial is.
type Service interface {
	ReconcileOrder(ctx context.Context, orderNumber string) (*Result, error)
	ReconcileBatch(ctx context.Context, orderNumbers []string) (*BatchResult, error)
}

type service struct {
	orders   ordersStore
	reg      identityRegistry
	feed     upstream.Feed
	locker   OrderLocker
	notify   Notifier
	metrics  *metrics.SyncJobMetrics
	logg     *logger.Logger
	interval time.Duration
	batch    int
}

// Deps bundles the engine's collaborators.
type Deps struct {
	Orders   ordersStore
	Registry identityRegistry
	Feed     upstream.Feed
	Locker   OrderLocker
	Notifier Notifier
	Metrics  *metrics.SyncJobMetrics
	Logger   *logger.Logger

	BatchSize  int
	BatchPause time.Duration
}

// NewService builds the reconciliation engine.
func NewService(deps Deps) (Service, error) {
	if deps.Orders == nil {
		return nil, fmt.Errorf("orders store required")
	}
	if deps.Registry == nil {
		return nil, fmt.Errorf("registry service required")
	}
	if deps.Feed == nil {
		return nil, fmt.Errorf("upstream feed required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if deps.Locker == nil {
		deps.Locker = NoopOrderLocker{}
	}
	if deps.Notifier == nil {
		deps.Notifier = NoopNotifier{}
	}
	if deps.BatchSize <= 0 {
		deps.BatchSize = defaultBatchSize
	}
	if deps.BatchPause <= 0 {
		deps.BatchPause = defaultBatchPause
	}
	return &service{
		orders:   deps.Orders,
		reg:      deps.Registry,
		feed:     deps.Feed,
		locker:   deps.Locker,
		notify:   deps.Notifier,
		metrics:  deps.Metrics,
		logg:     deps.Logger,
		interval: deps.BatchPause,
		batch:    deps.BatchSize,
	}, nil
}

// ReconcileOrder makes the local order match the upstream platform's current
// view. The pass is idempotent: running it twice in a row leaves the same
// rows, serials, and notes behind. Per-item failures are logged and skipped;
// the fix for a partially applied pass is simply to run it again.
func (s *service) ReconcileOrder(ctx context.Context, orderNumber string) (*Result, error) {
	number := serial.Display(strings.TrimSpace(orderNumber))
	if number == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order number is required")
	}
	ctx = s.logg.WithOrderNumber(ctx, number)

	release, acquired, err := s.locker.Acquire(ctx, number)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquiring order lock")
	}
	if !acquired {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("reconciliation already running for %s", number))
	}
	defer release(ctx)

	local, err := s.orders.FindByNumber(ctx, number)
	if err != nil {
		return nil, err
	}

	snapshot, err := s.fetchSnapshot(ctx, number, local)
	if err != nil {
		return nil, err
	}

	var set ActiveSet
	if snapshot != nil && !snapshot.Canceled {
		set = ResolveActiveSet(snapshot.LineItems)
	}

	if len(set.Active) == 0 {
		return s.reconcileGone(ctx, number, local, set)
	}
	return s.reconcilePresent(ctx, number, local, snapshot, set)
}

// fetchSnapshot prefers the platform's own order ID when the local row knows
// it, falling back to a reference search. A missing order is not an error.
func (s *service) fetchSnapshot(ctx context.Context, number string, local *models.Order) (*upstream.OrderSnapshot, error) {
	if local != nil && local.ExternalRef != nil && *local.ExternalRef != "" {
		snapshot, err := s.feed.FetchOrder(ctx, *local.ExternalRef)
		if err != nil {
			return nil, err
		}
		if snapshot != nil {
			return snapshot, nil
		}
	}
	return s.feed.FindByReference(ctx, number)
}

// reconcileGone handles the no-active-units paths: everything shipped, the
// order was canceled, or it vanished upstream entirely.
func (s *service) reconcileGone(ctx context.Context, number string, local *models.Order, set ActiveSet) (*Result, error) {
	if local == nil {
		// Nothing upstream, nothing local. Report deleted so batch callers
		// can tell the order is settled without a second lookup.
		return &Result{Action: enums.SyncActionDeleted}, nil
	}
	if err := s.orders.DeleteItemsByOrder(ctx, local.ID); err != nil {
		return nil, err
	}
	if err := s.orders.Delete(ctx, local.ID); err != nil {
		return nil, err
	}
	s.logg.Info(ctx, "order removed, no active units upstream")
	s.notify.OrderDeleted(ctx, local)
	if s.metrics != nil {
		s.metrics.IncReconciled(enums.SyncActionDeleted.String())
	}
	return &Result{Action: enums.SyncActionDeleted, PartiallyFulfilled: set.Partial}, nil
}

func (s *service) reconcilePresent(ctx context.Context, number string, local *models.Order, snapshot *upstream.OrderSnapshot, set ActiveSet) (*Result, error) {
	action := enums.SyncActionUpdated
	if local == nil {
		action = enums.SyncActionCreated
		created, err := s.orders.Create(ctx, orderFromSnapshot(number, snapshot, set.Partial))
		if err != nil {
			return nil, err
		}
		local = created
	} else {
		applySnapshot(local, snapshot)
		if set.Partial {
			appendPartialNote(local)
		}
		if err := s.orders.Update(ctx, local); err != nil {
			return nil, err
		}
		// Clean-slate replace: item rows are projections of the upstream
		// order; identity lives in the registry, not in these rows.
		if err := s.orders.DeleteItemsByOrder(ctx, local.ID); err != nil {
			return nil, err
		}
	}

	activeCount := 0
	for i, line := range set.Active {
		if err := s.createItem(ctx, local, i, line); err != nil {
			itemCtx := s.logg.WithSerial(ctx, serial.Derive(number, i))
			s.logg.Error(itemCtx, "skipping item, create failed", err)
			continue
		}
		activeCount++
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"action":       action,
		"active_items": activeCount,
		"partial":      set.Partial,
	}), "order reconciled")
	s.notify.OrderReconciled(ctx, local, action, len(snapshot.LineItems), activeCount, set.Partial)
	if s.metrics != nil {
		s.metrics.IncReconciled(action.String())
	}
	return &Result{
		Action:             action,
		Order:              local,
		ActiveItemCount:    activeCount,
		PartiallyFulfilled: set.Partial,
	}, nil
}

// createItem builds one unit row from an active line item, applying the
// frozen registry record over whatever the feed reports. The line item is
// not bound here: bindings only exist once a unit has entered building.
func (s *service) createItem(ctx context.Context, order *models.Order, position int, line upstream.LineItem) error {
	serialNumber := serial.Derive(order.OrderNumber, position)
	item := itemFromLine(order, position, serialNumber, line)

	record, err := s.reg.Resolve(ctx, serialNumber)
	if err != nil {
		return err
	}
	if record != nil {
		item.Type = record.Type
		item.Tuning = record.Tuning
		item.Frequency = record.Frequency
		if record.Color != nil {
			item.Color = record.Color
		}
	}

	if _, err := s.orders.CreateItem(ctx, item); err != nil {
		return err
	}
	return nil
}

// ReconcileBatch runs orders sequentially in fixed-size batches with a pause
// in between, so bulk syncs do not hammer the upstream API. One failing order
// never stops the batch.
func (s *service) ReconcileBatch(ctx context.Context, orderNumbers []string) (*BatchResult, error) {
	batch := &BatchResult{
		Results: make(map[string]*Result),
		Errors:  make(map[string]error),
	}
	numbers := dedupeNumbers(orderNumbers)

	var combined error
	for i, number := range numbers {
		if i > 0 && i%s.batch == 0 {
			if err := sleepCtx(ctx, s.interval); err != nil {
				return batch, multierr.Append(combined, err)
			}
		}
		result, err := s.ReconcileOrder(ctx, number)
		if err != nil {
			batch.Errors[number] = err
			combined = multierr.Append(combined, fmt.Errorf("%s: %w", number, err))
			s.logg.Error(s.logg.WithOrderNumber(ctx, number), "batch reconcile failed for order", err)
			continue
		}
		batch.Results[number] = result
	}
	return batch, combined
}

func dedupeNumbers(orderNumbers []string) []string {
	seen := make(map[string]struct{}, len(orderNumbers))
	out := make([]string, 0, len(orderNumbers))
	for _, raw := range orderNumbers {
		number := serial.Display(strings.TrimSpace(raw))
		if number == "" {
			continue
		}
		if _, ok := seen[number]; ok {
			continue
		}
		seen[number] = struct{}{}
		out = append(out, number)
	}
	return out
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func orderFromSnapshot(number string, snapshot *upstream.OrderSnapshot, partial bool) *models.Order {
	order := &models.Order{
		OrderNumber: number,
		Status:      enums.OrderStatusOrdered,
	}
	applySnapshot(order, snapshot)
	if partial {
		appendPartialNote(order)
	}
	return order
}

func applySnapshot(order *models.Order, snapshot *upstream.OrderSnapshot) {
	if snapshot.ExternalID != "" {
		order.ExternalRef = ptr(snapshot.ExternalID)
	}
	if snapshot.CustomerName != "" {
		order.CustomerName = snapshot.CustomerName
	}
	if snapshot.CustomerEmail != "" {
		order.CustomerEmail = ptr(snapshot.CustomerEmail)
	}
	if snapshot.ShippingAddress != "" {
		order.ShippingAddress = ptr(snapshot.ShippingAddress)
	}
	if snapshot.Country != "" {
		order.Country = ptr(snapshot.Country)
	}
	if snapshot.TrackingNumber != "" {
		order.TrackingNumber = ptr(snapshot.TrackingNumber)
	}
	if !snapshot.Total.IsZero() {
		order.TotalAmount = snapshot.Total
	}
	if snapshot.Currency != "" {
		order.Currency = snapshot.Currency
	}
}

// appendPartialNote adds the partial-fulfillment note exactly once.
func appendPartialNote(order *models.Order) {
	if order.Notes != nil && strings.Contains(*order.Notes, partialNote) {
		return
	}
	if order.Notes == nil || *order.Notes == "" {
		order.Notes = ptr(partialNote)
		return
	}
	order.Notes = ptr(*order.Notes + "\n" + partialNote)
}

func itemFromLine(order *models.Order, position int, serialNumber string, line upstream.LineItem) *models.OrderItem {
	item := &models.OrderItem{
		OrderID:      order.ID,
		OrderNumber:  order.OrderNumber,
		SerialNumber: serialNumber,
		Position:     position,
		Type:         enums.ParseInstrumentType(line.Title),
		Status:       enums.ItemStatusOrdered,
		UnitPrice:    line.UnitPrice,
	}
	if line.ID != "" {
		item.ExternalLineItemID = ptr(line.ID)
	}

	rawTuning := line.Properties["tuning"]
	if rawTuning == "" {
		rawTuning = line.VariantTitle
	}
	if canonical, ok := tuning.Canonical(rawTuning); ok {
		item.Tuning = canonical
	} else {
		item.Tuning = strings.TrimSpace(rawTuning)
	}

	if raw := line.Properties["frequency"]; raw != "" {
		if freq, err := enums.ParseTuningFrequency(raw); err == nil {
			item.Frequency = &freq
		}
	}
	if color := strings.TrimSpace(line.Properties["color"]); color != "" {
		item.Color = ptr(color)
	}

	specs := types.JSONMap{}
	for key, value := range line.Properties {
		specs[key] = value
	}
	if line.VariantTitle != "" {
		specs["variant"] = line.VariantTitle
	}
	if line.Title != "" {
		specs["title"] = line.Title
	}
	if line.Quantity > 0 {
		specs["quantity"] = line.Quantity
	}
	item.Specs = specs
	return item
}

func ptr(s string) *string {
	return &s
}

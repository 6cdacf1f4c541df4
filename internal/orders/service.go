package orders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/soundforms/atelier-backend/internal/registry"
	"github.com/soundforms/atelier-backend/pkg/db/models"
	"github.com/soundforms/atelier-backend/pkg/enums"
	pkgerrors "github.com/soundforms/atelier-backend/pkg/errors"
	"github.com/soundforms/atelier-backend/pkg/logger"
	"github.com/soundforms/atelier-backend/pkg/outbox"
	"github.com/soundforms/atelier-backend/pkg/outbox/payloads"
	"github.com/soundforms/atelier-backend/pkg/pagination"
	"github.com/soundforms/atelier-backend/pkg/serial"
	"github.com/soundforms/atelier-backend/pkg/tuning"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// identityFreezer is the slice of the registry the order service needs:
// freezing happens here, the moment a unit enters the build queue.
type identityFreezer interface {
	Freeze(ctx context.Context, input registry.FreezeInput) (*models.SerialNumberRecord, bool, error)
	Resolve(ctx context.Context, serialNumber string) (*models.SerialNumberRecord, error)
	Bind(ctx context.Context, lineItemID, serialNumber string) (*registry.BindOutcome, error)
}

// Service defines order operations beyond repository reads.
type Service interface {
	GetOrder(ctx context.Context, orderNumber string) (*OrderDetail, error)
	ListOrders(ctx context.Context, params pagination.Params, filters ListFilters) (*OrderList, error)
	CreateOrder(ctx context.Context, input CreateOrderInput) (*OrderDetail, error)
	UpdateOrder(ctx context.Context, orderNumber string, input UpdateOrderInput) (*models.Order, error)
	DeleteOrder(ctx context.Context, orderNumber string) error
	UpdateOrderStatus(ctx context.Context, orderNumber string, status enums.OrderStatus) (*models.Order, error)

	ListItems(ctx context.Context, filters ItemFilters) ([]models.OrderItem, error)
	GetItem(ctx context.Context, itemID uuid.UUID) (*models.OrderItem, error)
	UpdateItemStatus(ctx context.Context, itemID uuid.UUID, status enums.ItemStatus) (*models.OrderItem, error)
	UpdateItemSettings(ctx context.Context, itemID uuid.UUID, input UpdateItemSettingsInput) (*models.OrderItem, error)
	ArchiveItem(ctx context.Context, itemID uuid.UUID, reason string) (*models.OrderItem, error)
}

type service struct {
	repo   Repository
	tx     txRunner
	events outboxPublisher
	reg    identityFreezer
	logg   *logger.Logger
	now    func() time.Time
}

// NewService wires the order service.
func NewService(repo Repository, tx txRunner, events outboxPublisher, reg identityFreezer, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if events == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if reg == nil {
		return nil, fmt.Errorf("registry service required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, tx: tx, events: events, reg: reg, logg: logg, now: time.Now}, nil
}

func (s *service) GetOrder(ctx context.Context, orderNumber string) (*OrderDetail, error) {
	order, err := s.findOrder(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.FindItemsByOrder(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	if err := s.applyFrozen(ctx, items); err != nil {
		return nil, err
	}
	return &OrderDetail{Order: *order, Items: items}, nil
}

func (s *service) ListOrders(ctx context.Context, params pagination.Params, filters ListFilters) (*OrderList, error) {
	limit := pagination.NormalizeLimit(params.Limit)
	rows, err := s.repo.List(ctx, params, filters)
	if err != nil {
		return nil, err
	}
	list := &OrderList{Orders: rows}
	if len(rows) > limit {
		list.Orders = rows[:limit]
		last := list.Orders[limit-1]
		list.NextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return list, nil
}

// CreateOrder records a manually entered order. Serials are assigned
// positionally, same as reconciliation does for upstream orders.
func (s *service) CreateOrder(ctx context.Context, input CreateOrderInput) (*OrderDetail, error) {
	number := serial.Display(strings.TrimSpace(input.OrderNumber))
	if number == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order number is required")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "an order needs at least one item")
	}
	existing, err := s.repo.FindByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("order %s already exists", number))
	}

	detail := &OrderDetail{}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order := &models.Order{
			OrderNumber:     number,
			CustomerName:    strings.TrimSpace(input.CustomerName),
			CustomerEmail:   input.CustomerEmail,
			ShippingAddress: input.ShippingAddress,
			Country:         input.Country,
			Notes:           input.Notes,
			Status:          enums.OrderStatusOrdered,
		}
		created, err := repo.Create(ctx, order)
		if err != nil {
			return err
		}
		detail.Order = *created

		for i, in := range input.Items {
			item := &models.OrderItem{
				OrderID:      created.ID,
				OrderNumber:  number,
				SerialNumber: serial.Derive(number, i),
				Position:     i,
				Type:         in.Type,
				Frequency:    in.Frequency,
				Color:        in.Color,
				Specs:        in.Specs,
				Status:       enums.ItemStatusOrdered,
			}
			if !item.Type.IsValid() {
				item.Type = enums.InstrumentTypeUnknown
			}
			if canonical, ok := tuning.Canonical(in.Tuning); ok {
				item.Tuning = canonical
			} else {
				item.Tuning = strings.TrimSpace(in.Tuning)
			}
			saved, err := repo.CreateItem(ctx, item)
			if err != nil {
				return err
			}
			detail.Items = append(detail.Items, *saved)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithOrderNumber(ctx, number), "order created")
	return detail, nil
}

func (s *service) UpdateOrder(ctx context.Context, orderNumber string, input UpdateOrderInput) (*models.Order, error) {
	order, err := s.findOrder(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	if input.CustomerName != nil {
		order.CustomerName = strings.TrimSpace(*input.CustomerName)
	}
	if input.CustomerEmail != nil {
		order.CustomerEmail = input.CustomerEmail
	}
	if input.ShippingAddress != nil {
		order.ShippingAddress = input.ShippingAddress
	}
	if input.Country != nil {
		order.Country = input.Country
	}
	if input.Notes != nil {
		order.Notes = input.Notes
	}
	if input.TrackingNumber != nil {
		order.TrackingNumber = input.TrackingNumber
	}
	if err := s.repo.Update(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *service) DeleteOrder(ctx context.Context, orderNumber string) error {
	order, err := s.findOrder(ctx, orderNumber)
	if err != nil {
		return err
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.DeleteItemsByOrder(ctx, order.ID); err != nil {
			return err
		}
		if err := repo.Delete(ctx, order.ID); err != nil {
			return err
		}
		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderDeleted,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Data: payloads.OrderDeletedEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				DeletedAt:   s.now(),
			},
			Version:    1,
			OccurredAt: s.now(),
		})
	})
}

func (s *service) UpdateOrderStatus(ctx context.Context, orderNumber string, status enums.OrderStatus) (*models.Order, error) {
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid order status %q", status))
	}
	order, err := s.findOrder(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	if order.Status == status {
		return order, nil
	}
	from := order.Status
	order.Status = status

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Update(ctx, order); err != nil {
			return err
		}
		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderStateChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Data: payloads.OrderStateChangedEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				From:        from,
				To:          status,
			},
			Version:    1,
			OccurredAt: s.now(),
		})
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *service) ListItems(ctx context.Context, filters ItemFilters) ([]models.OrderItem, error) {
	items, err := s.repo.ListItems(ctx, filters)
	if err != nil {
		return nil, err
	}
	if err := s.applyFrozen(ctx, items); err != nil {
		return nil, err
	}
	return items, nil
}

// GetItem returns one unit the way readers must see it: a frozen registry
// record overrides whatever the row currently stores. Write paths go through
// getItemRow instead and work on the stored values.
func (s *service) GetItem(ctx context.Context, itemID uuid.UUID) (*models.OrderItem, error) {
	item, err := s.getItemRow(ctx, itemID)
	if err != nil {
		return nil, err
	}
	record, err := s.reg.Resolve(ctx, item.SerialNumber)
	if err != nil {
		return nil, err
	}
	overlayRecord(item, record)
	return item, nil
}

func (s *service) getItemRow(ctx context.Context, itemID uuid.UUID) (*models.OrderItem, error) {
	item, err := s.repo.FindItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "item not found")
	}
	return item, nil
}

// applyFrozen overlays frozen registry records onto item rows in place.
func (s *service) applyFrozen(ctx context.Context, items []models.OrderItem) error {
	for i := range items {
		record, err := s.reg.Resolve(ctx, items[i].SerialNumber)
		if err != nil {
			return err
		}
		overlayRecord(&items[i], record)
	}
	return nil
}

func overlayRecord(item *models.OrderItem, record *models.SerialNumberRecord) {
	if record == nil {
		return
	}
	item.Type = record.Type
	item.Tuning = record.Tuning
	item.Frequency = record.Frequency
	if record.Color != nil {
		item.Color = record.Color
	}
}

// UpdateItemStatus moves a unit through the build lifecycle. The transition
// into building is the freeze point: whatever the item's settings are right
// now become the unit's permanent identity, immune to later upstream edits.
func (s *service) UpdateItemStatus(ctx context.Context, itemID uuid.UUID, status enums.ItemStatus) (*models.OrderItem, error) {
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid item status %q", status))
	}
	item, err := s.getItemRow(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item.Status == status {
		return item, nil
	}
	from := item.Status
	item.Status = status

	if status == enums.ItemStatusBuilding {
		if err := s.freezeItem(ctx, item); err != nil {
			return nil, err
		}
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).UpdateItem(ctx, item); err != nil {
			return err
		}
		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventItemStateChanged,
			AggregateType: enums.AggregateOrderItem,
			AggregateID:   item.ID,
			Data: payloads.ItemStateChangedEvent{
				ItemID:       item.ID,
				OrderNumber:  item.OrderNumber,
				SerialNumber: item.SerialNumber,
				From:         from,
				To:           status,
			},
			Version:    1,
			OccurredAt: s.now(),
		})
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// freezeItem pins the item's current settings in the registry and binds its
// upstream line item to the serial. Re-freezing an already frozen serial is
// the normal steady state on status flips back and forth; only the first
// write counts.
func (s *service) freezeItem(ctx context.Context, item *models.OrderItem) error {
	record, created, err := s.reg.Freeze(ctx, registry.FreezeInput{
		Serial:    item.SerialNumber,
		Type:      item.Type,
		Tuning:    item.Tuning,
		Frequency: item.Frequency,
		Color:     item.Color,
	})
	if err != nil {
		return err
	}
	if created {
		err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			return s.events.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventSerialFrozen,
				AggregateType: enums.AggregateSerialNumber,
				AggregateID:   record.ID,
				Data: payloads.SerialFrozenEvent{
					RecordID: record.ID,
					Serial:   record.Serial,
					Type:     record.Type,
					Tuning:   record.Tuning,
					FrozenAt: record.FrozenAt,
				},
				Version:    1,
				OccurredAt: s.now(),
			})
		})
		if err != nil {
			s.logg.Error(s.logg.WithSerial(ctx, item.SerialNumber), "queue serial_frozen event", err)
		}
	}

	if item.ExternalLineItemID != nil && *item.ExternalLineItemID != "" {
		outcome, err := s.reg.Bind(ctx, *item.ExternalLineItemID, item.SerialNumber)
		if err != nil {
			return err
		}
		if outcome.Conflict {
			s.logg.Warn(s.logg.WithSerial(ctx, item.SerialNumber), "line item already bound to another serial")
			err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
				// Conflicts have no aggregate row of their own; key each
				// occurrence by a fresh ID so none of them is deduplicated.
				return s.events.Emit(ctx, tx, outbox.DomainEvent{
					EventType:     enums.EventBindingConflict,
					AggregateType: enums.AggregateSerialNumber,
					AggregateID:   uuid.New(),
					Data: payloads.BindingConflictEvent{
						LineItemID:     *item.ExternalLineItemID,
						ExistingSerial: outcome.Binding.Serial,
						RejectedSerial: serial.Normalize(item.SerialNumber),
					},
					Version:    1,
					OccurredAt: s.now(),
				})
			})
			if err != nil {
				s.logg.Error(s.logg.WithSerial(ctx, item.SerialNumber), "queue binding_conflict event", err)
			}
		}
	}
	return nil
}

// UpdateItemSettings changes a unit's build settings. Settings on a frozen
// unit can still be edited for the item row, but views and reconciliation
// will keep showing the frozen values; warn so the change is not silent.
func (s *service) UpdateItemSettings(ctx context.Context, itemID uuid.UUID, input UpdateItemSettingsInput) (*models.OrderItem, error) {
	item, err := s.getItemRow(ctx, itemID)
	if err != nil {
		return nil, err
	}

	record, err := s.reg.Resolve(ctx, item.SerialNumber)
	if err != nil {
		return nil, err
	}
	if record != nil {
		s.logg.Warn(s.logg.WithSerial(ctx, item.SerialNumber), "editing settings on a frozen unit, registry values still win")
	}

	if input.Type != nil {
		if !input.Type.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid instrument type %q", *input.Type))
		}
		item.Type = *input.Type
	}
	if input.Tuning != nil {
		if canonical, ok := tuning.Canonical(*input.Tuning); ok {
			item.Tuning = canonical
		} else {
			item.Tuning = strings.TrimSpace(*input.Tuning)
		}
	}
	if input.Frequency != nil {
		if !input.Frequency.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid tuning frequency %q", *input.Frequency))
		}
		item.Frequency = input.Frequency
	}
	if input.Color != nil {
		item.Color = input.Color
	}
	if input.Specs != nil {
		item.Specs = input.Specs
	}

	if err := s.repo.UpdateItem(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// ArchiveItem hides a unit from the worksheet without deleting the row.
func (s *service) ArchiveItem(ctx context.Context, itemID uuid.UUID, reason string) (*models.OrderItem, error) {
	item, err := s.getItemRow(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item.Archived {
		return item, nil
	}
	item.Archived = true
	if trimmed := strings.TrimSpace(reason); trimmed != "" {
		item.ArchiveReason = &trimmed
	}
	if err := s.repo.UpdateItem(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *service) findOrder(ctx context.Context, orderNumber string) (*models.Order, error) {
	number := serial.Display(strings.TrimSpace(orderNumber))
	if number == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order number is required")
	}
	order, err := s.repo.FindByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("order %s not found", number))
	}
	return order, nil
}

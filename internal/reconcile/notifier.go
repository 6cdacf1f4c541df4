package reconcile

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/soundforms/atelier-backend/pkg/db"
	"github.com/soundforms/atelier-backend/pkg/db/models"
	"github.com/soundforms/atelier-backend/pkg/enums"
	"github.com/soundforms/atelier-backend/pkg/logger"
	"github.com/soundforms/atelier-backend/pkg/outbox"
	"github.com/soundforms/atelier-backend/pkg/outbox/payloads"
)

// Notifier publishes reconciliation outcomes through the outbox. All methods
// are best-effort: a failed notification is logged but never fails the
// reconciliation that produced it.
type Notifier interface {
	OrderReconciled(ctx context.Context, order *models.Order, action enums.SyncAction, itemCount, activeCount int, partial bool)
	OrderDeleted(ctx context.Context, order *models.Order)
}

// OutboxNotifier writes domain events into the transactional outbox.
type OutboxNotifier struct {
	db     *db.Client
	events *outbox.Service
	logg   *logger.Logger
	now    func() time.Time
}

// NewOutboxNotifier wires the notifier to the outbox service.
func NewOutboxNotifier(client *db.Client, events *outbox.Service, logg *logger.Logger) *OutboxNotifier {
	return &OutboxNotifier{db: client, events: events, logg: logg, now: time.Now}
}

func (n *OutboxNotifier) emit(ctx context.Context, event outbox.DomainEvent, msg string) {
	err := n.db.WithTx(ctx, func(tx *gorm.DB) error {
		return n.events.Emit(ctx, tx, event)
	})
	if err != nil && n.logg != nil {
		n.logg.Error(ctx, msg, err)
	}
}

func (n *OutboxNotifier) OrderReconciled(ctx context.Context, order *models.Order, action enums.SyncAction, itemCount, activeCount int, partial bool) {
	n.emit(ctx, outbox.DomainEvent{
		EventType:     enums.EventOrderReconciled,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Data: payloads.OrderReconciledEvent{
			OrderID:     order.ID,
			OrderNumber: order.OrderNumber,
			Action:      action,
			ItemCount:   itemCount,
			ActiveCount: activeCount,
			Partial:     partial,
		},
		Version:    1,
		OccurredAt: n.now(),
	}, "queue order_reconciled event")
}

func (n *OutboxNotifier) OrderDeleted(ctx context.Context, order *models.Order) {
	n.emit(ctx, outbox.DomainEvent{
		EventType:     enums.EventOrderDeleted,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Data: payloads.OrderDeletedEvent{
			OrderID:     order.ID,
			OrderNumber: order.OrderNumber,
			DeletedAt:   n.now(),
		},
		Version:    1,
		OccurredAt: n.now(),
	}, "queue order_deleted event")
}

// NoopNotifier drops all notifications. Used when the outbox is not wired.
type NoopNotifier struct{}

func (NoopNotifier) OrderReconciled(context.Context, *models.Order, enums.SyncAction, int, int, bool) {
}
func (NoopNotifier) OrderDeleted(context.Context, *models.Order) {}

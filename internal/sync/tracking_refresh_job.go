package sync

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/soundforms/atelier-backend/internal/orders"
	"github.com/soundforms/atelier-backend/internal/upstream"
	"github.com/soundforms/atelier-backend/pkg/db/models"
	"github.com/soundforms/atelier-backend/pkg/enums"
	"github.com/soundforms/atelier-backend/pkg/logger"
	"github.com/soundforms/atelier-backend/pkg/outbox"
	"github.com/soundforms/atelier-backend/pkg/outbox/payloads"
	"github.com/soundforms/atelier-backend/pkg/pagination"
)

// trackingOrdersRepo is the slice of the order repository the job needs.
type trackingOrdersRepo interface {
	List(ctx context.Context, params pagination.Params, filters orders.ListFilters) ([]models.Order, error)
	Update(ctx context.Context, order *models.Order) error
}

// snapshotFetcher loads one upstream order.
type snapshotFetcher interface {
	FetchOrder(ctx context.Context, externalID string) (*upstream.OrderSnapshot, error)
	FindByReference(ctx context.Context, reference string) (*upstream.OrderSnapshot, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// TrackingRefreshJobParams configure the tracking-number refresh sweep.
type TrackingRefreshJobParams struct {
	Logger *logger.Logger
	Repo   trackingOrdersRepo
	Feed   snapshotFetcher
	DB     txRunner
	Outbox outboxEmitter
	// PageSize bounds how many shipping orders are loaded per page.
	PageSize int
}

const trackingPageSize = 50

// NewTrackingRefreshJob builds the job that copies tracking numbers from the
// upstream platform onto local orders in the shipping stage.
func NewTrackingRefreshJob(params TrackingRefreshJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Feed == nil {
		return nil, fmt.Errorf("upstream feed required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox required")
	}
	pageSize := params.PageSize
	if pageSize <= 0 {
		pageSize = trackingPageSize
	}
	return &trackingRefreshJob{
		logg:     params.Logger,
		repo:     params.Repo,
		feed:     params.Feed,
		db:       params.DB,
		events:   params.Outbox,
		pageSize: pageSize,
		now:      time.Now,
	}, nil
}

type trackingRefreshJob struct {
	logg     *logger.Logger
	repo     trackingOrdersRepo
	feed     snapshotFetcher
	db       txRunner
	events   outboxEmitter
	pageSize int
	now      func() time.Time
}

func (j *trackingRefreshJob) Name() string { return "tracking-refresh" }

func (j *trackingRefreshJob) Run(ctx context.Context) error {
	shipping := enums.OrderStatusShipping
	cursor := ""
	var combined error
	refreshed := 0

	for {
		page, err := j.repo.List(ctx, pagination.Params{Limit: j.pageSize, Cursor: cursor}, orders.ListFilters{Status: &shipping})
		if err != nil {
			return fmt.Errorf("list shipping orders: %w", err)
		}
		hasMore := len(page) > j.pageSize
		if hasMore {
			last := page[j.pageSize-1]
			cursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
			page = page[:j.pageSize]
		}

		for i := range page {
			order := page[i]
			changed, err := j.refreshOne(ctx, &order)
			if err != nil {
				combined = multierr.Append(combined, fmt.Errorf("%s: %w", order.OrderNumber, err))
				continue
			}
			if changed {
				refreshed++
			}
		}

		if !hasMore {
			break
		}
	}

	j.logg.Info(j.logg.WithField(ctx, "refreshed", refreshed), "tracking refresh complete")
	return combined
}

func (j *trackingRefreshJob) refreshOne(ctx context.Context, order *models.Order) (bool, error) {
	snapshot, err := j.fetch(ctx, order)
	if err != nil {
		return false, err
	}
	if snapshot == nil || snapshot.TrackingNumber == "" {
		return false, nil
	}
	if order.TrackingNumber != nil && *order.TrackingNumber == snapshot.TrackingNumber {
		return false, nil
	}

	tracking := snapshot.TrackingNumber
	order.TrackingNumber = &tracking
	err = j.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := j.repo.Update(ctx, order); err != nil {
			return err
		}
		return j.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventTrackingRefreshed,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Data: payloads.TrackingRefreshedEvent{
				OrderID:        order.ID,
				OrderNumber:    order.OrderNumber,
				TrackingNumber: tracking,
			},
			Version:    1,
			OccurredAt: j.now(),
		})
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

func (j *trackingRefreshJob) fetch(ctx context.Context, order *models.Order) (*upstream.OrderSnapshot, error) {
	if order.ExternalRef != nil && *order.ExternalRef != "" {
		snapshot, err := j.feed.FetchOrder(ctx, *order.ExternalRef)
		if err != nil {
			return nil, err
		}
		if snapshot != nil {
			return snapshot, nil
		}
	}
	return j.feed.FindByReference(ctx, order.OrderNumber)
}

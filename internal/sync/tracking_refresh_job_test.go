package sync

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/soundforms/atelier-backend/internal/orders"
	"github.com/soundforms/atelier-backend/internal/upstream"
	"github.com/soundforms/atelier-backend/pkg/db/models"
	"github.com/soundforms/atelier-backend/pkg/enums"
	"github.com/soundforms/atelier-backend/pkg/outbox"
	"github.com/soundforms/atelier-backend/pkg/pagination"
)

type stubTrackingRepo struct {
	shipping []models.Order
	updated  []models.Order
}

func (s *stubTrackingRepo) List(_ context.Context, _ pagination.Params, _ orders.ListFilters) ([]models.Order, error) {
	return s.shipping, nil
}

func (s *stubTrackingRepo) Update(_ context.Context, order *models.Order) error {
	s.updated = append(s.updated, *order)
	return nil
}

type stubSnapshotFetcher struct {
	byReference map[string]*upstream.OrderSnapshot
}

func (s *stubSnapshotFetcher) FetchOrder(_ context.Context, externalID string) (*upstream.OrderSnapshot, error) {
	for _, snapshot := range s.byReference {
		if snapshot.ExternalID == externalID {
			return snapshot, nil
		}
	}
	return nil, nil
}

func (s *stubSnapshotFetcher) FindByReference(_ context.Context, reference string) (*upstream.OrderSnapshot, error) {
	return s.byReference[reference], nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubEmitter struct {
	events []outbox.DomainEvent
}

func (s *stubEmitter) Emit(_ context.Context, _ *gorm.DB, event outbox.DomainEvent) error {
	s.events = append(s.events, event)
	return nil
}

func TestTrackingRefreshJobCopiesNewTrackingNumbers(t *testing.T) {
	existing := "OLD-TRACK"
	repo := &stubTrackingRepo{shipping: []models.Order{
		{ID: uuid.New(), OrderNumber: "SW-2001", Status: enums.OrderStatusShipping},
		{ID: uuid.New(), OrderNumber: "SW-2002", Status: enums.OrderStatusShipping, TrackingNumber: &existing},
	}}
	feed := &stubSnapshotFetcher{byReference: map[string]*upstream.OrderSnapshot{
		"SW-2001": {Reference: "SW-2001", TrackingNumber: "DHL-123"},
		"SW-2002": {Reference: "SW-2002", TrackingNumber: "OLD-TRACK"},
	}}
	emitter := &stubEmitter{}

	job, err := NewTrackingRefreshJob(TrackingRefreshJobParams{
		Logger: testLogger(t),
		Repo:   repo,
		Feed:   feed,
		DB:     stubTxRunner{},
		Outbox: emitter,
	})
	require.NoError(t, err)

	require.NoError(t, job.Run(context.Background()))

	require.Len(t, repo.updated, 1, "unchanged tracking numbers are not rewritten")
	require.NotNil(t, repo.updated[0].TrackingNumber)
	assert.Equal(t, "DHL-123", *repo.updated[0].TrackingNumber)
	require.Len(t, emitter.events, 1)
	assert.Equal(t, enums.EventTrackingRefreshed, emitter.events[0].EventType)
}

func TestTrackingRefreshJobIgnoresOrdersWithoutUpstreamTracking(t *testing.T) {
	repo := &stubTrackingRepo{shipping: []models.Order{
		{ID: uuid.New(), OrderNumber: "SW-2001", Status: enums.OrderStatusShipping},
	}}
	feed := &stubSnapshotFetcher{byReference: map[string]*upstream.OrderSnapshot{
		"SW-2001": {Reference: "SW-2001"},
	}}
	emitter := &stubEmitter{}

	job, err := NewTrackingRefreshJob(TrackingRefreshJobParams{
		Logger: testLogger(t),
		Repo:   repo,
		Feed:   feed,
		DB:     stubTxRunner{},
		Outbox: emitter,
	})
	require.NoError(t, err)

	require.NoError(t, job.Run(context.Background()))
	assert.Empty(t, repo.updated)
	assert.Empty(t, emitter.events)
}

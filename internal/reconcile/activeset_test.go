package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundforms/atelier-backend/internal/upstream"
)

func TestResolveActiveSetPartitionsByFulfillableQuantity(t *testing.T) {
	items := []upstream.LineItem{
		{ID: "li-1", Title: "Innato Am4", FulfillableQuantity: 1, FulfillmentStatus: upstream.FulfillmentFulfilled},
		{ID: "li-2", Title: "Natey E4", FulfillableQuantity: 0},
		{ID: "li-3", Title: "Drone D3", FulfillableQuantity: 0},
		{ID: "li-4", Title: "Double C4", FulfillableQuantity: 2},
	}

	set := ResolveActiveSet(items)

	require.Len(t, set.Active, 2)
	require.Len(t, set.Inactive, 2)
	assert.Equal(t, "li-1", set.Active[0].ID)
	assert.Equal(t, "li-4", set.Active[1].ID)
	assert.Equal(t, "li-2", set.Inactive[0].ID)
	assert.Equal(t, "li-3", set.Inactive[1].ID)
	assert.True(t, set.Partial)
}

func TestResolveActiveSetNoStatusMeansNotPartial(t *testing.T) {
	items := []upstream.LineItem{
		{ID: "li-1", FulfillableQuantity: 1},
		{ID: "li-2", FulfillableQuantity: 0},
	}

	set := ResolveActiveSet(items)

	assert.Len(t, set.Active, 1)
	assert.Len(t, set.Inactive, 1)
	assert.False(t, set.Partial, "mixed quantities without any fulfillment status must not flag partial")
}

func TestResolveActiveSetAllActive(t *testing.T) {
	items := []upstream.LineItem{
		{ID: "li-1", FulfillableQuantity: 1, FulfillmentStatus: upstream.FulfillmentFulfilled},
		{ID: "li-2", FulfillableQuantity: 3},
	}

	set := ResolveActiveSet(items)

	assert.Len(t, set.Active, 2)
	assert.Empty(t, set.Inactive)
	assert.False(t, set.Partial)
}

func TestResolveActiveSetEmpty(t *testing.T) {
	set := ResolveActiveSet(nil)

	assert.Empty(t, set.Active)
	assert.Empty(t, set.Inactive)
	assert.False(t, set.Partial)
}

package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextFieldsArePropagated(t *testing.T) {
	var buf bytes.Buffer
	logg := New(Options{ServiceName: "test", Output: &buf, Level: zerolog.InfoLevel})

	ctx := logg.WithOrderNumber(context.Background(), "SW-2001")
	ctx = logg.WithSerial(ctx, "2001-2")
	logg.Info(ctx, "freeze applied")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "SW-2001", entry["order_number"])
	assert.Equal(t, "2001-2", entry["serial"])
	assert.Equal(t, "freeze applied", entry["message"])
	assert.Equal(t, "test", entry["service"])
}

func TestParseLevelFallsBackToInfo(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("not-a-level"))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel(""))
}

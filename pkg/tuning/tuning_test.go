package tuning

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalStripsMinorSuffix(t *testing.T) {
	got, minor := Canonical("Dm4")
	assert.Equal(t, "D4", got)
	assert.True(t, minor)

	got, minor = Canonical("F#m3")
	assert.Equal(t, "F#3", got)
	assert.True(t, minor)
}

func TestCanonicalLeavesMajorAlone(t *testing.T) {
	got, minor := Canonical("A3")
	assert.Equal(t, "A3", got)
	assert.False(t, minor)
}

func TestCanonicalPassesThroughUnrecognized(t *testing.T) {
	got, minor := Canonical(" 432 custom ")
	assert.Equal(t, "432 custom", got)
	assert.False(t, minor)
}

func TestDisplayRoundTrip(t *testing.T) {
	canonical, minor := Canonical("Gm4")
	assert.Equal(t, "Gm4", Display(canonical, minor))
	assert.Equal(t, "G4", Display(canonical, false))
}

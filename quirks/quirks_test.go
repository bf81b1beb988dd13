package quirks

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDB = `
devices:
  - match:
      name: touchpad
    quirks:
      lid_switch_reliability: reliable
      palm_pressure_threshold: 190
  - match:
      vendor: 0x04f3
      product: 0x3098
    quirks:
      palm_pressure_threshold: 220
      is_wacom: false
`

func TestLookupMergesGeneralThenSpecific(t *testing.T) {
	db, err := Load([]byte(sampleDB))
	require.NoError(t, err)

	e := db.Lookup(DeviceInfo{Vendor: 0x04f3, Product: 0x3098, Name: "Elan Touchpad"})
	assert.Equal(t, "reliable", e.LidSwitchReliability)
	assert.Equal(t, int32(220), e.PalmPressureThreshold)
}

func TestLookupNoMatchReturnsZeroValue(t *testing.T) {
	db, err := Load([]byte(sampleDB))
	require.NoError(t, err)

	e := db.Lookup(DeviceInfo{Vendor: 1, Product: 2, Name: "Generic Mouse"})
	assert.Equal(t, Entry{}, e)
}

func TestLookupNameMatchIsCaseInsensitiveSubstring(t *testing.T) {
	db, err := Load([]byte(sampleDB))
	require.NoError(t, err)

	e := db.Lookup(DeviceInfo{Name: "SynPS/2 TouchPad"})
	assert.Equal(t, "reliable", e.LidSwitchReliability)
}

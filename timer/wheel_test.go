package timer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWheelFiresInExpiryOrder(t *testing.T) {
	w := New()
	var order []string
	w.Arm(Key{DeviceID: 1, Slot: -1, Name: "b"}, 200, func(uint64) { order = append(order, "b") })
	w.Arm(Key{DeviceID: 1, Slot: -1, Name: "a"}, 100, func(uint64) { order = append(order, "a") })

	w.Expire(50)
	assert.Empty(t, order)

	w.Expire(250)
	assert.Equal(t, []string{"a", "b"}, order)
}

func TestWheelCancelPreventsFiring(t *testing.T) {
	w := New()
	fired := false
	key := Key{DeviceID: 1, Slot: 0, Name: "debounce"}
	w.Arm(key, 100, func(uint64) { fired = true })
	w.Cancel(key)
	w.Expire(200)
	assert.False(t, fired)
}

func TestWheelRearmReplacesPrevious(t *testing.T) {
	w := New()
	count := 0
	key := Key{DeviceID: 1, Slot: -1, Name: "dwt"}
	w.Arm(key, 100, func(uint64) { count++ })
	w.Arm(key, 200, func(uint64) { count++ })

	w.Expire(150)
	assert.Equal(t, 0, count)
	w.Expire(250)
	assert.Equal(t, 1, count)
}

func TestWheelCancelDeviceRemovesAllOwnedTimers(t *testing.T) {
	w := New()
	fired := 0
	w.Arm(Key{DeviceID: 1, Slot: 0, Name: "x"}, 100, func(uint64) { fired++ })
	w.Arm(Key{DeviceID: 2, Slot: 0, Name: "x"}, 100, func(uint64) { fired++ })
	w.CancelDevice(1)
	w.Expire(200)
	assert.Equal(t, 1, fired)
}

func TestNextExpirySkipsCancelled(t *testing.T) {
	w := New()
	key := Key{DeviceID: 1, Slot: -1, Name: "t"}
	w.Arm(key, 100, func(uint64) {})
	w.Cancel(key)
	_, ok := w.NextExpiry()
	require.False(t, ok)
}

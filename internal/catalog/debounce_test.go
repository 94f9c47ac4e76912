package catalog

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDebouncer_CoalescesBurst(t *testing.T) {
	d := NewDebouncer(100 * time.Millisecond)
	defer d.Stop()

	var fired atomic.Int32
	var last atomic.Int32
	for i := int32(1); i <= 10; i++ {
		i := i
		d.Trigger(func() {
			fired.Add(1)
			last.Store(i)
		})
		time.Sleep(time.Millisecond)
	}

	require.Eventually(t, func() bool { return fired.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, int32(1), fired.Load())
	assert.Equal(t, int32(10), last.Load())
	assert.False(t, d.Pending())
}

func TestDebouncer_OnePerQuietPeriod(t *testing.T) {
	d := NewDebouncer(10 * time.Millisecond)
	defer d.Stop()

	var fired atomic.Int32
	d.Trigger(func() { fired.Add(1) })
	require.Eventually(t, func() bool { return fired.Load() == 1 }, time.Second, 2*time.Millisecond)

	d.Trigger(func() { fired.Add(1) })
	require.Eventually(t, func() bool { return fired.Load() == 2 }, time.Second, 2*time.Millisecond)
}

func TestDebouncer_FlushCancelStop(t *testing.T) {
	d := NewDebouncer(time.Hour)

	var fired atomic.Int32
	d.Trigger(func() { fired.Add(1) })
	assert.True(t, d.Pending())
	d.Flush()
	assert.Equal(t, int32(1), fired.Load())
	d.Flush()
	assert.Equal(t, int32(1), fired.Load())

	d.Trigger(func() { fired.Add(1) })
	d.Cancel()
	assert.False(t, d.Pending())
	d.Flush()
	assert.Equal(t, int32(1), fired.Load())

	d.Stop()
	d.Trigger(func() { fired.Add(1) })
	assert.False(t, d.Pending())
}

func TestNewDebouncer_DefaultWait(t *testing.T) {
	assert.Equal(t, DefaultSearchDebounce, NewDebouncer(0).wait)
}

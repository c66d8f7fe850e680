package kernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSleepWakesInDeadlineOrder matches spec scenario 6 (§8): threads that
// sleep for different durations must wake in deadline order regardless of
// creation order or priority.
func TestSleepWakesInDeadlineOrder(t *testing.T) {
	k := newTestKernel(t)

	var done Semaphore
	done.Init(k, 0)

	var order []string
	sleepers := []struct {
		name  string
		ticks uint64
		pri   int
	}{
		{"A", 30, PriDefault},
		{"B", 10, PriDefault + 20}, // highest priority; wakes first because its sleep is shortest
		{"C", 20, PriDefault - 10},
	}
	for _, s := range sleepers {
		s := s
		k.Create(s.name, s.pri, func(self *Thread, _ any) {
			self.Sleep(s.ticks)
			order = append(order, s.name)
			done.Up(self)
		}, nil)
	}

	waitFor(&done, k.Current(), 3)
	assert.Equal(t, []string{"B", "C", "A"}, order, "wake order must follow deadline, not priority")
}

func TestSleepZeroTicksReturnsImmediately(t *testing.T) {
	k := newTestKernel(t)
	before := k.Ticks()
	k.Current().Sleep(0)
	assert.Equal(t, before, k.Ticks(), "sleeping zero ticks must not block or consume a tick")
}

func TestTicksAndElapsed(t *testing.T) {
	k := newTestKernel(t)
	start := k.Ticks()
	k.Current().Sleep(5)
	require.GreaterOrEqual(t, k.Elapsed(start), uint64(5))
}

package kernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSemaphoreTryDownNeverBlocks(t *testing.T) {
	k := newTestKernel(t)
	var s Semaphore
	s.Init(k, 1)

	assert.True(t, s.TryDown(k.Current()), "value 1 should allow a try-down")
	assert.False(t, s.TryDown(k.Current()), "value 0 should fail, not block")
}

func TestSemaphoreUpWakesHighestPriorityWaiter(t *testing.T) {
	k := newTestKernel(t)

	var sem Semaphore
	sem.Init(k, 0)
	var ready, woke Semaphore
	ready.Init(k, 0)
	woke.Init(k, 0)

	// order is appended to only by whichever thread the (single, cooperative)
	// scheduler currently has running, so no separate lock is needed to make
	// this a reliable wake-order trace.
	var order []string

	spawn := func(name string, pri int) {
		k.Create(name, pri, func(self *Thread, _ any) {
			ready.Up(self)
			sem.Down(self)
			order = append(order, name)
			woke.Up(self)
		}, nil)
	}
	spawn("low", PriDefault+5)
	spawn("high", PriDefault+20)

	waitFor(&ready, k.Current(), 2)
	sem.Up(k.Current())
	sem.Up(k.Current())
	waitFor(&woke, k.Current(), 2)

	require.Len(t, order, 2)
	assert.Equal(t, "high", order[0], "the higher-priority waiter must be woken first")
	assert.Equal(t, "low", order[1])
}

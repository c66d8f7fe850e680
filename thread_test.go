package kernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestKernel(t *testing.T) *Kernel {
	cfg := DefaultConfig()
	cfg.TimerFreq = 1000 // fast ticks so Sleep-based tests stay quick
	k := NewKernel(cfg)
	k.Start()
	t.Cleanup(k.Stop)
	return k
}

func TestCreateRejectsOutOfRangePriority(t *testing.T) {
	k := newTestKernel(t)
	assert.Panics(t, func() {
		_, _ = k.Create("bad", PriMax+1, func(*Thread, any) {}, nil)
	}, "priority above PriMax must panic, not silently clamp")
	assert.Panics(t, func() {
		_, _ = k.Create("bad", PriMin-1, func(*Thread, any) {}, nil)
	})
}

func TestCreateEnforcesMaxThreads(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxThreads = 2 // main and idle (created by Start) already count as two
	k := NewKernel(cfg)
	k.Start()
	defer k.Stop()

	_, err := k.Create("one-too-many", PriDefault, func(*Thread, any) {}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrOutOfMemory)
}

func TestUnblockOfRunningThreadPanics(t *testing.T) {
	k := newTestKernel(t)
	assert.Panics(t, func() {
		k.Unblock(k.Current()) // current (main) is RUNNING, not BLOCKED
	})
}

// waitFor blocks the calling thread (t.k's current thread, t) on sem until
// count Up calls have been made, the kernel-native equivalent of a
// WaitGroup; this is how every test below lets worker threads of higher
// priority than main actually run to completion before assertions run.
func waitFor(sem *Semaphore, t *Thread, count int) {
	for i := 0; i < count; i++ {
		sem.Down(t)
	}
}

func TestReadyQueueDispatchesHighestPriorityFirst(t *testing.T) {
	k := newTestKernel(t)

	var gate, doneSem Semaphore
	gate.Init(k, 0)
	doneSem.Init(k, 0)

	// Priorities are all above PriDefault, so each thread preempts main as
	// soon as it is created and immediately parks on the shared gate; all
	// three are therefore waiting on the gate together before any of them
	// runs past it. The trace is installed only after that, so the recorded
	// dispatch order is solely a function of priority.
	spawn := func(name string, pri int) {
		k.Create(name, pri, func(self *Thread, _ any) {
			gate.Down(self)
			doneSem.Up(self)
		}, nil)
	}
	spawn("low", PriDefault+5)
	spawn("mid", PriDefault+15)
	spawn("high", PriDefault+25)

	var order []string
	k.OnEvent(func(e Event) {
		if e.Kind == EventDispatch {
			order = append(order, e.Thread.Name())
		}
	})

	gate.Up(k.Current())
	gate.Up(k.Current())
	gate.Up(k.Current())
	waitFor(&doneSem, k.Current(), 3)

	require.GreaterOrEqual(t, len(order), 3)
	pos := map[string]int{}
	for i, name := range order {
		if _, ok := pos[name]; !ok {
			pos[name] = i
		}
	}
	assert.Less(t, pos["high"], pos["mid"], "high priority thread must dispatch before mid")
	assert.Less(t, pos["mid"], pos["low"], "mid priority thread must dispatch before low")
}

// TestSetPriorityYieldsWhenOutranked: main lowers its own priority below
// that of a thread already on the ready queue, and must yield to it before
// SetPriority returns.
func TestSetPriorityYieldsWhenOutranked(t *testing.T) {
	k := newTestKernel(t)

	var doneSem Semaphore
	doneSem.Init(k, 0)

	// order is appended to only by whichever thread is currently running.
	var order []string

	// Below main's priority, so Create does not preempt main.
	k.Create("ready", PriDefault-5, func(self *Thread, _ any) {
		order = append(order, "ready")
		doneSem.Up(self)
	}, nil)

	cur := k.Current()
	cur.SetPriority(PriDefault - 10) // "ready" now outranks main
	order = append(order, "main")
	waitFor(&doneSem, cur, 1)

	assert.Equal(t, []string{"ready", "main"}, order, "SetPriority must yield as soon as a ready thread outranks the caller")
	assert.Equal(t, PriDefault-10, cur.GetPriority())
}

// Package kernel implements the scheduling core of a small, single-CPU,
// preemptive priority kernel: a strict-priority ready queue, counting
// semaphores and priority-donating locks, Mesa condition variables, and a
// tick-driven sleep facility. It is a teaching-kernel core (the kind found
// in small educational operating systems), reworked as a Go library: each
// kernel thread is backed by a real goroutine, and the low-level context
// switch (register save/restore) that such a kernel normally hands off to
// assembly is replaced by a per-thread rendezvous channel — see
// SPEC_FULL.md for the full adaptation notes.
package kernel

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// idleSpinDelay bounds how tightly the idle thread spins when it finds
// nothing ready; see idleEntry.
const idleSpinDelay = 200 * time.Microsecond

// EventKind categorizes a scheduling event for the optional trace hook.
type EventKind int

const (
	EventCreate EventKind = iota
	EventDispatch
	EventBlock
	EventUnblock
	EventYield
	EventExit
	EventDonate
	EventDonateRemove
	EventSleep
	EventWake
)

func (k EventKind) String() string {
	switch k {
	case EventCreate:
		return "create"
	case EventDispatch:
		return "dispatch"
	case EventBlock:
		return "block"
	case EventUnblock:
		return "unblock"
	case EventYield:
		return "yield"
	case EventExit:
		return "exit"
	case EventDonate:
		return "donate"
	case EventDonateRemove:
		return "donate-remove"
	case EventSleep:
		return "sleep"
	case EventWake:
		return "wake"
	default:
		return "unknown"
	}
}

// Event is one scheduling occurrence, delivered to Kernel.OnEvent.
type Event struct {
	Kind   EventKind
	Thread *Thread
	Detail string
}

// Kernel owns every piece of scheduler-wide mutable state named in §9:
// the ready queue, the sleep list, the destruction queue, and the tick
// counter. The package keeps no default instance and has no free-function
// API: every operation is a method on a Kernel value, or on a Thread,
// Semaphore, Lock or Cond bound to one, and tests construct their own
// Kernel values for isolation.
type Kernel struct {
	bigLock sync.Mutex
	enabled Level
	current *Thread

	ready   *List
	sleep   *List
	destroy *List

	nextTID     ID
	threadCount int

	ticks        uint64
	sliceTicks   int
	sliceExpired bool

	idle *Thread
	main *Thread

	cfg     Config
	onEvent func(Event)

	tickStop chan struct{}
	tickDone chan struct{}

	startSema *Semaphore
	started   bool
}

// NewKernel performs the role of system_init (§6): it turns the calling
// goroutine into the initial ("main") thread, RUNNING at PRI_DEFAULT, and
// prepares the empty ready queue, sleep list, and destruction queue.
func NewKernel(cfg Config) *Kernel {
	if err := cfg.Validate(); err != nil {
		logrus.WithField("component", "kernel").WithError(err).Fatal("system_init: invalid configuration")
	}

	k := &Kernel{
		enabled:   IntrOn,
		ready:     NewList(),
		sleep:     NewList(),
		destroy:   NewList(),
		cfg:       cfg,
		startSema: nil,
	}
	k.startSema = new(Semaphore)
	k.startSema.Init(k, 0)

	main := newThread(k, k.nextTIDLocked(), "main", PriDefault)
	main.status = StatusRunning
	k.current = main
	k.main = main
	k.threadCount = 1

	logrus.WithField("component", "kernel").Info("system_init: main thread ready")
	return k
}

// OnEvent installs a trace callback invoked on every scheduling event. It
// must be set before Start for a complete trace, but may be changed at any
// time; the callback runs with interrupts already disabled, so it must not
// block or call back into the kernel.
func (k *Kernel) OnEvent(fn func(Event)) {
	prev := k.Disable()
	k.onEvent = fn
	k.Restore(prev)
}

func (k *Kernel) logEvent(e Event) {
	if k.onEvent != nil {
		k.onEvent(e)
	}
}

// Start performs the role of system_start (§6): it creates the idle thread
// at PRI_MIN, starts the timer-tick driver goroutine that stands in for the
// hardware timer (§4.8, §6 "toward the timer device"), and blocks until the
// idle thread has run once and signalled readiness — exactly as the
// reference kernel blocks on a semaphore until idle's first iteration.
func (k *Kernel) Start() {
	prev := k.Disable()
	if k.started {
		k.Restore(prev)
		return
	}
	k.started = true
	k.Restore(prev)

	idle, err := k.createThread("idle", PriMin, idleEntry, nil)
	if err != nil {
		k.fatalf("system_start: failed to create idle thread: %v", err)
	}
	prev = k.Disable()
	k.idle = idle
	k.Restore(prev)

	k.tickStop = make(chan struct{})
	k.tickDone = make(chan struct{})
	go k.tickLoop()

	k.startSema.Down(k.current)
	logrus.WithField("component", "kernel").Info("system_start: idle thread running")
}

// Stop halts the timer-tick driver goroutine. The reference kernel never
// stops; this exists purely so a Go test binary can tear a Kernel down
// cleanly between cases.
func (k *Kernel) Stop() {
	prev := k.Disable()
	started := k.started
	k.started = false
	k.Restore(prev)
	if !started || k.tickStop == nil {
		return
	}
	close(k.tickStop)
	<-k.tickDone
}

// idleEntry is the idle thread's body: it signals that initialization is
// complete, then loops forever blocking and immediately re-checking for
// ready work (§4.4). Real hardware halts here until the next interrupt;
// Go has no equivalent of halting a goroutine until signaled without
// inventing extra machinery, so this spins instead — each iteration's
// Block call re-enters the scheduler's pickNextLocked, which is what
// actually picks up a thread the timer tick just woke. The short sleep
// keeps that spin from pinning a CPU core.
func idleEntry(self *Thread, _ any) {
	k := self.k
	k.startSema.Up(self)
	for {
		prev := k.Disable()
		self.Block()
		k.Restore(prev)
		time.Sleep(idleSpinDelay)
	}
}

// Current returns the kernel's notion of the currently running thread.
func (k *Kernel) Current() *Thread {
	prev := k.Disable()
	defer k.Restore(prev)
	return k.current
}

// Ticks returns the current tick count (§4.8, §6 timer_ticks).
func (k *Kernel) Ticks() uint64 {
	prev := k.Disable()
	defer k.Restore(prev)
	return k.ticks
}

// Elapsed returns the number of ticks elapsed since `then` (§6 timer_elapsed).
func (k *Kernel) Elapsed(then uint64) uint64 {
	return k.Ticks() - then
}

// tickLoop stands in for the hardware timer device: once per configured
// tick period, it performs exactly the sequence §6 assigns the timer ISR —
// tick counter increment, thread_tick() accounting, then the sleep-list
// drain of §4.8.
func (k *Kernel) tickLoop() {
	defer close(k.tickDone)
	period := time.Second / time.Duration(k.cfg.TimerFreq)
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-k.tickStop:
			return
		case <-ticker.C:
			k.onTick()
		}
	}
}

// onTick is the timer ISR body (§4.8, §4.4 time-slice accounting).
func (k *Kernel) onTick() {
	prev := k.Disable()
	k.ticks++
	if k.current != k.idle {
		k.sliceTicks++
		if k.sliceTicks >= k.cfg.TimeSlice {
			k.sliceExpired = true
		}
	}
	k.drainSleepersLocked()
	k.Restore(prev)
}

package kernel

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Priority bounds and scheduling constants (§6).
const (
	PriMin     = 0
	PriDefault = 31
	PriMax     = 63

	TimeSlice        = 4
	MaxDonationDepth = 8
)

// ID is a thread identity, unique and monotonically increasing per Kernel.
type ID uint64

// InvalidID is returned by Create on failure; it is never assigned to a
// live thread.
const InvalidID ID = 0

// ErrOutOfMemory is Create's resource-exhaustion error (§7). The reference
// kernel's page allocator is out of this spec's scope; this module's stand-in
// boundary is Config.MaxThreads, a configurable cap that gives the same
// "the pool backing thread storage can run out" contract without inventing a
// fake allocator.
var ErrOutOfMemory = errors.New("kernel: out of memory allocating thread")

// Status is a thread's position in the state machine of §4.3.
type Status int

const (
	StatusBlocked Status = iota
	StatusReady
	StatusRunning
	StatusDying
)

func (s Status) String() string {
	switch s {
	case StatusBlocked:
		return "BLOCKED"
	case StatusReady:
		return "READY"
	case StatusRunning:
		return "RUNNING"
	case StatusDying:
		return "DYING"
	default:
		return "UNKNOWN"
	}
}

// Entry is a thread's body. self is the thread's own handle, used to call
// back into the kernel (Yield, CheckPreempt, and so on) from within the
// running thread — the Go analogue of the reference kernel's implicit
// "current thread" global, since this module backs each Thread with its own
// goroutine rather than a single CPU's register file.
type Entry func(self *Thread, arg any)

// Thread is one schedulable execution context (§3).
type Thread struct {
	k *Kernel

	id   ID
	name string

	status       Status
	priority     int
	basePriority int

	donors       *List // donationLink nodes of this thread's donors, highest priority first
	donationLink Link  // this thread's own membership node in some holder's donors list

	// readyLink is reused across the ready queue, a semaphore's waiters, and
	// the sleep list — never more than one at a time, per §3.
	readyLink Link

	waitingLock *Lock
	wakeupTick  uint64

	resume chan struct{} // context-switch stand-in; see SPEC_FULL.md
	done   chan struct{}
}

// ID returns the thread's identity.
func (t *Thread) ID() ID { return t.id }

// Name returns the thread's human-readable label.
func (t *Thread) Name() string { return t.name }

// Status returns the thread's current state-machine status.
func (t *Thread) Status() Status { return t.status }

func newThread(k *Kernel, id ID, name string, priority int) *Thread {
	t := &Thread{
		k:            k,
		id:           id,
		name:         name,
		status:       StatusBlocked,
		priority:     priority,
		basePriority: priority,
		donors:       NewList(),
		resume:       make(chan struct{}, 1),
		done:         make(chan struct{}),
	}
	t.readyLink.Owner = t
	t.donationLink.Owner = t
	return t
}

// priorityDesc orders both the ready/waiter queues and donor lists by
// descending effective priority (§4.2): the spec defines the ready/waiter
// comparator and the donor comparator with the identical formula
// (a.priority > b.priority), so one function serves both.
func priorityDesc(a, b *Link) bool {
	return a.Owner.(*Thread).priority > b.Owner.(*Thread).priority
}

func sleepAsc(a, b *Link) bool {
	return a.Owner.(*Thread).wakeupTick < b.Owner.(*Thread).wakeupTick
}

// recomputePriority applies §4.6's priority recomputation: base, raised to
// the highest donor if any are present.
func (t *Thread) recomputePriority() {
	p := t.basePriority
	if front := t.donors.Front(); front != nil {
		if d := front.Owner.(*Thread).priority; d > p {
			p = d
		}
	}
	t.priority = p
}

// Create allocates a new thread, enqueues it READY in priority order, and
// runs the preemption check (§4.3). It may only be called with interrupts
// enabled, matching the reference kernel's thread_create, which is never
// invoked from inside a critical section of its own.
func (k *Kernel) Create(name string, priority int, entry Entry, arg any) (ID, error) {
	t, err := k.createThread(name, priority, entry, arg)
	if err != nil {
		return InvalidID, err
	}
	return t.id, nil
}

// createThread is Create's implementation, exposed internally (returning
// the *Thread rather than just its ID) so Start can register the idle
// thread with the scheduler before that thread's goroutine ever runs.
func (k *Kernel) createThread(name string, priority int, entry Entry, arg any) (*Thread, error) {
	if priority < PriMin || priority > PriMax {
		panic(fmt.Sprintf("kernel: priority %d out of range [%d,%d]", priority, PriMin, PriMax))
	}

	prev := k.Disable()
	if k.cfg.MaxThreads > 0 && k.threadCount >= k.cfg.MaxThreads {
		k.Restore(prev)
		return nil, errors.Wrapf(ErrOutOfMemory, "thread %q: at cap of %d threads", name, k.cfg.MaxThreads)
	}
	id := k.nextTIDLocked()
	t := newThread(k, id, name, priority)
	k.threadCount++
	k.Restore(prev)

	go func() {
		<-t.resume
		// This thread is running for the first time, dispatched by some
		// other thread's schedule() call with bigLock still logically
		// held (see sched.go). There is no enclosing Disable call on this
		// goroutine's own stack to Restore from, so it must open the
		// critical section's exit itself, exactly as the reference
		// kernel's thread startup stub enables interrupts before calling
		// into the thread's real function.
		k.Restore(IntrOn)
		entry(t, arg)
		t.Exit()
	}()

	prev = k.Disable()
	k.unblockLocked(t)
	k.Restore(prev)
	k.PreemptIfOutranked()

	prev = k.Disable()
	k.logEvent(Event{Kind: EventCreate, Thread: t})
	k.Restore(prev)
	return t, nil
}

// nextTIDLocked allocates a TID. The reference design routes this through
// the Lock primitive because its only caller is never in interrupt context
// (§5); here interrupts are already disabled by Create's own critical
// section, so a plain counter under the same bigLock suffices without a
// second, nested lock acquisition.
func (k *Kernel) nextTIDLocked() ID {
	k.nextTID++
	return k.nextTID
}

// Unblock moves t from BLOCKED to READY and inserts it into the ready queue
// in priority order (§4.3). It does not preempt; callers decide whether to
// call PreemptIfOutranked afterward.
func (k *Kernel) Unblock(t *Thread) {
	prev := k.Disable()
	defer k.Restore(prev)
	k.unblockLocked(t)
}

// unblockLocked requires interrupts already disabled.
func (k *Kernel) unblockLocked(t *Thread) {
	if t.status != StatusBlocked {
		k.fatalf("thread %q (%d): unblock of a non-blocked thread (status %s)", t.name, t.id, t.status)
	}
	t.status = StatusReady
	k.ready.InsertOrdered(&t.readyLink, priorityDesc)
	k.logEvent(Event{Kind: EventUnblock, Thread: t})
}

// Block transitions the current thread RUNNING -> BLOCKED and yields to the
// scheduler. Precondition: interrupts already disabled by the caller, which
// must have already placed the thread on the relevant wait queue (§4.3).
func (t *Thread) Block() {
	t.k.requireCurrent(t, "block")
	t.k.schedule(t, StatusBlocked)
}

// Yield transitions the current thread RUNNING -> READY, re-inserts it into
// the ready queue in priority order, and reschedules (§4.3).
func (t *Thread) Yield() {
	prev := t.k.Disable()
	t.k.requireCurrent(t, "yield")
	t.k.ready.InsertOrdered(&t.readyLink, priorityDesc)
	t.k.schedule(t, StatusReady)
	t.k.Restore(prev)
}

// Exit transitions the current thread RUNNING -> DYING and reschedules.
// Unlike Block and Yield, schedule never parks the calling goroutine in
// this case (there is no future dispatch to resume it) — it hands off to
// the next thread with bigLock still held, for that thread's own Restore to
// release, and Exit simply returns without a Restore of its own, letting
// the goroutine that ran this thread's Entry unwind and terminate.
func (t *Thread) Exit() {
	t.k.Disable()
	t.k.requireCurrent(t, "exit")
	t.k.logEvent(Event{Kind: EventExit, Thread: t})
	t.k.schedule(t, StatusDying)
}

// SetPriority updates the current thread's base priority, recomputes its
// effective priority, and runs the preemption check (§4.3).
func (t *Thread) SetPriority(p int) {
	if p < PriMin || p > PriMax {
		panic(fmt.Sprintf("kernel: priority %d out of range [%d,%d]", p, PriMin, PriMax))
	}
	prev := t.k.Disable()
	t.k.requireCurrent(t, "set_priority")
	t.basePriority = p
	t.recomputePriority()
	t.k.Restore(prev)
	t.k.PreemptIfOutranked()
}

// GetPriority returns the thread's current effective priority.
func (t *Thread) GetPriority() int {
	prev := t.k.Disable()
	defer t.k.Restore(prev)
	return t.priority
}

// CheckPreempt is the cooperative stand-in for asynchronous time-slice
// preemption (see SPEC_FULL.md): long-running compute threads are expected
// to call this periodically, the same way the reference kernel's timer
// interrupt would force a yield on return. It is a no-op unless this
// thread's slice has expired or a higher-priority thread is ready.
func (t *Thread) CheckPreempt() {
	t.k.requireCurrent(t, "check_preempt")
	t.k.PreemptIfOutranked()
}

// PreemptIfOutranked yields the current thread if the ready queue's front
// strictly outranks it, or if the running thread's time slice has expired
// (§4.4, §4.3).
func (k *Kernel) PreemptIfOutranked() {
	prev := k.Disable()
	cur := k.current
	outranked := false
	if front := k.ready.Front(); front != nil {
		if front.Owner.(*Thread).priority > cur.priority {
			outranked = true
		}
	}
	sliceExpired := k.sliceExpired
	k.sliceExpired = false
	k.Restore(prev)

	if outranked || sliceExpired {
		cur.Yield()
	}
}

// requireCurrent aborts the kernel if t is not the thread the scheduler
// believes is running — an invalid call from a thread that is not current
// is a programmer error (§7), since every suspension-capable entry point
// above is only ever legitimately reached by current's own goroutine.
func (k *Kernel) requireCurrent(t *Thread, op string) {
	prev := k.Disable()
	cur := k.current
	k.Restore(prev)
	if cur != t {
		k.fatalf("thread %q (%d): %s called by non-current thread (current is %q (%d))", t.name, t.id, op, cur.name, cur.id)
	}
}

// fatalf logs and halts the kernel for a contract violation (§7): later
// execution on a violated invariant would corrupt unrelated threads, so
// there is no recoverable path here, only a loud, structured failure.
func (k *Kernel) fatalf(format string, args ...any) {
	logrus.WithField("component", "kernel").Errorf(format, args...)
	panic(fmt.Sprintf(format, args...))
}

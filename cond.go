package kernel

// Cond is a Mesa-semantics condition variable (§4.7): waiters park on a
// private per-wait semaphore slot rather than directly on a shared count,
// so Signal can wake exactly one, specific, highest-priority waiter. As
// with every Mesa condvar, a woken thread must re-check its predicate in a
// loop after Wait returns — this module does not, and cannot, enforce that
// at the call site.
type Cond struct {
	k       *Kernel
	waiters *List // Link.Owner = *condWaiter, ordered by waiting thread priority
}

// condWaiter is one thread's private wait slot: a binary semaphore that
// only Signal/Broadcast ever raises, and only this waiter ever lowers.
type condWaiter struct {
	thread *Thread
	sema   Semaphore
	link   Link
}

// Init prepares an empty condition variable, owned by k.
func (c *Cond) Init(k *Kernel) {
	c.k = k
	c.waiters = NewList()
}

func condWaiterDesc(a, b *Link) bool {
	return a.Owner.(*condWaiter).thread.priority > b.Owner.(*condWaiter).thread.priority
}

// Wait atomically releases lock and blocks the calling thread until a
// matching Signal or Broadcast, then reacquires lock before returning
// (§4.7 cond_wait). The caller must hold lock.
func (c *Cond) Wait(lock *Lock, t *Thread) {
	if !lock.HeldBy(t) {
		c.k.fatalf("thread %q (%d): cond_wait without holding the associated lock", t.name, t.id)
	}

	w := &condWaiter{thread: t}
	w.sema.Init(c.k, 0)
	w.link.Owner = w

	prev := c.k.Disable()
	c.waiters.InsertOrdered(&w.link, condWaiterDesc)
	c.k.Restore(prev)

	lock.Release(t)
	w.sema.Down(t)
	lock.Acquire(t)
}

// Signal wakes the highest-priority waiter, if any (§4.7 cond_signal). The
// caller must hold lock, matching the reference contract even though this
// implementation does not need the lock itself to wake a waiter.
func (c *Cond) Signal(lock *Lock, t *Thread) {
	if !lock.HeldBy(t) {
		c.k.fatalf("thread %q (%d): cond_signal without holding the associated lock", t.name, t.id)
	}
	prev := c.k.Disable()
	if c.waiters.Empty() {
		c.k.Restore(prev)
		return
	}
	c.waiters.Sort(condWaiterDesc)
	link := c.waiters.PopFront()
	w := link.Owner.(*condWaiter)
	c.k.logEvent(Event{Kind: EventWake, Thread: w.thread})
	c.k.Restore(prev)

	w.sema.Up(t)
}

// Broadcast wakes every current waiter, highest priority first, by
// repeatedly signalling until none remain (§4.7 cond_broadcast).
func (c *Cond) Broadcast(lock *Lock, t *Thread) {
	for !c.waiters.Empty() {
		c.Signal(lock, t)
	}
}

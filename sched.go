package kernel

// schedule is the dispatcher (§4.4). It requires interrupts already
// disabled and t == the kernel's current thread. It performs, in order:
// draining the destruction queue, recording t's new status, selecting the
// next thread to run, and — if that thread differs from t — the context
// switch itself.
func (k *Kernel) schedule(t *Thread, newStatus Status) {
	k.reapLocked()

	t.status = newStatus
	next := k.pickNextLocked()
	next.status = StatusRunning
	k.sliceTicks = 0
	k.sliceExpired = false

	if next == t {
		// Still the highest-priority runnable thread (a Yield that found
		// nothing else ready to take its place): no switch needed.
		return
	}

	if t.status == StatusDying && t != k.main {
		k.destroy.PushBack(&t.readyLink)
	}

	k.logEvent(Event{Kind: EventDispatch, Thread: next})
	k.current = next
	next.resume <- struct{}{}

	// bigLock is not released here: it stays logically held across the
	// handoff (see intr.go's Disable/Restore doc comment) and is released
	// by next's goroutine when it reaches a matching Restore — either the
	// enclosing critical section next resumes into once its own park point
	// below returns, or, for a thread running for the very first time, the
	// explicit Restore(IntrOn) its launch wrapper performs in place of an
	// enclosing Disable call it never made (createThread in thread.go).
	if t.status != StatusDying {
		<-t.resume
	}
	// If t is dying, it never parks and never reaches its own Restore:
	// its caller was Exit, which made no Restore call of its own for
	// exactly this reason. Whatever runs next inherits the obligation.
}

// reapLocked releases every thread queued for destruction since the last
// scheduling event (§4.4 step 1). The reference kernel frees the dying
// thread's page here because it cannot safely free its own stack while
// still running on it; this module has no manual storage to release, but
// keeps the same "reap on the next scheduler entry, never synchronously at
// Exit" ordering, and uses the point to finalize thread bookkeeping and
// unblock anything waiting on the thread's completion.
func (k *Kernel) reapLocked() {
	for {
		link := k.destroy.PopFront()
		if link == nil {
			return
		}
		dead := link.Owner.(*Thread)
		k.threadCount--
		close(dead.done)
	}
}

// pickNextLocked selects the next thread to run: the highest-priority ready
// thread, or idle if none is ready (§4.4 step 3).
func (k *Kernel) pickNextLocked() *Thread {
	if link := k.ready.PopFront(); link != nil {
		return link.Owner.(*Thread)
	}
	if k.idle == nil {
		k.fatalf("kernel: scheduler invoked with no ready thread before Start (idle thread not yet created)")
	}
	return k.idle
}

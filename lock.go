package kernel

// Lock is a single-holder mutex with priority donation (§4.6). The zero
// value is not usable; call Init.
type Lock struct {
	k      *Kernel
	holder *Thread
	sema   Semaphore
}

// Init prepares an unheld lock, owned by k.
func (l *Lock) Init(k *Kernel) {
	l.k = k
	l.holder = nil
	l.sema.Init(k, 1)
}

// HeldBy reports whether t currently holds l.
func (l *Lock) HeldBy(t *Thread) bool {
	prev := l.k.Disable()
	defer l.k.Restore(prev)
	return l.holder == t
}

// Acquire blocks until l is free, donating t's priority up the chain of
// lock holders if t outranks the current holder, to at most
// MaxDonationDepth links (§4.6 lock_acquire).
func (l *Lock) Acquire(t *Thread) {
	prev := l.k.Disable()
	if holder := l.holder; holder != nil && holder != t {
		l.donate(t, holder)
	}
	l.k.Restore(prev)

	l.sema.Down(t)

	prev = l.k.Disable()
	l.holder = t
	t.waitingLock = nil
	l.k.Restore(prev)
}

// donate registers t as a donor of holder and walks the chain of nested
// lock holders (§4.6 "Nested donation"), recomputing each link's effective
// priority and continuing only while doing so actually raised it and that
// thread is itself blocked waiting on a further lock, up to
// MaxDonationDepth hops. Requires interrupts already disabled. A thread can
// only ever be blocked on one lock at a time, so t's donationLink is only
// ever a member of one donors list (holder's); every other thread on the
// chain was already registered as a donor of its own holder when it first
// blocked, so only the first hop needs a list insertion.
func (l *Lock) donate(t *Thread, holder *Thread) {
	t.waitingLock = l
	if !t.donationLink.InList() {
		holder.donors.InsertOrdered(&t.donationLink, priorityDesc)
	}

	cur := holder
	for depth := 0; depth < MaxDonationDepth; depth++ {
		before := cur.priority
		cur.recomputePriority()
		if cur.priority == before {
			break
		}
		l.k.logEvent(Event{Kind: EventDonate, Thread: cur, Detail: t.name})

		next := cur.waitingLock
		if next == nil {
			break
		}
		nextHolder := next.holder
		if nextHolder == nil {
			break
		}
		cur = nextHolder
	}
}

// Release gives up l, removing from the holder's donor list exactly the
// donations that were waiting on this particular lock (§4.6 lock_release's
// selective removal — a holder juggling two locks keeps any donation tied
// to the other one), recomputes the holder's own priority, and wakes the
// next waiter.
func (l *Lock) Release(t *Thread) {
	prev := l.k.Disable()
	l.holder = nil

	var stale []*Link
	t.donors.Each(func(link *Link) {
		if link.Owner.(*Thread).waitingLock == l {
			stale = append(stale, link)
		}
	})
	for _, link := range stale {
		donor := link.Owner.(*Thread)
		t.donors.Remove(link)
		donor.waitingLock = nil
		l.k.logEvent(Event{Kind: EventDonateRemove, Thread: t, Detail: donor.name})
	}
	t.recomputePriority()
	l.k.Restore(prev)

	l.sema.Up(t)
}

// TryAcquire attempts a non-blocking acquire; it never donates, matching
// the spec's definition exactly (§9 open question: resolved as specified).
func (l *Lock) TryAcquire(t *Thread) bool {
	if !l.sema.TryDown(t) {
		return false
	}
	prev := l.k.Disable()
	l.holder = t
	l.k.Restore(prev)
	return true
}

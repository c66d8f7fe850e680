package kernel

// Semaphore is a counting semaphore (§4.5): a non-negative value plus a
// priority-ordered wait list. The zero value is not usable; call Init.
type Semaphore struct {
	k       *Kernel
	value   uint
	waiters *List
}

// Init prepares a semaphore with the given starting value, owned by k.
func (s *Semaphore) Init(k *Kernel, value uint) {
	s.k = k
	s.value = value
	s.waiters = NewList()
}

// Down blocks the calling thread until the semaphore's value is positive,
// then atomically decrements it (§4.5 sema_down). t must be the caller's
// own current thread.
func (s *Semaphore) Down(t *Thread) {
	prev := s.k.Disable()
	for s.value == 0 {
		s.waiters.InsertOrdered(&t.readyLink, priorityDesc)
		t.Block()
	}
	s.value--
	s.k.Restore(prev)
}

// TryDown attempts a non-blocking decrement (§4.5 sema_try_down). It never
// donates and never blocks, matching the spec's definition exactly.
func (s *Semaphore) TryDown(t *Thread) bool {
	prev := s.k.Disable()
	defer s.k.Restore(prev)
	if s.value == 0 {
		return false
	}
	s.value--
	return true
}

// Up increments the semaphore's value and, if any thread is waiting, wakes
// the highest-priority waiter (§4.5 sema_up). It runs the preemption check
// afterward, since waking a higher-priority thread than the caller must
// make it run immediately.
func (s *Semaphore) Up(t *Thread) {
	prev := s.k.Disable()
	s.value++
	var woken *Thread
	if !s.waiters.Empty() {
		s.waiters.Sort(priorityDesc)
		link := s.waiters.PopFront()
		woken = link.Owner.(*Thread)
		s.k.unblockLocked(woken)
	}
	s.k.Restore(prev)

	if woken != nil {
		s.k.PreemptIfOutranked()
	}
}

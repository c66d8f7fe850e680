package kernel

// Level is the state of the (simulated) interrupt-enable bit.
type Level bool

const (
	// IntrOff: interrupts disabled, i.e. a critical section is in progress.
	IntrOff Level = false
	// IntrOn: interrupts enabled, normal execution.
	IntrOn Level = true
)

// AreEnabled reports whether interrupts are currently enabled on k.
func (k *Kernel) AreEnabled() bool {
	k.bigLock.Lock()
	defer k.bigLock.Unlock()
	return bool(k.enabled)
}

// Disable disables interrupts and returns the previous level, for later use
// with Restore. Every critical section in this package follows the pattern:
//
//	prev := k.Disable()
//	... touch ready queue / waiters / donors / sleep list ...
//	k.Restore(prev)
//
// bigLock stands in for the single simulated CPU's interrupt-enable bit.
// A critical section that spans a context switch is not confined to one
// goroutine: the outgoing thread's goroutine locks bigLock, and the
// incoming thread's goroutine unlocks it when it reaches its own Restore
// (or, on its first run, the Restore(IntrOn) its launch wrapper performs).
// sync.Mutex permits an unlock from a goroutine other than the locker, and
// each thread's own Disable/Restore pair still reads as matched in its own
// code.
func (k *Kernel) Disable() Level {
	k.bigLock.Lock()
	prev := k.enabled
	k.enabled = IntrOff
	return prev
}

// Restore sets the interrupt level back to level and ends the critical
// section Disable began. Restoring IntrOff is a no-op on the level itself
// (interrupts stay off) but still releases the lock, matching "restoring
// DISABLED is a no-op" from the intrinsics contract.
func (k *Kernel) Restore(level Level) {
	if level == IntrOn {
		k.enabled = IntrOn
	}
	k.bigLock.Unlock()
}

// Barrier forbids reordering memory operations across it. Go's memory model
// already forbids a compiler from reordering across a call with unknown
// side effects, so this exists only to name the intent at busy-wait call
// sites, matching the reference intrinsics layer's barrier() primitive.
func Barrier() {}

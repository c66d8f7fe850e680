// Copyright 2020 Nathan Taylor (nbtaylor@gmail.com)
//
// Permission is hereby granted, free of charge, to any person obtaining a copy of
// this software and associated documentation files (the "Software"), to deal in
// the Software without restriction, including without limitation the rights to
// use, copy, modify, merge, publish, distribute, sublicense, and/or sell copies
// of the Software, and to permit persons to whom the Software is furnished to do
// so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package kernel

// RWLock is a multiple-reader/single-writer lock built entirely out of this
// package's own Lock and Cond (not a second, independent primitive layer):
// an internal Lock guards a small state word (activeReaders, writerActive),
// and a Cond parks whoever is incompatible with the current state until it
// changes. This is the same "state word plus a compatibility check, block
// until someone else's release makes you compatible" shape the donating
// Lock's own acquire/release pair uses, generalized from one writer to one
// writer XOR many readers. The zero value is not usable; call Init.
//
// Unlike Lock, RWLock does not donate priority to readers on a writer's
// behalf: nothing in this package's spec calls for readers-writer donation,
// and the donation walk (§4.6) is defined strictly in terms of a single
// holder, which a shared read hold does not have.
type RWLock struct {
	mu   Lock
	free Cond

	activeReaders int
	writerActive  bool
}

// Init prepares an unheld RWLock, owned by k.
func (rw *RWLock) Init(k *Kernel) {
	rw.mu.Init(k)
	rw.free.Init(k)
	rw.activeReaders = 0
	rw.writerActive = false
}

// RLock acquires a read hold, blocking only while a writer holds the lock.
func (rw *RWLock) RLock(t *Thread) {
	rw.mu.Acquire(t)
	for rw.writerActive {
		rw.free.Wait(&rw.mu, t)
	}
	rw.activeReaders++
	rw.mu.Release(t)
}

// RUnlock releases a read hold, waking any parked writer once the last
// reader leaves.
func (rw *RWLock) RUnlock(t *Thread) {
	rw.mu.Acquire(t)
	rw.activeReaders--
	if rw.activeReaders == 0 {
		rw.free.Broadcast(&rw.mu, t)
	}
	rw.mu.Release(t)
}

// Lock acquires the exclusive write hold, blocking while either a writer
// or any reader holds the lock.
func (rw *RWLock) Lock(t *Thread) {
	rw.mu.Acquire(t)
	for rw.writerActive || rw.activeReaders > 0 {
		rw.free.Wait(&rw.mu, t)
	}
	rw.writerActive = true
	rw.mu.Release(t)
}

// Unlock releases the write hold, waking every thread parked on an
// incompatible acquire so readers and writers alike can recheck the state.
func (rw *RWLock) Unlock(t *Thread) {
	rw.mu.Acquire(t)
	rw.writerActive = false
	rw.free.Broadcast(&rw.mu, t)
	rw.mu.Release(t)
}

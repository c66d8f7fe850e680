package kernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRWLockReadersConcurrent(t *testing.T) {
	k := newTestKernel(t)

	var rw RWLock
	rw.Init(k)
	var entered, release, done Semaphore
	entered.Init(k, 0)
	release.Init(k, 0)
	done.Init(k, 0)

	spawn := func(name string) {
		k.Create(name, PriDefault, func(self *Thread, _ any) {
			rw.RLock(self)
			entered.Up(self)
			release.Down(self)
			rw.RUnlock(self)
			done.Up(self)
		}, nil)
	}
	spawn("r1")
	spawn("r2")

	// Both readers must be able to enter before either releases: two reads
	// never block one another.
	waitFor(&entered, k.Current(), 2)
	release.Up(k.Current())
	release.Up(k.Current())
	waitFor(&done, k.Current(), 2)
}

func TestRWLockWriterExcludesReaders(t *testing.T) {
	k := newTestKernel(t)

	var rw RWLock
	rw.Init(k)
	var writerIn, writerRelease, readerDone Semaphore
	writerIn.Init(k, 0)
	writerRelease.Init(k, 0)
	readerDone.Init(k, 0)

	var order []string

	k.Create("writer", PriDefault, func(self *Thread, _ any) {
		rw.Lock(self)
		order = append(order, "writer-in")
		writerIn.Up(self)
		writerRelease.Down(self)
		rw.Unlock(self)
	}, nil)
	waitFor(&writerIn, k.Current(), 1)

	k.Create("reader", PriDefault, func(self *Thread, _ any) {
		rw.RLock(self)
		order = append(order, "reader-in")
		rw.RUnlock(self)
		readerDone.Up(self)
	}, nil)

	writerRelease.Up(k.Current())
	waitFor(&readerDone, k.Current(), 1)

	require.Equal(t, []string{"writer-in", "reader-in"}, order)
}

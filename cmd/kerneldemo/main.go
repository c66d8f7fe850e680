// Command kerneldemo boots the simulated kernel and runs one of the named
// concrete scenarios (§8) to completion, printing the resulting schedule
// trace. It plays the role the reference kernel's boot loader plays toward
// system_init/system_start (§6 "toward the startup/loader").
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/threadkit/kernel"
)

var (
	configPath string
	verbose    bool
)

func main() {
	root := &cobra.Command{
		Use:   "kerneldemo <scenario>",
		Short: "Run a scheduler scenario against the simulated kernel",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a TOML kernel config (defaults applied if omitted)")
	root.PersistentFlags().BoolVar(&verbose, "verbose", false, "log every scheduling event at debug level")

	for name := range scenarios {
		root.ValidArgs = append(root.ValidArgs, name)
	}

	if err := root.Execute(); err != nil {
		logrus.WithError(err).Error("kerneldemo: run failed")
		os.Exit(1)
	}
}

func runScenario(cmd *cobra.Command, args []string) error {
	name := args[0]
	scenario, ok := scenarios[name]
	if !ok {
		return fmt.Errorf("unknown scenario %q (known: %v)", name, scenarioNames())
	}

	if verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}

	cfg := kernel.DefaultConfig()
	if configPath != "" {
		loaded, err := kernel.LoadConfig(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	k := kernel.NewKernel(cfg)
	// The callback runs inside the kernel's critical section and so must not
	// call back into the kernel (k.Ticks included); events are numbered in
	// delivery order instead.
	seq := 0
	k.OnEvent(func(e kernel.Event) {
		seq++
		logrus.WithFields(logrus.Fields{
			"seq":    seq,
			"kind":   e.Kind,
			"thread": e.Thread.Name(),
			"detail": e.Detail,
		}).Debug("kernel event")
		fmt.Printf("[event %4d] %-13s %-10s %s\n", seq, e.Kind, e.Thread.Name(), e.Detail)
	})

	k.Start()
	defer k.Stop()

	scenario(k)
	return nil
}

func scenarioNames() []string {
	names := make([]string, 0, len(scenarios))
	for name := range scenarios {
		names = append(names, name)
	}
	return names
}

var scenarios = map[string]func(*kernel.Kernel){
	"priority-yield":     scenarioPriorityYield,
	"donation-single":    scenarioDonationSingle,
	"donation-nested":    scenarioDonationNested,
	"donation-multilock": scenarioDonationMultiLock,
	"condvar-priority":   scenarioCondvarPriority,
	"sleep-order":        scenarioSleepOrder,
}

// Every scenario below waits for its worker threads' completion through a
// kernel-native Semaphore rather than a raw Go channel: only a kernel
// primitive (Semaphore.Down, Lock.Acquire, Cond.Wait, Thread.Sleep) actually
// calls back into the scheduler, so "main" itself must block on one of these
// to give the scheduler a reason to dispatch anything else. A raw channel
// receive performed by whichever thread the kernel believes is current would
// never return: nothing would ever call back into the scheduler to notice
// the channel had become ready.

// scenarioPriorityYield: "high" outranks main and so preempts it at
// creation, running to completion before Create returns; "low" runs only
// once main blocks, then lowers and raises its own priority with nothing
// ready that outranks it, so neither SetPriority call yields.
func scenarioPriorityYield(k *kernel.Kernel) {
	var done kernel.Semaphore
	done.Init(k, 0)

	k.Create("low", 20, func(self *kernel.Thread, _ any) {
		self.SetPriority(10)
		self.SetPriority(50)
		done.Up(self)
	}, nil)
	k.Create("high", 40, func(self *kernel.Thread, _ any) {}, nil)

	done.Down(k.Current())
}

// scenarioDonationSingle: a high-priority thread blocks on a lock held by a
// low-priority thread and donates until release.
func scenarioDonationSingle(k *kernel.Kernel) {
	var lock kernel.Lock
	lock.Init(k)
	var acquired, done kernel.Semaphore
	acquired.Init(k, 0)
	done.Init(k, 0)

	k.Create("low", 10, func(self *kernel.Thread, _ any) {
		lock.Acquire(self)
		acquired.Up(self)
		self.Sleep(5)
		lock.Release(self)
	}, nil)

	acquired.Down(k.Current())
	k.Create("high", 50, func(self *kernel.Thread, _ any) {
		lock.Acquire(self)
		lock.Release(self)
		done.Up(self)
	}, nil)
	done.Down(k.Current())
}

// scenarioDonationNested: three threads chained across two locks, donating
// priority transitively from the highest to the lowest.
func scenarioDonationNested(k *kernel.Kernel) {
	var lockA, lockB kernel.Lock
	lockA.Init(k)
	lockB.Init(k)

	var lowHasA, midHasB, done kernel.Semaphore
	lowHasA.Init(k, 0)
	midHasB.Init(k, 0)
	done.Init(k, 0)

	k.Create("low", 10, func(self *kernel.Thread, _ any) {
		lockA.Acquire(self)
		lowHasA.Up(self)
		self.Sleep(8)
		lockA.Release(self)
	}, nil)
	lowHasA.Down(k.Current())

	k.Create("mid", 20, func(self *kernel.Thread, _ any) {
		lockB.Acquire(self)
		midHasB.Up(self)
		lockA.Acquire(self)
		lockA.Release(self)
		lockB.Release(self)
	}, nil)
	midHasB.Down(k.Current())

	k.Create("high", 50, func(self *kernel.Thread, _ any) {
		lockB.Acquire(self)
		lockB.Release(self)
		done.Up(self)
	}, nil)
	done.Down(k.Current())
}

// scenarioDonationMultiLock: a thread holding two locks should keep the
// donation tied to whichever lock it still holds after releasing the other.
func scenarioDonationMultiLock(k *kernel.Kernel) {
	var lockA, lockB kernel.Lock
	lockA.Init(k)
	lockB.Init(k)

	var holderReady, done kernel.Semaphore
	holderReady.Init(k, 0)
	done.Init(k, 0)

	k.Create("holder", 10, func(self *kernel.Thread, _ any) {
		lockA.Acquire(self)
		lockB.Acquire(self)
		holderReady.Up(self)
		self.Sleep(4)
		lockA.Release(self) // waiterA's donation should drop; waiterB's should remain
		self.Sleep(4)
		lockB.Release(self)
	}, nil)
	holderReady.Down(k.Current())

	k.Create("waiterA", 30, func(self *kernel.Thread, _ any) {
		lockA.Acquire(self)
		lockA.Release(self)
	}, nil)
	k.Create("waiterB", 50, func(self *kernel.Thread, _ any) {
		lockB.Acquire(self)
		lockB.Release(self)
		done.Up(self)
	}, nil)
	done.Down(k.Current())
}

// scenarioCondvarPriority: multiple waiters block on the same condition
// variable; broadcast must wake them in priority order.
func scenarioCondvarPriority(k *kernel.Kernel) {
	var lock kernel.Lock
	var cv kernel.Cond
	lock.Init(k)
	cv.Init(k)
	ready := false

	var waiting, done kernel.Semaphore
	waiting.Init(k, 0)
	done.Init(k, 0)

	for i, pri := range []int{15, 45, 30} {
		name := fmt.Sprintf("waiter%d", i)
		pri := pri
		k.Create(name, pri, func(self *kernel.Thread, _ any) {
			lock.Acquire(self)
			waiting.Up(self)
			for !ready {
				cv.Wait(&lock, self)
			}
			lock.Release(self)
			done.Up(self)
		}, nil)
	}
	for i := 0; i < 3; i++ {
		waiting.Down(k.Current())
	}

	k.Create("signaler", 60, func(self *kernel.Thread, _ any) {
		lock.Acquire(self)
		ready = true
		cv.Broadcast(&lock, self)
		lock.Release(self)
	}, nil)
	for i := 0; i < 3; i++ {
		done.Down(k.Current())
	}
}

// scenarioSleepOrder: threads sleep for different durations and must wake
// in deadline order regardless of creation order.
func scenarioSleepOrder(k *kernel.Kernel) {
	var done kernel.Semaphore
	done.Init(k, 0)

	for i, ticks := range []uint64{30, 10, 20} {
		name := fmt.Sprintf("sleeper%d", i)
		n := ticks
		k.Create(name, kernel.PriDefault, func(self *kernel.Thread, _ any) {
			self.Sleep(n)
			done.Up(self)
		}, nil)
	}
	for i := 0; i < 3; i++ {
		done.Down(k.Current())
	}
}

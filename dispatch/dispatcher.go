// Package dispatch implements the multi-VM concurrency layer: a fixed
// pool of sibling VMs backing `async`, `finish`, and `future`, each
// running on its own goroutine with its own heap and no shared state
// beyond the pool bookkeeping itself.
package dispatch

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sasha-s/go-deadlock"

	"github.com/loxlang/loxvm/internal/logging"
	"github.com/loxlang/loxvm/value"
	"github.com/loxlang/loxvm/vmi"
)

var logger = logging.For("dispatch")

// DefaultPoolSize bounds the number of sibling VMs a Dispatcher will
// run concurrently when no lox.toml overrides it.
const DefaultPoolSize = 32

type slot struct {
	assigned bool
	vm       *vmi.VM
}

// childOutcome is the join record a spawned VM reports back through its
// finish group: which pool slot it occupied and, if it failed, why.
// It never crosses a process or goroutine-unsafe boundary — it travels
// entirely in-process over outcomes, a typed Go channel — so it is a
// plain struct rather than a wire-encoded payload.
type childOutcome struct {
	Slot int
	Err  string
}

type finishGroup struct {
	wg       sync.WaitGroup
	outcomes chan childOutcome
}

// Dispatcher is the concrete vmi.Dispatcher backing real concurrency: it
// owns the sibling-VM pool, the host-goroutine-id-to-slot map, and the
// per-VM finish-group stacks. Two locks guard the two pieces of shared
// mutable state named in the design (vmPoolMu, idToVMMu); a third guards
// the finish-group bookkeeping, which the design folds into "the
// dispatcher's shared state" without further subdividing.
type Dispatcher struct {
	vmPoolMu deadlock.Mutex
	pool     []slot

	idToVMMu deadlock.Mutex
	idToVM   map[uuid.UUID]int

	groupsMu sync.Mutex
	groups   map[*vmi.VM][]*finishGroup

	failed atomic.Bool
}

// New returns an empty dispatcher, sized to DefaultPoolSize, ready to
// back a root VM's execution.
func New() *Dispatcher {
	return NewWithPoolSize(DefaultPoolSize)
}

// NewWithPoolSize returns an empty dispatcher whose sibling-VM pool
// holds at most poolSize concurrent VMs, as loaded from a lox.toml.
func NewWithPoolSize(poolSize int) *Dispatcher {
	return &Dispatcher{
		pool:   make([]slot, poolSize),
		idToVM: make(map[uuid.UUID]int),
		groups: make(map[*vmi.VM][]*finishGroup),
	}
}

// Failed reports whether any sibling under this dispatcher has failed.
// The flag is dispatcher-wide rather than per-VM: a Dispatcher's scope
// is one root interpretation's whole concurrency tree, and a failure
// anywhere in that tree is defined to abandon the whole tree.
func (d *Dispatcher) Failed(vm *vmi.VM) bool {
	return d.failed.Load()
}

// SlotsInUse reports how many pool slots are currently occupied by a
// running sibling VM. Exposed for tests and diagnostics; not part of
// the vmi.Dispatcher interface.
func (d *Dispatcher) SlotsInUse() int {
	d.vmPoolMu.Lock()
	defer d.vmPoolMu.Unlock()
	n := 0
	for i := range d.pool {
		if d.pool[i].assigned {
			n++
		}
	}
	return n
}

func (d *Dispatcher) acquireSlot() int {
	for {
		d.vmPoolMu.Lock()
		for i := range d.pool {
			if !d.pool[i].assigned {
				d.pool[i].assigned = true
				d.vmPoolMu.Unlock()
				return i
			}
		}
		d.vmPoolMu.Unlock()
		time.Sleep(time.Millisecond)
	}
}

func (d *Dispatcher) releaseSlot(idx int, id uuid.UUID) {
	d.idToVMMu.Lock()
	delete(d.idToVM, id)
	d.idToVMMu.Unlock()

	d.vmPoolMu.Lock()
	d.pool[idx] = slot{}
	d.vmPoolMu.Unlock()
}

func (d *Dispatcher) currentGroup(parent *vmi.VM) *finishGroup {
	d.groupsMu.Lock()
	defer d.groupsMu.Unlock()
	stack := d.groups[parent]
	if len(stack) == 0 {
		return nil
	}
	return stack[len(stack)-1]
}

// FinishBegin opens a new join level for vm.
func (d *Dispatcher) FinishBegin(vm *vmi.VM) {
	d.groupsMu.Lock()
	defer d.groupsMu.Unlock()
	d.groups[vm] = append(d.groups[vm], &finishGroup{outcomes: make(chan childOutcome, cap(d.pool))})
}

// FinishEnd blocks until every child spawned at vm's current join level
// has completed, then closes that level. A failing child's outcome sets
// the dispatcher-wide failure flag once read off the outcomes channel.
func (d *Dispatcher) FinishEnd(vm *vmi.VM) {
	d.groupsMu.Lock()
	stack := d.groups[vm]
	if len(stack) == 0 {
		d.groupsMu.Unlock()
		return
	}
	grp := stack[len(stack)-1]
	d.groups[vm] = stack[:len(stack)-1]
	d.groupsMu.Unlock()

	grp.wg.Wait()
	close(grp.outcomes)
	for outcome := range grp.outcomes {
		if outcome.Err != "" {
			d.failed.Store(true)
		}
	}
}

// spawn snapshots parent, seeds a fresh sibling VM from that snapshot,
// registers it in parent's current finish group (if any is open), and
// runs it to completion on its own goroutine. onDone, if non-nil,
// receives the child's terminal error (nil on success).
func (d *Dispatcher) spawn(parent *vmi.VM, resumeIP int, onDone func(error)) {
	idx := d.acquireSlot()
	id := uuid.New()

	d.idToVMMu.Lock()
	d.idToVM[id] = idx
	d.idToVMMu.Unlock()

	grp := d.currentGroup(parent)
	if grp != nil {
		grp.wg.Add(1)
	}

	snap := parent.Snapshot()
	logger.Info("spawning sibling VM", "slot", idx, "thread_id", id, "resume_ip", resumeIP)

	go func() {
		defer d.releaseSlot(idx, id)

		child := vmi.NewChildFrom(snap, parent.Stdout)
		child.Stdin = parent.Stdin
		child.Dispatcher = d

		d.vmPoolMu.Lock()
		d.pool[idx].vm = child
		d.vmPoolMu.Unlock()

		rerr := child.ResumeAt(resumeIP)

		var err error
		if rerr != nil {
			err = rerr
			logger.Warn("sibling VM failed, propagating thread failure", "slot", idx, "thread_id", id, "error", err)
			d.failed.Store(true)
		} else {
			logger.Info("sibling VM joined", "slot", idx, "thread_id", id)
		}
		if grp != nil {
			outcome := childOutcome{Slot: idx}
			if err != nil {
				outcome.Err = err.Error()
			}
			select {
			case grp.outcomes <- outcome:
			default:
			}
			grp.wg.Done()
		}
		if onDone != nil {
			onDone(err)
		}
	}()
}

// SpawnAsync runs an `async { ... }` block fire-and-forget on a sibling
// VM, joined the next time the enclosing `finish` block ends.
func (d *Dispatcher) SpawnAsync(parent *vmi.VM, resumeIP int) {
	d.spawn(parent, resumeIP, nil)
}

// SpawnFuture runs a `future { ... }` block on a sibling VM and returns
// a Future the parent can block on. The Future resolves to nil when the
// sibling's block completes, or fails with the sibling's error; the
// block's own values are not carried back to the parent.
func (d *Dispatcher) SpawnFuture(parent *vmi.VM, resumeIP int) *vmi.ObjFuture {
	future := parent.SpawnableFuture(-1)
	d.spawn(parent, resumeIP, func(err error) {
		if err != nil {
			future.Fail(err)
		} else {
			future.Resolve(value.Nil)
		}
	})
	return future
}

package dispatch

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/loxlang/loxvm/vmi"
)

func TestAcquireReleaseSlotCycles(t *testing.T) {
	d := New()
	idx := d.acquireSlot()
	if d.pool[idx].assigned != true {
		t.Fatalf("slot %d not marked assigned", idx)
	}
	d.releaseSlot(idx, uuid.Nil)
	d.vmPoolMu.Lock()
	assigned := d.pool[idx].assigned
	d.vmPoolMu.Unlock()
	if assigned {
		t.Fatalf("slot %d still assigned after release", idx)
	}
}

func TestFinishEndWithNoOpenGroupReturnsImmediately(t *testing.T) {
	d := New()
	done := make(chan struct{})
	go func() {
		d.FinishEnd(nil)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("FinishEnd blocked with no open finish group")
	}
}

func TestNewWithPoolSizeSizesThePool(t *testing.T) {
	d := NewWithPoolSize(4)
	if len(d.pool) != 4 {
		t.Fatalf("pool length = %d, want 4", len(d.pool))
	}
}

func TestFinishEndObservesFailedChildOutcome(t *testing.T) {
	d := New()
	vm := (*vmi.VM)(nil)
	d.FinishBegin(vm)
	grp := d.currentGroup(vm)
	grp.wg.Add(1)
	grp.outcomes <- childOutcome{Slot: 0, Err: "boom"}
	grp.wg.Done()

	d.FinishEnd(vm)
	if !d.failed.Load() {
		t.Fatal("expected failed flag to be set after a failing child outcome")
	}
}

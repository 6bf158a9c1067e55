package dispatch_test

import (
	"bytes"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/loxlang/loxvm/dispatch"
	"github.com/loxlang/loxvm/vmi"
)

func interpret(t *testing.T, d *dispatch.Dispatcher, source string) string {
	t.Helper()
	var out bytes.Buffer
	vm := vmi.NewVM(&out)
	vm.Dispatcher = d
	if res, err := vm.Interpret(source); err != nil {
		t.Fatalf("Interpret(%q) failed: %v", source, err)
	} else if res != vmi.InterpretOK {
		t.Fatalf("Interpret(%q) = %v, want InterpretOK", source, res)
	}
	return out.String()
}

func TestFinishJoinsBothAsyncChildrenBeforeContinuing(t *testing.T) {
	d := dispatch.New()
	got := interpret(t, d, `
		finish {
			async { print "a"; }
			async { print "b"; }
		}
		print "c";
	`)
	lines := strings.Split(strings.TrimRight(got, "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines of output, got %q", got)
	}
	first := append([]string{}, lines[:2]...)
	sort.Strings(first)
	if first[0] != "a" || first[1] != "b" {
		t.Fatalf("expected a and b (either order) before c, got %v", lines[:2])
	}
	if lines[2] != "c" {
		t.Fatalf("expected c last, got %q", lines[2])
	}
}

func TestFutureBlocksUntilResolvedOnPropertyAccess(t *testing.T) {
	d := dispatch.New()
	got := interpret(t, d, `
		class Box { init(v) { this.v = v; } }
		var f = future { Box(41); };
		print f.v;
	`)
	if got != "41\n" {
		t.Fatalf("got %q, want %q", got, "41\n")
	}
}

func TestFutureFailurePropagatesToParent(t *testing.T) {
	d := dispatch.New()
	var out bytes.Buffer
	vm := vmi.NewVM(&out)
	vm.Dispatcher = d
	res, err := vm.Interpret(`
		var f = future { print undefinedGlobal; };
		print f.anything;
	`)
	if err == nil {
		t.Fatal("expected Interpret to return a runtime error")
	}
	if res != vmi.InterpretRuntimeError {
		t.Fatalf("Interpret() = %v, want InterpretRuntimeError", res)
	}
}

func TestNestedFinishBlocksJoinIndependently(t *testing.T) {
	d := dispatch.New()
	got := interpret(t, d, `
		finish {
			async { print "outer"; }
			finish {
				async { print "inner"; }
			}
		}
		print "done";
	`)
	if !strings.HasSuffix(got, "done\n") {
		t.Fatalf("expected output to end with done, got %q", got)
	}
	if !strings.Contains(got, "outer") || !strings.Contains(got, "inner") {
		t.Fatalf("expected both outer and inner printed, got %q", got)
	}
}

func TestDispatcherEventuallyReleasesAllSlots(t *testing.T) {
	d := dispatch.New()
	for i := 0; i < 3; i++ {
		interpret(t, d, `finish { async { print "x"; } }`)
	}
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if d.SlotsInUse() == 0 {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("dispatcher still reports %d slots in use", d.SlotsInUse())
}

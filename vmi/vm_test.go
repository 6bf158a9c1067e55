package vmi

import (
	"bytes"
	"strings"
	"testing"
)

func run(t *testing.T, source string) string {
	t.Helper()
	var out bytes.Buffer
	vm := NewVM(&out)
	if _, err := vm.Interpret(source); err != nil {
		t.Fatalf("Interpret(%q) failed: %v", source, err)
	}
	return out.String()
}

func TestArithmeticPrecedence(t *testing.T) {
	if got := run(t, "print 1 + 2 * 3;"); got != "7\n" {
		t.Errorf("got %q, want %q", got, "7\n")
	}
}

func TestStringConcatenation(t *testing.T) {
	src := `var a = "he"; var b = "llo"; print a + b;`
	if got := run(t, src); got != "hello\n" {
		t.Errorf("got %q, want %q", got, "hello\n")
	}
}

func TestRecursiveFibonacci(t *testing.T) {
	src := `fun fib(n){ if (n<2) return n; return fib(n-1)+fib(n-2);} print fib(10);`
	if got := run(t, src); got != "55\n" {
		t.Errorf("got %q, want %q", got, "55\n")
	}
}

func TestClassInitializerAndMethod(t *testing.T) {
	src := `class C { init(x){ this.x = x; } g(){ return this.x + 1; }} print C(41).g();`
	if got := run(t, src); got != "42\n" {
		t.Errorf("got %q, want %q", got, "42\n")
	}
}

func TestSuperInvocation(t *testing.T) {
	src := `class A { greet(){ print "A"; }} class B < A { greet(){ super.greet(); print "B"; }} B().greet();`
	if got := run(t, src); got != "A\nB\n" {
		t.Errorf("got %q, want %q", got, "A\nB\n")
	}
}

func TestSubclassInheritsNonOverriddenMethod(t *testing.T) {
	src := `class A { f(){ return 1; }} class B < A {} print B().f();`
	if got := run(t, src); got != "1\n" {
		t.Errorf("got %q, want %q", got, "1\n")
	}
}

func TestClosureCapturesSharedUpvalue(t *testing.T) {
	src := `var c = 0; fun mk(){ fun inc(){ c = c + 1; return c; } return inc;} var f = mk(); print f(); print f(); print f();`
	if got := run(t, src); got != "1\n2\n3\n" {
		t.Errorf("got %q, want %q", got, "1\n2\n3\n")
	}
}

func TestListSubscriptGetSetLen(t *testing.T) {
	src := `var xs = [10, 20, 30]; print xs[1]; xs[1] = 99; print xs[1]; print len(xs);`
	if got := run(t, src); got != "20\n99\n3\n" {
		t.Errorf("got %q, want %q", got, "20\n99\n3\n")
	}
}

func TestFinishAsyncWithoutDispatcherRunsInline(t *testing.T) {
	src := `finish { async { print "a"; } async { print "b"; } } print "c";`
	got := run(t, src)
	if !strings.Contains(got, "a\n") || !strings.Contains(got, "b\n") || !strings.HasSuffix(got, "c\n") {
		t.Errorf("got %q, want a and b lines followed by c", got)
	}
}

func TestUndefinedGlobalIsRuntimeError(t *testing.T) {
	var out bytes.Buffer
	vm := NewVM(&out)
	_, err := vm.Interpret("print undefinedThing;")
	if err == nil {
		t.Fatal("expected a runtime error for an undefined global")
	}
	if !strings.Contains(err.Error(), "Undefined variable") {
		t.Errorf("error = %q, want mention of 'Undefined variable'", err.Error())
	}
}

func TestRuntimeErrorIncludesStackTrace(t *testing.T) {
	src := `fun bad(){ return 1 + nil; } bad();`
	var out bytes.Buffer
	vm := NewVM(&out)
	_, err := vm.Interpret(src)
	if err == nil {
		t.Fatal("expected a runtime error")
	}
	if !strings.Contains(err.Error(), "in bad") {
		t.Errorf("error trace = %q, want a frame naming 'bad'", err.Error())
	}
}

func TestCompileErrorPropagates(t *testing.T) {
	var out bytes.Buffer
	vm := NewVM(&out)
	result, err := vm.Interpret("var = ;")
	if err == nil {
		t.Fatal("expected a compile error")
	}
	if result != InterpretCompileError {
		t.Errorf("result = %v, want InterpretCompileError", result)
	}
}

func TestGCStressDoesNotCorruptReachableState(t *testing.T) {
	var out bytes.Buffer
	vm := NewVM(&out)
	vm.StressGC = true
	src := `
		fun mk(n) {
			var xs = [];
			var i = 0;
			while (i < n) {
				xs = [xs, i];
				i = i + 1;
			}
			return xs;
		}
		var r = mk(50);
		print len(r);
	`
	if _, err := vm.Interpret(src); err != nil {
		t.Fatalf("Interpret failed under stress GC: %v", err)
	}
	if got := out.String(); got != "2\n" {
		t.Errorf("got %q, want %q", got, "2\n")
	}
}

func TestNativeLenRejectsNonCollection(t *testing.T) {
	var out bytes.Buffer
	vm := NewVM(&out)
	_, err := vm.Interpret("print len(1);")
	if err == nil {
		t.Fatal("expected a runtime error")
	}
}

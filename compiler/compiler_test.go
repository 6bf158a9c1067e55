package compiler

import (
	"bytes"
	"strconv"
	"strings"
	"testing"

	"github.com/loxlang/loxvm/bytecode"
	"github.com/loxlang/loxvm/table"
)

func disassemble(t *testing.T, source string) (string, error) {
	t.Helper()
	fn, err := Compile(source, table.NewInterner())
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	var walk func(f *bytecode.ObjFunction, name string)
	walk = func(f *bytecode.ObjFunction, name string) {
		bytecode.Disassemble(&buf, f.Chunk, name)
		for _, c := range f.Chunk.Constants {
			if nested := bytecode.AsObjFunction(c); nested != nil {
				walk(nested, nested.DisplayName())
			}
		}
	}
	walk(fn, "test")
	return buf.String(), nil
}

func TestCompileArithmeticPrecedence(t *testing.T) {
	out, err := disassemble(t, "print 1 + 2 * 3;")
	if err != nil {
		t.Fatalf("unexpected compile error: %v", err)
	}
	for _, want := range []string{"OP_CONSTANT", "OP_MULTIPLY", "OP_ADD", "OP_PRINT"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
}

func TestCompileVarDeclarationGlobal(t *testing.T) {
	out, err := disassemble(t, `var a = "he";`)
	if err != nil {
		t.Fatalf("unexpected compile error: %v", err)
	}
	if !strings.Contains(out, "OP_DEFINE_GLOBAL") {
		t.Errorf("missing OP_DEFINE_GLOBAL in:\n%s", out)
	}
}

func TestCompileLocalsUseGetSetLocal(t *testing.T) {
	out, err := disassemble(t, "{ var a = 1; print a; }")
	if err != nil {
		t.Fatalf("unexpected compile error: %v", err)
	}
	if !strings.Contains(out, "OP_GET_LOCAL") {
		t.Errorf("locals should use OP_GET_LOCAL, got:\n%s", out)
	}
	if strings.Contains(out, "OP_DEFINE_GLOBAL") {
		t.Errorf("block-scoped var should not be a global:\n%s", out)
	}
}

func TestCompileIfElseEmitsJumps(t *testing.T) {
	out, err := disassemble(t, `if (true) { print 1; } else { print 2; }`)
	if err != nil {
		t.Fatalf("unexpected compile error: %v", err)
	}
	for _, want := range []string{"OP_JUMP_IF_FALSE", "OP_JUMP"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
}

func TestCompileWhileEmitsLoop(t *testing.T) {
	out, err := disassemble(t, `while (false) { print 1; }`)
	if err != nil {
		t.Fatalf("unexpected compile error: %v", err)
	}
	if !strings.Contains(out, "OP_LOOP") {
		t.Errorf("missing OP_LOOP in:\n%s", out)
	}
}

func TestCompileFunctionEmitsClosure(t *testing.T) {
	out, err := disassemble(t, `fun f(n) { return n; }`)
	if err != nil {
		t.Fatalf("unexpected compile error: %v", err)
	}
	if !strings.Contains(out, "OP_CLOSURE") {
		t.Errorf("missing OP_CLOSURE in:\n%s", out)
	}
}

func TestCompileClosureCapturesUpvalue(t *testing.T) {
	out, err := disassemble(t, `fun mk(){ var c = 0; fun inc(){ c = c + 1; return c; } return inc; }`)
	if err != nil {
		t.Fatalf("unexpected compile error: %v", err)
	}
	if !strings.Contains(out, "OP_GET_UPVALUE") || !strings.Contains(out, "OP_SET_UPVALUE") {
		t.Errorf("expected upvalue access in:\n%s", out)
	}
}

func TestCompileClassWithMethodAndInherit(t *testing.T) {
	src := `class A { greet(){ print "A"; }} class B < A { greet(){ super.greet(); }}`
	out, err := disassemble(t, src)
	if err != nil {
		t.Fatalf("unexpected compile error: %v", err)
	}
	for _, want := range []string{"OP_CLASS", "OP_METHOD", "OP_INHERIT", "OP_SUPER_INVOKE"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
}

func TestCompileInitializerReturnsThis(t *testing.T) {
	out, err := disassemble(t, `class C { init(x) { this.x = x; } }`)
	if err != nil {
		t.Fatalf("unexpected compile error: %v", err)
	}
	if !strings.Contains(out, "OP_GET_LOCAL") {
		t.Errorf("implicit initializer return should reload local 0 (this):\n%s", out)
	}
}

func TestCompileListLiteralAndSubscript(t *testing.T) {
	out, err := disassemble(t, `var xs = [1, 2, 3]; print xs[1]; xs[1] = 9;`)
	if err != nil {
		t.Fatalf("unexpected compile error: %v", err)
	}
	for _, want := range []string{"OP_BUILD_LIST", "OP_INDEX_GET", "OP_INDEX_SET"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
}

func TestCompileFinishAsync(t *testing.T) {
	out, err := disassemble(t, `finish { async { print "a"; } }`)
	if err != nil {
		t.Fatalf("unexpected compile error: %v", err)
	}
	for _, want := range []string{"OP_FINISH_BEGIN", "OP_ASYNC_BEGIN", "OP_ASYNC_END", "OP_FINISH_END"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
}

func TestCompileReturnFromTopLevelIsError(t *testing.T) {
	_, err := disassemble(t, `return 1;`)
	if err == nil {
		t.Fatalf("expected compile error for top-level return")
	}
}

func TestCompileSelfInheritanceIsError(t *testing.T) {
	_, err := disassemble(t, `class A < A {}`)
	if err == nil {
		t.Fatalf("expected compile error for self-inheritance")
	}
}

func TestCompileThisOutsideClassIsError(t *testing.T) {
	_, err := disassemble(t, `fun f(){ return this; }`)
	if err == nil {
		t.Fatalf("expected compile error for 'this' outside a class")
	}
}

func TestCompileSuperWithoutSuperclassIsError(t *testing.T) {
	_, err := disassemble(t, `class A { m(){ super.m(); } }`)
	if err == nil {
		t.Fatalf("expected compile error for 'super' with no superclass")
	}
}

func TestCompileTooManyConstants(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 260; i++ {
		b.WriteString("print 0.")
		b.WriteString(strconv.Itoa(i))
		b.WriteString(";\n")
	}
	_, err := disassemble(t, b.String())
	if err == nil {
		t.Fatalf("expected compile error once the constant pool overflows 255 entries")
	}
}

func TestCompileUnterminatedStringIsError(t *testing.T) {
	_, err := disassemble(t, `print "oops;`)
	if err == nil {
		t.Fatalf("expected compile error for unterminated string")
	}
}

func TestCompileLambdaNotImplemented(t *testing.T) {
	_, err := disassemble(t, `var f = lambda;`)
	if err == nil {
		t.Fatalf("expected compile error for lambda")
	}
}

func TestCompileReduceNotImplemented(t *testing.T) {
	_, err := disassemble(t, `var r = reduce;`)
	if err == nil {
		t.Fatalf("expected compile error for reduce")
	}
}

func TestCompileFutureEmitsFutureBegin(t *testing.T) {
	out, err := disassemble(t, `var f = future { print "x"; };`)
	if err != nil {
		t.Fatalf("unexpected compile error: %v", err)
	}
	if !strings.Contains(out, "OP_FUTURE_BEGIN") {
		t.Errorf("missing OP_FUTURE_BEGIN in:\n%s", out)
	}
}

package vmi

import (
	"bufio"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/loxlang/loxvm/value"
)

// registerNatives installs the host-implemented functions every VM
// starts with, bound in globals the same way a top-level `var` would be.
func (vm *VM) registerNatives() {
	vm.defineNative("clock", 0, nativeClock)
	vm.defineNative("rand", 0, nativeRand)
	vm.defineNative("len", 1, nativeLen)
	vm.defineNative("append", 2, nativeAppend)
	vm.defineNative("delete", 2, nativeDelete)
	vm.defineNative("int_input", 0, nativeIntInput)
	vm.defineNative("str_input", 0, nativeStrInput)
	vm.defineNative("char_input", 0, nativeCharInput)
}

func (vm *VM) defineNative(name string, arity int, fn NativeFn) {
	interned := vm.interner.Intern(name)
	native := vm.newNative(name, arity, fn)
	vm.globals.Set(interned, native.ToValue())
}

func nativeClock(vm *VM, args []value.Value) (value.Value, error) {
	return value.NumberVal(float64(time.Now().UnixNano()) / 1e9), nil
}

func nativeRand(vm *VM, args []value.Value) (value.Value, error) {
	return value.NumberVal(rand.Float64()), nil
}

func nativeLen(vm *VM, args []value.Value) (value.Value, error) {
	if s := value.AsObjString(args[0]); s != nil {
		return value.NumberVal(float64(len(s.Chars))), nil
	}
	if l := asObjList(args[0]); l != nil {
		return value.NumberVal(float64(len(l.Items))), nil
	}
	return value.Nil, errors.New("len() expects a string or a list")
}

func nativeAppend(vm *VM, args []value.Value) (value.Value, error) {
	l := asObjList(args[0])
	if l == nil {
		return value.Nil, errors.New("append() expects a list as its first argument")
	}
	l.Items = append(l.Items, args[1])
	return args[0], nil
}

func nativeDelete(vm *VM, args []value.Value) (value.Value, error) {
	l := asObjList(args[0])
	if l == nil {
		return value.Nil, errors.New("delete() expects a list as its first argument")
	}
	if !args[1].IsNumber() {
		return value.Nil, errors.New("delete() expects a number index")
	}
	idx := int(args[1].Number())
	if idx < 0 || idx >= len(l.Items) {
		return value.Nil, fmt.Errorf("index %d out of bounds for list of length %d", idx, len(l.Items))
	}
	removed := l.Items[idx]
	l.Items = append(l.Items[:idx], l.Items[idx+1:]...)
	return removed, nil
}

func nativeIntInput(vm *VM, args []value.Value) (value.Value, error) {
	line, err := readLine(vm)
	if err != nil {
		return value.Nil, err
	}
	n, err := strconv.ParseFloat(line, 64)
	if err != nil {
		return value.Nil, fmt.Errorf("int_input(): %q is not a number", line)
	}
	return value.NumberVal(n), nil
}

func nativeStrInput(vm *VM, args []value.Value) (value.Value, error) {
	line, err := readLine(vm)
	if err != nil {
		return value.Nil, err
	}
	return vm.interner.Intern(line).ToValue(), nil
}

func nativeCharInput(vm *VM, args []value.Value) (value.Value, error) {
	line, err := readLine(vm)
	if err != nil {
		return value.Nil, err
	}
	if len(line) == 0 {
		return value.Nil, errors.New("char_input(): no input available")
	}
	return vm.interner.Intern(line[:1]).ToValue(), nil
}

func readLine(vm *VM) (string, error) {
	if vm.Stdin == nil {
		return "", errors.New("no input source configured")
	}
	line, err := vm.stdinReader().ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	for len(line) > 0 && (line[len(line)-1] == '\n' || line[len(line)-1] == '\r') {
		line = line[:len(line)-1]
	}
	return line, nil
}

func (vm *VM) stdinReader() *bufio.Reader {
	if vm.stdin == nil {
		vm.stdin = bufio.NewReader(vm.Stdin)
	}
	return vm.stdin
}

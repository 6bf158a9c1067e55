// lox - the main entry point for running Lox programs
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"

	"github.com/loxlang/loxvm/config"
	"github.com/loxlang/loxvm/dispatch"
	"github.com/loxlang/loxvm/internal/logging"
	"github.com/loxlang/loxvm/vmi"
)

const (
	exitOK           = 0
	exitUsage        = 64
	exitCompileError = 65
	exitRuntimeError = 70
	exitIOError      = 74
)

func main() {
	verbose := flag.Bool("v", false, "verbose (debug-level) logging on stderr")
	stress := flag.Bool("stress-gc", false, "collect on every allocation")
	configDir := flag.String("config-dir", ".", "directory to search upward from for lox.toml")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: lox [options] [script]\n\n")
		fmt.Fprintf(os.Stderr, "With no script, starts an interactive REPL.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *verbose {
		logging.SetLevel(-4) // slog.LevelDebug
	}

	cfg, err := config.FindAndLoad(*configDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "lox: %v\n", err)
		os.Exit(exitIOError)
	}
	if *stress {
		cfg.GC.Stress = true
	}

	vm := vmi.NewVM(os.Stdout)
	vm.Stdin = os.Stdin
	vm.StressGC = cfg.GC.Stress
	vm.Heap().Configure(cfg.GC.GrowFactor, cfg.GC.InitialNextGC)
	vm.Dispatcher = dispatch.NewWithPoolSize(cfg.Dispatcher.PoolSize)

	args := flag.Args()
	switch len(args) {
	case 0:
		os.Exit(runREPL(vm))
	case 1:
		os.Exit(runFile(vm, args[0]))
	default:
		flag.Usage()
		os.Exit(exitUsage)
	}
}

func runFile(vm *vmi.VM, path string) int {
	source, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "lox: cannot read %s: %v\n", path, err)
		return exitIOError
	}
	return interpret(vm, string(source))
}

func runREPL(vm *vmi.VM) int {
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			fmt.Println()
			return exitOK
		}
		interpret(vm, scanner.Text())
	}
}

func interpret(vm *vmi.VM, source string) int {
	result, err := vm.Interpret(source)
	switch result {
	case vmi.InterpretCompileError:
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return exitCompileError
	case vmi.InterpretRuntimeError:
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return exitRuntimeError
	default:
		return exitOK
	}
}

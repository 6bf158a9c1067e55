// lox-server runs the HTTP+JSON evaluation service over one pooled
// interpreter.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/loxlang/loxvm/config"
	"github.com/loxlang/loxvm/dispatch"
	"github.com/loxlang/loxvm/server"
	"github.com/loxlang/loxvm/vmi"
)

func main() {
	addr := flag.String("addr", ":4576", "address to listen on")
	configDir := flag.String("config-dir", ".", "directory to search upward from for lox.toml")
	flag.Parse()

	cfg, err := config.FindAndLoad(*configDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "lox-server:", err)
		os.Exit(1)
	}

	vm := vmi.NewVM(os.Stdout)
	vm.StressGC = cfg.GC.Stress
	vm.Heap().Configure(cfg.GC.GrowFactor, cfg.GC.InitialNextGC)
	vm.Dispatcher = dispatch.NewWithPoolSize(cfg.Dispatcher.PoolSize)

	s := server.New(vm)
	defer s.Stop()

	if err := s.ListenAndServe(*addr); err != nil {
		fmt.Fprintln(os.Stderr, "lox-server:", err)
		os.Exit(1)
	}
}

// lox-lsp is a minimal stdio Language Server Protocol server for Lox:
// compile diagnostics only, no execution.
package main

import (
	"fmt"
	"os"

	"github.com/loxlang/loxvm/lsp"
)

func main() {
	if err := lsp.New().Run(); err != nil {
		fmt.Fprintln(os.Stderr, "lox-lsp:", err)
		os.Exit(1)
	}
}

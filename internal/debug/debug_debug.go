//go:build debug

package debug

import (
	"log"
	"os"
)

// logger tags debug output so it's distinguishable from jqstream's normal
// stderr diagnostics (error messages, the debug/stderr builtins) when both are mixed
// in the same terminal.
var logger = log.New(os.Stderr, "jqstream debug: ", log.Lmicroseconds)

func Printf(msg string, args ...any) {
	logger.Printf(msg, args...)
}

const On = true

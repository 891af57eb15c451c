package config

import (
	"fmt"
	"os"
)

// Exitf writes a formatted message to stderr and exits with status 1.
// Command mains use it for failures before the run loop starts, where a
// log prefix would be noise.
func Exitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

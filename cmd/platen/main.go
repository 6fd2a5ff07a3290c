// Command platen evaluates scene scripts without the desktop app: it prints
// part summaries, casts pick rays, validates scenes and exports 3MF files.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

package main

import (
	"fmt"
	"os"

	"github.com/arthur-debert/typewriter/cmd/typewriter"
	"github.com/arthur-debert/typewriter/pkg/ui/style"
)

func main() {
	rootCmd := typewriter.NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, style.Bold(fmt.Sprintf("Error: %v", err)))
		os.Exit(1)
	}
}

package main

import (
	"fmt"
	"os"

	"github.com/ameistad/carenote/internal/carenote"
)

func main() {
	rootCmd := carenote.NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		// Print error once, then exit
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

package main

import (
	"fmt"
	"os"

	"github.com/ragstack/ragctl/internal/ragctl"
)

func main() {
	rootCmd := ragctl.NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(ragctl.ExitCode(err))
	}
}

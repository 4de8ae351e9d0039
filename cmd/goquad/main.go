package main

import (
	"os"

	"github.com/njchilds90/goquad/cmd/goquad/cmd"
)

func main() {
	if err := cmd.NewRootCommand(os.Stdout, os.Stderr).Execute(); err != nil {
		os.Exit(1)
	}
}

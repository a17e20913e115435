package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"

	"github.com/rmax-ai/mapgraph/pkg/config"
)

func main() {
	cfg, err := config.Prepare(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("mapgraph: %v", err))
		os.Exit(1)
	}
	if err := newRootCmd(cfg).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("mapgraph: %v", err))
		os.Exit(1)
	}
}

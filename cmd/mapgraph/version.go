package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// Set at build time with -ldflags "-X main.Version=...".
var (
	Version   = "dev"
	Commit    = "none"
	BuildTime = "unknown"
)

var versionTemplate = `Version:	  %s
Go version:	  %s
Git commit:	  %s
Built:	          %s
OS/Arch:	  %s/%s
`

func newVersionCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Args:  cobra.NoArgs,
		// Skip config validation.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			w := cmd.OutOrStdout()
			if all {
				fmt.Fprintf(w, versionTemplate, Version, runtime.Version(), Commit, BuildTime, runtime.GOOS, runtime.GOARCH)
				return
			}
			fmt.Fprintln(w, Version)
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "print all version information")
	return cmd
}

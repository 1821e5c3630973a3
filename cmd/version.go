package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// Set via ldflags at build time.
//
//nolint:gochecknoglobals // Populated by the build system.
var (
	Version   = "dev"
	Commit    = "none"
	BuildTime = "unknown"
)

func appVersion() string {
	return Version
}

func newVersionCmd() *cobra.Command {
	var short bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			if short {
				_, err := fmt.Fprintln(out, Version)
				return err
			}
			_, err := fmt.Fprintf(out, "medinotes %s\ncommit: %s\nbuilt: %s\ngo: %s\n",
				Version, Commit, BuildTime, runtime.Version())
			return err
		},
	}

	cmd.Flags().BoolVarP(&short, "short", "s", false, "Show only version number")
	return cmd
}

func init() { //nolint:gochecknoinits // Standard Cobra CLI pattern for command registration
	rootCmd.AddCommand(newVersionCmd())
}

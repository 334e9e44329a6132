package commands

import (
	"runtime"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of mcs-forecast.",
	// Skip configuration and log setup.
	PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Printf("mcs-forecast\n")
		cmd.Printf("  Version: %s\n", Version)
		cmd.Printf("  Commit:  %s\n", Commit)
		cmd.Printf("  Built:   %s\n", BuildDate)
		cmd.Printf("  Runtime: %s\n", runtime.Version())
	},
}

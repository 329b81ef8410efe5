// gatekeeper is the member admission bot: it challenges new members, queues
// doubtful ones for moderators, and removes those who never verify.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set by ldflags at build time.
var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:           "gatekeeper",
		Short:         "member admission control for Discord communities",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(
		newServeCmd(),
		newMigrateCmd(),
		newPreviewCmd(),
		newTokenCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// Command redlockctl exercises a redlock.Coordinator from the shell,
// against the Redis servers named by its --addr flags.
package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"
)

var release = "dev"

var rootCmd = &cobra.Command{
	Use:     "redlockctl",
	Short:   "Acquire, extend, release, or hold a Redlock distributed lock from the shell",
	Version: release,
}

func main() {
	rootCmd.AddCommand(newAcquireCmd())
	rootCmd.AddCommand(newExtendCmd())
	rootCmd.AddCommand(newReleaseCmd())
	rootCmd.AddCommand(newUsingCmd())

	if err := rootCmd.Execute(); err != nil {
		log.Println(err)
		os.Exit(1)
	}
}

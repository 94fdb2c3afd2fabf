package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/krishna-kudari/redlock"
)

func newReleaseCmd() *cobra.Command {
	var statePath string

	cmd := &cobra.Command{
		Use:   "release",
		Short: "Release the lock persisted by a previous acquire",
		RunE: func(cmd *cobra.Command, args []string) error {
			state, err := readLockState(statePath)
			if err != nil {
				return err
			}

			_, retry := addrsAndRetry(cmd)
			coord, err := buildCoordinator(state.Addrs, retry)
			if err != nil {
				return err
			}

			lock := redlock.Restore(coord, state.Resources, state.Value, state.Expires)
			result, err := coord.Release(context.Background(), lock)
			if err != nil {
				return fmt.Errorf("release: %w", err)
			}

			_ = os.Remove(statePath)
			fmt.Printf("released %v (%d attempts)\n", state.Resources, len(result.Attempts))
			return nil
		},
	}

	cmd.Flags().StringVar(&statePath, "state-file", defaultStatePath(), "state file written by acquire")
	cmd.Flags().Int("retry", 3, "max retry attempts (-1 for unlimited)")
	return cmd
}

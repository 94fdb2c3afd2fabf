package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/krishna-kudari/redlock"
)

func newExtendCmd() *cobra.Command {
	var ttl time.Duration
	var statePath string

	cmd := &cobra.Command{
		Use:   "extend",
		Short: "Extend the lock persisted by a previous acquire",
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
			lock, err = coord.Extend(context.Background(), lock, ttl)
			if err != nil {
				return fmt.Errorf("extend: %w", err)
			}

			if err := writeLockState(statePath, state.Resources, state.Addrs, lock.Value(), lock.Expiration()); err != nil {
				return err
			}

			fmt.Printf("extended %v expires=%s\n", state.Resources, lock.Expiration().Format(time.RFC3339))
			return nil
		},
	}

	cmd.Flags().DurationVar(&ttl, "ttl", 10*time.Second, "new lock duration")
	cmd.Flags().StringVar(&statePath, "state-file", defaultStatePath(), "state file written by acquire")
	cmd.Flags().Int("retry", 3, "max retry attempts (-1 for unlimited)")
	return cmd
}

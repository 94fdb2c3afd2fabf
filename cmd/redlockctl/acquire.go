package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newAcquireCmd() *cobra.Command {
	var ttl time.Duration
	var statePath string

	cmd := &cobra.Command{
		Use:   "acquire [resources...]",
		Short: "Acquire a distributed lock on one or more resources",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addrs, retry := addrsAndRetry(cmd)
			coord, err := buildCoordinator(addrs, retry)
			if err != nil {
				return err
			}

			lock, err := coord.Acquire(context.Background(), args, ttl)
			if err != nil {
				return fmt.Errorf("acquire: %w", err)
			}

			if err := writeLockState(statePath, args, addrs, lock.Value(), lock.Expiration()); err != nil {
				return err
			}

			fmt.Printf("acquired %v value=%s expires=%s (state saved to %s)\n",
				args, lock.Value(), lock.Expiration().Format(time.RFC3339), statePath)
			return nil
		},
	}

	cmd.Flags().DurationVar(&ttl, "ttl", 10*time.Second, "lock duration")
	cmd.Flags().StringVar(&statePath, "state-file", defaultStatePath(), "where to persist the acquired lock's value and resources")
	bindStoreFlags(cmd)
	return cmd
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/spf13/cobra"

	"github.com/krishna-kudari/redlock"
)

func newUsingCmd() *cobra.Command {
	var ttl time.Duration
	var resource string

	cmd := &cobra.Command{
		Use:   "using -- command [args...]",
		Short: "Hold a lock on one resource for the duration of a subprocess, auto-extending as needed",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addrs, retry := addrsAndRetry(cmd)
			coord, err := buildCoordinator(addrs, retry)
			if err != nil {
				return err
			}

			return coord.Using(context.Background(), []string{resource}, ttl, func(ctx context.Context, _ *redlock.AbortSignal) error {
				c := exec.CommandContext(ctx, args[0], args[1:]...)
				c.Stdin = os.Stdin
				c.Stdout = os.Stdout
				c.Stderr = os.Stderr
				if err := c.Run(); err != nil {
					return fmt.Errorf("subprocess: %w", err)
				}
				return nil
			})
		},
	}

	cmd.Flags().DurationVar(&ttl, "ttl", 10*time.Second, "lock duration; auto-extended while the subprocess runs")
	cmd.Flags().StringVar(&resource, "resource", "", "resource name to lock (required)")
	cmd.MarkFlagRequired("resource")
	bindStoreFlags(cmd)
	return cmd
}

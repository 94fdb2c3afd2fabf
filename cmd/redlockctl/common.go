package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/krishna-kudari/redlock"
	redisstore "github.com/krishna-kudari/redlock/store/redis"
)

func bindStoreFlags(cmd *cobra.Command) {
	cmd.Flags().StringArray("addr", nil, "Redis address for one store (repeatable, at least 3 for a real quorum)")
	cmd.Flags().Int("retry", 3, "max retry attempts (-1 for unlimited)")
}

func addrsAndRetry(cmd *cobra.Command) ([]string, int) {
	addrs, _ := cmd.Flags().GetStringArray("addr")
	retry, _ := cmd.Flags().GetInt("retry")
	return addrs, retry
}

func buildCoordinator(addrs []string, retryCount int) (*redlock.Coordinator, error) {
	if len(addrs) == 0 {
		return nil, fmt.Errorf("redlockctl: at least one --addr is required")
	}
	b := redlock.NewBuilder().RetryCount(retryCount)
	for i, addr := range addrs {
		client := goredis.NewClient(&goredis.Options{Addr: addr})
		b.Store(fmt.Sprintf("store-%d", i), redisstore.New(client))
	}
	return b.Build()
}

// lockState is the on-disk representation of a held lock, so that
// separate acquire/extend/release invocations can share ownership of
// the same lock across process boundaries.
type lockState struct {
	Resources []string  `json:"resources"`
	Value     string    `json:"value"`
	Addrs     []string  `json:"addrs"`
	Expires   time.Time `json:"expires"`
}

func writeLockState(path string, resources, addrs []string, value string, expires time.Time) error {
	state := lockState{Resources: resources, Value: value, Addrs: addrs, Expires: expires}
	b, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o600)
}

func readLockState(path string) (*lockState, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("redlockctl: reading state file %s: %w (did you run acquire first?)", path, err)
	}
	var state lockState
	if err := json.Unmarshal(b, &state); err != nil {
		return nil, fmt.Errorf("redlockctl: parsing state file %s: %w", path, err)
	}
	return &state, nil
}

func defaultStatePath() string {
	if v := os.Getenv("REDLOCKCTL_STATE"); v != "" {
		return v
	}
	return ".redlockctl.json"
}

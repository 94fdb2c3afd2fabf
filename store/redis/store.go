// Package redis provides a Redis-backed implementation of store.Client.
//
// It wraps redis.UniversalClient, which supports Redis standalone,
// Redis Cluster, and Redis Sentinel out of the box.
//
//	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	c := redisstore.New(client)
//
//	// Or with Redis Cluster:
//	client := redis.NewClusterClient(&redis.ClusterOptions{
//	    Addrs: []string{"node1:6379", "node2:6379", "node3:6379"},
//	})
//	c := redisstore.New(client)
package redis

import (
	"context"

	goredis "github.com/redis/go-redis/v9"
)

// Client implements store.Client backed by Redis.
type Client struct {
	client goredis.UniversalClient
}

// New creates a Redis-backed Client from any UniversalClient
// (standalone *redis.Client, *redis.ClusterClient, *redis.Ring, or a
// Sentinel-backed failover client).
func New(client goredis.UniversalClient) *Client {
	return &Client{client: client}
}

// Underlying returns the wrapped redis.UniversalClient.
func (c *Client) Underlying() goredis.UniversalClient {
	return c.client
}

func (c *Client) Eval(ctx context.Context, script string, keys []string, args ...interface{}) (interface{}, error) {
	return c.client.Eval(ctx, script, keys, args...).Result()
}

func (c *Client) EvalSha(ctx context.Context, sha string, keys []string, args ...interface{}) (interface{}, error) {
	return c.client.EvalSha(ctx, sha, keys, args...).Result()
}

func (c *Client) Del(ctx context.Context, keys ...string) error {
	return c.client.Del(ctx, keys...).Err()
}

func (c *Client) Quit(ctx context.Context) error {
	return c.client.Close()
}

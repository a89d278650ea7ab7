// Package redis implements the key-value backend capability using go-redis.
package redis

import (
	"context"
	"errors"
	"net"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/trupti79916/mcp-multiple-db-toolbox/pkg/connector/core"
	"github.com/trupti79916/mcp-multiple-db-toolbox/pkg/dberrors"
)

const socketTimeout = 5 * time.Second

// Handle wraps a go-redis client, which pools connections internally.
type Handle struct {
	client *redis.Client
}

// Ping verifies the server is reachable.
func (h *Handle) Ping(ctx context.Context) error {
	return h.client.Ping(ctx).Err()
}

// Close releases the client's connection pool.
func (h *Handle) Close(_ context.Context) error {
	return h.client.Close()
}

// Client exposes the underlying client for executors.
func (h *Handle) Client() *redis.Client {
	return h.client
}

func connect(ctx context.Context, params core.Params) (core.Handle, error) {
	db, err := strconv.Atoi(params["db"])
	if err != nil {
		return nil, dberrors.Newf(dberrors.ErrorTypeConnection,
			"redis db index %q is not a number", params["db"])
	}

	client := redis.NewClient(&redis.Options{
		Addr:         net.JoinHostPort(params["host"], params["port"]),
		Password:     params["password"],
		DB:           db,
		DialTimeout:  socketTimeout,
		ReadTimeout:  socketTimeout,
		WriteTimeout: socketTimeout,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, dberrors.Wrap(err, dberrors.ErrorTypeConnection, "redis ping failed")
	}

	return &Handle{client: client}, nil
}

// get returns the value stored at key, or nil when the key is absent.
func get(ctx context.Context, handle core.Handle, args map[string]interface{}) (interface{}, error) {
	h := handle.(*Handle)

	value, err := h.client.Get(ctx, args["key"].(string)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

// set stores value at key with an optional expiry in seconds.
func set(ctx context.Context, handle core.Handle, args map[string]interface{}) (interface{}, error) {
	h := handle.(*Handle)

	var expiry time.Duration
	if seconds, ok := args["expiry_seconds"].(int); ok && seconds > 0 {
		expiry = time.Duration(seconds) * time.Second
	}

	return h.client.Set(ctx, args["key"].(string), args["value"].(string), expiry).Result()
}

// del removes key and returns the number of keys deleted (0 or 1).
func del(ctx context.Context, handle core.Handle, args map[string]interface{}) (interface{}, error) {
	h := handle.(*Handle)
	return h.client.Del(ctx, args["key"].(string)).Result()
}

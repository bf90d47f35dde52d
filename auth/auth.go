// Package auth provides the current-user capability backed by Redis
// session tokens. The engine treats it as opaque: it either yields the
// signed-in user or fails with chat.ErrAuthRequired.
package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/roomsync/roomsync/chat"
)

const sessionPrefix = "session"

// Client manages one session token against Redis.
type Client struct {
	cli *redis.Client
	ttl time.Duration

	mu    sync.Mutex
	token string
}

var _ chat.Session = (*Client)(nil)

// Connect connects to the Redis server and pings it to ensure the
// connection is working. Sessions expire after ttl.
func Connect(ctx context.Context, addr string, ttl time.Duration) (*Client, error) {
	cli := redis.NewClient(&redis.Options{
		Addr: addr,
	})
	if err := cli.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Client{
		cli: cli,
		ttl: ttl,
	}, nil
}

// SignIn mints a session token for the user and stores the profile
// under it. The token is opaque to callers.
func (c *Client) SignIn(ctx context.Context, user chat.User) (string, error) {
	token := uuid.NewString()
	key := fmt.Sprintf("%s:%s", sessionPrefix, token)
	if err := c.cli.HSet(ctx, key, "id", user.ID, "name", user.Name).Err(); err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}
	if c.ttl > 0 {
		if err := c.cli.Expire(ctx, key, c.ttl).Err(); err != nil {
			return "", fmt.Errorf("expire session: %w", err)
		}
	}
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
	return token, nil
}

// CurrentUser resolves the active session token to the signed-in user.
// A missing or expired session fails with chat.ErrAuthRequired.
func (c *Client) CurrentUser(ctx context.Context) (chat.User, error) {
	c.mu.Lock()
	token := c.token
	c.mu.Unlock()
	if token == "" {
		return chat.User{}, chat.ErrAuthRequired
	}
	key := fmt.Sprintf("%s:%s", sessionPrefix, token)
	vals, err := c.cli.HGetAll(ctx, key).Result()
	if err != nil {
		return chat.User{}, fmt.Errorf("load session: %w", err)
	}
	if len(vals) == 0 {
		return chat.User{}, fmt.Errorf("session expired: %w", chat.ErrAuthRequired)
	}
	return chat.User{
		ID:   vals["id"],
		Name: vals["name"],
	}, nil
}

// SignOut destroys the active session.
func (c *Client) SignOut(ctx context.Context) error {
	c.mu.Lock()
	token := c.token
	c.token = ""
	c.mu.Unlock()
	if token == "" {
		return nil
	}
	key := fmt.Sprintf("%s:%s", sessionPrefix, token)
	if err := c.cli.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Close releases the underlying client.
func (c *Client) Close() error {
	return c.cli.Close()
}

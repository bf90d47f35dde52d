// Command roomsync is a line-oriented chat client for a single room.
// It keeps a local message list in sync with the store through polling
// and a Redis realtime feed.
package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/roomsync/roomsync/auth"
	"github.com/roomsync/roomsync/chat"
	"github.com/roomsync/roomsync/postgres"
	"github.com/roomsync/roomsync/redis"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "roomsync:", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()
	var cfg config
	if err := envconfig.Process("roomsync", &cfg); err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	store, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	broker, err := redis.Connect(ctx, cfg.RedisAddr, logger)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer broker.Close()
	session, err := auth.Connect(ctx, cfg.RedisAddr, cfg.SessionTTL)
	if err != nil {
		return fmt.Errorf("connect auth: %w", err)
	}
	defer session.Close()
	if _, err := session.SignIn(ctx, chat.User{ID: cfg.UserID, Name: cfg.UserName}); err != nil {
		return fmt.Errorf("sign in: %w", err)
	}

	engine := &chat.Engine{
		Logger: logger,
		Store: &chat.NotifyingStore{
			Store:     store,
			Publisher: broker,
			Logger:    logger,
		},
		Feed:         broker,
		Session:      session,
		PollInterval: cfg.PollInterval,
	}
	if err := engine.Start(ctx); err != nil {
		return fmt.Errorf("start engine: %w", err)
	}
	defer engine.Close()

	go render(ctx, engine)

	fmt.Println("Type a message and press enter. Commands: /quit, /logout")
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
		case "/quit":
			return nil
		case "/logout":
			if err := engine.SignOut(ctx); err != nil {
				return fmt.Errorf("sign out: %w", err)
			}
			return nil
		default:
			if _, err := engine.Send(ctx, line); err != nil {
				fmt.Fprintln(os.Stderr, "send failed:", err)
			}
		}
	}
	return scanner.Err()
}

// render reprints the tail of the room whenever the list changes.
func render(ctx context.Context, engine *chat.Engine) {
	const tail = 10
	for {
		select {
		case <-ctx.Done():
			return
		case <-engine.Updates():
			msgs := engine.Messages()
			if len(msgs) > tail {
				msgs = msgs[len(msgs)-tail:]
			}
			fmt.Println("----")
			for _, m := range msgs {
				name := m.SenderID
				if m.Sender != nil {
					name = m.Sender.Name
				}
				fmt.Printf("%s %s: %s\n", m.CreatedAt.Format("15:04:05"), name, m.Text)
			}
		}
	}
}

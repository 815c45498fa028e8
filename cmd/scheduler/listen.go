package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"thirdcoast.systems/scout/internal/db"
)

// listener holds a dedicated connection that LISTENs on one channel and
// hands each notification payload to onNotify. It implements suture.Service.
type listener struct {
	dsn      string
	channel  string
	onNotify func(ctx context.Context, payload string)
}

func (l *listener) String() string { return "listen-" + l.channel }

func (l *listener) Serve(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := l.listenOnce(ctx); err != nil && ctx.Err() == nil {
			slog.Error("listen failed", "channel", l.channel, "error", err)
			select {
			case <-ctx.Done():
			case <-time.After(2 * time.Second):
			}
		}
	}
}

func (l *listener) listenOnce(ctx context.Context) error {
	// Parse using pgxpool so pool_* DSN params are consumed client-side
	// instead of being sent to Postgres as startup params.
	poolConf, err := pgxpool.ParseConfig(l.dsn)
	if err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	conn, err := pgx.ConnectConfig(ctx, poolConf.ConnConfig)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer conn.Close(context.WithoutCancel(ctx))

	q := db.New(conn)
	switch l.channel {
	case db.ChannelScrapeJobs:
		err = q.ListenScrapeJobs(ctx)
	case db.ChannelTopicGraphs:
		err = q.ListenTopicGraphs(ctx)
	default:
		err = fmt.Errorf("unsupported listen channel: %s", l.channel)
	}
	if err != nil {
		return fmt.Errorf("LISTEN: %w", err)
	}

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			return fmt.Errorf("wait for notification: %w", err)
		}
		l.onNotify(ctx, n.Payload)
	}
}

// signalOn returns a notify func that performs a non-blocking send on ch.
func signalOn(ch chan<- struct{}) func(context.Context, string) {
	return func(context.Context, string) {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

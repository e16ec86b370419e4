package telemetry

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
)

// MonitorRedis attaches tracing, otel metrics, and a hook that counts commands
// and logs the ones that fail.
func MonitorRedis(r redis.UniversalClient) error {
	if err := redisotel.InstrumentTracing(r); err != nil {
		return fmt.Errorf("instrument tracing: %w", err)
	}
	if err := redisotel.InstrumentMetrics(r); err != nil {
		return fmt.Errorf("instrument metrics: %w", err)
	}
	r.AddHook(redisHook{})
	return nil
}

type redisHook struct{}

func (redisHook) DialHook(hook redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		conn, err := hook(ctx, network, addr)
		if err != nil {
			slog.WarnContext(ctx, "redis: dial failed", "addr", addr, "error", err)
			return nil, err
		}

		slog.DebugContext(ctx, "redis: connected", "network", network, "addr", addr)
		return conn, nil
	}
}

func (redisHook) ProcessHook(hook redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		err := hook(ctx, cmd)
		observeRedis(ctx, cmd, err)
		return err
	}
}

func (redisHook) ProcessPipelineHook(hook redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		err := hook(ctx, cmds)
		for _, cmd := range cmds {
			observeRedis(ctx, cmd, cmd.Err())
		}
		return err
	}
}

// A missing key is an answer, not a failure.
func observeRedis(ctx context.Context, cmd redis.Cmder, err error) {
	status := "ok"
	if err != nil && !stderrors.Is(err, redis.Nil) {
		status = "error"
		slog.WarnContext(ctx, "redis: command failed", "command", cmd.Name(), "error", err)
	}

	redisCommands.WithLabelValues(cmd.Name(), status).Inc()
}

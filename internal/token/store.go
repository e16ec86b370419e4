package token

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/victornm/trivia/internal/domain"
	"github.com/victornm/trivia/internal/event"
)

// The trivia service drops tokens after six hours without use.
const defaultTTL = 6 * time.Hour

type Config struct {
	EventBus *event.Bus
	Redis    redis.UniversalClient
	Prefix   string
	TTL      time.Duration
}

// Store keeps the latest session token in Redis so a host can hand it back to
// the trivia service after a restart.
type Store struct {
	redis  redis.UniversalClient
	prefix string
	ttl    time.Duration

	mu  sync.Mutex
	seq uint64
}

func NewStore(c Config) *Store {
	s := &Store{
		redis:  c.Redis,
		prefix: c.Prefix,
		ttl:    c.TTL,
	}
	if s.ttl <= 0 {
		s.ttl = defaultTTL
	}

	if c.EventBus != nil {
		c.EventBus.Subscribe(domain.EventNameTokenUpdated, func(ctx context.Context, e event.Event) error {
			return s.Update(ctx, e.(domain.EventTokenUpdated))
		})

		c.EventBus.Subscribe(domain.EventNameQuestionsFetched, func(ctx context.Context, _ event.Event) error {
			return s.Touch(ctx)
		})
	}

	return s
}

// Load returns the stored token, or "" when there is none.
func (s *Store) Load(ctx context.Context) (string, error) {
	t, err := s.redis.Get(ctx, s.getTokenKey()).Result()
	if stderrors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load token: %w", err)
	}

	return t, nil
}

// Save overwrites the stored token and restarts its expiry.
func (s *Store) Save(ctx context.Context, token string) error {
	if token == "" {
		return s.Clear(ctx)
	}

	if err := s.redis.Set(ctx, s.getTokenKey(), token, s.ttl).Err(); err != nil {
		return fmt.Errorf("save token: %w", err)
	}

	return nil
}

// Update saves the token of e unless a later update was already saved.
// Event handlers run concurrently, so updates can arrive out of order.
func (s *Store) Update(ctx context.Context, e domain.EventTokenUpdated) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.Seq <= s.seq {
		slog.DebugContext(ctx, "token: skipping stale update", "seq", e.Seq, "latest", s.seq)
		return nil
	}

	if err := s.Save(ctx, e.Token); err != nil {
		return err
	}

	s.seq = e.Seq
	return nil
}

// Touch restarts the expiry of the stored token, matching the service's
// inactivity window.
func (s *Store) Touch(ctx context.Context) error {
	if err := s.redis.Expire(ctx, s.getTokenKey(), s.ttl).Err(); err != nil {
		return fmt.Errorf("touch token: %w", err)
	}

	return nil
}

func (s *Store) Clear(ctx context.Context) error {
	if err := s.redis.Del(ctx, s.getTokenKey()).Err(); err != nil {
		return fmt.Errorf("clear token: %w", err)
	}

	return nil
}

func (s *Store) getTokenKey() string {
	return fmt.Sprintf("%s:token", s.prefix)
}

package token_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/victornm/trivia/internal/domain"
	"github.com/victornm/trivia/internal/event"
	"github.com/victornm/trivia/internal/token"
)

func TestStore_SaveLoad(t *testing.T) {
	s, _ := makeStore(t)
	ctx := context.Background()

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, got, "an empty store should load no token")

	require.NoError(t, s.Save(ctx, "12345"))
	got, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "12345", got)

	require.NoError(t, s.Save(ctx, "67890"))
	got, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "67890", got)

	require.NoError(t, s.Save(ctx, ""))
	got, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, got, "saving an empty token should clear the store")
}

func TestStore_Expiry(t *testing.T) {
	s, rs := makeStore(t, withTTL(time.Hour))
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, "12345"))
	assert.Equal(t, time.Hour, rs.TTL("test:token"))

	rs.FastForward(30 * time.Minute)
	require.NoError(t, s.Touch(ctx))
	assert.Equal(t, time.Hour, rs.TTL("test:token"), "touch should restart the expiry")

	rs.FastForward(2 * time.Hour)
	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestStore_FollowsEvents(t *testing.T) {
	type (
		inputs struct {
			published []event.Event
		}

		outputs struct {
			token string
			ttl   time.Duration
		}
	)

	tests := map[string]struct {
		arrange func() inputs
		assert  func(t *testing.T, out outputs)
	}{
		"should save the token of token.updated": {
			arrange: func() inputs {
				return inputs{
					published: []event.Event{
						domain.EventTokenUpdated{Command: domain.TokenCommandRequest, Token: "12345", Seq: 1},
					},
				}
			},

			assert: func(t *testing.T, out outputs) {
				assert.Equal(t, "12345", out.token)
				assert.Equal(t, 6*time.Hour, out.ttl)
			},
		},

		"should keep the latest of back-to-back updates": {
			arrange: func() inputs {
				return inputs{
					published: []event.Event{
						domain.EventTokenUpdated{Command: domain.TokenCommandRequest, Token: "old", Seq: 1},
						domain.EventTokenUpdated{Command: domain.TokenCommandReset, Token: "new", Seq: 2},
					},
				}
			},

			assert: func(t *testing.T, out outputs) {
				assert.Equal(t, "new", out.token)
			},
		},

		"should skip an update older than the saved one": {
			arrange: func() inputs {
				return inputs{
					published: []event.Event{
						domain.EventTokenUpdated{Command: domain.TokenCommandReset, Token: "new", Seq: 2},
						domain.EventTokenUpdated{Command: domain.TokenCommandRequest, Token: "old", Seq: 1},
					},
				}
			},

			assert: func(t *testing.T, out outputs) {
				assert.Equal(t, "new", out.token)
			},
		},

		"should ignore questions.fetched without a stored token": {
			arrange: func() inputs {
				return inputs{
					published: []event.Event{
						domain.EventQuestionsFetched{Config: domain.DefaultTriviaConfig(), Count: 10},
					},
				}
			},

			assert: func(t *testing.T, out outputs) {
				assert.Empty(t, out.token)
			},
		},
	}

	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			in := tt.arrange()
			eb := event.NewBus()
			s, rs := makeStore(t, withEventBus(eb))

			for _, e := range in.published {
				eb.Publish(context.Background(), e)
			}
			eb.Stop()

			var out outputs
			var err error
			out.token, err = s.Load(context.Background())
			require.NoError(t, err)
			out.ttl = rs.TTL("test:token")

			tt.assert(t, out)
		})
	}
}

func TestStore_SlowWriteDoesNotWin(t *testing.T) {
	eb := event.NewBus()
	s, rs := makeStore(t, withEventBus(eb), withHook(&slowFirstSet{delay: 50 * time.Millisecond}))

	eb.Publish(context.Background(), domain.EventTokenUpdated{Command: domain.TokenCommandRequest, Token: "old", Seq: 1})
	eb.Publish(context.Background(), domain.EventTokenUpdated{Command: domain.TokenCommandReset, Token: "new", Seq: 2})
	eb.Stop()

	got, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "new", got)
	assert.Equal(t, 6*time.Hour, rs.TTL("test:token"))
}

func TestStore_RedisFailure(t *testing.T) {
	s, rs := makeStore(t)
	rs.Close()

	_, err := s.Load(context.Background())
	assert.Error(t, err)
	assert.Error(t, s.Save(context.Background(), "12345"))
}

func makeStore(t *testing.T, opts ...options) (*token.Store, *miniredis.Miniredis) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	rs := miniredis.RunT(t)
	rc := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs: []string{rs.Addr()},
	})
	t.Cleanup(func() { rc.Close() })
	require.NoError(t, rc.Ping(ctx).Err(), "should be able to ping redis")

	c := token.Config{
		Redis:  rc,
		Prefix: "test",
	}

	for _, opt := range opts {
		opt(&c)
	}

	return token.NewStore(c), rs
}

type options func(c *token.Config)

func withEventBus(eb *event.Bus) options {
	return func(c *token.Config) {
		c.EventBus = eb
	}
}

func withHook(h redis.Hook) options {
	return func(c *token.Config) {
		c.Redis.AddHook(h)
	}
}

// slowFirstSet holds back the first SET it sees.
type slowFirstSet struct {
	delay time.Duration
	done  atomic.Bool
}

func (h *slowFirstSet) DialHook(next redis.DialHook) redis.DialHook {
	return next
}

func (h *slowFirstSet) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		if cmd.Name() == "set" && h.done.CompareAndSwap(false, true) {
			time.Sleep(h.delay)
		}
		return next(ctx, cmd)
	}
}

func (h *slowFirstSet) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}

func withTTL(d time.Duration) options {
	return func(c *token.Config) {
		c.TTL = d
	}
}

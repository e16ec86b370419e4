package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/victornm/trivia/internal/api"
	"github.com/victornm/trivia/internal/domain"
	"github.com/victornm/trivia/internal/event"
	"github.com/victornm/trivia/internal/opentdb"
	"github.com/victornm/trivia/internal/telemetry"
	"github.com/victornm/trivia/internal/token"
	"github.com/victornm/trivia/internal/trivia"
)

type Config struct {
	HTTP struct {
		Port int32 `validate:"min=1,max=65535"`
	}

	Ops struct {
		Port int32 `validate:"min=1,max=65535"`
	}

	OpenTDB struct {
		BaseURL string `validate:"required,url"`
		Timeout time.Duration
	}

	Trivia struct {
		Amount     int    `validate:"min=0,max=50"`
		Category   int    `validate:"min=0"`
		Difficulty string `validate:"omitempty,oneof=any easy medium hard"`
		Type       string `validate:"omitempty,oneof=any multiple boolean"`
	}

	// Redis is optional: without addresses the token is not persisted and no
	// notifications are published.
	Redis struct {
		Token struct {
			Addrs  []string
			Pass   string
			Prefix string
			TTL    time.Duration
		}

		Pubsub struct {
			Addrs  []string
			Pass   string
			Prefix string
		}
	}
}

func DefaultConfig() Config {
	var c Config
	c.HTTP.Port = 8080
	c.Ops.Port = 8081
	c.OpenTDB.BaseURL = opentdb.DefaultBaseURL
	c.OpenTDB.Timeout = 10 * time.Second

	d := domain.DefaultTriviaConfig()
	c.Trivia.Amount = d.Amount
	c.Trivia.Category = int(d.Category)
	c.Trivia.Difficulty = string(d.Difficulty)
	c.Trivia.Type = string(d.Type)

	c.Redis.Token.Prefix = "trivia"
	c.Redis.Token.TTL = 6 * time.Hour
	c.Redis.Pubsub.Prefix = "trivia:pubsub"
	return c
}

type Server struct {
	c Config

	eb *event.Bus

	infra struct {
		redis struct {
			token  redis.UniversalClient
			pubsub redis.UniversalClient
		}
	}

	service struct {
		token  *token.Store
		trivia *trivia.Service
	}

	http *http.Server
	ops  *http.Server
}

func Init(c Config) (*Server, error) {
	s := &Server{c: c}

	s.eb = event.NewBus()
	telemetry.CountDomainEvents(s.eb)

	if err := s.initInfra(); err != nil {
		return nil, fmt.Errorf("server: init infra: %w", err)
	}

	if err := s.initService(); err != nil {
		return nil, fmt.Errorf("server: init service: %w", err)
	}

	s.initAPI()
	return s, nil
}

func (s *Server) initInfra() error {
	if err := s.initRedis(); err != nil {
		return fmt.Errorf("redis: %w", err)
	}

	return nil
}

func (s *Server) initRedis() error {
	connect := func(addrs []string, pass string) (redis.UniversalClient, error) {
		if len(addrs) == 0 {
			return nil, nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		r := redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:    addrs,
			Password: pass,
		})

		if err := telemetry.MonitorRedis(r); err != nil {
			return nil, err
		}

		if err := r.Ping(ctx).Err(); err != nil {
			return nil, err
		}

		return r, nil
	}

	var err error
	s.infra.redis.token, err = connect(s.c.Redis.Token.Addrs, s.c.Redis.Token.Pass)
	if err != nil {
		return fmt.Errorf("token: %w", err)
	}

	s.infra.redis.pubsub, err = connect(s.c.Redis.Pubsub.Addrs, s.c.Redis.Pubsub.Pass)
	if err != nil {
		return fmt.Errorf("pubsub: %w", err)
	}

	return nil
}

func (s *Server) initService() error {
	var seed string
	if s.infra.redis.token != nil {
		s.service.token = token.NewStore(token.Config{
			EventBus: s.eb,
			Redis:    s.infra.redis.token,
			Prefix:   s.c.Redis.Token.Prefix,
			TTL:      s.c.Redis.Token.TTL,
		})

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		var err error
		if seed, err = s.service.token.Load(ctx); err != nil {
			return fmt.Errorf("token: %w", err)
		}
		if seed != "" {
			slog.InfoContext(ctx, "server: resuming stored session token")
		}
	}

	d, err := domain.ParseDifficulty(s.c.Trivia.Difficulty)
	if err != nil {
		return fmt.Errorf("trivia: %w", err)
	}
	t, err := domain.ParseType(s.c.Trivia.Type)
	if err != nil {
		return fmt.Errorf("trivia: %w", err)
	}
	tc := domain.NewTriviaConfig(s.c.Trivia.Amount, domain.Category(s.c.Trivia.Category), d, t)

	s.service.trivia = trivia.NewService(trivia.Config{
		Source: opentdb.New(
			opentdb.WithBaseURL(s.c.OpenTDB.BaseURL),
			opentdb.WithTimeout(s.c.OpenTDB.Timeout),
		),
		EventBus: s.eb,
		Trivia:   &tc,
		Token:    seed,
	})

	return nil
}

func (s *Server) initAPI() {
	e := gin.New()
	e.Use(gin.Recovery(), telemetry.HTTPServerMiddleware())

	ac := api.Config{
		Router:       e,
		EventBus:     s.eb,
		Trivia:       s.service.trivia,
		PubsubPrefix: s.c.Redis.Pubsub.Prefix,
	}
	if s.infra.redis.pubsub != nil {
		ac.Redis = s.infra.redis.pubsub
	}
	api.New(ac)

	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.c.HTTP.Port),
		Handler:           e,
		ReadHeaderTimeout: 60 * time.Second,
	}

	ops := gin.New()
	ops.Use(gin.Recovery())
	ops.GET("/metrics", gin.WrapH(promhttp.Handler()))
	pprof.Register(ops, "/debug/pprof")

	s.ops = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.c.Ops.Port),
		Handler:           ops,
		ReadHeaderTimeout: 60 * time.Second,
	}
}

func (s *Server) Start() {
	ctx := context.Background()

	serve := func(name string, srv *http.Server) func() error {
		return func() error {
			slog.InfoContext(ctx, fmt.Sprintf("server: %s listening on %s", name, srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("%s: %w", name, err)
			}
			return nil
		}
	}

	var eg errgroup.Group
	eg.Go(serve("HTTP", s.http))
	eg.Go(serve("ops", s.ops))

	if err := eg.Wait(); err != nil {
		slog.ErrorContext(ctx, "server: shutdown with error", "error", err)
	}
}

func (s *Server) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.http.Shutdown(ctx); err != nil {
		slog.ErrorContext(ctx, "server: shutdown HTTP failed", "error", err)
	}
	if err := s.ops.Shutdown(ctx); err != nil {
		slog.ErrorContext(ctx, "server: shutdown ops failed", "error", err)
	}

	s.eb.Stop()

	for _, r := range []redis.UniversalClient{s.infra.redis.token, s.infra.redis.pubsub} {
		if r == nil {
			continue
		}
		if err := r.Close(); err != nil {
			slog.ErrorContext(ctx, "server: close redis failed", "error", err)
		}
	}

	slog.InfoContext(ctx, "server: shutdown completed")
}

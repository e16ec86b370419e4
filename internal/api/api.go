package api

import (
	"context"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/victornm/trivia/internal/domain"
	"github.com/victornm/trivia/internal/errors"
	"github.com/victornm/trivia/internal/event"
	"github.com/victornm/trivia/internal/trivia"
)

type Config struct {
	Router       gin.IRouter
	EventBus     *event.Bus
	Trivia       *trivia.Service
	Redis        Redis
	PubsubPrefix string
}

type Redis interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// API exposes one trivia.Service over HTTP. The service is not safe for
// concurrent use, so every handler holds mu while it touches it.
type API struct {
	mu sync.Mutex
	ts *trivia.Service

	redis  Redis
	prefix string
}

func New(c Config) *API {
	a := &API{
		ts:     c.Trivia,
		redis:  c.Redis,
		prefix: c.PubsubPrefix,
	}

	// HTTP APIs
	v1 := c.Router.Group("/v1")
	v1.GET("/questions", a.GetQuestions)
	v1.GET("/token", a.GetToken)
	v1.POST("/token", a.RequestToken)
	v1.POST("/token/reset", a.ResetToken)
	v1.GET("/config", a.GetConfig)
	v1.PUT("/config", a.UpdateConfig)

	// Register event handlers
	if c.EventBus != nil && c.Redis != nil {
		c.EventBus.Subscribe(domain.EventNameTokenUpdated, func(ctx context.Context, e event.Event) error {
			return a.PublishTokenUpdated(ctx, e.(domain.EventTokenUpdated))
		})
		c.EventBus.Subscribe(domain.EventNameQuestionsFetched, func(ctx context.Context, e event.Event) error {
			return a.PublishQuestionsFetched(ctx, e.(domain.EventQuestionsFetched))
		})
	}

	return a
}

type (
	QuestionsResponse struct {
		Questions []domain.Question `json:"questions"`
	}

	TokenResponse struct {
		Token    string `json:"token"`
		HasToken bool   `json:"has_token"`
	}

	TriviaConfig struct {
		Amount     int    `json:"amount"`
		Category   int    `json:"category" binding:"min=0"`
		Difficulty string `json:"difficulty"`
		Type       string `json:"type"`
	}
)

func (a *API) GetQuestions(c *gin.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()

	qs, err := a.ts.GetQuestions(c.Request.Context())
	if err != nil {
		abort(c, err)
		return
	}

	c.JSON(http.StatusOK, QuestionsResponse{Questions: qs})
}

func (a *API) GetToken(c *gin.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()

	c.JSON(http.StatusOK, a.tokenResponse())
}

func (a *API) RequestToken(c *gin.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.ts.RequestToken(c.Request.Context()); err != nil {
		abort(c, err)
		return
	}

	c.JSON(http.StatusOK, a.tokenResponse())
}

func (a *API) ResetToken(c *gin.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.ts.ResetToken(c.Request.Context()); err != nil {
		abort(c, err)
		return
	}

	c.JSON(http.StatusOK, a.tokenResponse())
}

func (a *API) GetConfig(c *gin.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()

	c.JSON(http.StatusOK, toTriviaConfig(a.ts.TriviaConfig()))
}

func (a *API) UpdateConfig(c *gin.Context) {
	var req TriviaConfig
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, errors.New(errors.CodeInvalidArgument,
			errors.WithMessage("invalid trivia configuration"),
			errors.WithCause(err),
		))
		return
	}

	d, err := domain.ParseDifficulty(req.Difficulty)
	if err != nil {
		abort(c, errors.New(errors.CodeInvalidArgument, errors.WithMessage(err.Error())))
		return
	}

	t, err := domain.ParseType(req.Type)
	if err != nil {
		abort(c, errors.New(errors.CodeInvalidArgument, errors.WithMessage(err.Error())))
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.ts.SetTriviaConfig(domain.NewTriviaConfig(req.Amount, domain.Category(req.Category), d, t))
	c.JSON(http.StatusOK, toTriviaConfig(a.ts.TriviaConfig()))
}

func (a *API) tokenResponse() TokenResponse {
	return TokenResponse{
		Token:    a.ts.Token(),
		HasToken: a.ts.HasToken(),
	}
}

func toTriviaConfig(tc domain.TriviaConfig) TriviaConfig {
	return TriviaConfig{
		Amount:     tc.Amount,
		Category:   int(tc.Category),
		Difficulty: string(tc.Difficulty),
		Type:       string(tc.Type),
	}
}

func abort(c *gin.Context, err error) {
	e := errors.Convert(err)
	_ = c.Error(err)
	c.AbortWithStatusJSON(e.HTTPStatusCode(), e)
}

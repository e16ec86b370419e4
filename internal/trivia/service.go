// Package trivia owns a session token and turns the trivia service's response
// codes into results or errors.
//
// A Service is not safe for concurrent use: callers that share one must
// serialise access to it.
package trivia

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/victornm/trivia/internal/domain"
	"github.com/victornm/trivia/internal/event"
	"github.com/victornm/trivia/internal/opentdb"
)

// Source issues the two calls the service depends on.
type Source interface {
	RequestToken(ctx context.Context, cmd domain.TokenCommand, token string) (*domain.TokenResponse, error)
	FetchQuestions(ctx context.Context, cfg domain.TriviaConfig, token string) (*domain.QuestionsResponse, error)
}

var _ Source = (*opentdb.Client)(nil)

type Config struct {
	// Source defaults to an opentdb client against the public service.
	Source Source
	// EventBus, if set, receives token.updated and questions.fetched.
	EventBus *event.Bus
	// Trivia defaults to domain.DefaultTriviaConfig.
	Trivia *domain.TriviaConfig
	// Token seeds a token the caller kept from an earlier run.
	Token string
}

type Service struct {
	source Source
	eb     *event.Bus
	config domain.TriviaConfig
	token  string
	seq    uint64
}

func NewService(c Config) *Service {
	s := &Service{
		source: c.Source,
		eb:     c.EventBus,
		config: domain.DefaultTriviaConfig(),
		token:  c.Token,
	}

	if s.source == nil {
		s.source = opentdb.New()
	}
	if c.Trivia != nil {
		s.config = c.Trivia.Clamped()
	}

	return s
}

// Token returns the current session token, or "" when none is held.
func (s *Service) Token() string {
	return s.token
}

func (s *Service) HasToken() bool {
	return s.token != ""
}

func (s *Service) TriviaConfig() domain.TriviaConfig {
	return s.config
}

// SetTriviaConfig changes the query used by later GetQuestions calls.
func (s *Service) SetTriviaConfig(c domain.TriviaConfig) {
	s.config = c.Clamped()
}

// RequestToken replaces the held token with a freshly issued one.
func (s *Service) RequestToken(ctx context.Context) error {
	slog.DebugContext(ctx, "trivia: requesting token")

	resp, err := s.source.RequestToken(ctx, domain.TokenCommandRequest, "")
	if err != nil {
		return fmt.Errorf("request token: %w", err)
	}

	if resp.ResponseCode != domain.ResponseSuccess {
		slog.ErrorContext(ctx, "trivia: token request refused", "response_code", int(resp.ResponseCode))
		return domain.InvalidAPIResponse(resp.ResponseCode)
	}

	s.setToken(ctx, domain.TokenCommandRequest, resp.Token)
	return nil
}

// ResetToken asks the service to forget which questions the held token has
// seen. It fails with domain.ErrNoSessionToken, without any request, when no
// token is held.
func (s *Service) ResetToken(ctx context.Context) error {
	if !s.HasToken() {
		return domain.ErrNoSessionToken
	}

	slog.DebugContext(ctx, "trivia: resetting token")

	resp, err := s.source.RequestToken(ctx, domain.TokenCommandReset, s.token)
	if err != nil {
		return fmt.Errorf("reset token: %w", err)
	}

	if resp.ResponseCode != domain.ResponseSuccess {
		slog.ErrorContext(ctx, "trivia: token reset refused", "response_code", int(resp.ResponseCode))
		return domain.InvalidAPIResponse(resp.ResponseCode)
	}

	s.setToken(ctx, domain.TokenCommandReset, resp.Token)
	return nil
}

// GetQuestions fetches questions for the current configuration, requesting a
// token first if none is held. Every non-success response code ends the call
// with its own error; recovering (RequestToken after domain.ErrTokenNotFound,
// ResetToken after domain.ErrEmptyToken) is left to the caller.
func (s *Service) GetQuestions(ctx context.Context) ([]domain.Question, error) {
	slog.DebugContext(ctx, "trivia: getting questions", "config", s.config.String())

	if !s.HasToken() {
		slog.DebugContext(ctx, "trivia: no session token, requesting one")
		if err := s.RequestToken(ctx); err != nil {
			return nil, err
		}
	}

	resp, err := s.source.FetchQuestions(ctx, s.config, s.token)
	if err != nil {
		return nil, fmt.Errorf("get questions: %w", err)
	}

	if resp.ResponseCode != domain.ResponseSuccess {
		slog.WarnContext(ctx, "trivia: questions refused", "response_code", int(resp.ResponseCode))
	}

	switch resp.ResponseCode {
	case domain.ResponseSuccess:
	case domain.ResponseNoResults:
		return nil, domain.ErrNoResults
	case domain.ResponseInvalidParameter:
		return nil, domain.ErrInvalidParameter
	case domain.ResponseTokenNotFound:
		return nil, domain.ErrTokenNotFound
	case domain.ResponseTokenEmpty:
		return nil, domain.ErrEmptyToken
	default:
		return nil, domain.UnknownResponse(resp.ResponseCode)
	}

	questions := make([]domain.Question, 0, len(resp.Results))
	for i, raw := range resp.Results {
		q, err := domain.NewQuestion(raw)
		if err != nil {
			return nil, fmt.Errorf("get questions: result %d: %w", i, err)
		}
		questions = append(questions, q)
	}

	slog.DebugContext(ctx, "trivia: got questions", "count", len(questions))

	s.eb.Publish(ctx, domain.EventQuestionsFetched{
		Config: s.config,
		Count:  len(questions),
	})

	return questions, nil
}

func (s *Service) setToken(ctx context.Context, cmd domain.TokenCommand, token string) {
	s.token = token
	s.seq++

	s.eb.Publish(ctx, domain.EventTokenUpdated{
		Command: cmd,
		Token:   token,
		Seq:     s.seq,
	})
}

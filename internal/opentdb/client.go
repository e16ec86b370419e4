// Package opentdb talks to the Open Trivia Database over HTTP.
package opentdb

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/victornm/trivia/internal/domain"
	"github.com/victornm/trivia/internal/errors"
	"github.com/victornm/trivia/internal/telemetry"
)

type Endpoint string

const (
	EndpointQuestions Endpoint = "/api.php"
	EndpointToken     Endpoint = "/api_token.php"
)

const (
	DefaultBaseURL = "https://opentdb.com"
	defaultTimeout = 10 * time.Second

	// encoding asks the service to percent-encode every text field.
	encoding = "url3986"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Pointers tell an absent or null field apart from a zero value.
type tokenResponse struct {
	ResponseCode    *int    `json:"response_code" validate:"required"`
	ResponseMessage string  `json:"response_message"`
	Token           *string `json:"token" validate:"required"`
}

type questionsResponse struct {
	ResponseCode *int                  `json:"response_code" validate:"required"`
	Results      *[]domain.RawQuestion `json:"results" validate:"required"`
}

type options struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
}

type Option func(*options)

// WithBaseURL points the client at another host, e.g. a test server.
func WithBaseURL(u string) Option {
	return func(o *options) {
		o.baseURL = u
	}
}

func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		o.httpClient = c
	}
}

// Client is the HTTP implementation of the question and token source.
type Client struct {
	opts       options
	httpClient *http.Client
}

func New(opts ...Option) *Client {
	o := options{
		baseURL: DefaultBaseURL,
		timeout: defaultTimeout,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.httpClient == nil {
		o.httpClient = &http.Client{Timeout: o.timeout}
	}

	return &Client{opts: o, httpClient: o.httpClient}
}

// BuildURL composes the URL of endpoint. Parameters with an empty value are
// left out of the query string; the rest are encoded in key order.
func (c *Client) BuildURL(endpoint Endpoint, params url.Values) (string, error) {
	u, err := url.Parse(c.opts.baseURL)
	if err != nil {
		return "", domain.ErrInvalidURL.With(errors.WithCause(err))
	}
	if u.Scheme == "" || u.Host == "" {
		return "", domain.ErrInvalidURL.With(errors.WithMessagef("base URL %q has no scheme or host", c.opts.baseURL))
	}

	q := make(url.Values, len(params))
	for k, vs := range params {
		for _, v := range vs {
			if v != "" {
				q.Add(k, v)
			}
		}
	}

	u = u.JoinPath(string(endpoint))
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// RequestToken asks for a new token, or for a reset of token when cmd is
// TokenCommandReset. The payload's response code is returned, not judged.
func (c *Client) RequestToken(ctx context.Context, cmd domain.TokenCommand, token string) (*domain.TokenResponse, error) {
	params := url.Values{"command": {string(cmd)}}
	if cmd == domain.TokenCommandReset {
		params.Set("token", token)
	}

	u, err := c.BuildURL(EndpointToken, params)
	if err != nil {
		return nil, err
	}

	var resp tokenResponse
	if err := c.fetch(ctx, EndpointToken, u, &resp); err != nil {
		return nil, err
	}

	code := domain.ResponseCode(*resp.ResponseCode)
	telemetry.ObserveResponseCode(string(EndpointToken), code)

	return &domain.TokenResponse{
		ResponseCode:    code,
		ResponseMessage: resp.ResponseMessage,
		Token:           *resp.Token,
	}, nil
}

// FetchQuestions asks for questions matching cfg. Unconstrained fields and an
// empty token are omitted from the request.
func (c *Client) FetchQuestions(ctx context.Context, cfg domain.TriviaConfig, token string) (*domain.QuestionsResponse, error) {
	params := url.Values{
		"amount": {strconv.Itoa(cfg.Amount)},
		"token":  {token},
		"encode": {encoding},
	}
	if cfg.Category != domain.CategoryAny {
		params.Set("category", strconv.Itoa(int(cfg.Category)))
	}
	if cfg.Difficulty != domain.DifficultyAny {
		params.Set("difficulty", string(cfg.Difficulty))
	}
	if cfg.Type != domain.TypeAny {
		params.Set("type", string(cfg.Type))
	}

	u, err := c.BuildURL(EndpointQuestions, params)
	if err != nil {
		return nil, err
	}

	var resp questionsResponse
	if err := c.fetch(ctx, EndpointQuestions, u, &resp); err != nil {
		return nil, err
	}

	code := domain.ResponseCode(*resp.ResponseCode)
	telemetry.ObserveResponseCode(string(EndpointQuestions), code)

	return &domain.QuestionsResponse{
		ResponseCode: code,
		Results:      *resp.Results,
	}, nil
}

func (c *Client) fetch(ctx context.Context, endpoint Endpoint, u string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return domain.ErrInvalidURL.With(errors.WithCause(err))
	}
	req.Header.Set("Accept", "application/json")

	slog.DebugContext(ctx, "opentdb: sending request", "endpoint", endpoint)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		telemetry.ObserveRequest(string(endpoint), 0, time.Since(start))
		return domain.Transport(fmt.Errorf("%s: %w", endpoint, err))
	}
	defer resp.Body.Close()

	telemetry.ObserveRequest(string(endpoint), resp.StatusCode, time.Since(start))

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		slog.ErrorContext(ctx, "opentdb: unsuccessful HTTP status",
			"endpoint", endpoint,
			"status", resp.StatusCode,
		)
		return domain.ServerStatus(resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return domain.Decode(fmt.Errorf("%s: %w", endpoint, err))
	}
	if err := validate.Struct(v); err != nil {
		return domain.Decode(fmt.Errorf("%s: %w", endpoint, err))
	}

	return nil
}

package opentdb_test

import (
	"context"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/victornm/trivia/internal/domain"
	"github.com/victornm/trivia/internal/opentdb"
)

type roundTrip func(*http.Request) (*http.Response, error)

func (r roundTrip) RoundTrip(req *http.Request) (*http.Response, error) {
	return r(req)
}

func TestClient_BuildURL(t *testing.T) {
	tests := map[string]struct {
		baseURL  string
		endpoint opentdb.Endpoint
		params   url.Values
		want     string
		wantErr  error
	}{
		"token request": {
			endpoint: opentdb.EndpointToken,
			params:   url.Values{"command": {"request"}},
			want:     "https://opentdb.com/api_token.php?command=request",
		},
		"empty values should be omitted": {
			endpoint: opentdb.EndpointQuestions,
			params:   url.Values{"amount": {"10"}, "category": {""}, "token": {""}},
			want:     "https://opentdb.com/api.php?amount=10",
		},
		"values should be escaped": {
			endpoint: opentdb.EndpointToken,
			params:   url.Values{"command": {"reset"}, "token": {"a b&c"}},
			want:     "https://opentdb.com/api_token.php?command=reset&token=a+b%26c",
		},
		"custom base URL": {
			baseURL:  "http://127.0.0.1:8080",
			endpoint: opentdb.EndpointQuestions,
			params:   url.Values{"amount": {"1"}},
			want:     "http://127.0.0.1:8080/api.php?amount=1",
		},
		"malformed base URL should fail": {
			baseURL:  "://opentdb.com",
			endpoint: opentdb.EndpointQuestions,
			wantErr:  domain.ErrInvalidURL,
		},
		"base URL without host should fail": {
			baseURL:  "opentdb.com",
			endpoint: opentdb.EndpointQuestions,
			wantErr:  domain.ErrInvalidURL,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			var opts []opentdb.Option
			if tt.baseURL != "" {
				opts = append(opts, opentdb.WithBaseURL(tt.baseURL))
			}

			got, err := opentdb.New(opts...).BuildURL(tt.endpoint, tt.params)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClient_FetchQuestionsQuery(t *testing.T) {
	tests := map[string]struct {
		config domain.TriviaConfig
		token  string
		want   url.Values
	}{
		"unconstrained fields should be omitted": {
			config: domain.NewTriviaConfig(10, domain.CategoryAny, domain.DifficultyAny, domain.TypeAny),
			want: url.Values{
				"amount": {"10"},
				"encode": {"url3986"},
			},
		},
		"explicit fields should be present once": {
			config: domain.NewTriviaConfig(5, 15, domain.DifficultyHard, domain.TypeMultipleChoice),
			token:  "tok",
			want: url.Values{
				"amount":     {"5"},
				"category":   {"15"},
				"difficulty": {"hard"},
				"type":       {"multiple"},
				"token":      {"tok"},
				"encode":     {"url3986"},
			},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			var got *url.URL
			c := opentdb.New(opentdb.WithHTTPClient(&http.Client{
				Transport: roundTrip(func(req *http.Request) (*http.Response, error) {
					got = req.URL
					return jsonResponse(http.StatusOK, `{"response_code":0,"results":[]}`), nil
				}),
			}))

			resp, err := c.FetchQuestions(context.Background(), tt.config, tt.token)
			require.NoError(t, err)
			assert.Equal(t, domain.ResponseSuccess, resp.ResponseCode)
			assert.Empty(t, resp.Results)

			require.NotNil(t, got)
			assert.Equal(t, "opentdb.com", got.Host)
			assert.Equal(t, "/api.php", got.Path)
			assert.Equal(t, tt.want, got.Query())
		})
	}
}

func TestClient_RequestToken(t *testing.T) {
	tests := map[string]struct {
		cmd       domain.TokenCommand
		token     string
		body      string
		wantQuery url.Values
		want      *domain.TokenResponse
	}{
		"request should not send a token": {
			cmd:       domain.TokenCommandRequest,
			token:     "ignored",
			body:      `{"response_code":0,"response_message":"Token Generated Successfully!","token":"12345"}`,
			wantQuery: url.Values{"command": {"request"}},
			want: &domain.TokenResponse{
				ResponseCode:    domain.ResponseSuccess,
				ResponseMessage: "Token Generated Successfully!",
				Token:           "12345",
			},
		},
		"reset should send the current token": {
			cmd:       domain.TokenCommandReset,
			token:     "321",
			body:      `{"response_code":0,"token":"12345"}`,
			wantQuery: url.Values{"command": {"reset"}, "token": {"321"}},
			want: &domain.TokenResponse{
				ResponseCode: domain.ResponseSuccess,
				Token:        "12345",
			},
		},
		"non-success code should be returned as is": {
			cmd:       domain.TokenCommandReset,
			token:     "321",
			body:      `{"response_code":3,"token":""}`,
			wantQuery: url.Values{"command": {"reset"}, "token": {"321"}},
			want: &domain.TokenResponse{
				ResponseCode: domain.ResponseTokenNotFound,
			},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/api_token.php", r.URL.Path)
				assert.Equal(t, tt.wantQuery, r.URL.Query())
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(tt.body))
			}))
			t.Cleanup(srv.Close)

			c := opentdb.New(opentdb.WithBaseURL(srv.URL))
			got, err := c.RequestToken(context.Background(), tt.cmd, tt.token)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClient_Failures(t *testing.T) {
	tests := map[string]struct {
		status    int
		body      string
		token     bool
		transport error
		wantErr   error
		assert    func(t *testing.T, err error)
	}{
		"server error status should fail with server status": {
			status:  http.StatusInternalServerError,
			body:    `{"response_code":0,"results":[]}`,
			wantErr: domain.ErrServerStatus,
			assert: func(t *testing.T, err error) {
				var se domain.StatusError
				require.True(t, stderrors.As(err, &se))
				assert.Equal(t, http.StatusInternalServerError, se.StatusCode)
			},
		},
		"redirect status should fail with server status": {
			status:  http.StatusNotModified,
			wantErr: domain.ErrServerStatus,
		},
		"rate limit status should fail with server status": {
			status:  http.StatusTooManyRequests,
			body:    `{"response_code":5}`,
			wantErr: domain.ErrServerStatus,
		},
		"malformed body should fail with decode": {
			status:  http.StatusOK,
			body:    `<html>`,
			wantErr: domain.ErrDecode,
			assert: func(t *testing.T, err error) {
				assert.NotErrorIs(t, err, domain.ErrServerStatus)
			},
		},
		"wrong field type should fail with decode": {
			status:  http.StatusOK,
			body:    `{"response_code":"zero","results":[]}`,
			wantErr: domain.ErrDecode,
		},
		"missing response code should fail with decode": {
			status:  http.StatusOK,
			body:    `{"results":[]}`,
			wantErr: domain.ErrDecode,
		},
		"missing token should fail with decode": {
			status:  http.StatusOK,
			body:    `{"response_code":0}`,
			token:   true,
			wantErr: domain.ErrDecode,
		},
		"null token should fail with decode": {
			status:  http.StatusOK,
			body:    `{"response_code":0,"token":null}`,
			token:   true,
			wantErr: domain.ErrDecode,
		},
		"missing results should fail with decode": {
			status:  http.StatusOK,
			body:    `{"response_code":0}`,
			wantErr: domain.ErrDecode,
		},
		"null results should fail with decode": {
			status:  http.StatusOK,
			body:    `{"response_code":0,"results":null}`,
			wantErr: domain.ErrDecode,
		},
		"transport failure should fail with transport": {
			transport: stderrors.New("connection refused"),
			wantErr:   domain.ErrTransport,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			c := opentdb.New(opentdb.WithHTTPClient(&http.Client{
				Transport: roundTrip(func(*http.Request) (*http.Response, error) {
					if tt.transport != nil {
						return nil, tt.transport
					}
					return jsonResponse(tt.status, tt.body), nil
				}),
			}))

			var err error
			if tt.token {
				_, err = c.RequestToken(context.Background(), domain.TokenCommandRequest, "")
			} else {
				_, err = c.FetchQuestions(context.Background(), domain.DefaultTriviaConfig(), "")
			}
			require.ErrorIs(t, err, tt.wantErr)
			if tt.assert != nil {
				tt.assert(t, err)
			}
		})
	}
}

func TestClient_FetchQuestionsKeepsRawResults(t *testing.T) {
	body := `{"response_code":0,"results":[{"category":"Entertainment%3A%20Video%20Games","type":"multiple","difficulty":"medium","question":"Q%3F","correct_answer":"A","incorrect_answers":["B","C","D"]}]}`
	c := opentdb.New(opentdb.WithHTTPClient(&http.Client{
		Transport: roundTrip(func(*http.Request) (*http.Response, error) {
			return jsonResponse(http.StatusOK, body), nil
		}),
	}))

	resp, err := c.FetchQuestions(context.Background(), domain.DefaultTriviaConfig(), "tok")
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, domain.RawQuestion{
		Category:         "Entertainment%3A%20Video%20Games",
		Type:             domain.TypeMultipleChoice,
		Difficulty:       domain.DifficultyMedium,
		Question:         "Q%3F",
		CorrectAnswer:    "A",
		IncorrectAnswers: []string{"B", "C", "D"},
	}, resp.Results[0])
}

func jsonResponse(status int, body string) *http.Response {
	rec := httptest.NewRecorder()
	rec.Header().Set("Content-Type", "application/json")
	rec.WriteHeader(status)
	_, _ = rec.WriteString(body)
	return rec.Result()
}

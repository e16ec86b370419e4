package domain

import (
	"fmt"

	"github.com/victornm/trivia/internal/errors"
)

const (
	ReasonInvalidURL         = "INVALID_URL"
	ReasonServerStatus       = "SERVER_STATUS"
	ReasonTransport          = "TRANSPORT"
	ReasonDecode             = "DECODE"
	ReasonInvalidAPIResponse = "INVALID_API_RESPONSE"
	ReasonUnknownResponse    = "UNKNOWN_RESPONSE"
	ReasonNoSessionToken     = "NO_SESSION_TOKEN"
	ReasonNoResults          = "NO_RESULTS"
	ReasonInvalidParameter   = "INVALID_PARAMETER"
	ReasonTokenNotFound      = "TOKEN_NOT_FOUND"
	ReasonEmptyToken         = "EMPTY_TOKEN"
)

// Sentinels for errors.Is. Call sites that need a cause or a status use With.
var (
	ErrInvalidURL = errors.New(errors.CodeInternal,
		errors.WithReason(ReasonInvalidURL),
		errors.WithMessage("request URL could not be composed"),
	)

	ErrServerStatus = errors.New(errors.CodeUnavailable,
		errors.WithReason(ReasonServerStatus),
		errors.WithMessage("trivia service answered with an unsuccessful HTTP status"),
	)

	ErrTransport = errors.New(errors.CodeUnavailable,
		errors.WithReason(ReasonTransport),
		errors.WithMessage("trivia service could not be reached"),
	)

	ErrDecode = errors.New(errors.CodeInternal,
		errors.WithReason(ReasonDecode),
		errors.WithMessage("response body does not match the expected shape"),
	)

	ErrInvalidAPIResponse = errors.New(errors.CodeUnavailable,
		errors.WithReason(ReasonInvalidAPIResponse),
		errors.WithMessage("trivia service did not report success"),
	)

	ErrUnknownResponse = errors.New(errors.CodeUnknown,
		errors.WithReason(ReasonUnknownResponse),
		errors.WithMessage("trivia service returned an undocumented response code"),
	)

	ErrNoSessionToken = errors.New(errors.CodeFailedPrecondition,
		errors.WithReason(ReasonNoSessionToken),
		errors.WithMessage("there is no session token to reset"),
		errors.WithRemedy("Request a session token first."),
	)

	ErrNoResults = errors.New(errors.CodeNotFound,
		errors.WithReason(ReasonNoResults),
		errors.WithMessage("there are not enough questions for this query"),
		errors.WithRemedy("Ask for fewer questions or loosen the category, difficulty or type."),
	)

	ErrInvalidParameter = errors.New(errors.CodeInvalidArgument,
		errors.WithReason(ReasonInvalidParameter),
		errors.WithMessage("the query contains an invalid parameter"),
		errors.WithRemedy("Check the trivia configuration values."),
	)

	ErrTokenNotFound = errors.New(errors.CodeFailedPrecondition,
		errors.WithReason(ReasonTokenNotFound),
		errors.WithMessage("the session token does not exist"),
		errors.WithRemedy("Request a new session token, then retry."),
	)

	ErrEmptyToken = errors.New(errors.CodeFailedPrecondition,
		errors.WithReason(ReasonEmptyToken),
		errors.WithMessage("all questions for this query have been seen with the current session token"),
		errors.WithRemedy("Reset the session token, then retry."),
	)
)

// StatusError carries an HTTP status outside the 2xx range.
type StatusError struct {
	StatusCode int
}

func (e StatusError) Error() string {
	return fmt.Sprintf("http status %d", e.StatusCode)
}

// ResponseCodeError carries the response code that made a payload unacceptable.
type ResponseCodeError struct {
	Code ResponseCode
}

func (e ResponseCodeError) Error() string {
	return fmt.Sprintf("response code %d", int(e.Code))
}

// ServerStatus reports an HTTP status outside 200-299.
func ServerStatus(code int) error {
	return ErrServerStatus.With(
		errors.WithMessagef("trivia service answered with HTTP status %d", code),
		errors.WithCause(StatusError{StatusCode: code}),
	)
}

// InvalidAPIResponse reports a non-success code where success was required.
// Codes outside the documented set are reported as ErrUnknownResponse.
func InvalidAPIResponse(code ResponseCode) error {
	if !code.Known() {
		return UnknownResponse(code)
	}

	return ErrInvalidAPIResponse.With(
		errors.WithMessagef("trivia service did not report success: %s", code),
		errors.WithCause(ResponseCodeError{Code: code}),
	)
}

func UnknownResponse(code ResponseCode) error {
	return ErrUnknownResponse.With(errors.WithCause(ResponseCodeError{Code: code}))
}

func Transport(err error) error {
	return ErrTransport.With(errors.WithCause(err))
}

func Decode(err error) error {
	return ErrDecode.With(errors.WithCause(err))
}

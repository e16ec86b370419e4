package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// MaxQuestions is the largest amount the question endpoint accepts per call.
const MaxQuestions = 50

// Category identifies an Open Trivia Database category. CategoryAny leaves the
// category unconstrained.
type Category int

const CategoryAny Category = 0

func (c Category) String() string {
	if c == CategoryAny {
		return "any category"
	}
	return strconv.Itoa(int(c))
}

type Difficulty string

const (
	DifficultyAny    Difficulty = "any"
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// ParseDifficulty accepts the wire names, case-insensitively. The empty string
// is treated as DifficultyAny.
func ParseDifficulty(s string) (Difficulty, error) {
	switch d := Difficulty(strings.ToLower(s)); d {
	case "":
		return DifficultyAny, nil
	case DifficultyAny, DifficultyEasy, DifficultyMedium, DifficultyHard:
		return d, nil
	default:
		return "", fmt.Errorf("unknown difficulty %q", s)
	}
}

func (d Difficulty) Title() string {
	switch d {
	case DifficultyEasy:
		return "Easy"
	case DifficultyMedium:
		return "Medium"
	case DifficultyHard:
		return "Hard"
	default:
		return "Any"
	}
}

type Type string

const (
	TypeAny            Type = "any"
	TypeMultipleChoice Type = "multiple"
	TypeTrueFalse      Type = "boolean"
)

// ParseType accepts the wire names, case-insensitively. The empty string is
// treated as TypeAny.
func ParseType(s string) (Type, error) {
	switch t := Type(strings.ToLower(s)); t {
	case "":
		return TypeAny, nil
	case TypeAny, TypeMultipleChoice, TypeTrueFalse:
		return t, nil
	default:
		return "", fmt.Errorf("unknown question type %q", s)
	}
}

func (t Type) Title() string {
	switch t {
	case TypeMultipleChoice:
		return "Multiple choice"
	case TypeTrueFalse:
		return "True or false"
	default:
		return "Any"
	}
}

// TriviaConfig describes which questions to ask for.
type TriviaConfig struct {
	Amount     int
	Category   Category
	Difficulty Difficulty
	Type       Type
}

// NewTriviaConfig clamps amount into [0, MaxQuestions].
func NewTriviaConfig(amount int, category Category, difficulty Difficulty, typ Type) TriviaConfig {
	return TriviaConfig{
		Amount:     min(max(0, amount), MaxQuestions),
		Category:   category,
		Difficulty: difficulty,
		Type:       typ,
	}
}

func DefaultTriviaConfig() TriviaConfig {
	return NewTriviaConfig(10, CategoryAny, DifficultyEasy, TypeAny)
}

// Clamped returns c with the same bounds NewTriviaConfig enforces.
func (c TriviaConfig) Clamped() TriviaConfig {
	return NewTriviaConfig(c.Amount, c.Category, c.Difficulty, c.Type)
}

func (c TriviaConfig) String() string {
	return fmt.Sprintf("amount=%d category=%s difficulty=%s type=%s", c.Amount, c.Category, c.Difficulty, c.Type)
}

// TokenCommand is the action sent to the token endpoint.
type TokenCommand string

const (
	TokenCommandRequest TokenCommand = "request"
	TokenCommandReset   TokenCommand = "reset"
)

// ResponseCode is the outcome embedded in every API payload, distinct from the
// HTTP status.
type ResponseCode int

const (
	ResponseSuccess          ResponseCode = 0
	ResponseNoResults        ResponseCode = 1
	ResponseInvalidParameter ResponseCode = 2
	ResponseTokenNotFound    ResponseCode = 3
	ResponseTokenEmpty       ResponseCode = 4
)

func (c ResponseCode) Known() bool {
	return c >= ResponseSuccess && c <= ResponseTokenEmpty
}

func (c ResponseCode) String() string {
	switch c {
	case ResponseSuccess:
		return "Returned results successfully."
	case ResponseNoResults:
		return "Could not return results. The API doesn't have enough questions for your query."
	case ResponseInvalidParameter:
		return "Contains an invalid parameter. Arguments passed in aren't valid."
	case ResponseTokenNotFound:
		return "Session Token does not exist."
	case ResponseTokenEmpty:
		return "Session Token has returned all possible questions for the specified query. Resetting the Token is necessary."
	default:
		return fmt.Sprintf("Unknown response code %d.", int(c))
	}
}

// TokenResponse is the payload of the token endpoint.
type TokenResponse struct {
	ResponseCode    ResponseCode
	ResponseMessage string
	Token           string
}

// QuestionsResponse is the payload of the question endpoint. Results are still
// percent-encoded.
type QuestionsResponse struct {
	ResponseCode ResponseCode
	Results      []RawQuestion
}

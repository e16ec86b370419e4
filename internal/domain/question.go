package domain

import (
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"net/url"
	"slices"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// RawQuestion is a question record as it is sent on the wire, with every text
// field percent-encoded.
type RawQuestion struct {
	Category         string     `json:"category" validate:"required"`
	Type             Type       `json:"type" validate:"oneof=multiple boolean"`
	Difficulty       Difficulty `json:"difficulty" validate:"oneof=easy medium hard"`
	Question         string     `json:"question" validate:"required"`
	CorrectAnswer    string     `json:"correct_answer" validate:"required"`
	IncorrectAnswers []string   `json:"incorrect_answers" validate:"required"`
}

// Question is a decoded trivia question. It is immutable: accessors that expose
// slices return copies.
type Question struct {
	typ        Type
	difficulty Difficulty
	category   string
	text       string
	correct    string
	incorrect  []string
	all        []string
}

// NewQuestion decodes raw and derives the answer list. True/false answers are
// sorted so "False" comes before "True"; any other type is shuffled once.
func NewQuestion(raw RawQuestion) (Question, error) {
	if err := validate.Struct(raw); err != nil {
		return Question{}, Decode(fmt.Errorf("question: %w", err))
	}

	q := Question{
		typ:        raw.Type,
		difficulty: raw.Difficulty,
		incorrect:  make([]string, 0, len(raw.IncorrectAnswers)),
	}

	var err error
	if q.category, err = unescape(raw.Category); err != nil {
		return Question{}, Decode(fmt.Errorf("category: %w", err))
	}
	if q.text, err = unescape(raw.Question); err != nil {
		return Question{}, Decode(fmt.Errorf("question: %w", err))
	}
	if q.correct, err = unescape(raw.CorrectAnswer); err != nil {
		return Question{}, Decode(fmt.Errorf("correct answer: %w", err))
	}
	for i, a := range raw.IncorrectAnswers {
		s, err := unescape(a)
		if err != nil {
			return Question{}, Decode(fmt.Errorf("incorrect answer %d: %w", i, err))
		}
		q.incorrect = append(q.incorrect, s)
	}

	q.all = append(slices.Clone(q.incorrect), q.correct)
	if q.typ == TypeTrueFalse {
		slices.Sort(q.all)
	} else {
		rand.Shuffle(len(q.all), func(i, j int) {
			q.all[i], q.all[j] = q.all[j], q.all[i]
		})
	}

	return q, nil
}

// unescape reverses RFC 3986 percent-encoding. The result must be valid UTF-8.
func unescape(s string) (string, error) {
	d, err := url.PathUnescape(s)
	if err != nil {
		return "", err
	}
	if !utf8.ValidString(d) {
		return "", fmt.Errorf("%q does not decode to valid UTF-8", s)
	}

	return d, nil
}

func (q Question) Type() Type             { return q.typ }
func (q Question) Difficulty() Difficulty { return q.difficulty }
func (q Question) Category() string       { return q.category }
func (q Question) Text() string           { return q.text }
func (q Question) CorrectAnswer() string  { return q.correct }

func (q Question) IncorrectAnswers() []string {
	return slices.Clone(q.incorrect)
}

// AllAnswers returns the incorrect answers together with the correct one, in
// the order fixed at construction.
func (q Question) AllAnswers() []string {
	return slices.Clone(q.all)
}

func (q Question) IsCorrect(answer string) bool {
	return answer == q.correct
}

type questionJSON struct {
	Type             Type       `json:"type"`
	Difficulty       Difficulty `json:"difficulty"`
	Category         string     `json:"category"`
	Question         string     `json:"question"`
	CorrectAnswer    string     `json:"correct_answer"`
	IncorrectAnswers []string   `json:"incorrect_answers"`
	AllAnswers       []string   `json:"all_answers"`
}

func (q Question) MarshalJSON() ([]byte, error) {
	return json.Marshal(questionJSON{
		Type:             q.typ,
		Difficulty:       q.difficulty,
		Category:         q.category,
		Question:         q.text,
		CorrectAnswer:    q.correct,
		IncorrectAnswers: q.incorrect,
		AllAnswers:       q.all,
	})
}

// UnmarshalJSON reads a raw, percent-encoded record and decodes it.
func (q *Question) UnmarshalJSON(b []byte) error {
	var raw RawQuestion
	if err := json.Unmarshal(b, &raw); err != nil {
		return Decode(err)
	}

	d, err := NewQuestion(raw)
	if err != nil {
		return err
	}

	*q = d
	return nil
}

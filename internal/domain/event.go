package domain

const (
	EventNameTokenUpdated     = "token.updated"
	EventNameQuestionsFetched = "questions.fetched"
)

// EventTokenUpdated is published after a token request or reset succeeded.
// Seq increases with every update from the same service, so handlers running
// concurrently can tell which token is the latest.
type EventTokenUpdated struct {
	Command TokenCommand
	Token   string
	Seq     uint64
}

func (EventTokenUpdated) Name() string { return EventNameTokenUpdated }

type EventQuestionsFetched struct {
	Config TriviaConfig
	Count  int
}

func (EventQuestionsFetched) Name() string { return EventNameQuestionsFetched }

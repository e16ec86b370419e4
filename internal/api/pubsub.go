package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/victornm/trivia/internal/domain"
)

type (
	Notification struct {
		Event string `json:"event"`
		Data  any    `json:"data"`
	}

	TokenUpdated struct {
		Command string `json:"command"`
		Token   string `json:"token"`
	}

	QuestionsFetched struct {
		Config TriviaConfig `json:"config"`
		Count  int          `json:"count"`
	}
)

// PublishTokenUpdated lets other instances sharing the same Redis pick up a
// new session token.
func (a *API) PublishTokenUpdated(ctx context.Context, e domain.EventTokenUpdated) error {
	return a.publishNotification(ctx, e.Name(), TokenUpdated{
		Command: string(e.Command),
		Token:   e.Token,
	})
}

func (a *API) PublishQuestionsFetched(ctx context.Context, e domain.EventQuestionsFetched) error {
	return a.publishNotification(ctx, e.Name(), QuestionsFetched{
		Config: toTriviaConfig(e.Config),
		Count:  e.Count,
	})
}

func (a *API) publishNotification(ctx context.Context, event string, data any) error {
	n := Notification{
		Event: event,
		Data:  data,
	}

	b, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("pubsub: marshal %s: %v", event, err)
	}

	return a.redis.Publish(ctx, fmt.Sprintf("%s:events", a.prefix), b).Err()
}

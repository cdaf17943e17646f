package queue

import (
	"context"
	"encoding/json"
)

// Job handles every message of one type.
type Job interface {
	Type() string
	Handle(ctx context.Context, msg Message) error
}

// JobFunc adapts a function into a Job.
type JobFunc struct {
	JobType string
	Fn      func(ctx context.Context, msg Message) error
}

func (j JobFunc) Type() string { return j.JobType }

func (j JobFunc) Handle(ctx context.Context, msg Message) error { return j.Fn(ctx, msg) }

// Decode unmarshals a message payload into T.
func Decode[T any](msg Message) (*T, error) {
	var out T
	if err := json.Unmarshal(msg.Payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Package session keeps conversation state between turns.
package session

import (
	"context"
	"errors"

	"outreach/pkg/conversation"
	"outreach/pkg/email"
)

// ErrNotFound is returned when a session id has no stored state.
var ErrNotFound = errors.New("session not found")

// Store is a key-value store of conversation state.
type Store interface {
	Get(ctx context.Context, id string) (*conversation.State, error)
	Set(ctx context.Context, id string, state *conversation.State) error
	Clear(ctx context.Context, id string) error
	Close() error
}

// Load returns the stored state for id, or a fresh state when there is none.
func Load(ctx context.Context, store Store, id string) (*conversation.State, error) {
	state, err := store.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return &conversation.State{}, nil
	}
	return state, err
}

// clone copies state so stored values never alias a caller's.
func clone(state *conversation.State) conversation.State {
	out := conversation.State{Step: state.Step}
	if state.Slots != nil {
		out.Slots = make(map[email.Slot]string, len(state.Slots))
		for k, v := range state.Slots {
			out.Slots[k] = v
		}
	}
	if state.Result != nil {
		result := *state.Result
		out.Result = &result
	}
	return out
}

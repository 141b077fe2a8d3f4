// Package audit defines the change-log contract: every mutation of the
// canonical store emits exactly one entry carrying the full before/after
// state, recorded synchronously inside the same transaction as the mutation.
package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrInvalidEntry indicates an entry missing required fields.
var ErrInvalidEntry = errors.New("invalid audit entry")

// ChangeKind classifies a mutation.
type ChangeKind string

const (
	ChangeCreate ChangeKind = "create"
	ChangeUpdate ChangeKind = "update"
	ChangeDelete ChangeKind = "delete"
)

// Entity type labels used across the store.
const (
	EntityProject  = "project"
	EntityStrategy = "strategy"
	EntityEvent    = "monthly_event"
	EntitySnapshot = "snapshot"
)

// Entry is one recorded mutation. BeforeState and AfterState hold the JSON
// encoding of the entity before and after the change; BeforeState is empty
// for creates and AfterState is empty for deletes.
type Entry struct {
	ID          int64      `json:"id"`
	EntityType  string     `json:"entity_type"`
	EntityID    string     `json:"entity_id"`
	ChangeKind  ChangeKind `json:"change_kind"`
	BeforeState string     `json:"before_state,omitempty"`
	AfterState  string     `json:"after_state,omitempty"`
	Actor       string     `json:"actor"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Recorder receives audit entries. Implementations persist the entry within
// the caller's transaction; a Recorder error fails the mutation.
type Recorder interface {
	Record(ctx context.Context, entry *Entry) error
}

// ListOptions filters audit log reads.
type ListOptions struct {
	EntityType string
	EntityID   string
	Limit      int
	Offset     int
}

// NewEntry builds an entry, JSON-encoding the before/after states. Pass nil
// for the absent side of a create or delete.
func NewEntry(entityType, entityID string, kind ChangeKind, before, after any, actor string) (*Entry, error) {
	if entityType == "" || entityID == "" {
		return nil, ErrInvalidEntry
	}
	entry := &Entry{
		EntityType: entityType,
		EntityID:   entityID,
		ChangeKind: kind,
		Actor:      actor,
		CreatedAt:  time.Now().UTC(),
	}
	var err error
	if entry.BeforeState, err = encodeState(before); err != nil {
		return nil, fmt.Errorf("encoding before state: %w", err)
	}
	if entry.AfterState, err = encodeState(after); err != nil {
		return nil, fmt.Errorf("encoding after state: %w", err)
	}
	return entry, nil
}

func encodeState(state any) (string, error) {
	if state == nil {
		return "", nil
	}
	data, err := json.Marshal(state)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

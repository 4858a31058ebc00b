// Package audit records who changed what: author enrichment for documents
// and the state-transition trail.
package audit

import (
	"context"

	appctx "paydocs/internal/core/context"
	"paydocs/internal/core/id"
)

// EnrichCreatedByDirect sets both author fields from the context user.
// No-op when the context carries no user.
func EnrichCreatedByDirect(ctx context.Context, createdBy, updatedBy *string) {
	userID := appctx.GetUserID(ctx)
	if userID != "" && createdBy != nil && updatedBy != nil {
		*createdBy = userID
		*updatedBy = userID
	}
}

// EnrichUpdatedByDirect sets UpdatedBy from the context user.
func EnrichUpdatedByDirect(ctx context.Context, updatedBy *string) {
	userID := appctx.GetUserID(ctx)
	if userID != "" && updatedBy != nil {
		*updatedBy = userID
	}
}

// Action names a recorded change.
type Action string

const (
	ActionCreate     Action = "create"
	ActionUpdate     Action = "update"
	ActionDelete     Action = "delete"
	ActionTransition Action = "transition"
)

// Entry is one audit record.
type Entry struct {
	EntityType string
	EntityID   id.ID
	Action     Action
	FromState  string
	ToState    string
	Changes    map[string]any
}

// Recorder persists audit entries within the caller's transaction.
type Recorder interface {
	Record(ctx context.Context, e Entry) error
}

// Nop discards entries.
type Nop struct{}

// Record implements Recorder.
func (Nop) Record(context.Context, Entry) error { return nil }

// Transition is shorthand for a state change entry.
func Transition(entityType string, entityID id.ID, from, to string) Entry {
	return Entry{
		EntityType: entityType,
		EntityID:   entityID,
		Action:     ActionTransition,
		FromState:  from,
		ToState:    to,
	}
}

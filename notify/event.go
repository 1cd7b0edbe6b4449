package notify

import (
	"github.com/hupe1980/matchgo/document"
	"github.com/hupe1980/matchgo/registry"
)

// Action identifies the mutation that produced an event. The set is closed;
// Dispatch rejects anything outside it.
type Action uint8

const (
	// ActionCreate is a new document.
	ActionCreate Action = iota + 1
	// ActionCreateOrUpdate is an upsert; Before is nil for the create case.
	ActionCreateOrUpdate
	// ActionReplace overwrites a document wholesale.
	ActionReplace
	// ActionUpdate is a partial update.
	ActionUpdate
	// ActionDelete removes a document.
	ActionDelete
	// ActionPublish is a transient message that never hits storage.
	ActionPublish
)

// String returns the wire name of the action.
func (a Action) String() string {
	switch a {
	case ActionCreate:
		return "create"
	case ActionCreateOrUpdate:
		return "createOrUpdate"
	case ActionReplace:
		return "replace"
	case ActionUpdate:
		return "update"
	case ActionDelete:
		return "delete"
	case ActionPublish:
		return "publish"
	default:
		return "invalid"
	}
}

func (a Action) valid() bool {
	return a >= ActionCreate && a <= ActionPublish
}

// Event is one committed mutation as emitted by the write path. Events for
// the same document arrive in commit order; the notifier assumes them
// authoritative and only routes.
type Event struct {
	// RequestID correlates the notification with the originating write
	// request. A fresh id is assigned when empty.
	RequestID  string
	Index      string
	Collection string
	Action     Action
	// State is the mutation completion state: StateDone for committed writes,
	// StatePending for transient pre-commit messages.
	State registry.State
	// Before is the document as it was prior to the mutation; nil for creates
	// and publishes.
	Before document.Document
	// After is the document after the mutation; nil for deletes.
	After document.Document
	// Context is the originating request's security context, passed through
	// untouched.
	Context any
}

// Outcome classifies what a mutation did to a document relative to one
// room's result set.
type Outcome uint8

const (
	// OutcomeIn means the document entered the result set.
	OutcomeIn Outcome = iota + 1
	// OutcomeOut means the document left the result set.
	OutcomeOut
	// OutcomeUnchanged means the document stayed in the result set.
	OutcomeUnchanged
)

// String returns the wire name of the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeIn:
		return "in"
	case OutcomeOut:
		return "out"
	case OutcomeUnchanged:
		return "unchanged"
	default:
		return "invalid"
	}
}

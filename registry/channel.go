package registry

import (
	"github.com/hupe1980/matchgo/internal/hash"
)

// Scope controls which document outcomes a channel receives: documents
// entering the room's result set, leaving it, or both. ScopeNone suppresses
// document notifications entirely (user-presence events still pass).
type Scope uint8

const (
	// ScopeAll receives entering, leaving and unchanged documents.
	ScopeAll Scope = iota
	// ScopeIn receives only documents entering the result set.
	ScopeIn
	// ScopeOut receives only documents leaving the result set.
	ScopeOut
	// ScopeNone receives no document notifications.
	ScopeNone
)

// String returns the wire name of the scope.
func (s Scope) String() string {
	switch s {
	case ScopeAll:
		return "all"
	case ScopeIn:
		return "in"
	case ScopeOut:
		return "out"
	case ScopeNone:
		return "none"
	default:
		return "invalid"
	}
}

// ParseScope parses a wire scope value; empty selects the default (all).
func ParseScope(raw string) (Scope, error) {
	switch raw {
	case "", "all":
		return ScopeAll, nil
	case "in":
		return ScopeIn, nil
	case "out":
		return ScopeOut, nil
	case "none":
		return ScopeNone, nil
	default:
		return 0, &BadRequestError{Option: "scope", Value: raw}
	}
}

// State controls which mutation completion states a channel receives:
// already-committed mutations (done), transient pre-commit messages
// (pending), or both.
type State uint8

const (
	// StateDone receives committed mutations only. This is the default.
	StateDone State = iota
	// StatePending receives transient (pre-commit) messages only.
	StatePending
	// StateAll receives both.
	StateAll
)

// String returns the wire name of the state.
func (s State) String() string {
	switch s {
	case StateDone:
		return "done"
	case StatePending:
		return "pending"
	case StateAll:
		return "all"
	default:
		return "invalid"
	}
}

// ParseState parses a wire state value; empty selects the default (done).
func ParseState(raw string) (State, error) {
	switch raw {
	case "", "done":
		return StateDone, nil
	case "pending":
		return StatePending, nil
	case "all":
		return StateAll, nil
	default:
		return 0, &BadRequestError{Option: "state", Value: raw}
	}
}

// Users controls which user-presence events a channel receives: customers
// joining the room, leaving it, both, or neither.
type Users uint8

const (
	// UsersNone receives no presence events. This is the default.
	UsersNone Users = iota
	// UsersIn receives join events only.
	UsersIn
	// UsersOut receives leave events only.
	UsersOut
	// UsersAll receives both.
	UsersAll
)

// String returns the wire name of the users option.
func (u Users) String() string {
	switch u {
	case UsersNone:
		return "none"
	case UsersIn:
		return "in"
	case UsersOut:
		return "out"
	case UsersAll:
		return "all"
	default:
		return "invalid"
	}
}

// ParseUsers parses a wire users value; empty selects the default (none).
func ParseUsers(raw string) (Users, error) {
	switch raw {
	case "", "none":
		return UsersNone, nil
	case "in":
		return UsersIn, nil
	case "out":
		return UsersOut, nil
	case "all":
		return UsersAll, nil
	default:
		return 0, &BadRequestError{Option: "users", Value: raw}
	}
}

// ChannelSpec is the visibility tuple deriving a channel from a room. Two
// subscriptions to the same room with the same tuple share one channel.
type ChannelSpec struct {
	Scope Scope
	State State
	Users Users
}

// NewChannelSpec validates the three wire options and applies defaults for
// empty values (scope=all, state=done, users=none).
func NewChannelSpec(scope, state, users string) (ChannelSpec, error) {
	sc, err := ParseScope(scope)
	if err != nil {
		return ChannelSpec{}, err
	}
	st, err := ParseState(state)
	if err != nil {
		return ChannelSpec{}, err
	}
	us, err := ParseUsers(users)
	if err != nil {
		return ChannelSpec{}, err
	}
	return ChannelSpec{Scope: sc, State: st, Users: us}, nil
}

// ChannelID derives the deterministic channel identity for this tuple on a
// room. The room id prefix keeps channel ids routable back to their room.
func (cs ChannelSpec) ChannelID(roomID string) string {
	return roomID + "-" + hash.CRC32CHex(roomID, cs.Scope.String(), cs.State.String(), cs.Users.String())
}

// Channel is a room channel as exposed to the notifier.
type Channel struct {
	ID   string
	Spec ChannelSpec
}

package session

import (
	"errors"

	"github.com/MudgalLabs/arthveda-sub000/position"
)

// Mode selects which persistence operation saving performs.
type Mode int

const (
	ModeUnknown Mode = iota
	ModeCreating
	ModeEditing
)

func (m Mode) String() string {
	switch m {
	case ModeCreating:
		return "creating"
	case ModeEditing:
		return "editing"
	default:
		return "unknown"
	}
}

var ErrUnresolvedMode = errors.New("session: cannot tell whether creating or editing")

// Entry describes how the editing screen was reached.
type Entry struct {
	// NewRoute is set when the session was entered through the "new
	// position" route.
	NewRoute bool
	// TargetID is the identity the route points at when editing.
	TargetID string
	// Loaded is the record fetched for the route, if any.
	Loaded *position.Position
}

// ResolveMode reports creating for a "new position" entry with nothing
// loaded, and editing when a persisted record was loaded whose identity
// matches the route's target.
func ResolveMode(e Entry) (Mode, error) {
	switch {
	case e.NewRoute && e.Loaded == nil:
		return ModeCreating, nil
	case !e.NewRoute && e.Loaded != nil && e.Loaded.ID != "" && e.Loaded.ID == e.TargetID:
		return ModeEditing, nil
	default:
		return ModeUnknown, ErrUnresolvedMode
	}
}

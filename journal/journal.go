// journal/journal.go
package journal

import (
	"context"
	"errors"

	"github.com/MudgalLabs/arthveda-sub000/position"
)

var ErrNotFound = errors.New("journal: position not found")

// Journal persists positions together with their trades.
type Journal interface {
	Create(ctx context.Context, p position.Position) (string, error)
	Update(ctx context.Context, id string, p position.Position) error
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (position.Position, error)
	List(ctx context.Context, f Filter) ([]position.Position, error)
	Close() error
}

// Filter narrows List. Zero fields match everything.
type Filter struct {
	Symbol string
	Status position.Status
	Limit  int
}

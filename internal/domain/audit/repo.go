package audit

import "context"

// Filter narrows List results.
type Filter struct {
	Action       string
	ActorID      string
	ResourceType string
}

type Repository interface {
	Insert(ctx context.Context, e *Event) error
	List(ctx context.Context, f Filter, limit, offset int) ([]*Event, int, error)
}

package topic

import "context"

// Repository persists topics.
type Repository interface {
	// Create allocates the next topic id, assigns it to t and stores t.
	Create(ctx context.Context, t *Topic) error
	Get(ctx context.Context, id uint64) (*Topic, error)
	Update(ctx context.Context, t *Topic) error
	List(ctx context.Context, opts ListOptions) ([]Topic, error)
}

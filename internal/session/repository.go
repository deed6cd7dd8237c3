package session

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/roach88/blockql/internal/ir"
)

// ErrQueryNotFound is returned when a saved query ID is unknown.
var ErrQueryNotFound = errors.New("saved query not found")

// Repository persists saved queries.
type Repository interface {
	// Save stores q, replacing any query with the same ID.
	Save(ctx context.Context, q ir.SavedQuery) error

	// List returns every saved query ordered by creation time, then ID.
	List(ctx context.Context) ([]ir.SavedQuery, error)

	// Get returns the query with the given ID, or an error wrapping
	// ErrQueryNotFound.
	Get(ctx context.Context, id string) (ir.SavedQuery, error)

	// Delete removes the query with the given ID, or returns an error
	// wrapping ErrQueryNotFound.
	Delete(ctx context.Context, id string) error
}

// DefaultMemoryDelay is the simulated latency of MemoryRepository calls.
const DefaultMemoryDelay = 500 * time.Millisecond

// MemoryRepository keeps saved queries in memory.
//
// Each call waits Delay first to mimic a remote service. Safe for
// concurrent use.
type MemoryRepository struct {
	// Delay before each call completes. Zero means no delay.
	Delay time.Duration

	mu      sync.Mutex
	queries map[string]ir.SavedQuery
}

// NewMemoryRepository creates an empty repository with the given delay.
func NewMemoryRepository(delay time.Duration) *MemoryRepository {
	return &MemoryRepository{Delay: delay}
}

func (r *MemoryRepository) wait(ctx context.Context) error {
	if r.Delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(r.Delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Save stores q.
func (r *MemoryRepository) Save(ctx context.Context, q ir.SavedQuery) error {
	if err := r.wait(ctx); err != nil {
		return fmt.Errorf("save query: %w", err)
	}
	if q.ID == "" {
		return fmt.Errorf("save query: empty id")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.queries == nil {
		r.queries = make(map[string]ir.SavedQuery)
	}
	q.Columns = slices.Clone(q.Columns)
	r.queries[q.ID] = q
	return nil
}

// List returns every saved query ordered by creation time, then ID.
func (r *MemoryRepository) List(ctx context.Context) ([]ir.SavedQuery, error) {
	if err := r.wait(ctx); err != nil {
		return nil, fmt.Errorf("list queries: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ir.SavedQuery, 0, len(r.queries))
	for _, q := range r.queries {
		q.Columns = slices.Clone(q.Columns)
		out = append(out, q)
	}
	slices.SortFunc(out, func(a, b ir.SavedQuery) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

// Get returns the query with the given ID.
func (r *MemoryRepository) Get(ctx context.Context, id string) (ir.SavedQuery, error) {
	if err := r.wait(ctx); err != nil {
		return ir.SavedQuery{}, fmt.Errorf("get query %s: %w", id, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.queries[id]
	if !ok {
		return ir.SavedQuery{}, fmt.Errorf("%w: %s", ErrQueryNotFound, id)
	}
	q.Columns = slices.Clone(q.Columns)
	return q, nil
}

// Delete removes the query with the given ID.
func (r *MemoryRepository) Delete(ctx context.Context, id string) error {
	if err := r.wait(ctx); err != nil {
		return fmt.Errorf("delete query %s: %w", id, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.queries[id]; !ok {
		return fmt.Errorf("%w: %s", ErrQueryNotFound, id)
	}
	delete(r.queries, id)
	return nil
}

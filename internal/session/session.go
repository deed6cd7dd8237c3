package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/roach88/blockql/internal/blockgraph"
	"github.com/roach88/blockql/internal/catalog"
	"github.com/roach88/blockql/internal/ir"
	"github.com/roach88/blockql/internal/preview"
	"github.com/roach88/blockql/internal/sqlgen"
)

var (
	// ErrUnknownColumn is returned when a column ID is not in the catalog.
	ErrUnknownColumn = errors.New("unknown column")

	// ErrEmptyName is returned when saving a query without a name.
	ErrEmptyName = errors.New("query name is required")
)

// Update is the outcome of emitting one graph snapshot.
type Update struct {
	Result sqlgen.Result

	// JoinErr is the *joins.JoinResolutionError raised by the emitter, if any.
	JoinErr error
}

// Listener is notified after every graph change.
type Listener func(Update)

// Options configures a Session. Zero fields fall back to defaults.
type Options struct {
	Catalog    *catalog.Catalog // default: catalog.Default()
	Repository Repository       // default: in-memory, no delay
	Executor   preview.Executor // default: preview.MockExecutor
	IDs        IDGenerator      // default: UUIDv7Generator
	Now        func() time.Time // default: time.Now
	Logger     *slog.Logger     // default: slog.Default()
	PageSize   int              // default: preview.DefaultPageSize
}

// Session is one editing workspace.
type Session struct {
	mu        sync.Mutex
	graph     *blockgraph.Graph
	listeners []Listener

	catalog  *catalog.Catalog
	emitter  *sqlgen.Emitter
	repo     Repository
	exec     preview.Executor
	ids      IDGenerator
	now      func() time.Time
	logger   *slog.Logger
	pageSize int
}

// New creates a Session with an empty graph.
func New(opts Options) *Session {
	s := &Session{
		graph:    blockgraph.New(),
		catalog:  opts.Catalog,
		repo:     opts.Repository,
		exec:     opts.Executor,
		ids:      opts.IDs,
		now:      opts.Now,
		logger:   opts.Logger,
		pageSize: opts.PageSize,
	}
	if s.catalog == nil {
		s.catalog = catalog.Default()
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.repo == nil {
		s.repo = NewMemoryRepository(0)
	}
	if s.exec == nil {
		s.exec = &preview.MockExecutor{Logger: s.logger}
	}
	if s.ids == nil {
		s.ids = UUIDv7Generator{}
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.pageSize <= 0 {
		s.pageSize = preview.DefaultPageSize
	}
	s.emitter = sqlgen.NewEmitter(s.catalog.Resolver())
	return s
}

// Catalog returns the session's schema catalog.
func (s *Session) Catalog() *catalog.Catalog {
	return s.catalog
}

// OnChange registers a listener for graph changes.
func (s *Session) OnChange(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

// Graph returns a copy of the current graph.
func (s *Session) Graph() *blockgraph.Graph {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.graph.Clone()
}

// Current emits the current graph without changing it.
func (s *Session) Current() Update {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.emit(s.graph)
}

func (s *Session) emit(g *blockgraph.Graph) Update {
	result, err := s.emitter.Emit(g)
	if err != nil {
		s.logger.Debug("emit reported join error", "error", err, "tables", result.Collection.Tables)
	}
	return Update{Result: result, JoinErr: err}
}

// commit installs g, emits it and notifies listeners outside the lock.
// The caller must hold s.mu; commit releases it.
func (s *Session) commit(g *blockgraph.Graph) Update {
	s.graph = g
	update := s.emit(g)
	listeners := append([]Listener(nil), s.listeners...)
	s.mu.Unlock()

	for _, l := range listeners {
		l(update)
	}
	return update
}

// Mutate applies fn to a copy of the graph. If fn fails the graph is left
// unchanged and listeners are not notified.
func (s *Session) Mutate(fn func(g *blockgraph.Graph) error) (Update, error) {
	s.mu.Lock()
	next := s.graph.Clone()
	if err := fn(next); err != nil {
		s.mu.Unlock()
		return Update{}, err
	}
	return s.commit(next), nil
}

// Replace swaps in g as the current graph.
func (s *Session) Replace(g *blockgraph.Graph) Update {
	s.mu.Lock()
	return s.commit(g.Clone())
}

// SetColumnSelected adds or removes the column block for a catalog column
// ID ("table.column"). Selecting an already present column does not add a
// second block.
func (s *Session) SetColumnSelected(columnID string, selected bool) (Update, error) {
	ref, ok := s.catalog.Column(columnID)
	if !ok {
		return Update{}, fmt.Errorf("%w: %s", ErrUnknownColumn, columnID)
	}
	return s.Mutate(func(g *blockgraph.Graph) error {
		if selected {
			g.EnsureColumn(ref)
		} else {
			g.RemoveColumn(ref)
		}
		return nil
	})
}

// SelectedColumns returns the columns the SELECT chain reads.
func (s *Session) SelectedColumns() []ir.ColumnRef {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.graph.Columns()
}

// Evaluate emits g without installing it. g is not modified.
func (s *Session) Evaluate(g *blockgraph.Graph) Update {
	return s.emit(g)
}

// Preview runs the current SQL through the executor and returns one page.
func (s *Session) Preview(ctx context.Context, page int) (preview.Page, error) {
	return s.preview(ctx, s.Current(), page)
}

// PreviewGraph previews g without installing it.
func (s *Session) PreviewGraph(ctx context.Context, g *blockgraph.Graph, page int) (preview.Page, error) {
	return s.preview(ctx, s.emit(g), page)
}

func (s *Session) preview(ctx context.Context, update Update, page int) (preview.Page, error) {
	rs, err := s.exec.Execute(ctx, update.Result.SQL)
	if err != nil {
		s.logger.Warn("preview failed", "error", err)
		return preview.Page{}, fmt.Errorf("preview: %w", err)
	}
	return preview.Paginate(rs, page, s.pageSize)
}

// Save stores the current graph under name.
func (s *Session) Save(ctx context.Context, name string) (ir.SavedQuery, error) {
	return s.SaveGraph(ctx, name, s.Graph())
}

// SaveGraph stores g under name without installing it.
func (s *Session) SaveGraph(ctx context.Context, name string, g *blockgraph.Graph) (ir.SavedQuery, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return ir.SavedQuery{}, ErrEmptyName
	}

	blockData, err := g.Marshal()
	if err != nil {
		return ir.SavedQuery{}, fmt.Errorf("save query: %w", err)
	}

	result, joinErr := s.emitter.Emit(g)
	if joinErr != nil {
		s.logger.Warn("saving query with unresolved joins", "name", name, "error", joinErr)
	}
	q := ir.SavedQuery{
		ID:        s.ids.Generate(),
		Name:      name,
		SQL:       result.SQL,
		BlockData: string(blockData),
		CreatedAt: s.now().UTC(),
	}
	for _, ref := range g.Columns() {
		q.Columns = append(q.Columns, ir.NewSavedColumn(ref))
	}

	if err := s.repo.Save(ctx, q); err != nil {
		s.logger.Error("save query failed", "name", name, "error", err)
		return ir.SavedQuery{}, fmt.Errorf("save query: %w", err)
	}
	s.logger.Info("query saved", "id", q.ID, "name", name, "columns", len(q.Columns))
	return q, nil
}

// List returns the saved queries.
func (s *Session) List(ctx context.Context) ([]ir.SavedQuery, error) {
	queries, err := s.repo.List(ctx)
	if err != nil {
		s.logger.Error("list queries failed", "error", err)
		return nil, fmt.Errorf("list queries: %w", err)
	}
	return queries, nil
}

// Find returns the saved query with the given ID.
func (s *Session) Find(ctx context.Context, id string) (ir.SavedQuery, error) {
	q, err := s.repo.Get(ctx, id)
	if err != nil {
		if !errors.Is(err, ErrQueryNotFound) {
			s.logger.Error("get query failed", "id", id, "error", err)
		}
		return ir.SavedQuery{}, fmt.Errorf("find query: %w", err)
	}
	return q, nil
}

// Delete removes the saved query with the given ID. The workspace graph is
// left alone even when it was loaded from that query.
func (s *Session) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if !errors.Is(err, ErrQueryNotFound) {
			s.logger.Error("delete query failed", "id", id, "error", err)
		}
		return fmt.Errorf("delete query: %w", err)
	}
	s.logger.Info("query deleted", "id", id)
	return nil
}

// Load replaces the current graph with a saved query.
func (s *Session) Load(ctx context.Context, id string) (ir.SavedQuery, Update, error) {
	q, err := s.Find(ctx, id)
	if err != nil {
		return ir.SavedQuery{}, Update{}, err
	}
	return q, s.Replace(s.Rebuild(q)), nil
}

// Rebuild reconstructs the graph of a saved query from its block data,
// falling back to one column block per saved column.
func (s *Session) Rebuild(q ir.SavedQuery) *blockgraph.Graph {
	if q.BlockData != "" {
		g, err := blockgraph.Unmarshal([]byte(q.BlockData))
		if err == nil {
			return g
		}
		s.logger.Warn("saved block data unreadable, rebuilding from columns", "id", q.ID, "error", err)
	}
	return blockgraph.FromColumns(q.ColumnRefs())
}

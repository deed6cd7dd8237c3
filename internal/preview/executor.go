package preview

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"math/rand/v2"
	"strconv"
	"time"
)

// DefaultRows is the size of a mocked result set.
const DefaultRows = 200

// DefaultDelay mimics a round trip to a query service.
const DefaultDelay = time.Second

// createdAtSpan bounds how far before Now a mocked created_at may fall.
const createdAtSpan = 10_000_000 * time.Second

// Columns are the fixed columns of a mocked result set.
var Columns = []string{"id", "name", "email", "created_at", "status"}

// ResultSet is a table of string cells.
type ResultSet struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// Executor runs validated SQL.
type Executor interface {
	Execute(ctx context.Context, sql string) (*ResultSet, error)
}

// MockExecutor returns generated rows instead of contacting a database.
//
// The zero value is usable: it waits DefaultDelay and returns DefaultRows
// rows timestamped relative to time.Now.
type MockExecutor struct {
	// Delay before results are returned. Negative means no delay.
	Delay time.Duration

	// Rows is the number of rows returned. Zero means DefaultRows.
	Rows int

	// Now anchors generated timestamps. Nil means time.Now.
	Now func() time.Time

	// Logger receives debug output. Nil means slog.Default.
	Logger *slog.Logger
}

// Execute validates sql, waits for the configured delay and returns the
// mocked rows. It returns ctx.Err() if ctx ends first.
func (m *MockExecutor) Execute(ctx context.Context, sql string) (*ResultSet, error) {
	if err := Validate(sql); err != nil {
		return nil, err
	}

	logger := m.Logger
	if logger == nil {
		logger = slog.Default()
	}

	delay := m.Delay
	if delay == 0 {
		delay = DefaultDelay
	}
	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("preview cancelled: %w", ctx.Err())
		case <-timer.C:
		}
	}

	rows := m.Rows
	if rows <= 0 {
		rows = DefaultRows
	}
	now := time.Now
	if m.Now != nil {
		now = m.Now
	}

	rs := generate(sql, rows, now().UTC())
	logger.Debug("preview executed", "rows", len(rs.Rows), "delay", delay)
	return rs, nil
}

// generate builds rows seeded by the FNV-1a hash of sql.
func generate(sql string, n int, now time.Time) *ResultSet {
	h := fnv.New64a()
	h.Write([]byte(sql))
	seed := h.Sum64()
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	rs := &ResultSet{
		Columns: append([]string(nil), Columns...),
		Rows:    make([][]string, 0, n),
	}
	for i := 1; i <= n; i++ {
		age := time.Duration(rng.Int64N(int64(createdAtSpan)))
		status := "inactive"
		if rng.Float64() > 0.5 {
			status = "active"
		}
		rs.Rows = append(rs.Rows, []string{
			strconv.Itoa(i),
			fmt.Sprintf("User %d", i),
			fmt.Sprintf("user%d@example.com", i),
			now.Add(-age).Truncate(time.Millisecond).Format("2006-01-02T15:04:05.000Z"),
			status,
		})
	}
	return rs
}

package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"gnucashboard/internal/core"
	"gnucashboard/internal/log"
)

// ErrNotReady is returned while no book has been loaded.
var ErrNotReady = errors.New("book not loaded")

// Loader reads the book tables.
type Loader interface {
	Read(ctx context.Context) (core.Tables, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context) (core.Tables, error)

func (f LoaderFunc) Read(ctx context.Context) (core.Tables, error) { return f(ctx) }

// Source holds the tables shared read-only by every session. Reload swaps
// them atomically; readers never see a partial book.
type Source struct {
	loader Loader
	logger *log.Logger

	tables atomic.Pointer[core.Tables]

	mu    sync.Mutex
	hooks []func(core.Tables)
}

func NewSource(loader Loader, logger *log.Logger) *Source {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Source{loader: loader, logger: logger.WithComponent(log.ComponentDashboard)}
}

// OnReload registers fn to run after every successful reload.
func (s *Source) OnReload(fn func(core.Tables)) {
	s.mu.Lock()
	s.hooks = append(s.hooks, fn)
	s.mu.Unlock()
}

// Reload reads the book and publishes the new tables. On failure the
// previous tables stay in place.
func (s *Source) Reload(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables, err := s.loader.Read(ctx)
	if err != nil {
		s.logger.Error("Failed to load book", log.NewFields().WithOperation(log.OpReload).WithError(err).ToSlice()...)
		return fmt.Errorf("reload book: %w", err)
	}
	s.tables.Store(&tables)
	s.logger.Info("Book loaded",
		log.FieldOperation, log.OpReload,
		log.FieldExpenses, len(tables.Expenses),
		log.FieldIncome, len(tables.Income))

	for _, fn := range s.hooks {
		fn(tables)
	}
	return nil
}

// Tables returns the current tables.
func (s *Source) Tables() (core.Tables, error) {
	t := s.tables.Load()
	if t == nil {
		return core.Tables{}, ErrNotReady
	}
	return *t, nil
}

// Ready reports whether a book has been loaded.
func (s *Source) Ready() bool {
	return s.tables.Load() != nil
}

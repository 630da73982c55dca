package dashboard

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"gnucashboard/internal/cache"
	"gnucashboard/internal/core"
	"gnucashboard/internal/log"
	"gnucashboard/internal/settings"
	"gnucashboard/internal/sink"
)

var ErrSessionNotFound = errors.New("session not found")

// Session is one browser's dashboard. Interactions are handled one at a time.
type Session struct {
	ID      string
	Created time.Time

	mu       sync.Mutex
	app      *App
	rendered map[sink.View]bool
}

func newSession(id string, app *App) *Session {
	return &Session{ID: id, Created: time.Now(), app: app, rendered: make(map[sink.View]bool)}
}

// Render renders view from scratch and returns all of its sinks.
func (s *Session) Render(view sink.View) (map[string]sink.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	board, err := s.app.Render(view)
	if err != nil {
		return nil, err
	}
	s.rendered[view] = true
	return board.Snapshot(), nil
}

// Apply handles act on view and returns the sinks it changed. A view that
// was never rendered is rendered first.
func (s *Session) Apply(view sink.View, act Action) (map[string]sink.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	board, err := s.app.Board(view)
	if err != nil {
		return nil, err
	}
	if !s.rendered[view] {
		if _, err := s.app.Render(view); err != nil {
			return nil, err
		}
		s.rendered[view] = true
	}

	before := board.Version()
	if err := s.app.Apply(view, act); err != nil {
		return nil, err
	}
	changed := board.Changed(before)
	if len(changed) == 0 {
		return map[string]sink.Entry{}, nil
	}
	return board.Snapshot(changed...), nil
}

// Settings returns the bound settings control.
func (s *Session) Settings() settings.Control {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.app.Settings().Control()
}

// Sessions keeps live sessions in an LRU cache; idle sessions expire.
type Sessions struct {
	source *Source
	opts   Options
	cache  *cache.LRUCache[*Session]
	logger *log.Logger
}

// NewSessions creates a session store over source. Sessions are dropped when
// the source reloads since their filters refer to the old book.
func NewSessions(source *Source, maxSessions int, ttl time.Duration, opts Options, logger *log.Logger) *Sessions {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentSession)
	s := &Sessions{source: source, opts: opts, logger: logger}
	s.cache = cache.NewLRUCache(maxSessions, ttl, cache.WithEvictHook(func(id string, _ *Session, reason cache.EvictReason) {
		logger.Debug("Session evicted", log.FieldSessionID, id, "reason", reason.String())
	}))
	source.OnReload(func(core.Tables) { s.Clear() })
	return s
}

// Create starts a session over the current book.
func (s *Sessions) Create() (*Session, error) {
	tables, err := s.source.Tables()
	if err != nil {
		return nil, err
	}
	opts := s.opts
	opts.Rand = nil
	app, err := New(tables.Expenses, tables.Income, opts)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	sess := newSession(uuid.NewString(), app)
	s.cache.Set(sess.ID, sess)
	s.logger.Info("Session created", log.FieldSessionID, sess.ID)
	return sess, nil
}

func (s *Sessions) Get(id string) (*Session, error) {
	sess, ok := s.cache.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return sess, nil
}

func (s *Sessions) Delete(id string) { s.cache.Delete(id) }

// Clear drops every session.
func (s *Sessions) Clear() {
	n := s.cache.Size()
	s.cache.Clear()
	if n > 0 {
		s.logger.Info("Sessions cleared", "count", n)
	}
}

func (s *Sessions) Len() int { return s.cache.Size() }

// Cleaner exposes the session cache to a cache.Manager.
func (s *Sessions) Cleaner() cache.Cleaner { return s.cache }

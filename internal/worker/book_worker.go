package worker

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gnucashboard/internal/amqp"
	"gnucashboard/internal/log"
)

// Reloader reads the book again and publishes the result.
type Reloader interface {
	Reload(ctx context.Context) error
}

// BookWorker keeps the served tables in step with the book file. Updates
// arrive as AMQP messages; polling the file is the fallback when a message
// is lost or no broker is configured.
type BookWorker struct {
	path   string
	source Reloader
	logger *log.Logger
	stat   func(string) (os.FileInfo, error)

	mu      sync.Mutex
	modTime time.Time
	size    int64
}

func NewBookWorker(path string, source Reloader, logger *log.Logger) *BookWorker {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &BookWorker{
		path:   absPath(path),
		source: source,
		logger: logger.WithComponent(log.ComponentWorker),
		stat:   os.Stat,
	}
}

// HandleBookUpdated reloads the book when msg names the served file.
// Messages about other books are acknowledged and ignored.
func (w *BookWorker) HandleBookUpdated(ctx context.Context, msg *amqp.BookUpdatedMessage) error {
	if absPath(msg.Path) != w.path {
		w.logger.DebugContext(ctx, "Ignoring update of another book", log.FieldBookPath, msg.Path)
		return nil
	}
	w.logger.InfoContext(ctx, "Processing book update",
		log.FieldBookPath, msg.Path,
		"published", msg.Timestamp.Format(time.RFC3339))
	return w.reload(ctx)
}

// StartupCheck remembers the current file state so that the first poll
// only reloads after a real change.
func (w *BookWorker) StartupCheck(ctx context.Context) error {
	info, err := w.stat(w.path)
	if err != nil {
		return fmt.Errorf("stat book: %w", err)
	}
	w.remember(info)
	w.logger.DebugContext(ctx, "Book state recorded",
		log.FieldBookPath, w.path,
		"mod_time", info.ModTime().Format(time.RFC3339),
		"size", info.Size())
	return nil
}

// CheckModified reloads the book when its modification time or size
// changed since the last reload. It reports whether a reload happened.
func (w *BookWorker) CheckModified(ctx context.Context) (bool, error) {
	info, err := w.stat(w.path)
	if err != nil {
		return false, fmt.Errorf("stat book: %w", err)
	}
	if !w.changed(info) {
		return false, nil
	}
	w.logger.InfoContext(ctx, "Book changed on disk", log.FieldBookPath, w.path)
	if err := w.reload(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// Run polls the book every interval until ctx is done. Poll failures are
// logged and retried on the next tick.
func (w *BookWorker) Run(ctx context.Context, interval time.Duration) error {
	if err := w.StartupCheck(ctx); err != nil {
		w.logger.WarnContext(ctx, "Startup check failed", log.FieldError, err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Book poller stopped", log.FieldOperation, log.OpShutdown)
			return nil
		case <-ticker.C:
			if _, err := w.CheckModified(ctx); err != nil {
				w.logger.WarnContext(ctx, "Book poll failed", log.FieldError, err)
			}
		}
	}
}

func (w *BookWorker) reload(ctx context.Context) error {
	// Record the state first: a write racing with the read triggers
	// another reload on the next poll instead of being missed.
	if info, err := w.stat(w.path); err == nil {
		w.remember(info)
	}
	if err := w.source.Reload(ctx); err != nil {
		return fmt.Errorf("reload %s: %w", w.path, err)
	}
	return nil
}

func (w *BookWorker) remember(info os.FileInfo) {
	w.mu.Lock()
	w.modTime = info.ModTime()
	w.size = info.Size()
	w.mu.Unlock()
}

func (w *BookWorker) changed(info os.FileInfo) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return !info.ModTime().Equal(w.modTime) || info.Size() != w.size
}

func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return filepath.Clean(p)
}

package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"gnucashboard/internal/amqp"
	"gnucashboard/internal/cache"
	"gnucashboard/internal/config"
	"gnucashboard/internal/dashboard"
	"gnucashboard/internal/gnucash"
	apphttp "gnucashboard/internal/http"
	"gnucashboard/internal/log"
	"gnucashboard/internal/worker"
)

const (
	shutdownTimeout  = 30 * time.Second
	sessionSweepRate = time.Minute
)

func newServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the dashboard over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := GracefulShutdown(cmd.Context(), logger)
			defer cancel()
			return serve(ctx, cfg, logger)
		},
	}
	f := cmd.Flags()
	f.String("port", "", "HTTP port (PORT)")
	f.StringSlice("allowed-origins", nil, "origins allowed by CORS and WebSocket checks (ALLOWED_ORIGINS)")
	f.String("server-date", "", "pin the dashboard date, YYYY-MM-DD (SERVER_DATE)")
	f.Duration("session-ttl", 0, "idle session lifetime (SESSION_TTL)")
	f.Int("max-sessions", 0, "maximum live sessions (MAX_SESSIONS)")
	f.Duration("poll-interval", 0, "check the book file for changes this often, 0 disables (BOOK_POLL_INTERVAL)")
	return cmd
}

// serve loads the book and runs the HTTP server, the session sweeper and,
// when configured, the book update consumer and poller until ctx is done.
func serve(ctx context.Context, cfg *config.Config, logger *log.Logger) error {
	mf := monthFormat(cfg)
	reader := gnucash.NewReader(cfg.BookPath, gnucash.ReaderOptions{
		MonthFormat: mf,
		Separator:   cfg.CategorySeparator,
		Logger:      logger,
	})
	source := dashboard.NewSource(reader, logger)
	if err := source.Reload(ctx); err != nil {
		logger.Warn("Serving without a book until a reload succeeds", log.FieldBookPath, cfg.BookPath, log.FieldError, err)
	}

	sessions := dashboard.NewSessions(source, cfg.MaxSessions, cfg.SessionTTL, dashboard.Options{
		Separator:   cfg.CategorySeparator,
		MonthFormat: mf,
		Now:         cfg.Now(),
	}, logger)

	srv, err := apphttp.NewServer(sessions, source, apphttp.Options{
		Addr:           ":" + cfg.Port,
		AllowedOrigins: cfg.AllowedOrigins,
		Logger:         logger,
	})
	if err != nil {
		return err
	}

	var client *amqp.Client
	if cfg.AMQPEnabled() {
		client, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			return fmt.Errorf("connect to AMQP: %w", err)
		}
		defer client.Close()
	}

	books := worker.NewBookWorker(cfg.BookPath, source, logger)
	g, gctx := errgroup.WithContext(ctx)

	sweeper := cache.NewManager(logger)
	sweeper.Register(sessions.Cleaner())
	sweeper.Start(gctx, sessionSweepRate)
	defer sweeper.Wait()

	g.Go(func() error {
		logger.Info("Starting gnucashboard server",
			"port", cfg.Port,
			log.FieldBookPath, cfg.BookPath,
			log.FieldOperation, log.OpStartup)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen on port %s: %w", cfg.Port, err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	})
	if client != nil {
		g.Go(func() error {
			err := client.ConsumeBookUpdates(gctx, books.HandleBookUpdated)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	if cfg.BookPollInterval > 0 {
		g.Go(func() error {
			return books.Run(gctx, cfg.BookPollInterval)
		})
	}

	err = g.Wait()
	logger.Info("Server stopped", log.FieldOperation, log.OpShutdown)
	return err
}

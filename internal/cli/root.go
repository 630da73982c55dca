package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"gnucashboard/internal/config"
	"gnucashboard/internal/log"
)

// NewRootCommand builds the gnucashboard command tree.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "gnucashboard",
		Short:         "Personal finance dashboard over a GnuCash book",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.String("env-file", "", "load environment variables from this file (default .env when present)")
	pf.String("book", "", "GnuCash SQLite book (GNUCASH_BOOK_PATH)")
	pf.String("month-format", "", "strftime pattern of month keys (MONTH_FORMAT)")
	pf.String("separator", "", "account name separator (CATEGORY_SEPARATOR)")
	pf.String("log-level", "", "debug, info, warn or error (LOG_LEVEL)")
	pf.String("log-format", "", "text or json (LOG_FORMAT)")
	pf.String("amqp-url", "", "RabbitMQ URL for book update messages (AMQP_URL)")

	root.AddCommand(newServeCommand(), newExampleCommand(), newInspectCommand())
	return root
}

// setup loads the environment, applies the command flags over it and
// builds the logger. Logs go to the command's error stream.
func setup(cmd *cobra.Command) (*config.Config, *log.Logger, error) {
	envFile, _ := cmd.Flags().GetString("env-file")
	if err := LoadEnvFile(envFile); err != nil {
		return nil, nil, fmt.Errorf("load env file: %w", err)
	}
	var flagErr error
	cfg, err := LoadAndValidateConfig(func(cfg *config.Config) {
		flagErr = applyFlags(cmd, cfg)
	})
	if flagErr != nil {
		return nil, nil, flagErr
	}
	if err != nil {
		return nil, nil, err
	}
	return cfg, SetupLogger(cfg, cmd.ErrOrStderr()), nil
}

// applyFlags overrides cfg with every flag set on the command line.
func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	strings := map[string]*string{
		"book":         &cfg.BookPath,
		"month-format": &cfg.MonthFormat,
		"separator":    &cfg.CategorySeparator,
		"log-level":    &cfg.LogLevel,
		"log-format":   &cfg.LogFormat,
		"amqp-url":     &cfg.AMQPURL,
		"port":         &cfg.Port,
		"server-date":  &cfg.ServerDate,
		"currency":     &cfg.ExampleCurrency,
		"start":        &cfg.ExampleStart,
		"end":          &cfg.ExampleEnd,
	}
	flags := cmd.Flags()
	for name, dst := range strings {
		if !flags.Changed(name) {
			continue
		}
		v, err := flags.GetString(name)
		if err != nil {
			return fmt.Errorf("flag --%s: %w", name, err)
		}
		*dst = v
	}

	var err error
	if flags.Changed("allowed-origins") {
		if cfg.AllowedOrigins, err = flags.GetStringSlice("allowed-origins"); err != nil {
			return fmt.Errorf("flag --allowed-origins: %w", err)
		}
	}
	if flags.Changed("session-ttl") {
		if cfg.SessionTTL, err = flags.GetDuration("session-ttl"); err != nil {
			return fmt.Errorf("flag --session-ttl: %w", err)
		}
	}
	if flags.Changed("poll-interval") {
		if cfg.BookPollInterval, err = flags.GetDuration("poll-interval"); err != nil {
			return fmt.Errorf("flag --poll-interval: %w", err)
		}
	}
	if flags.Changed("max-sessions") {
		if cfg.MaxSessions, err = flags.GetInt("max-sessions"); err != nil {
			return fmt.Errorf("flag --max-sessions: %w", err)
		}
	}
	if flags.Changed("seed") {
		if cfg.ExampleSeed, err = flags.GetInt64("seed"); err != nil {
			return fmt.Errorf("flag --seed: %w", err)
		}
	}
	return nil
}

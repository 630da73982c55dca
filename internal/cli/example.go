package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"gnucashboard/internal/amqp"
	"gnucashboard/internal/config"
	"gnucashboard/internal/gnucash"
	"gnucashboard/internal/log"
)

func newExampleCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "example",
		Short: "Write a reproducible example GnuCash book",
		Long: "Write a fresh example book to --book, replacing any file there. " +
			"When AMQP is configured a book update message is published afterwards.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(cmd)
			if err != nil {
				return err
			}
			stats, err := gnucash.NewCreator(cfg.BookPath, creatorOptions(cfg, logger)).Create(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s: %d accounts, %d transactions, %d splits\n",
				cfg.BookPath, stats.Accounts, stats.Transactions, stats.Splits)

			if !cfg.AMQPEnabled() {
				return nil
			}
			client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
			if err != nil {
				return fmt.Errorf("connect to AMQP: %w", err)
			}
			defer client.Close()
			return client.PublishBookUpdated(cmd.Context(), cfg.BookPath)
		},
	}
	f := cmd.Flags()
	f.String("currency", "", "ISO currency of the book (EXAMPLE_CURRENCY)")
	f.Int64("seed", 0, "random seed (EXAMPLE_SEED)")
	f.String("start", "", "first day, YYYY-MM-DD (EXAMPLE_START)")
	f.String("end", "", "last day, YYYY-MM-DD (EXAMPLE_END)")
	return cmd
}

// creatorOptions maps a validated config onto the creator options.
func creatorOptions(cfg *config.Config, logger *log.Logger) gnucash.CreatorOptions {
	opts := gnucash.DefaultCreatorOptions()
	opts.Currency = cfg.ExampleCurrency
	opts.Seed = cfg.ExampleSeed
	opts.Start, _ = time.Parse(config.DateLayout, cfg.ExampleStart)
	opts.End, _ = time.Parse(config.DateLayout, cfg.ExampleEnd)
	opts.Logger = logger
	return opts
}

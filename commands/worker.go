package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/appbaseio/world-search/internal/queue"
	"github.com/appbaseio/world-search/plugins/backfill"
	"github.com/spf13/cobra"
)

var workers int

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Ship documents published on nats by reindex runs",
	Long: `Consumes the shipping tasks a reindex publishes in async mode with the nats
dispatcher, and writes them through the write alias. Run as many as needed.`,
	RunE: runWorker,
}

func init() {
	workerCmd.Flags().IntVar(&workers, "workers", 0, "Number of documents shipped concurrently")
	rootCmd.AddCommand(workerCmd)
}

func runWorker(_ *cobra.Command, _ []string) error {
	if workers > 0 {
		cfg.Backfill.Workers = workers
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := newESClient(ctx, cfg)
	if err != nil {
		return err
	}
	nc, js, err := queue.Connect(cfg.NATS.URL)
	if err != nil {
		return err
	}
	defer nc.Close()

	shipper := backfill.NewESShipper(client, cfg.Index.WriteAlias())
	results := queue.NewNATSResults(nc, cfg.NATS.Stream)
	return queue.NewWorker(js, shipper, results, cfg.NATS.Stream, cfg.Backfill.Workers).Start(ctx)
}

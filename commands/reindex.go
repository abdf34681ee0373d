package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/appbaseio/world-search/config"
	werrors "github.com/appbaseio/world-search/errors"
	"github.com/appbaseio/world-search/model/reindex"
	"github.com/robfig/cron"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	mode        string
	dispatcher  string
	policy      string
	every       string
	localWorker bool
)

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild the world index and move both aliases to it",
	Long: `Creates a new concrete index, points the write alias to it, ships every
country from the database, points the read alias to it and deletes the indices
the aliases pointed to before. Queries are served throughout.`,
	RunE: runReindex,
}

func init() {
	flags := reindexCmd.Flags()
	flags.StringVar(&mode, "mode", "", "Backfill mode: sync or async")
	flags.StringVar(&dispatcher, "dispatcher", "", "Dispatcher used in async mode: pool or nats")
	flags.StringVar(&policy, "policy", "", "Failure policy: best-effort or fail-fast")
	flags.StringVar(&every, "every", "", "Cron spec to reindex on, e.g. \"@every 1h\". Runs once when empty")
	flags.BoolVar(&localWorker, "local-worker", true, "Ship nats tasks from this process too")
	rootCmd.AddCommand(reindexCmd)
}

// applyBackfillFlags overrides the loaded configuration with the flags that were set.
func applyBackfillFlags(c *config.Config) error {
	if mode != "" {
		c.Backfill.Mode = mode
	}
	if dispatcher != "" {
		c.Backfill.Dispatcher = dispatcher
	}
	if policy != "" {
		c.Backfill.Policy = policy
	}
	return c.Validate()
}

func runReindex(cmd *cobra.Command, _ []string) error {
	if err := applyBackfillFlags(cfg); err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, localWorker)
	if err != nil {
		return err
	}
	defer a.Close()

	run := func() error {
		summary, err := a.reindexer.Reindex(ctx)
		if summary != nil {
			printSummary(cmd.OutOrStdout(), summary)
		}
		return err
	}

	if every == "" {
		return run()
	}
	return schedule(ctx, every, func() {
		if err := run(); err != nil && !errors.Is(err, werrors.ErrReindexInProgress) {
			log.Errorln(logTag, ": scheduled reindex failed:", err)
		}
	})
}

// schedule calls fn on spec until ctx is done.
func schedule(ctx context.Context, spec string, fn func()) error {
	if _, err := cron.Parse(spec); err != nil {
		return fmt.Errorf("invalid schedule %q: %v", spec, err)
	}
	cronjob := cron.New()
	if err := cronjob.AddFunc(spec, fn); err != nil {
		return err
	}
	cronjob.Start()
	log.Infoln(logTag, ": reindexing on schedule", spec)
	<-ctx.Done()
	cronjob.Stop()
	return nil
}

func printSummary(w io.Writer, summary *reindex.Summary) {
	raw, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		log.Errorln(logTag, ": can't encode summary:", err)
		return
	}
	fmt.Fprintln(w, string(raw))
}

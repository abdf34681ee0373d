package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	werrors "github.com/appbaseio/world-search/errors"
	"github.com/appbaseio/world-search/middleware/ratelimiter"
	"github.com/appbaseio/world-search/plugins"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	address      string
	port         int
	reindexEvery string
	listPlugins  bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the operator http api",
	RunE:  runServe,
}

func init() {
	flags := serveCmd.Flags()
	flags.StringVar(&address, "addr", "", "Address to serve on")
	flags.IntVar(&port, "port", 0, "Port number")
	flags.StringVar(&reindexEvery, "reindex-every", "", "Cron spec to reindex on while serving")
	flags.BoolVar(&listPlugins, "plugins", false, "List currently registered plugins")
	flags.StringVar(&mode, "mode", "", "Backfill mode: sync or async")
	flags.StringVar(&dispatcher, "dispatcher", "", "Dispatcher used in async mode: pool or nats")
	flags.StringVar(&policy, "policy", "", "Failure policy: best-effort or fail-fast")
	flags.BoolVar(&localWorker, "local-worker", true, "Ship nats tasks from this process too")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if err := applyBackfillFlags(cfg); err != nil {
		return err
	}
	if address != "" {
		cfg.Server.Address = address
	}
	if port != 0 {
		cfg.Server.Port = port
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, localWorker)
	if err != nil {
		return err
	}
	defer a.Close()

	if cfg.Server.RateLimit != "" {
		rl, err := ratelimiter.New(cfg.Server.RateLimit)
		if err != nil {
			return fmt.Errorf("invalid rate limit %q: %v", cfg.Server.RateLimit, err)
		}
		a.reindexer.SetRateLimit(rl)
	}

	server := plugins.NewServer(cfg.Server.Address, cfg.Server.Port)
	loaded := []plugins.Plugin{a.reindexer}
	for _, p := range loaded {
		if err := plugins.LoadPlugin(server.Router(), p); err != nil {
			return err
		}
	}
	if listPlugins {
		fmt.Fprint(cmd.OutOrStdout(), plugins.ListPluginsStr(loaded))
	}

	if reindexEvery != "" {
		go func() {
			err := schedule(ctx, reindexEvery, func() {
				if _, err := a.reindexer.Reindex(ctx); err != nil && !errors.Is(err, werrors.ErrReindexInProgress) {
					log.Errorln(logTag, ": scheduled reindex failed:", err)
				}
			})
			if err != nil {
				log.Errorln(logTag, ":", err)
			}
		}()
	}

	return server.Start(ctx)
}

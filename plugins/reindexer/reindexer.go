package reindexer

import (
	"context"
	"fmt"
	"time"

	"github.com/appbaseio/world-search/config"
	"github.com/appbaseio/world-search/middleware/ratelimiter"
	"github.com/appbaseio/world-search/model/reindex"
	"github.com/appbaseio/world-search/plugins"
	"github.com/appbaseio/world-search/plugins/backfill"
	"github.com/appbaseio/world-search/util"
	es7 "github.com/olivere/elastic/v7"
	log "github.com/sirupsen/logrus"
)

const logTag = "[reindexer]"

// resolveAttempts bounds the retries of an alias lookup against an unavailable engine.
const resolveAttempts = 5

// Backfiller fills the index behind the write alias.
type Backfiller interface {
	Run(ctx context.Context) (backfill.Stats, error)
}

// Reindexer moves the world aliases to freshly built indices without downtime.
type Reindexer struct {
	es         reindexService
	pipeline   Backfiller
	names      *reindex.NameGenerator
	writeAlias string
	readAlias  string
	tracker    reindex.Tracker
	backoff    es7.Backoff
	limit      *ratelimiter.Ratelimiter
}

// New returns a reindexer for the indices named after cfg.
func New(client *es7.Client, cfg config.IndexConfig, pipeline Backfiller) *Reindexer {
	return newReindexer(newClient(client), cfg, pipeline)
}

func newReindexer(es reindexService, cfg config.IndexConfig, pipeline Backfiller) *Reindexer {
	return &Reindexer{
		es:         es,
		pipeline:   pipeline,
		names:      reindex.NewNameGenerator(cfg.Prefix),
		writeAlias: cfg.WriteAlias(),
		readAlias:  cfg.ReadAlias(),
		backoff:    es7.NewExponentialBackoff(500*time.Millisecond, 10*time.Second),
	}
}

// Name returns the name of the plugin.
func (rx *Reindexer) Name() string {
	return logTag
}

// Routes returns the operator routes.
func (rx *Reindexer) Routes() []plugins.Route {
	return rx.routes()
}

// begin registers a new run or fails with ErrReindexInProgress.
func (rx *Reindexer) begin(ctx context.Context, kind string) (context.Context, *reindex.Run, error) {
	run := reindex.NewRun(util.NewRunID(), kind)
	if err := rx.tracker.Begin(run); err != nil {
		return ctx, nil, err
	}
	return util.NewRunIDContext(ctx, run.ID), run, nil
}

// Reindex builds a new index, moves the write alias to it, backfills it, moves
// the read alias and removes the indices the aliases pointed to before.
func (rx *Reindexer) Reindex(ctx context.Context) (*reindex.Summary, error) {
	ctx, run, err := rx.begin(ctx, reindex.KindReindex)
	if err != nil {
		return nil, err
	}
	return rx.reindex(ctx, run)
}

// Start launches a reindex in the background and returns its run id.
func (rx *Reindexer) Start(ctx context.Context) (string, error) {
	ctx, run, err := rx.begin(context.WithoutCancel(ctx), reindex.KindReindex)
	if err != nil {
		return "", err
	}
	go func() {
		if _, err := rx.reindex(ctx, run); err != nil {
			log.Errorln(logTag, ": background reindex", run.ID, "failed:", err)
		}
	}()
	return run.ID, nil
}

func (rx *Reindexer) reindex(ctx context.Context, run *reindex.Run) (summary *reindex.Summary, err error) {
	summary = reindex.NewSummary(run)
	logger := log.WithField("run_id", run.ID)
	defer func() {
		summary.Finish(run, err)
		rx.tracker.End(summary)
		logger.WithFields(log.Fields{
			"status":  summary.Status,
			"phase":   summary.Phase,
			"shipped": summary.Shipped,
			"failed":  summary.Failed,
		}).Infoln(logTag, ": reindex finished in", summary.Took)
	}()

	name := rx.names.Next()
	if err = rx.es.createIndex(ctx, name); err != nil {
		logger.Errorln(logTag, ":", err)
		return summary, err
	}
	run.SetNewIndex(name)
	run.Advance(reindex.IndexCreated)

	write, read, err := rx.bindings(ctx)
	if err != nil {
		logger.Errorln(logTag, ": unable to resolve aliases:", err)
		return summary, err
	}
	if name == write.Index || name == read.Index {
		err = fmt.Errorf("generated index name %q is already live", name)
		logger.Errorln(logTag, ":", err)
		return summary, err
	}
	run.SetBindings(write, read)

	if err = rx.move(ctx, write, name); err != nil {
		logger.Errorln(logTag, ": operator attention required,", err)
		return summary, err
	}
	run.Advance(reindex.WriteAliasSwitched)
	logger.Infoln(logTag, ": write alias", rx.writeAlias, "now points to", name)

	stats, err := rx.pipeline.Run(ctx)
	summary.Shipped = stats.Shipped
	summary.Failed = stats.Failed
	if err != nil {
		logger.Errorln(logTag, ": backfill failed, write alias", rx.writeAlias, "points to", name,
			"while read alias", rx.readAlias, "still points to", displayIndex(read), ":", err)
		return summary, err
	}
	if err := rx.es.refreshIndex(ctx, name); err != nil {
		logger.Warnln(logTag, ": unable to refresh", name, ":", err)
	}
	run.Advance(reindex.Backfilled)

	if err = rx.move(ctx, read, name); err != nil {
		logger.Errorln(logTag, ": operator attention required,", err)
		return summary, err
	}
	run.Advance(reindex.ReadAliasSwitched)
	logger.Infoln(logTag, ": read alias", rx.readAlias, "now points to", name)

	summary.Deleted, summary.Leftovers = rx.removeStale(ctx, name, write.Index, read.Index)
	if len(summary.Leftovers) == 0 {
		run.Advance(reindex.OldIndexRemoved)
	}

	if count, err := rx.es.countDocuments(ctx, name); err != nil {
		logger.Warnln(logTag, ": unable to count documents of", name, ":", err)
	} else {
		summary.Documents = count
	}
	return summary, nil
}

// bindings resolves the write and read aliases, retrying while the engine is unavailable.
func (rx *Reindexer) bindings(ctx context.Context) (write, read reindex.Binding, err error) {
	err = util.RetryUnavailable(ctx, resolveAttempts, rx.backoff, func() error {
		var err error
		write, err = rx.es.resolveAlias(ctx, rx.writeAlias)
		if err != nil {
			return err
		}
		read, err = rx.es.resolveAlias(ctx, rx.readAlias)
		return err
	})
	return write, read, err
}

// move points the alias of binding to index, in a single step.
func (rx *Reindexer) move(ctx context.Context, binding reindex.Binding, index string) error {
	if !binding.Bound() {
		return rx.es.bindAlias(ctx, index, binding.Alias)
	}
	return rx.es.switchAlias(ctx, binding.Index, index, binding.Alias)
}

// removeStale deletes the distinct indices the aliases used to point to. A
// failure is logged and reported as a leftover.
func (rx *Reindexer) removeStale(ctx context.Context, current string, indices ...string) (deleted, leftovers []string) {
	seen := map[string]bool{current: true, "": true}
	for _, index := range indices {
		if seen[index] {
			continue
		}
		seen[index] = true
		logger := log.WithField("index", index)
		if created, err := reindex.CreatedAt(rx.names.Prefix, index); err == nil {
			logger = logger.WithField("age", time.Since(created).Round(time.Second).String())
		}
		if err := rx.es.deleteIndex(ctx, index); err != nil {
			logger.Warnln(logTag, ": leaving stale index behind:", err)
			leftovers = append(leftovers, index)
			continue
		}
		logger.Infoln(logTag, ": deleted stale index")
		deleted = append(deleted, index)
	}
	return deleted, leftovers
}

// CreateIndex makes sure both aliases are bound. It creates at most one index:
// a missing alias is bound to the index the other one points to.
func (rx *Reindexer) CreateIndex(ctx context.Context) (summary *reindex.Summary, err error) {
	ctx, run, err := rx.begin(ctx, reindex.KindBootstrap)
	if err != nil {
		return nil, err
	}
	summary = reindex.NewSummary(run)
	logger := log.WithField("run_id", run.ID)
	defer func() {
		summary.Finish(run, err)
		rx.tracker.End(summary)
	}()

	write, read, err := rx.bindings(ctx)
	if err != nil {
		logger.Errorln(logTag, ": unable to resolve aliases:", err)
		return summary, err
	}
	run.SetBindings(write, read)

	var index string
	switch {
	case write.Bound() && read.Bound():
		logger.Infoln(logTag, ": aliases already bound to", write.Index, "and", read.Index)
		return summary, nil
	case write.Bound():
		index = write.Index
	case read.Bound():
		index = read.Index
	default:
		index = rx.names.Next()
		if err = rx.es.createIndex(ctx, index); err != nil {
			logger.Errorln(logTag, ":", err)
			return summary, err
		}
		run.SetNewIndex(index)
		run.Advance(reindex.IndexCreated)
	}

	for _, binding := range []reindex.Binding{write, read} {
		if binding.Bound() {
			continue
		}
		if err = rx.es.bindAlias(ctx, index, binding.Alias); err != nil {
			logger.Errorln(logTag, ": operator attention required,", err)
			return summary, err
		}
		logger.Infoln(logTag, ": bound alias", binding.Alias, "to", index)
	}
	return summary, nil
}

// Status returns the summary of the run in flight or, if none, of the last one.
// The counters of a run in flight are those of its backfill so far.
func (rx *Reindexer) Status() *reindex.Summary {
	run := rx.tracker.Current()
	if run == nil {
		return rx.tracker.Last()
	}
	summary := reindex.NewSummary(run)
	if p, ok := rx.pipeline.(backfill.Progresser); ok && run.Kind == reindex.KindReindex && run.Phase() >= reindex.WriteAliasSwitched {
		stats := p.Progress()
		summary.Shipped = stats.Shipped
		summary.Failed = stats.Failed
	}
	return summary
}

// Aliases returns the current bindings of the write and read aliases.
func (rx *Reindexer) Aliases(ctx context.Context) ([]reindex.Binding, error) {
	write, read, err := rx.bindings(ctx)
	if err != nil {
		return nil, err
	}
	return []reindex.Binding{write, read}, nil
}

func displayIndex(b reindex.Binding) string {
	if !b.Bound() {
		return "nothing"
	}
	return b.Index
}

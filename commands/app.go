package commands

import (
	"context"
	"fmt"

	"github.com/appbaseio/world-search/config"
	"github.com/appbaseio/world-search/internal/queue"
	"github.com/appbaseio/world-search/internal/source"
	"github.com/appbaseio/world-search/plugins/backfill"
	"github.com/appbaseio/world-search/plugins/reindexer"
	"github.com/appbaseio/world-search/util"
	es7 "github.com/olivere/elastic/v7"
	log "github.com/sirupsen/logrus"
)

// app holds everything a command needs and what has to be released after it.
type app struct {
	client    *es7.Client
	reindexer *reindexer.Reindexer
	closers   []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func newESClient(ctx context.Context, c *config.Config) (*es7.Client, error) {
	client, err := util.NewClient(c)
	if err != nil {
		return nil, err
	}
	esVersion, err := util.CheckVersion(ctx, client, util.EscapeURLCredentials(c.ElasticURL()), c.Elastic.MinVersion)
	if err != nil {
		return nil, err
	}
	log.Infoln(logTag, ": connected to elasticsearch", esVersion)
	return client, nil
}

// newApp wires the engine client, the database and the dispatcher selected by c.
// ctx bounds the lifetime of the in-process nats worker, if any.
func newApp(ctx context.Context, c *config.Config, localWorker bool) (*app, error) {
	a := &app{}
	client, err := newESClient(ctx, c)
	if err != nil {
		return nil, err
	}
	a.client = client

	src, err := source.Open(c.Database.Driver, c.Database.DSN)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() {
		if err := src.Close(); err != nil {
			log.Warnln(logTag, ": closing database:", err)
		}
	})

	policy, err := backfill.ParsePolicy(c.Backfill.Policy)
	if err != nil {
		a.Close()
		return nil, err
	}
	shipper := backfill.NewESShipper(client, c.Index.WriteAlias())

	factory, err := a.dispatcherFactory(ctx, c, shipper, policy, localWorker)
	if err != nil {
		a.Close()
		return nil, err
	}

	pipeline, err := backfill.NewPipeline(src, factory, backfill.Options{
		BatchSize:    c.Backfill.BatchSize,
		Policy:       policy,
		DrainTimeout: c.Backfill.DrainTimeout,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	a.reindexer = reindexer.New(client, c.Index, pipeline)
	return a, nil
}

func (a *app) dispatcherFactory(ctx context.Context, c *config.Config, shipper backfill.Shipper, policy backfill.Policy, localWorker bool) (backfill.DispatcherFactory, error) {
	if c.Backfill.Mode == config.ModeSync {
		return backfill.InlineFactory(shipper, policy), nil
	}

	switch c.Backfill.Dispatcher {
	case config.DispatcherPool:
		return backfill.PoolFactory(shipper, c.Backfill.Workers, policy), nil
	case config.DispatcherNATS:
		nc, js, err := queue.Connect(c.NATS.URL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() {
			if err := nc.Drain(); err != nil {
				log.Warnln(logTag, ": draining nats connection:", err)
			}
		})
		results := queue.NewNATSResults(nc, c.NATS.Stream)
		if localWorker {
			worker := queue.NewWorker(js, shipper, results, c.NATS.Stream, c.Backfill.Workers)
			go func() {
				if err := worker.Start(ctx); err != nil {
					log.Errorln(logTag, ": local worker stopped:", err)
				}
			}()
		}
		return queue.Factory(js, results, c.NATS.Stream, policy), nil
	}
	return nil, fmt.Errorf("unknown dispatcher %q", c.Backfill.Dispatcher)
}

package reindexer

import (
	"context"

	"github.com/appbaseio/world-search/model/reindex"
)

type reindexService interface {
	indexExists(ctx context.Context, name string) (bool, error)
	createIndex(ctx context.Context, name string) error
	deleteIndex(ctx context.Context, name string) error
	resolveAlias(ctx context.Context, alias string) (reindex.Binding, error)
	bindAlias(ctx context.Context, index, alias string) error
	switchAlias(ctx context.Context, from, to, alias string) error
	refreshIndex(ctx context.Context, name string) error
	countDocuments(ctx context.Context, name string) (int64, error)
}

package reindexer

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	werrors "github.com/appbaseio/world-search/errors"
	"github.com/appbaseio/world-search/model/reindex"
	"github.com/appbaseio/world-search/util"
	"github.com/buger/jsonparser"
	es7 "github.com/olivere/elastic/v7"
	log "github.com/sirupsen/logrus"
)

type elasticsearch struct {
	client *es7.Client
}

func newClient(client *es7.Client) *elasticsearch {
	return &elasticsearch{client}
}

func (es *elasticsearch) indexExists(ctx context.Context, name string) (bool, error) {
	exists, err := es.client.IndexExists(name).Do(ctx)
	if err != nil {
		return false, util.ClassifyEngineError("index exists", err)
	}
	return exists, nil
}

// createIndex creates the index with the fixed mapping. An index that already
// exists is left untouched.
func (es *elasticsearch) createIndex(ctx context.Context, name string) error {
	if name == "" {
		return werrors.NewIndexCreationError(name, errors.New("missing index name"))
	}

	exists, err := es.indexExists(ctx, name)
	if err != nil {
		return werrors.NewIndexCreationError(name, err)
	}
	if exists {
		log.Debugln(logTag, ": index", name, "already exists, skipping creation")
		return nil
	}

	response, err := es.client.CreateIndex(name).BodyString(indexMapping).Do(ctx)
	if err != nil {
		if _, errType := util.EngineErrorDetails(err); errType == "resource_already_exists_exception" {
			return nil
		}
		return werrors.NewIndexCreationError(name, util.ClassifyEngineError("create index", err))
	}
	if !response.Acknowledged {
		return werrors.NewIndexCreationError(name, errors.New("acknowledged=false"))
	}
	log.Infoln(logTag, ": created index", name)
	return nil
}

func (es *elasticsearch) deleteIndex(ctx context.Context, name string) error {
	response, err := es.client.DeleteIndex(name).Do(ctx)
	if err != nil {
		if es7.IsNotFound(err) {
			log.Debugln(logTag, ": index", name, "is already gone")
			return nil
		}
		return werrors.NewIndexDeletionError(name, util.ClassifyEngineError("delete index", err))
	}
	if !response.Acknowledged {
		return werrors.NewIndexDeletionError(name, errors.New("acknowledged=false"))
	}
	return nil
}

// resolveAlias returns the index the alias points to. An alias that doesn't
// exist yields an unbound Binding rather than an error.
func (es *elasticsearch) resolveAlias(ctx context.Context, alias string) (reindex.Binding, error) {
	binding := reindex.Binding{Alias: alias}

	response, err := es.client.PerformRequest(ctx, es7.PerformRequestOptions{
		Method:       http.MethodGet,
		Path:         "/_alias/" + alias,
		IgnoreErrors: []int{http.StatusNotFound},
	})
	if err != nil {
		return binding, util.ClassifyEngineError("resolve alias", err)
	}
	if response.StatusCode == http.StatusNotFound {
		return binding, nil
	}

	var indices []string
	err = jsonparser.ObjectEach(response.Body, func(key []byte, _ []byte, _ jsonparser.ValueType, _ int) error {
		indices = append(indices, string(key))
		return nil
	})
	if err != nil {
		return binding, fmt.Errorf("can't parse aliases of %q: %v", alias, err)
	}

	switch len(indices) {
	case 0:
		return binding, nil
	case 1:
		binding.Index = indices[0]
		return binding, nil
	default:
		return binding, fmt.Errorf("alias %q is bound to %d indices %v, expected one", alias, len(indices), indices)
	}
}

func (es *elasticsearch) bindAlias(ctx context.Context, index, alias string) error {
	response, err := es.client.Alias().
		Action(es7.NewAliasAddAction(alias).Index(index)).
		Do(ctx)
	if err != nil {
		return werrors.NewAliasSwitchError(alias, "", index, util.ClassifyEngineError("bind alias", err))
	}
	if !response.Acknowledged {
		return werrors.NewAliasSwitchError(alias, "", index, errors.New("acknowledged=false"))
	}
	return nil
}

// switchAlias moves the alias in a single request, so that it is never unbound
// nor bound to both indices.
func (es *elasticsearch) switchAlias(ctx context.Context, from, to, alias string) error {
	response, err := es.client.Alias().
		Action(
			es7.NewAliasRemoveAction(alias).Index(from),
			es7.NewAliasAddAction(alias).Index(to),
		).
		Do(ctx)
	if err != nil {
		return werrors.NewAliasSwitchError(alias, from, to, util.ClassifyEngineError("switch alias", err))
	}
	if !response.Acknowledged {
		return werrors.NewAliasSwitchError(alias, from, to, errors.New("acknowledged=false"))
	}
	return nil
}

func (es *elasticsearch) refreshIndex(ctx context.Context, name string) error {
	_, err := es.client.Refresh(name).Do(ctx)
	return util.ClassifyEngineError("refresh", err)
}

func (es *elasticsearch) countDocuments(ctx context.Context, name string) (int64, error) {
	response, err := es.client.PerformRequest(ctx, es7.PerformRequestOptions{
		Method: http.MethodGet,
		Path:   "/" + name + "/_count",
	})
	if err != nil {
		return 0, util.ClassifyEngineError("count", err)
	}
	count, err := jsonparser.GetInt(response.Body, "count")
	if err != nil {
		return 0, fmt.Errorf("can't parse count of %q: %v", name, err)
	}
	return count, nil
}

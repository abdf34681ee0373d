package backfill

import (
	"context"

	"github.com/appbaseio/world-search/errors"
	"github.com/appbaseio/world-search/util"
	es7 "github.com/olivere/elastic/v7"
	log "github.com/sirupsen/logrus"
)

// ESShipper writes documents through an alias, so it never needs to know
// which concrete index is behind it.
type ESShipper struct {
	client *es7.Client
	alias  string
}

// NewESShipper returns a shipper writing to alias.
func NewESShipper(client *es7.Client, alias string) *ESShipper {
	return &ESShipper{client: client, alias: alias}
}

// Ship indexes the task body under the task id. Failures are logged with the
// document id and returned as a ShipError.
func (s *ESShipper) Ship(ctx context.Context, task Task) error {
	_, err := s.client.Index().
		Index(s.alias).
		Id(task.ID).
		BodyString(string(task.Body)).
		Do(ctx)
	if err == nil {
		return nil
	}

	status, errType := util.EngineErrorDetails(err)
	fields := log.Fields{"id": task.ID, "alias": s.alias}
	if status != 0 {
		fields["status"] = status
		fields["type"] = errType
	}
	if runID, ctxErr := util.RunIDFromContext(ctx); ctxErr == nil {
		fields["run_id"] = runID
	}
	log.WithFields(fields).Errorln(logTag, ": error shipping document:", err)
	return errors.NewShipError(task.ID, status, errType, util.ClassifyEngineError("ship", err))
}

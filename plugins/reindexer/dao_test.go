package reindexer

import (
	"context"
	"errors"
	"reflect"
	"testing"

	werrors "github.com/appbaseio/world-search/errors"
	"github.com/appbaseio/world-search/model/reindex"
	"github.com/appbaseio/world-search/util"
)

var resolveAliasTests = []struct {
	name    string
	setup   *ServerSetup
	binding reindex.Binding
	err     string
}{
	{
		"bound alias",
		&ServerSetup{
			Method:   "GET",
			Path:     "/_alias/world_write",
			Response: `{"world_100":{"aliases":{"world_write":{}}}}`,
		},
		reindex.Binding{Alias: "world_write", Index: "world_100"},
		"",
	},
	{
		"missing alias",
		&ServerSetup{
			Method:     "GET",
			Path:       "/_alias/world_write",
			Response:   `{"error":"alias [world_write] missing","status":404}`,
			HTTPStatus: 404,
		},
		reindex.Binding{Alias: "world_write"},
		"",
	},
	{
		"ambiguous alias",
		&ServerSetup{
			Method:   "GET",
			Path:     "/_alias/world_write",
			Response: `{"world_1":{"aliases":{"world_write":{}}},"world_2":{"aliases":{"world_write":{}}}}`,
		},
		reindex.Binding{Alias: "world_write"},
		`alias "world_write" is bound to 2 indices [world_1 world_2], expected one`,
	},
}

func TestResolveAlias(t *testing.T) {
	for _, tt := range resolveAliasTests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			ts := buildTestServer(t, []*ServerSetup{tt.setup})
			defer ts.Close()
			es, _ := newTestClient(ts.URL)
			binding, err := es.resolveAlias(ctx, "world_write")
			if !compareErrs(tt.err, err) {
				t.Fatalf("Resolve alias should have failed with error: %v got: %v instead\n", tt.err, err)
			}
			if !reflect.DeepEqual(binding, tt.binding) {
				t.Fatalf("Wrong binding returned expected: %v got: %v\n", tt.binding, binding)
			}
		})
	}
}

func TestResolveAliasUnavailable(t *testing.T) {
	ts := buildTestServer(t, []*ServerSetup{
		{
			Method:     "GET",
			Path:       "/_alias/world_read",
			Response:   `{"error":{"type":"unavailable_shards_exception","reason":"no shards"},"status":503}`,
			HTTPStatus: 503,
		},
	})
	defer ts.Close()
	es, _ := newTestClient(ts.URL)

	_, err := es.resolveAlias(context.Background(), "world_read")
	if !util.IsEngineUnavailable(err) {
		t.Fatalf("expected an unavailable engine error, got: %v\n", err)
	}
}

var createIndexTests = []struct {
	name   string
	setups []*ServerSetup
	index  string
	err    string
}{
	{
		"new index",
		[]*ServerSetup{
			{Method: "HEAD", Path: "/world_100", HTTPStatus: 404},
			{
				Method:   "PUT",
				Path:     "/world_100",
				Body:     indexMapping,
				Response: `{"acknowledged":true,"shards_acknowledged":true,"index":"world_100"}`,
			},
		},
		"world_100",
		"",
	},
	{
		"existing index is left alone",
		[]*ServerSetup{
			{Method: "HEAD", Path: "/world_100"},
		},
		"world_100",
		"",
	},
	{
		"index created concurrently",
		[]*ServerSetup{
			{Method: "HEAD", Path: "/world_100", HTTPStatus: 404},
			{
				Method:     "PUT",
				Path:       "/world_100",
				Body:       indexMapping,
				Response:   `{"error":{"type":"resource_already_exists_exception","reason":"index [world_100] already exists"},"status":400}`,
				HTTPStatus: 400,
			},
		},
		"world_100",
		"",
	},
	{
		"unacknowledged creation",
		[]*ServerSetup{
			{Method: "HEAD", Path: "/world_100", HTTPStatus: 404},
			{
				Method:   "PUT",
				Path:     "/world_100",
				Body:     indexMapping,
				Response: `{"acknowledged":false,"shards_acknowledged":false,"index":"world_100"}`,
			},
		},
		"world_100",
		`failed to create index named "world_100": acknowledged=false`,
	},
	{
		"missing name",
		nil,
		"",
		`failed to create index named "": missing index name`,
	},
}

func TestCreateIndex(t *testing.T) {
	for _, tt := range createIndexTests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			ts := buildTestServer(t, tt.setups)
			defer ts.Close()
			es, _ := newTestClient(ts.URL)
			err := es.createIndex(ctx, tt.index)
			if !compareErrs(tt.err, err) {
				t.Fatalf("Index creation should have failed with error: %v got: %v instead\n", tt.err, err)
			}
		})
	}
}

func TestCreateIndexRejected(t *testing.T) {
	ts := buildTestServer(t, []*ServerSetup{
		{Method: "HEAD", Path: "/world_100", HTTPStatus: 404},
		{
			Method:     "PUT",
			Path:       "/world_100",
			Body:       indexMapping,
			Response:   `{"error":{"type":"mapper_parsing_exception","reason":"bad mapping"},"status":400}`,
			HTTPStatus: 400,
		},
	})
	defer ts.Close()
	es, _ := newTestClient(ts.URL)

	err := es.createIndex(context.Background(), "world_100")
	var creationErr *werrors.IndexCreationError
	if !errors.As(err, &creationErr) || creationErr.Index != "world_100" {
		t.Fatalf("expected an IndexCreationError, got: %v\n", err)
	}
	if util.IsEngineUnavailable(err) {
		t.Fatalf("a rejected mapping must not be reported as unavailable engine\n")
	}
}

var deleteIndexTests = []struct {
	name  string
	setup *ServerSetup
	err   string
}{
	{
		"acknowledged",
		&ServerSetup{
			Method:   "DELETE",
			Path:     "/world_90",
			Response: `{"acknowledged": true}`,
		},
		"",
	},
	{
		"unacknowledged",
		&ServerSetup{
			Method:   "DELETE",
			Path:     "/world_90",
			Response: `{"acknowledged": false}`,
		},
		`error deleting index "world_90": acknowledged=false`,
	},
	{
		"already gone",
		&ServerSetup{
			Method:     "DELETE",
			Path:       "/world_90",
			Response:   `{"error":{"type":"index_not_found_exception","reason":"no such index [world_90]"},"status":404}`,
			HTTPStatus: 404,
		},
		"",
	},
}

func TestDeleteIndex(t *testing.T) {
	for _, tt := range deleteIndexTests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			ts := buildTestServer(t, []*ServerSetup{tt.setup})
			defer ts.Close()
			es, _ := newTestClient(ts.URL)
			err := es.deleteIndex(ctx, "world_90")
			if !compareErrs(tt.err, err) {
				t.Fatalf("Index deletion should have failed with error: %v got: %v instead\n", tt.err, err)
			}
		})
	}
}

var switchAliasTests = []struct {
	name  string
	setup *ServerSetup
	err   string
}{
	{
		"acknowledged",
		&ServerSetup{
			Method:   "POST",
			Path:     "/_aliases",
			Body:     `{"actions":[{"remove":{"alias":"world_write","index":"world_90"}},{"add":{"alias":"world_write","index":"world_100"}}]}`,
			Response: `{"acknowledged": true}`,
		},
		"",
	},
	{
		"unacknowledged",
		&ServerSetup{
			Method:   "POST",
			Path:     "/_aliases",
			Body:     `{"actions":[{"remove":{"alias":"world_write","index":"world_90"}},{"add":{"alias":"world_write","index":"world_100"}}]}`,
			Response: `{"acknowledged": false}`,
		},
		`error switching alias "world_write" from index "world_90" to "world_100": acknowledged=false`,
	},
}

func TestSwitchAlias(t *testing.T) {
	for _, tt := range switchAliasTests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			ts := buildTestServer(t, []*ServerSetup{tt.setup})
			defer ts.Close()
			es, _ := newTestClient(ts.URL)
			err := es.switchAlias(ctx, "world_90", "world_100", "world_write")
			if !compareErrs(tt.err, err) {
				t.Fatalf("Alias switch should have failed with error: %v got: %v instead\n", tt.err, err)
			}
			if err != nil && !werrors.IsAliasSwitch(err) {
				t.Fatalf("expected an AliasSwitchError, got %T\n", err)
			}
		})
	}
}

var bindAliasTests = []struct {
	name  string
	setup *ServerSetup
	err   string
}{
	{
		"acknowledged",
		&ServerSetup{
			Method:   "POST",
			Path:     "/_aliases",
			Body:     `{"actions":[{"add":{"alias":"world_read","index":"world_100"}}]}`,
			Response: `{"acknowledged": true}`,
		},
		"",
	},
	{
		"unacknowledged",
		&ServerSetup{
			Method:   "POST",
			Path:     "/_aliases",
			Body:     `{"actions":[{"add":{"alias":"world_read","index":"world_100"}}]}`,
			Response: `{"acknowledged": false}`,
		},
		`error binding alias "world_read" to index "world_100": acknowledged=false`,
	},
}

func TestBindAlias(t *testing.T) {
	for _, tt := range bindAliasTests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			ts := buildTestServer(t, []*ServerSetup{tt.setup})
			defer ts.Close()
			es, _ := newTestClient(ts.URL)
			err := es.bindAlias(ctx, "world_100", "world_read")
			if !compareErrs(tt.err, err) {
				t.Fatalf("Alias binding should have failed with error: %v got: %v instead\n", tt.err, err)
			}
		})
	}
}

func TestRefreshAndCount(t *testing.T) {
	ts := buildTestServer(t, []*ServerSetup{
		{
			Method:   "POST",
			Path:     "/world_100/_refresh",
			Response: `{"_shards":{"total":2,"successful":1,"failed":0}}`,
		},
		{
			Method:   "GET",
			Path:     "/world_100/_count",
			Response: `{"count":239,"_shards":{"total":1,"successful":1,"skipped":0,"failed":0}}`,
		},
	})
	defer ts.Close()
	es, _ := newTestClient(ts.URL)
	ctx := context.Background()

	if err := es.refreshIndex(ctx, "world_100"); err != nil {
		t.Fatalf("unexpected refresh error: %v\n", err)
	}
	count, err := es.countDocuments(ctx, "world_100")
	if err != nil {
		t.Fatalf("unexpected count error: %v\n", err)
	}
	if count != 239 {
		t.Fatalf("expected 239 documents, got %d\n", count)
	}
}

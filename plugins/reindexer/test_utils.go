package reindexer

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	es7 "github.com/olivere/elastic/v7"
)

func compareErrs(expectedErr string, actual error) bool {
	if actual == nil {
		return expectedErr == ""
	}
	return expectedErr == actual.Error()
}

type ServerSetup struct {
	Method, Path, Body, Response string
	HTTPStatus                   int
}

// This function is a modified version of: https://github.com/github/vulcanizer/blob/master/es_test.go
func buildTestServer(t *testing.T, setups []*ServerSetup) *httptest.Server {
	handlerFunc := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestBytes, _ := io.ReadAll(r.Body)
		requestBody := string(requestBytes)

		for _, setup := range setups {
			if r.Method != setup.Method || r.URL.EscapedPath() != setup.Path || requestBody != setup.Body {
				continue
			}
			w.Header().Set("Content-Type", "application/json")
			if setup.HTTPStatus == 0 {
				w.WriteHeader(http.StatusOK)
			} else {
				w.WriteHeader(setup.HTTPStatus)
			}
			if _, err := w.Write([]byte(setup.Response)); err != nil {
				t.Errorf("Unable to write test server response: %v", err)
			}
			return
		}

		t.Errorf("No requests matched setup. Got method %s, Path %s, body %s\n", r.Method, r.URL.EscapedPath(), requestBody)
		w.WriteHeader(http.StatusTeapot)
	})

	return httptest.NewServer(handlerFunc)
}

func newTestClient(url string) (*elasticsearch, error) {
	client, err := es7.NewClient(
		es7.SetURL(url),
		es7.SetSniff(false),
		es7.SetHealthcheck(false),
	)
	if err != nil {
		return nil, err
	}
	return newClient(client), nil
}

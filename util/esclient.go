package util

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/appbaseio/world-search/config"
	v "github.com/hashicorp/go-version"
	es7 "github.com/olivere/elastic/v7"
	log "github.com/sirupsen/logrus"
)

const logTag = "[util]"

// HTTPClient returns an http client with reasonable timeout defaults.
// It caps the TCP connect and TLS handshake timeouts, as well as the
// end-to-end request timeout, and tags run requests with their run id.
func HTTPClient() *http.Client {
	netTransport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout: 10 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout: 10 * time.Second,
		MaxIdleConnsPerHost: 16,
	}
	return &http.Client{
		Timeout:   2 * time.Minute,
		Transport: &OpaqueIDTransport{originalTransport: netTransport},
	}
}

// NewClient instantiates the es7 client for the given configuration. The returned
// client is the only handle to the engine and must be passed to whoever needs it.
func NewClient(cfg *config.Config) (*es7.Client, error) {
	loggerT := log.StandardLogger()
	wrappedLoggerDebug := &WrapKitLoggerDebug{loggerT}
	wrappedLoggerError := &WrapKitLoggerError{loggerT}

	esURL := EscapeURLCredentials(cfg.ElasticURL())
	options := []es7.ClientOptionFunc{
		es7.SetURL(esURL),
		es7.SetRetrier(NewRetrier()),
		es7.SetSniff(cfg.Elastic.Sniff),
		es7.SetHealthcheck(false),
		es7.SetHttpClient(HTTPClient()),
		es7.SetErrorLog(wrappedLoggerError),
		es7.SetInfoLog(wrappedLoggerDebug),
		es7.SetTraceLog(wrappedLoggerDebug),
	}
	if cfg.Elastic.Username != "" {
		options = append(options, es7.SetBasicAuth(cfg.Elastic.Username, cfg.Elastic.Password))
	}

	client, err := es7.NewClient(options...)
	if err != nil {
		return nil, fmt.Errorf("error while initializing elastic v7 client: %v", err)
	}
	return client, nil
}

// EscapeURLCredentials path-escapes the username and password embedded in an url, if any.
func EscapeURLCredentials(esURL string) string {
	if !strings.Contains(esURL, "@") || !strings.Contains(esURL, "://") {
		return esURL
	}
	splitIndex := strings.LastIndex(esURL, "@")
	protocolWithCredentials := strings.SplitN(esURL[0:splitIndex], "://", 2)
	protocol := protocolWithCredentials[0]
	credentials := protocolWithCredentials[1]
	host := esURL[splitIndex+1:]

	credentialSeparator := strings.Index(credentials, ":")
	if credentialSeparator < 0 {
		return protocol + "://" + url.PathEscape(credentials) + "@" + host
	}
	username := credentials[0:credentialSeparator]
	password := credentials[credentialSeparator+1:]
	return protocol + "://" + url.PathEscape(username) + ":" + url.PathEscape(password) + "@" + host
}

// CheckVersion fails when the engine at esURL is older than minVersion.
func CheckVersion(ctx context.Context, client *es7.Client, esURL, minVersion string) (string, error) {
	esVersion, err := client.ElasticsearchVersion(esURL)
	if err != nil {
		return "", ClassifyEngineError("version", err)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return esVersion, IsVersionSupported(esVersion, minVersion)
}

// IsVersionSupported compares the semantic versions of the engine and the minimum supported one.
func IsVersionSupported(esVersion, minVersion string) error {
	current, err := v.NewVersion(esVersion)
	if err != nil {
		return fmt.Errorf("unable to parse elasticsearch version %q: %v", esVersion, err)
	}
	min, err := v.NewVersion(minVersion)
	if err != nil {
		return fmt.Errorf("unable to parse minimum version %q: %v", minVersion, err)
	}
	if current.LessThan(min) {
		return fmt.Errorf("elasticsearch version %s is not supported, need at least %s", esVersion, minVersion)
	}
	log.Debugln(logTag, ": elasticsearch version is", esVersion)
	return nil
}

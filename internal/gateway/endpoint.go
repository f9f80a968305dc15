// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quarry Contributors

// Package gateway is the single path to the remote SPARQL endpoint. It
// serializes calls, enforces a pause after each one and turns endpoint
// failures into empty results.
package gateway

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/quarry-kg/quarry/internal/sparql"
	qerr "github.com/quarry-kg/quarry/pkg/errors"
)

// Endpoint executes query text against a SPARQL service.
type Endpoint interface {
	Query(ctx context.Context, query string) ([]sparql.Row, error)
}

// EndpointConfig configures an HTTPEndpoint.
type EndpointConfig struct {
	URL       string
	UserAgent string
	Timeout   time.Duration
}

// HTTPEndpoint speaks the SPARQL 1.1 protocol over HTTP POST.
type HTTPEndpoint struct {
	url       string
	userAgent string
	client    *http.Client
}

var _ Endpoint = (*HTTPEndpoint)(nil)

// NewHTTPEndpoint validates cfg and returns an endpoint client.
func NewHTTPEndpoint(cfg EndpointConfig) (*HTTPEndpoint, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, qerr.New(qerr.CodeGatewayConfigInvalid, "sparql endpoint must be an absolute URL",
			qerr.Field("url", cfg.URL))
	}
	if cfg.UserAgent == "" {
		return nil, qerr.New(qerr.CodeGatewayConfigInvalid, "sparql user agent is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &HTTPEndpoint{
		url:       cfg.URL,
		userAgent: cfg.UserAgent,
		client:    &http.Client{Timeout: timeout},
	}, nil
}

// Query posts the query form-encoded and decodes the JSON result set.
func (e *HTTPEndpoint) Query(ctx context.Context, query string) ([]sparql.Row, error) {
	form := url.Values{"query": {query}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, qerr.Errorf(qerr.CodeGatewayUpstreamFailure, "building sparql request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/sparql-results+json")
	req.Header.Set("User-Agent", e.userAgent)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, qerr.Errorf(qerr.CodeGatewayUpstreamFailure, "sparql request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, qerr.New(qerr.CodeGatewayUpstreamFailure, "sparql endpoint returned non-2xx status",
			qerr.Field("status", resp.StatusCode),
			qerr.Field("body", string(snippet)))
	}
	return sparql.DecodeResults(resp.Body)
}

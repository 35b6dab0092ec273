// Package payment holds the outbound gateway adapters. Providers are opaque
// collaborators: each adapter owns its wire format and signature scheme and
// normalizes results into usecase types.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/lapstore/storefront-api/internal/apperr"
	"github.com/sony/gobreaker"
)

// gatewayClient is the shared HTTP plumbing: one breaker per provider so a
// flapping gateway fails fast instead of tying up checkout requests.
type gatewayClient struct {
	name    string
	base    string
	hc      *http.Client
	breaker *gobreaker.CircuitBreaker
	headers map[string]string
}

func newGatewayClient(name, base string, headers map[string]string) *gatewayClient {
	return &gatewayClient{
		name: name,
		base: base,
		hc:   &http.Client{Timeout: 10 * time.Second},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    name,
			Timeout: 30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
		}),
		headers: headers,
	}
}

func (c *gatewayClient) postJSON(ctx context.Context, path string, body, out any) error {
	return c.doJSON(ctx, http.MethodPost, path, body, out)
}

func (c *gatewayClient) getJSON(ctx context.Context, path string, out any) error {
	return c.doJSON(ctx, http.MethodGet, path, nil, out)
}

func (c *gatewayClient) doJSON(ctx context.Context, method, path string, body, out any) error {
	_, err := c.breaker.Execute(func() (any, error) {
		var rdr io.Reader
		if body != nil {
			b, err := json.Marshal(body)
			if err != nil {
				return nil, fmt.Errorf("encode request: %w", err)
			}
			rdr = bytes.NewReader(b)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.base+path, rdr)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		for k, v := range c.headers {
			req.Header.Set(k, v)
		}

		resp, err := c.hc.Do(req)
		if err != nil {
			return nil, apperr.Wrap(apperr.Provider, c.name+" unreachable", err)
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return nil, apperr.Wrap(apperr.Provider, c.name+" response read", err)
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, apperr.Newf(apperr.Provider, "%s returned %d", c.name, resp.StatusCode).
				With("body", string(raw))
		}
		if out != nil {
			if err := json.Unmarshal(raw, out); err != nil {
				return nil, apperr.Wrap(apperr.Provider, c.name+" response decode", err)
			}
		}
		return nil, nil
	})
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return apperr.Wrap(apperr.Provider, c.name+" circuit open", err)
	}
	return err
}

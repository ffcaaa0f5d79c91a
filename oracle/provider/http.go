// Package provider holds example market feeds: callables matching
// types.Feed that a SupportedMarket composes into the aggregator. These
// are reference implementations, not a production feed catalogue — a
// real deployment supplies its own Feed closures the same way.
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/classic-terra/oracle-voter/pkg/decimal"
)

// FieldPath is a dotted path into a decoded JSON document, e.g.
// "data.price" for {"data":{"price":"250.0"}}.
type FieldPath string

// HTTPFeed polls a single REST endpoint and extracts one numeric field
// as the market price: GET a JSON document, pull a price field, hand
// it to the aggregator.
type HTTPFeed struct {
	Name       string
	URL        string
	Field      FieldPath
	HTTPClient *http.Client
	Logger     zerolog.Logger
}

// NewHTTPFeed returns an HTTPFeed with a bounded request timeout.
func NewHTTPFeed(name, url string, field FieldPath, logger zerolog.Logger) *HTTPFeed {
	return &HTTPFeed{
		Name:       name,
		URL:        url,
		Field:      field,
		HTTPClient: &http.Client{Timeout: 5 * time.Second},
		Logger:     logger.With().Str("feed", name).Logger(),
	}
}

// Feed returns the types.Feed closure the aggregator calls each period.
func (f *HTTPFeed) Feed() func() (decimal.Rate, error) {
	return func() (decimal.Rate, error) {
		ctx, cancel := context.WithTimeout(context.Background(), f.HTTPClient.Timeout)
		defer cancel()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.URL, nil)
		if err != nil {
			return decimal.Rate{}, fmt.Errorf("provider: %s: build request: %w", f.Name, err)
		}
		resp, err := f.HTTPClient.Do(req)
		if err != nil {
			return decimal.Rate{}, fmt.Errorf("provider: %s: %w", f.Name, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return decimal.Rate{}, fmt.Errorf("provider: %s: unexpected status %d", f.Name, resp.StatusCode)
		}

		var doc map[string]any
		if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
			return decimal.Rate{}, fmt.Errorf("provider: %s: decode: %w", f.Name, err)
		}

		raw, err := extractField(doc, string(f.Field))
		if err != nil {
			return decimal.Rate{}, fmt.Errorf("provider: %s: %w", f.Name, err)
		}

		rate, err := decimal.Parse(raw)
		if err != nil {
			f.Logger.Debug().Err(err).Str("raw", raw).Msg("feed returned unparseable price")
			return decimal.Rate{}, err
		}
		return rate, nil
	}
}

// extractField walks a dotted path through a decoded JSON document and
// stringifies whatever scalar it finds at the leaf.
func extractField(doc map[string]any, path string) (string, error) {
	var cur any = doc
	start := 0
	for i := 0; i <= len(path); i++ {
		if i < len(path) && path[i] != '.' {
			continue
		}
		key := path[start:i]
		start = i + 1

		m, ok := cur.(map[string]any)
		if !ok {
			return "", fmt.Errorf("path %q: not an object at %q", path, key)
		}
		v, ok := m[key]
		if !ok {
			return "", fmt.Errorf("path %q: missing field %q", path, key)
		}
		cur = v
	}

	switch v := cur.(type) {
	case string:
		return v, nil
	case float64:
		return fmt.Sprintf("%v", v), nil
	default:
		return "", fmt.Errorf("path %q: leaf is not a scalar", path)
	}
}


package provider

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestHTTPFeedExtractsNestedField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{"price": "1300.5"},
		})
	}))
	defer srv.Close()

	f := NewHTTPFeed("upbit", srv.URL, "data.price", zerolog.Nop())
	rate, err := f.Feed()()
	require.NoError(t, err)
	require.Equal(t, "1300.500000000000000000", rate.String18())
}

func TestHTTPFeedMissingFieldErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"data": map[string]any{}})
	}))
	defer srv.Close()

	f := NewHTTPFeed("upbit", srv.URL, "data.price", zerolog.Nop())
	_, err := f.Feed()()
	require.Error(t, err)
}

func TestHTTPFeedNon2xxErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	f := NewHTTPFeed("upbit", srv.URL, "data.price", zerolog.Nop())
	_, err := f.Feed()()
	require.Error(t, err)
}

func TestConstantFeedReturnsFixedRate(t *testing.T) {
	f, err := NewConstantFeed("250.000000000000000000")
	require.NoError(t, err)
	rate, err := f.Feed()()
	require.NoError(t, err)
	require.Equal(t, "250.000000000000000000", rate.String18())
}

func TestNewConstantFeedRejectsMalformed(t *testing.T) {
	_, err := NewConstantFeed("not-a-number")
	require.Error(t, err)
}

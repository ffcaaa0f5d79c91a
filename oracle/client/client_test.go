package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, path string, status int, body any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, path, r.URL.Path)
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}))
}

func TestLatestHeight(t *testing.T) {
	srv := newTestServer(t, "/blocks/latest", http.StatusOK, map[string]any{
		"block_meta": map[string]any{"header": map[string]any{"height": "12345"}},
	})
	defer srv.Close()

	n := NewLCDNode(srv.URL, zerolog.Nop())
	h, err := n.LatestHeight(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(12345), h)
}

func TestGetAccount(t *testing.T) {
	srv := newTestServer(t, "/auth/accounts/terra1abc", http.StatusOK, map[string]any{
		"account_number": "7", "sequence": "42",
	})
	defer srv.Close()

	n := NewLCDNode(srv.URL, zerolog.Nop())
	accNum, seq, err := n.GetAccount(context.Background(), "terra1abc")
	require.NoError(t, err)
	require.Equal(t, uint64(7), accNum)
	require.Equal(t, uint64(42), seq)
}

func TestOracleRates(t *testing.T) {
	srv := newTestServer(t, "/oracle/denoms/exchange_rates", http.StatusOK, map[string]any{
		"result": []map[string]string{{"denom": "ukrw", "amount": "1300.0"}},
	})
	defer srv.Close()

	n := NewLCDNode(srv.URL, zerolog.Nop())
	rates, err := n.OracleRates(context.Background())
	require.NoError(t, err)
	require.Len(t, rates, 1)
	require.Equal(t, "ukrw", rates[0].Denom)
}

func TestTransportErrorOnNon2xx(t *testing.T) {
	n := &LCDNode{}
	n.MaxRetries = 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()
	n.BaseURL = srv.URL
	n.HTTPClient = http.DefaultClient
	n.Logger = zerolog.Nop()

	_, err := n.LatestHeight(context.Background())
	require.Error(t, err)

	var te *TransportError
	require.ErrorAs(t, err, &te)
}

func TestBroadcastTx(t *testing.T) {
	srv := newTestServer(t, "/txs", http.StatusOK, map[string]any{
		"height": "100", "txhash": "ABCD", "code": 0,
	})
	defer srv.Close()

	n := NewLCDNode(srv.URL, zerolog.Nop())
	res, err := n.BroadcastTx(context.Background(), map[string]string{"mode": "sync"})
	require.NoError(t, err)
	require.Equal(t, "ABCD", res.TxHash)
}

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
)

// TransportError wraps any failure to reach the LCD node at all: a
// connection refused, a timeout, a non-2xx status. It is distinguished
// from DecodeError so callers can apply the voter's "advance sequence
// even on transport failure" policy precisely to this case.
type TransportError struct {
	Path   string
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("client: %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("client: %s: unexpected status %d", e.Path, e.Status)
}

func (e *TransportError) Unwrap() error { return e.Err }

// DecodeError wraps a failure to unmarshal an otherwise-successful
// LCD response body.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string { return fmt.Sprintf("client: %s: decode: %v", e.Path, e.Err) }
func (e *DecodeError) Unwrap() error { return e.Err }

// LatestBlock mirrors the /blocks/latest response fields the voter cares about.
type LatestBlock struct {
	BlockMeta struct {
		Header struct {
			Height string `json:"height"`
		} `json:"header"`
	} `json:"block_meta"`
}

// Account mirrors the /auth/accounts/{address} response fields the
// voter needs to sign the next tx.
type Account struct {
	AccountNumber string `json:"account_number"`
	Sequence      string `json:"sequence"`
}

// ExchangeRate is one entry of the /oracle/denoms/exchange_rates response.
type ExchangeRate struct {
	Denom        string `json:"denom"`
	ExchangeRate string `json:"amount"`
}

// resultEnvelope wraps the legacy LCD "result" field the rates,
// actives, prevotes, and votes endpoints all share.
type resultEnvelope[T any] struct {
	Result T `json:"result"`
}

// PrevoteEntry mirrors one prevote returned for a (denom, validator) pair.
type PrevoteEntry struct {
	Hash      string `json:"hash"`
	Denom     string `json:"denom"`
	Voter     string `json:"voter"`
	SubmitBlk string `json:"submit_block"`
}

// VoteEntry mirrors one vote returned for a (denom, validator) pair.
type VoteEntry struct {
	ExchangeRate string `json:"exchange_rate"`
	Denom        string `json:"denom"`
	Voter        string `json:"voter"`
}

// TxResult mirrors the subset of /txs/{hash} the pending tracker needs.
type TxResult struct {
	Height string `json:"height"`
	TxHash string `json:"txhash"`
	Code   int    `json:"code"`
	RawLog string `json:"raw_log"`
	Logs   []struct {
		MsgIndex int    `json:"msg_index"`
		Log      string `json:"log"`
		Success  bool   `json:"success"`
	} `json:"logs"`
}

// BroadcastResult mirrors the response body of POST /txs.
type BroadcastResult struct {
	Height string `json:"height"`
	TxHash string `json:"txhash"`
	Code   int    `json:"code"`
	RawLog string `json:"raw_log"`
}

// LCDNode speaks the REST query surface a Tendermint/Cosmos full node
// exposes: plain GET/POST over net/http wrapped in bounded retry.
type LCDNode struct {
	BaseURL    string
	HTTPClient *http.Client
	Logger     zerolog.Logger
	MaxRetries uint64
}

// NewLCDNode returns an LCDNode with sane request timeouts.
func NewLCDNode(baseURL string, logger zerolog.Logger) *LCDNode {
	return &LCDNode{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
		Logger:     logger.With().Str("module", "lcd_node").Logger(),
		MaxRetries: 3,
	}
}

func (n *LCDNode) retryPolicy(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	return backoff.WithContext(backoff.WithMaxRetries(b, n.MaxRetries), ctx)
}

func (n *LCDNode) getJSON(ctx context.Context, path string, out any) error {
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.BaseURL+path, nil)
		if err != nil {
			return backoff.Permanent(&TransportError{Path: path, Err: err})
		}
		resp, err := n.HTTPClient.Do(req)
		if err != nil {
			return &TransportError{Path: path, Err: err}
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return &TransportError{Path: path, Err: err}
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return &TransportError{Path: path, Status: resp.StatusCode}
		}
		if err := json.Unmarshal(body, out); err != nil {
			return backoff.Permanent(&DecodeError{Path: path, Err: err})
		}
		return nil
	}

	if err := backoff.Retry(op, n.retryPolicy(ctx)); err != nil {
		n.Logger.Debug().Err(err).Str("path", path).Msg("lcd query failed")
		return err
	}
	return nil
}

// LatestHeight fetches the chain's current height.
func (n *LCDNode) LatestHeight(ctx context.Context) (int64, error) {
	var lb LatestBlock
	if err := n.getJSON(ctx, "/blocks/latest", &lb); err != nil {
		return 0, err
	}
	var height int64
	if _, err := fmt.Sscanf(lb.BlockMeta.Header.Height, "%d", &height); err != nil {
		return 0, &DecodeError{Path: "/blocks/latest", Err: err}
	}
	return height, nil
}

// GetAccount fetches the account number and sequence for addr.
func (n *LCDNode) GetAccount(ctx context.Context, addr string) (accountNumber, sequence uint64, err error) {
	var acc Account
	if err := n.getJSON(ctx, "/auth/accounts/"+addr, &acc); err != nil {
		return 0, 0, err
	}
	if _, err := fmt.Sscanf(acc.AccountNumber, "%d", &accountNumber); err != nil {
		return 0, 0, &DecodeError{Path: "/auth/accounts", Err: err}
	}
	if _, err := fmt.Sscanf(acc.Sequence, "%d", &sequence); err != nil {
		return 0, 0, &DecodeError{Path: "/auth/accounts", Err: err}
	}
	return accountNumber, sequence, nil
}

// OracleRates fetches all denoms' last-reported chain exchange rates.
func (n *LCDNode) OracleRates(ctx context.Context) ([]ExchangeRate, error) {
	var env resultEnvelope[[]ExchangeRate]
	if err := n.getJSON(ctx, "/oracle/denoms/exchange_rates", &env); err != nil {
		return nil, err
	}
	return env.Result, nil
}

// OracleActiveDenoms fetches the set of denoms currently whitelisted for voting.
func (n *LCDNode) OracleActiveDenoms(ctx context.Context) ([]string, error) {
	var env resultEnvelope[[]string]
	if err := n.getJSON(ctx, "/oracle/denoms/actives", &env); err != nil {
		return nil, err
	}
	return env.Result, nil
}

// OraclePrevotes fetches the prevotes a validator has submitted for denom.
func (n *LCDNode) OraclePrevotes(ctx context.Context, denom, validator string) ([]PrevoteEntry, error) {
	var env resultEnvelope[[]PrevoteEntry]
	path := fmt.Sprintf("/oracle/denoms/%s/prevotes/%s", denom, validator)
	if err := n.getJSON(ctx, path, &env); err != nil {
		return nil, err
	}
	return env.Result, nil
}

// OracleVotes fetches the votes a validator has submitted for denom.
func (n *LCDNode) OracleVotes(ctx context.Context, denom, validator string) ([]VoteEntry, error) {
	var env resultEnvelope[[]VoteEntry]
	path := fmt.Sprintf("/oracle/denoms/%s/votes/%s", denom, validator)
	if err := n.getJSON(ctx, path, &env); err != nil {
		return nil, err
	}
	return env.Result, nil
}

// Tx fetches the result of a previously broadcast transaction.
func (n *LCDNode) Tx(ctx context.Context, hash string) (TxResult, error) {
	var res TxResult
	if err := n.getJSON(ctx, "/txs/"+hash, &res); err != nil {
		return TxResult{}, err
	}
	return res, nil
}

// BroadcastTx submits a signed tx envelope via POST /txs in sync mode.
// A transport failure here is the one case the voter's sequence-advance
// policy treats as "assume it may have landed" (see the pessimistic
// sequence policy note in DESIGN.md).
func (n *LCDNode) BroadcastTx(ctx context.Context, envelope any) (BroadcastResult, error) {
	body, err := json.Marshal(envelope)
	if err != nil {
		return BroadcastResult{}, fmt.Errorf("client: encode broadcast envelope: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.BaseURL+"/txs", bytes.NewReader(body))
	if err != nil {
		return BroadcastResult{}, &TransportError{Path: "/txs", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.HTTPClient.Do(req)
	if err != nil {
		return BroadcastResult{}, &TransportError{Path: "/txs", Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return BroadcastResult{}, &TransportError{Path: "/txs", Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return BroadcastResult{}, &TransportError{Path: "/txs", Status: resp.StatusCode}
	}

	var result BroadcastResult
	if err := json.Unmarshal(respBody, &result); err != nil {
		return BroadcastResult{}, &DecodeError{Path: "/txs", Err: err}
	}
	return result, nil
}

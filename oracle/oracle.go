package oracle

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/cosmos/cosmos-sdk/telemetry"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/classic-terra/oracle-voter/oracle/client"
	"github.com/classic-terra/oracle-voter/oracle/types"
	"github.com/classic-terra/oracle-voter/pkg/closer"
	"github.com/classic-terra/oracle-voter/pkg/decimal"
)

// tickerSleep is the minimum pause between height polls. It bounds how
// quickly a missed tick can be noticed without hammering the LCD node.
const tickerSleep = 500 * time.Millisecond

// revealHeightDelta is how many blocks the voter waits before querying
// a broadcast tx's outcome.
const revealHeightDelta = 4

// Voter is the height-driven commit-reveal oracle voter: the core
// component responsible for fetching exchange rates from the local
// feed set and submitting them to the chain's oracle module, honoring
// the commit-reveal protocol's salt/hash carry-over and account
// sequence discipline.
type Voter struct {
	logger zerolog.Logger
	closer *closer.Closer

	client   *client.LCDNode
	signer   Signer
	agg      *Aggregator
	memory   PrevoteStore
	pending  *PendingTracker
	healthch map[string]http.Client

	chainID          string
	validator        string
	feeder           string
	votePeriodLength int64
	gasFee           string
	gasDenom         string
	revealDelay      time.Duration
	deviationMargins map[types.Denom]string

	mtx               sync.Mutex
	currentHeight     int64
	currentVotePeriod int64
	accountNumber     uint64
	sequence          uint64
}

// VoterConfig bundles the identity and chain parameters a Voter needs.
// It intentionally excludes config-file parsing and CLI concerns,
// which are the configuration loader's job.
type VoterConfig struct {
	ChainID          string
	ValidatorAddress string
	FeederAddress    string
	VotePeriodLength int64
	GasFee           string
	GasDenom         string
	RevealDelay      time.Duration
	DeviationMargins map[types.Denom]string
	// Store overrides the default in-memory PrevoteStore, e.g. with a
	// SQLitePrevoteMemory for restart-surviving commitments. Nil uses
	// NewPrevoteMemory().
	Store PrevoteStore
}

// NewVoter wires a Voter from its chain client, signer, market set, and config.
func NewVoter(
	logger zerolog.Logger,
	lcd *client.LCDNode,
	signer Signer,
	supported []types.SupportedMarket,
	healthchecks map[string]http.Client,
	cfg VoterConfig,
) *Voter {
	store := cfg.Store
	if store == nil {
		store = NewPrevoteMemory()
	}
	return &Voter{
		logger:           logger.With().Str("module", "voter").Logger(),
		closer:           closer.New(),
		client:           lcd,
		signer:           signer,
		agg:              NewAggregator(supported),
		memory:           store,
		pending:          NewPendingTracker(),
		healthch:         healthchecks,
		chainID:          cfg.ChainID,
		validator:        cfg.ValidatorAddress,
		feeder:           cfg.FeederAddress,
		votePeriodLength: cfg.VotePeriodLength,
		gasFee:           cfg.GasFee,
		gasDenom:         cfg.GasDenom,
		revealDelay:      cfg.RevealDelay,
		deviationMargins: cfg.DeviationMargins,
	}
}

// Start polls the chain's height and drives the voter state machine
// until ctx is cancelled.
func (v *Voter) Start(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			v.closer.Close()
			return nil
		case <-v.closer.Done():
			return nil
		default:
		}

		startTime := time.Now()
		if err := v.pollOnce(ctx); err != nil {
			telemetry.IncrCounter(1, "failure", "tick")
			v.logger.Err(err).Msg("voter tick failed")
		}
		telemetry.MeasureSince(startTime, "runtime", "tick")
		telemetry.IncrCounter(1, "new", "tick")

		select {
		case <-ctx.Done():
			v.closer.Close()
			return nil
		case <-v.closer.Done():
			return nil
		case <-time.After(tickerSleep):
		}
	}
}

// Stop signals the driver loop to exit; Start returns at its next check
// of the shutdown signal. Stop does not wait for Start to return.
func (v *Voter) Stop() {
	v.closer.Close()
	<-v.closer.Done()
}

func (v *Voter) pollOnce(ctx context.Context) error {
	h, err := v.client.LatestHeight(ctx)
	if err != nil {
		return fmt.Errorf("voter: poll height: %w", err)
	}
	return v.Tick(ctx, h)
}

// Tick processes a new height observation. Heights at or below the
// current height are dropped, since the height stream must be monotonic.
func (v *Voter) Tick(ctx context.Context, h int64) error {
	v.mtx.Lock()
	if h <= v.currentHeight {
		v.mtx.Unlock()
		return nil
	}
	v.currentHeight = h
	v.mtx.Unlock()

	return v.onNewHeight(ctx, h)
}

func (v *Voter) onNewHeight(ctx context.Context, h int64) error {
	v.checkPending(ctx, h)

	p := h / v.votePeriodLength

	v.mtx.Lock()
	newPeriod := p > v.currentVotePeriod
	if newPeriod {
		v.currentVotePeriod = p
	}
	v.mtx.Unlock()

	if !newPeriod {
		return nil
	}
	return v.onNewPeriod(ctx, h, p)
}

// checkPending runs the pending-result tracker's one-head-per-kind
// check for both message kinds, passing the observed height so a tx
// broadcast only a block or two ago stays queued until the chain has
// had time to index it.
func (v *Voter) checkPending(ctx context.Context, h int64) {
	fetch := func(hash string) (bool, []types.FailedLog, bool) {
		res, err := v.client.Tx(ctx, hash)
		if err != nil {
			return false, nil, false
		}
		success := true
		var failed []types.FailedLog
		for _, l := range res.Logs {
			if !l.Success {
				success = false
				failed = append(failed, types.FailedLog{MsgIndex: l.MsgIndex, Log: l.Log})
			}
		}
		return success, failed, true
	}

	v.pending.CheckOne(types.KindVote, h, fetch)
	v.pending.CheckOne(types.KindPrevote, h, fetch)
}

type preflight struct {
	active  []string
	rates   []client.ExchangeRate
	accNum  uint64
	seq     uint64
}

func (v *Voter) onNewPeriod(ctx context.Context, h, period int64) error {
	pf, err := v.fetchPreflight(ctx)
	if err != nil {
		v.logger.Warn().Err(err).Int64("period", period).Msg("pre-flight fan-out failed, skipping period")
		return nil
	}

	v.mtx.Lock()
	v.accountNumber, v.sequence = pf.accNum, pf.seq
	v.mtx.Unlock()

	calc := v.intersectSupported(pf.active)
	if len(calc) == 0 {
		v.logger.Debug().Int64("period", period).Msg("no overlap between active and supported denoms")
		return nil
	}

	chainRates := chainRatesByDenom(pf.rates)

	if err := v.revealPhase(ctx, calc); err != nil {
		v.logger.Warn().Err(err).Msg("reveal phase failed")
	}

	time.Sleep(v.revealDelay)

	if err := v.commitPhase(ctx, calc, period, chainRates); err != nil {
		v.logger.Warn().Err(err).Msg("commit phase failed")
	}

	v.memory.GC(period)
	v.pingHealthchecks()

	return nil
}

func (v *Voter) fetchPreflight(ctx context.Context) (preflight, error) {
	var pf preflight
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		active, err := v.client.OracleActiveDenoms(gctx)
		if err != nil {
			return err
		}
		pf.active = active
		return nil
	})
	g.Go(func() error {
		rates, err := v.client.OracleRates(gctx)
		if err != nil {
			return err
		}
		pf.rates = rates
		return nil
	})
	g.Go(func() error {
		accNum, seq, err := v.client.GetAccount(gctx, v.feeder)
		if err != nil {
			return err
		}
		pf.accNum, pf.seq = accNum, seq
		return nil
	})

	if err := g.Wait(); err != nil {
		return preflight{}, err
	}
	return pf, nil
}

func (v *Voter) intersectSupported(active []string) []types.Denom {
	supported := make(map[types.Denom]struct{})
	for _, d := range v.agg.Denoms() {
		supported[d] = struct{}{}
	}
	var calc []types.Denom
	for _, a := range active {
		d := types.Denom(a)
		if _, ok := supported[d]; ok {
			calc = append(calc, d)
		}
	}
	return calc
}

func chainRatesByDenom(rates []client.ExchangeRate) map[types.Denom]string {
	m := make(map[types.Denom]string, len(rates))
	for _, r := range rates {
		m[types.Denom(r.Denom)] = r.ExchangeRate
	}
	return m
}

// revealPhase looks up each denom's outstanding prevote and, if its
// hash is remembered locally, discloses the committed price and salt.
// Denoms without a remembered hash are skipped — invariant 2 and 5.
func (v *Voter) revealPhase(ctx context.Context, calc []types.Denom) error {
	type revealed struct {
		denom types.Denom
		rate  decimal.Rate
		salt  string
	}

	results := make([]*revealed, len(calc))
	g, gctx := errgroup.WithContext(ctx)
	for i, d := range calc {
		i, d := i, d
		g.Go(func() error {
			entries, err := v.client.OraclePrevotes(gctx, string(d), v.validator)
			if err != nil || len(entries) == 0 {
				return nil
			}
			commitment, ok := v.memory.Get(entries[0].Hash)
			if !ok {
				return nil
			}
			results[i] = &revealed{denom: d, rate: commitment.Price, salt: commitment.Salt}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	v.mtx.Lock()
	seq := v.sequence
	accNum := v.accountNumber
	v.mtx.Unlock()

	b := NewTxBuilder(v.chainID, accNum, seq)
	b.GasFee, b.GasDenom = v.gasFee, v.gasDenom
	for _, r := range results {
		if r == nil {
			continue
		}
		b.AppendReveal(r.rate, r.salt, r.denom, v.feeder, v.validator)
	}
	if b.Len() == 0 {
		return nil
	}

	return v.signBroadcastAndTrack(ctx, b, types.KindVote)
}

// commitPhase aggregates each denom's market price, builds a fresh
// salt/hash commitment, remembers it for next period's reveal, and
// appends a prevote msg. Denoms whose aggregation fails or whose price
// abstains or deviates too far from the chain's last reported rate are
// skipped — invariant 2's GC window is what reclaims unused commitments.
func (v *Voter) commitPhase(ctx context.Context, calc []types.Denom, period int64, chainRates map[types.Denom]string) error {
	type committed struct {
		denom types.Denom
		hash  string
	}

	results := make([]*committed, len(calc))
	g, gctx := errgroup.WithContext(ctx)
	for i, d := range calc {
		i, d := i, d
		g.Go(func() error {
			px, err := v.agg.Aggregate(gctx, d)
			if err != nil {
				v.logger.Debug().Err(err).Str("denom", string(d)).Msg("aggregation failed, skipping denom")
				return nil
			}
			if px.IsAbstain() {
				return nil
			}
			if err := v.checkDeviation(d, px, chainRates[d]); err != nil {
				v.logger.Warn().Err(err).Str("denom", string(d)).Msg("skipping denom on deviation")
				return nil
			}

			salt, hash, err := BuildCommitment(d, px, v.validator)
			if err != nil {
				return nil
			}
			v.memory.Put(hash, types.PrevoteCommitment{Hash: hash, Salt: salt, Price: px, Denom: d, Period: period})
			results[i] = &committed{denom: d, hash: hash}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	v.mtx.Lock()
	seq := v.sequence
	accNum := v.accountNumber
	v.mtx.Unlock()

	b := NewTxBuilder(v.chainID, accNum, seq)
	b.GasFee, b.GasDenom = v.gasFee, v.gasDenom
	for _, r := range results {
		if r == nil {
			continue
		}
		b.AppendPrevote(r.hash, r.denom, v.feeder, v.validator)
	}
	if b.Len() == 0 {
		return nil
	}

	return v.signBroadcastAndTrack(ctx, b, types.KindPrevote)
}

func (v *Voter) checkDeviation(denom types.Denom, px decimal.Rate, chainRateStr string) error {
	if chainRateStr == "" {
		return nil
	}
	chainRate, err := decimal.Parse(chainRateStr)
	if err != nil || chainRate.IsAbstain() {
		return nil
	}

	var threshold sdk.Dec
	if raw, ok := v.deviationMargins[denom]; ok && raw != "" {
		if parsed, err := sdk.NewDecFromStr(raw); err == nil {
			threshold = parsed
		}
	}

	return CheckDeviation(v.logger, denom, px.Dec(), chainRate.Dec(), threshold)
}

// signBroadcastAndTrack signs b, broadcasts it, and — regardless of
// whether the broadcast itself succeeds or hits a transport error —
// advances the account sequence by one, per the pessimistic policy
// documented in DESIGN.md. On success the tx hash is enqueued for
// later outcome resolution.
func (v *Voter) signBroadcastAndTrack(ctx context.Context, b *TxBuilder, kind types.TxKind) error {
	signed, err := b.Sign(ctx, v.signer)
	if err != nil {
		return fmt.Errorf("voter: sign %s tx: %w", kind, err)
	}

	v.mtx.Lock()
	v.sequence++
	v.mtx.Unlock()

	res, err := v.client.BroadcastTx(ctx, BroadcastReady(signed))
	if err != nil {
		v.logger.Warn().Err(err).Str("kind", string(kind)).Msg("broadcast failed, sequence still advanced")
		return nil
	}

	v.mtx.Lock()
	h := v.currentHeight
	v.mtx.Unlock()

	msgs := make([]any, len(b.Msgs()))
	for i, m := range b.Msgs() {
		msgs[i] = m
	}

	v.pending.Enqueue(kind, types.PendingTx{
		Kind:         kind,
		TxHash:       res.TxHash,
		Msgs:         msgs,
		SentHeight:   h,
		RevealHeight: h + revealHeightDelta,
	})
	return nil
}

func (v *Voter) pingHealthchecks() {
	for url, c := range v.healthch {
		if _, err := c.Get(url); err != nil {
			v.logger.Warn().Str("url", url).Msg("healthcheck ping failed")
		}
	}
}

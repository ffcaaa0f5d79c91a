// Command voter runs the oracle price-feeder voter: it polls a chain's
// LCD node for new block heights and submits commit-reveal exchange
// rate votes for its configured denoms.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/cosmos/cosmos-sdk/codec"
	codectypes "github.com/cosmos/cosmos-sdk/codec/types"
	"github.com/cosmos/cosmos-sdk/crypto/keyring"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/classic-terra/oracle-voter/config"
	"github.com/classic-terra/oracle-voter/oracle"
	"github.com/classic-terra/oracle-voter/oracle/client"
	"github.com/classic-terra/oracle-voter/oracle/provider"
	"github.com/classic-terra/oracle-voter/oracle/types"
	"github.com/classic-terra/oracle-voter/wallet"
)

// version has no release pipeline wired up to stamp it via ldflags yet,
// so it stays a literal.
const version = "0.1.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		walletName string
		nodeAddr   string
		chainID    string
		votePeriod int64
		password   string
		homeDir    string
		gasFee     string
		gasDenom   string
	)

	cmd := &cobra.Command{
		Use:     "voter [validator]",
		Short:   "Run the oracle price-feeder voter",
		Args:    cobra.ExactArgs(1),
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), args[0], runOpts{
				configPath: configPath,
				walletName: walletName,
				nodeAddr:   nodeAddr,
				chainID:    chainID,
				votePeriod: votePeriod,
				password:   password,
				homeDir:    homeDir,
				gasFee:     gasFee,
				gasDenom:   gasDenom,
			})
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "path to a TOML config file; only its markets and healthchecks are used")
	cmd.Flags().StringVar(&walletName, "wallet", "feeder", "feeder wallet key name in the keyring")
	cmd.Flags().StringVar(&nodeAddr, "node", "http://127.0.0.1:1317", "chain LCD node address")
	cmd.Flags().StringVar(&chainID, "chain-id", "", "tendermint chain ID")
	cmd.Flags().Int64Var(&votePeriod, "vote-period", 5, "chain vote period length, in blocks")
	cmd.Flags().StringVar(&password, "password", "", "password to unlock the feeder keyring, falls back to $ORACLE_VOTER_KEYRING_PASSWORD")
	cmd.Flags().StringVar(&homeDir, "home", "", "keyring home directory, defaults to ~/.oracle-voter")
	cmd.Flags().StringVar(&gasFee, "gas-fee", "200000", "transaction fee amount to pay in gas denom")
	cmd.Flags().StringVar(&gasDenom, "gas-denom", "uluna", "base denomination for the gas fee")

	return cmd
}

type runOpts struct {
	configPath string
	walletName string
	nodeAddr   string
	chainID    string
	votePeriod int64
	password   string
	homeDir    string
	gasFee     string
	gasDenom   string
}

func run(ctx context.Context, validatorAddr string, opts runOpts) error {
	logger := zerolog.New(zerolog.NewConsoleWriter()).With().Timestamp().Logger()

	pass := opts.password
	if pass == "" {
		pass = os.Getenv("ORACLE_VOTER_KEYRING_PASSWORD")
	}
	if pass == "" {
		return fmt.Errorf("voter: no keyring password provided (use --password or ORACLE_VOTER_KEYRING_PASSWORD)")
	}

	homeDir := opts.homeDir
	if homeDir == "" {
		dir, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("voter: resolve home directory: %w", err)
		}
		homeDir = dir + "/.oracle-voter"
	}

	supported, healthchecks, err := loadMarkets(logger, opts.configPath)
	if err != nil {
		return err
	}

	cdc := codec.NewProtoCodec(codectypes.NewInterfaceRegistry())
	kr, err := keyring.New("oracle-voter", keyring.BackendFile, homeDir, strings.NewReader(pass), cdc)
	if err != nil {
		return fmt.Errorf("voter: open keyring: %w", err)
	}
	w, err := wallet.NewKeyringWallet(kr, opts.walletName)
	if err != nil {
		return fmt.Errorf("voter: load feeder key %q: %w", opts.walletName, err)
	}

	lcd := client.NewLCDNode(opts.nodeAddr, logger)

	v := oracle.NewVoter(logger, lcd, w, supported, healthchecks, oracle.VoterConfig{
		ChainID:          opts.chainID,
		ValidatorAddress: validatorAddr,
		FeederAddress:    w.Address(),
		VotePeriodLength: opts.votePeriod,
		GasFee:           opts.gasFee,
		GasDenom:         opts.gasDenom,
		RevealDelay:      300 * time.Millisecond,
	})

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info().
		Str("validator", validatorAddr).
		Str("feeder", w.Address()).
		Str("node", opts.nodeAddr).
		Msg("starting oracle voter")

	return v.Start(ctx)
}

// loadMarkets turns a parsed config file into the static feed set (§4.N)
// and healthcheck targets the voter is constructed with. An empty
// configPath yields no markets, which is valid for --help/dry-run use
// but will make every period a no-op.
func loadMarkets(logger zerolog.Logger, configPath string) ([]types.SupportedMarket, map[string]http.Client, error) {
	if configPath == "" {
		return nil, nil, nil
	}

	cfg, err := config.ParseConfig(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("voter: load config: %w", err)
	}

	supported := make([]types.SupportedMarket, 0, len(cfg.Markets))
	for _, m := range cfg.Markets {
		markets := make([]types.Market, 0, len(m.Sources))
		for _, s := range m.Sources {
			field := s.Field
			if field == "" {
				field = "price"
			}
			feed := provider.NewHTTPFeed(s.Name, s.URL, provider.FieldPath(field), logger).Feed()
			markets = append(markets, types.Market{Name: s.Name, Feed: feed, Weight: s.Weight})
		}
		supported = append(supported, types.SupportedMarket{Denom: types.Denom(m.Denom), Markets: markets})
	}

	healthchecks := make(map[string]http.Client, len(cfg.Healthchecks))
	for _, h := range cfg.Healthchecks {
		timeout := 5 * time.Second
		if d, err := time.ParseDuration(h.Timeout); err == nil {
			timeout = d
		}
		healthchecks[h.URL] = http.Client{Timeout: timeout}
	}

	return supported, healthchecks, nil
}

package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
)

const (
	defaultNodeTimeout        = 10 * time.Second
	defaultHeightPollInterval = 1 * time.Second
	defaultGas                = "200000"
	defaultRevealDelay        = 300 * time.Millisecond
	envKeyringPassword        = "ORACLE_VOTER_KEYRING_PASSWORD"
)

var (
	validate = validator.New()

	// ErrEmptyConfigPath defines a sentinel error for an empty config path.
	ErrEmptyConfigPath = errors.New("empty configuration file path")

	// maxDeviationThreshold bounds how large a configured deviation
	// margin may be.
	maxDeviationThreshold = sdk.MustNewDecFromStr("1.0")
)

type (
	// Config defines all parameters the oracle voter needs to run.
	Config struct {
		Node         Node           `toml:"node" validate:"required"`
		Account      Account        `toml:"account" validate:"required"`
		Markets      []Market       `toml:"markets" validate:"required,gt=0,dive,required"`
		Deviations   []Deviation    `toml:"deviation_thresholds" validate:"dive"`
		Healthchecks []Healthchecks `toml:"healthchecks" validate:"dive"`
		Persistence  Persistence    `toml:"persistence"`
		Telemetry    Telemetry      `toml:"telemetry"`
	}

	// Node defines how to reach the chain's LCD REST endpoint and how
	// the voter paces itself against its block production.
	Node struct {
		LCDAddress         string `toml:"lcd_address" validate:"required"`
		ChainID            string `toml:"chain_id" validate:"required"`
		VotePeriod         int64  `toml:"vote_period" validate:"required,gt=0"`
		Timeout            string `toml:"timeout"`
		HeightPollInterval string `toml:"height_poll_interval"`
	}

	// Account defines the validator and feeder identity the voter signs
	// and broadcasts as, plus the gas fee it attaches to every tx.
	Account struct {
		ValidatorAddress string `toml:"validator_address" validate:"required"`
		FeederAddress    string `toml:"feeder_address" validate:"required"`
		KeyringBackend   string `toml:"keyring_backend" validate:"required"`
		KeyringDir       string `toml:"keyring_dir" validate:"required"`
		KeyUID           string `toml:"key_uid" validate:"required"`
		GasFee           string `toml:"gas_fee"`
		GasDenom         string `toml:"gas_denom" validate:"required"`
	}

	// Market defines one denom's weighted feed set, a single entry of
	// what SPEC_FULL.md calls the static feed set.
	Market struct {
		Denom   string       `toml:"denom" validate:"required"`
		Sources []MarketFeed `toml:"sources" validate:"required,gt=0,dive,required"`
	}

	// MarketFeed names one weighted price source within a market. Field
	// is the dotted JSON path to the price within the feed's response
	// body, e.g. "data.price"; it defaults to "price" when omitted.
	MarketFeed struct {
		Name   string `toml:"name" validate:"required"`
		URL    string `toml:"url"`
		Field  string `toml:"field"`
		Weight int64  `toml:"weight" validate:"required,gt=0"`
	}

	// Deviation overrides the default market-vs-chain deviation margin
	// for one denom, expressed as a fraction of the chain price.
	Deviation struct {
		Denom     string `toml:"denom" validate:"required"`
		Threshold string `toml:"threshold" validate:"required"`
	}

	// Healthchecks defines outbound liveness pings fired at the end of
	// each vote period that had denoms to vote on.
	Healthchecks struct {
		URL     string `toml:"url" validate:"required"`
		Timeout string `toml:"timeout" validate:"required"`
	}

	// Persistence configures the optional sqlite-backed prevote memory.
	Persistence struct {
		Enabled bool   `toml:"enabled"`
		Path    string `toml:"path"`
	}

	// Telemetry controls structured-log verbosity for the running voter.
	Telemetry struct {
		LogLevel string `toml:"log_level" mapstructure:"log-level"`
		JSON     bool   `toml:"json" mapstructure:"json"`
	}
)

// deviationValidation rejects configured thresholds larger than the cap.
func deviationValidation(sl validator.StructLevel) {
	d := sl.Current().Interface().(Deviation)
	threshold, err := sdk.NewDecFromStr(d.Threshold)
	if err != nil {
		sl.ReportError(d.Threshold, "threshold", "Threshold", "notNumeric", "")
		return
	}
	if threshold.GT(maxDeviationThreshold) {
		sl.ReportError(d.Threshold, "threshold", "Threshold", "exceedsMax", "")
	}
}

// Validate returns an error if the Config object is invalid.
func (c Config) Validate() error {
	validate.RegisterStructValidation(deviationValidation, Deviation{})
	return validate.Struct(c)
}

// NodeTimeout returns the configured LCD request timeout, or the default.
func (c Config) NodeTimeout() time.Duration {
	if c.Node.Timeout == "" {
		return defaultNodeTimeout
	}
	d, err := time.ParseDuration(c.Node.Timeout)
	if err != nil {
		return defaultNodeTimeout
	}
	return d
}

// HeightPollInterval returns the configured block-height poll cadence, or the default.
func (c Config) HeightPollInterval() time.Duration {
	if c.Node.HeightPollInterval == "" {
		return defaultHeightPollInterval
	}
	d, err := time.ParseDuration(c.Node.HeightPollInterval)
	if err != nil {
		return defaultHeightPollInterval
	}
	return d
}

// RevealDelay is the pause between broadcasting the reveal tx and
// building the next period's commit tx, a fixed 300ms settling window.
func (c Config) RevealDelay() time.Duration { return defaultRevealDelay }

// KeyringPassword returns the keyring password, sourced from the
// environment rather than the config file so it never lands on disk.
func (c Config) KeyringPassword() string {
	return os.Getenv(envKeyringPassword)
}

// applyTelemetryEnv overlays ORACLE_VOTER_LOG_LEVEL / ORACLE_VOTER_JSON
// onto the file-sourced Telemetry section, using mapstructure the way
// cosmos tooling layers environment overrides on top of file config.
func applyTelemetryEnv(t *Telemetry) error {
	overrides := map[string]any{}
	if v, ok := os.LookupEnv("ORACLE_VOTER_LOG_LEVEL"); ok {
		overrides["log-level"] = v
	}
	if v, ok := os.LookupEnv("ORACLE_VOTER_JSON"); ok {
		overrides["json"] = v == "true"
	}
	if len(overrides) == 0 {
		return nil
	}
	return mapstructure.Decode(overrides, t)
}

// ParseConfig attempts to read and parse configuration from the given file path.
func ParseConfig(configPath string) (Config, error) {
	var cfg Config

	if configPath == "" {
		return cfg, ErrEmptyConfigPath
	}

	configData, err := os.ReadFile(configPath)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	if _, err := toml.Decode(string(configData), &cfg); err != nil {
		return cfg, fmt.Errorf("failed to decode config: %w", err)
	}

	if cfg.Account.GasFee == "" {
		cfg.Account.GasFee = defaultGas
	}

	if err := applyTelemetryEnv(&cfg.Telemetry); err != nil {
		return cfg, fmt.Errorf("failed to apply telemetry env overrides: %w", err)
	}

	seen := map[string]struct{}{}
	for _, m := range cfg.Markets {
		if _, ok := seen[m.Denom]; ok {
			return cfg, fmt.Errorf("duplicate market for denom %s", m.Denom)
		}
		seen[m.Denom] = struct{}{}

		var totalWeight int64
		for _, s := range m.Sources {
			totalWeight += s.Weight
		}
		if totalWeight <= 0 {
			return cfg, fmt.Errorf("market %s has no positive source weight", m.Denom)
		}
	}

	return cfg, cfg.Validate()
}

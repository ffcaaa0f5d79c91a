package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleTOML = `
[node]
lcd_address = "https://lcd.terra.dev"
chain_id = "columbus-5"
vote_period = 5

[account]
validator_address = "terravaloper1xyz"
feeder_address = "terra1xyz"
keyring_backend = "file"
keyring_dir = "/tmp/keyring"
key_uid = "feeder"
gas_denom = "uluna"

[[markets]]
denom = "ukrw"
  [[markets.sources]]
  name = "upbit"
  url = "https://api.upbit.com"
  weight = 60
  [[markets.sources]]
  name = "bithumb"
  url = "https://api.bithumb.com"
  weight = 40
`

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestParseConfigValid(t *testing.T) {
	path := writeTempConfig(t, sampleTOML)
	cfg, err := ParseConfig(path)
	require.NoError(t, err)
	require.Equal(t, "columbus-5", cfg.Node.ChainID)
	require.Equal(t, defaultGas, cfg.Account.GasFee)
	require.Len(t, cfg.Markets, 1)
}

func TestParseConfigEmptyPath(t *testing.T) {
	_, err := ParseConfig("")
	require.ErrorIs(t, err, ErrEmptyConfigPath)
}

func TestParseConfigRejectsDuplicateMarket(t *testing.T) {
	path := writeTempConfig(t, sampleTOML+`
[[markets]]
denom = "ukrw"
  [[markets.sources]]
  name = "upbit"
  weight = 1
`)
	_, err := ParseConfig(path)
	require.Error(t, err)
}

func TestParseConfigRejectsZeroWeightMarket(t *testing.T) {
	path := writeTempConfig(t, `
[node]
lcd_address = "https://lcd.terra.dev"
chain_id = "columbus-5"
vote_period = 5

[account]
validator_address = "terravaloper1xyz"
feeder_address = "terra1xyz"
keyring_backend = "file"
keyring_dir = "/tmp/keyring"
key_uid = "feeder"
gas_denom = "uluna"

[[markets]]
denom = "ukrw"
  [[markets.sources]]
  name = "upbit"
  weight = 0
`)
	_, err := ParseConfig(path)
	require.Error(t, err)
}

func TestDeviationValidationRejectsTooLarge(t *testing.T) {
	path := writeTempConfig(t, sampleTOML+`
[[deviation_thresholds]]
denom = "ukrw"
threshold = "5.0"
`)
	_, err := ParseConfig(path)
	require.Error(t, err)
}

func TestNodeTimeoutDefault(t *testing.T) {
	cfg := Config{}
	require.Equal(t, defaultNodeTimeout, cfg.NodeTimeout())
}

// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package config loads the wallet configuration. Values come from the defaults, then an
// optional YAML file, then ONEWALLET_* environment variables. Command line flags are applied
// last by the caller.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/wjorgensen/OneWalletDemo/contract"
	"github.com/wjorgensen/OneWalletDemo/lifecycle"
	"github.com/wjorgensen/OneWalletDemo/webauthn"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "ONEWALLET_"

// Defaults target the Odyssey testnet deployment of the example delegation contract.
const (
	DefaultRPC          = "https://odyssey.ithaca.xyz"
	DefaultChainID      = 911867
	DefaultPollInterval = time.Second
)

var (
	DefaultDelegation = common.HexToAddress("0x6bbce6b04736f9db8d3dbE509b87Da3BC1435439")
	DefaultToken      = common.HexToAddress("0x238c8CD93ee9F8c7Edf395548eF60c0d2e46665E")
)

// Config is the wallet configuration.
type Config struct {
	RPC        string         `yaml:"rpc"        env:"RPC"`
	ChainID    uint64         `yaml:"chainId"    env:"CHAIN_ID"`
	Delegation common.Address `yaml:"delegation" env:"DELEGATION"`
	Token      common.Address `yaml:"token"      env:"TOKEN"`
	// SponsorKey signs and pays for transactions. Without one the RPC endpoint fills them in.
	SponsorKey string `yaml:"sponsorKey,omitempty" env:"SPONSOR_KEY"`
	// Mnemonic, when set, derives the native keys of new accounts.
	Mnemonic string `yaml:"mnemonic,omitempty" env:"MNEMONIC"`
	DataDir  string `yaml:"dataDir"            env:"DATA_DIR"`

	RelyingParty webauthn.RelyingParty `yaml:"relyingParty" envPrefix:"RP_"`

	PollInterval   time.Duration `yaml:"pollInterval"   env:"POLL_INTERVAL"`
	Serialize      bool          `yaml:"serialize"      env:"SERIALIZE"`
	NonceMethod    string        `yaml:"nonceMethod"    env:"NONCE_METHOD"`
	KeyScanLimit   uint32        `yaml:"keyScanLimit"   env:"KEY_SCAN_LIMIT"`
	UserNamePrefix string        `yaml:"userNamePrefix" env:"USER_NAME_PREFIX"`
}

// Default returns the built in configuration.
func Default() *Config {
	return &Config{
		RPC:        DefaultRPC,
		ChainID:    DefaultChainID,
		Delegation: DefaultDelegation,
		Token:      DefaultToken,
		DataDir:    DefaultDataDir(),
		RelyingParty: webauthn.RelyingParty{
			ID:     "localhost",
			Name:   "OneWallet",
			Origin: "http://localhost:5173",
		},
		PollInterval:   DefaultPollInterval,
		NonceMethod:    contract.ExecuteNonceMethod,
		KeyScanLimit:   1,
		UserNamePrefix: lifecycle.DefaultUserNamePrefix,
	}
}

// DefaultDataDir is ~/.onewallet, or a relative directory when the home directory is unknown.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".onewallet"
	}
	return filepath.Join(home, ".onewallet")
}

// Load builds the configuration from the defaults, the YAML file at path when path is not
// empty, and the environment.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(err, "read config")
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrapf(err, "parse config %s", path)
		}
	}
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, errors.Wrap(err, "parse env")
	}
	return cfg, nil
}

// Validate checks the configuration for obvious mistakes.
func (c *Config) Validate() error {
	if c.ChainID == 0 {
		return errors.New("chainId must be set")
	}
	if c.Delegation == (common.Address{}) {
		return errors.New("delegation must be set")
	}
	if c.NonceMethod != contract.NonceMethod && c.NonceMethod != contract.ExecuteNonceMethod {
		return errors.Errorf("nonceMethod must be %q or %q", contract.NonceMethod, contract.ExecuteNonceMethod)
	}
	if c.KeyScanLimit == 0 {
		return errors.New("keyScanLimit must be at least 1")
	}
	if c.PollInterval <= 0 {
		return errors.New("pollInterval must be positive")
	}
	if c.RelyingParty.ID == "" {
		return errors.New("relyingParty.id must be set")
	}
	return nil
}

// Marshal encodes the configuration as YAML with secrets redacted.
func (c *Config) Marshal() ([]byte, error) {
	redacted := *c
	if redacted.SponsorKey != "" {
		redacted.SponsorKey = "<redacted>"
	}
	if redacted.Mnemonic != "" {
		redacted.Mnemonic = "<redacted>"
	}
	return yaml.Marshal(&redacted)
}

// StorePath is the directory of the account store.
func (c *Config) StorePath() string { return filepath.Join(c.DataDir, "accounts") }

// KeyringPath is the file of the software authenticator's keyring.
func (c *Config) KeyringPath() string { return filepath.Join(c.DataDir, "keyring.json") }

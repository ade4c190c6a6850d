// (c) 2019-2020, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package config reads the settings of the ledgervm binary from flags, the
// environment and an optional config file.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/ava-labs/avalanchego/ids"

	log "github.com/inconshreveable/log15"

	"github.com/ava-labs/ledgervm/chain"
)

const (
	VersionKey               = "version"
	ConfigFileKey            = "config-file"
	GenesisFileKey           = "genesis-file"
	HTTPAddressKey           = "http-address"
	LogLevelKey              = "log-level"
	ChainIDKey               = "chain-id"
	SignatureCacheSizeKey    = "signature-cache-size"
	BlockCacheSizeKey        = "block-cache-size"
	SkipAuthorityOnReplayKey = "skip-authority-on-replay"
	MetricsNamespaceKey      = "metrics-namespace"

	// EnvPrefix prefixes the environment variable of every key, with dashes
	// replaced by underscores: LEDGERVM_HTTP_ADDRESS.
	EnvPrefix = "ledgervm"

	defaultHTTPAddress = "127.0.0.1:9650"
)

var errNoGenesisAccounts = errors.New("genesis has no accounts")

// BuildFlagSet returns the flags of the ledgervm binary.
func BuildFlagSet() *flag.FlagSet {
	defaults := chain.DefaultConfig()
	fs := flag.NewFlagSet("ledgervm", flag.ContinueOnError)

	fs.Bool(VersionKey, false, "If true, prints the version and quits")
	fs.String(ConfigFileKey, "", "Config file to read settings from")
	fs.String(GenesisFileKey, "", "JSON genesis of the ledger")
	fs.String(HTTPAddressKey, defaultHTTPAddress, "Address the query service listens on")
	fs.String(LogLevelKey, log.LvlInfo.String(), "Log level (crit, eror, warn, info, dbug)")
	fs.String(ChainIDKey, ids.Empty.String(), "Chain id that transaction signatures commit to")
	fs.Int(SignatureCacheSizeKey, defaults.SignatureCacheSize, "Number of recovered signers to cache, 0 disables the cache")
	fs.Int(BlockCacheSizeKey, defaults.BlockCacheSize, "Number of blocks to cache")
	fs.Bool(SkipAuthorityOnReplayKey, defaults.SkipAuthorityOnReplay, "If true, replayed blocks skip authority checks")
	fs.String(MetricsNamespaceKey, defaults.MetricsNamespace, "Namespace of the exported metrics")

	return fs
}

// BuildViper parses [args] against [fs] and returns the viper environment
// merging the flags, the LEDGERVM_ environment and the config file, if one
// was given.
func BuildViper(fs *flag.FlagSet, args []string) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	pfs := pflag.NewFlagSet(fs.Name(), pflag.ContinueOnError)
	pfs.AddGoFlagSet(fs)
	if err := pfs.Parse(args); err != nil {
		return nil, err
	}
	if err := v.BindPFlags(pfs); err != nil {
		return nil, err
	}

	if file := v.GetString(ConfigFileKey); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("couldn't read config file %s: %w", file, err)
		}
	}
	return v, nil
}

// Chain returns the validated engine config held by [v].
func Chain(v *viper.Viper) (chain.Config, error) {
	config := chain.DefaultConfig()

	chainID, err := ids.FromString(v.GetString(ChainIDKey))
	if err != nil {
		return config, fmt.Errorf("invalid %s: %w", ChainIDKey, err)
	}
	config.ChainID = chainID
	config.SignatureCacheSize = v.GetInt(SignatureCacheSizeKey)
	config.BlockCacheSize = v.GetInt(BlockCacheSizeKey)
	config.SkipAuthorityOnReplay = v.GetBool(SkipAuthorityOnReplayKey)
	config.MetricsNamespace = v.GetString(MetricsNamespaceKey)
	return config, config.Validate()
}

// Genesis reads the genesis file named by [v]. A ledger without accounts
// could never sign a transaction, so an empty genesis is rejected.
func Genesis(v *viper.Viper) (*chain.Genesis, error) {
	file := v.GetString(GenesisFileKey)
	if file == "" {
		return nil, fmt.Errorf("%s is required", GenesisFileKey)
	}
	bytes, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	g, err := chain.ParseGenesis(bytes)
	if err != nil {
		return nil, err
	}
	if len(g.Accounts) == 0 {
		return nil, errNoGenesisAccounts
	}
	return g, nil
}

// Handler returns the log handler for the level named by [v].
func Handler(v *viper.Viper) (log.Handler, error) {
	lvl, err := log.LvlFromString(v.GetString(LogLevelKey))
	if err != nil {
		return nil, err
	}
	return log.LvlFilterHandler(lvl, log.StreamHandler(os.Stderr, log.TerminalFormat())), nil
}

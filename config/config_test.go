// (c) 2019-2020, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/ava-labs/avalanchego/ids"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ava-labs/ledgervm/chain"
)

func writeFile(t *testing.T, name string, v interface{}) string {
	bytes, err := json.Marshal(v)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, bytes, 0o600))
	return path
}

func TestDefaults(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	v, err := BuildViper(BuildFlagSet(), nil)
	require.NoError(err)
	assert.False(v.GetBool(VersionKey))
	assert.Equal(defaultHTTPAddress, v.GetString(HTTPAddressKey))

	config, err := Chain(v)
	require.NoError(err)
	assert.Equal(chain.DefaultConfig(), config)

	_, err = Handler(v)
	assert.NoError(err)
}

func TestFlagsEnvAndConfigFile(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	chainID := ids.GenerateTestID()
	file := writeFile(t, "config.json", map[string]interface{}{
		BlockCacheSizeKey: 16,
		ChainIDKey:        chainID.String(),
	})
	t.Setenv("LEDGERVM_SKIP_AUTHORITY_ON_REPLAY", "true")

	v, err := BuildViper(BuildFlagSet(), []string{
		"--" + ConfigFileKey, file,
		"--" + SignatureCacheSizeKey + "=0",
		"--" + VersionKey,
	})
	require.NoError(err)
	assert.True(v.GetBool(VersionKey))

	config, err := Chain(v)
	require.NoError(err)
	assert.Equal(chainID, config.ChainID)
	assert.Equal(16, config.BlockCacheSize)
	assert.Zero(config.SignatureCacheSize)
	assert.True(config.SkipAuthorityOnReplay)
}

func TestInvalidSettings(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "chain id", args: []string{"--" + ChainIDKey, "not-an-id"}},
		{name: "block cache", args: []string{"--" + BlockCacheSizeKey + "=0"}},
		{name: "signature cache", args: []string{"--" + SignatureCacheSizeKey + "=-1"}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			v, err := BuildViper(BuildFlagSet(), test.args)
			require.NoError(t, err)
			_, err = Chain(v)
			assert.Error(t, err)
		})
	}

	_, err := BuildViper(BuildFlagSet(), []string{"--unknown-flag"})
	assert.Error(t, err)

	_, err = BuildViper(BuildFlagSet(), []string{"--" + ConfigFileKey, filepath.Join(t.TempDir(), "missing.json")})
	assert.Error(t, err)

	v, err := BuildViper(BuildFlagSet(), []string{"--" + LogLevelKey, "loud"})
	require.NoError(t, err)
	_, err = Handler(v)
	assert.Error(t, err)
}

func TestGenesis(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	key := ids.GenerateTestShortID()
	file := writeFile(t, "genesis.json", map[string]interface{}{
		"timestamp": 1000,
		"accounts": []chain.GenesisAccount{
			{Name: "alice", Key: key, Balance: 500},
		},
	})

	v, err := BuildViper(BuildFlagSet(), []string{"--" + GenesisFileKey, file})
	require.NoError(err)
	g, err := Genesis(v)
	require.NoError(err)
	assert.Equal(uint64(1000), g.Timestamp)
	require.Len(g.Accounts, 1)
	assert.Equal(key, g.Accounts[0].Key)
	assert.Equal(chain.DefaultGenesis().Fees, g.Fees)

	empty := writeFile(t, "empty.json", map[string]interface{}{"timestamp": 1000})
	v, err = BuildViper(BuildFlagSet(), []string{"--" + GenesisFileKey, empty})
	require.NoError(err)
	_, err = Genesis(v)
	assert.ErrorIs(err, errNoGenesisAccounts)

	v, err = BuildViper(BuildFlagSet(), nil)
	require.NoError(err)
	_, err = Genesis(v)
	assert.Error(err)
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestYamlConfigOperations(t *testing.T) {
	testCases := []struct {
		name     string
		setup    func(t *testing.T, dir string) *Config
		validate func(t *testing.T, cfg *Config)
	}{
		{
			name: "Write and read custom config values",
			setup: func(t *testing.T, dir string) *Config {
				cfg := DefaultConfig
				cfg.RootDir = dir
				cfg.FastTransfer.Authority = "authority"
				cfg.LightClient.CacheSize = 12
				cfg.Bank.GenesisBalances = []GenesisBalance{{Address: "pool", Denom: "uusdc", Amount: "5000"}}

				require.NoError(t, cfg.SaveAsYaml())

				return &cfg
			},
			validate: func(t *testing.T, cfg *Config) {
				require.Equal(t, "authority", cfg.FastTransfer.Authority)
				require.Equal(t, uint64(12), cfg.LightClient.CacheSize)
				require.Equal(t, []GenesisBalance{{Address: "pool", Denom: "uusdc", Amount: "5000"}}, cfg.Bank.GenesisBalances)
			},
		},
		{
			name: "Initialize default config values",
			setup: func(t *testing.T, dir string) *Config {
				cfg := DefaultConfig
				cfg.RootDir = dir

				require.NoError(t, cfg.SaveAsYaml())

				return &cfg
			},
			validate: func(t *testing.T, cfg *Config) {
				require.Equal(t, DefaultConfig.LightClient, cfg.LightClient)
				require.Equal(t, DefaultConfig.FastTransfer, cfg.FastTransfer)
				require.Equal(t, DefaultConfig.RPC.Address, cfg.RPC.Address)
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tempDir := t.TempDir()
			tc.setup(t, tempDir)

			cfg, err := ReadYaml(tempDir)
			require.NoError(t, err)
			require.Equal(t, tempDir, cfg.RootDir)
			tc.validate(t, &cfg)
		})
	}
}

func TestWriteYamlConfigComments(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig
	cfg.RootDir = dir
	require.NoError(t, WriteYamlConfig(cfg))

	data, err := os.ReadFile(filepath.Join(dir, ConfigYaml))
	require.NoError(t, err)
	assert.Contains(t, string(data), "Number of agreed roots kept per chain")
	assert.Contains(t, string(data), "proof_scheme: keccak256")
	assert.NotContains(t, string(data), "RootDir")
}

func TestReadYamlMissingFile(t *testing.T) {
	_, err := ReadYaml(t.TempDir())
	assert.ErrorIs(t, err, ErrReadYaml)
}

func TestEnsureRoot(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	require.NoError(t, EnsureRoot(dir))
	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Error(t, EnsureRoot(""))
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/bastiangx/frecency/pkg/frecency"
	"github.com/bastiangx/frecency/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "default", cfg.Frecency.Key)
	assert.Equal(t, frecency.DefaultTimestampsLimit, cfg.Frecency.TimestampsLimit)
	assert.Equal(t, frecency.DefaultRecentSelectionsLimit, cfg.Frecency.RecentSelectionsLimit)
	assert.Equal(t, "_id", cfg.Frecency.IDAttribute)
	assert.Equal(t, storage.BackendFile, cfg.Storage.Backend)
	assert.Equal(t, 1000, cfg.Server.MaxItems)
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
[frecency]
key = "people"
timestamps_limit = 5
id_attribute = "email"
sub_query_match_weight = 0.6

[storage]
backend = "sqlite"
path = "/var/lib/frecency.db"

[cli]
default_query = "brad"
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "people", cfg.Frecency.Key)
	assert.Equal(t, 5, cfg.Frecency.TimestampsLimit)
	assert.Equal(t, "email", cfg.Frecency.IDAttribute)
	assert.InDelta(t, 0.6, cfg.Frecency.SubQueryMatchWeight, 1e-9)
	// missing keys keep their defaults
	assert.Equal(t, frecency.DefaultRecentSelectionsLimit, cfg.Frecency.RecentSelectionsLimit)
	assert.InDelta(t, frecency.DefaultExactQueryMatchWeight, cfg.Frecency.ExactQueryMatchWeight, 1e-9)
	assert.Equal(t, "sqlite", cfg.Storage.Backend)
	assert.Equal(t, "/var/lib/frecency.db", cfg.Storage.Path)
	assert.Equal(t, 1000, cfg.Server.MaxItems)
	assert.Equal(t, "brad", cfg.CLI.DefaultQuery)
}

// A type mismatch fails strict decoding; valid values are still recovered.
func TestLoadConfigPartialRecovery(t *testing.T) {
	path := writeConfig(t, `
[frecency]
key = "people"
timestamps_limit = "ten"
exact_query_match_weight = 2

[server]
max_items = 50
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "people", cfg.Frecency.Key)
	assert.Equal(t, frecency.DefaultTimestampsLimit, cfg.Frecency.TimestampsLimit)
	assert.InDelta(t, 2.0, cfg.Frecency.ExactQueryMatchWeight, 1e-9)
	assert.Equal(t, 50, cfg.Server.MaxItems)
}

func TestLoadConfigGarbage(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "this is [[ not toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestInitConfigCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", FileName)

	cfg, err := InitConfig(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	assert.FileExists(t, path)

	reloaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, reloaded)
}

func TestLoadConfigWithPriority(t *testing.T) {
	custom := writeConfig(t, "[frecency]\nkey = \"custom\"\n")

	cfg, used, err := LoadConfigWithPriority(custom, nil)
	require.NoError(t, err)
	assert.Equal(t, custom, used)
	assert.Equal(t, "custom", cfg.Frecency.Key)

	cfg, used, err = LoadConfigWithPriority(filepath.Join(t.TempDir(), "missing.toml"), nil)
	require.NoError(t, err)
	assert.Empty(t, used)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestOptions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Frecency.Key = "people"
	cfg.Frecency.IDAttribute = "email"

	opts := cfg.Options()
	assert.Equal(t, "people", opts.Key)
	assert.Equal(t, frecency.FieldID("email"), opts.IDAttribute)
	assert.Equal(t, frecency.DefaultTimestampsLimit, opts.TimestampsLimit)
	assert.Nil(t, opts.Storage)

	cfg.Frecency.IDAttribute = ""
	assert.Nil(t, cfg.Options().IDAttribute)
}

func TestStorageOptions(t *testing.T) {
	tests := []struct {
		backend string
		path    string
		want    string
	}{
		{storage.BackendFile, "", filepath.Join("base", "data")},
		{storage.BackendSQLite, "", filepath.Join("base", "frecency.db")},
		{storage.BackendSQLite, "/tmp/x.db", "/tmp/x.db"},
		{storage.BackendMemory, "", ""},
		{storage.BackendRedis, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.backend+tt.path, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Storage.Backend = tt.backend
			cfg.Storage.Path = tt.path

			opts := cfg.StorageOptions("base")
			assert.Equal(t, tt.backend, opts.Backend)
			assert.Equal(t, tt.want, opts.Path)
			assert.Equal(t, "localhost:6379", opts.RedisAddr)
		})
	}
}

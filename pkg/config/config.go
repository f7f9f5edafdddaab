/*
Package config manages the TOML config for frecency services.
*/
package config

import (
	"os"
	"path/filepath"

	"github.com/bastiangx/frecency/internal/utils"
	"github.com/bastiangx/frecency/pkg/frecency"
	"github.com/bastiangx/frecency/pkg/storage"
	"github.com/charmbracelet/log"
)

// FileName is the default config file name.
const FileName = "config.toml"

// Config holds the entire config structure
type Config struct {
	Frecency FrecencyConfig `toml:"frecency"`
	Storage  StorageConfig  `toml:"storage"`
	Server   ServerConfig   `toml:"server"`
	CLI      CliConfig      `toml:"cli"`
}

// FrecencyConfig mirrors frecency.Options.
type FrecencyConfig struct {
	Key                         string  `toml:"key"`
	TimestampsLimit             int     `toml:"timestamps_limit"`
	RecentSelectionsLimit       int     `toml:"recent_selections_limit"`
	IDAttribute                 string  `toml:"id_attribute"`
	ExactQueryMatchWeight       float64 `toml:"exact_query_match_weight"`
	SubQueryMatchWeight         float64 `toml:"sub_query_match_weight"`
	RecentSelectionsMatchWeight float64 `toml:"recent_selections_match_weight"`
}

// StorageConfig selects the backing store.
type StorageConfig struct {
	Backend       string `toml:"backend"`
	Path          string `toml:"path"`
	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
}

// ServerConfig has server related options.
type ServerConfig struct {
	MaxItems int `toml:"max_items"`
}

// CliConfig holds cli interface options.
type CliConfig struct {
	DefaultQuery string `toml:"default_query"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Frecency: FrecencyConfig{
			Key:                         "default",
			TimestampsLimit:             frecency.DefaultTimestampsLimit,
			RecentSelectionsLimit:       frecency.DefaultRecentSelectionsLimit,
			IDAttribute:                 frecency.DefaultIDAttribute,
			ExactQueryMatchWeight:       frecency.DefaultExactQueryMatchWeight,
			SubQueryMatchWeight:         frecency.DefaultSubQueryMatchWeight,
			RecentSelectionsMatchWeight: frecency.DefaultRecentSelectionsMatchWeight,
		},
		Storage: StorageConfig{
			Backend:   storage.BackendFile,
			RedisAddr: "localhost:6379",
		},
		Server: ServerConfig{
			MaxItems: 1000,
		},
	}
}

// Options converts the frecency section into constructor options.
// Storage, clock and logger are left for the caller.
func (c *Config) Options() frecency.Options {
	f := c.Frecency
	opts := frecency.Options{
		Key:                         f.Key,
		TimestampsLimit:             f.TimestampsLimit,
		RecentSelectionsLimit:       f.RecentSelectionsLimit,
		ExactQueryMatchWeight:       f.ExactQueryMatchWeight,
		SubQueryMatchWeight:         f.SubQueryMatchWeight,
		RecentSelectionsMatchWeight: f.RecentSelectionsMatchWeight,
	}
	if f.IDAttribute != "" {
		opts.IDAttribute = frecency.FieldID(f.IDAttribute)
	}
	return opts
}

// StorageOptions converts the storage section. An empty path defaults to a
// location inside baseDir, chosen per backend.
func (c *Config) StorageOptions(baseDir string) storage.Options {
	s := c.Storage
	path := s.Path
	if path == "" && baseDir != "" {
		switch s.Backend {
		case storage.BackendFile:
			path = filepath.Join(baseDir, "data")
		case storage.BackendSQLite:
			path = filepath.Join(baseDir, "frecency.db")
		}
	}
	return storage.Options{
		Backend:       s.Backend,
		Path:          path,
		RedisAddr:     s.RedisAddr,
		RedisPassword: s.RedisPassword,
	}
}

// LoadConfigWithPriority loads config with priority:
// 1. Custom path from --config flag
// 2. Default path inside the resolver's config dir
// 3. Builtin defaults
func LoadConfigWithPriority(customConfigPath string, resolver *utils.PathResolver) (*Config, string, error) {
	if customConfigPath != "" {
		if _, statErr := os.Stat(customConfigPath); statErr == nil {
			cfg, err := LoadConfig(customConfigPath)
			if err != nil {
				log.Warnf("Failed to load custom config from %s: %v. Trying default path...", customConfigPath, err)
			} else {
				log.Debugf("Loaded config from custom path: %s", customConfigPath)
				return cfg, customConfigPath, nil
			}
		} else {
			log.Warnf("Custom config file not found at %s: %v. Trying default path...", customConfigPath, statErr)
		}
	}
	if resolver == nil {
		return DefaultConfig(), "", nil
	}

	defaultPath, err := resolver.GetConfigPath(FileName)
	if err != nil {
		log.Warnf("Failed to determine default config path: %v. Using built-in defaults...", err)
		return DefaultConfig(), "", nil
	}
	cfg, err := InitConfig(defaultPath)
	if err != nil {
		log.Warnf("Failed to load/create config at default path %s: %v. Using builtin defaults...", defaultPath, err)
		return DefaultConfig(), "", nil
	}
	log.Debugf("Loaded config from default path: %s", defaultPath)
	return cfg, defaultPath, nil
}

// InitConfig loads config from file or creates default if missing
func InitConfig(configPath string) (*Config, error) {
	configDir := filepath.Dir(configPath)

	if err := utils.EnsureDir(configDir); err != nil {
		log.Warnf("Failed to create config directory %s: %v. Using built-in defaults...", configDir, err)
		return DefaultConfig(), nil
	}

	if !utils.FileExists(configPath) {
		cfg := DefaultConfig()
		if err := SaveConfig(cfg, configPath); err != nil {
			log.Warnf("Failed to create default config file at %s: %v. Using built-in defaults...", configPath, err)
			return DefaultConfig(), nil
		}
		log.Debugf("Created default config file at: %s", configPath)
		return cfg, nil
	}

	return LoadConfig(configPath)
}

// LoadConfig loads from a TOML file. Values missing from the file keep
// their defaults; an invalid file is recovered section by section.
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if err := utils.LoadTOMLFile(configPath, cfg); err != nil {
		return tryPartialParse(configPath)
	}
	return cfg, nil
}

// tryPartialParse attempts to parse a TOML file
func tryPartialParse(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	tempConfig, err := utils.ParseTOMLWithRecovery(configPath)
	if err != nil {
		log.Warnf("Could not parse any valid configuration from %s: %v. Using all defaults.", configPath, err)
		return cfg, nil
	}

	if section, ok := utils.ExtractSection(tempConfig, "frecency"); ok {
		extractFrecencyConfig(section, &cfg.Frecency)
	}
	if section, ok := utils.ExtractSection(tempConfig, "storage"); ok {
		extractStorageConfig(section, &cfg.Storage)
	}
	if section, ok := utils.ExtractSection(tempConfig, "server"); ok {
		extractServerConfig(section, &cfg.Server)
	}
	if section, ok := utils.ExtractSection(tempConfig, "cli"); ok {
		extractCliConfig(section, &cfg.CLI)
	}
	return cfg, nil
}

// extractFrecencyConfig extracts the frecency section from a map
func extractFrecencyConfig(data map[string]any, f *FrecencyConfig) {
	if val, ok := utils.ExtractString(data, "key"); ok {
		f.Key = val
	}
	if val, ok := utils.ExtractInt64(data, "timestamps_limit"); ok {
		f.TimestampsLimit = val
	}
	if val, ok := utils.ExtractInt64(data, "recent_selections_limit"); ok {
		f.RecentSelectionsLimit = val
	}
	if val, ok := utils.ExtractString(data, "id_attribute"); ok {
		f.IDAttribute = val
	}
	if val, ok := utils.ExtractFloat(data, "exact_query_match_weight"); ok {
		f.ExactQueryMatchWeight = val
	}
	if val, ok := utils.ExtractFloat(data, "sub_query_match_weight"); ok {
		f.SubQueryMatchWeight = val
	}
	if val, ok := utils.ExtractFloat(data, "recent_selections_match_weight"); ok {
		f.RecentSelectionsMatchWeight = val
	}
}

// extractStorageConfig extracts the storage section from a map
func extractStorageConfig(data map[string]any, s *StorageConfig) {
	if val, ok := utils.ExtractString(data, "backend"); ok {
		s.Backend = val
	}
	if val, ok := utils.ExtractString(data, "path"); ok {
		s.Path = val
	}
	if val, ok := utils.ExtractString(data, "redis_addr"); ok {
		s.RedisAddr = val
	}
	if val, ok := utils.ExtractString(data, "redis_password"); ok {
		s.RedisPassword = val
	}
}

// extractServerConfig extracts server configuration from a map
func extractServerConfig(data map[string]any, server *ServerConfig) {
	if val, ok := utils.ExtractInt64(data, "max_items"); ok {
		server.MaxItems = val
	}
}

// extractCliConfig extracts CLI config from a map
func extractCliConfig(data map[string]any, cli *CliConfig) {
	if val, ok := utils.ExtractString(data, "default_query"); ok {
		cli.DefaultQuery = val
	}
}

// SaveConfig saves into a TOML file
func SaveConfig(cfg *Config, configPath string) error {
	return utils.SaveTOMLFile(cfg, configPath)
}

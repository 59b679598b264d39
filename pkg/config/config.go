package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Discord  DiscordConfig  `json:"discord"`
	Telegram TelegramConfig `json:"telegram"`
	Storage  StorageConfig  `json:"storage"`
	Gateway  GatewayConfig  `json:"gateway"`
	Log      LogConfig      `json:"log"`
}

type DiscordConfig struct {
	Token string `env:"DTBRIDGE_DISCORD_TOKEN" json:"token"`
	// GuildID scopes slash-command registration to one guild for instant
	// availability. Empty registers the commands globally.
	GuildID string `env:"DTBRIDGE_DISCORD_GUILD_ID" json:"guild_id,omitempty"`
}

type TelegramConfig struct {
	Token string `env:"DTBRIDGE_TELEGRAM_TOKEN" json:"token"`
}

type StorageConfig struct {
	DataDir      string `env:"DTBRIDGE_STORAGE_DATA_DIR"      json:"data_dir"`
	RegistryPath string `env:"DTBRIDGE_STORAGE_REGISTRY_PATH" json:"registry_path,omitempty"`
	StorePath    string `env:"DTBRIDGE_STORAGE_STORE_PATH"    json:"store_path,omitempty"`
}

// RegistryFile returns the bridge registry path, defaulting into DataDir.
func (s StorageConfig) RegistryFile() string {
	if s.RegistryPath != "" {
		return s.RegistryPath
	}
	return filepath.Join(s.DataDir, "bridges.json")
}

// StoreFile returns the correlation store path, defaulting into DataDir.
func (s StorageConfig) StoreFile() string {
	if s.StorePath != "" {
		return s.StorePath
	}
	return filepath.Join(s.DataDir, "message_map.db")
}

type GatewayConfig struct {
	Host string `env:"DTBRIDGE_GATEWAY_HOST" json:"host"`
	Port int    `env:"DTBRIDGE_GATEWAY_PORT" json:"port"`
}

type LogConfig struct {
	Level string `env:"DTBRIDGE_LOG_LEVEL" json:"level"`
}

func DefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			DataDir: "data",
		},
		Gateway: GatewayConfig{
			Host: "127.0.0.1",
			Port: 8080,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// LoadConfig reads the JSON config file and applies DTBRIDGE_* env overrides.
// A missing file is not an error; defaults plus env are used.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			if err := env.Parse(cfg); err != nil {
				return nil, err
			}
			return cfg, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func SaveConfig(path string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o600)
}

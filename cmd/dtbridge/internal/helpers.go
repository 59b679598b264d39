package internal

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/krzyywyy/discord-telegram-bridge/pkg/config"
)

var (
	version   = "dev"
	gitCommit string
)

func GetConfigPath() string {
	if p := os.Getenv("DTBRIDGE_CONFIG_PATH"); p != "" {
		return p
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".dtbridge", "config.json")
}

func LoadConfig() (*config.Config, error) {
	return config.LoadConfig(GetConfigPath())
}

// FormatVersion returns the version string with optional git commit
func FormatVersion() string {
	v := version
	if gitCommit != "" {
		v += fmt.Sprintf(" (git: %s)", gitCommit)
	}
	return v
}

// GetVersion returns the version string
func GetVersion() string {
	return version
}

// pkg/config/config.go - configuration settings for the toolbelt.

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Settings holds the configurable options in YAML format.
type Settings struct {
	CatalogPath  string `yaml:"CatalogPath"`
	DownloadPath string `yaml:"DownloadPath"`
	SessionPath  string `yaml:"SessionPath"`
	GitHubAPIURL string `yaml:"GitHubAPIURL"`
	LogPath      string `yaml:"LogPath"`
	LogLevel     string `yaml:"LogLevel"`
	Debug        bool   `yaml:"Debug"`
	Verbose      bool   `yaml:"Verbose"`

	// Per-operation timeout ceilings, in seconds. Each operation carries
	// its own independent ceiling; exceeding one fails only the enclosing
	// descriptor.
	WingetTimeoutSeconds    int `yaml:"WingetTimeoutSeconds"`
	DownloadTimeoutSeconds  int `yaml:"DownloadTimeoutSeconds"`
	InstallerTimeoutSeconds int `yaml:"InstallerTimeoutSeconds"`
	PostStepTimeoutSeconds  int `yaml:"PostStepTimeoutSeconds"`
}

func (s *Settings) WingetTimeout() time.Duration {
	return time.Duration(s.WingetTimeoutSeconds) * time.Second
}

func (s *Settings) DownloadTimeout() time.Duration {
	return time.Duration(s.DownloadTimeoutSeconds) * time.Second
}

func (s *Settings) InstallerTimeout() time.Duration {
	return time.Duration(s.InstallerTimeoutSeconds) * time.Second
}

func (s *Settings) PostStepTimeout() time.Duration {
	return time.Duration(s.PostStepTimeoutSeconds) * time.Second
}

// DefaultPath returns the default location of the settings file.
func DefaultPath() string {
	if appData := os.Getenv("APPDATA"); appData != "" {
		return filepath.Join(appData, "ExilesToolbelt", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(home, ".exiles-toolbelt", "config.yaml")
}

// GetDefaultSettings provides default configuration values.
func GetDefaultSettings() *Settings {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return &Settings{
		CatalogPath:             "apps.json",
		DownloadPath:            filepath.Join(home, "Downloads", "ExilesHUD"),
		SessionPath:             filepath.Join(home, "Downloads", "ExilesHUD", "sessions"),
		GitHubAPIURL:            "https://api.github.com",
		LogLevel:                "info",
		WingetTimeoutSeconds:    300,
		DownloadTimeoutSeconds:  30,
		InstallerTimeoutSeconds: 600,
		PostStepTimeoutSeconds:  120,
	}
}

// LoadSettings loads the configuration from a YAML file. A missing file is
// not an error; defaults are returned so a fresh install works untouched.
func LoadSettings(path string) (*Settings, error) {
	settings := GetDefaultSettings()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return settings, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file: %w", err)
	}

	if err := yaml.Unmarshal(data, settings); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file: %w", err)
	}

	// Backstop zero or negative timeouts with the defaults.
	defaults := GetDefaultSettings()
	if settings.WingetTimeoutSeconds <= 0 {
		settings.WingetTimeoutSeconds = defaults.WingetTimeoutSeconds
	}
	if settings.DownloadTimeoutSeconds <= 0 {
		settings.DownloadTimeoutSeconds = defaults.DownloadTimeoutSeconds
	}
	if settings.InstallerTimeoutSeconds <= 0 {
		settings.InstallerTimeoutSeconds = defaults.InstallerTimeoutSeconds
	}
	if settings.PostStepTimeoutSeconds <= 0 {
		settings.PostStepTimeoutSeconds = defaults.PostStepTimeoutSeconds
	}
	if settings.GitHubAPIURL == "" {
		settings.GitHubAPIURL = defaults.GitHubAPIURL
	}

	return settings, nil
}

// SaveSettings writes the configuration to a YAML file.
func SaveSettings(path string, settings *Settings) error {
	data, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to serialize configuration: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create configuration directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}
	return nil
}

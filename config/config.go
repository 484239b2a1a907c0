package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"roomline/matrix/history"

	"maunium.net/go/mautrix/id"
)

const fileName = "config.yaml"

// Config contains the main config of roomline.
type Config struct {
	UserID      id.UserID   `yaml:"mxid"`
	DeviceID    id.DeviceID `yaml:"device_id"`
	AccessToken string      `yaml:"access_token"`
	Homeserver  string      `yaml:"homeserver"`

	HistoryBackend string `yaml:"history_backend"`
	HistoryPath    string `yaml:"history_path"`

	// Gap below which consecutive messages of a sender are grouped.
	GroupWindow time.Duration `yaml:"group_window"`

	// Events requested per sync and per pagination request.
	TimelineLimit int `yaml:"timeline_limit"`

	// Panic instead of logging when the timeline breaks an invariant.
	StrictInvariants bool `yaml:"strict_invariants"`

	LogLevel string `yaml:"log_level"`

	Dir      string `yaml:"-"`
	DataDir  string `yaml:"data_dir"`
	CacheDir string `yaml:"cache_dir"`
}

// NewConfig creates a config that loads data from the given directory.
func NewConfig(configDir, dataDir, cacheDir string) *Config {
	return &Config{
		Dir:      configDir,
		DataDir:  dataDir,
		CacheDir: cacheDir,

		HistoryBackend: history.BackendBolt,
		HistoryPath:    filepath.Join(cacheDir, "history.db"),

		GroupWindow:   5 * time.Minute,
		TimelineLimit: 50,
		LogLevel:      "debug",
	}
}

func (config *Config) path() string {
	return filepath.Join(config.Dir, fileName)
}

// Load reads config.yaml over the defaults. A missing file is not an error.
func (config *Config) Load() error {
	data, err := os.ReadFile(config.path())
	if errors.Is(err, os.ErrNotExist) {
		return nil
	} else if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err = yaml.Unmarshal(data, config); err != nil {
		return fmt.Errorf("parse %s: %w", config.path(), err)
	}
	return nil
}

// Save writes the config to config.yaml. The file holds the access token,
// so it's only readable by the owner.
func (config *Config) Save() error {
	if err := os.MkdirAll(config.Dir, 0700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err = os.WriteFile(config.path(), data, 0600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// DeleteSession forgets the login and saves.
func (config *Config) DeleteSession() error {
	config.AccessToken = ""
	config.DeviceID = ""
	return config.Save()
}

// LoggedIn reports whether the config carries a session.
func (config *Config) LoggedIn() bool {
	return config.AccessToken != "" && config.UserID != "" && config.Homeserver != ""
}

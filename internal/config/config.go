package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/20after4/configdir"
	"github.com/pelletier/go-toml/v2"
)

const (
	AppName          = "now-playing"
	SettingsFileName = "settings.toml"
	SourcesFileName  = "config.json"
)

// MaxArtworkBytes caps artwork_max_bytes.
const MaxArtworkBytes = 64 << 20

// Toast runner modes.
const (
	ToastModeProcess = "process" // one child process per toast
	ToastModeInline  = "inline"  // presenter called from the dispatcher worker
)

// Duration is a time.Duration that reads and writes Go duration strings.
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

type Config struct {
	LogLevel string `toml:"log_level"`
	LogDir   string `toml:"log_dir"`

	ToastDuration       Duration `toml:"toast_duration"`
	ToastInterval       Duration `toml:"toast_interval"`
	MaxPendingToasts    int      `toml:"max_pending_toasts"`
	ToastMode           string   `toml:"toast_mode"`
	NotifyFirstSighting bool     `toml:"notify_first_sighting"`

	RetryAttempts       int      `toml:"retry_attempts"`
	RetryDelay          Duration `toml:"retry_delay"`
	RetryAttemptTimeout Duration `toml:"retry_attempt_timeout"`
	SettleDelay         Duration `toml:"settle_delay"`
	ArtworkMaxBytes     int64    `toml:"artwork_max_bytes"`
	// ResyncInterval forces a pass this often; zero disables it.
	ResyncInterval Duration `toml:"resync_interval"`
}

func Defaults() Config {
	return Config{
		LogLevel:            "info",
		LogDir:              filepath.Join(configdir.LocalCache(AppName), "logs"),
		ToastDuration:       Duration(3 * time.Second),
		ToastInterval:       Duration(250 * time.Millisecond),
		MaxPendingToasts:    8,
		ToastMode:           ToastModeProcess,
		NotifyFirstSighting: true,
		RetryAttempts:       20,
		RetryDelay:          Duration(50 * time.Millisecond),
		RetryAttemptTimeout: Duration(time.Second),
		SettleDelay:         Duration(50 * time.Millisecond),
		ArtworkMaxBytes:     4 << 20,
		ResyncInterval:      Duration(30 * time.Second),
	}
}

func Dir() string {
	return configdir.LocalConfig(AppName)
}

func DefaultPath() string {
	return filepath.Join(Dir(), SettingsFileName)
}

// SourcesPath is where the source registry is persisted.
func SourcesPath() string {
	return filepath.Join(Dir(), SourcesFileName)
}

// Load overlays the settings file at path on Defaults. A missing file is not
// an error. On a decode error the defaults are returned with the error.
func Load(path string) (Config, error) {
	cfg := Defaults()
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}
	loaded := cfg
	if err := toml.Unmarshal(data, &loaded); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := loaded.Validate(); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return loaded, nil
}

func (c Config) Validate() error {
	switch c.ToastMode {
	case ToastModeProcess, ToastModeInline:
	default:
		return fmt.Errorf("toast_mode: unknown mode %q", c.ToastMode)
	}
	if c.ToastDuration <= 0 {
		return errors.New("toast_duration must be positive")
	}
	if c.ToastInterval < 0 || c.RetryDelay < 0 || c.SettleDelay < 0 || c.RetryAttemptTimeout < 0 || c.ResyncInterval < 0 {
		return errors.New("durations must not be negative")
	}
	if c.MaxPendingToasts < 1 {
		return errors.New("max_pending_toasts must be at least 1")
	}
	if c.RetryAttempts < 1 {
		return errors.New("retry_attempts must be at least 1")
	}
	if c.ArtworkMaxBytes < 1 || c.ArtworkMaxBytes > MaxArtworkBytes {
		return fmt.Errorf("artwork_max_bytes must be between 1 and %d", int64(MaxArtworkBytes))
	}
	return nil
}

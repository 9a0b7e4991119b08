// Package config loads daemon settings: built-in defaults, then an
// optional YAML file, then VITALS_* environment variables.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ErrInvalidConfig is returned for settings that fail validation.
var ErrInvalidConfig = errors.New("invalid config")

// Store backends.
const (
	StoreJSON   = "json"
	StoreSQLite = "sqlite"
	StoreMemory = "memory"
)

// EnvPrefix prefixes environment overrides, e.g. VITALS_BROKER.
const EnvPrefix = "VITALS"

// Config is the daemon configuration.
type Config struct {
	HTTP            string        `mapstructure:"http"`
	Broker          string        `mapstructure:"broker"`
	ClientID        string        `mapstructure:"client_id"`
	Heartbeat       time.Duration `mapstructure:"heartbeat"`
	PassInterval    time.Duration `mapstructure:"pass_interval"`
	Store           string        `mapstructure:"store"`
	DataPath        string        `mapstructure:"data_path"`
	I2CDevice       string        `mapstructure:"i2c_device"`
	I2CAddress      int           `mapstructure:"i2c_address"`
	FingerThreshold uint32        `mapstructure:"finger_threshold"`
	GPIOChip        string        `mapstructure:"gpio_chip"`
	PinButton       int           `mapstructure:"pin_button"`
	PinBuzzer       int           `mapstructure:"pin_buzzer"`
	DisplayPath     string        `mapstructure:"display_path"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http", ":80")
	v.SetDefault("broker", "tcp://localhost:1883")
	v.SetDefault("client_id", "vitals-monitor")
	v.SetDefault("heartbeat", 15*time.Minute)
	v.SetDefault("pass_interval", 5*time.Millisecond)
	v.SetDefault("store", StoreJSON)
	v.SetDefault("data_path", "/var/lib/vitals-monitor")
	v.SetDefault("i2c_device", "/dev/i2c-1")
	v.SetDefault("i2c_address", 0x57)
	v.SetDefault("finger_threshold", 5000)
	v.SetDefault("gpio_chip", "gpiochip0")
	v.SetDefault("pin_button", 17)
	v.SetDefault("pin_buzzer", 27)
	v.SetDefault("display_path", "/run/vitals-monitor/screen.txt")
}

// Load reads the configuration. An empty path skips the file; a named
// file that cannot be read is an error.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks ranges and enumerations.
func (c Config) Validate() error {
	switch c.Store {
	case StoreJSON, StoreSQLite, StoreMemory:
	default:
		return fmt.Errorf("%w: store %q (want json, sqlite or memory)", ErrInvalidConfig, c.Store)
	}
	if c.PassInterval <= 0 {
		return fmt.Errorf("%w: pass_interval must be positive", ErrInvalidConfig)
	}
	if c.Heartbeat < 0 {
		return fmt.Errorf("%w: heartbeat must not be negative", ErrInvalidConfig)
	}
	if c.FingerThreshold == 0 {
		return fmt.Errorf("%w: finger_threshold must be positive", ErrInvalidConfig)
	}
	if c.I2CAddress <= 0 || c.I2CAddress > 0x7F {
		return fmt.Errorf("%w: i2c_address 0x%x out of range", ErrInvalidConfig, c.I2CAddress)
	}
	return nil
}

// StorePath returns the file backing the configured store, or "" for memory.
func (c Config) StorePath() string {
	switch c.Store {
	case StoreJSON:
		return filepath.Join(c.DataPath, "users.json")
	case StoreSQLite:
		return filepath.Join(c.DataPath, "vitals.db")
	}
	return ""
}

// PanelEnabled reports whether the GPIO alarm panel is configured.
func (c Config) PanelEnabled() bool {
	return c.GPIOChip != ""
}

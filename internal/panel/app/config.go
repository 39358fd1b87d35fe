package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by LoadConfig,
// e.g. PANEL_BASE_URL.
const EnvPrefix = "PANEL"

// MasterKeyEnv holds key material when no master key file is configured.
const MasterKeyEnv = EnvPrefix + "_MASTER_KEY"

type Config struct {
	// Required: archive API root, e.g. https://archive.example.com/api
	BaseURL string `validate:"required,url"`

	Timeout        time.Duration `validate:"gt=0"`                 // Request timeout (default: 30s)
	CredentialMode string        `validate:"oneof=bearer cookie"`  // bearer or cookie (default: bearer)
	APIVariant     string        `validate:"oneof=current legacy"` // current or legacy list API (default: current)

	StateDir          string `validate:"required"` // Local state directory (default: ~/.archivepanel)
	TokenDatabaseFile string `validate:"required"` // SQLite file holding the session (default: <state_dir>/state.db)

	// Key file sealing the persisted session (default: <state_dir>/master.key,
	// or empty when PANEL_MASTER_KEY is set). When empty the key material is
	// read from PANEL_MASTER_KEY.
	MasterKeyPath string

	RateLimit    float64       `validate:"gte=0"` // Requests per second, 0 disables (default: 0)
	RateBurst    int           `validate:"gte=0"` // Burst for RateLimit (default: 1)
	PollInterval time.Duration `validate:"gt=0"`  // Interval of --watch commands (default: 10s)

	Env string // Environment (dev, staging, prod) (default: prod)

	LogLevel  string `validate:"oneof=debug info warn error"` // Log level (default: warn)
	LogFormat string `validate:"oneof=json text"`             // Log format (default: text)
}

// flagKeys maps command line flags to configuration keys.
var flagKeys = map[string]string{
	"base-url":    "base_url",
	"timeout":     "timeout",
	"credentials": "credentials",
	"api-variant": "api_variant",
	"state-dir":   "state_dir",
	"log-level":   "log_level",
	"log-format":  "log_format",
}

// LoadConfig resolves the configuration from, in increasing priority:
// defaults, the config file, PANEL_* environment variables and flags.
// An empty configFile searches panel.{yaml,json,toml} in the state
// directory and the working directory; a missing file is not an error.
func LoadConfig(configFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()

	v.SetDefault("timeout", 30*time.Second)
	v.SetDefault("credentials", "bearer")
	v.SetDefault("api_variant", "current")
	v.SetDefault("state_dir", defaultStateDir())
	v.SetDefault("rate_limit", 0)
	v.SetDefault("rate_burst", 1)
	v.SetDefault("poll_interval", 10*time.Second)
	v.SetDefault("env", "prod")
	v.SetDefault("log_level", "warn")
	v.SetDefault("log_format", "text")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// AutomaticEnv only covers keys viper already knows about.
	for _, key := range []string{"base_url", "token_db", "master_key_file"} {
		if err := v.BindEnv(key); err != nil {
			return Config{}, err
		}
	}

	if flags != nil {
		for flag, key := range flagKeys {
			if f := flags.Lookup(flag); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return Config{}, fmt.Errorf("failed to bind flag %s: %w", flag, err)
				}
			}
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		v.SetConfigName("panel")
		v.AddConfigPath(v.GetString("state_dir"))
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	stateDir := v.GetString("state_dir")
	cfg := Config{
		BaseURL:           strings.TrimRight(v.GetString("base_url"), "/"),
		Timeout:           v.GetDuration("timeout"),
		CredentialMode:    strings.ToLower(v.GetString("credentials")),
		APIVariant:        strings.ToLower(v.GetString("api_variant")),
		StateDir:          stateDir,
		TokenDatabaseFile: v.GetString("token_db"),
		MasterKeyPath:     filepath.Join(stateDir, "master.key"),
		RateLimit:         v.GetFloat64("rate_limit"),
		RateBurst:         v.GetInt("rate_burst"),
		PollInterval:      v.GetDuration("poll_interval"),
		Env:               v.GetString("env"),
		LogLevel:          strings.ToLower(v.GetString("log_level")),
		LogFormat:         strings.ToLower(v.GetString("log_format")),
	}

	if cfg.TokenDatabaseFile == "" {
		cfg.TokenDatabaseFile = filepath.Join(stateDir, "state.db")
	}
	switch {
	case v.IsSet("master_key_file"):
		cfg.MasterKeyPath = v.GetString("master_key_file")
	case os.Getenv(MasterKeyEnv) != "":
		cfg.MasterKeyPath = ""
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting by its configuration key.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: failed %q check", configKey(e.StructField()), e.Tag()))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}

var validate = validator.New()

func configKey(field string) string {
	switch field {
	case "BaseURL":
		return "base_url"
	case "CredentialMode":
		return "credentials"
	case "APIVariant":
		return "api_variant"
	case "StateDir":
		return "state_dir"
	case "TokenDatabaseFile":
		return "token_db"
	case "RateLimit":
		return "rate_limit"
	case "RateBurst":
		return "rate_burst"
	case "PollInterval":
		return "poll_interval"
	case "LogLevel":
		return "log_level"
	case "LogFormat":
		return "log_format"
	default:
		return strings.ToLower(field)
	}
}

func defaultStateDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".archivepanel"
	}
	return filepath.Join(home, ".archivepanel")
}

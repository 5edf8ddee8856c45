package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Providers ProvidersConfig `yaml:"providers"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Nutrition NutritionConfig `yaml:"nutrition"`
	Cache     CacheConfig     `yaml:"cache"`
	Breaker   BreakerConfig   `yaml:"breaker"`
	Storage   StorageConfig   `yaml:"storage"`
	Log       LogConfig       `yaml:"log"`
}

type ServerConfig struct {
	Port  int    `yaml:"port"`
	Token string `yaml:"token"`
}

type ProvidersConfig struct {
	// Primary is tried first; the rest of Order is the fixed fallback
	// priority. Unknown names are rejected at startup.
	Primary        string   `yaml:"primary"`
	Order          []string `yaml:"order"`
	PremiumEnabled bool     `yaml:"premium_enabled"`
	OpenAIKey      string   `yaml:"openai_api_key"`
	GeminiKey      string   `yaml:"gemini_api_key"`
	OpenRouterKey  string   `yaml:"openrouter_api_key"`
}

type RateLimitConfig struct {
	PerMinute       int    `yaml:"per_minute"`
	PerDay          int    `yaml:"per_day"`
	TrustedIPHeader string `yaml:"trusted_ip_header"`
}

type NutritionConfig struct {
	FDCAPIKey           string  `yaml:"fdc_api_key"`
	ConfidenceThreshold float64 `yaml:"confidence_threshold"`
}

type CacheConfig struct {
	TTL string `yaml:"ttl"`
}

type BreakerConfig struct {
	FailureThreshold int    `yaml:"failure_threshold"`
	RecoveryTime     string `yaml:"recovery_time"`
}

type StorageConfig struct {
	DataDir string `yaml:"data_dir"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

func defaults() Config {
	return Config{
		Server: ServerConfig{Port: 4100},
		Providers: ProvidersConfig{
			Primary:        "openai",
			Order:          []string{"openai", "gemini", "openrouter"},
			PremiumEnabled: true,
		},
		RateLimit: RateLimitConfig{
			PerMinute:       10,
			PerDay:          200,
			TrustedIPHeader: "X-Real-IP",
		},
		Nutrition: NutritionConfig{ConfidenceThreshold: 0.6},
		Cache:     CacheConfig{TTL: "5m"},
		Breaker: BreakerConfig{
			FailureThreshold: 3,
			RecoveryTime:     "60s",
		},
		Storage: StorageConfig{DataDir: defaultDataDir()},
		Log:     LogConfig{Level: "info"},
	}
}

func defaultDataDir() string {
	dir := os.Getenv("XDG_DATA_HOME")
	if dir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			dir = filepath.Join(home, ".local", "share")
		} else {
			return "platewise-data"
		}
	}
	return filepath.Join(dir, "platewise")
}

func configFilePath() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			dir = filepath.Join(home, ".config")
		} else {
			return "platewise.yaml"
		}
	}
	return filepath.Join(dir, "platewise", "config.yaml")
}

// Load reads configuration in layers: defaults, the YAML config file at
// $XDG_CONFIG_HOME/platewise/config.yaml, then PLATEWISE_* environment
// variables. A .env file in the working directory is loaded first when
// present.
func Load() (Config, error) {
	_ = godotenv.Load() // best effort; absent .env is fine
	return loadFrom(configFilePath())
}

func loadFrom(path string) (Config, error) {
	cfg := defaults()

	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parsing %s: %w", path, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("reading %s: %w", path, err)
	}

	applyEnvOverrides(&cfg)

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Providers.OpenAIKey == "" && c.Providers.GeminiKey == "" && c.Providers.OpenRouterKey == "" {
		return errors.New("missing required config: at least one provider API key " +
			"(PLATEWISE_OPENAI_API_KEY, PLATEWISE_GEMINI_API_KEY, or PLATEWISE_OPENROUTER_API_KEY)")
	}
	if len(c.Providers.Order) == 0 {
		return errors.New("providers.order must not be empty")
	}
	return nil
}

// ConfiguredProviders returns the names from the priority order whose
// credentials are present, preserving order.
func (c Config) ConfiguredProviders() []string {
	var out []string
	for _, name := range c.Providers.Order {
		switch name {
		case "openai":
			if c.Providers.OpenAIKey != "" {
				out = append(out, name)
			}
		case "gemini":
			if c.Providers.GeminiKey != "" {
				out = append(out, name)
			}
		case "openrouter":
			if c.Providers.OpenRouterKey != "" {
				out = append(out, name)
			}
		}
	}
	return out
}

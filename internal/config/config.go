package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Storage backends.
const (
	StorageS3     = "s3"
	StorageSQLite = "sqlite"
	StorageMemory = "memory"
)

// Reply providers.
const (
	ProviderOpenAI   = "openai"
	ProviderEndpoint = "endpoint"
)

// Config holds the application configuration
type Config struct {
	Server    ServerConfig
	LLM       LLMConfig
	Reply     ReplyConfig
	Storage   StorageConfig
	Auth      AuthConfig
	Log       LogConfig
	Telemetry TelemetryConfig
}

// ServerConfig holds the server configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
}

// Addr is the listen address.
func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}

// LLMConfig holds the LLM configuration
type LLMConfig struct {
	Provider     string        `mapstructure:"provider"`
	BaseURL      string        `mapstructure:"base_url"`
	APIKey       string        `mapstructure:"api_key"`
	Model        string        `mapstructure:"model"`
	SystemPrompt string        `mapstructure:"system_prompt"`
	EndpointURL  string        `mapstructure:"endpoint_url"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

// ReplyConfig selects between live replies and the maintenance message.
type ReplyConfig struct {
	Degraded        bool `mapstructure:"degraded"`
	FallbackOnError bool `mapstructure:"fallback_on_error"`
}

// StorageConfig selects and configures the transcript backend.
type StorageConfig struct {
	Backend    string `mapstructure:"backend"`
	Bucket     string `mapstructure:"bucket"`
	Region     string `mapstructure:"region"`
	Prefix     string `mapstructure:"prefix"`
	Endpoint   string `mapstructure:"endpoint"`
	SQLitePath string `mapstructure:"sqlite_path"`
}

// AuthConfig lists the accounts allowed to sign in.
type AuthConfig struct {
	Users        []UserConfig  `mapstructure:"users"`
	SessionTTL   time.Duration `mapstructure:"session_ttl"`
	CookieName   string        `mapstructure:"cookie_name"`
	SecureCookie bool          `mapstructure:"secure_cookie"`
}

// UserConfig is one account.
type UserConfig struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	UserID   string `mapstructure:"user_id"`
}

// LogConfig controls the logger.
type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// TelemetryConfig controls tracing and metrics export.
type TelemetryConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	Dir            string        `mapstructure:"dir"`
	MetricInterval time.Duration `mapstructure:"metric_interval"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8080")

	v.SetDefault("llm.provider", ProviderOpenAI)
	v.SetDefault("llm.base_url", "https://api.openai.com/v1")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.model", "gpt-4o-mini")
	v.SetDefault("llm.system_prompt", "")
	v.SetDefault("llm.endpoint_url", "")
	v.SetDefault("llm.timeout", 60*time.Second)

	v.SetDefault("reply.degraded", false)
	v.SetDefault("reply.fallback_on_error", false)

	v.SetDefault("storage.backend", StorageSQLite)
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.prefix", "public")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.sqlite_path", "history.db")

	v.SetDefault("auth.session_ttl", 24*time.Hour)
	v.SetDefault("auth.cookie_name", "leo_session")
	v.SetDefault("auth.secure_cookie", false)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.dir", "logs")
	v.SetDefault("telemetry.metric_interval", 10*time.Second)
}

// Load reads config.yaml from the working directory, or the file named by
// CONFIG_PATH. A missing default file is not an error. Environment variables
// prefixed LEO_ override file values (LEO_LLM_API_KEY). A .env file, when
// present, is loaded into the environment first.
func Load() (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("LEO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	explicit := os.Getenv("CONFIG_PATH")
	if explicit != "" {
		v.SetConfigFile(explicit)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicit != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func loadDotEnv() error {
	path := os.Getenv("DOTENV_PATH")
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Validate rejects configurations the server cannot start with.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case StorageS3:
		if c.Storage.Bucket == "" {
			return errors.New("storage.bucket is required for the s3 backend")
		}
	case StorageSQLite, StorageMemory:
	default:
		return fmt.Errorf("unsupported storage.backend %q", c.Storage.Backend)
	}

	switch c.LLM.Provider {
	case ProviderOpenAI:
	case ProviderEndpoint:
		if c.LLM.EndpointURL == "" && !c.Reply.Degraded {
			return errors.New("llm.endpoint_url is required for the endpoint provider")
		}
	default:
		return fmt.Errorf("unsupported llm.provider %q", c.LLM.Provider)
	}

	seen := make(map[string]bool, len(c.Auth.Users))
	for i, u := range c.Auth.Users {
		if u.Username == "" || u.UserID == "" {
			return fmt.Errorf("auth.users[%d]: username and user_id are required", i)
		}
		if seen[u.Username] {
			return fmt.Errorf("auth.users[%d]: duplicate username %q", i, u.Username)
		}
		seen[u.Username] = true
	}
	return nil
}

package util

import (
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

const Name = "reblog"
const ConfigFileName = "config.yaml"
const EnvPrefix = "REBLOG"

//go:embed config_default.yaml
var embeddedConfig []byte

type AppConfig struct {
	Conf struct {
		Host      string `envconfig:"HOST"`
		HttpPort  int    `yaml:"httpPort" envconfig:"HTTPPORT"`
		PublicUrl string `yaml:"publicUrl" envconfig:"PUBLIC_URL"`

		StoreDriver   string `yaml:"storeDriver" envconfig:"STORE_DRIVER"`
		DbPath        string `yaml:"dbPath" envconfig:"DB_PATH"`
		MongoUri      string `yaml:"mongoUri" envconfig:"MONGO_URI" json:"-"`
		MongoDatabase string `yaml:"mongoDatabase" envconfig:"MONGO_DATABASE"`

		JwtSecret string        `yaml:"jwtSecret" envconfig:"JWT_SECRET" json:"-"`
		TokenTtl  time.Duration `yaml:"tokenTtl" envconfig:"TOKEN_TTL"`

		TumblrApiKey      string        `yaml:"tumblrApiKey" envconfig:"TUMBLR_API_KEY" json:"-"`
		TumblrBaseUrl     string        `yaml:"tumblrBaseUrl" envconfig:"TUMBLR_BASE_URL"`
		TumblrDefaultBlog string        `yaml:"tumblrDefaultBlog" envconfig:"TUMBLR_DEFAULT_BLOG"`
		ExternalTimeout   time.Duration `yaml:"externalTimeout" envconfig:"EXTERNAL_TIMEOUT"`
		ExternalCacheTtl  time.Duration `yaml:"externalCacheTtl" envconfig:"EXTERNAL_CACHE_TTL"`

		UploadDir      string `yaml:"uploadDir" envconfig:"UPLOAD_DIR"`
		MaxUploadBytes int64  `yaml:"maxUploadBytes" envconfig:"MAX_UPLOAD_BYTES"`

		NatsUrl     string   `yaml:"natsUrl" envconfig:"NATS_URL"`
		CorsOrigins []string `yaml:"corsOrigins" envconfig:"CORS_ORIGINS"`
		RateLimit   float64  `yaml:"rateLimit" envconfig:"RATE_LIMIT"`
		RateBurst   int      `yaml:"rateBurst" envconfig:"RATE_BURST"`
		LogLevel    string   `yaml:"logLevel" envconfig:"LOG_LEVEL"`

		ApiUrl          string        `yaml:"apiUrl" envconfig:"API_URL"`
		CacheMaxEntries int           `yaml:"cacheMaxEntries" envconfig:"CACHE_MAX_ENTRIES"`
		CacheMaxAge     time.Duration `yaml:"cacheMaxAge" envconfig:"CACHE_MAX_AGE"`
	}
}

// ReadConf resolves config.yaml (working dir first, then the user config dir)
// and reads it.
func ReadConf() (*AppConfig, error) {
	return ReadConfFrom("")
}

// ReadConfFrom reads the config from path, or from the resolved default
// location when path is empty. A missing file falls back to the embedded
// defaults. REBLOG_* environment variables, optionally loaded from a .env
// file, override file values.
func ReadConfFrom(path string) (*AppConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("could not load .env file", slog.Any("error", err))
	}

	c := &AppConfig{}
	if err := yaml.Unmarshal(embeddedConfig, c); err != nil {
		return nil, fmt.Errorf("in embedded config: %w", err)
	}

	explicit := path != ""
	if !explicit {
		path = ResolveFilePath(ConfigFileName)
	}

	buf, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(buf, c); err != nil {
			return nil, fmt.Errorf("in config file %s: %w", path, err)
		}
	case explicit:
		return nil, fmt.Errorf("reading config file: %w", err)
	default:
		slog.Info("config file not found, using embedded defaults", slog.String("path", path))
		writeDefaultConfig()
	}

	if err := envconfig.Process(EnvPrefix, &c.Conf); err != nil {
		return nil, fmt.Errorf("in environment: %w", err)
	}

	return c, nil
}

func writeDefaultConfig() {
	configDir, err := GetConfigDir()
	if err != nil {
		return
	}
	userConfigPath := filepath.Join(configDir, ConfigFileName)
	if _, err := os.Stat(userConfigPath); err == nil {
		return
	}
	if err := os.WriteFile(userConfigPath, embeddedConfig, 0644); err != nil {
		slog.Warn("could not write default config", slog.String("path", userConfigPath), slog.Any("error", err))
		return
	}
	slog.Info("created default config file", slog.String("path", userConfigPath))
}

// Addr is the listen address of the HTTP server.
func (c *AppConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Conf.Host, c.Conf.HttpPort)
}

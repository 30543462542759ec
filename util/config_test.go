package util

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestConfigConstants(t *testing.T) {
	if Name != "reblog" {
		t.Errorf("Expected Name 'reblog', got '%s'", Name)
	}

	if ConfigFileName != "config.yaml" {
		t.Errorf("Expected ConfigFileName 'config.yaml', got '%s'", ConfigFileName)
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to create test config: %v", err)
	}
	return path
}

func TestReadConfWithYaml(t *testing.T) {
	t.Setenv(ConfigDirEnv, t.TempDir())
	path := writeConfig(t, `
conf:
  host: 0.0.0.0
  httpPort: 9999
  tumblrDefaultBlog: staff
  externalTimeout: 2s
  corsOrigins:
    - http://a.test
    - http://b.test
`)

	config, err := ReadConfFrom(path)
	if err != nil {
		t.Fatalf("ReadConfFrom failed: %v", err)
	}

	if config.Conf.Host != "0.0.0.0" {
		t.Errorf("Expected Host '0.0.0.0', got '%s'", config.Conf.Host)
	}
	if config.Conf.HttpPort != 9999 {
		t.Errorf("Expected HttpPort 9999, got %d", config.Conf.HttpPort)
	}
	if config.Conf.TumblrDefaultBlog != "staff" {
		t.Errorf("Expected TumblrDefaultBlog 'staff', got '%s'", config.Conf.TumblrDefaultBlog)
	}
	if config.Conf.ExternalTimeout != 2*time.Second {
		t.Errorf("Expected ExternalTimeout 2s, got %v", config.Conf.ExternalTimeout)
	}
	if len(config.Conf.CorsOrigins) != 2 {
		t.Errorf("Expected 2 cors origins, got %v", config.Conf.CorsOrigins)
	}

	// Values absent from the file keep the embedded defaults
	if config.Conf.TokenTtl != 720*time.Hour {
		t.Errorf("Expected default TokenTtl 720h, got %v", config.Conf.TokenTtl)
	}
	if config.Conf.StoreDriver != "sqlite" {
		t.Errorf("Expected default StoreDriver 'sqlite', got '%s'", config.Conf.StoreDriver)
	}
}

func TestReadConfWithEnvOverrides(t *testing.T) {
	t.Setenv(ConfigDirEnv, t.TempDir())
	path := writeConfig(t, `
conf:
  host: 127.0.0.1
  httpPort: 9999
`)

	t.Setenv("REBLOG_HOST", "192.168.1.1")
	t.Setenv("REBLOG_HTTPPORT", "8080")
	t.Setenv("REBLOG_JWT_SECRET", "s3cret")
	t.Setenv("REBLOG_CACHE_MAX_AGE", "24h")
	t.Setenv("REBLOG_CORS_ORIGINS", "http://x.test,http://y.test")

	config, err := ReadConfFrom(path)
	if err != nil {
		t.Fatalf("ReadConfFrom failed: %v", err)
	}

	if config.Conf.Host != "192.168.1.1" {
		t.Errorf("Expected Host '192.168.1.1' from env, got '%s'", config.Conf.Host)
	}
	if config.Conf.HttpPort != 8080 {
		t.Errorf("Expected HttpPort 8080 from env, got %d", config.Conf.HttpPort)
	}
	if config.Conf.JwtSecret != "s3cret" {
		t.Errorf("Expected JwtSecret from env, got '%s'", config.Conf.JwtSecret)
	}
	if config.Conf.CacheMaxAge != 24*time.Hour {
		t.Errorf("Expected CacheMaxAge 24h, got %v", config.Conf.CacheMaxAge)
	}
	if len(config.Conf.CorsOrigins) != 2 || config.Conf.CorsOrigins[1] != "http://y.test" {
		t.Errorf("Unexpected CorsOrigins: %v", config.Conf.CorsOrigins)
	}
}

func TestReadConfInvalidPortEnv(t *testing.T) {
	t.Setenv(ConfigDirEnv, t.TempDir())
	path := writeConfig(t, "conf:\n  httpPort: 9999\n")
	t.Setenv("REBLOG_HTTPPORT", "not_a_number")

	if _, err := ReadConfFrom(path); err == nil {
		t.Error("Expected error for non-numeric port in environment")
	}
}

func TestReadConfMissingExplicitFile(t *testing.T) {
	t.Setenv(ConfigDirEnv, t.TempDir())

	_, err := ReadConfFrom(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Error("Expected error when an explicit config file is missing")
	}
}

func TestReadConfFallsBackToEmbedded(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(ConfigDirEnv, dir)
	wd, _ := os.Getwd()
	if _, err := os.Stat(filepath.Join(wd, ConfigFileName)); err == nil {
		t.Skip("config.yaml present in working directory")
	}

	config, err := ReadConf()
	if err != nil {
		t.Fatalf("ReadConf failed: %v", err)
	}
	if config.Conf.HttpPort != 4000 {
		t.Errorf("Expected embedded HttpPort 4000, got %d", config.Conf.HttpPort)
	}

	if _, err := os.Stat(filepath.Join(dir, ConfigFileName)); err != nil {
		t.Errorf("Expected default config to be written to the config dir: %v", err)
	}
}

func TestReadConfInvalidYaml(t *testing.T) {
	t.Setenv(ConfigDirEnv, t.TempDir())
	path := writeConfig(t, `
conf:
  host: 127.0.0.1
  httpPort: not_a_number
  invalid yaml structure
`)

	if _, err := ReadConfFrom(path); err == nil {
		t.Error("Expected error when parsing invalid YAML")
	}
}

func TestPrettyPrintRedactsSecrets(t *testing.T) {
	config := &AppConfig{}
	config.Conf.JwtSecret = "top-secret"
	config.Conf.TumblrApiKey = "api-key"
	config.Conf.MongoUri = "mongodb://user:pw@host"
	config.Conf.Host = "localhost"

	out := PrettyPrint(config)
	for _, secret := range []string{"top-secret", "api-key", "user:pw"} {
		if strings.Contains(out, secret) {
			t.Errorf("PrettyPrint leaked %q: %s", secret, out)
		}
	}
	if !strings.Contains(out, "localhost") {
		t.Errorf("PrettyPrint should contain host, got: %s", out)
	}
}

func TestAddr(t *testing.T) {
	config := &AppConfig{}
	config.Conf.Host = "localhost"
	config.Conf.HttpPort = 80

	if got := config.Addr(); got != "localhost:80" {
		t.Errorf("Expected 'localhost:80', got '%s'", got)
	}
}

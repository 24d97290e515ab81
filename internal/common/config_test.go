package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, k := range []string{
		"DB_DRIVER", "DB_URL", "HTTP_ADDR", "UPLOAD_DIR", "MAX_CONTENT_LENGTH",
		"AUTH_SECRET", "GOOGLE_API_KEY", "GEMINI_MODEL", "GEMINI_TIMEOUT", "FUELBILLS_CONFIG",
	} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Database.Driver != "postgres" {
		t.Errorf("driver = %q", cfg.Database.Driver)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("addr = %q", cfg.Server.Addr)
	}
	if cfg.Server.MaxUploadBytes != 50*1024*1024 {
		t.Errorf("max upload = %d", cfg.Server.MaxUploadBytes)
	}
	if cfg.LLM.Model != "gemini-1.5-flash" {
		t.Errorf("model = %q", cfg.LLM.Model)
	}
	if cfg.LLM.Timeout != 45*time.Second {
		t.Errorf("timeout = %v", cfg.LLM.Timeout)
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("FUELBILLS_CONFIG", "")
	os.Unsetenv("FUELBILLS_CONFIG")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_URL", "bills.db")
	t.Setenv("GEMINI_MODEL", "gemini-1.5-pro")
	t.Setenv("GEMINI_TIMEOUT", "90s")
	t.Setenv("MAX_CONTENT_LENGTH", "1048576")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Database.Driver != "sqlite" || cfg.Database.DSN != "bills.db" {
		t.Errorf("db = %+v", cfg.Database)
	}
	if cfg.LLM.Model != "gemini-1.5-pro" {
		t.Errorf("model = %q", cfg.LLM.Model)
	}
	if cfg.LLM.Timeout != 90*time.Second {
		t.Errorf("timeout = %v", cfg.LLM.Timeout)
	}
	if cfg.Server.MaxUploadBytes != 1048576 {
		t.Errorf("max upload = %d", cfg.Server.MaxUploadBytes)
	}
}

func TestLoadConfigYAMLOverlay(t *testing.T) {
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("HTTP_ADDR", ":8080")

	path := filepath.Join(t.TempDir(), "config.yaml")
	yml := `
database:
  driver: sqlite
  dsn: overlay.db
server:
  addr: ":9090"
llm:
  model: gemini-1.5-pro
`
	if err := os.WriteFile(path, []byte(yml), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("FUELBILLS_CONFIG", path)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Database.Driver != "sqlite" || cfg.Database.DSN != "overlay.db" {
		t.Errorf("db = %+v", cfg.Database)
	}
	if cfg.Server.Addr != ":9090" {
		t.Errorf("addr = %q", cfg.Server.Addr)
	}
	if cfg.LLM.Model != "gemini-1.5-pro" {
		t.Errorf("model = %q", cfg.LLM.Model)
	}
}

func TestLoadConfigBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(":\nnot yaml"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("FUELBILLS_CONFIG", path)
	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestValidate(t *testing.T) {
	good := &Config{
		Database: DatabaseConfig{Driver: "sqlite", DSN: "bills.db"},
		Server:   ServerConfig{Addr: ":8080"},
		LLM:      LLMConfig{APIKey: "key"},
	}
	if err := good.Validate(); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad driver", func(c *Config) { c.Database.Driver = "mysql" }},
		{"missing dsn", func(c *Config) { c.Database.DSN = "" }},
		{"missing api key", func(c *Config) { c.LLM.APIKey = "" }},
		{"missing addr", func(c *Config) { c.Server.Addr = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := *good
			tt.mutate(&c)
			if err := c.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

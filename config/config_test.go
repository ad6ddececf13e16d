package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const minimal = `
http:
  addr: ":8080"
postgres:
  dsn: "postgres://localhost/chat"
jwt:
  publicKeyPath: "/keys/pub.pem"
  issuer: "cwrk-auth"
  audience: "cwrk-planet"
`

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte(minimal))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Storage.Driver != StoragePostgres {
		t.Fatalf("driver = %q", cfg.Storage.Driver)
	}
	if cfg.WS.PingEvery != 15*time.Second || cfg.WS.ReadLimit != 64<<10 || cfg.WS.SendQueue != 64 {
		t.Fatalf("ws defaults = %+v", cfg.WS)
	}
	if cfg.Chat.MaxMessageLen != 4000 {
		t.Fatalf("max message len = %d", cfg.Chat.MaxMessageLen)
	}
	if cfg.RateLimit.Messages.Limit != 20 || cfg.RateLimit.Signaling.Window != 10*time.Second {
		t.Fatalf("rate limit defaults = %+v", cfg.RateLimit)
	}
	if cfg.Logging.Service != "chat-service" || cfg.Logging.Backend != "std" {
		t.Fatalf("logging defaults = %+v", cfg.Logging)
	}
	if cfg.Postgres.MaxConns != 10 || cfg.Postgres.PingTimeout != 5*time.Second || cfg.Postgres.HealthCheckPeriod != time.Minute {
		t.Fatalf("postgres defaults = %+v", cfg.Postgres)
	}
}

func TestParse_EnvOverrides(t *testing.T) {
	t.Setenv("CHAT_HTTP_ADDR", ":9999")
	t.Setenv("CHAT_STORAGE_DRIVER", "sqlite")
	t.Setenv("CHAT_SQLITE_PATH", ":memory:")
	t.Setenv("CHAT_WS_PING_EVERY", "3s")
	t.Setenv("CHAT_WS_ALLOWED_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("CHAT_RATE_LIMIT_MESSAGES_LIMIT", "5")
	t.Setenv("CHAT_RATE_LIMIT_MESSAGES_WINDOW", "1s")

	cfg, err := Parse([]byte(minimal))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.HTTP.Addr != ":9999" {
		t.Fatalf("http.addr = %q", cfg.HTTP.Addr)
	}
	if cfg.Storage.Driver != StorageSQLite || cfg.SQLite.Path != ":memory:" {
		t.Fatalf("storage = %+v %+v", cfg.Storage, cfg.SQLite)
	}
	if cfg.WS.PingEvery != 3*time.Second {
		t.Fatalf("ping = %v", cfg.WS.PingEvery)
	}
	if len(cfg.WS.AllowedOrigins) != 2 {
		t.Fatalf("origins = %v", cfg.WS.AllowedOrigins)
	}
	if cfg.RateLimit.Messages.Limit != 5 || cfg.RateLimit.Messages.Window != time.Second {
		t.Fatalf("messages rule = %+v", cfg.RateLimit.Messages)
	}
}

func TestParse_Validation(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"no http addr", `postgres: {dsn: x}`, "http.addr"},
		{"no dsn", "http: {addr: ':1'}\njwt: {publicKeyPath: k, issuer: i, audience: a}", "postgres.dsn"},
		{"bad driver", "http: {addr: ':1'}\nstorage: {driver: mongo}", "unknown driver"},
		{"no jwt key", "http: {addr: ':1'}\nstorage: {driver: sqlite}", "jwt.publicKeyPath"},
		{"no issuer", "http: {addr: ':1'}\nstorage: {driver: sqlite}\njwt: {publicKeyPath: k}", "jwt.issuer"},
		{
			"tracing without endpoint",
			"http: {addr: ':1'}\nstorage: {driver: sqlite}\njwt: {publicKeyPath: k, issuer: i, audience: a}\ntracing: {enabled: true}",
			"tracing.endpoint",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("err = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadConfig_FromPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(minimal), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_PATH", path)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.JWT.Issuer != "cwrk-auth" {
		t.Fatalf("issuer = %q", cfg.JWT.Issuer)
	}

	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestShippedConfigParses(t *testing.T) {
	data, err := os.ReadFile("config.yaml")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Parse(data); err != nil {
		t.Fatalf("config.yaml: %v", err)
	}
}

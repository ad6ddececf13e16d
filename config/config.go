package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

const envPrefix = "CHAT_"

type GRPC struct {
	Addr string `yaml:"addr" env:"ADDR"` // если пусто, admin gRPC не поднимаем
}

type HTTP struct {
	Addr            string        `yaml:"addr" env:"ADDR"`
	ReadTimeout     time.Duration `yaml:"readTimeout" env:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"writeTimeout" env:"WRITE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" env:"SHUTDOWN_TIMEOUT"`
	AllowedOrigins  []string      `yaml:"allowedOrigins" env:"ALLOWED_ORIGINS"`
}

type WS struct {
	PingEvery      time.Duration `yaml:"pingEvery" env:"PING_EVERY"`
	WriteTimeout   time.Duration `yaml:"writeTimeout" env:"WRITE_TIMEOUT"`
	ReadLimit      int64         `yaml:"readLimit" env:"READ_LIMIT"`
	SendQueue      int           `yaml:"sendQueue" env:"SEND_QUEUE"`
	AllowedOrigins []string      `yaml:"allowedOrigins" env:"ALLOWED_ORIGINS"` // если пусто, разрешён любой Origin
}

type Logging struct {
	Env       string `yaml:"env" env:"ENV"`              // dev|stage|prod
	Service   string `yaml:"service" env:"SERVICE"`      // chat-service
	Version   string `yaml:"version" env:"VERSION"`      // v0.1.0
	Backend   string `yaml:"backend" env:"BACKEND"`      // std|zap
	Level     string `yaml:"level" env:"LEVEL"`          // debug|info|warn|error
	AddSource bool   `yaml:"addSource" env:"ADD_SOURCE"` // false|true
	Debug     bool   `yaml:"debug" env:"DEBUG"`          // false|true
}

const (
	StoragePostgres = "postgres"
	StorageSQLite   = "sqlite"
)

type Storage struct {
	Driver string `yaml:"driver" env:"DRIVER"` // postgres|sqlite
}

type Postgres struct {
	DSN             string        `yaml:"dsn" env:"DSN"`
	MaxConns        int32         `yaml:"maxConns" env:"MAX_CONNS"`
	MinConns        int32         `yaml:"minConns" env:"MIN_CONNS"`
	MaxConnLifetime time.Duration `yaml:"maxConnLifetime" env:"MAX_CONN_LIFETIME"`
	MaxConnIdleTime time.Duration `yaml:"maxConnIdleTime" env:"MAX_CONN_IDLE_TIME"`
	AutoMigrate     bool          `yaml:"autoMigrate" env:"AUTO_MIGRATE"`

	HealthCheckPeriod time.Duration `yaml:"healthCheckPeriod" env:"HEALTH_CHECK_PERIOD"`
	PingTimeout       time.Duration `yaml:"pingTimeout" env:"PING_TIMEOUT"` // /readyz и старт
}

type SQLite struct {
	Path string `yaml:"path" env:"PATH"` // файл или :memory:
}

type JWT struct {
	PublicKeyPath  string        `yaml:"publicKeyPath" env:"PUBLIC_KEY_PATH"`
	PrivateKeyPath string        `yaml:"privateKeyPath" env:"PRIVATE_KEY_PATH"` // только для `token`
	Issuer         string        `yaml:"issuer" env:"ISSUER"`
	Audience       string        `yaml:"audience" env:"AUDIENCE"`
	AccessTTL      time.Duration `yaml:"accessTTL" env:"ACCESS_TTL"`
	ClockSkew      time.Duration `yaml:"clockSkew" env:"CLOCK_SKEW"`
}

type Redis struct {
	Addr     string `yaml:"addr" env:"ADDR"` // если пусто, лимитов нет
	Password string `yaml:"password" env:"PASSWORD"`
	DB       int    `yaml:"db" env:"DB"`
}

type Rule struct {
	Limit  int           `yaml:"limit" env:"LIMIT"`
	Window time.Duration `yaml:"window" env:"WINDOW"`
}

type RateLimit struct {
	Messages  Rule `yaml:"messages" envPrefix:"MESSAGES_"`
	Signaling Rule `yaml:"signaling" envPrefix:"SIGNALING_"`
}

type NATS struct {
	URL           string        `yaml:"url" env:"URL"` // если пусто, события не публикуются
	SubjectPrefix string        `yaml:"subjectPrefix" env:"SUBJECT_PREFIX"`
	ReconnectWait time.Duration `yaml:"reconnectWait" env:"RECONNECT_WAIT"`
	MaxReconnects int           `yaml:"maxReconnects" env:"MAX_RECONNECTS"`
}

type Tracing struct {
	Enabled     bool    `yaml:"enabled" env:"ENABLED"`
	Endpoint    string  `yaml:"endpoint" env:"ENDPOINT"`
	SampleRatio float64 `yaml:"sampleRatio" env:"SAMPLE_RATIO"`
}

type Chat struct {
	MaxMessageLen     int  `yaml:"maxMessageLen" env:"MAX_MESSAGE_LEN"`
	EnsureDefaultRoom bool `yaml:"ensureDefaultRoom" env:"ENSURE_DEFAULT_ROOM"`
}

type Config struct {
	HTTP      HTTP      `yaml:"http" envPrefix:"HTTP_"`
	GRPC      GRPC      `yaml:"grpc" envPrefix:"GRPC_"`
	WS        WS        `yaml:"ws" envPrefix:"WS_"`
	Logging   Logging   `yaml:"logging" envPrefix:"LOGGING_"`
	Storage   Storage   `yaml:"storage" envPrefix:"STORAGE_"`
	Postgres  Postgres  `yaml:"postgres" envPrefix:"POSTGRES_"`
	SQLite    SQLite    `yaml:"sqlite" envPrefix:"SQLITE_"`
	JWT       JWT       `yaml:"jwt" envPrefix:"JWT_"`
	Redis     Redis     `yaml:"redis" envPrefix:"REDIS_"`
	RateLimit RateLimit `yaml:"rateLimit" envPrefix:"RATE_LIMIT_"`
	NATS      NATS      `yaml:"nats" envPrefix:"NATS_"`
	Tracing   Tracing   `yaml:"tracing" envPrefix:"TRACING_"`
	Chat      Chat      `yaml:"chat" envPrefix:"CHAT_"`
}

// LoadConfig читает yaml из CONFIG_PATH, поверх накладывает CHAT_* из окружения.
func LoadConfig() (*Config, error) {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "./config/config.yaml"
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: envPrefix}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) setDefaults() {
	if c.HTTP.ReadTimeout <= 0 {
		c.HTTP.ReadTimeout = 15 * time.Second
	}
	if c.HTTP.WriteTimeout <= 0 {
		c.HTTP.WriteTimeout = 15 * time.Second
	}
	if c.HTTP.ShutdownTimeout <= 0 {
		c.HTTP.ShutdownTimeout = 10 * time.Second
	}

	if c.WS.PingEvery <= 0 {
		c.WS.PingEvery = 15 * time.Second
	}
	if c.WS.WriteTimeout <= 0 {
		c.WS.WriteTimeout = 5 * time.Second
	}
	if c.WS.ReadLimit <= 0 {
		c.WS.ReadLimit = 64 << 10
	}
	if c.WS.SendQueue <= 0 {
		c.WS.SendQueue = 64
	}

	if c.Logging.Service == "" {
		c.Logging.Service = "chat-service"
	}
	if c.Logging.Env == "" {
		c.Logging.Env = "dev"
	}
	if c.Logging.Version == "" {
		c.Logging.Version = "v0.1.0"
	}
	if c.Logging.Backend == "" {
		c.Logging.Backend = "std"
	}

	if c.Storage.Driver == "" {
		c.Storage.Driver = StoragePostgres
	}
	if c.Postgres.MaxConns <= 0 {
		c.Postgres.MaxConns = 10
	}
	if c.Postgres.MaxConnLifetime <= 0 {
		c.Postgres.MaxConnLifetime = time.Hour
	}
	if c.Postgres.MaxConnIdleTime <= 0 {
		c.Postgres.MaxConnIdleTime = 30 * time.Minute
	}
	if c.Postgres.HealthCheckPeriod <= 0 {
		c.Postgres.HealthCheckPeriod = time.Minute
	}
	if c.Postgres.PingTimeout <= 0 {
		c.Postgres.PingTimeout = 5 * time.Second
	}
	if c.SQLite.Path == "" {
		c.SQLite.Path = "chat.db"
	}

	if c.JWT.AccessTTL <= 0 {
		c.JWT.AccessTTL = 15 * time.Minute
	}
	if c.JWT.ClockSkew <= 0 {
		c.JWT.ClockSkew = 30 * time.Second
	}

	if c.RateLimit.Messages.Limit == 0 && c.RateLimit.Messages.Window == 0 {
		c.RateLimit.Messages = Rule{Limit: 20, Window: 10 * time.Second}
	}
	if c.RateLimit.Signaling.Limit == 0 && c.RateLimit.Signaling.Window == 0 {
		c.RateLimit.Signaling = Rule{Limit: 200, Window: 10 * time.Second}
	}

	if c.NATS.SubjectPrefix == "" {
		c.NATS.SubjectPrefix = "chat"
	}

	if c.Chat.MaxMessageLen <= 0 {
		c.Chat.MaxMessageLen = 4000
	}
}

func (c *Config) validate() error {
	if c.HTTP.Addr == "" {
		return errors.New("http.addr is required")
	}

	switch c.Storage.Driver {
	case StoragePostgres:
		if c.Postgres.DSN == "" {
			return errors.New("postgres.dsn is required")
		}
	case StorageSQLite:
	default:
		return fmt.Errorf("storage.driver: unknown driver %q", c.Storage.Driver)
	}

	if c.JWT.PublicKeyPath == "" && c.JWT.PrivateKeyPath == "" {
		return errors.New("jwt.publicKeyPath is required")
	}
	if strings.TrimSpace(c.JWT.Issuer) == "" || strings.TrimSpace(c.JWT.Audience) == "" {
		return errors.New("jwt.issuer and jwt.audience are required")
	}

	if c.Tracing.Enabled && c.Tracing.Endpoint == "" {
		return errors.New("tracing.endpoint is required when tracing is enabled")
	}
	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		return errors.New("tracing.sampleRatio must be within [0, 1]")
	}
	return nil
}

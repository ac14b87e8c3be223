package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	RepositoryMongo    = "mongo"
	RepositoryPostgres = "postgres"
	RepositoryInMemory = "inmemory"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Logging   LoggingConfig   `yaml:"logging"`
	Auth      AuthConfig      `yaml:"auth"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	CORS      CORSConfig      `yaml:"cors"`
	Tracing   TracingConfig   `yaml:"tracing"`
}

type ServerConfig struct {
	Port            string        `yaml:"port"`
	Host            string        `yaml:"host"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Type     string         `yaml:"type"` // "mongo", "postgres" или "inmemory"
	Mongo    MongoConfig    `yaml:"mongo"`
	Postgres PostgresConfig `yaml:"postgres"`
}

type MongoConfig struct {
	URI            string        `yaml:"uri"`
	Database       string        `yaml:"database"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
}

type PostgresConfig struct {
	URL            string        `yaml:"url"`
	MaxConnections int32         `yaml:"max_connections"`
	MinConnections int32         `yaml:"min_connections"`
	IdleTimeout    time.Duration `yaml:"idle_timeout"`
}

type LoggingConfig struct {
	Development bool `yaml:"development"`
}

type AuthConfig struct {
	Secret       string        `yaml:"secret"`
	CookieName   string        `yaml:"cookie_name"`
	SessionTTL   time.Duration `yaml:"session_ttl"`
	SecureCookie bool          `yaml:"secure_cookie"`
}

type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute"`
	Burst             int `yaml:"burst"`
}

const (
	TraceExporterNone   = "none"
	TraceExporterStdout = "stdout"
	TraceExporterOTLP   = "otlp"
)

type TracingConfig struct {
	Exporter     string  `yaml:"exporter"` // "none", "stdout" или "otlp"
	ServiceName  string  `yaml:"service_name"`
	OTLPEndpoint string  `yaml:"otlp_endpoint"`
	OTLPInsecure bool    `yaml:"otlp_insecure"`
	SampleRatio  float64 `yaml:"sample_ratio"`
}

type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            "8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			RequestTimeout:  30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Database: DatabaseConfig{
			Type: RepositoryMongo,
			Mongo: MongoConfig{
				URI:            "mongodb://localhost:27017",
				Database:       "todo",
				ConnectTimeout: 10 * time.Second,
			},
			Postgres: PostgresConfig{
				MaxConnections: 10,
				MinConnections: 2,
				IdleTimeout:    5 * time.Minute,
			},
		},
		Auth: AuthConfig{
			CookieName: "todo_session",
			SessionTTL: 7 * 24 * time.Hour,
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 100,
			Burst:             20,
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"http://localhost:3000"},
		},
		Tracing: TracingConfig{
			Exporter:     TraceExporterNone,
			ServiceName:  "todo-api",
			OTLPEndpoint: "localhost:4317",
			OTLPInsecure: true,
			SampleRatio:  1,
		},
	}
}

// подставляются только явные ${VAR}; одиночный $ в значениях остаётся как есть
var envPlaceholder = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

func expandEnv(raw string) string {
	return envPlaceholder.ReplaceAllStringFunc(raw, func(m string) string {
		return os.Getenv(envPlaceholder.FindStringSubmatch(m)[1])
	})
}

// Load читает yaml поверх значений по умолчанию.
// ${VAR} в файле подставляются из окружения до парсинга.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("не могу открыть %s: %w", path, err)
	}

	cfg := Default()
	decoder := yaml.NewDecoder(strings.NewReader(expandEnv(string(raw))))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil {
		return nil, fmt.Errorf("ошибка парсинга %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("неверный конфиг: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.Database.Type {
	case RepositoryMongo:
		if c.Database.Mongo.URI == "" || c.Database.Mongo.Database == "" {
			return errors.New("database.mongo.uri и database.mongo.database обязательны")
		}
	case RepositoryPostgres:
		if c.Database.Postgres.URL == "" {
			return errors.New("database.postgres.url обязателен")
		}
	case RepositoryInMemory:
	default:
		return fmt.Errorf("неизвестный database.type %q", c.Database.Type)
	}

	if len(c.Auth.Secret) < 32 {
		return errors.New("auth.secret должен быть не короче 32 символов")
	}
	if c.Auth.CookieName == "" {
		return errors.New("auth.cookie_name обязателен")
	}
	if c.Auth.SessionTTL <= 0 {
		return errors.New("auth.session_ttl должен быть положительным")
	}
	if c.RateLimit.RequestsPerMinute <= 0 {
		return errors.New("rate_limit.requests_per_minute должен быть положительным")
	}

	switch c.Tracing.Exporter {
	case TraceExporterNone, TraceExporterStdout:
	case TraceExporterOTLP:
		if c.Tracing.OTLPEndpoint == "" {
			return errors.New("tracing.otlp_endpoint обязателен для otlp")
		}
	default:
		return fmt.Errorf("неизвестный tracing.exporter %q", c.Tracing.Exporter)
	}
	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		return errors.New("tracing.sample_ratio должен быть от 0 до 1")
	}
	return nil
}

func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%s", c.Server.Host, c.Server.Port)
}

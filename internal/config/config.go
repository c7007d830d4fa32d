package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig      `yaml:"app"`
	HTTP     HTTPConfig     `yaml:"http"`
	Postgres PostgresConfig `yaml:"postgres"`
	Auth     AuthConfig     `yaml:"auth"`
	Checkout CheckoutConfig `yaml:"checkout"`
	Seed     SeedConfig     `yaml:"seed"`
}

type AppConfig struct {
	Name     string `yaml:"name" env:"APP_NAME" env-default:"product-management"`
	Env      string `yaml:"env" env:"APP_ENV" env-default:"development"`
	Port     string `yaml:"port" env:"APP_PORT" env-default:"8080"`
	LogLevel string `yaml:"log_level" env:"APP_LOG_LEVEL" env-default:"info"`
}

type HTTPConfig struct {
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"HTTP_READ_TIMEOUT" env-default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"HTTP_WRITE_TIMEOUT" env-default:"10s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" env:"HTTP_IDLE_TIMEOUT" env-default:"120s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"HTTP_SHUTDOWN_TIMEOUT" env-default:"15s"`
}

type PostgresConfig struct {
	Host            string        `yaml:"host" env:"DB_HOST" env-required:"true"`
	Port            string        `yaml:"port" env:"DB_PORT" env-default:"5432"`
	User            string        `yaml:"user" env:"DB_USER" env-required:"true"`
	Password        string        `yaml:"password" env:"DB_PASSWORD" env-required:"true"`
	DBName          string        `yaml:"dbname" env:"DB_NAME" env-required:"true"`
	SSLMode         string        `yaml:"sslmode" env:"DB_SSLMODE" env-default:"disable"`
	MaxConns        int32         `yaml:"max_conns" env:"DB_MAX_CONNS" env-default:"10"`
	MinConns        int32         `yaml:"min_conns" env:"DB_MIN_CONNS" env-default:"2"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime" env:"DB_MAX_CONN_LIFETIME" env-default:"30m"`
	MigrationsPath  string        `yaml:"migrations_path" env:"DB_MIGRATIONS_PATH" env-default:"migrations"`
}

type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret" env:"AUTH_JWT_SECRET" env-required:"true"`
	TokenTTL  time.Duration `yaml:"token_ttl" env:"AUTH_TOKEN_TTL" env-default:"24h"`
	Issuer    string        `yaml:"issuer" env:"AUTH_ISSUER" env-default:"product-management"`
}

type CheckoutConfig struct {
	// Attempts of the whole checkout transaction on serialization or deadlock errors.
	TxAttempts int `yaml:"tx_attempts" env:"CHECKOUT_TX_ATTEMPTS" env-default:"3"`
}

type SeedConfig struct {
	Path string `yaml:"path" env:"SEED_PATH" env-default:"configs/seed.yaml"`
}

// DSN builds a keyword/value connection string for pgx.
func (c PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// NewConfig loads .env (if present) and then reads the configuration from
// the YAML file named by CONFIG_PATH, falling back to environment only.
func NewConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	return Load(os.Getenv("CONFIG_PATH"))
}

func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	} else {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("failed to read config from env: %w", err)
		}
	}

	if cfg.Checkout.TxAttempts < 1 {
		cfg.Checkout.TxAttempts = 1
	}

	return &cfg, nil
}

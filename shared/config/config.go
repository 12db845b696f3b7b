package config

import (
	"errors"
	"fmt"
	"os"
	"path"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

const (
	StorageBackendPg     = "pg"
	StorageBackendBadger = "badger"
)

type Config struct {
	Public  Public
	Private Private
}

type Public struct {
	HttpAddr string `yaml:"http_addr" validate:"required"`
	// served behind TLS, enables HSTS
	HTTPS   bool   `yaml:"https"`
	Storage string `yaml:"storage" validate:"required,oneof=pg badger"`
	Badger  Badger `yaml:"badger"`
	// seconds
	JwtTTL time.Duration `yaml:"jwt_ttl" validate:"required"`
	// max theses per listing page
	PageLimit int `yaml:"page_limit" validate:"required,min=1"`
	// seconds, 0 disables the pass reconciler
	ReconcileInterval time.Duration `yaml:"reconcile_interval"`
	// seconds, 0 disables the orphan collector
	OrphanSweepInterval time.Duration `yaml:"orphan_sweep_interval"`
	AllowedOrigins      []string      `yaml:"allowed_origins"`
	// per actor, 0 disables limiting
	WriteRPS   float64 `yaml:"write_rps"`
	WriteBurst int     `yaml:"write_burst"`
	LogLevel   string  `yaml:"log_level"`
	LogJSON    bool    `yaml:"log_json"`
}

type Badger struct {
	Path       string `yaml:"path"`
	SyncWrites bool   `yaml:"sync_writes"`
}

type Pg struct {
	Host     string `yaml:"host" env:"PREPUBLISH_PG_HOST"`
	Port     int    `yaml:"port" env:"PREPUBLISH_PG_PORT"`
	User     string `yaml:"user" env:"PREPUBLISH_PG_USER"`
	Password string `yaml:"password" env:"PREPUBLISH_PG_PASSWORD"`
	Dbname   string `yaml:"dbname" env:"PREPUBLISH_PG_DBNAME"`
}

type Private struct {
	Pg     Pg     `yaml:"pg"`
	JwtKey string `yaml:"jwt_key" env:"PREPUBLISH_JWT_KEY" validate:"required"`
}

func (s *Config) JwtKey() string {
	return s.Private.JwtKey
}

func (s *Config) JwtTTL() time.Duration {
	return s.Public.JwtTTL * time.Second
}

func (s *Config) ReconcileInterval() time.Duration {
	return s.Public.ReconcileInterval * time.Second
}

func (s *Config) OrphanSweepInterval() time.Duration {
	return s.Public.OrphanSweepInterval * time.Second
}

func loadPath(configPath string, output interface{}) error {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return fmt.Errorf("config file does not exist: %s", configPath)
	}
	configFile, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("can't read config file %s: %w", configPath, err)
	}
	if err := yaml.Unmarshal(configFile, output); err != nil {
		return fmt.Errorf("can't unmarshal config file %s: %w", configPath, err)
	}
	return nil
}

// Load reads public.yaml and private.yaml from configFolder. Secrets may be
// overridden from the environment; a .env file in the folder is applied first
// and never overrides variables that are already set.
func Load(configFolder string) (*Config, error) {
	var cfg Config
	if err := loadPath(path.Join(configFolder, "public.yaml"), &cfg.Public); err != nil {
		return nil, err
	}
	if err := loadPath(path.Join(configFolder, "private.yaml"), &cfg.Private); err != nil {
		return nil, err
	}

	dotenv := path.Join(configFolder, ".env")
	if _, err := os.Stat(dotenv); err == nil {
		if err := godotenv.Load(dotenv); err != nil {
			return nil, fmt.Errorf("can't load %s: %w", dotenv, err)
		}
	}
	if err := env.Parse(&cfg.Private); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func MustLoad(configFolder string) *Config {
	cfg, err := Load(configFolder)
	if err != nil {
		panic(err.Error())
	}
	return cfg
}

func (s *Config) validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if s.Public.Storage == StorageBackendBadger && s.Public.Badger.Path == "" {
		return errors.New("invalid config: badger.path is required for badger storage")
	}
	if s.Public.Storage == StorageBackendPg && s.Private.Pg.Host == "" {
		return errors.New("invalid config: pg.host is required for pg storage")
	}
	return nil
}

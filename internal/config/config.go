package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"

	NotifyDriverRedis = "redis"
	NotifyDriverLog   = "log"
)

type Config struct {
	RedisHost string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort uint16 `env:"REDIS_PORT" envDefault:"6379"   validate:"min=1000,max=65535"`

	PostgresHost     string `env:"POSTGRES_HOST"     envDefault:"localhost"`
	PostgresPort     string `env:"POSTGRES_PORT"     envDefault:"5432"`
	PostgresUser     string `env:"POSTGRES_USER"     envDefault:"break_user"`
	PostgresPassword string `env:"POSTGRES_PASSWORD" envDefault:"break_password"`
	PostgresDb       string `env:"POSTGRES_DB"       envDefault:"break_db"`
	ApplySchema      bool   `env:"APPLY_SCHEMA"      envDefault:"true"`

	StoreDriver  string `env:"STORE_DRIVER"  envDefault:"postgres" validate:"oneof=postgres memory"`
	NotifyDriver string `env:"NOTIFY_DRIVER" envDefault:"redis"    validate:"oneof=redis log"`

	ExtendThreshold   time.Duration `env:"EXTEND_THRESHOLD"    envDefault:"5m"  validate:"min=0"`
	ExtendWindow      time.Duration `env:"EXTEND_WINDOW"       envDefault:"5m"  validate:"min=0"`
	SweepInterval     time.Duration `env:"SWEEP_INTERVAL"      envDefault:"60s" validate:"min=1s"`
	SettleTimeout     time.Duration `env:"SETTLE_TIMEOUT"      envDefault:"30s" validate:"min=0"`
	BoardSyncInterval time.Duration `env:"BOARD_SYNC_INTERVAL" envDefault:"10s" validate:"min=1s"`

	NotifyWorkers   int           `env:"NOTIFY_WORKERS"    envDefault:"4"   validate:"min=1,max=256"`
	NotifyQueueSize int           `env:"NOTIFY_QUEUE_SIZE" envDefault:"256" validate:"min=0"`
	NotifyTimeout   time.Duration `env:"NOTIFY_TIMEOUT"    envDefault:"5s"  validate:"min=0"`

	LogDevelopment bool `env:"LOG_DEVELOPMENT" envDefault:"true"`

	HttpServerPort uint16 `env:"HTTP_SERVER_PORT" envDefault:"8085" validate:"min=1000,max=65535"`
}

// UsesRedis reports whether any configured component needs a Redis client.
func (c *Config) UsesRedis() bool {
	return c.NotifyDriver == NotifyDriverRedis
}

func LoadConfig() (*Config, error) {
	// Load environment variables from .env file
	err := godotenv.Load(".env")
	if err != nil {
		zap.L().Debug(".env file not found", zap.Error(err))
	}

	cfg := &Config{}
	// Parse config from environment variables
	if err = env.Parse(cfg); err != nil {
		zap.L().Error("config_load_failed", zap.Error(err))
		return nil, err
	}

	// Validate the config
	validate := validator.New()
	err = validate.Struct(cfg)
	if err != nil {
		zap.L().Error("config_validation_failed", zap.Error(err))
		return nil, err
	}
	return cfg, nil
}

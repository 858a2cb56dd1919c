package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

type Config struct {
	RedisHost string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort uint16 `env:"REDIS_PORT" envDefault:"6379"   validate:"min=1000,max=65535"`

	PostgresHost     string `env:"POSTGRES_HOST"     envDefault:"localhost"`
	PostgresPort     string `env:"POSTGRES_PORT"     envDefault:"5432"`
	PostgresUser     string `env:"POSTGRES_USER"     envDefault:"auction_user"`
	PostgresPassword string `env:"POSTGRES_PASSWORD" envDefault:"auction_password"`
	PostgresDb       string `env:"POSTGRES_DB"       envDefault:"auction_db"`

	// Anti-sniping: a bid landing with less than the grace window left
	// pushes the lot deadline out, up to MaxExtensionSeconds in total.
	GraceWindowSeconds  int `env:"GRACE_WINDOW_SECONDS"  envDefault:"30"  validate:"min=1"`
	MaxExtensionSeconds int `env:"MAX_EXTENSION_SECONDS" envDefault:"300" validate:"min=0"`

	AllowSelfOutbid bool `env:"ALLOW_SELF_OUTBID" envDefault:"false"`

	WalletCurrency string `env:"WALLET_CURRENCY" envDefault:"USD"`

	MirrorIntervalSeconds int `env:"MIRROR_INTERVAL_SECONDS" envDefault:"10"   validate:"min=1"`
	JournalBuffer         int `env:"JOURNAL_BUFFER"          envDefault:"1024" validate:"min=1"`

	HttpServerPort uint16 `env:"HTTP_SERVER_PORT" envDefault:"8085" validate:"min=1000,max=65535"`
}

func (c *Config) GraceWindow() time.Duration {
	return time.Duration(c.GraceWindowSeconds) * time.Second
}

func (c *Config) MaxExtension() time.Duration {
	return time.Duration(c.MaxExtensionSeconds) * time.Second
}

func (c *Config) MirrorInterval() time.Duration {
	return time.Duration(c.MirrorIntervalSeconds) * time.Second
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

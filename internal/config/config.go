package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Mode string `mapstructure:"mode"`
	Port int    `mapstructure:"port" validate:"min=1,max=65535"`

	ReadLimit    int64         `mapstructure:"read_limit" validate:"min=512"`
	SendBuffer   int           `mapstructure:"send_buffer" validate:"min=1"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" validate:"min=100ms"`

	PingInterval time.Duration `mapstructure:"ping_interval" validate:"min=1s"`
	GracePeriod  time.Duration `mapstructure:"grace_period" validate:"min=1s"`

	Secret string `mapstructure:"secret"`

	Mongo MongoConfig `mapstructure:"mongo"`
}

// MongoConfig points at the external presence store. An empty URI disables
// persistence; the service runs on in-memory truth alone.
type MongoConfig struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("read_limit", 32768)
	v.SetDefault("send_buffer", 32)
	v.SetDefault("write_timeout", "5s")
	v.SetDefault("ping_interval", "30s")
	v.SetDefault("grace_period", "120s")
	v.SetDefault("mongo.database", "presence")

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

type Config struct {
	MaxUsersPerRoom int    `env:"MAX_USERS_PER_ROOM" envDefault:"6"    validate:"min=1"`
	HttpServerPort  uint16 `env:"HTTP_SERVER_PORT"   envDefault:"8085" validate:"min=1000,max=65535"`

	// WsPath is the route the websocket upgrade is served on.
	WsPath string `env:"WS_PATH" envDefault:"/api/socketio" validate:"startswith=/"`

	// HeartbeatInterval drives the server ping cadence; clients use the same
	// value advisorily. Liveness is decided by transport-level disconnect,
	// never by heartbeat content.
	HeartbeatInterval time.Duration `env:"HEARTBEAT_INTERVAL" envDefault:"30s" validate:"gt=0"`
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

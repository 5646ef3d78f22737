package config

import (
	"fmt"
	"sync"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	App struct {
		Env          string `env:"APP_ENV" env-default:"development"`
		Port         int    `env:"APP_PORT" env-default:"8080"`
		SentryUrl    string `env:"SENTRY_URL"`
		OtelEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	}
	Feed struct {
		ApiUrl          string        `env:"FEED_API_URL" env-default:"http://localhost:3000/api/v1"`
		Token           string        `env:"FEED_TOKEN"`
		RefreshInterval time.Duration `env:"FEED_REFRESH_INTERVAL" env-default:"2m"`
		RequestTimeout  time.Duration `env:"FEED_REQUEST_TIMEOUT" env-default:"30s"`
	}
	Media struct {
		Workers    int    `env:"MEDIA_WORKERS" env-default:"4"`
		MaxRetries uint64 `env:"MEDIA_MAX_RETRIES" env-default:"2"`
	}
	Telegram struct {
		User    int64  `env:"TELEGRAM_USER"`
		Token   string `env:"TELEGRAM_TOKEN"`
		Channel string `env:"TELEGRAM_CHANNEL"`
	}
	Command struct {
		Requests int           `env:"COMMAND_RATE_REQUESTS" env-default:"1"`
		Per      time.Duration `env:"COMMAND_RATE_PER" env-default:"3s"`
		Burst    int           `env:"COMMAND_RATE_BURST" env-default:"5"`
	}
}

var (
	once    sync.Once
	cfg     *Config
	loadErr error
)

func New() (*Config, error) {
	once.Do(func() {
		c := &Config{}
		if err := cleanenv.ReadEnv(c); err != nil {
			help, _ := cleanenv.GetDescription(c, nil)
			loadErr = fmt.Errorf("failed to read configuration: %w\n%s", err, help)
			return
		}
		cfg = c
	})
	return cfg, loadErr
}

func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Config struct {
	Env            string `env:"ENVIRONMENT"`
	ServerPort     int    `env:"SERVER_PORT" envDefault:"3001"`
	BasicAuthCreds string `env:"BASIC_AUTH_CREDS"`
	DatabasePath   string `env:"DATABASE_PATH" envDefault:"pricewatch.sqlite"`

	// ScrapeDoToken authorizes the scrape.do rendering proxy. Without it the
	// fetcher refuses to run before touching the network.
	ScrapeDoToken string `env:"SCRAPE_DO_TOKEN"`
	OpenAIAPIKey  string `env:"OPENAI_API_KEY"`

	// SchedulerTick is the fixed wakeup period of the scheduler loop. It is
	// deliberately a separate knob from the per-monitor check interval, which
	// is operator-configured and lives in the settings row.
	SchedulerTick    time.Duration `env:"SCHEDULER_TICK" envDefault:"60s"`
	CheckPacing      time.Duration `env:"CHECK_PACING" envDefault:"2s"`
	CheckBatchSize   int           `env:"CHECK_BATCH_SIZE" envDefault:"5"`
	MaxContentLength int           `env:"MAX_CONTENT_LENGTH" envDefault:"50000"`

	log   *zap.Logger
	creds map[string]string
}

func NewConfig(lc fx.Lifecycle, log *zap.Logger) (*Config, error) {
	cfg := &Config{log: log}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	creds, err := cfg.parseCreds()
	if err != nil {
		log.Sugar().Infof("%s (admin API will run without auth)", err)
		creds = nil
	}
	cfg.creds = creds

	return cfg, nil
}

func (cfg *Config) GetCreds() map[string]string {
	return cfg.creds
}

func (cfg *Config) parseCreds() (map[string]string, error) {
	if cfg.BasicAuthCreds == "" {
		return nil, fmt.Errorf("BASIC_AUTH_CREDS envvar is not populated")
	}

	result := make(map[string]string)
	for _, cred := range strings.Split(cfg.BasicAuthCreds, ",") {
		userPass := strings.Split(cred, ":")
		if len(userPass) != 2 {
			return nil, fmt.Errorf("failed to parse '%s', each credential should be delimited by a colon -- user1:pass1,user2:pass2", cred)
		}

		user, pass := userPass[0], userPass[1]
		result[strings.Trim(user, " ")] = strings.Trim(pass, " ")
	}

	return result, nil
}

package config

import (
	"errors"
	"flag"
	"log"

	"github.com/caarlos0/env/v11"

	"github.com/taskgold/engine/internal/constants"
)

type Config struct {
	TelegramToken   string `env:"TELEGRAM_TOKEN"`
	OperatorChatID  int64  `env:"OPERATOR_CHAT_ID"`
	StoreBackend    string `env:"STORE_BACKEND" envDefault:"sheets"`
	SpreadsheetID   string `env:"SPREADSHEET_ID"`
	GoogleCredsJSON string `env:"GOOGLE_CREDS_JSON"`
	RunAddr         string `env:"RUN_ADDRESS" envDefault:":8080"`
	OpsToken        string `env:"OPS_TOKEN"`
	LockFile        string `env:"LOCK_FILE" envDefault:"taskgold.lock"`
	PayoutCronSpec  string `env:"PAYOUT_CRON"`
	ReclaimCronSpec string `env:"RECLAIM_CRON"`
}

func NewConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	flag.StringVar(&cfg.RunAddr, "a", cfg.RunAddr, "ops server address")
	flag.StringVar(&cfg.StoreBackend, "s", cfg.StoreBackend, "store backend: sheets or memory")
	flag.StringVar(&cfg.LockFile, "l", cfg.LockFile, "instance lock file")
	flag.Parse()

	if cfg.PayoutCronSpec == "" {
		cfg.PayoutCronSpec = constants.DefaultPayoutCronSpec
	}
	if cfg.ReclaimCronSpec == "" {
		cfg.ReclaimCronSpec = constants.DefaultReclaimCronSpec
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	log.Printf("Config loaded: backend=%s, RunAddr=%s, operator=%d, payout cron=%q, reclaim cron=%q",
		cfg.StoreBackend, cfg.RunAddr, cfg.OperatorChatID, cfg.PayoutCronSpec, cfg.ReclaimCronSpec)
	return cfg, nil
}

func (c *Config) validate() error {
	if c.TelegramToken == "" {
		return errors.New("TELEGRAM_TOKEN is required")
	}
	if c.OperatorChatID == 0 {
		return errors.New("OPERATOR_CHAT_ID is required")
	}
	switch c.StoreBackend {
	case "sheets":
		if c.SpreadsheetID == "" {
			return errors.New("SPREADSHEET_ID is required for the sheets backend")
		}
		if c.GoogleCredsJSON == "" {
			return errors.New("GOOGLE_CREDS_JSON is required for the sheets backend")
		}
	case "memory":
		log.Printf("Using the in-memory store: all data is lost on restart")
	default:
		return errors.New("STORE_BACKEND must be sheets or memory")
	}
	return nil
}

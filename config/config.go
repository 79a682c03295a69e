package config

import (
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	postgres_wrapper "github.com/joripage/ordermatch-dev/pkg/infra/postgres"
	redis_wrapper "github.com/joripage/ordermatch-dev/pkg/infra/redis"
	"github.com/joripage/ordermatch-dev/pkg/tradefeed"
)

type AppConfig struct {
	ServiceName string                           `yaml:"service_name"`
	MetricsAddr string                           `yaml:"metrics_addr"`
	LedgerDB    *postgres_wrapper.PostgresConfig `yaml:"ledger_db"`
	Redis       *redis_wrapper.RedisConfig       `yaml:"redis"`
	TradeFeed   *tradefeed.Config                `yaml:"trade_feed"`
}

// Load load config from file and environment variables.
func Load(filePath string) (*AppConfig, error) {
	if len(filePath) == 0 {
		filePath = os.Getenv("CONFIG_FILE")
	}

	fields := []interface{}{
		"func",
		"config.readFromFile",
		"filePath",
		filePath,
	}

	sugar := zap.S().With(fields...)

	sugar.Debug("Load config...")

	configBytes, err := os.ReadFile(filePath)
	if err != nil {
		sugar.Error("Failed to load config file")
		return nil, err
	}
	configBytes = []byte(os.ExpandEnv(string(configBytes)))

	cfg := &AppConfig{}

	err = yaml.Unmarshal(configBytes, cfg)
	if err != nil {
		sugar.Error("Failed to parse config file")
		return nil, err
	}

	zap.S().Debugf("config: %+v", cfg)

	return cfg, nil
}

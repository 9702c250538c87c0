package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	osclient "github.com/ThreeSixtyGiving/grantnav/internal/opensearch/client"
	"github.com/ThreeSixtyGiving/grantnav/pkg/logger"
)

// Config - полная конфигурация сервиса
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	OpenSearch *osclient.Config `mapstructure:"opensearch" validate:"required"`
	Logger     *logger.Config   `mapstructure:"logger" validate:"required"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Import     ImportConfig     `mapstructure:"import"`
	OrgCache   OrgCacheConfig   `mapstructure:"org_cache"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr" validate:"required"`
	// Максимальное количество результатов, отдаваемых в csv/json выгрузку
	DownloadLimit int `mapstructure:"download_limit" validate:"min=0"`
}

type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

type ImportConfig struct {
	BatchSize  int     `mapstructure:"batch_size" validate:"min=1"`
	MaxRetries int     `mapstructure:"max_retries" validate:"min=1,max=10"`
	Backoff    float64 `mapstructure:"backoff" validate:"min=1"`
}

type OrgCacheConfig struct {
	MaxEntries int `mapstructure:"max_entries" validate:"min=1"`
}

// Load читает конфигурацию из yaml файла и переменных окружения GRANTNAV_*
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.download_limit", 500000)
	v.SetDefault("metrics.addr", ":8091")
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.encoding", "json")
	v.SetDefault("opensearch.url", "http://localhost:9200")
	v.SetDefault("opensearch.index_name", "threesixtygiving")
	v.SetDefault("opensearch.timeout", "30s")
	v.SetDefault("opensearch.max_retries", 3)
	v.SetDefault("opensearch.max_idle_conns", 10)
	v.SetDefault("opensearch.insecure_skip_verify", true)
	v.SetDefault("opensearch.retry_on_status", []int{502, 503, 504, 429})
	v.SetDefault("import.batch_size", 500)
	v.SetDefault("import.max_retries", 5)
	v.SetDefault("import.backoff", 2.0)
	v.SetDefault("org_cache.max_entries", 300000)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix("GRANTNAV")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

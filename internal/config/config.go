package config

import (
	"github.com/spf13/viper"
)

// Config stores all configuration for the application.
type Config struct {
	WarehouseURL    string `mapstructure:"WAREHOUSE_URL"`
	WarehouseSchema string `mapstructure:"WAREHOUSE_SCHEMA"`
	RedisAddr       string `mapstructure:"REDIS_ADDR"`
	MetricsAddr     string `mapstructure:"METRICS_ADDR"`

	GitHubToken     string `mapstructure:"GITHUB_TOKEN"`
	GitHubAPIURL    string `mapstructure:"GITHUB_API_URL"`
	PyPIAPIURL      string `mapstructure:"PYPI_API_URL"`
	PyPIStatsAPIURL string `mapstructure:"PYPISTATS_API_URL"`

	FetchDelaySeconds  int `mapstructure:"FETCH_DELAY_SECONDS"`
	CooldownSeconds    int `mapstructure:"RATE_LIMIT_COOLDOWN_SECONDS"`
	HTTPTimeoutSeconds int `mapstructure:"HTTP_TIMEOUT_SECONDS"`
	RunLockTTLMinutes  int `mapstructure:"RUN_LOCK_TTL_MINUTES"`

	GitHubRepos  []string `mapstructure:"GITHUB_REPOS"`
	PyPIPackages []string `mapstructure:"PYPI_PACKAGES"`
}

// Load reads configuration from file or environment variables.
func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.SetConfigType("env")
	viper.AutomaticEnv()

	// Attempt to read the .env file, but don't fail if it's not present
	// This allows configuration purely through environment variables in production
	_ = viper.ReadInConfig()

	// Set default values
	viper.SetDefault("WAREHOUSE_SCHEMA", "raw_data")
	viper.SetDefault("GITHUB_API_URL", "https://api.github.com")
	viper.SetDefault("PYPI_API_URL", "https://pypi.org/pypi")
	viper.SetDefault("PYPISTATS_API_URL", "https://pypistats.org/api")
	viper.SetDefault("FETCH_DELAY_SECONDS", 1)
	viper.SetDefault("RATE_LIMIT_COOLDOWN_SECONDS", 60)
	viper.SetDefault("HTTP_TIMEOUT_SECONDS", 30)
	viper.SetDefault("RUN_LOCK_TTL_MINUTES", 10)

	// Tracked technologies. Both catalogs cover the same ten projects, one
	// keyed by repository name, one by package name.
	viper.SetDefault("GITHUB_REPOS", []string{
		"apache/airflow",
		"dbt-labs/dbt-core",
		"apache/spark",
		"pandas-dev/pandas",
		"sqlalchemy/sqlalchemy",
		"great-expectations/great_expectations",
		"prefecthq/prefect",
		"apache/kafka",
		"snowflakedb/snowflake-connector-python",
		"duckdb/duckdb",
	})
	viper.SetDefault("PYPI_PACKAGES", []string{
		"apache-airflow",
		"dbt-core",
		"pyspark",
		"pandas",
		"sqlalchemy",
		"great-expectations",
		"prefect",
		"kafka-python",
		"snowflake-connector-python",
		"duckdb",
	})

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Source   SourceConfig   `yaml:"source" mapstructure:"source"`
	Pipeline PipelineConfig `yaml:"pipeline" mapstructure:"pipeline"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// SourceConfig configures the upstream permit data endpoints.
type SourceConfig struct {
	FeatureServiceURL string `yaml:"feature_service_url" mapstructure:"feature_service_url"`
	CSVURL            string `yaml:"csv_url" mapstructure:"csv_url"`
	CSVPath           string `yaml:"csv_path" mapstructure:"csv_path"`
	UserAgent         string `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs       int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// PipelineConfig configures the transformation behavior.
type PipelineConfig struct {
	WindowMonths int     `yaml:"window_months" mapstructure:"window_months"`
	MinValue     float64 `yaml:"min_value" mapstructure:"min_value"`
}

// ServerConfig configures the API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("PERMITS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "permits.db")
	v.SetDefault("source.feature_service_url", "https://services1.arcgis.com/qAo1OsXi67t7XgmS/arcgis/rest/services/Building_Permits/FeatureServer/0/query?where=1%3D1&outFields=*&f=json")
	v.SetDefault("source.csv_url", "https://open-kitchenergis.opendata.arcgis.com/datasets/building-permits.csv")
	v.SetDefault("source.csv_path", "building_permits.csv")
	v.SetDefault("source.user_agent", "permit-leads/1.0")
	v.SetDefault("source.timeout_secs", 30)
	v.SetDefault("pipeline.window_months", 12)
	v.SetDefault("pipeline.min_value", 10000)
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the configuration for the given run mode. Modes map to the
// CLI commands: "fetch" needs a reachable source, "run" needs source and
// store, "serve" needs store and a usable port, "export" needs only the store.
func (c *Config) Validate(mode string) error {
	var problems []string

	checkStore := func() {
		if c.Store.Driver != "sqlite" && c.Store.Driver != "postgres" {
			problems = append(problems, "store.driver must be sqlite or postgres")
		}
		if c.Store.DatabaseURL == "" {
			problems = append(problems, "store.database_url is required")
		}
	}
	checkSource := func() {
		if c.Source.FeatureServiceURL == "" && c.Source.CSVURL == "" && c.Source.CSVPath == "" {
			problems = append(problems, "source requires a feature_service_url, csv_url, or csv_path")
		}
		if c.Source.TimeoutSecs <= 0 {
			problems = append(problems, "source.timeout_secs must be > 0")
		}
	}
	checkPipeline := func() {
		if c.Pipeline.WindowMonths < 1 || c.Pipeline.WindowMonths > 120 {
			problems = append(problems, "pipeline.window_months must be between 1 and 120")
		}
		if c.Pipeline.MinValue < 0 {
			problems = append(problems, "pipeline.min_value must be >= 0")
		}
	}

	switch mode {
	case "fetch":
		checkSource()
	case "run":
		checkSource()
		checkStore()
		checkPipeline()
	case "serve":
		checkStore()
		checkPipeline()
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			problems = append(problems, "server.port must be > 0 and <= 65535")
		}
	case "export":
		checkStore()
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.Errorf("config: invalid configuration: %s", strings.Join(problems, "; "))
	}

	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}

package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

var ErrDatabaseURLRequired = errors.New("database url is required")

type Config struct {
	Debug            bool          `yaml:"debug" env:"DEBUG"`
	Host             string        `yaml:"host" env:"HOST"`
	Port             string        `yaml:"port" env:"PORT"`
	DatabaseURL      string        `yaml:"database_url" env:"DATABASE_URL"`
	MigrationSource  string        `yaml:"migration_source" env:"MIGRATION_SOURCE"`
	OtelCollectorUrl string        `yaml:"otel_collector_url" env:"OTEL_COLLECTOR_URL"`
	AllowOrigins     []string      `yaml:"allow_origins" env:"ALLOW_ORIGINS"`
	SessionMaxIdle   time.Duration `yaml:"session_max_idle" env:"SESSION_MAX_IDLE"`
}

func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return ErrDatabaseURLRequired
	}
	return nil
}

// Log buffers configuration-time messages until the real logger exists.
type Log struct {
	entries []entry
}

type entry struct {
	level   string
	message string
	fields  []zap.Field
}

func (l *Log) info(message string, fields ...zap.Field) {
	l.entries = append(l.entries, entry{level: "info", message: message, fields: fields})
}

func (l *Log) warn(message string, fields ...zap.Field) {
	l.entries = append(l.entries, entry{level: "warn", message: message, fields: fields})
}

// FlushToZap replays buffered messages onto the initialized logger.
func (l *Log) FlushToZap(logger *zap.Logger) {
	for _, e := range l.entries {
		switch e.level {
		case "warn":
			logger.Warn(e.message, e.fields...)
		default:
			logger.Info(e.message, e.fields...)
		}
	}
	l.entries = nil
}

// Load assembles the configuration in ascending precedence: defaults, yaml
// config file, .env file, environment variables, then command line flags.
func Load() (Config, *Log) {
	cfgLog := &Log{}

	cfg := Config{
		Host:            "localhost",
		Port:            "8080",
		MigrationSource: "file://internal/database/migrations",
		SessionMaxIdle:  2 * time.Hour,
	}

	cfg = loadYamlFile(cfg, "config.yaml", cfgLog)
	cfg = loadEnvFile(cfg, cfgLog)
	cfg = loadEnv(cfg, cfgLog)
	cfg = loadFlags(cfg)

	return cfg, cfgLog
}

func loadYamlFile(cfg Config, path string, cfgLog *Log) Config {
	content, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			cfgLog.warn("Failed to read config file", zap.String("path", path), zap.Error(err))
		}
		return cfg
	}

	fileCfg := cfg
	if err := yaml.Unmarshal(content, &fileCfg); err != nil {
		cfgLog.warn("Failed to parse config file, ignoring it", zap.String("path", path), zap.Error(err))
		return cfg
	}

	cfgLog.info("Loaded config file", zap.String("path", path))
	return fileCfg
}

func loadEnvFile(cfg Config, cfgLog *Log) Config {
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			cfgLog.warn("Failed to load .env file", zap.Error(err))
		}
		return cfg
	}

	cfgLog.info("Loaded .env file")
	return cfg
}

func loadEnv(cfg Config, cfgLog *Log) Config {
	if v := os.Getenv("DEBUG"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			cfgLog.warn("Invalid DEBUG value, ignoring it", zap.String("value", v))
		} else {
			cfg.Debug = parsed
		}
	}
	if v := os.Getenv("HOST"); v != "" {
		cfg.Host = v
	}
	if v := os.Getenv("PORT"); v != "" {
		cfg.Port = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("MIGRATION_SOURCE"); v != "" {
		cfg.MigrationSource = v
	}
	if v := os.Getenv("OTEL_COLLECTOR_URL"); v != "" {
		cfg.OtelCollectorUrl = v
	}
	if v := os.Getenv("ALLOW_ORIGINS"); v != "" {
		cfg.AllowOrigins = splitOrigins(v)
	}
	if v := os.Getenv("SESSION_MAX_IDLE"); v != "" {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			cfgLog.warn("Invalid SESSION_MAX_IDLE value, ignoring it", zap.String("value", v))
		} else {
			cfg.SessionMaxIdle = parsed
		}
	}
	return cfg
}

func loadFlags(cfg Config) Config {
	if flag.Parsed() {
		return cfg
	}

	debug := flag.Bool("debug", cfg.Debug, "enable debug mode")
	host := flag.String("host", cfg.Host, "server host")
	port := flag.String("port", cfg.Port, "server port")
	databaseURL := flag.String("database_url", cfg.DatabaseURL, "database connection url")
	migrationSource := flag.String("migration_source", cfg.MigrationSource, "database migration source")
	flag.Parse()

	cfg.Debug = *debug
	cfg.Host = *host
	cfg.Port = *port
	cfg.DatabaseURL = *databaseURL
	cfg.MigrationSource = *migrationSource
	return cfg
}

func splitOrigins(value string) []string {
	var origins []string
	for _, origin := range strings.Split(value, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}

func (c Config) String() string {
	masked := c
	if masked.DatabaseURL != "" {
		masked.DatabaseURL = "********"
	}
	return fmt.Sprintf("%+v", masked)
}

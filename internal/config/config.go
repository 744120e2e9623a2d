package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"ddtft/internal/grammar"
	"ddtft/internal/layout"
	"ddtft/internal/lineitem"
	"ddtft/internal/pipeline"
	"ddtft/internal/totals"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig
	DB         DBConfig
	JWT        JWTConfig
	S3         S3Config
	Redis      RedisConfig
	Log        LogConfig
	Extraction ExtractionConfig
	Batch      BatchConfig
	Export     ExportConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Environment  string        `mapstructure:"environment"`
	// MaxUploadMB caps uploaded PDF size.
	MaxUploadMB int64 `mapstructure:"max_upload_mb"`
	// CORSOrigins is a comma separated allow list.
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxOpen  int    `mapstructure:"max_open"`
	MaxIdle  int    `mapstructure:"max_idle"`
}

// DSN returns the PostgreSQL connection string.
func (d *DBConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// JWTConfig holds bearer-token verification settings.
type JWTConfig struct {
	Secret string `mapstructure:"secret"`
	Issuer string `mapstructure:"issuer"`
	// Disabled turns authentication off, for local use only.
	Disabled bool `mapstructure:"disabled"`
}

// S3Config holds the source archive settings. An empty bucket disables archival.
type S3Config struct {
	Region    string `mapstructure:"region"`
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`

	// PresignExpiry is the lifetime in seconds of source download links.
	PresignExpiry int64 `mapstructure:"presign_expiry"`
}

// RedisConfig holds the result cache settings. An empty address disables caching.
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
	Prefix   string        `mapstructure:"prefix"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ExtractionConfig holds the engine thresholds.
type ExtractionConfig struct {
	ColumnBoundary           float64       `mapstructure:"column_boundary"`
	MinColumnGap             float64       `mapstructure:"min_column_gap"`
	Separator                string        `mapstructure:"separator"`
	ToleranceRatio           float64       `mapstructure:"tolerance_ratio"`
	QuantityConfirmThreshold int64         `mapstructure:"quantity_confirm_threshold"`
	Timeout                  time.Duration `mapstructure:"timeout"`
	ProfilePath              string        `mapstructure:"profile_path"`
	TotalsTailLines          int           `mapstructure:"totals_tail_lines"`
}

// BatchConfig holds batch extraction settings.
type BatchConfig struct {
	Concurrency int `mapstructure:"concurrency"`
}

// ExportConfig holds spreadsheet export settings.
type ExportConfig struct {
	SheetName string `mapstructure:"sheet_name"`
}

// EngineOptions converts the extraction settings into pipeline options. The
// grammar profile is loaded from ProfilePath when set.
func (c *Config) EngineOptions() (pipeline.Options, error) {
	opts := pipeline.DefaultOptions()
	e := c.Extraction

	if e.ProfilePath != "" {
		p, err := grammar.LoadProfile(e.ProfilePath)
		if err != nil {
			return opts, fmt.Errorf("config.EngineOptions: %w", err)
		}
		opts.Profile = p
	}

	opts.Layout = layout.Options{
		ColumnBoundary: e.ColumnBoundary,
		MinColumnGap:   e.MinColumnGap,
		Separator:      e.Separator,
		MinGapSpaces:   layout.DefaultOptions().MinGapSpaces,
	}
	tol := decimal.NewFromFloat(e.ToleranceRatio)
	opts.LineItems = lineitem.Options{
		ToleranceRatio:           tol,
		QuantityConfirmThreshold: decimal.NewFromInt(e.QuantityConfirmThreshold),
	}
	opts.Totals = totals.Options{ToleranceRatio: tol, TailLines: e.TotalsTailLines}
	opts.Timeout = e.Timeout
	opts.Concurrency = c.Batch.Concurrency
	return opts, nil
}

// Load reads configuration from environment variables with the DDTFT_ prefix.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("DDTFT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Server defaults
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.max_upload_mb", 20)
	v.SetDefault("server.cors_origins", "http://localhost:3000,http://127.0.0.1:3000")

	// DB defaults
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "ddtft")
	v.SetDefault("db.password", "ddtft_secret")
	v.SetDefault("db.name", "ddtft_db")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.max_open", 25)
	v.SetDefault("db.max_idle", 10)

	// JWT defaults
	v.SetDefault("jwt.secret", "change-me-in-production")
	v.SetDefault("jwt.issuer", "ddtft")
	v.SetDefault("jwt.disabled", false)

	// S3 defaults
	v.SetDefault("s3.region", "eu-south-1")
	v.SetDefault("s3.bucket", "")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.presign_expiry", 900)

	// Redis defaults
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", "24h")
	v.SetDefault("redis.prefix", "ddtft:")

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Extraction defaults
	v.SetDefault("extraction.column_boundary", 265)
	v.SetDefault("extraction.min_column_gap", 100)
	v.SetDefault("extraction.separator", "|")
	v.SetDefault("extraction.tolerance_ratio", 0.01)
	v.SetDefault("extraction.quantity_confirm_threshold", 200)
	v.SetDefault("extraction.timeout", "10s")
	v.SetDefault("extraction.profile_path", "")
	v.SetDefault("extraction.totals_tail_lines", 15)

	v.SetDefault("batch.concurrency", 4)
	v.SetDefault("export.sheet_name", "Documenti")

	// Bind environment variables explicitly for nested keys
	envBindings := map[string]string{
		"server.port":                           "DDTFT_SERVER_PORT",
		"server.read_timeout":                   "DDTFT_SERVER_READ_TIMEOUT",
		"server.write_timeout":                  "DDTFT_SERVER_WRITE_TIMEOUT",
		"server.environment":                    "DDTFT_SERVER_ENVIRONMENT",
		"server.max_upload_mb":                  "DDTFT_SERVER_MAX_UPLOAD_MB",
		"server.cors_origins":                   "DDTFT_SERVER_CORS_ORIGINS",
		"db.host":                               "DDTFT_DB_HOST",
		"db.port":                               "DDTFT_DB_PORT",
		"db.user":                               "DDTFT_DB_USER",
		"db.password":                           "DDTFT_DB_PASSWORD",
		"db.name":                               "DDTFT_DB_NAME",
		"db.sslmode":                            "DDTFT_DB_SSLMODE",
		"db.max_open":                           "DDTFT_DB_MAX_OPEN",
		"db.max_idle":                           "DDTFT_DB_MAX_IDLE",
		"jwt.secret":                            "DDTFT_JWT_SECRET",
		"jwt.issuer":                            "DDTFT_JWT_ISSUER",
		"jwt.disabled":                          "DDTFT_JWT_DISABLED",
		"s3.region":                             "DDTFT_S3_REGION",
		"s3.bucket":                             "DDTFT_S3_BUCKET",
		"s3.endpoint":                           "DDTFT_S3_ENDPOINT",
		"s3.access_key":                         "DDTFT_S3_ACCESS_KEY",
		"s3.secret_key":                         "DDTFT_S3_SECRET_KEY",
		"s3.presign_expiry":                     "DDTFT_S3_PRESIGN_EXPIRY",
		"redis.addr":                            "DDTFT_REDIS_ADDR",
		"redis.password":                        "DDTFT_REDIS_PASSWORD",
		"redis.db":                              "DDTFT_REDIS_DB",
		"redis.ttl":                             "DDTFT_REDIS_TTL",
		"redis.prefix":                          "DDTFT_REDIS_PREFIX",
		"log.level":                             "DDTFT_LOG_LEVEL",
		"log.format":                            "DDTFT_LOG_FORMAT",
		"extraction.column_boundary":            "DDTFT_EXTRACTION_COLUMN_BOUNDARY",
		"extraction.min_column_gap":             "DDTFT_EXTRACTION_MIN_COLUMN_GAP",
		"extraction.separator":                  "DDTFT_EXTRACTION_SEPARATOR",
		"extraction.tolerance_ratio":            "DDTFT_EXTRACTION_TOLERANCE_RATIO",
		"extraction.quantity_confirm_threshold": "DDTFT_EXTRACTION_QUANTITY_CONFIRM_THRESHOLD",
		"extraction.timeout":                    "DDTFT_EXTRACTION_TIMEOUT",
		"extraction.profile_path":               "DDTFT_EXTRACTION_PROFILE_PATH",
		"extraction.totals_tail_lines":          "DDTFT_EXTRACTION_TOTALS_TAIL_LINES",
		"batch.concurrency":                     "DDTFT_BATCH_CONCURRENCY",
		"export.sheet_name":                     "DDTFT_EXPORT_SHEET_NAME",
	}
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	cfg := &Config{}

	// Hosting platforms set a PORT env var. Use it if DDTFT_SERVER_PORT is not explicitly set.
	serverPort := v.GetString("server.port")
	if port := os.Getenv("PORT"); port != "" && os.Getenv("DDTFT_SERVER_PORT") == "" {
		serverPort = ":" + port
	}

	cfg.Server = ServerConfig{
		Port:         serverPort,
		ReadTimeout:  v.GetDuration("server.read_timeout"),
		WriteTimeout: v.GetDuration("server.write_timeout"),
		Environment:  v.GetString("server.environment"),
		MaxUploadMB:  v.GetInt64("server.max_upload_mb"),
		CORSOrigins:  splitList(v.GetString("server.cors_origins")),
	}
	cfg.DB = DBConfig{
		Host:     v.GetString("db.host"),
		Port:     v.GetInt("db.port"),
		User:     v.GetString("db.user"),
		Password: v.GetString("db.password"),
		Name:     v.GetString("db.name"),
		SSLMode:  v.GetString("db.sslmode"),
		MaxOpen:  v.GetInt("db.max_open"),
		MaxIdle:  v.GetInt("db.max_idle"),
	}
	cfg.JWT = JWTConfig{
		Secret:   v.GetString("jwt.secret"),
		Issuer:   v.GetString("jwt.issuer"),
		Disabled: v.GetBool("jwt.disabled"),
	}
	cfg.S3 = S3Config{
		Region:        v.GetString("s3.region"),
		Bucket:        v.GetString("s3.bucket"),
		Endpoint:      v.GetString("s3.endpoint"),
		AccessKey:     v.GetString("s3.access_key"),
		SecretKey:     v.GetString("s3.secret_key"),
		PresignExpiry: v.GetInt64("s3.presign_expiry"),
	}
	cfg.Redis = RedisConfig{
		Addr:     v.GetString("redis.addr"),
		Password: v.GetString("redis.password"),
		DB:       v.GetInt("redis.db"),
		TTL:      v.GetDuration("redis.ttl"),
		Prefix:   v.GetString("redis.prefix"),
	}
	cfg.Log = LogConfig{
		Level:  v.GetString("log.level"),
		Format: v.GetString("log.format"),
	}
	cfg.Extraction = ExtractionConfig{
		ColumnBoundary:           v.GetFloat64("extraction.column_boundary"),
		MinColumnGap:             v.GetFloat64("extraction.min_column_gap"),
		Separator:                v.GetString("extraction.separator"),
		ToleranceRatio:           v.GetFloat64("extraction.tolerance_ratio"),
		QuantityConfirmThreshold: v.GetInt64("extraction.quantity_confirm_threshold"),
		Timeout:                  v.GetDuration("extraction.timeout"),
		ProfilePath:              v.GetString("extraction.profile_path"),
		TotalsTailLines:          v.GetInt("extraction.totals_tail_lines"),
	}
	cfg.Batch = BatchConfig{Concurrency: v.GetInt("batch.concurrency")}
	cfg.Export = ExportConfig{SheetName: v.GetString("export.sheet_name")}

	if cfg.Extraction.ToleranceRatio < 0 {
		return nil, fmt.Errorf("config.Load: extraction.tolerance_ratio must not be negative")
	}
	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/Abdurahmanit/GroupProject/marketplace-service/internal/platform/logger"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const defaultJWTSecret = "change-me-marketplace-secret"

// Store backends.
const (
	StoreBackendMemory = "memory"
	StoreBackendMongo  = "mongo"
)

// Config holds all configuration for the service.
type Config struct {
	ServiceName string `mapstructure:"SERVICE_NAME"`
	HTTPPort    string `mapstructure:"HTTP_PORT"`
	GRPCPort    string `mapstructure:"GRPC_PORT"`

	StoreBackend  string `mapstructure:"STORE_BACKEND"`
	MongoURI      string `mapstructure:"MONGO_URI"`
	MongoDatabase string `mapstructure:"MONGO_DATABASE"`

	RedisAddr     string        `mapstructure:"REDIS_ADDR"`
	RedisPassword string        `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int           `mapstructure:"REDIS_DB"`
	CacheTTL      time.Duration `mapstructure:"CACHE_TTL"`

	NATSURL string `mapstructure:"NATS_URL"`

	MinioEndpoint  string `mapstructure:"MINIO_ENDPOINT"`
	MinioAccessKey string `mapstructure:"MINIO_ACCESS_KEY"`
	MinioSecretKey string `mapstructure:"MINIO_SECRET_KEY"`
	MinioBucket    string `mapstructure:"MINIO_BUCKET"`
	MinioUseSSL    bool   `mapstructure:"MINIO_USE_SSL"`

	SMTPHost        string `mapstructure:"SMTP_HOST"`
	SMTPPort        int    `mapstructure:"SMTP_PORT"`
	SMTPUsername    string `mapstructure:"SMTP_USERNAME"`
	SMTPPassword    string `mapstructure:"SMTP_PASSWORD"`
	SaleNotifyEmail string `mapstructure:"SALE_NOTIFY_EMAIL"`

	JWTSecret           string `mapstructure:"JWT_SECRET"`
	MarketplaceOwner    string `mapstructure:"MARKETPLACE_OWNER"`
	MarketplaceOperator string `mapstructure:"MARKETPLACE_OPERATOR"`

	PrometheusMetricsPort  string `mapstructure:"PROMETHEUS_METRICS_PORT"`
	LogLevel               string `mapstructure:"LOG_LEVEL"`
	LogFormat              string `mapstructure:"LOG_FORMAT"`
	OTExporterOTLPEndpoint string  `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	TraceSampleRatio       float64 `mapstructure:"TRACE_SAMPLE_RATIO"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVICE_NAME", "marketplace-service")
	v.SetDefault("HTTP_PORT", "8084")
	v.SetDefault("GRPC_PORT", "50054")
	v.SetDefault("STORE_BACKEND", StoreBackendMemory)
	v.SetDefault("MONGO_URI", "")
	v.SetDefault("MONGO_DATABASE", "marketplace")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("CACHE_TTL", time.Hour)
	v.SetDefault("NATS_URL", "")
	v.SetDefault("MINIO_ENDPOINT", "")
	v.SetDefault("MINIO_ACCESS_KEY", "")
	v.SetDefault("MINIO_SECRET_KEY", "")
	v.SetDefault("MINIO_BUCKET", "marketplace-events")
	v.SetDefault("MINIO_USE_SSL", false)
	v.SetDefault("SMTP_HOST", "")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("SMTP_USERNAME", "")
	v.SetDefault("SMTP_PASSWORD", "")
	v.SetDefault("SALE_NOTIFY_EMAIL", "")
	v.SetDefault("JWT_SECRET", defaultJWTSecret)
	v.SetDefault("MARKETPLACE_OWNER", "")
	v.SetDefault("MARKETPLACE_OPERATOR", "marketplace")
	v.SetDefault("PROMETHEUS_METRICS_PORT", "9094")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("TRACE_SAMPLE_RATIO", 1.0)
}

// LoadConfig reads configuration from environment variables (a .env file is loaded by main).
func LoadConfig(appLogger *logger.Logger) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		appLogger.Error("Failed to unmarshal configuration", zap.Error(err))
		return nil, err
	}
	cfg.StoreBackend = strings.ToLower(cfg.StoreBackend)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	for _, w := range cfg.Warnings() {
		appLogger.Warn(w)
	}

	appLogger.Debug("Configuration loaded",
		zap.String("service_name", cfg.ServiceName),
		zap.String("http_port", cfg.HTTPPort),
		zap.String("grpc_port", cfg.GRPCPort),
		zap.String("store_backend", cfg.StoreBackend),
		zap.Bool("mongo_uri_present", cfg.MongoURI != ""),
		zap.String("redis_addr", cfg.RedisAddr),
		zap.String("nats_url", cfg.NATSURL),
		zap.String("minio_endpoint", cfg.MinioEndpoint),
		zap.Bool("smtp_enabled", cfg.SMTPHost != ""),
		zap.String("prometheus_port", cfg.PrometheusMetricsPort),
		zap.String("otel_endpoint", cfg.OTExporterOTLPEndpoint),
	)
	return &cfg, nil
}

// Warnings describes settings the service starts with but an operator should revisit.
func (c *Config) Warnings() []string {
	var out []string
	if c.JWTSecret == defaultJWTSecret {
		out = append(out, "JWT_SECRET is set to its default insecure value. Please set a strong secret in your environment.")
	}
	if c.MarketplaceOwner == "" {
		out = append(out, "MARKETPLACE_OWNER is not set; administrative endpoints will reject every caller.")
	}
	if c.StoreBackend == StoreBackendMongo {
		out = append(out, "Listings persist in MongoDB but asset holdings and wallet balances are kept in memory; "+
			"after a restart every stored listing is orphaned until its asset is minted again.")
	}
	return out
}

// Validate rejects configurations the service cannot start with.
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case StoreBackendMemory:
	case StoreBackendMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("MONGO_URI is required when STORE_BACKEND=%s", StoreBackendMongo)
		}
		if c.MongoDatabase == "" {
			return fmt.Errorf("MONGO_DATABASE is required when STORE_BACKEND=%s", StoreBackendMongo)
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}
	if c.MarketplaceOperator == "" {
		return fmt.Errorf("MARKETPLACE_OPERATOR cannot be empty")
	}
	if c.TraceSampleRatio < 0 || c.TraceSampleRatio > 1 {
		return fmt.Errorf("TRACE_SAMPLE_RATIO must be within [0, 1], got %v", c.TraceSampleRatio)
	}
	if c.HTTPPort == "" {
		return fmt.Errorf("HTTP_PORT cannot be empty")
	}
	return nil
}

package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config is the storefront API service configuration. Every key can be set
// from the environment; CONFIG_FILE optionally points at a .env or yaml file.
type Config struct {
	HTTPPort        string        `mapstructure:"HTTP_PORT"`
	GRPCPort        string        `mapstructure:"GRPC_PORT"`
	RequestTimeout  time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	ShutdownTimeout time.Duration `mapstructure:"SHUTDOWN_TIMEOUT"`
	CORSOrigins     []string      `mapstructure:"CORS_ORIGINS"`
	LogLevel        string        `mapstructure:"LOG_LEVEL"`
	LogPretty       bool          `mapstructure:"LOG_PRETTY"`

	DBHost         string `mapstructure:"DB_HOST"`
	DBPort         int    `mapstructure:"DB_PORT"`
	DBUser         string `mapstructure:"DB_USER"`
	DBPassword     string `mapstructure:"DB_PASSWORD"`
	DBName         string `mapstructure:"DB_NAME"`
	MigrationsPath string `mapstructure:"MIGRATIONS_PATH"`

	CatalogDBPath         string `mapstructure:"CATALOG_DB_PATH"`
	CatalogMigrationsPath string `mapstructure:"CATALOG_MIGRATIONS_PATH"`

	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`

	MongoURI    string `mapstructure:"MONGO_URI"`
	MongoDBName string `mapstructure:"MONGO_DB_NAME"`

	KafkaBrokers []string `mapstructure:"KAFKA_BROKERS"`
	EventsTopic  string   `mapstructure:"ORDER_EVENTS_TOPIC"`
	ConsumerGrp  string   `mapstructure:"NOTIFIER_GROUP_ID"`

	SMTPHost        string `mapstructure:"SMTP_HOST"`
	SMTPPort        int    `mapstructure:"SMTP_PORT"`
	SMTPUser        string `mapstructure:"SMTP_USER"`
	SMTPPassword    string `mapstructure:"SMTP_PASSWORD"`
	MailFrom        string `mapstructure:"MAIL_FROM"`
	AdminWebhookURL string `mapstructure:"ADMIN_WEBHOOK_URL"`
}

var serviceDefaults = map[string]interface{}{
	"HTTP_PORT":        "8000",
	"GRPC_PORT":        "50057",
	"REQUEST_TIMEOUT":  30 * time.Second,
	"SHUTDOWN_TIMEOUT": 10 * time.Second,
	"CORS_ORIGINS":     "*",
	"LOG_LEVEL":        "info",
	"LOG_PRETTY":       false,

	"DB_HOST":         "localhost",
	"DB_PORT":         5432,
	"DB_USER":         "postgres",
	"DB_PASSWORD":     "postgres",
	"DB_NAME":         "storefront",
	"MIGRATIONS_PATH": "./internal/repository/migrations",

	"CATALOG_DB_PATH":         "./catalog.db",
	"CATALOG_MIGRATIONS_PATH": "./internal/catalog/migrations",

	"REDIS_ADDR":     "localhost:6379",
	"REDIS_PASSWORD": "",

	"MONGO_URI":     "mongodb://localhost:27017",
	"MONGO_DB_NAME": "storefront",

	"KAFKA_BROKERS":      "localhost:9092",
	"ORDER_EVENTS_TOPIC": "order-events",
	"NOTIFIER_GROUP_ID":  "order-notifier",

	"SMTP_HOST":         "",
	"SMTP_PORT":         587,
	"SMTP_USER":         "",
	"SMTP_PASSWORD":     "",
	"MAIL_FROM":         "orders@swaadanna.shop",
	"ADMIN_WEBHOOK_URL": "",
}

// Load reads the service configuration.
func Load() (*Config, error) {
	v, err := newViper(serviceDefaults)
	if err != nil {
		return nil, err
	}
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

func newViper(defaults map[string]interface{}) (*viper.Viper, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetDefault("CONFIG_FILE", "")
	v.AutomaticEnv()

	if path := v.GetString("CONFIG_FILE"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}
	return v, nil
}

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"github.com/yeremiapane/restaurant-pos/database"
	"github.com/yeremiapane/restaurant-pos/utils"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Config struct {
	AppPort  string
	GinMode  string
	DBDriver string
	DBDSN    string

	JWTSecret string
	JWTTTL    time.Duration

	MidtransServerKey    string
	MidtransClientKey    string
	MidtransIsProduction bool

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	QueueCounter  string

	KafkaBrokers []string
	KafkaTopic   string

	TaxRateBps        int64
	Timezone          string
	ReconcileInterval time.Duration
	PaymentExpiry     time.Duration

	CORSOrigin    string
	SeedDemo      bool
	AdminEmail    string
	AdminPassword string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", "8080")
	v.SetDefault("GIN_MODE", "debug")
	v.SetDefault("DB_DRIVER", "mysql")
	v.SetDefault("DB_DSN", "root:@tcp(127.0.0.1:3306)/restaurant_pos?charset=utf8mb4&parseTime=True&loc=Local")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_TTL", "24h")
	v.SetDefault("MIDTRANS_SERVER_KEY", "")
	v.SetDefault("MIDTRANS_CLIENT_KEY", "")
	v.SetDefault("MIDTRANS_ENV", "sandbox")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("QUEUE_COUNTER", "db")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("KAFKA_TOPIC", "restaurant.orders")
	v.SetDefault("TAX_RATE_BPS", 0)
	v.SetDefault("TIMEZONE", "Asia/Jakarta")
	v.SetDefault("RECONCILE_INTERVAL", "5m")
	v.SetDefault("PAYMENT_EXPIRY", "24h")
	v.SetDefault("CORS_ORIGIN", "http://127.0.0.1:5500")
	v.SetDefault("SEED_DEMO", false)
	v.SetDefault("ADMIN_EMAIL", "")
	v.SetDefault("ADMIN_PASSWORD", "")
}

// LoadConfig reads .env (if present), an optional config file and the environment.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		utils.InfoLogger.Infof("No .env file loaded: %v", err)
	}
	return Load(viper.New())
}

// Load builds a Config from an already prepared viper instance.
func Load(v *viper.Viper) (*Config, error) {
	setDefaults(v)
	v.AutomaticEnv()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{
		AppPort:              v.GetString("APP_PORT"),
		GinMode:              v.GetString("GIN_MODE"),
		DBDriver:             strings.ToLower(v.GetString("DB_DRIVER")),
		DBDSN:                v.GetString("DB_DSN"),
		JWTSecret:            v.GetString("JWT_SECRET"),
		JWTTTL:               v.GetDuration("JWT_TTL"),
		MidtransServerKey:    v.GetString("MIDTRANS_SERVER_KEY"),
		MidtransClientKey:    v.GetString("MIDTRANS_CLIENT_KEY"),
		MidtransIsProduction: strings.EqualFold(v.GetString("MIDTRANS_ENV"), "production"),
		RedisAddr:            v.GetString("REDIS_ADDR"),
		RedisPassword:        v.GetString("REDIS_PASSWORD"),
		RedisDB:              v.GetInt("REDIS_DB"),
		QueueCounter:         strings.ToLower(v.GetString("QUEUE_COUNTER")),
		KafkaBrokers:         splitList(v.GetString("KAFKA_BROKERS")),
		KafkaTopic:           v.GetString("KAFKA_TOPIC"),
		TaxRateBps:           v.GetInt64("TAX_RATE_BPS"),
		Timezone:             v.GetString("TIMEZONE"),
		ReconcileInterval:    v.GetDuration("RECONCILE_INTERVAL"),
		PaymentExpiry:        v.GetDuration("PAYMENT_EXPIRY"),
		CORSOrigin:           v.GetString("CORS_ORIGIN"),
		SeedDemo:             v.GetBool("SEED_DEMO"),
		AdminEmail:           v.GetString("ADMIN_EMAIL"),
		AdminPassword:        v.GetString("ADMIN_PASSWORD"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.DBDriver {
	case "mysql", "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	switch c.QueueCounter {
	case "db":
	case "redis":
		if c.RedisAddr == "" {
			return errors.New("QUEUE_COUNTER=redis requires REDIS_ADDR")
		}
	default:
		return fmt.Errorf("unsupported QUEUE_COUNTER %q", c.QueueCounter)
	}
	if c.TaxRateBps < 0 || c.TaxRateBps > 10000 {
		return fmt.Errorf("TAX_RATE_BPS must be between 0 and 10000")
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}
	return nil
}

// Location returns the service time zone used for order dates and queue numbers.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// InitDB opens the database selected by DB_DRIVER.
func InitDB(cfg *Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case "postgres":
		dialector = postgres.Open(cfg.DBDSN)
	case "sqlite":
		dialector = sqlite.Open(cfg.DBDSN)
	default:
		dialector = mysql.Open(cfg.DBDSN)
	}

	db, err := gorm.Open(dialector, database.GormConfig(logger.Warn))
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}
	if cfg.DBDriver == "sqlite" {
		// sqlite allows a single writer
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	return db, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

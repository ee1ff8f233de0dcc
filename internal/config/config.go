package config

import (
	"os"
	"strconv"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Config struct {
	Env      string
	LogLevel string

	DbDriver string
	DbDSN    string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	KafkaBrokers string
	KafkaTopic   string

	// Compression names the codec used for history snapshots.
	Compression string

	DraftLifetimeMonths     int
	PublishedLifetimeMonths int
	WarningWindow           time.Duration

	ScheduleCron string
	ExpireCron   string
	MetricsAddr  string
}

// LoadConfig reads the configuration from the environment. A .env file in the working
// directory is loaded first.
func LoadConfig() *Config {
	cfg := &Config{
		Env:                     getEnv("ENV", "dev"),
		LogLevel:                getEnv("LOG_LEVEL", "info"),
		DbDriver:                getEnv("DB_DRIVER", "sqlite"),
		DbDSN:                   getEnv("DB_DSN", ".tmp/catalog.db"),
		RedisAddr:               getEnv("REDIS_ADDR", ""),
		RedisPassword:           getEnv("REDIS_PASSWORD", ""),
		RedisDB:                 getEnvInt("REDIS_DB", 0),
		KafkaBrokers:            getEnv("KAFKA_BROKERS", ""),
		KafkaTopic:              getEnv("KAFKA_TOPIC", "catalog.transitions"),
		Compression:             getEnv("HISTORY_COMPRESSION", "gzip"),
		DraftLifetimeMonths:     getEnvInt("DRAFT_LIFETIME_MONTHS", 6),
		PublishedLifetimeMonths: getEnvInt("PUBLISHED_LIFETIME_MONTHS", 12),
		WarningWindow:           time.Duration(getEnvInt("EXPIRATION_WARNING_DAYS", 30)) * 24 * time.Hour,
		ScheduleCron:            getEnv("SCHEDULE_CRON", "@every 1m"),
		ExpireCron:              getEnv("EXPIRE_CRON", "@daily"),
		MetricsAddr:             getEnv("METRICS_ADDR", ":9090"),
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logrus.Warnf("invalid LOG_LEVEL %q, using info", cfg.LogLevel)
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	return cfg
}

// GetDb opens the configured database. It panics when the database cannot be opened.
func GetDb(cfg *Config) *gorm.DB {
	var dialector gorm.Dialector
	switch cfg.DbDriver {
	case "postgres":
		dialector = postgres.Open(cfg.DbDSN)
	case "sqlite":
		dialector = sqlite.Open(cfg.DbDSN)
	default:
		logrus.Fatalf("unsupported DB_DRIVER %q", cfg.DbDriver)
	}

	gormLogger := logger.Default.LogMode(logger.Warn)
	if cfg.Env == "test" {
		gormLogger = logger.Default.LogMode(logger.Silent)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormLogger})
	if err != nil {
		panic(err)
	}

	return db
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		logrus.Warnf("invalid %s %q, using %d", key, v, fallback)
		return fallback
	}

	return n
}

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is read once at startup from the environment (optionally seeded
// from a .env file).
type Config struct {
	Port string

	DatabaseURL string
	DBHost      string
	DBUser      string
	DBPassword  string
	DBName      string
	DBPort      string

	RedisAddr string
	RedisPwd  string
	RedisDB   int

	WebOrigin        string
	JWTSecret        string
	SessionTTL       time.Duration
	LastSeenThrottle time.Duration
	Location         *time.Location

	LogLevel string
	LogDir   string

	// 0 disables the sweep; overdue stays a manual action.
	OverdueSweepInterval time.Duration

	BootstrapAdmin BootstrapAdmin
}

type BootstrapAdmin struct {
	Username string
	Password string
	NIK      string
}

// LoadEnv loads envFile into the process environment if it exists.
// Variables already set win over the file.
func LoadEnv(envFile string) error {
	if envFile == "" {
		return nil
	}
	if _, err := os.Stat(envFile); err != nil {
		return nil
	}
	if err := godotenv.Load(envFile); err != nil {
		return fmt.Errorf("load %s: %w", envFile, err)
	}
	return nil
}

func Load(envFile string) (*Config, error) {
	if err := LoadEnv(envFile); err != nil {
		return nil, err
	}

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("PORT", "3001")
	v.SetDefault("DB_HOST", "127.0.0.1")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_NAME", "asset_loans")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("REDIS_ADDR", "127.0.0.1:6379")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("WEB_ORIGIN", "http://localhost:3000")
	v.SetDefault("SESSION_TTL", "12h")
	v.SetDefault("LAST_SEEN_THROTTLE", "5m")
	v.SetDefault("TIMEZONE", "Local")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("OVERDUE_SWEEP_INTERVAL", "0s")
	v.SetDefault("BOOTSTRAP_ADMIN_NIK", "0000000001")

	loc, err := time.LoadLocation(v.GetString("TIMEZONE"))
	if err != nil {
		return nil, fmt.Errorf("TIMEZONE: %w", err)
	}

	cfg := &Config{
		Port:                 v.GetString("PORT"),
		DatabaseURL:          v.GetString("DATABASE_URL"),
		DBHost:               v.GetString("DB_HOST"),
		DBUser:               v.GetString("DB_USER"),
		DBPassword:           v.GetString("DB_PASSWORD"),
		DBName:               v.GetString("DB_NAME"),
		DBPort:               v.GetString("DB_PORT"),
		RedisAddr:            v.GetString("REDIS_ADDR"),
		RedisPwd:             v.GetString("REDIS_PASSWORD"),
		RedisDB:              v.GetInt("REDIS_DB"),
		WebOrigin:            strings.TrimRight(v.GetString("WEB_ORIGIN"), "/"),
		JWTSecret:            v.GetString("JWT_SECRET"),
		SessionTTL:           v.GetDuration("SESSION_TTL"),
		LastSeenThrottle:     v.GetDuration("LAST_SEEN_THROTTLE"),
		Location:             loc,
		LogLevel:             v.GetString("LOG_LEVEL"),
		LogDir:               v.GetString("LOG_DIR"),
		OverdueSweepInterval: v.GetDuration("OVERDUE_SWEEP_INTERVAL"),
		BootstrapAdmin: BootstrapAdmin{
			Username: v.GetString("BOOTSTRAP_ADMIN_USERNAME"),
			Password: v.GetString("BOOTSTRAP_ADMIN_PASSWORD"),
			NIK:      v.GetString("BOOTSTRAP_ADMIN_NIK"),
		},
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.SessionTTL <= 0 {
		return nil, fmt.Errorf("SESSION_TTL must be positive")
	}
	return cfg, nil
}

// DSN prefers DATABASE_URL and falls back to the discrete DB_* settings.
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort,
	)
}

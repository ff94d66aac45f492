package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"

	applog "storefront/internal/log"
)

type Config struct {
	Port          string
	DBDSN         string
	LogFile       string
	AdminUser     string
	AdminPass     string
	RedisAddr     string // empty means in-process lock registry
	SweepInterval time.Duration
}

func Load() Config {
	_ = godotenv.Load() // optional .env, ignore if absent

	cfg := Config{
		Port:          getenv("PORT", "8080"),
		DBDSN:         getenv("DB_DSN", "storefront.db"),
		LogFile:       os.Getenv("LOG_FILE"),
		AdminUser:     getenv("ADMIN_USER", "admin"),
		AdminPass:     getenv("ADMIN_PASS", "admin"),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		SweepInterval: getduration("SWEEP_INTERVAL", time.Minute),
	}

	applog.Info("config.load", map[string]any{
		"port":           cfg.Port,
		"db_dsn":         cfg.DBDSN,
		"redis_addr":     cfg.RedisAddr,
		"sweep_interval": cfg.SweepInterval.String(),
	})
	return cfg
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getduration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		applog.Warn("config.bad_duration", map[string]any{"key": key, "value": v})
		return def
	}
	return d
}

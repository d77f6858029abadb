package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port                  string
	AllowedOrigin         string
	DatabaseURL           string
	RedisAddr             string
	RedisPassword         string
	RedisDB               int
	TaxRatePercent        float64
	DecomposeDepositTax   bool
	DrawerCacheTTLSeconds int
	AuthSecret            string
	AccessTokenTTLMinutes int
	NotifyWebhookURL      string
	NotifyWebhookToken    string
}

func Load() Config {
	// Local development keeps its settings in a .env file; a missing
	// file is not an error.
	_ = godotenv.Load()

	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	taxRate, err := strconv.ParseFloat(getEnv("TAX_RATE_PERCENT", "11.5"), 64)
	if err != nil || taxRate < 0 {
		taxRate = 11.5
	}
	drawerTTL, err := strconv.Atoi(getEnv("DRAWER_CACHE_TTL_SECONDS", "300"))
	if err != nil || drawerTTL < 1 {
		drawerTTL = 300
	}
	tokenTTL, err := strconv.Atoi(getEnv("ACCESS_TOKEN_TTL_MINUTES", "480"))
	if err != nil || tokenTTL < 1 {
		tokenTTL = 480
	}

	cfg := Config{
		Port:                  getEnv("PORT", "8080"),
		AllowedOrigin:         getEnv("ALLOWED_ORIGIN", "http://127.0.0.1:3000"),
		DatabaseURL:           os.Getenv("DATABASE_URL"),
		RedisAddr:             os.Getenv("REDIS_ADDR"),
		RedisPassword:         os.Getenv("REDIS_PASSWORD"),
		RedisDB:               redisDB,
		TaxRatePercent:        taxRate,
		DecomposeDepositTax:   strings.EqualFold(os.Getenv("DECOMPOSE_DEPOSIT_TAX"), "true"),
		DrawerCacheTTLSeconds: drawerTTL,
		AuthSecret:            strings.TrimSpace(os.Getenv("AUTH_SECRET")),
		AccessTokenTTLMinutes: tokenTTL,
		NotifyWebhookURL:      strings.TrimSpace(os.Getenv("NOTIFY_WEBHOOK_URL")),
		NotifyWebhookToken:    strings.TrimSpace(os.Getenv("NOTIFY_WEBHOOK_TOKEN")),
	}

	return cfg
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

func getEnv(key string, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}

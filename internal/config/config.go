package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr             string
	DatabaseURL          string
	CORSAllowedOrigins   []string
	CORSAllowCredentials bool

	JWTSecret  string
	JWTTTL     time.Duration
	AdminToken string

	// SheetFiles holds workbook paths in range order: file 1 covers client
	// numbers 1-99, file 2 covers 100-199, and so on.
	SheetFiles []string

	BotWebhookURL string

	SyncInterval   time.Duration
	NotifyDebounce time.Duration
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		HTTPAddr:             getenv("HTTP_ADDR", ":8080"),
		DatabaseURL:          mustGetenv("DATABASE_URL"),
		CORSAllowCredentials: getenv("CORS_ALLOW_CREDENTIALS", "false") == "true",
		BotWebhookURL:        getenv("BOT_WEBHOOK_URL", ""),
	}

	origins := strings.Split(getenv("CORS_ALLOWED_ORIGINS", ""), ",")
	for _, o := range origins {
		o = strings.TrimSpace(o)
		if o != "" {
			cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, o)
		}
	}

	cfg.JWTSecret = mustGetenv("JWT_SECRET")
	cfg.JWTTTL = getdur("JWT_TTL", 7*24*time.Hour)
	cfg.AdminToken = mustGetenv("ADMIN_TOKEN")

	// Workbook files are numbered SHEET_FILE_1, SHEET_FILE_2, ... and stop
	// at the first gap.
	for i := 1; ; i++ {
		v := strings.TrimSpace(os.Getenv(fmt.Sprintf("SHEET_FILE_%d", i)))
		if v == "" {
			break
		}
		cfg.SheetFiles = append(cfg.SheetFiles, v)
	}
	if len(cfg.SheetFiles) == 0 {
		panic("missing env: SHEET_FILE_1")
	}

	cfg.SyncInterval = getdur("SYNC_INTERVAL", 60*time.Second)
	cfg.NotifyDebounce = getdur("NOTIFY_DEBOUNCE", 10*time.Minute)

	return cfg, nil
}

func getenv(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func mustGetenv(key string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		panic("missing env: " + key)
	}
	return v
}

func getdur(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		panic("invalid duration in env " + key + ": " + v)
	}
	return d
}

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Setenv("HTTP_ADDR", "")
	t.Setenv("DATABASE_URL", "postgres://localhost/reviewsync")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("ADMIN_TOKEN", "token")
	t.Setenv("SHEET_FILE_1", "/data/book1.xlsx")
	t.Setenv("SHEET_FILE_2", "/data/book2.xlsx")
	// A gap stops workbook discovery.
	t.Setenv("SHEET_FILE_4", "/data/book4.xlsx")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://app.example.com, https://admin.example.com")
	t.Setenv("SYNC_INTERVAL", "30s")

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, ":8080", cfg.HTTPAddr)
	require.Equal(t, []string{"/data/book1.xlsx", "/data/book2.xlsx"}, cfg.SheetFiles)
	require.Equal(t, []string{"https://app.example.com", "https://admin.example.com"}, cfg.CORSAllowedOrigins)
	require.Equal(t, 30*time.Second, cfg.SyncInterval)
	require.Equal(t, 10*time.Minute, cfg.NotifyDebounce)
	require.Equal(t, 7*24*time.Hour, cfg.JWTTTL)
}

func TestLoadPanicsWithoutWorkbooks(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/reviewsync")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("ADMIN_TOKEN", "token")
	t.Setenv("SHEET_FILE_1", "")

	require.Panics(t, func() { _, _ = Load() })
}

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func baseEnv() map[string]string {
	return map[string]string{
		"DATABASE_URL":            "postgres://localhost:5432/printhub",
		"REDIS_URL":               "redis://localhost:6379/0",
		"JWT_SECRET":              "test-secret",
		"RAZORPAY_KEY_ID":         "rzp_test_key",
		"RAZORPAY_KEY_SECRET":     "rzp_test_secret",
		"RAZORPAY_WEBHOOK_SECRET": "rzp_test_webhook",
		"STORAGE_URL":             "https://storage.test.supabase.co",
		"STORAGE_SERVICE_KEY":     "service-key",
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadForTests(baseEnv())
	require.NoError(t, err)
	require.Equal(t, "development", cfg.AppEnv)
	require.Equal(t, ":8080", cfg.HTTPAddr())
	require.Equal(t, 15*time.Minute, cfg.AccessTokenTTL)
	require.Equal(t, "backend-printhub", cfg.JWTIssuer)
	require.Equal(t, "order-files", cfg.StorageBucket)
	require.Equal(t, 5, cfg.MaxFilesPerOrder)
	require.Equal(t, int64(25<<20), cfg.MaxUploadBytes)
}

func TestLoadOverrides(t *testing.T) {
	env := baseEnv()
	env["PORT"] = "9090"
	env["ACCESS_TOKEN_TTL"] = "5m"
	env["CORS_ALLOWED_ORIGINS"] = "https://printhub.in, https://staff.printhub.in"
	env["LOGIN_RATE_PER_MIN"] = "3"

	cfg, err := LoadForTests(env)
	require.NoError(t, err)
	require.Equal(t, ":9090", cfg.HTTPAddr())
	require.Equal(t, 5*time.Minute, cfg.AccessTokenTTL)
	require.Equal(t, []string{"https://printhub.in", "https://staff.printhub.in"}, cfg.CORSAllowedOrigins)
	require.Equal(t, 3, cfg.LoginRatePerMin)
}

func TestLoadRequiredVars(t *testing.T) {
	for _, missing := range []string{
		"DATABASE_URL", "REDIS_URL", "JWT_SECRET",
		"RAZORPAY_KEY_ID", "RAZORPAY_KEY_SECRET", "RAZORPAY_WEBHOOK_SECRET",
		"STORAGE_URL", "STORAGE_SERVICE_KEY",
	} {
		env := baseEnv()
		env[missing] = ""
		_, err := LoadForTests(env)
		require.Error(t, err, missing)
	}
}

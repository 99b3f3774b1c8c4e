package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("ALLOWED_ORIGINS", "")
	t.Setenv("RAZORPAY_CURRENCY", "")

	cfg := Load()

	assert.Equal(t, ":8787", cfg.HTTPAddr)
	assert.Equal(t, "INR", cfg.Razorpay.Currency)
	assert.Equal(t, []string{"http://localhost:5173", "https://monaarcclothing.com"}, cfg.AllowedOrigins)
	assert.Equal(t, 5*time.Second, cfg.WebhookTimeout)
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("ALLOWED_ORIGINS", " https://shop.example , ,http://localhost:3000")
	t.Setenv("RAZORPAY_CURRENCY", "usd")
	t.Setenv("WEBHOOK_TIMEOUT_SECONDS", "3")
	t.Setenv("RATE_LIMIT_ENABLED", "yes")

	cfg := Load()

	assert.Equal(t, ":9000", cfg.HTTPAddr)
	assert.Equal(t, "USD", cfg.Razorpay.Currency)
	assert.Equal(t, []string{"https://shop.example", "http://localhost:3000"}, cfg.AllowedOrigins)
	assert.Equal(t, 3*time.Second, cfg.WebhookTimeout)
	assert.True(t, cfg.RateLimit.Enabled)
}

func TestMissingSecrets(t *testing.T) {
	cfg := Config{
		Clerk:    ClerkConfig{SecretKey: "sk_test"},
		Razorpay: RazorpayConfig{KeyID: "rzp_test", KeySecret: "secret", WebhookSecret: "whsec"},
	}
	assert.Equal(t, []string{"CLERK_WEBHOOK_SECRET"}, cfg.MissingSecrets())
}

func TestDiscountPolicyDefaultsWithoutFile(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	holder, err := NewDiscountPolicyHolder(Config{}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, DefaultDiscountPolicy(), holder.Get())
}

func TestDiscountPolicyFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "discount.yml")
	require.NoError(t, os.WriteFile(path, []byte("discount:\n  percent: 15\n  window: 12h\n"), 0o600))

	holder, err := NewDiscountPolicyHolder(Config{DiscountConfigPath: path}, zap.NewNop())
	require.NoError(t, err)

	policy := holder.Get()
	assert.Equal(t, 15, policy.Percent)
	assert.Equal(t, 12*time.Hour, policy.Window)
}

func TestDiscountPolicyRejectsInvalidPercent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "discount.yml")
	require.NoError(t, os.WriteFile(path, []byte("discount:\n  percent: 150\n  window: 24h\n"), 0o600))

	_, err := NewDiscountPolicyHolder(Config{DiscountConfigPath: path}, zap.NewNop())
	assert.Error(t, err)
}

func TestNilHolderFallsBackToDefaults(t *testing.T) {
	var holder *DiscountPolicyHolder
	assert.Equal(t, DefaultDiscountPolicy(), holder.Get())
}

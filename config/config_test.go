package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ENVIRONMENT", "test")
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	t.Setenv("AD_REWARD", "")
	t.Setenv("MIN_WITHDRAWAL", "")

	cfg, err := load()
	require.NoError(t, err)

	assert.Equal(t, int64(5), cfg.AdReward)
	assert.Equal(t, int64(20), cfg.DailyReward)
	assert.Equal(t, int64(500), cfg.MinWithdrawal)
	assert.Equal(t, int64(1000), cfg.ReferralCommissionBps)
	assert.Equal(t, ":5000", cfg.HTTPAddr)
	assert.Equal(t, "@every 1m", cfg.ReferralSweepSchedule)
	assert.Equal(t, time.Duration(0), cfg.AuthMaxAge)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("ENVIRONMENT", "test")
	t.Setenv("AD_REWARD", "7")
	t.Setenv("ADMIN_TELEGRAM_IDS", "1, 2,bogus,3")
	t.Setenv("AUTH_MAX_AGE", "24h")
	t.Setenv("NATS_ENABLED", "false")

	cfg, err := load()
	require.NoError(t, err)

	assert.Equal(t, int64(7), cfg.AdReward)
	assert.Equal(t, []int64{1, 2, 3}, cfg.AdminTelegramIDs)
	assert.Equal(t, 24*time.Hour, cfg.AuthMaxAge)
	assert.False(t, cfg.NATSEnabled)
	assert.True(t, cfg.IsAdmin(2))
	assert.False(t, cfg.IsAdmin(4))
}

func TestLoad_RequiresSecretsOutsideTest(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	t.Setenv("DATABASE_URL", "postgres://localhost:5432")

	_, err := load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TELEGRAM_BOT_TOKEN")

	t.Setenv("TELEGRAM_BOT_TOKEN", "token")
	t.Setenv("REFERRAL_COMMISSION_BPS", "20000")
	_, err = load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REFERRAL_COMMISSION_BPS")
}

func TestSetTestConfig(t *testing.T) {
	defer ResetConfig()

	custom := NewTestConfig()
	custom.AdReward = 42
	SetTestConfig(custom)

	assert.Equal(t, int64(42), Get().AdReward)
}

package config

import (
	"testing"
	"time"

	"github.com/maheshrc27/campaign-publisher/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg := LoadConfig()

	assert.Equal(t, "sqlite", cfg.DatabaseDriver)
	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, time.Minute, cfg.TickInterval)
	assert.Equal(t, 10, cfg.Concurrency)
	assert.Equal(t, "any", cfg.StatusPolicy)
	assert.True(t, cfg.SchedulerEnabled)

	require.Contains(t, cfg.Pacing, "instagram")
	assert.Equal(t, 12, cfg.Pacing["instagram"].MaxPolls)
	assert.Equal(t, 3, cfg.Pacing["twitter"].RetryAttempts)
	assert.Zero(t, cfg.Pacing["twitter"].MaxPolls)
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "postgres")
	t.Setenv("TICK_INTERVAL", "30s")
	t.Setenv("PUBLISH_CONCURRENCY", "4")
	t.Setenv("SCHEDULER_ENABLED", "false")
	t.Setenv("TIKTOK_MAX_POLLS", "20")
	t.Setenv("TWITTER_MIN_INTERVAL", "not-a-duration")

	cfg := LoadConfig()

	assert.Equal(t, "postgres", cfg.DatabaseDriver)
	assert.Equal(t, 30*time.Second, cfg.TickInterval)
	assert.Equal(t, 4, cfg.Concurrency)
	assert.False(t, cfg.SchedulerEnabled)
	assert.Equal(t, 20, cfg.Pacing["tiktok"].MaxPolls)
	assert.Equal(t, 2*time.Second, cfg.Pacing["twitter"].MinInterval)
}

func TestLoadConfig_SealedSecrets(t *testing.T) {
	key := "0123456789abcdef0123456789abcdef"
	sealed, err := utils.Seal("page-token", []byte(key))
	require.NoError(t, err)

	t.Setenv("SECRET_KEY", key)
	t.Setenv("FACEBOOK_PAGE_TOKEN", sealed)
	t.Setenv("TWITTER_ACCESS_TOKEN", "plain-token")
	t.Setenv("PINTEREST_ACCESS_TOKEN", "enc:garbage")

	cfg := LoadConfig()

	assert.Equal(t, "page-token", cfg.Facebook.PageToken)
	assert.Equal(t, "plain-token", cfg.Twitter.AccessToken)
	assert.Empty(t, cfg.Pinterest.AccessToken)
}

func TestLocation(t *testing.T) {
	assert.Equal(t, time.Local, (&Config{}).Location())
	assert.Equal(t, time.Local, (&Config{Timezone: "Local"}).Location())
	assert.Equal(t, time.Local, (&Config{Timezone: "Mars/Olympus"}).Location())
	assert.Equal(t, "UTC", (&Config{Timezone: "UTC"}).Location().String())
}

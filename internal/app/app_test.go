package app

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	config "github.com/maheshrc27/campaign-publisher/configs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		DatabaseDriver: "sqlite",
		DatabaseURL:    filepath.Join(t.TempDir(), "posts.db"),
		Timezone:       "UTC",
		TickInterval:   time.Minute,
		TickTimeout:    time.Minute,
		Concurrency:    2,
		StatusPolicy:   "all",
		Pacing:         map[string]config.Pacing{},
	}
}

func TestNew_WithoutRedis(t *testing.T) {
	a, err := New(context.Background(), testConfig(t))
	require.NoError(t, err)
	defer a.Close()

	assert.Nil(t, a.Redis)
	assert.Nil(t, a.Queue)
	require.NotNil(t, a.Job)

	report, ran, err := a.Job.RunOnce(context.Background())
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Zero(t, report.Posts)
}

func TestNew_WithRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t)
	cfg.RedisURI = mr.Addr()

	a, err := New(context.Background(), cfg)
	require.NoError(t, err)
	defer a.Close()

	assert.NotNil(t, a.Redis)
	assert.NotNil(t, a.Queue)
	assert.Equal(t, mr.Addr(), a.RedisOpt().Addr)

	// Another replica holding the tick lock makes this one skip.
	require.NoError(t, mr.Set(tickLockKey, "other-replica"))
	_, ran, err := a.Job.RunOnce(context.Background())
	require.NoError(t, err)
	assert.False(t, ran)
}

func TestNew_RedisUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t)
	cfg.RedisURI = mr.Addr()
	mr.Close()

	_, err := New(context.Background(), cfg)
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	ctx := context.Background()

	debug := NewLogger(&config.Config{LogFormat: "json", LogLevel: "debug"})
	assert.True(t, debug.Enabled(ctx, slog.LevelDebug))

	fallback := NewLogger(&config.Config{LogLevel: "loud"})
	assert.False(t, fallback.Enabled(ctx, slog.LevelDebug))
	assert.True(t, fallback.Enabled(ctx, slog.LevelInfo))
}

func TestNew_RedisRequiresTickTimeout(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t)
	cfg.RedisURI = mr.Addr()
	cfg.TickTimeout = 0

	_, err := New(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TICK_TIMEOUT")

	cfg.RedisURI = ""
	a, err := New(context.Background(), cfg)
	require.NoError(t, err)
	a.Close()
}

package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	config "github.com/maheshrc27/campaign-publisher/configs"
	job "github.com/maheshrc27/campaign-publisher/internal/jobs"
	"github.com/maheshrc27/campaign-publisher/internal/models"
	"github.com/maheshrc27/campaign-publisher/internal/repository"
	"github.com/maheshrc27/campaign-publisher/internal/service"
	"github.com/maheshrc27/campaign-publisher/pkg/utils"
	"github.com/redis/go-redis/v9"
)

const tickLockKey = "campaign-publisher:tick"

// App holds the wired components shared by the server and the CLI.
type App struct {
	Config *config.Config
	DB     *sql.DB

	Posts     service.PostService
	Campaigns service.CampaignService
	Media     service.MediaService
	Publisher service.PublishService
	Job       *job.PublishJob

	Redis *redis.Client
	Queue *asynq.Client
}

// New opens the store and builds every service. Redis is optional; without
// it ticks are only guarded within this process and async ticks are off.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	db, dialect, err := repository.Open(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	policy := models.PolicyByName(cfg.StatusPolicy)
	loc := cfg.Location()
	clock := utils.SystemClock{Location: loc}

	postRepo := repository.NewPostRepository(db, dialect, policy)
	historyRepo := repository.NewPublishHistoryRepository(db, dialect)
	campaignRepo := repository.NewCampaignRepository(db, dialect)

	media, err := service.NewMediaService(ctx, cfg.R2)
	if err != nil {
		db.Close()
		return nil, err
	}

	clients := service.NewPlatformClients(cfg, media)
	publisher := service.NewPublishService(postRepo, clients, service.PublishOptions{
		Clock:       clock,
		Concurrency: cfg.Concurrency,
		CallTimeout: cfg.CallTimeout,
		TickTimeout: cfg.TickTimeout,
		Pacing:      cfg.Pacing,
	})

	a := &App{
		Config:    cfg,
		DB:        db,
		Posts:     service.NewPostService(postRepo, historyRepo, campaignRepo, clock, loc),
		Campaigns: service.NewCampaignService(campaignRepo),
		Media:     media,
		Publisher: publisher,
	}

	var shared job.Locker
	if cfg.RedisURI != "" {
		if cfg.TickTimeout <= 0 {
			a.Close()
			return nil, errors.New("TICK_TIMEOUT must be positive when REDIS_URI is set, the shared tick lock expires after it")
		}
		a.Redis = redis.NewClient(&redis.Options{Addr: cfg.RedisURI})
		if err := a.Redis.Ping(ctx).Err(); err != nil {
			a.Close()
			return nil, fmt.Errorf("redis is unreachable: %w", err)
		}
		a.Queue = asynq.NewClient(a.RedisOpt())
		// The lock outlives a tick so a crashed replica cannot block others forever.
		shared = job.NewRedisLock(a.Redis, tickLockKey, cfg.TickTimeout+time.Minute)
	}

	a.Job = job.NewPublishJob(publisher, cfg.TickInterval, shared)

	slog.Info("publisher ready",
		"driver", dialect,
		"policy", policy.Name(),
		"timezone", loc.String(),
		"platforms", len(clients),
		"redis", a.Redis != nil)
	return a, nil
}

func (a *App) RedisOpt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{Addr: a.Config.RedisURI}
}

func (a *App) Close() {
	if a.Queue != nil {
		a.Queue.Close()
	}
	if a.Redis != nil {
		a.Redis.Close()
	}
	if err := a.DB.Close(); err != nil {
		slog.Error("failed to close database", "error", err)
	}
}

// NewLogger builds the process logger from the log format and level.
func NewLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	if strings.EqualFold(cfg.LogFormat, "json") {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

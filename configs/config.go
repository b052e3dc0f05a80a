package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/maheshrc27/campaign-publisher/pkg/utils"
)

type R2 struct {
	AccountID  string
	AccessKey  string
	SecretKey  string
	BucketName string
	PublicURL  string
}

// Facebook holds the page credentials used for the Graph API.
type Facebook struct {
	PageID     string
	PageToken  string
	APIVersion string
	BaseURL    string
}

// Instagram holds the business account credentials. Instagram publishing
// goes through the Graph API as well.
type Instagram struct {
	AccountID   string
	AccessToken string
	APIVersion  string
	BaseURL     string
}

type Twitter struct {
	AccessToken string
	BaseURL     string
	UploadURL   string
}

type Pinterest struct {
	AccessToken string
	BoardID     string
	BaseURL     string
}

type Tiktok struct {
	AccessToken  string
	PrivacyLevel string
	BaseURL      string
}

type Youtube struct {
	ClientID      string
	ClientSecret  string
	AccessToken   string
	RefreshToken  string
	PrivacyStatus string
}

// Pacing is the rate limiting and retry behaviour of one platform.
type Pacing struct {
	MinInterval   time.Duration
	PhaseDelay    time.Duration
	PollInterval  time.Duration
	MaxPolls      int
	RetryAttempts int
	RetryBase     time.Duration
	RetryMax      time.Duration
}

type Config struct {
	Facebook  Facebook
	Instagram Instagram
	Twitter   Twitter
	Pinterest Pinterest
	Tiktok    Tiktok
	Youtube   Youtube
	Pacing    map[string]Pacing

	DatabaseDriver string
	DatabaseURL    string
	RedisURI       string
	R2             R2
	SecretKey      string
	APIKey         string
	CookieName     string
	Port           string

	Timezone         string
	TickInterval     time.Duration
	TickTimeout      time.Duration
	CallTimeout      time.Duration
	StopTimeout      time.Duration
	Concurrency      int
	StatusPolicy     string
	SchedulerEnabled bool
	LogFormat        string
	LogLevel         string
}

// Platforms with media processing between the two publish calls wait
// longer than the others.
var defaultPacing = map[string]Pacing{
	"facebook":  {MinInterval: 2 * time.Second},
	"twitter":   {MinInterval: 2 * time.Second},
	"pinterest": {MinInterval: 2 * time.Second},
	"youtube":   {MinInterval: 2 * time.Second},
	"instagram": {MinInterval: 10 * time.Second, PhaseDelay: 5 * time.Second, PollInterval: 5 * time.Second, MaxPolls: 12},
	"tiktok":    {MinInterval: 10 * time.Second, PhaseDelay: 5 * time.Second, PollInterval: 5 * time.Second, MaxPolls: 12},
}

func LoadConfig() *Config {
	secretKey := getEnv("SECRET_KEY", "")

	cfg := &Config{
		Facebook: Facebook{
			PageID:     getEnv("FACEBOOK_PAGE_ID", ""),
			PageToken:  getSecret("FACEBOOK_PAGE_TOKEN", secretKey),
			APIVersion: getEnv("FACEBOOK_API_VERSION", "v21.0"),
			BaseURL:    getEnv("FACEBOOK_BASE_URL", "https://graph.facebook.com"),
		},
		Instagram: Instagram{
			AccountID:   getEnv("INSTAGRAM_BUSINESS_ACCOUNT_ID", ""),
			AccessToken: getSecret("INSTAGRAM_ACCESS_TOKEN", secretKey),
			APIVersion:  getEnv("INSTAGRAM_API_VERSION", "v21.0"),
			BaseURL:     getEnv("INSTAGRAM_BASE_URL", "https://graph.facebook.com"),
		},
		Twitter: Twitter{
			AccessToken: getSecret("TWITTER_ACCESS_TOKEN", secretKey),
			BaseURL:     getEnv("TWITTER_BASE_URL", "https://api.x.com"),
			UploadURL:   getEnv("TWITTER_UPLOAD_URL", "https://api.x.com/2/media/upload"),
		},
		Pinterest: Pinterest{
			AccessToken: getSecret("PINTEREST_ACCESS_TOKEN", secretKey),
			BoardID:     getEnv("PINTEREST_BOARD_ID", ""),
			BaseURL:     getEnv("PINTEREST_BASE_URL", "https://api.pinterest.com"),
		},
		Tiktok: Tiktok{
			AccessToken:  getSecret("TIKTOK_ACCESS_TOKEN", secretKey),
			PrivacyLevel: getEnv("TIKTOK_PRIVACY_LEVEL", "PUBLIC_TO_EVERYONE"),
			BaseURL:      getEnv("TIKTOK_BASE_URL", "https://open.tiktokapis.com"),
		},
		Youtube: Youtube{
			ClientID:      getEnv("GOOGLE_CLIENT_ID", ""),
			ClientSecret:  getSecret("GOOGLE_CLIENT_SECRET", secretKey),
			AccessToken:   getSecret("YOUTUBE_ACCESS_TOKEN", secretKey),
			RefreshToken:  getSecret("YOUTUBE_REFRESH_TOKEN", secretKey),
			PrivacyStatus: getEnv("YOUTUBE_PRIVACY_STATUS", "public"),
		},
		DatabaseDriver: getEnv("DATABASE_DRIVER", "sqlite"),
		DatabaseURL:    getEnv("DATABASE_URL", "database/posts.db"),
		RedisURI:       getEnv("REDIS_URI", ""),
		R2: R2{
			AccountID:  getEnv("R2_ACCOUNT_ID", ""),
			AccessKey:  getEnv("R2_ACCESS_KEY", ""),
			SecretKey:  getSecret("R2_SECRET_KEY", secretKey),
			BucketName: getEnv("R2_BUCKET_NAME", ""),
			PublicURL:  getEnv("R2_PUBLIC_URL", ""),
		},
		SecretKey:        secretKey,
		APIKey:           getSecret("API_KEY", secretKey),
		CookieName:       getEnv("COOKIE_NAME", "publisher_session"),
		Port:             getEnv("PORT", "3000"),
		Timezone:         getEnv("CAMPAIGN_TIMEZONE", "Local"),
		TickInterval:     getEnvDuration("TICK_INTERVAL", time.Minute),
		TickTimeout:      getEnvDuration("TICK_TIMEOUT", 10*time.Minute),
		CallTimeout:      getEnvDuration("CALL_TIMEOUT", 60*time.Second),
		StopTimeout:      getEnvDuration("STOP_TIMEOUT", 30*time.Second),
		Concurrency:      getEnvInt("PUBLISH_CONCURRENCY", 10),
		StatusPolicy:     getEnv("STATUS_POLICY", "any"),
		SchedulerEnabled: getEnvBool("SCHEDULER_ENABLED", true),
		LogFormat:        getEnv("LOG_FORMAT", "text"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
	}

	cfg.Pacing = make(map[string]Pacing, len(defaultPacing))
	for platform, def := range defaultPacing {
		cfg.Pacing[platform] = loadPacing(platform, def)
	}

	return cfg
}

// Location returns the campaign-local time zone used for naive schedule
// times.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		slog.Warn("unknown campaign timezone, using local time", "timezone", c.Timezone, "error", err)
		return time.Local
	}
	return loc
}

func loadPacing(platform string, def Pacing) Pacing {
	prefix := strings.ToUpper(platform) + "_"
	return Pacing{
		MinInterval:   getEnvDuration(prefix+"MIN_INTERVAL", def.MinInterval),
		PhaseDelay:    getEnvDuration(prefix+"PHASE_DELAY", def.PhaseDelay),
		PollInterval:  getEnvDuration(prefix+"POLL_INTERVAL", def.PollInterval),
		MaxPolls:      getEnvInt(prefix+"MAX_POLLS", def.MaxPolls),
		RetryAttempts: getEnvInt(prefix+"RETRY_ATTEMPTS", 3),
		RetryBase:     getEnvDuration(prefix+"RETRY_BASE", 2*time.Second),
		RetryMax:      getEnvDuration(prefix+"RETRY_MAX", 30*time.Second),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getSecret reads a credential that may be sealed with SECRET_KEY. Sealed
// values carry the "enc:" prefix.
func getSecret(key, secretKey string) string {
	value := os.Getenv(key)
	if !strings.HasPrefix(value, utils.SealedPrefix) {
		return value
	}
	plain, err := utils.Open(value, []byte(secretKey))
	if err != nil {
		slog.Error("failed to open sealed credential", "key", key, "error", err)
		return ""
	}
	return plain
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		slog.Warn("invalid integer in environment, using default", "key", key, "value", value)
		return defaultValue
	}
	return n
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		slog.Warn("invalid duration in environment, using default", "key", key, "value", value)
		return defaultValue
	}
	return d
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return b
}

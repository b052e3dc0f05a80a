package service

import (
	"context"
	"strings"
	"unicode/utf8"

	config "github.com/maheshrc27/campaign-publisher/configs"
	"github.com/maheshrc27/campaign-publisher/internal/models"
)

const (
	PlatformFacebook  = "facebook"
	PlatformInstagram = "instagram"
	PlatformTwitter   = "twitter"
	PlatformPinterest = "pinterest"
	PlatformTiktok    = "tiktok"
	PlatformYoutube   = "youtube"
)

// PlatformClient publishes a post to one remote platform.
type PlatformClient interface {
	Platform() string
	// Validate checks the content against the platform's constraints without
	// touching the network.
	Validate(text string, media []string) error
	Publish(ctx context.Context, text string, media []string) (models.PublishResult, error)
}

// TwoPhaseClient is implemented by platforms that create a media container
// first and publish it once remote processing is done. PublishContainer
// returns a transient error wrapping models.ErrNotReady while processing.
type TwoPhaseClient interface {
	PlatformClient
	CreateContainer(ctx context.Context, text string, media []string) (string, error)
	PublishContainer(ctx context.Context, containerID string) (string, error)
}

// Rules are the content limits of a platform.
type Rules struct {
	MaxText       int
	MediaRequired bool
	MaxMedia      int
}

var platformRules = map[string]Rules{
	PlatformFacebook:  {MaxText: 63206, MaxMedia: 1},
	PlatformInstagram: {MaxText: 2200, MediaRequired: true, MaxMedia: 10},
	PlatformTwitter:   {MaxText: 280, MaxMedia: 4},
	PlatformPinterest: {MaxText: 500, MediaRequired: true, MaxMedia: 1},
	PlatformTiktok:    {MaxText: 2200, MediaRequired: true, MaxMedia: 35},
	PlatformYoutube:   {MaxText: 5000, MediaRequired: true, MaxMedia: 1},
}

// KnownPlatform reports whether name is a supported platform.
func KnownPlatform(name string) bool {
	_, ok := platformRules[name]
	return ok
}

func SupportedPlatforms() []string {
	return []string{PlatformFacebook, PlatformInstagram, PlatformPinterest, PlatformTiktok, PlatformTwitter, PlatformYoutube}
}

func (r Rules) validate(platform, text string, media []string) error {
	if n := utf8.RuneCountInString(text); r.MaxText > 0 && n > r.MaxText {
		return models.NewValidationError(platform, "text is %d characters, limit is %d", n, r.MaxText)
	}
	if r.MediaRequired && len(media) == 0 {
		return models.NewValidationError(platform, "at least one media item is required")
	}
	if r.MaxMedia > 0 && len(media) > r.MaxMedia {
		return models.NewValidationError(platform, "%d media items given, limit is %d", len(media), r.MaxMedia)
	}
	for i, m := range media {
		if strings.TrimSpace(m) == "" {
			return models.NewValidationError(platform, "media item %d is empty", i)
		}
	}
	return nil
}

// NewPlatformClients builds one client per supported platform from the
// credential bundles in cfg. Platforms without credentials still get a
// client; publishing through it fails with an auth error.
func NewPlatformClients(cfg *config.Config, media MediaResolver) map[string]PlatformClient {
	clients := []PlatformClient{
		NewFacebookClient(cfg.Facebook, media),
		NewInstagramClient(cfg.Instagram, media, cfg.Pacing[PlatformInstagram]),
		NewTwitterClient(cfg.Twitter, media),
		NewPinterestClient(cfg.Pinterest, media),
		NewTiktokClient(cfg.Tiktok, media, cfg.Pacing[PlatformTiktok]),
		NewYoutubeClient(cfg.Youtube, media),
	}

	registry := make(map[string]PlatformClient, len(clients))
	for _, c := range clients {
		registry[c.Platform()] = c
	}
	return registry
}

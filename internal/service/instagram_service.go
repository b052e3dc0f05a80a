package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	config "github.com/maheshrc27/campaign-publisher/configs"
	"github.com/maheshrc27/campaign-publisher/internal/models"
	"github.com/maheshrc27/campaign-publisher/internal/transfer"
)

// InstagramClient publishes through the Instagram Graph API. Publishing is
// two-phase: a media container is created first and published once
// Instagram has finished processing the media.
type InstagramClient struct {
	cfg    config.Instagram
	media  MediaResolver
	client *http.Client
	rules  Rules
	phases phaseOptions
}

func NewInstagramClient(cfg config.Instagram, media MediaResolver, pacing config.Pacing) *InstagramClient {
	return &InstagramClient{
		cfg:    cfg,
		media:  media,
		client: bearerClient(cfg.AccessToken, 60*time.Second),
		rules:  platformRules[PlatformInstagram],
		phases: phaseOptionsFor(pacing),
	}
}

func (c *InstagramClient) Platform() string { return PlatformInstagram }

func (c *InstagramClient) Validate(text string, media []string) error {
	return c.rules.validate(PlatformInstagram, text, media)
}

// Publish runs both phases with the client's own pacing settings.
func (c *InstagramClient) Publish(ctx context.Context, text string, media []string) (models.PublishResult, error) {
	if err := c.Validate(text, media); err != nil {
		return models.PublishResult{}, err
	}

	id, calls, err := publishTwoPhase(ctx, c, text, media, c.phases)
	if err != nil {
		return models.PublishResult{}, err
	}

	return models.PublishResult{
		Platform:   PlatformInstagram,
		Success:    true,
		ExternalID: id,
		Attempts:   calls,
		Timestamp:  time.Now(),
	}, nil
}

func (c *InstagramClient) CreateContainer(ctx context.Context, text string, media []string) (string, error) {
	if err := c.Validate(text, media); err != nil {
		return "", err
	}
	if c.cfg.AccountID == "" || c.cfg.AccessToken == "" {
		return "", missingCredentials(PlatformInstagram)
	}

	urls := make([]string, 0, len(media))
	for _, m := range media {
		u, err := c.media.PublicURL(ctx, m)
		if err != nil {
			return "", err
		}
		urls = append(urls, u)
	}

	if len(urls) == 1 {
		payload := map[string]interface{}{"caption": text}
		setMediaURL(payload, media[0], urls[0], false)
		return c.createMedia(ctx, payload)
	}

	children := make([]string, 0, len(urls))
	for i, u := range urls {
		payload := map[string]interface{}{"is_carousel_item": true}
		setMediaURL(payload, media[i], u, true)
		id, err := c.createMedia(ctx, payload)
		if err != nil {
			return "", fmt.Errorf("carousel item %d: %w", i, err)
		}
		children = append(children, id)
	}

	return c.createMedia(ctx, map[string]interface{}{
		"media_type": "CAROUSEL",
		"caption":    text,
		"children":   strings.Join(children, ","),
	})
}

func setMediaURL(payload map[string]interface{}, ref, publicURL string, carouselItem bool) {
	if mediaKind(ref) == mediaKindVideo {
		payload["video_url"] = publicURL
		if carouselItem {
			payload["media_type"] = "VIDEO"
		} else {
			payload["media_type"] = "REELS"
		}
		return
	}
	payload["image_url"] = publicURL
}

func (c *InstagramClient) createMedia(ctx context.Context, payload map[string]interface{}) (string, error) {
	var created transfer.GraphID
	err := doRequest(ctx, c.client, PlatformInstagram, apiRequest{
		method: http.MethodPost,
		url:    joinURL(c.cfg.BaseURL, c.cfg.APIVersion, c.cfg.AccountID, "media"),
		json:   payload,
	}, &created)
	if err != nil {
		return "", err
	}
	if created.ID == "" {
		return "", models.NewPlatformError(PlatformInstagram, "no media ID returned from Instagram", nil)
	}
	return created.ID, nil
}

// PublishContainer checks the container status and publishes it when
// processing has finished.
func (c *InstagramClient) PublishContainer(ctx context.Context, containerID string) (string, error) {
	if c.cfg.AccountID == "" || c.cfg.AccessToken == "" {
		return "", missingCredentials(PlatformInstagram)
	}

	var status transfer.InstagramContainerStatus
	err := doRequest(ctx, c.client, PlatformInstagram, apiRequest{
		method: http.MethodGet,
		url:    joinURL(c.cfg.BaseURL, c.cfg.APIVersion, containerID) + "?fields=status_code,status",
	}, &status)
	if err != nil {
		return "", err
	}

	switch status.StatusCode {
	case "IN_PROGRESS":
		return "", models.NewTransientError(PlatformInstagram, "container "+containerID, models.ErrNotReady)
	case "ERROR", "EXPIRED":
		return "", models.NewPlatformError(PlatformInstagram, fmt.Sprintf("container %s is %s: %s", containerID, status.StatusCode, status.Status), nil)
	}

	var published transfer.GraphID
	err = doRequest(ctx, c.client, PlatformInstagram, apiRequest{
		method: http.MethodPost,
		url:    joinURL(c.cfg.BaseURL, c.cfg.APIVersion, c.cfg.AccountID, "media_publish"),
		json:   map[string]string{"creation_id": containerID},
	}, &published)
	if err != nil {
		return "", err
	}
	if published.ID == "" {
		return "", models.NewPlatformError(PlatformInstagram, "no media ID returned from Instagram", nil)
	}

	slog.Info("instagram container published", "container_id", containerID, "media_id", published.ID)
	return published.ID, nil
}

package service

import (
	"context"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	config "github.com/maheshrc27/campaign-publisher/configs"
	"github.com/maheshrc27/campaign-publisher/internal/models"
	"github.com/maheshrc27/campaign-publisher/internal/transfer"
)

const pinterestMaxTitle = 100

// PinterestClient creates image pins on the configured board.
type PinterestClient struct {
	cfg    config.Pinterest
	media  MediaResolver
	client *http.Client
	rules  Rules
}

func NewPinterestClient(cfg config.Pinterest, media MediaResolver) *PinterestClient {
	return &PinterestClient{
		cfg:    cfg,
		media:  media,
		client: bearerClient(cfg.AccessToken, 60*time.Second),
		rules:  platformRules[PlatformPinterest],
	}
}

func (c *PinterestClient) Platform() string { return PlatformPinterest }

func (c *PinterestClient) Validate(text string, media []string) error {
	if err := c.rules.validate(PlatformPinterest, text, media); err != nil {
		return err
	}
	if mediaKind(media[0]) != mediaKindImage {
		return models.NewValidationError(PlatformPinterest, "pins need an image, got %q", media[0])
	}
	return nil
}

func (c *PinterestClient) Publish(ctx context.Context, text string, media []string) (models.PublishResult, error) {
	if err := c.Validate(text, media); err != nil {
		return models.PublishResult{}, err
	}
	if c.cfg.AccessToken == "" || c.cfg.BoardID == "" {
		return models.PublishResult{}, missingCredentials(PlatformPinterest)
	}

	imageURL, err := c.media.PublicURL(ctx, media[0])
	if err != nil {
		return models.PublishResult{}, err
	}

	pin := transfer.PinRequest{
		BoardID:     c.cfg.BoardID,
		Title:       pinTitle(text),
		Description: text,
		MediaSource: transfer.PinMediaSource{SourceType: "image_url", URL: imageURL},
	}

	var created transfer.PinResponse
	err = doRequest(ctx, c.client, PlatformPinterest, apiRequest{
		method: http.MethodPost,
		url:    joinURL(c.cfg.BaseURL, "v5", "pins"),
		json:   pin,
	}, &created)
	if err != nil {
		return models.PublishResult{}, err
	}
	if created.ID == "" {
		return models.PublishResult{}, models.NewPlatformError(PlatformPinterest, "no pin id returned", nil)
	}

	return models.PublishResult{
		Platform:   PlatformPinterest,
		Success:    true,
		ExternalID: created.ID,
		Timestamp:  time.Now(),
	}, nil
}

// pinTitle is the first line of the text, cut to the title limit.
func pinTitle(text string) string {
	title, _, _ := strings.Cut(strings.TrimSpace(text), "\n")
	if utf8.RuneCountInString(title) <= pinterestMaxTitle {
		return title
	}
	return string([]rune(title)[:pinterestMaxTitle])
}

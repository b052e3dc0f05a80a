package service

import (
	"context"
	"net/http"
	"net/url"
	"time"

	config "github.com/maheshrc27/campaign-publisher/configs"
	"github.com/maheshrc27/campaign-publisher/internal/models"
	"github.com/maheshrc27/campaign-publisher/internal/transfer"
)

// FacebookClient publishes to a page feed. A post with an image goes to the
// page's photos edge instead.
type FacebookClient struct {
	cfg    config.Facebook
	media  MediaResolver
	client *http.Client
	rules  Rules
}

func NewFacebookClient(cfg config.Facebook, media MediaResolver) *FacebookClient {
	return &FacebookClient{
		cfg:    cfg,
		media:  media,
		client: bearerClient(cfg.PageToken, 60*time.Second),
		rules:  platformRules[PlatformFacebook],
	}
}

func (c *FacebookClient) Platform() string { return PlatformFacebook }

func (c *FacebookClient) Validate(text string, media []string) error {
	if err := c.rules.validate(PlatformFacebook, text, media); err != nil {
		return err
	}
	for _, m := range media {
		if mediaKind(m) != mediaKindImage {
			return models.NewValidationError(PlatformFacebook, "only image posts are supported, got %q", m)
		}
	}
	return nil
}

func (c *FacebookClient) Publish(ctx context.Context, text string, media []string) (models.PublishResult, error) {
	if err := c.Validate(text, media); err != nil {
		return models.PublishResult{}, err
	}
	if c.cfg.PageID == "" || c.cfg.PageToken == "" {
		return models.PublishResult{}, missingCredentials(PlatformFacebook)
	}

	form := url.Values{}
	edge := "feed"
	if len(media) > 0 {
		imageURL, err := c.media.PublicURL(ctx, media[0])
		if err != nil {
			return models.PublishResult{}, err
		}
		edge = "photos"
		form.Set("url", imageURL)
		form.Set("caption", text)
	} else {
		form.Set("message", text)
	}

	var created transfer.GraphID
	err := doRequest(ctx, c.client, PlatformFacebook, apiRequest{
		method: http.MethodPost,
		url:    joinURL(c.cfg.BaseURL, c.cfg.APIVersion, c.cfg.PageID, edge),
		form:   form,
	}, &created)
	if err != nil {
		return models.PublishResult{}, err
	}

	id := created.PostID
	if id == "" {
		id = created.ID
	}
	if id == "" {
		return models.PublishResult{}, models.NewPlatformError(PlatformFacebook, "no post id returned", nil)
	}

	return models.PublishResult{
		Platform:   PlatformFacebook,
		Success:    true,
		ExternalID: id,
		Timestamp:  time.Now(),
	}, nil
}

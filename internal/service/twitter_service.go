package service

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"path"
	"time"

	config "github.com/maheshrc27/campaign-publisher/configs"
	"github.com/maheshrc27/campaign-publisher/internal/models"
	"github.com/maheshrc27/campaign-publisher/internal/transfer"
)

// TwitterClient posts tweets through the X API v2. Media is uploaded first
// and attached to the tweet by id.
type TwitterClient struct {
	cfg    config.Twitter
	media  MediaResolver
	client *http.Client
	rules  Rules
}

func NewTwitterClient(cfg config.Twitter, media MediaResolver) *TwitterClient {
	return &TwitterClient{
		cfg:    cfg,
		media:  media,
		client: bearerClient(cfg.AccessToken, 60*time.Second),
		rules:  platformRules[PlatformTwitter],
	}
}

func (c *TwitterClient) Platform() string { return PlatformTwitter }

func (c *TwitterClient) Validate(text string, media []string) error {
	if text == "" && len(media) == 0 {
		return models.NewValidationError(PlatformTwitter, "tweet needs text or media")
	}
	return c.rules.validate(PlatformTwitter, text, media)
}

func (c *TwitterClient) Publish(ctx context.Context, text string, media []string) (models.PublishResult, error) {
	if err := c.Validate(text, media); err != nil {
		return models.PublishResult{}, err
	}
	if c.cfg.AccessToken == "" {
		return models.PublishResult{}, missingCredentials(PlatformTwitter)
	}

	tweet := transfer.TweetRequest{Text: text}
	if len(media) > 0 {
		ids := make([]string, 0, len(media))
		for _, m := range media {
			id, err := c.uploadMedia(ctx, m)
			if err != nil {
				return models.PublishResult{}, err
			}
			ids = append(ids, id)
		}
		tweet.Media = &transfer.TweetMedia{MediaIDs: ids}
	}

	var created transfer.TweetResponse
	err := doRequest(ctx, c.client, PlatformTwitter, apiRequest{
		method: http.MethodPost,
		url:    joinURL(c.cfg.BaseURL, "2", "tweets"),
		json:   tweet,
	}, &created)
	if err != nil {
		return models.PublishResult{}, err
	}
	if created.Data.ID == "" {
		return models.PublishResult{}, models.NewPlatformError(PlatformTwitter, "no tweet id returned", nil)
	}

	return models.PublishResult{
		Platform:   PlatformTwitter,
		Success:    true,
		ExternalID: created.Data.ID,
		Timestamp:  time.Now(),
	}, nil
}

func (c *TwitterClient) uploadMedia(ctx context.Context, ref string) (string, error) {
	content, mime, err := c.media.Open(ctx, ref)
	if err != nil {
		return "", err
	}
	defer content.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	category := "tweet_image"
	if mediaKind(ref) == mediaKindVideo {
		category = "tweet_video"
	}
	if err := w.WriteField("media_category", category); err != nil {
		return "", models.NewPlatformError(PlatformTwitter, "error building upload", err)
	}
	if mime != "" {
		if err := w.WriteField("media_type", mime); err != nil {
			return "", models.NewPlatformError(PlatformTwitter, "error building upload", err)
		}
	}
	part, err := w.CreateFormFile("media", path.Base(ref))
	if err != nil {
		return "", models.NewPlatformError(PlatformTwitter, "error building upload", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return "", models.NewTransientError(PlatformTwitter, "error reading media", err)
	}
	if err := w.Close(); err != nil {
		return "", models.NewPlatformError(PlatformTwitter, "error building upload", err)
	}

	var uploaded transfer.TwitterMediaUploadResponse
	err = doRequest(ctx, c.client, PlatformTwitter, apiRequest{
		method: http.MethodPost,
		url:    c.cfg.UploadURL,
		body:   &buf,
		header: map[string]string{"Content-Type": w.FormDataContentType()},
	}, &uploaded)
	if err != nil {
		return "", err
	}

	id := uploaded.Data.ID
	if id == "" {
		id = uploaded.MediaIDString
	}
	if id == "" {
		return "", models.NewPlatformError(PlatformTwitter, "no media id returned", nil)
	}
	return id, nil
}

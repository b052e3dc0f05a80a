package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	config "github.com/maheshrc27/campaign-publisher/configs"
	"github.com/maheshrc27/campaign-publisher/internal/models"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

const youtubeMaxTitle = 100

// YoutubeClient uploads a video through the YouTube Data API. The first line
// of the text is the title and the whole text is the description.
type YoutubeClient struct {
	cfg   config.Youtube
	media MediaResolver
	rules Rules
	oauth *oauth2.Config
}

func NewYoutubeClient(cfg config.Youtube, media MediaResolver) *YoutubeClient {
	return &YoutubeClient{
		cfg:   cfg,
		media: media,
		rules: platformRules[PlatformYoutube],
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Scopes:       []string{youtube.YoutubeUploadScope},
			Endpoint:     google.Endpoint,
		},
	}
}

func (c *YoutubeClient) Platform() string { return PlatformYoutube }

func (c *YoutubeClient) Validate(text string, media []string) error {
	if err := c.rules.validate(PlatformYoutube, text, media); err != nil {
		return err
	}
	title := youtubeTitle(text)
	if title == "" {
		return models.NewValidationError(PlatformYoutube, "the first line of the text is the video title and cannot be empty")
	}
	if n := utf8.RuneCountInString(title); n > youtubeMaxTitle {
		return models.NewValidationError(PlatformYoutube, "title is %d characters, limit is %d", n, youtubeMaxTitle)
	}
	if mediaKind(media[0]) != mediaKindVideo {
		return models.NewValidationError(PlatformYoutube, "media %q is not a video", media[0])
	}
	return nil
}

func (c *YoutubeClient) Publish(ctx context.Context, text string, media []string) (models.PublishResult, error) {
	if err := c.Validate(text, media); err != nil {
		return models.PublishResult{}, err
	}
	if c.cfg.AccessToken == "" && c.cfg.RefreshToken == "" {
		return models.PublishResult{}, missingCredentials(PlatformYoutube)
	}

	token := &oauth2.Token{AccessToken: c.cfg.AccessToken, RefreshToken: c.cfg.RefreshToken}
	var source oauth2.TokenSource = oauth2.StaticTokenSource(token)
	if c.cfg.RefreshToken != "" {
		source = c.oauth.TokenSource(ctx, token)
	}

	service, err := youtube.NewService(ctx, option.WithHTTPClient(oauth2.NewClient(ctx, source)))
	if err != nil {
		return models.PublishResult{}, models.NewPlatformError(PlatformYoutube, "error creating YouTube service", err)
	}

	content, _, err := c.media.Open(ctx, media[0])
	if err != nil {
		return models.PublishResult{}, err
	}
	defer content.Close()

	video := &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:       youtubeTitle(text),
			Description: text,
			CategoryId:  "22",
		},
		Status: &youtube.VideoStatus{
			PrivacyStatus: c.cfg.PrivacyStatus,
		},
	}

	uploaded, err := service.Videos.Insert([]string{"snippet", "status"}, video).Media(content).Context(ctx).Do()
	if err != nil {
		return models.PublishResult{}, classifyGoogleError(err)
	}

	return models.PublishResult{
		Platform:   PlatformYoutube,
		Success:    true,
		ExternalID: uploaded.Id,
		Timestamp:  time.Now(),
	}, nil
}

func youtubeTitle(text string) string {
	title, _, _ := strings.Cut(strings.TrimSpace(text), "\n")
	return strings.TrimSpace(title)
}

func classifyGoogleError(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return &models.PublishError{Kind: statusKind(gerr.Code), Platform: PlatformYoutube, Message: gerr.Message, Err: err}
	}
	return classifyTransportError(PlatformYoutube, err)
}

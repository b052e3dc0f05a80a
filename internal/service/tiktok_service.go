package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	config "github.com/maheshrc27/campaign-publisher/configs"
	"github.com/maheshrc27/campaign-publisher/internal/models"
	"github.com/maheshrc27/campaign-publisher/internal/transfer"
)

// TikTok publish statuses.
const (
	tiktokProcessingUpload   = "PROCESSING_UPLOAD"
	tiktokProcessingDownload = "PROCESSING_DOWNLOAD"
	tiktokSentToInbox        = "SEND_TO_USER_INBOX"
	tiktokPublishComplete    = "PUBLISH_COMPLETE"
	tiktokFailed             = "FAILED"
)

// TiktokClient uses the content posting API. TikTok pulls the media from
// public URLs and processes it asynchronously, so publishing is two-phase:
// the init call returns a publish id whose status is polled until done.
type TiktokClient struct {
	cfg    config.Tiktok
	media  MediaResolver
	client *http.Client
	rules  Rules
	phases phaseOptions
}

func NewTiktokClient(cfg config.Tiktok, media MediaResolver, pacing config.Pacing) *TiktokClient {
	return &TiktokClient{
		cfg:    cfg,
		media:  media,
		client: bearerClient(cfg.AccessToken, 60*time.Second),
		rules:  platformRules[PlatformTiktok],
		phases: phaseOptionsFor(pacing),
	}
}

func (c *TiktokClient) Platform() string { return PlatformTiktok }

func (c *TiktokClient) Validate(text string, media []string) error {
	if err := c.rules.validate(PlatformTiktok, text, media); err != nil {
		return err
	}

	videos := 0
	for _, m := range media {
		if mediaKind(m) == mediaKindVideo {
			videos++
		}
	}
	if videos > 0 && len(media) > 1 {
		return models.NewValidationError(PlatformTiktok, "a video post takes exactly one video and no photos")
	}
	return nil
}

func (c *TiktokClient) Publish(ctx context.Context, text string, media []string) (models.PublishResult, error) {
	if err := c.Validate(text, media); err != nil {
		return models.PublishResult{}, err
	}

	id, calls, err := publishTwoPhase(ctx, c, text, media, c.phases)
	if err != nil {
		return models.PublishResult{}, err
	}

	return models.PublishResult{
		Platform:   PlatformTiktok,
		Success:    true,
		ExternalID: id,
		Attempts:   calls,
		Timestamp:  time.Now(),
	}, nil
}

// CreateContainer starts a direct post and returns its publish id.
func (c *TiktokClient) CreateContainer(ctx context.Context, text string, media []string) (string, error) {
	if err := c.Validate(text, media); err != nil {
		return "", err
	}
	if c.cfg.AccessToken == "" {
		return "", missingCredentials(PlatformTiktok)
	}

	urls := make([]string, 0, len(media))
	for _, m := range media {
		u, err := c.media.PublicURL(ctx, m)
		if err != nil {
			return "", err
		}
		urls = append(urls, u)
	}

	var (
		endpoint string
		payload  interface{}
	)
	if mediaKind(media[0]) == mediaKindVideo {
		endpoint = joinURL(c.cfg.BaseURL, "v2", "post", "publish", "video", "init") + "/"
		payload = transfer.VideoUploadRequest{
			PostInfo: transfer.VideoPostInfo{
				Title:                 text,
				PrivacyLevel:          c.cfg.PrivacyLevel,
				VideoCoverTimestampMs: 1000,
			},
			SourceInfo: transfer.VideoSourceInfo{
				Source:   "PULL_FROM_URL",
				VideoURL: urls[0],
			},
		}
	} else {
		endpoint = joinURL(c.cfg.BaseURL, "v2", "post", "publish", "content", "init") + "/"
		payload = transfer.PhotoUploadRequest{
			PostInfo: transfer.PhotoPostInfo{
				Description:  text,
				PrivacyLevel: c.cfg.PrivacyLevel,
				AutoAddMusic: true,
			},
			SourceInfo: transfer.PhotoSourceInfo{
				Source:      "PULL_FROM_URL",
				PhotoImages: urls,
			},
			PostMode:  "DIRECT_POST",
			MediaType: "PHOTO",
		}
	}

	var result transfer.TikTokUploadResponse
	err := doRequest(ctx, c.client, PlatformTiktok, apiRequest{
		method: http.MethodPost,
		url:    endpoint,
		json:   payload,
	}, &result)
	if err != nil {
		return "", err
	}
	if err := tiktokError(result.Error); err != nil {
		return "", err
	}
	if result.Data.PublishID == "" {
		return "", models.NewPlatformError(PlatformTiktok, "no publish id returned", nil)
	}
	return result.Data.PublishID, nil
}

// PublishContainer fetches the status of publishID. TikTok publishes on its
// own once processing ends, so this only reports the outcome.
func (c *TiktokClient) PublishContainer(ctx context.Context, publishID string) (string, error) {
	if c.cfg.AccessToken == "" {
		return "", missingCredentials(PlatformTiktok)
	}

	var status transfer.TiktokStatusResponse
	err := doRequest(ctx, c.client, PlatformTiktok, apiRequest{
		method: http.MethodPost,
		url:    joinURL(c.cfg.BaseURL, "v2", "post", "publish", "status", "fetch") + "/",
		json:   transfer.TiktokStatusRequest{PublishID: publishID},
	}, &status)
	if err != nil {
		return "", err
	}
	if err := tiktokError(status.Error); err != nil {
		return "", err
	}

	switch status.Data.Status {
	case tiktokPublishComplete:
		if ids := status.Data.PubliclyAvailablePostID; len(ids) > 0 {
			return strconv.FormatInt(ids[0], 10), nil
		}
		return publishID, nil
	case tiktokSentToInbox:
		slog.Info("tiktok post sent to creator inbox", "publish_id", publishID)
		return publishID, nil
	case tiktokFailed:
		return "", models.NewPlatformError(PlatformTiktok, fmt.Sprintf("publish %s failed: %s", publishID, status.Data.FailReason), nil)
	case tiktokProcessingUpload, tiktokProcessingDownload, "":
		return "", models.NewTransientError(PlatformTiktok, "publish "+publishID, models.ErrNotReady)
	default:
		return "", models.NewPlatformError(PlatformTiktok, "unknown publish status "+status.Data.Status, nil)
	}
}

// tiktokError maps the error object TikTok returns alongside 200 responses.
func tiktokError(e transfer.TiktokError) error {
	switch e.Code {
	case "", "ok":
		return nil
	case "access_token_invalid", "scope_not_authorized", "token_not_authorized_for_specified_user":
		return models.NewAuthError(PlatformTiktok, e.Message, nil)
	case "rate_limit_exceeded", "spam_risk_too_many_pending_share", "internal_error":
		return models.NewTransientError(PlatformTiktok, e.Message, nil)
	default:
		return models.NewPlatformError(PlatformTiktok, fmt.Sprintf("%s: %s", e.Code, e.Message), nil)
	}
}

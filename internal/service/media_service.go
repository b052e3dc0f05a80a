package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"
	config "github.com/maheshrc27/campaign-publisher/configs"
	"github.com/maheshrc27/campaign-publisher/internal/models"
	"github.com/maheshrc27/campaign-publisher/internal/transfer"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	mediaKindImage = "image"
	mediaKindVideo = "video"
)

var allowedMediaTypes = map[string]struct{}{
	"mp4": {}, "mov": {}, "jpg": {}, "png": {}, "gif": {}, "webp": {},
}

// MediaResolver turns the media references stored on a post into something
// a platform accepts: a public URL or the content itself. References are
// http(s) URLs or local file paths.
type MediaResolver interface {
	PublicURL(ctx context.Context, ref string) (string, error)
	Open(ctx context.Context, ref string) (io.ReadCloser, string, error)
}

type MediaService interface {
	MediaResolver
	Upload(ctx context.Context, data []byte) (*transfer.MediaUpload, error)
}

// objectStore is the part of the S3 client used for uploads.
type objectStore interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type mediaService struct {
	cfg    config.R2
	store  objectStore
	client *http.Client

	mu       sync.Mutex
	uploaded map[string]string
}

// NewMediaService returns a media service backed by Cloudflare R2. Without
// R2 credentials local files cannot be published to platforms that pull
// media from a URL.
func NewMediaService(ctx context.Context, cfg config.R2) (MediaService, error) {
	var store objectStore
	if cfg.AccountID != "" && cfg.AccessKey != "" {
		client, err := r2Client(ctx, cfg)
		if err != nil {
			return nil, err
		}
		store = client
	}
	return newMediaService(cfg, store, &http.Client{Timeout: 5 * time.Minute}), nil
}

func newMediaService(cfg config.R2, store objectStore, client *http.Client) *mediaService {
	return &mediaService{
		cfg:      cfg,
		store:    store,
		client:   client,
		uploaded: make(map[string]string),
	}
}

func r2Client(ctx context.Context, cfg config.R2) (*s3.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
		awsconfig.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load R2 config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.AccountID))
	}), nil
}

// Upload stores data in the bucket under a random key after checking its
// type from the content.
func (s *mediaService) Upload(ctx context.Context, data []byte) (*transfer.MediaUpload, error) {
	if s.store == nil {
		return nil, models.NewValidationError("", "no media storage configured")
	}

	kind, err := filetype.Match(data)
	if err != nil || kind == types.Unknown {
		return nil, models.NewValidationError("", "unsupported media type")
	}
	if _, ok := allowedMediaTypes[kind.Extension]; !ok {
		return nil, models.NewValidationError("", "media type %s is not allowed", kind.Extension)
	}

	id, err := gonanoid.New()
	if err != nil {
		return nil, err
	}
	key := id + "." + kind.Extension

	_, err = s.store.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.BucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(kind.MIME.Value),
	})
	if err != nil {
		slog.Info(err.Error())
		return nil, models.NewTransientError("", "media upload failed", err)
	}

	return &transfer.MediaUpload{
		Key:  key,
		URL:  strings.TrimRight(s.cfg.PublicURL, "/") + "/" + key,
		MIME: kind.MIME.Value,
	}, nil
}

// PublicURL returns ref unchanged when it is already a URL. Local files are
// uploaded once and the resulting URL is reused.
func (s *mediaService) PublicURL(ctx context.Context, ref string) (string, error) {
	if isRemote(ref) {
		return ref, nil
	}

	s.mu.Lock()
	u, ok := s.uploaded[ref]
	s.mu.Unlock()
	if ok {
		return u, nil
	}

	data, err := readLocal(ref)
	if err != nil {
		return "", err
	}
	if s.store == nil {
		return "", models.NewValidationError("", "media %q is a local file and no public media storage is configured", ref)
	}

	upload, err := s.Upload(ctx, data)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	s.uploaded[ref] = upload.URL
	s.mu.Unlock()
	return upload.URL, nil
}

// Open returns the content of ref and its MIME type.
func (s *mediaService) Open(ctx context.Context, ref string) (io.ReadCloser, string, error) {
	if !isRemote(ref) {
		data, err := readLocal(ref)
		if err != nil {
			return nil, "", err
		}
		mime := ""
		if kind, err := filetype.Match(data); err == nil && kind != types.Unknown {
			mime = kind.MIME.Value
		}
		return io.NopCloser(bytes.NewReader(data)), mime, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, "", models.NewValidationError("", "invalid media url %q", ref)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, "", models.NewTransientError("", "error downloading media", err)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		resp.Body.Close()
		return nil, "", classifyResponse("", resp.StatusCode, body)
	}

	mime := resp.Header.Get("Content-Type")
	if mime == "" {
		mime = filetype.GetType(mediaExtension(ref)).MIME.Value
	}
	return resp.Body, mime, nil
}

func readLocal(ref string) ([]byte, error) {
	data, err := os.ReadFile(ref)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, models.NewValidationError("", "media %q not found", ref)
		}
		return nil, models.NewPlatformError("", "error reading media", err)
	}
	return data, nil
}

func isRemote(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
}

func mediaExtension(ref string) string {
	p := ref
	if isRemote(ref) {
		if u, err := url.Parse(ref); err == nil {
			p = u.Path
		}
	}
	return strings.ToLower(strings.TrimPrefix(path.Ext(p), "."))
}

// mediaKind guesses from the extension whether ref is an image or a video.
// Unknown extensions count as images.
func mediaKind(ref string) string {
	if filetype.GetType(mediaExtension(ref)).MIME.Type == mediaKindVideo {
		return mediaKindVideo
	}
	return mediaKindImage
}

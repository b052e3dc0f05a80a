package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	config "github.com/maheshrc27/campaign-publisher/configs"
	"github.com/maheshrc27/campaign-publisher/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPacing() config.Pacing {
	return config.Pacing{
		PhaseDelay:    time.Millisecond,
		PollInterval:  time.Millisecond,
		MaxPolls:      3,
		RetryAttempts: 2,
		RetryBase:     time.Millisecond,
	}
}

func TestInstagramClient_Publish(t *testing.T) {
	var statusChecks atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("/v21.0/acct/media", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer ig-token", r.Header.Get("Authorization"))

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "https://cdn.example.com/a.jpg", body["image_url"])
		assert.Equal(t, "spring is here", body["caption"])
		w.Write([]byte(`{"id":"container-7"}`))
	})
	mux.HandleFunc("/v21.0/container-7", func(w http.ResponseWriter, r *http.Request) {
		if statusChecks.Add(1) < 2 {
			w.Write([]byte(`{"status_code":"IN_PROGRESS"}`))
			return
		}
		w.Write([]byte(`{"status_code":"FINISHED"}`))
	})
	mux.HandleFunc("/v21.0/acct/media_publish", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "container-7", body["creation_id"])
		w.Write([]byte(`{"id":"ig-media-1"}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := NewInstagramClient(config.Instagram{
		AccountID:   "acct",
		AccessToken: "ig-token",
		APIVersion:  "v21.0",
		BaseURL:     srv.URL,
	}, fakeMedia{}, testPacing())

	result, err := client.Publish(context.Background(), "spring is here", []string{"https://cdn.example.com/a.jpg"})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "ig-media-1", result.ExternalID)
	assert.Equal(t, int32(2), statusChecks.Load())
}

func TestInstagramClient_NoMediaIsRejectedLocally(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	client := NewInstagramClient(config.Instagram{AccountID: "acct", AccessToken: "t", BaseURL: srv.URL}, fakeMedia{}, testPacing())
	_, err := client.Publish(context.Background(), "text only", nil)
	assert.True(t, models.IsValidation(err))
	assert.Zero(t, hits.Load())
}

func TestInstagramClient_ContainerError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v21.0/c1", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status_code":"ERROR","status":"Error: unsupported aspect ratio"}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := NewInstagramClient(config.Instagram{AccountID: "acct", AccessToken: "t", APIVersion: "v21.0", BaseURL: srv.URL}, fakeMedia{}, testPacing())
	_, err := client.PublishContainer(context.Background(), "c1")
	assert.True(t, models.IsPlatform(err))
	assert.Contains(t, err.Error(), "unsupported aspect ratio")
}

func TestTwitterClient(t *testing.T) {
	var tweets atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/2/media/upload", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "tweet_image", r.FormValue("media_category"))
		w.Write([]byte(`{"data":{"id":"m-1"}}`))
	})
	mux.HandleFunc("/2/tweets", func(w http.ResponseWriter, r *http.Request) {
		tweets.Add(1)
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "hello world", body["text"])
		assert.Equal(t, map[string]interface{}{"media_ids": []interface{}{"m-1"}}, body["media"])
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"data":{"id":"1890","text":"hello world"}}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := NewTwitterClient(config.Twitter{
		AccessToken: "tw-token",
		BaseURL:     srv.URL,
		UploadURL:   srv.URL + "/2/media/upload",
	}, fakeMedia{})

	result, err := client.Publish(context.Background(), "hello world", []string{"https://cdn.example.com/a.png"})
	require.NoError(t, err)
	assert.Equal(t, "1890", result.ExternalID)

	_, err = client.Publish(context.Background(), strings.Repeat("x", 300), nil)
	assert.True(t, models.IsValidation(err))
	assert.Equal(t, int32(1), tweets.Load())

	_, err = NewTwitterClient(config.Twitter{BaseURL: srv.URL}, fakeMedia{}).Publish(context.Background(), "hi", nil)
	assert.True(t, models.IsAuth(err))
}

func TestTwitterClient_RateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"title":"Too Many Requests","status":429}`))
	}))
	defer srv.Close()

	client := NewTwitterClient(config.Twitter{AccessToken: "t", BaseURL: srv.URL}, fakeMedia{})
	_, err := client.Publish(context.Background(), "hi", nil)
	assert.True(t, models.IsTransient(err))
}

func TestFacebookClient(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v21.0/page/feed", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "news", r.PostForm.Get("message"))
		w.Write([]byte(`{"id":"page_1"}`))
	})
	mux.HandleFunc("/v21.0/page/photos", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "https://cdn.example.com/a.jpg", r.PostForm.Get("url"))
		w.Write([]byte(`{"id":"photo_1","post_id":"page_2"}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := NewFacebookClient(config.Facebook{PageID: "page", PageToken: "t", APIVersion: "v21.0", BaseURL: srv.URL}, fakeMedia{})

	result, err := client.Publish(context.Background(), "news", nil)
	require.NoError(t, err)
	assert.Equal(t, "page_1", result.ExternalID)

	result, err = client.Publish(context.Background(), "news", []string{"https://cdn.example.com/a.jpg"})
	require.NoError(t, err)
	assert.Equal(t, "page_2", result.ExternalID)

	assert.True(t, models.IsValidation(client.Validate("clip", []string{"https://cdn.example.com/a.mp4"})))
}

func TestPinterestClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v5/pins", r.URL.Path)
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "board-1", body["board_id"])
		assert.Equal(t, "First line", body["title"])
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":"pin-5"}`))
	}))
	defer srv.Close()

	client := NewPinterestClient(config.Pinterest{AccessToken: "t", BoardID: "board-1", BaseURL: srv.URL}, fakeMedia{})
	result, err := client.Publish(context.Background(), "First line\nmore text", []string{"https://cdn.example.com/a.jpg"})
	require.NoError(t, err)
	assert.Equal(t, "pin-5", result.ExternalID)

	_, err = client.Publish(context.Background(), "no image", nil)
	assert.True(t, models.IsValidation(err))
}

func TestTiktokClient_PublishContainer(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantID  string
		check   func(error) bool
		wantErr bool
	}{
		{"complete", `{"data":{"status":"PUBLISH_COMPLETE","publicaly_available_post_id":[7351]}}`, "7351", nil, false},
		{"inbox", `{"data":{"status":"SEND_TO_USER_INBOX"}}`, "pub-1", nil, false},
		{"processing", `{"data":{"status":"PROCESSING_UPLOAD"}}`, "", models.IsTransient, true},
		{"failed", `{"data":{"status":"FAILED","fail_reason":"picture_size_check_failed"}}`, "", models.IsPlatform, true},
		{"token", `{"error":{"code":"access_token_invalid","message":"expired"}}`, "", models.IsAuth, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/v2/post/publish/status/fetch/", r.URL.Path)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client := NewTiktokClient(config.Tiktok{AccessToken: "t", BaseURL: srv.URL}, fakeMedia{}, testPacing())
			id, err := client.PublishContainer(context.Background(), "pub-1")
			if tt.wantErr {
				assert.True(t, tt.check(err), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, id)
		})
	}
}

func TestTiktokClient_Validate(t *testing.T) {
	client := NewTiktokClient(config.Tiktok{}, fakeMedia{}, testPacing())
	assert.NoError(t, client.Validate("clip", []string{"https://cdn.example.com/a.mp4"}))
	assert.NoError(t, client.Validate("photos", []string{"a.jpg", "b.jpg"}))
	assert.True(t, models.IsValidation(client.Validate("mixed", []string{"a.mp4", "b.jpg"})))
	assert.True(t, models.IsValidation(client.Validate("none", nil)))
}

func TestYoutubeClient_Validate(t *testing.T) {
	client := NewYoutubeClient(config.Youtube{}, fakeMedia{})
	assert.NoError(t, client.Validate("My video\ndescription", []string{"clip.mp4"}))
	assert.True(t, models.IsValidation(client.Validate("\n", []string{"clip.mp4"})))
	assert.True(t, models.IsValidation(client.Validate(strings.Repeat("t", 101), []string{"clip.mp4"})))
	assert.True(t, models.IsValidation(client.Validate("My photo", []string{"photo.jpg"})))

	_, err := client.Publish(context.Background(), "My video", []string{"clip.mp4"})
	assert.True(t, models.IsAuth(err))
}

func TestNewPlatformClients(t *testing.T) {
	clients := NewPlatformClients(&config.Config{Pacing: map[string]config.Pacing{}}, fakeMedia{})
	for _, p := range SupportedPlatforms() {
		c, ok := clients[p]
		require.True(t, ok, p)
		assert.Equal(t, p, c.Platform())
	}

	_, twoPhase := clients[PlatformInstagram].(TwoPhaseClient)
	assert.True(t, twoPhase)
	_, twoPhase = clients[PlatformTwitter].(TwoPhaseClient)
	assert.False(t, twoPhase)
}

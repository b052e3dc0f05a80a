package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/maheshrc27/campaign-publisher/internal/models"
	"github.com/maheshrc27/campaign-publisher/internal/transfer"
	"golang.org/x/oauth2"
)

const maxErrorBody = 64 << 10

// bearerClient returns an HTTP client that authenticates every request with
// a static bearer token.
func bearerClient(token string, timeout time.Duration) *http.Client {
	base := &http.Client{Timeout: timeout}
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}))
	client.Timeout = timeout
	return client
}

type apiRequest struct {
	method string
	url    string
	json   any
	form   url.Values
	body   io.Reader
	header map[string]string
}

// doRequest sends req and decodes a 2xx JSON response into out. Any other
// outcome is returned as a *models.PublishError.
func doRequest(ctx context.Context, client *http.Client, platform string, req apiRequest, out any) error {
	var body io.Reader
	contentType := ""
	switch {
	case req.json != nil:
		b, err := json.Marshal(req.json)
		if err != nil {
			return models.NewPlatformError(platform, "error marshalling payload", err)
		}
		body = bytes.NewReader(b)
		contentType = "application/json; charset=UTF-8"
	case req.form != nil:
		body = strings.NewReader(req.form.Encode())
		contentType = "application/x-www-form-urlencoded"
	case req.body != nil:
		body = req.body
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, req.url, body)
	if err != nil {
		return models.NewPlatformError(platform, "error creating request", err)
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	for k, v := range req.header {
		httpReq.Header.Set(k, v)
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return classifyTransportError(platform, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return classifyResponse(platform, resp.StatusCode, respBody)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return models.NewPlatformError(platform, "error parsing response", err)
	}
	return nil
}

// classifyTransportError maps errors from http.Client.Do. A failed token
// refresh is an auth error; anything else that never got a response,
// timeouts included, is transient.
func classifyTransportError(platform string, err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		return models.NewAuthError(platform, "token refresh failed", err)
	}
	return models.NewTransientError(platform, "request failed", err)
}

// statusKind maps an HTTP status code to an error kind.
func statusKind(status int) models.ErrorKind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return models.KindAuth
	case status == http.StatusRequestTimeout || status == http.StatusTooManyRequests || status >= 500:
		return models.KindTransient
	default:
		return models.KindPlatform
	}
}

// Graph API error codes.
const (
	graphCodeTooManyCalls  = 4
	graphCodeUserRateLimit = 17
	graphCodeExpiredToken  = 190
	graphCodePageRateLimit = 32
	graphCodeAppRateLimit  = 613
)

func classifyResponse(platform string, status int, body []byte) error {
	kind := statusKind(status)
	message := fmt.Sprintf("status %d", status)

	var graph transfer.GraphErrorResponse
	if json.Unmarshal(body, &graph) == nil && graph.Error.Message != "" {
		message = fmt.Sprintf("status %d: %s", status, graph.Error.Message)
		switch graph.Error.Code {
		case graphCodeExpiredToken:
			kind = models.KindAuth
		case graphCodeTooManyCalls, graphCodeUserRateLimit, graphCodePageRateLimit, graphCodeAppRateLimit:
			kind = models.KindTransient
		default:
			if graph.Error.IsTransient {
				kind = models.KindTransient
			}
		}
		return &models.PublishError{Kind: kind, Platform: platform, Message: message}
	}

	if detail := errorDetail(body); detail != "" {
		message = fmt.Sprintf("status %d: %s", status, detail)
	}
	return &models.PublishError{Kind: kind, Platform: platform, Message: message}
}

// errorDetail pulls a readable message out of the error bodies of the
// non-Graph platforms.
func errorDetail(body []byte) string {
	var tw transfer.TwitterErrorResponse
	if json.Unmarshal(body, &tw) == nil && (tw.Detail != "" || tw.Title != "") {
		if tw.Detail != "" {
			return tw.Detail
		}
		return tw.Title
	}

	var pin transfer.PinterestErrorResponse
	if json.Unmarshal(body, &pin) == nil && pin.Message != "" {
		return pin.Message
	}

	var tt transfer.TikTokUploadResponse
	if json.Unmarshal(body, &tt) == nil && tt.Error.Message != "" {
		return tt.Error.Message
	}

	text := strings.TrimSpace(string(body))
	if len(text) > 200 {
		text = text[:200]
	}
	return text
}

func missingCredentials(platform string) error {
	return models.NewAuthError(platform, "no credentials configured", nil)
}

func joinURL(base string, parts ...string) string {
	return strings.TrimRight(base, "/") + "/" + strings.Join(parts, "/")
}

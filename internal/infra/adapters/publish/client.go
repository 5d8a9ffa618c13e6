// File: internal/infra/adapters/publish/client.go
package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"ai-article-queue/internal/config"
	"ai-article-queue/internal/domain/model"
	"ai-article-queue/internal/domain/ports/adapter"
	"ai-article-queue/internal/infra/logging"
	"ai-article-queue/internal/infra/metrics"
)

var _ adapter.PublisherAdapter = (*Client)(nil)

// Client submits generated articles to the external dashboard API.
type Client struct {
	publishURL     string
	loginURL       string
	email          string
	password       string
	loginTimeout   time.Duration
	publishTimeout time.Duration
	http           *http.Client
	log            zerolog.Logger
}

func NewClient(cfg *config.PublishConfig, logger zerolog.Logger) *Client {
	return &Client{
		publishURL:     cfg.URL,
		loginURL:       cfg.LoginURL,
		email:          cfg.Email,
		password:       cfg.Password,
		loginTimeout:   cfg.LoginTimeout,
		publishTimeout: cfg.PublishTimeout,
		http:           &http.Client{},
		log:            logger.With().Str("component", "publish_client").Logger(),
	}
}

// Login authenticates against the dashboard and returns a bearer token.
// Any failure degrades to an empty token so the batch still runs; each
// publish then records its own rejection.
func (c *Client) Login(ctx context.Context) (string, error) {
	log := logging.With(ctx, &c.log)

	body, err := json.Marshal(map[string]string{
		"email":    c.email,
		"password": c.password,
	})
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, c.loginTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.loginURL, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		log.Warn().Err(err).Msg("login request failed")
		return "", nil
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Warn().Int("status", resp.StatusCode).Msg("login rejected")
		return "", nil
	}

	var parsed struct {
		Succeeded bool `json:"succeeded"`
		Data      struct {
			Token string `json:"token"`
		} `json:"data"`
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		log.Warn().Err(err).Msg("login response not decodable")
		return "", nil
	}
	if !parsed.Succeeded || parsed.Data.Token == "" {
		log.Warn().Str("reason", parsed.Error.Message).Msg("login unsuccessful")
		return "", nil
	}
	return parsed.Data.Token, nil
}

// Publish submits one article. The result is always an outcome value;
// network, status and decode failures are classified, never returned as
// an error, so one bad article cannot abort the rest of the batch.
func (c *Client) Publish(ctx context.Context, token string, article adapter.Article) model.PublishOutcome {
	payload := publishPayload(article)
	body, err := json.Marshal(payload)
	if err != nil {
		return failure(model.PublishErrDecode, 0, fmt.Sprintf("encode payload: %v", err))
	}

	ctx, cancel := context.WithTimeout(ctx, c.publishTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.publishURL, bytes.NewReader(body))
	if err != nil {
		return failure(model.PublishErrNetwork, 0, err.Error())
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		metrics.IncPublishOutcome("network")
		return failure(model.PublishErrNetwork, 0, err.Error())
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.IncPublishOutcome("status")
		return failure(model.PublishErrStatus, resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	if resp.StatusCode == http.StatusNoContent || len(bytes.TrimSpace(raw)) == 0 {
		metrics.IncPublishOutcome("ok")
		return model.PublishOutcome{
			OK:   true,
			Note: fmt.Sprintf("accepted with no response body (status %d)", resp.StatusCode),
		}
	}

	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		metrics.IncPublishOutcome("decode")
		out := failure(model.PublishErrDecode, resp.StatusCode, "response is not valid JSON")
		out.Note = strings.TrimSpace(string(raw))
		return out
	}

	metrics.IncPublishOutcome("ok")
	return model.PublishOutcome{
		OK:          true,
		PublishedID: extractPublishedID(decoded),
		Payload:     decoded,
	}
}

func failure(kind model.PublishErrorKind, status int, detail string) model.PublishOutcome {
	return model.PublishOutcome{
		Error: &model.PublishError{Kind: kind, StatusCode: status, Detail: detail},
	}
}

// extractPublishedID pulls data.id (or a top-level id) out of the
// decoded response. Zero means the API did not report one.
func extractPublishedID(decoded map[string]any) int64 {
	candidate := decoded["id"]
	if data, ok := decoded["data"].(map[string]any); ok {
		if v, ok := data["id"]; ok {
			candidate = v
		}
	}
	switch v := candidate.(type) {
	case float64:
		return int64(v)
	case json.Number:
		n, _ := v.Int64()
		return n
	default:
		return 0
	}
}

// publishPayload mirrors the dashboard's post schema. Fields the
// generator does not produce are sent with their neutral values; the
// API rejects requests that omit them.
func publishPayload(a adapter.Article) map[string]any {
	return map[string]any{
		"title":                  a.Title,
		"metaTitle":              a.Title,
		"slug":                   a.Slug,
		"name":                   a.Name,
		"summary":                a.Title,
		"content":                a.Content,
		"suggestions":            a.Title,
		"enablePostMetaDetail":   false,
		"enablePostTagDetails":   false,
		"enableApiSetting":       false,
		"enableCategorieDetails": false,
		"enableAdsTemplate":      false,
		"LeftRightAdsBanner":     false,
		"TopBottomAdsBanner":     false,
		"feedbackId":             0,
		"post_metas":             []map[string]string{{"key": "", "content": ""}},
		"post_categories":        []map[string]string{{"key": "", "content": ""}},
		"post_tags":              []map[string]string{{"title": "", "metaTitle": "", "slug": "", "content": ""}},
		"api_settings": map[string]any{
			"method":      "GET",
			"apiUrl":      "",
			"queryParams": []map[string]string{{"key": "", "value": ""}},
			"headers":     []map[string]string{{"key": "", "value": ""}},
			"jsonData":    "{}",
		},
		"AdsBanner": map[string]any{},
	}
}

// Package newsapi fetches source articles and uploads generated datasets.
package newsapi

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog/log"

	"github.com/tensorplex-labs/fakenews/internal/config"
)

const (
	articlePath = "/articles/random"
	datasetPath = "/articles/dataset/create"
)

var ErrUnauthorized = errors.New("news api rejected credentials")

// Credentials yields the basic auth pair, a hotkey and its signature.
type Credentials interface {
	BasicAuth() (string, string, error)
}

type Client struct {
	httpClient  *retryablehttp.Client
	baseURL     string
	user        string
	password    string
	saveTimeout time.Duration
}

func NewClient(cfg *config.NewsAPIEnvConfig, creds Credentials, retries int) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration cannot be nil")
	}
	user, password, err := creds.BasicAuth()
	if err != nil {
		return nil, fmt.Errorf("news api credentials: %w", err)
	}

	client := retryablehttp.NewClient()
	client.RetryMax = retries
	client.HTTPClient.Timeout = 30 * time.Second
	client.RetryWaitMin = 500 * time.Millisecond
	client.RetryWaitMax = 5 * time.Second
	client.Logger = nil

	log.Info().
		Str("base_url", cfg.NewsAPIURL).
		Int("retry_max", client.RetryMax).
		Msg("news api client initialized")

	return &Client{
		httpClient:  client,
		baseURL:     cfg.NewsAPIURL,
		user:        user,
		password:    password,
		saveTimeout: cfg.NewsAPISaveTimeout,
	}, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*retryablehttp.Request, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := sonic.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.SetBasicAuth(c.user, c.password)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// FetchArticle returns a random source article.
func (c *Client) FetchArticle(ctx context.Context) (*Article, error) {
	req, err := c.newRequest(ctx, http.MethodGet, articlePath, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Warn().Err(err).Msg("Error while getting article")
		return nil, fmt.Errorf("get article: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read article response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		log.Warn().Str("details", string(body)).Msg("News API rejected credentials")
		return nil, fmt.Errorf("%w: %s", ErrUnauthorized, body)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("get article: status %d: %s", resp.StatusCode, body)
	}

	var article Article
	if err := sonic.Unmarshal(body, &article); err != nil {
		return nil, fmt.Errorf("decode article: %w", err)
	}
	return &article, nil
}

// SaveArticlesDataset uploads generated articles. Failures are logged and
// returned, callers treat them as non fatal.
func (c *Client) SaveArticlesDataset(ctx context.Context, dataset Dataset) error {
	ctx, cancel := context.WithTimeout(ctx, c.saveTimeout)
	defer cancel()

	req, err := c.newRequest(ctx, http.MethodPost, datasetPath, dataset)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Warn().Err(err).Msg("Error while saving dataset")
		return fmt.Errorf("save dataset: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusBadRequest {
		log.Warn().Int("status", resp.StatusCode).Msg("Error while saving dataset")
		return fmt.Errorf("save dataset: status %d", resp.StatusCode)
	}
	return nil
}

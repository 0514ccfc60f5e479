// Package judge0 talks to the Judge0 code execution API published on RapidAPI.
package judge0

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

	"codybuddy/internal/domain"
	"codybuddy/internal/repository"
)

// ErrMissingAPIKey is returned before any request is made when no RapidAPI key is configured.
var ErrMissingAPIKey = repository.ErrProviderNotConfigured

// Config holds the provider endpoint and credentials
type Config struct {
	URL    string // submissions endpoint, e.g. https://judge0-ce.p.rapidapi.com/submissions
	APIKey string
	Host   string
}

// Client is an HTTP implementation of repository.ExecutionProvider
type Client struct {
	cfg  Config
	http *http.Client
}

// NewClient creates a Client. A nil httpClient gets a client with a 15s timeout.
func NewClient(cfg Config, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	cfg.URL = strings.TrimRight(cfg.URL, "/")
	return &Client{cfg: cfg, http: httpClient}
}

type submitRequest struct {
	LanguageID int    `json:"language_id"`
	SourceCode string `json:"source_code"`
	Stdin      string `json:"stdin"`
}

type submitResponse struct {
	Token string `json:"token"`
}

// Submit posts the source code and returns the submission token
func (c *Client) Submit(ctx context.Context, languageID int, sourceCode string) (string, error) {
	if c.cfg.APIKey == "" {
		return "", ErrMissingAPIKey
	}

	body, err := json.Marshal(submitRequest{LanguageID: languageID, SourceCode: sourceCode, Stdin: ""})
	if err != nil {
		return "", fmt.Errorf("judge0: marshal submission: %w", err)
	}

	query := url.Values{}
	query.Set("base64_encoded", "false")
	query.Set("fields", "*")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL+"?"+query.Encode(), bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("judge0: build submit request: %w", err)
	}
	req.Header.Set("content-type", "application/json")

	var out submitResponse
	if err := c.do(req, &out); err != nil {
		return "", fmt.Errorf("judge0: submit: %w", err)
	}
	if out.Token == "" {
		return "", errors.New("judge0: submit: response carried no token")
	}
	return out.Token, nil
}

// Get fetches the submission identified by token
func (c *Client) Get(ctx context.Context, token string) (*domain.Submission, error) {
	if c.cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.URL+"/"+url.PathEscape(token), nil)
	if err != nil {
		return nil, fmt.Errorf("judge0: build get request: %w", err)
	}

	var sub domain.Submission
	if err := c.do(req, &sub); err != nil {
		return nil, fmt.Errorf("judge0: get %s: %w", token, err)
	}
	return &sub, nil
}

func (c *Client) do(req *http.Request, out interface{}) error {
	req.Header.Set("X-RapidAPI-Key", c.cfg.APIKey)
	req.Header.Set("X-RapidAPI-Host", c.cfg.Host)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

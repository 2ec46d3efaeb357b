// Package apiclient talks to the GradeFresh API, which owns authentication,
// persistence and image classification.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// Client represents an HTTP client for the GradeFresh API
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a new API client
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// SetHTTPClient sets a custom HTTP client
func (c *Client) SetHTTPClient(httpClient *http.Client) {
	c.httpClient = httpClient
}

// BaseURL returns the API root
func (c *Client) BaseURL() string {
	return c.baseURL
}

// do sends a request and decodes a JSON response into out (if non-nil)
func (c *Client) do(ctx context.Context, method, path, token, contentType string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return newAPIError(resp.StatusCode, data)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) doJSON(ctx context.Context, method, path, token string, in, out any) error {
	var body io.Reader
	contentType := ""
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	}
	return c.do(ctx, method, path, token, contentType, body, out)
}

// Register creates an account and returns its first token
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	var resp AuthResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/register", "", req, &resp); err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	return &resp, nil
}

// Login authenticates a user with email and password
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	var resp AuthResponse
	req := LoginRequest{Email: email, Password: password}
	if err := c.doJSON(ctx, http.MethodPost, "/api/login", "", req, &resp); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	return &resp, nil
}

// AdminLogin authenticates through the admin endpoint, which takes a form
// body and answers 403 for non-admin accounts
func (c *Client) AdminLogin(ctx context.Context, email, password string) (*AuthResponse, error) {
	form := url.Values{}
	form.Set("email", email)
	form.Set("password", password)

	var resp AuthResponse
	err := c.do(ctx, http.MethodPost, "/api/admin/login", "",
		"application/x-www-form-urlencoded", strings.NewReader(form.Encode()), &resp)
	if err != nil {
		return nil, fmt.Errorf("admin login: %w", err)
	}
	return &resp, nil
}

// Stats returns dashboard counters (admin only)
func (c *Client) Stats(ctx context.Context, token string) (*Stats, error) {
	var stats Stats
	if err := c.doJSON(ctx, http.MethodGet, "/api/admin/stats", token, nil, &stats); err != nil {
		return nil, fmt.Errorf("get stats: %w", err)
	}
	return &stats, nil
}

// ListUsers returns every account (admin only)
func (c *Client) ListUsers(ctx context.Context, token string) ([]UserRecord, error) {
	var users []UserRecord
	if err := c.doJSON(ctx, http.MethodGet, "/api/admin/users", token, nil, &users); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// DeleteUser removes an account (admin only)
func (c *Client) DeleteUser(ctx context.Context, token, id string) error {
	if err := c.doJSON(ctx, http.MethodDelete, "/api/admin/users/"+url.PathEscape(id), token, nil, nil); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

// ListNews returns all articles including drafts (admin only)
func (c *Client) ListNews(ctx context.Context, token string) ([]News, error) {
	var news []News
	if err := c.doJSON(ctx, http.MethodGet, "/api/admin/news", token, nil, &news); err != nil {
		return nil, fmt.Errorf("list news: %w", err)
	}
	return news, nil
}

// GetNews returns one article (admin only)
func (c *Client) GetNews(ctx context.Context, token, id string) (*News, error) {
	var news News
	if err := c.doJSON(ctx, http.MethodGet, "/api/admin/news/"+url.PathEscape(id), token, nil, &news); err != nil {
		return nil, fmt.Errorf("get news: %w", err)
	}
	return &news, nil
}

// CreateNews publishes or drafts an article (admin only)
func (c *Client) CreateNews(ctx context.Context, token string, in NewsCreate) (*News, error) {
	var news News
	if err := c.doJSON(ctx, http.MethodPost, "/api/admin/news", token, in, &news); err != nil {
		return nil, fmt.Errorf("create news: %w", err)
	}
	return &news, nil
}

// UpdateNews changes an article (admin only)
func (c *Client) UpdateNews(ctx context.Context, token, id string, in NewsUpdate) (*News, error) {
	var news News
	if err := c.doJSON(ctx, http.MethodPut, "/api/admin/news/"+url.PathEscape(id), token, in, &news); err != nil {
		return nil, fmt.Errorf("update news: %w", err)
	}
	return &news, nil
}

// DeleteNews removes an article (admin only)
func (c *Client) DeleteNews(ctx context.Context, token, id string) error {
	if err := c.doJSON(ctx, http.MethodDelete, "/api/admin/news/"+url.PathEscape(id), token, nil, nil); err != nil {
		return fmt.Errorf("delete news: %w", err)
	}
	return nil
}

// PublicNews returns published articles; no token needed
func (c *Client) PublicNews(ctx context.Context) ([]News, error) {
	var news []News
	if err := c.doJSON(ctx, http.MethodGet, "/api/news", "", nil, &news); err != nil {
		return nil, fmt.Errorf("list public news: %w", err)
	}
	return news, nil
}

// Predict uploads an image for classification
func (c *Client) Predict(ctx context.Context, token, fileName, contentType string, image io.Reader) (*Prediction, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, fileName))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header.Set("Content-Type", contentType)

	part, err := mw.CreatePart(header)
	if err != nil {
		return nil, fmt.Errorf("failed to create form part: %w", err)
	}
	if _, err := io.Copy(part, image); err != nil {
		return nil, fmt.Errorf("failed to copy image: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to close form: %w", err)
	}

	var pred Prediction
	if err := c.do(ctx, http.MethodPost, "/api/predict", token, mw.FormDataContentType(), &buf, &pred); err != nil {
		return nil, fmt.Errorf("predict: %w", err)
	}
	return &pred, nil
}

// Package httpapi implements the remote API interfaces over the backend's
// REST surface.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/dvir/roombill-client/internal/remote"
	"github.com/tidwall/gjson"
)

const defaultTimeout = 30 * time.Second

// Client handles HTTP communication with the backend. It implements both
// remote.AuthAPI and remote.ChatAPI.
type Client struct {
	baseURL    string
	httpClient *http.Client

	mu    sync.RWMutex
	token string
}

var (
	_ remote.AuthAPI = (*Client)(nil)
	_ remote.ChatAPI = (*Client)(nil)
)

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL + "/api/v1",
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}
}

func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) currentToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// do sends one request and returns the response body. A non-2xx response
// becomes a *remote.APIError; a transport failure is returned wrapped, so the
// two stay distinguishable.
func (c *Client) do(ctx context.Context, method, path string, body any) ([]byte, error) {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token := c.currentToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &remote.APIError{
			Status:  resp.StatusCode,
			Message: errorMessage(respBody, resp.StatusCode),
		}
	}
	return respBody, nil
}

// errorMessage pulls the server-provided message out of an error body,
// tolerating both {"error": ...} and {"message": ...} shapes.
func errorMessage(body []byte, status int) string {
	if msg := gjson.GetBytes(body, "error").String(); msg != "" {
		return msg
	}
	if msg := gjson.GetBytes(body, "message").String(); msg != "" {
		return msg
	}
	return http.StatusText(status)
}

// Package hooks lets an AI agent session feed the garden: it answers agent
// hook events on stdin by calling a running seedsoil server.
package hooks

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/lazypower/seedsoil/internal/store"
)

const (
	defaultServerURL = "http://127.0.0.1:37778"
	httpTimeout      = 5 * time.Second
)

// Client is a small typed client for the seedsoil HTTP API.
type Client struct {
	http      *http.Client
	serverURL string
}

// NewClient creates a hook client for url. An empty url uses SEEDSOIL_URL,
// falling back to http://127.0.0.1:37778.
func NewClient(url string) *Client {
	if url == "" {
		url = os.Getenv("SEEDSOIL_URL")
	}
	if url == "" {
		url = defaultServerURL
	}
	return &Client{
		http:      &http.Client{Timeout: httpTimeout},
		serverURL: url,
	}
}

// do sends a request and decodes a JSON response into out when out is non-nil.
func (c *Client) do(method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s: %w", path, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.serverURL+path, body)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, bytes.TrimSpace(msg))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// Capture plants text as a new seed.
func (c *Client) Capture(text string) (store.Item, error) {
	var it store.Item
	err := c.do(http.MethodPost, "/api/seeds", map[string]string{"text": text}, &it)
	return it, err
}

// Review returns the seeds currently due for review.
func (c *Client) Review() ([]store.Item, error) {
	var resp struct {
		Items []store.Item `json:"items"`
	}
	if err := c.do(http.MethodGet, "/api/review", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// Healthy checks if the server is reachable.
func (c *Client) Healthy() bool {
	return c.do(http.MethodGet, "/api/health", nil, nil) == nil
}

package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultGitHubAPI = "https://api.github.com"

// Gist stores the document as one file of a GitHub gist.
type Gist struct {
	apiURL string
	id     string
	file   string
	token  string
	client *http.Client
}

// NewGist creates a gist-backed document store.
func NewGist(apiURL, id, file, token string, timeout time.Duration) *Gist {
	if apiURL == "" {
		apiURL = defaultGitHubAPI
	}
	if file == "" {
		file = "seedsoil.json"
	}
	return &Gist{
		apiURL: strings.TrimRight(apiURL, "/"),
		id:     id,
		file:   file,
		token:  token,
		client: &http.Client{Timeout: timeout},
	}
}

type gistFile struct {
	Content   string `json:"content"`
	Truncated bool   `json:"truncated,omitempty"`
	RawURL    string `json:"raw_url,omitempty"`
}

func (g *Gist) newRequest(ctx context.Context, method, url string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	if g.token != "" {
		req.Header.Set("Authorization", "Bearer "+g.token)
	}
	return req, nil
}

func (g *Gist) do(req *http.Request) ([]byte, int, error) {
	resp, err := g.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("gist api: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read response: %w", err)
	}
	return body, resp.StatusCode, nil
}

// Fetch reads the document file from the gist. A missing gist or file is
// reported as not found.
func (g *Gist) Fetch(ctx context.Context) (string, bool, error) {
	req, err := g.newRequest(ctx, "GET", g.apiURL+"/gists/"+g.id, nil)
	if err != nil {
		return "", false, err
	}
	body, code, err := g.do(req)
	if err != nil {
		return "", false, err
	}
	if code == http.StatusNotFound {
		return "", false, nil
	}
	if code != http.StatusOK {
		return "", false, fmt.Errorf("gist api status %d: %s", code, body)
	}

	var result struct {
		Files map[string]*gistFile `json:"files"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", false, fmt.Errorf("decode gist: %w", err)
	}
	f, ok := result.Files[g.file]
	if !ok || f == nil {
		return "", false, nil
	}
	if !f.Truncated {
		return f.Content, true, nil
	}

	// Large files come back truncated; the raw URL has the full content.
	req, err = g.newRequest(ctx, "GET", f.RawURL, nil)
	if err != nil {
		return "", false, err
	}
	body, code, err = g.do(req)
	if err != nil {
		return "", false, err
	}
	if code != http.StatusOK {
		return "", false, fmt.Errorf("gist raw status %d", code)
	}
	return string(body), true, nil
}

// Replace overwrites the document file in the gist.
func (g *Gist) Replace(ctx context.Context, content string) error {
	payload := map[string]any{
		"files": map[string]gistFile{g.file: {Content: content}},
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal gist update: %w", err)
	}

	req, err := g.newRequest(ctx, "PATCH", g.apiURL+"/gists/"+g.id, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	body, code, err := g.do(req)
	if err != nil {
		return err
	}
	if code < 200 || code > 299 {
		return fmt.Errorf("gist api status %d: %s", code, body)
	}
	return nil
}

package store

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	defaultAPIBase = "https://api.github.com"
	defaultRawBase = "https://raw.githubusercontent.com"
)

// GitHub implements Store against the GitHub repository contents API.
// The repository is used purely as a durable file host: each content
// write returns a blob SHA which doubles as the version token, and the
// API refuses a delete whose SHA is stale.
type GitHub struct {
	client  *http.Client
	apiBase string
	rawBase string
	token   string
	owner   string
	repo    string
	branch  string
}

// NewGitHub creates a contents-API client for one repository branch.
func NewGitHub(token, owner, repo, branch string) *GitHub {
	return &GitHub{
		client:  &http.Client{Timeout: 30 * time.Second},
		apiBase: defaultAPIBase,
		rawBase: defaultRawBase,
		token:   token,
		owner:   owner,
		repo:    repo,
		branch:  branch,
	}
}

type contentsItem struct {
	Name string `json:"name"`
	Path string `json:"path"`
	SHA  string `json:"sha"`
	Size int64  `json:"size"`
	Type string `json:"type"`
}

func (g *GitHub) Write(ctx context.Context, path string, data []byte) (string, error) {
	body := map[string]string{
		"message": fmt.Sprintf("upload %s", path),
		"content": base64.StdEncoding.EncodeToString(data),
		"branch":  g.branch,
	}

	resp, err := g.do(ctx, http.MethodPut, g.contentsURL(path), body)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if err := g.checkStatus(resp, http.StatusOK, http.StatusCreated); err != nil {
		return "", err
	}

	var result struct {
		Content contentsItem `json:"content"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode write response: %w", err)
	}
	return result.Content.SHA, nil
}

func (g *GitHub) List(ctx context.Context, dir string) ([]Entry, error) {
	resp, err := g.do(ctx, http.MethodGet, g.contentsURL(dir)+"?ref="+g.branch, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := g.checkStatus(resp, http.StatusOK); err != nil {
		return nil, err
	}

	var items []contentsItem
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, fmt.Errorf("decode listing: %w", err)
	}

	entries := make([]Entry, 0, len(items))
	for _, item := range items {
		if item.Type != "file" {
			continue
		}
		entries = append(entries, Entry{
			Path: item.Path,
			Name: item.Name,
			SHA:  item.SHA,
			Size: item.Size,
		})
	}
	return entries, nil
}

func (g *GitHub) Stat(ctx context.Context, path string) (string, error) {
	resp, err := g.do(ctx, http.MethodGet, g.contentsURL(path)+"?ref="+g.branch, nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if err := g.checkStatus(resp, http.StatusOK); err != nil {
		return "", err
	}

	var item contentsItem
	if err := json.NewDecoder(resp.Body).Decode(&item); err != nil {
		return "", fmt.Errorf("decode stat response: %w", err)
	}
	return item.SHA, nil
}

func (g *GitHub) Delete(ctx context.Context, path string, sha string) error {
	body := map[string]string{
		"message": fmt.Sprintf("expire %s", path),
		"sha":     sha,
		"branch":  g.branch,
	}

	resp, err := g.do(ctx, http.MethodDelete, g.contentsURL(path), body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return g.checkStatus(resp, http.StatusOK)
}

func (g *GitHub) PublicURL(path string) string {
	return fmt.Sprintf("%s/%s/%s/%s/%s", g.rawBase, g.owner, g.repo, g.branch, path)
}

func (g *GitHub) contentsURL(path string) string {
	return fmt.Sprintf("%s/repos/%s/%s/contents/%s", g.apiBase, g.owner, g.repo, path)
}

func (g *GitHub) do(ctx context.Context, method, url string, body interface{}) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("Authorization", "Bearer "+g.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return g.client.Do(req)
}

// checkStatus maps the contents API's failure statuses onto the store's
// sentinel errors. 409 and 422 both signal a stale SHA.
func (g *GitHub) checkStatus(resp *http.Response, ok ...int) error {
	for _, code := range ok {
		if resp.StatusCode == code {
			return nil
		}
	}

	switch resp.StatusCode {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict, http.StatusUnprocessableEntity:
		return ErrConflict
	}

	detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("store: unexpected status %d: %s", resp.StatusCode, bytes.TrimSpace(detail))
}

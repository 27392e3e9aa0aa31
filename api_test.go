package main

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmpdrop/tmpdrop/internal/manifest"
	"github.com/tmpdrop/tmpdrop/internal/retention"
	"github.com/tmpdrop/tmpdrop/internal/store"
)

// memStore is an in-memory Store for handler tests.
type memStore struct {
	entries []store.Entry
	listErr error
	writes  int
}

func (f *memStore) Write(ctx context.Context, path string, data []byte) (string, error) {
	f.writes++
	f.entries = append(f.entries, store.Entry{Path: path, Name: filepath.Base(path), SHA: "w", Size: int64(len(data))})
	return "w", nil
}

func (f *memStore) List(ctx context.Context, dir string) ([]store.Entry, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.entries, nil
}

func (f *memStore) Stat(ctx context.Context, path string) (string, error) {
	for _, e := range f.entries {
		if e.Path == path {
			return e.SHA, nil
		}
	}
	return "", store.ErrNotFound
}

func (f *memStore) Delete(ctx context.Context, path string, sha string) error {
	for i, e := range f.entries {
		if e.Path == path {
			f.entries = append(f.entries[:i], f.entries[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

func (f *memStore) PublicURL(path string) string {
	return "https://files.example.com/" + path
}

type testEnv struct {
	router *gin.Engine
	store  *memStore
	api    *API
}

func newTestEnv(t *testing.T, nowMillis int64) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	m, err := manifest.Open(filepath.Join(t.TempDir(), "manifest.db"))
	require.NoError(t, err)
	t.Cleanup(func() { m.Close() })

	config := defaultConfig()
	config.Repo.Token = "t"
	config.Repo.Owner = "o"
	config.Repo.Name = "r"

	fs := &memStore{}
	api := NewAPI(fs, m, nil, config)
	api.now = func() time.Time { return time.UnixMilli(nowMillis) }

	router := gin.New()
	router.POST("/upload", api.uploadFile)
	router.GET("/files", api.listFiles)
	router.GET("/health", api.health)
	router.GET("/", api.testPage)

	return &testEnv{router: router, store: fs, api: api}
}

func multipartBody(t *testing.T, fieldName, fileName string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var b bytes.Buffer
	w := multipart.NewWriter(&b)
	fw, err := w.CreateFormFile(fieldName, fileName)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return &b, w.FormDataContentType()
}

func TestUpload(t *testing.T) {
	env := newTestEnv(t, 1_700_000_000_000)

	body, contentType := multipartBody(t, "file", "notes.txt", []byte("hello world"))
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		URL       string `json:"url"`
		FileName  string `json:"fileName"`
		ExpiresAt int64  `json:"expiresAt"`
		Size      int64  `json:"size"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.Equal(t, "https://files.example.com/temp/1700000000000_notes.txt", resp.URL)
	assert.Equal(t, "notes.txt", resp.FileName)
	assert.Equal(t, int64(1_700_000_000_000)+retention.WindowMillis, resp.ExpiresAt)
	assert.Equal(t, int64(11), resp.Size)
	assert.Equal(t, 1, env.store.writes)
}

func TestUploadRecordsManifest(t *testing.T) {
	env := newTestEnv(t, 1_700_000_000_000)

	body, contentType := multipartBody(t, "file", "notes.txt", []byte("hello"))
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	got, err := env.api.manifest.Get("temp/1700000000000_notes.txt")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "notes.txt", got.FileName)
	assert.Equal(t, int64(1_700_000_000_000), got.UploadedAt)
}

func TestUploadNoFile(t *testing.T) {
	env := newTestEnv(t, 1_700_000_000_000)

	req := httptest.NewRequest(http.MethodPost, "/upload", nil)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, env.store.writes, "a rejected upload must not reach the store")
}

func TestListFiles(t *testing.T) {
	const base = int64(1_700_000_000_000)
	env := newTestEnv(t, base+retention.WindowMillis+1)

	env.store.entries = []store.Entry{
		{Path: "temp/1700000000000_old.txt", Name: "1700000000000_old.txt"},
		{Path: "temp/README.md", Name: "README.md"}, // unmanaged, hidden
	}
	// A fresh upload tracked only by the manifest.
	require.NoError(t, env.api.manifest.Put(manifest.Record{
		Path:       "temp/fresh.bin",
		FileName:   "fresh.bin",
		UploadedAt: base + retention.WindowMillis,
	}))
	env.store.entries = append(env.store.entries, store.Entry{Path: "temp/fresh.bin", Name: "fresh.bin"})

	req := httptest.NewRequest(http.MethodGet, "/files", nil)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Files []struct {
			Name       string `json:"name"`
			URL        string `json:"url"`
			UploadedAt int64  `json:"uploadedAt"`
			ExpiresAt  int64  `json:"expiresAt"`
			IsExpired  bool   `json:"isExpired"`
		} `json:"files"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	require.Len(t, resp.Files, 2, "the unmanaged entry must be omitted")

	assert.Equal(t, "old.txt", resp.Files[0].Name)
	assert.True(t, resp.Files[0].IsExpired)
	assert.Equal(t, base, resp.Files[0].UploadedAt)

	assert.Equal(t, "fresh.bin", resp.Files[1].Name)
	assert.False(t, resp.Files[1].IsExpired)
}

func TestListFilesEmptyNamespace(t *testing.T) {
	env := newTestEnv(t, 1_700_000_000_000)
	env.store.listErr = store.ErrNotFound

	req := httptest.NewRequest(http.MethodGet, "/files", nil)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"files": []}`, rec.Body.String())
}

func TestHealthConfigured(t *testing.T) {
	env := newTestEnv(t, 1_700_000_000_000)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Status     string   `json:"status"`
		Configured bool     `json:"configured"`
		Missing    []string `json:"missing"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Configured)
	assert.Empty(t, resp.Missing)
}

func TestHealthDegraded(t *testing.T) {
	env := newTestEnv(t, 1_700_000_000_000)
	env.api.config.Repo.Token = ""
	env.api.config.Repo.Owner = ""

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Configured bool     `json:"configured"`
		Missing    []string `json:"missing"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Configured)
	assert.Equal(t, []string{"repo.token", "repo.owner"}, resp.Missing)
}

func TestTestPage(t *testing.T) {
	env := newTestEnv(t, 1_700_000_000_000)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "upload-form")
}

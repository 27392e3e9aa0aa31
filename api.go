package main

import (
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tmpdrop/tmpdrop/internal/manifest"
	"github.com/tmpdrop/tmpdrop/internal/metrics"
	"github.com/tmpdrop/tmpdrop/internal/naming"
	"github.com/tmpdrop/tmpdrop/internal/retention"
	"github.com/tmpdrop/tmpdrop/internal/store"
)

type API struct {
	store     store.Store
	manifest  *manifest.Manifest
	metrics   metrics.Metrics
	config    *Config
	namespace string
	now       func() time.Time
}

func NewAPI(st store.Store, m *manifest.Manifest, mt metrics.Metrics, config *Config) *API {
	if mt == nil {
		mt = metrics.Noop{}
	}
	return &API{
		store:     st,
		manifest:  m,
		metrics:   mt,
		config:    config,
		namespace: config.Storage.Namespace,
		now:       time.Now,
	}
}

func (a *API) RegisterRoutes(router *gin.Engine) {
	router.Use(requestIDMiddleware())

	router.POST("/upload", a.uploadFile)
	router.GET("/files", a.listFiles)
	router.GET("/health", a.health)
	router.GET("/", a.testPage)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))
}

func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}

func (a *API) uploadFile(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file provided"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read file"})
		return
	}

	uploadedAt := a.now().UnixMilli()
	encoded := naming.Encode(uploadedAt, header.Filename)
	path := a.namespace + "/" + encoded

	sha, err := a.store.Write(c.Request.Context(), path, data)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	// The blob is durable at this point; a failed manifest write only
	// costs us the sidecar record, the encoded name still covers expiry.
	if err := a.manifest.Put(manifest.Record{
		Path:       path,
		FileName:   header.Filename,
		UploadedAt: uploadedAt,
		Size:       int64(len(data)),
		SHA:        sha,
	}); err != nil {
		log.Printf("upload: manifest record for %s failed: %v", path, err)
	}

	a.metrics.IncUploads()

	c.JSON(http.StatusOK, gin.H{
		"url":       a.store.PublicURL(path),
		"fileName":  header.Filename,
		"expiresAt": retention.ExpiresAt(uploadedAt),
		"size":      len(data),
	})
}

func (a *API) listFiles(c *gin.Context) {
	entries, err := a.store.List(c.Request.Context(), a.namespace)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	now := a.now().UnixMilli()
	files := make([]gin.H, 0, len(entries))
	for _, entry := range entries {
		name, uploadedAt, ok := a.describe(entry)
		if !ok {
			// Not managed by the retention scheme; hidden from the
			// listing but deliberately left in place.
			continue
		}
		files = append(files, gin.H{
			"name":       name,
			"url":        a.store.PublicURL(entry.Path),
			"uploadedAt": uploadedAt,
			"expiresAt":  retention.ExpiresAt(uploadedAt),
			"isExpired":  retention.Expired(uploadedAt, now),
		})
	}

	c.JSON(http.StatusOK, gin.H{"files": files})
}

// describe resolves the display name and upload instant for a stored
// entry, preferring the manifest and falling back to the encoded name.
func (a *API) describe(entry store.Entry) (string, int64, bool) {
	if a.manifest != nil {
		rec, err := a.manifest.Get(entry.Path)
		if err != nil {
			log.Printf("listing: manifest lookup for %s failed: %v", entry.Path, err)
		} else if rec != nil {
			return rec.FileName, rec.UploadedAt, true
		}
	}

	decoded, ok := naming.Decode(entry.Name)
	if !ok {
		return "", 0, false
	}
	return decoded.Name, decoded.UploadedAt, true
}

func (a *API) health(c *gin.Context) {
	missing := a.config.Missing()
	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"configured": len(missing) == 0,
		"missing":    missing,
	})
}

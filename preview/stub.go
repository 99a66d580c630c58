package preview

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// MaxPreviewSize caps the estimated size of all files of one preview.
const MaxPreviewSize = 10 << 20

var (
	ErrMissingIndex    = errors.New("missing " + IndexFile)
	ErrPayloadTooLarge = errors.New("total file size exceeds limit")
	ErrNoFiles         = errors.New("at least one file is required")
)

type createRequest struct {
	HTML  *string `json:"html"`
	Files []File  `json:"files"`
}

type createData struct {
	PreviewID  string    `json:"previewId"`
	PreviewURL string    `json:"previewUrl"`
	ExpiresAt  time.Time `json:"expiresAt"`
	FileSize   int       `json:"fileSize"`
	FileCount  int       `json:"fileCount"`
}

type createResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    *createData `json:"data,omitempty"`
}

// Stub is a local stand-in for the preview service. It accepts the same
// create requests and keeps previews in a Store.
type Stub struct {
	store   *Store
	baseURL string
	engine  *gin.Engine
}

func NewStub(store *Store, baseURL string) *Stub {
	s := &Stub{
		store:   store,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		engine:  gin.New(),
	}

	s.engine.Use(gin.Recovery(), requestLogger())
	s.engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "previews": s.store.Len()})
	})
	s.engine.POST("/api/v1/preview/create", s.create)
	s.engine.GET("/preview/:id/*path", s.serve)

	return s
}

func (s *Stub) Handler() http.Handler {
	return s.engine
}

// Serve listens on addr until ctx is done, then shuts down gracefully.
func (s *Stub) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("preview stub listening", "addr", addr, "base_url", s.baseURL)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("preview stub stopped: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("could not shut down preview stub: %w", err)
	}
	return nil
}

func (s *Stub) create(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	files, size, err := decodeFiles(req)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, ErrPayloadTooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		fail(c, status, err)
		return
	}

	p, err := s.store.Put(files)
	if err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}

	slog.Info("preview created", "id", p.ID, "files", len(p.Files), "size", size, "stored", p.Size)
	c.JSON(http.StatusOK, createResponse{
		Success: true,
		Data: &createData{
			PreviewID:  p.ID,
			PreviewURL: fmt.Sprintf("%s/preview/%s/", s.baseURL, p.ID),
			ExpiresAt:  p.ExpiresAt.UTC(),
			FileSize:   size,
			FileCount:  len(p.Files),
		},
	})
}

func (s *Stub) serve(c *gin.Context) {
	path := strings.TrimPrefix(c.Param("path"), "/")
	if path == "" {
		path = IndexFile
	}

	f, ok := s.store.File(c.Param("id"), path)
	if !ok {
		c.JSON(http.StatusNotFound, createResponse{Message: "preview not found"})
		return
	}
	c.Data(http.StatusOK, f.ContentType, f.Data)
}

// decodeFiles turns a create request into stored files and the size the
// service reports for them, estimated from the base64 length of each file.
// Paths are kept as sent, so the entry point must be exactly IndexFile.
func decodeFiles(req createRequest) (map[string]StoredFile, int, error) {
	if req.HTML != nil {
		doc := WrapHTML(*req.HTML)
		size := encodedSize(base64.StdEncoding.EncodedLen(len(doc)))
		if size > MaxPreviewSize {
			return nil, 0, ErrPayloadTooLarge
		}
		return map[string]StoredFile{
			IndexFile: {Data: []byte(doc), ContentType: "text/html"},
		}, size, nil
	}

	if len(req.Files) == 0 {
		return nil, 0, ErrNoFiles
	}

	files := make(map[string]StoredFile, len(req.Files))
	size := 0
	for _, f := range req.Files {
		size += encodedSize(len(f.Content))
		if size > MaxPreviewSize {
			return nil, 0, ErrPayloadTooLarge
		}
		data, err := base64.StdEncoding.DecodeString(f.Content)
		if err != nil {
			return nil, 0, fmt.Errorf("invalid content for %q: %w", f.Path, err)
		}
		files[f.Path] = StoredFile{Data: data, ContentType: f.ContentType}
	}

	if _, ok := files[IndexFile]; !ok {
		return nil, 0, ErrMissingIndex
	}
	return files, size, nil
}

// encodedSize is ceil(n * 3/4) for n base64 characters, padding included.
func encodedSize(n int) int {
	return (n*3 + 3) / 4
}

func fail(c *gin.Context, status int, err error) {
	slog.Warn("preview request rejected", "status", status, "error", err)
	c.JSON(status, createResponse{Message: err.Error()})
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
			"ip", c.ClientIP())
	}
}

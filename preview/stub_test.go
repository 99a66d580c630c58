package preview

import (
	"bytes"
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func postCreate(t *testing.T, h http.Handler, body string) (*httptest.ResponseRecorder, createResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/preview/create", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var resp createResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return rec, resp
}

func TestStubCreateFromHTML(t *testing.T) {
	stub := NewStub(NewStore(), "http://localhost:3000/")
	h := stub.Handler()

	rec, resp := postCreate(t, h, `{"html":"<h1>v1 hello prod</h1>"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, resp.Success)
	require.NotNil(t, resp.Data)
	assert.Len(t, resp.Data.PreviewID, 12)
	assert.Equal(t, "http://localhost:3000/preview/"+resp.Data.PreviewID+"/", resp.Data.PreviewURL)
	assert.Equal(t, 1, resp.Data.FileCount)

	get := httptest.NewRecorder()
	h.ServeHTTP(get, httptest.NewRequest(http.MethodGet, "/preview/"+resp.Data.PreviewID+"/", nil))
	assert.Equal(t, http.StatusOK, get.Code)
	assert.Equal(t, "text/html", get.Header().Get("Content-Type"))
	assert.Contains(t, get.Body.String(), "<!DOCTYPE html>")
	assert.Contains(t, get.Body.String(), "<h1>v1 hello prod</h1>")
	doc := WrapHTML("<h1>v1 hello prod</h1>")
	assert.Equal(t, 3*((len(doc)+2)/3), resp.Data.FileSize)
}

func TestStubReportsEncodedSize(t *testing.T) {
	h := NewStub(NewStore(), "http://stub").Handler()

	// "YQ==" carries one byte but counts as three
	rec, resp := postCreate(t, h, `{"files":[{"path":"index.html","content":"YQ==","contentType":"text/html"},`+
		`{"path":"a.css","content":"aDF7fQ==","contentType":"text/css"}]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 9, resp.Data.FileSize)
	assert.Equal(t, 2, resp.Data.FileCount)
}

func TestStubCreateFromFiles(t *testing.T) {
	stub := NewStub(NewStore(), "http://stub")
	h := stub.Handler()

	payload := NewFilesPayload("<html><body>full</body></html>")
	payload.Files = append(payload.Files, File{
		Path:        "js/app.js",
		Content:     base64.StdEncoding.EncodeToString([]byte("console.log(1)")),
		ContentType: "text/javascript",
	})
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	rec, resp := postCreate(t, h, string(body))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, resp.Data.FileCount)

	get := httptest.NewRecorder()
	h.ServeHTTP(get, httptest.NewRequest(http.MethodGet, "/preview/"+resp.Data.PreviewID+"/js/app.js", nil))
	assert.Equal(t, http.StatusOK, get.Code)
	assert.Equal(t, "console.log(1)", get.Body.String())

	index := httptest.NewRecorder()
	h.ServeHTTP(index, httptest.NewRequest(http.MethodGet, "/preview/"+resp.Data.PreviewID+"/index.html", nil))
	assert.Equal(t, "<html><body>full</body></html>", index.Body.String(), "full documents are not wrapped")
}

func TestStubCreateRejects(t *testing.T) {
	big := base64.StdEncoding.EncodeToString(bytes.Repeat([]byte("a"), MaxPreviewSize+1))

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"malformed json", `{"html":`, http.StatusBadRequest},
		{"empty body", ``, http.StatusBadRequest},
		{"no files", `{"files":[]}`, http.StatusBadRequest},
		{"missing index", `{"files":[{"path":"a.css","content":"","contentType":"text/css"}]}`, http.StatusBadRequest},
		{"rooted index", `{"files":[{"path":"/index.html","content":"","contentType":"text/html"}]}`, http.StatusBadRequest},
		{"bad base64", `{"files":[{"path":"index.html","content":"%%%","contentType":"text/html"}]}`, http.StatusBadRequest},
		{"too large", `{"files":[{"path":"index.html","content":"` + big + `","contentType":"text/html"}]}`, http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewStore()
			rec, resp := postCreate(t, NewStub(store, "http://stub").Handler(), tt.body)
			assert.Equal(t, tt.status, rec.Code)
			assert.False(t, resp.Success)
			assert.NotEmpty(t, resp.Message)
			assert.Equal(t, 0, store.Len())
		})
	}
}

func TestStubNotFound(t *testing.T) {
	h := NewStub(NewStore(), "http://stub").Handler()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/preview/nope/index.html", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStubHealth(t *testing.T) {
	h := NewStub(NewStore(), "http://stub").Handler()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","previews":0}`, rec.Body.String())
}

func TestStubServeStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewStub(NewStore(), "http://stub").Serve(ctx, "127.0.0.1:0") }()

	cancel()
	assert.NoError(t, <-done)
}

func TestStubCmdReleaseMode(t *testing.T) {
	t.Cleanup(func() { gin.SetMode(gin.TestMode) })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	cmd := StubCmd{Addr: "127.0.0.1:0", BaseURL: "http://stub"}
	require.NoError(t, cmd.Run(ctx))
	assert.Equal(t, gin.ReleaseMode, gin.Mode())
}

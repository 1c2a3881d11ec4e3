package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/lgulliver/craftcms/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestApp(t *testing.T) (*app, *httptest.Server) {
	cfg := config.Default()
	cfg.Database.Path = ":memory:"
	cfg.Storage.LocalPath = t.TempDir()
	cfg.Auth.BCryptCost = 4
	cfg.Server.AllowedOrigins = []string{"https://admin.example.com"}

	a, err := newAppFromConfig(cfg)
	require.NoError(t, err)
	t.Cleanup(a.Close)

	server := httptest.NewServer(newHandler(cfg, newRouter(cfg, a.assets, a.auth, a.search)))
	t.Cleanup(server.Close)
	cfg.Site.BaseURL = server.URL

	return a, server
}

func imageForm(t *testing.T, fields map[string]string, contentType string, data []byte) (io.Reader, string) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}
	if data != nil {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", `form-data; name="image"; filename="upload"`)
		header.Set("Content-Type", contentType)
		part, err := writer.CreatePart(header)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func do(t *testing.T, method, url, token string, body io.Reader, contentType string) (*http.Response, []byte) {
	req, err := http.NewRequest(method, url, body)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func TestServer_Health(t *testing.T) {
	_, server := setupTestApp(t)

	resp, body := do(t, "GET", server.URL+"/health", "", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "healthy")
}

func TestServer_CORS(t *testing.T) {
	_, server := setupTestApp(t)

	req, err := http.NewRequest("OPTIONS", server.URL+"/admin/images", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://admin.example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "https://admin.example.com", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", resp.Header.Get("Access-Control-Allow-Credentials"))
}

// Drives the admin flow end to end: login, upload, rename, delete, logout.
func TestServer_AdminImageLifecycle(t *testing.T) {
	a, server := setupTestApp(t)
	ctx := context.Background()

	_, err := a.auth.CreateUser(ctx, "admin@example.com", "s3cret")
	require.NoError(t, err)

	resp, body := do(t, "POST", server.URL+"/admin/login", "",
		strings.NewReader(`{"email":"admin@example.com","password":"s3cret"}`), "application/json")
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var login struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(body, &login))
	require.NotEmpty(t, login.Token)

	jpeg := []byte{0xFF, 0xD8, 0xFF, 0xE0, 'c', 'a', 't'}
	form, contentType := imageForm(t, map[string]string{
		"alt":         "A cat",
		"description": "sleeping",
		"slug":        "cat-1",
		"keywords":    "pet, cat",
	}, "image/jpeg", jpeg)
	resp, body = do(t, "POST", server.URL+"/admin/images", login.Token, form, contentType)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	assert.Contains(t, string(body), `"filename":"cat-1.jpg"`)

	resp, body = do(t, "GET", server.URL+"/images/cat-1.jpg", "", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, jpeg, body)
	assert.Equal(t, "image/jpeg", resp.Header.Get("Content-Type"))

	// a second upload under the same slug is rejected and the first file survives
	form, contentType = imageForm(t, map[string]string{"alt": "Another", "slug": "cat-1"}, "image/jpeg", []byte("other"))
	resp, _ = do(t, "POST", server.URL+"/admin/images", login.Token, form, contentType)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	_, body = do(t, "GET", server.URL+"/images/cat-1.jpg", "", nil, "")
	assert.Equal(t, jpeg, body)

	form, contentType = imageForm(t, map[string]string{"alt": "A cat", "slug": "cat-one", "keywords": "pet, cat"}, "", nil)
	resp, body = do(t, "PUT", server.URL+"/admin/images/cat-1", login.Token, form, contentType)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Contains(t, string(body), `"filename":"cat-one.jpg"`)

	resp, _ = do(t, "GET", server.URL+"/images/cat-1.jpg", "", nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = do(t, "GET", server.URL+"/api/v1/images", "", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"slug":"cat-one"`)
	assert.Contains(t, string(body), server.URL+"/images/cat-one.jpg")

	resp, body = do(t, "GET", server.URL+"/api/v1/search?keyword=pet", "", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"slug":"cat-one"`)
	assert.Contains(t, string(body), `"total":1`)

	resp, _ = do(t, "DELETE", server.URL+"/admin/images/cat-one", login.Token, nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = do(t, "DELETE", server.URL+"/admin/images/cat-one", login.Token, nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = do(t, "POST", server.URL+"/admin/logout", login.Token, nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = do(t, "GET", server.URL+"/admin/images", login.Token, nil, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	report, err := a.assets.Reconcile(ctx, false)
	require.NoError(t, err)
	assert.True(t, report.Consistent())
}

package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"alcyxob/fitness-coach/internal/config"
	"alcyxob/fitness-coach/internal/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	Method string
	Path   string
	Body   string
}

func newFakeS3(t *testing.T) (*httptest.Server, func() []recordedRequest) {
	t.Helper()
	var (
		mu   sync.Mutex
		reqs []recordedRequest
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		reqs = append(reqs, recordedRequest{Method: r.Method, Path: r.URL.Path, Body: string(body)})
		mu.Unlock()
		if r.Method == http.MethodDelete {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)
	return srv, func() []recordedRequest {
		mu.Lock()
		defer mu.Unlock()
		return append([]recordedRequest(nil), reqs...)
	}
}

func newTestStorage(t *testing.T, endpoint string) FileStorage {
	t.Helper()
	fs, err := NewS3Storage(context.Background(), config.S3Config{
		Endpoint:        endpoint,
		Region:          "us-east-1",
		AccessKeyID:     "test",
		SecretAccessKey: "test",
		BucketName:      "clips",
	}, logger.NewNop())
	require.NoError(t, err)
	return fs
}

func TestS3Storage_PutAndDelete(t *testing.T) {
	srv, requests := newFakeS3(t)
	fs := newTestStorage(t, srv.URL)

	require.NoError(t, fs.PutObject(context.Background(), "audio/u1/a.mp3", "audio/mpeg", []byte("abc")))
	require.NoError(t, fs.DeleteObject(context.Background(), "audio/u1/a.mp3"))

	got := requests()
	require.Len(t, got, 2)
	assert.Equal(t, http.MethodPut, got[0].Method)
	assert.Equal(t, "/clips/audio/u1/a.mp3", got[0].Path)
	assert.Contains(t, got[0].Body, "abc")
	assert.Equal(t, http.MethodDelete, got[1].Method)
}

func TestS3Storage_PresignedDownloadURL(t *testing.T) {
	fs := newTestStorage(t, "http://minio.local:9000")

	url, err := fs.GeneratePresignedDownloadURL(context.Background(), "audio/u1/a.mp3", time.Minute)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "http://minio.local:9000/clips/audio/u1/a.mp3?"), url)
	assert.Contains(t, url, "X-Amz-Expires=60")
}

func TestNewS3Storage_RequiresBucket(t *testing.T) {
	_, err := NewS3Storage(context.Background(), config.S3Config{Region: "us-east-1"}, logger.NewNop())
	assert.Error(t, err)
}

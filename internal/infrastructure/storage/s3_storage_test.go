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

	"github.com/n3/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func validConfig(endpoint string) *config.StorageConfig {
	return &config.StorageConfig{
		Bucket:       "rate-tables",
		AccessKey:    "test-key",
		SecretKey:    "test-secret",
		Endpoint:     endpoint,
		UsePathStyle: true,
	}
}

func TestNewS3ExportStorage_Validation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.StorageConfig
		wantErr string
	}{
		{name: "nil config", cfg: nil, wantErr: "configuration is required"},
		{name: "missing bucket", cfg: &config.StorageConfig{AccessKey: "a", SecretKey: "s"}, wantErr: "bucket is required"},
		{name: "missing access key", cfg: &config.StorageConfig{Bucket: "b", SecretKey: "s"}, wantErr: "access key is required"},
		{name: "missing secret key", cfg: &config.StorageConfig{Bucket: "b", AccessKey: "a"}, wantErr: "secret key is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewS3ExportStorage(tt.cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	t.Run("defaults", func(t *testing.T) {
		st, err := NewS3ExportStorage(validConfig(""))
		require.NoError(t, err)
		assert.Equal(t, "rate-tables", st.GetBucket())
		assert.Equal(t, 15*time.Minute, st.presignExpiration)
	})

	t.Run("options", func(t *testing.T) {
		st, err := NewS3ExportStorage(validConfig("localhost:9000"),
			WithLogger(zaptest.NewLogger(t)),
			WithPresignExpiration(time.Hour),
			WithKeyPrefix("/exports/"),
		)
		require.NoError(t, err)
		assert.Equal(t, time.Hour, st.presignExpiration)
		assert.Equal(t, "exports/rate-tables/EMS/US.csv", st.objectKey("rate-tables/EMS/US.csv"))
	})
}

func TestNormalizeEndpoint(t *testing.T) {
	tests := []struct {
		in     string
		useSSL bool
		want   string
	}{
		{"", false, "http://localhost:9000"},
		{"minio:9000", false, "http://minio:9000"},
		{"s3.example.com", true, "https://s3.example.com"},
		{"https://s3.amazonaws.com", false, "https://s3.amazonaws.com"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := normalizeEndpoint(tt.in, tt.useSSL)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestS3ExportStorage_GenerateDownloadURL(t *testing.T) {
	st, err := NewS3ExportStorage(validConfig("http://localhost:9000"))
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("empty key", func(t *testing.T) {
		_, _, err := st.GenerateDownloadURL(ctx, "", time.Minute)
		assert.ErrorIs(t, err, ErrEmptyKey)
	})

	t.Run("presigns a path-style GET", func(t *testing.T) {
		link, expiresAt, err := st.GenerateDownloadURL(ctx, "rate-tables/EMS/US.csv", 5*time.Minute)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(link, "http://localhost:9000/rate-tables/rate-tables/EMS/US.csv?"))
		assert.Contains(t, link, "X-Amz-Expires=300")
		assert.WithinDuration(t, time.Now().Add(5*time.Minute), expiresAt, 5*time.Second)
	})

	t.Run("default expiry", func(t *testing.T) {
		link, _, err := st.GenerateDownloadURL(ctx, "k.csv", 0)
		require.NoError(t, err)
		assert.Contains(t, link, "X-Amz-Expires=900")
	})
}

// fakeS3 accepts PutObject and answers HeadObject from what it stored
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string]string
	types   map[string]string
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch r.Method {
	case http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		f.objects[r.URL.Path] = string(body)
		f.types[r.URL.Path] = r.Header.Get("Content-Type")
		w.Header().Set("ETag", `"etag"`)
		w.WriteHeader(http.StatusOK)
	case http.MethodHead:
		if _, ok := f.objects[r.URL.Path]; ok {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func TestS3ExportStorage_UploadAndExists(t *testing.T) {
	fake := &fakeS3{objects: map[string]string{}, types: map[string]string{}}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	st, err := NewS3ExportStorage(validConfig(srv.URL))
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, st.Upload(ctx, "rate-tables/EMS/US.csv", []byte("name,display_cost\n"), "text/csv"))

	fake.mu.Lock()
	assert.Equal(t, "name,display_cost\n", fake.objects["/rate-tables/rate-tables/EMS/US.csv"])
	assert.Equal(t, "text/csv", fake.types["/rate-tables/rate-tables/EMS/US.csv"])
	fake.mu.Unlock()

	ok, err := st.ObjectExists(ctx, "rate-tables/EMS/US.csv")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = st.ObjectExists(ctx, "missing.csv")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.ErrorIs(t, st.Upload(ctx, "", nil, "text/csv"), ErrEmptyKey)
}

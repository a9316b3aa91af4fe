package storage

import (
	"context"
	"net/url"
	"sync"
	"time"

	logisticsapp "github.com/n3/backend/internal/application/logistics"
)

var _ logisticsapp.ExportStorage = (*MemoryExportStorage)(nil)

// StoredObject is one export held by MemoryExportStorage
type StoredObject struct {
	Data        []byte
	ContentType string
	UploadedAt  time.Time
}

// MemoryExportStorage keeps exports in process memory. Used in development
// when no bucket is configured, and in tests.
type MemoryExportStorage struct {
	// BaseURL prefixes generated download links
	BaseURL string

	mu      sync.RWMutex
	objects map[string]StoredObject
}

// NewMemoryExportStorage creates an empty MemoryExportStorage
func NewMemoryExportStorage() *MemoryExportStorage {
	return &MemoryExportStorage{
		BaseURL: "http://localhost:8080/exports",
		objects: make(map[string]StoredObject),
	}
}

// Upload stores a copy of data under storageKey
func (m *MemoryExportStorage) Upload(_ context.Context, storageKey string, data []byte, contentType string) error {
	if storageKey == "" {
		return ErrEmptyKey
	}
	buf := make([]byte, len(data))
	copy(buf, data)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[storageKey] = StoredObject{Data: buf, ContentType: contentType, UploadedAt: time.Now()}
	return nil
}

// GenerateDownloadURL returns a link that embeds the expiry
func (m *MemoryExportStorage) GenerateDownloadURL(_ context.Context, storageKey string, expiresIn time.Duration) (string, time.Time, error) {
	if storageKey == "" {
		return "", time.Time{}, ErrEmptyKey
	}
	if expiresIn <= 0 {
		expiresIn = 15 * time.Minute
	}
	expiresAt := time.Now().Add(expiresIn)
	link := m.BaseURL + "/" + storageKey + "?expires=" + url.QueryEscape(expiresAt.UTC().Format(time.RFC3339))
	return link, expiresAt, nil
}

// Get returns a stored export
func (m *MemoryExportStorage) Get(storageKey string) (StoredObject, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[storageKey]
	return obj, ok
}

// Len returns the number of stored exports
func (m *MemoryExportStorage) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}

package memory

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"sync"

	"github.com/tendant/photodrop/pkg/photodrop"
)

// ErrNotFound is returned for unknown keys
var ErrNotFound = errors.New("object not found")

// Object is a stored blob
type Object struct {
	Data        []byte
	ContentType string
	Metadata    map[string]string
}

// Backend is an in-memory implementation of the photodrop.BlobStore interface
type Backend struct {
	mu      sync.RWMutex
	objects map[string]Object
}

// New creates a new in-memory storage backend
func New() *Backend {
	return &Backend{
		objects: make(map[string]Object),
	}
}

var _ photodrop.BlobStore = (*Backend)(nil)

// UploadWithParams stores the content of reader under params.ObjectKey
func (b *Backend) UploadWithParams(ctx context.Context, reader io.Reader, params photodrop.UploadParams) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}

	mimeType := params.MimeType
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.objects[params.ObjectKey] = Object{
		Data:        data,
		ContentType: mimeType,
		Metadata:    params.Metadata,
	}
	return nil
}

// Delete deletes content
func (b *Backend) Delete(ctx context.Context, objectKey string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.objects[objectKey]; !exists {
		return ErrNotFound
	}

	delete(b.objects, objectKey)
	return nil
}

// Get returns a copy of a stored object
func (b *Backend) Get(objectKey string) (Object, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	obj, exists := b.objects[objectKey]
	if !exists {
		return Object{}, ErrNotFound
	}
	obj.Data = bytes.Clone(obj.Data)
	return obj, nil
}

// Keys returns every stored key in sorted order
func (b *Backend) Keys() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	keys := make([]string, 0, len(b.objects))
	for k := range b.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

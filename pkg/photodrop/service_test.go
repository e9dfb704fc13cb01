package photodrop_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tendant/photodrop/pkg/photodrop"
	memorystorage "github.com/tendant/photodrop/pkg/photodrop/storage/memory"
)

// flakyStore wraps the memory backend and fails writes whose key contains failOn
type flakyStore struct {
	*memorystorage.Backend
	failOn string
}

func (s *flakyStore) UploadWithParams(ctx context.Context, r io.Reader, p photodrop.UploadParams) error {
	if s.failOn != "" && strings.Contains(p.ObjectKey, s.failOn) {
		return errors.New("bucket unavailable")
	}
	return s.Backend.UploadWithParams(ctx, r, p)
}

type mockRecorder struct {
	mock.Mock
}

func (m *mockRecorder) ObserveUpload(files int, bytes int64, err error) {
	m.Called(files, bytes, err)
}

func fileOf(name, content string) photodrop.File {
	return photodrop.File{
		Name:        name,
		ContentType: "image/jpeg",
		Size:        int64(len(content)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader(content)), nil
		},
	}
}

func TestNew_RequiresBlobStore(t *testing.T) {
	_, err := photodrop.New()
	assert.ErrorIs(t, err, photodrop.ErrNoBlobStore)
}

func TestUploadBatch_Success(t *testing.T) {
	store := memorystorage.New()
	svc, err := photodrop.New(photodrop.WithBlobStore(store), photodrop.WithConcurrency(2))
	require.NoError(t, err)

	files := []photodrop.File{
		fileOf("a.jpg", "aaa"),
		fileOf("../../etc/passwd", "bb"),
		fileOf("c.jpg", "c"),
	}

	objects, err := svc.UploadBatch(context.Background(), "wedding2025", files)
	require.NoError(t, err)
	require.Len(t, objects, 3)

	assert.Equal(t, "a.jpg", objects[0].FileName)
	assert.Equal(t, ".._.._etc_passwd", objects[1].FileName)
	for i, o := range objects {
		assert.True(t, strings.HasPrefix(o.Key, "events/wedding2025/"), o.Key)
		assert.True(t, strings.HasSuffix(o.Key, "_"+o.FileName), o.Key)
		assert.Equal(t, files[i].Size, o.Size)

		stored, err := store.Get(o.Key)
		require.NoError(t, err)
		assert.Equal(t, "image/jpeg", stored.ContentType)
		assert.Equal(t, "wedding2025", stored.Metadata["event-id"])
	}
	assert.Len(t, store.Keys(), 3)
}

func TestUploadBatch_AllOrNothing(t *testing.T) {
	store := &flakyStore{Backend: memorystorage.New(), failOn: "broken"}
	recorder := &mockRecorder{}
	recorder.On("ObserveUpload", 4, int64(0), mock.Anything).Once()

	svc, err := photodrop.New(photodrop.WithBlobStore(store), photodrop.WithConcurrency(1), photodrop.WithRecorder(recorder))
	require.NoError(t, err)

	files := []photodrop.File{
		fileOf("one.jpg", "1"),
		fileOf("two.jpg", "2"),
		fileOf("broken.jpg", "3"),
		fileOf("four.jpg", "4"),
	}

	objects, err := svc.UploadBatch(context.Background(), "evt", files)
	require.Error(t, err)
	assert.ErrorIs(t, err, photodrop.ErrUploadFailed)
	assert.Nil(t, objects, "no partial success is reported")
	assert.Empty(t, store.Keys(), "objects written before the failure are rolled back")
	recorder.AssertExpectations(t)
}

func TestUploadBatch_OpenFailure(t *testing.T) {
	store := memorystorage.New()
	svc, err := photodrop.New(photodrop.WithBlobStore(store))
	require.NoError(t, err)

	bad := photodrop.File{Name: "x.jpg", Open: func() (io.ReadCloser, error) { return nil, errors.New("disk gone") }}

	_, err = svc.UploadBatch(context.Background(), "evt", []photodrop.File{fileOf("ok.jpg", "1"), bad})
	assert.ErrorIs(t, err, photodrop.ErrUploadFailed)
	assert.Empty(t, store.Keys())
}

func TestUploadBatch_Validation(t *testing.T) {
	svc, err := photodrop.New(photodrop.WithBlobStore(memorystorage.New()), photodrop.WithMaxFiles(2))
	require.NoError(t, err)
	ctx := context.Background()

	_, err = svc.UploadBatch(ctx, "", []photodrop.File{fileOf("a.jpg", "a")})
	assert.ErrorIs(t, err, photodrop.ErrInvalidEventID)

	_, err = svc.UploadBatch(ctx, "evt", nil)
	assert.ErrorIs(t, err, photodrop.ErrNoFiles)

	_, err = svc.UploadBatch(ctx, "evt", []photodrop.File{fileOf("a", "a"), fileOf("b", "b"), fileOf("c", "c")})
	assert.ErrorIs(t, err, photodrop.ErrTooManyFiles)
	assert.Equal(t, 2, svc.MaxFiles())
}

// countingStore records the peak number of concurrent writes
type countingStore struct {
	*memorystorage.Backend
	mu      sync.Mutex
	active  int
	peak    int
	release chan struct{}
}

func (s *countingStore) UploadWithParams(ctx context.Context, r io.Reader, p photodrop.UploadParams) error {
	s.mu.Lock()
	s.active++
	if s.active > s.peak {
		s.peak = s.active
	}
	s.mu.Unlock()

	<-s.release

	s.mu.Lock()
	s.active--
	s.mu.Unlock()
	return s.Backend.UploadWithParams(ctx, r, p)
}

func TestUploadBatch_ConcurrencyLimit(t *testing.T) {
	store := &countingStore{Backend: memorystorage.New(), release: make(chan struct{})}
	svc, err := photodrop.New(photodrop.WithBlobStore(store), photodrop.WithConcurrency(3))
	require.NoError(t, err)

	files := make([]photodrop.File, 10)
	for i := range files {
		files[i] = fileOf("f.jpg", "x")
	}

	done := make(chan error, 1)
	go func() {
		_, err := svc.UploadBatch(context.Background(), "evt", files)
		done <- err
	}()

	for range files {
		store.release <- struct{}{}
	}
	require.NoError(t, <-done)

	assert.LessOrEqual(t, store.peak, 3)
	assert.Len(t, store.Keys(), 10)
}

package fs

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/photodrop/pkg/photodrop"
)

func TestFSBackend_BasicOps(t *testing.T) {
	tmp := t.TempDir()
	backend, err := New(Config{BaseDir: tmp})
	require.NoError(t, err)

	ctx := context.Background()
	key := "events/evt/1700000000000_abcd1234_photo.jpg"

	err = backend.UploadWithParams(ctx, strings.NewReader("hello fs"), photodrop.UploadParams{
		ObjectKey: key,
		MimeType:  "image/jpeg",
	})
	require.NoError(t, err)

	got, err := os.ReadFile(filepath.Join(tmp, "events", "evt", "1700000000000_abcd1234_photo.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "hello fs", string(got))

	entries, err := os.ReadDir(filepath.Join(tmp, "events", "evt"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file must not be left behind")

	require.NoError(t, backend.Delete(ctx, key))
	_, err = os.Stat(filepath.Join(tmp, "events"))
	assert.True(t, os.IsNotExist(err), "empty directories are cleaned up")

	assert.ErrorIs(t, backend.Delete(ctx, key), ErrNotFound)
}

func TestFSBackend_RejectsEscapingKeys(t *testing.T) {
	backend, err := New(Config{BaseDir: t.TempDir()})
	require.NoError(t, err)

	for _, key := range []string{"", "..", "../outside.jpg", "events/../../outside.jpg"} {
		err := backend.UploadWithParams(context.Background(), strings.NewReader("x"), photodrop.UploadParams{ObjectKey: key})
		assert.ErrorIs(t, err, ErrInvalidKey, "key %q", key)
	}
}

func TestFSBackend_CancelledContext(t *testing.T) {
	tmp := t.TempDir()
	backend, err := New(Config{BaseDir: tmp})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = backend.UploadWithParams(ctx, strings.NewReader("data"), photodrop.UploadParams{ObjectKey: "events/e/f.jpg"})
	require.Error(t, err)

	_, err = os.Stat(filepath.Join(tmp, "events", "e", "f.jpg"))
	assert.True(t, os.IsNotExist(err))
}

func TestNew_RequiresBaseDir(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

package photodrop

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/tendant/photodrop/pkg/photodrop/objectkey"
)

// DefaultConcurrency bounds parallel blob writes within one batch
const DefaultConcurrency = 4

// Service relays uploaded files to the blob store
type Service struct {
	store       BlobStore
	keys        objectkey.Generator
	concurrency int
	maxFiles    int
	recorder    Recorder
}

// Option configures a Service
type Option func(*Service)

// WithBlobStore sets the storage backend
func WithBlobStore(store BlobStore) Option {
	return func(s *Service) {
		s.store = store
	}
}

// WithKeyGenerator overrides the object key layout
func WithKeyGenerator(g objectkey.Generator) Option {
	return func(s *Service) {
		s.keys = g
	}
}

// WithConcurrency sets how many files of a batch are written in parallel
func WithConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithMaxFiles limits the size of a batch. Zero means unlimited.
func WithMaxFiles(n int) Option {
	return func(s *Service) {
		s.maxFiles = n
	}
}

// WithRecorder sets the upload observer
func WithRecorder(r Recorder) Option {
	return func(s *Service) {
		if r != nil {
			s.recorder = r
		}
	}
}

// New creates a new upload service with the given options
func New(opts ...Option) (*Service, error) {
	s := &Service{
		keys:        objectkey.NewEventGenerator(),
		concurrency: DefaultConcurrency,
		recorder:    noopRecorder{},
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.store == nil {
		return nil, ErrNoBlobStore
	}

	return s, nil
}

// MaxFiles returns the batch limit, zero when unlimited
func (s *Service) MaxFiles() int {
	return s.maxFiles
}

// UploadBatch writes every file under the event's prefix.
// The batch is all-or-nothing: if any write fails, objects already written by this
// call are deleted and an error wrapping ErrUploadFailed is returned.
func (s *Service) UploadBatch(ctx context.Context, eventID string, files []File) ([]StoredObject, error) {
	if eventID == "" {
		return nil, ErrInvalidEventID
	}
	if len(files) == 0 {
		return nil, ErrNoFiles
	}
	if s.maxFiles > 0 && len(files) > s.maxFiles {
		return nil, fmt.Errorf("%w: %d > %d", ErrTooManyFiles, len(files), s.maxFiles)
	}

	objects := make([]StoredObject, len(files))
	written := make([]bool, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i, f := range files {
		key := s.keys.GenerateKey(eventID, f.Name)
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := s.put(gctx, eventID, key, f); err != nil {
				return err
			}
			objects[i] = StoredObject{
				Key:         key,
				FileName:    objectkey.SanitizeFilename(f.Name),
				ContentType: f.ContentType,
				Size:        f.Size,
			}
			written[i] = true
			return nil
		})
	}

	err := g.Wait()
	if err != nil {
		s.rollback(context.WithoutCancel(ctx), objects, written)
		s.recorder.ObserveUpload(len(files), 0, err)
		return nil, fmt.Errorf("%w: %w", ErrUploadFailed, err)
	}

	var total int64
	for _, o := range objects {
		total += o.Size
	}
	s.recorder.ObserveUpload(len(files), total, nil)
	slog.Info("Upload batch stored", "event_id", eventID, "files", len(files), "bytes", total)

	return objects, nil
}

func (s *Service) put(ctx context.Context, eventID, key string, f File) error {
	if f.Open == nil {
		return fmt.Errorf("%s: file has no content", key)
	}
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("open %s: %w", key, err)
	}
	defer rc.Close()

	contentType := f.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	err = s.store.UploadWithParams(ctx, rc, UploadParams{
		ObjectKey: key,
		MimeType:  contentType,
		Size:      f.Size,
		Metadata:  map[string]string{"event-id": objectkey.SanitizePathComponent(eventID)},
	})
	if err != nil {
		return fmt.Errorf("store %s: %w", key, err)
	}
	return nil
}

// rollback removes the objects a failed batch managed to write. Failures are only logged.
func (s *Service) rollback(ctx context.Context, objects []StoredObject, written []bool) {
	for i, ok := range written {
		if !ok {
			continue
		}
		if err := s.store.Delete(ctx, objects[i].Key); err != nil {
			slog.Error("Failed to roll back uploaded object", "key", objects[i].Key, "error", err)
		}
	}
}

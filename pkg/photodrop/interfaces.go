package photodrop

import (
	"context"
	"io"
)

// BlobStore is the object storage uploads are written to
type BlobStore interface {
	// UploadWithParams writes reader under params.ObjectKey
	UploadWithParams(ctx context.Context, reader io.Reader, params UploadParams) error

	// Delete removes an object; used to roll back a failed batch
	Delete(ctx context.Context, objectKey string) error
}

// Verifier resolves a presented token to the event it grants access to
type Verifier interface {
	Verify(token string) (eventID string, ok bool)
}

// Recorder observes upload batches. Implementations must be safe for concurrent use.
type Recorder interface {
	ObserveUpload(files int, bytes int64, err error)
}

// VerificationObserver is notified of every token check with a short outcome label
type VerificationObserver func(outcome string)

type noopRecorder struct{}

func (noopRecorder) ObserveUpload(int, int64, error) {}

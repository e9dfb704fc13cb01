package photodrop

import "errors"

var (
	// ErrNoBlobStore indicates the service was built without storage
	ErrNoBlobStore = errors.New("no blob store configured")

	// ErrInvalidEventID indicates an upload was attempted without an event
	ErrInvalidEventID = errors.New("invalid event id")

	// ErrNoFiles indicates an upload batch was empty
	ErrNoFiles = errors.New("no files in upload")

	// ErrTooManyFiles indicates an upload batch exceeded the configured limit
	ErrTooManyFiles = errors.New("too many files in upload")

	// ErrUploadFailed indicates at least one file of a batch could not be stored.
	// The batch is never partially acknowledged.
	ErrUploadFailed = errors.New("upload failed")
)

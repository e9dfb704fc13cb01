package photodrop

import "io"

// File is one file of an upload batch
type File struct {
	Name        string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

// StoredObject describes a file written to the blob store
type StoredObject struct {
	Key         string `json:"key"`
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

// UploadParams contains parameters for a single blob write
type UploadParams struct {
	ObjectKey string
	MimeType  string
	Size      int64
	Metadata  map[string]string
}

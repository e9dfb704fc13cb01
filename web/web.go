// Package web embeds the guest upload page.
package web

import (
	"embed"
	"io/fs"
)

//go:embed upload.html static
var assets embed.FS

// UploadPage is the name of the page served at /upload
const UploadPage = "upload.html"

// Assets returns the embedded page and its static files
func Assets() fs.FS {
	return assets
}

// Static returns only the files served under /static/
func Static() fs.FS {
	sub, err := fs.Sub(assets, "static")
	if err != nil {
		panic(err)
	}
	return sub
}

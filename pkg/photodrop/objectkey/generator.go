package objectkey

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultFileName replaces a filename that sanitizes to nothing
const DefaultFileName = "upload.jpg"

// Generator defines the interface for object key generation strategies
type Generator interface {
	// GenerateKey creates the storage key for fileName uploaded to eventID
	GenerateKey(eventID, fileName string) string
}

// EventGenerator namespaces every upload under its event.
// Structure: {prefix}/{event}/{unixMillis}_{id}_{filename}
type EventGenerator struct {
	Prefix string
	Now    func() time.Time
	NewID  func() string
}

// NewEventGenerator returns a generator writing under "events/"
func NewEventGenerator() *EventGenerator {
	return &EventGenerator{
		Prefix: "events",
		Now:    time.Now,
		NewID: func() string {
			return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
		},
	}
}

// GenerateKey returns {Prefix}/{eventID}/{unixMillis}_{id}_{fileName} with both the event
// and file name sanitized
func (g *EventGenerator) GenerateKey(eventID, fileName string) string {
	return fmt.Sprintf("%s/%s/%d_%s_%s",
		g.Prefix,
		SanitizePathComponent(eventID),
		g.Now().UnixMilli(),
		g.NewID(),
		SanitizeFilename(fileName),
	)
}

// SanitizeFilename replaces every character outside [A-Za-z0-9._-] with '_'.
// "../../etc/passwd" becomes ".._.._etc_passwd".
func SanitizeFilename(name string) string {
	if name == "" {
		return DefaultFileName
	}
	return strings.Map(func(r rune) rune {
		if isSafe(r) {
			return r
		}
		return '_'
	}, name)
}

// SanitizePathComponent is SanitizeFilename for a single directory level;
// it additionally refuses "", "." and "..".
func SanitizePathComponent(component string) string {
	s := strings.Map(func(r rune) rune {
		if isSafe(r) {
			return r
		}
		return '_'
	}, component)
	if strings.Trim(s, ".") == "" {
		return strings.Repeat("_", max(len(s), 1))
	}
	return s
}

func isSafe(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '.', r == '-', r == '_':
		return true
	}
	return false
}

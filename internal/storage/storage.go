// Package storage abstracts the object store that holds attachment bytes.
// The database only keeps metadata (see domain.Attachment); the payload lives
// behind this interface so services stay testable without a running store.
package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/google/uuid"
)

// Store is the attachment byte store consumed by the request service.
type Store interface {
	// Put uploads size bytes from r under path with the given content type.
	Put(ctx context.Context, path string, r io.Reader, size int64, contentType string) error

	// Remove deletes the object at path. Removing a missing object is not an
	// error; Remove is used for best-effort cleanup.
	Remove(ctx context.Context, path string) error

	// PublicURL returns the externally reachable URL for a stored object.
	PublicURL(path string) string
}

// ObjectPath builds the storage key for a new attachment. Objects are grouped
// by upload month so bucket listings stay navigable, and keyed by a fresh
// UUID so file names from clients never collide.
func ObjectPath(now time.Time) string {
	return fmt.Sprintf("requests/%s/%s", now.Format("2006/01"), uuid.NewString())
}

// publicURL is shared by implementations that expose objects over plain HTTP(S).
func publicURL(secure bool, endpoint, bucket, path string) string {
	scheme := "http"
	if secure {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s/%s", scheme, endpoint, bucket, url.PathEscape(path))
}

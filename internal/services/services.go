// package services defines interfaces for the Google source and Wikimedia sink APIs
package services

import (
	"context"
	"net/http"
	"time"

	"github.com/desertthunder/g2commons/internal/models"
)

// FetchResult is one page of image descriptors from a source.
type FetchResult struct {
	Images        []models.ImageRef
	NextPageToken string // empty when the source has no further pages
}

// SourceFetcher defines the capability shared by both image source variants
// (Google Drive, shared Google Photos album).
type SourceFetcher interface {
	// Fetch lists image descriptors, optionally resuming from a page token.
	Fetch(ctx context.Context, pageToken string) (*FetchResult, error)

	// FetchImage downloads one image's full-resolution bytes.
	// Bytes are held only for the duration of a single upload.
	FetchImage(ctx context.Context, ref models.ImageRef) ([]byte, error)

	// Name returns the source name (e.g. "Google Drive")
	Name() string
}

// Uploader defines the capability of the Wikimedia Commons sink.
type Uploader interface {
	// Upload performs one upload attempt and always returns a result,
	// never an error: failures are captured in the result so a batch can
	// continue past them.
	Upload(ctx context.Context, imageBytes []byte, meta models.Metadata) models.UploadResult

	Name() string
}

// newHTTPClient returns an http.Client with the timeout applied to every
// outbound call.
func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

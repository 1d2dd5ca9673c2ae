// Shared Google Photos album implementation of [SourceFetcher]
package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/desertthunder/g2commons/internal/models"
	"github.com/desertthunder/g2commons/internal/shared"
)

const (
	// Google Photos serves album images from this CDN host.
	photosCDN = "lh3.googleusercontent.com"

	// thumbSuffix crops a CDN image to a gallery-sized square; the bare
	// base URL with no size suffix is the original resolution.
	thumbSuffix = "=w400-h400-c"

	albumUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36"
)

// validAlbumHosts are the only hosts an album link may point at. Checked on
// the parsed URL before any network call so user input can never direct a
// fetch at an arbitrary host.
var validAlbumHosts = map[string]bool{
	"photos.app.goo.gl": true, // short share link
	"photos.google.com": true, // canonical album link
	"goo.gl":            true, // legacy shortener
}

// cdnURLPattern matches CDN photo URLs embedded in the album page JSON.
// Photo paths are long opaque hashes; the length bound filters out icons.
var cdnURLPattern = regexp.MustCompile(`https://lh3\.googleusercontent\.com/([A-Za-z0-9_\-]{30,})`)

// sizeSuffixPattern matches a trailing CDN sizing/crop parameter like =w400-h400-c.
var sizeSuffixPattern = regexp.MustCompile(`=[whs]\d[\w\-]*$`)

// AlbumService implements [SourceFetcher] for publicly shared Google Photos
// albums. No credentials are needed; the album page is fetched like a browser
// would and CDN URLs are extracted from the embedded page data.
type AlbumService struct {
	albumURL   string
	httpClient *http.Client
}

// NewAlbumService creates an album fetcher for the given shared album link.
// Fails fast with [shared.ErrInvalidAlbumURL] before any network activity.
func NewAlbumService(albumURL string) (*AlbumService, error) {
	albumURL = strings.TrimSpace(albumURL)
	if err := ValidateAlbumURL(albumURL); err != nil {
		return nil, err
	}

	return &AlbumService{
		albumURL:   albumURL,
		httpClient: newHTTPClient(30 * time.Second),
	}, nil
}

// ValidateAlbumURL checks that a link points at a known shared-album host.
func ValidateAlbumURL(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Scheme != "https" || !validAlbumHosts[parsed.Hostname()] {
		return fmt.Errorf("%w: expected a link starting with https://photos.app.goo.gl/ or https://photos.google.com/share/", shared.ErrInvalidAlbumURL)
	}
	return nil
}

func (s *AlbumService) Name() string {
	return "Shared Album"
}

// Fetch loads the album page and extracts every embedded CDN photo URL,
// unique and in page order. Albums load in one shot, so the page token is
// ignored and the result never carries one.
//
// An album with zero extractable photos is not a hard error: it surfaces as
// zero results wrapped in [shared.ErrEmptyAlbum] so the UI can show guidance.
func (s *AlbumService) Fetch(ctx context.Context, _ string) (*FetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.albumURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", albumUserAgent)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: could not reach Google Photos: %v", shared.ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: album not found (404), check the link and make sure the album is public", shared.ErrFetchFailed)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: could not load album (HTTP %d), is the album set to 'Anyone with the link'?", shared.ErrFetchFailed, resp.StatusCode)
	}

	page, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrFetchFailed, err)
	}

	ids := extractPhotoIDs(string(page))
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: make sure the album is set to 'Anyone with the link can view' and contains at least one photo", shared.ErrEmptyAlbum)
	}

	result := &FetchResult{}
	for _, id := range ids {
		base := fmt.Sprintf("https://%s/%s", photosCDN, id)
		result.Images = append(result.Images, models.ImageRef{
			ID:           id,
			ThumbnailURL: base + thumbSuffix,
			FullResURL:   base,
			Source:       models.SourceAlbum,
		})
	}

	return result, nil
}

// FetchImage downloads one photo's original-resolution bytes from the public
// CDN. No auth is needed; any sizing suffix is stripped first.
func (s *AlbumService) FetchImage(ctx context.Context, ref models.ImageRef) ([]byte, error) {
	fullURL := StripSizeSuffix(ref.FullResURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: CDN returned status %d", shared.ErrFetchFailed, resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

// extractPhotoIDs returns the unique CDN photo IDs embedded in an album page,
// preserving first-seen order.
func extractPhotoIDs(page string) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, match := range cdnURLPattern.FindAllStringSubmatch(page, -1) {
		id := match[1]
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids
}

// StripSizeSuffix removes a trailing CDN sizing parameter, yielding the
// original-resolution URL.
func StripSizeSuffix(cdnURL string) string {
	if !strings.Contains(cdnURL, photosCDN) {
		return cdnURL
	}
	last := cdnURL[strings.LastIndex(cdnURL, "/")+1:]
	if sizeSuffixPattern.MatchString(last) {
		return cdnURL[:strings.LastIndex(cdnURL, "=")]
	}
	return cdnURL
}

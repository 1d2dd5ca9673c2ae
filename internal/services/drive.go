// Google Drive implementation of [SourceFetcher]
//
// Drive API response types based on https://developers.google.com/drive/api/reference/rest/v3
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/desertthunder/g2commons/internal/models"
	"github.com/desertthunder/g2commons/internal/shared"
	"golang.org/x/oauth2"
)

const (
	driveBaseURL  = "https://www.googleapis.com/drive/v3"
	drivePageSize = 25
)

// DriveFile represents a Drive file resource (partial fields).
type DriveFile struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	ThumbnailLink  string `json:"thumbnailLink"`
	WebContentLink string `json:"webContentLink"`
}

// DriveFileList represents a paginated file listing response.
type DriveFileList struct {
	NextPageToken string      `json:"nextPageToken"`
	Files         []DriveFile `json:"files"`
}

// DriveService implements [SourceFetcher] for Google Drive.
// Requires a valid Google OAuth token for both listing and content fetches.
type DriveService struct {
	token      *oauth2.Token
	httpClient *http.Client
	baseURL    string
}

// NewDriveService creates a Drive fetcher authenticated with the given token.
func NewDriveService(token *oauth2.Token) (*DriveService, error) {
	if token == nil || token.AccessToken == "" {
		return nil, fmt.Errorf("%w: google token required for drive access", shared.ErrNotAuthenticated)
	}

	return &DriveService{
		token:      token,
		httpClient: newHTTPClient(30 * time.Second),
		baseURL:    driveBaseURL,
	}, nil
}

func (s *DriveService) Name() string {
	return "Google Drive"
}

// Fetch lists one page of non-trashed image-mimetype files, ordered by name.
func (s *DriveService) Fetch(ctx context.Context, pageToken string) (*FetchResult, error) {
	params := url.Values{}
	params.Set("pageSize", fmt.Sprint(drivePageSize))
	params.Set("q", "mimeType contains 'image/' and trashed = false")
	params.Set("fields", "nextPageToken, files(id, name, thumbnailLink, webContentLink)")
	params.Set("orderBy", "name")
	params.Set("corpora", "user")
	params.Set("includeItemsFromAllDrives", "true")
	params.Set("supportsAllDrives", "true")
	if pageToken != "" {
		params.Set("pageToken", pageToken)
	}

	var listing DriveFileList
	if err := s.doRequest(ctx, s.baseURL+"/files?"+params.Encode(), &listing); err != nil {
		return nil, err
	}

	result := &FetchResult{NextPageToken: listing.NextPageToken}
	for _, file := range listing.Files {
		if file.ThumbnailLink == "" {
			continue
		}
		full := file.WebContentLink
		if full == "" {
			full = file.ThumbnailLink
		}
		result.Images = append(result.Images, models.ImageRef{
			ID:           file.ID,
			ThumbnailURL: file.ThumbnailLink,
			FullResURL:   full,
			Source:       models.SourceDrive,
		})
	}

	return result, nil
}

// FetchImage downloads the full-resolution bytes for a Drive file using the
// same bearer token that listed it.
func (s *DriveService) FetchImage(ctx context.Context, ref models.ImageRef) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref.FullResURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.token.AccessToken)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: drive returned status %d", shared.ErrFetchFailed, resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

// doRequest performs an authenticated GET against the Drive API.
func (s *DriveService) doRequest(ctx context.Context, fullURL string, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+s.token.AccessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%w: drive rejected the token", shared.ErrTokenExpired)
	case resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: access denied, check Drive API permissions", shared.ErrFetchFailed)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return fmt.Errorf("%w: drive API status %d", shared.ErrFetchFailed, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

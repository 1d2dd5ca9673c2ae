package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authentication errors
	ErrAuthFailed       = fmt.Errorf("authentication failed")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrTokenExpired     = fmt.Errorf("access token expired")
	ErrInvalidState     = fmt.Errorf("invalid oauth state parameter")

	// Session errors
	ErrSessionExpired  = fmt.Errorf("session expired")
	ErrSessionNotFound = fmt.Errorf("session not found")

	// Source and upload errors
	ErrFetchFailed     = fmt.Errorf("source fetch failed")
	ErrInvalidAlbumURL = fmt.Errorf("not a recognized shared album link")
	ErrEmptyAlbum      = fmt.Errorf("no photos found in album")
	ErrUploadFailed    = fmt.Errorf("upload failed")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
)

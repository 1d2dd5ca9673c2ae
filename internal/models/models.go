// package models defines the data model for the image transfer web service
package models

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// SessionTTL is the fixed lifetime of a session from creation.
//
// Lifetime is fixed, not sliding: activity does not extend it.
const SessionTTL = time.Hour

// Source identifies which image source a session is fetching from.
type Source string

const (
	SourceDrive Source = "drive"
	SourceAlbum Source = "album"
)

// Valid reports whether the source tag is one of the known variants.
func (s Source) Valid() bool {
	return s == SourceDrive || s == SourceAlbum
}

// WorkflowState represents a session's position in the upload wizard.
type WorkflowState int

const (
	StateAnonymous WorkflowState = iota
	StateGoogleAuthed
	StateSourceChosen
	StateImagesSelected
	StateMetadataEntered
	StateWikiAuthed
	StateUploading
	StateDone
)

func (s WorkflowState) String() string {
	switch s {
	case StateAnonymous:
		return "anonymous"
	case StateGoogleAuthed:
		return "google_authed"
	case StateSourceChosen:
		return "source_chosen"
	case StateImagesSelected:
		return "images_selected"
	case StateMetadataEntered:
		return "metadata_entered"
	case StateWikiAuthed:
		return "wiki_authed"
	case StateUploading:
		return "uploading"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// ImageRef is a lightweight descriptor for one image discovered at a source.
//
// Immutable once fetched; later pipeline stages reference it by ID.
type ImageRef struct {
	ID           string `json:"id"`
	ThumbnailURL string `json:"thumbnail_url"`
	FullResURL   string `json:"full_res_url"`
	Source       Source `json:"source"`
}

// Metadata holds the user-entered description for one selected image.
type Metadata struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Categories  []string `json:"categories"`
}

// Validate checks that the metadata can be submitted to Commons.
func (m Metadata) Validate() error {
	if strings.TrimSpace(m.Title) == "" {
		return fmt.Errorf("title must not be empty")
	}
	return nil
}

// UploadResult records the outcome of one Commons upload attempt.
// Immutable after creation; exactly one is produced per attempted image.
type UploadResult struct {
	ImageID     string `json:"image_id"`
	Filename    string `json:"filename"`
	Success     bool   `json:"success"`
	CommonsURL  string `json:"commons_url,omitempty"`
	ErrorReason string `json:"error_reason,omitempty"`
}

// AuthExpired reports whether this failure means the Wikimedia token was revoked.
func (r UploadResult) AuthExpired() bool {
	return !r.Success && r.ErrorReason == AuthExpiredReason
}

// AuthExpiredReason is the sentinel error reason for revoked Wikimedia authorization.
const AuthExpiredReason = "AUTH_EXPIRED"

// Session is one browser session's wizard state.
//
// Owned exclusively by the workflow controller; destroyed on expiry or logout.
// Invariant: ExpiresAt = CreatedAt + [SessionTTL].
type Session struct {
	ID string `json:"id"`

	GoogleToken *oauth2.Token `json:"google_token,omitempty"`
	WikiToken   *oauth2.Token `json:"wiki_token,omitempty"`

	// OAuthState holds the pending state parameter for an in-flight
	// authorization redirect, keyed by provider name.
	OAuthState map[string]string `json:"oauth_state,omitempty"`

	Source   Source `json:"source,omitempty"`
	AlbumURL string `json:"album_url,omitempty"`

	Images        []ImageRef          `json:"images,omitempty"`
	NextPageToken string              `json:"next_page_token,omitempty"`
	Selected      []string            `json:"selected,omitempty"`
	Metadata      map[string]Metadata `json:"metadata,omitempty"`

	// Drafts holds partially-entered metadata from a rejected form
	// submission so a re-render or reload does not lose prior entries.
	// Unlike Metadata, drafts never advance the workflow state.
	Drafts map[string]Metadata `json:"drafts,omitempty"`

	Results []UploadResult `json:"results,omitempty"`

	// Uploaded maps image IDs already uploaded in this session to their
	// Commons URLs, so a retried batch never double-uploads.
	Uploaded map[string]string `json:"uploaded,omitempty"`

	Notice string `json:"notice,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// NewSession creates a session with the given ID expiring SessionTTL from now.
func NewSession(id string, now time.Time) *Session {
	return &Session{
		ID:        id,
		CreatedAt: now,
		ExpiresAt: now.Add(SessionTTL),
	}
}

// Expired reports whether the session's fixed lifetime has elapsed.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// GoogleAuthed reports whether a Google token is present.
func (s *Session) GoogleAuthed() bool { return s.GoogleToken != nil }

// WikiAuthed reports whether a Wikimedia token is present.
func (s *Session) WikiAuthed() bool { return s.WikiToken != nil }

// Image returns the fetched ImageRef with the given ID, if any.
func (s *Session) Image(id string) (ImageRef, bool) {
	for _, img := range s.Images {
		if img.ID == id {
			return img, true
		}
	}
	return ImageRef{}, false
}

// SelectedImages resolves the ordered selection into ImageRefs,
// preserving the order the user selected in.
func (s *Session) SelectedImages() []ImageRef {
	refs := make([]ImageRef, 0, len(s.Selected))
	for _, id := range s.Selected {
		if img, ok := s.Image(id); ok {
			refs = append(refs, img)
		}
	}
	return refs
}

// State derives the session's workflow position from its contents.
//
// The wizard re-derives state on every request rather than trusting a stored
// marker, so a session that lost its prerequisite data (for example through
// expiry midway) lands back at the earliest step that is actually satisfied.
func (s *Session) State() WorkflowState {
	switch {
	case len(s.Results) > 0:
		return StateDone
	case s.WikiAuthed() && len(s.Metadata) > 0:
		return StateWikiAuthed
	case len(s.Metadata) > 0:
		return StateMetadataEntered
	case len(s.Selected) > 0:
		return StateImagesSelected
	case s.Source.Valid():
		return StateSourceChosen
	case s.GoogleAuthed():
		return StateGoogleAuthed
	default:
		return StateAnonymous
	}
}

// ClearSelection drops selection and metadata while keeping tokens, so the
// user can run another batch within the session's remaining lifetime.
func (s *Session) ClearSelection() {
	s.Images = nil
	s.NextPageToken = ""
	s.Selected = nil
	s.Metadata = nil
	s.Drafts = nil
	s.Results = nil
}

// Flash sets a one-shot notice shown on the next rendered page.
func (s *Session) Flash(msg string) {
	s.Notice = msg
}

// TakeNotice returns and clears the pending notice.
func (s *Session) TakeNotice() string {
	n := s.Notice
	s.Notice = ""
	return n
}

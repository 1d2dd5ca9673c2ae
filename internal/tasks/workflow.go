package tasks

import (
	"fmt"

	"github.com/desertthunder/g2commons/internal/models"
)

// Event is a workflow input that may advance a session's state.
type Event int

const (
	EventGoogleAuthorized Event = iota
	EventSourceChosen
	EventImagesSelected
	EventMetadataSaved
	EventWikiAuthorized
	EventUploadStarted
	EventUploadFinished
	EventSessionExpired
	EventReset
)

func (e Event) String() string {
	switch e {
	case EventGoogleAuthorized:
		return "google_authorized"
	case EventSourceChosen:
		return "source_chosen"
	case EventImagesSelected:
		return "images_selected"
	case EventMetadataSaved:
		return "metadata_saved"
	case EventWikiAuthorized:
		return "wiki_authorized"
	case EventUploadStarted:
		return "upload_started"
	case EventUploadFinished:
		return "upload_finished"
	case EventSessionExpired:
		return "session_expired"
	case EventReset:
		return "reset"
	default:
		return "unknown"
	}
}

// ErrInvalidTransition is returned when an event is not legal in the current state.
var ErrInvalidTransition = fmt.Errorf("invalid workflow transition")

// Transition applies an event to a workflow state and returns the next state.
//
// Transitions are strictly forward, with two carve-outs:
//
//   - EventWikiAuthorized is accepted in any state. Wikimedia login is only
//     required immediately before upload, so the two OAuth sub-flows stay
//     logically independent: before metadata entry the token is simply held
//     and the position is unchanged; the flows converge at EventUploadStarted.
//   - EventSourceChosen, EventImagesSelected, and EventMetadataSaved may
//     repeat in place, covering re-picking a source after a fetch error,
//     re-selecting images, and form re-renders.
//
// EventSessionExpired and EventReset return to StateAnonymous from anywhere;
// the caller is responsible for routing the user to the earliest step whose
// prerequisite data is missing.
func Transition(state models.WorkflowState, event Event) (models.WorkflowState, error) {
	switch event {
	case EventSessionExpired, EventReset:
		return models.StateAnonymous, nil
	case EventWikiAuthorized:
		if state == models.StateMetadataEntered {
			return models.StateWikiAuthed, nil
		}
		if state == models.StateUploading || state == models.StateDone {
			return state, fmt.Errorf("%w: %s during %s", ErrInvalidTransition, event, state)
		}
		return state, nil
	}

	switch state {
	case models.StateAnonymous:
		if event == EventGoogleAuthorized {
			return models.StateGoogleAuthed, nil
		}
	case models.StateGoogleAuthed:
		if event == EventSourceChosen {
			return models.StateSourceChosen, nil
		}
	case models.StateSourceChosen:
		switch event {
		case EventSourceChosen:
			return models.StateSourceChosen, nil
		case EventImagesSelected:
			return models.StateImagesSelected, nil
		}
	case models.StateImagesSelected:
		switch event {
		case EventImagesSelected:
			return models.StateImagesSelected, nil
		case EventMetadataSaved:
			return models.StateMetadataEntered, nil
		}
	case models.StateMetadataEntered:
		if event == EventMetadataSaved {
			return models.StateMetadataEntered, nil
		}
	case models.StateWikiAuthed:
		if event == EventUploadStarted {
			return models.StateUploading, nil
		}
	case models.StateUploading:
		if event == EventUploadFinished {
			return models.StateDone, nil
		}
	}

	return state, fmt.Errorf("%w: %s during %s", ErrInvalidTransition, event, state)
}

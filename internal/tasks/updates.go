package tasks

import "fmt"

// ProgressUpdate represents a progress event during a batch upload.
//
// Used to send real-time updates to the serving layer for display or logging.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current image number within the batch (1-based)
	Total   int    // Total images in the batch
	Message string // Human-readable message for display
}

// Operation phase enumeration
type Phase int

const (
	Download Phase = iota
	Upload
	Skip
	Finish
)

func (p Phase) String() string {
	switch p {
	case Download:
		return "download"
	case Upload:
		return "upload"
	case Skip:
		return "skip"
	case Finish:
		return "finish"
	default:
		return "unknown"
	}
}

func downloadUpdate(step, total int, name string) ProgressUpdate {
	return ProgressUpdate{Phase: Download, Step: step, Total: total, Message: fmt.Sprintf("downloading %s", name)}
}

func uploadUpdate(step, total int, name string) ProgressUpdate {
	return ProgressUpdate{Phase: Upload, Step: step, Total: total, Message: fmt.Sprintf("uploading %s", name)}
}

func skipUpdate(step, total int, name string) ProgressUpdate {
	return ProgressUpdate{Phase: Skip, Step: step, Total: total, Message: fmt.Sprintf("already uploaded %s", name)}
}

func finishUpdate(total, succeeded int) ProgressUpdate {
	return ProgressUpdate{Phase: Finish, Step: total, Total: total, Message: fmt.Sprintf("%d of %d uploads succeeded", succeeded, total)}
}

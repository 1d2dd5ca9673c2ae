package tasks

import (
	"context"
	"fmt"

	"github.com/desertthunder/g2commons/internal/models"
	"github.com/desertthunder/g2commons/internal/services"
	"github.com/desertthunder/g2commons/internal/shared"
	"golang.org/x/time/rate"
)

// defaultUploadRate caps outbound Commons calls at one per second, in line
// with Wikimedia API etiquette for low-volume bots.
const defaultUploadRate = 1.0

// TransferEngine runs the batch upload for one session.
type TransferEngine struct {
	fetcher  services.SourceFetcher
	uploader services.Uploader
	limiter  *rate.Limiter
}

// NewTransferEngine creates an engine moving images from the given source to
// the given sink. A rateLimit of 0 applies the default of one upload per second.
func NewTransferEngine(fetcher services.SourceFetcher, uploader services.Uploader, rateLimit float64) *TransferEngine {
	if rateLimit <= 0 {
		rateLimit = defaultUploadRate
	}
	return &TransferEngine{
		fetcher:  fetcher,
		uploader: uploader,
		limiter:  rate.NewLimiter(rate.Limit(rateLimit), 1),
	}
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func (e *TransferEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// Run uploads every selected image of the session in original selection order.
//
// It produces exactly one [models.UploadResult] per selected image and keeps
// going past individual failures. Images recorded as uploaded earlier in the
// session are not uploaded again; their prior Commons URL is replayed into
// the results so the summary still covers the whole selection.
//
// The only early exit besides context cancellation is a revoked Wikimedia
// authorization, returned as [shared.ErrTokenExpired] with the results
// accumulated so far; the caller clears the wiki token and restarts the
// Wikimedia login.
func (e *TransferEngine) Run(ctx context.Context, progress chan<- ProgressUpdate, session *models.Session) ([]models.UploadResult, error) {
	if e.fetcher == nil {
		return nil, fmt.Errorf("source fetcher not initialized")
	}
	if e.uploader == nil {
		return nil, fmt.Errorf("uploader not initialized")
	}

	refs := session.SelectedImages()
	total := len(refs)
	results := make([]models.UploadResult, 0, total)

	if session.Uploaded == nil {
		session.Uploaded = make(map[string]string)
	}

	succeeded := 0
	for i, ref := range refs {
		step := i + 1

		if commonsURL, ok := session.Uploaded[ref.ID]; ok {
			e.sendProgress(progress, skipUpdate(step, total, ref.ID))
			results = append(results, models.UploadResult{
				ImageID:    ref.ID,
				Success:    true,
				CommonsURL: commonsURL,
			})
			succeeded++
			continue
		}

		meta, ok := session.Metadata[ref.ID]
		if !ok {
			results = append(results, models.UploadResult{
				ImageID:     ref.ID,
				ErrorReason: "no metadata entered for this image",
			})
			continue
		}

		if err := e.limiter.Wait(ctx); err != nil {
			return results, fmt.Errorf("batch cancelled: %w", err)
		}

		e.sendProgress(progress, downloadUpdate(step, total, ref.ID))
		imageBytes, err := e.fetcher.FetchImage(ctx, ref)
		if err != nil {
			results = append(results, models.UploadResult{
				ImageID:     ref.ID,
				ErrorReason: fmt.Sprintf("failed to download from %s: %v", e.fetcher.Name(), err),
			})
			continue
		}

		e.sendProgress(progress, uploadUpdate(step, total, ref.ID))
		result := e.uploader.Upload(ctx, imageBytes, meta)
		result.ImageID = ref.ID

		if result.AuthExpired() {
			return results, fmt.Errorf("%w: wikimedia authorization revoked mid-batch", shared.ErrTokenExpired)
		}

		if result.Success {
			session.Uploaded[ref.ID] = result.CommonsURL
			succeeded++
		}
		results = append(results, result)
	}

	e.sendProgress(progress, finishUpdate(total, succeeded))
	return results, nil
}

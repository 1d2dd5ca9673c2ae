package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/g2commons/internal/models"
	"github.com/desertthunder/g2commons/internal/services"
	"github.com/desertthunder/g2commons/internal/shared"
)

type stubFetcher struct {
	fetchErrs map[string]error
	fetched   []string
}

func (f *stubFetcher) Fetch(ctx context.Context, pageToken string) (*services.FetchResult, error) {
	return &services.FetchResult{}, nil
}

func (f *stubFetcher) FetchImage(ctx context.Context, ref models.ImageRef) ([]byte, error) {
	f.fetched = append(f.fetched, ref.ID)
	if err, ok := f.fetchErrs[ref.ID]; ok {
		return nil, err
	}
	return []byte("bytes-" + ref.ID), nil
}

func (f *stubFetcher) Name() string { return "stub source" }

type stubUploader struct {
	failures map[string]string // title -> error reason
	uploads  []string
}

func (u *stubUploader) Upload(ctx context.Context, imageBytes []byte, meta models.Metadata) models.UploadResult {
	u.uploads = append(u.uploads, meta.Title)
	if reason, ok := u.failures[meta.Title]; ok {
		return models.UploadResult{ErrorReason: reason}
	}
	return models.UploadResult{
		Success:    true,
		Filename:   meta.Title + ".jpg",
		CommonsURL: "https://commons.wikimedia.org/wiki/File:" + meta.Title + ".jpg",
	}
}

func (u *stubUploader) Name() string { return "stub sink" }

func testSession(ids ...string) *models.Session {
	session := models.NewSession("session-under-test", time.Now())
	session.Metadata = make(map[string]models.Metadata)
	session.Uploaded = make(map[string]string)
	for _, id := range ids {
		session.Images = append(session.Images, models.ImageRef{
			ID:     id,
			Source: models.SourceDrive,
		})
		session.Selected = append(session.Selected, id)
		session.Metadata[id] = models.Metadata{Title: "Title " + id}
	}
	return session
}

func TestTransferEngine(t *testing.T) {
	ctx := context.Background()

	t.Run("Uploads Every Selection In Order", func(t *testing.T) {
		session := testSession("a", "b", "c")
		engine := NewTransferEngine(&stubFetcher{}, &stubUploader{}, 100)

		results, err := engine.Run(ctx, nil, session)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(results) != 3 {
			t.Fatalf("expected 3 results, got %d", len(results))
		}
		for i, id := range []string{"a", "b", "c"} {
			if results[i].ImageID != id {
				t.Errorf("expected result %d for %s, got %s", i, id, results[i].ImageID)
			}
			if !results[i].Success {
				t.Errorf("expected success for %s, got %q", id, results[i].ErrorReason)
			}
		}
	})

	t.Run("Continues Past Failures", func(t *testing.T) {
		session := testSession("a", "b", "c")
		fetcher := &stubFetcher{fetchErrs: map[string]error{"a": errors.New("gone")}}
		uploader := &stubUploader{failures: map[string]string{"Title b": "A file with this name already exists"}}
		engine := NewTransferEngine(fetcher, uploader, 100)

		results, err := engine.Run(ctx, nil, session)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(results) != 3 {
			t.Fatalf("expected one result per selected image, got %d", len(results))
		}
		if results[0].Success || !strings.Contains(results[0].ErrorReason, "stub source") {
			t.Errorf("expected download failure for a, got %+v", results[0])
		}
		if results[1].Success || !strings.Contains(results[1].ErrorReason, "already exists") {
			t.Errorf("expected upload failure for b, got %+v", results[1])
		}
		if !results[2].Success {
			t.Errorf("expected c to succeed after earlier failures, got %+v", results[2])
		}
	})

	t.Run("Missing Metadata Fails Without Network Calls", func(t *testing.T) {
		session := testSession("a")
		delete(session.Metadata, "a")
		fetcher := &stubFetcher{}
		uploader := &stubUploader{}
		engine := NewTransferEngine(fetcher, uploader, 100)

		results, err := engine.Run(ctx, nil, session)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(results) != 1 || results[0].Success {
			t.Fatalf("expected a single failure result, got %+v", results)
		}
		if len(fetcher.fetched) != 0 || len(uploader.uploads) != 0 {
			t.Error("expected no downloads or uploads for metadata-less image")
		}
	})

	t.Run("Skips Previously Uploaded Images", func(t *testing.T) {
		session := testSession("a", "b")
		session.Uploaded["a"] = "https://commons.wikimedia.org/wiki/File:Earlier.jpg"
		uploader := &stubUploader{}
		engine := NewTransferEngine(&stubFetcher{}, uploader, 100)

		results, err := engine.Run(ctx, nil, session)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(results) != 2 {
			t.Fatalf("expected 2 results, got %d", len(results))
		}
		if !results[0].Success || results[0].CommonsURL != session.Uploaded["a"] {
			t.Errorf("expected replayed success for a, got %+v", results[0])
		}
		if len(uploader.uploads) != 1 || uploader.uploads[0] != "Title b" {
			t.Errorf("expected only b to be uploaded, got %v", uploader.uploads)
		}
	})

	t.Run("Stops The Batch When Authorization Is Revoked", func(t *testing.T) {
		session := testSession("a", "b", "c")
		uploader := &stubUploader{failures: map[string]string{"Title b": models.AuthExpiredReason}}
		engine := NewTransferEngine(&stubFetcher{}, uploader, 100)

		results, err := engine.Run(ctx, nil, session)
		if !errors.Is(err, shared.ErrTokenExpired) {
			t.Fatalf("expected ErrTokenExpired, got %v", err)
		}
		if len(results) != 1 || results[0].ImageID != "a" {
			t.Fatalf("expected only a's result before the abort, got %+v", results)
		}
		if len(uploader.uploads) != 2 {
			t.Errorf("expected no upload attempt after the revoked one, got %v", uploader.uploads)
		}
	})

	t.Run("Records Successes For Later Retries", func(t *testing.T) {
		session := testSession("a", "b")
		uploader := &stubUploader{failures: map[string]string{"Title b": "already exists"}}
		engine := NewTransferEngine(&stubFetcher{}, uploader, 100)

		if _, err := engine.Run(ctx, nil, session); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, ok := session.Uploaded["a"]; !ok {
			t.Error("expected a's success to be recorded on the session")
		}
		if _, ok := session.Uploaded["b"]; ok {
			t.Error("expected b's failure not to be recorded")
		}

		retry := &stubUploader{}
		engine = NewTransferEngine(&stubFetcher{}, retry, 100)
		results, err := engine.Run(ctx, nil, session)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(results) != 2 {
			t.Fatalf("expected 2 results on retry, got %d", len(results))
		}
		if len(retry.uploads) != 1 || retry.uploads[0] != "Title b" {
			t.Errorf("expected the retry to upload only b, got %v", retry.uploads)
		}
	})

	t.Run("Progress Updates Never Block", func(t *testing.T) {
		session := testSession("a", "b", "c")
		engine := NewTransferEngine(&stubFetcher{}, &stubUploader{}, 100)

		// Unbuffered channel with no reader; Run must still finish.
		progress := make(chan ProgressUpdate)
		if _, err := engine.Run(ctx, progress, session); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("Reports Phases In Order", func(t *testing.T) {
		session := testSession("a")
		engine := NewTransferEngine(&stubFetcher{}, &stubUploader{}, 100)

		progress := make(chan ProgressUpdate, 16)
		if _, err := engine.Run(ctx, progress, session); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		close(progress)

		var phases []Phase
		for update := range progress {
			phases = append(phases, update.Phase)
		}
		want := []Phase{Download, Upload, Finish}
		if fmt.Sprint(phases) != fmt.Sprint(want) {
			t.Errorf("expected phases %v, got %v", want, phases)
		}
	})
}

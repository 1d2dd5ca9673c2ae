package server

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/g2commons/internal/models"
	"github.com/desertthunder/g2commons/internal/repositories"
	"github.com/desertthunder/g2commons/internal/services"
	"github.com/desertthunder/g2commons/internal/shared"
	"golang.org/x/oauth2"
)

type seamFetcher struct {
	result  *services.FetchResult
	fetched []string
}

func (f *seamFetcher) Fetch(ctx context.Context, pageToken string) (*services.FetchResult, error) {
	return f.result, nil
}

func (f *seamFetcher) FetchImage(ctx context.Context, ref models.ImageRef) ([]byte, error) {
	f.fetched = append(f.fetched, ref.ID)
	return []byte("bytes-" + ref.ID), nil
}

func (f *seamFetcher) Name() string { return "Test Source" }

type seamUploader struct {
	uploads  []string
	failures map[string]string // title -> error reason
}

func (u *seamUploader) Upload(ctx context.Context, imageBytes []byte, meta models.Metadata) models.UploadResult {
	u.uploads = append(u.uploads, meta.Title)
	if reason, ok := u.failures[meta.Title]; ok {
		return models.UploadResult{Filename: meta.Title + ".jpg", ErrorReason: reason}
	}
	return models.UploadResult{
		Success:    true,
		Filename:   meta.Title + ".jpg",
		CommonsURL: "https://commons.wikimedia.org/wiki/File:" + meta.Title + ".jpg",
	}
}

func (u *seamUploader) Name() string { return "Test Sink" }

type wizardHarness struct {
	app      *App
	repo     *repositories.SessionRepository
	db       *sql.DB
	server   *httptest.Server
	client   *http.Client
	fetcher  *seamFetcher
	uploader *seamUploader
}

func newHarness(t *testing.T) *wizardHarness {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	shared.ConfigureDatabase(db, 1, 1)
	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	repo := repositories.NewSessionRepository(db)
	app, err := NewApp(shared.DefaultConfig(), shared.NewLogger(io.Discard), repo)
	if err != nil {
		t.Fatalf("failed to create app: %v", err)
	}

	fetcher := &seamFetcher{result: &services.FetchResult{}}
	uploader := &seamUploader{}
	app.newDriveFetcher = func(*oauth2.Token) (services.SourceFetcher, error) { return fetcher, nil }
	app.newAlbumFetcher = func(string) (services.SourceFetcher, error) { return fetcher, nil }
	app.newUploader = func(*oauth2.Token, string) (services.Uploader, error) { return uploader, nil }

	server := httptest.NewServer(app.Router())
	t.Cleanup(server.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("failed to create cookie jar: %v", err)
	}

	return &wizardHarness{
		app:      app,
		repo:     repo,
		db:       db,
		server:   server,
		client:   &http.Client{Jar: jar},
		fetcher:  fetcher,
		uploader: uploader,
	}
}

func (h *wizardHarness) get(t *testing.T, path string) (int, string) {
	t.Helper()
	resp, err := h.client.Get(h.server.URL + path)
	if err != nil {
		t.Fatalf("GET %s failed: %v", path, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

// post sends a pre-encoded form body so repeated field order is preserved.
func (h *wizardHarness) post(t *testing.T, path, form string) (int, string) {
	t.Helper()
	resp, err := h.client.Post(h.server.URL+path, "application/x-www-form-urlencoded", strings.NewReader(form))
	if err != nil {
		t.Fatalf("POST %s failed: %v", path, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

func (h *wizardHarness) sessionID(t *testing.T) string {
	t.Helper()
	u, _ := url.Parse(h.server.URL)
	for _, c := range h.client.Jar.Cookies(u) {
		if c.Name == sessionCookie {
			return c.Value
		}
	}
	t.Fatal("no session cookie in jar")
	return ""
}

// authorize stores tokens directly on the persisted session, standing in for
// completed OAuth flows.
func (h *wizardHarness) authorize(t *testing.T, google, wiki bool) {
	t.Helper()
	session, err := h.repo.Get(h.sessionID(t))
	if err != nil {
		t.Fatalf("failed to load session: %v", err)
	}
	if google {
		session.GoogleToken = &oauth2.Token{AccessToken: "g", Expiry: time.Now().Add(time.Hour)}
	}
	if wiki {
		session.WikiToken = &oauth2.Token{AccessToken: "w", Expiry: time.Now().Add(time.Hour)}
	}
	if err := h.repo.Update(session); err != nil {
		t.Fatalf("failed to update session: %v", err)
	}
}

func threeImages() *services.FetchResult {
	return &services.FetchResult{Images: []models.ImageRef{
		{ID: "img-a", ThumbnailURL: "https://lh3.googleusercontent.com/a", FullResURL: "https://lh3.googleusercontent.com/a", Source: models.SourceDrive},
		{ID: "img-b", ThumbnailURL: "https://lh3.googleusercontent.com/b", FullResURL: "https://lh3.googleusercontent.com/b", Source: models.SourceDrive},
		{ID: "img-c", ThumbnailURL: "https://lh3.googleusercontent.com/c", FullResURL: "https://lh3.googleusercontent.com/c", Source: models.SourceDrive},
	}}
}

func TestApp(t *testing.T) {
	t.Run("Home Issues A Session Cookie", func(t *testing.T) {
		h := newHarness(t)

		status, body := h.get(t, "/")
		if status != http.StatusOK {
			t.Fatalf("expected 200, got %d", status)
		}
		if !strings.Contains(body, "Sign in with Google") {
			t.Error("expected the sign-in prompt for anonymous visitors")
		}
		if h.sessionID(t) == "" {
			t.Error("expected a session cookie")
		}
	})

	t.Run("Wizard Requires Google Login", func(t *testing.T) {
		h := newHarness(t)

		_, body := h.get(t, "/source")
		if !strings.Contains(body, "Please sign in with Google first.") {
			t.Error("expected a redirect home with a sign-in notice")
		}
	})

	t.Run("Source Form", func(t *testing.T) {
		t.Run("Rejects A Bad Album Link", func(t *testing.T) {
			h := newHarness(t)
			h.get(t, "/")
			h.authorize(t, true, false)

			_, body := h.post(t, "/gallery/fetch", "source=album&album_url="+url.QueryEscape("https://evil.example/album"))
			if !strings.Contains(body, "shared album link") {
				t.Error("expected the album link hint on the source page")
			}
		})

		t.Run("Rejects An Unknown Source", func(t *testing.T) {
			h := newHarness(t)
			h.get(t, "/")
			h.authorize(t, true, false)

			_, body := h.post(t, "/gallery/fetch", "source=ftp")
			if !strings.Contains(body, "Invalid source selected.") {
				t.Error("expected the invalid source notice")
			}
		})
	})

	t.Run("Gallery Without A Fetch Redirects To Source", func(t *testing.T) {
		h := newHarness(t)
		h.get(t, "/")
		h.authorize(t, true, false)

		_, body := h.get(t, "/gallery")
		if !strings.Contains(body, "No images fetched yet") {
			t.Error("expected the no-images notice")
		}
	})

	t.Run("Full Wizard", func(t *testing.T) {
		h := newHarness(t)
		h.fetcher.result = threeImages()
		h.uploader.failures = map[string]string{"B": "A file with this name already exists."}

		h.get(t, "/")
		h.authorize(t, true, false)

		// choose Drive and fetch
		_, body := h.post(t, "/gallery/fetch", "source=drive")
		if got := strings.Count(body, `name="selected"`); got != 3 {
			t.Fatalf("expected 3 selectable images in the gallery, got %d", got)
		}

		// select all three, deliberately out of page order
		_, body = h.post(t, "/metadata", "selected=img-c&selected=img-a&selected=img-b")
		if got := strings.Count(body, `name="image_id"`); got != 3 {
			t.Fatalf("expected 3 metadata blocks, got %d", got)
		}
		if strings.Index(body, "img-c") > strings.Index(body, "img-a") {
			t.Error("expected the metadata form to follow selection order")
		}

		// first submission misses one title; the other entries must survive
		_, body = h.post(t, "/metadata/save",
			"image_id=img-c&title=&description=&categories="+
				"&image_id=img-a&title=A&description=First&categories=Tests"+
				"&image_id=img-b&title=B&description=&categories=")
		if !strings.Contains(body, "Every image needs a title.") {
			t.Fatal("expected the missing-title notice")
		}
		if !strings.Contains(body, `value="A"`) || !strings.Contains(body, "First") {
			t.Error("expected prior entries to be preserved in the re-rendered form")
		}

		// complete submission routes to the Wikimedia connect step
		_, body = h.post(t, "/metadata/save",
			"image_id=img-c&title=C&description=&categories="+
				"&image_id=img-a&title=A&description=First&categories=Tests"+
				"&image_id=img-b&title=B&description=&categories=")
		if !strings.Contains(body, "Connect Wikimedia") {
			t.Fatal("expected to land on the Wikimedia connect page")
		}

		h.authorize(t, false, true)

		// run the batch: C and A succeed, B hits a duplicate filename
		_, body = h.post(t, "/upload", "")
		if !strings.Contains(body, "2 of 3 uploads succeeded.") {
			t.Fatalf("expected a 2 of 3 summary, got:\n%s", body)
		}
		if !strings.Contains(body, "already exists") {
			t.Error("expected the duplicate failure reason in the results")
		}
		if len(h.uploader.uploads) != 3 {
			t.Fatalf("expected 3 upload attempts, got %v", h.uploader.uploads)
		}
		if h.uploader.uploads[0] != "C" || h.uploader.uploads[1] != "A" {
			t.Errorf("expected uploads in selection order, got %v", h.uploader.uploads)
		}

		// retrying the batch re-attempts only the failed image
		_, body = h.post(t, "/upload", "")
		if !strings.Contains(body, "2 of 3 uploads succeeded.") {
			t.Error("expected the retry to replay prior successes")
		}
		if len(h.uploader.uploads) != 4 || h.uploader.uploads[3] != "B" {
			t.Errorf("expected only B to be re-attempted, got %v", h.uploader.uploads)
		}

		// results stay available on refresh
		_, body = h.get(t, "/results")
		if !strings.Contains(body, "2 of 3 uploads succeeded.") {
			t.Error("expected the results page to persist")
		}
	})

	t.Run("Upload Guards", func(t *testing.T) {
		t.Run("Without Metadata", func(t *testing.T) {
			h := newHarness(t)
			h.get(t, "/")
			h.authorize(t, true, true)

			_, body := h.post(t, "/upload", "")
			if !strings.Contains(body, "start over") {
				t.Error("expected a restart notice")
			}
		})

		t.Run("Without Wikimedia Auth", func(t *testing.T) {
			h := newHarness(t)
			h.fetcher.result = threeImages()
			h.get(t, "/")
			h.authorize(t, true, false)

			h.post(t, "/gallery/fetch", "source=drive")
			h.post(t, "/metadata", "selected=img-a")
			_, body := h.post(t, "/metadata/save", "image_id=img-a&title=A&description=&categories=")
			if !strings.Contains(body, "Connect Wikimedia") {
				t.Fatal("expected the connect page")
			}

			_, body = h.post(t, "/upload", "")
			if !strings.Contains(body, "Connect Wikimedia") {
				t.Error("expected the upload to bounce back to the connect step")
			}
			if len(h.uploader.uploads) != 0 {
				t.Errorf("expected no uploads, got %v", h.uploader.uploads)
			}
		})
	})

	t.Run("Revoked Wikimedia Auth Clears The Token", func(t *testing.T) {
		h := newHarness(t)
		h.fetcher.result = threeImages()
		h.uploader.failures = map[string]string{"A": models.AuthExpiredReason}

		h.get(t, "/")
		h.authorize(t, true, false)
		h.post(t, "/gallery/fetch", "source=drive")
		h.post(t, "/metadata", "selected=img-a")
		h.post(t, "/metadata/save", "image_id=img-a&title=A&description=&categories=")
		h.authorize(t, false, true)

		_, body := h.post(t, "/upload", "")
		if !strings.Contains(body, "Wikimedia session expired.") {
			t.Fatal("expected the expiry notice")
		}

		session, err := h.repo.Get(h.sessionID(t))
		if err != nil {
			t.Fatalf("failed to load session: %v", err)
		}
		if session.WikiAuthed() {
			t.Error("expected the wiki token to be cleared")
		}
	})

	t.Run("Expired Session Restarts With A Notice", func(t *testing.T) {
		h := newHarness(t)
		h.get(t, "/")
		oldID := h.sessionID(t)

		past := time.Now().UTC().Add(-time.Minute)
		if _, err := h.db.Exec("UPDATE sessions SET expires_at = ? WHERE id = ?", past, oldID); err != nil {
			t.Fatalf("failed to age the session: %v", err)
		}

		_, body := h.get(t, "/")
		if !strings.Contains(body, "Your session expired after one hour.") {
			t.Error("expected the expiry notice")
		}
		if h.sessionID(t) == oldID {
			t.Error("expected a fresh session cookie")
		}
	})

	t.Run("Logout Destroys The Session", func(t *testing.T) {
		h := newHarness(t)
		h.get(t, "/")
		id := h.sessionID(t)

		h.get(t, "/logout")
		if _, err := h.repo.Get(id); err == nil {
			t.Error("expected the session row to be gone")
		}
	})

	t.Run("Image Proxy", func(t *testing.T) {
		h := newHarness(t)
		h.get(t, "/")

		t.Run("Rejects Non Google Hosts", func(t *testing.T) {
			status, _ := h.get(t, "/image/"+shared.EncodeURL("https://evil.example/steal"))
			if status != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", status)
			}
		})

		t.Run("Rejects Garbage Encoding", func(t *testing.T) {
			status, _ := h.get(t, "/image/not-base64!!")
			if status != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", status)
			}
		})
	})

	t.Run("Legal Pages Render", func(t *testing.T) {
		h := newHarness(t)
		for _, path := range []string{"/privacy", "/terms", "/about"} {
			if status, _ := h.get(t, path); status != http.StatusOK {
				t.Errorf("expected 200 for %s, got %d", path, status)
			}
		}
	})
}

func TestAllowedProxyURL(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want bool
	}{
		{"Photos CDN", "https://lh3.googleusercontent.com/abc", true},
		{"Drive Content", "https://drive.google.com/uc?id=x", true},
		{"API Host", "https://www.googleapis.com/drive/v3/files/x", true},
		{"Plain HTTP", "http://lh3.googleusercontent.com/abc", false},
		{"Suffix Spoof", "https://notgoogleusercontent.com/abc", false},
		{"Subdomain Spoof", "https://googleusercontent.com.evil.example/abc", false},
		{"Arbitrary Host", "https://example.com/x", false},
		{"Garbage", "://", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := allowedProxyURL(tc.in); got != tc.want {
				t.Errorf("allowedProxyURL(%q) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}

func TestSplitCategories(t *testing.T) {
	got := splitCategories(" Sunsets , , Bays,  ")
	if fmt.Sprint(got) != fmt.Sprint([]string{"Sunsets", "Bays"}) {
		t.Errorf("unexpected categories %v", got)
	}
	if splitCategories("") != nil {
		t.Error("expected nil for an empty value")
	}
}

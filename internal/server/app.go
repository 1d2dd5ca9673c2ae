package server

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/g2commons/internal/models"
	"github.com/desertthunder/g2commons/internal/repositories"
	"github.com/desertthunder/g2commons/internal/services"
	"github.com/desertthunder/g2commons/internal/shared"
	"github.com/desertthunder/g2commons/internal/tasks"
	"golang.org/x/oauth2"
)

const sessionCookie = "g2c_session"

// transparentGIF is a 1×1 fallback served when a thumbnail proxy fetch fails.
var transparentGIF, _ = base64.StdEncoding.DecodeString("R0lGODlhAQABAIAAAAAAAP///yH5BAEAAAAALAAAAAABAAEAAAIBRAA7")

// proxyHosts are the only upstream hosts the thumbnail proxy will fetch from.
var proxyHosts = []string{
	"googleusercontent.com",
	"drive.google.com",
	"googleapis.com",
	"docs.google.com",
}

// App is the workflow controller: it owns sessions and sequences the
// multi-step upload wizard across HTTP requests.
type App struct {
	config    *shared.Config
	logger    *log.Logger
	sessions  *repositories.SessionRepository
	google    *oauth2.Config
	wiki      *oauth2.Config
	templates map[string]*template.Template

	// constructor seams so tests can substitute fakes for the real clients
	newDriveFetcher func(token *oauth2.Token) (services.SourceFetcher, error)
	newAlbumFetcher func(albumURL string) (services.SourceFetcher, error)
	newUploader     func(token *oauth2.Token, userAgent string) (services.Uploader, error)
	proxyClient     *http.Client
}

// NewApp creates the workflow controller with its templates parsed and OAuth
// configs built from credentials.
func NewApp(config *shared.Config, logger *log.Logger, sessions *repositories.SessionRepository) (*App, error) {
	templates, err := loadTemplates()
	if err != nil {
		return nil, err
	}

	return &App{
		config:    config,
		logger:    shared.WithLogger(logger, "component", "server"),
		sessions:  sessions,
		google:    GoogleOAuthConfig(config.Credentials.Google),
		wiki:      WikiOAuthConfig(config.Credentials.Wikimedia),
		templates: templates,
		newDriveFetcher: func(token *oauth2.Token) (services.SourceFetcher, error) {
			return services.NewDriveService(token)
		},
		newAlbumFetcher: func(albumURL string) (services.SourceFetcher, error) {
			return services.NewAlbumService(albumURL)
		},
		newUploader: func(token *oauth2.Token, userAgent string) (services.Uploader, error) {
			return services.NewCommonsService(token, userAgent)
		},
		proxyClient: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// Router builds the full route table with logging and recovery middleware.
func (a *App) Router() *BasicRouter {
	router := NewBasicRouter()
	router.Use(RecoverMiddleware(a.logger), LoggingMiddleware(a.logger))

	router.HandleFunc(http.MethodGet, "/{$}", a.Home)
	router.HandleFunc(http.MethodGet, "/auth/google", a.GoogleLogin)
	router.HandleFunc(http.MethodGet, "/auth/google/callback", a.GoogleCallback)
	router.HandleFunc(http.MethodGet, "/auth/wiki", a.WikiPrompt)
	router.HandleFunc(http.MethodPost, "/auth/wiki", a.WikiLogin)
	router.HandleFunc(http.MethodGet, "/auth/wiki/callback", a.WikiCallback)
	router.HandleFunc(http.MethodGet, "/source", a.SourcePage)
	router.HandleFunc("", "/gallery/fetch", a.FetchImages) // POST initial fetch, GET pagination
	router.HandleFunc(http.MethodGet, "/gallery", a.Gallery)
	router.HandleFunc(http.MethodPost, "/metadata", a.SelectImages)
	router.HandleFunc(http.MethodPost, "/metadata/save", a.SaveMetadata)
	router.HandleFunc("", "/upload", a.RunUpload) // reached by both redirect and form post
	router.HandleFunc(http.MethodGet, "/results", a.Results)
	router.HandleFunc(http.MethodGet, "/image/{encoded}", a.ImageProxy)
	router.HandleFunc(http.MethodGet, "/privacy", a.staticPage("privacy", "Privacy"))
	router.HandleFunc(http.MethodGet, "/terms", a.staticPage("terms", "Terms"))
	router.HandleFunc(http.MethodGet, "/about", a.staticPage("about", "About"))
	router.HandleFunc(http.MethodGet, "/logout", a.Logout)

	return router
}

// session loads the request's session, creating a fresh one when the cookie
// is absent, unknown, or expired. Expiry surfaces as a notice on the new
// session so the user learns why they were sent back.
func (a *App) session(w http.ResponseWriter, r *http.Request) *models.Session {
	if cookie, err := r.Cookie(sessionCookie); err == nil {
		session, err := a.sessions.Get(cookie.Value)
		if err == nil {
			return session
		}
		if errors.Is(err, shared.ErrSessionExpired) {
			fresh := a.freshSession(w)
			if fresh != nil {
				fresh.Flash("Your session expired after one hour. Please start again.")
				a.save(fresh)
			}
			return fresh
		}
	}
	return a.freshSession(w)
}

func (a *App) freshSession(w http.ResponseWriter) *models.Session {
	session, err := a.sessions.Create()
	if err != nil {
		a.logger.Error("failed to create session", "err", err)
		return nil
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    session.ID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  session.ExpiresAt,
	})

	return session
}

func (a *App) save(session *models.Session) {
	if session == nil {
		return
	}
	if err := a.sessions.Update(session); err != nil {
		a.logger.Error("failed to persist session", "session_id", session.ID, "err", err)
	}
}

// redirect flashes an optional notice and issues a 303 so POST handlers can
// land on GET pages.
func (a *App) redirect(w http.ResponseWriter, r *http.Request, session *models.Session, path, notice string) {
	if session != nil && notice != "" {
		session.Flash(notice)
		a.save(session)
	}
	http.Redirect(w, r, path, http.StatusSeeOther)
}

func (a *App) render(w http.ResponseWriter, session *models.Session, page, title string, data any) {
	pd := pageData{Title: title, Data: data}
	if session != nil {
		pd.Notice = session.TakeNotice()
		pd.GoogleAuthed = session.GoogleAuthed()
		pd.WikiAuthed = session.WikiAuthed()
		a.save(session)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := renderTemplate(w, a.templates, page, pd); err != nil {
		a.logger.Error("template render failed", "page", page, "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// Home renders the landing page.
func (a *App) Home(w http.ResponseWriter, r *http.Request) {
	session := a.session(w, r)
	a.render(w, session, "home", "Home", nil)
}

// GoogleLogin starts the Google authorization-code flow.
func (a *App) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	session := a.session(w, r)
	if session == nil {
		http.Error(w, "session unavailable", http.StatusInternalServerError)
		return
	}

	state := shared.GenerateID()
	if session.OAuthState == nil {
		session.OAuthState = make(map[string]string)
	}
	session.OAuthState["google"] = state
	a.save(session)

	// offline access plus forced consent so a refresh token is always issued
	url := a.google.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent"))
	http.Redirect(w, r, url, http.StatusFound)
}

// GoogleCallback finishes the Google flow: state check, code exchange, token storage.
func (a *App) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	session := a.session(w, r)
	if session == nil {
		http.Error(w, "session unavailable", http.StatusInternalServerError)
		return
	}

	token, err := a.finishOAuth(r, session, a.google, "google")
	if err != nil {
		a.logger.Warn("google oauth callback failed", "err", err)
		a.redirect(w, r, session, "/", "Google login failed. Please try signing in again.")
		return
	}

	prior := session.State()
	session.GoogleToken = token
	if _, err := tasks.Transition(prior, tasks.EventGoogleAuthorized); err != nil {
		// re-login from a later step just refreshes the token
		a.logger.Debug("google re-login", "state", prior.String())
	}
	a.redirect(w, r, session, "/source", "Google login successful.")
}

// WikiPrompt shows the connect-Wikimedia page before upload.
func (a *App) WikiPrompt(w http.ResponseWriter, r *http.Request) {
	session := a.session(w, r)
	a.render(w, session, "wiki_login", "Connect Wikimedia", nil)
}

// WikiLogin starts the Wikimedia authorization-code flow.
func (a *App) WikiLogin(w http.ResponseWriter, r *http.Request) {
	session := a.session(w, r)
	if session == nil {
		http.Error(w, "session unavailable", http.StatusInternalServerError)
		return
	}

	state := shared.GenerateID()
	if session.OAuthState == nil {
		session.OAuthState = make(map[string]string)
	}
	session.OAuthState["wiki"] = state
	a.save(session)

	http.Redirect(w, r, a.wiki.AuthCodeURL(state), http.StatusFound)
}

// WikiCallback finishes the Wikimedia flow and moves straight to upload when
// the session still holds a selection with metadata. If that state is gone
// (for example the session expired between metadata entry and this redirect),
// the user restarts at the selection step with an explicit notice instead of
// uploading incomplete data.
func (a *App) WikiCallback(w http.ResponseWriter, r *http.Request) {
	session := a.session(w, r)
	if session == nil {
		http.Error(w, "session unavailable", http.StatusInternalServerError)
		return
	}

	token, err := a.finishOAuth(r, session, a.wiki, "wiki")
	if err != nil {
		a.logger.Warn("wikimedia oauth callback failed", "err", err)
		a.redirect(w, r, session, "/auth/wiki", "Wikimedia login failed. Please try connecting again.")
		return
	}

	prior := session.State()
	session.WikiToken = token

	if len(session.Metadata) == 0 {
		if len(session.Images) > 0 {
			a.redirect(w, r, session, "/gallery", "Wikimedia connected, but your selection was lost. Please reselect images.")
		} else {
			a.redirect(w, r, session, "/source", "Wikimedia connected. Please choose a source to continue.")
		}
		return
	}

	if _, err := tasks.Transition(prior, tasks.EventWikiAuthorized); err != nil {
		a.logger.Error("unexpected transition failure", "state", prior.String(), "err", err)
	}
	a.redirect(w, r, session, "/upload", "Wikimedia login successful.")
}

// finishOAuth validates the callback state parameter and exchanges the code.
func (a *App) finishOAuth(r *http.Request, session *models.Session, config *oauth2.Config, provider string) (*oauth2.Token, error) {
	query := r.URL.Query()
	if errParam := query.Get("error"); errParam != "" {
		return nil, fmt.Errorf("%w: provider returned %s", shared.ErrAuthFailed, errParam)
	}

	expected := session.OAuthState[provider]
	delete(session.OAuthState, provider)
	if expected == "" || query.Get("state") != expected {
		return nil, shared.ErrInvalidState
	}

	code := query.Get("code")
	if code == "" {
		return nil, fmt.Errorf("%w: missing authorization code", shared.ErrAuthFailed)
	}

	token, err := config.Exchange(r.Context(), code)
	if err != nil {
		return nil, fmt.Errorf("%w: token exchange: %v", shared.ErrAuthFailed, err)
	}

	return token, nil
}

// SourcePage shows the Drive vs shared-album picker.
func (a *App) SourcePage(w http.ResponseWriter, r *http.Request) {
	session := a.session(w, r)
	if session == nil || !session.GoogleAuthed() {
		a.redirect(w, r, session, "/", "Please sign in with Google first.")
		return
	}

	// starting a new round after a finished batch clears the old selection
	if session.State() == models.StateDone {
		session.ClearSelection()
		a.save(session)
	}

	a.render(w, session, "source", "Choose a source", nil)
}

// FetchImages handles the source form POST (initial fetch) and the
// pagination GET (load-more, JSON response for the gallery page).
func (a *App) FetchImages(w http.ResponseWriter, r *http.Request) {
	session := a.session(w, r)
	if session == nil || !session.GoogleAuthed() {
		a.redirect(w, r, session, "/", "Please sign in with Google first.")
		return
	}

	if r.Method == http.MethodPost {
		a.fetchInitial(w, r, session)
		return
	}
	a.fetchMore(w, r, session)
}

func (a *App) fetchInitial(w http.ResponseWriter, r *http.Request, session *models.Session) {
	if session.State() == models.StateDone {
		session.ClearSelection()
	}

	source := models.Source(r.FormValue("source"))
	if !source.Valid() {
		a.redirect(w, r, session, "/source", "Invalid source selected.")
		return
	}

	if _, err := tasks.Transition(session.State(), tasks.EventSourceChosen); err != nil {
		a.redirect(w, r, session, "/source", "Please start over from the source step.")
		return
	}

	albumURL := strings.TrimSpace(r.FormValue("album_url"))
	if source == models.SourceAlbum {
		if err := services.ValidateAlbumURL(albumURL); err != nil {
			a.redirect(w, r, session, "/source", "That doesn't look like a Google Photos shared album link. It should start with https://photos.app.goo.gl/ or https://photos.google.com/share/")
			return
		}
	}

	session.Source = source
	session.AlbumURL = albumURL
	session.Images = nil
	session.NextPageToken = ""

	fetcher, err := a.fetcherFor(session)
	if err != nil {
		a.redirect(w, r, session, "/source", err.Error())
		return
	}

	result, err := fetcher.Fetch(r.Context(), "")
	if err != nil {
		if errors.Is(err, shared.ErrEmptyAlbum) {
			a.redirect(w, r, session, "/source", "No photos found in this album. "+err.Error())
			return
		}
		a.logger.Warn("source fetch failed", "source", source, "err", err)
		a.redirect(w, r, session, "/source", "Could not fetch images: "+err.Error())
		return
	}

	session.Images = result.Images
	session.NextPageToken = result.NextPageToken
	a.save(session)
	http.Redirect(w, r, "/gallery", http.StatusSeeOther)
}

// fetchMore appends the next Drive page to the gallery and answers JSON.
func (a *App) fetchMore(w http.ResponseWriter, r *http.Request, session *models.Session) {
	if !session.Source.Valid() {
		http.Error(w, "no source selected", http.StatusBadRequest)
		return
	}

	pageToken := r.URL.Query().Get("page_token")
	if pageToken == "" {
		pageToken = session.NextPageToken
	}

	fetcher, err := a.fetcherFor(session)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := fetcher.Fetch(r.Context(), pageToken)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	session.Images = append(session.Images, result.Images...)
	session.NextPageToken = result.NextPageToken
	a.save(session)

	type item struct {
		ID    string `json:"id"`
		Thumb string `json:"thumb"`
	}
	payload := struct {
		Images        []item `json:"images"`
		NextPageToken string `json:"next_page_token"`
	}{NextPageToken: result.NextPageToken}
	for _, img := range result.Images {
		payload.Images = append(payload.Images, item{ID: img.ID, Thumb: "/image/" + shared.EncodeURL(img.ThumbnailURL)})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(payload)
}

func (a *App) fetcherFor(session *models.Session) (services.SourceFetcher, error) {
	switch session.Source {
	case models.SourceDrive:
		return a.newDriveFetcher(session.GoogleToken)
	case models.SourceAlbum:
		return a.newAlbumFetcher(session.AlbumURL)
	default:
		return nil, fmt.Errorf("%w: no source selected", shared.ErrInvalidInput)
	}
}

type galleryImage struct {
	ID           string
	EncodedThumb string
}

// Gallery renders the fetched images for selection.
func (a *App) Gallery(w http.ResponseWriter, r *http.Request) {
	session := a.session(w, r)
	if session == nil || len(session.Images) == 0 {
		a.redirect(w, r, session, "/source", "No images fetched yet. Please select a source first.")
		return
	}

	images := make([]galleryImage, 0, len(session.Images))
	for _, img := range session.Images {
		images = append(images, galleryImage{ID: img.ID, EncodedThumb: shared.EncodeURL(img.ThumbnailURL)})
	}

	a.render(w, session, "gallery", "Select images", struct {
		Images        []galleryImage
		NextPageToken string
	}{images, session.NextPageToken})
}

// SelectImages stores the POSTed selection and shows the metadata form.
func (a *App) SelectImages(w http.ResponseWriter, r *http.Request) {
	session := a.session(w, r)
	if session == nil || len(session.Images) == 0 {
		a.redirect(w, r, session, "/source", "No images fetched yet. Please select a source first.")
		return
	}

	if err := r.ParseForm(); err != nil {
		a.redirect(w, r, session, "/gallery", "Could not read your selection. Please try again.")
		return
	}

	var selected []string
	for _, id := range r.PostForm["selected"] {
		if _, ok := session.Image(id); ok {
			selected = append(selected, id)
		}
	}
	if len(selected) == 0 {
		a.redirect(w, r, session, "/gallery", "No images selected. Please select at least one image.")
		return
	}

	// re-selecting restarts the metadata step
	session.Metadata = nil
	session.Drafts = nil

	if _, err := tasks.Transition(session.State(), tasks.EventImagesSelected); err != nil {
		a.redirect(w, r, session, "/source", "Please start over from the source step.")
		return
	}

	session.Selected = selected
	a.renderMetadataForm(w, session)
}

type metadataFormImage struct {
	ID           string
	EncodedThumb string
	Title        string
	Description  string
	Categories   string
}

func (a *App) renderMetadataForm(w http.ResponseWriter, session *models.Session) {
	images := make([]metadataFormImage, 0, len(session.Selected))
	for _, ref := range session.SelectedImages() {
		form := metadataFormImage{ID: ref.ID, EncodedThumb: shared.EncodeURL(ref.ThumbnailURL)}
		meta, ok := session.Metadata[ref.ID]
		if !ok {
			meta, ok = session.Drafts[ref.ID]
		}
		if ok {
			form.Title = meta.Title
			form.Description = meta.Description
			form.Categories = strings.Join(meta.Categories, ", ")
		}
		images = append(images, form)
	}

	a.render(w, session, "metadata", "Describe images", struct {
		Images []metadataFormImage
	}{images})
}

// SaveMetadata validates and stores one Metadata per selected image.
//
// A submission with any empty title is rejected without state change; the
// submitted values are kept as drafts so the re-rendered form preserves every
// prior entry.
func (a *App) SaveMetadata(w http.ResponseWriter, r *http.Request) {
	session := a.session(w, r)
	if session == nil || len(session.Selected) == 0 {
		a.redirect(w, r, session, "/source", "Your selection was lost. Please start over.")
		return
	}

	if err := r.ParseForm(); err != nil {
		a.redirect(w, r, session, "/gallery", "Could not read the form. Please try again.")
		return
	}

	ids := r.PostForm["image_id"]
	titles := r.PostForm["title"]
	descriptions := r.PostForm["description"]
	categories := r.PostForm["categories"]

	if len(ids) == 0 {
		a.redirect(w, r, session, "/source", "No image data received. Please try again.")
		return
	}

	field := func(values []string, i int) string {
		if i < len(values) {
			return values[i]
		}
		return ""
	}

	entries := make(map[string]models.Metadata, len(ids))
	valid := true
	for i, id := range ids {
		meta := models.Metadata{
			Title:       strings.TrimSpace(field(titles, i)),
			Description: strings.TrimSpace(field(descriptions, i)),
			Categories:  splitCategories(field(categories, i)),
		}
		if meta.Validate() != nil {
			valid = false
		}
		entries[id] = meta
	}

	if !valid {
		session.Drafts = entries
		session.Flash("Every image needs a title. Your other entries were kept.")
		a.renderMetadataForm(w, session)
		return
	}

	if _, err := tasks.Transition(session.State(), tasks.EventMetadataSaved); err != nil {
		a.redirect(w, r, session, "/source", "Please start over from the source step.")
		return
	}

	session.Metadata = entries
	session.Drafts = nil
	a.save(session)

	if !session.WikiAuthed() {
		http.Redirect(w, r, "/auth/wiki", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/upload", http.StatusSeeOther)
}

// RunUpload executes the batch upload for the session's selection.
//
// Retried requests are safe: images already uploaded in this session are
// replayed from the session record, never uploaded twice.
func (a *App) RunUpload(w http.ResponseWriter, r *http.Request) {
	session := a.session(w, r)
	if session == nil {
		http.Error(w, "session unavailable", http.StatusInternalServerError)
		return
	}

	// guards, earliest missing prerequisite first
	if len(session.Metadata) == 0 {
		if len(session.Images) > 0 {
			a.redirect(w, r, session, "/gallery", "Your metadata was lost. Please reselect images and try again.")
		} else {
			a.redirect(w, r, session, "/source", "Your session data was lost. Please start over.")
		}
		return
	}
	if !session.WikiAuthed() {
		a.redirect(w, r, session, "/auth/wiki", "Please connect your Wikimedia account to upload.")
		return
	}
	if session.Source == models.SourceDrive && !session.GoogleAuthed() {
		a.redirect(w, r, session, "/", "Your Google session was lost. Please sign in again.")
		return
	}

	fetcher, err := a.fetcherFor(session)
	if err != nil {
		a.redirect(w, r, session, "/source", err.Error())
		return
	}
	uploader, err := a.newUploader(session.WikiToken, a.config.Credentials.Wikimedia.UserAgent)
	if err != nil {
		a.redirect(w, r, session, "/auth/wiki", "Please reconnect your Wikimedia account.")
		return
	}

	engine := tasks.NewTransferEngine(fetcher, uploader, 0)

	progress := make(chan tasks.ProgressUpdate, 2*len(session.Selected)+2)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progress {
			a.logger.Info("upload progress",
				"phase", update.Phase.String(),
				"step", update.Step,
				"total", update.Total,
				"msg", update.Message,
			)
		}
	}()

	results, runErr := engine.Run(r.Context(), progress, session)
	close(progress)
	<-done

	if runErr != nil {
		if errors.Is(runErr, shared.ErrTokenExpired) {
			session.WikiToken = nil
			a.redirect(w, r, session, "/auth/wiki", "Wikimedia session expired. Please reconnect your Wikimedia account.")
			return
		}
		a.redirect(w, r, session, "/gallery", "Upload was interrupted: "+runErr.Error())
		return
	}

	session.Results = results
	a.save(session)
	http.Redirect(w, r, "/results", http.StatusSeeOther)
}

// Results renders the final summary: one line per attempted image.
func (a *App) Results(w http.ResponseWriter, r *http.Request) {
	session := a.session(w, r)
	if session == nil || len(session.Results) == 0 {
		a.redirect(w, r, session, "/source", "No upload results yet.")
		return
	}

	successCount := 0
	for _, result := range session.Results {
		if result.Success {
			successCount++
		}
	}

	a.render(w, session, "results", "Results", struct {
		Results      []models.UploadResult
		SuccessCount int
		Total        int
	}{session.Results, successCount, len(session.Results)})
}

// ImageProxy serves Google-hosted thumbnails to the browser, attaching the
// session's Google token for Drive links. The decoded upstream host must be
// on the Google allowlist; anything else is refused outright.
func (a *App) ImageProxy(w http.ResponseWriter, r *http.Request) {
	session := a.session(w, r)

	decoded, err := shared.DecodeURL(r.PathValue("encoded"))
	if err != nil || !allowedProxyURL(decoded) {
		http.Error(w, "invalid image reference", http.StatusBadRequest)
		return
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, decoded, nil)
	if err != nil {
		a.fallbackGIF(w)
		return
	}
	if session != nil && session.GoogleAuthed() {
		req.Header.Set("Authorization", "Bearer "+session.GoogleToken.AccessToken)
	}

	resp, err := a.proxyClient.Do(req)
	if err != nil {
		a.fallbackGIF(w)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		a.fallbackGIF(w)
		return
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/jpeg"
	}
	w.Header().Set("Content-Type", contentType)
	io.Copy(w, resp.Body)
}

func (a *App) fallbackGIF(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "image/gif")
	w.Write(transparentGIF)
}

// Logout destroys the session entirely.
func (a *App) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(sessionCookie); err == nil {
		if err := a.sessions.Delete(cookie.Value); err != nil {
			a.logger.Error("failed to delete session", "err", err)
		}
	}
	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: "", Path: "/", MaxAge: -1})
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (a *App) staticPage(page, title string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session := a.session(w, r)
		a.render(w, session, page, title, nil)
	}
}

func allowedProxyURL(raw string) bool {
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Scheme != "https" {
		return false
	}
	host := parsed.Hostname()
	for _, allowed := range proxyHosts {
		if host == allowed || strings.HasSuffix(host, "."+allowed) {
			return true
		}
	}
	return false
}

func splitCategories(raw string) []string {
	var categories []string
	for _, c := range strings.Split(raw, ",") {
		if c = strings.TrimSpace(c); c != "" {
			categories = append(categories, c)
		}
	}
	return categories
}

// Wikimedia Commons implementation of [Uploader]
//
// MediaWiki action API reference: https://www.mediawiki.org/wiki/API:Upload
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/desertthunder/g2commons/internal/models"
	"github.com/desertthunder/g2commons/internal/shared"
	"golang.org/x/oauth2"
)

const (
	commonsAPIURL  = "https://commons.wikimedia.org/w/api.php"
	commonsFileURL = "https://commons.wikimedia.org/wiki/File:"

	defaultUserAgent = "g2commons/1.0 (https://github.com/desertthunder/g2commons)"

	// fallbackFilename is used when a title sanitizes down to nothing.
	fallbackFilename = "G2Commons_Upload"
)

// authExpiredCodes are MediaWiki error codes meaning the bearer token or CSRF
// token is no longer accepted; the controller routes these to re-login.
var authExpiredCodes = map[string]bool{
	"mwoauth-invalid-authorization": true,
	"badtoken":                      true,
	"mustbeloggedin":                true,
}

var unsafeFilenameChars = regexp.MustCompile(`[^\w\s\-.]`)

type apiError struct {
	Code string `json:"code"`
	Info string `json:"info"`
}

type tokenQuery struct {
	Query struct {
		Tokens struct {
			CSRFToken string `json:"csrftoken"`
		} `json:"tokens"`
	} `json:"query"`
	Error *apiError `json:"error"`
}

type uploadResponse struct {
	Upload struct {
		Result   string `json:"result"`
		Filename string `json:"filename"`
	} `json:"upload"`
	Error *apiError `json:"error"`
}

// CommonsService implements [Uploader] against the Wikimedia Commons action API.
type CommonsService struct {
	token      *oauth2.Token
	httpClient *http.Client
	apiURL     string
	userAgent  string
	now        func() time.Time
}

// NewCommonsService creates an uploader authenticated with the given
// Wikimedia OAuth token. An empty userAgent falls back to the project default;
// Wikimedia asks API clients to identify themselves.
func NewCommonsService(token *oauth2.Token, userAgent string) (*CommonsService, error) {
	if token == nil || token.AccessToken == "" {
		return nil, fmt.Errorf("%w: wikimedia token required for upload", shared.ErrNotAuthenticated)
	}
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	return &CommonsService{
		token:      token,
		httpClient: newHTTPClient(2 * time.Minute),
		apiURL:     commonsAPIURL,
		userAgent:  userAgent,
		now:        time.Now,
	}, nil
}

func (s *CommonsService) Name() string {
	return "Wikimedia Commons"
}

// Upload performs the two-step CSRF-then-upload sequence for one image.
//
// Neither step is retried; any failure becomes the image's single
// [models.UploadResult] and the caller's batch moves on.
func (s *CommonsService) Upload(ctx context.Context, imageBytes []byte, meta models.Metadata) models.UploadResult {
	csrf, err := s.CSRFToken(ctx)
	if err != nil {
		return failure("", err)
	}

	filename := fmt.Sprintf("%s_%d.jpg", SanitizeFilename(meta.Title), s.now().Unix())
	pagetext := BuildWikitext(meta.Description, meta.Categories)

	resp, err := s.doUpload(ctx, csrf, filename, pagetext, meta.Description, imageBytes)
	if err != nil {
		return failure(filename, err)
	}

	if resp.Error != nil {
		if authExpiredCodes[resp.Error.Code] {
			return failure(filename, fmt.Errorf("%s", models.AuthExpiredReason))
		}
		return failure(filename, fmt.Errorf("[%s] %s", resp.Error.Code, resp.Error.Info))
	}

	if resp.Upload.Result != "Success" {
		return failure(filename, fmt.Errorf("unexpected upload result %q", resp.Upload.Result))
	}

	name := resp.Upload.Filename
	if name == "" {
		name = filename
	}

	return models.UploadResult{
		Filename:   name,
		Success:    true,
		CommonsURL: commonsFileURL + name,
	}
}

// CSRFToken fetches an edit token from the Commons API using the bearer token.
//
// The API hands anonymous callers the literal token "+\", which is rejected
// here so a silently-lapsed login fails loudly instead of at upload time.
func (s *CommonsService) CSRFToken(ctx context.Context) (string, error) {
	params := url.Values{}
	params.Set("action", "query")
	params.Set("meta", "tokens")
	params.Set("type", "csrf")
	params.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.apiURL+"?"+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	s.setHeaders(req)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrUploadFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: token endpoint status %d", shared.ErrUploadFailed, resp.StatusCode)
	}

	var result tokenQuery
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}

	if result.Error != nil {
		if authExpiredCodes[result.Error.Code] {
			return "", fmt.Errorf("%s", models.AuthExpiredReason)
		}
		return "", fmt.Errorf("API error [%s]: %s", result.Error.Code, result.Error.Info)
	}

	token := result.Query.Tokens.CSRFToken
	if token == "" || token == `+\` {
		return "", fmt.Errorf("could not obtain a CSRF token, are you logged in?")
	}

	return token, nil
}

// doUpload POSTs the multipart upload request.
func (s *CommonsService) doUpload(ctx context.Context, csrf, filename, pagetext, description string, imageBytes []byte) (*uploadResponse, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	fields := map[string]string{
		"action":         "upload",
		"filename":       filename,
		"token":          csrf,
		"text":           pagetext,
		"comment":        "Uploaded via g2commons: " + truncate(description, 200),
		"format":         "json",
		"ignorewarnings": "1",
	}
	for key, value := range fields {
		if err := w.WriteField(key, value); err != nil {
			return nil, fmt.Errorf("failed to write form field: %w", err)
		}
	}

	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create file part: %w", err)
	}
	if _, err := part.Write(imageBytes); err != nil {
		return nil, fmt.Errorf("failed to write file part: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiURL, &body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	s.setHeaders(req)
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrUploadFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 300))
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, snippet)
	}

	var result uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("invalid JSON response: %w", err)
	}

	return &result, nil
}

func (s *CommonsService) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+s.token.AccessToken)
	req.Header.Set("User-Agent", s.userAgent)
}

// SanitizeFilename returns a Commons-safe filename base (no extension):
// unsafe characters dropped, spaces collapsed to underscores.
func SanitizeFilename(title string) string {
	clean := strings.TrimSpace(unsafeFilenameChars.ReplaceAllString(title, ""))
	if clean == "" {
		return fallbackFilename
	}
	return strings.Join(strings.Fields(clean), "_")
}

// BuildWikitext generates the standard Commons file page content: an
// {{Information}} block, a CC BY-SA 4.0 self-license, and category links.
func BuildWikitext(description string, categories []string) string {
	var cats strings.Builder
	for i, c := range categories {
		if i > 0 {
			cats.WriteString("\n")
		}
		fmt.Fprintf(&cats, "[[Category:%s]]", c)
	}

	return fmt.Sprintf(
		"== {{int:filedesc}} ==\n"+
			"{{Information\n"+
			"|description=%s\n"+
			"|date={{subst:CURRENTYEAR}}-{{subst:CURRENTMONTH}}-{{subst:CURRENTDAY2}}\n"+
			"|source={{own}}\n"+
			"|author=[[User:{{subst:REVISIONUSER}}|]]\n"+
			"}}\n\n"+
			"== {{int:license-header}} ==\n"+
			"{{self|cc-by-sa-4.0}}\n%s",
		description, cats.String(),
	)
}

func failure(filename string, err error) models.UploadResult {
	return models.UploadResult{
		Filename:    filename,
		Success:     false,
		ErrorReason: err.Error(),
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

package tab

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/seckatie/linksaver/internal/core"
)

// HTTPResolver fetches the page with a plain HTTP GET. It is fast and needs no
// browser, but pages that set their title from JavaScript come back with the
// title from the served HTML only.
type HTTPResolver struct {
	// Client is used for every request. If nil, a client with Timeout is used.
	Client *http.Client
	// Timeout bounds each request when Client is nil.
	Timeout time.Duration
	// MaxPageSize bounds how much of the page is read. 0 means core.MaxPageSize.
	MaxPageSize int64
	// InlineIcon replaces the favicon URL with a data URI when the icon can
	// be fetched.
	InlineIcon bool
}

// NewHTTPResolver returns an HTTPResolver with default limits.
func NewHTTPResolver(timeout time.Duration, inlineIcon bool) *HTTPResolver {
	if timeout <= 0 {
		timeout = core.DefaultFetchTimeout
	}
	return &HTTPResolver{Timeout: timeout, InlineIcon: inlineIcon}
}

func (r *HTTPResolver) Resolve(ctx context.Context, rawURL string) (Tab, error) {
	if err := ValidateURL(rawURL); err != nil {
		return Tab{}, err
	}
	client := r.client()

	maxSize := r.MaxPageSize
	if maxSize <= 0 {
		maxSize = core.MaxPageSize
	}
	body, finalURL, _, err := fetch(ctx, client, rawURL, maxSize)
	if err != nil {
		return Tab{}, fmt.Errorf("failed to fetch %s: %w", rawURL, err)
	}

	t, err := parsePage(string(body), finalURL)
	if err != nil {
		return Tab{}, err
	}
	if r.InlineIcon {
		t.FavIconURL = inlineIcon(ctx, client, t.FavIconURL)
	}
	return t, nil
}

func (r *HTTPResolver) client() *http.Client {
	if r.Client != nil {
		return r.Client
	}
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = core.DefaultFetchTimeout
	}
	return &http.Client{Timeout: timeout}
}

// fetch GETs urlStr and returns at most maxSize bytes of the body, the URL
// after redirects, and the response content type.
func fetch(ctx context.Context, client *http.Client, urlStr string, maxSize int64) ([]byte, string, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, "", "", err
	}

	req.Header.Set("User-Agent", core.UserAgent)

	resp, err := client.Do(req)
	if err != nil {
		return nil, "", "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", "", fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	var reader io.Reader = resp.Body
	if maxSize > 0 {
		reader = io.LimitReader(resp.Body, maxSize)
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, "", "", err
	}

	return data, resp.Request.URL.String(), resp.Header.Get("Content-Type"), nil
}

// fetchAsDataURI fetches a URL and returns it as a data URI.
func fetchAsDataURI(ctx context.Context, client *http.Client, urlStr string, maxSize int64) (string, error) {
	data, _, contentType, err := fetch(ctx, client, urlStr, maxSize)
	if err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", fmt.Errorf("empty response")
	}

	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	// Strip charset suffix for data URI
	if idx := strings.Index(contentType, ";"); idx > 0 {
		contentType = strings.TrimSpace(contentType[:idx])
	}

	encoded := base64.StdEncoding.EncodeToString(data)
	return fmt.Sprintf("data:%s;base64,%s", contentType, encoded), nil
}

// inlineIcon returns iconURL as a data URI, or iconURL itself if it cannot be
// fetched.
func inlineIcon(ctx context.Context, client *http.Client, iconURL string) string {
	if iconURL == "" || strings.HasPrefix(iconURL, "data:") {
		return iconURL
	}
	dataURI, err := fetchAsDataURI(ctx, client, iconURL, core.MaxIconSize)
	if err != nil {
		// 404s are common for /favicon.ico guesses
		if !strings.Contains(err.Error(), "HTTP 404") {
			log.Printf("Failed to fetch icon %s: %v", iconURL, err)
		}
		return iconURL
	}
	return dataURI
}

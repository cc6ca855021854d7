package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"
)

const userAgent = "Librarian/1.0 (https://github.com/mrlokans/librarian)"

// ErrNotFound is returned when OpenLibrary has no edition for an ISBN.
var ErrNotFound = errors.New("isbn not found")

// BookMetadata is what OpenLibrary knows about one edition.
type BookMetadata struct {
	Title     string `json:"title,omitempty"`
	Author    string `json:"author,omitempty"`
	ISBN      string `json:"isbn,omitempty"`
	Publisher string `json:"publisher,omitempty"`
	Year      int    `json:"year,omitempty"`
	CoverURL  string `json:"cover_url,omitempty"`
}

// OpenLibraryClient looks up editions by ISBN.
type OpenLibraryClient struct {
	httpClient *http.Client
	baseURL    string
	coversURL  string
	limiter    *rateLimiter
}

type rateLimiter struct {
	mu       sync.Mutex
	lastCall time.Time
	interval time.Duration
}

// wait blocks until interval has passed since the previous call or ctx ends.
func (r *rateLimiter) wait(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if delay := r.interval - time.Since(r.lastCall); delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	r.lastCall = time.Now()
	return nil
}

// NewOpenLibraryClient creates a client for baseURL, allowing one request
// per interval as OpenLibrary asks of anonymous clients.
func NewOpenLibraryClient(baseURL string, interval time.Duration) *OpenLibraryClient {
	if baseURL == "" {
		baseURL = "https://openlibrary.org"
	}
	return &OpenLibraryClient{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
		coversURL:  "https://covers.openlibrary.org",
		limiter:    &rateLimiter{interval: interval},
	}
}

// LookupISBN fetches the edition with the given ISBN-10 or ISBN-13.
func (c *OpenLibraryClient) LookupISBN(ctx context.Context, isbn string) (*BookMetadata, error) {
	normalized := NormalizeISBN(isbn)
	if normalized == "" {
		return nil, fmt.Errorf("invalid ISBN %q", isbn)
	}

	var edition openLibraryEdition
	if err := c.getJSON(ctx, "/isbn/"+normalized+".json", &edition); err != nil {
		return nil, err
	}

	meta := &BookMetadata{
		Title:    edition.Title,
		ISBN:     normalized,
		Year:     extractYear(edition.PublishDate),
		CoverURL: fmt.Sprintf("%s/b/isbn/%s-L.jpg", c.coversURL, normalized),
	}
	if len(edition.Publishers) > 0 {
		meta.Publisher = edition.Publishers[0]
	}
	if len(edition.Authors) > 0 {
		var author struct {
			Name string `json:"name"`
		}
		// Author lookup failures leave the field empty.
		if err := c.getJSON(ctx, edition.Authors[0].Key+".json", &author); err == nil {
			meta.Author = author.Name
		}
	}
	return meta, nil
}

func (c *OpenLibraryClient) getJSON(ctx context.Context, path string, out any) error {
	if err := c.limiter.wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%s: %w", path, ErrNotFound)
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("fetch %s: unexpected status %d", path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// NormalizeISBN strips separators and returns the ISBN, or "" when what
// remains is not 10 or 13 characters long.
func NormalizeISBN(isbn string) string {
	isbn = strings.NewReplacer("-", "", " ", "").Replace(strings.TrimSpace(isbn))
	if len(isbn) != 10 && len(isbn) != 13 {
		return ""
	}
	return isbn
}

// extractYear finds a plausible four digit year in an OpenLibrary date.
func extractYear(date string) int {
	date = strings.TrimSpace(date)
	for _, layout := range []string{"2006", "January 2, 2006", "Jan 2, 2006", "2006-01-02", "January 2006"} {
		if t, err := time.Parse(layout, date); err == nil {
			return t.Year()
		}
	}

	for i := 0; i+4 <= len(date); i++ {
		year := 0
		digits := 0
		for _, ch := range date[i : i+4] {
			if ch < '0' || ch > '9' {
				break
			}
			year = year*10 + int(ch-'0')
			digits++
		}
		if digits == 4 && year > 1000 && year < 3000 {
			return year
		}
	}
	return 0
}

type openLibraryEdition struct {
	Title       string   `json:"title"`
	Publishers  []string `json:"publishers"`
	PublishDate string   `json:"publish_date"`
	Authors     []struct {
		Key string `json:"key"`
	} `json:"authors"`
}

// Package covers keeps a local copy of catalog cover images so the cover
// endpoint does not depend on the remote host being reachable.
package covers

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// MaxCoverSize bounds a downloaded image.
const MaxCoverSize = 5 << 20

var ErrNotImage = errors.New("cover is not an image")

// Cache stores cover images on disk, one file per book and URL.
type Cache struct {
	dir        string
	httpClient *http.Client

	mu      sync.Mutex
	pending map[string]*sync.Mutex
}

// NewCache creates the cache directory if needed.
func NewCache(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}

	return &Cache{
		dir:        dir,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		pending:    make(map[string]*sync.Mutex),
	}, nil
}

// GetCover returns the path of the cached cover, downloading it first when
// missing. Concurrent requests for the same cover share one download.
func (c *Cache) GetCover(ctx context.Context, bookID uint, coverURL string) (string, error) {
	if coverURL == "" {
		return "", nil
	}

	path := filepath.Join(c.dir, filename(bookID, coverURL))
	lock := c.lockFor(path)
	lock.Lock()
	defer lock.Unlock()

	if _, err := os.Stat(path); err == nil {
		return path, nil
	}
	if err := c.download(ctx, coverURL, path); err != nil {
		return "", err
	}
	return path, nil
}

// InvalidateCover removes every cached cover of a book.
func (c *Cache) InvalidateCover(bookID uint) error {
	matches, err := filepath.Glob(filepath.Join(c.dir, fmt.Sprintf("cover_%d_*", bookID)))
	if err != nil {
		return err
	}
	for _, match := range matches {
		if err := os.Remove(match); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

// Dir returns the cache directory.
func (c *Cache) Dir() string {
	return c.dir
}

func (c *Cache) lockFor(path string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	lock, ok := c.pending[path]
	if !ok {
		lock = &sync.Mutex{}
		c.pending[path] = lock
	}
	return lock
}

func filename(bookID uint, coverURL string) string {
	hash := sha256.Sum256([]byte(coverURL))
	return fmt.Sprintf("cover_%d_%x.jpg", bookID, hash[:8])
}

// download writes the image to a temp file and renames it into place so
// readers never see a partial cover.
func (c *Cache) download(ctx context.Context, url, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", "Librarian/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch cover: status %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "image/") {
		return fmt.Errorf("%w: %s", ErrNotImage, ct)
	}

	tmp, err := os.CreateTemp(c.dir, "cover_tmp_")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, io.LimitReader(resp.Body, MaxCoverSize+1))
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	if n > MaxCoverSize {
		return fmt.Errorf("fetch cover: larger than %d bytes", MaxCoverSize)
	}
	return os.Rename(tmp.Name(), path)
}

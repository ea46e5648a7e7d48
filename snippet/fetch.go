package snippet

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"path"
	"sort"
	"strings"
)

// Fetcher retrieves the source text for a snippet that is not in the store
// yet. A fetch is one-shot; the loader never retries on its own.
type Fetcher interface {
	Fetch(ctx context.Context, name string) (string, error)
}

// HTTPFetcher loads snippets from BaseURL/<name><Ext>.
type HTTPFetcher struct {
	BaseURL string
	Ext     string
	Client  *http.Client
}

func (f *HTTPFetcher) Fetch(ctx context.Context, name string) (string, error) {
	u := strings.TrimRight(f.BaseURL, "/") + "/" + url.PathEscape(name+f.Ext)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrFetch, name, err)
	}
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrFetch, name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: %s: status %d", ErrFetch, name, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrFetch, name, err)
	}
	return string(body), nil
}

// FSFetcher loads snippets from Dir/<name><Ext> inside FS. It serves both the
// embedded demo directory and a directory on disk via os.DirFS.
type FSFetcher struct {
	FS  fs.FS
	Dir string
	Ext string
}

func (f *FSFetcher) Fetch(ctx context.Context, name string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !fs.ValidPath(name) || strings.Contains(name, "/") {
		return "", fmt.Errorf("%w: %s: invalid name", ErrFetch, name)
	}
	data, err := fs.ReadFile(f.FS, path.Join(f.dir(), name+f.Ext))
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrFetch, name, err)
	}
	return string(data), nil
}

// Names lists the snippet names available in the directory, sorted.
func (f *FSFetcher) Names() ([]string, error) {
	entries, err := fs.ReadDir(f.FS, f.dir())
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), f.Ext) {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), f.Ext))
	}
	sort.Strings(names)
	return names, nil
}

func (f *FSFetcher) dir() string {
	if f.Dir == "" {
		return "."
	}
	return f.Dir
}

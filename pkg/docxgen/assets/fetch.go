package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dfir-iris/docx-generator/pkg/docxgen/logging"
	"github.com/dfir-iris/docx-generator/pkg/docxgen/rendering"
)

// DefaultFetchTimeout bounds a whole remote retrieval.
const DefaultFetchTimeout = 2 * time.Second

// ErrRemoteDisabled is returned by Fetch when downloads are not allowed.
var ErrRemoteDisabled = errors.New("external download is disabled")

// FetchOptions configures remote retrieval.
type FetchOptions struct {
	AllowRemote bool
	Timeout     time.Duration
	// Proxies maps "http" and "https" to proxy URLs.
	Proxies map[string]string
	// ScratchDir receives downloaded files.
	ScratchDir string
}

// ValidateProxies rejects proxy keys other than http and https, and
// unparsable proxy URLs.
func ValidateProxies(proxies map[string]string) error {
	for scheme, raw := range proxies {
		if scheme != "http" && scheme != "https" {
			return fmt.Errorf("unsupported proxy scheme %q", scheme)
		}
		if _, err := url.Parse(raw); err != nil {
			return fmt.Errorf("invalid %s proxy: %w", scheme, err)
		}
	}
	return nil
}

// Fetcher downloads remote images into a scratch directory.
type Fetcher struct {
	opts   FetchOptions
	client *http.Client
	log    *logging.Logger
}

func NewFetcher(opts FetchOptions, logger *logging.Logger) (*Fetcher, error) {
	if err := ValidateProxies(opts.Proxies); err != nil {
		return nil, err
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultFetchTimeout
	}

	proxies := make(map[string]*url.URL, len(opts.Proxies))
	for scheme, raw := range opts.Proxies {
		u, _ := url.Parse(raw)
		proxies[scheme] = u
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = func(req *http.Request) (*url.URL, error) {
		return proxies[req.URL.Scheme], nil
	}

	return &Fetcher{
		opts:   opts,
		client: &http.Client{Timeout: opts.Timeout, Transport: transport},
		log:    logging.OrDiscard(logger),
	}, nil
}

// IsRemote reports whether path should be downloaded rather than read.
func IsRemote(path string) bool {
	return strings.HasPrefix(path, "http")
}

// Fetch downloads rawURL to <scratch>/<uuid4><ext> and returns that path.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	if !f.opts.AllowRemote {
		f.log.Info("Cannot download image from outside as it has not been enabled")
		return "", ErrRemoteDisabled
	}
	if err := EnsureDir(f.opts.ScratchDir); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", rendering.Wrap(err, err.Error())
	}
	res, err := f.client.Do(req)
	if err != nil {
		return "", rendering.Wrap(err, err.Error())
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return "", rendering.Newf("Image could not be downloaded, status %d: %s", res.StatusCode, rawURL)
	}

	name := filepath.Join(f.opts.ScratchDir, uuid.NewString()+extension(rawURL))
	out, err := os.Create(name)
	if err != nil {
		return "", rendering.Wrap(err, err.Error())
	}
	if _, err := io.Copy(out, res.Body); err != nil {
		out.Close()
		os.Remove(name)
		return "", rendering.Wrap(err, err.Error())
	}
	if err := out.Close(); err != nil {
		return "", rendering.Wrap(err, err.Error())
	}

	f.log.Debug("Image downloaded: %s to %s", rawURL, name)
	return name, nil
}

func extension(rawURL string) string {
	if u, err := url.Parse(rawURL); err == nil {
		return path.Ext(u.Path)
	}
	return path.Ext(rawURL)
}

package catalogue

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"boulder-editor/internal/domain"
)

// ErrNoSource is returned by Reload when neither a file nor a URL is set.
var ErrNoSource = errors.New("no holds data source configured")

const maxCatalogueBytes = 32 << 20

type Source struct {
	Path         string
	URL          string
	FetchTimeout time.Duration
}

// ChangeFunc is called after a catalogue replaced the active one.
type ChangeFunc func(*domain.Catalogue)

// Provider owns the active catalogue. A failed load never replaces it.
type Provider struct {
	mu        sync.RWMutex
	current   *domain.Catalogue
	source    Source
	client    *http.Client
	listeners []ChangeFunc
}

func NewProvider(source Source) *Provider {
	timeout := source.FetchTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Provider{
		source: source,
		client: &http.Client{Timeout: timeout},
	}
}

// Catalogue returns the active catalogue, or nil before the first load.
func (p *Provider) Catalogue() *domain.Catalogue {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current
}

func (p *Provider) OnChange(fn ChangeFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listeners = append(p.listeners, fn)
}

// Set makes cat the active catalogue and notifies listeners.
func (p *Provider) Set(cat *domain.Catalogue) {
	p.mu.Lock()
	p.current = cat
	listeners := append([]ChangeFunc(nil), p.listeners...)
	p.mu.Unlock()

	for _, fn := range listeners {
		fn(cat)
	}
}

// Load parses r and activates the result.
func (p *Provider) Load(r io.Reader, origin string) (*domain.Catalogue, error) {
	log := logrus.WithField("origin", origin)

	cat, err := Parse(io.LimitReader(r, maxCatalogueBytes))
	if err != nil {
		log.WithError(err).Error("Failed to load holds data")
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"holds":   cat.Len(),
		"skipped": len(cat.SkippedHolds),
		"width":   cat.ImageDimensions.Width,
		"height":  cat.ImageDimensions.Height,
	}).Info("Holds data loaded")
	p.Set(cat)
	return cat, nil
}

func (p *Provider) LoadFile(path string) (*domain.Catalogue, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrFetchFailed, err)
	}
	defer f.Close()
	return p.Load(f, path)
}

// Fetch downloads the catalogue at url and activates it.
func (p *Provider) Fetch(ctx context.Context, url string) (*domain.Catalogue, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrFetchFailed, err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		logrus.WithField("url", url).WithError(err).Error("Failed to fetch holds data")
		return nil, fmt.Errorf("%w: %v", domain.ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		logrus.WithFields(logrus.Fields{
			"url":    url,
			"status": resp.StatusCode,
		}).Error("Failed to fetch holds data")
		return nil, fmt.Errorf("%w: status %d", domain.ErrFetchFailed, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxCatalogueBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrFetchFailed, err)
	}
	return p.Load(bytes.NewReader(body), url)
}

// Reload loads the configured source again, preferring the local file.
func (p *Provider) Reload(ctx context.Context) (*domain.Catalogue, error) {
	switch {
	case p.source.Path != "":
		return p.LoadFile(p.source.Path)
	case p.source.URL != "":
		return p.Fetch(ctx, p.source.URL)
	default:
		return nil, ErrNoSource
	}
}

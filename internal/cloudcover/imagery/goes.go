package imagery

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/i474232898/cloud-cover-estimation/internal/cloudcover"
	"github.com/i474232898/cloud-cover-estimation/internal/common"
	"github.com/i474232898/cloud-cover-estimation/internal/metrics"
)

// DefaultBaseURL serves NOAA STAR full-disk GEOCOLOR imagery.
const DefaultBaseURL = "https://cdn.star.nesdis.noaa.gov/GOES16/ABI/FD/GEOCOLOR"

// GOESSource implements cloudcover.ImageSource by downloading full-disk images
// into a Layout. Images already on disk are reused.
type GOESSource struct {
	name    string
	baseURL string
	layout  Layout
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

// NewGOESSource creates a downloader. An empty baseURL means DefaultBaseURL.
func NewGOESSource(client *http.Client, baseURL string, layout Layout, backoff BackoffConfig) *GOESSource {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &GOESSource{
		name:    "goes16",
		baseURL: strings.TrimRight(baseURL, "/"),
		layout:  layout,
		httpCfg: HTTPClientConfig{
			Client:  client,
			Backoff: backoff,
		},
		circuit: newBreaker("goes16"),
	}
}

func (s *GOESSource) Name() string {
	return s.name
}

// URL returns the remote location of the slot's image.
func (s *GOESSource) URL(slot cloudcover.Slot) string {
	return s.baseURL + "/" + FileName(slot, s.layout.Resolution)
}

// Fetch returns the local path of the slot's image, downloading it first when
// it is not on disk. Download failures are *cloudcover.ImageLoadError.
func (s *GOESSource) Fetch(ctx context.Context, slot cloudcover.Slot) (string, error) {
	path := s.layout.Path(slot)
	if fileExists(path) {
		metrics.DownloadsTotal.WithLabelValues("cached").Inc()
		return path, nil
	}

	u := s.URL(slot)
	log := zap.L().With(zap.String("url", u))
	start := time.Now()

	buildRequest := func() (*http.Request, error) {
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, s.httpCfg, s.circuit, buildRequest)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		metrics.DownloadsTotal.WithLabelValues("error").Inc()
		return "", &cloudcover.ImageLoadError{Path: u, Err: err}
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "" && !common.HasAny(ct, "image/jpeg", "image/jpg", "image/png", "application/octet-stream") {
		metrics.DownloadsTotal.WithLabelValues("error").Inc()
		return "", &cloudcover.ImageLoadError{Path: u, Err: eris.Errorf("unexpected content type %q", ct)}
	}

	if err := writeAtomic(path, resp.Body); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		metrics.DownloadsTotal.WithLabelValues("error").Inc()
		return "", &cloudcover.ImageLoadError{Path: path, Err: err}
	}

	metrics.DownloadsTotal.WithLabelValues("ok").Inc()
	metrics.DownloadDuration.Observe(time.Since(start).Seconds())
	log.Info("downloaded full-disk image", zap.String("path", path), zap.Duration("took", time.Since(start)))
	return path, nil
}

// writeAtomic streams r into path through a temporary file in the same folder,
// so an interrupted download never leaves a truncated image behind.
func writeAtomic(path string, r io.Reader) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrapf(err, "imagery: create %s", dir)
	}

	tmp, err := os.CreateTemp(dir, ".download-*")
	if err != nil {
		return eris.Wrap(err, "imagery: create temp file")
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return eris.Wrap(err, "imagery: write image")
	}
	if err := tmp.Close(); err != nil {
		return eris.Wrap(err, "imagery: close temp file")
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return eris.Wrap(err, "imagery: rename image")
	}
	return nil
}

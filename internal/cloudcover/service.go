package cloudcover

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/i474232898/cloud-cover-estimation/internal/metrics"
)

// Target is the fixed point whose cloud cover is tracked.
type Target struct {
	Point    GeoPoint `json:"point"`
	RadiusKm float64  `json:"radiusKm"`
}

// Service orchestrates image sourcing, sampling and persisting samples.
type Service struct {
	store         Store
	source        ImageSource
	sampler       *Sampler
	target        Target
	maxConcurrent int

	loadRaster func(path string) (Raster, error)
}

// NewService creates a new Service. maxConcurrent <= 0 samples one image at a time.
func NewService(store Store, source ImageSource, sampler *Sampler, target Target, maxConcurrent int) *Service {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &Service{
		store:         store,
		source:        source,
		sampler:       sampler,
		target:        target,
		maxConcurrent: maxConcurrent,
		loadRaster:    LoadRaster,
	}
}

// Target returns the tracked point.
func (s *Service) Target() Target {
	return s.target
}

// CheckTarget fails when the target cannot be projected at all.
func (s *Service) CheckTarget() error {
	_, _, err := s.sampler.Projector().Planar(s.target.Point)
	return err
}

// Sample fetches and samples the image for one slot and stores the result.
// Load and bounds failures come back as *ImageLoadError and *OutOfBoundsError.
func (s *Service) Sample(ctx context.Context, slot Slot) (CloudCoverSample, error) {
	if err := slot.Validate(); err != nil {
		return CloudCoverSample{}, eris.Wrap(err, "cloudcover: invalid slot")
	}
	if s.source == nil {
		return CloudCoverSample{}, eris.New("cloudcover: no image source configured")
	}

	start := time.Now()
	log := zap.L().With(zap.String("slot", slot.String()), zap.String("source", s.source.Name()))

	path, err := s.source.Fetch(ctx, slot)
	if err != nil {
		metrics.SamplesTotal.WithLabelValues(resultLabel(err)).Inc()
		return CloudCoverSample{}, err
	}

	img, err := s.loadRaster(path)
	if err != nil {
		metrics.SamplesTotal.WithLabelValues(resultLabel(err)).Inc()
		return CloudCoverSample{}, err
	}

	pct, px, err := s.sampler.Sample(img, s.target.Point)
	if err != nil {
		metrics.SamplesTotal.WithLabelValues(resultLabel(err)).Inc()
		return CloudCoverSample{}, err
	}

	sample := CloudCoverSample{
		Point:      s.target.Point,
		Slot:       slot,
		Timestamp:  slot.Time(),
		Percentage: pct,
		Pixel:      px,
		Source:     path,
	}
	s.store.SaveSample(sample)

	metrics.SamplesTotal.WithLabelValues("ok").Inc()
	metrics.SampleDuration.Observe(time.Since(start).Seconds())
	metrics.LatestCloudCover.Set(pct)
	log.Info("sampled cloud cover",
		zap.Float64("percentage", pct),
		zap.Int("pixel_x", px.X),
		zap.Int("pixel_y", px.Y))
	return sample, nil
}

// SampleDay samples every slot of the given hours concurrently. Skippable
// per-sample failures are logged and left out; any other error, such as a
// ProjectionError, aborts the run.
func (s *Service) SampleDay(ctx context.Context, day time.Time, hours []int) ([]CloudCoverSample, error) {
	day = day.UTC()
	day = time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)

	var (
		mu      sync.Mutex
		samples []CloudCoverSample
		skipped int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxConcurrent)

	for _, h := range hours {
		for _, m := range SlotMinutes {
			slot := Slot{Day: day, Hour: h, Minute: m}
			g.Go(func() error {
				sample, err := s.Sample(gctx, slot)
				if err != nil {
					if IsSkippable(err) {
						zap.L().Warn("skipping sample", zap.String("slot", slot.String()), zap.Error(err))
						mu.Lock()
						skipped++
						mu.Unlock()
						return nil
					}
					return eris.Wrapf(err, "cloudcover: sample %s", slot)
				}
				mu.Lock()
				samples = append(samples, sample)
				mu.Unlock()
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	SortSamples(samples)
	zap.L().Info("sampled day",
		zap.String("day", day.Format("2006-01-02")),
		zap.Int("samples", len(samples)),
		zap.Int("skipped", skipped))
	return samples, nil
}

// Series returns the stored samples of day arranged by hour.
func (s *Service) Series(day time.Time, hours []int) (HourSeries, error) {
	samples, err := s.store.GetDay(day)
	if err != nil {
		return nil, err
	}
	return BuildSeries(samples, hours), nil
}

// GetLatest delegates to the underlying store.
func (s *Service) GetLatest() (CloudCoverSample, error) {
	return s.store.GetLatest()
}

// GetDay delegates to the underlying store.
func (s *Service) GetDay(day time.Time) ([]CloudCoverSample, error) {
	return s.store.GetDay(day)
}

// Days delegates to the underlying store.
func (s *Service) Days() []time.Time {
	return s.store.Days()
}

// BoundingBox reports the box of the configured radius around the target.
func (s *Service) BoundingBox() (BoundingBox, error) {
	return BoundingBoxAround(s.target.Point, s.target.RadiusKm)
}

func resultLabel(err error) string {
	var loadErr *ImageLoadError
	var boundsErr *OutOfBoundsError
	var projErr *ProjectionError
	switch {
	case errors.As(err, &loadErr):
		return "load_error"
	case errors.As(err, &boundsErr):
		return "out_of_bounds"
	case errors.As(err, &projErr):
		return "projection_error"
	default:
		return "error"
	}
}

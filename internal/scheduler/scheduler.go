package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/i474232898/cloud-cover-estimation/internal/cloudcover"
)

// SlotSampler samples the image of one slot.
type SlotSampler interface {
	Sample(ctx context.Context, slot cloudcover.Slot) (cloudcover.CloudCoverSample, error)
}

// Pruner drops image folders past retention.
type Pruner interface {
	Prune(now time.Time, keepDays int) (int, error)
}

// Scheduler periodically samples the newest published full-disk image.
type Scheduler struct {
	scheduler    *gocron.Scheduler
	sampler      SlotSampler
	pruner       Pruner
	interval     time.Duration
	publishDelay time.Duration
	keepDays     int
	timeout      time.Duration
	now          func() time.Time

	// onFatal is called when a run fails in a way no later run can recover from.
	onFatal func(error)
}

// Options configures a Scheduler.
type Options struct {
	Interval     time.Duration
	PublishDelay time.Duration
	// Timeout bounds one run. Zero means the interval.
	Timeout time.Duration
	// Pruner and KeepDays enable the daily image folder cleanup.
	Pruner   Pruner
	KeepDays int
	OnFatal  func(error)
}

// New creates a new Scheduler.
func New(sampler SlotSampler, opts Options) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	if opts.Timeout <= 0 {
		opts.Timeout = opts.Interval
	}
	return &Scheduler{
		scheduler:    s,
		sampler:      sampler,
		pruner:       opts.Pruner,
		interval:     opts.Interval,
		publishDelay: opts.PublishDelay,
		keepDays:     opts.KeepDays,
		timeout:      opts.Timeout,
		now:          time.Now,
		onFatal:      opts.OnFatal,
	}
}

// LatestSlot returns the newest slot expected to be published at now.
func LatestSlot(now time.Time, publishDelay time.Duration) cloudcover.Slot {
	return cloudcover.NewSlot(now.Add(-publishDelay))
}

// Start schedules the periodic jobs and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	minutes := int(s.interval.Minutes())
	if minutes <= 0 {
		minutes = 10
	}

	_, err := s.scheduler.Every(minutes).Minutes().SingletonMode().Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		s.RunOnce(ctx)
	})
	if err != nil {
		return err
	}

	if s.pruner != nil && s.keepDays > 0 {
		_, err = s.scheduler.Every(1).Day().At("00:05").Do(func() {
			if _, err := s.pruner.Prune(s.now(), s.keepDays); err != nil {
				zap.L().Error("scheduler: prune image folders failed", zap.Error(err))
			}
		})
		if err != nil {
			return err
		}
	}

	s.scheduler.StartAsync()
	return nil
}

// RunOnce samples the newest published slot.
func (s *Scheduler) RunOnce(ctx context.Context) {
	slot := LatestSlot(s.now(), s.publishDelay)
	log := zap.L().With(zap.String("run_id", uuid.NewString()), zap.String("slot", slot.String()))
	log.Info("scheduler: running cloud cover sample job")

	sample, err := s.sampler.Sample(ctx, slot)
	switch {
	case err == nil:
		log.Info("scheduler: completed cloud cover sample job", zap.Float64("percentage", sample.Percentage))
	case cloudcover.IsSkippable(err):
		log.Warn("scheduler: sample skipped", zap.Error(err))
	default:
		log.Error("scheduler: sample failed", zap.Error(err))
		var projErr *cloudcover.ProjectionError
		if errors.As(err, &projErr) && s.onFatal != nil {
			s.onFatal(err)
		}
	}
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}

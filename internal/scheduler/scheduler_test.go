package scheduler

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/cloud-cover-estimation/internal/cloudcover"
)

type fakeSampler struct {
	mu    sync.Mutex
	slots []cloudcover.Slot
	err   error
}

func (f *fakeSampler) Sample(ctx context.Context, slot cloudcover.Slot) (cloudcover.CloudCoverSample, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.slots = append(f.slots, slot)
	if f.err != nil {
		return cloudcover.CloudCoverSample{}, f.err
	}
	return cloudcover.CloudCoverSample{Slot: slot, Timestamp: slot.Time(), Percentage: 42}, nil
}

func TestLatestSlot(t *testing.T) {
	now := time.Date(2024, time.June, 1, 0, 17, 0, 0, time.UTC)

	slot := LatestSlot(now, 30*time.Minute)
	assert.Equal(t, time.Date(2024, time.May, 31, 0, 0, 0, 0, time.UTC), slot.Day)
	assert.Equal(t, 23, slot.Hour)
	assert.Equal(t, 40, slot.Minute)

	assert.Equal(t, "0010", LatestSlot(now, 0).Key())
}

func TestRunOnce_SamplesLatestSlot(t *testing.T) {
	sampler := &fakeSampler{}
	s := New(sampler, Options{Interval: 10 * time.Minute, PublishDelay: 20 * time.Minute})
	s.now = func() time.Time { return time.Date(2024, time.June, 1, 12, 45, 0, 0, time.UTC) }

	s.RunOnce(context.Background())

	require.Len(t, sampler.slots, 1)
	assert.Equal(t, "1220", sampler.slots[0].Key())
}

func TestRunOnce_FatalOnlyForProjectionErrors(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		fatal bool
	}{
		{"skippable load error", &cloudcover.ImageLoadError{Path: "x.jpg", Err: os.ErrNotExist}, false},
		{"out of bounds", &cloudcover.OutOfBoundsError{Width: 1, Height: 1}, false},
		{"transient", errors.New("timeout"), false},
		{"projection", &cloudcover.ProjectionError{Reason: "latitude out of range"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var fatal error
			s := New(&fakeSampler{err: tt.err}, Options{
				Interval: 10 * time.Minute,
				OnFatal:  func(err error) { fatal = err },
			})

			s.RunOnce(context.Background())

			if tt.fatal {
				assert.ErrorIs(t, fatal, tt.err)
			} else {
				assert.NoError(t, fatal)
			}
		})
	}
}

type fakePruner struct {
	calls chan int
}

func (p *fakePruner) Prune(now time.Time, keepDays int) (int, error) {
	p.calls <- keepDays
	return 0, nil
}

func TestStartStop(t *testing.T) {
	sampler := &fakeSampler{}
	s := New(sampler, Options{
		Interval: 10 * time.Minute,
		Timeout:  time.Second,
		Pruner:   &fakePruner{calls: make(chan int, 1)},
		KeepDays: 3,
	})
	require.NoError(t, s.Start())
	defer s.Stop()

	// gocron runs an interval job immediately on start.
	assert.Eventually(t, func() bool {
		sampler.mu.Lock()
		defer sampler.mu.Unlock()
		return len(sampler.slots) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

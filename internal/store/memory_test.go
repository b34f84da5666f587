package store

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/cloud-cover-estimation/internal/cloudcover"
)

func sample(day time.Time, hour, minute int, pct float64) cloudcover.CloudCoverSample {
	slot := cloudcover.Slot{Day: day, Hour: hour, Minute: minute}
	return cloudcover.CloudCoverSample{Slot: slot, Timestamp: slot.Time(), Percentage: pct}
}

func TestMemoryStore_Empty(t *testing.T) {
	s := NewMemoryStore(0)

	_, err := s.GetLatest()
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.GetDay(time.Now())
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, s.Days())
}

func TestMemoryStore_SaveReplacesSlot(t *testing.T) {
	s := NewMemoryStore(0)
	day := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)

	s.SaveSample(sample(day, 12, 10, 30))
	s.SaveSample(sample(day, 0, 0, 10))
	s.SaveSample(sample(day, 12, 10, 60))

	got, err := s.GetDay(day.Add(15 * time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 10.0, got[0].Percentage)
	assert.Equal(t, 60.0, got[1].Percentage)

	latest, err := s.GetLatest()
	require.NoError(t, err)
	assert.Equal(t, 60.0, latest.Percentage)
}

func TestMemoryStore_LatestIgnoresBackfill(t *testing.T) {
	s := NewMemoryStore(0)
	day := time.Date(2024, time.June, 2, 0, 0, 0, 0, time.UTC)

	s.SaveSample(sample(day, 18, 0, 5))
	s.SaveSample(sample(day.AddDate(0, 0, -1), 6, 0, 95))

	latest, err := s.GetLatest()
	require.NoError(t, err)
	assert.Equal(t, 5.0, latest.Percentage)
}

func TestMemoryStore_RetentionByDays(t *testing.T) {
	s := NewMemoryStore(2)
	first := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 4; i++ {
		s.SaveSample(sample(first.AddDate(0, 0, i), 0, 0, float64(i)))
	}

	days := s.Days()
	require.Len(t, days, 2)
	assert.Equal(t, first.AddDate(0, 0, 2), days[0])
	assert.Equal(t, first.AddDate(0, 0, 3), days[1])

	_, err := s.GetDay(first)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_BackfillOlderDaySurvives(t *testing.T) {
	s := NewMemoryStore(2)
	recent := time.Date(2024, time.June, 10, 0, 0, 0, 0, time.UTC)
	s.SaveSample(sample(recent.AddDate(0, 0, -1), 0, 0, 1))
	s.SaveSample(sample(recent, 0, 0, 2))

	old := recent.AddDate(0, 0, -5)
	s.SaveSample(sample(old, 12, 0, 3))

	got, err := s.GetDay(old)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 3.0, got[0].Percentage)

	assert.Equal(t, []time.Time{old, recent}, s.Days())
}

func TestMemoryStore_Concurrent(t *testing.T) {
	s := NewMemoryStore(0)
	day := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)

	var wg sync.WaitGroup
	for h := 0; h < 24; h++ {
		for _, m := range cloudcover.SlotMinutes {
			h, m := h, m // per-iteration copies (pre-Go 1.22 loop semantics)
			wg.Add(1)
			go func() {
				defer wg.Done()
				s.SaveSample(sample(day, h, m, float64(h)))
				_, _ = s.GetDay(day)
			}()
		}
	}
	wg.Wait()

	got, err := s.GetDay(day)
	require.NoError(t, err)
	assert.Len(t, got, 24*len(cloudcover.SlotMinutes))
}

package store

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/i474232898/cloud-cover-estimation/internal/cloudcover"
)

var (
	// ErrNotFound is returned when no samples are available for a request.
	ErrNotFound = errors.New("no cloud cover samples")
)

// DayHistory holds the samples of one UTC day keyed by slot.
type DayHistory struct {
	Day     time.Time
	Samples map[string]cloudcover.CloudCoverSample
}

// MemoryStore is a concurrency-safe in-memory implementation of a sample store.
type MemoryStore struct {
	mu sync.RWMutex

	// key: YYYY-MM-DD, value: samples of that day
	data map[string]*DayHistory

	latest    cloudcover.CloudCoverSample
	hasLatest bool

	// retention configuration
	maxDays int // max number of days kept (0 = unlimited)
}

// NewMemoryStore creates a new MemoryStore.
// If maxDays is <= 0, it is treated as unlimited.
func NewMemoryStore(maxDays int) *MemoryStore {
	return &MemoryStore{
		data:    make(map[string]*DayHistory),
		maxDays: maxDays,
	}
}

func dayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// SaveSample stores a sample, replacing any earlier sample of the same slot,
// and enforces retention.
func (s *MemoryStore) SaveSample(sample cloudcover.CloudCoverSample) {
	key := dayKey(sample.Slot.Day)

	s.mu.Lock()
	defer s.mu.Unlock()

	history, ok := s.data[key]
	if !ok {
		d := sample.Slot.Day.UTC()
		history = &DayHistory{
			Day:     time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC),
			Samples: make(map[string]cloudcover.CloudCoverSample),
		}
		s.data[key] = history
	}
	history.Samples[sample.Slot.Key()] = sample

	if !s.hasLatest || !sample.Timestamp.Before(s.latest.Timestamp) {
		s.latest = sample
		s.hasLatest = true
	}

	// Enforce retention by day count, dropping the oldest days.
	if s.maxDays > 0 && len(s.data) > s.maxDays {
		keys := make([]string, 0, len(s.data))
		for k := range s.data {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		// The day just written always survives, so backfilled days stay readable.
		excess := len(keys) - s.maxDays
		for _, k := range keys {
			if excess == 0 {
				break
			}
			if k == key {
				continue
			}
			delete(s.data, k)
			excess--
		}
	}
}

// GetLatest returns the most recent sample by slot time.
func (s *MemoryStore) GetLatest() (cloudcover.CloudCoverSample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.hasLatest {
		return cloudcover.CloudCoverSample{}, ErrNotFound
	}
	return s.latest, nil
}

// GetDay returns the samples of a UTC day ordered by slot.
func (s *MemoryStore) GetDay(day time.Time) ([]cloudcover.CloudCoverSample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.data[dayKey(day)]
	if !ok || len(history.Samples) == 0 {
		return nil, ErrNotFound
	}

	result := make([]cloudcover.CloudCoverSample, 0, len(history.Samples))
	for _, sample := range history.Samples {
		result = append(result, sample)
	}
	cloudcover.SortSamples(result)
	return result, nil
}

// Days lists the stored days, oldest first.
func (s *MemoryStore) Days() []time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	days := make([]time.Time, 0, len(s.data))
	for _, h := range s.data {
		days = append(days, h.Day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	return days
}

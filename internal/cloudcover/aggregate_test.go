package cloudcover

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testDay = time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)

func sampleAt(hour, minute int, pct float64) CloudCoverSample {
	slot := Slot{Day: testDay, Hour: hour, Minute: minute}
	return CloudCoverSample{Slot: slot, Timestamp: slot.Time(), Percentage: pct}
}

func TestBuildSeries_AlignsWithMinutes(t *testing.T) {
	samples := []CloudCoverSample{
		sampleAt(12, 50, 10),
		sampleAt(0, 0, 100),
		sampleAt(12, 0, 50),
		sampleAt(18, 30, 0),
		sampleAt(6, 0, 77), // not displayed
	}

	series := BuildSeries(samples, []int{0, 12, 18})
	assert.Equal(t, []int{0, 12, 18}, series.Hours())

	for _, h := range series.Hours() {
		require.Len(t, series[h], len(SlotMinutes))
	}
	assert.Equal(t, 100.0, *series[0][0])
	assert.Nil(t, series[0][1])
	assert.Equal(t, 50.0, *series[12][0])
	assert.Equal(t, 10.0, *series[12][5])
	assert.Equal(t, 0.0, *series[18][3])
	_, ok := series[6]
	assert.False(t, ok)

	mean, ok := series.Mean(12)
	require.True(t, ok)
	assert.Equal(t, 30.0, mean)

	_, ok = series.Mean(0)
	assert.True(t, ok)
	_, ok = BuildSeries(nil, []int{3}).Mean(3)
	assert.False(t, ok)
}

func TestBuildSeries_OrderIndependent(t *testing.T) {
	early := sampleAt(12, 10, 20)
	late := early
	late.Timestamp = late.Timestamp.Add(time.Minute)
	late.Percentage = 40

	a := BuildSeries([]CloudCoverSample{early, late}, []int{12})
	b := BuildSeries([]CloudCoverSample{late, early}, []int{12})
	assert.Equal(t, 40.0, *a[12][1])
	assert.Equal(t, *a[12][1], *b[12][1])
}

func TestSortSamples(t *testing.T) {
	samples := []CloudCoverSample{sampleAt(18, 0, 1), sampleAt(0, 10, 2), sampleAt(0, 0, 3)}
	SortSamples(samples)
	assert.Equal(t, []float64{3, 2, 1}, []float64{samples[0].Percentage, samples[1].Percentage, samples[2].Percentage})
}

func TestNewSlot(t *testing.T) {
	loc := time.FixedZone("EDT", -4*3600)
	slot := NewSlot(time.Date(2024, time.June, 1, 21, 37, 12, 0, loc))

	assert.Equal(t, time.Date(2024, time.June, 2, 0, 0, 0, 0, time.UTC), slot.Day)
	assert.Equal(t, 1, slot.Hour)
	assert.Equal(t, 30, slot.Minute)
	assert.Equal(t, "0130", slot.Key())
	assert.Equal(t, "2024-06-02T01:30Z", slot.String())
	assert.NoError(t, slot.Validate())
}

func TestSlot_Validate(t *testing.T) {
	tests := []struct {
		name string
		slot Slot
		ok   bool
	}{
		{"valid", Slot{Day: testDay, Hour: 23, Minute: 50}, true},
		{"missing day", Slot{Hour: 1}, false},
		{"hour too large", Slot{Day: testDay, Hour: 24}, false},
		{"off grid minute", Slot{Day: testDay, Hour: 1, Minute: 15}, false},
		{"negative minute", Slot{Day: testDay, Hour: 1, Minute: -10}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.slot.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

package cloudcover

import "sort"

// BuildSeries arranges one day's samples into one row per requested hour, aligned with
// SlotMinutes. When several samples share a slot the latest Timestamp wins, so
// the result does not depend on the order samples arrive in.
func BuildSeries(samples []CloudCoverSample, hours []int) HourSeries {
	series := make(HourSeries, len(hours))
	for _, h := range hours {
		series[h] = make([]*float64, len(SlotMinutes))
	}

	chosen := make(map[string]CloudCoverSample, len(samples))
	for _, s := range samples {
		k := s.Slot.Key()
		if prev, ok := chosen[k]; ok && !s.Timestamp.After(prev.Timestamp) {
			continue
		}
		chosen[k] = s
	}

	for _, s := range chosen {
		row, ok := series[s.Slot.Hour]
		if !ok {
			continue
		}
		idx := minuteIndex(s.Slot.Minute)
		if idx < 0 {
			continue
		}
		v := s.Percentage
		row[idx] = &v
	}
	return series
}

// Hours returns the series hours in ascending order.
func (hs HourSeries) Hours() []int {
	hours := make([]int, 0, len(hs))
	for h := range hs {
		hours = append(hours, h)
	}
	sort.Ints(hours)
	return hours
}

// Mean averages the sampled slots of an hour. ok is false when none were sampled.
func (hs HourSeries) Mean(hour int) (mean float64, ok bool) {
	var sum float64
	var n int
	for _, v := range hs[hour] {
		if v == nil {
			continue
		}
		sum += *v
		n++
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

// SortSamples orders samples by slot time, oldest first.
func SortSamples(samples []CloudCoverSample) {
	sort.Slice(samples, func(i, j int) bool {
		return samples[i].Slot.Time().Before(samples[j].Slot.Time())
	})
}

func minuteIndex(minute int) int {
	for i, m := range SlotMinutes {
		if m == minute {
			return i
		}
	}
	return -1
}

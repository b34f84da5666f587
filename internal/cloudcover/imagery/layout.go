package imagery

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/i474232898/cloud-cover-estimation/internal/cloudcover"
)

// FullDiskResolution is the edge length of the GOES-16 full-disk GEOCOLOR product.
const FullDiskResolution = 21696

const dayDirFormat = "2006-01-02"

var fileNamePattern = regexp.MustCompile(`^(\d{4})(\d{3})(\d{2})(\d{2})_GOES16-ABI-FD-GEOCOLOR-(\d+)x(\d+)\.jpg$`)

// FileName returns the published name of the slot's image:
// {YYYY}{DDD}{HH}{MM}_GOES16-ABI-FD-GEOCOLOR-{res}x{res}.jpg, DDD being the
// zero-padded day of year.
func FileName(slot cloudcover.Slot, resolution int) string {
	t := slot.Time()
	return fmt.Sprintf("%04d%03d%02d%02d_GOES16-ABI-FD-GEOCOLOR-%dx%d.jpg",
		t.Year(), t.YearDay(), t.Hour(), t.Minute(), resolution, resolution)
}

// ParseFileName is the inverse of FileName.
func ParseFileName(name string) (cloudcover.Slot, int, error) {
	m := fileNamePattern.FindStringSubmatch(name)
	if m == nil {
		return cloudcover.Slot{}, 0, fmt.Errorf("%q does not follow the full-disk naming convention", name)
	}
	year, _ := strconv.Atoi(m[1])
	yday, _ := strconv.Atoi(m[2])
	hour, _ := strconv.Atoi(m[3])
	minute, _ := strconv.Atoi(m[4])
	res, _ := strconv.Atoi(m[5])
	if m[5] != m[6] {
		return cloudcover.Slot{}, 0, fmt.Errorf("%q is not a square product", name)
	}

	day := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, yday-1)
	if yday < 1 || day.Year() != year {
		return cloudcover.Slot{}, 0, fmt.Errorf("%q has invalid day of year %d", name, yday)
	}
	slot := cloudcover.Slot{Day: day, Hour: hour, Minute: minute}
	if err := slot.Validate(); err != nil {
		return cloudcover.Slot{}, 0, fmt.Errorf("%q: %w", name, err)
	}
	return slot, res, nil
}

// Layout places images under Root/{YYYY-MM-DD}/{FileName}.
type Layout struct {
	Root       string
	Resolution int
}

// Path returns where the slot's image lives on disk.
func (l Layout) Path(slot cloudcover.Slot) string {
	return filepath.Join(l.Root, slot.Day.UTC().Format(dayDirFormat), FileName(slot, l.Resolution))
}

// Slots lists the slots with an image on disk for day, ordered by time.
func (l Layout) Slots(day time.Time) ([]cloudcover.Slot, error) {
	dir := filepath.Join(l.Root, day.UTC().Format(dayDirFormat))
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "imagery: read %s", dir)
	}

	var slots []cloudcover.Slot
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		slot, res, err := ParseFileName(e.Name())
		if err != nil || res != l.Resolution {
			continue
		}
		slots = append(slots, slot)
	}
	return slots, nil
}

// Prune removes day folders older than keepDays relative to now.
// Folders that are not named after a date are left alone.
func (l Layout) Prune(now time.Time, keepDays int) (int, error) {
	if keepDays <= 0 {
		return 0, nil
	}
	entries, err := os.ReadDir(l.Root)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, eris.Wrapf(err, "imagery: read %s", l.Root)
	}

	now = now.UTC()
	cutoff := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, -keepDays)

	removed := 0
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		day, err := time.Parse(dayDirFormat, e.Name())
		if err != nil || !day.Before(cutoff) {
			continue
		}
		dir := filepath.Join(l.Root, e.Name())
		if err := os.RemoveAll(dir); err != nil {
			return removed, eris.Wrapf(err, "imagery: remove %s", dir)
		}
		zap.L().Info("pruned image folder", zap.String("dir", dir))
		removed++
	}
	return removed, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir() && info.Size() > 0
}

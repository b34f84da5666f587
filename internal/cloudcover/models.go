package cloudcover

import (
	"fmt"
	"time"
)

// SlotMinutes is the fixed minute sequence at which full-disk images are published.
var SlotMinutes = [...]int{0, 10, 20, 30, 40, 50}

// GeoPoint is a WGS84 latitude/longitude pair in degrees.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

func (p GeoPoint) String() string {
	return fmt.Sprintf("%.4f,%.4f", p.Lat, p.Lon)
}

// PixelCoordinate indexes an image grid with (0,0) at the top-left corner.
type PixelCoordinate struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// In reports whether the coordinate lies inside a width x height grid.
func (p PixelCoordinate) In(width, height int) bool {
	return p.X >= 0 && p.X < width && p.Y >= 0 && p.Y < height
}

// BoundingBox is a lat/lon rectangle around a point. Reporting only.
type BoundingBox struct {
	LatMin float64 `json:"latMin"`
	LonMin float64 `json:"lonMin"`
	LatMax float64 `json:"latMax"`
	LonMax float64 `json:"lonMax"`
}

// Contains reports whether p lies strictly inside the box.
func (b BoundingBox) Contains(p GeoPoint) bool {
	return b.LatMin < p.Lat && p.Lat < b.LatMax && b.LonMin < p.Lon && p.Lon < b.LonMax
}

// Slot identifies one published image: a UTC day plus hour and minute.
type Slot struct {
	Day    time.Time `json:"day"`
	Hour   int       `json:"hour"`
	Minute int       `json:"minute"`
}

// NewSlot truncates t to its 10-minute publication slot in UTC.
func NewSlot(t time.Time) Slot {
	t = t.UTC()
	return Slot{
		Day:    time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC),
		Hour:   t.Hour(),
		Minute: t.Minute() - t.Minute()%10,
	}
}

// Time returns the slot's instant in UTC.
func (s Slot) Time() time.Time {
	d := s.Day.UTC()
	return time.Date(d.Year(), d.Month(), d.Day(), s.Hour, s.Minute, 0, 0, time.UTC)
}

// Key returns a canonical "HHMM" key, unique within a day.
func (s Slot) Key() string {
	return fmt.Sprintf("%02d%02d", s.Hour, s.Minute)
}

func (s Slot) String() string {
	return s.Time().Format("2006-01-02T15:04Z")
}

// Validate checks the slot lands on the publication grid.
func (s Slot) Validate() error {
	if s.Day.IsZero() {
		return fmt.Errorf("slot day is required")
	}
	if s.Hour < 0 || s.Hour > 23 {
		return fmt.Errorf("slot hour %d out of range 0-23", s.Hour)
	}
	if s.Minute < 0 || s.Minute > 59 || s.Minute%10 != 0 {
		return fmt.Errorf("slot minute %d must be one of 00,10,20,30,40,50", s.Minute)
	}
	return nil
}

// CloudCoverSample is the cloud percentage measured on one image.
type CloudCoverSample struct {
	Point      GeoPoint        `json:"point"`
	Slot       Slot            `json:"slot"`
	Timestamp  time.Time       `json:"timestamp"` // always UTC
	Percentage float64         `json:"percentage"`
	Pixel      PixelCoordinate `json:"pixel"`
	Source     string          `json:"source,omitempty"`
}

// HourSeries maps an hour to percentages aligned with SlotMinutes.
// A nil entry means the slot was not sampled.
type HourSeries map[int][]*float64

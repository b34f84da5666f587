package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/i474232898/cloud-cover-estimation/internal/cloudcover"
	"github.com/i474232898/cloud-cover-estimation/internal/cloudcover/imagery"
)

type AppConfig struct {
	// Target point. HasPoint is false when TARGET_LAT/TARGET_LON are unset and
	// the point must be geocoded from TargetAddress.
	Target        cloudcover.Target
	HasPoint      bool
	TargetAddress Address
	GeocoderKey   string

	// Imagery.
	ImageBaseURL    string
	ImageDir        string
	ImageResolution int
	Offline         bool // read ImageDir only, never download
	HTTPTimeout     time.Duration

	// SampleInterval controls how often the newest slot is sampled.
	SampleInterval time.Duration
	// PublishDelay is how long after its slot an image becomes available.
	PublishDelay         time.Duration
	MaxConcurrentSamples int

	// In-memory store retention, also applied to image folders.
	StoreMaxDays int

	DisplayHours []int

	Projection cloudcover.ProjectionParams
	Sampler    cloudcover.SamplerConfig

	Log  LogConfig
	Port string
}

// Address is a place name resolved to the target point by geocoding.
type Address struct {
	City    string
	State   string
	Country string
}

// IsZero reports whether no address component is set.
func (a Address) IsZero() bool {
	return a.City == "" && a.State == "" && a.Country == ""
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string
	Format string
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, eris.Wrap(err, "config: load .env")
	}
	cfg := &AppConfig{}
	p := &parser{}

	latStr, lonStr := os.Getenv("TARGET_LAT"), os.Getenv("TARGET_LON")
	cfg.TargetAddress = Address{
		City:    os.Getenv("TARGET_CITY"),
		State:   os.Getenv("TARGET_STATE"),
		Country: os.Getenv("TARGET_COUNTRY"),
	}
	cfg.GeocoderKey = os.Getenv("GEOCODER_API_KEY")
	switch {
	case latStr != "" || lonStr != "":
		cfg.Target.Point.Lat = p.float("TARGET_LAT", latStr)
		cfg.Target.Point.Lon = p.float("TARGET_LON", lonStr)
		cfg.HasPoint = true
	case cfg.TargetAddress.IsZero():
		// Rimouski, Quebec.
		cfg.Target.Point = cloudcover.GeoPoint{Lat: 48.5856, Lon: -68.1901}
		cfg.HasPoint = true
	}
	cfg.Target.RadiusKm = p.float("RADIUS_KM", getenvDefault("RADIUS_KM", "5"))

	cfg.ImageBaseURL = getenvDefault("IMAGE_BASE_URL", imagery.DefaultBaseURL)
	cfg.ImageDir = getenvDefault("IMAGE_DIR", "./images")
	cfg.ImageResolution = p.int("IMAGE_RESOLUTION", getenvDefault("IMAGE_RESOLUTION", strconv.Itoa(imagery.FullDiskResolution)))
	cfg.Offline = p.bool("IMAGE_OFFLINE", getenvDefault("IMAGE_OFFLINE", "false"))
	cfg.HTTPTimeout = p.duration("HTTP_TIMEOUT", getenvDefault("HTTP_TIMEOUT", "2m"))

	// Full-disk images are published every 10 minutes.
	cfg.SampleInterval = p.duration("SAMPLE_INTERVAL", getenvDefault("SAMPLE_INTERVAL", "10m"))
	cfg.PublishDelay = p.duration("PUBLISH_DELAY", getenvDefault("PUBLISH_DELAY", "30m"))
	cfg.MaxConcurrentSamples = p.int("MAX_CONCURRENT_SAMPLES", getenvDefault("MAX_CONCURRENT_SAMPLES", "2"))

	cfg.StoreMaxDays = p.int("STORE_MAX_DAYS", getenvDefault("STORE_MAX_DAYS", "7"))
	cfg.DisplayHours = p.hours("DISPLAY_HOURS", getenvDefault("DISPLAY_HOURS", "0,12,18"))

	cfg.Projection = cloudcover.GOES16()
	cfg.Projection.Altitude = p.float("SAT_ALTITUDE", getenvDefault("SAT_ALTITUDE", "35786023"))
	cfg.Projection.SubSatelliteLon = p.float("SAT_LONGITUDE", getenvDefault("SAT_LONGITUDE", "-75.0"))
	cfg.Projection.Sweep = cloudcover.Sweep(getenvDefault("SAT_SWEEP", string(cloudcover.SweepX)))

	cfg.Sampler = cloudcover.DefaultSamplerConfig()
	cfg.Sampler.Threshold = uint8(p.intRange("CLOUD_THRESHOLD", getenvDefault("CLOUD_THRESHOLD", "80"), 0, 255))
	cfg.Sampler.HalfWidth = p.int("WINDOW_HALF_WIDTH", getenvDefault("WINDOW_HALF_WIDTH", "5"))

	cfg.Log = LogConfig{
		Level:  getenvDefault("LOG_LEVEL", "info"),
		Format: getenvDefault("LOG_FORMAT", "json"),
	}
	cfg.Port = getenvDefault("PORT", "8080")

	if err := p.err(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration values are sane.
func (c *AppConfig) Validate() error {
	var errs []string

	if c.HasPoint {
		pt := c.Target.Point
		if pt.Lat < -90 || pt.Lat > 90 {
			errs = append(errs, fmt.Sprintf("TARGET_LAT must be within [-90, 90], got %v", pt.Lat))
		}
		if pt.Lon < -180 || pt.Lon > 180 {
			errs = append(errs, fmt.Sprintf("TARGET_LON must be within [-180, 180], got %v", pt.Lon))
		}
	} else if c.GeocoderKey == "" {
		errs = append(errs, "GEOCODER_API_KEY is required to geocode TARGET_CITY/TARGET_STATE/TARGET_COUNTRY")
	}
	if c.Target.RadiusKm <= 0 {
		errs = append(errs, "RADIUS_KM must be positive")
	}
	if c.ImageResolution <= 0 {
		errs = append(errs, "IMAGE_RESOLUTION must be positive")
	}
	if c.ImageDir == "" {
		errs = append(errs, "IMAGE_DIR is required")
	}
	if c.SampleInterval < time.Minute {
		errs = append(errs, "SAMPLE_INTERVAL must be at least 1m")
	}
	if c.PublishDelay < 0 {
		errs = append(errs, "PUBLISH_DELAY must not be negative")
	}
	if c.MaxConcurrentSamples <= 0 {
		errs = append(errs, "MAX_CONCURRENT_SAMPLES must be positive")
	}
	if c.Sampler.HalfWidth < 0 {
		errs = append(errs, "WINDOW_HALF_WIDTH must not be negative")
	}
	if err := c.Projection.Validate(); err != nil {
		errs = append(errs, "satellite projection: "+err.Error())
	}
	if len(c.DisplayHours) == 0 {
		errs = append(errs, "DISPLAY_HOURS must list at least one hour")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}

// parser collects every invalid key instead of stopping at the first.
type parser struct {
	errs []string
}

func (p *parser) fail(key, val string, err error) {
	p.errs = append(p.errs, fmt.Sprintf("invalid %s %q: %v", key, val, err))
}

func (p *parser) err() error {
	if len(p.errs) == 0 {
		return nil
	}
	return fmt.Errorf("config: %s", strings.Join(p.errs, "; "))
}

func (p *parser) float(key, val string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
	if err != nil {
		p.fail(key, val, err)
	}
	return f
}

func (p *parser) int(key, val string) int {
	n, err := strconv.Atoi(strings.TrimSpace(val))
	if err != nil {
		p.fail(key, val, err)
	}
	return n
}

func (p *parser) intRange(key, val string, lo, hi int) int {
	n := p.int(key, val)
	if n < lo || n > hi {
		p.fail(key, val, fmt.Errorf("must be within [%d, %d]", lo, hi))
		return lo
	}
	return n
}

func (p *parser) bool(key, val string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(val))
	if err != nil {
		p.fail(key, val, err)
	}
	return b
}

func (p *parser) duration(key, val string) time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(val))
	if err != nil {
		p.fail(key, val, err)
	}
	return d
}

// hours parses a comma separated list of hours of day.
func (p *parser) hours(key, val string) []int {
	hours, err := ParseHours(val)
	if err != nil {
		p.fail(key, val, err)
	}
	return hours
}

// ParseHours parses "0,12,18" into distinct hours of day, keeping their order.
func ParseHours(s string) ([]int, error) {
	var hours []int
	seen := make(map[int]bool)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		h, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("hour %q is not a number", part)
		}
		if h < 0 || h > 23 {
			return nil, fmt.Errorf("hour %d out of range 0-23", h)
		}
		if !seen[h] {
			seen[h] = true
			hours = append(hours, h)
		}
	}
	return hours, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

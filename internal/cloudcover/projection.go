package cloudcover

import (
	"fmt"
	"math"
)

// Sweep names the scanning axis of the geostationary instrument.
type Sweep string

const (
	SweepX Sweep = "x" // GOES
	SweepY Sweep = "y" // Meteosat
)

// Ellipsoid describes a reference ellipsoid. InverseFlattening 0 means a sphere.
type Ellipsoid struct {
	SemiMajor         float64 `json:"semiMajor"`
	InverseFlattening float64 `json:"inverseFlattening"`
}

// WGS84 is the EPSG:4326 reference ellipsoid.
var WGS84 = Ellipsoid{SemiMajor: 6378137.0, InverseFlattening: 298.257223563}

// Flattening returns f, or 0 for a sphere.
func (e Ellipsoid) Flattening() float64 {
	if e.InverseFlattening == 0 {
		return 0
	}
	return 1 / e.InverseFlattening
}

// SemiMinor returns b.
func (e Ellipsoid) SemiMinor() float64 {
	return e.SemiMajor * (1 - e.Flattening())
}

// ProjectionParams configures the geostationary view. The value is never mutated
// after construction.
type ProjectionParams struct {
	// Altitude of the satellite above the ellipsoid surface at the equator, meters.
	Altitude float64 `json:"altitude"`
	// SubSatelliteLon is the longitude the satellite hovers over, degrees.
	SubSatelliteLon float64   `json:"subSatelliteLon"`
	Sweep           Sweep     `json:"sweep"`
	Ellipsoid       Ellipsoid `json:"ellipsoid"`
	// HalfExtent is the planar distance from the image center to its edge,
	// meters. Zero means Altitude.
	HalfExtent float64 `json:"halfExtent,omitempty"`
}

// GOES16 returns the GOES-East full-disk parameters.
func GOES16() ProjectionParams {
	return ProjectionParams{
		Altitude:        35786023.0,
		SubSatelliteLon: -75.0,
		Sweep:           SweepX,
		Ellipsoid:       WGS84,
	}
}

// Validate checks the parameters describe a usable projection.
func (p ProjectionParams) Validate() error {
	switch {
	case !(p.Altitude > 0) || math.IsInf(p.Altitude, 0):
		return fmt.Errorf("altitude must be positive, got %v", p.Altitude)
	case p.SubSatelliteLon < -180 || p.SubSatelliteLon > 180 || math.IsNaN(p.SubSatelliteLon):
		return fmt.Errorf("sub-satellite longitude %v out of range", p.SubSatelliteLon)
	case p.Sweep != SweepX && p.Sweep != SweepY:
		return fmt.Errorf("sweep axis must be %q or %q, got %q", SweepX, SweepY, p.Sweep)
	case !(p.Ellipsoid.SemiMajor > 0):
		return fmt.Errorf("ellipsoid semi-major axis must be positive")
	case p.Ellipsoid.InverseFlattening < 0 || (p.Ellipsoid.InverseFlattening > 0 && p.Ellipsoid.InverseFlattening <= 1):
		return fmt.Errorf("ellipsoid inverse flattening %v invalid", p.Ellipsoid.InverseFlattening)
	case p.HalfExtent < 0:
		return fmt.Errorf("half extent must not be negative")
	}
	return nil
}

// Projector converts geodetic coordinates into geostationary planar and pixel
// coordinates. It is safe for concurrent use.
type Projector struct {
	params ProjectionParams

	a           float64 // semi-major axis
	radiusG     float64 // 1 + h/a
	radiusG1    float64 // h/a
	radiusP     float64 // b/a
	radiusP2    float64 // (b/a)^2
	radiusPInv2 float64
	lon0        float64 // radians
	halfExtent  float64
}

// NewProjector validates params and precomputes the projection constants.
func NewProjector(params ProjectionParams) (*Projector, error) {
	if err := params.Validate(); err != nil {
		return nil, &ProjectionError{Reason: err.Error()}
	}

	a := params.Ellipsoid.SemiMajor
	f := params.Ellipsoid.Flattening()
	es := 2*f - f*f

	p := &Projector{
		params:     params,
		a:          a,
		radiusG1:   params.Altitude / a,
		radiusP2:   1 - es,
		lon0:       params.SubSatelliteLon * math.Pi / 180,
		halfExtent: params.HalfExtent,
	}
	p.radiusG = 1 + p.radiusG1
	p.radiusP = math.Sqrt(p.radiusP2)
	p.radiusPInv2 = 1 / p.radiusP2
	if p.halfExtent == 0 {
		p.halfExtent = params.Altitude
	}
	return p, nil
}

// Params returns the projection configuration.
func (p *Projector) Params() ProjectionParams {
	return p.params
}

// Planar returns the projected (x, y) in meters relative to the sub-satellite
// point. Points hidden behind the limb return (+Inf, +Inf) with no error.
func (p *Projector) Planar(pt GeoPoint) (x, y float64, err error) {
	if err := checkGeoPoint(pt); err != nil {
		return 0, 0, err
	}

	lam := adjustLon(pt.Lon*math.Pi/180 - p.lon0)
	// Geodetic to geocentric latitude.
	phi := math.Atan(p.radiusP2 * math.Tan(pt.Lat*math.Pi/180))

	r := p.radiusP / math.Hypot(p.radiusP*math.Cos(phi), math.Sin(phi))
	vx := r * math.Cos(lam) * math.Cos(phi)
	vy := r * math.Sin(lam) * math.Cos(phi)
	vz := r * math.Sin(phi)

	tmp := p.radiusG - vx
	if tmp*vx-vy*vy-vz*vz*p.radiusPInv2 < 0 {
		return math.Inf(1), math.Inf(1), nil
	}

	if p.params.Sweep == SweepX {
		x = p.radiusG1 * math.Atan(vy/math.Hypot(vz, tmp))
		y = p.radiusG1 * math.Atan(vz/tmp)
	} else {
		x = p.radiusG1 * math.Atan(vy/tmp)
		y = p.radiusG1 * math.Atan(vz/math.Hypot(vy, tmp))
	}

	x *= p.a
	y *= p.a
	if math.IsNaN(x) || math.IsNaN(y) {
		return 0, 0, &ProjectionError{Point: pt, Reason: "transform did not converge"}
	}
	return x, y, nil
}

// Project maps pt into a width x height pixel grid spanning the projected disk
// symmetrically. The result is not clamped: callers must check bounds.
func (p *Projector) Project(pt GeoPoint, width, height int) (PixelCoordinate, error) {
	if width <= 0 || height <= 0 {
		return PixelCoordinate{}, &ProjectionError{
			Point:  pt,
			Reason: fmt.Sprintf("image dimensions must be positive, got %dx%d", width, height),
		}
	}

	x, y, err := p.Planar(pt)
	if err != nil {
		return PixelCoordinate{}, err
	}

	h := p.halfExtent
	return PixelCoordinate{
		X: pixelIndex((x + h) * float64(width) / (2 * h)),
		Y: pixelIndex((h - y) * float64(height) / (2 * h)),
	}, nil
}

func checkGeoPoint(pt GeoPoint) error {
	if math.IsNaN(pt.Lat) || pt.Lat < -90 || pt.Lat > 90 {
		return &ProjectionError{Point: pt, Reason: "latitude must be within [-90, 90]"}
	}
	if math.IsNaN(pt.Lon) || pt.Lon < -180 || pt.Lon > 180 {
		return &ProjectionError{Point: pt, Reason: "longitude must be within [-180, 180]"}
	}
	return nil
}

// adjustLon wraps a longitude in radians into [-pi, pi].
func adjustLon(lam float64) float64 {
	for lam > math.Pi {
		lam -= 2 * math.Pi
	}
	for lam < -math.Pi {
		lam += 2 * math.Pi
	}
	return lam
}

// pixelIndex floors v, saturating infinities to indices no image can contain.
func pixelIndex(v float64) int {
	switch {
	case v >= math.MaxInt32:
		return math.MaxInt32
	case v <= math.MinInt32:
		return math.MinInt32
	}
	return int(math.Floor(v))
}

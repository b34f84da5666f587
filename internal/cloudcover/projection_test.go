package cloudcover

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fullDisk = 21696

func newGOES16(t *testing.T) *Projector {
	t.Helper()
	p, err := NewProjector(GOES16())
	require.NoError(t, err)
	return p
}

func TestProject_SubSatellitePointIsCenter(t *testing.T) {
	p := newGOES16(t)

	for _, size := range []struct{ w, h int }{{fullDisk, fullDisk}, {101, 101}, {640, 480}, {1, 1}} {
		px, err := p.Project(GeoPoint{Lat: 0, Lon: -75}, size.w, size.h)
		require.NoError(t, err)
		assert.Equal(t, PixelCoordinate{X: size.w / 2, Y: size.h / 2}, px, "size %dx%d", size.w, size.h)
	}
}

func TestPlanar_MatchesGOESRReferenceScanAngles(t *testing.T) {
	// GOES-R product user guide worked example, radians of scan angle.
	p := newGOES16(t)
	x, y, err := p.Planar(GeoPoint{Lat: 33.846162, Lon: -84.690932})
	require.NoError(t, err)

	h := GOES16().Altitude
	assert.InDelta(t, -0.024052, x/h, 1e-6)
	assert.InDelta(t, 0.095340, y/h, 1e-6)
}

func TestProject_VisibleDiskStaysInBounds(t *testing.T) {
	p := newGOES16(t)

	points := []GeoPoint{
		{Lat: 48.5856, Lon: -68.1901},
		{Lat: 40, Lon: -100},
		{Lat: -30, Lon: -50},
		{Lat: 60, Lon: -75},
		{Lat: -60, Lon: -75},
		{Lat: 0, Lon: -140},
		{Lat: 0, Lon: -10},
		{Lat: 75, Lon: -75},
	}
	for _, pt := range points {
		for _, size := range []int{fullDisk, 1000, 11} {
			px, err := p.Project(pt, size, size)
			require.NoError(t, err)
			assert.True(t, px.In(size, size), "%s -> (%d,%d) in %d", pt, px.X, px.Y, size)
		}
	}
}

func TestProject_KnownPixels(t *testing.T) {
	p := newGOES16(t)

	tests := []struct {
		name string
		pt   GeoPoint
		want PixelCoordinate
	}{
		{"rimouski", GeoPoint{Lat: 48.5856, Lon: -68.1901}, PixelCoordinate{X: 10990, Y: 9494}},
		{"north of nadir", GeoPoint{Lat: 60, Lon: -75}, PixelCoordinate{X: 10848, Y: 9326}},
		{"south of nadir", GeoPoint{Lat: -60, Lon: -75}, PixelCoordinate{X: 10848, Y: 12369}},
		{"west on equator", GeoPoint{Lat: 0, Lon: -140}, PixelCoordinate{X: 9270, Y: 10848}},
		{"east on equator", GeoPoint{Lat: 0, Lon: -10}, PixelCoordinate{X: 12425, Y: 10848}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			px, err := p.Project(tt.pt, fullDisk, fullDisk)
			require.NoError(t, err)
			assert.Equal(t, tt.want, px)
		})
	}
}

func TestProject_BeyondLimbReturnsOutOfGridValue(t *testing.T) {
	p := newGOES16(t)

	for _, pt := range []GeoPoint{{Lat: 89, Lon: 179}, {Lat: 0, Lon: 105}} {
		x, y, err := p.Planar(pt)
		require.NoError(t, err)
		assert.True(t, math.IsInf(x, 1))
		assert.True(t, math.IsInf(y, 1))

		px, err := p.Project(pt, fullDisk, fullDisk)
		require.NoError(t, err)
		assert.False(t, px.In(fullDisk, fullDisk))
	}
}

func TestProject_PreconditionViolations(t *testing.T) {
	p := newGOES16(t)

	tests := []struct {
		name string
		pt   GeoPoint
		w, h int
	}{
		{"lat too high", GeoPoint{Lat: 91, Lon: 0}, 10, 10},
		{"lat too low", GeoPoint{Lat: -90.5, Lon: 0}, 10, 10},
		{"lon too high", GeoPoint{Lat: 0, Lon: 181}, 10, 10},
		{"nan lat", GeoPoint{Lat: math.NaN(), Lon: 0}, 10, 10},
		{"zero width", GeoPoint{Lat: 0, Lon: -75}, 0, 10},
		{"negative height", GeoPoint{Lat: 0, Lon: -75}, 10, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Project(tt.pt, tt.w, tt.h)
			var projErr *ProjectionError
			require.True(t, errors.As(err, &projErr), "got %v", err)
		})
	}
}

func TestNewProjector_InvalidParams(t *testing.T) {
	mutations := map[string]func(*ProjectionParams){
		"zero altitude":    func(p *ProjectionParams) { p.Altitude = 0 },
		"bad sweep":        func(p *ProjectionParams) { p.Sweep = "z" },
		"bad longitude":    func(p *ProjectionParams) { p.SubSatelliteLon = 200 },
		"no ellipsoid":     func(p *ProjectionParams) { p.Ellipsoid = Ellipsoid{} },
		"negative extent":  func(p *ProjectionParams) { p.HalfExtent = -1 },
		"flattening above": func(p *ProjectionParams) { p.Ellipsoid.InverseFlattening = 0.5 },
	}
	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			params := GOES16()
			mutate(&params)
			_, err := NewProjector(params)
			var projErr *ProjectionError
			assert.True(t, errors.As(err, &projErr), "got %v", err)
		})
	}
}

func TestProject_SweepAxesAgreeOnAxes(t *testing.T) {
	x, err := NewProjector(GOES16())
	require.NoError(t, err)
	params := GOES16()
	params.Sweep = SweepY
	y, err := NewProjector(params)
	require.NoError(t, err)

	// Along the equator and the sub-satellite meridian both sweeps coincide.
	for _, pt := range []GeoPoint{{Lat: 0, Lon: -120}, {Lat: 45, Lon: -75}} {
		px, py, err := x.Planar(pt)
		require.NoError(t, err)
		qx, qy, err := y.Planar(pt)
		require.NoError(t, err)
		assert.InDelta(t, px, qx, 1e-6)
		assert.InDelta(t, py, qy, 1e-6)
	}

	// Off-axis they differ.
	px, _, err := x.Planar(GeoPoint{Lat: 45, Lon: -30})
	require.NoError(t, err)
	qx, _, err := y.Planar(GeoPoint{Lat: 45, Lon: -30})
	require.NoError(t, err)
	assert.NotEqual(t, px, qx)
}

func TestProject_HalfExtentRescalesGrid(t *testing.T) {
	params := GOES16()
	params.HalfExtent = params.Altitude * 0.151872
	p, err := NewProjector(params)
	require.NoError(t, err)

	px, err := p.Project(GeoPoint{Lat: 0, Lon: -10}, fullDisk, fullDisk)
	require.NoError(t, err)
	// The limb sits close to the right edge once the grid spans only the disk.
	assert.Greater(t, px.X, fullDisk*9/10)
	assert.Less(t, px.X, fullDisk)
}

func TestProject_EastWestSymmetry(t *testing.T) {
	p := newGOES16(t)

	west, _, err := p.Planar(GeoPoint{Lat: 20, Lon: -95})
	require.NoError(t, err)
	east, _, err := p.Planar(GeoPoint{Lat: 20, Lon: -55})
	require.NoError(t, err)
	assert.InDelta(t, -west, east, 1e-6)
}

package cloudcover

import (
	"fmt"
	"math"

	"github.com/twpayne/go-geom"
)

const (
	bearingNorth = 0.0
	bearingEast  = 90.0
	bearingSouth = 180.0
	bearingWest  = 270.0

	vincentyMaxIter = 200
)

// BoundingBoxAround walks radiusKm along geodesics due west/east and
// south/north of pt on the WGS84 ellipsoid.
func BoundingBoxAround(pt GeoPoint, radiusKm float64) (BoundingBox, error) {
	if err := checkGeoPoint(pt); err != nil {
		return BoundingBox{}, err
	}
	if !(radiusKm > 0) || math.IsInf(radiusKm, 0) {
		return BoundingBox{}, fmt.Errorf("radius must be positive, got %v km", radiusKm)
	}

	meters := radiusKm * 1000
	var out [4]GeoPoint
	for i, bearing := range []float64{bearingWest, bearingEast, bearingSouth, bearingNorth} {
		p, err := Destination(WGS84, pt, bearing, meters)
		if err != nil {
			return BoundingBox{}, err
		}
		out[i] = p
	}

	return BoundingBox{
		LonMin: out[0].Lon,
		LonMax: out[1].Lon,
		LatMin: out[2].Lat,
		LatMax: out[3].Lat,
	}, nil
}

// Destination solves the direct geodesic problem (Vincenty, 1975): the point
// reached from start after meters along the initial bearing in degrees.
func Destination(e Ellipsoid, start GeoPoint, bearingDeg, meters float64) (GeoPoint, error) {
	a := e.SemiMajor
	f := e.Flattening()
	b := e.SemiMinor()

	alpha1 := bearingDeg * math.Pi / 180
	sinAlpha1, cosAlpha1 := math.Sincos(alpha1)

	tanU1 := (1 - f) * math.Tan(start.Lat*math.Pi/180)
	cosU1 := 1 / math.Sqrt(1+tanU1*tanU1)
	sinU1 := tanU1 * cosU1

	sigma1 := math.Atan2(tanU1, cosAlpha1)
	sinAlpha := cosU1 * sinAlpha1
	cosSqAlpha := 1 - sinAlpha*sinAlpha
	uSq := cosSqAlpha * (a*a - b*b) / (b * b)
	bigA := 1 + uSq/16384*(4096+uSq*(-768+uSq*(320-175*uSq)))
	bigB := uSq / 1024 * (256 + uSq*(-128+uSq*(74-47*uSq)))

	sigma := meters / (b * bigA)
	var sinSigma, cosSigma, cos2SigmaM float64
	converged := false
	for i := 0; i < vincentyMaxIter; i++ {
		cos2SigmaM = math.Cos(2*sigma1 + sigma)
		sinSigma, cosSigma = math.Sincos(sigma)
		deltaSigma := bigB * sinSigma * (cos2SigmaM + bigB/4*(cosSigma*(-1+2*cos2SigmaM*cos2SigmaM)-
			bigB/6*cos2SigmaM*(-3+4*sinSigma*sinSigma)*(-3+4*cos2SigmaM*cos2SigmaM)))
		next := meters/(b*bigA) + deltaSigma
		if math.Abs(next-sigma) < 1e-12 {
			sigma = next
			converged = true
			break
		}
		sigma = next
	}
	if !converged {
		return GeoPoint{}, &ProjectionError{Point: start, Reason: "geodesic did not converge"}
	}
	sinSigma, cosSigma = math.Sincos(sigma)
	cos2SigmaM = math.Cos(2*sigma1 + sigma)

	tmp := sinU1*sinSigma - cosU1*cosSigma*cosAlpha1
	lat2 := math.Atan2(sinU1*cosSigma+cosU1*sinSigma*cosAlpha1, (1-f)*math.Sqrt(sinAlpha*sinAlpha+tmp*tmp))
	lambda := math.Atan2(sinSigma*sinAlpha1, cosU1*cosSigma-sinU1*sinSigma*cosAlpha1)
	c := f / 16 * cosSqAlpha * (4 + f*(4-3*cosSqAlpha))
	l := lambda - (1-c)*f*sinAlpha*(sigma+c*sinSigma*(cos2SigmaM+c*cosSigma*(-1+2*cos2SigmaM*cos2SigmaM)))

	lon2 := adjustLon(start.Lon*math.Pi/180 + l)
	return GeoPoint{Lat: lat2 * 180 / math.Pi, Lon: lon2 * 180 / math.Pi}, nil
}

// Polygon returns the box as a closed SRID 4326 lon/lat ring.
func (b BoundingBox) Polygon() *geom.Polygon {
	return geom.NewBounds(geom.XY).
		Set(b.LonMin, b.LatMin, b.LonMax, b.LatMax).
		Polygon().
		SetSRID(4326)
}

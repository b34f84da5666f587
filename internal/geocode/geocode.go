package geocode

import (
	"context"
	"errors"
	"fmt"

	"github.com/kelvins/geocoder"
	"github.com/rotisserie/eris"

	"github.com/i474232898/cloud-cover-estimation/internal/cloudcover"
)

// LookupFunc resolves an address through the Google Geocoding API.
type LookupFunc func(addr geocoder.Address) (geocoder.Location, error)

// Resolver turns a place name into the tracked GeoPoint.
type Resolver struct {
	lookup LookupFunc
}

// NewResolver creates a Resolver using the Google Geocoding API key.
func NewResolver(apiKey string) *Resolver {
	geocoder.ApiKey = apiKey
	return &Resolver{lookup: geocoder.Geocoding}
}

// NewResolverWithLookup creates a Resolver around a custom lookup.
func NewResolverWithLookup(lookup LookupFunc) *Resolver {
	return &Resolver{lookup: lookup}
}

// Resolve geocodes city/state/country.
func (r *Resolver) Resolve(ctx context.Context, city, state, country string) (cloudcover.GeoPoint, error) {
	if city == "" && country == "" {
		return cloudcover.GeoPoint{}, errors.New("geocode: city or country is required")
	}
	if err := ctx.Err(); err != nil {
		return cloudcover.GeoPoint{}, err
	}

	loc, err := r.lookup(geocoder.Address{
		City:    city,
		State:   state,
		Country: country,
	})
	if err != nil {
		return cloudcover.GeoPoint{}, eris.Wrapf(err, "geocode: resolve %s", describe(city, state, country))
	}

	pt := cloudcover.GeoPoint{Lat: loc.Latitude, Lon: loc.Longitude}
	if pt.Lat < -90 || pt.Lat > 90 || pt.Lon < -180 || pt.Lon > 180 {
		return cloudcover.GeoPoint{}, fmt.Errorf("geocode: %s resolved to invalid point %s", describe(city, state, country), pt)
	}
	return pt, nil
}

func describe(city, state, country string) string {
	s := city
	for _, part := range []string{state, country} {
		if part == "" {
			continue
		}
		if s != "" {
			s += ", "
		}
		s += part
	}
	return s
}

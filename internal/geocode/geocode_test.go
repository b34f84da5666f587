package geocode

import (
	"context"
	"errors"
	"testing"

	"github.com/kelvins/geocoder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/cloud-cover-estimation/internal/cloudcover"
)

func TestResolve(t *testing.T) {
	var got geocoder.Address
	r := NewResolverWithLookup(func(addr geocoder.Address) (geocoder.Location, error) {
		got = addr
		return geocoder.Location{Latitude: 48.4489, Longitude: -68.5236}, nil
	})

	pt, err := r.Resolve(context.Background(), "Rimouski", "QC", "Canada")
	require.NoError(t, err)
	assert.Equal(t, cloudcover.GeoPoint{Lat: 48.4489, Lon: -68.5236}, pt)
	assert.Equal(t, geocoder.Address{City: "Rimouski", State: "QC", Country: "Canada"}, got)
}

func TestResolve_Errors(t *testing.T) {
	boom := errors.New("quota exceeded")
	failing := NewResolverWithLookup(func(geocoder.Address) (geocoder.Location, error) {
		return geocoder.Location{}, boom
	})
	_, err := failing.Resolve(context.Background(), "Rimouski", "", "Canada")
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "Rimouski, Canada")

	_, err = failing.Resolve(context.Background(), "", "QC", "")
	assert.Error(t, err)

	bogus := NewResolverWithLookup(func(geocoder.Address) (geocoder.Location, error) {
		return geocoder.Location{Latitude: 120}, nil
	})
	_, err = bogus.Resolve(context.Background(), "Nowhere", "", "")
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = bogus.Resolve(ctx, "Nowhere", "", "")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "Rimouski, QC, Canada", describe("Rimouski", "QC", "Canada"))
	assert.Equal(t, "QC, Canada", describe("", "QC", "Canada"))
	assert.Equal(t, "Rimouski", describe("Rimouski", "", ""))
}

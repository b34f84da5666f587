package cloudcover

import (
	"context"
	"time"
)

// ImageSource resolves the full-disk image for a slot to a local file path.
type ImageSource interface {
	Name() string
	Fetch(ctx context.Context, slot Slot) (string, error)
}

// Store is the contract the in-memory store (and any future persistent store) must satisfy.
type Store interface {
	SaveSample(sample CloudCoverSample)
	GetLatest() (CloudCoverSample, error)
	GetDay(day time.Time) ([]CloudCoverSample, error)
	Days() []time.Time
}

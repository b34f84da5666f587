package imagery

import (
	"context"
	"os"

	"github.com/i474232898/cloud-cover-estimation/internal/cloudcover"
)

// DirSource implements cloudcover.ImageSource over images already placed in a
// Layout by some other process. It never touches the network.
type DirSource struct {
	layout Layout
}

func NewDirSource(layout Layout) *DirSource {
	return &DirSource{layout: layout}
}

func (s *DirSource) Name() string {
	return "dir"
}

func (s *DirSource) Fetch(ctx context.Context, slot cloudcover.Slot) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	path := s.layout.Path(slot)
	if !fileExists(path) {
		return "", &cloudcover.ImageLoadError{Path: path, Err: os.ErrNotExist}
	}
	return path, nil
}

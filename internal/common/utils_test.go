package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasAny(t *testing.T) {
	assert.True(t, HasAny("Image/JPEG; charset=binary", "image/jpeg"))
	assert.True(t, HasAny("application/octet-stream", "image/png", "application/octet-stream"))
	assert.False(t, HasAny("text/html", "image/jpeg", "image/png"))
	assert.False(t, HasAny("image/jpeg"))
}

package cloudcover

import (
	"image"
	"image/color"
	_ "image/jpeg" // GEOCOLOR products are published as JPEG
	_ "image/png"
	"os"

	"github.com/rotisserie/eris"
)

// Raster is a single-channel intensity grid (0-255).
// *image.Gray satisfies it directly.
type Raster interface {
	Bounds() image.Rectangle
	GrayAt(x, y int) color.Gray
}

// grayView exposes any decoded image through its ITU-R 601 luma, converting
// lazily so only the sampled window is ever touched.
type grayView struct {
	image.Image
}

func (g grayView) GrayAt(x, y int) color.Gray {
	return color.GrayModel.Convert(g.At(x, y)).(color.Gray)
}

// AsRaster wraps img as a Raster without copying pixels.
func AsRaster(img image.Image) Raster {
	if r, ok := img.(Raster); ok {
		return r
	}
	return grayView{img}
}

// LoadRaster decodes the image at path. Every failure is an *ImageLoadError.
func LoadRaster(path string) (Raster, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &ImageLoadError{Path: path, Err: err}
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, &ImageLoadError{Path: path, Err: eris.Wrap(err, "decode")}
	}
	if b := img.Bounds(); b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, &ImageLoadError{Path: path, Err: eris.New("empty image")}
	}
	return AsRaster(img), nil
}

package asset

import (
	"errors"
	"fmt"
	"image"
	"io/fs"

	"github.com/KlishchD/EdEngine-sub000/common"
	"github.com/anthonynsimon/bild/imgio"
	"github.com/anthonynsimon/bild/transform"
	"github.com/chewxy/math32"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// DefaultMaxTextureSize is the largest edge an imported texture keeps.
const DefaultMaxTextureSize = 4096

// Image is decoded texture data: linear RGBA, row 0 at the top.
type Image struct {
	Size   common.Size
	Pixels []common.Vec4
}

// ReadImage decodes a png, jpeg, bmp, tiff or webp file. Images with an edge longer than
// maxEdge are scaled down to fit, keeping the aspect ratio.
func ReadImage(path string, maxEdge int) (Image, error) {
	img, err := imgio.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Image{}, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return Image{}, fmt.Errorf("asset: decode %s: %w", path, err)
	}
	return FromImage(img, maxEdge), nil
}

// FromImage converts an sRGB image into linear texture data, downscaling it to maxEdge.
func FromImage(img image.Image, maxEdge int) Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if maxEdge > 0 && (w > maxEdge || h > maxEdge) {
		scale := float32(maxEdge) / float32(max(w, h))
		w = max(1, int(float32(w)*scale))
		h = max(1, int(float32(h)*scale))
		img = transform.Resize(img, w, h, transform.Linear)
		b = img.Bounds()
	}

	out := Image{Size: common.Size{Width: w, Height: h}, Pixels: make([]common.Vec4, w*h)}
	for y := range h {
		for x := range w {
			r, g, bl, a := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			if a == 0 {
				continue
			}
			// RGBA is alpha premultiplied.
			out.Pixels[y*w+x] = common.Vec4{
				srgbToLinear(uint8(r * 0xff / a)),
				srgbToLinear(uint8(g * 0xff / a)),
				srgbToLinear(uint8(bl * 0xff / a)),
				float32(a) / 0xffff,
			}
		}
	}
	return out
}

func srgbToLinear(c uint8) float32 {
	v := float32(c) / 255
	if v <= 0.04045 {
		return v / 12.92
	}
	return math32.Pow((v+0.055)/1.055, 2.4)
}

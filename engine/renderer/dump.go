package renderer

import (
	"fmt"
	"image"
	"image/color"
	"path/filepath"
	"strings"

	"github.com/KlishchD/EdEngine-sub000/common"
	"github.com/KlishchD/EdEngine-sub000/engine/renderer/backend"
	"github.com/KlishchD/EdEngine-sub000/engine/renderer/target"
	"github.com/anthonynsimon/bild/imgio"
)

func (r *renderer) DumpRenderTarget(t target.RenderTarget, path string) error {
	encoder, err := encoderFor(path)
	if err != nil {
		return err
	}
	tex := r.GetRenderTarget(t)
	pixels, err := r.ctx.ReadTexture(tex, 0)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", t, err)
	}
	img := ToImage(pixels, tex.Size(), tex.Format() == backend.FormatDepth32F)
	if err := imgio.Save(path, img, encoder); err != nil {
		return fmt.Errorf("failed to write %s to %s: %w", t, path, err)
	}
	return nil
}

func encoderFor(path string) (imgio.Encoder, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return imgio.PNGEncoder(), nil
	case ".jpg", ".jpeg":
		return imgio.JPEGEncoder(95), nil
	case ".bmp":
		return imgio.BMPEncoder(), nil
	}
	return nil, fmt.Errorf("renderer: unsupported dump format %q", filepath.Ext(path))
}

// ToImage converts texture pixels to an 8-bit image, clamping each channel to [0, 1].
// Depth pixels are written as gray.
//
// Parameters:
//   - pixels: row-major pixels, row 0 at the top
//   - size: the texture size
//   - depth: whether the pixels hold depth in the red channel
//
// Returns:
//   - *image.NRGBA: the converted image
func ToImage(pixels []common.Vec4, size common.Size, depth bool) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, size.Width, size.Height))
	for y := range size.Height {
		for x := range size.Width {
			i := y*size.Width + x
			if i >= len(pixels) {
				return img
			}
			p := pixels[i]
			if depth {
				p = common.Vec4{p[0], p[0], p[0], 1}
			}
			img.SetNRGBA(x, y, color.NRGBA{R: unorm(p[0]), G: unorm(p[1]), B: unorm(p[2]), A: unorm(p[3])})
		}
	}
	return img
}

func unorm(v float32) uint8 {
	if v != v {
		return 0
	}
	return uint8(common.Saturate(v)*255 + 0.5)
}

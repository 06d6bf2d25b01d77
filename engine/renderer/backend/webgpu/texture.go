package webgpu

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/KlishchD/EdEngine-sub000/common"
	"github.com/KlishchD/EdEngine-sub000/engine/renderer/backend"
	"github.com/chewxy/math32"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/x448/float16"
)

// Row pitch alignment of texture to buffer copies.
const copyPitchAlignment = 256

type texture struct {
	desc     backend.TextureDescriptor
	texture  *wgpu.Texture
	view     *wgpu.TextureView
	layers   []*wgpu.TextureView
	released bool
}

func (t *texture) Descriptor() backend.TextureDescriptor { return t.desc }

// layerView returns the single-layer view used as a render attachment.
func (t *texture) layerView(layer int) (*wgpu.TextureView, error) {
	if t.released {
		return nil, fmt.Errorf("texture %q: %w", t.desc.Label, backend.ErrReleased)
	}
	if layer < 0 || layer >= len(t.layers) {
		return nil, fmt.Errorf("texture %q: layer %d out of range [0, %d)", t.desc.Label, layer, len(t.layers))
	}
	return t.layers[layer], nil
}

func (t *texture) release() {
	if t.released {
		return
	}
	t.released = true
	t.Release()
}

// Release frees the GPU objects. It is also how deferred releases reach the frame garbage.
func (t *texture) Release() {
	for _, v := range t.layers {
		v.Release()
	}
	t.layers = nil
	if t.view != nil {
		t.view.Release()
		t.view = nil
	}
	if t.texture != nil {
		t.texture.Release()
		t.texture = nil
	}
}

func asTexture(t backend.Texture) (*texture, error) {
	tex, ok := t.(*texture)
	if !ok || tex == nil {
		return nil, fmt.Errorf("webgpu: foreign or nil texture %T", t)
	}
	if tex.released {
		return nil, fmt.Errorf("texture %q: %w", tex.desc.Label, backend.ErrReleased)
	}
	return tex, nil
}

func (d *device) CreateTexture(desc backend.TextureDescriptor) (backend.Texture, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.createTexture(desc)
}

func (d *device) createTexture(desc backend.TextureDescriptor) (*texture, error) {
	usage := wgpu.TextureUsageTextureBinding | wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageCopySrc
	if !desc.Format.IsDepth() {
		usage |= wgpu.TextureUsageCopyDst
	}
	if desc.Storage {
		usage |= wgpu.TextureUsageStorageBinding
	}
	layers := desc.LayerCount()

	gpuTexture, err := d.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:     desc.Label,
		Usage:     usage,
		Dimension: wgpu.TextureDimension2D,
		Size: wgpu.Extent3D{
			Width:              uint32(desc.Width),
			Height:             uint32(desc.Height),
			DepthOrArrayLayers: uint32(layers),
		},
		Format:        textureFormat(desc.Format),
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return nil, fmt.Errorf("webgpu: create texture %q: %w", desc.Label, err)
	}

	t := &texture{desc: desc, texture: gpuTexture}
	t.view, err = gpuTexture.CreateView(&wgpu.TextureViewDescriptor{
		Label:           desc.Label,
		Format:          textureFormat(desc.Format),
		Dimension:       viewDimension(desc.Dimension),
		MipLevelCount:   1,
		ArrayLayerCount: uint32(layers),
		Aspect:          wgpu.TextureAspectAll,
	})
	if err != nil {
		t.release()
		return nil, fmt.Errorf("webgpu: create view of %q: %w", desc.Label, err)
	}
	for i := 0; i < layers; i++ {
		view, err := gpuTexture.CreateView(&wgpu.TextureViewDescriptor{
			Label:           fmt.Sprintf("%s[%d]", desc.Label, i),
			Format:          textureFormat(desc.Format),
			Dimension:       wgpu.TextureViewDimension2D,
			MipLevelCount:   1,
			BaseArrayLayer:  uint32(i),
			ArrayLayerCount: 1,
			Aspect:          wgpu.TextureAspectAll,
		})
		if err != nil {
			t.release()
			return nil, fmt.Errorf("webgpu: create layer view %d of %q: %w", i, desc.Label, err)
		}
		t.layers = append(t.layers, view)
	}
	return t, nil
}

func (d *device) WriteTexture(t backend.Texture, layer int, pixels []common.Vec4) error {
	tex, err := asTexture(t)
	if err != nil {
		return err
	}
	if _, err := tex.layerView(layer); err != nil {
		return err
	}
	if tex.desc.Format.IsDepth() {
		return fmt.Errorf("webgpu: write depth texture %q: %w", tex.desc.Label, backend.ErrUnsupported)
	}
	if len(pixels) != tex.desc.Width*tex.desc.Height {
		return fmt.Errorf("texture %q: got %d pixels, want %d", tex.desc.Label, len(pixels), tex.desc.Width*tex.desc.Height)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.flush(); err != nil {
		return err
	}

	data := encodeTexels(tex.desc.Format, pixels)
	width, height := uint32(tex.desc.Width), uint32(tex.desc.Height)
	d.queue.WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture:  tex.texture,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{Z: uint32(layer)},
			Aspect:   wgpu.TextureAspectAll,
		},
		data,
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  width * uint32(texelSize(tex.desc.Format)),
			RowsPerImage: height,
		},
		&wgpu.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1},
	)
	return nil
}

// ReadTexture copies one layer into a mapped buffer and waits for the device.
func (d *device) ReadTexture(t backend.Texture, layer int) ([]common.Vec4, error) {
	tex, err := asTexture(t)
	if err != nil {
		return nil, err
	}
	if _, err := tex.layerView(layer); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pass != nil {
		return nil, fmt.Errorf("webgpu: read texture %q inside render pass %q", tex.desc.Label, d.passDesc.Label)
	}
	if err := d.flush(); err != nil {
		return nil, err
	}

	texel := texelSize(tex.desc.Format)
	pitch := alignUp(tex.desc.Width*texel, copyPitchAlignment)
	size := uint64(pitch * tex.desc.Height)
	readback, err := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: tex.desc.Label + " Readback",
		Size:  size,
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("webgpu: readback buffer: %w", err)
	}
	defer readback.Release()

	encoder, err := d.device.CreateCommandEncoder(nil)
	if err != nil {
		return nil, err
	}
	aspect := wgpu.TextureAspectAll
	if tex.desc.Format.IsDepth() {
		aspect = wgpu.TextureAspectDepthOnly
	}
	encoder.CopyTextureToBuffer(
		&wgpu.ImageCopyTexture{
			Texture:  tex.texture,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{Z: uint32(layer)},
			Aspect:   aspect,
		},
		&wgpu.ImageCopyBuffer{
			Layout: wgpu.TextureDataLayout{
				Offset:       0,
				BytesPerRow:  uint32(pitch),
				RowsPerImage: uint32(tex.desc.Height),
			},
			Buffer: readback,
		},
		&wgpu.Extent3D{Width: uint32(tex.desc.Width), Height: uint32(tex.desc.Height), DepthOrArrayLayers: 1},
	)
	cmd, err := encoder.Finish(nil)
	encoder.Release()
	if err != nil {
		return nil, fmt.Errorf("webgpu: readback of %q: %w", tex.desc.Label, err)
	}
	d.queue.Submit(cmd)
	cmd.Release()

	var status wgpu.BufferMapAsyncStatus
	err = readback.MapAsync(wgpu.MapModeRead, 0, size, func(s wgpu.BufferMapAsyncStatus) {
		status = s
	})
	if err != nil {
		return nil, fmt.Errorf("webgpu: map readback of %q: %w", tex.desc.Label, err)
	}
	d.device.Poll(true, nil)
	if status != wgpu.BufferMapAsyncStatusSuccess {
		return nil, fmt.Errorf("webgpu: map readback of %q failed with status %v", tex.desc.Label, status)
	}
	data := readback.GetMappedRange(0, uint(size))
	out := decodeTexels(tex.desc.Format, data, tex.desc.Width, tex.desc.Height, pitch)
	readback.Unmap()
	return out, nil
}

func (d *device) ReleaseTexture(t backend.Texture) {
	tex, ok := t.(*texture)
	if !ok || tex == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if tex.released {
		return
	}
	if d.encoder != nil {
		// Work recorded this frame may still reference it.
		tex.released = true
		d.garbage = append(d.garbage, tex)
		return
	}
	tex.release()
}

// textureFormat maps a backend format to its WebGPU equivalent.
func textureFormat(f backend.Format) wgpu.TextureFormat {
	switch f {
	case backend.FormatRGBA8:
		return wgpu.TextureFormatRGBA8Unorm
	case backend.FormatRGBA8Srgb:
		return wgpu.TextureFormatRGBA8UnormSrgb
	case backend.FormatRGBA16F:
		return wgpu.TextureFormatRGBA16Float
	case backend.FormatRGBA32F:
		return wgpu.TextureFormatRGBA32Float
	case backend.FormatRG16F:
		return wgpu.TextureFormatRG16Float
	case backend.FormatR32F:
		return wgpu.TextureFormatR32Float
	case backend.FormatDepth32F:
		return wgpu.TextureFormatDepth32Float
	}
	panic(fmt.Sprintf("webgpu: unknown format %v", f))
}

func viewDimension(d backend.Dimension) wgpu.TextureViewDimension {
	switch d {
	case backend.DimensionCube:
		return wgpu.TextureViewDimensionCube
	case backend.Dimension2DArray:
		return wgpu.TextureViewDimension2DArray
	}
	return wgpu.TextureViewDimension2D
}

// texelSize is the byte size of one texel.
func texelSize(f backend.Format) int {
	switch f {
	case backend.FormatRGBA16F:
		return 8
	case backend.FormatRGBA32F:
		return 16
	}
	return 4
}

func alignUp(n, align int) int {
	return (n + align - 1) / align * align
}

// encodeTexels packs row-major values into the byte layout of f.
func encodeTexels(f backend.Format, pixels []common.Vec4) []byte {
	size := texelSize(f)
	out := make([]byte, len(pixels)*size)
	for i, p := range pixels {
		putTexel(f, out[i*size:], p)
	}
	return out
}

func putTexel(f backend.Format, dst []byte, v common.Vec4) {
	le := binary.LittleEndian
	switch f {
	case backend.FormatRGBA8:
		for c := 0; c < 4; c++ {
			dst[c] = unorm8(v[c])
		}
	case backend.FormatRGBA8Srgb:
		for c := 0; c < 3; c++ {
			dst[c] = unorm8(linearToSrgb(v[c]))
		}
		dst[3] = unorm8(v[3])
	case backend.FormatRGBA16F:
		for c := 0; c < 4; c++ {
			le.PutUint16(dst[c*2:], float16.Fromfloat32(v[c]).Bits())
		}
	case backend.FormatRG16F:
		le.PutUint16(dst, float16.Fromfloat32(v[0]).Bits())
		le.PutUint16(dst[2:], float16.Fromfloat32(v[1]).Bits())
	case backend.FormatRGBA32F:
		for c := 0; c < 4; c++ {
			le.PutUint32(dst[c*4:], math.Float32bits(v[c]))
		}
	case backend.FormatR32F, backend.FormatDepth32F:
		le.PutUint32(dst, math.Float32bits(v[0]))
	}
}

// decodeTexels unpacks rows of pitch bytes into values; channels a format lacks read as
// 0, with alpha 1.
func decodeTexels(f backend.Format, data []byte, width, height, pitch int) []common.Vec4 {
	le := binary.LittleEndian
	size := texelSize(f)
	out := make([]common.Vec4, 0, width*height)
	for y := 0; y < height; y++ {
		row := data[y*pitch:]
		for x := 0; x < width; x++ {
			src := row[x*size:]
			var v common.Vec4
			switch f {
			case backend.FormatRGBA8:
				for c := 0; c < 4; c++ {
					v[c] = float32(src[c]) / 255
				}
			case backend.FormatRGBA8Srgb:
				for c := 0; c < 3; c++ {
					v[c] = srgbToLinear(float32(src[c]) / 255)
				}
				v[3] = float32(src[3]) / 255
			case backend.FormatRGBA16F:
				for c := 0; c < 4; c++ {
					v[c] = float16.Frombits(le.Uint16(src[c*2:])).Float32()
				}
			case backend.FormatRG16F:
				v = common.Vec4{
					float16.Frombits(le.Uint16(src)).Float32(),
					float16.Frombits(le.Uint16(src[2:])).Float32(),
					0, 1,
				}
			case backend.FormatRGBA32F:
				for c := 0; c < 4; c++ {
					v[c] = math.Float32frombits(le.Uint32(src[c*4:]))
				}
			case backend.FormatR32F, backend.FormatDepth32F:
				v = common.Vec4{math.Float32frombits(le.Uint32(src)), 0, 0, 1}
			}
			out = append(out, v)
		}
	}
	return out
}

func unorm8(x float32) byte {
	return byte(common.Saturate(x)*255 + 0.5)
}

func linearToSrgb(x float32) float32 {
	x = common.Saturate(x)
	if x <= 0.0031308 {
		return x * 12.92
	}
	return 1.055*math32.Pow(x, 1/2.4) - 0.055
}

func srgbToLinear(x float32) float32 {
	if x <= 0.04045 {
		return x / 12.92
	}
	return math32.Pow((x+0.055)/1.055, 2.4)
}

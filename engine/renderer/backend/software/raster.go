package software

import (
	"fmt"

	"github.com/KlishchD/EdEngine-sub000/common"
	"github.com/KlishchD/EdEngine-sub000/engine/renderer/backend"
	"github.com/chewxy/math32"
)

// clipVertex is a vertex kernel output in clip space.
type clipVertex struct {
	pos common.Vec4
	v   backend.Varyings
}

// screenVertex is a clipped vertex mapped to pixel coordinates.
type screenVertex struct {
	x, y, z float32
	invW    float32
	v       backend.Varyings
}

// triangle is a set-up screen space triangle ready for rasterization.
type triangle struct {
	v          [3]screenVertex
	front      bool
	minX, maxX int
	minY, maxY int
	area       float32
	topLeft    [3]bool
}

// assemble runs the vertex kernel, clips against the near and far planes and maps the
// resulting triangles to the pass target, dropping culled and degenerate ones.
func (d *device) assemble(prog *program, state any, call backend.DrawCall) ([]triangle, error) {
	var (
		verts   []common.Vertex
		indices []uint32
		count   int
	)
	if call.Vertices == nil {
		count = 3
	} else {
		vb, ok := call.Vertices.(*buffer)
		if !ok || vb == nil || vb.usage != backend.BufferVertex {
			return nil, fmt.Errorf("software: draw %q has an invalid vertex buffer", prog.name)
		}
		verts = vb.vertices
		count = len(verts)
	}
	if call.Indices != nil {
		ib, ok := call.Indices.(*buffer)
		if !ok || ib == nil || ib.usage != backend.BufferIndex {
			return nil, fmt.Errorf("software: draw %q has an invalid index buffer", prog.name)
		}
		indices = ib.indices
	}

	out := make([]clipVertex, count)
	for i := range out {
		var v common.Vertex
		if verts != nil {
			v = verts[i]
		}
		out[i].pos = prog.cpu.Vertex(state, i, v, &out[i].v)
	}

	n := count
	if indices != nil {
		n = len(indices)
	}
	size := d.pass.size
	tris := make([]triangle, 0, n/3)
	for i := 0; i+2 < n; i += 3 {
		var idx [3]int
		for k := range idx {
			if indices != nil {
				idx[k] = int(indices[i+k])
			} else {
				idx[k] = i + k
			}
			if idx[k] >= count {
				return nil, fmt.Errorf("software: draw %q index %d out of range %d", prog.name, idx[k], count)
			}
		}
		poly := clipPolygon([]clipVertex{out[idx[0]], out[idx[1]], out[idx[2]]})
		for k := 1; k+1 < len(poly); k++ {
			t, ok := setupTriangle(poly[0], poly[k], poly[k+1], size, call.State)
			if ok {
				tris = append(tris, t)
			}
		}
	}
	return tris, nil
}

// clipPolygon clips a triangle against 0 <= z <= w.
func clipPolygon(poly []clipVertex) []clipVertex {
	near := func(c clipVertex) float32 { return c.pos[2] }
	far := func(c clipVertex) float32 { return c.pos[3] - c.pos[2] }
	poly = clipPlane(poly, near)
	if len(poly) < 3 {
		return nil
	}
	return clipPlane(poly, far)
}

func clipPlane(in []clipVertex, dist func(clipVertex) float32) []clipVertex {
	out := make([]clipVertex, 0, len(in)+2)
	for i := range in {
		a, b := in[i], in[(i+1)%len(in)]
		da, db := dist(a), dist(b)
		if da >= 0 {
			out = append(out, a)
		}
		if (da >= 0) != (db >= 0) {
			t := da / (da - db)
			out = append(out, lerpClip(a, b, t))
		}
	}
	return out
}

func lerpClip(a, b clipVertex, t float32) clipVertex {
	var c clipVertex
	c.pos = a.pos.Lerp(b.pos, t)
	for i := range c.v {
		c.v[i] = a.v[i] + (b.v[i]-a.v[i])*t
	}
	return c
}

func setupTriangle(a, b, c clipVertex, size common.Size, st backend.PipelineState) (triangle, bool) {
	var t triangle
	for i, cv := range [3]clipVertex{a, b, c} {
		w := cv.pos[3]
		if w <= 0 {
			return t, false
		}
		inv := 1 / w
		t.v[i] = screenVertex{
			x:    (cv.pos[0]*inv + 1) * 0.5 * float32(size.Width),
			y:    (1 - cv.pos[1]*inv) * 0.5 * float32(size.Height),
			z:    cv.pos[2]*inv + st.DepthBias,
			invW: inv,
			v:    cv.v,
		}
	}

	v0, v1, v2 := t.v[0], t.v[1], t.v[2]
	t.area = (v1.x-v0.x)*(v2.y-v0.y) - (v2.x-v0.x)*(v1.y-v0.y)
	if t.area == 0 {
		return t, false
	}
	// Counter-clockwise in NDC is clockwise once y points down.
	t.front = t.area < 0
	switch st.Cull {
	case backend.CullBack:
		if !t.front {
			return t, false
		}
	case backend.CullFront:
		if t.front {
			return t, false
		}
	}
	if t.area < 0 {
		t.v[1], t.v[2] = t.v[2], t.v[1]
		t.area = -t.area
	}

	minX := math32.Min(v0.x, math32.Min(v1.x, v2.x))
	maxX := math32.Max(v0.x, math32.Max(v1.x, v2.x))
	minY := math32.Min(v0.y, math32.Min(v1.y, v2.y))
	maxY := math32.Max(v0.y, math32.Max(v1.y, v2.y))
	t.minX = clampInt(int(math32.Floor(minX)), 0, size.Width-1)
	t.maxX = clampInt(int(math32.Ceil(maxX)), 0, size.Width-1)
	t.minY = clampInt(int(math32.Floor(minY)), 0, size.Height-1)
	t.maxY = clampInt(int(math32.Ceil(maxY)), 0, size.Height-1)
	if maxX < 0 || maxY < 0 || minX > float32(size.Width) || minY > float32(size.Height) {
		return t, false
	}

	for e := 0; e < 3; e++ {
		p, q := t.v[(e+1)%3], t.v[(e+2)%3]
		dx, dy := q.x-p.x, q.y-p.y
		// Edges are oriented with positive area; a top edge is horizontal with the interior
		// below it, a left edge goes up the screen.
		t.topLeft[e] = (dy == 0 && dx > 0) || dy < 0
	}
	return t, true
}

// edge evaluates the edge function of edge e (opposite vertex e) at p.
func (t *triangle) edge(e int, px, py float32) float32 {
	p, q := t.v[(e+1)%3], t.v[(e+2)%3]
	return (q.x-p.x)*(py-p.y) - (q.y-p.y)*(px-p.x)
}

// rasterize shades every triangle band by band.
func (d *device) rasterize(prog *program, state any, st backend.PipelineState, tris []triangle) {
	size := d.pass.size
	bands := (size.Height + bandHeight - 1) / bandHeight
	d.parallel(bands, func(band int) {
		y0 := band * bandHeight
		y1 := min(y0+bandHeight, size.Height) - 1
		for i := range tris {
			t := &tris[i]
			if t.maxY < y0 || t.minY > y1 {
				continue
			}
			d.shadeTriangle(prog, state, st, t, max(t.minY, y0), min(t.maxY, y1))
		}
	})
}

func (d *device) shadeTriangle(prog *program, state any, st backend.PipelineState, t *triangle, yStart, yEnd int) {
	p := d.pass
	size := p.size
	invArea := 1 / t.area
	var (
		frag backend.Fragment
		out  backend.FragmentOutput
	)
	frag.Front = t.front

	for y := yStart; y <= yEnd; y++ {
		py := float32(y) + 0.5
		for x := t.minX; x <= t.maxX; x++ {
			px := float32(x) + 0.5

			var w [3]float32
			inside := true
			for e := 0; e < 3; e++ {
				w[e] = t.edge(e, px, py)
				if w[e] < 0 || (w[e] == 0 && !t.topLeft[e]) {
					inside = false
					break
				}
			}
			if !inside {
				continue
			}
			b0, b1, b2 := w[0]*invArea, w[1]*invArea, w[2]*invArea
			z := common.Saturate(b0*t.v[0].z + b1*t.v[1].z + b2*t.v[2].z)

			idx := y*size.Width + x
			if p.depth != nil && st.Depth.Test {
				stored := p.depth.t.layers[p.depth.layer][idx][0]
				if !st.Depth.Compare.Test(z, stored) {
					continue
				}
			}

			// perspective-correct weights
			pw0, pw1, pw2 := b0*t.v[0].invW, b1*t.v[1].invW, b2*t.v[2].invW
			sum := pw0 + pw1 + pw2
			if sum != 0 {
				pw0, pw1, pw2 = pw0/sum, pw1/sum, pw2/sum
			}
			for k := range frag.Varyings {
				frag.Varyings[k] = pw0*t.v[0].v[k] + pw1*t.v[1].v[k] + pw2*t.v[2].v[k]
			}
			frag.Coord = common.Vec4{px, py, z, sum}
			frag.UV = common.Vec2{px / float32(size.Width), py / float32(size.Height)}
			out = backend.FragmentOutput{}

			if !prog.cpu.Fragment(state, &frag, &out) {
				continue
			}

			for ci, c := range p.colors {
				dst := c.t.layers[c.layer]
				src := out.Colors[ci]
				if st.Blend.Enabled {
					src = blend(src, dst[idx], st.Blend)
				}
				dst[idx] = c.t.encode(src)
			}
			if p.depth != nil && st.Depth.Write {
				p.depth.t.layers[p.depth.layer][idx] = common.Vec4{z, 0, 0, 1}
			}
		}
	}
}

func blend(src, dst common.Vec4, b backend.BlendState) common.Vec4 {
	return src.Mul(blendFactor(b.Src, src, dst)).Add(dst.Mul(blendFactor(b.Dst, src, dst)))
}

func blendFactor(f backend.BlendFactor, src, dst common.Vec4) common.Vec4 {
	switch f {
	case backend.BlendZero:
		return common.Vec4{}
	case backend.BlendOne:
		return common.Vec4{1, 1, 1, 1}
	case backend.BlendSrcAlpha:
		return common.Vec4{src[3], src[3], src[3], src[3]}
	case backend.BlendOneMinusSrcAlpha:
		a := 1 - src[3]
		return common.Vec4{a, a, a, a}
	case backend.BlendSrcColor:
		return src
	case backend.BlendDstColor:
		return dst
	}
	return common.Vec4{1, 1, 1, 1}
}

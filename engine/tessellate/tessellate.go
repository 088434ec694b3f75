package tessellate

import (
	"math"

	"github.com/monkeydioude/flatland-go/engine/flatland"
)

// Mesh is the output of tessellating one shape: vertex and index lists in the
// form alphabet entries consume. Indices are 0-based into Vertices.
type Mesh struct {
	Vertices []flatland.FlatVertex
	Indices  []uint16
}

// Shape is anything that can tessellate itself into a Mesh. Implementations
// must be safe to tessellate concurrently; the batcher fans shapes out over a
// worker pool.
type Shape interface {
	// Tessellate produces the shape's mesh.
	//
	// Returns:
	//   - Mesh: the tessellated vertex and index data
	Tessellate() Mesh
}

// Quad is an axis-aligned rectangle from the origin to (Width, Height).
type Quad struct {
	Width  float32
	Height float32
}

var _ Shape = Quad{}

// Tessellate produces the quad's 4 vertices and 6 indices (two triangles,
// counter-clockwise).
//
// Returns:
//   - Mesh: the tessellated vertex and index data
func (q Quad) Tessellate() Mesh {
	return Mesh{
		Vertices: []flatland.FlatVertex{
			{Position: [2]float32{0, 0}},
			{Position: [2]float32{q.Width, 0}},
			{Position: [2]float32{q.Width, q.Height}},
			{Position: [2]float32{0, q.Height}},
		},
		Indices: []uint16{0, 1, 2, 0, 2, 3},
	}
}

// Circle is a disc of the given radius centered on the origin, approximated
// by a triangle fan with Segments outer vertices. Fewer than 3 segments is
// clamped to 3.
type Circle struct {
	Radius   float32
	Segments int
}

var _ Shape = Circle{}

// Tessellate produces the circle's fan: a center vertex plus one vertex per
// segment, and 3 indices per segment.
//
// Returns:
//   - Mesh: the tessellated vertex and index data
func (c Circle) Tessellate() Mesh {
	segments := c.Segments
	if segments < 3 {
		segments = 3
	}

	vertices := make([]flatland.FlatVertex, 0, segments+1)
	vertices = append(vertices, flatland.FlatVertex{})
	for i := 0; i < segments; i++ {
		angle := 2 * math.Pi * float64(i) / float64(segments)
		vertices = append(vertices, flatland.FlatVertex{
			Position: [2]float32{
				c.Radius * float32(math.Cos(angle)),
				c.Radius * float32(math.Sin(angle)),
			},
		})
	}

	indices := make([]uint16, 0, segments*3)
	for i := 0; i < segments; i++ {
		next := uint16(i+1)%uint16(segments) + 1
		indices = append(indices, 0, uint16(i+1), next)
	}

	return Mesh{Vertices: vertices, Indices: indices}
}

// Polyline is an open line strip extruded to the given thickness. Each
// segment becomes an independent quad; joints are not mitered, which is fine
// for the thin outlines flat glyphs use. Fewer than 2 points yields an empty
// mesh.
type Polyline struct {
	Points    [][2]float32
	Thickness float32
}

var _ Shape = Polyline{}

// Tessellate produces one quad (4 vertices, 6 indices) per line segment.
//
// Returns:
//   - Mesh: the tessellated vertex and index data
func (p Polyline) Tessellate() Mesh {
	if len(p.Points) < 2 {
		return Mesh{}
	}

	half := p.Thickness / 2
	segments := len(p.Points) - 1
	vertices := make([]flatland.FlatVertex, 0, segments*4)
	indices := make([]uint16, 0, segments*6)

	for i := 0; i < segments; i++ {
		a := p.Points[i]
		b := p.Points[i+1]

		// Unit normal of the segment, scaled to half the thickness.
		dx := b[0] - a[0]
		dy := b[1] - a[1]
		length := float32(math.Hypot(float64(dx), float64(dy)))
		if length == 0 {
			continue
		}
		nx := -dy / length * half
		ny := dx / length * half

		base := uint16(len(vertices))
		vertices = append(vertices,
			flatland.FlatVertex{Position: [2]float32{a[0] + nx, a[1] + ny}},
			flatland.FlatVertex{Position: [2]float32{a[0] - nx, a[1] - ny}},
			flatland.FlatVertex{Position: [2]float32{b[0] - nx, b[1] - ny}},
			flatland.FlatVertex{Position: [2]float32{b[0] + nx, b[1] + ny}},
		)
		indices = append(indices, base, base+1, base+2, base, base+2, base+3)
	}

	return Mesh{Vertices: vertices, Indices: indices}
}

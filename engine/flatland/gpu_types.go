package flatland

import (
	"encoding/binary"
	"math"
	"unsafe"
)

// FlatVertexSize is the byte size of one marshalled FlatVertex record, and
// the vertex buffer stride.
const FlatVertexSize = 8

// FlatVertex is the GPU-aligned representation of a single tessellated
// glyph/sprite vertex. Callers supply already-tessellated geometry, so
// position is the only attribute.
// Size: 8 bytes (std430 aligned, no padding required).
type FlatVertex struct {
	Position [2]float32 // offset 0: vertex position in glyph space (8 bytes)
}

// Size returns the size of the FlatVertex struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (v *FlatVertex) Size() int {
	return int(unsafe.Sizeof(*v))
}

// Marshal serializes the FlatVertex struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 8-byte buffer ready for GPU upload.
func (v *FlatVertex) Marshal() []byte {
	buf := make([]byte, FlatVertexSize)
	binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(v.Position[0]))
	binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(v.Position[1]))
	return buf
}

// GroupDrawDataSize is the byte size of one marshalled GroupDrawData record.
const GroupDrawDataSize = 80

// GroupDrawData is the GPU-aligned per-item instance record. The instance
// buffer holds one record per group item, packed group-by-group in live-slot
// order; the group's transform and color are repeated on each of its items.
// Size: 80 bytes (std430 aligned, no padding required).
type GroupDrawData struct {
	Transform  [16]float32 // offset  0: group model transform, column-major (64 bytes)
	Color      [4]uint8    // offset 64: group RGBA color, 8 bits per channel (4 bytes)
	XOffset    int32       // offset 68: item x placement in glyph-space units (4 bytes)
	YOffset    int32       // offset 72: item y placement in glyph-space units (4 bytes)
	EntryIndex uint32      // offset 76: index of the item's entry within its alphabet (4 bytes)
}

// Size returns the size of the GroupDrawData struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (g *GroupDrawData) Size() int {
	return GroupDrawDataSize
}

// Marshal serializes the GroupDrawData struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 80-byte buffer ready for GPU upload.
func (g *GroupDrawData) Marshal() []byte {
	buf := make([]byte, GroupDrawDataSize)
	for i := 0; i < 16; i++ {
		binary.LittleEndian.PutUint32(buf[i*4:(i+1)*4], math.Float32bits(g.Transform[i]))
	}
	buf[64] = g.Color[0]
	buf[65] = g.Color[1]
	buf[66] = g.Color[2]
	buf[67] = g.Color[3]
	binary.LittleEndian.PutUint32(buf[68:72], uint32(g.XOffset))
	binary.LittleEndian.PutUint32(buf[72:76], uint32(g.YOffset))
	binary.LittleEndian.PutUint32(buf[76:80], g.EntryIndex)
	return buf
}

// DrawIndirectCmdSize is the byte size of one marshalled DrawIndirectCmd
// record, and the stride between consecutive records in the command buffer.
const DrawIndirectCmdSize = 20

// DrawIndirectCmd is the indexed indirect draw argument record consumed
// directly by the graphics driver. The field order and widths match the
// driver's indirect-draw record format and must not change.
// Size: 20 bytes.
type DrawIndirectCmd struct {
	IndexCount    uint32 // offset  0: number of indices to draw (4 bytes)
	InstanceCount uint32 // offset  4: number of instances, one per group item (4 bytes)
	FirstIndex    uint32 // offset  8: offset into the shared index buffer (4 bytes)
	BaseVertex    uint32 // offset 12: added to each index before vertex fetch (4 bytes)
	BaseInstance  uint32 // offset 16: first instance record for this group (4 bytes)
}

// Size returns the size of the DrawIndirectCmd struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (c *DrawIndirectCmd) Size() int {
	return DrawIndirectCmdSize
}

// Marshal serializes the DrawIndirectCmd struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 20-byte buffer ready for GPU upload.
func (c *DrawIndirectCmd) Marshal() []byte {
	buf := make([]byte, DrawIndirectCmdSize)
	binary.LittleEndian.PutUint32(buf[0:4], c.IndexCount)
	binary.LittleEndian.PutUint32(buf[4:8], c.InstanceCount)
	binary.LittleEndian.PutUint32(buf[8:12], c.FirstIndex)
	binary.LittleEndian.PutUint32(buf[12:16], c.BaseVertex)
	binary.LittleEndian.PutUint32(buf[16:20], c.BaseInstance)
	return buf
}

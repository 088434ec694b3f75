package flatland

import (
	"encoding/binary"
	"errors"
)

var (
	// ErrStaleSlot is returned when an operation targets a slot that was
	// freed, or that was reused by a newer occupant.
	ErrStaleSlot = errors.New("flatland: slot is stale or freed")

	// ErrDuplicateEntry is returned when an entry id is already present in
	// the target alphabet.
	ErrDuplicateEntry = errors.New("flatland: entry id already present in alphabet")

	// ErrAlphabetFull is returned when adding an entry would push the
	// alphabet's vertex region past the 16-bit index range.
	ErrAlphabetFull = errors.New("flatland: alphabet exceeds 16-bit index range")

	// ErrIndexOutOfRange is returned when an entry's index data references a
	// vertex outside the entry's own vertex list.
	ErrIndexOutOfRange = errors.New("flatland: entry index references a vertex out of range")
)

// Item places one alphabet entry within a group: which entry to draw and
// where, in glyph-space units relative to the group's transform.
type Item struct {
	EntryIndex int
	XOffset    int32
	YOffset    int32
}

// alphabetEntry records one named piece of geometry inside an alphabet's
// contiguous region. Offsets are local to the alphabet; global positions are
// produced by adding the alphabet's bases assigned during geometry repack.
type alphabetEntry struct {
	id          uint32
	vertexStart uint32
	vertexCount uint32
	indexStart  uint32
	indexCount  uint32
}

// alphabetData is the registry-side state of one alphabet slot.
type alphabetData struct {
	refs     int
	entries  []alphabetEntry
	byID     map[uint32]int
	vertices []FlatVertex
	indices  []uint16

	// Global bases into the shared vertex/index buffers, assigned each time
	// geometry is repacked. Command records embed these.
	vertexBase uint32
	indexBase  uint32
}

// groupData is the registry-side state of one drawable group slot.
type groupData struct {
	transform [16]float32
	color     [4]uint8
	alphabet  Slot
	items     []Item
}

// registry owns all alphabet and group state plus the three dirty channels
// the buffer stage resolves each frame. It is shared by the handle types and
// the Flatlander; all access happens on the rendering thread.
type registry struct {
	alphabets SlotTable[alphabetData]
	groups    SlotTable[groupData]

	// Dirty channels. Geometry invalidation implies command invalidation
	// because command records embed the per-alphabet buffer bases assigned
	// during repack.
	geometryInvalidated  bool
	instancesInvalidated bool
	commandsInvalidated  bool
}

func newRegistry() *registry {
	return &registry{}
}

func (r *registry) markGeometryInvalidated() {
	r.geometryInvalidated = true
	r.commandsInvalidated = true
}

// createAlphabet allocates an alphabet slot with refcount 1 and no entries.
// The geometry channel stays clean until the first entry arrives.
func (r *registry) createAlphabet() Slot {
	slot, a := r.alphabets.Alloc()
	a.refs = 1
	a.byID = make(map[uint32]int)
	return slot
}

func (r *registry) incAlphabet(slot Slot) {
	if a, ok := r.alphabets.Get(slot); ok {
		a.refs++
	}
}

// decAlphabet drops one reference. Reaching zero frees the slot; the dead
// geometry stays in the GPU buffers until the next geometry repack reclaims
// it, so no dirty channel is touched here.
func (r *registry) decAlphabet(slot Slot) {
	a, ok := r.alphabets.Get(slot)
	if !ok {
		return
	}
	a.refs--
	if a.refs <= 0 {
		r.alphabets.Free(slot)
	}
}

// addAlphabetEntry appends geometry to an alphabet and returns the entry's
// stable index. Indices are rebased onto the alphabet's vertex region so the
// stored index list is alphabet-local.
func (r *registry) addAlphabetEntry(slot Slot, id uint32, vertices []FlatVertex, indices []uint16) (int, error) {
	a, ok := r.alphabets.Get(slot)
	if !ok {
		return 0, ErrStaleSlot
	}
	if _, exists := a.byID[id]; exists {
		return 0, ErrDuplicateEntry
	}

	vertexStart := uint32(len(a.vertices))
	if int(vertexStart)+len(vertices) > 1<<16 {
		return 0, ErrAlphabetFull
	}
	for _, idx := range indices {
		if int(idx) >= len(vertices) {
			return 0, ErrIndexOutOfRange
		}
	}

	entryIndex := len(a.entries)
	a.entries = append(a.entries, alphabetEntry{
		id:          id,
		vertexStart: vertexStart,
		vertexCount: uint32(len(vertices)),
		indexStart:  uint32(len(a.indices)),
		indexCount:  uint32(len(indices)),
	})
	a.byID[id] = entryIndex

	a.vertices = append(a.vertices, vertices...)
	for _, idx := range indices {
		a.indices = append(a.indices, idx+uint16(vertexStart))
	}

	r.markGeometryInvalidated()
	return entryIndex, nil
}

// alphabetEntryIndex is a pure lookup; a stale slot or unknown id yields
// (0, false), never a fabricated index.
func (r *registry) alphabetEntryIndex(slot Slot, id uint32) (int, bool) {
	a, ok := r.alphabets.Get(slot)
	if !ok {
		return 0, false
	}
	idx, found := a.byID[id]
	return idx, found
}

func (r *registry) createGroup(transform [16]float32, color [4]uint8, alphabet Slot, items []Item) Slot {
	slot, g := r.groups.Alloc()
	g.transform = transform
	g.color = color
	g.alphabet = alphabet
	g.items = append([]Item(nil), items...)

	r.instancesInvalidated = true
	r.commandsInvalidated = true
	return slot
}

// updateItems replaces a group's item list. The item count feeds the group's
// command record (instance count and the merged index range), so both the
// instance and command channels go dirty.
func (r *registry) updateItems(slot Slot, items []Item) {
	g, ok := r.groups.Get(slot)
	if !ok {
		return
	}
	g.items = append(g.items[:0], items...)
	r.instancesInvalidated = true
	r.commandsInvalidated = true
}

func (r *registry) updateTransform(slot Slot, transform [16]float32) {
	g, ok := r.groups.Get(slot)
	if !ok {
		return
	}
	g.transform = transform
	r.instancesInvalidated = true
}

func (r *registry) updateColor(slot Slot, color [4]uint8) {
	g, ok := r.groups.Get(slot)
	if !ok {
		return
	}
	g.color = color
	r.instancesInvalidated = true
}

// deleteGroup frees the slot. Later groups' instance records shift down, so
// the instance channel goes dirty along with the command channel.
func (r *registry) deleteGroup(slot Slot) {
	if r.groups.Free(slot) {
		r.instancesInvalidated = true
		r.commandsInvalidated = true
	}
}

// repackGeometry lays every live alphabet's region out contiguously in slot
// order, assigns the per-alphabet vertex/index bases, and returns the packed
// shared vertex and index buffer contents. Freed alphabets drop out of the
// packing here, which is where their GPU memory is actually reclaimed.
func (r *registry) repackGeometry() (vertexData, indexData []byte) {
	var vertexCount, indexCount int
	r.alphabets.Each(func(_ Slot, a *alphabetData) {
		vertexCount += len(a.vertices)
		indexCount += len(a.indices)
	})

	vertexData = make([]byte, 0, vertexCount*8)
	indexData = make([]byte, 0, indexCount*2)

	r.alphabets.Each(func(_ Slot, a *alphabetData) {
		a.vertexBase = uint32(len(vertexData) / 8)
		a.indexBase = uint32(len(indexData) / 2)
		for i := range a.vertices {
			vertexData = append(vertexData, a.vertices[i].Marshal()...)
		}
		for _, idx := range a.indices {
			indexData = binary.LittleEndian.AppendUint16(indexData, idx)
		}
	})
	return vertexData, indexData
}

// validItems yields the subset of a group's items whose entry index resolves
// in the group's alphabet. Instance and command packing share this filter so
// instance counts and base-instance offsets always agree.
func (r *registry) validItems(g *groupData, fn func(Item, alphabetEntry)) {
	a, ok := r.alphabets.Get(g.alphabet)
	if !ok {
		return
	}
	for _, item := range g.items {
		if item.EntryIndex < 0 || item.EntryIndex >= len(a.entries) {
			continue
		}
		fn(item, a.entries[item.EntryIndex])
	}
}

// groupDrawData packs one GroupDrawData record per item, group-by-group in
// live-slot order.
func (r *registry) groupDrawData() []byte {
	data := make([]byte, 0, r.groups.Len()*GroupDrawDataSize)
	r.groups.Each(func(_ Slot, g *groupData) {
		r.validItems(g, func(item Item, _ alphabetEntry) {
			rec := GroupDrawData{
				Transform:  g.transform,
				Color:      g.color,
				XOffset:    item.XOffset,
				YOffset:    item.YOffset,
				EntryIndex: uint32(item.EntryIndex),
			}
			data = append(data, rec.Marshal()...)
		})
	})
	return data
}

// drawCommandData derives one DrawIndirectCmd per live group in slot order.
// Requires current geometry bases, so the geometry channel must have resolved
// first. Returns the packed records and the command count.
func (r *registry) drawCommandData() ([]byte, int) {
	data := make([]byte, 0, r.groups.Len()*DrawIndirectCmdSize)
	count := 0
	baseInstance := uint32(0)

	r.groups.Each(func(_ Slot, g *groupData) {
		cmd := DrawIndirectCmd{BaseInstance: baseInstance}

		if a, ok := r.alphabets.Get(g.alphabet); ok {
			cmd.FirstIndex = a.indexBase
			cmd.BaseVertex = a.vertexBase
		}
		first := true
		r.validItems(g, func(_ Item, e alphabetEntry) {
			if first {
				// The group's merged index window starts at its first
				// item's entry.
				cmd.FirstIndex += e.indexStart
				first = false
			}
			cmd.IndexCount += e.indexCount
			cmd.InstanceCount++
		})

		data = append(data, cmd.Marshal()...)
		count++
		baseInstance += cmd.InstanceCount
	})
	return data, count
}

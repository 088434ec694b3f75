package flatland

// Alphabet is a reference-counted capability over one alphabet slot. Every
// live Alphabet handle holds exactly one reference; Clone adds one, Release
// drops one, and the slot is freed when the last reference goes. Callers must
// pair each handle with exactly one Release (typically via defer) and must
// hold a live handle for the duration of any entry operation.
type Alphabet struct {
	slot     Slot
	reg      *registry
	released bool
}

// Clone duplicates the handle, incrementing the underlying slot's reference
// count. The returned handle aliases the same alphabet and carries its own
// release obligation.
//
// Returns:
//   - *Alphabet: a new handle referencing the same alphabet slot
func (a *Alphabet) Clone() *Alphabet {
	if a.released {
		panic("flatland: Clone on released alphabet handle")
	}
	a.reg.incAlphabet(a.slot)
	return &Alphabet{slot: a.slot, reg: a.reg}
}

// Release drops this handle's reference. When the last reference goes, the
// alphabet slot is freed and its geometry is reclaimed at the next repack.
// Releasing twice panics: each handle carries exactly one reference.
func (a *Alphabet) Release() {
	if a.released {
		panic("flatland: alphabet handle released twice")
	}
	a.released = true
	a.reg.decAlphabet(a.slot)
}

// AddEntry appends a named piece of tessellated geometry to the alphabet and
// returns its stable entry index. Entries are append-only; indices within the
// supplied slice reference the supplied vertices (0-based).
//
// Parameters:
//   - id: caller-supplied entry identifier, unique within this alphabet
//   - vertices: tessellated vertex data for the entry
//   - indices: triangle indices into vertices
//
// Returns:
//   - int: the entry's index for later Item references
//   - error: ErrDuplicateEntry, ErrAlphabetFull, ErrIndexOutOfRange, or
//     ErrStaleSlot when the handle no longer resolves
func (a *Alphabet) AddEntry(id uint32, vertices []FlatVertex, indices []uint16) (int, error) {
	if a.released {
		panic("flatland: AddEntry on released alphabet handle")
	}
	return a.reg.addAlphabetEntry(a.slot, id, vertices, indices)
}

// EntryIndex looks up an entry by its caller-supplied id.
//
// Parameters:
//   - id: the entry identifier to look up
//
// Returns:
//   - int: the entry index when found
//   - bool: false when no entry with that id exists
func (a *Alphabet) EntryIndex(id uint32) (int, bool) {
	if a.released {
		panic("flatland: EntryIndex on released alphabet handle")
	}
	return a.reg.alphabetEntryIndex(a.slot, id)
}

// Group is the single-owner handle for one drawable group slot. Its Release
// is the only path that deletes the group, and the group internally clones
// the alphabet handle it was created from, so the alphabet outlives the
// group even if the caller releases their own handle first.
type Group struct {
	slot     Slot
	alphabet *Alphabet
	released bool
}

// NewGroup creates a drawable group from an alphabet: a transform, a color,
// and a list of item placements referencing the alphabet's entries. The
// instance-data and draw-command channels go dirty. Passing a released
// alphabet handle is a programming error and panics.
//
// Parameters:
//   - transform: column-major model transform applied to every item
//   - color: RGBA group color, 8 bits per channel
//   - alphabet: the alphabet the group's items draw from
//   - items: item placements; the slice is copied
//
// Returns:
//   - *Group: the owning handle for the new group
func NewGroup(transform [16]float32, color [4]uint8, alphabet *Alphabet, items []Item) *Group {
	if alphabet.released {
		panic("flatland: NewGroup on released alphabet handle")
	}
	owned := alphabet.Clone()
	slot := owned.reg.createGroup(transform, color, owned.slot, items)
	return &Group{slot: slot, alphabet: owned}
}

// UpdateItems replaces the group's item list, dirtying the instance-data and
// draw-command channels.
//
// Parameters:
//   - items: the new item placements; the slice is copied
func (g *Group) UpdateItems(items []Item) {
	if g.released {
		panic("flatland: UpdateItems on released group handle")
	}
	g.alphabet.reg.updateItems(g.slot, items)
}

// UpdateTransform replaces the group's transform, dirtying the instance-data
// channel.
//
// Parameters:
//   - transform: column-major model transform
func (g *Group) UpdateTransform(transform [16]float32) {
	if g.released {
		panic("flatland: UpdateTransform on released group handle")
	}
	g.alphabet.reg.updateTransform(g.slot, transform)
}

// UpdateColor replaces the group's color, dirtying the instance-data channel.
//
// Parameters:
//   - color: RGBA group color, 8 bits per channel
func (g *Group) UpdateColor(color [4]uint8) {
	if g.released {
		panic("flatland: UpdateColor on released group handle")
	}
	g.alphabet.reg.updateColor(g.slot, color)
}

// Release deletes the group slot exactly once, marks the draw-command
// channel dirty, and releases the group's internal alphabet reference.
// Releasing twice panics.
func (g *Group) Release() {
	if g.released {
		panic("flatland: group handle released twice")
	}
	g.released = true
	g.alphabet.reg.deleteGroup(g.slot)
	g.alphabet.Release()
}

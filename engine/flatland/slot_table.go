package flatland

// Slot identifies an allocated entry in a SlotTable. It packs the entry's
// index together with a generation tag: freeing a slot bumps the generation,
// so a Slot held across a free/reuse cycle never resolves to the new occupant.
// The zero Slot is never valid.
type Slot struct {
	index      uint32
	generation uint32
}

// Valid reports whether the slot has ever been allocated. A valid Slot may
// still be stale; only the owning SlotTable can tell.
//
// Returns:
//   - bool: true if the slot carries a generation tag
func (s Slot) Valid() bool {
	return s.generation != 0
}

type tableEntry[T any] struct {
	value      T
	generation uint32
	occupied   bool
}

// SlotTable is a reusable-slot container. Alloc hands out the lowest free
// index (reusing freed ones), Free returns an index to the free list, and
// every access is validated against the slot's generation tag. Iteration via
// Each visits occupied entries in ascending index order, which is the "slot
// order" the buffer staging layer relies on.
//
// A SlotTable is not safe for concurrent use; all registry mutation happens
// on the rendering thread.
type SlotTable[T any] struct {
	entries []tableEntry[T]
	free    []uint32
	live    int
}

// Alloc claims a slot, reusing a freed index when one is available, and
// returns the slot together with a pointer to its zeroed value.
//
// Returns:
//   - Slot: the allocated slot
//   - *T: pointer to the slot's storage, valid until the slot is freed
func (t *SlotTable[T]) Alloc() (Slot, *T) {
	var idx uint32
	if n := len(t.free); n > 0 {
		idx = t.free[n-1]
		t.free = t.free[:n-1]
	} else {
		idx = uint32(len(t.entries))
		// Generations start at 1 so the zero Slot never resolves.
		t.entries = append(t.entries, tableEntry[T]{generation: 1})
	}

	e := &t.entries[idx]
	var zero T
	e.value = zero
	e.occupied = true
	t.live++

	return Slot{index: idx, generation: e.generation}, &e.value
}

// Get resolves a slot to its value.
//
// Parameters:
//   - s: the slot to resolve
//
// Returns:
//   - *T: pointer to the slot's storage, or nil if the slot is stale or freed
//   - bool: false if the slot is stale or freed
func (t *SlotTable[T]) Get(s Slot) (*T, bool) {
	if int(s.index) >= len(t.entries) {
		return nil, false
	}
	e := &t.entries[s.index]
	if !e.occupied || e.generation != s.generation {
		return nil, false
	}
	return &e.value, true
}

// Free releases a slot back to the table. The slot's generation is bumped so
// stale copies of it no longer resolve; the index becomes eligible for reuse
// by a later Alloc.
//
// Parameters:
//   - s: the slot to free
//
// Returns:
//   - bool: true if the slot was live and is now freed, false if it was
//     already freed or stale (the call is then a no-op)
func (t *SlotTable[T]) Free(s Slot) bool {
	if _, ok := t.Get(s); !ok {
		return false
	}
	e := &t.entries[s.index]
	var zero T
	e.value = zero
	e.occupied = false
	e.generation++
	t.live--
	t.free = append(t.free, s.index)
	return true
}

// Len returns the number of live (occupied) slots.
//
// Returns:
//   - int: the live slot count
func (t *SlotTable[T]) Len() int {
	return t.live
}

// Each calls fn for every occupied slot in ascending index order.
//
// Parameters:
//   - fn: visitor receiving each live slot and a pointer to its value
func (t *SlotTable[T]) Each(fn func(Slot, *T)) {
	for i := range t.entries {
		e := &t.entries[i]
		if e.occupied {
			fn(Slot{index: uint32(i), generation: e.generation}, &e.value)
		}
	}
}

package flatland

import "testing"

func newTestAlphabet(t *testing.T) (*registry, *Alphabet) {
	t.Helper()
	r := newRegistry()
	return r, &Alphabet{slot: r.createAlphabet(), reg: r}
}

func expectPanic(t *testing.T, name string, fn func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Errorf("expected %s to panic", name)
		}
	}()
	fn()
}

func TestAlphabetCloneAddsReference(t *testing.T) {
	r, alphabet := newTestAlphabet(t)
	clone := alphabet.Clone()

	// The original release leaves the clone's reference live.
	alphabet.Release()
	if _, ok := r.alphabets.Get(clone.slot); !ok {
		t.Fatal("expected alphabet to survive while a clone is live")
	}

	clone.Release()
	if _, ok := r.alphabets.Get(clone.slot); ok {
		t.Fatal("expected alphabet to be freed after the last release")
	}
}

func TestAlphabetDoubleReleasePanics(t *testing.T) {
	_, alphabet := newTestAlphabet(t)
	alphabet.Release()

	expectPanic(t, "Release", func() { alphabet.Release() })
	expectPanic(t, "Clone", func() { alphabet.Clone() })
	expectPanic(t, "AddEntry", func() { alphabet.AddEntry(1, nil, nil) })
	expectPanic(t, "EntryIndex", func() { alphabet.EntryIndex(1) })
}

func TestAlphabetAddEntryAndLookup(t *testing.T) {
	_, alphabet := newTestAlphabet(t)
	defer alphabet.Release()

	vertices, indices := quadGeometry()
	idx, err := alphabet.AddEntry(7, vertices, indices)
	if err != nil {
		t.Fatal(err)
	}
	if idx != 0 {
		t.Errorf("expected first entry index 0, got %d", idx)
	}

	got, ok := alphabet.EntryIndex(7)
	if !ok || got != idx {
		t.Errorf("expected EntryIndex to find %d, got (%d, %v)", idx, got, ok)
	}
	if _, ok := alphabet.EntryIndex(8); ok {
		t.Error("expected unknown id lookup to report false")
	}
}

func TestGroupKeepsAlphabetAlive(t *testing.T) {
	r, alphabet := newTestAlphabet(t)
	vertices, indices := quadGeometry()
	if _, err := alphabet.AddEntry(1, vertices, indices); err != nil {
		t.Fatal(err)
	}

	group := NewGroup(identityMatrix(), [4]uint8{255, 255, 255, 255}, alphabet, []Item{{EntryIndex: 0}})

	// The caller releases their handle; the group's internal clone keeps the
	// geometry drawable.
	alphabet.Release()
	if r.alphabets.Len() != 1 {
		t.Fatal("expected the group's reference to keep the alphabet live")
	}
	if _, count := r.drawCommandData(); count != 1 {
		t.Errorf("expected 1 live command, got %d", count)
	}

	group.Release()
	if r.alphabets.Len() != 0 {
		t.Error("expected the alphabet to be freed with the last group")
	}
	if r.groups.Len() != 0 {
		t.Error("expected the group slot to be freed")
	}
}

func TestGroupDoubleReleasePanics(t *testing.T) {
	_, alphabet := newTestAlphabet(t)
	group := NewGroup(identityMatrix(), [4]uint8{255, 255, 255, 255}, alphabet, nil)
	alphabet.Release()
	group.Release()

	expectPanic(t, "Release", func() { group.Release() })
	expectPanic(t, "UpdateItems", func() { group.UpdateItems(nil) })
	expectPanic(t, "UpdateTransform", func() { group.UpdateTransform(identityMatrix()) })
	expectPanic(t, "UpdateColor", func() { group.UpdateColor([4]uint8{}) })
}

func TestNewGroupOnReleasedAlphabetPanics(t *testing.T) {
	_, alphabet := newTestAlphabet(t)
	alphabet.Release()

	expectPanic(t, "NewGroup", func() {
		NewGroup(identityMatrix(), [4]uint8{255, 255, 255, 255}, alphabet, nil)
	})
}

func TestGroupItemsCopiedOnCreateAndUpdate(t *testing.T) {
	r, alphabet := newTestAlphabet(t)
	defer alphabet.Release()
	vertices, indices := quadGeometry()
	if _, err := alphabet.AddEntry(1, vertices, indices); err != nil {
		t.Fatal(err)
	}

	items := []Item{{EntryIndex: 0, XOffset: 1}}
	group := NewGroup(identityMatrix(), [4]uint8{255, 255, 255, 255}, alphabet, items)
	defer group.Release()

	// Mutating the caller's slice after the fact must not leak into the
	// registry.
	items[0].XOffset = 99
	g, _ := r.groups.Get(group.slot)
	if g.items[0].XOffset != 1 {
		t.Errorf("expected stored item offset 1, got %d", g.items[0].XOffset)
	}

	group.UpdateItems(items)
	items[0].XOffset = 7
	if g.items[0].XOffset != 99 {
		t.Errorf("expected stored item offset 99 after update, got %d", g.items[0].XOffset)
	}
}

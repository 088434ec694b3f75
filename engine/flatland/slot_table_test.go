package flatland

import "testing"

func TestSlotTableAllocGet(t *testing.T) {
	var table SlotTable[int]

	slot, v := table.Alloc()
	if !slot.Valid() {
		t.Fatal("expected allocated slot to be valid")
	}
	*v = 42

	got, ok := table.Get(slot)
	if !ok {
		t.Fatal("expected Get on a live slot to succeed")
	}
	if *got != 42 {
		t.Errorf("expected stored value 42, got %d", *got)
	}
	if table.Len() != 1 {
		t.Errorf("expected Len 1, got %d", table.Len())
	}
}

func TestSlotTableZeroSlotNeverResolves(t *testing.T) {
	var table SlotTable[int]
	table.Alloc()

	var zero Slot
	if zero.Valid() {
		t.Error("expected the zero Slot to be invalid")
	}
	if _, ok := table.Get(zero); ok {
		t.Error("expected Get on the zero Slot to fail")
	}
}

func TestSlotTableFreeInvalidatesSlot(t *testing.T) {
	var table SlotTable[int]
	slot, _ := table.Alloc()

	if !table.Free(slot) {
		t.Fatal("expected Free on a live slot to report true")
	}
	if _, ok := table.Get(slot); ok {
		t.Error("expected Get on a freed slot to fail")
	}
	if table.Free(slot) {
		t.Error("expected second Free on the same slot to report false")
	}
	if table.Len() != 0 {
		t.Errorf("expected Len 0 after free, got %d", table.Len())
	}
}

func TestSlotTableReuseDoesNotResolveStaleSlot(t *testing.T) {
	var table SlotTable[string]

	old, v := table.Alloc()
	*v = "first"
	table.Free(old)

	// The freed index is reused, but the old slot's generation no longer
	// matches.
	reused, v2 := table.Alloc()
	*v2 = "second"

	if _, ok := table.Get(old); ok {
		t.Error("expected stale slot to stop resolving after reuse")
	}
	got, ok := table.Get(reused)
	if !ok || *got != "second" {
		t.Errorf("expected reused slot to resolve to the new occupant, got %v ok=%v", got, ok)
	}
}

func TestSlotTableAllocZeroesReusedStorage(t *testing.T) {
	var table SlotTable[[]int]

	slot, v := table.Alloc()
	*v = []int{1, 2, 3}
	table.Free(slot)

	_, v2 := table.Alloc()
	if *v2 != nil {
		t.Errorf("expected reused storage to be zeroed, got %v", *v2)
	}
}

func TestSlotTableEachVisitsInIndexOrder(t *testing.T) {
	var table SlotTable[int]

	slots := make([]Slot, 4)
	for i := range slots {
		s, v := table.Alloc()
		*v = i * 10
		slots[i] = s
	}
	table.Free(slots[1])

	var visited []int
	table.Each(func(_ Slot, v *int) {
		visited = append(visited, *v)
	})

	want := []int{0, 20, 30}
	if len(visited) != len(want) {
		t.Fatalf("expected %d visits, got %d", len(want), len(visited))
	}
	for i := range want {
		if visited[i] != want[i] {
			t.Errorf("visit %d: expected %d, got %d", i, want[i], visited[i])
		}
	}
}

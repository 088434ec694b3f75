package flatland

import (
	"errors"
	"fmt"
	"testing"
)

// fakeBackend records every Backend call in order so tests can assert on the
// exact upload and dispatch sequence of a frame.
type fakeBackend struct {
	multiDraw bool
	initErr   error
	beginErr  error

	calls        []string
	initCalls    int
	vertexData   []byte
	indexData    []byte
	instanceData []byte
	commandData  []byte
}

var _ Backend = &fakeBackend{}

func (f *fakeBackend) MultiDrawIndirectSupported() bool { return f.multiDraw }

func (f *fakeBackend) InitBuffers() error {
	f.calls = append(f.calls, "InitBuffers")
	f.initCalls++
	return f.initErr
}

func (f *fakeBackend) UploadVertices(data []byte) {
	f.calls = append(f.calls, "UploadVertices")
	f.vertexData = data
}

func (f *fakeBackend) UploadIndices(data []byte) {
	f.calls = append(f.calls, "UploadIndices")
	f.indexData = data
}

func (f *fakeBackend) UploadInstances(data []byte) {
	f.calls = append(f.calls, "UploadInstances")
	f.instanceData = data
}

func (f *fakeBackend) UploadCommands(data []byte) {
	f.calls = append(f.calls, "UploadCommands")
	f.commandData = data
}

func (f *fakeBackend) BeginDraw() error {
	f.calls = append(f.calls, "BeginDraw")
	return f.beginErr
}

func (f *fakeBackend) MultiDrawIndirect(commandCount int) {
	f.calls = append(f.calls, fmt.Sprintf("MultiDrawIndirect(%d)", commandCount))
}

func (f *fakeBackend) DrawIndirect(offset uint64) {
	f.calls = append(f.calls, fmt.Sprintf("DrawIndirect(%d)", offset))
}

func (f *fakeBackend) EndDraw() {
	f.calls = append(f.calls, "EndDraw")
}

type fakeProgram struct {
	hasUniform bool
	setUsed    int
	matrices   [][16]float32
}

var _ Program = &fakeProgram{}

func (f *fakeProgram) SetUsed() { f.setUsed++ }

func (f *fakeProgram) UniformLocation(name string) (int32, bool) {
	return 3, f.hasUniform
}

func (f *fakeProgram) SetUniformMatrix4fv(location int32, matrix [16]float32) {
	f.matrices = append(f.matrices, matrix)
}

type fakeTarget struct {
	calls []string
}

var _ Target = &fakeTarget{}

func (f *fakeTarget) SetDefaultBlendFunc() { f.calls = append(f.calls, "SetDefaultBlendFunc") }
func (f *fakeTarget) FrontFaceCW()         { f.calls = append(f.calls, "FrontFaceCW") }
func (f *fakeTarget) FrontFaceCCW()        { f.calls = append(f.calls, "FrontFaceCCW") }
func (f *fakeTarget) PolygonModeLine()     { f.calls = append(f.calls, "PolygonModeLine") }
func (f *fakeTarget) PolygonModeFill()     { f.calls = append(f.calls, "PolygonModeFill") }

func newTestFlatlander(t *testing.T, backend *fakeBackend, options ...FlatlanderBuilderOption) (Flatlander, *fakeProgram, *fakeTarget) {
	t.Helper()
	program := &fakeProgram{hasUniform: true}
	target := &fakeTarget{}
	f, err := NewFlatlander(backend, program, target, options...)
	if err != nil {
		t.Fatal(err)
	}
	return f, program, target
}

func expectCalls(t *testing.T, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("expected calls %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("call %d: expected %q, got %q (full sequence %v)", i, want[i], got[i], got)
		}
	}
}

func TestNewFlatlanderRequiresCollaborators(t *testing.T) {
	backend := &fakeBackend{}
	program := &fakeProgram{}
	target := &fakeTarget{}

	if _, err := NewFlatlander(nil, program, target); err == nil {
		t.Error("expected an error for a nil backend")
	}
	if _, err := NewFlatlander(backend, nil, target); err == nil {
		t.Error("expected an error for a nil program")
	}
	if _, err := NewFlatlander(backend, program, nil); err == nil {
		t.Error("expected an error for a nil target")
	}
}

func TestToggleFlipsAndRestores(t *testing.T) {
	f, _, _ := newTestFlatlander(t, &fakeBackend{})

	if !f.DrawEnabled() {
		t.Fatal("expected drawing enabled by default")
	}
	f.Toggle()
	if f.DrawEnabled() {
		t.Error("expected drawing disabled after one toggle")
	}
	f.Toggle()
	if !f.DrawEnabled() {
		t.Error("expected drawing restored after two toggles")
	}

	if f.Wireframe() {
		t.Fatal("expected filled rasterization by default")
	}
	f.ToggleWireframe()
	if !f.Wireframe() {
		t.Error("expected wireframe after one toggle")
	}
	f.ToggleWireframe()
	if f.Wireframe() {
		t.Error("expected filled rasterization restored after two toggles")
	}
}

func TestRenderDisabledIsNoOp(t *testing.T) {
	backend := &fakeBackend{}
	f, _, _ := newTestFlatlander(t, backend, WithDrawEnabled(false))

	alphabet := f.CreateAlphabet()
	defer alphabet.Release()
	vertices, indices := quadGeometry()
	if _, err := alphabet.AddEntry(1, vertices, indices); err != nil {
		t.Fatal(err)
	}

	if err := f.Render(identityMatrix()); err != nil {
		t.Fatal(err)
	}
	if len(backend.calls) != 0 {
		t.Errorf("expected no backend calls while disabled, got %v", backend.calls)
	}
}

func TestRenderBeforeAnyGeometryIsNoOp(t *testing.T) {
	backend := &fakeBackend{}
	f, program, _ := newTestFlatlander(t, backend)

	// A group with no geometry behind it dirties the instance and command
	// channels, but no buffers exist yet.
	alphabet := f.CreateAlphabet()
	group := NewGroup(identityMatrix(), [4]uint8{255, 255, 255, 255}, alphabet, nil)
	defer group.Release()
	alphabet.Release()

	if err := f.Render(identityMatrix()); err != nil {
		t.Fatal(err)
	}
	if len(backend.calls) != 0 {
		t.Errorf("expected no backend calls before first geometry, got %v", backend.calls)
	}
	if program.setUsed != 0 {
		t.Error("expected the program to stay unbound before first geometry")
	}
}

func TestRenderFullFrameSequence(t *testing.T) {
	backend := &fakeBackend{}
	f, program, target := newTestFlatlander(t, backend)

	alphabet := f.CreateAlphabet()
	defer alphabet.Release()
	vertices, indices := quadGeometry()
	if _, err := alphabet.AddEntry(1, vertices, indices); err != nil {
		t.Fatal(err)
	}
	group := NewGroup(identityMatrix(), [4]uint8{255, 0, 0, 255}, alphabet, []Item{{EntryIndex: 0}})
	defer group.Release()

	if err := f.Render(identityMatrix()); err != nil {
		t.Fatal(err)
	}

	expectCalls(t, backend.calls, []string{
		"InitBuffers",
		"UploadVertices",
		"UploadIndices",
		"UploadInstances",
		"UploadCommands",
		"BeginDraw",
		"DrawIndirect(0)",
		"EndDraw",
	})
	expectCalls(t, target.calls, []string{
		"SetDefaultBlendFunc",
		"FrontFaceCW",
		"FrontFaceCCW",
	})
	if program.setUsed != 1 {
		t.Errorf("expected SetUsed once, got %d", program.setUsed)
	}
	if len(program.matrices) != 1 {
		t.Errorf("expected one uniform upload, got %d", len(program.matrices))
	}
	if len(backend.vertexData) != 4*FlatVertexSize {
		t.Errorf("expected %d vertex bytes, got %d", 4*FlatVertexSize, len(backend.vertexData))
	}
	if len(backend.instanceData) != GroupDrawDataSize {
		t.Errorf("expected one instance record, got %d bytes", len(backend.instanceData))
	}
	if len(backend.commandData) != DrawIndirectCmdSize {
		t.Errorf("expected one command record, got %d bytes", len(backend.commandData))
	}

	// A clean second frame dispatches without re-uploading anything.
	backend.calls = nil
	if err := f.Render(identityMatrix()); err != nil {
		t.Fatal(err)
	}
	expectCalls(t, backend.calls, []string{
		"BeginDraw",
		"DrawIndirect(0)",
		"EndDraw",
	})
	if backend.initCalls != 1 {
		t.Errorf("expected InitBuffers exactly once, got %d", backend.initCalls)
	}
}

func TestRenderMultiDrawStrategy(t *testing.T) {
	backend := &fakeBackend{multiDraw: true}
	f, _, _ := newTestFlatlander(t, backend)

	alphabet := f.CreateAlphabet()
	defer alphabet.Release()
	vertices, indices := quadGeometry()
	if _, err := alphabet.AddEntry(1, vertices, indices); err != nil {
		t.Fatal(err)
	}
	groups := make([]*Group, 3)
	for i := range groups {
		groups[i] = NewGroup(identityMatrix(), [4]uint8{255, 255, 255, 255}, alphabet, []Item{{EntryIndex: 0}})
		defer groups[i].Release()
	}

	if err := f.Render(identityMatrix()); err != nil {
		t.Fatal(err)
	}

	last := backend.calls[len(backend.calls)-2]
	if last != "MultiDrawIndirect(3)" {
		t.Errorf("expected a single MultiDrawIndirect(3), got %q in %v", last, backend.calls)
	}
}

func TestRenderLoopStrategyOffsets(t *testing.T) {
	backend := &fakeBackend{multiDraw: false}
	f, _, _ := newTestFlatlander(t, backend)

	alphabet := f.CreateAlphabet()
	defer alphabet.Release()
	vertices, indices := quadGeometry()
	if _, err := alphabet.AddEntry(1, vertices, indices); err != nil {
		t.Fatal(err)
	}
	groups := make([]*Group, 3)
	for i := range groups {
		groups[i] = NewGroup(identityMatrix(), [4]uint8{255, 255, 255, 255}, alphabet, []Item{{EntryIndex: 0}})
		defer groups[i].Release()
	}

	if err := f.Render(identityMatrix()); err != nil {
		t.Fatal(err)
	}

	// One indirect draw per command record, each at its 20-byte stride.
	want := []string{"DrawIndirect(0)", "DrawIndirect(20)", "DrawIndirect(40)"}
	got := backend.calls[len(backend.calls)-4 : len(backend.calls)-1]
	expectCalls(t, got, want)
}

func TestRenderWireframeBracketsDispatch(t *testing.T) {
	backend := &fakeBackend{}
	f, _, target := newTestFlatlander(t, backend, WithWireframe(true))

	alphabet := f.CreateAlphabet()
	defer alphabet.Release()
	vertices, indices := quadGeometry()
	if _, err := alphabet.AddEntry(1, vertices, indices); err != nil {
		t.Fatal(err)
	}
	group := NewGroup(identityMatrix(), [4]uint8{255, 255, 255, 255}, alphabet, []Item{{EntryIndex: 0}})
	defer group.Release()

	if err := f.Render(identityMatrix()); err != nil {
		t.Fatal(err)
	}

	expectCalls(t, target.calls, []string{
		"SetDefaultBlendFunc",
		"FrontFaceCW",
		"PolygonModeLine",
		"PolygonModeFill",
		"FrontFaceCCW",
	})
}

func TestRenderSkipsMissingUniform(t *testing.T) {
	backend := &fakeBackend{}
	program := &fakeProgram{hasUniform: false}
	target := &fakeTarget{}
	f, err := NewFlatlander(backend, program, target)
	if err != nil {
		t.Fatal(err)
	}

	alphabet := f.CreateAlphabet()
	defer alphabet.Release()
	vertices, indices := quadGeometry()
	if _, err := alphabet.AddEntry(1, vertices, indices); err != nil {
		t.Fatal(err)
	}

	if err := f.Render(identityMatrix()); err != nil {
		t.Fatal(err)
	}
	if len(program.matrices) != 0 {
		t.Error("expected no uniform upload when the program lacks the uniform")
	}
	if program.setUsed != 1 {
		t.Error("expected the program to still be bound")
	}
}

func TestRenderBeginDrawErrorPropagates(t *testing.T) {
	beginErr := errors.New("surface lost")
	backend := &fakeBackend{beginErr: beginErr}
	f, _, _ := newTestFlatlander(t, backend)

	alphabet := f.CreateAlphabet()
	defer alphabet.Release()
	vertices, indices := quadGeometry()
	if _, err := alphabet.AddEntry(1, vertices, indices); err != nil {
		t.Fatal(err)
	}

	if err := f.Render(identityMatrix()); !errors.Is(err, beginErr) {
		t.Errorf("expected the BeginDraw error, got %v", err)
	}
	for _, c := range backend.calls {
		if c == "EndDraw" || c == "DrawIndirect(0)" {
			t.Errorf("expected no dispatch after a failed BeginDraw, got %v", backend.calls)
		}
	}
}

func TestRenderTransformUpdateReuploadsInstancesOnly(t *testing.T) {
	backend := &fakeBackend{}
	f, _, _ := newTestFlatlander(t, backend)

	alphabet := f.CreateAlphabet()
	defer alphabet.Release()
	vertices, indices := quadGeometry()
	if _, err := alphabet.AddEntry(1, vertices, indices); err != nil {
		t.Fatal(err)
	}
	group := NewGroup(identityMatrix(), [4]uint8{255, 255, 255, 255}, alphabet, []Item{{EntryIndex: 0}})
	defer group.Release()

	if err := f.Render(identityMatrix()); err != nil {
		t.Fatal(err)
	}

	backend.calls = nil
	m := identityMatrix()
	m[12] = 5
	group.UpdateTransform(m)

	if err := f.Render(identityMatrix()); err != nil {
		t.Fatal(err)
	}
	expectCalls(t, backend.calls, []string{
		"UploadInstances",
		"BeginDraw",
		"DrawIndirect(0)",
		"EndDraw",
	})
}

func TestRenderGroupReleaseShrinksCommandBuffer(t *testing.T) {
	backend := &fakeBackend{}
	f, _, _ := newTestFlatlander(t, backend)

	alphabet := f.CreateAlphabet()
	defer alphabet.Release()
	vertices, indices := quadGeometry()
	if _, err := alphabet.AddEntry(1, vertices, indices); err != nil {
		t.Fatal(err)
	}
	first := NewGroup(identityMatrix(), [4]uint8{255, 255, 255, 255}, alphabet, []Item{{EntryIndex: 0}})
	defer first.Release()
	second := NewGroup(identityMatrix(), [4]uint8{255, 255, 255, 255}, alphabet, []Item{{EntryIndex: 0}})

	if err := f.Render(identityMatrix()); err != nil {
		t.Fatal(err)
	}
	if len(backend.commandData) != 2*DrawIndirectCmdSize {
		t.Fatalf("expected 2 command records, got %d bytes", len(backend.commandData))
	}

	second.Release()
	backend.calls = nil
	if err := f.Render(identityMatrix()); err != nil {
		t.Fatal(err)
	}
	expectCalls(t, backend.calls, []string{
		"UploadInstances",
		"UploadCommands",
		"BeginDraw",
		"DrawIndirect(0)",
		"EndDraw",
	})
	if len(backend.commandData) != DrawIndirectCmdSize {
		t.Errorf("expected 1 command record after release, got %d bytes", len(backend.commandData))
	}
}

func TestRenderAlphabetSurvivesThroughGroup(t *testing.T) {
	backend := &fakeBackend{}
	f, _, _ := newTestFlatlander(t, backend)

	alphabet := f.CreateAlphabet()
	vertices, indices := quadGeometry()
	if _, err := alphabet.AddEntry(1, vertices, indices); err != nil {
		t.Fatal(err)
	}
	group := NewGroup(identityMatrix(), [4]uint8{255, 255, 255, 255}, alphabet, []Item{{EntryIndex: 0}})
	alphabet.Release()

	if err := f.Render(identityMatrix()); err != nil {
		t.Fatal(err)
	}
	if len(backend.vertexData) != 4*FlatVertexSize {
		t.Error("expected the group's clone to keep geometry uploaded")
	}

	group.Release()
	backend.calls = nil
	if err := f.Render(identityMatrix()); err != nil {
		t.Fatal(err)
	}
	if len(backend.commandData) != 0 {
		t.Errorf("expected an empty command buffer after the last release, got %d bytes", len(backend.commandData))
	}
}

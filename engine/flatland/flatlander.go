package flatland

import "errors"

// flatlander is the implementation of the Flatlander interface.
type flatlander struct {
	program     Program
	target      Target
	backend     Backend
	uniformName string

	vpLocation int32
	vpFound    bool

	reg   *registry
	stage bufferStage

	dispatch drawDispatcher

	drawEnabled bool
	wireframe   bool
}

// Flatlander is the orchestrator for flat, indirectly-drawn, instance-batched
// 2D content. Callers register reusable glyph/sprite geometry through
// alphabet handles, compose positioned instances into groups, and call Render
// once per frame; the Flatlander resolves the dirty channels against the GPU
// buffers and issues the indirect draw.
//
// All methods must be called from the rendering thread.
type Flatlander interface {
	// CreateAlphabet allocates a fresh alphabet with reference count 1 and
	// returns its owning handle. The caller must Release the handle when
	// done with it.
	//
	// Returns:
	//   - *Alphabet: the handle for the new alphabet
	CreateAlphabet() *Alphabet

	// Toggle flips whether Render draws at all. A disabled Flatlander's
	// Render is a no-op with no GPU side effects, even with pending dirty
	// data. Toggling twice restores the original state.
	Toggle()

	// ToggleWireframe flips wireframe rasterization for subsequent draws.
	// Toggling twice restores the original state.
	ToggleWireframe()

	// DrawEnabled reports whether Render currently draws.
	//
	// Returns:
	//   - bool: true when drawing is enabled
	DrawEnabled() bool

	// Wireframe reports whether wireframe rasterization is active.
	//
	// Returns:
	//   - bool: true when wireframe mode is active
	Wireframe() bool

	// Render resolves the dirty channels and issues the indirect draw for
	// every live group. Rendering before any geometry has ever uploaded is
	// a silent no-op; no GPU buffers are allocated for it.
	//
	// Parameters:
	//   - viewProjection: column-major view-projection matrix for the frame
	//
	// Returns:
	//   - error: an error if buffer allocation or draw-scope setup failed
	Render(viewProjection [16]float32) error
}

var _ Flatlander = &flatlander{}

// NewFlatlander creates a Flatlander over the given collaborators. The
// program is expected to come from an external loader; a failed load is a
// construction-time error for the whole component, so callers pass the error
// through rather than constructing with a nil program. The backend's
// multi-draw capability is queried once here and fixes the dispatch strategy
// for the Flatlander's lifetime.
//
// Parameters:
//   - backend: the graphics driver surface (must not be nil)
//   - program: the shader program collaborator (must not be nil)
//   - target: the color/target buffer collaborator (must not be nil)
//   - options: functional options to further configure the Flatlander
//
// Returns:
//   - Flatlander: the configured Flatlander
//   - error: an error if any required collaborator is missing
func NewFlatlander(backend Backend, program Program, target Target, options ...FlatlanderBuilderOption) (Flatlander, error) {
	if backend == nil {
		return nil, errors.New("flatland: NewFlatlander requires a non-nil Backend")
	}
	if program == nil {
		return nil, errors.New("flatland: NewFlatlander requires a non-nil Program")
	}
	if target == nil {
		return nil, errors.New("flatland: NewFlatlander requires a non-nil Target")
	}

	f := &flatlander{
		program:     program,
		target:      target,
		backend:     backend,
		uniformName: "ViewProjection",
		reg:         newRegistry(),
		stage:       bufferStage{backend: backend},
		drawEnabled: true,
	}
	for _, opt := range options {
		opt(f)
	}

	f.vpLocation, f.vpFound = program.UniformLocation(f.uniformName)

	// Capability is fixed for the process lifetime; pick the strategy once
	// instead of re-querying per frame.
	if backend.MultiDrawIndirectSupported() {
		f.dispatch = multiDrawDispatcher{}
	} else {
		f.dispatch = loopDispatcher{}
	}

	return f, nil
}

func (f *flatlander) CreateAlphabet() *Alphabet {
	return &Alphabet{slot: f.reg.createAlphabet(), reg: f.reg}
}

func (f *flatlander) Toggle() {
	f.drawEnabled = !f.drawEnabled
}

func (f *flatlander) ToggleWireframe() {
	f.wireframe = !f.wireframe
}

func (f *flatlander) DrawEnabled() bool {
	return f.drawEnabled
}

func (f *flatlander) Wireframe() bool {
	return f.wireframe
}

func (f *flatlander) Render(viewProjection [16]float32) error {
	if !f.drawEnabled {
		return nil
	}

	if err := f.stage.resolve(f.reg); err != nil {
		return err
	}
	if !f.stage.initialized {
		// No alphabet has ever uploaded geometry; nothing to draw.
		return nil
	}

	f.program.SetUsed()
	if f.vpFound {
		f.program.SetUniformMatrix4fv(f.vpLocation, viewProjection)
	}

	if err := f.backend.BeginDraw(); err != nil {
		return err
	}

	f.target.SetDefaultBlendFunc()
	f.target.FrontFaceCW()
	if f.wireframe {
		f.target.PolygonModeLine()
	}

	f.dispatch.dispatch(f.backend, f.stage.commandCount)

	if f.wireframe {
		f.target.PolygonModeFill()
	}
	f.target.FrontFaceCCW()

	f.backend.EndDraw()
	return nil
}

// drawDispatcher issues the per-frame indirect draw for commandCount
// consecutive records. The implementation is selected once at construction
// from the backend's multi-draw capability.
type drawDispatcher interface {
	dispatch(b Backend, commandCount int)
}

// multiDrawDispatcher covers all commands with one native call.
type multiDrawDispatcher struct{}

func (multiDrawDispatcher) dispatch(b Backend, commandCount int) {
	if commandCount == 0 {
		return
	}
	b.MultiDrawIndirect(commandCount)
}

// loopDispatcher is the manual fallback: one indirect draw per command
// record, in order, each reading at its record's byte offset.
type loopDispatcher struct{}

func (loopDispatcher) dispatch(b Backend, commandCount int) {
	for i := 0; i < commandCount; i++ {
		b.DrawIndirect(uint64(i) * DrawIndirectCmdSize)
	}
}

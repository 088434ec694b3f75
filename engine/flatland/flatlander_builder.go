package flatland

// FlatlanderBuilderOption is a functional option applied to a Flatlander
// during construction via NewFlatlander.
type FlatlanderBuilderOption func(*flatlander)

// WithDrawEnabled sets the initial draw-enabled state. Drawing defaults to
// enabled; pass false to start disabled and enable later via Toggle.
//
// Parameters:
//   - enabled: the initial draw-enabled state
//
// Returns:
//   - FlatlanderBuilderOption: a function that applies the option to a Flatlander
func WithDrawEnabled(enabled bool) FlatlanderBuilderOption {
	return func(f *flatlander) {
		f.drawEnabled = enabled
	}
}

// WithWireframe sets the initial wireframe state. Defaults to filled
// rasterization.
//
// Parameters:
//   - wireframe: true to start in wireframe mode
//
// Returns:
//   - FlatlanderBuilderOption: a function that applies the option to a Flatlander
func WithWireframe(wireframe bool) FlatlanderBuilderOption {
	return func(f *flatlander) {
		f.wireframe = wireframe
	}
}

// WithViewProjectionUniform overrides the uniform name looked up on the
// program for the per-frame view-projection matrix. Defaults to
// "ViewProjection"; when the program does not expose the uniform at all,
// Render simply skips setting it.
//
// Parameters:
//   - name: the uniform name to look up
//
// Returns:
//   - FlatlanderBuilderOption: a function that applies the option to a Flatlander
func WithViewProjectionUniform(name string) FlatlanderBuilderOption {
	return func(f *flatlander) {
		f.uniformName = name
	}
}

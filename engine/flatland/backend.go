package flatland

// Program is the shader program collaborator. The Flatlander looks up a
// single view-projection uniform by name at construction and skips setting
// it when the program does not expose it.
type Program interface {
	// SetUsed makes this program current for subsequent draw dispatch.
	SetUsed()

	// UniformLocation resolves a uniform by name.
	//
	// Parameters:
	//   - name: the uniform's name in the program
	//
	// Returns:
	//   - int32: the uniform's location handle
	//   - bool: false when the program does not expose the uniform
	UniformLocation(name string) (int32, bool)

	// SetUniformMatrix4fv uploads a column-major 4x4 matrix uniform.
	//
	// Parameters:
	//   - location: the uniform location from UniformLocation
	//   - matrix: the matrix value, column-major
	SetUniformMatrix4fv(location int32, matrix [16]float32)
}

// Target is the color/target buffer collaborator. Its calls bracket the draw
// dispatch; the Flatlander treats them as opaque side effects.
type Target interface {
	// SetDefaultBlendFunc applies the standard alpha blend function.
	SetDefaultBlendFunc()

	// FrontFaceCW selects clockwise front-face winding for the draw.
	FrontFaceCW()

	// FrontFaceCCW restores counter-clockwise front-face winding.
	FrontFaceCCW()

	// PolygonModeLine switches polygon rasterization to wireframe.
	PolygonModeLine()

	// PolygonModeFill restores filled polygon rasterization.
	PolygonModeFill()
}

// Backend is the graphics driver surface the buffer stage and Flatlander
// consume: buffer allocation and upload for the four shared buffers, and the
// two indirect dispatch entrypoints. Implementations are bound to a single
// rendering thread.
type Backend interface {
	// MultiDrawIndirectSupported reports whether the driver has a native
	// multi-draw-indirect entrypoint. Queried once at Flatlander
	// construction and treated as fixed for the process lifetime.
	//
	// Returns:
	//   - bool: true when MultiDrawIndirect covers all commands in one call
	MultiDrawIndirectSupported() bool

	// InitBuffers allocates the shared vertex, index, instance, and
	// indirect-command buffers. Called lazily before the first geometry
	// upload; never called when nothing has been registered.
	//
	// Returns:
	//   - error: an error if buffer allocation fails
	InitBuffers() error

	// UploadVertices replaces the shared vertex buffer contents.
	//
	// Parameters:
	//   - data: packed FlatVertex records
	UploadVertices(data []byte)

	// UploadIndices replaces the shared index buffer contents.
	//
	// Parameters:
	//   - data: packed little-endian uint16 indices
	UploadIndices(data []byte)

	// UploadInstances replaces the packed per-item instance buffer contents.
	//
	// Parameters:
	//   - data: packed GroupDrawData records
	UploadInstances(data []byte)

	// UploadCommands replaces the indirect-draw-command buffer contents.
	//
	// Parameters:
	//   - data: packed DrawIndirectCmd records, one per live group
	UploadCommands(data []byte)

	// BeginDraw binds vertex/index state and the command buffer and opens
	// the draw scope MultiDrawIndirect/DrawIndirect execute in.
	//
	// Returns:
	//   - error: an error if the draw scope could not be opened
	BeginDraw() error

	// MultiDrawIndirect issues one native call covering commandCount
	// consecutive records from the start of the command buffer.
	//
	// Parameters:
	//   - commandCount: number of DrawIndirectCmd records to execute
	MultiDrawIndirect(commandCount int)

	// DrawIndirect issues one indirect draw reading a single command record
	// at the given byte offset into the command buffer.
	//
	// Parameters:
	//   - offset: byte offset of the DrawIndirectCmd record
	DrawIndirect(offset uint64)

	// EndDraw closes the draw scope opened by BeginDraw and submits the
	// recorded work.
	EndDraw()
}

package flatland

import (
	_ "embed"
	"fmt"
	"runtime"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/monkeydioude/flatland-go/common"
)

//go:embed assets/flatland.wgsl
var flatlandShaderSource string

// viewProjectionUniform is the single uniform the flatland shader exposes.
const viewProjectionUniform = "ViewProjection"

// Initial buffer capacities in bytes. Uploads that exceed a buffer's
// capacity recreate it at the next power of two, so these only set the
// floor for small scenes.
const (
	initialVertexCap   = 64 * 1024
	initialIndexCap    = 32 * 1024
	initialInstanceCap = 16 * 1024
	initialIndirectCap = 4 * 1024
)

type wgpuBackendImpl struct {
	mu     *sync.Mutex
	device *wgpu.Device
	queue  *wgpu.Queue

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	surface  *wgpu.Surface

	surfaceFormat        *wgpu.TextureFormat
	renderPassDescriptor *wgpu.RenderPassDescriptor

	fillPipeline    *wgpu.RenderPipeline
	linePipeline    *wgpu.RenderPipeline
	bindGroupLayout *wgpu.BindGroupLayout
	bindGroup       *wgpu.BindGroup

	uniformBuffer  *wgpu.Buffer
	vertexBuffer   *wgpu.Buffer
	indexBuffer    *wgpu.Buffer
	instanceBuffer *wgpu.Buffer
	indirectBuffer *wgpu.Buffer

	vertexCap   uint64
	indexCap    uint64
	instanceCap uint64
	indirectCap uint64

	// Frame state for the draw scope opened by BeginDraw
	frameEncoder *wgpu.CommandEncoder
	framePass    *wgpu.RenderPassEncoder
	frameSurface *wgpu.Texture
	frameView    *wgpu.TextureView

	wireframe bool
}

// WGPUBackend is the WebGPU implementation of the flatland graphics surface.
// It satisfies Backend, Program, and Target at once: the shader program and
// target state are properties of its two cached pipelines, so the three
// collaborator roles collapse onto a single device-owning object. Pass the
// same value for all three NewFlatlander arguments.
type WGPUBackend interface {
	Backend
	Program
	Target

	// ConfigureSurface is a wrapper for boilerplate logic required when calling ConfigureSurface on a surface.
	// This is required when the surface size changes, such as when the window is resized.
	//
	// Parameters:
	//   - width: the new width of the surface in pixels
	//   - height: the new height of the surface in pixels
	ConfigureSurface(width, height int)

	// Device exposes the underlying wgpu device.
	//
	// Returns:
	//   - *wgpu.Device: the device this backend allocates against
	Device() *wgpu.Device

	// Queue exposes the underlying wgpu queue.
	//
	// Returns:
	//   - *wgpu.Queue: the queue this backend submits to
	Queue() *wgpu.Queue
}

var _ WGPUBackend = &wgpuBackendImpl{}

// NewWGPUBackend creates a WebGPU backend over the given surface. It locks
// the calling goroutine to its OS thread, requests an adapter and device,
// configures the surface, and builds the fill and wireframe pipeline
// variants up front. GPU buffers are not allocated here; the Flatlander
// triggers that lazily through InitBuffers on the first geometry upload.
//
// Parameters:
//   - surfaceDescriptor: the platform surface to render into
//   - width: initial surface width in pixels
//   - height: initial surface height in pixels
//
// Returns:
//   - WGPUBackend: the configured backend
func NewWGPUBackend(surfaceDescriptor *wgpu.SurfaceDescriptor, width, height int) WGPUBackend {
	runtime.LockOSThread()
	b := &wgpuBackendImpl{
		mu:       &sync.Mutex{},
		instance: wgpu.CreateInstance(nil),
	}
	b.surface = b.instance.CreateSurface(surfaceDescriptor)

	a, err := b.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		CompatibleSurface: b.surface,
	})
	if err != nil {
		panic(err)
	}
	b.adapter = a

	if !a.HasFeature(wgpu.FeatureNameIndirectFirstInstance) {
		panic("flatland: adapter does not support indirect-first-instance; indirect draws with a non-zero BaseInstance would be dropped")
	}

	d, err := a.RequestDevice(deviceDescriptor())
	if err != nil {
		panic(err)
	}
	b.device = d
	b.queue = d.GetQueue()

	b.ConfigureSurface(width, height)
	b.createPipelines()

	return b
}

// deviceDescriptor builds the device request for the flatland pipeline.
// The indirect-first-instance feature is required: every command record after
// the first group carries a non-zero BaseInstance, and without the feature the
// driver validates those indirect draws away as no-ops. The feature also
// guarantees instance_index in the shader starts at the record's firstInstance,
// which the per-item draw_data fetch relies on.
//
// Returns:
//   - *wgpu.DeviceDescriptor: the descriptor passed to RequestDevice
func deviceDescriptor() *wgpu.DeviceDescriptor {
	limits := wgpu.DefaultLimits()
	return &wgpu.DeviceDescriptor{
		Label: "Flatland Device",
		RequiredFeatures: []wgpu.FeatureName{
			wgpu.FeatureNameIndirectFirstInstance,
		},
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: limits,
		},
	}
}

func (b *wgpuBackendImpl) ConfigureSurface(width, height int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	capabilities := b.surface.GetCapabilities(b.adapter)
	b.surfaceFormat = &capabilities.Formats[0]

	b.surface.Configure(b.adapter, b.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      *b.surfaceFormat,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: wgpu.PresentModeFifo,
		AlphaMode:   capabilities.AlphaModes[0],
	})

	// Flat 2D content: single color attachment, no depth, no MSAA. The View
	// is set per-frame to the acquired swapchain view.
	b.renderPassDescriptor = &wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:    nil,
				LoadOp:  wgpu.LoadOpClear,
				StoreOp: wgpu.StoreOpStore,
				ClearValue: wgpu.Color{
					R: 0.1, G: 0.1, B: 0.1, A: 1.0,
				},
			},
		},
	}
}

// createPipelines builds the fill (triangle-list) and wireframe (line-list)
// pipeline variants from the embedded shader. Both share one bind group
// layout: the view-projection uniform at binding 0 and the read-only
// instance storage buffer at binding 1, vertex stage only.
func (b *wgpuBackendImpl) createPipelines() {
	shaderModule, err := b.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: "Flatland Shader",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: flatlandShaderSource,
		},
	})
	if err != nil {
		panic(err)
	}

	b.bindGroupLayout, err = b.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "Flatland Bind Group Layout",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageVertex,
				Buffer: wgpu.BufferBindingLayout{
					Type: wgpu.BufferBindingTypeUniform,
				},
			},
			{
				Binding:    1,
				Visibility: wgpu.ShaderStageVertex,
				Buffer: wgpu.BufferBindingLayout{
					Type: wgpu.BufferBindingTypeReadOnlyStorage,
				},
			},
		},
	})
	if err != nil {
		panic(err)
	}

	pipelineLayout, err := b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            "Flatland Pipeline Layout",
		BindGroupLayouts: []*wgpu.BindGroupLayout{b.bindGroupLayout},
	})
	if err != nil {
		panic(err)
	}

	vertexLayout := wgpu.VertexBufferLayout{
		ArrayStride: uint64(FlatVertexSize),
		StepMode:    wgpu.VertexStepModeVertex,
		Attributes: []wgpu.VertexAttribute{
			{
				Format:         wgpu.VertexFormatFloat32x2,
				Offset:         0,
				ShaderLocation: 0,
			},
		},
	}

	makePipeline := func(label string, topology wgpu.PrimitiveTopology) *wgpu.RenderPipeline {
		created, pipeErr := b.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
			Label:  label,
			Layout: pipelineLayout,
			Vertex: wgpu.VertexState{
				Module:     shaderModule,
				EntryPoint: "vs_main",
				Buffers:    []wgpu.VertexBufferLayout{vertexLayout},
			},
			Fragment: &wgpu.FragmentState{
				Module:     shaderModule,
				EntryPoint: "fs_main",
				Targets: []wgpu.ColorTargetState{
					{
						Format: *b.surfaceFormat,
						Blend: &wgpu.BlendState{
							Color: wgpu.BlendComponent{
								SrcFactor: wgpu.BlendFactorSrcAlpha,
								DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
								Operation: wgpu.BlendOperationAdd,
							},
							Alpha: wgpu.BlendComponent{
								SrcFactor: wgpu.BlendFactorOne,
								DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
								Operation: wgpu.BlendOperationAdd,
							},
						},
						WriteMask: wgpu.ColorWriteMaskAll,
					},
				},
			},
			Primitive: wgpu.PrimitiveState{
				Topology:  topology,
				FrontFace: wgpu.FrontFaceCCW,
				CullMode:  wgpu.CullModeNone,
			},
			Multisample: wgpu.MultisampleState{
				Count: 1,
				Mask:  0xFFFFFFFF,
			},
		})
		if pipeErr != nil {
			panic(pipeErr)
		}
		return created
	}

	b.fillPipeline = makePipeline("Flatland Fill Pipeline", wgpu.PrimitiveTopologyTriangleList)
	// WebGPU has no polygon-mode switch; wireframe is approximated by
	// re-interpreting the index stream as line segments.
	b.linePipeline = makePipeline("Flatland Line Pipeline", wgpu.PrimitiveTopologyLineList)
}

func (b *wgpuBackendImpl) Device() *wgpu.Device {
	return b.device
}

func (b *wgpuBackendImpl) Queue() *wgpu.Queue {
	return b.queue
}

// MultiDrawIndirectSupported reports false: core WebGPU exposes only the
// single-record DrawIndexedIndirect entrypoint, so the caller falls back to
// looping over command records.
func (b *wgpuBackendImpl) MultiDrawIndirectSupported() bool {
	return false
}

func (b *wgpuBackendImpl) InitBuffers() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	uniform, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Flatland Uniform Buffer",
		Size:  64,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return err
	}
	b.uniformBuffer = uniform

	b.vertexBuffer, err = b.createDataBuffer("Flatland Vertex Buffer", initialVertexCap, wgpu.BufferUsageVertex)
	if err != nil {
		return err
	}
	b.vertexCap = initialVertexCap

	b.indexBuffer, err = b.createDataBuffer("Flatland Index Buffer", initialIndexCap, wgpu.BufferUsageIndex)
	if err != nil {
		return err
	}
	b.indexCap = initialIndexCap

	b.instanceBuffer, err = b.createDataBuffer("Flatland Instance Buffer", initialInstanceCap, wgpu.BufferUsageStorage)
	if err != nil {
		return err
	}
	b.instanceCap = initialInstanceCap

	b.indirectBuffer, err = b.createDataBuffer("Flatland Indirect Buffer", initialIndirectCap, wgpu.BufferUsageIndirect)
	if err != nil {
		return err
	}
	b.indirectCap = initialIndirectCap

	return b.rebuildBindGroup()
}

func (b *wgpuBackendImpl) createDataBuffer(label string, size uint64, usage wgpu.BufferUsage) (*wgpu.Buffer, error) {
	return b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label,
		Size:  size,
		Usage: usage | wgpu.BufferUsageCopyDst,
	})
}

// rebuildBindGroup recreates the bind group over the current uniform and
// instance buffers. Required after the instance buffer is recreated for
// growth, since bind group entries reference the buffer object itself.
func (b *wgpuBackendImpl) rebuildBindGroup() error {
	if b.bindGroup != nil {
		b.bindGroup.Release()
		b.bindGroup = nil
	}

	bindGroup, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "Flatland Bind Group",
		Layout: b.bindGroupLayout,
		Entries: []wgpu.BindGroupEntry{
			{
				Binding: 0,
				Buffer:  b.uniformBuffer,
				Offset:  0,
				Size:    wgpu.WholeSize,
			},
			{
				Binding: 1,
				Buffer:  b.instanceBuffer,
				Offset:  0,
				Size:    wgpu.WholeSize,
			},
		},
	})
	if err != nil {
		return err
	}
	b.bindGroup = bindGroup
	return nil
}

// ensureCapacity grows buf to hold need bytes, doubling from cap. The old
// buffer is released; the returned capacity replaces cap. Growth invalidates
// any bind group referencing the old buffer.
func (b *wgpuBackendImpl) ensureCapacity(buf **wgpu.Buffer, capacity *uint64, need uint64, label string, usage wgpu.BufferUsage) error {
	if need <= *capacity {
		return nil
	}
	grown := *capacity
	if grown == 0 {
		grown = 256
	}
	for grown < need {
		grown *= 2
	}

	created, err := b.createDataBuffer(label, grown, usage)
	if err != nil {
		return err
	}
	if *buf != nil {
		(*buf).Release()
	}
	*buf = created
	*capacity = grown
	return nil
}

func (b *wgpuBackendImpl) UploadVertices(data []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.ensureCapacity(&b.vertexBuffer, &b.vertexCap, uint64(len(data)), "Flatland Vertex Buffer", wgpu.BufferUsageVertex); err != nil {
		panic(err)
	}
	b.writeBuffer(b.vertexBuffer, data)
}

func (b *wgpuBackendImpl) UploadIndices(data []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.ensureCapacity(&b.indexBuffer, &b.indexCap, uint64(len(data)), "Flatland Index Buffer", wgpu.BufferUsageIndex); err != nil {
		panic(err)
	}
	b.writeBuffer(b.indexBuffer, data)
}

func (b *wgpuBackendImpl) UploadInstances(data []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()

	before := b.instanceBuffer
	if err := b.ensureCapacity(&b.instanceBuffer, &b.instanceCap, uint64(len(data)), "Flatland Instance Buffer", wgpu.BufferUsageStorage); err != nil {
		panic(err)
	}
	if b.instanceBuffer != before {
		if err := b.rebuildBindGroup(); err != nil {
			panic(err)
		}
	}
	b.writeBuffer(b.instanceBuffer, data)
}

func (b *wgpuBackendImpl) UploadCommands(data []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.ensureCapacity(&b.indirectBuffer, &b.indirectCap, uint64(len(data)), "Flatland Indirect Buffer", wgpu.BufferUsageIndirect); err != nil {
		panic(err)
	}
	b.writeBuffer(b.indirectBuffer, data)
}

// writeBuffer queues a full-content write, padding to the 4-byte multiple
// WriteBuffer requires. Uint16 index uploads can otherwise end on a 2-byte
// boundary.
func (b *wgpuBackendImpl) writeBuffer(buf *wgpu.Buffer, data []byte) {
	if len(data) == 0 {
		return
	}
	if rem := len(data) % 4; rem != 0 {
		padded := make([]byte, len(data)+4-rem)
		copy(padded, data)
		data = padded
	}
	b.queue.WriteBuffer(buf, 0, data)
}

func (b *wgpuBackendImpl) BeginDraw() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	// Only one surface texture may be held at a time; acquiring a second
	// before Present trips wgpu-native validation.
	if b.frameSurface != nil {
		return fmt.Errorf("previous frame surface not yet presented")
	}

	surfaceTexture, err := b.surface.GetCurrentTexture()
	if err != nil {
		return err
	}

	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		surfaceTexture.Release()
		return err
	}

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		view.Release()
		surfaceTexture.Release()
		return err
	}

	b.renderPassDescriptor.ColorAttachments[0].View = view
	pass := encoder.BeginRenderPass(b.renderPassDescriptor)

	pass.SetPipeline(b.currentPipeline())
	pass.SetBindGroup(0, b.bindGroup, nil)
	pass.SetVertexBuffer(0, b.vertexBuffer, 0, wgpu.WholeSize)
	pass.SetIndexBuffer(b.indexBuffer, wgpu.IndexFormatUint16, 0, wgpu.WholeSize)

	b.frameEncoder = encoder
	b.framePass = pass
	b.frameSurface = surfaceTexture
	b.frameView = view

	return nil
}

func (b *wgpuBackendImpl) currentPipeline() *wgpu.RenderPipeline {
	if b.wireframe {
		return b.linePipeline
	}
	return b.fillPipeline
}

func (b *wgpuBackendImpl) MultiDrawIndirect(commandCount int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.framePass == nil {
		return
	}

	// No native multi-draw entrypoint in core WebGPU; kept for interface
	// completeness and encoded as consecutive single indirect draws.
	for i := 0; i < commandCount; i++ {
		b.framePass.DrawIndexedIndirect(b.indirectBuffer, uint64(i)*DrawIndirectCmdSize)
	}
}

func (b *wgpuBackendImpl) DrawIndirect(offset uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.framePass == nil {
		return
	}
	b.framePass.DrawIndexedIndirect(b.indirectBuffer, offset)
}

func (b *wgpuBackendImpl) EndDraw() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.framePass == nil {
		return
	}

	b.framePass.End()

	commandBuffer, err := b.frameEncoder.Finish(nil)
	if err == nil {
		b.queue.Submit(commandBuffer)
		commandBuffer.Release()
	}
	b.frameEncoder.Release()
	b.frameEncoder = nil
	b.framePass = nil

	b.surface.Present()

	b.frameView.Release()
	b.frameView = nil
	b.frameSurface.Release()
	b.frameSurface = nil
}

func (b *wgpuBackendImpl) SetUsed() {
	// The program is the pipeline pair; binding happens when BeginDraw sets
	// the pipeline on the pass.
}

func (b *wgpuBackendImpl) UniformLocation(name string) (int32, bool) {
	if name == viewProjectionUniform {
		return 0, true
	}
	return 0, false
}

func (b *wgpuBackendImpl) SetUniformMatrix4fv(location int32, matrix [16]float32) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.uniformBuffer == nil {
		return
	}
	b.queue.WriteBuffer(b.uniformBuffer, 0, common.SliceToBytes(matrix[:]))
}

func (b *wgpuBackendImpl) SetDefaultBlendFunc() {
	// Standard alpha blending is baked into both pipeline variants.
}

func (b *wgpuBackendImpl) FrontFaceCW() {
	// Winding has no rasterization effect with CullModeNone; both pipeline
	// variants are built cull-free so flat geometry draws from either side.
}

func (b *wgpuBackendImpl) FrontFaceCCW() {}

func (b *wgpuBackendImpl) PolygonModeLine() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.wireframe = true
	if b.framePass != nil {
		b.framePass.SetPipeline(b.linePipeline)
	}
}

func (b *wgpuBackendImpl) PolygonModeFill() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.wireframe = false
	if b.framePass != nil {
		b.framePass.SetPipeline(b.fillPipeline)
	}
}

package tessellate

// BatcherBuilderOption is a functional option for configuring a batcher.
// Use the With* functions to create options.
type BatcherBuilderOption func(b *batcher)

// WithWorkers sets the worker pool size used for concurrent tessellation.
// Defaults to runtime.NumCPU()-1. Values below 1 are clamped to 1.
//
// Parameters:
//   - n: number of pool workers
//
// Returns:
//   - BatcherBuilderOption: option function to apply
func WithWorkers(n int) BatcherBuilderOption {
	return func(b *batcher) {
		if n < 1 {
			n = 1
		}
		b.workers = n
	}
}

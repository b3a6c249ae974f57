// Package compute provides the buffer backends behind the state buffer.
//
// The backend is selected once from the GPU-capability flag:
//
//   - CUDA: pinned, host-mapped allocations and asynchronous copies
//   - CPU: ordinary heap allocations, copies complete immediately
//
// # Device Operations
//
// Asynchronous copies return a [Fence]. The host must Wait on it before it
// reads the destination; the state buffer enforces this on its views:
//
//	backend := compute.Select(cfg.UseGPU, logger)
//	fence := backend.CopyAsync(dst, src)
//	view.Enqueue(fence)
//	if err := view.Sync(); err != nil { ... }
//
// Build with CUDA support:
//
//	go build -tags cuda ./...
package compute

package compute

import (
	"log/slog"

	"github.com/san-kum/modsim/internal/dynamo"
)

type Backend interface {
	Name() string
	Available() bool
	// Pinned reports whether Alloc returns host-mapped memory suitable for
	// device transfer.
	Pinned() bool
	Alloc(n int) []dynamo.RVec
	// CopyAsync copies src into dst. The copy is only guaranteed complete once
	// the returned fence has been waited on.
	CopyAsync(dst, src []dynamo.RVec) Fence
	Cleanup()
}

// Fence is an in-flight device operation.
type Fence interface {
	Wait() error
}

// FenceFunc adapts a function to a Fence.
type FenceFunc func() error

func (f FenceFunc) Wait() error { return f() }

// Completed is a fence that has already signalled.
var Completed Fence = FenceFunc(func() error { return nil })

// Select returns the CUDA backend when useGPU is set and a device is present,
// otherwise the CPU backend.
func Select(useGPU bool, logger *slog.Logger) Backend {
	if logger == nil {
		logger = slog.Default()
	}
	if !useGPU {
		return NewCPUBackend()
	}
	cuda := NewCUDABackend()
	if cuda.Available() {
		logger.Info("using gpu buffers", "backend", cuda.Name())
		return cuda
	}
	logger.Warn("gpu requested but no device available, falling back to cpu")
	return NewCPUBackend()
}

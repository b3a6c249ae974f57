package compute

import (
	"github.com/san-kum/modsim/internal/dynamo"
)

// copyChunk is the smallest range worth handing to another goroutine.
const copyChunk = 4096

type CPUBackend struct{}

func NewCPUBackend() *CPUBackend {
	return &CPUBackend{}
}

func (c *CPUBackend) Name() string    { return "cpu" }
func (c *CPUBackend) Available() bool { return true }
func (c *CPUBackend) Pinned() bool    { return false }
func (c *CPUBackend) Cleanup()        {}

func (c *CPUBackend) Alloc(n int) []dynamo.RVec {
	return make([]dynamo.RVec, n)
}

func (c *CPUBackend) CopyAsync(dst, src []dynamo.RVec) Fence {
	n := len(src)
	if len(dst) < n {
		n = len(dst)
	}
	dynamo.ParallelFor(n, copyChunk, func(start, end int) {
		copy(dst[start:end], src[start:end])
	})
	return Completed
}

//go:build !cuda

package compute

import "github.com/san-kum/modsim/internal/dynamo"

type CUDABackend struct{}

func NewCUDABackend() *CUDABackend {
	return &CUDABackend{}
}

func (c *CUDABackend) Name() string    { return "cuda (not available)" }
func (c *CUDABackend) Available() bool { return false }
func (c *CUDABackend) Pinned() bool    { return false }
func (c *CUDABackend) Cleanup()        {}

func (c *CUDABackend) Alloc(n int) []dynamo.RVec {
	return NewCPUBackend().Alloc(n)
}

func (c *CUDABackend) CopyAsync(dst, src []dynamo.RVec) Fence {
	return NewCPUBackend().CopyAsync(dst, src)
}

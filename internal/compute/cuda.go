//go:build cuda

package compute

/*
#cgo CFLAGS: -I/opt/cuda/include
#cgo LDFLAGS: -L/opt/cuda/lib64 -lcudart
#include <stdlib.h>
#include <string.h>
#include <cuda_runtime.h>
*/
import "C"

import (
	"fmt"
	"unsafe"

	"github.com/san-kum/modsim/internal/dynamo"
)

const rvecBytes = C.size_t(unsafe.Sizeof(dynamo.RVec{}))

type CUDABackend struct {
	available  bool
	deviceName string
	stream     C.cudaStream_t
	pinned     []unsafe.Pointer
}

func NewCUDABackend() *CUDABackend {
	var count C.int
	if C.cudaGetDeviceCount(&count) != C.cudaSuccess || count == 0 {
		return &CUDABackend{}
	}
	var prop C.struct_cudaDeviceProp
	C.cudaGetDeviceProperties(&prop, 0)
	b := &CUDABackend{
		available:  true,
		deviceName: C.GoString(&prop.name[0]),
	}
	C.cudaStreamCreate(&b.stream)
	return b
}

func (c *CUDABackend) Name() string {
	if c.available {
		return "cuda (" + c.deviceName + ")"
	}
	return "cuda (not available)"
}

func (c *CUDABackend) Available() bool { return c.available }
func (c *CUDABackend) Pinned() bool    { return c.available }

func (c *CUDABackend) Alloc(n int) []dynamo.RVec {
	if !c.available || n == 0 {
		return NewCPUBackend().Alloc(n)
	}
	var p unsafe.Pointer
	if C.cudaHostAlloc(&p, C.size_t(n)*rvecBytes, C.cudaHostAllocMapped) != C.cudaSuccess {
		return NewCPUBackend().Alloc(n)
	}
	C.memset(p, 0, C.size_t(n)*rvecBytes)
	c.pinned = append(c.pinned, p)
	return unsafe.Slice((*dynamo.RVec)(p), n)
}

func (c *CUDABackend) CopyAsync(dst, src []dynamo.RVec) Fence {
	n := len(src)
	if len(dst) < n {
		n = len(dst)
	}
	if !c.available || n == 0 {
		return NewCPUBackend().CopyAsync(dst, src)
	}
	rc := C.cudaMemcpyAsync(unsafe.Pointer(&dst[0]), unsafe.Pointer(&src[0]),
		C.size_t(n)*rvecBytes, C.cudaMemcpyDefault, c.stream)
	if rc != C.cudaSuccess {
		err := fmt.Errorf("compute: cudaMemcpyAsync: %s", C.GoString(C.cudaGetErrorString(rc)))
		return FenceFunc(func() error { return err })
	}
	stream := c.stream
	return FenceFunc(func() error {
		if rc := C.cudaStreamSynchronize(stream); rc != C.cudaSuccess {
			return fmt.Errorf("compute: stream sync: %s", C.GoString(C.cudaGetErrorString(rc)))
		}
		return nil
	})
}

func (c *CUDABackend) Cleanup() {
	for _, p := range c.pinned {
		C.cudaFreeHost(p)
	}
	c.pinned = nil
	if c.available {
		C.cudaStreamDestroy(c.stream)
	}
}

package engine

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/honeycomb"
	"github.com/wippyai/honeycomb/errors"
)

// CabiRealloc is the canonical allocator export adapters provide.
const CabiRealloc = "cabi_realloc"

var (
	_ honeycomb.Memory    = (*guestMemory)(nil)
	_ honeycomb.Allocator = (*allocator)(nil)
)

// guestMemory wraps a module's linear memory.
type guestMemory struct {
	mem api.Memory
}

func (m *guestMemory) Read(offset uint32, length uint32) ([]byte, error) {
	data, ok := m.mem.Read(offset, length)
	if !ok {
		return nil, fmt.Errorf("read out of bounds: offset=%d, length=%d", offset, length)
	}
	return data, nil
}

func (m *guestMemory) Write(offset uint32, data []byte) error {
	if !m.mem.Write(offset, data) {
		return fmt.Errorf("write out of bounds: offset=%d, length=%d", offset, len(data))
	}
	return nil
}

func (m *guestMemory) ReadU32(offset uint32) (uint32, error) {
	v, ok := m.mem.ReadUint32Le(offset)
	if !ok {
		return 0, fmt.Errorf("read out of bounds: offset=%d, length=4", offset)
	}
	return v, nil
}

func (m *guestMemory) WriteU32(offset uint32, value uint32) error {
	if !m.mem.WriteUint32Le(offset, value) {
		return fmt.Errorf("write out of bounds: offset=%d, length=4", offset)
	}
	return nil
}

func (m *guestMemory) Size() uint32 {
	return m.mem.Size()
}

// allocator calls cabi_realloc(old_ptr, old_size, align, new_size).
// A new size of zero frees. An Env is used by one goroutine, so the call
// stack buffer is not guarded.
type allocator struct {
	realloc api.Function
	stack   [4]uint64
}

func newAllocator(mod api.Module) *allocator {
	fn := mod.ExportedFunction(CabiRealloc)
	if fn == nil {
		return nil
	}
	def := fn.Definition()
	if len(def.ParamTypes()) != 4 || len(def.ResultTypes()) != 1 {
		return nil
	}
	return &allocator{realloc: fn}
}

func (a *allocator) Alloc(ctx context.Context, size, align uint32) (uint32, error) {
	if a == nil {
		return 0, errors.New(errors.PhaseCall, errors.KindMissingAllocator).
			Detail("adapter module does not export %s", CabiRealloc).
			Build()
	}
	a.stack = [4]uint64{0, 0, uint64(align), uint64(size)}
	if err := a.realloc.CallWithStack(ctx, a.stack[:]); err != nil {
		return 0, err
	}
	ptr := uint32(a.stack[0])
	if ptr == 0 && size > 0 {
		return 0, fmt.Errorf("%s returned null for %d bytes", CabiRealloc, size)
	}
	return ptr, nil
}

func (a *allocator) Free(ctx context.Context, ptr, size, align uint32) error {
	if a == nil || ptr == 0 {
		return nil
	}
	a.stack = [4]uint64{uint64(ptr), uint64(size), uint64(align), 0}
	return a.realloc.CallWithStack(ctx, a.stack[:])
}

// guestString is a string lowered into adapter memory for one call.
// Dropping it frees the allocation.
type guestString struct {
	ctx   context.Context
	alloc honeycomb.Allocator
	log   *zap.Logger
	ptr   uint32
	size  uint32
}

func (s *guestString) Drop() {
	if err := s.alloc.Free(s.ctx, s.ptr, s.size, 1); err != nil {
		s.log.Warn("failed to free string argument",
			zap.Uint32("ptr", s.ptr),
			zap.Uint32("size", s.size),
			zap.Error(err))
	}
}

package honeycomb

import "context"

// Memory represents an adapter module's linear memory.
type Memory interface {
	Read(offset uint32, length uint32) ([]byte, error)
	Write(offset uint32, data []byte) error
	ReadU32(offset uint32) (uint32, error)
	WriteU32(offset uint32, value uint32) error
	Size() uint32
}

// Allocator allocates memory inside an adapter module.
type Allocator interface {
	Alloc(ctx context.Context, size, align uint32) (uint32, error)
	Free(ctx context.Context, ptr, size, align uint32) error
}

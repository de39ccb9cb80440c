package allocator

import "math"

// PageID identifies a page handed out by a PageSource.
type PageID uint32

// Page ...
type Page struct {
	ID   PageID
	Data []byte
}

// PageSource supplies and reclaims fixed-size pages.
// Data of a returned page is PageSize() bytes, 8-byte aligned and not zeroed.
type PageSource interface {
	PageSize() uint32
	GetPage() (Page, error)
	FreePage(id PageID) error
}

// Addr is a block address: the page it lives in and the byte offset inside that page.
type Addr uint64

// NullAddr ...
const NullAddr Addr = math.MaxUint64

// MakeAddr ...
func MakeAddr(page PageID, offset uint32) Addr {
	return Addr(uint64(page)<<32 | uint64(offset))
}

// Page ...
func (a Addr) Page() PageID {
	return PageID(a >> 32)
}

// Offset ...
func (a Addr) Offset() uint32 {
	return uint32(a)
}

// Allocator is the contract shared by the buddy and the resource-map allocators.
type Allocator interface {
	// Allocate returns the address of a writable region of at least size bytes.
	Allocate(size uint32) (Addr, error)

	// Deallocate releases a region returned by Allocate. size must be the value
	// passed to Allocate, anything else corrupts the allocator state.
	Deallocate(addr Addr, size uint32) error

	// Bytes returns the n bytes of memory starting at addr.
	Bytes(addr Addr, n uint32) []byte

	// Footprint is the number of bytes reserved for a request of this size.
	Footprint(size uint32) uint32
}

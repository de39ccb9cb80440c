package allocator

import (
	"errors"
	"fmt"
	"log/slog"
	"unsafe"
)

// ResourceMap is a first-fit allocator keeping an address-ordered list of
// free extents. Adjacent extents are merged on free and a page whose whole
// usable area is free goes back to the source.
type ResourceMap struct {
	source   PageSource
	logger   *slog.Logger
	pageSize uint32
	pages    pageTable
	head     Addr
}

type extentNode struct {
	next Addr
	size uint32
	_    uint32
}

const extentNodeSize = uint32(unsafe.Sizeof(extentNode{}))

// Extents start after the back-pointer, padded to the extent granularity.
const extentOrigin = extentNodeSize

var _ Allocator = &ResourceMap{}

// NewResourceMap ...
func NewResourceMap(source PageSource, logger *slog.Logger) *ResourceMap {
	pageSize := source.PageSize()
	if pageSize <= 2*extentOrigin || pageSize%extentNodeSize != 0 || pageSize > 1<<31 {
		panic(fmt.Sprintf("page size %d out of range", pageSize))
	}
	return &ResourceMap{
		source:   source,
		logger:   loggerOrDiscard(logger),
		pageSize: pageSize,
		pages:    newPageTable(pageSize),
		head:     NullAddr,
	}
}

func (r *ResourceMap) node(addr Addr) *extentNode {
	return (*extentNode)(r.pages.toRealAddr(addr))
}

func (r *ResourceMap) roundUp(size uint32) uint32 {
	mask := extentNodeSize - 1
	return (size + mask) &^ mask
}

func (r *ResourceMap) usable() uint32 {
	return r.pageSize - extentOrigin
}

// Pages is the number of pages currently held.
func (r *ResourceMap) Pages() int {
	return r.pages.len()
}

// Bytes ...
func (r *ResourceMap) Bytes(addr Addr, n uint32) []byte {
	return r.pages.bytes(addr, n)
}

// Footprint ...
func (r *ResourceMap) Footprint(size uint32) uint32 {
	return r.roundUp(size)
}

func (r *ResourceMap) contents() []Block {
	var result []Block
	for addr := r.head; addr != NullAddr; addr = r.node(addr).next {
		result = append(result, Block{Offset: addr.Offset(), Size: r.node(addr).size})
	}
	return result
}

// Allocate ...
func (r *ResourceMap) Allocate(size uint32) (Addr, error) {
	if size == 0 {
		return NullAddr, ErrZeroSize
	}
	if size > r.usable() {
		return NullAddr, fmt.Errorf("request of %d bytes: %w", size, ErrTooLarge)
	}
	need := r.roundUp(size)

	link := &r.head
	for *link != NullAddr {
		addr := *link
		n := r.node(addr)
		if n.size < need {
			link = &n.next
			continue
		}

		if n.size == need {
			*link = n.next
			return addr, nil
		}

		rest := addr + Addr(need)
		restNode := r.node(rest)
		restNode.next = n.next
		restNode.size = n.size - need
		*link = rest
		return addr, nil
	}

	return r.allocateFromNewPage(need)
}

func (r *ResourceMap) allocateFromNewPage(need uint32) (Addr, error) {
	page, err := r.source.GetPage()
	if err != nil {
		if !errors.Is(err, ErrPageSourceExhausted) {
			err = fmt.Errorf("%w: %v", ErrPageSourceExhausted, err)
		}
		return NullAddr, fmt.Errorf("allocate page: %w", err)
	}
	r.pages.add(page)
	r.logger.Debug("resource map: page added", "page", page.ID)

	addr := MakeAddr(page.ID, extentOrigin)
	if need < r.usable() {
		r.insert(addr+Addr(need), r.usable()-need)
	}
	return addr, nil
}

// insert links a free extent in address order, merges it with its neighbours
// and returns the address of the extent that now contains it.
func (r *ResourceMap) insert(addr Addr, size uint32) Addr {
	prev := NullAddr
	link := &r.head
	for *link != NullAddr && *link < addr {
		prev = *link
		link = &r.node(prev).next
	}

	n := r.node(addr)
	n.next = *link
	n.size = size
	*link = addr

	if n.next != NullAddr && n.next == addr+Addr(n.size) {
		next := r.node(n.next)
		n.size += next.size
		n.next = next.next
	}

	if prev != NullAddr {
		p := r.node(prev)
		if prev+Addr(p.size) == addr {
			p.size += n.size
			p.next = n.next
			return prev
		}
	}
	return addr
}

func (r *ResourceMap) unlink(addr Addr) {
	link := &r.head
	for *link != NullAddr {
		if *link == addr {
			*link = r.node(addr).next
			return
		}
		link = &r.node(*link).next
	}
	panic(fmt.Sprintf("extent %x is not on the free list", uint64(addr)))
}

// Deallocate ...
func (r *ResourceMap) Deallocate(addr Addr, size uint32) error {
	if size == 0 {
		return ErrZeroSize
	}

	merged := r.insert(addr, r.roundUp(size))
	if merged.Offset() != extentOrigin || r.node(merged).size != r.usable() {
		return nil
	}

	r.unlink(merged)
	data := r.pages.data(merged.Page())
	id := readBackPointer(data)
	r.pages.remove(id)
	r.logger.Debug("resource map: page returned", "page", id)

	if err := r.source.FreePage(id); err != nil {
		return fmt.Errorf("return page %d: %w", id, err)
	}
	return nil
}

package allocator

import (
	"fmt"
	"unsafe"
)

// pageTable maps the pages an allocator currently holds to their memory.
type pageTable struct {
	pageSize uint32
	pages    map[PageID][]byte
}

func newPageTable(pageSize uint32) pageTable {
	return pageTable{
		pageSize: pageSize,
		pages:    map[PageID][]byte{},
	}
}

func (t *pageTable) add(p Page) {
	if uint32(len(p.Data)) != t.pageSize {
		panic(fmt.Sprintf("page %d has %d bytes, expected %d", p.ID, len(p.Data), t.pageSize))
	}
	t.pages[p.ID] = p.Data
	writeBackPointer(p.Data, p.ID)
}

func (t *pageTable) remove(id PageID) {
	delete(t.pages, id)
}

func (t *pageTable) data(id PageID) []byte {
	data, ok := t.pages[id]
	if !ok {
		panic(fmt.Sprintf("page %d is not held by this allocator", id))
	}
	return data
}

func (t *pageTable) toRealAddr(addr Addr) unsafe.Pointer {
	data := t.data(addr.Page())
	return unsafe.Pointer(&data[addr.Offset()])
}

func (t *pageTable) bytes(addr Addr, n uint32) []byte {
	data := t.data(addr.Page())
	off := addr.Offset()
	return data[off : off+n : off+n]
}

func (t *pageTable) len() int {
	return len(t.pages)
}

// The first word of every page holds the ID the page source handed it out under.
const backPointerSize = 8

func writeBackPointer(data []byte, id PageID) {
	*(*uint64)(unsafe.Pointer(&data[0])) = uint64(id)
}

func readBackPointer(data []byte) PageID {
	return PageID(*(*uint64)(unsafe.Pointer(&data[0])))
}

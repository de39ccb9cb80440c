package allocator

import (
	"fmt"
	"unsafe"
)

// freeNode lives in the first bytes of every free block.
type freeNode struct {
	next  Addr
	class uint32
	_     uint32
}

const freeNodeSize = uint32(unsafe.Sizeof(freeNode{}))

// freeLists is the registry of singly linked free lists, one per size class.
// The heads are stored in the arena's header page.
type freeLists struct {
	pages *pageTable
	heads *[NumClasses]Addr
}

const freeListsSize = uint32(unsafe.Sizeof([NumClasses]Addr{}))

func headerFreeLists(pages *pageTable, header []byte) freeLists {
	return freeLists{
		pages: pages,
		heads: (*[NumClasses]Addr)(unsafe.Pointer(&header[backPointerSize])),
	}
}

func (l freeLists) init() {
	for i := range l.heads {
		l.heads[i] = NullAddr
	}
}

func (l freeLists) node(addr Addr) *freeNode {
	return (*freeNode)(l.pages.toRealAddr(addr))
}

func (l freeLists) isEmpty(class int) bool {
	return l.heads[class] == NullAddr
}

func (l freeLists) push(class int, addr Addr) {
	n := l.node(addr)
	n.next = l.heads[class]
	n.class = uint32(class)
	l.heads[class] = addr
}

func (l freeLists) pop(class int) (Addr, bool) {
	addr := l.heads[class]
	if addr == NullAddr {
		return NullAddr, false
	}
	n := l.node(addr)
	if n.class != uint32(class) {
		panic(fmt.Sprintf("free node %x has class %d on list %d", uint64(addr), n.class, class))
	}
	l.heads[class] = n.next
	return addr, true
}

// remove unlinks the node at addr from the list of class.
// It reports whether such a node was found.
func (l freeLists) remove(class int, addr Addr) bool {
	prev := &l.heads[class]
	for *prev != NullAddr {
		n := l.node(*prev)
		if *prev == addr {
			if n.class != uint32(class) {
				panic(fmt.Sprintf("free node %x has class %d on list %d", uint64(addr), n.class, class))
			}
			*prev = n.next
			return true
		}
		prev = &n.next
	}
	return false
}

// removePage unlinks every node that lies in page id, from all lists.
func (l freeLists) removePage(id PageID) int {
	count := 0
	for class := range l.heads {
		prev := &l.heads[class]
		for *prev != NullAddr {
			n := l.node(*prev)
			if (*prev).Page() == id {
				*prev = n.next
				count++
				continue
			}
			prev = &n.next
		}
	}
	return count
}

func (l freeLists) contents(class int) []Addr {
	var result []Addr
	for addr := l.heads[class]; addr != NullAddr; addr = l.node(addr).next {
		result = append(result, addr)
	}
	return result
}

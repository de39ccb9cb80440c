package allocator

import (
	"fmt"
	"unsafe"
)

// HeapSource is a PageSource whose pages are carved from the Go heap.
// Freed frames and their IDs are reused, like physical pages.
type HeapSource struct {
	pageSize uint32
	maxPages int

	frames  [][]uint64
	inUse   []bool
	freeIDs []PageID

	numInUse int
	numGets  int
	numFrees int
}

// NewHeapSource creates a heap page source. maxPages == 0 means no limit.
func NewHeapSource(pageSize uint32, maxPages int) *HeapSource {
	if pageSize == 0 || pageSize&7 != 0 {
		panic("pageSize must be a positive multiple of 8")
	}
	if maxPages < 0 {
		panic("maxPages must >= 0")
	}
	return &HeapSource{
		pageSize: pageSize,
		maxPages: maxPages,
	}
}

// PageSize ...
func (s *HeapSource) PageSize() uint32 {
	return s.pageSize
}

func (s *HeapSource) frameBytes(id PageID) []byte {
	frame := s.frames[id]
	return unsafe.Slice((*byte)(unsafe.Pointer(&frame[0])), s.pageSize)
}

// GetPage ...
func (s *HeapSource) GetPage() (Page, error) {
	if s.maxPages > 0 && s.numInUse >= s.maxPages {
		return Page{}, fmt.Errorf("heap source: %d pages in use: %w", s.numInUse, ErrPageSourceExhausted)
	}

	var id PageID
	if n := len(s.freeIDs); n > 0 {
		id = s.freeIDs[n-1]
		s.freeIDs = s.freeIDs[:n-1]
	} else {
		id = PageID(len(s.frames))
		s.frames = append(s.frames, make([]uint64, s.pageSize>>3))
		s.inUse = append(s.inUse, false)
	}

	s.inUse[id] = true
	s.numInUse++
	s.numGets++
	return Page{ID: id, Data: s.frameBytes(id)}, nil
}

// FreePage ...
func (s *HeapSource) FreePage(id PageID) error {
	if int(id) >= len(s.inUse) || !s.inUse[id] {
		return fmt.Errorf("heap source: page %d: %w", id, ErrUnknownPage)
	}
	s.inUse[id] = false
	s.freeIDs = append(s.freeIDs, id)
	s.numInUse--
	s.numFrees++
	return nil
}

// InUse returns the number of pages currently handed out.
func (s *HeapSource) InUse() int {
	return s.numInUse
}

// Gets ...
func (s *HeapSource) Gets() int {
	return s.numGets
}

// Frees ...
func (s *HeapSource) Frees() int {
	return s.numFrees
}

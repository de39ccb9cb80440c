//go:build linux || darwin

package allocator

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// MmapSource is a PageSource that maps every page anonymously from the OS.
type MmapSource struct {
	pageSize uint32
	maxPages int
	nextID   PageID
	pages    map[PageID][]byte
}

// NewMmapSource creates an mmap page source. pageSize must be a multiple of
// the OS page size, maxPages == 0 means no limit.
func NewMmapSource(pageSize uint32, maxPages int) (*MmapSource, error) {
	osPage := uint32(os.Getpagesize())
	if pageSize == 0 || pageSize%osPage != 0 {
		return nil, fmt.Errorf("mmap source: page size %d is not a multiple of %d", pageSize, osPage)
	}
	if maxPages < 0 {
		return nil, fmt.Errorf("mmap source: negative page limit %d", maxPages)
	}
	return &MmapSource{
		pageSize: pageSize,
		maxPages: maxPages,
		pages:    map[PageID][]byte{},
	}, nil
}

// PageSize ...
func (s *MmapSource) PageSize() uint32 {
	return s.pageSize
}

// GetPage ...
func (s *MmapSource) GetPage() (Page, error) {
	if s.maxPages > 0 && len(s.pages) >= s.maxPages {
		return Page{}, fmt.Errorf("mmap source: %d pages mapped: %w", len(s.pages), ErrPageSourceExhausted)
	}

	data, err := unix.Mmap(-1, 0, int(s.pageSize), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return Page{}, fmt.Errorf("mmap source: %v: %w", err, ErrPageSourceExhausted)
	}

	id := s.nextID
	s.nextID++
	s.pages[id] = data
	return Page{ID: id, Data: data}, nil
}

// FreePage ...
func (s *MmapSource) FreePage(id PageID) error {
	data, ok := s.pages[id]
	if !ok {
		return fmt.Errorf("mmap source: page %d: %w", id, ErrUnknownPage)
	}
	delete(s.pages, id)
	if err := unix.Munmap(data); err != nil {
		return fmt.Errorf("mmap source: munmap page %d: %w", id, err)
	}
	return nil
}

// InUse ...
func (s *MmapSource) InUse() int {
	return len(s.pages)
}

// Close unmaps every page still handed out.
func (s *MmapSource) Close() error {
	var first error
	for id, data := range s.pages {
		delete(s.pages, id)
		if err := unix.Munmap(data); err != nil && first == nil {
			first = err
		}
	}
	return first
}

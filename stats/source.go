package stats

import (
	"github.com/QuangTung97/kma/allocator"
)

// CountingSource is a PageSource that counts the pages passing through it.
type CountingSource struct {
	source allocator.PageSource

	gets   uint64
	frees  uint64
	inUse  uint64
	peak   uint64
	failed uint64
}

var _ allocator.PageSource = &CountingSource{}

// NewCountingSource ...
func NewCountingSource(source allocator.PageSource) *CountingSource {
	return &CountingSource{source: source}
}

// PageSize ...
func (s *CountingSource) PageSize() uint32 {
	return s.source.PageSize()
}

// GetPage ...
func (s *CountingSource) GetPage() (allocator.Page, error) {
	page, err := s.source.GetPage()
	if err != nil {
		s.failed++
		return page, err
	}
	s.gets++
	s.inUse++
	if s.inUse > s.peak {
		s.peak = s.inUse
	}
	return page, nil
}

// FreePage ...
func (s *CountingSource) FreePage(id allocator.PageID) error {
	if err := s.source.FreePage(id); err != nil {
		return err
	}
	s.frees++
	s.inUse--
	return nil
}

// PageStats is a copy of the counters of a CountingSource.
type PageStats struct {
	PageSize uint32
	Gets     uint64
	Frees    uint64
	InUse    uint64
	Peak     uint64
	Failed   uint64
}

// Stats ...
func (s *CountingSource) Stats() PageStats {
	return PageStats{
		PageSize: s.source.PageSize(),
		Gets:     s.gets,
		Frees:    s.frees,
		InUse:    s.inUse,
		Peak:     s.peak,
		Failed:   s.failed,
	}
}

package allocator

import (
	"fmt"
	"io"
	"log/slog"
)

// Config ...
type Config struct {
	PageSize     uint32
	MinBlockSize uint32

	// Logger receives page lifecycle events at debug level. Nil discards them.
	Logger *slog.Logger
}

// DefaultConfig ...
func DefaultConfig() Config {
	return Config{
		PageSize:     8192,
		MinBlockSize: 32,
	}
}

func isPowerOfTwo(v uint32) bool {
	return v != 0 && v&(v-1) == 0
}

// Validate ...
func (c Config) Validate() error {
	if !isPowerOfTwo(c.MinBlockSize) {
		return fmt.Errorf("MinBlockSize %d must be a power of two", c.MinBlockSize)
	}
	if c.MinBlockSize < freeNodeSize {
		return fmt.Errorf("MinBlockSize %d must >= %d", c.MinBlockSize, freeNodeSize)
	}
	if !isPowerOfTwo(c.PageSize) || c.PageSize > 1<<31 {
		return fmt.Errorf("PageSize %d must be a power of two <= 2^31", c.PageSize)
	}
	if c.PageSize < backPointerSize+freeListsSize {
		return fmt.Errorf("PageSize %d cannot hold the free list registry", c.PageSize)
	}
	g := newGeometry(c)
	if g.reservedUnits >= g.units/2 {
		return fmt.Errorf("PageSize %d is too small for a %d bytes page header", c.PageSize, g.reservedUnits*c.MinBlockSize)
	}
	return nil
}

func loggerOrDiscard(l *slog.Logger) *slog.Logger {
	if l != nil {
		return l
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Block ...
type Block struct {
	Offset uint32
	Size   uint32
}

type geometry struct {
	classes       sizeClasses
	pageSize      uint32
	units         uint32
	reservedUnits uint32
	carved        []Block
	maxCarve      uint32
}

func newGeometry(c Config) geometry {
	g := geometry{
		classes:  newSizeClasses(c.MinBlockSize),
		pageSize: c.PageSize,
		units:    c.PageSize / c.MinBlockSize,
	}

	header := backPointerSize + bitmapWords(g.units)*8
	g.reservedUnits = (header + c.MinBlockSize - 1) / c.MinBlockSize

	offset := g.reservedUnits * c.MinBlockSize
	for offset < c.PageSize {
		size := g.classes.maxSize()
		for size > c.MinBlockSize && (offset%size != 0 || offset+size > c.PageSize) {
			size >>= 1
		}
		g.carved = append(g.carved, Block{Offset: offset, Size: size})
		if size > g.maxCarve {
			g.maxCarve = size
		}
		offset += size
	}
	return g
}

func (g geometry) unitShift() uint32 {
	return g.classes.minSizeLog
}

// dedicated reports whether a request bypasses the size classes.
func (g geometry) dedicated(size uint32) bool {
	class, ok := g.classes.roundUp(size)
	return !ok || g.classes.classSize(class) > g.maxCarve
}

// Layout describes how a page is split into size classes and blocks.
type Layout struct {
	PageSize      uint32
	MinBlockSize  uint32
	ClassSizes    []uint32
	ReservedUnits uint32
	Carved        []Block
	MaxCarve      uint32
	MaxDedicated  uint32
}

// NewLayout ...
func NewLayout(c Config) Layout {
	g := newGeometry(c)
	sizes := make([]uint32, 0, NumClasses)
	for i := 0; i < NumClasses; i++ {
		sizes = append(sizes, g.classes.classSize(i))
	}
	return Layout{
		PageSize:      c.PageSize,
		MinBlockSize:  c.MinBlockSize,
		ClassSizes:    sizes,
		ReservedUnits: g.reservedUnits,
		Carved:        append([]Block(nil), g.carved...),
		MaxCarve:      g.maxCarve,
		MaxDedicated:  c.PageSize - backPointerSize,
	}
}

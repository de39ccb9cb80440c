package allocator

import (
	"errors"
	"fmt"
	"log/slog"
)

// Buddy is a buddy-system allocator over pages obtained from a PageSource.
// It is not safe for concurrent use.
type Buddy struct {
	source PageSource
	logger *slog.Logger
	geo    geometry
	pages  pageTable

	// header is the page hosting the free list registry, nil while the arena
	// is uninitialized.
	header []byte
	lists  freeLists

	blocks         map[PageID]struct{}
	dedicatedPages int
}

var _ Allocator = &Buddy{}

// NewBuddy ...
func NewBuddy(conf Config, source PageSource) *Buddy {
	if err := conf.Validate(); err != nil {
		panic(err.Error())
	}
	if source.PageSize() != conf.PageSize {
		panic(fmt.Sprintf("page source page size %d != PageSize %d", source.PageSize(), conf.PageSize))
	}
	return &Buddy{
		source: source,
		logger: loggerOrDiscard(conf.Logger),
		geo:    newGeometry(conf),
		pages:  newPageTable(conf.PageSize),
		blocks: map[PageID]struct{}{},
	}
}

// Initialized reports whether the arena currently holds its header page.
func (b *Buddy) Initialized() bool {
	return b.header != nil
}

// BlockPages is the number of pages carved into blocks.
func (b *Buddy) BlockPages() int {
	return len(b.blocks)
}

// DedicatedPages is the number of pages serving a single oversize request.
func (b *Buddy) DedicatedPages() int {
	return b.dedicatedPages
}

// Bytes ...
func (b *Buddy) Bytes(addr Addr, n uint32) []byte {
	return b.pages.bytes(addr, n)
}

// Footprint ...
func (b *Buddy) Footprint(size uint32) uint32 {
	if size == 0 {
		return 0
	}
	if b.geo.dedicated(size) {
		return b.geo.pageSize
	}
	class, _ := b.geo.classes.roundUp(size)
	return b.geo.classes.classSize(class)
}

func (b *Buddy) getPage() (Page, error) {
	page, err := b.source.GetPage()
	if err == nil {
		b.pages.add(page)
		return page, nil
	}
	if errors.Is(err, ErrPageSourceExhausted) {
		return Page{}, err
	}
	return Page{}, fmt.Errorf("%w: %v", ErrPageSourceExhausted, err)
}

func (b *Buddy) freePage(data []byte) error {
	id := readBackPointer(data)
	b.pages.remove(id)
	if err := b.source.FreePage(id); err != nil {
		return fmt.Errorf("return page %d: %w", id, err)
	}
	return nil
}

func (b *Buddy) bitmapOf(id PageID) bitmap {
	return pageBitmap(b.pages.data(id), b.geo.units)
}

func (b *Buddy) unitRange(addr Addr, size uint32) (uint32, uint32) {
	shift := b.geo.unitShift()
	return addr.Offset() >> shift, size >> shift
}

func (b *Buddy) markUsed(addr Addr, size uint32) {
	first, n := b.unitRange(addr, size)
	b.bitmapOf(addr.Page()).setRange(first, n)
}

func (b *Buddy) markFree(addr Addr, size uint32) {
	first, n := b.unitRange(addr, size)
	b.bitmapOf(addr.Page()).clearRange(first, n)
}

func (b *Buddy) initArena() error {
	page, err := b.getPage()
	if err != nil {
		return fmt.Errorf("allocate arena header: %w", err)
	}
	b.header = page.Data
	b.lists = headerFreeLists(&b.pages, page.Data)
	b.lists.init()
	b.logger.Debug("buddy: arena created", "page", page.ID)
	return nil
}

func (b *Buddy) releaseArena() error {
	id := readBackPointer(b.header)
	err := b.freePage(b.header)
	b.header = nil
	b.lists = freeLists{}
	b.logger.Debug("buddy: arena released", "page", id)
	return err
}

// addBlockPage gets a page, reserves its header units and pushes the carved
// blocks onto the free lists.
func (b *Buddy) addBlockPage() error {
	page, err := b.getPage()
	if err != nil {
		return fmt.Errorf("allocate block page: %w", err)
	}

	bm := pageBitmap(page.Data, b.geo.units)
	bm.reset()
	bm.setRange(0, b.geo.reservedUnits)

	for _, blk := range b.geo.carved {
		b.lists.push(b.geo.classes.classOf(blk.Size), MakeAddr(page.ID, blk.Offset))
	}
	b.blocks[page.ID] = struct{}{}

	b.logger.Debug("buddy: page carved", "page", page.ID, "blocks", len(b.geo.carved))
	return nil
}

// allocateFromLists pops the smallest free block whose class is >= class and
// splits it down to class.
func (b *Buddy) allocateFromLists(class int) (Addr, bool) {
	for j := class; j < NumClasses; j++ {
		addr, ok := b.lists.pop(j)
		if !ok {
			continue
		}

		for j > class {
			j--
			b.lists.push(j, addr+Addr(b.geo.classes.classSize(j)))
		}

		b.markUsed(addr, b.geo.classes.classSize(class))
		return addr, true
	}
	return NullAddr, false
}

// Allocate ...
func (b *Buddy) Allocate(size uint32) (Addr, error) {
	if size == 0 {
		return NullAddr, ErrZeroSize
	}
	if b.geo.dedicated(size) {
		return b.allocateDedicated(size)
	}

	class, _ := b.geo.classes.roundUp(size)

	if b.header == nil {
		if err := b.initArena(); err != nil {
			return NullAddr, err
		}
	}

	if addr, ok := b.allocateFromLists(class); ok {
		return addr, nil
	}

	if err := b.addBlockPage(); err != nil {
		if len(b.blocks) == 0 {
			return NullAddr, errors.Join(err, b.releaseArena())
		}
		return NullAddr, err
	}

	addr, ok := b.allocateFromLists(class)
	if !ok {
		panic("fresh page cannot satisfy a carvable size class")
	}
	return addr, nil
}

func (b *Buddy) allocateDedicated(size uint32) (Addr, error) {
	if size > b.geo.pageSize-backPointerSize {
		return NullAddr, fmt.Errorf("request of %d bytes: %w", size, ErrTooLarge)
	}

	page, err := b.getPage()
	if err != nil {
		return NullAddr, fmt.Errorf("allocate dedicated page: %w", err)
	}
	b.dedicatedPages++

	b.logger.Debug("buddy: dedicated page", "page", page.ID, "size", size)
	return MakeAddr(page.ID, backPointerSize), nil
}

// Deallocate ...
func (b *Buddy) Deallocate(addr Addr, size uint32) error {
	if size == 0 {
		return ErrZeroSize
	}
	if b.geo.dedicated(size) {
		return b.deallocateDedicated(addr)
	}

	class, _ := b.geo.classes.roundUp(size)
	b.lists.push(class, addr)
	b.markFree(addr, b.geo.classes.classSize(class))

	b.coalesce(addr, class)
	return b.reclaimIfEmpty(addr.Page())
}

func (b *Buddy) deallocateDedicated(addr Addr) error {
	data := b.pages.data(addr.Page())
	b.dedicatedPages--

	b.logger.Debug("buddy: dedicated page returned", "page", addr.Page())
	return b.freePage(data)
}

func buddyOf(offset uint32, size uint32) uint32 {
	return offset ^ size
}

// coalesce merges the free block at addr with its buddy for as long as the
// buddy is a whole free block of the same class.
func (b *Buddy) coalesce(addr Addr, class int) {
	page := addr.Page()
	bm := b.bitmapOf(page)
	shift := b.geo.unitShift()

	for ; class < NumClasses-1; class++ {
		size := b.geo.classes.classSize(class)
		if size >= b.geo.maxCarve {
			return
		}

		offset := addr.Offset()
		buddyOffset := buddyOf(offset, size)
		if !bm.allClear(buddyOffset>>shift, size>>shift) {
			return
		}
		if !b.lists.remove(class, MakeAddr(page, buddyOffset)) {
			return
		}
		if !b.lists.remove(class, addr) {
			panic(fmt.Sprintf("freed block %x missing from list %d", uint64(addr), class))
		}

		addr = MakeAddr(page, offset&^size)
		b.lists.push(class+1, addr)
	}
}

// reclaimIfEmpty returns a block page without allocated units to the source,
// and the header page as well once no block page is left.
func (b *Buddy) reclaimIfEmpty(id PageID) error {
	bm := b.bitmapOf(id)
	reserved := b.geo.reservedUnits
	if !bm.allClear(reserved, b.geo.units-reserved) {
		return nil
	}

	removed := b.lists.removePage(id)
	delete(b.blocks, id)
	b.logger.Debug("buddy: page reclaimed", "page", id, "free_blocks", removed)

	if err := b.freePage(b.pages.data(id)); err != nil {
		return err
	}
	if len(b.blocks) == 0 {
		return b.releaseArena()
	}
	return nil
}

package allocator

import (
	"fmt"
	"unsafe"
)

// bitmap marks the allocated minimum-size units of one page, one bit per unit.
type bitmap struct {
	words []uint64
	units uint32
}

func bitmapWords(units uint32) uint32 {
	return (units + 63) >> 6
}

// pageBitmap views the words that follow the back-pointer of a page.
func pageBitmap(data []byte, units uint32) bitmap {
	words := unsafe.Slice((*uint64)(unsafe.Pointer(&data[backPointerSize])), bitmapWords(units))
	return bitmap{words: words, units: units}
}

func (b bitmap) checkRange(first uint32, n uint32) {
	if n == 0 || first >= b.units || n > b.units-first {
		panic(fmt.Sprintf("bitmap range [%d, %d) out of [0, %d)", first, first+n, b.units))
	}
}

func (b bitmap) reset() {
	for i := range b.words {
		b.words[i] = 0
	}
}

// rangeMask returns the mask of bits [first, last] of the word containing them.
func rangeMask(first uint32, last uint32) uint64 {
	lo := first & 0x3f
	hi := last & 0x3f
	return (^uint64(0) >> (63 - hi)) & (^uint64(0) << lo)
}

func (b bitmap) forEachWord(first uint32, n uint32, fn func(index uint32, mask uint64) bool) {
	b.checkRange(first, n)
	last := first + n - 1
	for w := first >> 6; w <= last>>6; w++ {
		lo := first
		if w<<6 > lo {
			lo = w << 6
		}
		hi := last
		if w<<6+63 < hi {
			hi = w<<6 + 63
		}
		if !fn(w, rangeMask(lo, hi)) {
			return
		}
	}
}

func (b bitmap) setRange(first uint32, n uint32) {
	b.forEachWord(first, n, func(index uint32, mask uint64) bool {
		b.words[index] |= mask
		return true
	})
}

func (b bitmap) clearRange(first uint32, n uint32) {
	b.forEachWord(first, n, func(index uint32, mask uint64) bool {
		b.words[index] &^= mask
		return true
	})
}

func (b bitmap) test(i uint32) bool {
	b.checkRange(i, 1)
	return b.words[i>>6]&(1<<(i&0x3f)) != 0
}

func (b bitmap) allClear(first uint32, n uint32) bool {
	empty := true
	b.forEachWord(first, n, func(index uint32, mask uint64) bool {
		if b.words[index]&mask != 0 {
			empty = false
		}
		return empty
	})
	return empty
}

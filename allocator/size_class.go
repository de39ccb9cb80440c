package allocator

import "math/bits"

// NumClasses is the number of block sizes the buddy allocator supports.
const NumClasses = 8

type sizeClasses struct {
	minSizeLog uint32
}

func newSizeClasses(minBlockSize uint32) sizeClasses {
	return sizeClasses{minSizeLog: uint32(bits.TrailingZeros32(minBlockSize))}
}

// classSize returns the block size of a class.
func (c sizeClasses) classSize(class int) uint32 {
	return 1 << (c.minSizeLog + uint32(class))
}

func (c sizeClasses) maxSize() uint32 {
	return c.classSize(NumClasses - 1)
}

// roundUp returns the smallest class whose block size is >= size.
// ok is false when size is larger than the largest class.
func (c sizeClasses) roundUp(size uint32) (class int, ok bool) {
	if size <= 1<<c.minSizeLog {
		return 0, true
	}
	class = bits.Len32(size-1) - int(c.minSizeLog)
	if class >= NumClasses {
		return 0, false
	}
	return class, true
}

// classOf is the class of an exact block size.
func (c sizeClasses) classOf(blockSize uint32) int {
	return bits.TrailingZeros32(blockSize) - int(c.minSizeLog)
}

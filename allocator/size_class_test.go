package allocator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSizeClasses_RoundUp(t *testing.T) {
	c := newSizeClasses(32)

	table := []struct {
		name  string
		size  uint32
		class int
		ok    bool
	}{
		{name: "one", size: 1, class: 0, ok: true},
		{name: "min", size: 32, class: 0, ok: true},
		{name: "min-plus-one", size: 33, class: 1, ok: true},
		{name: "forty", size: 40, class: 1, ok: true},
		{name: "hundred", size: 100, class: 2, ok: true},
		{name: "exact-512", size: 512, class: 4, ok: true},
		{name: "4000", size: 4000, class: 7, ok: true},
		{name: "max", size: 4096, class: 7, ok: true},
		{name: "above-max", size: 4097, ok: false},
		{name: "huge", size: 1 << 30, ok: false},
	}

	for _, e := range table {
		t.Run(e.name, func(t *testing.T) {
			class, ok := c.roundUp(e.size)
			assert.Equal(t, e.ok, ok)
			if e.ok {
				assert.Equal(t, e.class, class)
				assert.GreaterOrEqual(t, c.classSize(class), e.size)
			}
		})
	}
}

func TestSizeClasses_Ladder(t *testing.T) {
	c := newSizeClasses(32)
	var sizes []uint32
	for i := 0; i < NumClasses; i++ {
		sizes = append(sizes, c.classSize(i))
		assert.Equal(t, i, c.classOf(c.classSize(i)))
	}
	assert.Equal(t, []uint32{32, 64, 128, 256, 512, 1024, 2048, 4096}, sizes)
	assert.Equal(t, uint32(4096), c.maxSize())

	c = newSizeClasses(16)
	assert.Equal(t, uint32(2048), c.maxSize())
}

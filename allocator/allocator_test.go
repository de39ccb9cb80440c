package allocator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigValidate(t *testing.T) {
	table := []struct {
		name  string
		conf  Config
		valid bool
	}{
		{name: "default", conf: DefaultConfig(), valid: true},
		{name: "4K-pages", conf: Config{PageSize: 4096, MinBlockSize: 32}, valid: true},
		{name: "16-byte-blocks", conf: Config{PageSize: 4096, MinBlockSize: 16}, valid: true},
		{name: "block-too-small", conf: Config{PageSize: 4096, MinBlockSize: 8}, valid: false},
		{name: "block-not-power-of-two", conf: Config{PageSize: 4096, MinBlockSize: 48}, valid: false},
		{name: "page-not-power-of-two", conf: Config{PageSize: 6000, MinBlockSize: 32}, valid: false},
		{name: "page-too-small", conf: Config{PageSize: 64, MinBlockSize: 32}, valid: false},
		{name: "tiny-page", conf: Config{PageSize: 128, MinBlockSize: 32}, valid: true},
		{name: "zero", conf: Config{}, valid: false},
	}

	for _, e := range table {
		t.Run(e.name, func(t *testing.T) {
			err := e.conf.Validate()
			if e.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestNewLayout(t *testing.T) {
	table := []struct {
		name     string
		conf     Config
		reserved uint32
		carved   []Block
		maxCarve uint32
	}{
		{
			name:     "8K",
			conf:     DefaultConfig(),
			reserved: 2,
			carved: []Block{
				{Offset: 64, Size: 64}, {Offset: 128, Size: 128}, {Offset: 256, Size: 256},
				{Offset: 512, Size: 512}, {Offset: 1024, Size: 1024}, {Offset: 2048, Size: 2048},
				{Offset: 4096, Size: 4096},
			},
			maxCarve: 4096,
		},
		{
			name:     "4K",
			conf:     Config{PageSize: 4096, MinBlockSize: 32},
			reserved: 1,
			carved: []Block{
				{Offset: 32, Size: 32}, {Offset: 64, Size: 64}, {Offset: 128, Size: 128},
				{Offset: 256, Size: 256}, {Offset: 512, Size: 512}, {Offset: 1024, Size: 1024},
				{Offset: 2048, Size: 2048},
			},
			maxCarve: 2048,
		},
		{
			name:     "16K",
			conf:     Config{PageSize: 16384, MinBlockSize: 32},
			reserved: 3,
			carved: []Block{
				{Offset: 96, Size: 32}, {Offset: 128, Size: 128}, {Offset: 256, Size: 256},
				{Offset: 512, Size: 512}, {Offset: 1024, Size: 1024}, {Offset: 2048, Size: 2048},
				{Offset: 4096, Size: 4096}, {Offset: 8192, Size: 4096}, {Offset: 12288, Size: 4096},
			},
			maxCarve: 4096,
		},
	}

	for _, e := range table {
		t.Run(e.name, func(t *testing.T) {
			l := NewLayout(e.conf)
			assert.Equal(t, e.reserved, l.ReservedUnits)
			assert.Equal(t, e.carved, l.Carved)
			assert.Equal(t, e.maxCarve, l.MaxCarve)
			assert.Equal(t, e.conf.PageSize-8, l.MaxDedicated)
			assert.Equal(t, NumClasses, len(l.ClassSizes))

			total := l.ReservedUnits * e.conf.MinBlockSize
			for _, blk := range l.Carved {
				total += blk.Size
			}
			assert.Equal(t, e.conf.PageSize, total)
		})
	}
}

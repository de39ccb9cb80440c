package kma

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/QuangTung97/kma/allocator"
)

// Allocator kinds
const (
	AllocatorBuddy       = "buddy"
	AllocatorResourceMap = "rm"
)

// Page source kinds
const (
	SourceHeap = "heap"
	SourceMmap = "mmap"
)

// Config selects an allocator, its page source and the page geometry.
type Config struct {
	Allocator string `toml:"allocator"`
	Source    string `toml:"source"`
	PageSize  uint32 `toml:"page_size"`
	MinBlock  uint32 `toml:"min_block"`

	// MaxPages bounds the page source, 0 means no limit.
	MaxPages int `toml:"max_pages"`
}

// DefaultConfig ...
func DefaultConfig() Config {
	def := allocator.DefaultConfig()
	return Config{
		Allocator: AllocatorBuddy,
		Source:    SourceHeap,
		PageSize:  def.PageSize,
		MinBlock:  def.MinBlockSize,
	}
}

// LoadConfig reads a TOML file on top of the default config.
// Unknown keys are rejected.
func LoadConfig(path string) (Config, error) {
	conf := DefaultConfig()
	md, err := toml.DecodeFile(path, &conf)
	if err != nil {
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return Config{}, fmt.Errorf("load config %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	return conf, nil
}

// AllocatorConfig ...
func (c Config) AllocatorConfig(logger *slog.Logger) allocator.Config {
	return allocator.Config{
		PageSize:     c.PageSize,
		MinBlockSize: c.MinBlock,
		Logger:       logger,
	}
}

// Validate ...
func (c Config) Validate() error {
	if c.MaxPages < 0 {
		return fmt.Errorf("max_pages %d must >= 0", c.MaxPages)
	}
	switch c.Source {
	case SourceHeap, SourceMmap:
	default:
		return fmt.Errorf("unknown page source %q", c.Source)
	}

	switch c.Allocator {
	case AllocatorBuddy:
		return c.AllocatorConfig(nil).Validate()
	case AllocatorResourceMap:
		if c.PageSize <= 32 || c.PageSize%16 != 0 || c.PageSize > 1<<31 {
			return fmt.Errorf("page_size %d out of range", c.PageSize)
		}
		return nil
	default:
		return fmt.Errorf("unknown allocator %q", c.Allocator)
	}
}

// Instance is an allocator bound to the page source it draws from.
type Instance struct {
	Allocator allocator.Allocator
	Source    allocator.PageSource

	closeFn func() error
}

// Option ...
type Option func(opts *openOptions)

type openOptions struct {
	wrapSource func(allocator.PageSource) allocator.PageSource
}

// WithSourceWrapper puts fn's result between the page source and the
// allocator, e.g. to count pages.
func WithSourceWrapper(fn func(allocator.PageSource) allocator.PageSource) Option {
	return func(opts *openOptions) {
		opts.wrapSource = fn
	}
}

// Open builds the page source and the allocator described by conf.
func Open(conf Config, logger *slog.Logger, options ...Option) (*Instance, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}

	opts := openOptions{}
	for _, fn := range options {
		fn(&opts)
	}

	source, closeFn, err := newPageSource(conf)
	if err != nil {
		return nil, err
	}
	if opts.wrapSource != nil {
		source = opts.wrapSource(source)
	}

	var alloc allocator.Allocator
	switch conf.Allocator {
	case AllocatorResourceMap:
		alloc = allocator.NewResourceMap(source, logger)
	default:
		alloc = allocator.NewBuddy(conf.AllocatorConfig(logger), source)
	}

	return &Instance{
		Allocator: alloc,
		Source:    source,
		closeFn:   closeFn,
	}, nil
}

func newPageSource(conf Config) (allocator.PageSource, func() error, error) {
	if conf.Source == SourceMmap {
		return newMmapSource(conf)
	}
	source := allocator.NewHeapSource(conf.PageSize, conf.MaxPages)
	return source, func() error { return nil }, nil
}

// ErrSourceUnsupported is returned by Open when the page source does not
// exist on this platform.
var ErrSourceUnsupported = errors.New("kma: page source not supported on this platform")

// Close releases every page still held by the page source.
func (i *Instance) Close() error {
	return i.closeFn()
}

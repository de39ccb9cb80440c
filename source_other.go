//go:build !linux && !darwin

package kma

import (
	"fmt"

	"github.com/QuangTung97/kma/allocator"
)

func newMmapSource(Config) (allocator.PageSource, func() error, error) {
	return nil, nil, fmt.Errorf("%s: %w", SourceMmap, ErrSourceUnsupported)
}

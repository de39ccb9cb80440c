//go:build linux || darwin

package kma

import "github.com/QuangTung97/kma/allocator"

func newMmapSource(conf Config) (allocator.PageSource, func() error, error) {
	source, err := allocator.NewMmapSource(conf.PageSize, conf.MaxPages)
	if err != nil {
		return nil, nil, err
	}
	return source, source.Close, nil
}

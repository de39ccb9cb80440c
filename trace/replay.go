package trace

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/QuangTung97/kma/allocator"
)

// Replay errors
var (
	ErrCorrupted   = errors.New("trace: block content corrupted")
	ErrUnknownID   = errors.New("trace: free of an unknown id")
	ErrDuplicateID = errors.New("trace: id already allocated")
)

// ReplayOptions ...
type ReplayOptions struct {
	// Drain frees, in id order, the blocks still live at the end of the trace.
	Drain bool

	Logger *slog.Logger
}

// Result ...
type Result struct {
	Requests int
	Frees    int
	Drained  int
	MaxLive  int
}

type liveBlock struct {
	addr allocator.Addr
	size uint32
}

func fill(buf []byte, id uint64) {
	for i := range buf {
		buf[i] = byte(id>>(uint(i&7)*8)) ^ byte(i)
	}
}

func verify(buf []byte, id uint64) bool {
	for i := range buf {
		if buf[i] != byte(id>>(uint(i&7)*8))^byte(i) {
			return false
		}
	}
	return true
}

type replayer struct {
	alloc  allocator.Allocator
	logger *slog.Logger
	live   map[uint64]liveBlock
	result Result
}

// Replay runs ops against alloc. Every allocated block is filled with a
// pattern derived from its id and checked when it is freed, so overlapping
// blocks are reported as ErrCorrupted.
func Replay(alloc allocator.Allocator, ops []Op, opts ReplayOptions) (Result, error) {
	r := &replayer{
		alloc:  alloc,
		logger: opts.Logger,
		live:   map[uint64]liveBlock{},
	}
	if r.logger == nil {
		r.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	for _, op := range ops {
		if err := r.apply(op); err != nil {
			if op.Line > 0 {
				return r.result, fmt.Errorf("line %d: %w", op.Line, err)
			}
			return r.result, err
		}
	}

	if !opts.Drain {
		return r.result, nil
	}

	ids := make([]uint64, 0, len(r.live))
	for id := range r.live {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		if err := r.free(id); err != nil {
			return r.result, fmt.Errorf("drain: %w", err)
		}
		r.result.Drained++
	}
	return r.result, nil
}

func (r *replayer) apply(op Op) error {
	if op.Kind == KindFree {
		if err := r.free(op.ID); err != nil {
			return err
		}
		r.result.Frees++
		return nil
	}

	if _, existed := r.live[op.ID]; existed {
		return fmt.Errorf("id %d: %w", op.ID, ErrDuplicateID)
	}
	addr, err := r.alloc.Allocate(op.Size)
	if err != nil {
		return fmt.Errorf("request %d of %d bytes: %w", op.ID, op.Size, err)
	}
	fill(r.alloc.Bytes(addr, op.Size), op.ID)

	r.live[op.ID] = liveBlock{addr: addr, size: op.Size}
	r.result.Requests++
	if len(r.live) > r.result.MaxLive {
		r.result.MaxLive = len(r.live)
	}
	r.logger.Debug("trace: request", "id", op.ID, "size", op.Size, "addr", fmt.Sprintf("%x", uint64(addr)))
	return nil
}

func (r *replayer) free(id uint64) error {
	blk, ok := r.live[id]
	if !ok {
		return fmt.Errorf("id %d: %w", id, ErrUnknownID)
	}
	if !verify(r.alloc.Bytes(blk.addr, blk.size), id) {
		return fmt.Errorf("id %d at %x: %w", id, uint64(blk.addr), ErrCorrupted)
	}
	if err := r.alloc.Deallocate(blk.addr, blk.size); err != nil {
		return fmt.Errorf("free %d: %w", id, err)
	}
	delete(r.live, id)
	r.logger.Debug("trace: free", "id", id)
	return nil
}

package stats

import (
	"time"

	"github.com/rcrowley/go-metrics"

	"github.com/QuangTung97/kma"
	"github.com/QuangTung97/kma/allocator"
)

// Recorder is an Allocator that forwards to another one and keeps counters
// about the requests it sees.
type Recorder struct {
	alloc allocator.Allocator

	allocs   uint64
	frees    uint64
	failures uint64

	requested uint64
	reserved  uint64

	liveRequested uint64
	liveReserved  uint64
	peakReserved  uint64

	allocTimer metrics.Timer
	freeTimer  metrics.Timer
}

var _ allocator.Allocator = &Recorder{}

// NewRecorder ...
func NewRecorder(alloc allocator.Allocator) *Recorder {
	return &Recorder{
		alloc:      alloc,
		allocTimer: metrics.NewTimer(),
		freeTimer:  metrics.NewTimer(),
	}
}

// Allocate ...
func (r *Recorder) Allocate(size uint32) (allocator.Addr, error) {
	start := time.Now()
	addr, err := r.alloc.Allocate(size)
	r.allocTimer.UpdateSince(start)

	if err != nil {
		r.failures++
		return addr, err
	}

	footprint := uint64(r.alloc.Footprint(size))
	r.allocs++
	r.requested += uint64(size)
	r.reserved += footprint
	r.liveRequested += uint64(size)
	r.liveReserved += footprint
	if r.liveReserved > r.peakReserved {
		r.peakReserved = r.liveReserved
	}
	return addr, nil
}

// Deallocate ...
func (r *Recorder) Deallocate(addr allocator.Addr, size uint32) error {
	start := time.Now()
	err := r.alloc.Deallocate(addr, size)
	r.freeTimer.UpdateSince(start)

	if err != nil {
		r.failures++
		return err
	}

	r.frees++
	r.liveRequested -= uint64(size)
	r.liveReserved -= uint64(r.alloc.Footprint(size))
	return nil
}

// Bytes ...
func (r *Recorder) Bytes(addr allocator.Addr, n uint32) []byte {
	return r.alloc.Bytes(addr, n)
}

// Footprint ...
func (r *Recorder) Footprint(size uint32) uint32 {
	return r.alloc.Footprint(size)
}

// Latency summarizes the durations of one kind of operation.
type Latency struct {
	Count int64
	Mean  time.Duration
	P99   time.Duration
	Worst time.Duration
}

func latencyOf(t metrics.Timer) Latency {
	s := t.Snapshot()
	return Latency{
		Count: s.Count(),
		Mean:  time.Duration(s.Mean()),
		P99:   time.Duration(s.Percentile(0.99)),
		Worst: time.Duration(s.Max()),
	}
}

// Snapshot is a copy of the counters of a Recorder.
type Snapshot struct {
	Allocs   uint64
	Frees    uint64
	Failures uint64

	Requested uint64
	Reserved  uint64

	LiveRequested uint64
	LiveReserved  uint64
	PeakReserved  uint64

	Alloc Latency
	Free  Latency
}

// Snapshot ...
func (r *Recorder) Snapshot() Snapshot {
	return Snapshot{
		Allocs:   r.allocs,
		Frees:    r.frees,
		Failures: r.failures,

		Requested: r.requested,
		Reserved:  r.reserved,

		LiveRequested: r.liveRequested,
		LiveReserved:  r.liveReserved,
		PeakReserved:  r.peakReserved,

		Alloc: latencyOf(r.allocTimer),
		Free:  latencyOf(r.freeTimer),
	}
}

// Utilization is the share of the reserved bytes that were requested,
// over every successful allocation.
func (s Snapshot) Utilization() kma.Rational {
	return kma.NewRational(s.Requested, s.Reserved)
}

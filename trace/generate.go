package trace

import (
	"math/rand"
)

// Generate returns a random trace of n requests with sizes in [1, maxSize].
// Requests and frees are interleaved and every request is freed by the end.
func Generate(rng *rand.Rand, n int, maxSize uint32) []Op {
	ops := make([]Op, 0, 2*n)
	var live []uint64
	next := uint64(0)

	for int(next) < n || len(live) > 0 {
		request := int(next) < n && (len(live) == 0 || rng.Intn(3) != 0)
		if request {
			size := uint32(rng.Int63n(int64(maxSize))) + 1
			ops = append(ops, Op{Kind: KindRequest, ID: next, Size: size})
			live = append(live, next)
			next++
			continue
		}

		k := rng.Intn(len(live))
		ops = append(ops, Op{Kind: KindFree, ID: live[k]})
		live[k] = live[len(live)-1]
		live = live[:len(live)-1]
	}
	return ops
}

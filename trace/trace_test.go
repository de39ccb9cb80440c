package trace

import (
	"bytes"
	"errors"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/QuangTung97/kma/allocator"
)

func TestParse(t *testing.T) {
	input := `
# three blocks
REQUEST 0 100
alloc 1 40

request 2 4000
FREE 1
free 0
Free 2
`
	ops, err := Parse(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, []Op{
		{Kind: KindRequest, ID: 0, Size: 100, Line: 3},
		{Kind: KindRequest, ID: 1, Size: 40, Line: 4},
		{Kind: KindRequest, ID: 2, Size: 4000, Line: 6},
		{Kind: KindFree, ID: 1, Line: 7},
		{Kind: KindFree, ID: 0, Line: 8},
		{Kind: KindFree, ID: 2, Line: 9},
	}, ops)
}

func TestParse_Errors(t *testing.T) {
	table := []struct {
		name  string
		input string
		msg   string
	}{
		{name: "unknown-op", input: "MALLOC 1 10", msg: `line 1: trace: syntax error: unknown operation "MALLOC"`},
		{name: "missing-size", input: "REQUEST 1", msg: "line 1: trace: syntax error: REQUEST takes an id and a size"},
		{name: "zero-size", input: "\nREQUEST 1 0", msg: `line 2: trace: syntax error: invalid size "0"`},
		{name: "bad-id", input: "FREE x", msg: `line 1: trace: syntax error: invalid id "x"`},
		{name: "extra-field", input: "FREE 1 2", msg: "line 1: trace: syntax error: FREE takes an id"},
	}
	for _, e := range table {
		t.Run(e.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(e.input))
			assert.True(t, errors.Is(err, ErrSyntax))
			assert.EqualError(t, err, e.msg)
		})
	}
}

func TestWriteParse(t *testing.T) {
	ops := Generate(rand.New(rand.NewSource(1)), 50, 5000)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, ops))

	parsed, err := Parse(&buf)
	require.NoError(t, err)
	require.Equal(t, len(ops), len(parsed))
	for i := range ops {
		parsed[i].Line = 0
	}
	assert.Equal(t, ops, parsed)
}

func TestGenerate(t *testing.T) {
	ops := Generate(rand.New(rand.NewSource(42)), 200, 3000)
	assert.Equal(t, 400, len(ops))

	live := map[uint64]bool{}
	for _, op := range ops {
		if op.Kind == KindRequest {
			assert.False(t, live[op.ID])
			assert.True(t, op.Size >= 1 && op.Size <= 3000)
			live[op.ID] = true
		} else {
			assert.True(t, live[op.ID])
			delete(live, op.ID)
		}
	}
	assert.Empty(t, live)
}

func newTestBuddy(maxPages int) (*allocator.Buddy, *allocator.HeapSource) {
	source := allocator.NewHeapSource(4096, maxPages)
	conf := allocator.DefaultConfig()
	conf.PageSize = 4096
	return allocator.NewBuddy(conf, source), source
}

func TestReplay(t *testing.T) {
	ops, err := Parse(strings.NewReader("REQUEST 0 100\nREQUEST 1 40\nREQUEST 2 4000\nFREE 1\nFREE 0\nFREE 2\n"))
	require.NoError(t, err)

	b, source := newTestBuddy(0)
	result, err := Replay(b, ops, ReplayOptions{})
	require.NoError(t, err)
	assert.Equal(t, Result{Requests: 3, Frees: 3, MaxLive: 3}, result)
	assert.Equal(t, 0, source.InUse())
	assert.False(t, b.Initialized())
}

func TestReplay_Generated(t *testing.T) {
	for _, kind := range []string{"buddy", "rm"} {
		t.Run(kind, func(t *testing.T) {
			var alloc allocator.Allocator
			source := allocator.NewHeapSource(8192, 0)
			if kind == "rm" {
				alloc = allocator.NewResourceMap(source, nil)
			} else {
				alloc = allocator.NewBuddy(allocator.DefaultConfig(), source)
			}

			ops := Generate(rand.New(rand.NewSource(7)), 1000, 8000)
			result, err := Replay(alloc, ops, ReplayOptions{})
			require.NoError(t, err)
			assert.Equal(t, 1000, result.Requests)
			assert.Equal(t, 1000, result.Frees)
			assert.Equal(t, 0, source.InUse())
		})
	}
}

func TestReplay_Drain(t *testing.T) {
	ops, err := Parse(strings.NewReader("REQUEST 5 10\nREQUEST 3 2000\nREQUEST 9 300\nFREE 3\n"))
	require.NoError(t, err)

	b, source := newTestBuddy(0)
	result, err := Replay(b, ops, ReplayOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, source.InUse())

	b, source = newTestBuddy(0)
	result, err = Replay(b, ops, ReplayOptions{Drain: true})
	require.NoError(t, err)
	assert.Equal(t, Result{Requests: 3, Frees: 1, Drained: 2, MaxLive: 3}, result)
	assert.Equal(t, 0, source.InUse())
}

func TestReplay_IDErrors(t *testing.T) {
	b, _ := newTestBuddy(0)
	ops, err := Parse(strings.NewReader("REQUEST 1 10\nREQUEST 1 20\n"))
	require.NoError(t, err)
	_, err = Replay(b, ops, ReplayOptions{})
	assert.True(t, errors.Is(err, ErrDuplicateID))
	assert.ErrorContains(t, err, "line 2")

	b, _ = newTestBuddy(0)
	_, err = Replay(b, []Op{{Kind: KindFree, ID: 4}}, ReplayOptions{})
	assert.True(t, errors.Is(err, ErrUnknownID))
}

func TestReplay_AllocatorError(t *testing.T) {
	b, _ := newTestBuddy(1)
	result, err := Replay(b, []Op{{Kind: KindRequest, ID: 1, Size: 64}}, ReplayOptions{})
	assert.True(t, errors.Is(err, allocator.ErrPageSourceExhausted))
	assert.Equal(t, Result{}, result)
}

// sameBlock hands out the same memory for every request.
type sameBlock struct {
	buf []byte
}

func (s *sameBlock) Allocate(uint32) (allocator.Addr, error) { return 0, nil }

func (s *sameBlock) Deallocate(allocator.Addr, uint32) error { return nil }

func (s *sameBlock) Bytes(addr allocator.Addr, n uint32) []byte { return s.buf[:n] }

func (s *sameBlock) Footprint(size uint32) uint32 { return size }

func TestReplay_DetectsOverlap(t *testing.T) {
	alloc := &sameBlock{buf: make([]byte, 128)}
	ops := []Op{
		{Kind: KindRequest, ID: 1, Size: 64},
		{Kind: KindRequest, ID: 2, Size: 64},
		{Kind: KindFree, ID: 1},
	}
	_, err := Replay(alloc, ops, ReplayOptions{})
	assert.True(t, errors.Is(err, ErrCorrupted))
}

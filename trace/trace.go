package trace

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Kind of a trace operation
type Kind int

// Kinds
const (
	KindRequest Kind = iota
	KindFree
)

func (k Kind) String() string {
	if k == KindFree {
		return "FREE"
	}
	return "REQUEST"
}

// Op is one line of a trace.
type Op struct {
	Kind Kind
	ID   uint64
	Size uint32 // zero for KindFree

	// Line is the 1-based source line, zero for generated ops.
	Line int
}

// ErrSyntax is wrapped by every parse error.
var ErrSyntax = errors.New("trace: syntax error")

// Parse reads a trace, one operation per line:
//
//	REQUEST <id> <size>
//	FREE <id>
//
// Keywords are case-insensitive, ALLOC is accepted for REQUEST. Blank lines
// and lines starting with # are skipped.
func Parse(r io.Reader) ([]Op, error) {
	var ops []Op
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		op, err := parseLine(strings.Fields(text))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		op.Line = line
		ops = append(ops, op)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read trace: %w", err)
	}
	return ops, nil
}

func parseLine(fields []string) (Op, error) {
	switch strings.ToUpper(fields[0]) {
	case "REQUEST", "ALLOC":
		if len(fields) != 3 {
			return Op{}, fmt.Errorf("%w: %s takes an id and a size", ErrSyntax, fields[0])
		}
		id, err := parseID(fields[1])
		if err != nil {
			return Op{}, err
		}
		size, err := strconv.ParseUint(fields[2], 10, 32)
		if err != nil || size == 0 {
			return Op{}, fmt.Errorf("%w: invalid size %q", ErrSyntax, fields[2])
		}
		return Op{Kind: KindRequest, ID: id, Size: uint32(size)}, nil

	case "FREE":
		if len(fields) != 2 {
			return Op{}, fmt.Errorf("%w: %s takes an id", ErrSyntax, fields[0])
		}
		id, err := parseID(fields[1])
		if err != nil {
			return Op{}, err
		}
		return Op{Kind: KindFree, ID: id}, nil

	default:
		return Op{}, fmt.Errorf("%w: unknown operation %q", ErrSyntax, fields[0])
	}
}

func parseID(s string) (uint64, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid id %q", ErrSyntax, s)
	}
	return id, nil
}

// Write prints ops in the format read by Parse.
func Write(w io.Writer, ops []Op) error {
	bw := bufio.NewWriter(w)
	for _, op := range ops {
		var err error
		if op.Kind == KindFree {
			_, err = fmt.Fprintf(bw, "%s %d\n", op.Kind, op.ID)
		} else {
			_, err = fmt.Fprintf(bw, "%s %d %d\n", op.Kind, op.ID, op.Size)
		}
		if err != nil {
			return err
		}
	}
	return bw.Flush()
}

package idgen

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/lithammer/shortuuid/v4"
)

// Generator produces unique identifiers for conversations, messages and
// placeholder file records.
type Generator interface {
	NewID() string
}

// Func adapts a plain function to Generator.
type Func func() string

func (f Func) NewID() string { return f() }

// UUID returns time-ordered UUIDv7 strings.
type UUID struct{}

func (UUID) NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Short returns 22-character base57 ids.
type Short struct{}

func (Short) NewID() string {
	return shortuuid.New()
}

// New picks a generator by its configured name.
func New(format string) (Generator, error) {
	switch format {
	case "uuid", "":
		return UUID{}, nil
	case "short":
		return Short{}, nil
	default:
		return nil, fmt.Errorf("unknown id format %q", format)
	}
}

// Sequence returns a deterministic generator yielding prefix-1, prefix-2, ...
func Sequence(prefix string) Generator {
	var n int
	return Func(func() string {
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	})
}

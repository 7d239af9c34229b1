package action

import (
	"sync/atomic"

	"github.com/google/uuid"
)

// IDGenerator produces action IDs.
type IDGenerator interface {
	Generate() string
}

// Clock stamps actions with a strictly increasing sequence number.
type Clock interface {
	Next() int64
}

// UUIDv7Generator generates time-sortable UUIDv7 IDs.
// Stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate returns a new hyphenated UUIDv7.
// Panics if the system random source fails.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// LogicalClock is a monotonic counter. It orders actions without relying
// on wall-clock time. Safe for concurrent use.
type LogicalClock struct {
	seq atomic.Int64
}

// NewLogicalClock creates a clock whose first Next returns 1.
func NewLogicalClock() *LogicalClock {
	return &LogicalClock{}
}

// NewLogicalClockAt creates a clock resuming after start.
func NewLogicalClockAt(start int64) *LogicalClock {
	c := &LogicalClock{}
	c.seq.Store(start)
	return c
}

// Next increments and returns the sequence number.
func (c *LogicalClock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last issued sequence number.
func (c *LogicalClock) Current() int64 {
	return c.seq.Load()
}

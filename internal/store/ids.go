package store

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

const (
	IDModeSequence = "sequence"
	IDModeRandom   = "random"
)

// IDGenerator hands out identifiers that are unique within one table.
type IDGenerator interface {
	NextID() string
}

// SequenceIDs produces <prefix><zero padded n>, continuing after the highest
// numeric suffix already present in the table.
type SequenceIDs struct {
	prefix string
	width  int
	keys   func() []string
	last   int
}

func NewSequenceIDs(prefix string, width int, keys func() []string) *SequenceIDs {
	return &SequenceIDs{prefix: prefix, width: width, keys: keys}
}

func (s *SequenceIDs) NextID() string {
	next := s.last
	if s.keys != nil {
		for _, k := range s.keys() {
			if !strings.HasPrefix(k, s.prefix) {
				continue
			}
			n, err := strconv.Atoi(strings.TrimPrefix(k, s.prefix))
			if err != nil {
				continue
			}
			if n > next {
				next = n
			}
		}
	}
	next++
	s.last = next
	return fmt.Sprintf("%s%0*d", s.prefix, s.width, next)
}

// FreeID draws from ids until one is not taken. Callers run it under the
// table's lock so the answer still holds when the row is written.
func FreeID(ids IDGenerator, taken func(id string) bool) (string, error) {
	for i := 0; i < maxIDAttempts; i++ {
		if id := ids.NextID(); !taken(id) {
			return id, nil
		}
	}
	return "", ErrNoFreeID
}

// RandomIDs produces <prefix><8 upper-case hex chars>.
type RandomIDs struct {
	prefix string
}

func NewRandomIDs(prefix string) *RandomIDs {
	return &RandomIDs{prefix: prefix}
}

func (r *RandomIDs) NextID() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return r.prefix + strings.ToUpper(raw[:8])
}

// NewIDGenerator picks the generator for mode; unknown modes fall back to
// sequence ids.
func NewIDGenerator(mode, prefix string, width int, keys func() []string) IDGenerator {
	if mode == IDModeRandom {
		return NewRandomIDs(prefix)
	}
	return NewSequenceIDs(prefix, width, keys)
}

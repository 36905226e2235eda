package memory

import (
	"time"

	"github.com/google/uuid"

	"github.com/djvaroli/cinemai/internal/graph"
)

// Category is the classification assigned to a user utterance. The set is
// closed: every turn is exactly one of the four.
type Category string

const (
	// CategoryQuery marks utterances that need a fresh graph query
	CategoryQuery Category = "Q"
	// CategoryMemory marks utterances answerable from the conversation log alone
	CategoryMemory Category = "M"
	// CategoryFeedback marks evaluative commentary about prior responses
	CategoryFeedback Category = "F"
	// CategoryIrrelevant marks input outside the movie domain
	CategoryIrrelevant Category = "I"
)

// Valid reports whether c is one of the four known categories
func (c Category) Valid() bool {
	switch c {
	case CategoryQuery, CategoryMemory, CategoryFeedback, CategoryIrrelevant:
		return true
	}
	return false
}

// Turn records one user utterance together with its classification, any
// processing artifacts, and the final reply. Immutable once appended.
type Turn struct {
	ID        string                 `json:"id"`
	Seq       int                    `json:"seq"`
	Timestamp time.Time              `json:"timestamp"`
	Utterance string                 `json:"utterance"`
	Category  Category               `json:"category"`
	Query     *graph.StructuredQuery `json:"query,omitempty"`
	Result    *graph.QueryResult     `json:"result,omitempty"`
	Reply     string                 `json:"reply"`
}

// Log is the append-only conversation memory for a single session. Insertion
// order is the only notion of "past interactions". A Log is exclusively owned
// by its session and is not safe for concurrent use.
type Log struct {
	turns []Turn
}

// NewLog creates an empty conversation log
func NewLog() *Log {
	return &Log{}
}

// Restore builds a log from previously snapshotted turns, preserving order
func Restore(turns []Turn) *Log {
	l := &Log{turns: make([]Turn, len(turns))}
	copy(l.turns, turns)
	return l
}

// Append records a completed turn, assigning its sequence number and, when
// unset, its ID and timestamp. It returns the turn as stored.
func (l *Log) Append(t Turn) Turn {
	t.Seq = len(l.turns)
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Timestamp.IsZero() {
		t.Timestamp = time.Now().UTC()
	}
	l.turns = append(l.turns, t)
	return t
}

// Len returns the number of recorded turns
func (l *Log) Len() int {
	return len(l.turns)
}

// Get returns the turn with the given sequence number
func (l *Log) Get(seq int) (Turn, bool) {
	if seq < 0 || seq >= len(l.turns) {
		return Turn{}, false
	}
	return l.turns[seq], true
}

// Recent returns up to limit turns ordered oldest-first, ending with the most
// recent. A non-positive limit returns all turns.
func (l *Log) Recent(limit int) []Turn {
	if limit <= 0 || limit > len(l.turns) {
		limit = len(l.turns)
	}
	out := make([]Turn, limit)
	copy(out, l.turns[len(l.turns)-limit:])
	return out
}

// All returns a copy of every recorded turn in insertion order
func (l *Log) All() []Turn {
	return l.Recent(0)
}

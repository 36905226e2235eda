package memory

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/djvaroli/cinemai/internal/graph"
)

func TestLog_AppendAssignsSequence(t *testing.T) {
	log := NewLog()

	first := log.Append(Turn{Utterance: "Who directed Inception?", Category: CategoryQuery, Reply: "Christopher Nolan"})
	second := log.Append(Turn{Utterance: "Thanks!", Category: CategoryIrrelevant, Reply: "You're welcome"})

	if first.Seq != 0 || second.Seq != 1 {
		t.Errorf("Expected sequence 0,1 got %d,%d", first.Seq, second.Seq)
	}
	if first.ID == "" || second.ID == "" {
		t.Error("Expected appended turns to receive IDs")
	}
	if first.Timestamp.IsZero() {
		t.Error("Expected appended turn to receive a timestamp")
	}
	if log.Len() != 2 {
		t.Errorf("Expected 2 turns, got %d", log.Len())
	}
}

func TestLog_RecentReturnsNewestWindowInOrder(t *testing.T) {
	log := NewLog()
	utterances := []string{"a", "b", "c", "d", "e"}
	for _, u := range utterances {
		log.Append(Turn{Utterance: u, Category: CategoryQuery})
	}

	recent := log.Recent(2)
	if len(recent) != 2 {
		t.Fatalf("Expected 2 turns, got %d", len(recent))
	}
	if recent[0].Utterance != "d" || recent[1].Utterance != "e" {
		t.Errorf("Expected [d e], got [%s %s]", recent[0].Utterance, recent[1].Utterance)
	}

	all := log.Recent(0)
	if len(all) != 5 {
		t.Errorf("Expected all 5 turns for non-positive limit, got %d", len(all))
	}
	// a window larger than the log returns everything
	if got := log.Recent(100); len(got) != 5 {
		t.Errorf("Expected 5 turns for oversized limit, got %d", len(got))
	}
}

func TestLog_StoredTurnsAreNotAliased(t *testing.T) {
	log := NewLog()
	log.Append(Turn{Utterance: "original", Category: CategoryQuery, Reply: "reply"})

	out := log.All()
	out[0].Reply = "tampered"

	stored, _ := log.Get(0)
	if stored.Reply != "reply" {
		t.Error("Mutating a returned slice must not affect the stored turn")
	}
}

func sampleTurns() []Turn {
	ts := time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)
	return []Turn{
		{
			ID:        "turn-1",
			Seq:       0,
			Timestamp: ts,
			Utterance: "Who directed Inception?",
			Category:  CategoryQuery,
			Query:     &graph.StructuredQuery{Cypher: `MATCH (p:Person)-[:DIRECTED]->(m:Movie {title: "Inception"}) RETURN p.name`},
			Result:    &graph.QueryResult{Records: []map[string]any{{"p.name": "Christopher Nolan"}}},
			Reply:     "Inception was directed by Christopher Nolan.",
		},
		{
			ID:        "turn-2",
			Seq:       1,
			Timestamp: ts.Add(time.Minute),
			Utterance: "Your answers are too long",
			Category:  CategoryFeedback,
			Reply:     "Got it, I'll keep it brief.",
		},
		{
			ID:        "turn-3",
			Seq:       2,
			Timestamp: ts.Add(2 * time.Minute),
			Utterance: "Is there a movie called Zyxwv?",
			Category:  CategoryQuery,
			Query:     &graph.StructuredQuery{Cypher: `MATCH (m:Movie {title: "Zyxwv"}) RETURN m.title`},
			Result:    &graph.QueryResult{Unknown: true},
			Reply:     "I'm afraid I don't have any information about that one.",
		},
	}
}

func TestFileStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewFileStore(t.TempDir())

	want := sampleTurns()
	if err := store.Save(ctx, "abc123", want); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := store.Load(ctx, "abc123")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !reflect.DeepEqual(want, got) {
		t.Errorf("Round trip mismatch:\nwant %+v\ngot  %+v", want, got)
	}
}

func TestFileStore_LoadMissingSessionIsEmpty(t *testing.T) {
	store := NewFileStore(t.TempDir())
	got, err := store.Load(context.Background(), "nothere")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Expected empty sequence, got %d turns", len(got))
	}
}

func TestSQLiteStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "memory.db"))
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	defer store.Close()

	want := sampleTurns()
	if err := store.Save(ctx, "abc123", want); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := store.Load(ctx, "abc123")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !reflect.DeepEqual(want, got) {
		t.Errorf("Round trip mismatch:\nwant %+v\ngot  %+v", want, got)
	}

	// sessions are isolated
	other, err := store.Load(ctx, "zzz999")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(other) != 0 {
		t.Errorf("Expected no turns for unknown session, got %d", len(other))
	}
}

func TestRestore_PreservesOrder(t *testing.T) {
	log := Restore(sampleTurns())
	if log.Len() != 3 {
		t.Fatalf("Expected 3 turns, got %d", log.Len())
	}
	for i, turn := range log.All() {
		if turn.Seq != i {
			t.Errorf("Turn %d has seq %d", i, turn.Seq)
		}
	}

	next := log.Append(Turn{Utterance: "next", Category: CategoryMemory})
	if next.Seq != 3 {
		t.Errorf("Expected appended turn to continue sequence at 3, got %d", next.Seq)
	}
}

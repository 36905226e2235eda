package graph

import (
	"context"
	"os"
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

func TestNormalize_EmptyIsUnknown(t *testing.T) {
	result := Normalize(nil)
	if !result.Unknown {
		t.Error("Expected an empty record set to normalize to Unknown")
	}
	if len(result.Records) != 0 {
		t.Errorf("Expected no records, got %d", len(result.Records))
	}

	result = Normalize([]*neo4j.Record{})
	if !result.Unknown {
		t.Error("Expected an empty slice to normalize to Unknown")
	}
}

func TestNormalize_RecordsBecomeMaps(t *testing.T) {
	records := []*neo4j.Record{
		{Keys: []string{"p.name"}, Values: []any{"Christopher Nolan"}},
		{Keys: []string{"p.name"}, Values: []any{"Emma Thomas"}},
	}

	result := Normalize(records)
	if result.Unknown {
		t.Fatal("Expected a known result")
	}
	if len(result.Records) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(result.Records))
	}
	if result.Records[0]["p.name"] != "Christopher Nolan" {
		t.Errorf("Unexpected first record: %+v", result.Records[0])
	}
}

func TestUnknownResult(t *testing.T) {
	r := UnknownResult()
	if !r.Unknown || r.Records != nil {
		t.Errorf("Unexpected unknown marker: %+v", r)
	}
}

// TestExecutor_Integration runs against a live Neo4j loaded with the movies
// dataset. It is skipped in short mode and when no database is configured.
func TestExecutor_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	url := os.Getenv("NEO4J_URL")
	if url == "" {
		t.Skip("Skipping integration test: NEO4J_URL not set")
	}

	driver, err := neo4j.NewDriverWithContext(url, neo4j.BasicAuth(
		os.Getenv("NEO4J_USER"),
		os.Getenv("NEO4J_PASSWORD"),
		"",
	))
	if err != nil {
		t.Fatalf("Failed to create driver: %v", err)
	}

	ctx := context.Background()
	executor := NewExecutor(driver)
	defer executor.Close(ctx)

	if err := executor.VerifyConnectivity(ctx); err != nil {
		t.Fatalf("Database unreachable: %v", err)
	}

	result, err := executor.Execute(ctx, StructuredQuery{
		Cypher: `MATCH (p:Person)-[:DIRECTED]->(m:Movie {title: $title}) RETURN p.name`,
		Params: map[string]any{"title": "The Matrix"},
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result.Unknown {
		t.Fatal("Expected the movies dataset to know The Matrix")
	}

	missing, err := executor.Execute(ctx, StructuredQuery{
		Cypher: `MATCH (m:Movie {title: $title}) RETURN m.title`,
		Params: map[string]any{"title": "No Such Movie Exists"},
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !missing.Unknown {
		t.Error("Expected an empty result set to come back as Unknown")
	}
}

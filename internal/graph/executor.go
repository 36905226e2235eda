package graph

import (
	"context"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"github.com/djvaroli/cinemai/pkg/errors"
	"github.com/djvaroli/cinemai/pkg/logger"
)

// Executor runs structured queries against the Neo4j movie graph. It is a
// thin request/response boundary: no retries, no result interpretation beyond
// normalizing an empty result set into the explicit Unknown marker.
type Executor struct {
	driver neo4j.DriverWithContext
	logger *zap.Logger
}

// NewExecutor creates a new query executor
func NewExecutor(driver neo4j.DriverWithContext) *Executor {
	return &Executor{
		driver: driver,
		logger: logger.Get(),
	}
}

// Close closes the Neo4j driver connection
func (e *Executor) Close(ctx context.Context) error {
	return e.driver.Close(ctx)
}

// VerifyConnectivity checks that the database is reachable
func (e *Executor) VerifyConnectivity(ctx context.Context) error {
	return e.driver.VerifyConnectivity(ctx)
}

// Execute runs a structured query and returns its result. An empty result set
// is a legitimate outcome and comes back as Unknown; only malformed queries
// and connectivity problems are errors.
func (e *Executor) Execute(ctx context.Context, query StructuredQuery) (QueryResult, error) {
	session := e.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.Run(ctx, query.Cypher, query.Params)
	if err != nil {
		return QueryResult{}, errors.NewExecutionFailed(query.Cypher, err)
	}

	records, err := result.Collect(ctx)
	if err != nil {
		return QueryResult{}, errors.NewExecutionFailed(query.Cypher, err)
	}

	e.logger.Debug("graph query executed",
		zap.String("cypher", query.Cypher),
		zap.Int("records", len(records)),
	)

	return Normalize(records), nil
}

// Normalize converts raw driver records into a QueryResult, collapsing an
// empty record set into the Unknown marker.
func Normalize(records []*neo4j.Record) QueryResult {
	if len(records) == 0 {
		return UnknownResult()
	}
	out := make([]map[string]any, 0, len(records))
	for _, record := range records {
		out = append(out, record.AsMap())
	}
	return QueryResult{Records: out}
}

package graph

// StructuredQuery is a machine-executable representation of an information
// need against the movie graph: a Cypher statement plus the parameters
// substituted into it.
type StructuredQuery struct {
	Cypher string         `json:"cypher"`
	Params map[string]any `json:"params,omitempty"`
}

// QueryResult is the outcome of a successfully executed query. Unknown marks
// the case where the database legitimately has no answer; it is not an error.
type QueryResult struct {
	Records []map[string]any `json:"records,omitempty"`
	Unknown bool             `json:"unknown"`
}

// UnknownResult returns the explicit no-such-data result
func UnknownResult() QueryResult {
	return QueryResult{Unknown: true}
}

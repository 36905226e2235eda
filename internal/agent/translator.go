package agent

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/djvaroli/cinemai/internal/adapter"
	"github.com/djvaroli/cinemai/internal/graph"
	"github.com/djvaroli/cinemai/internal/memory"
	"github.com/djvaroli/cinemai/internal/prompts"
	"github.com/djvaroli/cinemai/pkg/errors"
	"github.com/djvaroli/cinemai/pkg/logger"
)

// cannotTranslate is the model's explicit marker for questions that have no
// valid query shape against the graph schema.
const cannotTranslate = "NONE"

// readClauses are the Cypher clauses a translated query may start with
var readClauses = []string{"MATCH", "OPTIONAL MATCH", "WITH", "UNWIND", "CALL", "RETURN"}

// Translator turns an utterance plus its resolution context into a structured
// graph query. References to prior turns are resolved using only the hinted
// turns, never the full log.
type Translator struct {
	llm     adapter.Inference
	prompts *prompts.Library
	logger  *zap.Logger
}

// NewTranslator creates a new query translator
func NewTranslator(llm adapter.Inference, lib *prompts.Library) *Translator {
	return &Translator{
		llm:     llm,
		prompts: lib,
		logger:  logger.Get(),
	}
}

// Translate produces a StructuredQuery for the utterance. A question that
// cannot be mapped to any valid query shape fails with a translation error;
// "the query ran and found nothing" is the executor's concern, not this one.
func (t *Translator) Translate(ctx context.Context, utterance, hint string, hinted []memory.Turn) (graph.StructuredQuery, error) {
	system, err := t.prompts.Render(prompts.TemplateTranslate, map[string]any{
		"Context": resolutionContext(hint, hinted),
	})
	if err != nil {
		return graph.StructuredQuery{}, errors.NewTranslationFailed(utterance, "template rendering failed", err)
	}

	raw, err := t.llm.Complete(ctx, system, utterance)
	if err != nil {
		if ctx.Err() != nil {
			return graph.StructuredQuery{}, ctx.Err()
		}
		return graph.StructuredQuery{}, errors.NewTranslationFailed(utterance, "inference call failed", err)
	}

	cypher := stripCodeFences(raw)
	if cypher == "" || strings.EqualFold(cypher, cannotTranslate) {
		return graph.StructuredQuery{}, errors.NewTranslationFailed(utterance, "no valid query shape for this question", nil)
	}
	if !startsWithReadClause(cypher) {
		return graph.StructuredQuery{}, errors.NewTranslationFailed(utterance, fmt.Sprintf("output is not a Cypher read query: %.60s", cypher), nil)
	}

	t.logger.Debug("utterance translated", zap.String("cypher", cypher))
	return graph.StructuredQuery{Cypher: cypher}, nil
}

// resolutionContext combines the classifier's hint with the hinted turns
func resolutionContext(hint string, hinted []memory.Turn) string {
	var parts []string
	if hint != "" {
		parts = append(parts, hint)
	}
	if history := FormatHistory(hinted); history != "" {
		parts = append(parts, history)
	}
	return strings.Join(parts, "\n")
}

func startsWithReadClause(cypher string) bool {
	upper := strings.ToUpper(cypher)
	for _, clause := range readClauses {
		if strings.HasPrefix(upper, clause) {
			return true
		}
	}
	return false
}

// stripCodeFences removes markdown fences the model sometimes wraps code in
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		if i := strings.Index(s, "\n"); i >= 0 && !strings.ContainsAny(s[:i], " \t") {
			// drop a language tag like "cypher"
			s = s[i+1:]
		}
		if i := strings.LastIndex(s, "```"); i >= 0 {
			s = s[:i]
		}
	}
	return strings.TrimSpace(s)
}

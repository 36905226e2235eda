package agent

import (
	"context"
	stderrors "errors"
	"time"

	"go.uber.org/zap"

	"github.com/djvaroli/cinemai/internal/graph"
	"github.com/djvaroli/cinemai/internal/memory"
	"github.com/djvaroli/cinemai/internal/observability"
	"github.com/djvaroli/cinemai/internal/style"
	"github.com/djvaroli/cinemai/pkg/errors"
	"github.com/djvaroli/cinemai/pkg/logger"
)

// State is one position in the per-turn state machine
type State string

const (
	StateReceived    State = "received"
	StateClassified  State = "classified"
	StateQuerying    State = "querying"
	StateComposing   State = "composing"
	StateIntegrating State = "integrating"
	StateDeclining   State = "declining"
	StateResponded   State = "responded"
)

// DeclineReply is the fixed reply for irrelevant input. No downstream
// component is invoked for it.
const DeclineReply = "I'm sorry, I'm a movie assistant and can only help with questions about movies. Is there anything movie-related I can do for you?"

// User-facing explanations per failure stage. A raw service error never
// reaches the user verbatim.
const (
	replyClassificationUnavailable = "I'm sorry, I couldn't make sense of that message just now. Please try again in a moment."
	replyTranslationFailed         = "I'm sorry, I couldn't turn that request into something the movie database understands. Could you rephrase it?"
	replyExecutionFailed           = "I'm sorry, the movie database could not be reached right now. Please try again shortly."
	replyCompositionFailed         = "I'm sorry, I ran into trouble putting together a response. Please try again."
)

// IntentClassifier assigns one of the four categories to an utterance
type IntentClassifier interface {
	Classify(ctx context.Context, utterance string, history []memory.Turn) (Classification, error)
}

// QueryTranslator maps an utterance plus resolution context to a graph query
type QueryTranslator interface {
	Translate(ctx context.Context, utterance, hint string, hinted []memory.Turn) (graph.StructuredQuery, error)
}

// QueryExecutor runs a structured query against the movie graph
type QueryExecutor interface {
	Execute(ctx context.Context, query graph.StructuredQuery) (graph.QueryResult, error)
}

// ReplyComposer produces the natural-language reply for a turn
type ReplyComposer interface {
	Compose(ctx context.Context, contextBlock, utterance string, profile *style.Profile) (string, error)
}

// FeedbackIntegrator folds feedback into the style profile
type FeedbackIntegrator interface {
	Integrate(ctx context.Context, utterance string, profile *style.Profile, turnSeq int) (FeedbackOutcome, error)
}

// Dispatcher runs the per-turn control loop: classify, route down the right
// path, append the outcome to memory exactly once, return the reply. A single
// conversation is strictly sequential; one turn reaches Responded before the
// next utterance is accepted.
type Dispatcher struct {
	classifier IntentClassifier
	translator QueryTranslator
	executor   QueryExecutor
	composer   ReplyComposer
	integrator FeedbackIntegrator
	window     int
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// NewDispatcher creates a dispatcher. window bounds how many recent turns the
// classifier and memory-only composition see.
func NewDispatcher(
	classifier IntentClassifier,
	translator QueryTranslator,
	executor QueryExecutor,
	composer ReplyComposer,
	integrator FeedbackIntegrator,
	window int,
) *Dispatcher {
	return &Dispatcher{
		classifier: classifier,
		translator: translator,
		executor:   executor,
		composer:   composer,
		integrator: integrator,
		window:     window,
		logger:     logger.Get(),
	}
}

// SetMetrics attaches Prometheus instruments; without them the dispatcher
// runs unobserved.
func (d *Dispatcher) SetMetrics(m *observability.Metrics) {
	d.metrics = m
}

// Handle processes one utterance through to Responded and returns the
// appended turn. Component failures become polite turn replies and are still
// recorded; a cancelled context aborts the turn and leaves memory unmodified.
func (d *Dispatcher) Handle(ctx context.Context, utterance string, log *memory.Log, profile *style.Profile) (memory.Turn, error) {
	started := time.Now()
	state := StateReceived

	cls, err := d.classifier.Classify(ctx, utterance, log.Recent(d.window))
	if err != nil {
		if cancelled(err) {
			return memory.Turn{}, errors.NewContextCancelled(string(state), err)
		}
		d.countFailure(state)
		// No category is guessed; the turn records the failure with the
		// classification left unset.
		return d.respond(log, memory.Turn{
			Utterance: utterance,
			Reply:     replyClassificationUnavailable,
		}, started), nil
	}
	state = StateClassified

	turn := memory.Turn{
		Utterance: utterance,
		Category:  cls.Category,
	}

	switch cls.Category {
	case memory.CategoryQuery:
		state = StateQuerying
		query, result, err := d.runQueryPath(ctx, utterance, cls, log)
		if err != nil {
			if cancelled(err) {
				return memory.Turn{}, errors.NewContextCancelled(string(state), err)
			}
			d.countFailure(state)
			turn.Reply = failureReply(err)
			return d.respond(log, turn, started), nil
		}
		turn.Query = &query
		turn.Result = &result

		state = StateComposing
		reply, err := d.composer.Compose(ctx, DatabaseContext(result), utterance, profile)
		if err != nil {
			if cancelled(err) {
				return memory.Turn{}, errors.NewContextCancelled(string(state), err)
			}
			d.countFailure(state)
			turn.Reply = replyCompositionFailed
			return d.respond(log, turn, started), nil
		}
		turn.Reply = reply

	case memory.CategoryMemory:
		state = StateComposing
		reply, err := d.composer.Compose(ctx, MemoryContext(log.Recent(d.window)), utterance, profile)
		if err != nil {
			if cancelled(err) {
				return memory.Turn{}, errors.NewContextCancelled(string(state), err)
			}
			d.countFailure(state)
			turn.Reply = replyCompositionFailed
			return d.respond(log, turn, started), nil
		}
		turn.Reply = reply

	case memory.CategoryFeedback:
		state = StateIntegrating
		outcome, err := d.integrator.Integrate(ctx, utterance, profile, log.Len())
		if err != nil {
			if cancelled(err) {
				return memory.Turn{}, errors.NewContextCancelled(string(state), err)
			}
			d.countFailure(state)
			turn.Reply = replyCompositionFailed
			return d.respond(log, turn, started), nil
		}

		state = StateComposing
		reply, err := d.composer.Compose(ctx, FeedbackContext(outcome), utterance, profile)
		if err != nil {
			if cancelled(err) {
				return memory.Turn{}, errors.NewContextCancelled(string(state), err)
			}
			d.countFailure(state)
			turn.Reply = replyCompositionFailed
			return d.respond(log, turn, started), nil
		}
		turn.Reply = reply

	case memory.CategoryIrrelevant:
		state = StateDeclining
		turn.Reply = DeclineReply
	}

	return d.respond(log, turn, started), nil
}

// runQueryPath runs Translator then Executor in strict order
func (d *Dispatcher) runQueryPath(ctx context.Context, utterance string, cls Classification, log *memory.Log) (graph.StructuredQuery, graph.QueryResult, error) {
	query, err := d.translator.Translate(ctx, utterance, cls.ContextHint, hintedTurns(cls, log))
	if err != nil {
		return graph.StructuredQuery{}, graph.QueryResult{}, err
	}

	result, err := d.executor.Execute(ctx, query)
	if err != nil {
		return graph.StructuredQuery{}, graph.QueryResult{}, err
	}
	return query, result, nil
}

// hintedTurns selects the prior turns translation may resolve references
// against. The hint is free text, so the selection is the most recent turn
// when a hint is present; translation never scans the full log.
func hintedTurns(cls Classification, log *memory.Log) []memory.Turn {
	if cls.ContextHint == "" || log.Len() == 0 {
		return nil
	}
	return log.Recent(1)
}

// respond appends the finished turn to memory. This is the sole mutation
// point for the log, and it runs exactly once per turn.
func (d *Dispatcher) respond(log *memory.Log, turn memory.Turn, started time.Time) memory.Turn {
	stored := log.Append(turn)
	if d.metrics != nil {
		category := string(stored.Category)
		if category == "" {
			// classification-failure turns carry no category
			category = "unclassified"
		}
		d.metrics.Turns.WithLabelValues(category).Inc()
		d.metrics.ObserveTurnLatency(time.Since(started))
	}
	d.logger.Info("turn responded",
		zap.Int("seq", stored.Seq),
		zap.String("category", string(stored.Category)),
	)
	return stored
}

func (d *Dispatcher) countFailure(state State) {
	if d.metrics != nil {
		d.metrics.TurnFailures.WithLabelValues(string(state)).Inc()
	}
}

// failureReply maps a component error to its user-facing explanation
func failureReply(err error) string {
	switch {
	case errors.IsErrorType(err, errors.ErrorTypeTranslation):
		return replyTranslationFailed
	case errors.IsErrorType(err, errors.ErrorTypeExecution):
		return replyExecutionFailed
	case errors.IsErrorType(err, errors.ErrorTypeClassification):
		return replyClassificationUnavailable
	default:
		return replyCompositionFailed
	}
}

// cancelled reports whether the error stems from the caller aborting the
// turn. Deadline expiry is handled as a recorded failure instead, so timed
// out turns still leave their trace in memory.
func cancelled(err error) bool {
	return stderrors.Is(err, context.Canceled)
}

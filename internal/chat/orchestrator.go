// Package chat drives a single chat turn: it shows the prompt right away,
// streams the model answer in coalesced chunks and persists the finished
// turn exactly once.
package chat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethanbaker/vulnassist/pkg/chat"
	"github.com/ethanbaker/vulnassist/pkg/nvd"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultDebounce is the coalescing window for streamed model text
const DefaultDebounce = 10 * time.Millisecond

var (
	// ErrHistory wraps failures to load the conversation before a turn
	ErrHistory = errors.New("failed to load chat history")

	// ErrStream wraps failures raised by the model while streaming
	ErrStream = errors.New("model stream failed")
)

// History is the persistence the orchestrator needs
type History interface {
	ReadAll(ctx context.Context) ([]chat.Message, error)
	Append(ctx context.Context, batch []byte) error
}

// Model produces the answer to a prompt given the prior conversation. Text
// deltas are reported through onDelta as they arrive; the full response is
// returned once the model ends its turn. A non-nil error from onDelta must
// stop the stream.
type Model interface {
	Stream(ctx context.Context, history []chat.Message, prompt string, onDelta func(delta string) error) (string, error)
}

// Orchestrator ties the message history and the model together
type Orchestrator struct {
	history  History
	model    Model
	debounce time.Duration
	logger   *zap.Logger

	onPersistFailure func(turnID uuid.UUID, err error)
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithDebounce sets the coalescing window for model events
func WithDebounce(window time.Duration) Option {
	return func(o *Orchestrator) {
		o.debounce = window
	}
}

// WithLogger sets the orchestrator logger
func WithLogger(logger *zap.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithPersistFailureHook is called when a turn was streamed but could not be stored
func WithPersistFailureHook(fn func(turnID uuid.UUID, err error)) Option {
	return func(o *Orchestrator) {
		o.onPersistFailure = fn
	}
}

// NewOrchestrator creates a new orchestrator
func NewOrchestrator(history History, model Model, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		history:  history,
		model:    model,
		debounce: DefaultDebounce,
		logger:   zap.NewNop(),
	}

	for _, opt := range opts {
		opt(o)
	}
	o.logger = o.logger.Named("chat")

	return o
}

// History returns the stored conversation as chat events
func (o *Orchestrator) History(ctx context.Context) ([]chat.Event, error) {
	messages, err := o.history.ReadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrHistory, err)
	}

	events := make([]chat.Event, 0, len(messages))
	for _, m := range messages {
		events = append(events, chat.EventFromMessage(m))
	}
	return events, nil
}

// Run executes one chat turn. The user event is emitted before any I/O,
// model text follows as coalesced model events, and the finished turn is
// appended to the history once. Turns whose context ends before the model
// finishes are not stored. A failed append is logged and reported through
// the persist failure hook but does not fail the already delivered turn.
func (o *Orchestrator) Run(ctx context.Context, prompt, credential string, emit func(chat.Event) error) error {
	turnID := uuid.New()
	logger := o.logger.With(zap.String("turn_id", turnID.String()))

	// Received
	userMsg := chat.NewMessage(chat.RoleUser, prompt)
	if err := emit(chat.EventFromMessage(userMsg)); err != nil {
		return fmt.Errorf("failed to emit user event: %w", err)
	}

	// HistoryLoaded
	history, err := o.history.ReadAll(ctx)
	if err != nil {
		logger.Error("history load failed, turn aborted", zap.Error(err))
		return fmt.Errorf("%w: %w", ErrHistory, err)
	}

	// Streaming
	streamCtx, cancel := context.WithCancel(nvd.WithCredential(ctx, credential))
	defer cancel()

	modelAt := time.Now().UTC()
	if modelAt.Before(userMsg.Timestamp) {
		modelAt = userMsg.Timestamp
	}

	debouncer := NewDebouncer(o.debounce, func(text string) error {
		return emit(chat.NewEvent(chat.RoleModel, modelAt, text))
	})

	final, streamErr := o.model.Stream(streamCtx, history, prompt, func(delta string) error {
		return debouncer.Push(streamCtx, delta)
	})
	streamed, emitErr := debouncer.Stop()

	if emitErr != nil {
		logger.Info("caller went away mid-stream, turn dropped", zap.Error(emitErr))
		return fmt.Errorf("failed to emit model event: %w", emitErr)
	}
	if streamErr != nil {
		if ctx.Err() != nil {
			logger.Info("turn cancelled mid-stream, turn dropped", zap.Error(ctx.Err()))
			return ctx.Err()
		}
		logger.Error("model stream failed", zap.Error(streamErr))
		return fmt.Errorf("%w: %w", ErrStream, streamErr)
	}
	if ctx.Err() != nil {
		logger.Info("turn cancelled before persisting, turn dropped", zap.Error(ctx.Err()))
		return ctx.Err()
	}

	if final == "" {
		final = streamed
	}

	// Persisted
	batch, err := chat.EncodeBatch([]chat.Message{
		userMsg,
		{Role: chat.RoleModel, Timestamp: modelAt, Content: final},
	})
	if err == nil {
		err = o.history.Append(context.WithoutCancel(ctx), batch)
	}
	if err != nil {
		logger.Error("persistence gap: turn was delivered but not stored",
			zap.Int("bytes", len(batch)),
			zap.Error(err),
		)
		if o.onPersistFailure != nil {
			o.onPersistFailure(turnID, err)
		}
		return nil
	}

	logger.Debug("turn persisted", zap.Int("bytes", len(batch)), zap.Int("history", len(history)))
	return nil
}

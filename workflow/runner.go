// Package workflow runs single-step completion workflows.
//
// A Runner owns exactly one RunState. Run makes one call to the injected
// llm.Provider, copies the first choice's content into the state, and
// moves the state from created to completed (or failed). A Runner never
// runs twice; build a new one per inbound trigger.
package workflow

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/PipeOpsHQ/agent-kickoff/llm"
	"github.com/PipeOpsHQ/agent-kickoff/observe"
	"github.com/PipeOpsHQ/agent-kickoff/types"
)

const (
	DefaultModel  = "gemini/gemini-1.5-flash"
	DefaultPrompt = "Say Hello World with you model name and input, output tokens size?"
)

type Runner struct {
	provider    llm.Provider
	name        string
	model       string
	messages    []types.Message
	stepTimeout time.Duration
	sink        observe.Sink
	newID       func() string
	now         func() time.Time

	mu    sync.Mutex
	state *RunState
}

type Option func(*Runner)

// WithName labels the run for observability, usually the flow name.
func WithName(name string) Option {
	return func(r *Runner) { r.name = name }
}

func WithModel(model string) Option {
	return func(r *Runner) {
		if model != "" {
			r.model = model
		}
	}
}

// WithMessages replaces the fixed prompt sent to the provider.
func WithMessages(messages ...types.Message) Option {
	return func(r *Runner) {
		if len(messages) > 0 {
			r.messages = append([]types.Message(nil), messages...)
		}
	}
}

// WithStepTimeout bounds the provider call. Zero means no bound beyond ctx.
func WithStepTimeout(d time.Duration) Option {
	return func(r *Runner) {
		if d >= 0 {
			r.stepTimeout = d
		}
	}
}

func WithSink(sink observe.Sink) Option {
	return func(r *Runner) {
		if sink != nil {
			r.sink = sink
		}
	}
}

// WithIDGenerator overrides how the run id is produced. The default is a
// random UUID.
func WithIDGenerator(fn func() string) Option {
	return func(r *Runner) { r.newID = fn }
}

func withClock(now func() time.Time) Option {
	return func(r *Runner) {
		if now != nil {
			r.now = now
		}
	}
}

// New builds a runner and allocates its RunState.
func New(provider llm.Provider, opts ...Option) (*Runner, error) {
	if provider == nil {
		return nil, errors.New("provider is required")
	}
	r := &Runner{
		provider: provider,
		model:    DefaultModel,
		messages: []types.Message{{Role: types.RoleUser, Content: DefaultPrompt}},
		sink:     observe.NoopSink{},
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(r)
	}
	r.state = NewRunState(r.newID)
	return r, nil
}

// State returns the runner's RunState. It is valid before and after Run.
func (r *Runner) State() *RunState {
	return r.state
}

// Result snapshots the state, labelled with the runner's flow, provider and model.
func (r *Runner) Result() types.RunResult {
	out := r.state.Snapshot()
	out.Flow = r.name
	out.Provider = r.providerName()
	out.Model = r.model
	return out
}

// Run executes the single step. On failure the returned error is an
// *UpstreamCompletionError and the state's message stays empty.
func (r *Runner) Run(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	startedAt := r.now()
	if !r.state.begin(startedAt) {
		return ErrAlreadyRun
	}
	runID := r.state.ID()
	providerName := r.providerName()

	r.emit(ctx, observe.Event{
		Timestamp: startedAt,
		RunID:     runID,
		Flow:      r.name,
		Kind:      observe.KindRun,
		Status:    observe.StatusStarted,
		Provider:  providerName,
		Model:     r.model,
		Message:   "run started",
	})

	message, usage, err := r.step(ctx, runID, providerName)
	completedAt := r.now()
	if err != nil {
		r.state.fail(completedAt)
		r.emit(ctx, observe.Event{
			Timestamp:  completedAt,
			RunID:      runID,
			Flow:       r.name,
			Kind:       observe.KindRun,
			Status:     observe.StatusFailed,
			Provider:   providerName,
			Model:      r.model,
			Message:    "run failed",
			Error:      err.Error(),
			DurationMs: completedAt.Sub(startedAt).Milliseconds(),
		})
		return err
	}

	r.state.complete(message, usage, completedAt)
	r.emit(ctx, observe.Event{
		Timestamp:  completedAt,
		RunID:      runID,
		Flow:       r.name,
		Kind:       observe.KindRun,
		Status:     observe.StatusCompleted,
		Provider:   providerName,
		Model:      r.model,
		Message:    "run completed",
		DurationMs: completedAt.Sub(startedAt).Milliseconds(),
	})
	return nil
}

func (r *Runner) step(ctx context.Context, runID, providerName string) (string, *types.Usage, error) {
	if r.stepTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.stepTimeout)
		defer cancel()
	}

	req := types.CompletionRequest{
		Model:    r.model,
		Messages: append([]types.Message(nil), r.messages...),
	}

	callStarted := r.now()
	resp, err := r.provider.Complete(ctx, req)
	callFinished := r.now()

	providerEvent := observe.Event{
		Timestamp:  callFinished,
		RunID:      runID,
		Flow:       r.name,
		Kind:       observe.KindProvider,
		Status:     observe.StatusCompleted,
		Provider:   providerName,
		Model:      r.model,
		DurationMs: callFinished.Sub(callStarted).Milliseconds(),
		Attributes: map[string]any{"choices": len(resp.Choices)},
	}
	if resp.Usage != nil {
		providerEvent.Attributes["inputTokens"] = resp.Usage.InputTokens
		providerEvent.Attributes["outputTokens"] = resp.Usage.OutputTokens
	}

	if err == nil && len(resp.Choices) == 0 {
		err = ErrNoChoices
	}
	if err != nil {
		providerEvent.Status = observe.StatusFailed
		providerEvent.Error = err.Error()
		r.emit(ctx, providerEvent)
		return "", nil, &UpstreamCompletionError{Provider: providerName, Model: r.model, Err: err}
	}
	r.emit(ctx, providerEvent)

	return resp.Choices[0].Message.Content, resp.Usage, nil
}

func (r *Runner) providerName() string {
	if prefix, _ := llm.SplitModel(r.model); prefix != "" {
		return prefix
	}
	return r.provider.Name()
}

// emit drops sink errors; a run's outcome depends only on the provider.
func (r *Runner) emit(ctx context.Context, event observe.Event) {
	_ = r.sink.Emit(ctx, event)
}

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"time"

	"github.com/poiesic/clinroute/core"
	"github.com/poiesic/clinroute/storage"
)

const (
	// StageSupervisor names the routing stage's event.
	StageSupervisor = "supervisor"
	// StageError names the terminal event of a failed run.
	StageError = "error"
)

// Router writes the route of a state.
type Router interface {
	Route(ctx context.Context, state core.PipelineState) (core.PipelineState, error)
}

// Handler produces the response for one route.
type Handler interface {
	Name() string
	Run(ctx context.Context, state core.PipelineState) (core.PipelineState, error)
}

// Event is one stage transition of a streamed run. Err is set only on the
// StageError event, whose State carries the partial state and its Error text.
type Event struct {
	Stage string
	State core.PipelineState
	Err   error
}

// Pipeline dispatches routed queries to their handlers.
type Pipeline struct {
	router      Router
	handlers    map[core.Route]Handler
	checkpoints storage.CheckpointStore
	monitor     Monitor
	logger      *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithCheckpointStore enables per-thread checkpoints for states carrying a ThreadID.
func WithCheckpointStore(store storage.CheckpointStore) Option {
	return func(p *Pipeline) error {
		p.checkpoints = store
		return nil
	}
}

// WithMonitor sets a Monitor observing every run.
func WithMonitor(monitor Monitor) Option {
	return func(p *Pipeline) error {
		if monitor == nil {
			monitor = &noopMonitor{}
		}
		p.monitor = monitor
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// New wires the router to one handler per route.
func New(router Router, toolFinder, orgMatcher, advisor Handler, opts ...Option) (*Pipeline, error) {
	if router == nil {
		return nil, ErrRouterRequired
	}
	if toolFinder == nil || orgMatcher == nil || advisor == nil {
		return nil, ErrHandlerRequired
	}

	p := &Pipeline{
		router: router,
		handlers: map[core.Route]Handler{
			core.RouteToolFinder:      toolFinder,
			core.RouteOrgMatcher:      orgMatcher,
			core.RouteWorkflowAdvisor: advisor,
		},
		monitor: &noopMonitor{},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	p.logger = p.logger.With("component", "pipeline")
	return p, nil
}

// Invoke runs the supervisor and then exactly one handler. On failure it
// returns the partial state with Error set alongside the error; that state
// is never a complete response.
func (p *Pipeline) Invoke(ctx context.Context, state core.PipelineState) (core.PipelineState, error) {
	return p.run(ctx, state, nil)
}

// Stream runs the pipeline lazily, yielding the supervisor's state and then
// the handler's state. Each call starts a new run. Breaking out of the loop
// after the first event skips the handler; cancel ctx to abort a stage that
// is already running.
func (p *Pipeline) Stream(ctx context.Context, state core.PipelineState) iter.Seq[Event] {
	return func(yield func(Event) bool) {
		final, err := p.run(ctx, state, yield)
		if err == nil || errors.Is(err, errStopped) {
			return
		}
		yield(Event{Stage: StageError, State: final, Err: err})
	}
}

// errStopped marks a stream whose consumer stopped early. It is never
// returned to callers.
var errStopped = errors.New("stream stopped by consumer")

// run drives one turn. emit is nil for Invoke; for Stream it receives each
// completed stage, and the final checkpoint is saved before the last event.
func (p *Pipeline) run(ctx context.Context, initial core.PipelineState, emit func(Event) bool) (core.PipelineState, error) {
	state, err := prepare(initial)
	if err != nil {
		p.logger.Warn("rejected initial state", "err", err)
		return fail(initial, err)
	}

	p.monitor.Start(state.Query)
	finish := func(s core.PipelineState, err error) (core.PipelineState, error) {
		if errors.Is(err, errStopped) {
			p.monitor.Finish(s, context.Canceled)
			return s, err
		}
		if err != nil {
			s, err = fail(s, err)
		}
		p.monitor.Finish(s, err)
		return s, err
	}

	if state.ThreadID != "" && p.checkpoints != nil {
		turn, err := p.nextTurn(ctx, state.ThreadID)
		if err != nil {
			return finish(state, err)
		}
		state.Turn = turn
	}

	// Supervisor
	start := time.Now()
	routed, err := p.router.Route(ctx, state.Clone())
	if err != nil {
		p.monitor.StageFailed(StageSupervisor, err, time.Since(start))
		p.logger.Error("routing failed", "err", err)
		return finish(state, err)
	}
	p.monitor.StageCompleted(StageSupervisor, routed, time.Since(start))

	handler, ok := p.handlers[routed.Route]
	if !ok {
		return finish(routed, fmt.Errorf("%w: %q", ErrUnknownRoute, routed.Route))
	}
	if emit != nil && !emit(Event{Stage: StageSupervisor, State: routed.Clone()}) {
		return finish(routed, errStopped)
	}
	if err := ctx.Err(); err != nil {
		return finish(routed, err)
	}

	// Handler
	start = time.Now()
	final, err := handler.Run(ctx, routed.Clone())
	if err != nil {
		p.monitor.StageFailed(handler.Name(), err, time.Since(start))
		p.logger.Error("handler failed", "stage", handler.Name(), "route", routed.Route, "err", err)
		return finish(routed, err)
	}
	p.monitor.StageCompleted(handler.Name(), final, time.Since(start))

	// The route is written once, by the supervisor
	final.Route = routed.Route
	final.RouteFallback = routed.RouteFallback
	final.Confidence.Routing = routed.Confidence.Routing
	final.Confidence = final.Confidence.WithOverall()

	if final.ThreadID != "" && p.checkpoints != nil {
		if err := p.checkpoints.SaveCheckpoint(ctx, final.ThreadID, final.Clone()); err != nil {
			p.logger.Error("error saving checkpoint", "thread", final.ThreadID, "err", err)
			return finish(final, fmt.Errorf("%w: %w", ErrCheckpoint, err))
		}
	}

	p.logger.Debug("completed turn", "route", final.Route, "confidence", final.Confidence.Overall)
	if emit != nil && !emit(Event{Stage: handler.Name(), State: final.Clone()}) {
		return finish(final, errStopped)
	}
	return finish(final, nil)
}

func (p *Pipeline) nextTurn(ctx context.Context, threadID string) (int, error) {
	prev, err := p.checkpoints.LoadCheckpoint(ctx, threadID)
	if err != nil {
		p.logger.Error("error loading checkpoint", "thread", threadID, "err", err)
		return 0, fmt.Errorf("%w: %w", ErrCheckpoint, err)
	}
	if prev == nil {
		return 1, nil
	}
	return prev.Turn + 1, nil
}

// prepare checks the initial-state contract and returns a private copy with
// non-nil result slices.
func prepare(state core.PipelineState) (core.PipelineState, error) {
	if err := core.ValidateQuery(state.Query); err != nil {
		return state, fmt.Errorf("%w: %w", ErrInvalidState, err)
	}
	switch {
	case state.Route != core.RouteNone:
		return state, fmt.Errorf("%w: route already set", ErrInvalidState)
	case state.Response != "":
		return state, fmt.Errorf("%w: response already set", ErrInvalidState)
	case state.Error != "":
		return state, fmt.Errorf("%w: error already set", ErrInvalidState)
	case len(state.ToolsResults) > 0 || len(state.OrgsResults) > 0:
		return state, fmt.Errorf("%w: results already set", ErrInvalidState)
	}
	state.Confidence = core.Confidence{}
	state.RouteFallback = false
	return state.Clone(), nil
}

func fail(state core.PipelineState, err error) (core.PipelineState, error) {
	state = state.Clone()
	state.Error = err.Error()
	state.Response = ""
	return state, err
}

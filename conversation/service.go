// Package conversation keeps multi-turn threads: it stores each question and
// answer and runs every turn through the pipeline with the thread's ID so
// checkpoints follow the conversation.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"

	"github.com/poiesic/clinroute/core"
	"github.com/poiesic/clinroute/pipeline"
	"github.com/poiesic/clinroute/storage"
)

// Runner executes query turns. *pipeline.Pipeline implements it.
type Runner interface {
	Invoke(ctx context.Context, state core.PipelineState) (core.PipelineState, error)
	Stream(ctx context.Context, state core.PipelineState) iter.Seq[pipeline.Event]
}

var _ Runner = (*pipeline.Pipeline)(nil)

// ThreadWithMessages is a thread together with its full history.
type ThreadWithMessages struct {
	*core.Thread
	Messages []*core.Message `json:"messages"`
}

// Service manages threads and answers queries inside them.
type Service struct {
	threads     storage.ThreadRepository
	checkpoints storage.CheckpointStore
	runner      Runner
	logger      *slog.Logger
}

// Option configures a Service.
type Option func(*Service) error

// WithCheckpointStore lets DeleteThread drop the thread's checkpoint.
func WithCheckpointStore(store storage.CheckpointStore) Option {
	return func(s *Service) error {
		s.checkpoints = store
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewService creates a conversation service.
func NewService(threads storage.ThreadRepository, runner Runner, opts ...Option) (*Service, error) {
	if threads == nil {
		return nil, ErrRepositoryRequired
	}
	if runner == nil {
		return nil, ErrPipelineRequired
	}
	s := &Service{
		threads: threads,
		runner:  runner,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "conversation")
	return s, nil
}

// CreateThread starts a thread. An empty title becomes core.DefaultThreadTitle.
func (s *Service) CreateThread(ctx context.Context, title string) (*core.Thread, error) {
	if title != "" {
		if err := core.ValidateTitle(title); err != nil {
			return nil, err
		}
	}
	thread, err := s.threads.CreateThread(ctx, title)
	if err != nil {
		s.logger.Error("error creating thread", "err", err)
		return nil, err
	}
	return thread, nil
}

// GetThread returns a thread with its messages in order.
func (s *Service) GetThread(ctx context.Context, id string) (*ThreadWithMessages, error) {
	thread, err := s.threads.GetThread(ctx, id)
	if err != nil {
		return nil, mapNotFound(err)
	}
	messages, err := s.threads.GetMessages(ctx, id)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return &ThreadWithMessages{Thread: thread, Messages: messages}, nil
}

// ListThreads returns every thread, most recently updated first.
func (s *Service) ListThreads(ctx context.Context) ([]*core.Thread, error) {
	return s.threads.ListThreads(ctx)
}

// RenameThread sets a thread's title.
func (s *Service) RenameThread(ctx context.Context, id, title string) (*core.Thread, error) {
	if err := core.ValidateTitle(title); err != nil {
		return nil, err
	}
	thread, err := s.threads.UpdateThreadTitle(ctx, id, title)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return thread, nil
}

// DeleteThread removes a thread, its messages and its checkpoint.
func (s *Service) DeleteThread(ctx context.Context, id string) error {
	if err := s.threads.DeleteThread(ctx, id); err != nil {
		return mapNotFound(err)
	}
	if s.checkpoints != nil {
		if err := s.checkpoints.DeleteCheckpoint(ctx, id); err != nil {
			s.logger.Warn("error deleting checkpoint", "thread", id, "err", err)
			return err
		}
	}
	return nil
}

// Ask answers query within a thread. The user message is stored before the
// pipeline runs and the assistant message only after it succeeds.
func (s *Service) Ask(ctx context.Context, threadID, query string) (core.PipelineState, error) {
	thread, err := s.beginTurn(ctx, threadID, query)
	if err != nil {
		return core.PipelineState{}, err
	}

	state, err := s.runner.Invoke(ctx, newTurnState(threadID, query))
	if err != nil {
		return state, err
	}
	if err := s.completeTurn(ctx, thread, state); err != nil {
		return state, err
	}
	return state, nil
}

// AskStream relays pipeline events for a turn within a thread. The
// assistant message is stored before the final event is yielded; a storage
// failure at that point ends the stream with an error event.
func (s *Service) AskStream(ctx context.Context, threadID, query string) iter.Seq[pipeline.Event] {
	return func(yield func(pipeline.Event) bool) {
		thread, err := s.beginTurn(ctx, threadID, query)
		if err != nil {
			yield(pipeline.Event{Stage: pipeline.StageError, State: failedState(query, err), Err: err})
			return
		}

		for ev := range s.runner.Stream(ctx, newTurnState(threadID, query)) {
			if ev.Stage != pipeline.StageError && ev.Stage != pipeline.StageSupervisor {
				if err := s.completeTurn(ctx, thread, ev.State); err != nil {
					yield(pipeline.Event{Stage: pipeline.StageError, State: failedState(query, err), Err: err})
					return
				}
			}
			if !yield(ev) {
				return
			}
		}
	}
}

func (s *Service) beginTurn(ctx context.Context, threadID, query string) (*core.Thread, error) {
	if err := core.ValidateQuery(query); err != nil {
		return nil, err
	}
	thread, err := s.threads.GetThread(ctx, threadID)
	if err != nil {
		return nil, mapNotFound(err)
	}
	if _, err := s.threads.AddMessage(ctx, &core.Message{
		ThreadID: threadID,
		Role:     core.RoleUser,
		Content:  query,
	}); err != nil {
		s.logger.Error("error storing user message", "thread", threadID, "err", err)
		return nil, mapNotFound(err)
	}
	return thread, nil
}

func (s *Service) completeTurn(ctx context.Context, thread *core.Thread, state core.PipelineState) error {
	if _, err := s.threads.AddMessage(ctx, &core.Message{
		ThreadID: thread.ID,
		Role:     core.RoleAssistant,
		Content:  state.Response,
		Route:    state.Route,
	}); err != nil {
		s.logger.Error("error storing assistant message", "thread", thread.ID, "err", err)
		return mapNotFound(err)
	}

	// The first successful turn names the thread after its query, whatever
	// the response was
	if title := core.AutoTitle(state.Query); thread.Title == core.DefaultThreadTitle && title != "" {
		if _, err := s.threads.UpdateThreadTitle(ctx, thread.ID, title); err != nil {
			s.logger.Error("error retitling thread", "thread", thread.ID, "err", err)
			return mapNotFound(err)
		}
		s.logger.Debug("retitled thread", "thread", thread.ID, "title", title)
	}
	return nil
}

func newTurnState(threadID, query string) core.PipelineState {
	state := core.NewPipelineState(query)
	state.ThreadID = threadID
	return state
}

func failedState(query string, err error) core.PipelineState {
	state := core.NewPipelineState(query)
	state.Error = err.Error()
	return state
}

func mapNotFound(err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("%w: %w", ErrThreadNotFound, err)
	}
	return err
}

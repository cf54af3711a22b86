// Package worker coordinates canvas mutations. A bounded pool pulls
// operation jobs from the queue and runs each through the store's per-thread
// exclusive transaction: received, locked, loaded or initialized, mutated,
// encoded, persisted, committed. Any failure before persist rolls back with
// nothing written. Same-thread jobs are linearized by the row lock in commit
// order, not submission order; distinct threads never contend.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"weave/api/internal/canvas"
	"weave/api/internal/engine"
	"weave/api/internal/identity"
	"weave/api/internal/ops"
	"weave/api/internal/queue"
)

// CanvasStore is the storage transaction the coordinator runs mutations
// inside. Implemented by store.CanvasStore; tests use an in-memory fake
// with the same lock contract.
type CanvasStore interface {
	Mutate(ctx context.Context, tenantScope uint32, threadID identity.ThreadID,
		fn func(state *canvas.State) (*canvas.State, error)) (*canvas.State, error)
}

// JobSource delivers operation jobs, at-least-once, no same-key ordering.
type JobSource interface {
	Dequeue(ctx context.Context, wait time.Duration) (ops.Envelope, error)
}

// Publisher fans committed states out to live collaborators.
type Publisher interface {
	PublishState(ctx context.Context, threadID identity.ThreadID, state *canvas.State) error
}

type Service struct {
	store       CanvasStore
	jobs        JobSource
	pub         Publisher
	log         zerolog.Logger
	workers     int
	dequeueWait time.Duration
}

func New(store CanvasStore, jobs JobSource, pub Publisher, log zerolog.Logger, workers int, dequeueWait time.Duration) *Service {
	if workers <= 0 {
		workers = 10
	}
	if dequeueWait <= 0 {
		dequeueWait = 2 * time.Second
	}
	return &Service{
		store:       store,
		jobs:        jobs,
		pub:         pub,
		log:         log,
		workers:     workers,
		dequeueWait: dequeueWait,
	}
}

// Run starts the worker pool and blocks until ctx is canceled and every
// in-flight job has finished.
func (s *Service) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			s.workerLoop(ctx, id)
		}(i)
	}
	wg.Wait()
}

func (s *Service) workerLoop(ctx context.Context, id int) {
	log := s.log.With().Int("worker", id).Logger()
	for {
		if ctx.Err() != nil {
			return
		}
		env, err := s.jobs.Dequeue(ctx, s.dequeueWait)
		if errors.Is(err, queue.ErrEmpty) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			// Malformed job or queue hiccup. Delivery is single-attempt, so
			// log and move on; the submitter decides whether to resubmit.
			log.Error().Err(err).Msg("dequeue failed, dropping job")
			continue
		}
		s.handle(ctx, log, env)
	}
}

func (s *Service) handle(ctx context.Context, log zerolog.Logger, env ops.Envelope) {
	start := time.Now()
	log = log.With().
		Uint32("tenant", env.TenantScope).
		Str("thread", string(env.ThreadID)).
		Str("op", env.Op.OpType()).
		Logger()

	state, err := s.ApplyOperation(ctx, env)
	if err != nil {
		derr := Classify(err)
		log.Warn().Err(err).Str("code", derr.Code).Dur("took", time.Since(start)).
			Msg("operation aborted, nothing written")
		return
	}

	if s.pub != nil {
		if err := s.pub.PublishState(ctx, env.ThreadID, state); err != nil {
			// The mutation is committed; a failed fan-out only degrades
			// liveness for watchers.
			log.Error().Err(err).Msg("publish committed state failed")
		}
	}
	log.Info().Int("cards", len(state.Cards)).Int("edges", len(state.Edges)).
		Dur("took", time.Since(start)).Msg("operation committed")
}

// ApplyOperation validates the job, then runs it inside the thread's
// exclusive storage transaction. On success the returned state is the full
// committed post-mutation canvas. All id text in the envelope and payload is
// checked against the identity registry before any storage access.
func (s *Service) ApplyOperation(ctx context.Context, env ops.Envelope) (*canvas.State, error) {
	if err := identity.Validate(identity.Thread, string(env.ThreadID)); err != nil {
		return nil, err
	}
	scope, err := identity.TenantScope(string(env.ThreadID))
	if err != nil {
		return nil, err
	}
	if scope != env.TenantScope {
		return nil, &BadOperationError{
			Detail: fmt.Sprintf("thread %s does not belong to tenant %d", env.ThreadID, env.TenantScope),
		}
	}
	if err := ops.ValidateOp(env.Op); err != nil {
		return nil, &BadOperationError{Detail: err.Error()}
	}

	return s.store.Mutate(ctx, env.TenantScope, env.ThreadID, func(state *canvas.State) (*canvas.State, error) {
		return engine.Apply(state, env.Op)
	})
}

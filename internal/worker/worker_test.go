package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"weave/api/internal/canvas"
	"weave/api/internal/identity"
	"weave/api/internal/ops"
	"weave/api/internal/queue"
	"weave/api/internal/store"
)

// memStore emulates the Postgres canvas store: one encoded document per
// thread, a per-thread mutex standing in for the row lock, and nothing
// written when the mutation fn fails.
type memStore struct {
	mu    sync.Mutex
	locks map[identity.ThreadID]*sync.Mutex
	rows  map[identity.ThreadID][]byte
	// onLocked, when set, runs while the thread lock is held.
	onLocked func(threadID identity.ThreadID)
}

func newMemStore(threads ...identity.ThreadID) *memStore {
	s := &memStore{
		locks: make(map[identity.ThreadID]*sync.Mutex),
		rows:  make(map[identity.ThreadID][]byte),
	}
	for _, id := range threads {
		s.rows[id] = nil
		s.locks[id] = &sync.Mutex{}
	}
	return s
}

func (s *memStore) Mutate(
	ctx context.Context,
	tenantScope uint32,
	threadID identity.ThreadID,
	fn func(state *canvas.State) (*canvas.State, error),
) (*canvas.State, error) {
	s.mu.Lock()
	raw, exists := s.rows[threadID]
	lock := s.locks[threadID]
	s.mu.Unlock()
	if !exists {
		return nil, store.ErrThreadNotFound
	}

	lock.Lock()
	defer lock.Unlock()
	if s.onLocked != nil {
		s.onLocked(threadID)
	}

	// Re-read under the lock: another mutation may have committed while we
	// were waiting, exactly like the row lock in Postgres.
	s.mu.Lock()
	raw = s.rows[threadID]
	s.mu.Unlock()

	state := canvas.NewState()
	if raw != nil {
		var err error
		if state, err = canvas.Decode(raw); err != nil {
			return nil, err
		}
	}

	next, err := fn(state)
	if err != nil {
		return nil, err
	}
	encoded, err := next.Encode()
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.rows[threadID] = encoded
	s.mu.Unlock()
	return next, nil
}

func (s *memStore) stored(t *testing.T, threadID identity.ThreadID) *canvas.State {
	t.Helper()
	s.mu.Lock()
	raw := s.rows[threadID]
	s.mu.Unlock()
	if raw == nil {
		return canvas.NewState()
	}
	state, err := canvas.Decode(raw)
	if err != nil {
		t.Fatalf("decode stored canvas: %v", err)
	}
	return state
}

func newThreadID(t *testing.T, tenant uint32) identity.ThreadID {
	t.Helper()
	id, err := identity.ParseThreadID(identity.MustNew(identity.Thread, tenant))
	if err != nil {
		t.Fatalf("ParseThreadID: %v", err)
	}
	return id
}

func addCardOp(tenant uint32) ops.Op {
	return ops.AddCards{Cards: []canvas.Card{{
		ID:     identity.NewCardID(tenant),
		Width:  200,
		Height: 100,
		Component: canvas.Component{
			ID:   identity.NewComponentID(tenant),
			Kind: canvas.KindText,
			Data: map[string]any{"text": "hi"},
		},
		Meta: canvas.Meta{CreatedBy: "ai"},
	}}}
}

func newService(s CanvasStore, jobs JobSource, pub Publisher) *Service {
	return New(s, jobs, pub, zerolog.Nop(), 4, 50*time.Millisecond)
}

func TestApplyOperationAddCard(t *testing.T) {
	const tenant uint32 = 9
	threadID := newThreadID(t, tenant)
	mem := newMemStore(threadID)
	svc := newService(mem, nil, nil)

	state, err := svc.ApplyOperation(context.Background(), ops.Envelope{
		TenantScope: tenant,
		ThreadID:    threadID,
		Op:          addCardOp(tenant),
	})
	if err != nil {
		t.Fatalf("ApplyOperation: %v", err)
	}
	if len(state.Cards) != 1 {
		t.Fatalf("cards = %d, want 1", len(state.Cards))
	}
	if got := mem.stored(t, threadID); len(got.Cards) != 1 {
		t.Fatalf("persisted cards = %d, want 1", len(got.Cards))
	}
}

func TestApplyOperationMissingThreadIs404(t *testing.T) {
	const tenant uint32 = 9
	mem := newMemStore()
	svc := newService(mem, nil, nil)

	_, err := svc.ApplyOperation(context.Background(), ops.Envelope{
		TenantScope: tenant,
		ThreadID:    newThreadID(t, tenant),
		Op:          addCardOp(tenant),
	})
	derr := Classify(err)
	if derr == nil || derr.Status != 404 {
		t.Fatalf("Classify(%v) = %+v, want 404", err, derr)
	}
	if derr.Message != "Thread not found" {
		t.Errorf("message = %q, want %q", derr.Message, "Thread not found")
	}
}

func TestApplyOperationTenantMismatchRejected(t *testing.T) {
	threadID := newThreadID(t, 7)
	mem := newMemStore(threadID)
	svc := newService(mem, nil, nil)

	_, err := svc.ApplyOperation(context.Background(), ops.Envelope{
		TenantScope: 8, // thread id is scoped to tenant 7
		ThreadID:    threadID,
		Op:          addCardOp(8),
	})
	derr := Classify(err)
	if derr == nil || derr.Code != "validation_error" {
		t.Fatalf("Classify(%v) = %+v, want validation_error", err, derr)
	}
}

func TestApplyOperationRejectsBadPayloadID(t *testing.T) {
	const tenant uint32 = 7
	threadID := newThreadID(t, tenant)
	mem := newMemStore(threadID)
	svc := newService(mem, nil, nil)

	_, err := svc.ApplyOperation(context.Background(), ops.Envelope{
		TenantScope: tenant,
		ThreadID:    threadID,
		Op:          ops.RemoveCard{CardID: "not-an-id"},
	})
	derr := Classify(err)
	if derr == nil || derr.Code != "validation_error" {
		t.Fatalf("Classify(%v) = %+v, want validation_error", err, derr)
	}
	// Nothing reached storage.
	if got := mem.stored(t, threadID); len(got.Cards) != 0 {
		t.Error("rejected op touched storage")
	}
}

// A failing 3rd-of-5 batch must leave the stored canvas completely
// unchanged: all batch effects persist, or none do.
func TestBatchFailureLeavesStoredCanvasUnchanged(t *testing.T) {
	const tenant uint32 = 5
	threadID := newThreadID(t, tenant)
	mem := newMemStore(threadID)
	svc := newService(mem, nil, nil)

	// Seed one committed card.
	if _, err := svc.ApplyOperation(context.Background(), ops.Envelope{
		TenantScope: tenant,
		ThreadID:    threadID,
		Op:          addCardOp(tenant),
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	before := mem.stored(t, threadID)

	_, err := svc.ApplyOperation(context.Background(), ops.Envelope{
		TenantScope: tenant,
		ThreadID:    threadID,
		Op: ops.Batch{Ops: []ops.Op{
			addCardOp(tenant),
			addCardOp(tenant),
			ops.RemoveCard{CardID: identity.NewCardID(tenant)}, // 3rd fails
			addCardOp(tenant),
			addCardOp(tenant),
		}},
	})
	derr := Classify(err)
	if derr == nil || derr.Status != 404 {
		t.Fatalf("Classify(%v) = %+v, want 404", err, derr)
	}

	after := mem.stored(t, threadID)
	if len(after.Cards) != len(before.Cards) || len(after.Edges) != len(before.Edges) {
		t.Fatalf("stored canvas changed after failed batch: %d cards, want %d",
			len(after.Cards), len(before.Cards))
	}
}

// N concurrent add-card operations on one empty thread all land: the final
// count is exactly N, ordered by commit, with no lost update.
func TestConcurrentSameThreadNoLostUpdates(t *testing.T) {
	const tenant uint32 = 6
	const n = 16
	threadID := newThreadID(t, tenant)
	mem := newMemStore(threadID)
	svc := newService(mem, nil, nil)

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.ApplyOperation(context.Background(), ops.Envelope{
				TenantScope: tenant,
				ThreadID:    threadID,
				Op:          addCardOp(tenant),
			})
			if err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent ApplyOperation: %v", err)
	}

	if got := mem.stored(t, threadID); len(got.Cards) != n {
		t.Fatalf("cards = %d, want %d", len(got.Cards), n)
	}
}

// An operation on thread B commits while thread A's lock is held.
func TestDistinctThreadsDoNotBlockEachOther(t *testing.T) {
	const tenant uint32 = 3
	threadA := newThreadID(t, tenant)
	threadB := newThreadID(t, tenant)
	mem := newMemStore(threadA, threadB)

	aLocked := make(chan struct{})
	release := make(chan struct{})
	mem.onLocked = func(id identity.ThreadID) {
		if id == threadA {
			close(aLocked)
			<-release
		}
	}
	svc := newService(mem, nil, nil)

	done := make(chan error, 1)
	go func() {
		_, err := svc.ApplyOperation(context.Background(), ops.Envelope{
			TenantScope: tenant, ThreadID: threadA, Op: addCardOp(tenant),
		})
		done <- err
	}()
	<-aLocked

	finished := make(chan error, 1)
	go func() {
		_, err := svc.ApplyOperation(context.Background(), ops.Envelope{
			TenantScope: tenant, ThreadID: threadB, Op: addCardOp(tenant),
		})
		finished <- err
	}()

	select {
	case err := <-finished:
		if err != nil {
			t.Fatalf("thread B operation: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("thread B operation blocked behind thread A's lock")
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("thread A operation: %v", err)
	}
}

// End to end through Redis: enqueue a job, let the pool pick it up, and
// watch the committed state arrive on the thread's update channel.
func TestRunProcessesQueuedJobsAndPublishes(t *testing.T) {
	const tenant uint32 = 2
	threadID := newThreadID(t, tenant)
	mem := newMemStore(threadID)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	q := queue.NewWithClient(client, "canvas:jobs:test")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub := q.SubscribeUpdates(ctx, threadID)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	svc := newService(mem, q, q)
	runDone := make(chan struct{})
	go func() {
		svc.Run(ctx)
		close(runDone)
	}()

	if err := q.Enqueue(ctx, ops.Envelope{
		TenantScope: tenant,
		ThreadID:    threadID,
		RequestedBy: "ai",
		Op:          addCardOp(tenant),
	}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	msgCtx, msgCancel := context.WithTimeout(ctx, 5*time.Second)
	defer msgCancel()
	msg, err := sub.ReceiveMessage(msgCtx)
	if err != nil {
		t.Fatalf("no committed state published: %v", err)
	}
	published, err := canvas.Decode([]byte(msg.Payload))
	if err != nil {
		t.Fatalf("decode published state: %v", err)
	}
	if len(published.Cards) != 1 {
		t.Errorf("published cards = %d, want 1", len(published.Cards))
	}

	if got := mem.stored(t, threadID); len(got.Cards) != 1 {
		t.Errorf("persisted cards = %d, want 1", len(got.Cards))
	}

	cancel()
	select {
	case <-runDone:
	case <-time.After(5 * time.Second):
		t.Fatal("worker pool did not stop after cancel")
	}
}

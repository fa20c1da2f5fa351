// Package persist turns the orchestrators' optimistic in-memory mutations
// into durable writes. Writes are enqueued with a correlation ID and run
// in order on a single worker, so an update that references a record
// inserted moments earlier can resolve its placeholder ID before hitting
// the store. A failed write discards everything queued behind it and
// invokes the resync hook: the store is ground truth, the optimistic
// state is rebuilt from it.
package persist

import (
	"context"
	"database/sql"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// opTimeout bounds each durable write.
const opTimeout = 10 * time.Second

// IDMap resolves placeholder IDs (negative) to store-assigned ones for
// ops enqueued before the insert they depend on had completed.
type IDMap struct {
	m map[int64]int64
}

// Resolve maps a placeholder ID to its store-assigned ID. Non-placeholder
// and unknown IDs pass through unchanged.
func (m *IDMap) Resolve(id int64) int64 {
	if id < 0 {
		if storeID, ok := m.m[id]; ok {
			return storeID
		}
	}
	return id
}

func (m *IDMap) record(tempID, storeID int64) {
	m.m[tempID] = storeID
}

// Op is a single durable write. Exec runs against the store; when the op
// persists a record that was created in memory under a placeholder ID, it
// returns the store-assigned ID, and Rebind patches the in-memory side.
type Op struct {
	// Name describes the write for logging.
	Name string
	// Exec performs the write. A non-zero returned ID is the store-assigned
	// ID for TempID.
	Exec func(ctx context.Context, db *sql.DB, ids *IDMap) (int64, error)
	// TempID is the placeholder ID awaiting a durable one, or 0.
	TempID int64
	// Rebind patches the in-memory record once the store ID is known.
	Rebind func(tempID, storeID int64)

	correlation string
}

// Queue serializes durable writes on one background worker.
type Queue struct {
	db        *sql.DB
	ops       chan Op
	wg        sync.WaitGroup
	done      chan struct{}
	ids       *IDMap
	onFailure func(error)
}

// NewQueue starts a write queue. onFailure is called (on the worker
// goroutine) after a failed write, once the stale backlog has been
// discarded; it is expected to resync in-memory state from the store.
func NewQueue(db *sql.DB, onFailure func(error)) *Queue {
	q := &Queue{
		db:        db,
		ops:       make(chan Op, 256),
		done:      make(chan struct{}),
		ids:       &IDMap{m: make(map[int64]int64)},
		onFailure: onFailure,
	}
	go q.run()
	return q
}

// Enqueue schedules a durable write.
func (q *Queue) Enqueue(op Op) {
	op.correlation = uuid.NewString()
	q.wg.Add(1)
	q.ops <- op
}

// Wait blocks until every enqueued write has been processed.
func (q *Queue) Wait() {
	q.wg.Wait()
}

// Close drains the queue and stops the worker.
func (q *Queue) Close() {
	q.wg.Wait()
	close(q.ops)
	<-q.done
}

func (q *Queue) run() {
	defer close(q.done)

	for op := range q.ops {
		err := q.exec(op)
		if err == nil {
			q.wg.Done()
			continue
		}

		slog.Error("durable write failed", "op", op.Name, "correlation", op.correlation, "error", err)
		q.discardBacklog()
		if q.onFailure != nil {
			q.onFailure(err)
		}
		// Released last so Wait covers the resync too.
		q.wg.Done()
	}
}

// discardBacklog drops writes queued behind a failed one; they were built
// against optimistic state the resync is about to throw away.
func (q *Queue) discardBacklog() {
	for {
		select {
		case op, ok := <-q.ops:
			if !ok {
				return
			}
			slog.Warn("discarding queued write after failure", "op", op.Name)
			q.wg.Done()
		default:
			return
		}
	}
}

func (q *Queue) exec(op Op) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	storeID, err := op.Exec(ctx, q.db, q.ids)
	if err != nil {
		return err
	}

	if op.TempID != 0 && storeID != 0 {
		q.ids.record(op.TempID, storeID)
		if op.Rebind != nil {
			op.Rebind(op.TempID, storeID)
		}
	}
	return nil
}

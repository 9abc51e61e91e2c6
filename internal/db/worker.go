package db

import (
	"context"
	"database/sql"
	"errors"
	"sync"
)

var ErrWorkerClosed = errors.New("db worker closed")

type TxFn func(ctx context.Context, tx *sql.Tx) error

type job struct {
	ctx context.Context
	fn  TxFn
	ch  chan error
}

// Worker serializes write transactions onto a single goroutine.  SQLite
// allows one writer at a time; queueing here keeps read-modify-write
// sequences (counter increments, sweep deletes) atomic without relying on
// SQLITE_BUSY retries.
type Worker struct {
	db        *sql.DB
	jobs      chan job
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

func NewWorker(db *sql.DB) *Worker {
	w := &Worker{
		db:   db,
		jobs: make(chan job, 256),
		quit: make(chan struct{}),
		done: make(chan struct{}),
	}
	go w.loop()
	return w
}

// Close stops the worker after the job in flight finishes.  Queued jobs that
// have not started receive ErrWorkerClosed.  Close is idempotent.
func (w *Worker) Close() {
	w.closeOnce.Do(func() { close(w.quit) })
	<-w.done
}

// Do runs fn inside a transaction on the writer goroutine and returns its
// result.  The transaction commits when fn returns nil.
func (w *Worker) Do(ctx context.Context, fn TxFn) error {
	ch := make(chan error, 1)
	j := job{ctx: ctx, fn: fn, ch: ch}

	select {
	case <-w.quit:
		return ErrWorkerClosed
	default:
	}

	select {
	case w.jobs <- j:
	case <-w.quit:
		return ErrWorkerClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	// If ctx expires while the job is queued or running, the loop still
	// finishes it; the result lands in the buffered ch and is dropped.
	select {
	case err := <-ch:
		return err
	case <-w.done:
		select {
		case err := <-ch:
			return err
		default:
			return ErrWorkerClosed
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Worker) loop() {
	defer close(w.done)

	for {
		select {
		case <-w.quit:
			w.drain()
			return
		case j := <-w.jobs:
			j.ch <- w.run(j)
		}
	}
}

func (w *Worker) run(j job) error {
	if err := j.ctx.Err(); err != nil {
		return err
	}
	tx, err := w.db.BeginTx(j.ctx, nil)
	if err != nil {
		return err
	}
	if err := j.fn(j.ctx, tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (w *Worker) drain() {
	for {
		select {
		case j := <-w.jobs:
			j.ch <- ErrWorkerClosed
		default:
			return
		}
	}
}

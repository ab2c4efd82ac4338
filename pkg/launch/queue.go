package launch

import (
	"errors"
	"fmt"
	"sync"
)

// Queue is an in-order asynchronous execution stream, analogous to a device
// command queue. Tasks submitted to the same queue run one at a time in
// submission order; ordering across queues is the caller's responsibility.
//
// A queue is fail-stop: once a task fails, later tasks are discarded and the
// first error is surfaced by Sync and Err. There is no cancellation of an
// in-flight task.
type Queue struct {
	tasks chan queueTask
	done  chan struct{}

	mu  sync.Mutex
	err error
}

type queueTask struct {
	name string
	fn   func() error
	ack  chan struct{} // non-nil for Sync markers
}

// queueDepth bounds how many launches may be pending before Submit blocks.
const queueDepth = 256

// NewQueue creates a queue and starts its worker. Callers must Close the
// queue when done with it.
func NewQueue() *Queue {
	q := &Queue{
		tasks: make(chan queueTask, queueDepth),
		done:  make(chan struct{}),
	}
	go q.run()
	return q
}

func (q *Queue) run() {
	defer close(q.done)
	for t := range q.tasks {
		if t.ack != nil {
			close(t.ack)
			continue
		}
		if q.Err() != nil {
			continue // fail-stop: drain without executing
		}
		if err := q.runTask(t); err != nil {
			var ee *ExecError
			if !errors.As(err, &ee) {
				err = fmt.Errorf("%s: %w", t.name, err)
			}
			q.setErr(err)
		}
	}
}

func (q *Queue) runTask(t queueTask) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &ExecError{Kernel: t.name, Fault: r}
		}
	}()
	return t.fn()
}

// Submit enqueues a named task. It returns immediately unless the queue is
// at capacity. Tasks submitted after a failure are silently discarded.
func (q *Queue) Submit(name string, fn func() error) {
	q.tasks <- queueTask{name: name, fn: fn}
}

// Sync blocks until every task submitted before the call has completed, then
// reports the queue's first error, if any.
func (q *Queue) Sync() error {
	ack := make(chan struct{})
	q.tasks <- queueTask{ack: ack}
	<-ack
	return q.Err()
}

// Err returns the first error recorded on the queue, if any.
func (q *Queue) Err() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.err
}

func (q *Queue) setErr(err error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err == nil {
		q.err = err
	}
}

// Close stops the queue's worker after pending tasks drain. The queue must
// not be used after Close.
func (q *Queue) Close() {
	close(q.tasks)
	<-q.done
}

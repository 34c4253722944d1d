package workers

import (
	"sync"
)

// Loop runs posted jobs one at a time, in posting order, on a single
// goroutine. State owned by a Loop needs no locking as long as it is only
// touched from jobs.
//
// Post never blocks and never drops: the queue is unbounded, so a job may
// safely post to its own loop or to another one.
type Loop struct {
	mu      sync.Mutex
	queue   []func()
	wake    chan struct{}
	stopped bool
	done    chan struct{}
}

// NewLoop starts a loop.
func NewLoop() *Loop {
	l := &Loop{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	go l.run()
	return l
}

// Post enqueues job. It reports false once the loop has been stopped; the
// job is then discarded.
func (l *Loop) Post(job func()) bool {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return false
	}
	l.queue = append(l.queue, job)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return true
}

// Call runs job on the loop and waits for it. It must not be used from a
// job running on the same loop. Reports false if the loop was stopped
// before the job ran.
func (l *Loop) Call(job func()) bool {
	ran := make(chan struct{})
	if !l.Post(func() {
		job()
		close(ran)
	}) {
		return false
	}
	select {
	case <-ran:
		return true
	case <-l.done:
		// the job may have been the last one drained
		select {
		case <-ran:
			return true
		default:
			return false
		}
	}
}

// Stop stops accepting jobs, runs everything already queued and waits for
// the loop goroutine to exit. Calling Stop from a job deadlocks.
func (l *Loop) Stop() {
	l.mu.Lock()
	if !l.stopped {
		l.stopped = true
		select {
		case l.wake <- struct{}{}:
		default:
		}
	}
	l.mu.Unlock()
	<-l.done
}

func (l *Loop) run() {
	defer close(l.done)
	for {
		l.mu.Lock()
		jobs := l.queue
		l.queue = nil
		stopped := l.stopped
		l.mu.Unlock()

		for _, job := range jobs {
			job()
		}

		if len(jobs) > 0 {
			continue
		}
		if stopped {
			return
		}
		<-l.wake
	}
}

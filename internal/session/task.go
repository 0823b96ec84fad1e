package session

import (
	"sync"
	"time"
)

// task is an individually cancellable repeating background job. Every
// scheduled task owned by the session is cancelled explicitly on terminal
// transitions; none are merely abandoned.
type task struct {
	stop chan struct{}
	done chan struct{}
	once sync.Once
}

func startTask(interval time.Duration, fn func()) *task {
	t := &task{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	go func() {
		defer close(t.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-t.stop:
				return
			case <-ticker.C:
				fn()
			}
		}
	}()
	return t
}

// cancel stops the task and waits for its goroutine to exit.
func (t *task) cancel() {
	if t == nil {
		return
	}
	t.once.Do(func() { close(t.stop) })
	<-t.done
}

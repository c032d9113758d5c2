// Package scheduler runs background jobs such as re-indexing one at a time.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("sitterfeed.scheduler")

type Task struct {
	Name    string
	Execute func(ctx context.Context) error
}

// Scheduler executes queued tasks sequentially on a single goroutine.
type Scheduler struct {
	taskQueue chan Task
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	stopOnce  sync.Once
}

// NewScheduler creates a new Scheduler with the specified queue size and
// starts its worker.
func NewScheduler(queueSize int) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		taskQueue: make(chan Task, queueSize),
		ctx:       ctx,
		cancel:    cancel,
	}
	s.wg.Add(1)
	go s.run()
	return s
}

func (s *Scheduler) run() {
	defer s.wg.Done()
	for {
		select {
		case task := <-s.taskQueue:
			s.execute(task)
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) execute(task Task) {
	log.Debugf("executing %s", task.Name)
	start := time.Now()
	if err := task.Execute(s.ctx); err != nil {
		log.Errorf("%s failed: %s", task.Name, err)
		return
	}
	log.Debugf("%s done in %s", task.Name, time.Since(start))
}

// Submit queues task. It reports false when the queue is full or the
// scheduler was stopped.
func (s *Scheduler) Submit(task Task) bool {
	if s.ctx.Err() != nil {
		return false
	}
	select {
	case s.taskQueue <- task:
		return true
	default:
		log.Warningf("skipped %s, queue is full", task.Name)
		return false
	}
}

// Every submits task now and then once per interval until Stop.
func (s *Scheduler) Every(interval time.Duration, task Task) {
	s.Submit(task)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.Submit(task)
			case <-s.ctx.Done():
				return
			}
		}
	}()
}

// Stop cancels the running task, drops queued ones and waits for the
// worker to exit.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		log.Debug("stopping scheduler")
		s.cancel()
		s.wg.Wait()
	})
}

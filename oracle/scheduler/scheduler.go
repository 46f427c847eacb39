package scheduler

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/armon/go-metrics"
	cmap "github.com/orcaman/concurrent-map/v2"
	"github.com/tendermint/tendermint/libs/log"

	"github.com/GPTx-global/cidoracle/oracle/types"
	oracletypes "github.com/GPTx-global/cidoracle/x/oracle/types"
)

// ErrQueueFull is returned by Dispatch when no more jobs can be accepted.
var ErrQueueFull = errors.New("job queue is full")

// ErrStopped is returned by Dispatch after Stop.
var ErrStopped = errors.New("scheduler stopped")

// Config sizes the scheduler.
type Config struct {
	Workers   int
	QueueSize int
}

func DefaultConfig() Config {
	return Config{
		Workers:   runtime.NumCPU(),
		QueueSize: 1 << 10,
	}
}

// Scheduler accepts dispatched requests and runs them on a worker pool.
type Scheduler struct {
	logger   log.Logger
	executor *Executor
	workers  int

	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	jobStore    cmap.ConcurrentMap[string, types.Job]
	jobQueue    chan types.Job
	resultQueue chan types.JobResult
}

func New(logger log.Logger, executor *Executor, config Config) *Scheduler {
	if config.Workers <= 0 {
		config.Workers = 1
	}
	if config.QueueSize <= 0 {
		config.QueueSize = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		logger:      logger.With("module", "scheduler"),
		executor:    executor,
		workers:     config.Workers,
		ctx:         ctx,
		cancel:      cancel,
		jobStore:    cmap.New[types.Job](),
		jobQueue:    make(chan types.Job, config.QueueSize),
		resultQueue: make(chan types.JobResult, config.QueueSize),
	}
}

func (s *Scheduler) Start() {
	for i := 0; i < s.workers; i++ {
		s.wg.Add(1)
		go s.worker()
	}
	s.logger.Info("scheduler started", "workers", s.workers)
}

func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
	s.logger.Info("scheduler stopped")
}

// Dispatch queues req without waiting for it to run. Dispatching a request
// that is already queued with the same terms is a no-op.
func (s *Scheduler) Dispatch(req oracletypes.OracleRequest) error {
	if s.ctx.Err() != nil {
		return ErrStopped
	}
	job, err := types.MakeJob(req)
	if err != nil {
		return err
	}
	if !s.jobStore.SetIfAbsent(job.ID(), *job) {
		if queued, ok := s.jobStore.Get(job.ID()); ok && queued.Request.Equal(req) {
			return nil
		}
		return fmt.Errorf("job already scheduled: %s", job.ID())
	}

	select {
	case s.jobQueue <- *job:
		metrics.IncrCounter([]string{"node", "job", "queued"}, 1)
		s.logger.Debug("job queued", "handle", job.ID(), "url", job.URL)
		return nil
	default:
		s.jobStore.Remove(job.ID())
		return ErrQueueFull
	}
}

// Result returns the channel finished jobs are delivered on.
func (s *Scheduler) Result() <-chan types.JobResult {
	return s.resultQueue
}

// ActiveJobs returns the number of queued or running jobs.
func (s *Scheduler) ActiveJobs() int {
	return s.jobStore.Count()
}

// Job returns a queued or running job.
func (s *Scheduler) Job(id string) (types.Job, bool) {
	return s.jobStore.Get(id)
}

func (s *Scheduler) worker() {
	defer s.wg.Done()

	for {
		select {
		case job := <-s.jobQueue:
			jr, err := s.executor.Execute(s.ctx, job)
			s.jobStore.Remove(job.ID())
			if err != nil {
				metrics.IncrCounter([]string{"node", "job", "failed"}, 1)
				s.logger.Error("failed to execute job", "handle", job.ID(), "error", err)
				continue
			}

			metrics.IncrCounter([]string{"node", "job", "done"}, 1)
			select {
			case s.resultQueue <- jr:
			case <-s.ctx.Done():
				return
			}

		case <-s.ctx.Done():
			return
		}
	}
}

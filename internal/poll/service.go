package poll

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/angelmondragon/pdv-terminal/pkg/logger"
	"github.com/angelmondragon/pdv-terminal/pkg/metrics"
)

const defaultInterval = 10 * time.Second

// ServiceParams configure the poll service.
type ServiceParams struct {
	Logger  *logger.Logger
	Metrics *metrics.PollMetrics
}

// Service runs jobs on fixed intervals, each on its own goroutine.
type Service struct {
	logg    *logger.Logger
	metrics *metrics.PollMetrics
	wg      sync.WaitGroup
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Service{logg: params.Logger, metrics: params.Metrics}, nil
}

// Handle stops one running job.
type Handle struct {
	name   string
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func (h *Handle) Name() string {
	if h == nil {
		return ""
	}
	return h.name
}

// Stop ends the schedule. A run already in flight completes and may still
// apply its result; Stop does not wait for it.
func (h *Handle) Stop() {
	if h == nil {
		return
	}
	h.once.Do(h.cancel)
}

// Done is closed once the loop has exited.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Start runs job immediately and then every interval until the returned handle
// is stopped or ctx is canceled.
func (s *Service) Start(ctx context.Context, job Job, interval time.Duration) *Handle {
	if interval <= 0 {
		interval = defaultInterval
	}
	loopCtx, cancel := context.WithCancel(ctx)
	handle := &Handle{name: job.Name(), cancel: cancel, done: make(chan struct{})}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer close(handle.done)
		s.loop(loopCtx, job, interval)
	}()
	return handle
}

// Run starts every registered job and blocks until ctx is canceled.
func (s *Service) Run(ctx context.Context, registry *Registry) error {
	if ctx == nil {
		ctx = context.Background()
	}
	handles := make([]*Handle, 0)
	for _, entry := range registry.Entries() {
		handles = append(handles, s.Start(ctx, entry.Job, entry.Interval))
	}
	<-ctx.Done()
	for _, h := range handles {
		h.Stop()
	}
	s.logg.Info(ctx, "poll service context canceled")
	return ctx.Err()
}

// Wait blocks until every loop started by this service has exited.
func (s *Service) Wait() {
	s.wg.Wait()
}

// RunOnce executes job a single time with logging and metrics.
func (s *Service) RunOnce(ctx context.Context, job Job) error {
	return s.runJob(ctx, job)
}

func (s *Service) loop(ctx context.Context, job Job, interval time.Duration) {
	// In-flight requests are not cancelled when the schedule stops.
	runCtx := context.WithoutCancel(ctx)
	_ = s.runJob(runCtx, job)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if ctx.Err() != nil {
				return
			}
			_ = s.runJob(runCtx, job)
		}
	}
}

func (s *Service) runJob(ctx context.Context, job Job) error {
	jobCtx := s.logg.WithFields(ctx, map[string]any{"job": job.Name(), "event": "poll.job"})
	start := time.Now()
	err := job.Run(jobCtx)
	duration := time.Since(start)
	s.metrics.ObserveDuration(job.Name(), duration)
	if err != nil {
		jobCtx = s.logg.WithField(jobCtx, "duration_ms", duration.Milliseconds())
		s.logg.Warn(jobCtx, fmt.Sprintf("poll job failed: %v", err))
		s.metrics.IncFailure(job.Name())
		return err
	}
	s.logg.Debug(jobCtx, "poll job completed")
	s.metrics.IncSuccess(job.Name())
	return nil
}

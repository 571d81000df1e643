package cron

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/0xPuncker/chain-gatekeeper/pkg/types"
	"github.com/0xPuncker/chain-gatekeeper/pkg/utils"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

var (
	ErrJobNotFound       = errors.New("job not found")
	ErrTooManyActiveJobs = errors.New("max concurrent jobs reached")
)

// Task is a unit of background work.
type Task func() error

type scheduledJob struct {
	id   cron.EntryID
	job  types.Job
	task Task
}

type runStats struct {
	lastRun   time.Time
	lastError string
	runs      int
	failures  int
	skipped   int
}

// Scheduler runs registered tasks on cron schedules. At most
// maxConcurrent jobs run at once; a run that would exceed the limit is
// skipped and counted.
type Scheduler struct {
	cron          *cron.Cron
	logger        *logrus.Logger
	jobs          map[string]scheduledJob
	tasks         map[string]Task
	mu            sync.RWMutex
	started       bool
	maxConcurrent int
	now           func() time.Time

	// statsMu guards active and stats. Jobs never take mu, so Stop can
	// wait for them while holding it.
	statsMu sync.Mutex
	active  int
	stats   map[string]*runStats
}

func NewScheduler(logger *logrus.Logger, config types.JobConfig) *Scheduler {
	maxConcurrent := config.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &Scheduler{
		cron:          cron.New(cron.WithSeconds()),
		logger:        logger,
		maxConcurrent: maxConcurrent,
		now:           time.Now,
		jobs:          make(map[string]scheduledJob),
		tasks:         make(map[string]Task),
		stats:         make(map[string]*runStats),
	}
}

func (s *Scheduler) RegisterTask(name string, task Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[name] = task
}

// LoadPredefinedJobs replaces all scheduled jobs with the enabled ones in
// jobs. Every job must name a registered task. Run history of jobs that
// keep their name survives a reload.
func (s *Scheduler) LoadPredefinedJobs(jobs []types.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for name, sj := range s.jobs {
		s.cron.Remove(sj.id)
		delete(s.jobs, name)
	}

	for _, job := range jobs {
		if !job.Enabled {
			s.logger.Infof("Skipping disabled job: %s", job.Name)
			continue
		}

		task, exists := s.tasks[job.TaskName]
		if !exists {
			return fmt.Errorf("task %s not registered", job.TaskName)
		}

		id, err := s.cron.AddFunc(job.Schedule, func() {
			if err := s.run(job.Name, task); errors.Is(err, ErrTooManyActiveJobs) {
				s.logger.Warnf("Max concurrent jobs reached, skipping job: %s", job.Name)
			}
		})
		if err != nil {
			return fmt.Errorf("failed to schedule job %s: %w", job.Name, err)
		}

		s.jobs[job.Name] = scheduledJob{id: id, job: job, task: task}

		s.logger.WithFields(logrus.Fields{
			"job_name": job.Name,
			"schedule": job.Schedule,
			"task":     job.TaskName,
		}).Info("Job scheduled successfully")
	}

	return nil
}

// RunNow runs a scheduled job immediately, subject to the concurrency
// limit, and returns the task's error.
func (s *Scheduler) RunNow(name string) error {
	s.mu.RLock()
	sj, exists := s.jobs[name]
	s.mu.RUnlock()
	if !exists {
		return fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}
	return s.run(name, sj.task)
}

func (s *Scheduler) run(name string, task Task) error {
	s.statsMu.Lock()
	st := s.statsFor(name)
	if s.active >= s.maxConcurrent {
		st.skipped++
		s.statsMu.Unlock()
		return ErrTooManyActiveJobs
	}
	s.active++
	s.statsMu.Unlock()

	start := s.now()
	err := task()
	duration := utils.FormatElapsed(time.Since(start))

	s.statsMu.Lock()
	s.active--
	st.lastRun = start
	st.runs++
	if err != nil {
		st.failures++
		st.lastError = err.Error()
	} else {
		st.lastError = ""
	}
	s.statsMu.Unlock()

	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"job_name": name,
			"error":    err.Error(),
			"duration": duration,
		}).Error("Job execution failed")
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"job_name": name,
		"duration": duration,
	}).Debug("Job execution completed")
	return nil
}

// statsFor must be called with statsMu held.
func (s *Scheduler) statsFor(name string) *runStats {
	st, ok := s.stats[name]
	if !ok {
		st = &runStats{}
		s.stats[name] = st
	}
	return st
}

func (s *Scheduler) GetJobStatus(name string) (types.JobStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sj, exists := s.jobs[name]
	if !exists {
		return types.JobStatus{}, fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}
	return s.status(sj), nil
}

// ListJobs returns scheduled jobs sorted by name.
func (s *Scheduler) ListJobs() []types.JobStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	jobs := make([]types.JobStatus, 0, len(s.jobs))
	for _, sj := range s.jobs {
		jobs = append(jobs, s.status(sj))
	}

	sort.Slice(jobs, func(i, j int) bool { return jobs[i].Name < jobs[j].Name })
	return jobs
}

// status must be called with mu held.
func (s *Scheduler) status(sj scheduledJob) types.JobStatus {
	status := types.JobStatus{Job: sj.job}

	if s.started {
		if next := s.cron.Entry(sj.id).Next; !next.IsZero() {
			status.NextRun = &next
		}
	}

	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	if st, ok := s.stats[sj.job.Name]; ok {
		if !st.lastRun.IsZero() {
			lastRun := st.lastRun
			status.LastRun = &lastRun
		}
		status.LastError = st.lastError
		status.Runs = st.runs
		status.Failures = st.failures
		status.Skipped = st.skipped
	}
	return status
}

func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return fmt.Errorf("scheduler already started")
	}

	s.cron.Start()
	s.started = true
	s.logger.Info("Scheduler started...")

	return nil
}

// Stop halts scheduling and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := s.cron.Stop()
	<-ctx.Done()
	s.started = false
	s.logger.Info("Scheduler stopped")
}

func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

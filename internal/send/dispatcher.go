// Package send hands accepted entries to the external transfer and mirrors
// its progress back into the upload session.
package send

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"filedrop/internal/upload"
	"filedrop/pkg/logger"
)

// Sender performs one transfer. progress may be called any number of times
// with a percentage.
type Sender interface {
	Send(ctx context.Context, entry upload.FileEntry, progress func(percent int)) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, entry upload.FileEntry, progress func(percent int)) error

func (f SenderFunc) Send(ctx context.Context, entry upload.FileEntry, progress func(percent int)) error {
	return f(ctx, entry, progress)
}

// Progressor receives progress for entries it holds.
type Progressor interface {
	SetProgress(path string, percent int) bool
}

// Status is the state of a Job.
type Status int

const (
	StatusPending Status = iota
	StatusInProgress
	StatusCompleted
	StatusFailed
	StatusCancelled
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusInProgress:
		return "In Progress"
	case StatusCompleted:
		return "Completed"
	case StatusFailed:
		return "Failed"
	case StatusCancelled:
		return "Cancelled"
	default:
		return "Unknown"
	}
}

// Done reports whether s is terminal.
func (s Status) Done() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// Job is a snapshot of one queued send.
type Job struct {
	ID        string
	Entry     upload.FileEntry
	Status    Status
	Progress  int
	Err       error
	StartTime time.Time
	EndTime   time.Time
}

// Duration is the time spent sending, or 0 if the job never started.
func (j Job) Duration() time.Duration {
	if j.StartTime.IsZero() {
		return 0
	}
	end := j.EndTime
	if end.IsZero() {
		end = time.Now()
	}
	return end.Sub(j.StartTime)
}

type job struct {
	Job
	ctx    context.Context
	cancel context.CancelFunc
}

const historyLimit = 100

// ErrJobNotFound is returned for an unknown or already finished job ID.
var ErrJobNotFound = errors.New("job not found")

// Dispatcher runs queued sends with bounded parallelism.
type Dispatcher struct {
	sender      Sender
	progress    Progressor
	maxParallel int
	log         *logger.Logger

	mu      sync.RWMutex
	queue   []*job
	history []Job
	active  int

	onUpdate   func(Job)
	onComplete func(Job)

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// NewDispatcher creates a dispatcher. progress may be nil.
func NewDispatcher(sender Sender, progress Progressor, maxParallel int) *Dispatcher {
	if maxParallel < 1 {
		maxParallel = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		sender:      sender,
		progress:    progress,
		maxParallel: maxParallel,
		log:         logger.GetInstance(),
		queue:       make([]*job, 0),
		history:     make([]Job, 0),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// SetUpdateCallback sets the callback run on each progress change.
func (d *Dispatcher) SetUpdateCallback(fn func(Job)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onUpdate = fn
}

// SetCompleteCallback sets the callback run when a job finishes.
func (d *Dispatcher) SetCompleteCallback(fn func(Job)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onComplete = fn
}

// Enqueue queues one job per entry and returns their snapshots.
func (d *Dispatcher) Enqueue(entries ...upload.FileEntry) []Job {
	d.mu.Lock()
	if d.ctx.Err() != nil {
		d.mu.Unlock()
		return nil
	}
	jobs := make([]Job, 0, len(entries))
	for _, entry := range entries {
		ctx, cancel := context.WithCancel(d.ctx)
		j := &job{
			Job:    Job{ID: uuid.NewString(), Entry: entry, Status: StatusPending},
			ctx:    ctx,
			cancel: cancel,
		}
		d.queue = append(d.queue, j)
		jobs = append(jobs, j.Job)
	}
	d.startPendingLocked()
	d.mu.Unlock()
	return jobs
}

// startPendingLocked launches pending jobs while slots are free. Caller holds d.mu.
func (d *Dispatcher) startPendingLocked() {
	if d.ctx.Err() != nil {
		return
	}
	for _, j := range d.queue {
		if d.active >= d.maxParallel {
			return
		}
		if j.Status != StatusPending {
			continue
		}
		d.active++
		j.Status = StatusInProgress
		j.StartTime = time.Now()
		d.wg.Add(1)
		go d.run(j)
	}
}

func (d *Dispatcher) run(j *job) {
	defer d.wg.Done()

	if d.progress != nil {
		d.progress.SetProgress(j.Entry.Path, 0)
	}
	err := d.sender.Send(j.ctx, j.Entry, func(percent int) {
		d.reportProgress(j, percent)
	})

	d.mu.Lock()
	j.EndTime = time.Now()
	switch {
	case err == nil:
		j.Status = StatusCompleted
		j.Progress = 100
	case errors.Is(j.ctx.Err(), context.Canceled):
		j.Status = StatusCancelled
	default:
		j.Status = StatusFailed
		j.Err = err
	}
	j.cancel()
	snapshot := j.Job
	d.active--
	d.removeLocked(j.ID)
	d.history = append(d.history, snapshot)
	if len(d.history) > historyLimit {
		d.history = slices.Delete(d.history, 0, len(d.history)-historyLimit)
	}
	d.startPendingLocked()
	onComplete := d.onComplete
	d.mu.Unlock()

	if snapshot.Status == StatusCompleted && d.progress != nil {
		d.progress.SetProgress(snapshot.Entry.Path, 100)
	}
	d.log.LogSend(snapshot.ID, snapshot.Entry.Path, snapshot.Entry.Size, snapshot.Duration(), snapshot.Err)
	if onComplete != nil {
		onComplete(snapshot)
	}
}

func (d *Dispatcher) reportProgress(j *job, percent int) {
	percent = min(max(percent, 0), 100)

	d.mu.Lock()
	if j.Status != StatusInProgress || j.Progress == percent {
		d.mu.Unlock()
		return
	}
	j.Progress = percent
	snapshot := j.Job
	onUpdate := d.onUpdate
	d.mu.Unlock()

	if d.progress != nil {
		d.progress.SetProgress(snapshot.Entry.Path, percent)
	}
	if onUpdate != nil {
		onUpdate(snapshot)
	}
}

// removeLocked drops id from the queue. Caller holds d.mu.
func (d *Dispatcher) removeLocked(id string) {
	d.queue = slices.DeleteFunc(d.queue, func(j *job) bool { return j.ID == id })
}

// Cancel stops a queued or running job. A pending job moves straight to history.
func (d *Dispatcher) Cancel(id string) error {
	d.mu.Lock()
	idx := slices.IndexFunc(d.queue, func(j *job) bool { return j.ID == id })
	if idx < 0 {
		d.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	j := d.queue[idx]
	j.cancel()
	if j.Status != StatusPending {
		d.mu.Unlock()
		return nil
	}
	snapshot := d.finishPendingLocked(j)
	onComplete := d.onComplete
	d.mu.Unlock()

	if onComplete != nil {
		onComplete(snapshot)
	}
	return nil
}

// CancelAll cancels every queued and running job.
func (d *Dispatcher) CancelAll() {
	d.mu.Lock()
	var cancelled []Job
	for _, j := range slices.Clone(d.queue) {
		j.cancel()
		if j.Status == StatusPending {
			cancelled = append(cancelled, d.finishPendingLocked(j))
		}
	}
	onComplete := d.onComplete
	d.mu.Unlock()

	if onComplete != nil {
		for _, j := range cancelled {
			onComplete(j)
		}
	}
}

// finishPendingLocked records a never-started job as cancelled. Caller holds d.mu.
func (d *Dispatcher) finishPendingLocked(j *job) Job {
	j.Status = StatusCancelled
	j.EndTime = time.Now()
	d.removeLocked(j.ID)
	d.history = append(d.history, j.Job)
	if len(d.history) > historyLimit {
		d.history = slices.Delete(d.history, 0, len(d.history)-historyLimit)
	}
	return j.Job
}

// Queue returns snapshots of jobs not yet finished.
func (d *Dispatcher) Queue() []Job {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]Job, len(d.queue))
	for i, j := range d.queue {
		out[i] = j.Job
	}
	return out
}

// History returns finished jobs, oldest first.
func (d *Dispatcher) History() []Job {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return slices.Clone(d.history)
}

// ClearHistory forgets finished jobs.
func (d *Dispatcher) ClearHistory() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.history = make([]Job, 0)
}

// Get returns the job with id from the queue or history.
func (d *Dispatcher) Get(id string) (Job, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, j := range d.queue {
		if j.ID == id {
			return j.Job, true
		}
	}
	for _, j := range d.history {
		if j.ID == id {
			return j, true
		}
	}
	return Job{}, false
}

// ActiveCount returns the number of running sends.
func (d *Dispatcher) ActiveCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.active
}

// SetMaxParallel changes the parallelism limit and starts jobs that now fit.
func (d *Dispatcher) SetMaxParallel(n int) {
	if n < 1 {
		n = 1
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.maxParallel = n
	d.startPendingLocked()
}

// Retry requeues a failed job under a new ID.
func (d *Dispatcher) Retry(id string) (Job, error) {
	d.mu.RLock()
	idx := slices.IndexFunc(d.history, func(j Job) bool { return j.ID == id && j.Status == StatusFailed })
	var entry upload.FileEntry
	if idx >= 0 {
		entry = d.history[idx].Entry
	}
	d.mu.RUnlock()

	if idx < 0 {
		return Job{}, fmt.Errorf("%w: no failed job %s", ErrJobNotFound, id)
	}
	jobs := d.Enqueue(entry)
	if len(jobs) == 0 {
		return Job{}, errors.New("dispatcher stopped")
	}
	return jobs[0], nil
}

// Wait blocks until every started send has returned.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Stop cancels everything and waits for running sends to return. The
// dispatcher accepts no new jobs afterwards.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	d.cancel()
	d.mu.Unlock()
	d.CancelAll()
	d.wg.Wait()
}

package gui

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"codeberg.org/snonux/lexilive/internal/vocab"
)

// MediaJob is one image or video generation for a saved word
type MediaJob struct {
	ID          int
	WordID      string
	Word        string
	Kind        string
	Status      JobStatus
	Error       error
	Result      vocab.SavedWord
	QueuedAt    time.Time
	StartedAt   time.Time
	CompletedAt time.Time
}

// JobStatus represents the current state of a job
type JobStatus int

const (
	StatusQueued JobStatus = iota
	StatusProcessing
	StatusCompleted
	StatusFailed
)

func (s JobStatus) String() string {
	switch s {
	case StatusQueued:
		return "Queued"
	case StatusProcessing:
		return "Processing"
	case StatusCompleted:
		return "Completed"
	case StatusFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// RunFunc performs a job and returns the updated word
type RunFunc func(ctx context.Context, job MediaJob) (vocab.SavedWord, error)

// JobQueue runs media generation in the background so the UI stays
// responsive. Generation can take minutes, so only a few run at once.
type JobQueue struct {
	jobs    chan *MediaJob
	results map[int]*MediaJob
	run     RunFunc

	nextID int
	mu     sync.RWMutex

	// Callbacks for UI updates, called with a snapshot of the job
	onStatusUpdate func(job MediaJob)
	onJobComplete  func(job MediaJob)

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewJobQueue creates a queue with the given number of workers
func NewJobQueue(ctx context.Context, workers int, run RunFunc) *JobQueue {
	if workers < 1 {
		workers = 1
	}
	queueCtx, cancel := context.WithCancel(ctx)

	q := &JobQueue{
		jobs:    make(chan *MediaJob, 100),
		results: make(map[int]*MediaJob),
		run:     run,
		nextID:  1,
		ctx:     queueCtx,
		cancel:  cancel,
	}

	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
	return q
}

// SetCallbacks sets the callback functions for UI updates
func (q *JobQueue) SetCallbacks(onStatusUpdate, onJobComplete func(MediaJob)) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.onStatusUpdate = onStatusUpdate
	q.onJobComplete = onJobComplete
}

// Add queues a generation. A job already queued or running for the same
// word and kind is returned instead of starting a second one.
func (q *JobQueue) Add(wordID, word, kind string) (MediaJob, error) {
	q.mu.Lock()
	for _, job := range q.results {
		if job.WordID == wordID && job.Kind == kind && (job.Status == StatusQueued || job.Status == StatusProcessing) {
			snapshot := *job
			q.mu.Unlock()
			return snapshot, nil
		}
	}

	job := &MediaJob{
		ID:       q.nextID,
		WordID:   wordID,
		Word:     word,
		Kind:     kind,
		Status:   StatusQueued,
		QueuedAt: time.Now(),
	}
	q.nextID++
	q.results[job.ID] = job
	snapshot := *job
	q.mu.Unlock()

	if err := q.ctx.Err(); err != nil {
		q.finish(job, vocab.SavedWord{}, fmt.Errorf("queue is shutting down"))
		return q.GetJob(job.ID), err
	}

	select {
	case q.jobs <- job:
		q.notify(snapshot, false)
		return snapshot, nil
	default:
		q.finish(job, vocab.SavedWord{}, fmt.Errorf("queue is full"))
		return q.GetJob(job.ID), fmt.Errorf("too many %s generations queued", kind)
	}
}

// GetJob returns a snapshot of a job by ID
func (q *JobQueue) GetJob(id int) MediaJob {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if job, ok := q.results[id]; ok {
		return *job
	}
	return MediaJob{}
}

// GetQueueStatus returns the current queue statistics
func (q *JobQueue) GetQueueStatus() (queued, processing, completed, failed int) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	for _, job := range q.results {
		switch job.Status {
		case StatusQueued:
			queued++
		case StatusProcessing:
			processing++
		case StatusCompleted:
			completed++
		case StatusFailed:
			failed++
		}
	}
	return
}

// ActiveJobs returns the queued and running jobs in submission order
func (q *JobQueue) ActiveJobs() []MediaJob {
	q.mu.RLock()
	defer q.mu.RUnlock()

	var jobs []MediaJob
	for _, job := range q.results {
		if job.Status == StatusQueued || job.Status == StatusProcessing {
			jobs = append(jobs, *job)
		}
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].ID < jobs[j].ID })
	return jobs
}

// Forget drops finished jobs of a word, e.g. after it was deleted
func (q *JobQueue) Forget(wordID string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for id, job := range q.results {
		if job.WordID == wordID && (job.Status == StatusCompleted || job.Status == StatusFailed) {
			delete(q.results, id)
		}
	}
}

// Stop cancels running jobs and waits for the workers to exit
func (q *JobQueue) Stop() {
	q.cancel()
	q.wg.Wait()
}

func (q *JobQueue) worker() {
	defer q.wg.Done()
	for {
		select {
		case <-q.ctx.Done():
			return
		case job := <-q.jobs:
			q.process(job)
		}
	}
}

func (q *JobQueue) process(job *MediaJob) {
	q.mu.Lock()
	job.Status = StatusProcessing
	job.StartedAt = time.Now()
	snapshot := *job
	q.mu.Unlock()
	q.notify(snapshot, false)

	word, err := q.run(q.ctx, snapshot)
	q.finish(job, word, err)
}

func (q *JobQueue) finish(job *MediaJob, word vocab.SavedWord, err error) {
	q.mu.Lock()
	job.CompletedAt = time.Now()
	if err != nil {
		job.Status = StatusFailed
		job.Error = err
	} else {
		job.Status = StatusCompleted
		job.Result = word
	}
	snapshot := *job
	q.mu.Unlock()
	q.notify(snapshot, true)
}

func (q *JobQueue) notify(job MediaJob, done bool) {
	q.mu.RLock()
	onStatus, onComplete := q.onStatusUpdate, q.onJobComplete
	q.mu.RUnlock()

	if onStatus != nil {
		onStatus(job)
	}
	if done && onComplete != nil {
		onComplete(job)
	}
}

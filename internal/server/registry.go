package server

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mgpai22/clipforge/internal/pipeline"
)

// job lifecycle states
type Status string

const (
	StatusUploaded   Status = "uploaded"
	StatusProcessing Status = "processing"
	StatusDone       Status = "done"
	StatusError      Status = "error"
	StatusCanceled   Status = "canceled"
)

// progress events buffered per run; a slow reader loses intermediate events
// but never the final one
const eventBuffer = 256

// Job is one uploaded file and its latest processing run.
type Job struct {
	ID        string
	Filename  string
	Dir       string
	InputPath string
	Created   time.Time

	mu     sync.Mutex
	status Status
	last   pipeline.Event
	result *pipeline.Result
	err    string
	kind   string
	events chan pipeline.Event
	done   chan struct{}
	cancel context.CancelFunc
}

// JobView is the JSON form of a job's state.
type JobView struct {
	ID       string           `json:"job_id"`
	Filename string           `json:"filename"`
	Status   Status           `json:"status"`
	Stage    string           `json:"stage,omitempty"`
	Progress float64          `json:"progress"`
	Result   *pipeline.Result `json:"result,omitempty"`
	Error    string           `json:"error,omitempty"`
	Kind     string           `json:"kind,omitempty"`
}

func (j *Job) View() JobView {
	j.mu.Lock()
	defer j.mu.Unlock()

	v := JobView{
		ID:       j.ID,
		Filename: j.Filename,
		Status:   j.status,
		Stage:    j.last.Stage,
		Progress: roundProgress(j.last.Fraction),
	}
	switch j.status {
	case StatusDone:
		v.Result = j.result
	case StatusError, StatusCanceled:
		v.Error = j.err
		v.Kind = j.kind
	}
	return v
}

func (j *Job) Status() Status {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.status
}

// begin moves the job into processing and opens a fresh event channel.
// It reports false when a run is already in flight.
func (j *Job) begin(cancel context.CancelFunc) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status == StatusProcessing {
		return false
	}
	j.status = StatusProcessing
	j.last = pipeline.Event{}
	j.result = nil
	j.err, j.kind = "", ""
	j.events = make(chan pipeline.Event, eventBuffer)
	j.done = make(chan struct{})
	j.cancel = cancel
	return true
}

// publish records e and queues it for the progress stream without blocking.
func (j *Job) publish(e pipeline.Event) {
	j.mu.Lock()
	j.last = e
	events := j.events
	j.mu.Unlock()

	select {
	case events <- e:
	default:
	}
}

func (j *Job) finish(result *pipeline.Result, status Status, message, kind string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.status = status
	j.result = result
	j.err = message
	j.kind = kind
	j.cancel = nil
	close(j.done)
}

// stream returns the channels of the current run, or nil when the job was
// never started.
func (j *Job) stream() (<-chan pipeline.Event, <-chan struct{}) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.events, j.done
}

// stop cancels a running job and reports whether one was running.
func (j *Job) stop() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status != StatusProcessing || j.cancel == nil {
		return false
	}
	j.cancel()
	return true
}

// registry is the in-memory job store.
type registry struct {
	mu   sync.RWMutex
	jobs map[string]*Job
}

func newRegistry() *registry {
	return &registry{jobs: make(map[string]*Job)}
}

func (r *registry) add(j *Job) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[j.ID] = j
}

func (r *registry) get(id string) (*Job, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	j, ok := r.jobs[id]
	return j, ok
}

func (r *registry) remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.jobs, id)
}

// list returns every job, oldest first.
func (r *registry) list() []*Job {
	r.mu.RLock()
	jobs := make([]*Job, 0, len(r.jobs))
	for _, j := range r.jobs {
		jobs = append(jobs, j)
	}
	r.mu.RUnlock()

	sort.Slice(jobs, func(a, b int) bool {
		return jobs[a].Created.Before(jobs[b].Created)
	})
	return jobs
}

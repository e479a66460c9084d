// Package autosave keeps a client-side draft in sync with the server. Edits
// are debounced; the first successful save pins the session id and every
// later save overwrites that session.
package autosave

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
)

const (
	DefaultDelay = 3 * time.Second
	saveTimeout  = 15 * time.Second
)

var (
	ErrTitleRequired      = errors.New("autosave: title is required")
	ErrPayloadURLRequired = errors.New("autosave: payload url is required to publish")
	ErrClosed             = errors.New("autosave: reconciler closed")
)

type Timer interface {
	Stop() bool
}

type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type systemClock struct{}

func (systemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Draft is the full editable state; every save sends all of it.
type Draft struct {
	Title      string
	Tags       []string
	PayloadURL string
}

func (d Draft) clone() Draft {
	d.Tags = append([]string(nil), d.Tags...)
	return d
}

// Client is the server side of the protocol. SaveDraft with an empty
// sessionID creates a session and returns its id.
type Client interface {
	SaveDraft(ctx context.Context, sessionID string, draft Draft) (string, error)
	Publish(ctx context.Context, sessionID string) error
}

type State int

const (
	StateIdle State = iota
	StatePendingFirstSave
	StateSaved
)

func (s State) String() string {
	switch s {
	case StatePendingFirstSave:
		return "pending_first_save"
	case StateSaved:
		return "saved"
	default:
		return "idle"
	}
}

type Option func(*Reconciler)

func WithClock(c Clock) Option {
	return func(r *Reconciler) { r.clock = c }
}

func WithDelay(d time.Duration) Option {
	return func(r *Reconciler) { r.delay = d }
}

// WithErrorHandler receives failures of timer-driven saves.
func WithErrorHandler(fn func(error)) Option {
	return func(r *Reconciler) { r.onError = fn }
}

// Reconciler is the state machine Idle -> PendingFirstSave -> Saved(id).
// At most one save is in flight, so before an id exists at most one creation
// call is ever outstanding.
type Reconciler struct {
	client  Client
	clock   Clock
	delay   time.Duration
	onError func(error)

	mu        sync.Mutex
	state     State
	sessionID string
	draft     Draft
	dirty     bool
	timer     Timer
	inFlight  chan struct{}
	lastErr   error
	closed    bool
}

func New(client Client, opts ...Option) *Reconciler {
	r := &Reconciler{
		client: client,
		clock:  systemClock{},
		delay:  DefaultDelay,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resume starts from an existing session, e.g. when reopening a saved draft.
func Resume(client Client, sessionID string, draft Draft, opts ...Option) *Reconciler {
	r := New(client, opts...)
	r.state = StateSaved
	r.sessionID = sessionID
	r.draft = draft.clone()
	return r
}

// Edit replaces the local draft and restarts the debounce timer.
func (r *Reconciler) Edit(draft Draft) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.draft = draft.clone()
	r.dirty = true
	if r.state == StateIdle {
		r.state = StatePendingFirstSave
	}
	r.armLocked()
}

func (r *Reconciler) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Reconciler) SessionID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessionID
}

func (r *Reconciler) Dirty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dirty
}

// LastError is the most recent save failure, cleared by the next success.
func (r *Reconciler) LastError() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastErr
}

// Flush waits for any in-flight save and then saves pending edits now.
func (r *Reconciler) Flush(ctx context.Context) error {
	for {
		r.mu.Lock()
		if r.inFlight != nil {
			wait := r.inFlight
			r.mu.Unlock()
			select {
			case <-wait:
				continue
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		r.stopTimerLocked()
		if !r.dirty {
			r.mu.Unlock()
			return nil
		}
		job, err := r.beginLocked()
		r.mu.Unlock()
		if err != nil {
			return err
		}
		if err := r.run(ctx, job); err != nil {
			return err
		}
	}
}

// Publish validates locally, flushes pending edits, then publishes.
func (r *Reconciler) Publish(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrClosed
	}
	draft := r.draft
	r.mu.Unlock()

	if strings.TrimSpace(draft.Title) == "" {
		return ErrTitleRequired
	}
	if strings.TrimSpace(draft.PayloadURL) == "" {
		return ErrPayloadURLRequired
	}

	if err := r.Flush(ctx); err != nil {
		return err
	}
	id := r.SessionID()
	if id == "" {
		// Nothing was ever edited locally.
		return ErrTitleRequired
	}
	return r.client.Publish(ctx, id)
}

// Close stops the timer. Pending edits are dropped unless flushed first.
func (r *Reconciler) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	r.stopTimerLocked()
}

type saveJob struct {
	sessionID string
	draft     Draft
	done      chan struct{}
}

func (r *Reconciler) armLocked() {
	r.stopTimerLocked()
	r.timer = r.clock.AfterFunc(r.delay, r.fire)
}

func (r *Reconciler) stopTimerLocked() {
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}

func (r *Reconciler) fire() {
	r.mu.Lock()
	r.timer = nil
	if r.closed || !r.dirty || r.inFlight != nil {
		// An in-flight save re-arms the timer on completion if still dirty.
		r.mu.Unlock()
		return
	}
	job, err := r.beginLocked()
	r.mu.Unlock()
	if err != nil {
		// Untitled drafts wait for the next edit.
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()
	if err := r.run(ctx, job); err != nil && r.onError != nil {
		r.onError(err)
	}
}

// beginLocked snapshots the draft and marks a save in flight.
func (r *Reconciler) beginLocked() (saveJob, error) {
	if strings.TrimSpace(r.draft.Title) == "" {
		return saveJob{}, ErrTitleRequired
	}
	job := saveJob{
		sessionID: r.sessionID,
		draft:     r.draft.clone(),
		done:      make(chan struct{}),
	}
	r.dirty = false
	r.inFlight = job.done
	return job, nil
}

func (r *Reconciler) run(ctx context.Context, job saveJob) error {
	id, err := r.client.SaveDraft(ctx, job.sessionID, job.draft)
	if err == nil && job.sessionID == "" && id == "" {
		err = errors.New("autosave: server returned no session id")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.inFlight = nil
	close(job.done)

	if err != nil {
		r.dirty = true
		r.lastErr = err
		return err
	}
	r.lastErr = nil
	if r.sessionID == "" {
		r.sessionID = id
		r.state = StateSaved
	}
	if r.dirty && !r.closed {
		r.armLocked()
	}
	return nil
}

package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Dhvanitmonpara/interview.ai/internal/analysis/expression"
	"github.com/Dhvanitmonpara/interview.ai/internal/model/interview"
	"github.com/Dhvanitmonpara/interview.ai/internal/round"
)

// DefaultMaxPendingExpressions bounds readings buffered ahead of their answer (about five minutes at 3/s).
const DefaultMaxPendingExpressions = 1024

type record struct {
	mu       sync.Mutex
	session  interview.Session
	pending  map[int][]interview.ExpressionSample
	buffered int
}

// Option configures a MemoryRegistry.
type Option func(*MemoryRegistry)

// WithRoundTable sets the time limits applied to recorded answers.
func WithRoundTable(table round.Table) Option {
	return func(r *MemoryRegistry) { r.rounds = table }
}

// WithMaxPendingExpressions bounds the per-session expression buffer.
func WithMaxPendingExpressions(n int) Option {
	return func(r *MemoryRegistry) {
		if n > 0 {
			r.maxPending = n
		}
	}
}

// WithClock overrides time.Now, used by tests.
func WithClock(now func() time.Time) Option {
	return func(r *MemoryRegistry) { r.now = now }
}

// MemoryRegistry keeps sessions in process memory.
type MemoryRegistry struct {
	mu         sync.RWMutex
	records    map[string]*record
	rounds     round.Table
	maxPending int
	now        func() time.Time
}

// NewMemoryRegistry bootstraps the in-memory registry.
func NewMemoryRegistry(opts ...Option) *MemoryRegistry {
	r := &MemoryRegistry{
		records:    make(map[string]*record),
		rounds:     round.DefaultTable(),
		maxPending: DefaultMaxPendingExpressions,
		now:        func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var _ Registry = (*MemoryRegistry)(nil)

// Create provisions a session for a connection that completed initial setup.
func (r *MemoryRegistry) Create(_ context.Context, connectionID string, candidate interview.Candidate) (interview.Session, error) {
	if connectionID == "" {
		return interview.Session{}, ErrConnectionRequired
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.records[connectionID]; ok {
		existing.mu.Lock()
		defer existing.mu.Unlock()
		return existing.session.Clone(), ErrSessionExists
	}

	rec := &record{
		session: interview.Session{
			ConnectionID: connectionID,
			Candidate:    candidate,
			Responses:    make([]interview.QuestionAnswer, 0, 16),
			StartTime:    r.now(),
			Status:       interview.StatusActive,
		},
		pending: make(map[int][]interview.ExpressionSample),
	}
	r.records[connectionID] = rec
	return rec.session.Clone(), nil
}

// AppendAnswer records qa, normalising its round and time limit and draining buffered expressions.
func (r *MemoryRegistry) AppendAnswer(_ context.Context, connectionID string, qa interview.QuestionAnswer) (interview.QuestionAnswer, error) {
	rec, err := r.lookup(connectionID)
	if err != nil {
		return interview.QuestionAnswer{}, err
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	next := len(rec.session.Responses)
	if qa.Index != next {
		return interview.QuestionAnswer{}, fmt.Errorf("%w: got %d, want %d", ErrIndexOutOfOrder, qa.Index, next)
	}

	qa.Round, qa.TimeLimit = r.rounds.ForIndex(qa.Index)
	qa.Answer = qa.Answer.Clone()
	qa.Expressions = rec.pending[qa.Index]
	if qa.Expressions == nil {
		qa.Expressions = make([]interview.ExpressionSample, 0, 8)
	}
	rec.buffered -= len(rec.pending[qa.Index])
	delete(rec.pending, qa.Index)

	rec.session.Responses = append(rec.session.Responses, qa)
	return qa, nil
}

// AppendExpression applies the reading immediately when index is answered, otherwise buffers it.
func (r *MemoryRegistry) AppendExpression(_ context.Context, connectionID string, index int, state expression.State, at time.Time) (bool, error) {
	if index < 0 {
		return false, fmt.Errorf("%w: %d", ErrInvalidIndex, index)
	}

	rec, err := r.lookup(connectionID)
	if err != nil {
		return false, err
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	sample := interview.ExpressionSample{State: state, Timestamp: at}
	if index < len(rec.session.Responses) {
		qa := &rec.session.Responses[index]
		qa.Expressions = append(qa.Expressions, sample)
		return true, nil
	}

	if rec.buffered >= r.maxPending {
		return false, ErrExpressionBufferFull
	}
	rec.pending[index] = append(rec.pending[index], sample)
	rec.buffered++
	return false, nil
}

// Complete stamps EndTime; repeated calls keep the first stamp.
func (r *MemoryRegistry) Complete(_ context.Context, connectionID string) (interview.Session, error) {
	rec, err := r.lookup(connectionID)
	if err != nil {
		return interview.Session{}, err
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	if rec.session.EndTime == nil {
		end := r.now()
		rec.session.EndTime = &end
		rec.session.Status = interview.StatusCompleted
	}
	return rec.session.Clone(), nil
}

// SetFeedback stores generated feedback text.
func (r *MemoryRegistry) SetFeedback(_ context.Context, connectionID, feedback string) error {
	rec, err := r.lookup(connectionID)
	if err != nil {
		return err
	}

	rec.mu.Lock()
	rec.session.Feedback = feedback
	rec.mu.Unlock()
	return nil
}

// Remove deletes the entry. A session that never completed is returned as abandoned.
func (r *MemoryRegistry) Remove(_ context.Context, connectionID string) (interview.Session, error) {
	r.mu.Lock()
	rec, ok := r.records[connectionID]
	delete(r.records, connectionID)
	r.mu.Unlock()

	if !ok {
		return interview.Session{}, ErrSessionNotFound
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.session.Status == interview.StatusActive {
		rec.session.Status = interview.StatusAbandoned
	}
	return rec.session.Clone(), nil
}

// Get retrieves a copy of the session.
func (r *MemoryRegistry) Get(_ context.Context, connectionID string) (interview.Session, error) {
	rec, err := r.lookup(connectionID)
	if err != nil {
		return interview.Session{}, err
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.session.Clone(), nil
}

// List returns copies of all live sessions.
func (r *MemoryRegistry) List(_ context.Context) []interview.Session {
	r.mu.RLock()
	records := make([]*record, 0, len(r.records))
	for _, rec := range r.records {
		records = append(records, rec)
	}
	r.mu.RUnlock()

	out := make([]interview.Session, 0, len(records))
	for _, rec := range records {
		rec.mu.Lock()
		out = append(out, rec.session.Clone())
		rec.mu.Unlock()
	}
	return out
}

// Len reports the number of live sessions.
func (r *MemoryRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

func (r *MemoryRegistry) lookup(connectionID string) (*record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[connectionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return rec, nil
}

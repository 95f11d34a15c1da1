package session

import (
	"context"
	"errors"
	"time"

	"github.com/Dhvanitmonpara/interview.ai/internal/analysis/expression"
	"github.com/Dhvanitmonpara/interview.ai/internal/model/interview"
)

var (
	ErrConnectionRequired   = errors.New("connection id is required")
	ErrSessionNotFound      = errors.New("session not found")
	ErrSessionExists        = errors.New("session already exists for connection")
	ErrIndexOutOfOrder      = errors.New("question index out of order")
	ErrInvalidIndex         = errors.New("invalid question index")
	ErrExpressionBufferFull = errors.New("expression buffer full")
)

// Registry is the authoritative store of one session per live connection.
// Every operation is atomic with respect to a single connection id.
type Registry interface {
	// Create inserts an empty session. An existing session is left untouched and ErrSessionExists is returned.
	Create(ctx context.Context, connectionID string, candidate interview.Candidate) (interview.Session, error)
	// AppendAnswer records the next answer; its index must equal the number of recorded answers.
	AppendAnswer(ctx context.Context, connectionID string, qa interview.QuestionAnswer) (interview.QuestionAnswer, error)
	// AppendExpression adds a reading to the series of index, buffering it until that index is answered.
	AppendExpression(ctx context.Context, connectionID string, index int, state expression.State, at time.Time) (applied bool, err error)
	// Complete stamps the end time once.
	Complete(ctx context.Context, connectionID string) (interview.Session, error)
	// SetFeedback attaches generated feedback to a session.
	SetFeedback(ctx context.Context, connectionID, feedback string) error
	// Remove deletes the session and returns its final state.
	Remove(ctx context.Context, connectionID string) (interview.Session, error)
	// Get returns a copy of the session.
	Get(ctx context.Context, connectionID string) (interview.Session, error)
	// List snapshots every live session.
	List(ctx context.Context) []interview.Session
	// Len reports how many sessions are live.
	Len() int
}

package event

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/Dhvanitmonpara/interview.ai/internal/model/interview"
	"github.com/Dhvanitmonpara/interview.ai/internal/round"
)

// Client → server events.
const (
	InitialSetup         = "initial-setup"
	PreviousQuestionData = "previous-question-data"
	FaceExpressionData   = "face-expression-data"
	InterviewComplete    = "interview-complete"
	RequestQuestion      = "request-question"
)

// Server → client events.
const (
	UserConnected      = "user-connected"
	NextQuestion       = "next-question"
	InterviewAnalytics = "interview-analytics"
	Error              = "error"
)

// Error codes carried by the error event.
const (
	CodeInvalidPayload      = "invalid-payload"
	CodeInvalidState        = "invalid-state"
	CodeSessionExists       = "session-exists"
	CodeNotFound            = "not-found"
	CodeIndexOutOfOrder     = "index-out-of-order"
	CodeQuestionUnavailable = "question-unavailable"
	CodeBufferFull          = "expression-buffer-full"
	CodeUnsupported         = "unsupported-event"
	CodeInternal            = "internal"
)

// Envelope frames every message on the channel.
type Envelope struct {
	Type         string          `json:"type"`
	ConnectionID string          `json:"connectionId,omitempty"`
	Data         json.RawMessage `json:"data,omitempty"`
	Timestamp    int64           `json:"timestamp"`
}

// New encodes payload into an envelope stamped with the current time.
func New(eventType, connectionID string, payload any) (Envelope, error) {
	env := Envelope{
		Type:         eventType,
		ConnectionID: connectionID,
		Timestamp:    time.Now().UnixMilli(),
	}
	if payload == nil {
		return env, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s payload: %w", eventType, err)
	}
	env.Data = raw
	return env, nil
}

// Decode unmarshals the envelope payload into dst.
func (e Envelope) Decode(dst any) error {
	if len(e.Data) == 0 {
		return fmt.Errorf("%s: empty payload", e.Type)
	}
	if err := json.Unmarshal(e.Data, dst); err != nil {
		return fmt.Errorf("%s: %w", e.Type, err)
	}
	return nil
}

// Connected is the user-connected payload.
type Connected struct {
	ConnectionID string `json:"connectionId"`
}

// Question is the next-question payload. Last marks the final question of the interview.
type Question struct {
	Question  string      `json:"question"`
	Round     round.Round `json:"round"`
	Index     int         `json:"index"`
	TimeLimit int         `json:"timeLimit"`
	Last      bool        `json:"last,omitempty"`
}

// Expression is the face-expression-data payload; TimeStamp is epoch milliseconds.
type Expression struct {
	ExpressionState     string `json:"expressionState"`
	TimeStamp           int64  `json:"timeStamp"`
	QuestionAnswerIndex int    `json:"questionAnswerIndex"`
}

// Time converts TimeStamp, falling back to now when the client sent none.
func (e Expression) Time() time.Time {
	if e.TimeStamp <= 0 {
		return time.Now().UTC()
	}
	return time.UnixMilli(e.TimeStamp).UTC()
}

// Failure is the error payload.
type Failure struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Setup is the initial-setup payload.
type Setup = interview.Candidate

// Answer is the previous-question-data payload.
type Answer = interview.QuestionAnswer

package interview

import (
	"time"

	"github.com/Dhvanitmonpara/interview.ai/internal/analysis/expression"
	"github.com/Dhvanitmonpara/interview.ai/internal/round"
)

// Status tracks how the session ended.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusAbandoned Status = "abandoned"
)

// ExpressionSample is one emotional-state reading taken while a question was active.
type ExpressionSample struct {
	State     expression.State `json:"state"`
	Timestamp time.Time        `json:"timestamp"`
}

// QuestionAnswer is one answered question; Index is its arrival order starting at 0.
type QuestionAnswer struct {
	Question    string             `json:"question"`
	Answer      Answer             `json:"answer"`
	Round       round.Round        `json:"round"`
	Index       int                `json:"index"`
	TimeLimit   int                `json:"timeLimit"`
	Expressions []ExpressionSample `json:"expressions"`
}

// Session is the server-held record of one live interview, keyed by connection id.
type Session struct {
	ConnectionID string           `json:"connectionId"`
	Candidate    Candidate        `json:"candidate"`
	Responses    []QuestionAnswer `json:"responses"`
	StartTime    time.Time        `json:"startTime"`
	EndTime      *time.Time       `json:"endTime"`
	Status       Status           `json:"status"`
	Feedback     string           `json:"feedback,omitempty"`
}

// Clone returns a deep copy safe to hand out of the registry.
func (s Session) Clone() Session {
	out := s
	out.Candidate.Skills = append([]string(nil), s.Candidate.Skills...)
	if s.EndTime != nil {
		end := *s.EndTime
		out.EndTime = &end
	}
	out.Responses = make([]QuestionAnswer, len(s.Responses))
	for i, qa := range s.Responses {
		qa.Answer = qa.Answer.Clone()
		qa.Expressions = append([]ExpressionSample(nil), qa.Expressions...)
		if qa.Expressions == nil {
			qa.Expressions = []ExpressionSample{}
		}
		out.Responses[i] = qa
	}
	return out
}

// Duration is the elapsed interview time, measured to EndTime when set.
func (s Session) Duration(now time.Time) time.Duration {
	if s.EndTime != nil {
		return s.EndTime.Sub(s.StartTime)
	}
	return now.Sub(s.StartTime)
}

package analytics

import (
	"time"

	"github.com/Dhvanitmonpara/interview.ai/internal/analysis/expression"
	"github.com/Dhvanitmonpara/interview.ai/internal/model/interview"
	"github.com/Dhvanitmonpara/interview.ai/internal/round"
)

// Summary is the analytics record emitted when an interview finishes.
type Summary struct {
	ConnectionID      string                   `json:"connectionId"`
	UserID            string                   `json:"userId,omitempty"`
	JobRole           string                   `json:"jobRole"`
	YearsOfExperience int                      `json:"yearsOfExperience"`
	Status            interview.Status         `json:"status"`
	Questions         int                      `json:"questions"`
	Answered          int                      `json:"answered"`
	Rounds            map[round.Round]int      `json:"rounds"`
	Expressions       map[expression.State]int `json:"expressions"`
	DurationSeconds   int64                    `json:"durationSeconds"`
	StartedAt         time.Time                `json:"startedAt"`
	EndedAt           *time.Time               `json:"endedAt,omitempty"`
}

// Summarize aggregates a session into a Summary.
func Summarize(s interview.Session, now time.Time) Summary {
	out := Summary{
		ConnectionID:      s.ConnectionID,
		UserID:            s.Candidate.UserID,
		JobRole:           s.Candidate.JobRole,
		YearsOfExperience: s.Candidate.YearsOfExperience,
		Status:            s.Status,
		Questions:         len(s.Responses),
		Rounds:            make(map[round.Round]int),
		Expressions:       make(map[expression.State]int),
		DurationSeconds:   int64(s.Duration(now) / time.Second),
		StartedAt:         s.StartTime,
		EndedAt:           s.EndTime,
	}

	for _, qa := range s.Responses {
		out.Rounds[qa.Round]++
		if qa.Answer.String() != "" {
			out.Answered++
		}
		for _, sample := range qa.Expressions {
			out.Expressions[sample.State]++
		}
	}
	return out
}

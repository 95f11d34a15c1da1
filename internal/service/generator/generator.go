package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Dhvanitmonpara/interview.ai/internal/model/interview"
	"github.com/Dhvanitmonpara/interview.ai/internal/model/role"
	"github.com/Dhvanitmonpara/interview.ai/internal/round"
)

var (
	// ErrQuotaExceeded 表示模型服务返回 429/403，额度耗尽或凭证过期。
	ErrQuotaExceeded = errors.New("question service quota exceeded or credentials expired")
	// ErrEmptyOutput 表示模型返回了空文本。
	ErrEmptyOutput = errors.New("question service returned empty output")
)

// QuestionRequest carries everything the generator sees when asked for the next question.
type QuestionRequest struct {
	Candidate      interview.Candidate
	Role           role.Role
	Round          round.Round
	TimeLimit      int
	Index          int
	PreviousAnswer string
}

// FeedbackRequest asks for an end-of-interview review.
type FeedbackRequest struct {
	Candidate interview.Candidate
	Responses []interview.QuestionAnswer
}

// Generator is the black-box text service behind the interview.
type Generator interface {
	NextQuestion(ctx context.Context, req QuestionRequest) (string, error)
	Feedback(ctx context.Context, req FeedbackRequest) (string, error)
}

// Difficulty maps years of experience to the level the question should target.
func Difficulty(years int) string {
	switch {
	case years < 2:
		return "beginner"
	case years <= 5:
		return "intermediate"
	default:
		return "advanced"
	}
}

// classifyError wraps upstream failures, flagging quota and auth rejections.
func classifyError(op string, err error) error {
	msg := err.Error()
	if strings.Contains(msg, "429") || strings.Contains(msg, "403") {
		return fmt.Errorf("%s: %w: %v", op, ErrQuotaExceeded, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Dhvanitmonpara/interview.ai/internal/analysis/expression"
	"github.com/Dhvanitmonpara/interview.ai/internal/model/interview"
	"github.com/Dhvanitmonpara/interview.ai/internal/round"
)

// BankGenerator 在未配置大模型时使用内置题库与启发式反馈。
type BankGenerator struct {
	templates map[round.Round][]string
}

var _ Generator = (*BankGenerator)(nil)

// NewBankGenerator returns a generator backed by the built-in templates.
func NewBankGenerator() *BankGenerator {
	return &BankGenerator{templates: defaultTemplates}
}

var defaultTemplates = map[round.Round][]string{
	round.Aptitude: {
		"In one or two sentences, what problem does %s solve and when would you not use it?",
		"Estimate how you would measure the performance of a small %s program. What would you look at first?",
		"A teammate reports a bug they can only reproduce sometimes in %s code. How do you narrow it down?",
	},
	round.Behavioral: {
		"Tell me about a time a project using %s slipped its deadline. What did you do?",
		"Describe a disagreement you had with a colleague about %s. How was it resolved?",
		"Give an example of feedback on your %s work that changed how you operate.",
	},
	round.Technical: {
		"Walk me through the internals of %s that most often surprise newcomers.",
		"How would you test a feature built with %s end to end? Which layers get which tests?",
		"What trade-offs do you weigh when choosing %s over its closest alternative?",
	},
	round.SystemDesign: {
		"Design a service where %s is a core component, handling ten times today's traffic. Where does it break first?",
		"How would you make a %s based system observable and debuggable in production?",
		"Sketch the data model and failure modes of a multi-region system built around %s.",
	},
}

// NextQuestion picks a template by position within the round and fills in a topic.
func (g *BankGenerator) NextQuestion(_ context.Context, req QuestionRequest) (string, error) {
	templates := g.templates[req.Round]
	if len(templates) == 0 {
		templates = g.templates[round.Select(req.Index)]
	}
	if len(templates) == 0 {
		return "", ErrEmptyOutput
	}

	index := req.Index
	if index < 0 {
		index = 0
	}
	question := fmt.Sprintf(templates[index%len(templates)], topic(req, index))
	if strings.TrimSpace(req.PreviousAnswer) != "" && index%len(templates) == 0 {
		question = "Building on your last answer: " + question
	}
	return question, nil
}

func topic(req QuestionRequest, index int) string {
	topics := make([]string, 0, len(req.Candidate.Skills)+len(req.Role.Focus))
	topics = append(topics, req.Candidate.Skills...)
	topics = append(topics, req.Role.Focus...)
	if len(topics) == 0 {
		if req.Candidate.JobRole != "" {
			return req.Candidate.JobRole
		}
		return "your main stack"
	}
	return topics[index%len(topics)]
}

type improvement struct {
	Measure string `json:"measure"`
	Skill   string `json:"skill"`
}

type review struct {
	Index        int           `json:"index"`
	Feedback     string        `json:"feedback"`
	Improvements []improvement `json:"improvements"`
}

const shortAnswerWords = 20

// Feedback scores each answer on length and the candidate's dominant expression.
func (g *BankGenerator) Feedback(_ context.Context, req FeedbackRequest) (string, error) {
	reviews := make([]review, 0, len(req.Responses))
	for _, qa := range req.Responses {
		reviews = append(reviews, reviewAnswer(qa))
	}
	out, err := json.Marshal(reviews)
	if err != nil {
		return "", fmt.Errorf("encode feedback: %w", err)
	}
	return string(out), nil
}

func reviewAnswer(qa interview.QuestionAnswer) review {
	r := review{Index: qa.Index, Improvements: []improvement{}}
	words := len(strings.Fields(qa.Answer.String()))

	switch {
	case words == 0:
		r.Feedback = "No answer was recorded for this question."
		r.Improvements = append(r.Improvements, improvement{
			Measure: "Attempt every question, even with a partial answer that states your assumptions.",
			Skill:   "problem solving",
		})
	case words < shortAnswerWords:
		r.Feedback = "The answer was brief and left out supporting detail."
		r.Improvements = append(r.Improvements, improvement{
			Measure: "Back your answer with a concrete example from your own work.",
			Skill:   "communication",
		})
	default:
		r.Feedback = "The answer covered the question with reasonable depth."
	}

	switch dominant(qa.Expressions) {
	case expression.Nervous, expression.Anxious:
		r.Improvements = append(r.Improvements, improvement{
			Measure: "Pause and structure your thoughts before answering to keep a steady pace.",
			Skill:   "composure",
		})
	case expression.Frustrated, expression.Sad:
		r.Improvements = append(r.Improvements, improvement{
			Measure: "When stuck, say what you know and ask a clarifying question instead of stalling.",
			Skill:   "resilience",
		})
	case expression.NoDetection:
		r.Improvements = append(r.Improvements, improvement{
			Measure: "Stay in frame and face the camera while answering.",
			Skill:   "presence",
		})
	}
	return r
}

// dominant returns the most frequent state, ignoring undetermined readings. Ties go to the earliest seen.
func dominant(samples []interview.ExpressionSample) expression.State {
	counts := make(map[expression.State]int, len(samples))
	var best expression.State
	for _, s := range samples {
		if s.State == expression.Undetermined {
			continue
		}
		counts[s.State]++
		if best == "" || counts[s.State] > counts[best] {
			best = s.State
		}
	}
	return best
}

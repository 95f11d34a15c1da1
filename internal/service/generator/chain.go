package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/sirupsen/logrus"

	"github.com/Dhvanitmonpara/interview.ai/internal/logging"
)

// ChainGenerator 通过 eino chain 调用大模型生成问题与反馈。
type ChainGenerator struct {
	question compose.Runnable[map[string]any, *schema.Message]
	feedback compose.Runnable[map[string]any, *schema.Message]
}

var _ Generator = (*ChainGenerator)(nil)

// NewChainGenerator compiles the question and feedback chains over chatModel.
func NewChainGenerator(ctx context.Context, chatModel model.ChatModel) (*ChainGenerator, error) {
	if chatModel == nil {
		return nil, fmt.Errorf("chat model is required")
	}

	question, err := compile(ctx, chatModel, questionSystemPrompt, questionUserPrompt)
	if err != nil {
		return nil, fmt.Errorf("failed to compile question chain: %w", err)
	}
	feedback, err := compile(ctx, chatModel, feedbackSystemPrompt, feedbackUserPrompt)
	if err != nil {
		return nil, fmt.Errorf("failed to compile feedback chain: %w", err)
	}

	return &ChainGenerator{question: question, feedback: feedback}, nil
}

func compile(ctx context.Context, chatModel model.ChatModel, system, user string) (compose.Runnable[map[string]any, *schema.Message], error) {
	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage(system),
		schema.UserMessage(user),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)
	return chain.Compile(ctx)
}

// NextQuestion asks the model for one question.
func (g *ChainGenerator) NextQuestion(ctx context.Context, req QuestionRequest) (string, error) {
	msg, err := g.question.Invoke(ctx, questionInput(req))
	if err != nil {
		return "", classifyError("generate question", err)
	}
	text := cleanOutput(msg)
	if text == "" {
		return "", ErrEmptyOutput
	}

	logging.For("generator").WithFields(logrus.Fields{
		"round": req.Round,
		"index": req.Index,
		"chars": len(text),
	}).Debug("question generated")
	return text, nil
}

// Feedback asks the model to review every recorded answer.
func (g *ChainGenerator) Feedback(ctx context.Context, req FeedbackRequest) (string, error) {
	input, err := feedbackInput(req)
	if err != nil {
		return "", err
	}
	msg, err := g.feedback.Invoke(ctx, input)
	if err != nil {
		return "", classifyError("generate feedback", err)
	}
	text := cleanOutput(msg)
	if text == "" {
		return "", ErrEmptyOutput
	}
	return text, nil
}

func questionInput(req QuestionRequest) map[string]any {
	name := strings.TrimSpace(req.Candidate.Name)
	if name == "" {
		name = "the candidate"
	}
	previous := strings.TrimSpace(req.PreviousAnswer)
	if previous == "" {
		previous = "none, this is the first question"
	}
	jobRole := req.Role.Title
	if jobRole == "" {
		jobRole = req.Candidate.JobRole
	}

	return map[string]any{
		"name":            name,
		"years":           strconv.Itoa(req.Candidate.YearsOfExperience),
		"job_role":        jobRole,
		"skills":          strings.Join(req.Candidate.Skills, ", "),
		"round":           string(req.Round),
		"time_limit":      strconv.Itoa(req.TimeLimit),
		"difficulty":      Difficulty(req.Candidate.YearsOfExperience),
		"previous_answer": previous,
	}
}

type feedbackItem struct {
	Index       int      `json:"index"`
	Round       string   `json:"round"`
	Question    string   `json:"question"`
	Answer      string   `json:"answer"`
	Expressions []string `json:"expressions,omitempty"`
}

func feedbackInput(req FeedbackRequest) (map[string]any, error) {
	candidate, err := json.Marshal(req.Candidate)
	if err != nil {
		return nil, fmt.Errorf("encode candidate: %w", err)
	}

	items := make([]feedbackItem, 0, len(req.Responses))
	for _, qa := range req.Responses {
		item := feedbackItem{
			Index:    qa.Index,
			Round:    string(qa.Round),
			Question: qa.Question,
			Answer:   qa.Answer.String(),
		}
		for _, sample := range qa.Expressions {
			item.Expressions = append(item.Expressions, string(sample.State))
		}
		items = append(items, item)
	}
	sets, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("encode question sets: %w", err)
	}

	return map[string]any{
		"candidate":     string(candidate),
		"question_sets": string(sets),
	}, nil
}

func cleanOutput(msg *schema.Message) string {
	if msg == nil {
		return ""
	}
	return strings.TrimSpace(msg.Content)
}

const questionSystemPrompt = `You are an AI interviewer running a professional technical interview.
Ask exactly one question. Adapt the difficulty to the candidate's experience: beginner-friendly below 2 years, intermediate for 2 to 5 years, advanced or architectural above 5 years.
If a previous answer is given, ask a follow-up that builds on it; otherwise ask a new question.
For the system-design round ask about architecture, scalability and trade-offs. For the behavioral round ask a situational, STAR-style question.
Reply with the question text only.`

const questionUserPrompt = `Candidate: {name}
Years of experience: {years} ({difficulty})
Job role: {job_role}
Skills: {skills}
Current round: {round}
Time limit: {time_limit} seconds
Previous answer: {previous_answer}`

const feedbackSystemPrompt = `You are an expert interview feedback generator.
For each question set return an object with "feedback" (strengths and weaknesses of the answer) and "improvements" (an array of objects with "measure" and "skill").
Return a JSON array with one object per question set and nothing else.`

const feedbackUserPrompt = `Candidate details: {candidate}

Question sets: {question_sets}`

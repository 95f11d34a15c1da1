package channel

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/Dhvanitmonpara/interview.ai/internal/analysis/expression"
	"github.com/Dhvanitmonpara/interview.ai/internal/model/event"
	"github.com/Dhvanitmonpara/interview.ai/internal/model/interview"
	"github.com/Dhvanitmonpara/interview.ai/internal/model/role"
	"github.com/Dhvanitmonpara/interview.ai/internal/service/analytics"
	"github.com/Dhvanitmonpara/interview.ai/internal/service/generator"
	"github.com/Dhvanitmonpara/interview.ai/internal/service/session"
)

// State is the server-side lifecycle of one connection.
type State int

const (
	StateConnected State = iota
	StateActive
	StateCompleted
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateActive:
		return "active"
	case StateCompleted:
		return "completed"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// peer 仅由该连接的读循环访问，无需加锁。
type peer struct {
	id     string
	conn   *websocket.Conn
	userID string
	state  State

	candidate interview.Candidate
	role      role.Role

	answered    int
	outstanding *event.Question
}

func newPeer(id string, conn *websocket.Conn, userID string) *peer {
	return &peer{id: id, conn: conn, userID: userID, state: StateConnected}
}

func (h *Handler) dispatch(ctx context.Context, p *peer, msg *event.Envelope) {
	if p.state == StateConnected && msg.Type != event.InitialSetup {
		h.refresh(ctx, p)
	}

	switch msg.Type {
	case event.InitialSetup:
		h.handleSetup(ctx, p, msg)
	case event.PreviousQuestionData:
		h.handleAnswer(ctx, p, msg)
	case event.FaceExpressionData:
		h.handleExpression(ctx, p, msg)
	case event.InterviewComplete:
		h.handleComplete(ctx, p)
	case event.RequestQuestion:
		h.handleRequestQuestion(ctx, p)
	default:
		h.sendError(p, event.CodeUnsupported, "unsupported event type: "+msg.Type)
	}
}

// refresh 同步通过 HTTP 创建的会话。
func (h *Handler) refresh(ctx context.Context, p *peer) {
	s, err := h.deps.Registry.Get(ctx, p.id)
	if err != nil {
		return
	}
	p.candidate = s.Candidate
	p.role, _ = h.deps.Roles.Resolve(s.Candidate.JobRole)
	p.answered = len(s.Responses)
	p.state = StateActive
	if s.EndTime != nil {
		p.state = StateCompleted
	}
}

func (h *Handler) requireState(p *peer, want State) bool {
	if p.state == want {
		return true
	}
	if p.state == StateConnected {
		h.sendError(p, event.CodeNotFound, "no session for this connection, send initial-setup first")
		return false
	}
	h.sendError(p, event.CodeInvalidState, fmt.Sprintf("event not allowed while %s", p.state))
	return false
}

func (h *Handler) handleSetup(ctx context.Context, p *peer, msg *event.Envelope) {
	var candidate event.Setup
	if err := msg.Decode(&candidate); err != nil {
		h.sendError(p, event.CodeInvalidPayload, err.Error())
		return
	}
	if candidate.UserID == "" {
		candidate.UserID = p.userID
	}

	resolved, err := PrepareCandidate(h.deps.Roles, &candidate)
	if err != nil {
		h.sendError(p, event.CodeInvalidPayload, err.Error())
		return
	}

	if _, err := h.deps.Registry.Create(ctx, p.id, candidate); err != nil {
		if errors.Is(err, session.ErrSessionExists) {
			h.sendError(p, event.CodeSessionExists, "session already initialised for this connection")
			return
		}
		h.sendError(p, event.CodeInternal, err.Error())
		return
	}

	p.candidate = candidate
	p.role = resolved
	p.state = StateActive
	h.log.WithFields(logrus.Fields{
		"connection": p.id,
		"role":       resolved.ID,
	}).Info("session created")

	h.askNext(ctx, p, "")
}

// PrepareCandidate normalises the candidate and canonicalises its job role against the catalog.
func PrepareCandidate(roles role.Store, c *interview.Candidate) (role.Role, error) {
	if err := c.Normalize(); err != nil {
		return role.Role{}, err
	}
	resolved, ok := roles.Resolve(c.JobRole)
	if !ok {
		return role.Role{}, fmt.Errorf("%w: unknown job role %q", interview.ErrInvalidCandidate, c.JobRole)
	}
	c.JobRole = resolved.ID
	return resolved, nil
}

func (h *Handler) handleAnswer(ctx context.Context, p *peer, msg *event.Envelope) {
	if !h.requireState(p, StateActive) {
		return
	}
	if p.outstanding == nil {
		h.sendError(p, event.CodeInvalidState, "no question is awaiting an answer")
		return
	}

	var qa event.Answer
	if err := msg.Decode(&qa); err != nil {
		h.sendError(p, event.CodeInvalidPayload, err.Error())
		return
	}

	recorded, err := h.deps.Registry.AppendAnswer(ctx, p.id, qa)
	if err != nil {
		h.sendRegistryError(p, err)
		return
	}

	p.answered = recorded.Index + 1
	p.outstanding = nil

	if p.answered < h.opts.MaxQuestions {
		h.askNext(ctx, p, recorded.Answer.String())
	}
}

func (h *Handler) handleExpression(ctx context.Context, p *peer, msg *event.Envelope) {
	if p.state != StateActive && p.state != StateCompleted {
		h.requireState(p, StateActive)
		return
	}

	var payload event.Expression
	if err := msg.Decode(&payload); err != nil {
		h.sendError(p, event.CodeInvalidPayload, err.Error())
		return
	}
	state, ok := expression.ParseState(payload.ExpressionState)
	if !ok {
		h.sendError(p, event.CodeInvalidPayload, fmt.Sprintf("unknown expression state %q", payload.ExpressionState))
		return
	}

	if _, err := h.deps.Registry.AppendExpression(ctx, p.id, payload.QuestionAnswerIndex, state, payload.Time()); err != nil {
		h.sendRegistryError(p, err)
	}
}

func (h *Handler) handleComplete(ctx context.Context, p *peer) {
	if p.state != StateActive && p.state != StateCompleted {
		h.requireState(p, StateActive)
		return
	}

	completed, err := h.deps.Registry.Complete(ctx, p.id)
	if err != nil {
		h.sendRegistryError(p, err)
		return
	}
	first := p.state == StateActive
	p.state = StateCompleted
	p.outstanding = nil

	log := h.log.WithField("connection", p.id)
	if first && h.opts.FeedbackEnabled && len(completed.Responses) > 0 {
		if feedback, err := h.feedback(ctx, completed); err != nil {
			log.WithError(err).Warn("feedback generation failed")
		} else if err := h.deps.Registry.SetFeedback(ctx, p.id, feedback); err == nil {
			completed.Feedback = feedback
		}
	}

	if err := h.deps.Archive.Save(ctx, completed); err != nil {
		log.WithError(err).Error("archive completed session failed")
	}

	ok := true
	if first {
		if err := h.deps.Publisher.Publish(ctx, analytics.Summarize(completed, time.Now().UTC())); err != nil {
			log.WithError(err).Error("publish analytics failed")
			ok = false
		}
	}
	log.WithField("responses", len(completed.Responses)).Info("interview completed")
	h.send(p, event.InterviewAnalytics, ok)
}

func (h *Handler) feedback(ctx context.Context, s interview.Session) (string, error) {
	genCtx, cancel := context.WithTimeout(ctx, h.opts.GenerateTimeout)
	defer cancel()
	return h.deps.Generator.Feedback(genCtx, generator.FeedbackRequest{
		Candidate: s.Candidate,
		Responses: s.Responses,
	})
}

func (h *Handler) handleRequestQuestion(ctx context.Context, p *peer) {
	if !h.requireState(p, StateActive) {
		return
	}
	if p.outstanding != nil {
		h.send(p, event.NextQuestion, *p.outstanding)
		return
	}
	if p.answered >= h.opts.MaxQuestions {
		h.sendError(p, event.CodeInvalidState, "all questions have been asked, send interview-complete")
		return
	}

	previous := ""
	if p.answered > 0 {
		if s, err := h.deps.Registry.Get(ctx, p.id); err == nil && len(s.Responses) > 0 {
			previous = s.Responses[len(s.Responses)-1].Answer.String()
		}
	}
	h.askNext(ctx, p, previous)
}

// askNext 生成下一题；失败时发送 question-unavailable，等待客户端 request-question 重试。
func (h *Handler) askNext(ctx context.Context, p *peer, previousAnswer string) {
	index := p.answered
	r, limit := h.opts.Rounds.ForIndex(index)

	genCtx, cancel := context.WithTimeout(ctx, h.opts.GenerateTimeout)
	defer cancel()

	text, err := h.deps.Generator.NextQuestion(genCtx, generator.QuestionRequest{
		Candidate:      p.candidate,
		Role:           p.role,
		Round:          r,
		TimeLimit:      limit,
		Index:          index,
		PreviousAnswer: previousAnswer,
	})
	if err != nil {
		entry := h.log.WithError(err).WithFields(logrus.Fields{"connection": p.id, "index": index})
		message := "could not generate question, retry with request-question"
		if errors.Is(err, generator.ErrQuotaExceeded) {
			entry.Error("question service quota exceeded or key expired")
			message = "question service quota exceeded, retry later with request-question"
		} else {
			entry.Warn("question generation failed")
		}
		h.sendError(p, event.CodeQuestionUnavailable, message)
		return
	}

	q := event.Question{
		Question:  text,
		Round:     r,
		Index:     index,
		TimeLimit: limit,
		Last:      index == h.opts.MaxQuestions-1,
	}
	p.outstanding = &q
	h.send(p, event.NextQuestion, q)
}

func (h *Handler) sendRegistryError(p *peer, err error) {
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		h.sendError(p, event.CodeNotFound, err.Error())
	case errors.Is(err, session.ErrIndexOutOfOrder):
		h.sendError(p, event.CodeIndexOutOfOrder, err.Error())
	case errors.Is(err, session.ErrInvalidIndex):
		h.sendError(p, event.CodeInvalidPayload, err.Error())
	case errors.Is(err, session.ErrExpressionBufferFull):
		h.sendError(p, event.CodeBufferFull, err.Error())
	default:
		h.log.WithError(err).WithField("connection", p.id).Error("registry operation failed")
		h.sendError(p, event.CodeInternal, "internal error")
	}
}

package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Dhvanitmonpara/interview.ai/internal/analysis/expression"
	"github.com/Dhvanitmonpara/interview.ai/internal/logging"
	"github.com/Dhvanitmonpara/interview.ai/internal/model/event"
	"github.com/Dhvanitmonpara/interview.ai/internal/model/interview"
	"github.com/Dhvanitmonpara/interview.ai/internal/timer"
	"github.com/Dhvanitmonpara/interview.ai/internal/transcript"
)

// DefaultRetryDelay is how long the controller waits before request-question after question-unavailable.
const DefaultRetryDelay = 5 * time.Second

// Config 描述一次面试的候选人与外部能力。
type Config struct {
	Candidate interview.Candidate

	Recognizer     transcript.Recognizer
	Camera         expression.Camera
	SampleInterval time.Duration
	RetryDelay     time.Duration

	// Ticker overrides the countdown clock, used by tests.
	Ticker timer.TickerFunc

	// OnQuestion and OnTick are UI hooks, called from the controller goroutines.
	OnQuestion func(q event.Question)
	OnTick     func(remaining int)
}

// Result summarises a finished interview.
type Result struct {
	ConnectionID       string
	Answered           int
	AnalyticsPublished bool
	Failures           []event.Failure
}

// Controller drives one interview over a Conn: it answers each question when its
// countdown expires or Next is called, and streams expression changes meanwhile.
type Controller struct {
	conn   Conn
	cfg    Config
	acc    *transcript.Accumulator
	next   chan struct{}
	finish chan struct{}
	log    *logrus.Entry
}

// NewController creates a controller with its own transcript accumulator.
func NewController(conn Conn, cfg Config) *Controller {
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}
	return &Controller{
		conn:   conn,
		cfg:    cfg,
		acc:    transcript.New(),
		next:   make(chan struct{}, 1),
		finish: make(chan struct{}, 1),
		log:    logging.For("controller").WithField("connection", conn.ID()),
	}
}

// Next submits the current answer without waiting for the countdown.
func (c *Controller) Next() {
	select {
	case c.next <- struct{}{}:
	default:
	}
}

// Finish submits the current answer and ends the interview.
func (c *Controller) Finish() {
	select {
	case c.finish <- struct{}{}:
	default:
	}
}

// Transcript returns the text recognised for the active question.
func (c *Controller) Transcript() string {
	return c.acc.Transcript()
}

// interviewRun 为 Run 的循环状态，仅由 Run 所在 goroutine 访问。
type interviewRun struct {
	current   *event.Question
	lastState expression.State
	retry     <-chan time.Time
	expired   chan struct{}
	completed bool
	result    Result
}

// Run sends initial-setup and drives the interview until interview-analytics arrives,
// the channel closes or ctx is cancelled. It returns only after the recognizer and
// sampler goroutines have stopped and the camera has been released.
func (c *Controller) Run(ctx context.Context) (Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	defer func() {
		cancel()
		wg.Wait()
	}()

	run := &interviewRun{
		expired: make(chan struct{}, 1),
		result:  Result{ConnectionID: c.conn.ID()},
	}
	timerOpts := make([]timer.Option, 0, 2)
	if c.cfg.Ticker != nil {
		timerOpts = append(timerOpts, timer.WithTicker(c.cfg.Ticker))
	}
	if c.cfg.OnTick != nil {
		timerOpts = append(timerOpts, timer.WithTick(c.cfg.OnTick))
	}
	countdown := timer.New(func() {
		select {
		case run.expired <- struct{}{}:
		default:
		}
	}, timerOpts...)
	defer countdown.Stop()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := c.acc.Listen(ctx, c.cfg.Recognizer); err != nil {
			c.log.WithError(err).Warn("speech recognition stopped")
		}
	}()

	readings := make(chan expression.Reading, 8)
	wg.Add(1)
	go func() {
		defer wg.Done()
		sampler := expression.NewSampler(c.cfg.Camera, c.cfg.SampleInterval)
		err := sampler.Run(ctx, func(r expression.Reading) {
			select {
			case readings <- r:
			case <-ctx.Done():
			}
		})
		switch {
		case errors.Is(err, expression.ErrDeviceUnavailable):
			c.log.WithError(err).Warn("camera unavailable, continuing without expression analysis")
		case err != nil:
			c.log.WithError(err).Warn("expression sampling stopped")
		}
	}()

	if err := c.conn.Send(event.InitialSetup, c.cfg.Candidate); err != nil {
		return run.result, err
	}

	events := c.conn.Events()
	for {
		select {
		case <-ctx.Done():
			return run.result, ctx.Err()

		case env, ok := <-events:
			if !ok {
				return run.result, fmt.Errorf("%w: connection closed", ErrChannel)
			}
			done, err := c.handle(env, run, countdown)
			if err != nil || done {
				return run.result, err
			}

		case <-run.expired:
			if err := c.submit(run, countdown, false); err != nil {
				return run.result, err
			}

		case <-c.next:
			if err := c.submit(run, countdown, false); err != nil {
				return run.result, err
			}

		case <-c.finish:
			if err := c.submit(run, countdown, true); err != nil {
				return run.result, err
			}

		case r := <-readings:
			if err := c.reportExpression(run, r); err != nil {
				return run.result, err
			}

		case <-run.retry:
			run.retry = nil
			if err := c.conn.Send(event.RequestQuestion, nil); err != nil {
				return run.result, err
			}
		}
	}
}

func (c *Controller) handle(env event.Envelope, run *interviewRun, countdown *timer.Timer) (bool, error) {
	switch env.Type {
	case event.NextQuestion:
		var q event.Question
		if err := env.Decode(&q); err != nil {
			c.log.WithError(err).Warn("malformed question")
			return false, nil
		}
		if run.current != nil && run.current.Index == q.Index {
			return false, nil
		}
		run.current = &q
		run.lastState = ""
		c.acc.OnQuestionChange(q.Index)
		countdown.Start(q.TimeLimit)
		// Start 返回后旧倒计时不会再触发，丢弃它此前留下的到期信号。
		select {
		case <-run.expired:
		default:
		}
		c.log.WithFields(logrus.Fields{"index": q.Index, "round": q.Round}).Debug("question received")
		if c.cfg.OnQuestion != nil {
			c.cfg.OnQuestion(q)
		}

	case event.Error:
		var failure event.Failure
		if err := env.Decode(&failure); err != nil {
			return false, nil
		}
		run.result.Failures = append(run.result.Failures, failure)
		if failure.Code == event.CodeQuestionUnavailable && !run.completed {
			c.log.WithField("retry_in", c.cfg.RetryDelay).Warn(failure.Message)
			run.retry = time.After(c.cfg.RetryDelay)
			return false, nil
		}
		c.log.WithField("code", failure.Code).Warn(failure.Message)

	case event.InterviewAnalytics:
		var ok bool
		if err := env.Decode(&ok); err != nil {
			return false, nil
		}
		run.result.AnalyticsPublished = ok
		return true, nil
	}
	return false, nil
}

// submit 提交当前题目的转写文本；最后一题或 finish 时随后发送 interview-complete。
// 提交前先把转写切到下一题，之后识别到的语音归属下一题。
func (c *Controller) submit(run *interviewRun, countdown *timer.Timer, finish bool) error {
	if run.current != nil {
		countdown.Stop()
		select {
		case <-run.expired:
		default:
		}
		q := *run.current
		c.acc.OnQuestionChange(q.Index + 1)
		qa := interview.QuestionAnswer{
			Question:  q.Question,
			Answer:    interview.Text(c.acc.Entry(q.Index)),
			Round:     q.Round,
			Index:     q.Index,
			TimeLimit: q.TimeLimit,
		}
		if err := c.conn.Send(event.PreviousQuestionData, qa); err != nil {
			return err
		}
		run.result.Answered++
		run.current = nil
		finish = finish || q.Last
	}

	if finish && !run.completed {
		run.completed = true
		return c.conn.Send(event.InterviewComplete, nil)
	}
	return nil
}

func (c *Controller) reportExpression(run *interviewRun, r expression.Reading) error {
	if run.current == nil || r.State == run.lastState {
		return nil
	}
	run.lastState = r.State
	return c.conn.Send(event.FaceExpressionData, event.Expression{
		ExpressionState:     string(r.State),
		TimeStamp:           r.At.UnixMilli(),
		QuestionAnswerIndex: run.current.Index,
	})
}

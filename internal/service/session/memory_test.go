package session_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dhvanitmonpara/interview.ai/internal/analysis/expression"
	"github.com/Dhvanitmonpara/interview.ai/internal/model/interview"
	"github.com/Dhvanitmonpara/interview.ai/internal/round"
	"github.com/Dhvanitmonpara/interview.ai/internal/service/session"
)

func alice() interview.Candidate {
	return interview.Candidate{Name: "Alice", YearsOfExperience: 3, JobRole: "front-end", Skills: []string{"react"}}
}

func answer(index int, text string) interview.QuestionAnswer {
	return interview.QuestionAnswer{Question: fmt.Sprintf("q%d", index), Answer: interview.Text(text), Index: index}
}

func TestCreateStartsEmptySession(t *testing.T) {
	reg := session.NewMemoryRegistry()
	ctx := context.Background()

	created, err := reg.Create(ctx, "conn-1", alice())
	require.NoError(t, err)
	assert.Empty(t, created.Responses)
	assert.Nil(t, created.EndTime)
	assert.False(t, created.StartTime.IsZero())
	assert.Equal(t, interview.StatusActive, created.Status)
	assert.Equal(t, 1, reg.Len())
}

func TestCreateRejectsDuplicate(t *testing.T) {
	reg := session.NewMemoryRegistry()
	ctx := context.Background()

	_, err := reg.Create(ctx, "conn-1", alice())
	require.NoError(t, err)
	_, err = reg.AppendAnswer(ctx, "conn-1", answer(0, "first"))
	require.NoError(t, err)

	other := alice()
	other.Name = "Mallory"
	existing, err := reg.Create(ctx, "conn-1", other)
	require.ErrorIs(t, err, session.ErrSessionExists)
	assert.Equal(t, "Alice", existing.Candidate.Name)
	assert.Len(t, existing.Responses, 1)
	assert.Equal(t, 1, reg.Len())
}

func TestCreateRemoveGetNotFound(t *testing.T) {
	reg := session.NewMemoryRegistry()
	ctx := context.Background()

	_, err := reg.Create(ctx, "conn-1", alice())
	require.NoError(t, err)

	removed, err := reg.Remove(ctx, "conn-1")
	require.NoError(t, err)
	assert.Equal(t, interview.StatusAbandoned, removed.Status)

	_, err = reg.Get(ctx, "conn-1")
	assert.ErrorIs(t, err, session.ErrSessionNotFound)
	assert.Equal(t, 0, reg.Len())

	_, err = reg.Remove(ctx, "conn-1")
	assert.ErrorIs(t, err, session.ErrSessionNotFound)
}

func TestOperationsOnMissingSession(t *testing.T) {
	reg := session.NewMemoryRegistry()
	ctx := context.Background()

	_, err := reg.AppendAnswer(ctx, "ghost", answer(0, "x"))
	assert.ErrorIs(t, err, session.ErrSessionNotFound)

	_, err = reg.AppendExpression(ctx, "ghost", 0, expression.Neutral, time.Now())
	assert.ErrorIs(t, err, session.ErrSessionNotFound)

	_, err = reg.Complete(ctx, "ghost")
	assert.ErrorIs(t, err, session.ErrSessionNotFound)

	assert.ErrorIs(t, reg.SetFeedback(ctx, "ghost", "x"), session.ErrSessionNotFound)

	_, err = reg.Create(ctx, "", alice())
	assert.ErrorIs(t, err, session.ErrConnectionRequired)
}

func TestAppendAnswerEnforcesSequentialIndex(t *testing.T) {
	reg := session.NewMemoryRegistry()
	ctx := context.Background()
	_, err := reg.Create(ctx, "conn-1", alice())
	require.NoError(t, err)

	_, err = reg.AppendAnswer(ctx, "conn-1", answer(1, "skipped zero"))
	require.ErrorIs(t, err, session.ErrIndexOutOfOrder)

	_, err = reg.AppendAnswer(ctx, "conn-1", answer(0, "zero"))
	require.NoError(t, err)

	_, err = reg.AppendAnswer(ctx, "conn-1", answer(0, "zero again"))
	require.ErrorIs(t, err, session.ErrIndexOutOfOrder)

	got, err := reg.Get(ctx, "conn-1")
	require.NoError(t, err)
	require.Len(t, got.Responses, 1)
	assert.Equal(t, "zero", got.Responses[0].Answer.Text)
}

func TestAppendAnswerDerivesRoundAndLimit(t *testing.T) {
	table := round.Table{round.Behavioral: 200}
	reg := session.NewMemoryRegistry(session.WithRoundTable(table))
	ctx := context.Background()
	_, err := reg.Create(ctx, "conn-1", alice())
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		qa := answer(i, "a")
		qa.Round = round.SystemDesign
		qa.TimeLimit = 1
		recorded, err := reg.AppendAnswer(ctx, "conn-1", qa)
		require.NoError(t, err)
		assert.Equal(t, round.Select(i), recorded.Round)
		assert.Equal(t, table.TimeLimit(round.Select(i)), recorded.TimeLimit)
	}

	got, err := reg.Get(ctx, "conn-1")
	require.NoError(t, err)
	assert.Equal(t, 200, got.Responses[3].TimeLimit)
}

func TestExpressionBufferedUntilAnswerArrives(t *testing.T) {
	reg := session.NewMemoryRegistry()
	ctx := context.Background()
	_, err := reg.Create(ctx, "conn-1", alice())
	require.NoError(t, err)

	at := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	applied, err := reg.AppendExpression(ctx, "conn-1", 0, expression.Nervous, at)
	require.NoError(t, err)
	assert.False(t, applied)
	applied, err = reg.AppendExpression(ctx, "conn-1", 0, expression.NoDetection, at.Add(time.Second))
	require.NoError(t, err)
	assert.False(t, applied)

	recorded, err := reg.AppendAnswer(ctx, "conn-1", answer(0, "a"))
	require.NoError(t, err)
	require.Len(t, recorded.Expressions, 2)
	assert.Equal(t, expression.Nervous, recorded.Expressions[0].State)
	assert.Equal(t, expression.NoDetection, recorded.Expressions[1].State)

	applied, err = reg.AppendExpression(ctx, "conn-1", 0, expression.Confident, at.Add(2*time.Second))
	require.NoError(t, err)
	assert.True(t, applied)

	got, err := reg.Get(ctx, "conn-1")
	require.NoError(t, err)
	assert.Len(t, got.Responses[0].Expressions, 3)
}

func TestExpressionBufferIsBounded(t *testing.T) {
	reg := session.NewMemoryRegistry(session.WithMaxPendingExpressions(2))
	ctx := context.Background()
	_, err := reg.Create(ctx, "conn-1", alice())
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err := reg.AppendExpression(ctx, "conn-1", 0, expression.Neutral, time.Now())
		require.NoError(t, err)
	}
	_, err = reg.AppendExpression(ctx, "conn-1", 1, expression.Neutral, time.Now())
	require.ErrorIs(t, err, session.ErrExpressionBufferFull)

	_, err = reg.AppendAnswer(ctx, "conn-1", answer(0, "a"))
	require.NoError(t, err)
	_, err = reg.AppendExpression(ctx, "conn-1", 1, expression.Neutral, time.Now())
	assert.NoError(t, err, "draining index 0 frees buffer space")

	_, err = reg.AppendExpression(ctx, "conn-1", -1, expression.Neutral, time.Now())
	assert.ErrorIs(t, err, session.ErrInvalidIndex)
}

func TestCompleteKeepsFirstEndTime(t *testing.T) {
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	reg := session.NewMemoryRegistry(session.WithClock(clock))
	ctx := context.Background()
	_, err := reg.Create(ctx, "conn-1", alice())
	require.NoError(t, err)

	now = now.Add(5 * time.Minute)
	first, err := reg.Complete(ctx, "conn-1")
	require.NoError(t, err)
	require.NotNil(t, first.EndTime)
	assert.Equal(t, interview.StatusCompleted, first.Status)
	assert.Equal(t, 5*time.Minute, first.Duration(now))

	now = now.Add(time.Minute)
	second, err := reg.Complete(ctx, "conn-1")
	require.NoError(t, err)
	assert.Equal(t, *first.EndTime, *second.EndTime)

	removed, err := reg.Remove(ctx, "conn-1")
	require.NoError(t, err)
	assert.Equal(t, interview.StatusCompleted, removed.Status)
}

func TestGetReturnsIsolatedCopy(t *testing.T) {
	reg := session.NewMemoryRegistry()
	ctx := context.Background()
	_, err := reg.Create(ctx, "conn-1", alice())
	require.NoError(t, err)
	_, err = reg.AppendAnswer(ctx, "conn-1", interview.QuestionAnswer{Index: 0, Answer: interview.Parts("a", "b")})
	require.NoError(t, err)

	got, err := reg.Get(ctx, "conn-1")
	require.NoError(t, err)
	got.Responses[0].Answer.Parts[0] = "mutated"
	got.Candidate.Skills[0] = "mutated"

	again, err := reg.Get(ctx, "conn-1")
	require.NoError(t, err)
	assert.Equal(t, "a", again.Responses[0].Answer.Parts[0])
	assert.Equal(t, "react", again.Candidate.Skills[0])
}

func TestConnectionsAreIsolated(t *testing.T) {
	reg := session.NewMemoryRegistry()
	ctx := context.Background()

	const conns = 20
	const answers = 25
	var wg sync.WaitGroup
	for c := 0; c < conns; c++ {
		id := fmt.Sprintf("conn-%d", c)
		_, err := reg.Create(ctx, id, alice())
		require.NoError(t, err)

		wg.Add(2)
		go func() {
			defer wg.Done()
			for i := 0; i < answers; i++ {
				if _, err := reg.AppendAnswer(ctx, id, answer(i, id)); err != nil {
					t.Errorf("append %s/%d: %v", id, i, err)
					return
				}
			}
		}()
		go func() {
			defer wg.Done()
			for i := 0; i < answers; i++ {
				_, _ = reg.AppendExpression(ctx, id, i, expression.Neutral, time.Now())
			}
		}()
	}
	wg.Wait()

	for c := 0; c < conns; c++ {
		id := fmt.Sprintf("conn-%d", c)
		got, err := reg.Get(ctx, id)
		require.NoError(t, err)
		require.Len(t, got.Responses, answers)
		total := 0
		for i, qa := range got.Responses {
			assert.Equal(t, i, qa.Index)
			assert.Equal(t, id, qa.Answer.Text)
			total += len(qa.Expressions)
		}
		assert.LessOrEqual(t, total, answers)
	}

	_, err := reg.Remove(ctx, "conn-0")
	require.NoError(t, err)
	assert.Equal(t, conns-1, reg.Len())
	assert.Len(t, reg.List(ctx), conns-1)
}

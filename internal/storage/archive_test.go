package storage

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dhvanitmonpara/interview.ai/internal/analysis/expression"
	"github.com/Dhvanitmonpara/interview.ai/internal/model/interview"
	"github.com/Dhvanitmonpara/interview.ai/internal/round"
)

func archivedSession(connID, userID string, start time.Time) interview.Session {
	end := start.Add(10 * time.Minute)
	return interview.Session{
		ConnectionID: connID,
		Candidate:    interview.Candidate{Name: "Alice", YearsOfExperience: 3, JobRole: "front-end", Skills: []string{"react"}, UserID: userID},
		Responses: []interview.QuestionAnswer{{
			Question:    "What is a map?",
			Answer:      interview.Code("m := map[string]int{}", "go"),
			Round:       round.Aptitude,
			Index:       0,
			TimeLimit:   90,
			Expressions: []interview.ExpressionSample{{State: expression.Confident, Timestamp: start.Add(time.Second)}},
		}},
		StartTime: start,
		EndTime:   &end,
		Status:    interview.StatusCompleted,
	}
}

func TestMemoryArchiveListsNewestFirst(t *testing.T) {
	archive := NewMemoryArchive()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, archive.Save(ctx, archivedSession("a", "user-1", base)))
	require.NoError(t, archive.Save(ctx, archivedSession("b", "user-1", base.Add(time.Hour))))
	require.NoError(t, archive.Save(ctx, archivedSession("c", "user-2", base)))

	got, err := archive.ListByUser(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].ConnectionID)
	assert.Equal(t, "a", got[1].ConnectionID)

	none, err := archive.ListByUser(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = archive.ListByUser(ctx, " ")
	assert.ErrorIs(t, err, ErrUserRequired)
}

func TestMemoryArchiveSaveUpserts(t *testing.T) {
	archive := NewMemoryArchive()
	ctx := context.Background()
	s := archivedSession("a", "user-1", time.Now())
	require.NoError(t, archive.Save(ctx, s))

	s.Feedback = "solid"
	require.NoError(t, archive.Save(ctx, s))

	got, err := archive.ListByUser(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "solid", got[0].Feedback)
}

func TestSessionRowRoundTrip(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	s := archivedSession("a", "user-1", start)

	row, err := encodeRow(s)
	require.NoError(t, err)
	assert.Equal(t, "user-1", row.userID)
	assert.True(t, row.endTime.Valid)

	decoded, err := row.decode()
	require.NoError(t, err)
	assert.Equal(t, s.Candidate, decoded.Candidate)
	require.Len(t, decoded.Responses, 1)
	assert.Equal(t, interview.CodeAnswer, decoded.Responses[0].Answer.Kind)
	assert.Equal(t, expression.Confident, decoded.Responses[0].Expressions[0].State)
	assert.True(t, s.EndTime.Equal(*decoded.EndTime))
}

func TestSessionRowWithoutEndTime(t *testing.T) {
	s := archivedSession("a", "", time.Now().UTC())
	s.EndTime = nil
	s.Responses = nil
	s.Status = interview.StatusAbandoned

	row, err := encodeRow(s)
	require.NoError(t, err)
	assert.False(t, row.endTime.Valid)
	assert.JSONEq(t, `[]`, string(row.responses))

	decoded, err := row.decode()
	require.NoError(t, err)
	assert.Nil(t, decoded.EndTime)
	assert.Equal(t, interview.StatusAbandoned, decoded.Status)
}

// TestPostgresArchive 需要 ARCHIVE_TEST_DATABASE_URL 指向可写的 PostgreSQL。
func TestPostgresArchive(t *testing.T) {
	dsn := os.Getenv("ARCHIVE_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("ARCHIVE_TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	archive, err := NewPostgresArchive(ctx, dsn)
	require.NoError(t, err)
	defer archive.Close()

	userID := "test-" + uuid.NewString()
	s := archivedSession(uuid.NewString(), userID, time.Now().UTC().Truncate(time.Microsecond))
	require.NoError(t, archive.Save(ctx, s))
	s.Feedback = "updated"
	require.NoError(t, archive.Save(ctx, s))

	got, err := archive.ListByUser(ctx, userID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "updated", got[0].Feedback)
	assert.Equal(t, s.Responses[0].Question, got[0].Responses[0].Question)
}

package channel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dhvanitmonpara/interview.ai/internal/model/interview"
	"github.com/Dhvanitmonpara/interview.ai/internal/model/role"
)

func TestWithLiveRejectsUnknownConnection(t *testing.T) {
	cm := NewConnectionManager()
	called := false
	err := cm.WithLive("ghost", func() error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrConnectionNotLive)
	assert.False(t, called)
	assert.False(t, cm.Has("ghost"))
	assert.Zero(t, cm.Len())
}

func TestPrepareCandidateCanonicalisesRole(t *testing.T) {
	roles := role.NewMemoryStore(role.Seed())
	c := interview.Candidate{Name: " Alice ", YearsOfExperience: 3, JobRole: "Backend Developer", Skills: []string{"go", "Go"}}

	resolved, err := PrepareCandidate(roles, &c)
	require.NoError(t, err)
	assert.Equal(t, "back-end", resolved.ID)
	assert.Equal(t, "back-end", c.JobRole)
	assert.Equal(t, "Alice", c.Name)
	assert.Equal(t, []string{"go"}, c.Skills)

	c.JobRole = "astronaut"
	_, err = PrepareCandidate(roles, &c)
	assert.ErrorIs(t, err, interview.ErrInvalidCandidate)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "connected", StateConnected.String())
	assert.Equal(t, "closed", StateClosed.String())
}

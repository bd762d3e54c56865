package services

import (
	"testing"
	"time"

	"github.com/Aksuiekbro/debetter-sub000/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyJoin(t *testing.T) {
	now := time.Now()

	testCases := []struct {
		name     string
		setup    func(*models.Tournament)
		userID   string
		role     string
		expected ErrorKind
	}{
		{
			name:   "debater joins",
			userID: "newcomer",
			role:   models.RoleDebater,
		},
		{
			name:   "judge joins",
			userID: "newcomer",
			role:   models.RoleJudge,
		},
		{
			name:   "observer bypasses ceilings",
			userID: "newcomer",
			role:   models.RoleObserver,
			setup: func(tr *models.Tournament) {
				tr.MaxDebaters = 0
				tr.MaxJudges = 0
			},
		},
		{
			name:     "invalid role",
			userID:   "newcomer",
			role:     "Coach",
			expected: KindValidation,
		},
		{
			name:     "duplicate participant",
			userID:   "d1",
			role:     models.RoleDebater,
			expected: KindConflict,
		},
		{
			name:   "debater ceiling reached",
			userID: "newcomer",
			role:   models.RoleDebater,
			setup: func(tr *models.Tournament) {
				tr.MaxDebaters = 2
			},
			expected: KindCapacityExceeded,
		},
		{
			name:   "judge ceiling reached",
			userID: "newcomer",
			role:   models.RoleJudge,
			setup: func(tr *models.Tournament) {
				tr.MaxJudges = 1
			},
			expected: KindCapacityExceeded,
		},
		{
			name:   "tournament already started",
			userID: "newcomer",
			role:   models.RoleDebater,
			setup: func(tr *models.Tournament) {
				tr.Status = models.StatusInProgress
			},
			expected: KindState,
		},
		{
			name:   "deadline passed",
			userID: "newcomer",
			role:   models.RoleDebater,
			setup: func(tr *models.Tournament) {
				past := now.Add(-time.Hour)
				tr.RegistrationDeadline = &past
			},
			expected: KindState,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tournament := newTestTournament(2, 1)
			if tc.setup != nil {
				tc.setup(tournament)
			}
			before := len(tournament.Participants)

			err := applyJoin(tournament, tc.userID, tc.role, now)
			if tc.expected != "" {
				assert.Equal(t, tc.expected, KindOf(err))
				assert.Len(t, tournament.Participants, before, "failed join must not add a participant")
				return
			}
			require.NoError(t, err)
			p := tournament.FindParticipant(tc.userID)
			require.NotNil(t, p)
			assert.Equal(t, tc.role, p.Role)
		})
	}
}

func TestApplyJoinRefreshesCounters(t *testing.T) {
	tournament := newTestTournament(0, 0)

	require.NoError(t, applyJoin(tournament, "u1", models.RoleDebater, time.Now()))
	require.NoError(t, applyJoin(tournament, "u2", models.RoleJudge, time.Now()))

	assert.Equal(t, 1, tournament.CurrentDebaters)
	assert.Equal(t, 1, tournament.CurrentJudges)
}

func TestApplyLeave(t *testing.T) {
	tournament := newTestTournament(2, 1)

	require.NoError(t, applyLeave(tournament, "d1"))
	assert.Nil(t, tournament.FindParticipant("d1"))
	assert.Equal(t, 1, tournament.CurrentDebaters)

	err := applyLeave(tournament, "stranger")
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestApplyBulkRegister(t *testing.T) {
	tournament := newTestTournament(0, 0)
	tournament.MaxDebaters = 3
	tournament.MaxJudges = 2

	// one judge over capacity; debater list has a duplicate, a blank and one over
	judges := []string{"j1", "j2", "j3"}
	debaters := []string{"d1", "d2", "d1", "", "d3", "d4"}

	judgesAdded, debatersAdded := applyBulkRegister(tournament, judges, debaters, time.Now())

	assert.Equal(t, 2, judgesAdded)
	assert.Equal(t, 3, debatersAdded)
	assert.Equal(t, 3, tournament.CurrentDebaters)
	assert.Equal(t, 2, tournament.CurrentJudges)
	assert.Nil(t, tournament.FindParticipant("j3"))
	assert.Nil(t, tournament.FindParticipant("d4"))
}

package services

import (
	"fmt"
	"testing"
	"time"

	"github.com/Aksuiekbro/debetter-sub000/models"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB creates an in-memory SQLite database with the full schema.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "Failed to connect to in-memory DB")

	err = db.AutoMigrate(&models.Tournament{}, &models.Evaluation{}, &models.Notification{})
	require.NoError(t, err, "Failed to migrate test schema")

	return db
}

// newTestTournament builds an upcoming tournament with the given counts of
// debaters (d1, d2, ...) and judges (j1, j2, ...), unteamed.
func newTestTournament(debaters, judges int) *models.Tournament {
	t := &models.Tournament{
		ID:          "t1",
		Name:        "Test Open",
		Status:      models.StatusUpcoming,
		StartDate:   time.Now().Add(48 * time.Hour),
		MaxDebaters: 32,
		MaxJudges:   8,
		CreatedBy:   "organizer1",
		Participants: []models.Participant{
			{UserID: "organizer1", Role: models.RoleOrganizer},
		},
	}
	for i := 1; i <= debaters; i++ {
		t.Participants = append(t.Participants, models.Participant{
			UserID: fmt.Sprintf("d%d", i),
			Role:   models.RoleDebater,
		})
	}
	for i := 1; i <= judges; i++ {
		t.Participants = append(t.Participants, models.Participant{
			UserID: fmt.Sprintf("j%d", i),
			Role:   models.RoleJudge,
		})
	}
	t.RecountCapacity()
	return t
}

// addTestTeam pairs two existing debaters into a team.
func addTestTeam(t *models.Tournament, id, leaderID, speakerID string) *models.Team {
	team := models.Team{
		ID:   id,
		Name: "Team " + id,
		Members: []models.TeamMember{
			{UserID: leaderID, Role: models.MemberLeader},
			{UserID: speakerID, Role: models.MemberSpeaker},
		},
	}
	t.Teams = append(t.Teams, team)
	setParticipantTeam(t, leaderID, id)
	setParticipantTeam(t, speakerID, id)
	return &t.Teams[len(t.Teams)-1]
}

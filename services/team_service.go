package services

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/Aksuiekbro/debetter-sub000/models"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TeamService pairs participants into two-role teams, either by explicit
// organizer choice or by random assignment.
type TeamService struct {
	Store *TournamentStore
}

func NewTeamService(store *TournamentStore) *TeamService {
	return &TeamService{Store: store}
}

// validateTeamMembers checks that both ids are eligible debaters and not
// already teamed elsewhere. excludeTeamID skips one team during the
// membership scan so updates can keep their own members.
func validateTeamMembers(t *models.Tournament, leaderID, speakerID, excludeTeamID string) error {
	if leaderID == "" || speakerID == "" {
		return ValidationError("both leader and speaker are required")
	}
	if leaderID == speakerID {
		return ValidationError("leader and speaker must be different participants")
	}

	for _, id := range []string{leaderID, speakerID} {
		p := t.FindParticipant(id)
		if p == nil {
			return ValidationError("user %s is not a participant in this tournament", id)
		}
		switch p.Role {
		case models.RoleJudge, models.RoleOrganizer, models.RoleObserver:
			return ValidationError("%ss cannot be assigned to debate teams", p.Role)
		}
	}

	for i := range t.Teams {
		team := &t.Teams[i]
		if team.ID == excludeTeamID {
			continue
		}
		if team.HasMember(leaderID) || team.HasMember(speakerID) {
			return ValidationError("one or both members are already assigned to another team")
		}
	}
	return nil
}

// applyCreateTeam appends a new team with zeroed stats.
func applyCreateTeam(t *models.Tournament, name, leaderID, speakerID string) (*models.Team, error) {
	if err := validateTeamMembers(t, leaderID, speakerID, ""); err != nil {
		return nil, err
	}
	team := models.Team{
		ID:   uuid.NewString(),
		Name: name,
		Members: []models.TeamMember{
			{UserID: leaderID, Role: models.MemberLeader},
			{UserID: speakerID, Role: models.MemberSpeaker},
		},
	}
	t.Teams = append(t.Teams, team)
	setParticipantTeam(t, leaderID, team.ID)
	setParticipantTeam(t, speakerID, team.ID)
	return &t.Teams[len(t.Teams)-1], nil
}

// applyUpdateTeam replaces membership and name, preserving the win/loss/point
// counters accumulated so far.
func applyUpdateTeam(t *models.Tournament, teamID, name, leaderID, speakerID string) (*models.Team, error) {
	team := t.FindTeam(teamID)
	if team == nil {
		return nil, NotFoundError("team %s not found in tournament", teamID)
	}
	if err := validateTeamMembers(t, leaderID, speakerID, teamID); err != nil {
		return nil, err
	}

	for _, m := range team.Members {
		setParticipantTeam(t, m.UserID, "")
	}
	team.Name = name
	team.Members = []models.TeamMember{
		{UserID: leaderID, Role: models.MemberLeader},
		{UserID: speakerID, Role: models.MemberSpeaker},
	}
	setParticipantTeam(t, leaderID, team.ID)
	setParticipantTeam(t, speakerID, team.ID)
	return team, nil
}

// applyRandomizeTeams discards every existing team, shuffles the eligible
// debaters and pairs them consecutively. An odd leftover debater stays
// unteamed; that is not an error.
func applyRandomizeTeams(t *models.Tournament, r *rand.Rand) error {
	var debaters []string
	for _, p := range t.Participants {
		if p.Role == models.RoleDebater {
			debaters = append(debaters, p.UserID)
		}
	}
	if len(debaters) < 2 {
		return ValidationError("not enough debaters to randomize teams")
	}

	r.Shuffle(len(debaters), func(i, j int) {
		debaters[i], debaters[j] = debaters[j], debaters[i]
	})

	for i := range t.Participants {
		t.Participants[i].TeamID = ""
	}
	t.Teams = nil
	for i := 0; i+1 < len(debaters); i += 2 {
		team := models.Team{
			ID:   uuid.NewString(),
			Name: fmt.Sprintf("Team %d", i/2+1),
			Members: []models.TeamMember{
				{UserID: debaters[i], Role: models.MemberLeader},
				{UserID: debaters[i+1], Role: models.MemberSpeaker},
			},
		}
		t.Teams = append(t.Teams, team)
		setParticipantTeam(t, debaters[i], team.ID)
		setParticipantTeam(t, debaters[i+1], team.ID)
	}
	return nil
}

func setParticipantTeam(t *models.Tournament, userID, teamID string) {
	if p := t.FindParticipant(userID); p != nil {
		p.TeamID = teamID
	}
}

type teamRequest struct {
	Name    string `json:"name"`
	Leader  string `json:"leader"`
	Speaker string `json:"speaker"`
}

func (s *TeamService) CreateTeam(c *fiber.Ctx) error {
	var req teamRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON", "details": err.Error()})
	}
	if req.Name == "" {
		return respondError(c, ValidationError("team name is required"))
	}

	var created models.Team
	_, err := s.Store.Update(c.Params("id"), func(tx *gorm.DB, t *models.Tournament) error {
		team, err := applyCreateTeam(t, req.Name, req.Leader, req.Speaker)
		if err != nil {
			return err
		}
		created = *team
		return nil
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(201).JSON(created)
}

func (s *TeamService) UpdateTeam(c *fiber.Ctx) error {
	var req teamRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON", "details": err.Error()})
	}

	var updated models.Team
	_, err := s.Store.Update(c.Params("id"), func(tx *gorm.DB, t *models.Tournament) error {
		team, err := applyUpdateTeam(t, c.Params("team_id"), req.Name, req.Leader, req.Speaker)
		if err != nil {
			return err
		}
		updated = *team
		return nil
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(updated)
}

// RandomizeTeams is destructive: it drops every existing team, so postings
// that reference old team ids are orphaned. Organizers run this before any
// bracket or postings exist.
func (s *TeamService) RandomizeTeams(c *fiber.Ctx) error {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	t, err := s.Store.Update(c.Params("id"), func(tx *gorm.DB, t *models.Tournament) error {
		if err := requireOrganizer(c, t); err != nil {
			return err
		}
		return applyRandomizeTeams(t, rng)
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(t.Teams)
}

func (s *TeamService) GetTeams(c *fiber.Ctx) error {
	t, err := s.Store.Get(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	if t.Teams == nil {
		return c.JSON([]models.Team{})
	}
	return c.JSON(t.Teams)
}

func (s *TeamService) DeleteTeam(c *fiber.Ctx) error {
	teamID := c.Params("team_id")
	_, err := s.Store.Update(c.Params("id"), func(tx *gorm.DB, t *models.Tournament) error {
		if err := requireOrganizer(c, t); err != nil {
			return err
		}
		for i := range t.Teams {
			if t.Teams[i].ID == teamID {
				for _, m := range t.Teams[i].Members {
					setParticipantTeam(t, m.UserID, "")
				}
				t.Teams = append(t.Teams[:i], t.Teams[i+1:]...)
				return nil
			}
		}
		return NotFoundError("team %s not found in tournament", teamID)
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true})
}

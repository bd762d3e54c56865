package services

import (
	"time"

	"github.com/Aksuiekbro/debetter-sub000/models"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// RegistrationService enforces the participant capacity ceilings and the
// registration window.
type RegistrationService struct {
	Store *TournamentStore
}

func NewRegistrationService(store *TournamentStore) *RegistrationService {
	return &RegistrationService{Store: store}
}

// registrationOpen checks the lifecycle state and deadline shared by every
// registration mutation.
func registrationOpen(t *models.Tournament, now time.Time) error {
	if t.Status != models.StatusUpcoming {
		return StateError("cannot join or leave a tournament that has already started or ended")
	}
	if t.RegistrationDeadline != nil && now.After(*t.RegistrationDeadline) {
		return StateError("registration deadline has passed")
	}
	return nil
}

// capacityFor returns the current count and ceiling for a role, or -1 limits
// when the role is uncapped (observers, organizers, admins).
func capacityFor(t *models.Tournament, role string) (current, max int) {
	switch role {
	case models.RoleDebater:
		return t.CountByRole(models.RoleDebater), t.MaxDebaters
	case models.RoleJudge:
		return t.CountByRole(models.RoleJudge), t.MaxJudges
	}
	return 0, -1
}

// applyJoin appends a participant, guarding duplicates and ceilings.
func applyJoin(t *models.Tournament, userID, role string, now time.Time) error {
	switch role {
	case models.RoleDebater, models.RoleJudge, models.RoleObserver, models.RoleOrganizer, models.RoleAdmin:
	default:
		return ValidationError("invalid tournament role %q", role)
	}
	if err := registrationOpen(t, now); err != nil {
		return err
	}
	if t.FindParticipant(userID) != nil {
		return ConflictError("user is already a participant in this tournament")
	}
	if current, max := capacityFor(t, role); max >= 0 && current >= max {
		return CapacityError("maximum %ss reached (%d)", role, max)
	}
	t.Participants = append(t.Participants, models.Participant{
		UserID:   userID,
		Role:     role,
		JoinedAt: now,
	})
	t.RecountCapacity()
	return nil
}

// applyLeave removes a participant and refreshes the counters.
func applyLeave(t *models.Tournament, userID string) error {
	for i := range t.Participants {
		if t.Participants[i].UserID == userID {
			t.Participants = append(t.Participants[:i], t.Participants[i+1:]...)
			t.RecountCapacity()
			return nil
		}
	}
	return NotFoundError("user is not a participant in this tournament")
}

// applyBulkRegister adds judges then debaters up to remaining capacity,
// silently skipping duplicates and overflow. Partial fulfilment is not an
// error; the caller gets the added counts.
func applyBulkRegister(t *models.Tournament, judgeIDs, debaterIDs []string, now time.Time) (judgesAdded, debatersAdded int) {
	judgeSlots := t.MaxJudges - t.CountByRole(models.RoleJudge)
	for _, id := range judgeIDs {
		if judgeSlots <= 0 {
			break
		}
		if id == "" || t.FindParticipant(id) != nil {
			continue
		}
		t.Participants = append(t.Participants, models.Participant{UserID: id, Role: models.RoleJudge, JoinedAt: now})
		judgesAdded++
		judgeSlots--
	}

	debaterSlots := t.MaxDebaters - t.CountByRole(models.RoleDebater)
	for _, id := range debaterIDs {
		if debaterSlots <= 0 {
			break
		}
		if id == "" || t.FindParticipant(id) != nil {
			continue
		}
		t.Participants = append(t.Participants, models.Participant{UserID: id, Role: models.RoleDebater, JoinedAt: now})
		debatersAdded++
		debaterSlots--
	}

	t.RecountCapacity()
	return judgesAdded, debatersAdded
}

func (s *RegistrationService) JoinTournament(c *fiber.Ctx) error {
	var req struct {
		Role string `json:"role"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON", "details": err.Error()})
	}
	if req.Role == "" {
		req.Role = models.RoleDebater
	}

	actorID := c.Locals("user_id").(string)
	t, err := s.Store.Update(c.Params("id"), func(tx *gorm.DB, t *models.Tournament) error {
		return applyJoin(t, actorID, req.Role, time.Now())
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"tournament_id":    t.ID,
		"current_debaters": t.CurrentDebaters,
		"current_judges":   t.CurrentJudges,
		"max_debaters":     t.MaxDebaters,
		"max_judges":       t.MaxJudges,
	})
}

func (s *RegistrationService) LeaveTournament(c *fiber.Ctx) error {
	actorID := c.Locals("user_id").(string)
	t, err := s.Store.Update(c.Params("id"), func(tx *gorm.DB, t *models.Tournament) error {
		if err := registrationOpen(t, time.Now()); err != nil {
			return err
		}
		return applyLeave(t, actorID)
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"tournament_id":    t.ID,
		"current_debaters": t.CurrentDebaters,
		"current_judges":   t.CurrentJudges,
	})
}

func (s *RegistrationService) BulkRegister(c *fiber.Ctx) error {
	var req struct {
		JudgeIDs   []string `json:"judge_ids"`
		DebaterIDs []string `json:"debater_ids"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON", "details": err.Error()})
	}

	var judgesAdded, debatersAdded int
	t, err := s.Store.Update(c.Params("id"), func(tx *gorm.DB, t *models.Tournament) error {
		if err := requireOrganizer(c, t); err != nil {
			return err
		}
		judgesAdded, debatersAdded = applyBulkRegister(t, req.JudgeIDs, req.DebaterIDs, time.Now())
		return nil
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"tournament_id":  t.ID,
		"judges_added":   judgesAdded,
		"debaters_added": debatersAdded,
		"total_judges":   t.CurrentJudges,
		"total_debaters": t.CurrentDebaters,
	})
}

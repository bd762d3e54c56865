package services

import (
	"path/filepath"
	"time"

	"github.com/Aksuiekbro/debetter-sub000/models"
	"github.com/Aksuiekbro/debetter-sub000/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

// TournamentService owns aggregate lifecycle: creation, listing, status
// transitions, themes and the map image upload proxy.
type TournamentService struct {
	DB    *gorm.DB
	Store *TournamentStore
}

func NewTournamentService(db *gorm.DB, store *TournamentStore) *TournamentService {
	return &TournamentService{DB: db, Store: store}
}

type createTournamentRequest struct {
	Name                 string   `json:"name"`
	Description          string   `json:"description"`
	StartDate            string   `json:"start_date"`
	RegistrationDeadline string   `json:"registration_deadline"`
	MaxDebaters          int      `json:"max_debaters"`
	MaxJudges            int      `json:"max_judges"`
	Themes               []string `json:"themes"`
}

func (s *TournamentService) CreateTournament(c *fiber.Ctx) error {
	var req createTournamentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON", "details": err.Error()})
	}
	if req.Name == "" || req.StartDate == "" {
		return respondError(c, ValidationError("name and start_date are required"))
	}

	startDate, err := time.Parse(time.RFC3339, req.StartDate)
	if err != nil {
		return respondError(c, ValidationError("invalid start_date (use RFC3339)"))
	}

	var deadline *time.Time
	if req.RegistrationDeadline != "" {
		d, err := time.Parse(time.RFC3339, req.RegistrationDeadline)
		if err != nil {
			return respondError(c, ValidationError("invalid registration_deadline (use RFC3339)"))
		}
		if !d.Before(startDate) {
			return respondError(c, ValidationError("registration deadline must be before tournament start"))
		}
		deadline = &d
	}

	maxDebaters := req.MaxDebaters
	if maxDebaters <= 0 {
		maxDebaters = 32
	}
	maxJudges := req.MaxJudges
	if maxJudges <= 0 {
		maxJudges = 8
	}

	actorID := c.Locals("user_id").(string)
	t := &models.Tournament{
		ID:                   uuid.NewString(),
		Name:                 req.Name,
		Slug:                 slug.Make(req.Name),
		Description:          req.Description,
		Status:               models.StatusUpcoming,
		StartDate:            startDate,
		RegistrationDeadline: deadline,
		MaxDebaters:          maxDebaters,
		MaxJudges:            maxJudges,
		CreatedBy:            actorID,
		Participants: []models.Participant{
			{UserID: actorID, Role: models.RoleOrganizer, JoinedAt: time.Now()},
		},
	}
	for _, text := range req.Themes {
		if text == "" {
			continue
		}
		t.Themes = append(t.Themes, models.Theme{ID: uuid.NewString(), Text: text})
	}

	if err := s.Store.Create(t); err != nil {
		return respondError(c, err)
	}
	return c.Status(201).JSON(t)
}

func (s *TournamentService) GetAllTournaments(c *fiber.Ctx) error {
	db := s.DB.Model(&models.Tournament{}).Order("start_date ASC")
	if status := c.Query("status"); status != "" {
		db = db.Where("status = ?", status)
	}

	var tournaments []models.Tournament
	if err := db.Find(&tournaments).Error; err != nil {
		return respondError(c, err)
	}
	return c.JSON(tournaments)
}

func (s *TournamentService) GetTournamentByID(c *fiber.Ctx) error {
	t, err := s.Store.Get(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(t)
}

// statusOrder gives the forward-only lifecycle ordering.
var statusOrder = map[string]int{
	models.StatusUpcoming:       0,
	models.StatusTeamAssignment: 1,
	models.StatusInProgress:     2,
	models.StatusCompleted:      3,
}

func (s *TournamentService) UpdateTournamentStatus(c *fiber.Ctx) error {
	var req struct {
		Status string `json:"status"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON", "details": err.Error()})
	}

	next, ok := statusOrder[req.Status]
	if !ok {
		return respondError(c, ValidationError("invalid status %q", req.Status))
	}

	t, err := s.Store.Update(c.Params("id"), func(tx *gorm.DB, t *models.Tournament) error {
		if err := requireOrganizer(c, t); err != nil {
			return err
		}
		if statusOrder[t.Status] > next {
			return StateError("cannot move tournament from %s back to %s", t.Status, req.Status)
		}
		t.Status = req.Status
		return nil
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"id": t.ID, "status": t.Status})
}

func (s *TournamentService) AddTheme(c *fiber.Ctx) error {
	var req struct {
		Text string `json:"text"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON", "details": err.Error()})
	}
	if req.Text == "" {
		return respondError(c, ValidationError("theme text is required"))
	}

	theme := models.Theme{ID: uuid.NewString(), Text: req.Text}
	_, err := s.Store.Update(c.Params("id"), func(tx *gorm.DB, t *models.Tournament) error {
		if err := requireOrganizer(c, t); err != nil {
			return err
		}
		t.Themes = append(t.Themes, theme)
		return nil
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(201).JSON(theme)
}

func (s *TournamentService) GetThemes(c *fiber.Ctx) error {
	t, err := s.Store.Get(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(t.Themes)
}

// UploadMapImage proxies a venue map upload to object storage and records the
// resulting URL on the aggregate.
func (s *TournamentService) UploadMapImage(c *fiber.Ctx) error {
	file, err := c.FormFile("map_image")
	if err != nil {
		return respondError(c, ValidationError("map_image file is required"))
	}

	ext := filepath.Ext(file.Filename)
	if ext == "" {
		ext = ".jpg"
	}
	key := "tournaments/maps/" + uuid.NewString() + ext
	url, err := utils.UploadAsset(file, key)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to upload map image"})
	}

	t, err := s.Store.Update(c.Params("id"), func(tx *gorm.DB, t *models.Tournament) error {
		if err := requireOrganizer(c, t); err != nil {
			return err
		}
		t.MapImageURL = url
		return nil
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"map_image_url": t.MapImageURL})
}

// requireOrganizer gates organizer-only mutations to the creator or a
// participant holding the Organizer/Admin tournament role.
func requireOrganizer(c *fiber.Ctx, t *models.Tournament) error {
	actorID, _ := c.Locals("user_id").(string)
	if actorID == t.CreatedBy {
		return nil
	}
	if p := t.FindParticipant(actorID); p != nil {
		if p.Role == models.RoleOrganizer || p.Role == models.RoleAdmin {
			return nil
		}
	}
	return ValidationError("only tournament organizers may perform this operation")
}

package services

import (
	"log"
	"path/filepath"
	"time"

	"github.com/Aksuiekbro/debetter-sub000/models"
	"github.com/Aksuiekbro/debetter-sub000/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PostingService schedules individual debate matches, fans out assignment
// notifications and keeps the posting lifecycle.
type PostingService struct {
	Store    *TournamentStore
	Notifier Notifier
}

func NewPostingService(store *TournamentStore, notifier Notifier) *PostingService {
	return &PostingService{Store: store, Notifier: notifier}
}

type postingRequest struct {
	Team1ID            string   `json:"team1_id"`
	Team2ID            string   `json:"team2_id"`
	Location           string   `json:"location"`
	VirtualLink        string   `json:"virtual_link"`
	Judges             []string `json:"judges"`
	Theme              string   `json:"theme"`
	Round              int      `json:"round"`
	MatchNumber        int      `json:"match_number"`
	ScheduledTime      string   `json:"scheduled_time"`
	BatchName          string   `json:"batch_name"`
	NotifyParticipants *bool    `json:"notify_participants"`
}

func (r *postingRequest) notify() bool {
	return r.NotifyParticipants == nil || *r.NotifyParticipants
}

// validatePostingData applies the scheduling rules: two distinct existing
// teams, a non-empty panel of Judge-role participants, a venue (physical or
// virtual) and a topic. A bracket link, when present, must address a real
// match.
func validatePostingData(t *models.Tournament, req *postingRequest) error {
	if req.Team1ID == "" || req.Team2ID == "" {
		return ValidationError("both teams are required")
	}
	if req.Team1ID == req.Team2ID {
		return ValidationError("teams cannot be the same")
	}
	if t.FindTeam(req.Team1ID) == nil || t.FindTeam(req.Team2ID) == nil {
		return ValidationError("one or both teams not found in this tournament")
	}
	if len(req.Judges) == 0 {
		return ValidationError("at least one judge is required")
	}
	for _, judgeID := range req.Judges {
		p := t.FindParticipant(judgeID)
		if p == nil || p.Role != models.RoleJudge {
			return ValidationError("user %s is not a judge in this tournament", judgeID)
		}
	}
	if req.Location == "" && req.VirtualLink == "" {
		return ValidationError("either a location or a virtual link is required")
	}
	if req.Theme == "" {
		return ValidationError("theme is required")
	}
	if (req.Round != 0) != (req.MatchNumber != 0) {
		return ValidationError("round and match_number must be supplied together")
	}
	if req.Round != 0 && t.FindMatch(req.Round, req.MatchNumber) == nil {
		return ValidationError("bracket match %d in round %d does not exist", req.MatchNumber, req.Round)
	}
	return nil
}

// applyCreatePosting validates and appends one posting with a fresh id.
func applyCreatePosting(t *models.Tournament, actorID string, req *postingRequest, now time.Time) (*models.Posting, error) {
	if err := validatePostingData(t, req); err != nil {
		return nil, err
	}

	var scheduled *time.Time
	if req.ScheduledTime != "" {
		st, err := time.Parse(time.RFC3339, req.ScheduledTime)
		if err != nil {
			return nil, ValidationError("invalid scheduled_time (use RFC3339)")
		}
		scheduled = &st
	}

	posting := models.Posting{
		ID:            uuid.NewString(),
		Team1ID:       req.Team1ID,
		Team2ID:       req.Team2ID,
		Location:      req.Location,
		VirtualLink:   req.VirtualLink,
		Judges:        req.Judges,
		Theme:         req.Theme,
		Status:        models.PostingScheduled,
		Round:         req.Round,
		MatchNumber:   req.MatchNumber,
		BatchName:     req.BatchName,
		ScheduledTime: scheduled,
		CreatedBy:     actorID,
		CreatedAt:     now,
	}
	t.Postings = append(t.Postings, posting)
	return &t.Postings[len(t.Postings)-1], nil
}

// stampNotified records a successful fan-out on the posting. Runs as its own
// small update after the notifications were queued.
func (s *PostingService) stampNotified(tournamentID, postingID string) {
	_, err := s.Store.Update(tournamentID, func(tx *gorm.DB, t *models.Tournament) error {
		p := t.FindPosting(postingID)
		if p == nil {
			return NotFoundError("posting %s not found", postingID)
		}
		now := time.Now()
		p.Notifications.JudgesNotified = true
		p.Notifications.SentAt = &now
		return nil
	})
	if err != nil {
		// The fan-out already happened; a lost stamp only affects bookkeeping.
		log.Printf("[POSTING] failed to stamp notifications on posting %s: %v", postingID, err)
	}
}

func (s *PostingService) CreatePosting(c *fiber.Ctx) error {
	var req postingRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON", "details": err.Error()})
	}

	actorID := c.Locals("user_id").(string)
	var created models.Posting
	t, err := s.Store.Update(c.Params("id"), func(tx *gorm.DB, t *models.Tournament) error {
		if err := requireOrganizer(c, t); err != nil {
			return err
		}
		p, err := applyCreatePosting(t, actorID, &req, time.Now())
		if err != nil {
			return err
		}
		created = *p
		return nil
	})
	if err != nil {
		return respondError(c, err)
	}

	var results NotificationResults
	if req.notify() {
		results = notifyPostingParticipants(s.Notifier, t, &created, models.NotificationAssignment)
		if results.JudgesNotified > 0 {
			s.stampNotified(t.ID, created.ID)
		}
	}
	return c.Status(201).JSON(fiber.Map{"posting": created, "notifications": results})
}

type batchPostingRequest struct {
	BatchName string           `json:"batch_name"`
	Postings  []postingRequest `json:"postings"`
}

type batchItemError struct {
	Index   int    `json:"index"`
	Message string `json:"message"`
}

// CreateBatchPostings validates and creates each item independently. One bad
// item never aborts the rest; the caller gets both lists and can tell a
// fully-failed batch (400) from a partial one (201).
func (s *PostingService) CreateBatchPostings(c *fiber.Ctx) error {
	var req batchPostingRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON", "details": err.Error()})
	}
	if len(req.Postings) == 0 {
		return respondError(c, ValidationError("no postings provided for batch creation"))
	}

	actorID := c.Locals("user_id").(string)
	var created []models.Posting
	var createdFrom []int
	var itemErrors []batchItemError

	t, err := s.Store.Update(c.Params("id"), func(tx *gorm.DB, t *models.Tournament) error {
		if err := requireOrganizer(c, t); err != nil {
			return err
		}
		created = created[:0]
		createdFrom = createdFrom[:0]
		itemErrors = itemErrors[:0]
		for i := range req.Postings {
			item := req.Postings[i]
			if item.BatchName == "" {
				item.BatchName = req.BatchName
			}
			p, err := applyCreatePosting(t, actorID, &item, time.Now())
			if err != nil {
				itemErrors = append(itemErrors, batchItemError{Index: i, Message: err.Error()})
				continue
			}
			created = append(created, *p)
			createdFrom = append(createdFrom, i)
		}
		return nil
	})
	if err != nil {
		return respondError(c, err)
	}

	for i := range created {
		if req.Postings[createdFrom[i]].notify() {
			results := notifyPostingParticipants(s.Notifier, t, &created[i], models.NotificationAssignment)
			if results.JudgesNotified > 0 {
				s.stampNotified(t.ID, created[i].ID)
			}
		}
	}

	status := fiber.StatusCreated
	if len(created) == 0 {
		status = fiber.StatusBadRequest
	}
	return c.Status(status).JSON(fiber.Map{
		"results": created,
		"errors":  itemErrors,
	})
}

func (s *PostingService) GetPostings(c *fiber.Ctx) error {
	t, err := s.Store.Get(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}

	statusFilter := c.Query("status")
	batchFilter := c.Query("batch_name")
	postings := make([]models.Posting, 0, len(t.Postings))
	for _, p := range t.Postings {
		if statusFilter != "" && p.Status != statusFilter {
			continue
		}
		if batchFilter != "" && p.BatchName != batchFilter {
			continue
		}
		postings = append(postings, p)
	}
	return c.JSON(postings)
}

func (s *PostingService) GetPostingByID(c *fiber.Ctx) error {
	t, err := s.Store.Get(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	p := t.FindPosting(c.Params("posting_id"))
	if p == nil {
		return respondError(c, NotFoundError("posting %s not found", c.Params("posting_id")))
	}
	return c.JSON(p)
}

func (s *PostingService) UpdatePostingStatus(c *fiber.Ctx) error {
	var req struct {
		Status string `json:"status"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON", "details": err.Error()})
	}

	postingID := c.Params("posting_id")
	var updated models.Posting
	_, err := s.Store.Update(c.Params("id"), func(tx *gorm.DB, t *models.Tournament) error {
		if err := requireOrganizer(c, t); err != nil {
			return err
		}
		p := t.FindPosting(postingID)
		if p == nil {
			return NotFoundError("posting %s not found", postingID)
		}
		if err := applyPostingStatus(p, req.Status, time.Now()); err != nil {
			return err
		}
		updated = *p
		return nil
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"status": updated.Status, "completed_at": updated.CompletedAt})
}

// applyPostingStatus validates the enum and stamps completion time once.
func applyPostingStatus(p *models.Posting, status string, now time.Time) error {
	switch status {
	case models.PostingScheduled, models.PostingInProgress, models.PostingCompleted, models.PostingCancelled:
	default:
		return ValidationError("invalid status %q", status)
	}
	p.Status = status
	if status == models.PostingCompleted && p.CompletedAt == nil {
		p.CompletedAt = &now
	}
	return nil
}

type updatePostingRequest struct {
	Location      *string   `json:"location"`
	VirtualLink   *string   `json:"virtual_link"`
	ScheduledTime *string   `json:"scheduled_time"`
	Theme         *string   `json:"theme"`
	Status        *string   `json:"status"`
	Judges        *[]string `json:"judges"`
}

func (s *PostingService) UpdatePostingDetails(c *fiber.Ctx) error {
	var req updatePostingRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON", "details": err.Error()})
	}

	postingID := c.Params("posting_id")
	var updated models.Posting
	_, err := s.Store.Update(c.Params("id"), func(tx *gorm.DB, t *models.Tournament) error {
		if err := requireOrganizer(c, t); err != nil {
			return err
		}
		p := t.FindPosting(postingID)
		if p == nil {
			return NotFoundError("posting %s not found", postingID)
		}
		if req.Location != nil {
			p.Location = *req.Location
		}
		if req.VirtualLink != nil {
			p.VirtualLink = *req.VirtualLink
		}
		if req.Theme != nil {
			if *req.Theme == "" {
				return ValidationError("theme cannot be empty")
			}
			p.Theme = *req.Theme
		}
		if req.ScheduledTime != nil {
			if *req.ScheduledTime == "" {
				p.ScheduledTime = nil
			} else {
				st, err := time.Parse(time.RFC3339, *req.ScheduledTime)
				if err != nil {
					return ValidationError("invalid scheduled_time (use RFC3339)")
				}
				p.ScheduledTime = &st
			}
		}
		if req.Judges != nil {
			if len(*req.Judges) == 0 {
				return ValidationError("at least one judge is required")
			}
			for _, judgeID := range *req.Judges {
				participant := t.FindParticipant(judgeID)
				if participant == nil || participant.Role != models.RoleJudge {
					return ValidationError("user %s is not a judge in this tournament", judgeID)
				}
			}
			p.Judges = *req.Judges
		}
		if req.Status != nil {
			if err := applyPostingStatus(p, *req.Status, time.Now()); err != nil {
				return err
			}
		}
		updated = *p
		return nil
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(updated)
}

func (s *PostingService) DeletePosting(c *fiber.Ctx) error {
	postingID := c.Params("posting_id")
	_, err := s.Store.Update(c.Params("id"), func(tx *gorm.DB, t *models.Tournament) error {
		if err := requireOrganizer(c, t); err != nil {
			return err
		}
		for i := range t.Postings {
			if t.Postings[i].ID == postingID {
				t.Postings = append(t.Postings[:i], t.Postings[i+1:]...)
				return nil
			}
		}
		return NotFoundError("posting %s not found", postingID)
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true})
}

// SendReminders re-sends assignment notifications for an existing posting and
// appends a reminder audit entry. Posting status is untouched.
func (s *PostingService) SendReminders(c *fiber.Ctx) error {
	postingID := c.Params("posting_id")
	actorID := c.Locals("user_id").(string)

	t, err := s.Store.Get(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	if err := requireOrganizer(c, t); err != nil {
		return respondError(c, err)
	}
	posting := t.FindPosting(postingID)
	if posting == nil {
		return respondError(c, NotFoundError("posting %s not found", postingID))
	}

	results := notifyPostingParticipants(s.Notifier, t, posting, models.NotificationReminder)

	_, err = s.Store.Update(t.ID, func(tx *gorm.DB, t *models.Tournament) error {
		p := t.FindPosting(postingID)
		if p == nil {
			return NotFoundError("posting %s not found", postingID)
		}
		p.Reminders = append(p.Reminders, models.ReminderEntry{SentAt: time.Now(), SentBy: actorID})
		return nil
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(results)
}

// requireOrganizerOrPanelJudge allows tournament organizers and the judges
// assigned to this posting.
func requireOrganizerOrPanelJudge(c *fiber.Ctx, t *models.Tournament, p *models.Posting) error {
	if err := requireOrganizer(c, t); err == nil {
		return nil
	}
	actorID, _ := c.Locals("user_id").(string)
	for _, judgeID := range p.Judges {
		if judgeID == actorID {
			return nil
		}
	}
	return ValidationError("only organizers or the assigned judges may upload a ballot")
}

// UploadBallotImage proxies a ballot photo upload to object storage and
// records the URL on the posting.
func (s *PostingService) UploadBallotImage(c *fiber.Ctx) error {
	file, err := c.FormFile("ballot_image")
	if err != nil {
		return respondError(c, ValidationError("ballot_image file is required"))
	}

	postingID := c.Params("posting_id")
	t, err := s.Store.Get(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	posting := t.FindPosting(postingID)
	if posting == nil {
		return respondError(c, NotFoundError("posting %s not found", postingID))
	}
	if err := requireOrganizerOrPanelJudge(c, t, posting); err != nil {
		return respondError(c, err)
	}

	ext := filepath.Ext(file.Filename)
	if ext == "" {
		ext = ".jpg"
	}
	key := "tournaments/ballots/" + uuid.NewString() + ext
	url, err := utils.UploadAsset(file, key)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to upload ballot image"})
	}

	_, err = s.Store.Update(c.Params("id"), func(tx *gorm.DB, t *models.Tournament) error {
		p := t.FindPosting(postingID)
		if p == nil {
			return NotFoundError("posting %s not found", postingID)
		}
		p.BallotImageURL = url
		return nil
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"ballot_image_url": url})
}

package services

import (
	"errors"
	"log"
	"sort"
	"time"

	"github.com/Aksuiekbro/debetter-sub000/models"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EvaluationService accepts judge ballots and derives standings and
// tabulation from the accumulated team counters and evaluation rows.
type EvaluationService struct {
	DB    *gorm.DB
	Store *TournamentStore
}

func NewEvaluationService(db *gorm.DB, store *TournamentStore) *EvaluationService {
	return &EvaluationService{DB: db, Store: store}
}

type evaluationRequest struct {
	Scores      models.SpeakerScores `json:"scores"`
	WinningTeam string               `json:"winning_team"`
	Notes       string               `json:"notes"`
}

// applyEvaluationResult updates team counters and the posting once a ballot
// decides the match. Government (team1) carries its own speaker total into the
// winner's points; the losing team gets one participation point.
func applyEvaluationResult(t *models.Tournament, p *models.Posting, eval *models.Evaluation, now time.Time) error {
	winner := t.FindTeam(eval.WinningTeam)
	if winner == nil {
		return ValidationError("winning team %s not found in this tournament", eval.WinningTeam)
	}
	loserID := p.Team1ID
	if eval.WinningTeam == p.Team1ID {
		loserID = p.Team2ID
	}
	loser := t.FindTeam(loserID)

	winner.Wins++
	if eval.WinningTeam == p.Team1ID {
		winner.Points += eval.Scores.GovernmentTotal()
	} else {
		winner.Points += eval.Scores.OppositionTotal()
	}
	if loser != nil {
		loser.Losses++
		loser.Points++
	}

	p.Status = models.PostingCompleted
	p.WinnerID = eval.WinningTeam
	if p.CompletedAt == nil {
		p.CompletedAt = &now
	}
	return nil
}

// SubmitEvaluation records one judge's ballot for a posting. The ballot, the
// posting result, the team counters and any bracket advancement commit
// together; a duplicate ballot from the same judge is a conflict.
func (s *EvaluationService) SubmitEvaluation(c *fiber.Ctx) error {
	var req evaluationRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON", "details": err.Error()})
	}
	if req.WinningTeam == "" {
		return respondError(c, ValidationError("winning_team is required"))
	}

	postingID := c.Params("posting_id")
	judgeID := c.Locals("user_id").(string)
	eval := models.Evaluation{
		ID:          uuid.NewString(),
		PostingID:   postingID,
		JudgeID:     judgeID,
		Scores:      req.Scores,
		WinningTeam: req.WinningTeam,
		Notes:       req.Notes,
	}
	eval.Scores.FillTotals()

	_, err := s.Store.Update(c.Params("id"), func(tx *gorm.DB, t *models.Tournament) error {
		p := t.FindPosting(postingID)
		if p == nil {
			return NotFoundError("posting %s not found", postingID)
		}
		if p.Status == models.PostingCancelled {
			return StateError("posting %s is cancelled", p.ID)
		}
		assigned := false
		for _, j := range p.Judges {
			if j == judgeID {
				assigned = true
				break
			}
		}
		if !assigned {
			return ValidationError("judge %s is not assigned to this posting", judgeID)
		}
		if req.WinningTeam != p.Team1ID && req.WinningTeam != p.Team2ID {
			return ValidationError("winning team must be one of the posting's teams")
		}

		var existing int64
		if err := tx.Model(&models.Evaluation{}).
			Where("posting_id = ? AND judge_id = ?", postingID, judgeID).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return ConflictError("judge %s has already evaluated posting %s", judgeID, postingID)
		}

		eval.TournamentID = t.ID
		if err := tx.Create(&eval).Error; err != nil {
			return err
		}

		if err := applyEvaluationResult(t, p, &eval, time.Now()); err != nil {
			return err
		}

		// A bracket-linked posting also moves the winner forward. Advancement
		// problems (e.g. the slot was corrected meanwhile) do not invalidate
		// the ballot itself.
		if p.Round > 0 && p.MatchNumber > 0 {
			if err := advanceWinner(t, p.Round, p.MatchNumber, eval.WinningTeam, false); err != nil {
				log.Printf("[EVALUATION] bracket advance skipped for posting %s (round %d match %d): %v",
					p.ID, p.Round, p.MatchNumber, err)
			}
		}
		return nil
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(201).JSON(eval)
}

func (s *EvaluationService) GetEvaluationByID(c *fiber.Ctx) error {
	var eval models.Evaluation
	err := s.DB.Where("id = ? AND tournament_id = ?", c.Params("evaluation_id"), c.Params("id")).
		First(&eval).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return respondError(c, NotFoundError("evaluation %s not found", c.Params("evaluation_id")))
		}
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch evaluation"})
	}
	return c.JSON(eval)
}

func (s *EvaluationService) GetEvaluations(c *fiber.Ctx) error {
	var evals []models.Evaluation
	q := s.DB.Where("tournament_id = ?", c.Params("id"))
	if postingID := c.Query("posting_id"); postingID != "" {
		q = q.Where("posting_id = ?", postingID)
	}
	if err := q.Order("submitted_at DESC").Find(&evals).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch evaluations"})
	}
	return c.JSON(evals)
}

// StandingRow is one debater's aggregate across completed postings.
type StandingRow struct {
	UserID        string  `json:"user_id"`
	TeamID        string  `json:"team_id"`
	TotalPoints   float64 `json:"total_points"`
	GamesPlayed   int     `json:"games_played"`
	AveragePoints float64 `json:"average_points"`
	Rank          int     `json:"rank"`
}

// speakerRoleKey resolves which of the four ballot score blocks applies to a
// team member on a posting. Team1 argues government, team2 opposition.
func speakerRoleKey(p *models.Posting, team *models.Team, userID string) string {
	member := (*models.TeamMember)(nil)
	for i := range team.Members {
		if team.Members[i].UserID == userID {
			member = &team.Members[i]
		}
	}
	if member == nil {
		return ""
	}
	gov := team.ID == p.Team1ID
	if member.Role == models.MemberLeader {
		if gov {
			return models.SpeakerLeaderGov
		}
		return models.SpeakerLeaderOpp
	}
	if gov {
		return models.SpeakerSpeakerGov
	}
	return models.SpeakerSpeakerOpp
}

// computeStandings aggregates per-debater speaker points from evaluation rows
// over completed postings into ranked rows. Equal (total, average) pairs share
// a rank; the next distinct pair takes the rank its index implies.
func computeStandings(t *models.Tournament, evals []models.Evaluation) []StandingRow {
	totals := map[string]*StandingRow{}

	for i := range evals {
		p := t.FindPosting(evals[i].PostingID)
		if p == nil || p.Status != models.PostingCompleted {
			continue
		}
		for _, teamID := range []string{p.Team1ID, p.Team2ID} {
			team := t.FindTeam(teamID)
			if team == nil {
				continue
			}
			for _, m := range team.Members {
				key := speakerRoleKey(p, team, m.UserID)
				if key == "" {
					continue
				}
				score := evals[i].Scores.ForRole(key)
				row, ok := totals[m.UserID]
				if !ok {
					row = &StandingRow{UserID: m.UserID, TeamID: teamID}
					totals[m.UserID] = row
				}
				row.TotalPoints += score.TotalPoints
				row.GamesPlayed++
			}
		}
	}

	rows := make([]StandingRow, 0, len(totals))
	for _, row := range totals {
		if row.GamesPlayed > 0 {
			row.AveragePoints = row.TotalPoints / float64(row.GamesPlayed)
		}
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].TotalPoints != rows[j].TotalPoints {
			return rows[i].TotalPoints > rows[j].TotalPoints
		}
		if rows[i].AveragePoints != rows[j].AveragePoints {
			return rows[i].AveragePoints > rows[j].AveragePoints
		}
		return rows[i].UserID < rows[j].UserID
	})
	for i := range rows {
		if i > 0 && rows[i].TotalPoints == rows[i-1].TotalPoints && rows[i].AveragePoints == rows[i-1].AveragePoints {
			rows[i].Rank = rows[i-1].Rank
			continue
		}
		rows[i].Rank = i + 1
	}
	return rows
}

func (s *EvaluationService) GetStandings(c *fiber.Ctx) error {
	t, err := s.Store.Get(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	var evals []models.Evaluation
	if err := s.DB.Where("tournament_id = ?", t.ID).Find(&evals).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch evaluations"})
	}
	return c.JSON(computeStandings(t, evals))
}

// TabulationRow is one team's win/point line in the bracket table.
type TabulationRow struct {
	TeamID   string  `json:"team_id"`
	TeamName string  `json:"team_name"`
	Wins     int     `json:"wins"`
	Losses   int     `json:"losses"`
	Points   float64 `json:"points"`
	Rank     int     `json:"rank"`
}

// computeTabulation orders teams by wins, then points.
func computeTabulation(t *models.Tournament) []TabulationRow {
	rows := make([]TabulationRow, 0, len(t.Teams))
	for _, team := range t.Teams {
		rows = append(rows, TabulationRow{
			TeamID:   team.ID,
			TeamName: team.Name,
			Wins:     team.Wins,
			Losses:   team.Losses,
			Points:   team.Points,
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Wins != rows[j].Wins {
			return rows[i].Wins > rows[j].Wins
		}
		if rows[i].Points != rows[j].Points {
			return rows[i].Points > rows[j].Points
		}
		return rows[i].TeamName < rows[j].TeamName
	})
	for i := range rows {
		rows[i].Rank = i + 1
	}
	return rows
}

func (s *EvaluationService) GetTabulation(c *fiber.Ctx) error {
	t, err := s.Store.Get(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(computeTabulation(t))
}

// GetDebaterFeedback returns the requesting debater's own score block and
// judge feedback for one completed posting they spoke in.
func (s *EvaluationService) GetDebaterFeedback(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	t, err := s.Store.Get(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}

	postingID := c.Params("posting_id")
	p := t.FindPosting(postingID)
	if p == nil {
		return respondError(c, NotFoundError("posting %s not found", postingID))
	}
	if p.Status != models.PostingCompleted {
		return respondError(c, StateError("posting %s is not completed yet", postingID))
	}

	var key string
	for _, teamID := range []string{p.Team1ID, p.Team2ID} {
		team := t.FindTeam(teamID)
		if team != nil && team.HasMember(userID) {
			key = speakerRoleKey(p, team, userID)
			break
		}
	}
	if key == "" {
		return respondError(c, ValidationError("user %s did not speak in this posting", userID))
	}

	var evals []models.Evaluation
	if err := s.DB.Where("posting_id = ?", postingID).Order("submitted_at ASC").Find(&evals).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch evaluations"})
	}

	type feedbackEntry struct {
		JudgeID string              `json:"judge_id"`
		Role    string              `json:"role"`
		Score   models.SpeakerScore `json:"score"`
	}
	feedback := []feedbackEntry{}
	for i := range evals {
		feedback = append(feedback, feedbackEntry{
			JudgeID: evals[i].JudgeID,
			Role:    key,
			Score:   *evals[i].Scores.ForRole(key),
		})
	}
	return c.JSON(fiber.Map{"posting_id": postingID, "theme": p.Theme, "feedback": feedback})
}

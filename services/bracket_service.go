package services

import (
	"log"
	"math"
	"math/rand"
	"strconv"
	"time"

	"github.com/Aksuiekbro/debetter-sub000/models"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// BracketService builds the single-elimination round structure and advances
// winners through it.
type BracketService struct {
	Store *TournamentStore
}

func NewBracketService(store *TournamentStore) *BracketService {
	return &BracketService{Store: store}
}

// bracketSize rounds n up to the next power of two.
func bracketSize(n int) int {
	if n <= 1 {
		return 1
	}
	return 1 << int(math.Ceil(math.Log2(float64(n))))
}

// buildRounds pre-allocates the full bracket for the given ordered entrants.
// Round 1 pairs entrants[2i] and entrants[2i+1]; unfilled slots stay empty.
// Later rounds are created with empty slots and filled by advancement.
func buildRounds(entrantIDs []string) []models.Round {
	size := bracketSize(len(entrantIDs))
	numRounds := int(math.Log2(float64(size)))

	rounds := make([]models.Round, 0, numRounds)
	firstRound := models.Round{RoundNumber: 1}
	for i := 0; i < size; i += 2 {
		m := models.Match{Round: 1, MatchNumber: i/2 + 1}
		if i < len(entrantIDs) {
			m.Team1ID = entrantIDs[i]
		}
		if i+1 < len(entrantIDs) {
			m.Team2ID = entrantIDs[i+1]
		}
		firstRound.Matches = append(firstRound.Matches, m)
	}
	rounds = append(rounds, firstRound)

	for r := 2; r <= numRounds; r++ {
		round := models.Round{RoundNumber: r}
		for m := 1; m <= size>>r; m++ {
			round.Matches = append(round.Matches, models.Match{Round: r, MatchNumber: m})
		}
		rounds = append(rounds, round)
	}
	return rounds
}

// applyGenerateBracket replaces any existing bracket with a fresh one built
// from the tournament's teams in random order, then auto-advances byes.
func applyGenerateBracket(t *models.Tournament, r *rand.Rand, targetStatus string) error {
	if len(t.Teams) < 2 {
		return ValidationError("at least two teams are required to generate a bracket")
	}

	entrants := make([]string, len(t.Teams))
	for i := range t.Teams {
		entrants[i] = t.Teams[i].ID
	}
	r.Shuffle(len(entrants), func(i, j int) {
		entrants[i], entrants[j] = entrants[j], entrants[i]
	})

	t.Rounds = buildRounds(entrants)
	t.WinnerTeamID = ""

	// A round-1 match with exactly one filled slot is a bye: completed
	// immediately, winner moved up.
	for i := range t.Rounds[0].Matches {
		m := &t.Rounds[0].Matches[i]
		if m.Team1ID != "" && m.Team2ID == "" {
			if err := advanceWinner(t, 1, m.MatchNumber, m.Team1ID, false); err != nil {
				return err
			}
		} else if m.Team1ID == "" && m.Team2ID != "" {
			if err := advanceWinner(t, 1, m.MatchNumber, m.Team2ID, false); err != nil {
				return err
			}
		}
	}

	t.Status = targetStatus
	return nil
}

// advanceWinner records a match result and places the winner into the right
// slot of the next round: match ⌈n/2⌉, slot 1 when n is odd. The final
// round's single match completes the tournament instead. Re-submitting the
// same winner is a no-op; a different winner needs the correction flag.
func advanceWinner(t *models.Tournament, round, matchNumber int, winnerID string, correction bool) error {
	if len(t.Rounds) == 0 {
		return StateError("tournament bracket not initialized")
	}
	m := t.FindMatch(round, matchNumber)
	if m == nil {
		return NotFoundError("match %d in round %d not found", matchNumber, round)
	}
	if winnerID == "" || (winnerID != m.Team1ID && winnerID != m.Team2ID) {
		return ValidationError("winner %s is not part of match %d in round %d", winnerID, matchNumber, round)
	}
	if m.Completed {
		if m.WinnerID == winnerID {
			return nil
		}
		if !correction {
			return ConflictError("match %d in round %d already has winner %s; resubmit with correction to overwrite", matchNumber, round, m.WinnerID)
		}
		log.Printf("[BRACKET] correcting round %d match %d of tournament %s: winner %s -> %s",
			round, matchNumber, t.ID, m.WinnerID, winnerID)
	}

	m.WinnerID = winnerID
	m.Completed = true

	if round == len(t.Rounds) {
		t.WinnerTeamID = winnerID
		t.Status = models.StatusCompleted
		return nil
	}

	next := t.FindMatch(round+1, (matchNumber+1)/2)
	if next == nil {
		return StateError("bracket is malformed: round %d match %d has no successor", round, matchNumber)
	}
	if matchNumber%2 == 1 {
		next.Team1ID = winnerID
	} else {
		next.Team2ID = winnerID
	}
	return nil
}

func (s *BracketService) GenerateBracket(c *fiber.Ctx) error {
	var req struct {
		Status string `json:"status"`
	}
	if err := c.BodyParser(&req); err != nil && len(c.Body()) > 0 {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON", "details": err.Error()})
	}
	targetStatus := models.StatusInProgress
	if req.Status == models.StatusTeamAssignment {
		targetStatus = models.StatusTeamAssignment
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	t, err := s.Store.Update(c.Params("id"), func(tx *gorm.DB, t *models.Tournament) error {
		if err := requireOrganizer(c, t); err != nil {
			return err
		}
		return applyGenerateBracket(t, rng, targetStatus)
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"rounds": t.Rounds, "status": t.Status})
}

func (s *BracketService) GetBracket(c *fiber.Ctx) error {
	t, err := s.Store.Get(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"rounds":         t.Rounds,
		"winner_team_id": t.WinnerTeamID,
		"status":         t.Status,
	})
}

func (s *BracketService) RecordMatchResult(c *fiber.Ctx) error {
	round, err := strconv.Atoi(c.Params("round"))
	if err != nil {
		return respondError(c, ValidationError("round must be a number"))
	}
	matchNumber, err := strconv.Atoi(c.Params("match_number"))
	if err != nil {
		return respondError(c, ValidationError("match number must be a number"))
	}

	var req struct {
		WinnerID   string `json:"winner_id"`
		Correction bool   `json:"correction"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON", "details": err.Error()})
	}

	t, err := s.Store.Update(c.Params("id"), func(tx *gorm.DB, t *models.Tournament) error {
		if err := requireOrganizer(c, t); err != nil {
			return err
		}
		return advanceWinner(t, round, matchNumber, req.WinnerID, req.Correction)
	})
	if err != nil {
		return respondError(c, err)
	}

	resp := fiber.Map{
		"round":        round,
		"match_number": matchNumber,
		"winner_id":    req.WinnerID,
		"status":       t.Status,
	}
	if t.Status == models.StatusCompleted {
		resp["tournament_winner"] = t.WinnerTeamID
	}
	return c.JSON(resp)
}

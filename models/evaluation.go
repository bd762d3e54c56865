package models

import (
	"time"
)

// Speaker score keys for the four APF roles.
const (
	SpeakerLeaderGov  = "leader_gov"
	SpeakerLeaderOpp  = "leader_opp"
	SpeakerSpeakerGov = "speaker_gov"
	SpeakerSpeakerOpp = "speaker_opp"
)

// SpeakerScore is one judge's scoring of a single speaker: per-criterion
// ratings, free-text feedback and a 0-100 total. The total is derived from
// the criteria when the judge does not supply it.
type SpeakerScore struct {
	CriteriaRatings map[string]float64 `json:"criteria_ratings,omitempty"`
	Feedback        string             `json:"feedback,omitempty"`
	TotalPoints     float64            `json:"total_points"`
}

// SpeakerScores maps the four role keys to their scores.
type SpeakerScores struct {
	LeaderGov  SpeakerScore `json:"leader_gov"`
	LeaderOpp  SpeakerScore `json:"leader_opp"`
	SpeakerGov SpeakerScore `json:"speaker_gov"`
	SpeakerOpp SpeakerScore `json:"speaker_opp"`
}

// Evaluation is one judge's completed ballot for one posting. It is written
// once and never updated. The (posting_id, judge_id) unique index is what
// enforces at-most-one-evaluation-per-judge-per-posting.
type Evaluation struct {
	ID           string        `json:"id" gorm:"primaryKey"`
	TournamentID string        `json:"tournament_id" gorm:"not null;index"`
	PostingID    string        `json:"posting_id" gorm:"not null;uniqueIndex:idx_posting_judge"`
	JudgeID      string        `json:"judge_id" gorm:"not null;uniqueIndex:idx_posting_judge"`
	Scores       SpeakerScores `json:"scores" gorm:"serializer:json"`
	WinningTeam  string        `json:"winning_team" gorm:"not null"`
	Notes        string        `json:"notes,omitempty"`
	SubmittedAt  time.Time     `json:"submitted_at" gorm:"autoCreateTime"`
}

// ForRole returns the score block for one of the four role keys.
func (s *SpeakerScores) ForRole(key string) *SpeakerScore {
	switch key {
	case SpeakerLeaderGov:
		return &s.LeaderGov
	case SpeakerLeaderOpp:
		return &s.LeaderOpp
	case SpeakerSpeakerGov:
		return &s.SpeakerGov
	case SpeakerSpeakerOpp:
		return &s.SpeakerOpp
	}
	return nil
}

// FillTotals derives missing totals by summing criteria ratings.
func (s *SpeakerScores) FillTotals() {
	for _, key := range []string{SpeakerLeaderGov, SpeakerLeaderOpp, SpeakerSpeakerGov, SpeakerSpeakerOpp} {
		score := s.ForRole(key)
		if score.TotalPoints != 0 || len(score.CriteriaRatings) == 0 {
			continue
		}
		total := 0.0
		for _, v := range score.CriteriaRatings {
			total += v
		}
		score.TotalPoints = total
	}
}

// GovernmentTotal is the combined leader+speaker score of the government
// (team1) side; OppositionTotal the same for team2.
func (s *SpeakerScores) GovernmentTotal() float64 {
	return s.LeaderGov.TotalPoints + s.SpeakerGov.TotalPoints
}

func (s *SpeakerScores) OppositionTotal() float64 {
	return s.LeaderOpp.TotalPoints + s.SpeakerOpp.TotalPoints
}

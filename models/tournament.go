package models

import (
	"time"
)

// Tournament lifecycle states.
const (
	StatusUpcoming       = "upcoming"
	StatusTeamAssignment = "team-assignment"
	StatusInProgress     = "in-progress"
	StatusCompleted      = "completed"
)

// Tournament-scoped participant roles.
const (
	RoleDebater   = "Debater"
	RoleJudge     = "Judge"
	RoleObserver  = "Observer"
	RoleOrganizer = "Organizer"
	RoleAdmin     = "Admin"
)

// Tournament is the aggregate root. Participants, teams, the bracket and
// postings live inside the row as JSON documents: every operation reads the
// aggregate whole, mutates it in memory and writes it back whole. Version
// guards those writes (see services.TournamentStore).
type Tournament struct {
	ID                   string     `json:"id" gorm:"primaryKey"`
	Name                 string     `json:"name" gorm:"not null"`
	Slug                 string     `json:"slug" gorm:"index"`
	Description          string     `json:"description"`
	Status               string     `json:"status" gorm:"default:'upcoming';index"`
	StartDate            time.Time  `json:"start_date"`
	RegistrationDeadline *time.Time `json:"registration_deadline,omitempty"`

	MaxDebaters     int `json:"max_debaters" gorm:"default:32"`
	MaxJudges       int `json:"max_judges" gorm:"default:8"`
	CurrentDebaters int `json:"current_debaters" gorm:"default:0"`
	CurrentJudges   int `json:"current_judges" gorm:"default:0"`

	Participants []Participant `json:"participants" gorm:"serializer:json"`
	Teams        []Team        `json:"teams" gorm:"serializer:json"`
	Rounds       []Round       `json:"rounds" gorm:"serializer:json"`
	Postings     []Posting     `json:"postings" gorm:"serializer:json"`
	Themes       []Theme       `json:"themes" gorm:"serializer:json"`

	WinnerTeamID string `json:"winner_team_id,omitempty"`
	MapImageURL  string `json:"map_image_url,omitempty"`
	CreatedBy    string `json:"created_by" gorm:"index"`

	// Bumped on every successful write; stale writers lose.
	Version int64 `json:"version" gorm:"default:0"`

	Timestamps
}

type Timestamps struct {
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// Participant ties a user id to a tournament-scoped role. A user appears at
// most once per tournament.
type Participant struct {
	UserID   string    `json:"user_id"`
	Role     string    `json:"role"`
	TeamID   string    `json:"team_id,omitempty"`
	JoinedAt time.Time `json:"joined_at"`
}

// Team member roles within a two-person APF team.
const (
	MemberLeader  = "leader"
	MemberSpeaker = "speaker"
)

type TeamMember struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"` // leader or speaker
}

// Team holds exactly two members (leader + speaker) and the accumulated
// win/loss/point counters maintained by evaluation submission.
type Team struct {
	ID      string       `json:"id"`
	Name    string       `json:"name"`
	Members []TeamMember `json:"members"`
	Wins    int          `json:"wins"`
	Losses  int          `json:"losses"`
	Points  float64      `json:"points"`
}

// Round is one level of the single-elimination bracket.
type Round struct {
	RoundNumber int     `json:"round_number"`
	Matches     []Match `json:"matches"`
}

// Match is a bracket slot. Empty team ids mean the slot is still unfilled;
// exactly one filled slot is a bye and auto-advances.
type Match struct {
	Round       int    `json:"round"`
	MatchNumber int    `json:"match_number"`
	Team1ID     string `json:"team1_id,omitempty"`
	Team2ID     string `json:"team2_id,omitempty"`
	WinnerID    string `json:"winner_id,omitempty"`
	Completed   bool   `json:"completed"`
}

// Posting statuses.
const (
	PostingScheduled  = "scheduled"
	PostingInProgress = "in_progress"
	PostingCompleted  = "completed"
	PostingCancelled  = "cancelled"
)

// Posting is an independently schedulable match instance. Round/MatchNumber
// of zero means the posting is standalone friendly play; non-zero links it
// to exactly one bracket match.
type Posting struct {
	ID            string     `json:"id"`
	Team1ID       string     `json:"team1_id"`
	Team2ID       string     `json:"team2_id"`
	Location      string     `json:"location,omitempty"`
	VirtualLink   string     `json:"virtual_link,omitempty"`
	Judges        []string   `json:"judges"`
	Theme         string     `json:"theme"`
	Status        string     `json:"status"`
	Round         int        `json:"round,omitempty"`
	MatchNumber   int        `json:"match_number,omitempty"`
	WinnerID      string     `json:"winner_id,omitempty"`
	BatchName     string     `json:"batch_name,omitempty"`
	ScheduledTime *time.Time `json:"scheduled_time,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	CreatedBy     string     `json:"created_by"`
	CreatedAt     time.Time  `json:"created_at"`

	BallotImageURL string `json:"ballot_image_url,omitempty"`

	Notifications PostingNotifications `json:"notifications"`
	Reminders     []ReminderEntry      `json:"reminders,omitempty"`
}

type PostingNotifications struct {
	JudgesNotified bool       `json:"judges_notified"`
	SentAt         *time.Time `json:"sent_at,omitempty"`
}

// ReminderEntry is the audit trail for re-sent posting notifications.
type ReminderEntry struct {
	SentAt time.Time `json:"sent_at"`
	SentBy string    `json:"sent_by"`
}

type Theme struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// FindParticipant returns the participant entry for userID, or nil.
func (t *Tournament) FindParticipant(userID string) *Participant {
	for i := range t.Participants {
		if t.Participants[i].UserID == userID {
			return &t.Participants[i]
		}
	}
	return nil
}

// FindTeam returns the embedded team with the given id, or nil.
func (t *Tournament) FindTeam(teamID string) *Team {
	for i := range t.Teams {
		if t.Teams[i].ID == teamID {
			return &t.Teams[i]
		}
	}
	return nil
}

// FindPosting returns the posting with the given id, or nil.
func (t *Tournament) FindPosting(postingID string) *Posting {
	for i := range t.Postings {
		if t.Postings[i].ID == postingID {
			return &t.Postings[i]
		}
	}
	return nil
}

// FindMatch returns the bracket match addressed by 1-based round and match
// numbers, or nil when either index is out of range.
func (t *Tournament) FindMatch(round, matchNumber int) *Match {
	if round < 1 || round > len(t.Rounds) {
		return nil
	}
	matches := t.Rounds[round-1].Matches
	if matchNumber < 1 || matchNumber > len(matches) {
		return nil
	}
	return &matches[matchNumber-1]
}

// Member returns the team member with the given role (leader/speaker), or nil.
func (tm *Team) Member(role string) *TeamMember {
	for i := range tm.Members {
		if tm.Members[i].Role == role {
			return &tm.Members[i]
		}
	}
	return nil
}

// HasMember reports whether userID belongs to this team.
func (tm *Team) HasMember(userID string) bool {
	for _, m := range tm.Members {
		if m.UserID == userID {
			return true
		}
	}
	return false
}

// CountByRole tallies participants holding the given tournament role.
func (t *Tournament) CountByRole(role string) int {
	n := 0
	for _, p := range t.Participants {
		if p.Role == role {
			n++
		}
	}
	return n
}

// RecountCapacity refreshes the denormalized debater/judge counters from the
// participants list.
func (t *Tournament) RecountCapacity() {
	t.CurrentDebaters = t.CountByRole(RoleDebater)
	t.CurrentJudges = t.CountByRole(RoleJudge)
}

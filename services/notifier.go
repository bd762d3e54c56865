package services

import (
	"fmt"
	"log"
	"time"

	"github.com/Aksuiekbro/debetter-sub000/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Notifier records that a notification is due for one recipient. Delivery is
// a collaborator concern (see workers.NotificationDispatchWorker); failures
// here never roll back the mutation that triggered the notification.
type Notifier interface {
	Notify(n models.Notification) error
}

// DBNotifier queues notifications as pending rows for the dispatch worker.
type DBNotifier struct {
	DB *gorm.DB
}

func NewDBNotifier(db *gorm.DB) *DBNotifier {
	return &DBNotifier{DB: db}
}

func (d *DBNotifier) Notify(n models.Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	n.Delivery = models.DeliveryPending
	return d.DB.Create(&n).Error
}

// NotificationResults summarizes a fan-out: how many recipients were queued
// and the per-recipient failures that were swallowed.
type NotificationResults struct {
	JudgesNotified      int      `json:"judges_notified"`
	TeamMembersNotified int      `json:"team_members_notified"`
	Errors              []string `json:"errors,omitempty"`
}

func postingMessage(t *models.Tournament, p *models.Posting) string {
	msg := "You have been assigned to an APF debate"
	if p.ScheduledTime != nil {
		msg += " scheduled for " + p.ScheduledTime.Format(time.RFC1123)
	}
	if p.BatchName != "" {
		msg += " (" + p.BatchName + ")"
	}
	theme := p.Theme
	if theme == "" {
		theme = "Topic not specified"
	}
	return msg + ". Theme: " + theme
}

// notifyPostingParticipants fans one posting's assignment out to its judges
// and to every member of both teams. Individual failures are collected, not
// raised: the posting already exists and stays valid either way.
func notifyPostingParticipants(notifier Notifier, t *models.Tournament, p *models.Posting, kind string) NotificationResults {
	results := NotificationResults{}
	base := postingMessage(t, p)

	for _, judgeID := range p.Judges {
		err := notifier.Notify(models.Notification{
			UserID:       judgeID,
			TournamentID: t.ID,
			PostingID:    p.ID,
			Type:         kind,
			Message:      base + " - You are judging.",
		})
		if err != nil {
			results.Errors = append(results.Errors, fmt.Sprintf("judge %s: %v", judgeID, err))
			continue
		}
		results.JudgesNotified++
	}

	for _, teamID := range []string{p.Team1ID, p.Team2ID} {
		team := t.FindTeam(teamID)
		if team == nil {
			results.Errors = append(results.Errors, fmt.Sprintf("team %s not found for notification", teamID))
			continue
		}
		for _, member := range team.Members {
			err := notifier.Notify(models.Notification{
				UserID:       member.UserID,
				TournamentID: t.ID,
				PostingID:    p.ID,
				Type:         kind,
				Message:      fmt.Sprintf("%s - Your team (%s) is participating.", base, team.Name),
			})
			if err != nil {
				results.Errors = append(results.Errors, fmt.Sprintf("team member %s: %v", member.UserID, err))
				continue
			}
			results.TeamMembersNotified++
		}
	}

	for _, e := range results.Errors {
		log.Printf("[NOTIFY] posting %s: %s", p.ID, e)
	}
	return results
}

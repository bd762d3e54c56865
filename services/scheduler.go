// services/scheduler.go
package services

import (
	"log"
	"time"

	"github.com/Aksuiekbro/debetter-sub000/models"
	"github.com/go-co-op/gocron/v2"
	"gorm.io/gorm"
)

const reminderLead = 30 * time.Minute

// StartReminderScheduler starts a background job that sends reminder
// notifications for postings scheduled to begin within the lead window.
// A posting is reminded automatically at most once.
func (s *PostingService) StartReminderScheduler() {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	// Every minute: remind upcoming postings
	_, _ = sched.NewJob(
		gocron.DurationJob(1*time.Minute),
		gocron.NewTask(func() {
			var tournaments []models.Tournament
			err := s.Store.DB.Where("status = ?", models.StatusInProgress).
				Find(&tournaments).Error
			if err != nil {
				log.Printf("[Scheduler] DB error: %v", err)
				return
			}

			now := time.Now()
			for i := range tournaments {
				t := &tournaments[i]
				for j := range t.Postings {
					p := &t.Postings[j]
					if p.Status != models.PostingScheduled || p.ScheduledTime == nil {
						continue
					}
					until := p.ScheduledTime.Sub(now)
					if until <= 0 || until > reminderLead {
						continue
					}
					if hasAutoReminder(p) {
						continue
					}
					s.sendScheduledReminder(t, p.ID)
				}
			}
		}),
	)
}

func hasAutoReminder(p *models.Posting) bool {
	for _, r := range p.Reminders {
		if r.SentBy == "scheduler" {
			return true
		}
	}
	return false
}

// sendScheduledReminder fans out the reminder and records the audit entry so
// the next tick skips the posting.
func (s *PostingService) sendScheduledReminder(t *models.Tournament, postingID string) {
	posting := t.FindPosting(postingID)
	if posting == nil {
		return
	}
	results := notifyPostingParticipants(s.Notifier, t, posting, models.NotificationReminder)

	_, err := s.Store.Update(t.ID, func(tx *gorm.DB, fresh *models.Tournament) error {
		p := fresh.FindPosting(postingID)
		if p == nil {
			return NotFoundError("posting %s not found", postingID)
		}
		if hasAutoReminder(p) {
			return nil
		}
		p.Reminders = append(p.Reminders, models.ReminderEntry{SentAt: time.Now(), SentBy: "scheduler"})
		return nil
	})
	if err != nil {
		log.Printf("[Scheduler] Failed to record reminder for posting %s: %v", postingID, err)
		return
	}
	log.Printf("✅ Reminder sent for posting %s (%d judges, %d team members)",
		postingID, results.JudgesNotified, results.TeamMembersNotified)
}

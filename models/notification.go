package models

import (
	"time"
)

// Notification kinds and delivery states.
const (
	NotificationAssignment = "match_assignment"
	NotificationReminder   = "match_reminder"

	DeliveryPending = "pending"
	DeliverySent    = "sent"
	DeliveryFailed  = "failed"
)

// Notification is a pending message for one recipient. The core only decides
// that a notification is due and what it says; the dispatch worker owns
// delivery, so rows are written here and picked up asynchronously.
type Notification struct {
	ID           string     `json:"id" gorm:"primaryKey"`
	UserID       string     `json:"user_id" gorm:"not null;index"`
	TournamentID string     `json:"tournament_id" gorm:"index"`
	PostingID    string     `json:"posting_id,omitempty" gorm:"index"`
	Type         string     `json:"type"`
	Message      string     `json:"message"`
	Delivery     string     `json:"delivery" gorm:"default:'pending';index"`
	Attempts     int        `json:"attempts" gorm:"default:0"`
	SentAt       *time.Time `json:"sent_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at" gorm:"autoCreateTime"`
}

package models

import "time"

type Session struct {
	ID               uint          `gorm:"primaryKey" json:"id"`
	Name             string        `gorm:"size:255;not null" json:"name"`
	Description      string        `gorm:"type:text" json:"description,omitempty"`
	Code             string        `gorm:"size:6;uniqueIndex" json:"code"`
	Status           string        `gorm:"size:20;not null;default:'pending'" json:"status"`
	DealerID         uint          `gorm:"not null;index" json:"dealer_id"`
	Dealer           User          `gorm:"foreignKey:DealerID;constraint:OnDelete:CASCADE" json:"-"`
	TimeboxMinutes   int           `gorm:"not null;default:0" json:"timebox_minutes"`
	TotalStories     int           `gorm:"not null;default:0" json:"total_stories"`
	CompletedStories int           `gorm:"not null;default:0" json:"completed_stories"`
	ConsensusRate    int           `gorm:"not null;default:0" json:"consensus_rate"`
	StartedAt        *time.Time    `json:"started_at,omitempty"`
	CompletedAt      *time.Time    `json:"completed_at,omitempty"`
	Stories          []Story       `gorm:"foreignKey:SessionID" json:"stories,omitempty"`
	Participants     []Participant `gorm:"foreignKey:SessionID" json:"participants,omitempty"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

const (
	SessionStatusPending   = "pending"
	SessionStatusActive    = "active"
	SessionStatusCompleted = "completed"
	SessionStatusCancelled = "cancelled"
)

// SessionCodeLength is the length of the human-readable join code.
const SessionCodeLength = 6

func (s *Session) IsTerminal() bool {
	return s.Status == SessionStatusCompleted || s.Status == SessionStatusCancelled
}

package models

import "time"

type Participant struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	SessionID  uint       `gorm:"not null;index" json:"session_id"`
	UserID     uint       `gorm:"default:0" json:"user_id,omitempty"`
	GuestToken string     `gorm:"size:64;index" json:"guest_token,omitempty"`
	Nickname   string     `gorm:"size:100;not null" json:"nickname"`
	Role       string     `gorm:"size:20;not null;default:'participant'" json:"role"`
	JoinedAt   time.Time  `json:"joined_at"`
	LeftAt     *time.Time `json:"left_at,omitempty"`
}

const (
	RoleDealer      = "dealer"
	RoleParticipant = "participant"
	RoleObserver    = "observer"
)

// IsActive reports whether the participant is still in the session.
func (p *Participant) IsActive() bool {
	return p.LeftAt == nil
}

// IsVoter reports whether the participant counts toward vote totals.
func (p *Participant) IsVoter() bool {
	return p.IsActive() && p.Role != RoleObserver
}

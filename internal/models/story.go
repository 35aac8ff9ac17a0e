package models

import "time"

type Story struct {
	ID                uint       `gorm:"primaryKey" json:"id"`
	SessionID         uint       `gorm:"not null;index" json:"session_id"`
	Title             string     `gorm:"size:255;not null" json:"title"`
	Description       string     `gorm:"type:text" json:"description,omitempty"`
	SequenceOrder     int        `gorm:"not null;index:idx_story_session_order" json:"sequence_order"`
	Status            string     `gorm:"size:20;not null;default:'pending'" json:"status"`
	FinalEstimate     string     `gorm:"size:20" json:"final_estimate,omitempty"`
	VoteSummary       string     `gorm:"size:100" json:"vote_summary,omitempty"`
	ConsensusAchieved bool       `gorm:"not null;default:false" json:"consensus_achieved"`
	VotingStarted     *time.Time `json:"voting_started,omitempty"`
	CompletedOn       *time.Time `json:"completed_on,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

const (
	StoryStatusPending   = "pending"
	StoryStatusVoting    = "voting"
	StoryStatusRevealed  = "revealed"
	StoryStatusCompleted = "completed"
	StoryStatusSkipped   = "skipped"
)

func (s *Story) IsTerminal() bool {
	return s.Status == StoryStatusCompleted || s.Status == StoryStatusSkipped
}

func (s *Story) CanAcceptVotes() bool {
	return s.Status == StoryStatusVoting
}

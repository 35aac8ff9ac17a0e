package models

import "time"

type Vote struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	SessionID     uint      `gorm:"not null;index" json:"session_id"`
	StoryID       uint      `gorm:"not null;index:idx_vote_story_current" json:"story_id"`
	ParticipantID uint      `gorm:"not null;index" json:"participant_id"`
	Value         string    `gorm:"size:20;not null" json:"vote_value"`
	Version       int       `gorm:"not null;default:1" json:"version"`
	IsCurrent     bool      `gorm:"not null;default:true;index:idx_vote_story_current" json:"is_current"`
	CreatedOn     time.Time `json:"created_on"`
}

// Special (non-numeric) cards. Any other value is expected to be a number,
// but the engine treats unparseable tokens the same as these.
const (
	CardQuestion    = "?"
	CardCoffee      = "coffee"
	CardCoffeeEmoji = "☕"
	CardInfinity    = "infinity"
	CardInfinitySym = "∞"
)

// DefaultDeck is the card set offered to clients that have not configured one.
const DefaultDeck = "0,1,2,3,5,8,13,20,40,100,?,coffee,infinity"

package models

import "time"

type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"size:100;uniqueIndex;not null" json:"username"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	DisplayName  string    `gorm:"size:100" json:"display_name,omitempty"`
	DefaultDeck  string    `gorm:"size:255;default:''" json:"default_deck,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

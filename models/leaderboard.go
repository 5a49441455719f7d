package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Sale is a single recorded sale for a user. Leaderboards aggregate these.
type Sale struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	UserID    string    `json:"user_id" gorm:"index;not null"`
	Count     int       `json:"count" gorm:"default:1"`
	Date      time.Time `json:"date" gorm:"index"`
	CreatedAt time.Time `json:"created_at"`
}

func (Sale) TableName() string {
	return "sales"
}

func (s *Sale) BeforeCreate(*gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

// Call is a single recorded call for a user.
type Call struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	UserID    string    `json:"user_id" gorm:"index;not null"`
	Count     int       `json:"count" gorm:"default:1"`
	Date      time.Time `json:"date" gorm:"index"`
	CreatedAt time.Time `json:"created_at"`
}

func (Call) TableName() string {
	return "calls"
}

func (c *Call) BeforeCreate(*gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// LeaderboardEntry is one aggregated row of a leaderboard.
type LeaderboardEntry struct {
	UserID string    `json:"user_id"`
	Count  int64     `json:"count"`
	Date   time.Time `json:"date"`
}

type LeaderboardResponse struct {
	Entries []LeaderboardEntry `json:"entries"`
}

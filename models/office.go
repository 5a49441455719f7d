package models

import (
	"time"

	"github.com/lib/pq"
)

// UserStatus is the presence status shown on a user's badge.
type UserStatus string

const (
	StatusOnline  UserStatus = "online"
	StatusOffline UserStatus = "offline"
	StatusBusy    UserStatus = "busy"
	StatusAway    UserStatus = "away"
)

// ValidStatus reports whether s is one of the known presence statuses.
func ValidStatus(s UserStatus) bool {
	switch s {
	case StatusOnline, StatusOffline, StatusBusy, StatusAway:
		return true
	}
	return false
}

type RoomType string

const (
	RoomTypeOffice       RoomType = "office"
	RoomTypeCornerOffice RoomType = "corner-office"
	RoomTypeTeamRoom     RoomType = "team-room"
	RoomTypeMeetingRoom  RoomType = "meeting-room"
)

// User represents an employee on the floor plan. HomeOfficeID is the room the
// user is permanently assigned to; CurrentOfficeID is where they are right now.
// Both are owned by the occupancy engine and must not be written elsewhere.
type User struct {
	ID              string     `json:"id" gorm:"primaryKey"`
	Name            string     `json:"name" gorm:"not null"`
	Email           string     `json:"email" gorm:"uniqueIndex"`
	Avatar          string     `json:"avatar"`
	Role            string     `json:"role" gorm:"default:Member"`
	Department      string     `json:"department"`
	Status          UserStatus `json:"status" gorm:"default:offline"`
	IsAdmin         bool       `json:"is_admin" gorm:"default:false"`
	HomeOfficeID    *string    `json:"home_office_id"`
	CurrentOfficeID *string    `json:"current_office_id"`
	LastActive      time.Time  `json:"last_active"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	Version         int64      `json:"-" gorm:"default:0"`
}

func (User) TableName() string {
	return "users"
}

// Room represents a room on the floor plan. AssignedUsers is ordered; the
// first element is the primary assignee for office and corner-office types.
// CurrentOccupants has set semantics. Position and size belong to the layout
// UI and are stored verbatim.
type Room struct {
	ID               string         `json:"id" gorm:"primaryKey"`
	Name             string         `json:"name" gorm:"not null"`
	Type             RoomType       `json:"type" gorm:"not null"`
	AssignedUsers    pq.StringArray `json:"assigned_users" gorm:"type:text[]"`
	CurrentOccupants pq.StringArray `json:"current_occupants" gorm:"type:text[]"`
	MaxOccupants     int            `json:"max_occupants" gorm:"not null"`
	PosX             int            `json:"pos_x"`
	PosY             int            `json:"pos_y"`
	Width            int            `json:"width"`
	Height           int            `json:"height"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	Version          int64          `json:"-" gorm:"default:0"`
}

func (Room) TableName() string {
	return "rooms"
}

// PrimaryAssignee returns the designated primary assigned user, if any.
func (r *Room) PrimaryAssignee() (string, bool) {
	if len(r.AssignedUsers) == 0 {
		return "", false
	}
	return r.AssignedUsers[0], true
}

// Occupies reports whether userID is currently present in the room.
func (r *Room) Occupies(userID string) bool {
	return contains(r.CurrentOccupants, userID)
}

// AddAssigned appends userID to AssignedUsers unless already present.
func (r *Room) AddAssigned(userID string) {
	r.AssignedUsers = addUnique(r.AssignedUsers, userID)
}

// AddOccupant appends userID to CurrentOccupants unless already present.
func (r *Room) AddOccupant(userID string) {
	r.CurrentOccupants = addUnique(r.CurrentOccupants, userID)
}

// RemoveAssigned removes every occurrence of userID from AssignedUsers.
func (r *Room) RemoveAssigned(userID string) {
	r.AssignedUsers = remove(r.AssignedUsers, userID)
}

// RemoveOccupant removes every occurrence of userID from CurrentOccupants.
func (r *Room) RemoveOccupant(userID string) {
	r.CurrentOccupants = remove(r.CurrentOccupants, userID)
}

func contains(list pq.StringArray, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func addUnique(list pq.StringArray, v string) pq.StringArray {
	if contains(list, v) {
		return list
	}
	return append(list, v)
}

func remove(list pq.StringArray, v string) pq.StringArray {
	out := list[:0]
	for _, item := range list {
		if item != v {
			out = append(out, item)
		}
	}
	return out
}

// Request/Response DTOs

type CreateRoomRequest struct {
	Name         string   `json:"name" binding:"required"`
	Type         RoomType `json:"type" binding:"required"`
	MaxOccupants int      `json:"max_occupants" binding:"required"`
	PosX         int      `json:"pos_x"`
	PosY         int      `json:"pos_y"`
	Width        int      `json:"width"`
	Height       int      `json:"height"`
}

type UpdateRoomRequest struct {
	Name         *string `json:"name"`
	MaxOccupants *int    `json:"max_occupants"`
	PosX         *int    `json:"pos_x"`
	PosY         *int    `json:"pos_y"`
	Width        *int    `json:"width"`
	Height       *int    `json:"height"`
}

type UpdateStatusRequest struct {
	Status UserStatus `json:"status" binding:"required"`
}

type OccupancyRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

package models

import "time"

// SpaceKind distinguishes direct-message spaces from shared rooms on the
// external chat collaborator.
type SpaceKind string

const (
	SpaceKindDM   SpaceKind = "DM"
	SpaceKindRoom SpaceKind = "ROOM"
)

// ChatSpace is a conversation space on the external chat API.
type ChatSpace struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	SpaceType   string `json:"spaceType"`
}

// ChatMessage is a message in a chat space.
type ChatMessage struct {
	Name       string    `json:"name"`
	Text       string    `json:"text"`
	Sender     string    `json:"sender,omitempty"`
	CreateTime time.Time `json:"createTime"`
}

type SendMessageRequest struct {
	SpaceID string `json:"space_id" binding:"required"`
	Text    string `json:"text" binding:"required"`
}

type CreateSpaceRequest struct {
	Name string    `json:"name" binding:"required"`
	Kind SpaceKind `json:"kind"`
}

package models

import (
	"encoding/json"
	"time"
)

// HistoryEntry records one choice taken during playback.
type HistoryEntry struct {
	FromNodeID  string `json:"fromNodeId"`
	ChoiceLabel string `json:"choiceLabel"`
	ChoiceEmoji string `json:"choiceEmoji,omitempty"`
	ToNodeID    string `json:"toNodeId"`
}

// PlaybackState is the traversal position of one reader.
type PlaybackState struct {
	CurrentNodeID string         `json:"currentNodeId"`
	History       []HistoryEntry `json:"history"`
}

// PlaySession persists a reader's PlaybackState between requests. Preview
// sessions embed the document they play since it was never saved.
type PlaySession struct {
	ID        string         `json:"id"`
	StoryID   string         `json:"storyId"`
	Preview   bool           `json:"preview,omitempty"`
	Document  *StoryDocument `json:"document,omitempty"`
	State     PlaybackState  `json:"state"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// Draft is an in-progress editing session over one document.
type Draft struct {
	ID        string         `json:"id"`
	OwnerID   string         `json:"ownerId,omitempty"`
	Document  *StoryDocument `json:"document"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// StorySyncEvent is published after a story is saved or deleted so a remote
// replica (spreadsheet, file store) can follow.
type StorySyncEvent struct {
	Action      string          `json:"action"`
	StoryID     string          `json:"storyId"`
	Timestamp   time.Time       `json:"timestamp"`
	Title       string          `json:"title,omitempty"`
	Author      string          `json:"author,omitempty"`
	Description string          `json:"description,omitempty"`
	Theme       string          `json:"theme,omitempty"`
	OwnerID     string          `json:"ownerId,omitempty"`
	StoryData   json.RawMessage `json:"storyData,omitempty"`
}

const (
	SyncActionSave   = "save"
	SyncActionDelete = "delete"
)

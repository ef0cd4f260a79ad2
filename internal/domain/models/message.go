// Package models contains domain models for the HeritageBox support chat service.
package models

import (
	"fmt"
	"time"
)

// Sender identifies who authored a message.
type Sender string

const (
	// SenderUser is the widget visitor.
	SenderUser Sender = "user"
	// SenderBot is the AI assistant.
	SenderBot Sender = "bot"
	// SenderAgent is a human operator replying through Slack.
	SenderAgent Sender = "agent"
)

// Valid reports whether the sender is one of the known roles.
func (s Sender) Valid() bool {
	switch s {
	case SenderUser, SenderBot, SenderAgent:
		return true
	}
	return false
}

// Message is one turn in a session transcript.
type Message struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Sender    Sender    `json:"sender"`
	Timestamp time.Time `json:"timestamp"`
}

// NewMessage creates a message with a sender-derived id and the current time.
func NewMessage(content string, sender Sender) Message {
	now := time.Now().UTC()
	return Message{
		ID:        MessageID(sender, now),
		Content:   content,
		Sender:    sender,
		Timestamp: now,
	}
}

// MessageID builds the default message id, <sender>_<unix millis>.
func MessageID(sender Sender, at time.Time) string {
	return fmt.Sprintf("%s_%d", sender, at.UnixMilli())
}

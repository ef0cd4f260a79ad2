// Package models contains domain models for the HeritageBox support chat service.
package models

import "time"

// Session is the durable conversational state for one widget visitor.
// SessionID is client-generated and acts as the primary key; SlackThreadID is
// assigned when a human handoff opens a Slack thread and is immutable once set.
type Session struct {
	SessionID     string    `json:"sessionId"`
	SlackThreadID string    `json:"slackThreadId,omitempty"`
	UserID        string    `json:"userId,omitempty"`
	LastActivity  time.Time `json:"lastActivity"`
	Messages      []Message `json:"messages"`
	DebugLog      []string  `json:"debugLog"`
}

// NewSession creates an empty session.
func NewSession(sessionID, slackThreadID string) *Session {
	return &Session{
		SessionID:     sessionID,
		SlackThreadID: slackThreadID,
		LastActivity:  time.Now().UTC(),
		Messages:      []Message{},
		DebugLog:      []string{},
	}
}

// HandoffActive reports whether the session is bound to a Slack thread.
func (s *Session) HandoffActive() bool {
	return s.SlackThreadID != ""
}

// SessionKey returns the store key for a session record.
func SessionKey(sessionID string) string {
	return "session:" + sessionID
}

// ThreadKey returns the store key for the thread-to-session index entry.
func ThreadKey(threadID string) string {
	return "thread:" + threadID
}

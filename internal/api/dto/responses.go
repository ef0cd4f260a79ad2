// Package dto provides Data Transfer Objects for API requests and responses.
package dto

import "time"

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// HealthResponse represents a health check response.
type HealthResponse struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components,omitempty"`
}

// ChatResponse is the widget chat turn reply. Response is omitted while the
// session is in handoff mode; the agent's answer arrives via polling.
type ChatResponse struct {
	Success       bool   `json:"success"`
	Response      string `json:"response,omitempty"`
	SessionID     string `json:"sessionId"`
	HandoffActive bool   `json:"handoffActive,omitempty"`
}

// HandoffResponse confirms a handoff request.
type HandoffResponse struct {
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	SessionID string    `json:"sessionId"`
	Timestamp time.Time `json:"timestamp"`
}

// MessageResponse is one transcript message as the poller sees it.
type MessageResponse struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Sender    string    `json:"sender"`
	Timestamp time.Time `json:"timestamp"`
}

// GetMessagesResponse is the transcript poll reply.
type GetMessagesResponse struct {
	Success       bool              `json:"success"`
	Messages      []MessageResponse `json:"messages"`
	DebugLog      []string          `json:"debugLog,omitempty"`
	SessionExists bool              `json:"sessionExists"`
	LastActivity  *time.Time        `json:"lastActivity,omitempty"`
}

// RelayResponse reports a message relayed into the Slack thread.
type RelayResponse struct {
	Success        bool      `json:"success"`
	MessageID      string    `json:"messageId"`
	SlackMessageID string    `json:"slackMessageId"`
	Timestamp      time.Time `json:"timestamp"`
}

// PaymentResponse reports a charge attempt or a status poll.
type PaymentResponse struct {
	Success    bool   `json:"success"`
	PaymentID  string `json:"paymentId,omitempty"`
	Status     string `json:"status,omitempty"`
	ReceiptURL string `json:"receiptUrl,omitempty"`
}

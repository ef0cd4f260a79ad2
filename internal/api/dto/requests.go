// Package dto provides Data Transfer Objects for API requests and responses.
package dto

// ChatRequest is the widget chat turn body.
type ChatRequest struct {
	Message   string `json:"message" binding:"required,min=1,max=32000"`
	SessionID string `json:"sessionId" binding:"required"`
}

// HistoryMessage is a transcript message as the widget sends it with a
// handoff request. The server re-stamps ids and timestamps on replay.
type HistoryMessage struct {
	ID        string `json:"id"`
	Content   string `json:"content" binding:"required"`
	Sender    string `json:"sender" binding:"required,oneof=user bot agent"`
	Timestamp string `json:"timestamp"`
}

// CustomerInfo is the optional contact block on a handoff request.
type CustomerInfo struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// HandoffRequest asks for a human takeover.
type HandoffRequest struct {
	SessionID    string           `json:"sessionId" binding:"required"`
	Messages     []HistoryMessage `json:"messages"`
	CustomerInfo *CustomerInfo    `json:"customerInfo"`
}

// RelayRequest forwards a message into the session's Slack thread.
type RelayRequest struct {
	SessionID string `json:"sessionId" binding:"required"`
	Message   string `json:"message" binding:"required"`
	Sender    string `json:"sender" binding:"required,oneof=user agent"`
}

// OrderDetails is the optional order context on a payment request.
type OrderDetails struct {
	Package string `json:"package"`
}

// PaymentRequest charges a tokenized card. Amount is in dollars.
type PaymentRequest struct {
	Token        string        `json:"token" binding:"required"`
	Amount       float64       `json:"amount" binding:"required,gt=0"`
	OrderDetails *OrderDetails `json:"orderDetails"`
}

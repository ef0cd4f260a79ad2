// Package archive mines chat transcripts for contact details, persists them
// to the record store and answers order-status questions. Everything here is
// best-effort: record store failures are logged and never surface to the
// visitor.
package archive

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/heritagebox/chat-service/internal/core/records"
	"github.com/heritagebox/chat-service/internal/domain/models"
)

// Service archives conversations and answers order-status lookups.
type Service interface {
	// SaveConversation extracts visitor data, upserts a customer/prospect and
	// stores a linked transcript record. Called fire-and-forget.
	SaveConversation(ctx context.Context, sessionID string, messages []models.Message)

	// OrderStatus answers an order-status question from the query's order
	// number or email. Returns ("", false) when the query holds neither or the
	// store is unavailable, letting the AI handle the turn instead.
	OrderStatus(ctx context.Context, query string) (string, bool)
}

// Config holds the archive service configuration.
type Config struct {
	Store  records.Store
	Logger zerolog.Logger
}

type service struct {
	store records.Store
	log   zerolog.Logger
}

// NewService creates a new archive service.
func NewService(cfg *Config) (Service, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("record store is required")
	}
	return &service{store: cfg.Store, log: cfg.Logger}, nil
}

// SaveConversation persists the transcript and its contact record.
func (s *service) SaveConversation(ctx context.Context, sessionID string, messages []models.Message) {
	if len(messages) < 2 {
		return
	}

	data := Extract(messages)

	var customerID, prospectID string
	if data.Email != "" {
		customers, err := s.store.FindByField(ctx, records.TableCustomers, "Email", data.Email)
		if err != nil {
			s.log.Warn().Err(err).Str("session_id", sessionID).Msg("customer lookup failed")
		} else if len(customers) > 0 {
			customerID = customers[0].ID
		} else {
			prospectID = s.createProspect(ctx, data)
		}
	}

	transcript, err := s.store.Create(ctx, records.TableTranscripts, map[string]any{
		"SessionID":     sessionID,
		"Transcript":    formatTranscript(sessionID, messages, data),
		"Status":        transcriptStatus(messages),
		"CustomerEmail": data.Email,
	})
	if err != nil {
		s.log.Warn().Err(err).Str("session_id", sessionID).Msg("transcript save failed")
		return
	}
	s.log.Info().Str("session_id", sessionID).Str("transcript_id", transcript.ID).Msg("conversation archived")

	link := map[string]any{}
	if customerID != "" {
		link["Customer"] = []string{customerID}
	} else if prospectID != "" {
		link["Prospects"] = []string{prospectID}
	}
	if len(link) > 0 {
		if _, err := s.store.Update(ctx, records.TableTranscripts, transcript.ID, link); err != nil {
			s.log.Warn().Err(err).Str("transcript_id", transcript.ID).Msg("transcript link failed")
		}
	}
}

func (s *service) createProspect(ctx context.Context, data ExtractedData) string {
	fields := map[string]any{
		"Email":  data.Email,
		"Source": "Website Chat",
		"Status": "New Lead",
	}
	if data.Name != "" {
		fields["Name"] = data.Name
	}
	if data.Phone != "" {
		fields["Phone"] = data.Phone
	}
	if len(data.MediaTypes) > 0 {
		fields["Media Types"] = data.MediaTypes
	}
	if len(data.InquiryTypes) > 0 {
		fields["Inquiry Type"] = data.InquiryTypes
	}
	if len(data.Quantities) > 0 {
		fields["Quantity Mentioned"] = strings.Join(data.Quantities, ", ")
	}

	var notes []string
	if len(data.Notes) > 0 {
		notes = append(notes, "Key details from chat:")
		notes = append(notes, data.Notes...)
	}
	if len(data.MediaTypes) > 0 {
		notes = append(notes, "Media types mentioned: "+strings.Join(data.MediaTypes, ", "))
	}
	if len(notes) > 0 {
		fields["Notes"] = strings.Join(notes, "\n")
	}

	prospect, err := s.store.Create(ctx, records.TableProspects, fields)
	if err != nil {
		s.log.Warn().Err(err).Str("email", data.Email).Msg("prospect creation failed")
		return ""
	}
	s.log.Info().Str("prospect_id", prospect.ID).Str("email", data.Email).Msg("prospect created")
	return prospect.ID
}

func formatTranscript(sessionID string, messages []models.Message, data ExtractedData) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Conversation archived %s\n", time.Now().UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "Session ID: %s\n", sessionID)
	if data.Email != "" {
		fmt.Fprintf(&b, "Customer Email: %s\n", data.Email)
	}
	b.WriteString("\n")

	for _, msg := range messages {
		speaker := "Customer"
		switch msg.Sender {
		case models.SenderBot:
			speaker = "HeritageBox AI"
		case models.SenderAgent:
			speaker = "Support Agent"
		}
		fmt.Fprintf(&b, "[%s] %s: %s\n", msg.Timestamp.UTC().Format("15:04:05"), speaker, msg.Content)
	}

	b.WriteString("\n--- CONVERSATION SUMMARY ---\n")
	if len(data.MediaTypes) > 0 {
		fmt.Fprintf(&b, "Media Types: %s\n", strings.Join(data.MediaTypes, ", "))
	}
	if len(data.InquiryTypes) > 0 {
		fmt.Fprintf(&b, "Inquiry Types: %s\n", strings.Join(data.InquiryTypes, ", "))
	}
	if len(data.Quantities) > 0 {
		fmt.Fprintf(&b, "Quantities: %s\n", strings.Join(data.Quantities, ", "))
	}
	return b.String()
}

func transcriptStatus(messages []models.Message) string {
	var joined strings.Builder
	for _, msg := range messages {
		joined.WriteString(msg.Content)
		joined.WriteString(" ")
	}
	if ContainsHandoffRequest(joined.String()) {
		return "Needs Human"
	}
	return "AI-Handled"
}

var orderNumberPattern = regexp.MustCompile(`(?i)\b(?:order|#)[\s#]*([A-Za-z0-9]+)\b`)

// OrderStatus intercepts order-status questions before the AI sees them.
func (s *service) OrderStatus(ctx context.Context, query string) (string, bool) {
	email := emailPattern.FindString(query)
	orderMatch := orderNumberPattern.FindStringSubmatch(query)

	switch {
	case email != "":
		return s.orderStatusByEmail(ctx, strings.ToLower(email))
	case orderMatch != nil:
		return s.orderStatusByNumber(ctx, orderMatch[1])
	default:
		return "", false
	}
}

func (s *service) orderStatusByNumber(ctx context.Context, orderNumber string) (string, bool) {
	orders, err := s.store.FindByField(ctx, records.TableOrders, "Order Number", orderNumber)
	if err != nil {
		s.log.Warn().Err(err).Str("order_number", orderNumber).Msg("order lookup failed")
		return "", false
	}
	if len(orders) == 0 {
		return "I couldn't find that order or email in our system. Please double-check the information or contact us directly.", true
	}

	order := orders[0]
	status := order.StringField("Status")
	if status == "" {
		status = "Processing"
	}
	return fmt.Sprintf("Order #%s from %s - Status: %s",
		order.StringField("Order Number"), order.StringField("Order Date"), status), true
}

func (s *service) orderStatusByEmail(ctx context.Context, email string) (string, bool) {
	customers, err := s.store.FindByField(ctx, records.TableCustomers, "Email", email)
	if err != nil {
		s.log.Warn().Err(err).Str("email", email).Msg("customer lookup failed")
		return "", false
	}
	if len(customers) == 0 {
		return "I couldn't find that order or email in our system. Please double-check the information or contact us directly.", true
	}

	customer := customers[0]
	name := customer.StringField("Name")
	if name == "" {
		name = "Valued Customer"
	}

	orders, err := s.store.FindByField(ctx, records.TableOrders, "Customer", customer.ID)
	if err != nil || len(orders) == 0 {
		return fmt.Sprintf("Hi %s! I found your account, but no recent orders. Please contact us if you need assistance.", name), true
	}

	recent := orders[0]
	for _, o := range orders[1:] {
		if o.StringField("Order Date") > recent.StringField("Order Date") {
			recent = o
		}
	}
	status := recent.StringField("Status")
	if status == "" {
		status = "Processing"
	}
	return fmt.Sprintf("Hi %s! I found your order #%s from %s. Current status: %s",
		name, recent.StringField("Order Number"), recent.StringField("Order Date"), status), true
}

package archive

import (
	"regexp"
	"strings"

	"github.com/heritagebox/chat-service/internal/domain/models"
)

// ExtractedData is what a transcript scan recovers about the visitor.
type ExtractedData struct {
	Email        string
	Name         string
	Phone        string
	MediaTypes   []string
	Quantities   []string
	InquiryTypes []string
	Notes        []string
}

var (
	emailPattern = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	phonePattern = regexp.MustCompile(`\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}`)
	namePattern  = regexp.MustCompile(`(?i)(?:my name is|i'm|i am|this is) ([a-zA-Z][a-zA-Z ]+)`)

	quantityPattern = regexp.MustCompile(`(?i)(\d+)\s*(photo|picture|image|slide|tape|reel|negative|video)`)

	notablePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:i have|we have|there are) (\d+[^.!?]*?(?:photo|video|slide|tape|reel|negative))`),
		regexp.MustCompile(`(?i)(?:need|want|looking for) ([^.!?]*?(?:digitiz|transfer|convert)\w*)`),
		regexp.MustCompile(`(?i)(?:deadline|need by|required by) ([^.!?]+)`),
	}
)

// Keyword tables for media and inquiry classification. Slices keep the output
// ordering stable across runs.
var mediaKeywords = []struct {
	label    string
	keywords []string
}{
	{"Photos", []string{"photo", "picture", "image", "snapshot"}},
	{"Slides", []string{"slide", "kodachrome", "35mm slide"}},
	{"Negatives", []string{"negative", "film strip"}},
	{"VHS Tapes", []string{"vhs", "video tape", "vcr"}},
	{"8mm Film", []string{"8mm", "super 8", "film reel"}},
	{"16mm Film", []string{"16mm"}},
	{"MiniDV", []string{"minidv", "mini dv", "digital video"}},
	{"Hi8", []string{"hi8", "hi-8"}},
	{"Betamax", []string{"betamax", "beta"}},
	{"Documents", []string{"document", "paper", "certificate"}},
}

var inquiryKeywords = []struct {
	label    string
	keywords []string
}{
	{"Pricing Information", []string{"price", "cost", "how much", "pricing", "quote", "estimate"}},
	{"Service Details", []string{"service", "process", "how do", "what do you"}},
	{"Timeline Questions", []string{"how long", "turnaround", "when", "timeline", "rush", "fast"}},
	{"Shipping Info", []string{"ship", "mail", "send", "delivery", "address"}},
	{"Technical Support", []string{"problem", "issue", "not working", "error"}},
	{"Bulk Quote", []string{"bulk", "large", "many", "hundreds", "thousands"}},
	{"Rush Processing", []string{"rush", "urgent", "asap", "quickly", "fast", "express"}},
}

// handoffKeywords in a customer message mark the conversation as needing a
// human, both for the transcript status and the archival trigger.
var handoffKeywords = []string{"speak to someone", "human", "representative", "agent"}

// Extract scans a transcript for contact details, media types, quantities and
// inquiry categories. Best-effort text mining; empty fields are expected.
func Extract(messages []models.Message) ExtractedData {
	var data ExtractedData

	var joined strings.Builder
	for _, msg := range messages {
		joined.WriteString(msg.Content)
		joined.WriteString(" ")

		if data.Email == "" {
			if m := emailPattern.FindString(msg.Content); m != "" {
				data.Email = strings.ToLower(m)
			}
		}
	}
	conversation := strings.ToLower(joined.String())

	if m := namePattern.FindStringSubmatch(conversation); m != nil {
		data.Name = strings.TrimSpace(m[1])
	}
	if m := phonePattern.FindString(conversation); m != "" {
		data.Phone = m
	}

	for _, entry := range mediaKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(conversation, kw) {
				data.MediaTypes = append(data.MediaTypes, entry.label)
				break
			}
		}
	}
	for _, entry := range inquiryKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(conversation, kw) {
				data.InquiryTypes = append(data.InquiryTypes, entry.label)
				break
			}
		}
	}

	for _, m := range quantityPattern.FindAllStringSubmatch(conversation, -1) {
		data.Quantities = append(data.Quantities, m[1]+" "+m[2]+"s")
	}
	for _, pattern := range notablePatterns {
		for _, m := range pattern.FindAllStringSubmatch(conversation, -1) {
			data.Notes = append(data.Notes, strings.TrimSpace(m[1]))
		}
	}

	return data
}

// ContainsHandoffRequest reports whether the text asks for a human agent.
func ContainsHandoffRequest(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range handoffKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// ShouldArchive decides whether a conversation is worth saving now: an email
// plus a real exchange, an explicit handoff request, or a long conversation.
func ShouldArchive(messages []models.Message, latestUserText string) bool {
	if len(messages) >= 10 {
		return true
	}
	if ContainsHandoffRequest(latestUserText) {
		return true
	}
	data := Extract(messages)
	return data.Email != "" && len(messages) >= 4
}

package slack

import (
	"regexp"
	"strings"
)

// WebhookPayload is the Slack Events API envelope.
type WebhookPayload struct {
	Token     string `json:"token"`
	Challenge string `json:"challenge"`
	Type      string `json:"type"`
	Event     *Event `json:"event"`
}

// Event is the inner message event.
type Event struct {
	Type     string `json:"type"`
	Channel  string `json:"channel"`
	User     string `json:"user"`
	Text     string `json:"text"`
	TS       string `json:"ts"`
	ThreadTS string `json:"thread_ts"`
	EventTS  string `json:"event_ts"`
	Subtype  string `json:"subtype"`
	BotID    string `json:"bot_id"`
}

// IsHumanThreadMessage reports whether the event is a human-authored message
// inside a thread. Bot echoes (including this service's own relays, which
// carry a bot_id) and top-level channel messages are filtered out.
func (e *Event) IsHumanThreadMessage() bool {
	if e == nil {
		return false
	}
	return e.Type == "message" && e.ThreadTS != "" && e.User != "" && e.BotID == ""
}

var agentTextPrefixes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^👤\s*\*\*Customer:\*\*\s*`),
	regexp.MustCompile(`(?i)^🤖\s*\*\*Bot:\*\*\s*`),
	regexp.MustCompile(`^\*\*(.*?)\*\*:\s*`),
}

// CleanAgentText strips the relay prefixes this service adds when mirroring
// widget messages into the thread, so an agent quoting one back does not leak
// the markup to the customer.
func CleanAgentText(text string) string {
	cleaned := text
	for _, re := range agentTextPrefixes {
		cleaned = re.ReplaceAllString(cleaned, "")
	}
	return strings.TrimSpace(cleaned)
}

var (
	htmlBreaks = regexp.MustCompile(`<br\s*/?>`)
	htmlStrong = regexp.MustCompile(`</?(?:strong|b)>`)
	htmlEm     = regexp.MustCompile(`</?(?:em|i)>`)
	htmlTags   = regexp.MustCompile(`<[^>]+>`)
)

// FormatForThread converts a widget transcript message into Slack markup with
// a sender prefix, for relaying into the support thread.
func FormatForThread(text, sender string) string {
	formatted := htmlBreaks.ReplaceAllString(text, "\n")
	formatted = htmlStrong.ReplaceAllString(formatted, "*")
	formatted = htmlEm.ReplaceAllString(formatted, "_")
	formatted = htmlTags.ReplaceAllString(formatted, "")
	formatted = strings.TrimSpace(formatted)

	// Only true customer messages get the customer prefix; bot and agent
	// relays both read as the service's side of the conversation.
	if sender == "user" {
		return "👤 **Customer:** " + formatted
	}
	return "🤖 **Bot:** " + formatted
}

// Package messaging defines the messaging platform interface used for human
// handoff threads.
package messaging

import "context"

// PostResult describes a delivered platform message.
type PostResult struct {
	// TS is the platform timestamp id of the posted message.
	TS string
	// Channel is the resolved channel id.
	Channel string
}

// Client defines the messaging platform operations.
type Client interface {
	// PostMessage posts text to a channel. A non-empty threadTS posts into
	// that thread.
	PostMessage(ctx context.Context, channel, text, threadTS string) (*PostResult, error)

	// OpenThread posts a channel notice and a detail reply under it,
	// returning the notice's ts. That ts is the thread id all later
	// messages are relayed into and the webhook resolves back from.
	OpenThread(ctx context.Context, channel, notice, detail string) (string, error)
}

// Package store persists conversation turns across agent calls, keyed by
// the chat ID carried in the context.
package store

import (
	"context"

	"github.com/effective-security/xlog"
	"github.com/stormwatch/agentic/pkg/llms"
)

var logger = xlog.NewPackageLogger("github.com/stormwatch/agentic", "store")

// MessageStore keeps the durable conversation history for a chat. The chat
// is identified by chatmodel.GetChatID on the context; an empty chat ID
// addresses a shared default thread.
type MessageStore interface {
	// Messages returns the stored history in insertion order.
	Messages(ctx context.Context) ([]llms.Message, error)
	// Add appends turns to the history.
	Add(ctx context.Context, msgs ...llms.Message) error
	// Reset removes the chat's history.
	Reset(ctx context.Context) error
}

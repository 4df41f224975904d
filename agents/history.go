package agents

import (
	"github.com/effective-security/xlog"
	"github.com/stormwatch/agentic/pkg/llms"
)

// NormalizeHistory returns a copy of the caller's conversation history with
// malformed turns dropped: unknown roles and turns without content. The
// caller's slice is never mutated.
func NormalizeHistory(history []llms.Message) []llms.Message {
	if len(history) == 0 {
		return nil
	}
	res := make([]llms.Message, 0, len(history))
	for _, m := range history {
		if !llms.KnownRole(m.Role) || len(m.Parts) == 0 {
			logger.KV(xlog.WARNING,
				"status", "history_turn_dropped",
				"role", string(m.Role),
				"parts", len(m.Parts),
			)
			continue
		}
		res = append(res, m)
	}
	return res
}

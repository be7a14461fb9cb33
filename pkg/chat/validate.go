package chat

import (
	"strings"

	"github.com/pario-ai/folio/pkg/models"
)

// Request limits.
const (
	MaxMessages     = 100
	MaxContentBytes = 32 << 10
)

// Validate checks a conversation before any downstream call is made.
func Validate(msgs []models.ChatMessage) error {
	if len(msgs) == 0 {
		return invalid("messages must not be empty")
	}
	if len(msgs) > MaxMessages {
		return invalid("too many messages: %d (max %d)", len(msgs), MaxMessages)
	}
	for i, m := range msgs {
		if m.Role != models.RoleUser && m.Role != models.RoleAssistant {
			return invalid("message %d: unsupported role %q", i, m.Role)
		}
		if len(m.Content) > MaxContentBytes {
			return invalid("message %d: content exceeds %d bytes", i, MaxContentBytes)
		}
	}
	last := msgs[len(msgs)-1]
	if last.Role != models.RoleUser {
		return invalid("last message must have role %q", models.RoleUser)
	}
	if strings.TrimSpace(last.Content) == "" {
		return invalid("last message must not be blank")
	}
	return nil
}

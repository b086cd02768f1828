package turn

import (
	"encoding/json"
	"strings"

	"github.com/cloudwego/eino/schema"
	log "github.com/sirupsen/logrus"
)

type clientHistoryEntry struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ParseClientHistory decodes the transcript an anonymous client sends along.
// "bot" is accepted as an alias for the assistant; entries with another role or
// without content are dropped. Malformed JSON yields no history.
func ParseClientHistory(raw string) []*schema.Message {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	var entries []clientHistoryEntry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		log.WithError(err).Debug("ignoring malformed client history")
		return nil
	}

	out := make([]*schema.Message, 0, len(entries))
	for _, e := range entries {
		if e.Content == "" {
			continue
		}
		switch strings.ToLower(e.Role) {
		case "user":
			out = append(out, schema.UserMessage(e.Content))
		case "assistant", "bot":
			out = append(out, schema.AssistantMessage(e.Content, nil))
		}
	}
	return out
}

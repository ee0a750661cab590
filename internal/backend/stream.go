package backend

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// doneSentinel closes an SSE stream explicitly.
const doneSentinel = "[DONE]"

// AssistantMessage is one complete assistant turn.
type AssistantMessage struct {
	Content  string         `json:"content"`
	Role     string         `json:"role"`
	IsFinal  bool           `json:"is_final"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// streamEvent is one incremental SSE record from the assistant.
type streamEvent struct {
	Content  string         `json:"content"`
	IsFinal  bool           `json:"is_final"`
	Metadata map[string]any `json:"metadata"`
}

// Accumulate reduces an SSE event stream to one assistant message. Text
// fragments are concatenated and trimmed, the final flag and metadata come
// from the event that carries is_final. Undecodable events are skipped, a
// [DONE] sentinel ends the stream, and a stream that closes without a final
// event yields IsFinal=false for the caller to interpret.
func Accumulate(r io.Reader) (AssistantMessage, error) {
	msg := AssistantMessage{Role: "assistant"}

	var content strings.Builder
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimPrefix(line, "data: ")
		if data == doneSentinel {
			break
		}

		var evt streamEvent
		if err := json.Unmarshal([]byte(data), &evt); err != nil {
			continue
		}
		content.WriteString(evt.Content)
		if evt.IsFinal {
			msg.IsFinal = true
			msg.Metadata = evt.Metadata
		}
	}
	if err := scanner.Err(); err != nil {
		return AssistantMessage{}, fmt.Errorf("backend: reading assistant stream: %w", err)
	}

	msg.Content = strings.TrimSpace(content.String())
	return msg, nil
}

package backend

import (
	"bufio"
	"encoding/json"
	"io"
	"strings"

	"github.com/ragscout/ragscout/pkg/contracts"
	"github.com/ragscout/ragscout/pkg/models"
)

// eventStream reads server-sent events from the agent endpoint and yields
// them one at a time. Unknown event types pass through untouched; the
// consumer decides what to ignore.
type eventStream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
}

func newEventStream(body io.ReadCloser) *eventStream {
	sc := bufio.NewScanner(body)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &eventStream{body: body, scanner: sc}
}

// Next returns the next event, or io.EOF when the stream ends.
func (s *eventStream) Next() (*models.AgentEvent, error) {
	event := &models.AgentEvent{}
	var data strings.Builder

	for s.scanner.Scan() {
		line := s.scanner.Text()
		switch {
		case line == "":
			// Blank line terminates one SSE event.
			if event.Type != "" || data.Len() > 0 {
				event.Payload = json.RawMessage(data.String())
				if event.Type == "" {
					event.Type = "message"
				}
				return event, nil
			}
		case strings.HasPrefix(line, "event:"):
			event.Type = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(strings.TrimSpace(strings.TrimPrefix(line, "data:")))
		case strings.HasPrefix(line, ":"):
			// SSE comment, skip.
		}
	}
	if err := s.scanner.Err(); err != nil {
		return nil, err
	}
	if event.Type != "" || data.Len() > 0 {
		event.Payload = json.RawMessage(data.String())
		if event.Type == "" {
			event.Type = "message"
		}
		return event, nil
	}
	return nil, io.EOF
}

func (s *eventStream) Close() error {
	return s.body.Close()
}

// Collect drains an agent stream into its final outcome. Message chunks
// accumulate into the running answer until a final_answer event replaces
// it; citations and the conversation ID are authoritative when present.
// Events of unknown type are ignored without error.
func Collect(stream contracts.AgentStream) (*models.AgentOutcome, error) {
	defer stream.Close()

	outcome := &models.AgentOutcome{}
	var running strings.Builder

	for {
		ev, err := stream.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		switch ev.Type {
		case models.AgentEventMessage:
			var chunk struct {
				Content string `json:"content"`
				Delta   string `json:"delta"`
			}
			if json.Unmarshal(ev.Payload, &chunk) == nil {
				if chunk.Content != "" {
					running.WriteString(chunk.Content)
				} else {
					running.WriteString(chunk.Delta)
				}
			} else {
				// Plain-text data lines still count as answer content.
				running.WriteString(strings.Trim(string(ev.Payload), `"`))
			}
		case models.AgentEventFinalAnswer:
			var final struct {
				Answer         string `json:"generated_answer"`
				ConversationID string `json:"conversation_id"`
			}
			if json.Unmarshal(ev.Payload, &final) == nil {
				if final.Answer != "" {
					outcome.Answer = final.Answer
				}
				if final.ConversationID != "" {
					outcome.ConversationID = final.ConversationID
				}
			}
		case models.AgentEventCitation:
			var cite models.Source
			if json.Unmarshal(ev.Payload, &cite) == nil && cite.Text != "" {
				outcome.Citations = append(outcome.Citations, cite)
			}
		case models.AgentEventThinking:
			var think struct {
				Content string `json:"content"`
			}
			if json.Unmarshal(ev.Payload, &think) == nil && think.Content != "" {
				outcome.Thinking = append(outcome.Thinking, think.Content)
			}
		case models.AgentEventToolCall, models.AgentEventToolResult:
			// Observable but not accumulated.
		default:
			// Unknown event types are tolerated.
		}
	}

	if outcome.Answer == "" {
		outcome.Answer = running.String()
	}
	return outcome, nil
}

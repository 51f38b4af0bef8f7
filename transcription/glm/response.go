package glm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kbukum/asrkit/transcription"
)

// responseKind tags which of the service's response shapes was received.
type responseKind int

const (
	kindEmpty responseKind = iota
	kindRich
	kindChat
	kindFlat
)

// rawResponse covers every field of the shapes the service returns. Pointer
// fields distinguish "absent" from "empty".
type rawResponse struct {
	Text     *string      `json:"text"`
	Segments []rawSegment `json:"segments"`
	Language string       `json:"language"`
	Choices  []struct {
		Message struct {
			Content json.RawMessage `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Content *string `json:"content"`
}

type rawSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

func (r *rawResponse) kind() responseKind {
	switch {
	case r.Text != nil:
		return kindRich
	case len(r.Choices) > 0:
		return kindChat
	case r.Content != nil && *r.Content != "":
		return kindFlat
	default:
		return kindEmpty
	}
}

// decodeResponse normalizes the rich {text, segments} shape, the chat
// {choices[0].message.content} shape and the flat {content} shape into an
// Outcome. Unrecognized JSON objects yield an empty outcome.
func decodeResponse(body []byte) (*transcription.Outcome, error) {
	var raw rawResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("glm: decode response: %w", err)
	}

	switch raw.kind() {
	case kindRich:
		out := &transcription.Outcome{Text: *raw.Text, Language: raw.Language}
		if len(raw.Segments) > 0 {
			out.Segments = make([]transcription.Segment, len(raw.Segments))
			for i, s := range raw.Segments {
				out.Segments[i] = transcription.Segment{Start: s.Start, End: s.End, Text: s.Text}
			}
		}
		return out, nil
	case kindChat:
		return &transcription.Outcome{Text: contentText(raw.Choices[0].Message.Content)}, nil
	case kindFlat:
		return &transcription.Outcome{Text: *raw.Content}, nil
	default:
		return &transcription.Outcome{}, nil
	}
}

// contentText reads a chat message content that is either a string or a
// list of typed parts, keeping the text parts.
func contentText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var parts []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &parts); err != nil {
		return ""
	}
	var b strings.Builder
	for _, p := range parts {
		if p.Type == "" || p.Type == "text" {
			b.WriteString(p.Text)
		}
	}
	return b.String()
}

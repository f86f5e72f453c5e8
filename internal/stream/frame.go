package stream

import (
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/kriviai/chat-web/internal/logger"
)

const (
	// dataPrefix is the SSE event-data marker used by the chat API.
	dataPrefix = "data:"

	// doneSentinel is the literal meaning "no more data". It arrives either
	// bare or prefixed by the data marker.
	doneSentinel = "[DONE]"
)

// FrameKind classifies one decoded logical unit from the stream.
type FrameKind int

const (
	// FrameContentDelta carries a piece of assistant output, possibly empty.
	FrameContentDelta FrameKind = iota
	// FrameSessionInfo carries the chat ID assigned by the remote service.
	FrameSessionInfo
	// FrameUsageSummary carries end-of-turn token accounting.
	FrameUsageSummary
	// FrameTerminator marks a blank line or a termination sentinel.
	FrameTerminator
	// FrameUnparseable marks a line the parser could not use. Not an error:
	// the wire format allows noise, and the stream continues.
	FrameUnparseable
)

func (k FrameKind) String() string {
	switch k {
	case FrameContentDelta:
		return "content_delta"
	case FrameSessionInfo:
		return "session_info"
	case FrameUsageSummary:
		return "usage_summary"
	case FrameTerminator:
		return "terminator"
	case FrameUnparseable:
		return "unparseable"
	}
	return "unknown"
}

// TokenUsage is the token accounting reported by a usage_summary frame.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Frame is one classified logical line. Frames are transient: created per
// line, consumed immediately, never retained.
type Frame struct {
	Kind    FrameKind
	Content string      // set for FrameContentDelta
	ChatID  string      // set for FrameSessionInfo
	Usage   *TokenUsage // set for FrameUsageSummary when usage fields parse
	Raw     string      // the original line, for relaying and diagnostics
}

// framePayload is the superset of all JSON payload shapes on the wire.
type framePayload struct {
	Type    string      `json:"type"`
	ChatID  string      `json:"chatId"`
	Content *string     `json:"content"`
	Usage   *TokenUsage `json:"usage"`
}

// ParseFrame classifies one logical line.
//
// Blank lines and termination sentinels are terminators. Lines without the
// data marker, and marker lines whose payload fails to decode or matches no
// known shape, are unparseable; decode failures are logged and skipped, never
// surfaced, so a single malformed frame cannot abort the stream.
func ParseFrame(line string, log *logger.Logger) Frame {
	clean := strings.TrimSpace(line)

	if clean == "" || clean == doneSentinel || clean == dataPrefix+" "+doneSentinel {
		return Frame{Kind: FrameTerminator, Raw: line}
	}

	if !strings.HasPrefix(clean, dataPrefix) {
		return Frame{Kind: FrameUnparseable, Raw: line}
	}

	data := strings.TrimSpace(strings.TrimPrefix(clean, dataPrefix))
	if data == doneSentinel {
		return Frame{Kind: FrameTerminator, Raw: line}
	}

	var payload framePayload
	if err := json.Unmarshal([]byte(data), &payload); err != nil {
		if log != nil {
			log.Warn("skipping malformed stream frame",
				slog.String("error", err.Error()),
				slog.String("data", truncateForLog(data)))
		}
		return Frame{Kind: FrameUnparseable, Raw: line}
	}

	switch {
	case payload.Type == "session_info" && payload.ChatID != "":
		return Frame{Kind: FrameSessionInfo, ChatID: payload.ChatID, Raw: line}

	case payload.Type == "usage_summary":
		return Frame{Kind: FrameUsageSummary, Usage: payload.Usage, Raw: line}

	case payload.Content != nil:
		// An empty-string delta is a valid no-op append.
		return Frame{Kind: FrameContentDelta, Content: *payload.Content, Raw: line}
	}

	return Frame{Kind: FrameUnparseable, Raw: line}
}

// truncateForLog caps payload echoes in diagnostics.
func truncateForLog(s string) string {
	const max = 200
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

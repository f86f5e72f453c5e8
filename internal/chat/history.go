package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/kriviai/chat-web/internal/conversation"
	"github.com/kriviai/chat-web/internal/logger"
	"github.com/kriviai/chat-web/internal/telemetry"
)

// HistoryClient loads per-conversation message history from the chat API.
type HistoryClient struct {
	client  *http.Client
	baseURL string
	limit   int
	logger  *logger.Logger
}

// NewHistoryClient creates a history client against the chat API base URL.
func NewHistoryClient(client *http.Client, baseURL string, limit int, log *logger.Logger) *HistoryClient {
	if client == nil {
		client = http.DefaultClient
	}
	if limit <= 0 {
		limit = 50
	}
	return &HistoryClient{
		client:  client,
		baseURL: baseURL,
		limit:   limit,
		logger:  log.WithComponent("history_client"),
	}
}

// historyMessage is one history entry on the wire. The id is optional.
type historyMessage struct {
	ID      string `json:"id"`
	Role    string `json:"role"`
	Content string `json:"content"`
}

// historyEnvelope covers the two wrapped payload shapes the API is known to
// produce. The third shape is a bare top-level array.
type historyEnvelope struct {
	Messages    []historyMessage `json:"messages"`
	ChatHistory []historyMessage `json:"chatHistory"`
}

// Load fetches up to the configured limit of messages for a chat. The cookie
// carries the caller's credentials. A failed load is an error for the caller
// to degrade on; the conversation view still mounts with empty history.
func (h *HistoryClient) Load(ctx context.Context, chatID, cookie string) ([]conversation.Message, error) {
	url := fmt.Sprintf("%s/api/chat/%s/history?limit=%d", h.baseURL, chatID, h.limit)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build history request: %w", err)
	}
	req.Header.Set("Cache-Control", "no-cache")
	if cookie != "" {
		req.Header.Set("Cookie", cookie)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		telemetry.ObserveHistoryLoad("error")
		return nil, &NetworkError{Op: "history load", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		telemetry.ObserveHistoryLoad("error")
		h.logger.WithContext(ctx).Error("history load rejected",
			slog.String("chat_id", chatID),
			slog.Int("status", resp.StatusCode))
		return nil, &APIStatusError{StatusCode: resp.StatusCode, Status: resp.Status, Body: string(snippet)}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		telemetry.ObserveHistoryLoad("error")
		return nil, &NetworkError{Op: "history read", Err: err}
	}

	entries, err := decodeHistory(raw)
	if err != nil {
		telemetry.ObserveHistoryLoad("error")
		return nil, err
	}

	messages := make([]conversation.Message, 0, len(entries))
	for i, e := range entries {
		id := e.ID
		if id == "" {
			// History entries may arrive without ids; synthesize stable-ish
			// ones so the UI can key on them.
			id = fmt.Sprintf("hist-%s-%d-%s", chatID, i, uuid.NewString()[:8])
		}
		messages = append(messages, conversation.Message{
			ID:      id,
			Role:    conversation.Role(e.Role),
			Content: e.Content,
		})
	}

	telemetry.ObserveHistoryLoad("ok")
	h.logger.WithContext(ctx).Info("history loaded",
		slog.String("chat_id", chatID),
		slog.Int("messages", len(messages)))
	return messages, nil
}

// decodeHistory accepts all three payload shapes: a bare array, or an object
// wrapping the array under "messages" or "chatHistory".
func decodeHistory(raw []byte) ([]historyMessage, error) {
	var direct []historyMessage
	if err := json.Unmarshal(raw, &direct); err == nil {
		return direct, nil
	}

	var envelope historyEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("unexpected history payload shape: %w", err)
	}

	if envelope.Messages != nil {
		return envelope.Messages, nil
	}
	if envelope.ChatHistory != nil {
		return envelope.ChatHistory, nil
	}

	return nil, nil
}

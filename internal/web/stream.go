package web

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kriviai/chat-web/internal/chat"
	"github.com/kriviai/chat-web/internal/conversation"
	"github.com/kriviai/chat-web/internal/errors"
	"github.com/kriviai/chat-web/internal/logger"
	"github.com/kriviai/chat-web/internal/stream"
)

// streamSubmission is the browser's submission payload.
type streamSubmission struct {
	ChatID   string `json:"chatId"`
	Message  string `json:"message"`
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

// StreamChat runs one controller turn against the upstream completion
// endpoint and re-emits its frames to the browser as SSE. The downstream
// wire format mirrors the upstream one: data-marked JSON lines, a
// session_info frame when a new conversation gets its ID, and a [DONE]
// sentinel at the end.
func (h *Handler) StreamChat(c *gin.Context) {
	if _, ok := h.gate.RequireUser(c, h.cfg.LoginPath); !ok {
		return
	}

	var sub streamSubmission
	if err := c.ShouldBindJSON(&sub); err != nil {
		errors.BadRequest(c, "Invalid request body", nil)
		return
	}
	if sub.Message == "" {
		errors.BadRequest(c, "Message must not be empty", nil)
		return
	}

	// Unknown models fall back to the catalog default rather than erroring,
	// so a stale client keeps working after a catalog change.
	if !h.cfg.ModelCatalog.Contains(sub.Provider, sub.Model) {
		def := h.cfg.ModelCatalog.Default()
		sub.Provider = def.Provider
		sub.Model = def.Model
	}

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		errors.Internal(c, "Streaming unsupported", nil)
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Writer.WriteHeader(http.StatusOK)

	ctx := logger.WithChatID(c.Request.Context(), sub.ChatID)
	log := h.logger.WithContext(ctx)

	relay := func(frame stream.Frame) {
		switch frame.Kind {
		case stream.FrameContentDelta, stream.FrameSessionInfo, stream.FrameUsageSummary:
			// Forward the original line verbatim; noise and terminators are
			// dropped, the relay appends its own sentinel.
			fmt.Fprintf(c.Writer, "%s\n", frame.Raw)
			flusher.Flush()
		}
	}

	assembler := conversation.NewAssembler(nil)
	controller := chat.NewController(chat.Options{
		StreamURL:   h.cfg.ChatAPIBaseURL + "/api/chat/stream",
		Client:      h.client,
		Cookie:      c.GetHeader("Cookie"),
		ReadTimeout: h.cfg.StreamReadTimeout,
		OnFrame:     relay,
	}, assembler, h.logger)

	if err := controller.Submit(ctx, chat.SubmitRequest{
		ChatID:   sub.ChatID,
		Message:  sub.Message,
		Provider: sub.Provider,
		Model:    sub.Model,
	}); err != nil {
		log.Error("chat turn failed", slog.String("error", err.Error()))
		fmt.Fprintf(c.Writer, "data: {\"error\": \"upstream_error\", \"message\": %q}\n", err.Error())
	}

	fmt.Fprint(c.Writer, "data: [DONE]\n")
	flusher.Flush()
}

package web

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kriviai/chat-web/internal/authgate"
	"github.com/kriviai/chat-web/internal/chat"
	"github.com/kriviai/chat-web/internal/config"
	"github.com/kriviai/chat-web/internal/conversation"
	"github.com/kriviai/chat-web/internal/errors"
	"github.com/kriviai/chat-web/internal/logger"
)

// Handler serves the page-level view models and the chat stream relay.
// Every protected view calls the auth gate in its data-loading step before
// producing any body.
type Handler struct {
	cfg     *config.Config
	gate    *authgate.Service
	history *chat.HistoryClient
	client  *http.Client
	logger  *logger.Logger
}

// NewHandler wires the web surface.
func NewHandler(cfg *config.Config, gate *authgate.Service, history *chat.HistoryClient, client *http.Client, log *logger.Logger) *Handler {
	if client == nil {
		client = http.DefaultClient
	}
	return &Handler{
		cfg:     cfg,
		gate:    gate,
		history: history,
		client:  client,
		logger:  log.WithComponent("web"),
	}
}

// chatViewModel is the data a conversation view renders from. A history load
// failure degrades to an inline error; the view still mounts.
type chatViewModel struct {
	ChatID   string                 `json:"chatId,omitempty"`
	Messages []conversation.Message `json:"messages"`
	Error    string                 `json:"error,omitempty"`
	User     json.RawMessage        `json:"user"`
	Models   []config.ModelConfig   `json:"models"`
}

// loginViewModel is the data the login view renders from.
type loginViewModel struct {
	GoogleLoginURL string `json:"googleLoginUrl"`
}

// NewChatView serves the new-conversation view: no chat ID, empty history.
func (h *Handler) NewChatView(c *gin.Context) {
	user, ok := h.gate.RequireUser(c, h.cfg.LoginPath)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, chatViewModel{
		Messages: []conversation.Message{},
		User:     user,
		Models:   h.cfg.ModelCatalog.Models,
	})
}

// ChatView serves an existing conversation identified by an opaque id in the
// path, with its history preloaded.
func (h *Handler) ChatView(c *gin.Context) {
	user, ok := h.gate.RequireUser(c, h.cfg.LoginPath)
	if !ok {
		return
	}

	chatID := c.Param("chatId")
	if chatID == "" {
		errors.NotFound(c, "Chat ID not found.", nil)
		return
	}

	ctx := logger.WithChatID(c.Request.Context(), chatID)
	model := chatViewModel{
		ChatID:   chatID,
		Messages: []conversation.Message{},
		User:     user,
		Models:   h.cfg.ModelCatalog.Models,
	}

	messages, err := h.history.Load(ctx, chatID, c.GetHeader("Cookie"))
	if err != nil {
		// Degrade to an empty conversation with an inline error rather than
		// blocking the view entirely.
		h.logger.WithContext(ctx).Error("history load failed", slog.String("error", err.Error()))
		model.Error = "Failed to load history: " + err.Error()
	} else {
		model.Messages = messages
	}

	c.JSON(http.StatusOK, model)
}

// LoginView serves the login view, unless the user is already authenticated
// (or becomes authenticated via a successful refresh), in which case they are
// redirected away.
func (h *Handler) LoginView(c *gin.Context) {
	if h.gate.PreventAuthenticatedUser(c, "/") {
		return
	}

	c.JSON(http.StatusOK, loginViewModel{
		GoogleLoginURL: h.cfg.GoogleLoginURL,
	})
}

// Logout relays the auth service's clearing credential headers alongside a
// redirect to the login destination.
func (h *Handler) Logout(c *gin.Context) {
	h.gate.LogoutAndRedirect(c, h.cfg.LoginPath)
}

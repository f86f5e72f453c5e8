package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kriviai/chat-web/internal/conversation"
	"github.com/kriviai/chat-web/internal/logger"
	"github.com/kriviai/chat-web/internal/stream"
	"github.com/kriviai/chat-web/internal/telemetry"
)

// State is the lifecycle of a controller across one turn.
type State int32

const (
	StateIdle State = iota
	StateSubmitting
	StateStreaming
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSubmitting:
		return "submitting"
	case StateStreaming:
		return "streaming"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// DefaultReadTimeout bounds one whole turn against an unresponsive upstream.
const DefaultReadTimeout = 5 * time.Minute

// streamReadBufferSize is the chunk size for upstream body reads.
const streamReadBufferSize = 32 * 1024

// NewChatFunc receives the chat ID assigned by the remote service, together
// with the finalized user/assistant message pair of the turn that produced
// it. Called exactly once, and only for a conversation that had no ID before.
type NewChatFunc func(chatID string, messages []conversation.Message)

// FrameFunc observes every classified frame as it is consumed, e.g. to relay
// content deltas to a downstream client.
type FrameFunc func(frame stream.Frame)

// SubmitRequest is one user submission.
type SubmitRequest struct {
	ChatID   string
	Message  string
	Provider string
	Model    string
}

// streamRequest is the wire shape sent to the completion stream endpoint.
type streamRequest struct {
	Message  string `json:"message"`
	Provider string `json:"provider"`
	Model    string `json:"model"`
	ChatID   string `json:"chatId,omitempty"`
}

// Options configures a Controller.
type Options struct {
	// StreamURL is the chat-completion stream endpoint.
	StreamURL string

	// Client issues the upstream request. A cookie header, when set, is
	// attached so the remote service sees the caller's credentials.
	Client *http.Client

	// Cookie is the inbound request's credential material, relayed upstream.
	Cookie string

	// ReadTimeout bounds the whole turn. Zero means DefaultReadTimeout.
	// Expiry is a failed transition with a network-error classification.
	ReadTimeout time.Duration

	// OnNewChat, when set, is invoked once at completion if the stream
	// assigned a chat ID to a previously unpersisted conversation.
	OnNewChat NewChatFunc

	// OnFrame, when set, observes every frame.
	OnFrame FrameFunc
}

// Controller orchestrates one submit-to-completion cycle: it sends the
// request, drives the splitter/parser/assembler pipeline, tracks state, and
// surfaces a newly assigned conversation ID exactly once.
//
// The controller is the sole writer of its assembler while a turn is in
// flight; concurrent submissions are rejected until the turn resolves.
type Controller struct {
	opts      Options
	assembler *conversation.Assembler
	logger    *logger.Logger

	mu    sync.Mutex
	state State
	err   error

	// detached is the liveness flag: once set, no further state mutations
	// are applied on behalf of a torn-down consumer.
	detached atomic.Bool
}

// NewController creates a controller bound to one conversation's assembler.
func NewController(opts Options, assembler *conversation.Assembler, log *logger.Logger) *Controller {
	if opts.Client == nil {
		opts.Client = http.DefaultClient
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = DefaultReadTimeout
	}
	return &Controller{
		opts:      opts,
		assembler: assembler,
		logger:    log.WithComponent("chat_controller"),
		state:     StateIdle,
	}
}

// State returns the controller's current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Err returns the error of the last turn, if it failed.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Detach stops the controller from applying further message mutations or
// emitting callbacks. Used when the consuming view goes away mid-stream.
func (c *Controller) Detach() {
	c.detached.Store(true)
}

func (c *Controller) live() bool {
	return !c.detached.Load()
}

// setState transitions the state machine, clearing or recording the error.
func (c *Controller) setState(s State, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = s
	c.err = err
}

// Submit runs one full turn. It appends the user message and an assistant
// placeholder, opens the upstream stream, and consumes it to completion.
//
// The returned error mirrors the failed state; it is never an unhandled
// surprise for the caller - the placeholder has already been error-replaced
// where the policy calls for it.
func (c *Controller) Submit(ctx context.Context, req SubmitRequest) error {
	if strings.TrimSpace(req.Message) == "" {
		return ErrEmptyMessage
	}

	// Duplicate-submission guard: input is inert while a turn is in flight.
	c.mu.Lock()
	if c.state == StateSubmitting || c.state == StateStreaming {
		c.mu.Unlock()
		return ErrTurnInFlight
	}
	c.state = StateSubmitting
	c.err = nil
	c.mu.Unlock()

	// Placeholder before the network call, so loading UI has an anchor.
	userID := c.assembler.AppendUser(req.Message)
	placeholderID := c.assembler.BeginAssistantTurn()

	turnErr := c.runTurn(ctx, req, userID, placeholderID)

	// Guaranteed-run finalizer: the turn always resolves and the in-flight
	// marker is always cleared, regardless of exit path.
	c.assembler.EndTurn()
	if turnErr != nil {
		c.setState(StateFailed, turnErr)
		telemetry.ObserveTurn("failed")
	} else {
		c.setState(StateCompleted, nil)
		telemetry.ObserveTurn("completed")
	}

	return turnErr
}

func (c *Controller) runTurn(ctx context.Context, req SubmitRequest, userID, placeholderID string) error {
	log := c.logger.WithContext(ctx)

	ctx, cancel := context.WithTimeout(ctx, c.opts.ReadTimeout)
	defer cancel()

	body, err := json.Marshal(streamRequest{
		Message:  req.Message,
		Provider: req.Provider,
		Model:    req.Model,
		ChatID:   req.ChatID,
	})
	if err != nil {
		return fmt.Errorf("failed to encode stream request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opts.StreamURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build stream request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.opts.Cookie != "" {
		httpReq.Header.Set("Cookie", c.opts.Cookie)
	}

	log.Info("starting chat turn",
		slog.String("chat_id", req.ChatID),
		slog.String("provider", req.Provider),
		slog.String("model", req.Model))

	resp, err := c.opts.Client.Do(httpReq)
	if err != nil {
		netErr := &NetworkError{Op: "chat stream request", Err: err}
		c.replaceWithError(placeholderID, turnErrorText(netErr))
		return netErr
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		apiErr := &APIStatusError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(snippet),
		}
		log.Error("chat stream request rejected",
			slog.Int("status", resp.StatusCode),
			slog.String("chat_id", req.ChatID))
		c.replaceWithError(placeholderID, fmt.Sprintf("Sorry, I encountered an error: %s. Please try again.", resp.Status))
		return apiErr
	}

	c.setState(StateStreaming, nil)

	newChatID, readErr := c.consumeStream(ctx, resp.Body, req, placeholderID, log)
	if readErr != nil {
		// Only clobber the placeholder if nothing streamed yet; partial
		// successful output stays intact and the error is surfaced via the
		// failed state instead.
		if msg, ok := c.assembler.Message(placeholderID); ok && msg.Content == "" {
			c.replaceWithError(placeholderID, turnErrorText(readErr))
		}
		return readErr
	}

	log.Info("chat turn completed",
		slog.String("chat_id", req.ChatID),
		slog.String("new_chat_id", newChatID))

	// A new conversation became addressable: emit the assigned ID exactly
	// once, with the finalized pair at its current content.
	if newChatID != "" && req.ChatID == "" && c.opts.OnNewChat != nil && c.live() {
		userMsg, okUser := c.assembler.Message(userID)
		assistantMsg, okAssistant := c.assembler.Message(placeholderID)
		if okUser && okAssistant {
			c.opts.OnNewChat(newChatID, []conversation.Message{userMsg, assistantMsg})
		}
	}

	return nil
}

// consumeStream drives the splitter/parser pipeline over the response body
// until the stream signals completion. Returns the chat ID captured from a
// session_info frame, if any.
func (c *Controller) consumeStream(ctx context.Context, body io.Reader, req SubmitRequest, placeholderID string, log *logger.Logger) (string, error) {
	splitter := stream.NewLineSplitter()
	buf := make([]byte, streamReadBufferSize)

	var newChatID string
	var usage *stream.TokenUsage

	handleLine := func(line string) {
		frame := stream.ParseFrame(line, log)
		telemetry.ObserveFrame(frame.Kind)

		if c.opts.OnFrame != nil && c.live() {
			c.opts.OnFrame(frame)
		}

		switch frame.Kind {
		case stream.FrameContentDelta:
			// An empty delta is a permitted no-op append.
			if c.live() {
				c.assembler.AppendToAssistant(placeholderID, frame.Content)
			}

		case stream.FrameSessionInfo:
			// Capture the assigned ID exactly once; never overwrite the
			// ID of a resumed conversation.
			if req.ChatID == "" && newChatID == "" {
				newChatID = frame.ChatID
				log.Info("captured new chat id from stream",
					slog.String("new_chat_id", newChatID))
			}

		case stream.FrameUsageSummary:
			usage = frame.Usage

		case stream.FrameTerminator, stream.FrameUnparseable:
			// Ignored; reading continues until the stream ends.
		}
	}

	for {
		n, err := body.Read(buf)
		if n > 0 {
			for _, line := range splitter.Push(string(buf[:n])) {
				handleLine(line)
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return newChatID, &NetworkError{Op: "chat stream read", Err: ctxErr}
			}
			return newChatID, &NetworkError{Op: "chat stream read", Err: err}
		}
	}

	if line, ok := splitter.Flush(); ok {
		handleLine(line)
	}

	telemetry.ObserveUsage(usage)
	return newChatID, nil
}

func (c *Controller) replaceWithError(placeholderID, text string) {
	if !c.live() {
		return
	}
	c.assembler.ReplaceAssistantWithError(placeholderID, text)
}

// turnErrorText renders a short user-facing apology for a failed turn.
func turnErrorText(err error) string {
	return fmt.Sprintf("Sorry, an unexpected error occurred: %v. Please try again.", err)
}

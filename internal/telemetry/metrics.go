package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/kriviai/chat-web/internal/stream"
)

var (
	turnsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_turns_total",
		Help: "Chat turns by final state.",
	}, []string{"state"})

	framesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_stream_frames_total",
		Help: "Stream frames by kind.",
	}, []string{"kind"})

	tokensTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_tokens_total",
		Help: "Tokens reported by usage summaries.",
	}, []string{"type"})

	authDecisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_decisions_total",
		Help: "Auth gate decisions by status.",
	}, []string{"status"})

	historyLoadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_history_loads_total",
		Help: "History loads by outcome.",
	}, []string{"outcome"})
)

// ObserveTurn records the final state of one chat turn ("completed" or "failed").
func ObserveTurn(state string) {
	turnsTotal.WithLabelValues(state).Inc()
}

// ObserveFrame records one classified stream frame.
func ObserveFrame(kind stream.FrameKind) {
	framesTotal.WithLabelValues(kind.String()).Inc()
}

// ObserveUsage records the token accounting of a usage_summary frame.
// Usage summaries are telemetry only; they never mutate displayed messages.
func ObserveUsage(usage *stream.TokenUsage) {
	if usage == nil {
		return
	}
	tokensTotal.WithLabelValues("prompt").Add(float64(usage.PromptTokens))
	tokensTotal.WithLabelValues("completion").Add(float64(usage.CompletionTokens))
}

// ObserveAuthDecision records one auth gate decision.
func ObserveAuthDecision(status string) {
	authDecisionsTotal.WithLabelValues(status).Inc()
}

// ObserveHistoryLoad records one history load ("ok" or "error").
func ObserveHistoryLoad(outcome string) {
	historyLoadsTotal.WithLabelValues(outcome).Inc()
}

package authgate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/kriviai/chat-web/internal/logger"
	"github.com/kriviai/chat-web/internal/telemetry"
)

// Status is the per-request authentication state decided by the remote
// auth-check collaborator.
type Status string

const (
	StatusAuthenticated   Status = "authenticated"
	StatusRefreshRequired Status = "refresh_required"
	StatusLoginRequired   Status = "login_required"
)

// Decision is the outcome of one auth check, including any renewed
// credential headers to attach to a redirect response.
type Decision struct {
	Status            Status
	Reason            string
	User              json.RawMessage
	CredentialHeaders []string
}

// checkResponse is the auth-check endpoint's payload.
type checkResponse struct {
	Status Status          `json:"status"`
	Reason string          `json:"reason"`
	User   json.RawMessage `json:"user"`
}

// Options configures the gate's remote endpoints.
type Options struct {
	CheckURL   string
	RefreshURL string
	LogoutURL  string
}

// Service gates protected views behind the check -> refresh -> redirect
// protocol. It holds no shared mutable state; every decision is independent
// and derives only from the inbound credential material.
//
// Failure semantics are fail closed: any network or parsing failure talking
// to the auth service resolves to login, never to authenticated.
type Service struct {
	opts   Options
	client *http.Client
	logger *logger.Logger
}

// NewService creates an auth gate against the given endpoints.
func NewService(opts Options, client *http.Client, log *logger.Logger) *Service {
	if client == nil {
		client = http.DefaultClient
	}
	return &Service{
		opts:   opts,
		client: client,
		logger: log.WithComponent("authgate"),
	}
}

// Check performs one auth-check call. Fails closed to login_required.
func (s *Service) Check(ctx context.Context, cookie string) Decision {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.opts.CheckURL, nil)
	if err != nil {
		return Decision{Status: StatusLoginRequired, Reason: "bad_check_request"}
	}
	req.Header.Set("Cache-Control", "no-store")
	if cookie != "" {
		req.Header.Set("Cookie", cookie)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.WithContext(ctx).Error("auth check unreachable", slog.String("error", err.Error()))
		return Decision{Status: StatusLoginRequired, Reason: "network_error"}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		s.logger.WithContext(ctx).Error("auth check rejected", slog.Int("status", resp.StatusCode))
		return Decision{Status: StatusLoginRequired, Reason: "auth_service_error"}
	}

	var payload checkResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		s.logger.WithContext(ctx).Error("auth check payload undecodable", slog.String("error", err.Error()))
		return Decision{Status: StatusLoginRequired, Reason: "bad_check_payload"}
	}

	return Decision{Status: payload.Status, Reason: payload.Reason, User: payload.User}
}

// Refresh attempts a token refresh. The returned headers are the renewed (or
// clearing) credential headers, relayed to the browser even when the refresh
// itself failed.
func (s *Service) Refresh(ctx context.Context, cookie string) (headers []string, ok bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.opts.RefreshURL, nil)
	if err != nil {
		return nil, false
	}
	req.Header.Set("Cache-Control", "no-store")
	if cookie != "" {
		req.Header.Set("Cookie", cookie)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.WithContext(ctx).Error("auth refresh unreachable", slog.String("error", err.Error()))
		return nil, false
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	headers = resp.Header.Values("Set-Cookie")
	ok = resp.StatusCode >= 200 && resp.StatusCode < 300
	if !ok {
		s.logger.WithContext(ctx).Warn("auth refresh rejected", slog.Int("status", resp.StatusCode))
	}
	return headers, ok
}

// Logout calls the logout endpoint and returns the clearing credential
// headers to relay alongside the login redirect.
func (s *Service) Logout(ctx context.Context, cookie string) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.opts.LogoutURL, nil)
	if err != nil {
		return nil, err
	}
	if cookie != "" {
		req.Header.Set("Cookie", cookie)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("logout request failed: %w", err)
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	return resp.Header.Values("Set-Cookie"), nil
}

// ObserveDecision records a decision for telemetry.
func ObserveDecision(d Decision) {
	telemetry.ObserveAuthDecision(string(d.Status))
}

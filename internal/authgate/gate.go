package authgate

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// defaultUser is returned when the check endpoint reports authenticated but
// omits the user payload.
var defaultUser = json.RawMessage(`{"id":"authenticated_user"}`)

// RequireUser gates a protected view. It returns the authenticated user's
// payload and true when the request may proceed. Otherwise it has already
// written a redirect (and attached any credential headers) and returns false;
// the handler must produce no body.
//
// refresh_required triggers a refresh attempt. On success the browser is
// redirected back to the original URL with the renewed credential headers
// attached: the headers must round-trip through a new top-level navigation to
// be persisted, so this is a deliberate self-redirect rather than a direct
// pass-through. On failure the redirect goes to the login destination, still
// carrying whatever headers the attempt produced (possibly clearing ones).
func (s *Service) RequireUser(c *gin.Context, loginPath string) (json.RawMessage, bool) {
	ctx := c.Request.Context()
	cookie := c.GetHeader("Cookie")

	decision := s.Check(ctx, cookie)
	ObserveDecision(decision)

	switch decision.Status {
	case StatusAuthenticated:
		user := decision.User
		if len(user) == 0 {
			user = defaultUser
		}
		return user, true

	case StatusRefreshRequired:
		s.logger.WithContext(ctx).Info("auth refresh required, attempting token refresh")
		headers, ok := s.Refresh(ctx, cookie)
		if ok {
			redirectWithCredentials(c, c.Request.RequestURI, headers)
			return nil, false
		}
		s.logger.WithContext(ctx).Info("token refresh failed, redirecting to login")
		redirectWithCredentials(c, loginPath, headers)
		return nil, false
	}

	// login_required, or any unknown status: fail closed.
	s.logger.WithContext(ctx).Info("redirecting to login",
		slog.String("status", string(decision.Status)),
		slog.String("reason", decision.Reason))
	redirectWithCredentials(c, loginPath, nil)
	return nil, false
}

// PreventAuthenticatedUser is the login view's counterpart: an already
// authenticated user (or one whose refresh succeeds) is redirected away.
// Returns true when a redirect was written; false means render the login view.
func (s *Service) PreventAuthenticatedUser(c *gin.Context, redirectTo string) bool {
	ctx := c.Request.Context()
	cookie := c.GetHeader("Cookie")

	decision := s.Check(ctx, cookie)
	ObserveDecision(decision)

	switch decision.Status {
	case StatusAuthenticated:
		redirectWithCredentials(c, redirectTo, nil)
		return true

	case StatusRefreshRequired:
		headers, ok := s.Refresh(ctx, cookie)
		if ok {
			redirectWithCredentials(c, redirectTo, headers)
			return true
		}
		s.logger.WithContext(ctx).Info("token refresh failed, rendering login view")
	}

	return false
}

// LogoutAndRedirect relays the logout endpoint's clearing headers to the
// browser alongside a redirect to the login destination.
func (s *Service) LogoutAndRedirect(c *gin.Context, loginPath string) {
	headers, err := s.Logout(c.Request.Context(), c.GetHeader("Cookie"))
	if err != nil {
		s.logger.WithContext(c.Request.Context()).Error("logout failed",
			slog.String("error", err.Error()))
		redirectWithCredentials(c, loginPath+"?logoutError=true", nil)
		return
	}
	redirectWithCredentials(c, loginPath, headers)
}

// redirectWithCredentials writes a redirect carrying the given credential
// headers verbatim. Multiple Set-Cookie values must each go out as their own
// header line.
func redirectWithCredentials(c *gin.Context, target string, credentialHeaders []string) {
	for _, h := range credentialHeaders {
		c.Writer.Header().Add("Set-Cookie", h)
	}
	c.Redirect(http.StatusFound, target)
	c.Abort()
}

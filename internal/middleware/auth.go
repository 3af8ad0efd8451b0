package middleware

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/2beens/orderbox/internal/auth"
	"github.com/2beens/orderbox/internal/telemetry/tracing"
	"github.com/2beens/orderbox/pkg"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/codes"
)

const SessionCookieName = "admin_session"

type AuthMiddlewareHandler struct {
	checker auth.Checker
	// "METHOD /path" keys
	protectedRoutes map[string]bool
}

func NewAuthMiddlewareHandler(checker auth.Checker) *AuthMiddlewareHandler {
	return &AuthMiddlewareHandler{
		checker: checker,
		protectedRoutes: map[string]bool{
			"GET /api/admin/me": true,
			"GET /api/orders":   true,
		},
	}
}

func (h *AuthMiddlewareHandler) routeIsProtected(r *http.Request) bool {
	return h.protectedRoutes[r.Method+" "+r.URL.Path]
}

// ReadSessionToken returns the decoded admin session token from the request
// cookie, if present.
func ReadSessionToken(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	token, err := url.PathUnescape(cookie.Value)
	if err != nil {
		return cookie.Value, true
	}
	return token, token != ""
}

// AuthCheck rejects requests to protected routes that do not carry a valid
// admin session cookie. For valid ones the session is put in the request
// context.
func (h *AuthMiddlewareHandler) AuthCheck() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !h.routeIsProtected(r) {
				next.ServeHTTP(w, r)
				return
			}

			ctx, span := tracing.GlobalTracer.Start(r.Context(), "middleware.auth")
			defer span.End()

			token, ok := ReadSessionToken(r)
			if !ok {
				log.Tracef("[missing token] [auth middleware] unauthorized => %s", r.URL.Path)
				pkg.WriteJSONError(w, http.StatusUnauthorized, "unauthorized")
				span.SetStatus(codes.Error, "missing-session-cookie")
				return
			}

			session, err := h.checker.Session(ctx, token)
			if err != nil {
				if !errors.Is(err, auth.ErrSessionNotFound) {
					log.Errorf("[failed session check] => %s: %s", r.URL.Path, err)
					span.RecordError(err)
				} else {
					log.Tracef("[invalid token] [auth middleware] unauthorized => %s", r.URL.Path)
				}
				pkg.WriteJSONError(w, http.StatusUnauthorized, "unauthorized")
				span.SetStatus(codes.Error, "not-logged")
				return
			}

			span.SetStatus(codes.Ok, "ok")
			next.ServeHTTP(w, r.WithContext(auth.ContextWithSession(r.Context(), session)))
		})
	}
}

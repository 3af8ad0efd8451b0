package admin

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/2beens/orderbox/internal/auth"
	"github.com/2beens/orderbox/internal/middleware"
	"github.com/2beens/orderbox/internal/telemetry/tracing"
	"github.com/2beens/orderbox/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/codes"
)

const errInvalidCredentials = "invalid credentials"

type Handler struct {
	authService *auth.Service
}

func NewHandler(authService *auth.Service) *Handler {
	return &Handler{
		authService: authService,
	}
}

func (handler *Handler) SetupRoutes(router *mux.Router) {
	adminRouter := router.PathPrefix("/api/admin").Subrouter()
	adminRouter.HandleFunc("/login", handler.HandleLogin).Methods("POST").Name("admin-login")
	adminRouter.HandleFunc("/logout", handler.HandleLogout).Methods("POST").Name("admin-logout")
	adminRouter.HandleFunc("/me", handler.HandleMe).Methods("GET").Name("admin-me")
}

func (handler *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "adminHandler.login")
	defer span.End()

	var creds auth.Credentials
	body, err := io.ReadAll(r.Body)
	if err != nil {
		log.Warnf("login, read body: %s", err)
	} else if len(body) > 0 {
		if err := json.Unmarshal(body, &creds); err != nil {
			log.Tracef("login, unmarshal json params: %s", err)
			creds = auth.Credentials{}
		}
	}

	token, err := handler.authService.Login(ctx, creds, time.Now())
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		if errors.Is(err, auth.ErrWrongCredentials) {
			ip, _ := pkg.ReadUserIP(r)
			log.Warnf("failed admin login for [%s] from [%s]", creds.Username, ip)
			pkg.WriteJSONError(w, http.StatusBadRequest, errInvalidCredentials)
			return
		}
		log.Errorf("login failed, create session: %s", err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	log.Trace("new login success")
	span.SetStatus(codes.Ok, "ok")
	pkg.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// HandleLogout always succeeds and always clears the session cookie.
func (handler *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "adminHandler.logout")
	defer span.End()

	if token, ok := middleware.ReadSessionToken(r); ok {
		handler.authService.Logout(ctx, token)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	pkg.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (handler *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	session, ok := auth.SessionFromContext(r.Context())
	if !ok {
		pkg.WriteJSONError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	pkg.WriteJSON(w, http.StatusOK, map[string]string{"username": session.Username})
}

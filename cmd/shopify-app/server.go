package main

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	shopifyauth "github.com/goliatone/go-shopify-auth"
	"github.com/goliatone/go-shopify-auth/core"
	"github.com/goliatone/go-shopify-auth/security"
)

const (
	authPath     = "/auth"
	callbackPath = "/auth/callback"
	webhookPath  = "/webhooks"
	graphqlPath  = "/graphql"
	metricsPath  = "/metrics"
	healthPath   = "/healthz"
)

type server struct {
	app     *shopifyauth.App
	router  *mux.Router
	metrics http.Handler
}

func newServer(app *shopifyauth.App, metrics http.Handler) *server {
	s := &server{app: app, router: mux.NewRouter(), metrics: metrics}
	s.routes()
	return s
}

func (s *server) routes() {
	s.router.HandleFunc(healthPath, s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc(authPath, s.handleBeginAuth).Methods(http.MethodGet)
	s.router.HandleFunc(callbackPath, s.handleCallback).Methods(http.MethodGet)
	s.router.Handle(webhookPath, s.app.Webhooks).Methods(http.MethodPost)
	s.router.HandleFunc(graphqlPath, s.handleGraphql).Methods(http.MethodPost)
	if s.metrics != nil {
		s.router.Handle(metricsPath, s.metrics).Methods(http.MethodGet)
	}
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleBeginAuth expects ?shop=<domain> and an optional online flag.
func (s *server) handleBeginAuth(w http.ResponseWriter, r *http.Request) {
	shop, ok := security.SanitizeShop(r.URL.Query().Get("shop"))
	if !ok {
		writeError(w, core.NewArgumentError("shopify-app: a valid shop is required", map[string]any{"shop": r.URL.Query().Get("shop")}))
		return
	}
	online, _ := strconv.ParseBool(r.URL.Query().Get("online"))

	authURL, err := s.app.Auth.BeginAuth(r.Context(), w, shop, callbackPath, online, "")
	if err != nil {
		writeError(w, err)
		return
	}
	http.Redirect(w, r, authURL, http.StatusFound)
}

func (s *server) handleCallback(w http.ResponseWriter, r *http.Request) {
	session, err := s.app.Auth.ValidateAuthCallback(r.Context(), w, r, core.AuthQueryFromValues(r.URL.Query()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"shop":      session.Shop,
		"scope":     session.Scope,
		"is_online": session.IsOnline,
	})
}

func (s *server) handleGraphql(w http.ResponseWriter, r *http.Request) {
	if err := s.app.GraphqlProxy(w, r); err != nil {
		s.app.Logger().Debug("graphql proxy failed", "error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	rich := core.MapError(err)
	writeJSON(w, rich.Code, map[string]any{
		"error": map[string]any{
			"message":   rich.Message,
			"text_code": rich.TextCode,
		},
	})
}

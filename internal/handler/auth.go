package handler

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/xid"

	"github.com/sakif/code-compass/internal/apperror"
	"github.com/sakif/code-compass/internal/auth"
	"github.com/sakif/code-compass/internal/service"
)

const stateCookie = "oauth_state"

// GitHubOAuth is the part of auth.GitHubProvider the handler needs.
type GitHubOAuth interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*auth.GitHubUser, error)
}

// AuthHandler serves /api/auth: email/password registration and login,
// the GitHub OAuth flow and the current user.
//
// Tokens are returned in the response body (or, after GitHub login, in
// the redirect fragment) and sent back by the client as a bearer header.
type AuthHandler struct {
	auth      *service.AuthService
	github    GitHubOAuth // nil when GitHub login is not configured
	clientURL string
	resp      *Responder
	logger    *slog.Logger
}

func NewAuthHandler(
	authService *service.AuthService,
	github GitHubOAuth,
	clientURL string,
	resp *Responder,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		auth:      authService,
		github:    github,
		clientURL: strings.TrimRight(clientURL, "/"),
		resp:      resp,
		logger:    logger,
	}
}

// HTTP: POST /api/auth/register
// REQUEST BODY: {"name": "...", "email": "...", "password": "...", "mode": "beginner"}
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var in service.RegisterInput
	if err := decodeJSON(w, r, &in); err != nil {
		h.resp.Error(w, r, err)
		return
	}
	res, err := h.auth.Register(r.Context(), in)
	if err != nil {
		h.resp.Error(w, r, err)
		return
	}
	h.resp.JSON(w, http.StatusCreated, res)
}

// HTTP: POST /api/auth/login
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var in service.LoginInput
	if err := decodeJSON(w, r, &in); err != nil {
		h.resp.Error(w, r, err)
		return
	}
	res, err := h.auth.Login(r.Context(), in)
	if err != nil {
		h.resp.Error(w, r, err)
		return
	}
	h.resp.JSON(w, http.StatusOK, res)
}

// HTTP: GET /api/auth/me (RequireAuth)
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	u, err := h.auth.Me(r.Context(), userID)
	if err != nil {
		h.resp.Error(w, r, err)
		return
	}
	h.resp.JSON(w, http.StatusOK, u)
}

// HandleGitHubLogin redirects the browser to GitHub's authorization page.
// A random state is stored in a short-lived HttpOnly cookie and checked on
// the callback.
//
// HTTP: GET /api/auth/github/login
func (h *AuthHandler) HandleGitHubLogin(w http.ResponseWriter, r *http.Request) {
	if h.github == nil {
		h.resp.Error(w, r, apperror.NotFound("auth provider", "github"))
		return
	}
	state := xid.New().String()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, h.github.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleGitHubCallback completes the OAuth flow and redirects to the
// client with the token in the URL fragment, which never reaches a server
// log.
//
// HTTP: GET /api/auth/github/callback?code=&state=
func (h *AuthHandler) HandleGitHubCallback(w http.ResponseWriter, r *http.Request) {
	if h.github == nil {
		h.resp.Error(w, r, apperror.NotFound("auth provider", "github"))
		return
	}

	q := r.URL.Query()
	cookie, err := r.Cookie(stateCookie)
	if err != nil || cookie.Value == "" || q.Get("state") != cookie.Value {
		h.logger.Warn("auth callback: state mismatch")
		h.resp.Error(w, r, apperror.BadRequest("INVALID_STATE", "Invalid OAuth state"))
		return
	}
	// single use
	http.SetCookie(w, &http.Cookie{Name: stateCookie, Value: "", Path: "/", MaxAge: -1})

	if errParam := q.Get("error"); errParam != "" {
		h.logger.Info("auth callback: user denied authorization", slog.String("error", errParam))
		h.redirectClient(w, r, "?auth=denied")
		return
	}
	code := q.Get("code")
	if code == "" {
		h.resp.Error(w, r, apperror.BadRequest("MISSING_CODE", "Missing OAuth code"))
		return
	}

	ghUser, err := h.github.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("auth callback: GitHub exchange failed", slog.String("error", err.Error()))
		h.redirectClient(w, r, "?auth=failed")
		return
	}
	res, err := h.auth.LoginGitHub(r.Context(), ghUser)
	if err != nil {
		h.logger.Error("auth callback: login failed",
			slog.Int64("githubID", ghUser.ID),
			slog.String("error", err.Error()),
		)
		h.redirectClient(w, r, "?auth=failed")
		return
	}
	h.redirectClient(w, r, "#token="+url.QueryEscape(res.Token))
}

func (h *AuthHandler) redirectClient(w http.ResponseWriter, r *http.Request, suffix string) {
	http.Redirect(w, r, h.clientURL+"/"+suffix, http.StatusSeeOther)
}

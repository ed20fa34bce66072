package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/MrEthical07/dualauth"
	"github.com/MrEthical07/dualauth/autherr"
	"github.com/MrEthical07/dualauth/middleware"
)

const (
	protectedMessage    = "You have access to this protected resource"
	jwtLogoutMessage    = "Logged out successfully. Please discard your token client-side."
	cookieLogoutMessage = "Logged out successfully."
)

type handlers struct {
	engine Engine
	logger *slog.Logger
	secure bool
}

type loginResponse struct {
	Scheme      string     `json:"scheme"`
	Success     bool       `json:"success"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	AccessToken string     `json:"access_token,omitempty"`
	TokenType   string     `json:"token_type,omitempty"`
	ExpiresIn   int64      `json:"expires_in,omitempty"`
}

type identityResponse struct {
	Scheme    string    `json:"scheme"`
	UserID    string    `json:"user_id"`
	Role      string    `json:"role"`
	SessionID string    `json:"session_id,omitempty"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

type protectedResponse struct {
	Message  string           `json:"message"`
	Identity identityResponse `json:"identity"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func (h *handlers) banner(w http.ResponseWriter, _ *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"service": "dualauth",
		"schemes": []string{dualauth.SchemeCookie.String(), dualauth.SchemeJWT.String()},
	})
}

func (h *handlers) health(w http.ResponseWriter, _ *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handlers) login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		middleware.WriteError(w, autherr.New(autherr.KindBadRequest, "invalid form body"))
		return
	}

	res, err := h.engine.Authenticate(r.Context(),
		r.PostFormValue("username"), r.PostFormValue("password"), middleware.SchemeFromRequest(r))
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	body := loginResponse{Scheme: res.Scheme.String(), Success: res.Success}
	switch res.Scheme {
	case dualauth.SchemeCookie:
		setSessionCookie(w, res.SessionID, res.ExpiresAt, h.secure || r.TLS != nil)
		expires := res.ExpiresAt
		body.ExpiresAt = &expires
	case dualauth.SchemeJWT:
		body.AccessToken = res.Token
		body.TokenType = res.TokenType
		body.ExpiresIn = int64(res.TTL / time.Second)
	}
	middleware.WriteJSON(w, http.StatusOK, body)
}

func (h *handlers) protected(w http.ResponseWriter, r *http.Request) {
	ident, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		middleware.WriteError(w, dualauth.ErrEngineNotReady)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, protectedResponse{
		Message: protectedMessage,
		Identity: identityResponse{
			Scheme:    ident.Scheme.String(),
			UserID:    ident.UserID,
			Role:      ident.Role,
			SessionID: ident.SessionID,
			IssuedAt:  ident.IssuedAt,
			ExpiresAt: ident.ExpiresAt,
		},
	})
}

func (h *handlers) logout(w http.ResponseWriter, r *http.Request) {
	art := middleware.RequestArtifacts(r)
	err := h.engine.Logout(r.Context(), dualauth.LogoutRequest{
		Scheme:    art.Scheme,
		Token:     art.Token,
		SessionID: art.SessionID,
	})
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	if art.Scheme == dualauth.SchemeCookie {
		clearSessionCookie(w, h.secure || r.TLS != nil)
		middleware.WriteJSON(w, http.StatusOK, messageResponse{Message: cookieLogoutMessage})
		return
	}
	middleware.WriteJSON(w, http.StatusOK, messageResponse{Message: jwtLogoutMessage})
}

func setSessionCookie(w http.ResponseWriter, id string, expires time.Time, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    id,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearSessionCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

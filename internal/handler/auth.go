package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/DukeRupert/notegenie/internal/auth"
	"github.com/DukeRupert/notegenie/internal/domain"
	"github.com/DukeRupert/notegenie/internal/service"
	"github.com/DukeRupert/notegenie/internal/session"
)

// AuthRouteLimits wraps the account endpoints with per-IP rate limits.
// A nil field leaves the route unlimited.
type AuthRouteLimits struct {
	SignUp func(http.Handler) http.Handler
	Verify func(http.Handler) http.Handler
	SignIn func(http.Handler) http.Handler
}

// AuthHandler serves account creation, verification and sessions.
//
// Routes:
//   - POST /api/sign-up
//   - POST /api/verify-code
//   - POST /api/sign-in
//   - POST /api/sign-out
//   - GET  /api/me
type AuthHandler struct {
	users      service.UserService
	logger     *slog.Logger
	isSecure   bool
	sessionTTL time.Duration
}

// NewAuthHandler creates a new AuthHandler. sessionTTL sets the cookie
// lifetime and should match the user service's session duration.
func NewAuthHandler(users service.UserService, logger *slog.Logger, isSecure bool, sessionTTL time.Duration) *AuthHandler {
	return &AuthHandler{
		users:      users,
		logger:     logger,
		isSecure:   isSecure,
		sessionTTL: sessionTTL,
	}
}

// RegisterRoutes registers the account routes on mux.
func (h *AuthHandler) RegisterRoutes(mux *http.ServeMux, requireUser func(http.Handler) http.Handler, limits AuthRouteLimits) {
	mux.Handle("POST /api/sign-up", limited(limits.SignUp, http.HandlerFunc(h.SignUp)))
	mux.Handle("POST /api/verify-code", limited(limits.Verify, http.HandlerFunc(h.VerifyCode)))
	mux.Handle("POST /api/sign-in", limited(limits.SignIn, http.HandlerFunc(h.SignIn)))
	mux.HandleFunc("POST /api/sign-out", h.SignOut)
	mux.Handle("GET /api/me", requireUser(http.HandlerFunc(h.Me)))
}

func limited(mw func(http.Handler) http.Handler, h http.Handler) http.Handler {
	if mw == nil {
		return h
	}
	return mw(h)
}

type signUpRequest struct {
	Name       string `json:"name"`
	Username   string `json:"username"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	UserType   string `json:"userType"`
	InviteCode string `json:"inviteCode"`
}

// SignUp creates an unverified account and mails its code.
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	const op = "handler.sign_up"

	var req signUpRequest
	if err := decodeJSON(r, op, &req, nil); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	user, err := h.users.SignUp(r.Context(), domain.SignUpParams{
		Name:       req.Name,
		Username:   req.Username,
		Email:      req.Email,
		Password:   req.Password,
		UserType:   domain.UserType(req.UserType),
		InviteCode: req.InviteCode,
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"message": "User registered successfully. Please verify your email",
		"user":    newUserView(user),
	})
}

type verifyCodeRequest struct {
	Username string `json:"username" validate:"required"`
	Code     string `json:"code" validate:"required"`
}

var verifyCodeMessages = fieldMessages{
	"username.required": "Username is required",
	"code.required":     "Verification code is required",
}

// VerifyCode confirms the code mailed at sign-up.
func (h *AuthHandler) VerifyCode(w http.ResponseWriter, r *http.Request) {
	const op = "handler.verify_code"

	var req verifyCodeRequest
	if err := decodeJSON(r, op, &req, verifyCodeMessages); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	if _, err := h.users.VerifyCode(r.Context(), req.Username, req.Code); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Account verified successfully",
	})
}

type signInRequest struct {
	Identifier string `json:"identifier" validate:"required"`
	Password   string `json:"password" validate:"required"`
}

var signInMessages = fieldMessages{
	"identifier.required": "Email or username is required",
	"password.required":   "Password is required",
}

// SignIn opens a session. Browsers get the cookie; API clients use the
// returned token as a bearer credential.
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	const op = "handler.sign_in"

	var req signInRequest
	if err := decodeJSON(r, op, &req, signInMessages); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	result, err := h.users.Login(r.Context(), req.Identifier, req.Password)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	session.SetCookie(w, result.Token, h.sessionTTL, h.isSecure)
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"token":     result.Token,
		"expiresAt": result.ExpiresAt,
		"user":      newUserView(result.User),
	})
}

// SignOut deletes the session if one is presented. It always succeeds.
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	if token := auth.TokenFromRequest(r); token != "" {
		if err := h.users.Logout(r.Context(), token); err != nil {
			h.logger.Warn("failed to delete session", "error", err)
		}
	}
	session.ClearCookie(w, h.isSecure)
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// Me returns the signed-in account.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())
	if user == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"user":    newUserView(user),
	})
}

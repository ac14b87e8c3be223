package handlers

import (
	"net/http"
	"todoList/internal/auth"
	"todoList/internal/handlers/dto"
	"todoList/internal/logger"
	"todoList/internal/service"

	"go.uber.org/zap"
)

type SessionIssuer interface {
	SetCookie(w http.ResponseWriter, id auth.Identity) error
	ClearCookie(w http.ResponseWriter)
}

type AuthHandler struct {
	AuthService AuthService
	sessions    SessionIssuer
}

func NewAuthHandler(authService AuthService, sessions SessionIssuer) AuthHandler {
	return AuthHandler{
		AuthService: authService,
		sessions:    sessions,
	}
}

func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var request dto.SignUpRequest
	if !decodeJSON(w, r, &request) {
		return
	}

	u, err := h.AuthService.SignUp(r.Context(), service.SignUpInput{
		Email:    request.Email,
		Name:     request.Name,
		Password: request.Password,
	})
	if err != nil {
		handleServiceError(w, r, err, "sign_up")
		return
	}

	h.startSession(w, r, http.StatusCreated, dto.IdentityOf(u))
}

func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var request dto.SignInRequest
	if !decodeJSON(w, r, &request) {
		return
	}

	u, err := h.AuthService.SignIn(r.Context(), service.SignInInput{
		Email:    request.Email,
		Password: request.Password,
	})
	if err != nil {
		handleServiceError(w, r, err, "sign_in")
		return
	}

	h.startSession(w, r, http.StatusOK, dto.IdentityOf(u))
}

func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	h.sessions.ClearCookie(w)
	responseNoContent(w)
}

// Session вызывается за RequireSession; удалённый пользователь = 401
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	u, err := h.AuthService.GetUser(r.Context(), id.UserID)
	if err != nil {
		handleServiceError(w, r, err, "get_session", zap.String("user_id", id.UserID))
		return
	}
	responseWithJSON(w, http.StatusOK, dto.IdentityOf(u))
}

func (h *AuthHandler) startSession(w http.ResponseWriter, r *http.Request, status int, id auth.Identity) {
	if err := h.sessions.SetCookie(w, id); err != nil {
		handleServiceError(w, r, err, "issue_session", zap.String("user_id", id.UserID))
		return
	}

	logger.Info("HTTP_OUT: Сессия выдана",
		zap.String("user_id", id.UserID),
		zap.Int("http_status", status))

	responseWithJSON(w, status, id)
}

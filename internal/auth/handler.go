package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/fabrica-erp/fabrica-erp/internal/platform/httpx"
	"github.com/fabrica-erp/fabrica-erp/internal/shared"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger         *slog.Logger
	service        *Service
	sessionManager *shared.SessionManager
	validate       *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, sessions *shared.SessionManager) *Handler {
	return &Handler{
		logger:         logger,
		service:        service,
		sessionManager: sessions,
		validate:       validator.New(),
	}
}

// MountRoutes registers auth routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/register", h.Register)
	r.Post("/login", h.Login)
	r.Post("/logout", h.Logout)
}

type registerRequest struct {
	FullName string `json:"fullName" validate:"required"`
	Username string `json:"username" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Admin    bool   `json:"admin"`
}

// loginRequest accepts a username or an email; at least one is required.
type loginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password" validate:"required"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "Invalid input. Ensure all fields are provided.", err)
		return
	}

	user, err := h.service.Register(r.Context(), RegisterInput{
		Username: req.Username,
		FullName: req.FullName,
		Email:    req.Email,
		Password: req.Password,
		Admin:    req.Admin,
	})
	if err != nil {
		if errors.Is(err, ErrUserExists) {
			httpx.Error(w, http.StatusConflict, "User with email or username already exists", err)
			return
		}
		h.logger.Error("register failed", slog.Any("error", err))
		httpx.Error(w, http.StatusInternalServerError, "Error registering user", nil)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{
		"message": "User registered successfully",
		"user":    user,
	})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "Invalid input. Ensure all fields are provided.", err)
		return
	}
	login := req.Username
	if login == "" {
		login = req.Email
	}
	if login == "" {
		httpx.Error(w, http.StatusBadRequest, "Username or email is required", nil)
		return
	}

	user, err := h.service.Authenticate(r.Context(), login, req.Password)
	if err != nil {
		httpx.Error(w, http.StatusUnauthorized, "Invalid credentials", err)
		return
	}

	session, err := h.sessionManager.Issue(r.Context(), user.ID)
	if err != nil {
		h.logger.Error("session issue failed", slog.Any("error", err))
		httpx.Error(w, http.StatusInternalServerError, "Error logging in", nil)
		return
	}
	expiresAt := time.Now().Add(h.sessionManager.TTL())
	if err := h.service.RegisterSession(r.Context(), session.ID, user.ID, expiresAt, r.RemoteAddr, r.UserAgent()); err != nil {
		h.logger.Error("session record failed", slog.Any("error", err))
	}
	h.sessionManager.WriteCookie(w, session)

	httpx.JSON(w, http.StatusOK, map[string]any{
		"message": "Login successful",
		"token":   session.ID,
		"user":    user,
	})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	session := shared.SessionFromContext(r.Context())
	if session == nil {
		httpx.Error(w, http.StatusUnauthorized, "Unauthorized request", nil)
		return
	}
	if err := h.sessionManager.Destroy(r.Context(), session); err != nil {
		h.logger.Error("session destroy failed", slog.Any("error", err))
		httpx.Error(w, http.StatusInternalServerError, "Error logging out", nil)
		return
	}
	if err := h.service.RemoveSession(r.Context(), session.ID); err != nil {
		h.logger.Error("session delete failed", slog.Any("error", err))
	}
	h.sessionManager.ClearCookie(w)
	httpx.JSON(w, http.StatusOK, map[string]any{"message": "Logout successful"})
}

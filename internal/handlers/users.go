package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/idfuturestars/starguide/internal/middleware"
	"github.com/idfuturestars/starguide/pkg/models"
)

type userStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, req models.UpdateProfileRequest) error
	Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error)
}

type notificationStore interface {
	ListRecent(ctx context.Context, userID uuid.UUID, limit int) ([]models.Notification, error)
}

type UserHandler struct {
	users         userStore
	notifications notificationStore
}

func NewUserHandler(users userStore, notifications notificationStore) *UserHandler {
	return &UserHandler{users: users, notifications: notifications}
}

func (h *UserHandler) Profile(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.GetByID(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "User not found", r))
			return
		}
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	userID := middleware.GetUserID(r.Context())
	if err := h.users.UpdateProfile(r.Context(), userID, req); err != nil {
		handleServiceError(w, r, err)
		return
	}

	user, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

func (h *UserHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	entries, err := h.users.Leaderboard(r.Context(), 25)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"leaderboard": entries})
}

func (h *UserHandler) Notifications(w http.ResponseWriter, r *http.Request) {
	notifications, err := h.notifications.ListRecent(r.Context(), middleware.GetUserID(r.Context()), 50)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"notifications": notifications})
}

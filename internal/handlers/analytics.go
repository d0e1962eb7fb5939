package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/idfuturestars/starguide/internal/middleware"
	"github.com/idfuturestars/starguide/pkg/models"
)

type analyticsStore interface {
	RecentEvents(ctx context.Context, userID uuid.UUID, limit int) ([]models.ActivityEvent, error)
	WeeklyActivity(ctx context.Context, userID uuid.UUID, now time.Time) (models.WeeklyActivity, error)
}

type AnalyticsHandler struct {
	users     userStore
	analytics analyticsStore
}

func NewAnalyticsHandler(users userStore, analytics analyticsStore) *AnalyticsHandler {
	return &AnalyticsHandler{users: users, analytics: analytics}
}

// Dashboard assembles stored progress and activity rows for the current
// user. All numbers are read back as persisted; nothing is computed here.
func (h *AnalyticsHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	user, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	weekly, err := h.analytics.WeeklyActivity(r.Context(), userID, time.Now())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	events, err := h.analytics.RecentEvents(r.Context(), userID, 20)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, models.DashboardResponse{
		Progress:       user.Progress,
		WeeklyActivity: weekly,
		RecentEvents:   events,
	})
}

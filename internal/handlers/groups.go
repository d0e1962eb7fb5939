package handlers

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/idfuturestars/starguide/internal/middleware"
	"github.com/idfuturestars/starguide/pkg/models"
)

type groupStore interface {
	Create(ctx context.Context, group *models.StudyGroup) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.StudyGroup, error)
	GetByJoinCode(ctx context.Context, code string) (*models.StudyGroup, error)
	ListPublic(ctx context.Context, limit int) ([]models.StudyGroup, error)
	ListByMember(ctx context.Context, userID uuid.UUID) ([]models.StudyGroup, error)
	IsMember(ctx context.Context, groupID, userID uuid.UUID) (bool, error)
	AddMember(ctx context.Context, groupID, userID uuid.UUID) error
	RemoveMember(ctx context.Context, groupID, userID uuid.UUID) error
	RecentMessages(ctx context.Context, groupID uuid.UUID, limit int) ([]models.GroupMessage, error)
}

type eventRecorder interface {
	RecordEvent(ctx context.Context, userID uuid.UUID, eventType string, data map[string]string) error
}

type progressStore interface {
	AddXP(ctx context.Context, userID uuid.UUID, amount int) (bool, error)
}

// XP awards per activity. Levels advance every 1000 XP.
const (
	xpCreateGroup = 100
	xpJoinGroup   = 50
	xpCreateQuiz  = 100
	xpJoinQuiz    = 25
)

// awardXP credits activity XP and records an achievement event when the
// credit pushes the user over a level boundary.
func awardXP(ctx context.Context, progress progressStore, events eventRecorder, userID uuid.UUID, amount int) {
	leveled, err := progress.AddXP(ctx, userID, amount)
	if err != nil || !leveled {
		return
	}
	events.RecordEvent(ctx, userID, models.EventAchievement, map[string]string{
		"achievement": "level_up",
	})
}

type GroupHandler struct {
	groups   groupStore
	progress progressStore
	events   eventRecorder
}

func NewGroupHandler(groups groupStore, progress progressStore, events eventRecorder) *GroupHandler {
	return &GroupHandler{groups: groups, progress: progress, events: events}
}

const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// generateCode returns a short uppercase code users can share verbally.
// Ambiguous characters (0/O, 1/I) are excluded from the alphabet.
func generateCode(length int) string {
	buf := make([]byte, length)
	rand.Read(buf)
	for i := range buf {
		buf[i] = codeAlphabet[int(buf[i])%len(codeAlphabet)]
	}
	return string(buf)
}

func (h *GroupHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	fields := map[string]string{}
	if strings.TrimSpace(req.Name) == "" {
		fields["name"] = "Name is required"
	}
	if strings.TrimSpace(req.Subject) == "" {
		fields["subject"] = "Subject is required"
	}
	if req.GroupType != "" && req.GroupType != models.GroupPublic && req.GroupType != models.GroupPrivate {
		fields["group_type"] = "Group type must be public or private"
	}
	if len(fields) > 0 {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed", fields, r))
		return
	}

	if req.GroupType == "" {
		req.GroupType = models.GroupPublic
	}
	if req.MaxMembers <= 0 {
		req.MaxMembers = 50
	}

	userID := middleware.GetUserID(r.Context())
	group := &models.StudyGroup{
		ID:          uuid.New(),
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Subject:     req.Subject,
		GroupType:   req.GroupType,
		JoinCode:    generateCode(8),
		MaxMembers:  req.MaxMembers,
		CreatedBy:   userID,
	}

	if err := h.groups.Create(r.Context(), group); err != nil {
		handleServiceError(w, r, err)
		return
	}

	h.events.RecordEvent(r.Context(), userID, models.EventGroupJoined, map[string]string{
		"group_id":   group.ID.String(),
		"group_name": group.Name,
	})
	awardXP(r.Context(), h.progress, h.events, userID, xpCreateGroup)

	group.MemberCount = 1
	group.IsMember = true
	writeJSON(w, http.StatusCreated, group)
}

func (h *GroupHandler) Join(w http.ResponseWriter, r *http.Request) {
	var req models.JoinGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	code := strings.ToUpper(strings.TrimSpace(req.JoinCode))
	if code == "" {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed",
			map[string]string{"join_code": "Join code is required"}, r))
		return
	}

	group, err := h.groups.GetByJoinCode(r.Context(), code)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Study group not found", r))
			return
		}
		handleServiceError(w, r, err)
		return
	}

	if group.MemberCount >= group.MaxMembers {
		writeJSON(w, http.StatusConflict, errorResp("CONFLICT", "Study group is full", r))
		return
	}

	userID := middleware.GetUserID(r.Context())
	if err := h.groups.AddMember(r.Context(), group.ID, userID); err != nil {
		handleServiceError(w, r, err)
		return
	}

	h.events.RecordEvent(r.Context(), userID, models.EventGroupJoined, map[string]string{
		"group_id":   group.ID.String(),
		"group_name": group.Name,
	})
	awardXP(r.Context(), h.progress, h.events, userID, xpJoinGroup)

	group.IsMember = true
	writeJSON(w, http.StatusOK, group)
}

func (h *GroupHandler) Leave(w http.ResponseWriter, r *http.Request) {
	groupID, err := uuid.Parse(chi.URLParam(r, "groupID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid group ID", r))
		return
	}

	userID := middleware.GetUserID(r.Context())
	if err := h.groups.RemoveMember(r.Context(), groupID, userID); err != nil {
		handleServiceError(w, r, err)
		return
	}

	h.events.RecordEvent(r.Context(), userID, models.EventGroupLeft, map[string]string{
		"group_id": groupID.String(),
	})

	writeJSON(w, http.StatusOK, map[string]string{"message": "Left study group"})
}

func (h *GroupHandler) MyGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := h.groups.ListByMember(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"groups": groups})
}

func (h *GroupHandler) Discover(w http.ResponseWriter, r *http.Request) {
	groups, err := h.groups.ListPublic(r.Context(), 50)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	userID := middleware.GetUserID(r.Context())
	for i := range groups {
		member, err := h.groups.IsMember(r.Context(), groups[i].ID, userID)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		groups[i].IsMember = member
	}

	writeJSON(w, http.StatusOK, map[string]any{"groups": groups})
}

func (h *GroupHandler) Messages(w http.ResponseWriter, r *http.Request) {
	groupID, err := uuid.Parse(chi.URLParam(r, "groupID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid group ID", r))
		return
	}

	userID := middleware.GetUserID(r.Context())
	member, err := h.groups.IsMember(r.Context(), groupID, userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if !member {
		writeJSON(w, http.StatusForbidden, errorResp("FORBIDDEN", "You are not a member of this group", r))
		return
	}

	messages, err := h.groups.RecentMessages(r.Context(), groupID, 100)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"messages": messages})
}
